// Package etcd wraps the etcd v3 client with the small lease surface the
// outbox dispatcher's singleton election needs. Running without etcd is
// supported everywhere this package is used; the store-backed lease takes
// over in single-instance mode.
package etcd

import (
	"context"
	"fmt"
	"time"

	clientv3 "go.etcd.io/etcd/client/v3"
)

// Client wraps an etcd v3 client.
type Client struct {
	cli *clientv3.Client
}

// Config holds etcd client configuration.
type Config struct {
	// Endpoints is the list of etcd server endpoints.
	Endpoints []string

	// DialTimeout is the timeout for failing to establish a connection.
	DialTimeout time.Duration

	// Username for authentication (optional).
	Username string

	// Password for authentication (optional).
	Password string
}

// NewClient creates a new etcd client.
func NewClient(cfg Config) (*Client, error) {
	if len(cfg.Endpoints) == 0 {
		return nil, fmt.Errorf("etcd endpoints cannot be empty")
	}

	if cfg.DialTimeout == 0 {
		cfg.DialTimeout = 5 * time.Second
	}

	cli, err := clientv3.New(clientv3.Config{
		Endpoints:   cfg.Endpoints,
		DialTimeout: cfg.DialTimeout,
		Username:    cfg.Username,
		Password:    cfg.Password,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create etcd client: %w", err)
	}

	return &Client{cli: cli}, nil
}

// Close closes the etcd client connection.
func (c *Client) Close() error {
	if c.cli != nil {
		return c.cli.Close()
	}
	return nil
}

// GrantLease grants a lease with the given TTL in seconds.
func (c *Client) GrantLease(ctx context.Context, ttl int64) (clientv3.LeaseID, error) {
	resp, err := c.cli.Grant(ctx, ttl)
	if err != nil {
		return 0, err
	}
	return resp.ID, nil
}

// RevokeLease revokes a lease, releasing the dispatcher slot immediately
// instead of waiting out the TTL.
func (c *Client) RevokeLease(ctx context.Context, leaseID clientv3.LeaseID) error {
	_, err := c.cli.Revoke(ctx, leaseID)
	return err
}

// KeepAlive keeps a lease alive by sending keep-alive requests. Returns a
// channel that receives keep-alive responses.
func (c *Client) KeepAlive(ctx context.Context, leaseID clientv3.LeaseID) (<-chan *clientv3.LeaseKeepAliveResponse, error) {
	return c.cli.KeepAlive(ctx, leaseID)
}

// Client returns the underlying etcd v3 client for lease-scoped
// transactions.
func (c *Client) Client() *clientv3.Client {
	return c.cli
}

// HealthCheck checks if etcd is reachable.
func (c *Client) HealthCheck(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	_, err := c.cli.Get(ctx, "health-check")
	return err
}
