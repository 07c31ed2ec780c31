package etcd

import (
	"context"
	"os"
	"testing"
	"time"
)

func TestNewClient_RequiresEndpoints(t *testing.T) {
	if _, err := NewClient(Config{}); err == nil {
		t.Fatal("expected error for empty endpoints")
	}
}

// newTestClient connects to the cluster named by ETCD_TEST_ENDPOINTS,
// skipping the test when none is available.
func newTestClient(t *testing.T) *Client {
	t.Helper()
	endpoints := os.Getenv("ETCD_TEST_ENDPOINTS")
	if endpoints == "" {
		t.Skip("ETCD_TEST_ENDPOINTS not set; skipping etcd tests")
	}
	client, err := NewClient(Config{
		Endpoints:   []string{endpoints},
		DialTimeout: 2 * time.Second,
	})
	if err != nil {
		t.Skipf("etcd at %s not reachable: %v", endpoints, err)
	}
	t.Cleanup(func() { client.Close() })

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := client.HealthCheck(ctx); err != nil {
		t.Skipf("etcd health check failed: %v", err)
	}
	return client
}

func TestGrantAndRevokeLease(t *testing.T) {
	client := newTestClient(t)
	ctx := context.Background()

	leaseID, err := client.GrantLease(ctx, 5)
	if err != nil {
		t.Fatalf("GrantLease failed: %v", err)
	}
	if leaseID == 0 {
		t.Fatal("expected non-zero lease id")
	}

	if err := client.RevokeLease(ctx, leaseID); err != nil {
		t.Fatalf("RevokeLease failed: %v", err)
	}
}

func TestKeepAlive(t *testing.T) {
	client := newTestClient(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	leaseID, err := client.GrantLease(ctx, 5)
	if err != nil {
		t.Fatalf("GrantLease failed: %v", err)
	}

	ch, err := client.KeepAlive(ctx, leaseID)
	if err != nil {
		t.Fatalf("KeepAlive failed: %v", err)
	}

	select {
	case resp := <-ch:
		if resp == nil {
			t.Fatal("keep-alive channel closed immediately")
		}
	case <-time.After(3 * time.Second):
		t.Fatal("no keep-alive response received")
	}
}
