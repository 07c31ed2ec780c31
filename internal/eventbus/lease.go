package eventbus

import (
	"context"
	"time"

	"foodcourt/internal/store"

	foodetcd "foodcourt/internal/etcd"
	clientv3 "go.etcd.io/etcd/client/v3"
)

// Leaser grants at-most-one active dispatcher across replicas.
// Implementations must be safe to poll repeatedly from a single goroutine.
type Leaser interface {
	// TryAcquire returns true if holderID now holds (or continues to hold)
	// the named lease.
	TryAcquire(ctx context.Context, name, holderID string, ttl time.Duration) (bool, error)
}

// DBLeaser implements Leaser against the `leases` table — a literal
// one-row-with-heartbeat mechanism, used whenever no etcd endpoints are
// configured (single-instance / dev mode).
type DBLeaser struct {
	Store *store.Store
}

func (l *DBLeaser) TryAcquire(ctx context.Context, name, holderID string, ttl time.Duration) (bool, error) {
	expiresAt := time.Now().UTC().Add(ttl)
	res, err := l.Store.DB.ExecContext(ctx, `
		INSERT INTO leases (name, holder, expires_at) VALUES ($1, $2, $3)
		ON CONFLICT (name) DO UPDATE
			SET holder = $2, expires_at = $3
			WHERE leases.holder = $2 OR leases.expires_at < now()`,
		name, holderID, expiresAt)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// EtcdLeaser implements Leaser with an etcd lease-backed key, adapted from
// the distributed-coordination primitives the rest of the fleet uses for
// singleton assignment.
type EtcdLeaser struct {
	Client *foodetcd.Client
	leaseID clientv3.LeaseID
}

func (l *EtcdLeaser) TryAcquire(ctx context.Context, name, holderID string, ttl time.Duration) (bool, error) {
	leaseID, err := l.Client.GrantLease(ctx, int64(ttl.Seconds()))
	if err != nil {
		return false, err
	}
	cli := l.Client.Client()
	txn := cli.Txn(ctx).
		If(clientv3.Compare(clientv3.CreateRevision(name), "=", 0)).
		Then(clientv3.OpPut(name, holderID, clientv3.WithLease(leaseID))).
		Else(clientv3.OpGet(name))
	resp, err := txn.Commit()
	if err != nil {
		return false, err
	}
	if resp.Succeeded {
		l.leaseID = leaseID
		return true, nil
	}
	if len(resp.Responses) == 0 {
		return false, nil
	}
	get := resp.Responses[0].GetResponseRange()
	if get == nil || len(get.Kvs) == 0 {
		return false, nil
	}
	if string(get.Kvs[0].Value) == holderID {
		l.leaseID = leaseID
		return true, nil
	}
	return false, nil
}
