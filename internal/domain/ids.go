// Package domain holds the core aggregates and value types shared by the
// order engine, payment broker, and workforce ledger. Nothing here talks to
// a database or the network; persistence lives in internal/store, behavior
// lives in internal/orders, internal/payments, and internal/workforce.
package domain

import "github.com/google/uuid"

// NewID returns a fresh opaque identifier for any aggregate.
func NewID() string {
	return uuid.New().String()
}
