package eventbus

import (
	"context"
	"database/sql"

	"foodcourt/internal/domain"
	"foodcourt/internal/store"
)

// Event is the in-memory representation of one dispatched outbox row.
type Event struct {
	ID            string
	AggregateType string
	AggregateID   string
	Kind          Kind
	Payload       []byte
}

// Subscriber receives dispatched events. Implementations must be idempotent
// keyed by Event.ID, since delivery is at-least-once.
type Subscriber interface {
	Name() string
	Handle(ctx context.Context, event Event) error
}

// Bus appends events to the transactional outbox and, via Dispatcher, fans
// them out to registered Subscribers.
type Bus struct {
	store       *store.Store
	subscribers []Subscriber
}

func NewBus(s *store.Store) *Bus {
	return &Bus{store: s}
}

// Register adds a subscriber. Registration must happen before the
// dispatcher starts; it is not safe to call concurrently with Run.
func (b *Bus) Register(s Subscriber) {
	b.subscribers = append(b.subscribers, s)
}

// Publish appends one event to the outbox inside tx — the caller's business
// transaction. It must be called with the same tx that performs the state
// change the event describes, so the two commit atomically together.
func (b *Bus) Publish(ctx context.Context, tx *sql.Tx, aggregateType, aggregateID string, kind Kind, payload any) error {
	return b.store.Outbox.Append(ctx, tx, domain.NewID(), aggregateType, aggregateID, string(kind), payload)
}
