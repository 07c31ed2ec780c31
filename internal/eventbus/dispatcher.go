package eventbus

import (
	"context"
	"encoding/json"
	"time"

	"foodcourt/internal/domain"
	"foodcourt/internal/logger"
	"foodcourt/internal/pubsub"
	"foodcourt/internal/store"

	"go.uber.org/zap"
)

// Dispatcher polls the outbox in commit order and invokes every registered
// subscriber at-least-once. Only the current lease holder dispatches;
// everyone else's tick is a no-op, so running N replicas is safe.
type Dispatcher struct {
	bus    *Bus
	store  *store.Store
	lease  Leaser
	pubsub pubsub.PubSub

	holderID     string
	pollInterval time.Duration
	batchSize    int
}

const leaseName = "outbox-dispatcher"

func NewDispatcher(bus *Bus, s *store.Store, lease Leaser, ps pubsub.PubSub) *Dispatcher {
	return &Dispatcher{
		bus:          bus,
		store:        s,
		lease:        lease,
		pubsub:       ps,
		holderID:     domain.NewID(),
		pollInterval: time.Second,
		batchSize:    100,
	}
}

// Run blocks, ticking until ctx is cancelled.
func (d *Dispatcher) Run(ctx context.Context) {
	ticker := time.NewTicker(d.pollInterval)
	defer ticker.Stop()

	log := logger.GetLogger(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			held, err := d.lease.TryAcquire(ctx, leaseName, d.holderID, 15*time.Second)
			if err != nil {
				log.Warn("[OUTBOX] action=lease_acquire_failed", zap.Error(err))
				continue
			}
			if !held {
				continue
			}
			if err := d.dispatchOnce(ctx); err != nil {
				log.Error("[OUTBOX] action=dispatch_failed", zap.Error(err))
			}
		}
	}
}

func (d *Dispatcher) dispatchOnce(ctx context.Context) error {
	rows, err := d.store.Outbox.FetchUndispatched(ctx, d.store.DB, d.batchSize)
	if err != nil {
		return err
	}
	if len(rows) == 0 {
		return nil
	}

	log := logger.GetLogger(ctx)
	dispatched := make([]int64, 0, len(rows))
	for _, row := range rows {
		event := Event{
			ID:            row.EventID,
			AggregateType: row.AggregateType,
			AggregateID:   row.AggregateID,
			Kind:          Kind(row.Kind),
			Payload:       row.Payload,
		}

		// A row is only marked dispatched once every subscriber took it.
		// On the first failure the batch stops so this row, and everything
		// after it, is redelivered next tick in the same order; subscribers
		// that already handled it dedupe on event.ID.
		delivered := true
		for _, sub := range d.bus.subscribers {
			if err := sub.Handle(ctx, event); err != nil {
				log.Error("[OUTBOX] action=subscriber_failed",
					zap.String("subscriber", sub.Name()), zap.String("event_id", event.ID), zap.Error(err))
				delivered = false
				break
			}
		}
		if !delivered {
			break
		}

		// Live-board fan-out is best-effort: a dropped push costs a stale
		// board, not a lost domain event, so it never holds a row back.
		if d.pubsub != nil {
			topic := LiveTopic(event.AggregateType, event.AggregateID)
			if err := d.pubsub.Publish(ctx, topic, event); err != nil {
				log.Warn("[OUTBOX] action=fanout_failed", zap.String("topic", topic), zap.Error(err))
			}
			if event.AggregateType == AggregateOrder {
				if restaurantID, ok := extractRestaurantID(event.Payload); ok {
					rtopic := RestaurantOrdersTopic(restaurantID)
					if err := d.pubsub.Publish(ctx, rtopic, event); err != nil {
						log.Warn("[OUTBOX] action=fanout_failed", zap.String("topic", rtopic), zap.Error(err))
					}
				}
			}
		}
		dispatched = append(dispatched, row.ID)
	}

	if len(dispatched) == 0 {
		return nil
	}
	return d.store.Outbox.MarkDispatched(ctx, d.store.DB, dispatched)
}

// LiveTopic names the pub/sub topic a given aggregate's events are
// broadcast on, consumed by the live order-board websocket stream.
func LiveTopic(aggregateType, aggregateID string) string {
	return aggregateType + ":" + aggregateID
}

// RestaurantOrdersTopic is the topic the live order board subscribes to for
// a whole restaurant rather than one order.
func RestaurantOrdersTopic(restaurantID string) string {
	return "restaurant-orders:" + restaurantID
}

func extractRestaurantID(payload []byte) (string, bool) {
	var v struct {
		RestaurantID string `json:"restaurantId"`
	}
	if err := json.Unmarshal(payload, &v); err != nil || v.RestaurantID == "" {
		return "", false
	}
	return v.RestaurantID, true
}
