package pubsub

import (
	"context"
	"encoding/json"
	"sync"

	"foodcourt/internal/logger"

	"go.uber.org/zap"
)

// MemoryPubSub implements PubSub with in-process channels. It backs
// single-instance deployments and tests; multi-replica deployments use
// RedisPubSub so every API instance sees every dispatched event.
type MemoryPubSub struct {
	mu     sync.RWMutex
	subs   map[string][]chan []byte
	closed bool
}

func NewMemoryPubSub() *MemoryPubSub {
	return &MemoryPubSub{
		subs: make(map[string][]chan []byte),
	}
}

// Publish delivers to every current subscriber of topic. A subscriber whose
// buffer is full is skipped, never blocked on.
func (ps *MemoryPubSub) Publish(ctx context.Context, topic string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	ps.mu.RLock()
	defer ps.mu.RUnlock()

	if ps.closed {
		return nil
	}

	for _, ch := range ps.subs[topic] {
		select {
		case ch <- data:
		default:
			logger.GetLogger(ctx).Warn("[PUBSUB] action=message_dropped", zap.String("topic", topic))
		}
	}
	return nil
}

func (ps *MemoryPubSub) Subscribe(ctx context.Context, topic string) (<-chan []byte, func()) {
	ch := make(chan []byte, subscriberBuffer)

	ps.mu.Lock()
	ps.subs[topic] = append(ps.subs[topic], ch)
	ps.mu.Unlock()

	// sync.Once guards against a double close when cleanup is invoked both
	// manually and via context cancellation.
	var once sync.Once
	cleanup := func() {
		once.Do(func() {
			ps.mu.Lock()
			defer ps.mu.Unlock()
			if ps.closed {
				return
			}
			subscribers := ps.subs[topic]
			for i, c := range subscribers {
				if c == ch {
					ps.subs[topic] = append(subscribers[:i], subscribers[i+1:]...)
					close(ch)
					break
				}
			}
		})
	}

	go func() {
		<-ctx.Done()
		cleanup()
	}()

	return ch, cleanup
}

func (ps *MemoryPubSub) Close() error {
	ps.mu.Lock()
	defer ps.mu.Unlock()
	ps.closed = true
	for _, subscribers := range ps.subs {
		for _, ch := range subscribers {
			close(ch)
		}
	}
	ps.subs = nil
	return nil
}
