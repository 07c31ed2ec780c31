package pubsub

import (
	"context"
)

// subscriberBuffer is the per-subscriber channel depth. A board client that
// stops reading loses events rather than stalling the dispatcher.
const subscriberBuffer = 100

// PubSub moves serialized events between the outbox dispatcher and live
// subscribers (the order-board websocket stream). Implementations must be
// safe for concurrent use.
type PubSub interface {
	// Publish sends a message to all subscribers of the given topic. The
	// payload is JSON-serialized before being sent.
	Publish(ctx context.Context, topic string, payload any) error

	// Subscribe returns a channel that receives messages for the given
	// topic as raw JSON bytes. The returned cleanup function must be called
	// when done; the channel is closed when the context is cancelled or
	// cleanup is called.
	Subscribe(ctx context.Context, topic string) (<-chan []byte, func())

	// Close releases all resources held by the pub/sub client.
	Close() error
}
