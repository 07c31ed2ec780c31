// Package pubsub provides a publish-subscribe interface used to fan outbox
// events out to live websocket subscribers.
//
// # Overview
//
// This package provides a unified interface for pub/sub messaging. The
// primary implementation uses Redis for horizontal scaling across multiple
// server instances; MemoryPubSub backs single-instance deployments and
// tests.
//
// # Architecture
//
// ```
// ┌─────────────┐     ┌─────────────┐     ┌─────────────┐
// │   Outbox    │     │   Redis     │     │  Live Order │
// │ Dispatcher  │────▶│   Pub/Sub   │────▶│    Board    │
// │  (Publish)  │     │             │     │  WebSocket  │
// └─────────────┘     └─────────────┘     └─────────────┘
// ```
//
// # Usage
//
// Initialize the pub/sub client:
//
//	redisClient := redis.NewClient(&redis.Options{
//		Addr: "localhost:6379",
//	})
//	ps := pubsub.NewRedisPubSub(redisClient)
//
// Publish an event:
//
//	err := ps.Publish(ctx, eventbus.RestaurantOrdersTopic(restaurantID), event)
//
// Subscribe to events:
//
//	ch, unsub := ps.Subscribe(ctx, eventbus.RestaurantOrdersTopic(restaurantID))
//	defer unsub()
//	for msg := range ch {
//		var event eventbus.Event
//		json.Unmarshal(msg, &event)
//		// Handle event
//	}
//
// # Topics
//
// Topic naming is owned by the eventbus package (LiveTopic,
// RestaurantOrdersTopic) rather than this package; pubsub only moves bytes.
package pubsub
