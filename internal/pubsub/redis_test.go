package pubsub

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
)

// newTestRedis connects to the instance named by REDIS_TEST_ADDR, skipping
// the test when none is available.
func newTestRedis(t *testing.T) *redis.Client {
	t.Helper()
	addr := os.Getenv("REDIS_TEST_ADDR")
	if addr == "" {
		t.Skip("REDIS_TEST_ADDR not set; skipping redis pub/sub tests")
	}
	client := redis.NewClient(&redis.Options{Addr: addr})
	if err := client.Ping(context.Background()).Err(); err != nil {
		t.Skipf("redis at %s not reachable: %v", addr, err)
	}
	return client
}

func TestRedisPubSub_PublishSubscribe(t *testing.T) {
	ps := NewRedisPubSub(newTestRedis(t))
	defer ps.Close()

	ctx := context.Background()
	topic := "restaurant-orders:redis-test"

	ch, unsub := ps.Subscribe(ctx, topic)
	defer unsub()

	// Redis subscriptions are established asynchronously.
	time.Sleep(100 * time.Millisecond)

	if err := ps.Publish(ctx, topic, map[string]string{"orderId": "o-9"}); err != nil {
		t.Fatalf("Publish failed: %v", err)
	}

	select {
	case msg := <-ch:
		if len(msg) == 0 {
			t.Fatal("received empty payload")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for message")
	}
}

func TestRedisPubSub_UnsubscribeClosesChannel(t *testing.T) {
	ps := NewRedisPubSub(newTestRedis(t))
	defer ps.Close()

	ch, unsub := ps.Subscribe(context.Background(), "restaurant-orders:redis-close")
	unsub()

	select {
	case _, ok := <-ch:
		if ok {
			t.Fatal("expected closed channel after unsubscribe")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("channel not closed after unsubscribe")
	}
}
