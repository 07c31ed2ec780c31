package pubsub

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"
)

func TestMemoryPubSub_PublishSubscribe(t *testing.T) {
	ps := NewMemoryPubSub()
	defer ps.Close()

	ctx := context.Background()
	topic := "restaurant-orders:rest-1"

	ch, unsub := ps.Subscribe(ctx, topic)
	defer unsub()

	payload := map[string]string{"kind": "OrderCreated", "orderId": "o-1"}
	if err := ps.Publish(ctx, topic, payload); err != nil {
		t.Fatalf("Publish failed: %v", err)
	}

	select {
	case msg := <-ch:
		var received map[string]string
		if err := json.Unmarshal(msg, &received); err != nil {
			t.Fatalf("Failed to unmarshal message: %v", err)
		}
		if received["orderId"] != "o-1" {
			t.Errorf("Expected orderId=o-1, got %s", received["orderId"])
		}
	case <-time.After(time.Second):
		t.Fatal("Timeout waiting for message")
	}
}

func TestMemoryPubSub_MultipleSubscribers(t *testing.T) {
	ps := NewMemoryPubSub()
	defer ps.Close()

	ctx := context.Background()
	topic := "restaurant-orders:rest-2"

	ch1, unsub1 := ps.Subscribe(ctx, topic)
	defer unsub1()
	ch2, unsub2 := ps.Subscribe(ctx, topic)
	defer unsub2()

	if err := ps.Publish(ctx, topic, "order-ready"); err != nil {
		t.Fatalf("Publish failed: %v", err)
	}

	for i, ch := range []<-chan []byte{ch1, ch2} {
		select {
		case msg := <-ch:
			if string(msg) != `"order-ready"` {
				t.Errorf("subscriber %d: unexpected payload %s", i, msg)
			}
		case <-time.After(time.Second):
			t.Fatalf("subscriber %d: timeout waiting for message", i)
		}
	}
}

func TestMemoryPubSub_TopicIsolation(t *testing.T) {
	ps := NewMemoryPubSub()
	defer ps.Close()

	ctx := context.Background()

	chA, unsubA := ps.Subscribe(ctx, "restaurant-orders:rest-a")
	defer unsubA()
	chB, unsubB := ps.Subscribe(ctx, "restaurant-orders:rest-b")
	defer unsubB()

	if err := ps.Publish(ctx, "restaurant-orders:rest-a", "only-for-a"); err != nil {
		t.Fatalf("Publish failed: %v", err)
	}

	select {
	case <-chA:
	case <-time.After(time.Second):
		t.Fatal("subscriber A never received its message")
	}

	select {
	case msg := <-chB:
		t.Fatalf("subscriber B received a message for another restaurant: %s", msg)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestMemoryPubSub_UnsubscribeStopsDelivery(t *testing.T) {
	ps := NewMemoryPubSub()
	defer ps.Close()

	ctx := context.Background()
	topic := "restaurant-orders:rest-3"

	ch, unsub := ps.Subscribe(ctx, topic)
	unsub()

	if _, ok := <-ch; ok {
		t.Fatal("expected channel to be closed after unsubscribe")
	}

	// Publishing after unsubscribe must not panic or block.
	if err := ps.Publish(ctx, topic, "late"); err != nil {
		t.Fatalf("Publish failed: %v", err)
	}
}

func TestMemoryPubSub_DoubleUnsubscribeIsSafe(t *testing.T) {
	ps := NewMemoryPubSub()
	defer ps.Close()

	_, unsub := ps.Subscribe(context.Background(), "restaurant-orders:rest-4")
	unsub()
	unsub()
}

func TestMemoryPubSub_ContextCancellationCleansUp(t *testing.T) {
	ps := NewMemoryPubSub()
	defer ps.Close()

	ctx, cancel := context.WithCancel(context.Background())
	ch, _ := ps.Subscribe(ctx, "restaurant-orders:rest-5")
	cancel()

	select {
	case _, ok := <-ch:
		if ok {
			t.Fatal("expected closed channel, got a message")
		}
	case <-time.After(time.Second):
		t.Fatal("channel not closed after context cancellation")
	}
}

func TestMemoryPubSub_ConcurrentPublish(t *testing.T) {
	ps := NewMemoryPubSub()
	defer ps.Close()

	ctx := context.Background()
	topic := "restaurant-orders:rest-6"

	ch, unsub := ps.Subscribe(ctx, topic)
	defer unsub()

	const n = 50
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_ = ps.Publish(ctx, topic, i)
		}(i)
	}
	wg.Wait()

	received := 0
	timeout := time.After(time.Second)
	for received < n {
		select {
		case <-ch:
			received++
		case <-timeout:
			t.Fatalf("received %d of %d messages", received, n)
		}
	}
}

func TestMemoryPubSub_CloseClosesSubscribers(t *testing.T) {
	ps := NewMemoryPubSub()

	ch, _ := ps.Subscribe(context.Background(), "restaurant-orders:rest-7")
	if err := ps.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	select {
	case _, ok := <-ch:
		if ok {
			t.Fatal("expected closed channel after Close")
		}
	case <-time.After(time.Second):
		t.Fatal("channel not closed after Close")
	}
}
