package pubsub

import (
	"context"
	"testing"
	"time"
)

func TestMemoryPubSub_PublishReachesSubscriber(t *testing.T) {
	ps := NewMemoryPubSub()
	defer ps.Close()

	received := make(chan []byte, 1)
	_, err := ps.Subscribe(context.Background(), "rooms", func(ctx context.Context, topic string, payload []byte) {
		received <- payload
	})
	if err != nil {
		t.Fatalf("subscribe failed: %v", err)
	}

	if err := ps.Publish(context.Background(), "rooms", []byte("hello")); err != nil {
		t.Fatalf("publish failed: %v", err)
	}

	select {
	case payload := <-received:
		if string(payload) != "hello" {
			t.Errorf("expected payload %q, got %q", "hello", payload)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for payload")
	}
}

func TestMemoryPubSub_TopicsAreIsolated(t *testing.T) {
	ps := NewMemoryPubSub()
	defer ps.Close()

	received := make(chan []byte, 1)
	_, err := ps.Subscribe(context.Background(), "rooms", func(ctx context.Context, topic string, payload []byte) {
		received <- payload
	})
	if err != nil {
		t.Fatalf("subscribe failed: %v", err)
	}

	if err := ps.Publish(context.Background(), "other", []byte("noise")); err != nil {
		t.Fatalf("publish failed: %v", err)
	}

	select {
	case payload := <-received:
		t.Errorf("unexpected payload %q on unrelated topic", payload)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestMemoryPubSub_MultipleSubscribers(t *testing.T) {
	ps := NewMemoryPubSub()
	defer ps.Close()

	first := make(chan []byte, 1)
	second := make(chan []byte, 1)
	for _, ch := range []chan []byte{first, second} {
		if _, err := ps.Subscribe(context.Background(), "rooms", func(ctx context.Context, topic string, payload []byte) {
			ch <- payload
		}); err != nil {
			t.Fatalf("subscribe failed: %v", err)
		}
	}

	if err := ps.Publish(context.Background(), "rooms", []byte("fanout")); err != nil {
		t.Fatalf("publish failed: %v", err)
	}

	for i, ch := range []chan []byte{first, second} {
		select {
		case payload := <-ch:
			if string(payload) != "fanout" {
				t.Errorf("subscriber %d: expected %q, got %q", i, "fanout", payload)
			}
		case <-time.After(time.Second):
			t.Fatalf("subscriber %d: timed out", i)
		}
	}
}

func TestMemoryPubSub_Unsubscribe(t *testing.T) {
	ps := NewMemoryPubSub()
	defer ps.Close()

	received := make(chan []byte, 1)
	sub, err := ps.Subscribe(context.Background(), "rooms", func(ctx context.Context, topic string, payload []byte) {
		received <- payload
	})
	if err != nil {
		t.Fatalf("subscribe failed: %v", err)
	}

	if err := sub.Unsubscribe(); err != nil {
		t.Fatalf("unsubscribe failed: %v", err)
	}
	if got := ps.SubscriberCount("rooms"); got != 0 {
		t.Errorf("expected 0 subscribers after unsubscribe, got %d", got)
	}

	if err := ps.Publish(context.Background(), "rooms", []byte("late")); err != nil {
		t.Fatalf("publish failed: %v", err)
	}

	select {
	case <-received:
		t.Error("received payload after unsubscribe")
	case <-time.After(100 * time.Millisecond):
	}
}

func TestMemoryPubSub_ClosedBusRejectsOperations(t *testing.T) {
	ps := NewMemoryPubSub()
	if err := ps.Close(); err != nil {
		t.Fatalf("close failed: %v", err)
	}

	if err := ps.Publish(context.Background(), "rooms", []byte("x")); err != ErrClosed {
		t.Errorf("expected ErrClosed from Publish, got %v", err)
	}
	if _, err := ps.Subscribe(context.Background(), "rooms", func(context.Context, string, []byte) {}); err != ErrClosed {
		t.Errorf("expected ErrClosed from Subscribe, got %v", err)
	}
}
