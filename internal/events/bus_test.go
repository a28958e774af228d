package events

import (
	"testing"
	"time"
)

func TestPublishFansOut(t *testing.T) {
	bus := NewBus()
	a, unsubA := bus.Subscribe(EventPriceTick, 4)
	b, unsubB := bus.Subscribe(EventPriceTick, 4)
	defer unsubA()
	defer unsubB()

	bus.Publish(EventPriceTick, "tick")

	for _, ch := range []<-chan any{a, b} {
		select {
		case got := <-ch:
			if got != "tick" {
				t.Errorf("payload = %v", got)
			}
		case <-time.After(time.Second):
			t.Fatal("subscriber never received the event")
		}
	}
}

func TestTopicsAreIsolated(t *testing.T) {
	bus := NewBus()
	ch, unsub := bus.Subscribe(EventOrderFilled, 4)
	defer unsub()

	bus.Publish(EventPriceTick, "tick")

	select {
	case got := <-ch:
		t.Fatalf("received event for a different topic: %v", got)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestSlowSubscriberDropsInsteadOfBlocking(t *testing.T) {
	bus := NewBus()
	ch, unsub := bus.Subscribe(EventPriceTick, 1)
	defer unsub()

	done := make(chan struct{})
	go func() {
		bus.Publish(EventPriceTick, 1)
		bus.Publish(EventPriceTick, 2) // buffer full, must not block
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("publish blocked on a slow subscriber")
	}

	if got := <-ch; got != 1 {
		t.Errorf("first payload = %v, want 1", got)
	}
	select {
	case got := <-ch:
		t.Fatalf("overflow payload delivered: %v", got)
	default:
	}
}

func TestUnsubscribeClosesChannel(t *testing.T) {
	bus := NewBus()
	ch, unsub := bus.Subscribe(EventPriceTick, 4)
	unsub()

	if _, ok := <-ch; ok {
		t.Fatal("channel still open after unsubscribe")
	}

	// Publishing to a topic with no subscribers is a no-op.
	bus.Publish(EventPriceTick, "tick")
}
