package events

import (
	"context"
	"testing"
	"time"
)

func TestMerge(t *testing.T) {
	bus := NewEventBus(10)
	listing := bus.Subscribe(EventListingChanged)
	nav := bus.Subscribe(EventNavigated)

	merged := Merge(context.Background(), listing, nav)

	bus.Publish(NewNavigatedEvent("bucket", "a/"))
	bus.Publish(NewListingEvent("bucket", "a/", 0, 0, false, true, false))

	seen := map[EventType]bool{}
	for i := 0; i < 2; i++ {
		select {
		case ev := <-merged:
			seen[ev.Type()] = true
		case <-time.After(time.Second):
			t.Fatal("timeout waiting for merged event")
		}
	}
	if !seen[EventNavigated] || !seen[EventListingChanged] {
		t.Errorf("expected both event types, got %v", seen)
	}

	bus.Close()
	select {
	case _, ok := <-merged:
		if ok {
			t.Error("expected merged channel to close after bus close")
		}
	case <-time.After(time.Second):
		t.Fatal("merged channel not closed")
	}
}

func TestMerge_ContextCancel(t *testing.T) {
	bus := NewEventBus(10)
	defer bus.Close()

	ctx, cancel := context.WithCancel(context.Background())
	merged := Merge(ctx, bus.Subscribe(EventLog))
	cancel()

	select {
	case _, ok := <-merged:
		if ok {
			t.Error("expected no events after cancel")
		}
	case <-time.After(time.Second):
		t.Fatal("merged channel not closed after cancel")
	}
}
