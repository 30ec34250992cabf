package events_test

import (
	"testing"
	"time"

	"github.com/roamline/roamline-server/internal/events"
)

func TestPublishSubscribe(t *testing.T) {
	t.Parallel()
	bus := events.NewBus(nil)

	changes, cancel, err := bus.Subscribe(1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer cancel()

	bus.Publish(events.Change{
		Kind:       events.ChangeKindWaypointAdded,
		RouteID:    1,
		WaypointID: 7,
	})

	select {
	case change := <-changes:
		if change.Kind != events.ChangeKindWaypointAdded {
			t.Errorf("unexpected kind: %s", change.Kind)
		}
		if change.WaypointID != 7 {
			t.Errorf("unexpected waypoint: %d", change.WaypointID)
		}
	case <-time.After(time.Second):
		t.Error("expected a change")
	}
}

func TestRouteFiltering(t *testing.T) {
	t.Parallel()
	bus := events.NewBus(nil)

	changes, cancel, err := bus.Subscribe(1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer cancel()

	bus.Publish(events.Change{Kind: events.ChangeKindWaypointAdded, RouteID: 2})

	select {
	case change := <-changes:
		t.Errorf("unexpected change for another route: %+v", change)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestCancelClosesChannel(t *testing.T) {
	t.Parallel()
	bus := events.NewBus(nil)

	changes, cancel, err := bus.Subscribe(1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	cancel()
	// Cancel twice is safe
	cancel()

	select {
	case _, ok := <-changes:
		if ok {
			t.Error("expected a closed channel")
		}
	case <-time.After(time.Second):
		t.Error("expected a closed channel")
	}

	// Publishing after cancel must not panic
	bus.Publish(events.Change{Kind: events.ChangeKindWaypointDeleted, RouteID: 1})
}

func TestPublishRacingCancel(t *testing.T) {
	t.Parallel()
	// A delivery in flight while the subscriber disconnects must never
	// panic on a closed channel
	for i := 0; i < 100; i++ {
		bus := events.NewBus(nil)
		changes, cancel, err := bus.Subscribe(1)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		done := make(chan struct{})
		go func() {
			defer close(done)
			for j := 0; j < 50; j++ {
				bus.Publish(events.Change{Kind: events.ChangeKindWaypointUpdated, RouteID: 1})
			}
		}()
		cancel()
		<-done

		// The channel still closes for the reader
		for range changes {
		}
	}
}

func TestSlowSubscriberDoesNotBlock(t *testing.T) {
	t.Parallel()
	bus := events.NewBus(nil)

	_, cancel, err := bus.Subscribe(1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer cancel()

	// Overflow the buffer without draining it
	done := make(chan struct{})
	go func() {
		for i := 0; i < 100; i++ {
			bus.Publish(events.Change{Kind: events.ChangeKindWaypointUpdated, RouteID: 1})
		}
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Error("publish blocked on a slow subscriber")
	}
}
