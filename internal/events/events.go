package events

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/nats-io/nats.go"
	"github.com/puzpuzpuz/xsync/v3"
)

type ChangeKind string

const (
	ChangeKindWaypointAdded   ChangeKind = "waypoint_added"
	ChangeKindWaypointUpdated ChangeKind = "waypoint_updated"
	ChangeKindWaypointDeleted ChangeKind = "waypoint_deleted"
	ChangeKindMediaChanged    ChangeKind = "media_changed"
)

// Change announces that a route's waypoint list or its media is no longer
// current. Consumers re-query rather than trusting the payload.
type Change struct {
	Kind       ChangeKind `json:"kind"`
	RouteID    uint       `json:"route_id"`
	WaypointID uint       `json:"waypoint_id,omitempty"`
}

type subscriber struct {
	routeID uint
	ch      chan Change
	natsSub *nats.Subscription

	// mu orders sends against close so a delivery racing a cancel
	// can never hit a closed channel
	mu     sync.Mutex
	closed bool
}

func (s *subscriber) send(change Change) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	select {
	case s.ch <- change:
	default:
	}
}

func (s *subscriber) close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	close(s.ch)
}

// Bus fans waypoint changes out to per-route subscribers. With NATS enabled
// changes also cross process boundaries; without it the bus is in-process
// only.
type Bus struct {
	nc          *nats.Conn
	subscribers *xsync.MapOf[uint64, *subscriber]
	nextID      atomic.Uint64
}

func NewBus(nc *nats.Conn) *Bus {
	return &Bus{
		nc:          nc,
		subscribers: xsync.NewMapOf[uint64, *subscriber](),
	}
}

func subject(routeID uint) string {
	return fmt.Sprintf("waypoints.%d", routeID)
}

// Publish delivers a change to every subscriber of its route. Slow
// subscribers are skipped, they will catch up on the next change.
func (b *Bus) Publish(change Change) {
	if b.nc != nil {
		data, err := json.Marshal(change)
		if err != nil {
			slog.Warn("Error marshalling change", "error", err)
			return
		}
		if err := b.nc.Publish(subject(change.RouteID), data); err != nil {
			slog.Warn("Error publishing change to NATS", "error", err)
		}
		return
	}
	b.deliver(change)
}

func (b *Bus) deliver(change Change) {
	b.subscribers.Range(func(_ uint64, sub *subscriber) bool {
		if sub.routeID != change.RouteID {
			return true
		}
		sub.send(change)
		return true
	})
}

// Subscribe returns a channel of changes for one route and a cancel
// function. The channel is closed on cancel.
func (b *Bus) Subscribe(routeID uint) (<-chan Change, func(), error) {
	sub := &subscriber{
		routeID: routeID,
		ch:      make(chan Change, 16),
	}
	id := b.nextID.Add(1)

	if b.nc != nil {
		natsSub, err := b.nc.Subscribe(subject(routeID), func(msg *nats.Msg) {
			var change Change
			if err := json.Unmarshal(msg.Data, &change); err != nil {
				slog.Warn("Error unmarshalling change from NATS", "error", err)
				return
			}
			sub.send(change)
		})
		if err != nil {
			return nil, nil, fmt.Errorf("failed to subscribe to NATS: %w", err)
		}
		sub.natsSub = natsSub
	}

	b.subscribers.Store(id, sub)

	cancel := func() {
		if _, loaded := b.subscribers.LoadAndDelete(id); !loaded {
			return
		}
		if sub.natsSub != nil {
			if err := sub.natsSub.Unsubscribe(); err != nil {
				slog.Warn("Error unsubscribing from NATS", "error", err)
			}
		}
		sub.close()
	}

	return sub.ch, cancel, nil
}
