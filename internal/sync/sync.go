package sync

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/puzpuzpuz/xsync/v3"
	"github.com/roamline/roamline-server/internal/db/models"
	"github.com/roamline/roamline-server/internal/events"
	"github.com/roamline/roamline-server/internal/metrics"
	"gorm.io/gorm"
)

// Synchronizer keeps consumers' view of a route's waypoint list current.
// Every change re-queries the whole ordered list and re-emits it; consumers
// replace, never patch. A failed re-query keeps the last good list.
type Synchronizer struct {
	db       *gorm.DB
	bus      *events.Bus
	metrics  *metrics.Metrics
	lastGood *xsync.MapOf[uint, []models.Waypoint]
}

func NewSynchronizer(db *gorm.DB, bus *events.Bus, metrics *metrics.Metrics) *Synchronizer {
	return &Synchronizer{
		db:       db,
		bus:      bus,
		metrics:  metrics,
		lastGood: xsync.NewMapOf[uint, []models.Waypoint](),
	}
}

// Subscription delivers full waypoint lists, newest state last. Close stops
// delivery and releases the underlying event subscription.
type Subscription struct {
	lists  chan []models.Waypoint
	cancel func()
}

func (s *Subscription) Lists() <-chan []models.Waypoint {
	return s.lists
}

func (s *Subscription) Close() {
	s.cancel()
}

// Snapshot returns the route's ordered waypoint list. On a query failure the
// last successfully read list is returned, so a transient database error
// never blanks the map.
func (s *Synchronizer) Snapshot(routeID uint) ([]models.Waypoint, error) {
	waypoints, err := models.FindWaypointsByRouteID(s.db, routeID)
	if err != nil {
		s.metrics.IncrementSyncErrors(fmt.Sprint(routeID))
		if last, ok := s.lastGood.Load(routeID); ok {
			slog.Warn("Waypoint query failed, serving last good list", "route", routeID, "error", err)
			return last, nil
		}
		return nil, err
	}
	s.lastGood.Store(routeID, waypoints)
	return waypoints, nil
}

// Subscribe emits the current list immediately, then a fresh full list after
// every change to the route.
func (s *Synchronizer) Subscribe(ctx context.Context, routeID uint) (*Subscription, error) {
	changes, cancelEvents, err := s.bus.Subscribe(routeID)
	if err != nil {
		return nil, fmt.Errorf("failed to subscribe to changes: %w", err)
	}

	sub := &Subscription{
		lists: make(chan []models.Waypoint, 1),
	}
	subCtx, cancel := context.WithCancel(ctx)
	sub.cancel = func() {
		cancel()
		cancelEvents()
	}

	initial, err := s.Snapshot(routeID)
	if err != nil {
		sub.cancel()
		return nil, err
	}
	sub.lists <- initial

	go func() {
		defer close(sub.lists)
		for {
			select {
			case <-subCtx.Done():
				return
			case _, ok := <-changes:
				if !ok {
					return
				}
				list, err := s.Snapshot(routeID)
				if err != nil {
					// No last good list yet, keep waiting
					continue
				}
				select {
				case sub.lists <- list:
				case <-subCtx.Done():
					return
				}
			}
		}
	}()

	return sub, nil
}
