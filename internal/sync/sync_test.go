package sync_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/roamline/roamline-server/internal/db/models"
	"github.com/roamline/roamline-server/internal/events"
	"github.com/roamline/roamline-server/internal/metrics"
	"github.com/roamline/roamline-server/internal/sync"
	"gorm.io/gorm"
)

// Prometheus collectors register globally, so the package shares one set.
var testMetrics = metrics.NewMetrics()

func testDB(t *testing.T) (*gorm.DB, models.Route) {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "test.db")), &gorm.Config{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	err = db.AutoMigrate(&models.Route{}, &models.Waypoint{}, &models.MediaItem{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	route := models.Route{Name: "main"}
	if err := db.Create(&route).Error; err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return db, route
}

func addWaypoint(t *testing.T, db *gorm.DB, routeID uint, address string, stop int) {
	t.Helper()
	waypoint := models.Waypoint{RouteID: routeID, Address: address, StopNumber: stop}
	if err := db.Create(&waypoint).Error; err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestSnapshot(t *testing.T) {
	t.Parallel()
	db, route := testDB(t)
	addWaypoint(t, db, route.ID, "Stop B", 2)
	addWaypoint(t, db, route.ID, "Stop A", 1)

	synchronizer := sync.NewSynchronizer(db, events.NewBus(nil), testMetrics)
	waypoints, err := synchronizer.Snapshot(route.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(waypoints) != 2 {
		t.Fatalf("expected 2 waypoints, got %d", len(waypoints))
	}
	if waypoints[0].Address != "Stop A" || waypoints[1].Address != "Stop B" {
		t.Errorf("expected stop order, got %s then %s", waypoints[0].Address, waypoints[1].Address)
	}
}

func TestSnapshotServesLastGoodOnFailure(t *testing.T) {
	t.Parallel()
	db, route := testDB(t)
	addWaypoint(t, db, route.ID, "Stop A", 1)

	synchronizer := sync.NewSynchronizer(db, events.NewBus(nil), testMetrics)
	first, err := synchronizer.Snapshot(route.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Break the table out from under the query
	if err := db.Migrator().DropTable(&models.Waypoint{}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	again, err := synchronizer.Snapshot(route.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(again) != len(first) || again[0].Address != "Stop A" {
		t.Errorf("expected the last good list, got %+v", again)
	}
}

func TestSnapshotFailsWithNoLastGood(t *testing.T) {
	t.Parallel()
	db, route := testDB(t)
	if err := db.Migrator().DropTable(&models.Waypoint{}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	synchronizer := sync.NewSynchronizer(db, events.NewBus(nil), testMetrics)
	_, err := synchronizer.Snapshot(route.ID)
	if err == nil {
		t.Error("expected error, got nil")
	}
}

func TestSubscribe(t *testing.T) {
	t.Parallel()
	db, route := testDB(t)
	addWaypoint(t, db, route.ID, "Stop A", 1)
	bus := events.NewBus(nil)

	synchronizer := sync.NewSynchronizer(db, bus, testMetrics)
	sub, err := synchronizer.Subscribe(context.Background(), route.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer sub.Close()

	select {
	case list := <-sub.Lists():
		if len(list) != 1 {
			t.Errorf("expected the initial list, got %d waypoints", len(list))
		}
	case <-time.After(time.Second):
		t.Fatal("expected an initial list")
	}

	addWaypoint(t, db, route.ID, "Stop B", 2)
	bus.Publish(events.Change{Kind: events.ChangeKindWaypointAdded, RouteID: route.ID})

	select {
	case list := <-sub.Lists():
		if len(list) != 2 {
			t.Errorf("expected a refreshed list, got %d waypoints", len(list))
		}
	case <-time.After(time.Second):
		t.Fatal("expected a refreshed list")
	}
}

func TestSubscribeCloseStopsDelivery(t *testing.T) {
	t.Parallel()
	db, route := testDB(t)
	bus := events.NewBus(nil)

	synchronizer := sync.NewSynchronizer(db, bus, testMetrics)
	sub, err := synchronizer.Subscribe(context.Background(), route.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	<-sub.Lists()
	sub.Close()

	for {
		select {
		case _, ok := <-sub.Lists():
			if !ok {
				return
			}
		case <-time.After(time.Second):
			t.Fatal("expected the list channel to close")
		}
	}
}
