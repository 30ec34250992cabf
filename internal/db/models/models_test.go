package models_test

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/roamline/roamline-server/internal/db/models"
	"gorm.io/gorm"
)

func testDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "test.db")), &gorm.Config{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	err = db.AutoMigrate(
		&models.Route{},
		&models.Waypoint{},
		&models.MediaItem{},
		&models.User{},
		&models.GuestbookEntry{},
		&models.Playlist{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return db
}

func TestMaxStopNumberEmptyRoute(t *testing.T) {
	t.Parallel()
	db := testDB(t)

	max, err := models.MaxStopNumber(db, 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if max != 0 {
		t.Errorf("expected 0 for an empty route, got %d", max)
	}
}

func TestNextMediaPosition(t *testing.T) {
	t.Parallel()
	db := testDB(t)

	position, err := models.NextMediaPosition(db, 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if position != 1 {
		t.Errorf("expected 1 for an empty waypoint, got %d", position)
	}

	item := models.MediaItem{WaypointID: 1, Kind: models.MediaKindImage, UUID: "a", Position: 1}
	if err := db.Create(&item).Error; err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	position, err = models.NextMediaPosition(db, 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if position != 2 {
		t.Errorf("expected 2, got %d", position)
	}
}

func TestDeleteWaypointRemovesMedia(t *testing.T) {
	t.Parallel()
	db := testDB(t)

	waypoint := models.Waypoint{RouteID: 1, Address: "Devon Tower", StopNumber: 1}
	if err := db.Create(&waypoint).Error; err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	item := models.MediaItem{WaypointID: waypoint.ID, Kind: models.MediaKindImage, UUID: "a", Position: 1}
	if err := db.Create(&item).Error; err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if err := models.DeleteWaypoint(db, waypoint.ID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	_, err := models.FindWaypointByID(db, waypoint.ID)
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		t.Errorf("unexpected error: %v", err)
	}
	media, err := models.FindMediaByWaypointID(db, waypoint.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(media) != 0 {
		t.Errorf("expected orphaned media removed, got %d items", len(media))
	}
}

func TestFindActivePlaylist(t *testing.T) {
	t.Parallel()
	db := testDB(t)

	_, ok, err := models.FindActivePlaylist(db)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ok {
		t.Error("expected no active playlist")
	}

	first := models.Playlist{Title: "Mix", EmbedURL: "https://example.com/a", Active: true}
	second := models.Playlist{Title: "Other", EmbedURL: "https://example.com/b"}
	if err := db.Create(&first).Error; err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := db.Create(&second).Error; err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if err := models.ActivatePlaylist(db, second.ID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	active, ok, err := models.FindActivePlaylist(db)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !ok || active.ID != second.ID {
		t.Errorf("expected playlist %d active, got %d", second.ID, active.ID)
	}
	var count int64
	err = db.Model(&models.Playlist{}).Where("active = ?", true).Count(&count).Error
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if count != 1 {
		t.Errorf("expected exactly one active playlist, got %d", count)
	}
}

func TestCountUsers(t *testing.T) {
	t.Parallel()
	db := testDB(t)

	count, err := models.CountUsers(db)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if count != 0 {
		t.Errorf("expected 0 users, got %d", count)
	}

	user := models.User{Email: "admin@example.com", PasswordHash: "x", Admin: true}
	if err := db.Create(&user).Error; err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	found, err := models.FindUserByEmail(db, "admin@example.com")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !found.Admin {
		t.Error("expected admin user")
	}
}
