package media_test

import (
	"bytes"
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/roamline/roamline-server/internal/config"
	"github.com/roamline/roamline-server/internal/db/models"
	"github.com/roamline/roamline-server/internal/events"
	"github.com/roamline/roamline-server/internal/media"
	"github.com/roamline/roamline-server/internal/metrics"
	"github.com/roamline/roamline-server/internal/storage"
	"gorm.io/gorm"
)

// Prometheus collectors register globally, so the package shares one set.
var testMetrics = metrics.NewMetrics()

type memFile struct {
	*bytes.Buffer
}

func (memFile) Close() error {
	return nil
}

type memStorage struct {
	mu    sync.Mutex
	files map[string]*bytes.Buffer
}

func newMemStorage() *memStorage {
	return &memStorage{files: make(map[string]*bytes.Buffer)}
}

func (m *memStorage) Open(name string) (storage.File, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	buf, ok := m.files[name]
	if !ok {
		return nil, fs.ErrNotExist
	}
	return memFile{bytes.NewBuffer(buf.Bytes())}, nil
}

func (m *memStorage) Create(name string) (storage.File, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	buf := &bytes.Buffer{}
	m.files[name] = buf
	return memFile{buf}, nil
}

func (m *memStorage) Mkdir(_ string, _ fs.FileMode) error {
	return nil
}

func (m *memStorage) MkdirAll(_ string, _ fs.FileMode) error {
	return nil
}

func (m *memStorage) Remove(name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.files[name]; !ok {
		return fs.ErrNotExist
	}
	delete(m.files, name)
	return nil
}

func (m *memStorage) Sub(_ string) (storage.Storage, error) {
	return m, nil
}

func (m *memStorage) Close() error {
	return nil
}

func (m *memStorage) has(name string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.files[name]
	return ok
}

func testDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "test.db")), &gorm.Config{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	err = db.AutoMigrate(&models.Route{}, &models.Waypoint{}, &models.MediaItem{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return db
}

func testService(t *testing.T, moderation bool) (*media.Service, *gorm.DB, *memStorage, models.Waypoint) {
	t.Helper()
	db := testDB(t)
	route := models.Route{Name: "main"}
	if err := db.Create(&route).Error; err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	waypoint := models.Waypoint{RouteID: route.ID, Address: "Devon Tower", StopNumber: 1}
	if err := db.Create(&waypoint).Error; err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	cfg := &config.Config{}
	cfg.Persistence.Uploads.PublicURL = "http://localhost:8080/media"
	cfg.Moderation.Enabled = moderation
	store := newMemStorage()
	service := media.NewService(db, cfg, store, events.NewBus(nil), testMetrics)
	return service, db, store, waypoint
}

func TestKindForFilename(t *testing.T) {
	t.Parallel()
	if got, ok := media.KindForFilename("IMG_1024.JPG"); !ok || got != models.MediaKindImage {
		t.Errorf("unexpected kind: %s", got)
	}
	if got, ok := media.KindForFilename("clip.MOV"); !ok || got != models.MediaKindVideo {
		t.Errorf("unexpected kind: %s", got)
	}
	if got, ok := media.KindForFilename("clip.webm"); !ok || got != models.MediaKindVideo {
		t.Errorf("unexpected kind: %s", got)
	}
	if _, ok := media.KindForFilename("noextension"); ok {
		t.Error("expected an unsupported kind")
	}
	if _, ok := media.KindForFilename("journal.pdf"); ok {
		t.Error("expected an unsupported kind")
	}
}

func TestUpload(t *testing.T) {
	t.Parallel()
	service, _, store, waypoint := testService(t, false)

	item, err := service.Upload(waypoint.ID, "sunset.jpg", "Sunset over the plains", strings.NewReader("jpegdata"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if item.Kind != models.MediaKindImage {
		t.Errorf("unexpected kind: %s", item.Kind)
	}
	if !item.Approved {
		t.Error("expected auto approval with moderation off")
	}
	if item.Position != 1 {
		t.Errorf("unexpected position: %d", item.Position)
	}
	if !strings.HasPrefix(item.URL, "http://localhost:8080/media/") {
		t.Errorf("unexpected URL: %s", item.URL)
	}
	key := strings.TrimPrefix(item.URL, "http://localhost:8080/media/")
	if !store.has(key) {
		t.Errorf("expected blob at %s", key)
	}

	second, err := service.Upload(waypoint.ID, "clip.mp4", "", strings.NewReader("moovdata"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if second.Kind != models.MediaKindVideo {
		t.Errorf("unexpected kind: %s", second.Kind)
	}
	if second.Position != 2 {
		t.Errorf("unexpected position: %d", second.Position)
	}

	_, err = service.Upload(9999, "sunset.jpg", "", strings.NewReader("jpegdata"))
	if !errors.Is(err, media.ErrWaypointNotFound) {
		t.Errorf("unexpected error: %v", err)
	}
	_, err = service.Upload(waypoint.ID, "journal.pdf", "", strings.NewReader("pdfdata"))
	if !errors.Is(err, media.ErrUnsupportedKind) {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestUploadOnFilesystemStorage(t *testing.T) {
	t.Parallel()
	db := testDB(t)
	route := models.Route{Name: "main"}
	if err := db.Create(&route).Error; err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	waypoint := models.Waypoint{RouteID: route.ID, Address: "Devon Tower", StopNumber: 1}
	if err := db.Create(&waypoint).Error; err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	dir := t.TempDir()
	cfg := &config.Config{}
	cfg.Persistence.Uploads.Driver = config.UploadsDriverFilesystem
	cfg.Persistence.Uploads.FilesystemOptions.Directory = dir
	cfg.Persistence.Uploads.PublicURL = "http://localhost:8080/media"

	store, err := storage.NewStorage(context.Background(), cfg)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer store.Close()

	service := media.NewService(db, cfg, store, events.NewBus(nil), testMetrics)
	item, err := service.Upload(waypoint.ID, "sunset.jpg", "", strings.NewReader("jpegdata"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// The blob lands in a per-waypoint directory on disk
	key := strings.TrimPrefix(item.URL, "http://localhost:8080/media/")
	data, err := os.ReadFile(filepath.Join(dir, key))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(data) != "jpegdata" {
		t.Errorf("unexpected blob contents: %q", data)
	}

	if err := service.Delete(item.ID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, key)); !errors.Is(err, fs.ErrNotExist) {
		t.Errorf("expected blob removed, got %v", err)
	}
}

type brokenReader struct{}

func (brokenReader) Read([]byte) (int, error) {
	return 0, errors.New("stream interrupted")
}

func TestUploadFailureLeavesNoBlob(t *testing.T) {
	t.Parallel()
	service, _, store, waypoint := testService(t, false)

	_, err := service.Upload(waypoint.ID, "sunset.jpg", "", brokenReader{})
	if err == nil {
		t.Fatal("expected an error")
	}
	store.mu.Lock()
	defer store.mu.Unlock()
	if len(store.files) != 0 {
		t.Errorf("expected no blob after a failed upload, got %d", len(store.files))
	}
}

func TestModerationGate(t *testing.T) {
	t.Parallel()
	service, _, _, waypoint := testService(t, true)

	item, err := service.Upload(waypoint.ID, "sunset.jpg", "", strings.NewReader("jpegdata"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if item.Approved {
		t.Error("expected pending approval with moderation on")
	}

	guestView, err := service.ListForWaypoint(waypoint.ID, false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(guestView) != 0 {
		t.Errorf("expected hidden pending media, got %d items", len(guestView))
	}
	reviewerView, err := service.ListForWaypoint(waypoint.ID, true)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(reviewerView) != 1 {
		t.Errorf("expected 1 item for reviewer, got %d", len(reviewerView))
	}

	pending, err := service.ListPending()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(pending) != 1 {
		t.Fatalf("expected 1 pending item, got %d", len(pending))
	}

	approved, err := service.Approve(pending[0].ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !approved.Approved {
		t.Error("expected approved item")
	}
	guestView, err = service.ListForWaypoint(waypoint.ID, false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(guestView) != 1 {
		t.Errorf("expected 1 item after approval, got %d", len(guestView))
	}
}

func TestReject(t *testing.T) {
	t.Parallel()
	service, _, store, waypoint := testService(t, true)

	item, err := service.Upload(waypoint.ID, "sunset.jpg", "", strings.NewReader("jpegdata"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	key := strings.TrimPrefix(item.URL, "http://localhost:8080/media/")

	if err := service.Reject(item.ID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if store.has(key) {
		t.Error("expected blob removed on reject")
	}
	pending, err := service.ListPending()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(pending) != 0 {
		t.Errorf("expected empty queue, got %d items", len(pending))
	}

	if err := service.Delete(item.ID); !errors.Is(err, media.ErrMediaNotFound) {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestUpdateCaption(t *testing.T) {
	t.Parallel()
	service, db, _, waypoint := testService(t, false)

	item, err := service.Upload(waypoint.ID, "sunset.jpg", "old", strings.NewReader("jpegdata"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	updated, err := service.UpdateCaption(waypoint.ID, item.ID, "new caption")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if updated.Title != "new caption" {
		t.Errorf("unexpected title: %s", updated.Title)
	}

	// Each successful caption write bumps the waypoint version
	after, err := models.FindWaypointByID(db, waypoint.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if after.Version != waypoint.Version+1 {
		t.Errorf("expected version %d, got %d", waypoint.Version+1, after.Version)
	}

	_, err = service.UpdateCaption(waypoint.ID, 9999, "x")
	if !errors.Is(err, media.ErrMediaNotFound) {
		t.Errorf("unexpected error: %v", err)
	}
	_, err = service.UpdateCaption(9999, item.ID, "x")
	if !errors.Is(err, media.ErrWaypointNotFound) {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestUpdateCaptionRetriesOnStaleVersion(t *testing.T) {
	t.Parallel()
	service, db, _, waypoint := testService(t, false)

	item, err := service.Upload(waypoint.ID, "sunset.jpg", "old", strings.NewReader("jpegdata"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Bump the version behind the service's back; the write must still land
	// against the fresh state.
	err = db.Model(&models.Waypoint{}).Where("id = ?", waypoint.ID).
		Update("version", gorm.Expr("version + 1")).Error
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	updated, err := service.UpdateCaption(waypoint.ID, item.ID, "new caption")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if updated.Title != "new caption" {
		t.Errorf("unexpected title: %s", updated.Title)
	}
}

func TestDeleteSkipsExternalBlobs(t *testing.T) {
	t.Parallel()
	service, db, store, waypoint := testService(t, false)

	item := models.MediaItem{
		WaypointID: waypoint.ID,
		Kind:       models.MediaKindVideo,
		URL:        "https://videos.example.com/tour.mp4",
		UUID:       "external",
		Approved:   true,
		Position:   1,
	}
	if err := db.Create(&item).Error; err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if err := service.Delete(item.ID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(store.files) != 0 {
		t.Errorf("expected no blob access for external URL")
	}
}
