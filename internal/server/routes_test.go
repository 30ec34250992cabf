package server

import (
	"bytes"
	"context"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/glebarez/sqlite"
	"github.com/roamline/roamline-server/internal/config"
	"github.com/roamline/roamline-server/internal/db/models"
	"github.com/roamline/roamline-server/internal/events"
	"github.com/roamline/roamline-server/internal/media"
	"github.com/roamline/roamline-server/internal/metrics"
	"github.com/roamline/roamline-server/internal/storage"
	"github.com/roamline/roamline-server/internal/utils"
	"gorm.io/gorm"
)

// Prometheus collectors register globally, so the package shares one set.
var testMetrics = metrics.NewMetrics()

const testJWTSecret = "test-secret"

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	os.Exit(m.Run())
}

func testRouter(t *testing.T) (*gin.Engine, *gorm.DB, models.Waypoint) {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "test.db")), &gorm.Config{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	err = db.AutoMigrate(&models.User{}, &models.Route{}, &models.Waypoint{}, &models.MediaItem{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	route := models.Route{Name: "main"}
	if err := db.Create(&route).Error; err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	waypoint := models.Waypoint{RouteID: route.ID, Address: "Devon Tower", StopNumber: 1}
	if err := db.Create(&waypoint).Error; err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	cfg := &config.Config{}
	cfg.JWT.Secret = testJWTSecret
	cfg.Persistence.Uploads.Driver = config.UploadsDriverFilesystem
	cfg.Persistence.Uploads.FilesystemOptions.Directory = t.TempDir()
	cfg.Persistence.Uploads.PublicURL = "http://localhost:8080/media"

	store, err := storage.NewStorage(context.Background(), cfg)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	t.Cleanup(func() {
		store.Close()
	})

	services := &Services{
		Media:   media.NewService(db, cfg, store, events.NewBus(nil), testMetrics),
		Storage: store,
		Metrics: testMetrics,
	}

	r := gin.New()
	r.Use(dbMiddleware(db))
	r.Use(configMiddleware(cfg))
	r.Use(servicesMiddleware(services))
	v1(r.Group("/v1"), cfg, NewJWTAuthorizer(testJWTSecret))
	return r, db, waypoint
}

func tokenFor(t *testing.T, db *gorm.DB, email string, admin bool) string {
	t.Helper()
	user := models.User{Email: email, Admin: admin}
	if err := db.Create(&user).Error; err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	token, err := utils.GenerateJWT(testJWTSecret, user.ID, admin)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return token
}

func uploadRequest(t *testing.T, target string, token string) *http.Request {
	t.Helper()
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	part, err := writer.CreateFormFile("file", "sunset.jpg")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := part.Write([]byte("jpegdata")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, target, body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	if token != "" {
		req.Header.Set("Authorization", "JWT "+token)
	}
	return req
}

func mediaCount(t *testing.T, db *gorm.DB) int64 {
	t.Helper()
	var count int64
	if err := db.Model(&models.MediaItem{}).Count(&count).Error; err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return count
}

func TestMediaUploadRequiresAuth(t *testing.T) {
	t.Parallel()
	router, db, waypoint := testRouter(t)
	target := fmt.Sprintf("/v1/waypoints/%d/media", waypoint.ID)

	recorder := httptest.NewRecorder()
	router.ServeHTTP(recorder, uploadRequest(t, target, ""))
	if recorder.Code != http.StatusUnauthorized {
		t.Errorf("expected 401 without a token, got %d", recorder.Code)
	}

	recorder = httptest.NewRecorder()
	router.ServeHTTP(recorder, uploadRequest(t, target, "not-a-token"))
	if recorder.Code != http.StatusUnauthorized {
		t.Errorf("expected 401 with a garbage token, got %d", recorder.Code)
	}

	if count := mediaCount(t, db); count != 0 {
		t.Errorf("expected no media rows, got %d", count)
	}
}

func TestMediaUploadRequiresAdmin(t *testing.T) {
	t.Parallel()
	router, db, waypoint := testRouter(t)
	target := fmt.Sprintf("/v1/waypoints/%d/media", waypoint.ID)
	token := tokenFor(t, db, "guest@example.com", false)

	recorder := httptest.NewRecorder()
	router.ServeHTTP(recorder, uploadRequest(t, target, token))
	if recorder.Code != http.StatusForbidden {
		t.Errorf("expected 403 for a non-admin, got %d", recorder.Code)
	}
	if count := mediaCount(t, db); count != 0 {
		t.Errorf("expected no media rows, got %d", count)
	}
}

func TestMediaUploadAsAdmin(t *testing.T) {
	t.Parallel()
	router, db, waypoint := testRouter(t)
	target := fmt.Sprintf("/v1/waypoints/%d/media", waypoint.ID)
	token := tokenFor(t, db, "admin@example.com", true)

	recorder := httptest.NewRecorder()
	router.ServeHTTP(recorder, uploadRequest(t, target, token))
	if recorder.Code != http.StatusCreated {
		t.Fatalf("expected 201 for an admin, got %d: %s", recorder.Code, recorder.Body.String())
	}
	if count := mediaCount(t, db); count != 1 {
		t.Errorf("expected 1 media row, got %d", count)
	}
}
