package guestbook_test

import (
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/glebarez/sqlite"
	"github.com/roamline/roamline-server/internal/config"
	"github.com/roamline/roamline-server/internal/db/models"
	"github.com/roamline/roamline-server/internal/guestbook"
	"gorm.io/gorm"
)

func testService(t *testing.T, blocked ...string) *guestbook.Service {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "test.db")), &gorm.Config{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := db.AutoMigrate(&models.GuestbookEntry{}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	cfg := &config.Config{}
	cfg.Guestbook.BlockedWords = blocked
	return guestbook.NewService(db, cfg)
}

func TestSign(t *testing.T) {
	t.Parallel()
	service := testService(t)

	entry, err := service.Sign("  Jamie  ", "Loved following along!")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if entry.Name != "Jamie" {
		t.Errorf("unexpected name: %s", entry.Name)
	}

	_, err = service.Sign("", "hello")
	if !errors.Is(err, guestbook.ErrNameRequired) {
		t.Errorf("unexpected error: %v", err)
	}
	_, err = service.Sign("Jamie", "   ")
	if !errors.Is(err, guestbook.ErrMessageRequired) {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestSignTruncatesLongMessages(t *testing.T) {
	t.Parallel()
	service := testService(t)

	entry, err := service.Sign("Jamie", strings.Repeat("a", 5000))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(entry.Message) != 2000 {
		t.Errorf("unexpected message length: %d", len(entry.Message))
	}
}

func TestSignTruncatesOnRuneBoundary(t *testing.T) {
	t.Parallel()
	service := testService(t)

	// Multi-byte runes straddling the cutoff must not be split
	entry, err := service.Sign("Jamie", strings.Repeat("aé", 700))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(entry.Message) > 2000 {
		t.Errorf("unexpected message length: %d", len(entry.Message))
	}
	if !utf8.ValidString(entry.Message) {
		t.Error("expected valid UTF-8 after truncation")
	}
}

func TestBlockedWords(t *testing.T) {
	t.Parallel()
	service := testService(t, "Vandal")

	_, err := service.Sign("Jamie", "what the fuck is this")
	if !errors.Is(err, guestbook.ErrBlockedWord) {
		t.Errorf("unexpected error: %v", err)
	}
	// Configured words match case insensitively, in the name too
	_, err = service.Sign("vAnDaL", "hello")
	if !errors.Is(err, guestbook.ErrBlockedWord) {
		t.Errorf("unexpected error: %v", err)
	}
	_, err = service.Sign("Jamie", "a perfectly nice note")
	if err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestListNewestFirst(t *testing.T) {
	t.Parallel()
	service := testService(t)

	for _, message := range []string{"first", "second", "third"} {
		if _, err := service.Sign("Jamie", message); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	entries, err := service.List()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(entries) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(entries))
	}
}

func TestDelete(t *testing.T) {
	t.Parallel()
	service := testService(t)

	entry, err := service.Sign("Jamie", "delete me")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := service.Delete(entry.ID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := service.Delete(entry.ID); !errors.Is(err, guestbook.ErrEntryNotFound) {
		t.Errorf("unexpected error: %v", err)
	}
}
