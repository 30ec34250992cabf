package guestbook

import (
	"errors"
	"strings"
	"unicode/utf8"

	"github.com/roamline/roamline-server/internal/config"
	"github.com/roamline/roamline-server/internal/db/models"
	"gorm.io/gorm"
)

var (
	ErrNameRequired    = errors.New("name is required")
	ErrMessageRequired = errors.New("message is required")
	ErrBlockedWord     = errors.New("message contains blocked language")
	ErrEntryNotFound   = errors.New("entry not found")
)

const maxMessageLength = 2000

// Baseline screen; deployments extend it through configuration.
var builtinBlockedWords = []string{
	"fuck",
	"shit",
	"bitch",
	"asshole",
	"cunt",
	"dick",
}

// Service is the trip guestbook. Entries are screened against a blocked
// word list before they are stored.
type Service struct {
	db      *gorm.DB
	blocked []string
}

func NewService(db *gorm.DB, cfg *config.Config) *Service {
	blocked := make([]string, 0, len(builtinBlockedWords)+len(cfg.Guestbook.BlockedWords))
	blocked = append(blocked, builtinBlockedWords...)
	for _, word := range cfg.Guestbook.BlockedWords {
		blocked = append(blocked, strings.ToLower(word))
	}
	return &Service{
		db:      db,
		blocked: blocked,
	}
}

func (s *Service) screen(text string) bool {
	lowered := strings.ToLower(text)
	for _, word := range s.blocked {
		if strings.Contains(lowered, word) {
			return true
		}
	}
	return false
}

// Sign validates and stores one entry.
func (s *Service) Sign(name string, message string) (models.GuestbookEntry, error) {
	name = strings.TrimSpace(name)
	message = strings.TrimSpace(message)
	if name == "" {
		return models.GuestbookEntry{}, ErrNameRequired
	}
	if message == "" {
		return models.GuestbookEntry{}, ErrMessageRequired
	}
	if len(message) > maxMessageLength {
		// Back off to a rune boundary so the cut never splits a
		// multi-byte character
		cut := maxMessageLength
		for cut > 0 && !utf8.RuneStart(message[cut]) {
			cut--
		}
		message = strings.TrimSpace(message[:cut])
	}
	if s.screen(name) || s.screen(message) {
		return models.GuestbookEntry{}, ErrBlockedWord
	}

	entry := models.GuestbookEntry{
		Name:    name,
		Message: message,
	}
	if err := s.db.Create(&entry).Error; err != nil {
		return models.GuestbookEntry{}, err
	}
	return entry, nil
}

// List returns all entries, newest first.
func (s *Service) List() ([]models.GuestbookEntry, error) {
	return models.ListGuestbookEntries(s.db)
}

// Delete removes an entry. Reviewer-only.
func (s *Service) Delete(id uint) error {
	var entry models.GuestbookEntry
	if err := s.db.First(&entry, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrEntryNotFound
		}
		return err
	}
	return models.DeleteGuestbookEntry(s.db, id)
}
