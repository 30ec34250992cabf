package playlists

import (
	"errors"
	"net/url"
	"strings"

	"github.com/roamline/roamline-server/internal/db/models"
	"gorm.io/gorm"
)

var (
	ErrTitleRequired    = errors.New("title is required")
	ErrEmbedURLInvalid  = errors.New("embed URL must be an https URL")
	ErrPlaylistNotFound = errors.New("playlist not found")
)

// Service manages the embeddable playlists shown alongside the trip.
type Service struct {
	db *gorm.DB
}

func NewService(db *gorm.DB) *Service {
	return &Service{db: db}
}

// Create registers a playlist. The first playlist becomes active
// automatically.
func (s *Service) Create(title string, embedURL string) (models.Playlist, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return models.Playlist{}, ErrTitleRequired
	}
	parsed, err := url.Parse(embedURL)
	if err != nil || parsed.Scheme != "https" || parsed.Host == "" {
		return models.Playlist{}, ErrEmbedURLInvalid
	}

	playlist := models.Playlist{
		Title:    title,
		EmbedURL: embedURL,
	}
	err = s.db.Transaction(func(tx *gorm.DB) error {
		_, active, err := models.FindActivePlaylist(tx)
		if err != nil {
			return err
		}
		playlist.Active = !active
		return tx.Create(&playlist).Error
	})
	if err != nil {
		return models.Playlist{}, err
	}
	return playlist, nil
}

// Active returns the playlist currently shown to viewers, if any.
func (s *Service) Active() (models.Playlist, bool, error) {
	return models.FindActivePlaylist(s.db)
}

// List returns all playlists, newest first.
func (s *Service) List() ([]models.Playlist, error) {
	return models.ListPlaylists(s.db)
}

// Activate switches the shown playlist.
func (s *Service) Activate(id uint) error {
	if _, err := models.FindPlaylistByID(s.db, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrPlaylistNotFound
		}
		return err
	}
	return models.ActivatePlaylist(s.db, id)
}

// Delete removes a playlist.
func (s *Service) Delete(id uint) error {
	if _, err := models.FindPlaylistByID(s.db, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrPlaylistNotFound
		}
		return err
	}
	return s.db.Delete(&models.Playlist{}, id).Error
}
