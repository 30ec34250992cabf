package media

import (
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/roamline/roamline-server/internal/config"
	"github.com/roamline/roamline-server/internal/db/models"
	"github.com/roamline/roamline-server/internal/events"
	"github.com/roamline/roamline-server/internal/metrics"
	"github.com/roamline/roamline-server/internal/storage"
	"gorm.io/gorm"
)

var (
	ErrMediaNotFound    = errors.New("media not found")
	ErrWaypointNotFound = errors.New("waypoint not found")
	ErrUnsupportedKind  = errors.New("media must be an image or a video")
	ErrConflict         = errors.New("media changed concurrently, retry")
)

var videoExtensions = map[string]bool{
	".mp4":  true,
	".mov":  true,
	".webm": true,
	".m4v":  true,
}

var imageExtensions = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".gif":  true,
	".webp": true,
	".heic": true,
	".avif": true,
}

// KindForFilename classifies an upload by extension.
func KindForFilename(filename string) (models.MediaKind, bool) {
	ext := strings.ToLower(filepath.Ext(filename))
	if videoExtensions[ext] {
		return models.MediaKindVideo, true
	}
	if imageExtensions[ext] {
		return models.MediaKindImage, true
	}
	return "", false
}

// Service owns waypoint media: blob storage, the rows that reference the
// blobs, and the approval queue.
type Service struct {
	db      *gorm.DB
	cfg     *config.Config
	storage storage.Storage
	bus     *events.Bus
	metrics *metrics.Metrics
}

func NewService(db *gorm.DB, cfg *config.Config, store storage.Storage, bus *events.Bus, metrics *metrics.Metrics) *Service {
	return &Service{
		db:      db,
		cfg:     cfg,
		storage: store,
		bus:     bus,
		metrics: metrics,
	}
}

// ListForWaypoint returns a waypoint's media in display order. With
// moderation on, guests only see approved items.
func (s *Service) ListForWaypoint(waypointID uint, reviewer bool) ([]models.MediaItem, error) {
	if s.cfg.Moderation.Enabled && !reviewer {
		return models.FindApprovedMediaByWaypointID(s.db, waypointID)
	}
	return models.FindMediaByWaypointID(s.db, waypointID)
}

// Upload stores the blob, then inserts the row in one transaction so the
// item appears in the list exactly once or not at all.
func (s *Service) Upload(waypointID uint, filename string, title string, reader io.Reader) (models.MediaItem, error) {
	waypoint, err := models.FindWaypointByID(s.db, waypointID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.MediaItem{}, ErrWaypointNotFound
		}
		return models.MediaItem{}, err
	}

	kind, ok := KindForFilename(filename)
	if !ok {
		return models.MediaItem{}, ErrUnsupportedKind
	}
	id := uuid.New().String()
	dir := fmt.Sprint(waypointID)
	key := fmt.Sprintf("%s/%s%s", dir, id, strings.ToLower(filepath.Ext(filename)))

	if err := s.storage.MkdirAll(dir, 0755); err != nil {
		return models.MediaItem{}, fmt.Errorf("failed to create media directory: %w", err)
	}
	file, err := s.storage.Create(key)
	if err != nil {
		return models.MediaItem{}, fmt.Errorf("failed to create media file: %w", err)
	}
	if _, err := io.Copy(file, reader); err != nil {
		file.Close()
		return models.MediaItem{}, errors.Join(fmt.Errorf("failed to write media file: %w", err), s.removeBlob(key))
	}
	if err := file.Close(); err != nil {
		return models.MediaItem{}, errors.Join(fmt.Errorf("failed to finish media file: %w", err), s.removeBlob(key))
	}

	item := models.MediaItem{
		WaypointID: waypointID,
		Kind:       kind,
		URL:        strings.TrimSuffix(s.cfg.Persistence.Uploads.PublicURL, "/") + "/" + key,
		Title:      title,
		UUID:       id,
		Approved:   !s.cfg.Moderation.Enabled,
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		position, err := models.NextMediaPosition(tx, waypointID)
		if err != nil {
			return err
		}
		item.Position = position
		return tx.Create(&item).Error
	})
	if err != nil {
		return models.MediaItem{}, errors.Join(fmt.Errorf("failed to record media: %w", err), s.removeBlob(key))
	}

	s.metrics.IncrementMediaUploads(string(kind))
	s.bus.Publish(events.Change{
		Kind:       events.ChangeKindMediaChanged,
		RouteID:    waypoint.RouteID,
		WaypointID: waypointID,
	})
	return item, nil
}

// UpdateCaption sets a media item's title. The owning waypoint's version
// gates the write; a concurrent media change bumps it and forces one retry
// against fresh state.
func (s *Service) UpdateCaption(waypointID uint, mediaID uint, title string) (models.MediaItem, error) {
	var item models.MediaItem
	for attempt := 0; attempt < 2; attempt++ {
		waypoint, err := models.FindWaypointByID(s.db, waypointID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return models.MediaItem{}, ErrWaypointNotFound
			}
			return models.MediaItem{}, err
		}

		var conflicted bool
		err = s.db.Transaction(func(tx *gorm.DB) error {
			res := tx.Model(&models.Waypoint{}).
				Where("id = ? AND version = ?", waypointID, waypoint.Version).
				Update("version", waypoint.Version+1)
			if res.Error != nil {
				return res.Error
			}
			if res.RowsAffected == 0 {
				conflicted = true
				return nil
			}

			item, err = models.FindMediaItemByID(tx, mediaID)
			if err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return ErrMediaNotFound
				}
				return err
			}
			if item.WaypointID != waypointID {
				return ErrMediaNotFound
			}
			item.Title = title
			return tx.Save(&item).Error
		})
		if err != nil {
			return models.MediaItem{}, err
		}
		if conflicted {
			continue
		}

		s.bus.Publish(events.Change{
			Kind:       events.ChangeKindMediaChanged,
			RouteID:    waypoint.RouteID,
			WaypointID: waypointID,
		})
		return item, nil
	}
	return models.MediaItem{}, ErrConflict
}

// ListPending returns the approval queue, oldest first.
func (s *Service) ListPending() ([]models.MediaItem, error) {
	return models.FindPendingMedia(s.db)
}

// Approve makes a pending item guest-visible.
func (s *Service) Approve(mediaID uint) (models.MediaItem, error) {
	item, err := models.FindMediaItemByID(s.db, mediaID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.MediaItem{}, ErrMediaNotFound
		}
		return models.MediaItem{}, err
	}

	item.Approved = true
	if err := s.db.Save(&item).Error; err != nil {
		return models.MediaItem{}, err
	}

	s.publishForItem(item)
	return item, nil
}

// Reject removes a pending item and its blob.
func (s *Service) Reject(mediaID uint) error {
	return s.Delete(mediaID)
}

// Delete removes a media item and its stored blob.
func (s *Service) Delete(mediaID uint) error {
	item, err := models.FindMediaItemByID(s.db, mediaID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrMediaNotFound
		}
		return err
	}

	if err := s.db.Delete(&models.MediaItem{}, mediaID).Error; err != nil {
		return err
	}

	key := s.keyForItem(item)
	if key != "" {
		if err := s.storage.Remove(key); err != nil {
			return fmt.Errorf("failed to remove media file: %w", err)
		}
	}

	s.publishForItem(item)
	return nil
}

// removeBlob cleans up after a failed upload so no orphan is left behind.
func (s *Service) removeBlob(key string) error {
	if err := s.storage.Remove(key); err != nil {
		return fmt.Errorf("failed to remove media file: %w", err)
	}
	return nil
}

func (s *Service) keyForItem(item models.MediaItem) string {
	base := strings.TrimSuffix(s.cfg.Persistence.Uploads.PublicURL, "/") + "/"
	if !strings.HasPrefix(item.URL, base) {
		// Externally hosted, nothing to remove
		return ""
	}
	return strings.TrimPrefix(item.URL, base)
}

func (s *Service) publishForItem(item models.MediaItem) {
	waypoint, err := models.FindWaypointByID(s.db, item.WaypointID)
	if err != nil {
		return
	}
	s.bus.Publish(events.Change{
		Kind:       events.ChangeKindMediaChanged,
		RouteID:    waypoint.RouteID,
		WaypointID: item.WaypointID,
	})
}
