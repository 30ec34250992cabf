package models

import (
	"errors"
	"time"

	"gorm.io/gorm"
)

type MediaKind string

const (
	MediaKindImage MediaKind = "image"
	MediaKindVideo MediaKind = "video"
)

// MediaItem is one photo or video attached to a waypoint. Kind selects the
// rendering mode; exactly one of the two is ever meant. Likes and Comments
// are carried for the feed but not written by any current flow.
type MediaItem struct {
	ID         uint      `json:"id" gorm:"primaryKey" binding:"required"`
	WaypointID uint      `json:"waypoint_id" binding:"required" gorm:"index"`
	Kind       MediaKind `json:"kind" binding:"required"`
	URL        string    `json:"url" binding:"required"`
	Title      string    `json:"title"`
	UUID       string    `json:"uuid" gorm:"uniqueIndex"`
	Likes      uint      `json:"likes"`
	Comments   string    `json:"comments" gorm:"type:text"`
	Approved   bool      `json:"approved" gorm:"default:false"`
	// Position is the display order within the waypoint; appends take the
	// next value.
	Position  int            `json:"position" gorm:"index"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"-"`
	DeletedAt gorm.DeletedAt `json:"-" gorm:"index"`
}

func (m MediaItem) TableName() string {
	return "media_items"
}

// FindMediaByWaypointID returns all of a waypoint's media in display order.
func FindMediaByWaypointID(db *gorm.DB, waypointID uint) ([]MediaItem, error) {
	var media []MediaItem
	err := db.Order("position asc").Where(&MediaItem{WaypointID: waypointID}).Find(&media).Error
	return media, err
}

// FindApprovedMediaByWaypointID is the guest-facing view when moderation is
// enabled.
func FindApprovedMediaByWaypointID(db *gorm.DB, waypointID uint) ([]MediaItem, error) {
	var media []MediaItem
	err := db.Order("position asc").
		Where("waypoint_id = ? AND approved = ?", waypointID, true).
		Find(&media).Error
	return media, err
}

func FindMediaItemByID(db *gorm.DB, id uint) (MediaItem, error) {
	var item MediaItem
	err := db.First(&item, id).Error
	return item, err
}

// FindPendingMedia lists unapproved items for the review queue, oldest first.
func FindPendingMedia(db *gorm.DB) ([]MediaItem, error) {
	var media []MediaItem
	err := db.Order("created_at asc").Where("approved = ?", false).Find(&media).Error
	return media, err
}

// NextMediaPosition returns the position an appended item should take.
func NextMediaPosition(db *gorm.DB, waypointID uint) (int, error) {
	var item MediaItem
	err := db.Order("position desc").Where(&MediaItem{WaypointID: waypointID}).First(&item).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, nil
		}
		return 0, err
	}
	return item.Position + 1, nil
}
