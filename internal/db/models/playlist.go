package models

import (
	"errors"
	"time"

	"gorm.io/gorm"
)

// Playlist is an embeddable music playlist shown alongside the trip. At most
// one playlist is active at a time.
type Playlist struct {
	ID        uint           `json:"id" gorm:"primaryKey" binding:"required"`
	Title     string         `json:"title" binding:"required"`
	EmbedURL  string         `json:"embed_url" binding:"required"`
	Active    bool           `json:"active" gorm:"default:false"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"-"`
	DeletedAt gorm.DeletedAt `json:"-" gorm:"index"`
}

func (p Playlist) TableName() string {
	return "playlists"
}

func ListPlaylists(db *gorm.DB) ([]Playlist, error) {
	var playlists []Playlist
	err := db.Order("created_at desc").Find(&playlists).Error
	return playlists, err
}

func FindPlaylistByID(db *gorm.DB, id uint) (Playlist, error) {
	var playlist Playlist
	err := db.First(&playlist, id).Error
	return playlist, err
}

// FindActivePlaylist returns the currently active playlist, if any. The
// boolean is false when none is active.
func FindActivePlaylist(db *gorm.DB) (Playlist, bool, error) {
	var playlist Playlist
	err := db.First(&playlist, "active = ?", true).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return Playlist{}, false, nil
		}
		return Playlist{}, false, err
	}
	return playlist, true, nil
}

// ActivatePlaylist marks one playlist active and deactivates the rest in a
// single transaction.
func ActivatePlaylist(db *gorm.DB, id uint) error {
	return db.Transaction(func(tx *gorm.DB) error {
		err := tx.Model(&Playlist{}).Where("active = ?", true).Update("active", false).Error
		if err != nil {
			return err
		}
		return tx.Model(&Playlist{}).Where("id = ?", id).Update("active", true).Error
	})
}
