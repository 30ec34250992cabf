package models

import (
	"time"

	"gorm.io/gorm"
)

type GuestbookEntry struct {
	ID        uint           `json:"id" gorm:"primaryKey" binding:"required"`
	Name      string         `json:"name" binding:"required"`
	Message   string         `json:"message" binding:"required" gorm:"type:text"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"-"`
	DeletedAt gorm.DeletedAt `json:"-" gorm:"index"`
}

func (g GuestbookEntry) TableName() string {
	return "guestbook_entries"
}

// ListGuestbookEntries returns entries newest first.
func ListGuestbookEntries(db *gorm.DB) ([]GuestbookEntry, error) {
	var entries []GuestbookEntry
	err := db.Order("created_at desc").Find(&entries).Error
	return entries, err
}

func DeleteGuestbookEntry(db *gorm.DB, id uint) error {
	return db.Delete(&GuestbookEntry{}, id).Error
}
