package models

import (
	"time"

	"gorm.io/gorm"
)

type User struct {
	ID           uint           `json:"id" gorm:"primaryKey" binding:"required"`
	Email        string         `json:"email" binding:"required" gorm:"uniqueIndex"`
	PasswordHash string         `json:"-"`
	Admin        bool           `json:"admin" gorm:"default:false"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"-"`
	DeletedAt    gorm.DeletedAt `json:"-" gorm:"index"`
}

func (u User) TableName() string {
	return "users"
}

func FindUserByEmail(db *gorm.DB, email string) (User, error) {
	var user User
	err := db.First(&user, "email = ?", email).Error
	return user, err
}

func FindUserByID(db *gorm.DB, id uint) (User, error) {
	var user User
	err := db.First(&user, id).Error
	return user, err
}

func CountUsers(db *gorm.DB) (int, error) {
	var count int64
	err := db.Model(&User{}).Count(&count).Error
	return int(count), err
}
