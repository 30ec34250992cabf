package models

import (
	"time"

	"gorm.io/gorm"
)

// Route is a named, ordered collection of waypoints. The site serves at
// least two of these and switches between them at runtime.
type Route struct {
	ID          uint           `json:"id" gorm:"primaryKey" binding:"required"`
	Name        string         `json:"name" binding:"required" gorm:"uniqueIndex"`
	Description string         `json:"description"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"-"`
	DeletedAt   gorm.DeletedAt `json:"-" gorm:"index"`
}

func (r Route) TableName() string {
	return "routes"
}

func FindRouteByName(db *gorm.DB, name string) (Route, error) {
	var route Route
	err := db.Where(&Route{Name: name}).First(&route).Error
	return route, err
}

func RouteNameExists(db *gorm.DB, name string) (bool, error) {
	var count int64
	err := db.Model(&Route{}).Where(&Route{Name: name}).Limit(1).Count(&count).Error
	return count > 0, err
}

func ListRoutes(db *gorm.DB) ([]Route, error) {
	var routes []Route
	err := db.Order("name asc").Find(&routes).Error
	return routes, err
}
