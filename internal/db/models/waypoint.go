package models

import (
	"errors"
	"time"

	"github.com/mattn/go-nulltype"
	"gorm.io/gorm"
)

// Waypoint is one stop on a route. StopNumber is its rank in the route's
// total order: the lowest value is the origin, the highest the destination.
// Latitude/Longitude are a snapshot from creation time; rendering re-geocodes
// from Address.
type Waypoint struct {
	ID         uint                `json:"id" gorm:"primaryKey" binding:"required"`
	RouteID    uint                `json:"route_id" binding:"required" gorm:"index:idx_waypoints_route_stop"`
	Address    string              `json:"address" binding:"required"`
	Latitude   float64             `json:"latitude"`
	Longitude  float64             `json:"longitude"`
	StopNumber int                 `json:"stop_number" binding:"required" gorm:"index:idx_waypoints_route_stop"`
	Label      nulltype.NullString `json:"label,omitempty"`
	// Version guards read-modify-write updates to the media of this
	// waypoint. Bumped on every conditional write.
	Version   uint           `json:"-" gorm:"default:0"`
	Media     []MediaItem    `json:"media,omitempty" gorm:"foreignKey:WaypointID"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"-"`
	DeletedAt gorm.DeletedAt `json:"-" gorm:"index"`
}

func (w Waypoint) TableName() string {
	return "waypoints"
}

// FindWaypointsByRouteID returns the route's waypoints in stop order,
// origin first.
func FindWaypointsByRouteID(db *gorm.DB, routeID uint) ([]Waypoint, error) {
	var waypoints []Waypoint
	err := db.Order("stop_number asc").Where(&Waypoint{RouteID: routeID}).Find(&waypoints).Error
	return waypoints, err
}

func FindWaypointByID(db *gorm.DB, id uint) (Waypoint, error) {
	var waypoint Waypoint
	err := db.First(&waypoint, id).Error
	return waypoint, err
}

// MaxStopNumber returns the highest stop number on the route, or 0 when the
// route has no waypoints.
func MaxStopNumber(db *gorm.DB, routeID uint) (int, error) {
	var waypoint Waypoint
	err := db.Order("stop_number desc").Where(&Waypoint{RouteID: routeID}).First(&waypoint).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, nil
		}
		return 0, err
	}
	return waypoint.StopNumber, nil
}

func CountWaypointsByRouteID(db *gorm.DB, routeID uint) (int64, error) {
	var count int64
	err := db.Model(&Waypoint{}).Where(&Waypoint{RouteID: routeID}).Count(&count).Error
	return count, err
}

func DeleteWaypoint(db *gorm.DB, id uint) error {
	return db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where(&MediaItem{WaypointID: id}).Delete(&MediaItem{}).Error; err != nil {
			return err
		}
		return tx.Delete(&Waypoint{}, id).Error
	})
}
