package trips

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/mattn/go-nulltype"
	"github.com/roamline/roamline-server/internal/config"
	"github.com/roamline/roamline-server/internal/db/models"
	"github.com/roamline/roamline-server/internal/events"
	"github.com/roamline/roamline-server/internal/maps"
	"gorm.io/gorm"
)

var (
	ErrAddressRequired       = errors.New("address is required")
	ErrOutsideAllowedCountry = errors.New("address is outside the allowed country")
	ErrWaypointNotFound      = errors.New("waypoint not found")
	ErrInvalidStopNumber     = errors.New("stop number is out of range")
)

// Geocoder resolves addresses both ways. Satisfied by maps.Client.
type Geocoder interface {
	Geocode(ctx context.Context, address string) (maps.Location, error)
	ReverseGeocode(ctx context.Context, latitude, longitude float64) (maps.Location, error)
}

// Service owns waypoint mutations. Every write runs in a transaction and
// announces itself on the bus afterwards, so list readers re-query.
type Service struct {
	db       *gorm.DB
	cfg      *config.Config
	geocoder Geocoder
	bus      *events.Bus
}

func NewService(db *gorm.DB, cfg *config.Config, geocoder Geocoder, bus *events.Bus) *Service {
	return &Service{
		db:       db,
		cfg:      cfg,
		geocoder: geocoder,
		bus:      bus,
	}
}

func (s *Service) checkCountry(loc maps.Location) error {
	allowed := s.cfg.Trip.AllowedCountry
	if allowed == "" {
		return nil
	}
	if !strings.EqualFold(loc.Country, allowed) {
		return ErrOutsideAllowedCountry
	}
	return nil
}

// insert places a new waypoint just before the current destination. The new
// stop takes the destination's number and the destination moves up one, so
// the trip still ends where it did. With fewer than two waypoints there is
// nothing to preserve and the stop appends.
func (s *Service) insert(routeID uint, address string, loc maps.Location) (models.Waypoint, error) {
	waypoint := models.Waypoint{
		RouteID:   routeID,
		Address:   address,
		Latitude:  loc.Latitude,
		Longitude: loc.Longitude,
	}

	err := s.db.Transaction(func(tx *gorm.DB) error {
		count, err := models.CountWaypointsByRouteID(tx, routeID)
		if err != nil {
			return err
		}
		if count < 2 {
			maxStop, err := models.MaxStopNumber(tx, routeID)
			if err != nil {
				return err
			}
			waypoint.StopNumber = maxStop + 1
			return tx.Create(&waypoint).Error
		}

		var destination models.Waypoint
		err = tx.Order("stop_number desc").
			Where("route_id = ?", routeID).
			First(&destination).Error
		if err != nil {
			return err
		}

		waypoint.StopNumber = destination.StopNumber
		err = tx.Model(&models.Waypoint{}).
			Where("id = ?", destination.ID).
			Update("stop_number", destination.StopNumber+1).Error
		if err != nil {
			return err
		}
		return tx.Create(&waypoint).Error
	})
	if err != nil {
		return models.Waypoint{}, fmt.Errorf("failed to add waypoint: %w", err)
	}

	s.bus.Publish(events.Change{
		Kind:       events.ChangeKindWaypointAdded,
		RouteID:    routeID,
		WaypointID: waypoint.ID,
	})
	return waypoint, nil
}

// AddByAddress geocodes a typed address and adds it to the route.
func (s *Service) AddByAddress(ctx context.Context, routeID uint, address string) (models.Waypoint, error) {
	address = strings.TrimSpace(address)
	if address == "" {
		return models.Waypoint{}, ErrAddressRequired
	}

	loc, err := s.geocoder.Geocode(ctx, address)
	if err != nil {
		return models.Waypoint{}, fmt.Errorf("failed to geocode address: %w", err)
	}
	if err := s.checkCountry(loc); err != nil {
		return models.Waypoint{}, err
	}

	return s.insert(routeID, loc.Address, loc)
}

// AddByCurrentLocation reverse geocodes device coordinates and adds the
// resulting address to the route.
func (s *Service) AddByCurrentLocation(ctx context.Context, routeID uint, latitude, longitude float64) (models.Waypoint, error) {
	loc, err := s.geocoder.ReverseGeocode(ctx, latitude, longitude)
	if err != nil {
		return models.Waypoint{}, fmt.Errorf("failed to reverse geocode location: %w", err)
	}
	if err := s.checkCountry(loc); err != nil {
		return models.Waypoint{}, err
	}
	// Keep the device's exact position rather than the geocoder's snap
	loc.Latitude = latitude
	loc.Longitude = longitude

	return s.insert(routeID, loc.Address, loc)
}

// Reorder moves a waypoint to a 1-based position and renumbers the route
// contiguously.
func (s *Service) Reorder(routeID uint, waypointID uint, position int) error {
	err := s.db.Transaction(func(tx *gorm.DB) error {
		waypoints, err := models.FindWaypointsByRouteID(tx, routeID)
		if err != nil {
			return err
		}
		if position < 1 || position > len(waypoints) {
			return ErrInvalidStopNumber
		}

		fromIndex := -1
		for i, waypoint := range waypoints {
			if waypoint.ID == waypointID {
				fromIndex = i
				break
			}
		}
		if fromIndex == -1 {
			return ErrWaypointNotFound
		}

		moved := waypoints[fromIndex]
		waypoints = append(waypoints[:fromIndex], waypoints[fromIndex+1:]...)
		toIndex := position - 1
		waypoints = append(waypoints[:toIndex], append([]models.Waypoint{moved}, waypoints[toIndex:]...)...)

		for i, waypoint := range waypoints {
			if waypoint.StopNumber == i+1 {
				continue
			}
			err := tx.Model(&models.Waypoint{}).
				Where("id = ?", waypoint.ID).
				Update("stop_number", i+1).Error
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.bus.Publish(events.Change{
		Kind:       events.ChangeKindWaypointUpdated,
		RouteID:    routeID,
		WaypointID: waypointID,
	})
	return nil
}

// Delete removes a waypoint and its media, then closes the numbering gap.
func (s *Service) Delete(routeID uint, waypointID uint) error {
	err := s.db.Transaction(func(tx *gorm.DB) error {
		waypoint, err := models.FindWaypointByID(tx, waypointID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrWaypointNotFound
			}
			return err
		}
		if waypoint.RouteID != routeID {
			return ErrWaypointNotFound
		}

		if err := models.DeleteWaypoint(tx, waypointID); err != nil {
			return err
		}

		err = tx.Model(&models.Waypoint{}).
			Where("route_id = ? AND stop_number > ?", routeID, waypoint.StopNumber).
			Update("stop_number", gorm.Expr("stop_number - 1")).Error
		return err
	})
	if err != nil {
		return err
	}

	s.bus.Publish(events.Change{
		Kind:       events.ChangeKindWaypointDeleted,
		RouteID:    routeID,
		WaypointID: waypointID,
	})
	return nil
}

// UpdateLabel sets or clears a waypoint's display label.
func (s *Service) UpdateLabel(routeID uint, waypointID uint, label string) error {
	waypoint, err := models.FindWaypointByID(s.db, waypointID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrWaypointNotFound
		}
		return err
	}
	if waypoint.RouteID != routeID {
		return ErrWaypointNotFound
	}

	if label == "" {
		waypoint.Label = nulltype.NullString{}
	} else {
		waypoint.Label = nulltype.NullStringOf(label)
	}
	if err := s.db.Save(&waypoint).Error; err != nil {
		return err
	}

	s.bus.Publish(events.Change{
		Kind:       events.ChangeKindWaypointUpdated,
		RouteID:    routeID,
		WaypointID: waypointID,
	})
	return nil
}

// EnsureRoute finds a route by name, creating it on first use.
func (s *Service) EnsureRoute(name string) (models.Route, error) {
	route, err := models.FindRouteByName(s.db, name)
	if err == nil {
		return route, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return models.Route{}, err
	}

	route = models.Route{Name: name}
	if err := s.db.Create(&route).Error; err != nil {
		return models.Route{}, err
	}
	return route, nil
}
