package render

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"

	"github.com/puzpuzpuz/xsync/v3"
	"github.com/roamline/roamline-server/internal/db/models"
	"github.com/roamline/roamline-server/internal/maps"
	"github.com/roamline/roamline-server/internal/metrics"
	"github.com/roamline/roamline-server/internal/utils"
	"golang.org/x/sync/errgroup"
)

type MarkerRole string

const (
	MarkerRoleOrigin      MarkerRole = "origin"
	MarkerRoleStop        MarkerRole = "stop"
	MarkerRolePenultimate MarkerRole = "penultimate"
	MarkerRoleDestination MarkerRole = "destination"
)

// Marker is one pin on the rendered map.
type Marker struct {
	WaypointID uint       `json:"waypoint_id"`
	Address    string     `json:"address"`
	Latitude   float64    `json:"latitude"`
	Longitude  float64    `json:"longitude"`
	StopNumber int        `json:"stop_number"`
	Role       MarkerRole `json:"role"`
}

// State is the full output of one render cycle. Each cycle replaces the
// previous state wholesale, so a repeated render of the same list is a
// no-op for viewers.
type State struct {
	RouteID    uint                   `json:"route_id"`
	Generation uint64                 `json:"generation"`
	Markers    []Marker               `json:"markers"`
	Route      *maps.DirectionsResult `json:"route,omitempty"`
}

const geocodeConcurrency = 4

// MapsAPI is the slice of the Mapbox client a render cycle needs.
type MapsAPI interface {
	Geocode(ctx context.Context, address string) (maps.Location, error)
	Directions(ctx context.Context, coords []maps.Coordinate) (maps.DirectionsResult, error)
}

// Renderer turns a route's ordered waypoint list into markers and a routed
// polyline. A per-route generation counter discards results that were
// overtaken by a newer list while in flight.
type Renderer struct {
	maps        MapsAPI
	metrics     *metrics.Metrics
	generations *xsync.MapOf[uint, *atomic.Uint64]
	states      *xsync.MapOf[uint, *State]
}

func NewRenderer(mapsClient MapsAPI, metrics *metrics.Metrics) *Renderer {
	return &Renderer{
		maps:        mapsClient,
		metrics:     metrics,
		generations: xsync.NewMapOf[uint, *atomic.Uint64](),
		states:      xsync.NewMapOf[uint, *State](),
	}
}

func (r *Renderer) generation(routeID uint) *atomic.Uint64 {
	gen, _ := r.generations.LoadOrStore(routeID, &atomic.Uint64{})
	return gen
}

// State returns the last completed render for a route, if any.
func (r *Renderer) State(routeID uint) (*State, bool) {
	return r.states.Load(routeID)
}

func roleFor(index, count int) MarkerRole {
	switch {
	case index == 0:
		return MarkerRoleOrigin
	case index == count-1:
		return MarkerRoleDestination
	case index == count-2:
		return MarkerRolePenultimate
	default:
		return MarkerRoleStop
	}
}

// straightLineRoute estimates leg distances between consecutive markers
// when the directions provider is unavailable or omits per-leg totals.
func straightLineRoute(markers []Marker) *maps.DirectionsResult {
	result := &maps.DirectionsResult{}
	for i := 1; i < len(markers); i++ {
		distance := utils.Haversine(
			markers[i-1].Latitude, markers[i-1].Longitude,
			markers[i].Latitude, markers[i].Longitude)
		result.Legs = append(result.Legs, maps.Leg{DistanceMeters: distance})
		result.DistanceMeters += distance
	}
	return result
}

// Render produces a new state for the given waypoint list, already ordered
// by stop number. Geocoding failures drop the affected marker and leave the
// rest of the cycle intact. The returned state is nil when a newer render
// superseded this one.
func (r *Renderer) Render(ctx context.Context, routeID uint, waypoints []models.Waypoint) (*State, error) {
	gen := r.generation(routeID).Add(1)

	markers := make([]*Marker, len(waypoints))
	errGrp := errgroup.Group{}
	errGrp.SetLimit(geocodeConcurrency)
	for i, waypoint := range waypoints {
		errGrp.Go(func() error {
			marker := &Marker{
				WaypointID: waypoint.ID,
				Address:    waypoint.Address,
				Latitude:   waypoint.Latitude,
				Longitude:  waypoint.Longitude,
				StopNumber: waypoint.StopNumber,
			}
			if marker.Latitude == 0 && marker.Longitude == 0 {
				loc, err := r.maps.Geocode(ctx, waypoint.Address)
				if err != nil {
					r.metrics.IncrementGeocodeErrors("render")
					slog.Warn("Failed to geocode waypoint", "waypoint", waypoint.ID, "error", err)
					return nil
				}
				marker.Latitude = loc.Latitude
				marker.Longitude = loc.Longitude
			}
			markers[i] = marker
			return nil
		})
	}
	// Individual geocodes never fail the cycle
	_ = errGrp.Wait()

	resolved := make([]Marker, 0, len(markers))
	for _, marker := range markers {
		if marker != nil {
			resolved = append(resolved, *marker)
		}
	}
	for i := range resolved {
		resolved[i].Role = roleFor(i, len(resolved))
	}

	state := &State{
		RouteID:    routeID,
		Generation: gen,
		Markers:    resolved,
	}

	if len(resolved) >= 2 {
		coords := make([]maps.Coordinate, 0, len(resolved))
		for _, marker := range resolved {
			coords = append(coords, maps.Coordinate{
				Latitude:  marker.Latitude,
				Longitude: marker.Longitude,
			})
		}
		route, err := r.maps.Directions(ctx, coords)
		switch {
		case err != nil:
			// Markers still render without a polyline; straight-line
			// estimates keep the trip distances on screen
			slog.Warn("Failed to route waypoints", "route", routeID, "error", err)
			state.Route = straightLineRoute(resolved)
		case len(route.Legs) == 0:
			route.Legs = straightLineRoute(resolved).Legs
			state.Route = &route
		default:
			state.Route = &route
		}
	}

	// A newer list may have started rendering while this one was in
	// flight. Its result wins. The generation check happens inside
	// Compute so a stale cycle can never land after a newer store.
	var published bool
	r.states.Compute(routeID, func(old *State, loaded bool) (*State, bool) {
		if r.generation(routeID).Load() != gen {
			return old, !loaded
		}
		published = true
		return state, false
	})
	if !published {
		return nil, nil
	}

	r.metrics.IncrementRenderCycles(fmt.Sprint(routeID))
	return state, nil
}
