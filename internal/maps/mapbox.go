package maps

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/roamline/roamline-server/internal/config"
	"github.com/roamline/roamline-server/internal/utils"
)

const mapboxAPIHost = "api.mapbox.com"
const schemeHTTPS = "https"

const geocodeCacheTTL = 24 * time.Hour

var ErrNoResults = fmt.Errorf("no results")

// Location is one geocoding result. Country is the ISO 3166-1 alpha-2 code
// when Mapbox reports one.
type Location struct {
	Address   string  `json:"address"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Country   string  `json:"country"`
}

// Leg is one segment of a directions response.
type Leg struct {
	DistanceMeters  float64 `json:"distance_meters"`
	DurationSeconds float64 `json:"duration_seconds"`
}

// DirectionsResult carries the routed polyline between an ordered set of
// coordinates, as GeoJSON geometry, plus per-leg totals.
type DirectionsResult struct {
	Geometry        json.RawMessage `json:"geometry"`
	Legs            []Leg           `json:"legs"`
	DistanceMeters  float64         `json:"distance_meters"`
	DurationSeconds float64         `json:"duration_seconds"`
}

type Coordinate struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// Client talks to the Mapbox geocoding and directions APIs. When a Redis
// client is provided, forward geocodes are cached by address.
type Client struct {
	secretToken string
	redis       *redis.Client
}

func NewClient(cfg *config.Config, redisClient *redis.Client) *Client {
	return &Client{
		secretToken: cfg.Mapbox.SecretToken,
		redis:       redisClient,
	}
}

type geocodeResponse struct {
	Features []struct {
		PlaceName string    `json:"place_name"`
		Center    []float64 `json:"center"`
		Context   []struct {
			ID        string `json:"id"`
			ShortCode string `json:"short_code"`
		} `json:"context"`
		ID        string `json:"id"`
		ShortCode string `json:"short_code,omitempty"`
	} `json:"features"`
}

func (c *Client) geocodeURL(query string, params url.Values) string {
	params.Set("access_token", c.secretToken)
	u := url.URL{
		Scheme:   schemeHTTPS,
		Host:     mapboxAPIHost,
		Path:     "/geocoding/v5/mapbox.places/" + url.PathEscape(query) + ".json",
		RawQuery: params.Encode(),
	}
	return u.String()
}

func (c *Client) fetchGeocode(ctx context.Context, requestURL string) (geocodeResponse, error) {
	var parsed geocodeResponse
	resp, err := utils.HTTPRequest(ctx, http.MethodGet, requestURL, nil, nil)
	if err != nil {
		return parsed, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return parsed, fmt.Errorf("geocoding returned status %d", resp.StatusCode)
	}
	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return parsed, err
	}
	if err := json.Unmarshal(bodyBytes, &parsed); err != nil {
		return parsed, err
	}
	return parsed, nil
}

func locationsFromResponse(parsed geocodeResponse) []Location {
	locations := make([]Location, 0, len(parsed.Features))
	for _, feature := range parsed.Features {
		if len(feature.Center) != 2 {
			continue
		}
		loc := Location{
			Address:   feature.PlaceName,
			Longitude: feature.Center[0],
			Latitude:  feature.Center[1],
		}
		for _, ctxEntry := range feature.Context {
			if strings.HasPrefix(ctxEntry.ID, "country.") {
				loc.Country = strings.ToUpper(ctxEntry.ShortCode)
			}
		}
		// A country-level result carries its own short code
		if loc.Country == "" && strings.HasPrefix(feature.ID, "country.") {
			loc.Country = strings.ToUpper(feature.ShortCode)
		}
		locations = append(locations, loc)
	}
	return locations
}

// Geocode resolves one address to coordinates. Failures for one address
// never depend on another; callers geocode independently.
func (c *Client) Geocode(ctx context.Context, address string) (Location, error) {
	cacheKey := "geocode:" + address
	if c.redis != nil {
		cached, err := c.redis.Get(ctx, cacheKey).Result()
		if err == nil {
			var loc Location
			if err := json.Unmarshal([]byte(cached), &loc); err == nil {
				return loc, nil
			}
		}
	}

	params := url.Values{}
	params.Set("limit", "1")
	parsed, err := c.fetchGeocode(ctx, c.geocodeURL(address, params))
	if err != nil {
		return Location{}, err
	}
	locations := locationsFromResponse(parsed)
	if len(locations) == 0 {
		return Location{}, ErrNoResults
	}

	if c.redis != nil {
		data, err := json.Marshal(locations[0])
		if err == nil {
			if err := c.redis.Set(ctx, cacheKey, data, geocodeCacheTTL).Err(); err != nil {
				slog.Warn("Failed to cache geocode result", "error", err)
			}
		}
	}

	return locations[0], nil
}

// ReverseGeocode resolves coordinates to the nearest address.
func (c *Client) ReverseGeocode(ctx context.Context, latitude, longitude float64) (Location, error) {
	params := url.Values{}
	params.Set("limit", "1")
	query := fmt.Sprintf("%f,%f", longitude, latitude)
	parsed, err := c.fetchGeocode(ctx, c.geocodeURL(query, params))
	if err != nil {
		return Location{}, err
	}
	locations := locationsFromResponse(parsed)
	if len(locations) == 0 {
		return Location{}, ErrNoResults
	}
	return locations[0], nil
}

// Autocomplete returns address suggestions for a partial query.
func (c *Client) Autocomplete(ctx context.Context, query string) ([]Location, error) {
	params := url.Values{}
	params.Set("autocomplete", "true")
	params.Set("limit", "5")
	parsed, err := c.fetchGeocode(ctx, c.geocodeURL(query, params))
	if err != nil {
		return nil, err
	}
	return locationsFromResponse(parsed), nil
}

type directionsResponse struct {
	Routes []struct {
		Geometry json.RawMessage `json:"geometry"`
		Distance float64         `json:"distance"`
		Duration float64         `json:"duration"`
		Legs     []struct {
			Distance float64 `json:"distance"`
			Duration float64 `json:"duration"`
		} `json:"legs"`
	} `json:"routes"`
}

// Directions requests one driving route through the given coordinates in
// order. One request covers the whole trip.
func (c *Client) Directions(ctx context.Context, coords []Coordinate) (DirectionsResult, error) {
	if len(coords) < 2 {
		return DirectionsResult{}, fmt.Errorf("directions require at least 2 coordinates, got %d", len(coords))
	}

	pairs := make([]string, 0, len(coords))
	for _, coord := range coords {
		pairs = append(pairs, fmt.Sprintf("%f,%f", coord.Longitude, coord.Latitude))
	}

	params := url.Values{}
	params.Set("access_token", c.secretToken)
	params.Set("geometries", "geojson")
	params.Set("overview", "full")
	u := url.URL{
		Scheme:   schemeHTTPS,
		Host:     mapboxAPIHost,
		Path:     "/directions/v5/mapbox/driving/" + strings.Join(pairs, ";"),
		RawQuery: params.Encode(),
	}

	resp, err := utils.HTTPRequest(ctx, http.MethodGet, u.String(), nil, nil)
	if err != nil {
		return DirectionsResult{}, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return DirectionsResult{}, fmt.Errorf("directions returned status %d", resp.StatusCode)
	}

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return DirectionsResult{}, err
	}

	var parsed directionsResponse
	if err := json.Unmarshal(bodyBytes, &parsed); err != nil {
		return DirectionsResult{}, err
	}
	if len(parsed.Routes) == 0 {
		return DirectionsResult{}, ErrNoResults
	}

	route := parsed.Routes[0]
	result := DirectionsResult{
		Geometry:        route.Geometry,
		DistanceMeters:  route.Distance,
		DurationSeconds: route.Duration,
	}
	for _, leg := range route.Legs {
		result.Legs = append(result.Legs, Leg{
			DistanceMeters:  leg.Distance,
			DurationSeconds: leg.Duration,
		})
	}
	return result, nil
}
