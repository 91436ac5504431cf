// Package geo provides the device-location capability used to tag scans and photos.
package geo

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/railinspect/backend/internal/domain/inspection"
	"github.com/railinspect/backend/internal/infrastructure/config"
)

// Request header names carrying the browser's coordinate
const (
	HeaderLatitude  = "X-Geo-Latitude"
	HeaderLongitude = "X-Geo-Longitude"
)

// ErrLocationUnavailable is returned when no coordinate was supplied
var ErrLocationUnavailable = errors.New("location not available")

// ClientLocator resolves the coordinate reported by the browser.
// Both fields empty means the browser denied or lacks geolocation.
type ClientLocator struct {
	Latitude  string
	Longitude string
}

// FromRequest reads X-Geo-Latitude/X-Geo-Longitude, then the lat/lng form or query values
func FromRequest(r *http.Request) ClientLocator {
	if r == nil {
		return ClientLocator{}
	}
	lat := r.Header.Get(HeaderLatitude)
	lng := r.Header.Get(HeaderLongitude)
	if lat == "" && lng == "" {
		lat = r.FormValue("lat")
		lng = r.FormValue("lng")
	}
	return ClientLocator{Latitude: lat, Longitude: lng}
}

// Locate parses and validates the reported coordinate
func (c ClientLocator) Locate(ctx context.Context) (inspection.Coordinate, error) {
	if err := ctx.Err(); err != nil {
		return inspection.Coordinate{}, err
	}
	latStr := strings.TrimSpace(c.Latitude)
	lngStr := strings.TrimSpace(c.Longitude)
	if latStr == "" && lngStr == "" {
		return inspection.Coordinate{}, ErrLocationUnavailable
	}

	lat, err := strconv.ParseFloat(latStr, 64)
	if err != nil {
		return inspection.Coordinate{}, fmt.Errorf("latitude %q: %w", latStr, inspection.ErrInvalidCoordinate)
	}
	lng, err := strconv.ParseFloat(lngStr, 64)
	if err != nil {
		return inspection.Coordinate{}, fmt.Errorf("longitude %q: %w", lngStr, inspection.ErrInvalidCoordinate)
	}
	return inspection.NewCoordinate(lat, lng)
}

// FixedLocator always reports the same coordinate, e.g. a depot
type FixedLocator struct {
	Coordinate inspection.Coordinate
}

// Locate returns the fixed coordinate
func (f FixedLocator) Locate(ctx context.Context) (inspection.Coordinate, error) {
	if err := ctx.Err(); err != nil {
		return inspection.Coordinate{}, err
	}
	return f.Coordinate, nil
}

// ChainLocator returns the first successful result of its locators
type ChainLocator []inspection.Locator

// Locate tries each locator in order
func (c ChainLocator) Locate(ctx context.Context) (inspection.Coordinate, error) {
	errs := make([]error, 0, len(c))
	for _, l := range c {
		if l == nil {
			continue
		}
		coord, err := l.Locate(ctx)
		if err == nil {
			return coord, nil
		}
		if ctx.Err() != nil {
			return inspection.Coordinate{}, ctx.Err()
		}
		errs = append(errs, err)
	}
	if len(errs) == 0 {
		return inspection.Coordinate{}, ErrLocationUnavailable
	}
	return inspection.Coordinate{}, errors.Join(errs...)
}

// NewFallbackLocator returns the configured depot locator, or nil when disabled
func NewFallbackLocator(cfg config.GeoConfig) inspection.Locator {
	if !cfg.FallbackEnabled {
		return nil
	}
	return FixedLocator{Coordinate: inspection.Coordinate{Latitude: cfg.Latitude, Longitude: cfg.Longitude}}
}

// ForRequest chains the client's coordinate with the fallback locator
func ForRequest(r *http.Request, fallback inspection.Locator) inspection.Locator {
	return ChainLocator{FromRequest(r), fallback}
}
