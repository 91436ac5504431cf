package inspection

import (
	"context"
	"fmt"
	"math"

	"github.com/railinspect/backend/internal/domain/shared"
)

// LocationNotAvailable is recorded when no coordinate could be obtained
const LocationNotAvailable = "Location not available"

// ErrInvalidCoordinate is returned for out-of-range or non-finite coordinates
var ErrInvalidCoordinate = shared.NewDomainError("INVALID_COORDINATE", "Latitude must be within [-90, 90] and longitude within [-180, 180]")

// Coordinate is a WGS84 latitude/longitude pair
type Coordinate struct {
	Latitude  float64
	Longitude float64
}

// NewCoordinate validates and creates a coordinate
func NewCoordinate(lat, lng float64) (Coordinate, error) {
	c := Coordinate{Latitude: lat, Longitude: lng}
	if err := c.Validate(); err != nil {
		return Coordinate{}, err
	}
	return c, nil
}

// Validate checks the coordinate ranges
func (c Coordinate) Validate() error {
	if math.IsNaN(c.Latitude) || math.IsNaN(c.Longitude) ||
		c.Latitude < -90 || c.Latitude > 90 ||
		c.Longitude < -180 || c.Longitude > 180 {
		return ErrInvalidCoordinate
	}
	return nil
}

// String formats the coordinate with six decimals, e.g. "28.613900, 77.209000"
func (c Coordinate) String() string {
	return fmt.Sprintf("%.6f, %.6f", c.Latitude, c.Longitude)
}

// Locator obtains the current coordinate of the inspecting device.
// Locate either returns a coordinate or fails; callers fall back to
// LocationNotAvailable.
type Locator interface {
	Locate(ctx context.Context) (Coordinate, error)
}

// Describe runs the locator once and formats the outcome
func Describe(ctx context.Context, l Locator) string {
	if l == nil {
		return LocationNotAvailable
	}
	c, err := l.Locate(ctx)
	if err != nil {
		return LocationNotAvailable
	}
	return c.String()
}
