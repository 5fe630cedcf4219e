// Package projection implements the mapping from geographic coordinates
// to pixel coordinates on a calibrated base map
package projection

import (
	"errors"
	"fmt"
	"math"

	"github.com/samuelfneumann/gridtrack/pixel"
)

// ErrOutOfDomain is returned when a latitude lies outside the domain of
// the Mercator correction, |lat| >= 90, or a coordinate is not finite
var ErrOutOfDomain = errors.New("coordinate outside projection domain")

// Calibration describes a base map by the geographic coordinates of its
// upper left and lower right corners and its size in pixels.
type Calibration struct {
	UpperLeftLat  float64 `json:"upper_left_lat"`
	UpperLeftLon  float64 `json:"upper_left_lon"`
	LowerRightLat float64 `json:"lower_right_lat"`
	LowerRightLon float64 `json:"lower_right_lon"`
	Width         int     `json:"width"`
	Height        int     `json:"height"`
}

// DefaultCalibration returns the calibration of the North American
// topographic base map that the default rasters were generated from
func DefaultCalibration() Calibration {
	return Calibration{
		UpperLeftLat:  55.61,
		UpperLeftLon:  -136.18,
		LowerRightLat: 6.72,
		LowerRightLon: -51.55,
		Width:         1928,
		Height:        1378,
	}
}

// Validate checks that the calibration describes a usable map
func (c Calibration) Validate() error {
	if c.Width <= 0 || c.Height <= 0 {
		return fmt.Errorf("map size must be positive, got %dx%d", c.Width,
			c.Height)
	}
	if c.LowerRightLon <= c.UpperLeftLon {
		return fmt.Errorf("right longitude %v must exceed left longitude %v",
			c.LowerRightLon, c.UpperLeftLon)
	}
	if c.UpperLeftLat <= c.LowerRightLat {
		return fmt.Errorf("top latitude %v must exceed bottom latitude %v",
			c.UpperLeftLat, c.LowerRightLat)
	}
	if math.Abs(c.LowerRightLat) >= 90 || math.Abs(c.UpperLeftLat) >= 90 {
		return fmt.Errorf("calibration latitudes: %w", ErrOutOfDomain)
	}
	return nil
}

// Projection converts between (latitude, longitude) and pixels on a
// calibrated map. Longitude maps linearly onto x, latitude is corrected
// with a Mercator transform anchored at the bottom edge of the map.
//
// A Projection holds no mutable state and is safe for concurrent use.
type Projection struct {
	cal           Calibration
	pxPerDegree   float64
	worldMapWidth float64
	offsetY       float64
}

// New creates and returns a Projection for a calibration
func New(cal Calibration) (*Projection, error) {
	if err := cal.Validate(); err != nil {
		return nil, fmt.Errorf("new: invalid calibration: %w", err)
	}

	lonDelta := cal.LowerRightLon - cal.UpperLeftLon
	pxPerDegree := float64(cal.Width) / lonDelta
	worldMapWidth := pxPerDegree * 360 / (2 * math.Pi)
	offsetY := worldMapWidth / 2 * mercator(radians(cal.LowerRightLat))

	return &Projection{
		cal:           cal,
		pxPerDegree:   pxPerDegree,
		worldMapWidth: worldMapWidth,
		offsetY:       offsetY,
	}, nil
}

// Calibration returns the calibration of the projection
func (p *Projection) Calibration() Calibration {
	return p.cal
}

// Project converts a latitude and longitude in degrees into a pixel,
// rounding both axes to the nearest integer. No bounds checking is
// performed; use Covers to check that the result lies on the map.
//
// Project panics if |lat| >= 90. Callers handling untrusted input should
// call Validate first.
func (p *Projection) Project(lat, lon float64) pixel.Coord {
	if math.Abs(lat) >= 90 {
		panic(fmt.Sprintf("project: latitude %v outside (-90, 90)", lat))
	}

	x := (lon - p.cal.UpperLeftLon) * p.pxPerDegree
	y := float64(p.cal.Height) -
		(p.worldMapWidth/2*mercator(radians(lat)) - p.offsetY)

	return pixel.New(int(math.Round(x)), int(math.Round(y)))
}

// Unproject converts a pixel back into the latitude and longitude of
// its centre
func (p *Projection) Unproject(c pixel.Coord) (lat, lon float64) {
	lon = float64(c.X)/p.pxPerDegree + p.cal.UpperLeftLon

	m := (float64(p.cal.Height) - float64(c.Y) + p.offsetY) /
		(p.worldMapWidth / 2)
	lat = math.Atan(math.Sinh(m/2)) * 180 / math.Pi
	return lat, lon
}

// Validate returns ErrOutOfDomain if (lat, lon) cannot be projected
func Validate(lat, lon float64) error {
	if math.IsNaN(lat) || math.IsInf(lat, 0) || math.IsNaN(lon) ||
		math.IsInf(lon, 0) {
		return fmt.Errorf("(%v, %v): %w", lat, lon, ErrOutOfDomain)
	}
	if math.Abs(lat) >= 90 {
		return fmt.Errorf("latitude %v: %w", lat, ErrOutOfDomain)
	}
	return nil
}

// Covers returns whether (lat, lon) lies between the calibrated corners
func (p *Projection) Covers(lat, lon float64) bool {
	return lat <= p.cal.UpperLeftLat && lat >= p.cal.LowerRightLat &&
		lon >= p.cal.UpperLeftLon && lon <= p.cal.LowerRightLon
}

// InBounds returns whether a pixel lies on the calibrated map
func (p *Projection) InBounds(c pixel.Coord) bool {
	return c.X >= 0 && c.Y >= 0 && c.X < p.cal.Width && c.Y < p.cal.Height
}

func (p *Projection) String() string {
	return fmt.Sprintf("Projection | (%v, %v) -> (%v, %v)  |  %dx%d px",
		p.cal.UpperLeftLat, p.cal.UpperLeftLon, p.cal.LowerRightLat,
		p.cal.LowerRightLon, p.cal.Width, p.cal.Height)
}

// mercator returns log((1 + sin φ) / (1 - sin φ)) for φ in radians
func mercator(phi float64) float64 {
	s := math.Sin(phi)
	return math.Log((1 + s) / (1 - s))
}

func radians(deg float64) float64 {
	return deg * math.Pi / 180
}
