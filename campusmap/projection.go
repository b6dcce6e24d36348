package campusmap

import (
	"errors"
	"fmt"
)

// ErrOutOfBounds is returned for click positions outside the map image.
var ErrOutOfBounds = errors.New("position outside the campus map")

type LatLng struct {
	Lat float64 `json:"latitude"`
	Lng float64 `json:"longitude"`
}

// Point is a position on the map image in percent of its width (X) and
// height (Y), origin top-left.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Projection maps between image percentages and synthetic coordinates
// around Center. Scale is degrees per percentage point.
type Projection struct {
	Center LatLng
	Scale  float64
}

func NewProjection(lat, lng, scale float64) Projection {
	return Projection{Center: LatLng{Lat: lat, Lng: lng}, Scale: scale}
}

func (p Projection) ToLatLng(pt Point) (LatLng, error) {
	if pt.X < 0 || pt.X > 100 || pt.Y < 0 || pt.Y > 100 {
		return LatLng{}, ErrOutOfBounds
	}
	return LatLng{
		Lat: p.Center.Lat + (50-pt.Y)*p.Scale,
		Lng: p.Center.Lng + (pt.X-50)*p.Scale,
	}, nil
}

// ToPoint is the inverse of ToLatLng. Coordinates far from the centre land
// outside [0,100]; callers decide whether to clamp or hide them.
func (p Projection) ToPoint(c LatLng) Point {
	return Point{
		X: (c.Lng-p.Center.Lng)/p.Scale + 50,
		Y: 50 - (c.Lat-p.Center.Lat)/p.Scale,
	}
}

// Label renders coordinates the way the report form pre-fills location.
func Label(c LatLng) string {
	return fmt.Sprintf("Location: %.4f, %.4f", c.Lat, c.Lng)
}
