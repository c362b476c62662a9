package domain

import (
	"fmt"
	"math"
)

// kmPerDegree is the planar length of one degree used for viewport area estimates.
const kmPerDegree = 111.0

// GeoPoint represents a geographic coordinate (WGS 84).
type GeoPoint struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// Valid reports whether the point lies within WGS 84 coordinate ranges.
func (p GeoPoint) Valid() bool {
	return finite(p.Lat) && finite(p.Lon) &&
		p.Lat >= -90 && p.Lat <= 90 &&
		p.Lon >= -180 && p.Lon <= 180
}

// BoundingBox represents a geographic viewport. West/East wrapping at the
// antimeridian is not supported.
type BoundingBox struct {
	South float64 `json:"south"`
	North float64 `json:"north"`
	West  float64 `json:"west"`
	East  float64 `json:"east"`
}

// Validate returns ErrInvalidBounds when the box is malformed.
func (b BoundingBox) Validate() error {
	for _, v := range []float64{b.South, b.North, b.West, b.East} {
		if !finite(v) {
			return fmt.Errorf("%w: non-finite coordinate", ErrInvalidBounds)
		}
	}
	if b.South < -90 || b.North > 90 || b.South > 90 || b.North < -90 {
		return fmt.Errorf("%w: latitude out of range [-90, 90]", ErrInvalidBounds)
	}
	if b.West < -180 || b.East > 180 || b.West > 180 || b.East < -180 {
		return fmt.Errorf("%w: longitude out of range [-180, 180]", ErrInvalidBounds)
	}
	if b.South > b.North {
		return fmt.Errorf("%w: south %.6f is greater than north %.6f", ErrInvalidBounds, b.South, b.North)
	}
	if b.West > b.East {
		return fmt.Errorf("%w: west %.6f is greater than east %.6f (antimeridian crossing)", ErrInvalidBounds, b.West, b.East)
	}
	return nil
}

// Center returns the arithmetic midpoint of the box.
func (b BoundingBox) Center() GeoPoint {
	return GeoPoint{Lat: (b.South + b.North) / 2, Lon: (b.West + b.East) / 2}
}

// Contains reports whether p lies inside the box, edges included.
func (b BoundingBox) Contains(p GeoPoint) bool {
	return p.Lat >= b.South && p.Lat <= b.North && p.Lon >= b.West && p.Lon <= b.East
}

// AreaKm2 approximates the box area with a planar projection scaled by the
// cosine of the center latitude. It is not geodesically exact.
func (b BoundingBox) AreaKm2() float64 {
	latSpan := b.North - b.South
	lngSpan := b.East - b.West
	centerLat := (b.South + b.North) / 2
	return latSpan * kmPerDegree * lngSpan * kmPerDegree * math.Abs(math.Cos(centerLat*math.Pi/180))
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
