package geospatial

import (
	"strings"

	"github.com/TomiHiltunen/geohash-golang"
)

const (
	// MaxPrecision is the length of a full geohash as produced by Encode.
	MaxPrecision = 12
	// StoragePrecision is the geohash length persisted for each fountain.
	StoragePrecision = 10
)

// Encode returns the geohash of a point at precision characters, clamped
// to MaxPrecision.
func Encode(lat, lon float64, precision int) string {
	if precision <= 0 {
		return ""
	}
	return geohash.EncodeWithPrecision(lat, lon, min(precision, MaxPrecision))
}

// Prefix returns the first precision characters of a stored geohash in
// lowercase, or "" when the stored hash is too short to yield one.
func Prefix(stored string, precision int) string {
	if precision <= 0 || len(stored) < precision {
		return ""
	}
	return strings.ToLower(stored[:precision])
}
