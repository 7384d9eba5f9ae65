// Package geo holds the coordinate math and the static Hyderabad locality table used
// to resolve location names and patch listings that were stored without coordinates.
package geo

import (
	"errors"
	"math"
	"strconv"
	"strings"
)

const (
	earthRadiusKm = 6371.0

	// ExactRadiusKm is what the "exact" radius keyword means: roughly the same block.
	ExactRadiusKm   = 0.1
	DefaultRadiusKm = 5.0
	MaxRadiusKm     = 100.0
)

var ErrInvalidRadius = errors.New("invalid radius")

type Point struct {
	Lat float64 `json:"lat" bson:"lat"`
	Lng float64 `json:"lng" bson:"lng"`
}

// Valid reports whether p can take part in a distance calculation. Zero on either axis
// is how missing coordinates are stored, so it counts as invalid.
func (p Point) Valid() bool {
	if math.IsNaN(p.Lat) || math.IsNaN(p.Lng) || math.IsInf(p.Lat, 0) || math.IsInf(p.Lng, 0) {
		return false
	}
	if p.Lat == 0 || p.Lng == 0 {
		return false
	}
	return p.Lat >= -90 && p.Lat <= 90 && p.Lng >= -180 && p.Lng <= 180
}

// Distance returns the great-circle distance in kilometres. ok is false when either
// point is invalid; callers treat that as "no distance", never as a match.
func Distance(a, b Point) (km float64, ok bool) {
	if !a.Valid() || !b.Valid() {
		return 0, false
	}
	lat1 := toRad(a.Lat)
	lat2 := toRad(b.Lat)
	dLat := toRad(b.Lat - a.Lat)
	dLng := toRad(b.Lng - a.Lng)

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLng/2)*math.Sin(dLng/2)
	c := 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))
	return earthRadiusKm * c, true
}

// Within reports whether b lies within radiusKm of a.
func Within(a, b Point, radiusKm float64) (float64, bool) {
	d, ok := Distance(a, b)
	if !ok {
		return 0, false
	}
	return d, d <= radiusKm
}

// ParseRadius accepts a kilometre value or the keyword "exact". Empty input yields the default.
func ParseRadius(raw string) (float64, error) {
	raw = strings.ToLower(strings.TrimSpace(raw))
	raw = strings.TrimSuffix(raw, "km")
	raw = strings.TrimSpace(raw)
	switch raw {
	case "":
		return DefaultRadiusKm, nil
	case "exact":
		return ExactRadiusKm, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(v) || v <= 0 || v > MaxRadiusKm {
		return 0, ErrInvalidRadius
	}
	return v, nil
}

func toRad(deg float64) float64 {
	return deg * math.Pi / 180
}
