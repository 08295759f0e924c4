// Package geo holds coordinate helpers: great-circle distance and the S2 cell
// neighbourhood the map-objects request expects.
package geo

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/golang/geo/s2"
)

// EarthRadiusMeters is the equatorial radius used for every distance.
const EarthRadiusMeters = 6378137.0

// cellLevel and cellRadius describe the map-objects query window.
const (
	cellLevel  = 15
	cellRadius = 10
)

// Point is a latitude/longitude pair in degrees.
type Point struct {
	Lat float64 `json:"latitude"`
	Lng float64 `json:"longitude"`
}

// String formats the point as "lat, lng".
func (p Point) String() string {
	return fmt.Sprintf("%f, %f", p.Lat, p.Lng)
}

// Distance returns the great-circle distance between a and b in meters.
func Distance(a, b Point) float64 {
	la := s2.LatLngFromDegrees(a.Lat, a.Lng)
	lb := s2.LatLngFromDegrees(b.Lat, b.Lng)
	return la.Distance(lb).Radians() * EarthRadiusMeters
}

// CellIDs returns the sorted level-15 cell ids around p: the containing cell
// and ten neighbours on each side along the curve.
func CellIDs(p Point) []uint64 {
	origin := s2.CellIDFromLatLng(s2.LatLngFromDegrees(p.Lat, p.Lng)).Parent(cellLevel)

	ids := []uint64{uint64(origin)}
	right, left := origin.Next(), origin.Prev()
	for i := 0; i < cellRadius; i++ {
		ids = append(ids, uint64(right), uint64(left))
		right = right.Next()
		left = left.Prev()
	}

	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// ParsePoint parses "lat,lng".
func ParsePoint(s string) (Point, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 2 {
		return Point{}, fmt.Errorf("location %q: want \"lat,lng\"", s)
	}

	lat, err := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	if err != nil {
		return Point{}, fmt.Errorf("location %q: latitude: %w", s, err)
	}
	lng, err := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if err != nil {
		return Point{}, fmt.Errorf("location %q: longitude: %w", s, err)
	}
	if lat < -90 || lat > 90 || lng < -180 || lng > 180 {
		return Point{}, fmt.Errorf("location %q: out of range", s)
	}

	return Point{Lat: lat, Lng: lng}, nil
}
