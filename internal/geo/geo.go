package geo

import (
	"errors"
	"math"

	"github.com/wangyizhang/eco-weather-service/internal/models"
)

// ErrRegionNotFound is returned when a query names no known region and
// carries no coordinates. Maps to a 400 at the HTTP boundary.
var ErrRegionNotFound = errors.New("region not found")

// Query identifies a location either by exact region name or by coordinates.
// When HasCoords is true, Lat/Lon take precedence over City.
type Query struct {
	City      string
	Lat       float64
	Lon       float64
	HasCoords bool
}

// Resolve maps a query to a canonical region. Coordinate queries snap to the
// nearest region center by great-circle distance; name queries require an
// exact, case-sensitive match. Pure function of the input and the static
// region table.
func Resolve(q Query) (models.CanonicalRegion, error) {
	return resolveIn(Regions, q)
}

func resolveIn(regions []models.CanonicalRegion, q Query) (models.CanonicalRegion, error) {
	if q.HasCoords {
		return nearest(regions, q.Lat, q.Lon)
	}
	if q.City != "" {
		for _, r := range regions {
			if r.Name == q.City {
				return r, nil
			}
		}
	}
	return models.CanonicalRegion{}, ErrRegionNotFound
}

// nearest scans the full table and keeps the first entry at minimal haversine
// distance. The table is small enough that a linear scan is the right tool.
func nearest(regions []models.CanonicalRegion, lat, lon float64) (models.CanonicalRegion, error) {
	if len(regions) == 0 {
		return models.CanonicalRegion{}, ErrRegionNotFound
	}
	best := regions[0]
	bestDist := haversineKm(lat, lon, best.Lat, best.Lon)
	for _, r := range regions[1:] {
		if d := haversineKm(lat, lon, r.Lat, r.Lon); d < bestDist {
			best = r
			bestDist = d
		}
	}
	return best, nil
}

const earthRadiusKm = 6371

// haversineKm returns the great-circle distance between two points in km.
func haversineKm(lat1, lon1, lat2, lon2 float64) float64 {
	dLat := deg2rad(lat2 - lat1)
	dLon := deg2rad(lon2 - lon1)
	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(deg2rad(lat1))*math.Cos(deg2rad(lat2))*math.Sin(dLon/2)*math.Sin(dLon/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
	return earthRadiusKm * c
}

func deg2rad(deg float64) float64 {
	return deg * (math.Pi / 180)
}
