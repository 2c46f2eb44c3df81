package storage

import (
	"math"
	"sort"

	"github.com/openmetro/transit/model"
)

const (
	earthRadiusMeters = 6_371_000

	// Meters per degree of latitude, and per degree of longitude at
	// the equator.
	metersPerDegree = 111_000
)

// HaversineMeters returns the great-circle distance in meters between
// two lat/lon points.
func HaversineMeters(aLat, aLon, bLat, bLon float64) float64 {
	dLat := toRad(bLat - aLat)
	dLon := toRad(bLon - aLon)

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(toRad(aLat))*math.Cos(toRad(bLat))*
			math.Sin(dLon/2)*math.Sin(dLon/2)
	c := 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))

	return earthRadiusMeters * c
}

// BoundingBox is a rectangular lat/lon window used to pre-filter
// stops before exact distance computation.
type BoundingBox struct {
	MinLat, MaxLat float64
	MinLon, MaxLon float64
}

// BoxAround derives a conservative bounding box for a radius (in
// meters) around a point, using a flat-earth approximation at the
// query latitude. The box never excludes a point within the radius,
// so candidates inside it still need an exact distance check.
func BoxAround(lat, lon, radiusMeters float64) BoundingBox {
	latDelta := radiusMeters / metersPerDegree
	lonDelta := radiusMeters / (metersPerDegree * math.Cos(toRad(lat)))
	if lonDelta < 0 {
		lonDelta = -lonDelta
	}

	return BoundingBox{
		MinLat: lat - latDelta,
		MaxLat: lat + latDelta,
		MinLon: lon - lonDelta,
		MaxLon: lon + lonDelta,
	}
}

func toRad(deg float64) float64 {
	return deg * math.Pi / 180
}

// RefineNearby completes the two-stage radius search: candidates from
// the rectangular pre-filter get an exact great-circle distance, are
// filtered again on the precise radius, sorted ascending by distance
// and capped at max results.
func RefineNearby(candidates []model.Stop, lat, lon, radiusMeters float64, max int) []model.NearbyStop {
	nearby := []model.NearbyStop{}
	for _, st := range candidates {
		d := HaversineMeters(lat, lon, st.Lat, st.Lon)
		if d > radiusMeters {
			continue
		}
		nearby = append(nearby, model.NearbyStop{Stop: st, DistanceMeters: d})
	}

	sort.SliceStable(nearby, func(i, j int) bool {
		return nearby[i].DistanceMeters < nearby[j].DistanceMeters
	})

	if max > 0 && len(nearby) > max {
		nearby = nearby[:max]
	}

	return nearby
}
