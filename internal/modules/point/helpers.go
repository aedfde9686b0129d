package point

import (
	"math"

	"github.com/jgmap/core/internal/config"
)

const earthRadiusM = 6371000.0

// HaversineM returns the great-circle distance between two coordinates in meters.
func HaversineM(lat1, lng1, lat2, lng2 float64) float64 {
	rad := math.Pi / 180
	dLat := (lat2 - lat1) * rad
	dLng := (lng2 - lng1) * rad

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1*rad)*math.Cos(lat2*rad)*math.Sin(dLng/2)*math.Sin(dLng/2)
	return 2 * earthRadiusM * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
}

// InBounds reports whether a coordinate lies inside the configured map region.
func InBounds(m config.MapConfig, lat, lng float64) bool {
	return lat >= m.MinLat && lat <= m.MaxLat && lng >= m.MinLng && lng <= m.MaxLng
}

// boundingBox returns a lat/lng window that fully contains a circle of the
// given radius, used to pre-filter candidates before the exact distance check.
func boundingBox(lat, lng, radiusM float64) (minLat, maxLat, minLng, maxLng float64) {
	latDelta := radiusM / earthRadiusM * 180 / math.Pi
	lngDelta := latDelta / math.Cos(lat*math.Pi/180)
	return lat - latDelta, lat + latDelta, lng - lngDelta, lng + lngDelta
}
