package geo

import "math"

const earthRadiusKM = 6371.0

// Haversine returns the great-circle distance between two [lon, lat] degree
// points, expressed as an angle in radians.
func Haversine(lon1, lat1, lon2, lat2 float64) float64 {
	phi1 := lat1 * math.Pi / 180
	phi2 := lat2 * math.Pi / 180
	dPhi := (lat2 - lat1) * math.Pi / 180
	dLam := (lon2 - lon1) * math.Pi / 180

	a := math.Sin(dPhi/2)*math.Sin(dPhi/2) +
		math.Cos(phi1)*math.Cos(phi2)*math.Sin(dLam/2)*math.Sin(dLam/2)
	return 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
}

// HaversineKM returns the great-circle distance in kilometers.
func HaversineKM(lon1, lat1, lon2, lat2 float64) float64 {
	return Haversine(lon1, lat1, lon2, lat2) * earthRadiusKM
}

// PointInCountry reports whether the point lies inside the country's
// geometry, applying the even-odd rule across the feature's full ring set so
// holes invert containment. Degenerate geometry panics are recovered and
// reported as outside; a bad ring classifies the point as ocean rather than
// failing the batch.
func PointInCountry(c *Country, lon, lat float64) (inside bool) {
	defer func() {
		if recover() != nil {
			inside = false
		}
	}()
	for _, ring := range c.Rings {
		if pointInRing(ring, lon, lat) {
			inside = !inside
		}
	}
	return inside
}

// pointInRing is the planar even-odd ray crossing test.
func pointInRing(ring Ring, lon, lat float64) bool {
	if len(ring) < 3 {
		return false
	}
	inside := false
	j := len(ring) - 1
	for i := 0; i < len(ring); i++ {
		xi, yi := ring[i][0], ring[i][1]
		xj, yj := ring[j][0], ring[j][1]
		if (yi > lat) != (yj > lat) &&
			lon < (xj-xi)*(lat-yi)/(yj-yi)+xi {
			inside = !inside
		}
		j = i
	}
	return inside
}

// containsAny runs the exact containment test for each candidate longitude
// representation of the same physical point.
func containsAny(c *Country, lat float64, lons ...float64) bool {
	for _, lon := range lons {
		if PointInCountry(c, lon, lat) {
			return true
		}
	}
	return false
}
