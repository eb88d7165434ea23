// Package geo implements the point-classification engine: normalized country
// geometry, bounding-circle derivation, a bucketed spatial index, and the
// tiered classifier that maps a geographic coordinate to an owning country.
package geo

import "math"

// Longitude band (degrees) around the antimeridian inside which wrapped
// longitude variants are tried during containment tests.
const antimeridianBand = 30.0

// WrapLongitude normalizes a longitude in degrees into [-180, 180].
// Values already in range are returned unchanged, so both -180 and 180
// survive the wrap: WrapLongitude(180) == 180 and WrapLongitude(-180) == -180.
func WrapLongitude(lon float64) float64 {
	if lon >= -180 && lon <= 180 {
		return lon
	}
	lon = math.Mod(lon+180, 360)
	if lon < 0 {
		lon += 360
	}
	return lon - 180
}

// normalizeCoord applies the high-latitude seam correction before the general
// wrap. Polar vertices arrive with longitudes pushed past the seam by the
// source projection; remapping them first prevents ring artifacts near the
// poles.
func normalizeCoord(lon, lat float64) (float64, float64) {
	if math.Abs(lat) > 60 {
		for lon > 180 {
			lon -= 360
		}
		for lon <= -180 {
			lon += 360
		}
	}
	return WrapLongitude(lon), lat
}

// nearAntimeridian reports whether a normalized longitude lies within the
// wrap band of the +/-180 seam.
func nearAntimeridian(lon float64) bool {
	return lon > 180-antimeridianBand || lon < -180+antimeridianBand
}

// wrapCandidates returns the longitude representations to try when testing
// containment: the normalized value itself plus the +/-360 variant when the
// point sits near the antimeridian.
func wrapCandidates(lon float64) []float64 {
	switch {
	case lon > 180-antimeridianBand:
		return []float64{lon, lon - 360}
	case lon < -180+antimeridianBand:
		return []float64{lon, lon + 360}
	default:
		return []float64{lon}
	}
}
