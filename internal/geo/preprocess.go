package geo

import (
	"math"

	"go.uber.org/zap"
)

// Sampling densities for the enclosing-circle derivation.
const (
	sampleGridSize      = 50
	polarSampleGridSize = 100
)

// Radius safety margins. The sampled maximum underestimates the true
// enclosing radius between grid points; antimeridian-crossing bounds sample
// poorly and get a larger cushion.
const (
	radiusMargin   = 1.02
	radiusMarginAM = 1.2
)

// Normalize rewrites every coordinate of every country into (-180, 180]
// longitude, with the high-latitude seam correction applied first, then
// recomputes bounds and centroids. Must run before circle derivation.
func Normalize(countries []*Country) {
	for _, c := range countries {
		for _, ring := range c.Rings {
			for i := range ring {
				ring[i][0], ring[i][1] = normalizeCoord(ring[i][0], ring[i][1])
			}
		}
		c.computeBounds()
	}
}

// DeriveCircles computes the bounding circle set for one normalized country:
// the special-region override table first, then the generic polar shortcut,
// then bounding-box sampling.
func DeriveCircles(c *Country) []*BoundingCircle {
	for _, ov := range regionOverrides {
		if ov.matches(c.Centroid[0], c.Centroid[1]) {
			return ov.circles(c)
		}
	}

	crossesAM := c.Bounds.CrossesAntimeridian()
	polar := math.Abs(c.Bounds.MinLat) > 80 || math.Abs(c.Bounds.MaxLat) > 80
	latMid := (c.Bounds.MinLat + c.Bounds.MaxLat) / 2

	// Small arctic territories get a cheap fixed-radius circle instead of
	// exact sampling.
	if polar && latMid > 60 {
		return []*BoundingCircle{{
			Country:             c,
			Center:              c.Centroid,
			Radius:              degToRad(60),
			IsPolar:             true,
			CrossesAntimeridian: crossesAM,
		}}
	}

	radius := sampleEnclosingRadius(c, polar)
	if crossesAM {
		radius *= radiusMarginAM
	} else {
		radius *= radiusMargin
	}

	return []*BoundingCircle{{
		Country:             c,
		Center:              c.Centroid,
		Radius:              radius,
		IsPolar:             polar,
		CrossesAntimeridian: crossesAM,
	}}
}

// sampleEnclosingRadius samples the country's bounding box on a grid and
// returns the maximum geodesic distance (radians) from the centroid to any
// grid point confirmed inside by the exact containment test. This is an
// enclosing approximation: it may slightly over-include neighboring
// territory, which the exact test corrects during classification.
func sampleEnclosingRadius(c *Country, polar bool) float64 {
	n := sampleGridSize
	if polar {
		n = polarSampleGridSize
	}

	b := c.Bounds
	stepLon := b.LonSpan() / float64(n)
	stepLat := (b.MaxLat - b.MinLat) / float64(n)

	var maxDist float64
	for i := 0; i <= n; i++ {
		lon := b.MinLon + float64(i)*stepLon
		for j := 0; j <= n; j++ {
			lat := b.MinLat + float64(j)*stepLat
			if !PointInCountry(c, lon, lat) {
				continue
			}
			if d := Haversine(lon, lat, c.Centroid[0], c.Centroid[1]); d > maxDist {
				maxDist = d
			}
		}
	}

	// A degenerate sample (no interior hits) falls back to the bounding-box
	// diagonal, which always encloses.
	if maxDist == 0 {
		maxDist = Haversine(b.MinLon, b.MinLat, b.MaxLon, b.MaxLat) / 2
		zap.L().Debug("geo: no interior samples, using bbox fallback radius",
			zap.String("country", c.Name),
		)
	}
	return maxDist
}

// WorldIndex is the immutable classification state for one topology:
// normalized countries, their bounding circles, and the bucketed spatial
// index. Built once per topology and passed by reference into every
// classification call; never mutated afterwards.
type WorldIndex struct {
	Countries []*Country
	Circles   []*BoundingCircle

	// Pre-split circle subsets for the classifier fast paths.
	Special []*BoundingCircle
	Alaska  []*BoundingCircle

	Grid *SpatialIndex
}

// BuildWorldIndex normalizes the countries, derives bounding circles, and
// builds the spatial index. The input slice is mutated (normalized) and
// retained; callers wanting isolation pass a CloneCountries copy.
func BuildWorldIndex(countries []*Country) *WorldIndex {
	Normalize(countries)

	w := &WorldIndex{Countries: countries}
	for i, c := range countries {
		c.Index = i
		circles := DeriveCircles(c)
		w.Circles = append(w.Circles, circles...)
		for _, bc := range circles {
			if bc.IsSpecialRegion {
				w.Special = append(w.Special, bc)
			}
			if bc.RegionType == RegionUSAAlaska {
				w.Alaska = append(w.Alaska, bc)
			}
		}
	}
	w.Grid = BuildSpatialIndex(w.Circles)

	zap.L().Debug("geo: world index built",
		zap.Int("countries", len(countries)),
		zap.Int("circles", len(w.Circles)),
		zap.Int("special", len(w.Special)),
	)
	return w
}
