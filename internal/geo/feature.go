package geo

import "math"

// Ring is a closed sequence of [longitude, latitude] vertices in degrees.
type Ring [][2]float64

// Bounds is a geographic bounding box in degrees.
type Bounds struct {
	MinLon, MinLat float64
	MaxLon, MaxLat float64
}

// LonSpan returns the longitude extent of the box.
func (b Bounds) LonSpan() float64 { return b.MaxLon - b.MinLon }

// CrossesAntimeridian reports whether the box wraps through the +/-180 seam.
// A span over 350 degrees means the geometry straddles the seam and the raw
// min/max collapsed to near-global extent.
func (b Bounds) CrossesAntimeridian() bool {
	return b.LonSpan() > 350 || b.MaxLon < b.MinLon
}

// Country is one classifiable feature: a name plus the full ring set of its
// polygon or multipolygon geometry. Containment applies the even-odd rule
// across all rings, so holes need no separate bookkeeping. The struct is
// immutable after preprocessing.
type Country struct {
	Name  string
	Rings []Ring

	// Index is the position in the topology's country slice. Lookup maps
	// store 1+Index per pixel.
	Index int

	Bounds   Bounds
	Centroid [2]float64
}

// computeBounds derives the bounding box and vertex centroid of the ring set.
func (c *Country) computeBounds() {
	b := Bounds{MinLon: math.Inf(1), MinLat: math.Inf(1), MaxLon: math.Inf(-1), MaxLat: math.Inf(-1)}
	var sumLon, sumLat float64
	var n int
	for _, ring := range c.Rings {
		for _, pt := range ring {
			b.MinLon = math.Min(b.MinLon, pt[0])
			b.MaxLon = math.Max(b.MaxLon, pt[0])
			b.MinLat = math.Min(b.MinLat, pt[1])
			b.MaxLat = math.Max(b.MaxLat, pt[1])
			sumLon += pt[0]
			sumLat += pt[1]
			n++
		}
	}
	c.Bounds = b
	if n > 0 {
		c.Centroid = [2]float64{sumLon / float64(n), sumLat / float64(n)}
	}
}

// CloneCountries deep-copies a country slice. Workers classify against their
// own copy so no geometry is shared across goroutines.
func CloneCountries(src []*Country) []*Country {
	out := make([]*Country, len(src))
	for i, c := range src {
		cc := &Country{
			Name:     c.Name,
			Index:    c.Index,
			Bounds:   c.Bounds,
			Centroid: c.Centroid,
			Rings:    make([]Ring, len(c.Rings)),
		}
		for j, ring := range c.Rings {
			r := make(Ring, len(ring))
			copy(r, ring)
			cc.Rings[j] = r
		}
		out[i] = cc
	}
	return out
}

// ClassificationResult is one classified sample point. CountryName and
// Coordinates are nil for points outside the projection outline or, when
// ocean dots are requested, for points over water.
type ClassificationResult struct {
	X           float64     `json:"x"`
	Y           float64     `json:"y"`
	CountryName *string     `json:"countryName"`
	Coordinates *[2]float64 `json:"coordinates"`
}

// DebugInfo counts the work done by the tiered pipeline for one query.
type DebugInfo struct {
	TotalChecks  int64 `json:"totalChecks"`
	CircleChecks int64 `json:"circleChecks"`
	FullChecks   int64 `json:"fullChecks"`
	GridChecks   int64 `json:"gridChecks"`
}

// Add accumulates counters from another worker's run.
func (d *DebugInfo) Add(other DebugInfo) {
	d.TotalChecks += other.TotalChecks
	d.CircleChecks += other.CircleChecks
	d.FullChecks += other.FullChecks
	d.GridChecks += other.GridChecks
}
