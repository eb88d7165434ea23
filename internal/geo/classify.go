package geo

import "math"

// Classifier resolves a geographic coordinate to the owning country through
// the tiered pipeline: special-region fast paths, grid-cell candidate
// retrieval, circle-distance prefilter, exact containment. A Classifier is
// not safe for concurrent use; in parallel runs each worker instantiates its
// own against its own WorldIndex copy.
type Classifier struct {
	world *WorldIndex
	debug DebugInfo
}

// NewClassifier creates a classifier over a built world index.
func NewClassifier(w *WorldIndex) *Classifier {
	return &Classifier{world: w}
}

// World returns the index this classifier reads from.
func (cl *Classifier) World() *WorldIndex { return cl.world }

// Debug returns the counters accumulated so far.
func (cl *Classifier) Debug() DebugInfo { return cl.debug }

// ResetDebug zeroes the counters.
func (cl *Classifier) ResetDebug() { cl.debug = DebugInfo{} }

// Classify returns the country containing the point, or nil for ocean.
// First match wins in tier order; all failures (bad input, degenerate
// geometry) classify as ocean, never as an error.
func (cl *Classifier) Classify(lon, lat float64) *Country {
	cl.debug.TotalChecks++

	if math.IsNaN(lon) || math.IsInf(lon, 0) || math.IsNaN(lat) || math.IsInf(lat, 0) {
		return nil
	}
	if math.Abs(lat) > 90 {
		return nil
	}
	lon = WrapLongitude(lon)

	// Alaska fast path. The panhandle and Aleutian islands sit across the
	// seam where the general grid path misses; test the dedicated circles
	// first.
	if lat > 50 && lon < -150 {
		for _, bc := range cl.world.Alaska {
			cl.debug.FullChecks++
			lons := []float64{lon}
			if lon < -170 {
				lons = append(lons, lon+360)
			}
			if containsAny(bc.Country, lat, lons...) {
				return bc.Country
			}
		}
	}

	// Special-region fast path: high latitudes and the antimeridian band go
	// straight to exact containment against the hand-tuned circles.
	if math.Abs(lat) > 60 || nearAntimeridian(lon) {
		for _, bc := range cl.world.Special {
			cl.debug.FullChecks++
			if containsAny(bc.Country, lat, wrapCandidates(lon)...) {
				return bc.Country
			}
		}
	}

	// General path: union of grid candidates over the wrapped longitude
	// representations, prefiltered by circle distance where that is sound.
	cands := wrapCandidates(lon)
	seen := make(map[*BoundingCircle]bool)
	for _, lonVariant := range cands {
		cl.debug.GridChecks++
		for _, bc := range cl.world.Grid.Candidates(WrapLongitude(lonVariant), lat) {
			if seen[bc] {
				continue
			}
			seen[bc] = true

			if bc.IsPolar || bc.CrossesAntimeridian {
				// Circle distance is unreliable near the poles and the
				// seam; go straight to the exact test.
				cl.debug.FullChecks++
				if containsAny(bc.Country, lat, cands...) {
					return bc.Country
				}
				continue
			}

			cl.debug.CircleChecks++
			if !bc.Contains(lon, lat) {
				continue
			}
			cl.debug.FullChecks++
			if containsAny(bc.Country, lat, cands...) {
				return bc.Country
			}
		}
	}

	return nil
}

// ClassifyBrute tests every country with exact containment, bypassing all
// filtering tiers. Reference implementation for equivalence tests only.
func (cl *Classifier) ClassifyBrute(lon, lat float64) *Country {
	if math.IsNaN(lon) || math.IsInf(lon, 0) || math.IsNaN(lat) || math.IsInf(lat, 0) {
		return nil
	}
	if math.Abs(lat) > 90 {
		return nil
	}
	lon = WrapLongitude(lon)
	for _, c := range cl.world.Countries {
		if containsAny(c, lat, wrapCandidates(lon)...) {
			return c
		}
	}
	return nil
}
