package geo

import "math"

// Grid cell size in degrees for both axes.
const cellSizeDeg = 10.0

// CellKey addresses one latitude/longitude bucket. Integer components keep
// hashing and equality exact; no string keys.
type CellKey struct {
	Lat int
	Lon int
}

// cellOf returns the bucket containing a normalized coordinate.
func cellOf(lon, lat float64) CellKey {
	return CellKey{
		Lat: int(math.Floor(lat / cellSizeDeg)),
		Lon: int(math.Floor(lon / cellSizeDeg)),
	}
}

// SpatialIndex buckets bounding circles into a fixed-degree grid for O(1)
// candidate retrieval. Every circle appears in every cell its lat/lon
// extended bounding box overlaps, including wrap-duplicated cells when the
// box straddles the antimeridian. Rebuilt whole per topology; read-only
// during classification.
type SpatialIndex struct {
	cells map[CellKey][]*BoundingCircle
}

// BuildSpatialIndex enumerates, for each circle, the cells of its
// circumscribing lat/lon box (center +/- radius in degrees), clamping
// latitude to [-90, 90] and wrapping longitude into [-180, 180) at each step.
func BuildSpatialIndex(circles []*BoundingCircle) *SpatialIndex {
	idx := &SpatialIndex{cells: make(map[CellKey][]*BoundingCircle)}

	for _, bc := range circles {
		r := bc.RadiusDegrees()
		latMin := math.Max(bc.Center[1]-r, -90)
		latMax := math.Min(bc.Center[1]+r, 90)
		lonMin := bc.Center[0] - r
		lonMax := bc.Center[0] + r

		// A box spanning the full circumference would revisit wrapped cells
		// forever; clamp it to one pass over every longitude band.
		if lonMax-lonMin >= 360 {
			lonMin, lonMax = -180, 180-cellSizeDeg/2
		}

		seen := make(map[CellKey]bool)
		for lat := math.Floor(latMin/cellSizeDeg) * cellSizeDeg; lat <= latMax; lat += cellSizeDeg {
			for lon := math.Floor(lonMin/cellSizeDeg) * cellSizeDeg; lon <= lonMax; lon += cellSizeDeg {
				wrapped := lon
				for wrapped >= 180 {
					wrapped -= 360
				}
				for wrapped < -180 {
					wrapped += 360
				}
				key := cellOf(wrapped, lat)
				if seen[key] {
					continue
				}
				seen[key] = true
				idx.cells[key] = append(idx.cells[key], bc)
			}
		}
	}
	return idx
}

// Candidates returns the circles bucketed in the cell containing the point.
func (idx *SpatialIndex) Candidates(lon, lat float64) []*BoundingCircle {
	return idx.cells[cellOf(lon, lat)]
}

// CellCount returns the number of occupied cells.
func (idx *SpatialIndex) CellCount() int { return len(idx.cells) }
