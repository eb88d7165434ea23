package geo

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCellOf(t *testing.T) {
	tests := []struct {
		name     string
		lon, lat float64
		want     CellKey
	}{
		{"origin", 0, 0, CellKey{Lat: 0, Lon: 0}},
		{"positive", 15, 25, CellKey{Lat: 2, Lon: 1}},
		{"negative floors down", -5, -5, CellKey{Lat: -1, Lon: -1}},
		{"west edge", -180, 0, CellKey{Lat: 0, Lon: -18}},
		{"near south pole", 0, -89.9, CellKey{Lat: -9, Lon: 0}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, cellOf(tt.lon, tt.lat))
		})
	}
}

func TestBuildSpatialIndex_CandidateRetrieval(t *testing.T) {
	c := squareCountry("A", 0, 0, 10, 10)
	Normalize([]*Country{c})
	circles := DeriveCircles(c)

	idx := BuildSpatialIndex(circles)

	// The centroid cell and its circle-covered neighborhood return the circle.
	cands := idx.Candidates(c.Centroid[0], c.Centroid[1])
	require.Len(t, cands, 1)
	assert.Same(t, circles[0], cands[0])

	// A cell far outside the circle's box is empty.
	assert.Empty(t, idx.Candidates(120, -50))
}

func TestBuildSpatialIndex_AntimeridianDuplication(t *testing.T) {
	// A circle centered at the seam must appear in cells on both sides.
	bc := &BoundingCircle{
		Country: squareCountry("Seam", 170, 0, 180, 10),
		Center:  [2]float64{178, 5},
		Radius:  degToRad(15),
	}

	idx := BuildSpatialIndex([]*BoundingCircle{bc})

	assert.NotEmpty(t, idx.Candidates(175, 5), "east of the seam")
	assert.NotEmpty(t, idx.Candidates(-175, 5), "west of the seam, reached by wrap")
}

func TestBuildSpatialIndex_FullWrapGuard(t *testing.T) {
	// A radius spanning the whole globe in longitude occupies each lon band
	// exactly once instead of looping.
	bc := &BoundingCircle{
		Country: squareCountry("Polar", -180, -90, 180, -60),
		Center:  [2]float64{0, -90},
		Radius:  degToRad(200),
	}

	idx := BuildSpatialIndex([]*BoundingCircle{bc})

	for lon := -175.0; lon < 180; lon += 10 {
		cands := idx.Candidates(lon, -85)
		assert.Len(t, cands, 1, "lon %v", lon)
	}
}

func TestBuildSpatialIndex_LatitudeClamp(t *testing.T) {
	bc := &BoundingCircle{
		Country: squareCountry("North", -10, 80, 10, 89),
		Center:  [2]float64{0, 85},
		Radius:  degToRad(20),
	}

	idx := BuildSpatialIndex([]*BoundingCircle{bc})

	// No cell above the pole.
	for key := range idx.cells {
		assert.LessOrEqual(t, key.Lat, 9)
	}
	assert.NotEmpty(t, idx.Candidates(0, 89))
}
