package geo

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testWorld builds a small two-continent world with a polar landmass.
func testWorld() *WorldIndex {
	return BuildWorldIndex([]*Country{
		squareCountry("A", 0, 0, 10, 10),
		squareCountry("B", 20, 0, 30, 10),
		squareCountry("Antarctica", -179.9, -90, 179.9, -62),
	})
}

func TestClassify_Basic(t *testing.T) {
	cl := NewClassifier(testWorld())

	tests := []struct {
		name     string
		lon, lat float64
		want     string // empty means ocean
	}{
		{"inside A", 5, 5, "A"},
		{"inside B", 25, 5, "B"},
		{"gap between", 15, 5, ""},
		{"open ocean", -100, -20, ""},
		{"deep south", 30, -80, "Antarctica"},
		{"south near seam", 179, -75, "Antarctica"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := cl.Classify(tt.lon, tt.lat)
			if tt.want == "" {
				assert.Nil(t, got)
				return
			}
			require.NotNil(t, got)
			assert.Equal(t, tt.want, got.Name)
		})
	}
}

func TestClassify_InvalidInput(t *testing.T) {
	cl := NewClassifier(testWorld())

	assert.Nil(t, cl.Classify(math.NaN(), 5))
	assert.Nil(t, cl.Classify(5, math.NaN()))
	assert.Nil(t, cl.Classify(math.Inf(1), 5))
	assert.Nil(t, cl.Classify(5, 95))
	assert.Nil(t, cl.Classify(5, -95))
}

func TestClassify_WrapsLongitude(t *testing.T) {
	cl := NewClassifier(testWorld())

	// 365 degrees is the meridian through A.
	got := cl.Classify(365, 5)
	require.NotNil(t, got)
	assert.Equal(t, "A", got.Name)
}

func TestClassify_Deterministic(t *testing.T) {
	cl := NewClassifier(testWorld())

	for i := 0; i < 3; i++ {
		got := cl.Classify(5, 5)
		require.NotNil(t, got)
		assert.Equal(t, "A", got.Name)
		assert.Nil(t, cl.Classify(15, 5))
	}
}

func TestClassify_MatchesBruteForce(t *testing.T) {
	cl := NewClassifier(testWorld())

	// Sweep the globe and require the tiered pipeline to agree with exhaustive
	// containment everywhere.
	for lat := -88.0; lat <= 88; lat += 4 {
		for lon := -178.0; lon <= 178; lon += 4 {
			tiered := cl.Classify(lon, lat)
			brute := cl.ClassifyBrute(lon, lat)
			if brute == nil {
				assert.Nil(t, tiered, "(%v, %v)", lon, lat)
				continue
			}
			require.NotNil(t, tiered, "(%v, %v)", lon, lat)
			assert.Equal(t, brute.Name, tiered.Name, "(%v, %v)", lon, lat)
		}
	}
}

func TestClassify_AlaskaPath(t *testing.T) {
	// A country matching the USA override owns a dedicated seam circle; points
	// in the far northwest route through it.
	usa := squareCountry("United States of America", -125, 25, -66, 49)
	alaska := squareCountry("Alaska Extension", -178, 52, -130, 71)
	// Merge the Alaska geometry into the USA feature the way a multipolygon
	// topology would carry it.
	usa.Rings = append(usa.Rings, alaska.Rings...)

	w := BuildWorldIndex([]*Country{usa})
	require.NotEmpty(t, w.Alaska)

	cl := NewClassifier(w)
	got := cl.Classify(-160, 62)
	require.NotNil(t, got)
	assert.Equal(t, "United States of America", got.Name)
}

func TestClassify_USAAlaskaSplit(t *testing.T) {
	// One country, two detached landmasses: the contiguous block and an
	// Aleutian polygon hugging the seam. The mainland resolves through the
	// centroid circle and the islands through the dedicated seam circle, for
	// both native and wrap-equivalent longitudes.
	usa := squareCountry("United States of America", -125, 25, -66, 49)
	aleutians := squareRing(-175, 60, -170, 65)
	usa.Rings = append(usa.Rings, aleutians)

	w := BuildWorldIndex([]*Country{usa})
	require.NotEmpty(t, w.Alaska)

	cl := NewClassifier(w)

	tests := []struct {
		name     string
		lon, lat float64
		want     string
	}{
		{"mainland", -100, 40, "United States of America"},
		{"aleutians direct", -172, 62, "United States of America"},
		{"aleutians wrapped 185", 185, 62.5, "United States of America"},
		{"aleutians wrapped 187.5", 187.5, 62, "United States of America"},
		{"bering gap", -160, 62, ""},
		{"north pacific", -160, 40, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := cl.Classify(tt.lon, tt.lat)
			if tt.want == "" {
				assert.Nil(t, got)
				return
			}
			require.NotNil(t, got)
			assert.Equal(t, tt.want, got.Name)
		})
	}
}

func TestClassify_DebugCounters(t *testing.T) {
	cl := NewClassifier(testWorld())

	cl.Classify(5, 5)
	cl.Classify(-100, -20)

	d := cl.Debug()
	assert.Equal(t, int64(2), d.TotalChecks)
	assert.Greater(t, d.FullChecks, int64(0))

	cl.ResetDebug()
	assert.Equal(t, DebugInfo{}, cl.Debug())
}

func TestDebugInfo_Add(t *testing.T) {
	a := DebugInfo{TotalChecks: 1, CircleChecks: 2, FullChecks: 3, GridChecks: 4}
	a.Add(DebugInfo{TotalChecks: 10, CircleChecks: 20, FullChecks: 30, GridChecks: 40})
	assert.Equal(t, DebugInfo{TotalChecks: 11, CircleChecks: 22, FullChecks: 33, GridChecks: 44}, a)
}
