package projection

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNames(t *testing.T) {
	names := Names()
	assert.Equal(t, []string{
		"albers", "conicEquidistant", "equirectangular",
		"mercator", "orthographic", "sinusoidal",
	}, names)
}

func TestNew(t *testing.T) {
	for _, name := range Names() {
		p, err := New(name, 960, 500)
		require.NoError(t, err, name)
		assert.Equal(t, name, p.Name())
	}
}

func TestNew_Errors(t *testing.T) {
	_, err := New("bogus", 960, 500)
	assert.Error(t, err)

	_, err = New("mercator", 0, 500)
	assert.Error(t, err)

	_, err = New("mercator", 960, -1)
	assert.Error(t, err)
}

func TestEquirectangular_Invert(t *testing.T) {
	p, err := New("equirectangular", 360, 180)
	require.NoError(t, err)

	tests := []struct {
		name     string
		x, y     float64
		lon, lat float64
	}{
		{"center", 180, 90, 0, 0},
		{"west edge", 0, 90, -180, 0},
		{"top edge", 180, 0, 0, 90},
		{"lon 5 lat 5", 185, 85, 5, 5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			lon, lat, ok := p.Invert(tt.x, tt.y)
			require.True(t, ok)
			assert.InDelta(t, tt.lon, lon, 1e-9)
			assert.InDelta(t, tt.lat, lat, 1e-9)
		})
	}
}

func TestEquirectangular_OutOfViewport(t *testing.T) {
	p, _ := New("equirectangular", 360, 180)

	_, _, ok := p.Invert(-1, 90)
	assert.False(t, ok)
	_, _, ok = p.Invert(360, 90)
	assert.False(t, ok)
	_, _, ok = p.Invert(180, 180)
	assert.False(t, ok)
}

func TestMercator_Invert(t *testing.T) {
	p, err := New("mercator", 1000, 1000)
	require.NoError(t, err)

	// The viewport center is (0, 0).
	lon, lat, ok := p.Invert(500, 500)
	require.True(t, ok)
	assert.InDelta(t, 0, lon, 1e-9)
	assert.InDelta(t, 0, lat, 1e-9)

	// The top row approaches the conventional cutoff latitude.
	_, lat, ok = p.Invert(500, 0)
	require.True(t, ok)
	assert.InDelta(t, 85.051, lat, 0.01)

	// Latitude decreases monotonically down the viewport.
	_, latHigh, _ := p.Invert(500, 200)
	_, latLow, _ := p.Invert(500, 800)
	assert.Greater(t, latHigh, latLow)
}

func TestSinusoidal_Invert(t *testing.T) {
	p, err := New("sinusoidal", 720, 360)
	require.NoError(t, err)

	// Center of the map.
	lon, lat, ok := p.Invert(360, 180)
	require.True(t, ok)
	assert.InDelta(t, 0, lon, 1e-9)
	assert.InDelta(t, 0, lat, 1e-9)

	// On the equator the full width is in range.
	lon, _, ok = p.Invert(0, 180)
	require.True(t, ok)
	assert.InDelta(t, -180, lon, 1e-9)

	// Near the poles the outer columns fall off the lobe.
	_, _, ok = p.Invert(10, 10)
	assert.False(t, ok)

	// The pole row keeps only the central column.
	_, lat, ok = p.Invert(360, 0)
	require.True(t, ok)
	assert.InDelta(t, 90, lat, 1e-9)
	_, _, ok = p.Invert(300, 0)
	assert.False(t, ok)
}

func TestOrthographic_Invert(t *testing.T) {
	p, err := New("orthographic", 500, 500)
	require.NoError(t, err)

	// Disk center is the (0, 0) tangent point.
	lon, lat, ok := p.Invert(250, 250)
	require.True(t, ok)
	assert.InDelta(t, 0, lon, 1e-9)
	assert.InDelta(t, 0, lat, 1e-9)

	// The disk's east rim is the 90E meridian.
	lon, lat, ok = p.Invert(500, 250)
	require.True(t, ok)
	assert.InDelta(t, 90, lon, 1e-6)
	assert.InDelta(t, 0, lat, 1e-6)

	// Viewport corners are off the disk.
	_, _, ok = p.Invert(0, 0)
	assert.False(t, ok)
	_, _, ok = p.Invert(499, 499)
	assert.False(t, ok)
}

func TestAlbers_Invert(t *testing.T) {
	p, err := New("albers", 960, 500)
	require.NoError(t, err)

	// The central meridian column stays at longitude zero.
	lon, _, ok := p.Invert(480, 250)
	require.True(t, ok)
	assert.InDelta(t, 0, lon, 1e-9)

	// East of center maps to positive longitude.
	lon, _, ok = p.Invert(600, 250)
	require.True(t, ok)
	assert.Greater(t, lon, 0.0)

	// Latitude decreases moving down the central meridian.
	_, latHigh, ok1 := p.Invert(480, 150)
	_, latLow, ok2 := p.Invert(480, 350)
	require.True(t, ok1)
	require.True(t, ok2)
	assert.Greater(t, latHigh, latLow)
}

func TestConicEquidistant_Invert(t *testing.T) {
	p, err := New("conicEquidistant", 960, 500)
	require.NoError(t, err)

	lon, _, ok := p.Invert(480, 250)
	require.True(t, ok)
	assert.InDelta(t, 0, lon, 1e-9)

	_, latHigh, ok1 := p.Invert(480, 150)
	_, latLow, ok2 := p.Invert(480, 350)
	require.True(t, ok1)
	require.True(t, ok2)
	assert.Greater(t, latHigh, latLow)

	// West of center maps to negative longitude.
	lon, _, ok = p.Invert(300, 250)
	require.True(t, ok)
	assert.Less(t, lon, 0.0)
}
