package topo

import (
	"testing"

	shp "github.com/jonas-p/go-shp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestShapeToMultiPolygon_SingleRing(t *testing.T) {
	poly := &shp.Polygon{
		NumParts: 1,
		Parts:    []int32{0},
		Points: []shp.Point{
			{X: 0, Y: 0},
			{X: 10, Y: 0},
			{X: 10, Y: 10},
			{X: 0, Y: 10},
			{X: 0, Y: 0},
		},
	}

	mp := shapeToMultiPolygon(poly)
	require.NotNil(t, mp)
	assert.Equal(t, 1, mp.NumPolygons())
	assert.Equal(t, 4326, mp.SRID())

	rings := multiPolygonRings(mp)
	require.Len(t, rings, 1)
	require.Len(t, rings[0], 5)
	assert.Equal(t, [2]float64{10, 10}, rings[0][2])
}

func TestShapeToMultiPolygon_MultipleParts(t *testing.T) {
	poly := &shp.Polygon{
		NumParts: 2,
		Parts:    []int32{0, 5},
		Points: []shp.Point{
			{X: 0, Y: 0},
			{X: 10, Y: 0},
			{X: 10, Y: 10},
			{X: 0, Y: 10},
			{X: 0, Y: 0},

			{X: 20, Y: 0},
			{X: 25, Y: 0},
			{X: 25, Y: 5},
			{X: 20, Y: 5},
			{X: 20, Y: 0},
		},
	}

	mp := shapeToMultiPolygon(poly)
	require.NotNil(t, mp)
	assert.Equal(t, 2, mp.NumPolygons())

	rings := multiPolygonRings(mp)
	require.Len(t, rings, 2)
	assert.Equal(t, [2]float64{20, 0}, rings[1][0])
}

func TestShapeToMultiPolygon_Empty(t *testing.T) {
	assert.Nil(t, shapeToMultiPolygon(nil))
	assert.Nil(t, shapeToMultiPolygon(&shp.Polygon{}))
	assert.Nil(t, shapeToMultiPolygon(&shp.Polygon{NumParts: 1, Parts: []int32{0}}))
}

func TestLoadShapefile_MissingFile(t *testing.T) {
	_, err := LoadShapefile("/nonexistent/countries.shp", "NAME")
	assert.Error(t, err)
}
