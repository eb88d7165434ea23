// Package lookup precomputes a quantized pixel-to-country raster for a fixed
// projection and resolution, turning classification into an array read.
package lookup

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/FWeynschenk/dotsmap/internal/geo"
	"github.com/FWeynschenk/dotsmap/internal/projection"
)

// Progress notification cadence, in raster rows.
const progressRowInterval = 16

// Map is a built lookup raster. Data holds one entry per quantized pixel in
// row-major order: 0 for ocean, 1+country index otherwise. Immutable once
// built.
type Map struct {
	Data       []int16
	Width      int // source viewport width in pixels
	Height     int // source viewport height in pixels
	Resolution int // pixels per raster cell
	Projection string
}

// ProgressFunc receives build progress in percent [0, 100]. The builder
// always ends with a 100 notification on success.
type ProgressFunc func(percent float64)

// Build classifies every quantized pixel of the viewport through the
// projection and classifier. The classifier must not be shared with a
// concurrent caller.
func Build(ctx context.Context, cl *geo.Classifier, proj projection.Projection, width, height, resolution int, onProgress ProgressFunc) (*Map, error) {
	if width <= 0 || height <= 0 {
		return nil, eris.Errorf("lookup: invalid dimensions %dx%d", width, height)
	}
	if resolution < 1 {
		return nil, eris.Errorf("lookup: invalid resolution %d", resolution)
	}

	cols := (width + resolution - 1) / resolution
	rows := (height + resolution - 1) / resolution

	m := &Map{
		Data:       make([]int16, cols*rows),
		Width:      width,
		Height:     height,
		Resolution: resolution,
		Projection: proj.Name(),
	}

	for row := 0; row < rows; row++ {
		if err := ctx.Err(); err != nil {
			return nil, eris.Wrap(err, "lookup: build canceled")
		}
		y := float64(row * resolution)
		for col := 0; col < cols; col++ {
			x := float64(col * resolution)
			lon, lat, ok := proj.Invert(x, y)
			if !ok {
				continue
			}
			if c := cl.Classify(lon, lat); c != nil {
				m.Data[row*cols+col] = int16(1 + c.Index)
			}
		}
		if onProgress != nil && (row%progressRowInterval == 0 || row == rows-1) {
			onProgress(float64(row+1) / float64(rows) * 100)
		}
	}

	zap.L().Debug("lookup: map built",
		zap.String("projection", proj.Name()),
		zap.Int("cols", cols),
		zap.Int("rows", rows),
		zap.Int("resolution", resolution),
	)
	return m, nil
}

// Matches reports whether the map can serve a query with the given viewport.
func (m *Map) Matches(width, height int, projectionName string) bool {
	return m != nil && m.Width == width && m.Height == height && m.Projection == projectionName
}

// CountryIndex returns the raster value for a screen point: -1 outside the
// raster, 0 for ocean, 1+country index otherwise.
func (m *Map) CountryIndex(x, y float64) int {
	if x < 0 || y < 0 || x >= float64(m.Width) || y >= float64(m.Height) {
		return -1
	}
	cols := (m.Width + m.Resolution - 1) / m.Resolution
	col := int(x) / m.Resolution
	row := int(y) / m.Resolution
	return int(m.Data[row*cols+col])
}

// Clone copies the raster so another worker can hold its own map.
func (m *Map) Clone() *Map {
	if m == nil {
		return nil
	}
	data := make([]int16, len(m.Data))
	copy(data, m.Data)
	return &Map{
		Data:       data,
		Width:      m.Width,
		Height:     m.Height,
		Resolution: m.Resolution,
		Projection: m.Projection,
	}
}
