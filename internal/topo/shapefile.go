package topo

import (
	"strings"

	shp "github.com/jonas-p/go-shp"
	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"go.uber.org/zap"

	geomodel "github.com/FWeynschenk/dotsmap/internal/geo"
)

// LoadShapefile reads countries from an ESRI shapefile, taking the country
// name from the given attribute field. Shapes are converted through go-geom
// multipolygons before flattening into the engine's ring model.
func LoadShapefile(path, nameField string) ([]*geomodel.Country, error) {
	reader, err := shp.Open(path)
	if err != nil {
		return nil, eris.Wrapf(err, "topo: open shapefile %s", path)
	}
	defer func() { _ = reader.Close() }()

	nameIdx := fieldIndex(reader, nameField)
	if nameIdx < 0 {
		return nil, eris.Errorf("topo: shapefile field %q not found", nameField)
	}

	var countries []*geomodel.Country
	for reader.Next() {
		_, shape := reader.Shape()
		poly, ok := shape.(*shp.Polygon)
		if !ok {
			continue
		}

		name := strings.TrimSpace(reader.Attribute(nameIdx))
		if name == "" {
			continue
		}

		mp := shapeToMultiPolygon(poly)
		if mp == nil {
			zap.L().Warn("topo: skipping malformed shapefile record", zap.String("name", name))
			continue
		}

		countries = append(countries, &geomodel.Country{
			Name:  name,
			Rings: multiPolygonRings(mp),
		})
	}

	if err := validateNames(countries); err != nil {
		return nil, err
	}

	zap.L().Info("topo: loaded shapefile topology",
		zap.String("path", path),
		zap.Int("countries", len(countries)),
	)
	return countries, nil
}

// shapeToMultiPolygon converts a shapefile Polygon into a geom.MultiPolygon.
// Each part becomes one single-ring polygon; malformed parts are skipped.
func shapeToMultiPolygon(p *shp.Polygon) *geom.MultiPolygon {
	if p == nil || p.NumParts == 0 || len(p.Points) == 0 {
		return nil
	}

	mp := geom.NewMultiPolygon(geom.XY).SetSRID(4326)
	for i := int32(0); i < p.NumParts; i++ {
		start := p.Parts[i]
		end := int32(len(p.Points))
		if i+1 < p.NumParts {
			end = p.Parts[i+1]
		}

		flat := make([]float64, 0, (end-start)*2)
		for j := start; j < end; j++ {
			flat = append(flat, p.Points[j].X, p.Points[j].Y)
		}

		ring := geom.NewLinearRingFlat(geom.XY, flat)
		poly := geom.NewPolygon(geom.XY)
		if err := poly.Push(ring); err != nil {
			zap.L().Debug("topo: skipping malformed shapefile ring", zap.Int32("part", i), zap.Error(err))
			continue
		}
		if err := mp.Push(poly); err != nil {
			zap.L().Debug("topo: skipping malformed shapefile part", zap.Int32("part", i), zap.Error(err))
			continue
		}
	}

	if mp.NumPolygons() == 0 {
		return nil
	}
	return mp
}

// multiPolygonRings flattens every ring of every polygon into the engine's
// ring set.
func multiPolygonRings(mp *geom.MultiPolygon) []geomodel.Ring {
	var rings []geomodel.Ring
	for i := 0; i < mp.NumPolygons(); i++ {
		poly := mp.Polygon(i)
		for j := 0; j < poly.NumLinearRings(); j++ {
			coords := poly.LinearRing(j).Coords()
			ring := make(geomodel.Ring, len(coords))
			for k, c := range coords {
				ring[k] = [2]float64{c[0], c[1]}
			}
			rings = append(rings, ring)
		}
	}
	return rings
}

// fieldIndex returns the index of a named attribute field, or -1.
func fieldIndex(reader *shp.Reader, name string) int {
	for i, f := range reader.Fields() {
		if strings.EqualFold(strings.TrimRight(f.String(), "\x00"), name) {
			return i
		}
	}
	return -1
}
