// Package topo loads country topologies into the engine's geometry model.
// Two source formats are supported: GeoJSON feature collections and ESRI
// shapefiles.
package topo

import (
	"os"

	geojson "github.com/paulmach/go.geojson"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/text/cases"

	"github.com/FWeynschenk/dotsmap/internal/geo"
)

// LoadGeoJSONFile reads a GeoJSON feature collection from disk.
func LoadGeoJSONFile(path string) ([]*geo.Country, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "topo: read %s", path)
	}
	return LoadGeoJSON(data)
}

// LoadGeoJSON parses a feature collection into countries. Features must be
// Polygon or MultiPolygon with a unique properties.name; other geometry types
// are skipped with a warning.
func LoadGeoJSON(data []byte) ([]*geo.Country, error) {
	fc, err := geojson.UnmarshalFeatureCollection(data)
	if err != nil {
		return nil, eris.Wrap(err, "topo: unmarshal feature collection")
	}

	var countries []*geo.Country
	for i, f := range fc.Features {
		if f.Geometry == nil {
			continue
		}
		name, err := f.PropertyString("name")
		if err != nil || name == "" {
			return nil, eris.Errorf("topo: feature %d has no name property", i)
		}

		var rings []geo.Ring
		switch {
		case f.Geometry.IsPolygon():
			rings = polygonRings(f.Geometry.Polygon)
		case f.Geometry.IsMultiPolygon():
			for _, poly := range f.Geometry.MultiPolygon {
				rings = append(rings, polygonRings(poly)...)
			}
		default:
			zap.L().Warn("topo: skipping unsupported geometry",
				zap.String("name", name),
				zap.String("type", string(f.Geometry.Type)),
			)
			continue
		}
		if len(rings) == 0 {
			continue
		}
		countries = append(countries, &geo.Country{Name: name, Rings: rings})
	}

	if err := validateNames(countries); err != nil {
		return nil, err
	}

	zap.L().Info("topo: loaded GeoJSON topology", zap.Int("countries", len(countries)))
	return countries, nil
}

// polygonRings converts GeoJSON polygon coordinates (outer ring followed by
// holes) into the engine's ring representation.
func polygonRings(poly [][][]float64) []geo.Ring {
	rings := make([]geo.Ring, 0, len(poly))
	for _, raw := range poly {
		if len(raw) < 3 {
			continue
		}
		ring := make(geo.Ring, len(raw))
		for i, pt := range raw {
			if len(pt) < 2 {
				return nil
			}
			ring[i] = [2]float64{pt[0], pt[1]}
		}
		rings = append(rings, ring)
	}
	return rings
}

// validateNames enforces case-fold uniqueness of country names: the name is
// the classification result key, so "Chad" and "CHAD" colliding would merge
// two features silently.
func validateNames(countries []*geo.Country) error {
	fold := cases.Fold()
	seen := make(map[string]string, len(countries))
	for _, c := range countries {
		folded := fold.String(c.Name)
		if prev, ok := seen[folded]; ok {
			return eris.Errorf("topo: duplicate country name %q (conflicts with %q)", c.Name, prev)
		}
		seen[folded] = c.Name
	}
	return nil
}
