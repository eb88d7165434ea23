// Package projection provides the fixed set of invertible map projections the
// engine samples through. Each instance is bound to a viewport: screen
// coordinates in [0,width) x [0,height) map to the full globe.
package projection

import (
	"math"
	"sort"

	"github.com/rotisserie/eris"
)

// Projection inverts screen coordinates to geographic degrees.
type Projection interface {
	Name() string
	// Invert maps a screen point to [lon, lat] degrees. ok is false when the
	// point falls outside the projection outline (e.g. off the orthographic
	// disk), in which case the sample is excluded from results.
	Invert(x, y float64) (lon, lat float64, ok bool)
}

type factory func(width, height int) Projection

var registry = map[string]factory{
	"equirectangular":  newEquirectangular,
	"mercator":         newMercator,
	"sinusoidal":       newSinusoidal,
	"orthographic":     newOrthographic,
	"albers":           newAlbers,
	"conicEquidistant": newConicEquidistant,
}

// Names returns the supported projection names, sorted.
func Names() []string {
	names := make([]string, 0, len(registry))
	for n := range registry {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// New instantiates a named projection for a viewport.
func New(name string, width, height int) (Projection, error) {
	f, ok := registry[name]
	if !ok {
		return nil, eris.Errorf("projection: unknown projection %q", name)
	}
	if width <= 0 || height <= 0 {
		return nil, eris.Errorf("projection: invalid viewport %dx%d", width, height)
	}
	return f(width, height), nil
}

func inRange(lon, lat float64) bool {
	return lon >= -180 && lon <= 180 && lat >= -90 && lat <= 90
}

// equirectangular: linear in both axes.
type equirectangular struct{ w, h float64 }

func newEquirectangular(w, h int) Projection {
	return &equirectangular{float64(w), float64(h)}
}

func (p *equirectangular) Name() string { return "equirectangular" }

func (p *equirectangular) Invert(x, y float64) (float64, float64, bool) {
	if x < 0 || x >= p.w || y < 0 || y >= p.h {
		return 0, 0, false
	}
	lon := x/p.w*360 - 180
	lat := 90 - y/p.h*180
	return lon, lat, true
}

// mercator: linear longitude, Gudermannian latitude. The viewport spans the
// conventional +/-85.051 degree square.
type mercator struct{ w, h float64 }

func newMercator(w, h int) Projection { return &mercator{float64(w), float64(h)} }

func (p *mercator) Name() string { return "mercator" }

func (p *mercator) Invert(x, y float64) (float64, float64, bool) {
	if x < 0 || x >= p.w || y < 0 || y >= p.h {
		return 0, 0, false
	}
	lon := x/p.w*360 - 180
	// y spans [-pi, pi] in projected space.
	my := math.Pi * (1 - 2*y/p.h)
	lat := math.Atan(math.Sinh(my)) * 180 / math.Pi
	return lon, lat, true
}

// sinusoidal: equal-area pseudocylindrical; rows shrink with cos(lat).
type sinusoidal struct{ w, h float64 }

func newSinusoidal(w, h int) Projection { return &sinusoidal{float64(w), float64(h)} }

func (p *sinusoidal) Name() string { return "sinusoidal" }

func (p *sinusoidal) Invert(x, y float64) (float64, float64, bool) {
	if x < 0 || x >= p.w || y < 0 || y >= p.h {
		return 0, 0, false
	}
	lat := 90 - y/p.h*180
	cos := math.Cos(lat * math.Pi / 180)
	if cos <= 0 {
		// The poles collapse to a single column.
		if math.Abs(x-p.w/2) < 0.5 {
			return 0, lat, true
		}
		return 0, 0, false
	}
	lon := (x - p.w/2) / (p.w / 360) / cos
	if !inRange(lon, lat) {
		return 0, 0, false
	}
	return lon, lat, true
}

// orthographic: the visible hemisphere centered on (0, 0), drawn as a disk
// inscribed in the viewport.
type orthographic struct {
	w, h float64
	r    float64
}

func newOrthographic(w, h int) Projection {
	fw, fh := float64(w), float64(h)
	return &orthographic{w: fw, h: fh, r: math.Min(fw, fh) / 2}
}

func (p *orthographic) Name() string { return "orthographic" }

func (p *orthographic) Invert(x, y float64) (float64, float64, bool) {
	dx := (x - p.w/2) / p.r
	dy := (p.h/2 - y) / p.r
	rho := math.Sqrt(dx*dx + dy*dy)
	if rho > 1 {
		return 0, 0, false
	}
	if rho == 0 {
		return 0, 0, true
	}
	c := math.Asin(rho)
	sinC, cosC := math.Sin(c), math.Cos(c)
	lat := math.Asin(dy * sinC / rho)
	lon := math.Atan2(dx*sinC, rho*cosC)
	return lon * 180 / math.Pi, lat * 180 / math.Pi, true
}

// conic projections share a viewport-to-plane transform: projected units are
// scaled so the full longitude range fits the viewport width.
type conicPlane struct{ w, h, scale float64 }

func newConicPlane(w, h int) conicPlane {
	fw, fh := float64(w), float64(h)
	return conicPlane{w: fw, h: fh, scale: fw / (2 * math.Pi)}
}

func (cp conicPlane) toPlane(x, y float64) (px, py float64) {
	return (x - cp.w/2) / cp.scale, (cp.h/2 - y) / cp.scale
}

// albers: conic equal-area with standard parallels 20N and 50N.
type albers struct {
	conicPlane
	n, c, rho0 float64
}

func newAlbers(w, h int) Projection {
	phi1 := 20 * math.Pi / 180
	phi2 := 50 * math.Pi / 180
	n := (math.Sin(phi1) + math.Sin(phi2)) / 2
	c := math.Cos(phi1)*math.Cos(phi1) + 2*n*math.Sin(phi1)
	rho0 := math.Sqrt(c) / n // phi0 = 0
	return &albers{conicPlane: newConicPlane(w, h), n: n, c: c, rho0: rho0}
}

func (p *albers) Name() string { return "albers" }

func (p *albers) Invert(x, y float64) (float64, float64, bool) {
	px, py := p.toPlane(x, y)
	dy := p.rho0 - py
	rho := math.Sqrt(px*px + dy*dy)
	if rho == 0 {
		return 0, 90, true
	}
	sinArg := (p.c - rho*rho*p.n*p.n) / (2 * p.n)
	if sinArg < -1 || sinArg > 1 {
		return 0, 0, false
	}
	lat := math.Asin(sinArg) * 180 / math.Pi
	theta := math.Atan2(px, dy)
	lon := theta / p.n * 180 / math.Pi
	if !inRange(lon, lat) {
		return 0, 0, false
	}
	return lon, lat, true
}

// conicEquidistant: standard parallels 20N and 60N.
type conicEquidistant struct {
	conicPlane
	n, g float64
}

func newConicEquidistant(w, h int) Projection {
	phi1 := 20 * math.Pi / 180
	phi2 := 60 * math.Pi / 180
	n := (math.Cos(phi1) - math.Cos(phi2)) / (phi2 - phi1)
	g := math.Cos(phi1)/n + phi1
	return &conicEquidistant{conicPlane: newConicPlane(w, h), n: n, g: g}
}

func (p *conicEquidistant) Name() string { return "conicEquidistant" }

func (p *conicEquidistant) Invert(x, y float64) (float64, float64, bool) {
	px, py := p.toPlane(x, y)
	dy := p.g - py
	rho := math.Sqrt(px*px + dy*dy)
	if p.n < 0 {
		rho = -rho
	}
	lat := (p.g - rho) * 180 / math.Pi
	theta := math.Atan2(px, dy)
	lon := theta / p.n * 180 / math.Pi
	if !inRange(lon, lat) {
		return 0, 0, false
	}
	return lon, lat, true
}
