package geo

import "math"

// RegionType names the hand-tuned special regions.
type RegionType string

const (
	RegionNone       RegionType = ""
	RegionRussia     RegionType = "russia"
	RegionUSAMain    RegionType = "usa-main"
	RegionUSAAlaska  RegionType = "usa-alaska"
	RegionAntarctica RegionType = "antarctica"
)

// BoundingCircle is an approximate enclosing disk for a country: a center and
// a geodesic radius in radians. Circles only over-include; the exact
// containment test corrects before a final answer is returned. A country may
// own several circles (the USA owns two); the circle holds the back-reference
// so no reference cycle exists.
type BoundingCircle struct {
	Country             *Country
	Center              [2]float64 // [lon, lat] degrees
	Radius              float64    // radians
	IsPolar             bool
	CrossesAntimeridian bool
	IsSpecialRegion     bool
	RegionType          RegionType
}

// RadiusDegrees returns the circle radius as a surface angle in degrees.
func (bc *BoundingCircle) RadiusDegrees() float64 {
	return bc.Radius * 180 / math.Pi
}

// Contains reports whether the point lies within the circle's geodesic
// radius. Unreliable for polar or antimeridian-crossing circles; the
// classifier skips the prefilter for those.
func (bc *BoundingCircle) Contains(lon, lat float64) bool {
	return Haversine(lon, lat, bc.Center[0], bc.Center[1]) <= bc.Radius
}

func degToRad(deg float64) float64 { return deg * math.Pi / 180 }

// regionOverride maps a centroid predicate to a fixed circle set. The
// predicates are tuned to one specific world topology's coordinate
// conventions; they are configuration for that dataset, not general
// geography, and must be re-derived before reuse with other data.
type regionOverride struct {
	region  RegionType
	matches func(lon, lat float64) bool
	circles func(c *Country) []*BoundingCircle
}

// regionOverrides is checked in order during circle derivation; the first
// matching entry wins and replaces the sampling-based derivation entirely.
var regionOverrides = []regionOverride{
	{
		region:  RegionAntarctica,
		matches: func(_, lat float64) bool { return lat < -60 },
		circles: func(c *Country) []*BoundingCircle {
			return []*BoundingCircle{{
				Country:             c,
				Center:              [2]float64{0, -90},
				Radius:              degToRad(72),
				IsPolar:             true,
				CrossesAntimeridian: true,
				IsSpecialRegion:     true,
				RegionType:          RegionAntarctica,
			}}
		},
	},
	{
		region: RegionRussia,
		matches: func(lon, lat float64) bool {
			return lat > 50 && lon >= 60 && lon <= 180
		},
		circles: func(c *Country) []*BoundingCircle {
			return []*BoundingCircle{{
				Country:             c,
				Center:              [2]float64{100, 65},
				Radius:              degToRad(72),
				IsPolar:             true,
				CrossesAntimeridian: true,
				IsSpecialRegion:     true,
				RegionType:          RegionRussia,
			}}
		},
	},
	{
		region: RegionUSAMain,
		matches: func(lon, lat float64) bool {
			return lat > 30 && lon >= -180 && lon <= -30
		},
		circles: func(c *Country) []*BoundingCircle {
			return []*BoundingCircle{
				{
					Country:         c,
					Center:          c.Centroid,
					Radius:          degToRad(45),
					IsSpecialRegion: true,
					RegionType:      RegionUSAMain,
				},
				{
					Country:             c,
					Center:              [2]float64{-170, 65},
					Radius:              degToRad(51.4),
					IsPolar:             true,
					CrossesAntimeridian: true,
					IsSpecialRegion:     true,
					RegionType:          RegionUSAAlaska,
				},
			}
		},
	},
}
