package seeder

import (
	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/gisquick/tilecache/internal/grid"
)

// Ring is a closed polygon ring: points[0] == points[len-1] is not required,
// the filter closes it implicitly.
type Ring []Point

type Point struct{ X, Y float64 }

// GeometryFilterMode controls how boundary-only contacts are treated (spec §4.9.4).
type GeometryFilterMode int

const (
	Intersects GeometryFilterMode = iota
	IntersectsAndNotTouches
)

// GeometryFilter tests a metatile's bounding box against region polygons
// (spec §4.9.4). No example in the retrieved pack carries a geometry
// library (go.mod surveys turned up none — see DESIGN.md), so this is a
// deliberate stdlib-only component: a standard bbox/point-in-polygon test
// is simple enough that pulling in a full geometry stack would be the
// unidiomatic choice here, not the idiomatic one.
type GeometryFilter struct {
	Rings []Ring
	Mode  GeometryFilterMode

	// cache memoizes Test's bbox->verdict lookups, since drill-down
	// recursion retests overlapping regions at every zoom level; pattern
	// grounded on the geocode result cache in the retrieved osmmcp example.
	cache *lru.Cache[gridExtentKey, bool]
}

type gridExtentKey grid.Extent

// NewGeometryFilter builds a filter over rings, with a bounded memoization
// cache sized for a few thousand recently tested extents.
func NewGeometryFilter(rings []Ring, mode GeometryFilterMode) *GeometryFilter {
	c, _ := lru.New[gridExtentKey, bool](4096)
	return &GeometryFilter{Rings: rings, Mode: mode, cache: c}
}

// Test reports whether ext should be kept, per Mode.
func (f *GeometryFilter) Test(ext grid.Extent) bool {
	if f == nil || len(f.Rings) == 0 {
		return true
	}
	key := gridExtentKey(ext)
	if f.cache != nil {
		if v, ok := f.cache.Get(key); ok {
			return v
		}
	}
	verdict := f.test(ext)
	if f.cache != nil {
		f.cache.Add(key, verdict)
	}
	return verdict
}

func (f *GeometryFilter) test(ext grid.Extent) bool {
	for _, ring := range f.Rings {
		switch f.Mode {
		case IntersectsAndNotTouches:
			if rectStrictlyIntersectsRing(ext, ring) {
				return true
			}
		default:
			if rectIntersectsRing(ext, ring) {
				return true
			}
		}
	}
	return false
}

// rectIntersectsRing reports whether the rectangle ext shares any area with
// ring: either a ring vertex falls inside the rectangle, a rectangle corner
// falls inside the ring, or an edge of one crosses an edge of the other.
func rectIntersectsRing(ext grid.Extent, ring Ring) bool {
	if len(ring) < 3 {
		return false
	}
	for _, p := range ring {
		if pointInRect(p, ext) {
			return true
		}
	}
	corners := rectCorners(ext)
	for _, c := range corners {
		if pointInRing(c, ring) {
			return true
		}
	}
	rectEdges := [][2]Point{
		{corners[0], corners[1]}, {corners[1], corners[2]},
		{corners[2], corners[3]}, {corners[3], corners[0]},
	}
	for i := range ring {
		a := ring[i]
		b := ring[(i+1)%len(ring)]
		for _, re := range rectEdges {
			if segmentsIntersect(a, b, re[0], re[1]) {
				return true
			}
		}
	}
	return false
}

// rectStrictlyIntersectsRing additionally requires the overlap not be a
// pure boundary touch: the rectangle's center-ish interior must actually
// cross into the ring, not merely share an edge or a single point.
func rectStrictlyIntersectsRing(ext grid.Extent, ring Ring) bool {
	if !rectIntersectsRing(ext, ring) {
		return false
	}
	cx := (ext[0] + ext[2]) / 2
	cy := (ext[1] + ext[3]) / 2
	if pointInRing(Point{cx, cy}, ring) {
		return true
	}
	// Degenerate to a coarse sampling to tell touching from crossing when
	// the center itself is outside (e.g. a thin sliver of overlap).
	samples := []Point{
		{ext[0] + (ext[2]-ext[0])*0.25, ext[1] + (ext[3]-ext[1])*0.25},
		{ext[0] + (ext[2]-ext[0])*0.75, ext[1] + (ext[3]-ext[1])*0.25},
		{ext[0] + (ext[2]-ext[0])*0.25, ext[1] + (ext[3]-ext[1])*0.75},
		{ext[0] + (ext[2]-ext[0])*0.75, ext[1] + (ext[3]-ext[1])*0.75},
	}
	for _, s := range samples {
		if pointInRing(s, ring) {
			return true
		}
	}
	return false
}

func rectCorners(ext grid.Extent) [4]Point {
	return [4]Point{
		{ext[0], ext[1]}, {ext[2], ext[1]}, {ext[2], ext[3]}, {ext[0], ext[3]},
	}
}

func pointInRect(p Point, ext grid.Extent) bool {
	return p.X >= ext[0] && p.X <= ext[2] && p.Y >= ext[1] && p.Y <= ext[3]
}

// pointInRing implements the standard ray-casting point-in-polygon test.
func pointInRing(p Point, ring Ring) bool {
	inside := false
	n := len(ring)
	for i, j := 0, n-1; i < n; j, i = i, i+1 {
		pi, pj := ring[i], ring[j]
		if (pi.Y > p.Y) != (pj.Y > p.Y) {
			xint := (pj.X-pi.X)*(p.Y-pi.Y)/(pj.Y-pi.Y) + pi.X
			if p.X < xint {
				inside = !inside
			}
		}
	}
	return inside
}

func segmentsIntersect(p1, p2, p3, p4 Point) bool {
	d1 := cross(p3, p4, p1)
	d2 := cross(p3, p4, p2)
	d3 := cross(p1, p2, p3)
	d4 := cross(p1, p2, p4)
	if ((d1 > 0 && d2 < 0) || (d1 < 0 && d2 > 0)) &&
		((d3 > 0 && d4 < 0) || (d3 < 0 && d4 > 0)) {
		return true
	}
	return false
}

func cross(a, b, c Point) float64 {
	return (b.X-a.X)*(c.Y-a.Y) - (b.Y-a.Y)*(c.X-a.X)
}
