package grid

import "github.com/gisquick/tilecache/internal/ctxerr"

// OutOfZoomStrategy controls behavior above MaxCachedZoom (spec §3.2).
type OutOfZoomStrategy int

const (
	OutOfZoomNotConfigured OutOfZoomStrategy = iota
	OutOfZoomReassemble
	OutOfZoomProxy
)

// Link binds a tileset to a Grid: its effective zoom window, optional
// max-cached-zoom strategy, and per-level cached limit rectangles.
type Link struct {
	Grid            *Grid
	MinZ            int
	MaxZ            int // exclusive upper bound, per spec §3.2
	MaxCachedZoom   int // -1 means unset
	OutOfZoom       OutOfZoomStrategy
	GridLimits      []Extent // in tile-index space, one per level: (minx,miny,maxx,maxy)
}

// TileLimits is the tile-index rectangle of a level: [minx,miny,maxx,maxy)
// with maxx/maxy exclusive, matching the grid's native level MaxX/MaxY.
type TileLimits [4]int

// ComputeLimits clips restriction (in grid units, or nil for the grid's
// full extent) to the grid and snaps it to tile boundaries at every level,
// using tolerance as the fractional epsilon of spec §4.1.
func ComputeLimits(g *Grid, restriction *Extent, tolerance float64) ([]TileLimits, error) {
	if tolerance <= 0 {
		tolerance = epsilonFraction
	}
	out := make([]TileLimits, g.NLevels())
	for z, lvl := range g.Levels {
		ext := g.Extent
		if restriction != nil {
			ext = clip(*restriction, g.Extent)
		}
		res := lvl.Resolution
		tileW := float64(g.TileSX) * res
		tileH := float64(g.TileSY) * res

		minx := int(floorEps((ext[0]-g.Extent[0])/tileW, tolerance))
		miny := int(floorEps((ext[1]-g.Extent[1])/tileH, tolerance))
		maxx := int(ceilEps((ext[2]-g.Extent[0])/tileW, tolerance))
		maxy := int(ceilEps((ext[3]-g.Extent[1])/tileH, tolerance))

		if minx < 0 {
			minx = 0
		}
		if miny < 0 {
			miny = 0
		}
		if maxx > lvl.MaxX {
			maxx = lvl.MaxX
		}
		if maxy > lvl.MaxY {
			maxy = lvl.MaxY
		}
		if maxx < minx {
			maxx = minx
		}
		if maxy < miny {
			maxy = miny
		}
		out[z] = TileLimits{minx, miny, maxx, maxy}
	}
	return out, nil
}

func clip(a, b Extent) Extent {
	r := a
	if r[0] < b[0] {
		r[0] = b[0]
	}
	if r[1] < b[1] {
		r[1] = b[1]
	}
	if r[2] > b[2] {
		r[2] = b[2]
	}
	if r[3] > b[3] {
		r[3] = b[3]
	}
	return r
}

// floorEps/ceilEps implement the "1% epsilon" tile-boundary convention: a
// value within tolerance of an integer snaps to that integer rather than
// overshooting to the adjacent tile, per spec §4.1.
func floorEps(v, tolerance float64) float64 {
	r := roundIfClose(v, tolerance)
	return float64(int(r))
}

func ceilEps(v, tolerance float64) float64 {
	r := roundIfClose(v, tolerance)
	i := int(r)
	if float64(i) < r {
		i++
	}
	return float64(i)
}

func roundIfClose(v, tolerance float64) float64 {
	nearest := float64(int(v + 0.5))
	if v > nearest {
		nearest = float64(int(v))
		if v-nearest < tolerance {
			return nearest
		}
		return v
	}
	if nearest-v < tolerance {
		return nearest
	}
	return v
}

// NewLink builds a grid link and precomputes its cached limits.
func NewLink(g *Grid, minz, maxz, maxCachedZoom int, strategy OutOfZoomStrategy, restriction *Extent, tolerance float64) (*Link, error) {
	if minz < 0 || maxz > g.NLevels() || minz >= maxz {
		return nil, ctxerr.InvalidArgument("grid link %q: invalid zoom window [%d,%d)", g.Name, minz, maxz)
	}
	limits, err := ComputeLimits(g, restriction, tolerance)
	if err != nil {
		return nil, err
	}
	extents := make([]Extent, len(limits))
	for i, l := range limits {
		extents[i] = Extent{float64(l[0]), float64(l[1]), float64(l[2]), float64(l[3])}
	}
	return &Link{
		Grid:          g,
		MinZ:          minz,
		MaxZ:          maxz,
		MaxCachedZoom: maxCachedZoom,
		OutOfZoom:     strategy,
		GridLimits:    extents,
	}, nil
}

func (l *Link) LimitsAt(z int) TileLimits {
	e := l.GridLimits[z]
	return TileLimits{int(e[0]), int(e[1]), int(e[2]), int(e[3])}
}

// SnapToMetatiles rounds every level's limits outward to a multiple of the
// tileset's metasize, the seeder-specific refinement of spec §4.1 ("after
// limits are computed the seeder further snaps each level's rectangle to a
// multiple of the tileset's metasize").
func (l *Link) SnapToMetatiles(metaX, metaY int) []TileLimits {
	out := make([]TileLimits, len(l.GridLimits))
	for z := range l.GridLimits {
		tl := l.LimitsAt(z)
		out[z] = TileLimits{
			(tl[0] / metaX) * metaX,
			(tl[1] / metaY) * metaY,
			((tl[2] + metaX - 1) / metaX) * metaX,
			((tl[3] + metaY - 1) / metaY) * metaY,
		}
	}
	return out
}

// InZoomWindow reports whether z falls within [MinZ, MaxZ).
func (l *Link) InZoomWindow(z int) bool {
	return z >= l.MinZ && z < l.MaxZ
}
