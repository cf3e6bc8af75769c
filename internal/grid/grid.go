// Package grid implements the tile pyramid geometry of spec §3.1/§4.1: a
// grid maps between zoom-level tile indices and projected-extent
// coordinates, and a grid link binds a tileset's effective zoom window and
// cached-limit rectangles onto a grid.
package grid

import (
	"math"

	"github.com/gisquick/tilecache/internal/ctxerr"
)

// Unit is the linear unit of a grid's extent (spec §3.1).
type Unit int

const (
	UnitMeters Unit = iota
	UnitDegrees
	UnitFeet
)

// metersPerUnit mirrors mapcache_meters_per_unit (lib/util.c in the original).
var metersPerUnit = [...]float64{
	UnitMeters:  1.0,
	UnitDegrees: 6378137.0 * 2.0 * math.Pi / 360,
	UnitFeet:    0.3048,
}

func (u Unit) MetersPerUnit() float64 {
	return metersPerUnit[u]
}

// Origin identifies which corner of the extent addresses tile (0,0).
type Origin int

const (
	OriginBL Origin = iota // bottom-left
	OriginTL                // top-left
	OriginBR                // bottom-right
	OriginTR                // top-right
)

// Extent is a (minx, miny, maxx, maxy) rectangle in grid units.
type Extent [4]float64

func (e Extent) Width() float64  { return e[2] - e[0] }
func (e Extent) Height() float64 { return e[3] - e[1] }

func (e Extent) Intersects(o Extent) bool {
	return e[0] < o[2] && e[2] > o[0] && e[1] < o[3] && e[3] > o[1]
}

// Level is one zoom level's resolution and tile-index bounds.
type Level struct {
	Resolution float64
	MaxX       int
	MaxY       int
}

// Grid is an immutable pyramid of zoom levels over a projected extent.
type Grid struct {
	Name        string
	SRS         string
	SRSAliases  []string
	Unit        Unit
	Extent      Extent
	TileSX      int
	TileSY      int
	Origin      Origin
	Levels      []Level
}

// epsilonFraction suppresses floating point overshoot when computing index
// bounds from the extent, per spec §3.1's "1% epsilon" invariant.
const epsilonFraction = 0.01

// New builds a grid, deriving each level's MaxX/MaxY from the extent,
// tile size and resolution.
func New(name string, extent Extent, tileSX, tileSY int, origin Origin, unit Unit, resolutions []float64) (*Grid, error) {
	if len(resolutions) == 0 {
		return nil, ctxerr.InvalidArgument("grid %q: at least one resolution required", name)
	}
	g := &Grid{
		Name:   name,
		Extent: extent,
		TileSX: tileSX,
		TileSY: tileSY,
		Origin: origin,
		Unit:   unit,
		Levels: make([]Level, len(resolutions)),
	}
	prevRes := math.Inf(1)
	for z, res := range resolutions {
		if res >= prevRes {
			return nil, ctxerr.InvalidArgument("grid %q: resolution at z=%d does not strictly decrease", name, z)
		}
		prevRes = res
		maxx := int(math.Ceil(extent.Width()/(float64(tileSX)*res) - epsilonFraction))
		maxy := int(math.Ceil(extent.Height()/(float64(tileSY)*res) - epsilonFraction))
		if maxx < 1 {
			maxx = 1
		}
		if maxy < 1 {
			maxy = 1
		}
		g.Levels[z] = Level{Resolution: res, MaxX: maxx, MaxY: maxy}
	}
	return g, nil
}

func (g *Grid) NLevels() int { return len(g.Levels) }

// flipY converts a y tile index between the grid's native origin and the
// bottom-left convention used internally for coordinate math (spec §4.1
// "origins other than BL are normalized internally to BL").
func (g *Grid) flipY(y, z int) int {
	if g.Origin == OriginBL || g.Origin == OriginBR {
		return y
	}
	return g.Levels[z].MaxY - 1 - y
}

func (g *Grid) flipX(x, z int) int {
	if g.Origin == OriginBL || g.Origin == OriginTL {
		return x
	}
	return g.Levels[z].MaxX - 1 - x
}

// TileExtent returns the (minx,miny,maxx,maxy) grid-unit bounds of tile (x,y,z).
func (g *Grid) TileExtent(x, y, z int) (Extent, error) {
	if z < 0 || z >= len(g.Levels) {
		return Extent{}, ctxerr.InvalidArgument("grid %q: zoom %d out of range", g.Name, z)
	}
	lvl := g.Levels[z]
	if x < 0 || x >= lvl.MaxX || y < 0 || y >= lvl.MaxY {
		return Extent{}, ctxerr.InvalidArgument("grid %q: tile %d,%d out of range at z=%d", g.Name, x, y, z)
	}
	bx := g.flipX(x, z)
	by := g.flipY(y, z)
	res := lvl.Resolution
	minx := g.Extent[0] + float64(bx)*float64(g.TileSX)*res
	miny := g.Extent[1] + float64(by)*float64(g.TileSY)*res
	maxx := minx + float64(g.TileSX)*res
	maxy := miny + float64(g.TileSY)*res
	return Extent{minx, miny, maxx, maxy}, nil
}

// Locate returns the tile (x,y) at zoom z containing the grid-unit coordinate.
func (g *Grid) Locate(cx, cy float64, z int) (int, int, error) {
	if z < 0 || z >= len(g.Levels) {
		return 0, 0, ctxerr.InvalidArgument("grid %q: zoom %d out of range", g.Name, z)
	}
	lvl := g.Levels[z]
	res := lvl.Resolution
	bx := int(math.Floor((cx - g.Extent[0]) / (float64(g.TileSX) * res)))
	by := int(math.Floor((cy - g.Extent[1]) / (float64(g.TileSY) * res)))
	if bx < 0 {
		bx = 0
	}
	if bx >= lvl.MaxX {
		bx = lvl.MaxX - 1
	}
	if by < 0 {
		by = 0
	}
	if by >= lvl.MaxY {
		by = lvl.MaxY - 1
	}
	x := bx
	y := by
	if g.Origin == OriginTL || g.Origin == OriginTR {
		y = lvl.MaxY - 1 - by
	}
	if g.Origin == OriginBR || g.Origin == OriginTR {
		x = lvl.MaxX - 1 - bx
	}
	return x, y, nil
}
