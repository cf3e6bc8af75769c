package tile

import (
	"github.com/gisquick/tilecache/internal/dimension"
	"github.com/gisquick/tilecache/internal/grid"
)

// Map is a rendering request over an extent at a size, the argument a
// Source consumes (spec §3.5, "Map" request shape).
type Map struct {
	Tileset    *Tileset
	GridLink   *grid.Link
	Extent     grid.Extent
	Width      int
	Height     int
	Dimensions []DimValue
}

// DimValue is a resolved dimension value attached to a Map/FeatureInfo request.
type DimValue struct {
	Name  string
	Value string
}

// FeatureInfo is a query_info request (spec §2 item 5); the core only
// carries its shape through to the Source, which is an external
// collaborator (spec §1 non-goals: WMS/WMTS parsing).
type FeatureInfo struct {
	Tileset    *Tileset
	GridLink   *grid.Link
	X, Y       float64 // query point, in grid units
	Map        Map
}

// Metatile groups a square of adjacent tiles plus buffered padding (spec §3.4).
type Metatile struct {
	Tileset  *Tileset
	GridLink *grid.Link
	MX, MY   int // tile coordinates of the first child: child (x,y) = (MX+i, MY+j)
	Z        int
	Dimensions []DimValue
}

// MetatileFor computes the metatile containing tile (x,y,z), per spec §4.4.1:
// mx = floor(x/metaX)*metaX, analogously my.
func MetatileFor(ts *Tileset, gl *grid.Link, x, y, z int) Metatile {
	mx := (x / ts.MetaSizeX) * ts.MetaSizeX
	my := (y / ts.MetaSizeY) * ts.MetaSizeY
	return Metatile{Tileset: ts, GridLink: gl, MX: mx, MY: my, Z: z}
}

// metatileDimsToTileDims rebuilds a Tile's cache-key-bearing Dimensions from
// a Metatile's bare (name, value) pairs, using dimension.Named since a
// metatile's dimension values are already resolved and only need to
// round-trip through CacheKey, not be re-resolved against a live backend.
func metatileDimsToTileDims(dims []DimValue) []dimension.RequestedDimension {
	if len(dims) == 0 {
		return nil
	}
	out := make([]dimension.RequestedDimension, len(dims))
	for i, d := range dims {
		out[i] = dimension.RequestedDimension{Dimension: dimension.Named(d.Name), Requested: d.Value, CachedValue: d.Value}
	}
	return out
}

// ChildTiles enumerates the metasize_x * metasize_y tiles the metatile covers.
func (mt Metatile) ChildTiles() []Tile {
	out := make([]Tile, 0, mt.Tileset.MetaSizeX*mt.Tileset.MetaSizeY)
	for j := 0; j < mt.Tileset.MetaSizeY; j++ {
		for i := 0; i < mt.Tileset.MetaSizeX; i++ {
			out = append(out, Tile{
				Tileset:    mt.Tileset,
				GridLink:   mt.GridLink,
				X:          mt.MX + i,
				Y:          mt.MY + j,
				Z:          mt.Z,
				Dimensions: metatileDimsToTileDims(mt.Dimensions),
			})
		}
	}
	return out
}

// MapExtent computes the metatile's rendering extent: the union of its
// child tiles' extents, expanded by metabuffer*resolution on every side
// (spec §4.4.1).
func (mt Metatile) MapExtent() (grid.Extent, error) {
	g := mt.GridLink.Grid
	minExt, err := g.TileExtent(mt.MX, mt.MY, mt.Z)
	if err != nil {
		return grid.Extent{}, err
	}
	lvl := g.Levels[mt.Z]
	dx := float64((mt.Tileset.MetaSizeX-1)*g.TileSX) * lvl.Resolution
	dy := float64((mt.Tileset.MetaSizeY-1)*g.TileSY) * lvl.Resolution
	if g.Origin == grid.OriginBR || g.Origin == grid.OriginTR {
		dx = -dx
	}
	if g.Origin == grid.OriginTL || g.Origin == grid.OriginTR {
		dy = -dy
	}
	maxExt := grid.Extent{minExt[0] + dx, minExt[1] + dy, minExt[2] + dx, minExt[3] + dy}
	union := unionExtent(minExt, maxExt)
	buf := float64(mt.Tileset.MetaBuffer) * g.Levels[mt.Z].Resolution
	return grid.Extent{union[0] - buf, union[1] - buf, union[2] + buf, union[3] + buf}, nil
}

func unionExtent(a, b grid.Extent) grid.Extent {
	out := a
	if b[0] < out[0] {
		out[0] = b[0]
	}
	if b[1] < out[1] {
		out[1] = b[1]
	}
	if b[2] > out[2] {
		out[2] = b[2]
	}
	if b[3] > out[3] {
		out[3] = b[3]
	}
	return out
}

// PixelSize returns the metatile's full raster dimensions in pixels,
// including buffer padding (spec §3.4).
func (mt Metatile) PixelSize() (width, height int) {
	width = mt.Tileset.MetaSizeX*mt.GridLink.Grid.TileSX + 2*mt.Tileset.MetaBuffer
	height = mt.Tileset.MetaSizeY*mt.GridLink.Grid.TileSY + 2*mt.Tileset.MetaBuffer
	return
}

// ChildPixelRect returns the pixel sub-rectangle of child tile (i,j) (0-based
// within the metatile) inside the metatile's raster. i indexes columns
// left-to-right; j indexes rows upward from the image bottom (j=0 is the
// bottom row).
func (mt Metatile) ChildPixelRect(i, j int) (minX, minY, maxX, maxY int) {
	ts := mt.Tileset
	gl := mt.GridLink.Grid
	minX = i*gl.TileSX + ts.MetaBuffer
	maxX = minX + gl.TileSX
	totalH := mt.Tileset.MetaSizeY*gl.TileSY + 2*ts.MetaBuffer
	maxY = totalH - (j*gl.TileSY + ts.MetaBuffer)
	minY = maxY - gl.TileSY
	return
}
