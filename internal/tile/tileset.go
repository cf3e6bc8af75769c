// Package tile implements the tile/map/metatile request shapes of spec
// §3.3-§3.4 and the metatile-expansion geometry of §4.4.1.
package tile

import (
	"image"
	"time"

	"github.com/gisquick/tilecache/internal/ctxerr"
	"github.com/gisquick/tilecache/internal/dimension"
	"github.com/gisquick/tilecache/internal/grid"
)

// Tileset is a cached layer's configuration: format, grid links, dimensions,
// metatiling, expiry and cache-key template.
type Tileset struct {
	Name                  string
	Format                string // image format name; "" encodes as png
	GridLinks             []*grid.Link
	Dimensions            []dimension.Dimension
	MetaSizeX, MetaSizeY  int
	MetaBuffer            int
	ReadOnly              bool
	Expires               int // seconds
	AutoExpire            int
	DimensionAssemblyType dimension.AssemblyType
	StoreDimensionAssemblies bool
	KeyTemplate           string
}

// Tile is the unit of cached raster output (spec §3.3).
type Tile struct {
	Tileset    *Tileset
	GridLink   *grid.Link
	X, Y, Z    int
	Dimensions []dimension.RequestedDimension

	RawImage    *image.RGBA // decoded RGBA surface, populated lazily
	EncodedData []byte      // codec byte stream, populated lazily
	MTime       time.Time
	Expires     int
	NoData      bool
}

// Validate checks spec §3.3's range invariants.
func (t *Tile) Validate() error {
	g := t.GridLink.Grid
	if t.Z < 0 || t.Z >= g.NLevels() {
		return invalidZoom(t)
	}
	lvl := g.Levels[t.Z]
	if t.X < 0 || t.X >= lvl.MaxX || t.Y < 0 || t.Y >= lvl.MaxY {
		return invalidTile(t)
	}
	return nil
}

func invalidZoom(t *Tile) error {
	return ctxerr.InvalidArgument("tileset %q: zoom %d out of range", t.Tileset.Name, t.Z)
}

func invalidTile(t *Tile) error {
	return ctxerr.InvalidArgument("tileset %q: tile %d,%d out of range at z=%d", t.Tileset.Name, t.X, t.Y, t.Z)
}
