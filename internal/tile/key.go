package tile

import "github.com/gisquick/tilecache/internal/tilekey"

// defaultRejectChars/defaultEscape: every '/' or '.' in a dimension's cached
// value is replaced by '#' when it is written into a cache key.
const (
	defaultRejectChars = "/."
	defaultEscape      = '#'
)

// CacheKey derives the canonical cache key for t (spec §3.6, §4.2); it is a
// pure function of (tileset, grid, x, y, z, cached dimensions), satisfying
// Testable Property #2.
func (t *Tile) CacheKey() string {
	dims := make([]tilekey.DimEntry, len(t.Dimensions))
	for i, d := range t.Dimensions {
		dims[i] = tilekey.DimEntry{Name: d.Name(), CachedValue: d.CachedValue}
	}
	ext := "png"
	if t.Tileset.Format != "" {
		ext = t.Tileset.Format
	}
	in := tilekey.Input{
		Tileset:     t.Tileset.Name,
		Grid:        t.GridLink.Grid.Name,
		X:           t.X,
		Y:           t.Y,
		Z:           t.Z,
		GridMaxX:    t.GridLink.Grid.Levels[t.Z].MaxX,
		GridMaxY:    t.GridLink.Grid.Levels[t.Z].MaxY,
		GridNLevels: t.GridLink.Grid.NLevels(),
		Dimensions:  dims,
		Ext:         ext,
	}
	return tilekey.Key(in, t.Tileset.KeyTemplate, defaultRejectChars, defaultEscape)
}
