package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gisquick/tilecache/internal/cache"
	"github.com/gisquick/tilecache/internal/grid"
	"github.com/gisquick/tilecache/internal/tile"
)

func testGrid(t *testing.T) *grid.Grid {
	g, err := grid.New("g", grid.Extent{0, 0, 100, 100}, 256, 256, grid.OriginBL, grid.UnitMeters, []float64{1})
	require.NoError(t, err)
	return g
}

func TestValidateDefaultsImageFormat(t *testing.T) {
	a := New()
	require.NoError(t, a.Validate())
	assert.Equal(t, "png", a.DefaultImageFormat)
}

func TestValidateRejectsUnknownDefaultFormat(t *testing.T) {
	a := New()
	a.DefaultImageFormat = "tiff"
	assert.Error(t, a.Validate())
}

func TestValidateRejectsTilesetWithoutCache(t *testing.T) {
	a := New()
	g := testGrid(t)
	a.AddGrid(g)
	link, err := grid.NewLink(g, 0, g.NLevels(), -1, grid.OutOfZoomNotConfigured, nil, 0.01)
	require.NoError(t, err)
	a.AddTileset(&tile.Tileset{Name: "osm", GridLinks: []*grid.Link{link}})

	err = a.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no cache configured")
}

func TestValidatePassesWithCacheWired(t *testing.T) {
	a := New()
	g := testGrid(t)
	a.AddGrid(g)
	link, err := grid.NewLink(g, 0, g.NLevels(), -1, grid.OutOfZoomNotConfigured, nil, 0.01)
	require.NoError(t, err)
	a.AddTileset(&tile.Tileset{Name: "osm", GridLinks: []*grid.Link{link}})
	c := cache.NewFile(nil, t.TempDir(), 256, 256)
	a.AddCache("disk", c)
	a.AddTilesetCache("osm", c)

	assert.NoError(t, a.Validate())
}

func TestChildInitSkipsCachesWithoutTheHook(t *testing.T) {
	a := New()
	a.AddCache("disk", cache.NewFile(nil, t.TempDir(), 256, 256))
	assert.NoError(t, a.ChildInit(nil))
}
