package cache

import (
	"context"
	"image"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/gisquick/tilecache/internal/grid"
	"github.com/gisquick/tilecache/internal/tile"
)

func testGridLink(t *testing.T) *grid.Link {
	g, err := grid.New("g", grid.Extent{0, 0, 2560, 2560}, 256, 256, grid.OriginBL, grid.UnitMeters, []float64{10, 5, 2.5, 1.25})
	require.NoError(t, err)
	link, err := grid.NewLink(g, 0, g.NLevels(), -1, grid.OutOfZoomNotConfigured, nil, 0.01)
	require.NoError(t, err)
	return link
}

func testTile(t *testing.T, name string) *tile.Tile {
	return &tile.Tile{
		Tileset:  &tile.Tileset{Name: name, Format: "png", MetaSizeX: 1, MetaSizeY: 1},
		GridLink: testGridLink(t),
		X:        1, Y: 2, Z: 1,
		RawImage: image.NewRGBA(image.Rect(0, 0, 256, 256)),
	}
}

func TestFileCacheRoundTrip(t *testing.T) {
	dir := t.TempDir()
	log := zap.NewNop().Sugar()
	c := NewFile(log, dir, 256, 256)
	require.NoError(t, c.ConfigurationCheck())

	tl := testTile(t, "osm")
	require.NoError(t, c.Set(context.Background(), tl))

	exists, err := c.Exists(context.Background(), tl)
	require.NoError(t, err)
	assert.True(t, exists)

	got := testTile(t, "osm")
	found, err := c.Get(context.Background(), got)
	require.NoError(t, err)
	assert.True(t, found)
	assert.NotEmpty(t, got.EncodedData)
}

func TestFileCacheGetMiss(t *testing.T) {
	dir := t.TempDir()
	c := NewFile(zap.NewNop().Sugar(), dir, 256, 256)
	tl := testTile(t, "missing")
	found, err := c.Get(context.Background(), tl)
	require.NoError(t, err)
	assert.False(t, found)
}

func TestFileCacheDeleteIsIdempotent(t *testing.T) {
	dir := t.TempDir()
	c := NewFile(zap.NewNop().Sugar(), dir, 256, 256)
	tl := testTile(t, "osm")
	require.NoError(t, c.Delete(context.Background(), tl))
	require.NoError(t, c.Set(context.Background(), tl))
	require.NoError(t, c.Delete(context.Background(), tl))
	require.NoError(t, c.Delete(context.Background(), tl))
}

func TestFileCacheReadOnlyRefusesWrites(t *testing.T) {
	dir := t.TempDir()
	c := NewFile(zap.NewNop().Sugar(), dir, 256, 256)
	c.SetReadOnly(true)
	tl := testTile(t, "osm")
	require.NoError(t, c.Set(context.Background(), tl))
	_, err := filepath.Glob(filepath.Join(dir, "*"))
	require.NoError(t, err)
	exists, err := c.Exists(context.Background(), tl)
	require.NoError(t, err)
	assert.False(t, exists)
}
