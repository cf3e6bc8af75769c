package coordinator

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gisquick/tilecache/internal/dimension"
	"github.com/gisquick/tilecache/internal/grid"
	"github.com/gisquick/tilecache/internal/tile"
)

func pngBytes(img image.Image) []byte {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		panic(err)
	}
	return buf.Bytes()
}

func testGridLink(t *testing.T) *grid.Link {
	g, err := grid.New("g", grid.Extent{0, 0, 2560, 2560}, 256, 256, grid.OriginBL, grid.UnitMeters, []float64{10, 5, 2.5, 1.25})
	require.NoError(t, err)
	link, err := grid.NewLink(g, 0, g.NLevels(), -1, grid.OutOfZoomNotConfigured, nil, 0.01)
	require.NoError(t, err)
	return link
}

type memCache struct {
	store map[string][]byte
}

func newMemCache() *memCache { return &memCache{store: map[string][]byte{}} }

func (m *memCache) Get(ctx context.Context, t *tile.Tile) (bool, error) {
	data, ok := m.store[t.CacheKey()]
	if !ok {
		return false, nil
	}
	t.EncodedData = data
	return true, nil
}

func (m *memCache) Set(ctx context.Context, t *tile.Tile) error {
	if len(t.EncodedData) == 0 && t.RawImage != nil {
		t.EncodedData = []byte("encoded")
	}
	m.store[t.CacheKey()] = t.EncodedData
	return nil
}

type stubRenderer struct {
	calls int
	fill  func(mt tile.Metatile, store map[string][]byte)
	cache *memCache
}

func (r *stubRenderer) Render(ctx context.Context, mt tile.Metatile) (bool, error) {
	r.calls++
	if r.fill != nil {
		r.fill(mt, r.cache.store)
	}
	return true, nil
}

type listValue struct {
	name    string
	entries map[string][]string
}

func (d *listValue) Name() string { return d.name }
func (d *listValue) GetEntriesForValue(requested string) ([]string, error) {
	e, ok := d.entries[requested]
	if !ok {
		return nil, fmt.Errorf("no entries for %q", requested)
	}
	return e, nil
}

func TestGetTileRendersOnMiss(t *testing.T) {
	gl := testGridLink(t)
	ts := &tile.Tileset{Name: "osm", Format: "png", MetaSizeX: 1, MetaSizeY: 1}
	tl := &tile.Tile{Tileset: ts, GridLink: gl, X: 0, Y: 0, Z: 0}

	cache := newMemCache()
	renderer := &stubRenderer{cache: cache, fill: func(mt tile.Metatile, store map[string][]byte) {
		for _, c := range mt.ChildTiles() {
			store[c.CacheKey()] = []byte("rendered")
		}
	}}
	co := New(cache, renderer, true)

	require.NoError(t, co.GetTile(context.Background(), tl))
	assert.Equal(t, 1, renderer.calls)
	assert.False(t, tl.NoData)
	assert.Equal(t, []byte("rendered"), tl.EncodedData)
}

func TestGetTileReadOnlyMissIsNoData(t *testing.T) {
	gl := testGridLink(t)
	ts := &tile.Tileset{Name: "osm", Format: "png", MetaSizeX: 1, MetaSizeY: 1, ReadOnly: true}
	tl := &tile.Tile{Tileset: ts, GridLink: gl, X: 0, Y: 0, Z: 0}

	cache := newMemCache()
	renderer := &stubRenderer{cache: cache}
	co := New(cache, renderer, true)

	require.NoError(t, co.GetTile(context.Background(), tl))
	assert.True(t, tl.NoData)
	assert.Equal(t, 0, renderer.calls)
}

func TestGetTileAssemblyStacksSubValues(t *testing.T) {
	gl := testGridLink(t)
	dim := &listValue{name: "time", entries: map[string][]string{
		"all": {"2020", "2021"},
	}}
	ts := &tile.Tileset{
		Name: "stack", Format: "png", MetaSizeX: 1, MetaSizeY: 1,
		DimensionAssemblyType: dimension.AssemblyStack,
	}
	tl := &tile.Tile{
		Tileset: ts, GridLink: gl, X: 0, Y: 0, Z: 0,
		Dimensions: []dimension.RequestedDimension{{Dimension: dim, Requested: "all"}},
	}

	cache := newMemCache()
	renderer := &stubRenderer{cache: cache, fill: func(mt tile.Metatile, store map[string][]byte) {
		img := image.NewRGBA(image.Rect(0, 0, 1, 1))
		for _, c := range mt.ChildTiles() {
			store[c.CacheKey()] = pngBytes(img)
		}
	}}
	co := New(cache, renderer, true)

	require.NoError(t, co.GetTile(context.Background(), tl))
	assert.False(t, tl.NoData)
	assert.Equal(t, 2, renderer.calls)
}
