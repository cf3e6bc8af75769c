package render

import (
	"context"
	"image"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/gisquick/tilecache/internal/grid"
	"github.com/gisquick/tilecache/internal/locker"
	"github.com/gisquick/tilecache/internal/tile"
)

func testGridLink(t *testing.T) *grid.Link {
	g, err := grid.New("g", grid.Extent{0, 0, 2560, 2560}, 256, 256, grid.OriginBL, grid.UnitMeters, []float64{10, 5, 2.5, 1.25})
	require.NoError(t, err)
	link, err := grid.NewLink(g, 0, g.NLevels(), -1, grid.OutOfZoomNotConfigured, nil, 0.01)
	require.NoError(t, err)
	return link
}

type countingSource struct {
	calls int32
	gate  chan struct{} // when set, RenderMap blocks until it is closed
}

func (s *countingSource) RenderMap(ctx context.Context, m *tile.Map) (*image.RGBA, error) {
	atomic.AddInt32(&s.calls, 1)
	if s.gate != nil {
		<-s.gate
	}
	return image.NewRGBA(image.Rect(0, 0, m.Width, m.Height)), nil
}

func (s *countingSource) QueryInfo(ctx context.Context, fi *tile.FeatureInfo) ([]byte, string, error) {
	return nil, "", nil
}

type recordingCache struct {
	mu    sync.Mutex
	sets  int
	tiles int
}

func (c *recordingCache) MultiSet(ctx context.Context, tiles []*tile.Tile) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sets++
	c.tiles += len(tiles)
	return nil
}

func TestRenderWritesAllChildTiles(t *testing.T) {
	gl := testGridLink(t)
	ts := &tile.Tileset{Name: "osm", Format: "png", MetaSizeX: 2, MetaSizeY: 2, MetaBuffer: 0}
	mt := tile.Metatile{Tileset: ts, GridLink: gl, MX: 0, MY: 0, Z: 0}

	src := &countingSource{}
	c := &recordingCache{}
	r := New(zap.NewNop().Sugar(), c, locker.NewMemory(), src, nil)

	acquired, err := r.Render(context.Background(), mt)
	require.NoError(t, err)
	assert.True(t, acquired)
	assert.EqualValues(t, 1, src.calls)
	assert.Equal(t, 4, c.tiles)
}

func TestRenderCoalescesConcurrentCallers(t *testing.T) {
	gl := testGridLink(t)
	ts := &tile.Tileset{Name: "osm", Format: "png", MetaSizeX: 1, MetaSizeY: 1, MetaBuffer: 0}
	mt := tile.Metatile{Tileset: ts, GridLink: gl, MX: 0, MY: 0, Z: 0}

	src := &countingSource{gate: make(chan struct{})}
	c := &recordingCache{}
	l := locker.NewMemory()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			r := New(zap.NewNop().Sugar(), c, l, src, nil)
			_, err := r.Render(context.Background(), mt)
			assert.NoError(t, err)
		}()
	}
	// hold the owner's render until the other callers have joined it
	time.Sleep(50 * time.Millisecond)
	close(src.gate)
	wg.Wait()
	assert.EqualValues(t, 1, src.calls)
}
