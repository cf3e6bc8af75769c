package seeder

import (
	"bytes"
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/gisquick/tilecache/internal/tile"
)

type stubRenderer struct {
	mu      sync.Mutex
	calls   int
	failAll bool
}

func (s *stubRenderer) Render(ctx context.Context, mt tile.Metatile) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if s.failAll {
		return true, errors.New("render failed")
	}
	return true, nil
}

func testRunnerTileset() *tile.Tileset {
	return &tile.Tileset{Name: "osm", MetaSizeX: 1, MetaSizeY: 1}
}

func discardLog() *zap.SugaredLogger {
	return zap.NewNop().Sugar()
}

func TestRunnerSeedsEveryMetatileLevelByLevel(t *testing.T) {
	gl := examineGridLink(t)
	ts := testRunnerTileset()
	cfg := &Config{
		Tileset:   ts,
		GridLink:  gl,
		Mode:      ModeSeed,
		MinZoom:   0,
		MaxZoom:   1,
		MetaSizeX: 1,
		MetaSizeY: 1,
		NWorkers:  2,
		Iteration: IterationLevelByLevel,
		Percent:   100,
	}
	renderer := &stubRenderer{}
	runner := &Runner{
		Cfg:      cfg,
		Cache:    newMemCache(),
		Renderer: renderer,
		Log:      discardLog(),
		Progress: &bytes.Buffer{},
	}

	report, err := runner.Run(context.Background())
	require.NoError(t, err)
	assert.False(t, report.Aborted)
	assert.Greater(t, report.Metatiles, int64(0))
	assert.Equal(t, int(report.Metatiles), renderer.calls)
}

func TestRunnerAbortsWhenFailureRateExceedsThreshold(t *testing.T) {
	gl := examineGridLink(t)
	ts := testRunnerTileset()
	cfg := &Config{
		Tileset:   ts,
		GridLink:  gl,
		Mode:      ModeSeed,
		MinZoom:   0,
		MaxZoom:   2,
		MetaSizeX: 1,
		MetaSizeY: 1,
		NWorkers:  1,
		Iteration: IterationLevelByLevel,
		Percent:   1, // abort almost immediately on any failure
	}
	renderer := &stubRenderer{failAll: true}
	runner := &Runner{
		Cfg:      cfg,
		Cache:    newMemCache(),
		Renderer: renderer,
		Log:      discardLog(),
		Progress: &bytes.Buffer{},
	}

	report, err := runner.Run(context.Background())
	require.NoError(t, err)
	assert.True(t, report.Aborted)
}

func TestRunnerStopDrainingHaltsFurtherWork(t *testing.T) {
	gl := examineGridLink(t)
	ts := testRunnerTileset()
	cfg := &Config{
		Tileset:   ts,
		GridLink:  gl,
		Mode:      ModeSeed,
		MinZoom:   0,
		MaxZoom:   3,
		MetaSizeX: 1,
		MetaSizeY: 1,
		NWorkers:  1,
		Iteration: IterationLevelByLevel,
		Percent:   100,
	}
	renderer := &stubRenderer{}
	runner := &Runner{
		Cfg:      cfg,
		Cache:    newMemCache(),
		Renderer: renderer,
		Log:      discardLog(),
		Progress: &bytes.Buffer{},
	}
	runner.StopDraining()

	report, err := runner.Run(context.Background())
	require.NoError(t, err)
	assert.True(t, report.Aborted)
	assert.Equal(t, int64(0), report.Metatiles)
}

func TestRunnerDeleteDispatchesAgainstCache(t *testing.T) {
	gl := examineGridLink(t)
	ts := testRunnerTileset()
	c := newMemCache()
	probe := &tile.Tile{Tileset: ts, GridLink: gl, X: 0, Y: 0, Z: 0}
	require.NoError(t, c.Set(context.Background(), probe))

	cfg := &Config{
		Tileset:   ts,
		GridLink:  gl,
		Mode:      ModeDelete,
		MinZoom:   0,
		MaxZoom:   0,
		MetaSizeX: 1,
		MetaSizeY: 1,
		NWorkers:  1,
		Iteration: IterationLevelByLevel,
		Percent:   100,
	}
	runner := &Runner{
		Cfg:      cfg,
		Cache:    c,
		Renderer: &stubRenderer{},
		Log:      discardLog(),
		Progress: &bytes.Buffer{},
	}

	report, err := runner.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(1), report.Metatiles)
	exists, err := c.Exists(context.Background(), probe)
	require.NoError(t, err)
	assert.False(t, exists)
}
