package seeder

import (
	"context"
	"fmt"
	"io"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gofrs/uuid"
	"go.uber.org/zap"

	"github.com/gisquick/tilecache/internal/cache"
	"github.com/gisquick/tilecache/internal/dimension"
	"github.com/gisquick/tilecache/internal/grid"
	"github.com/gisquick/tilecache/internal/metrics"
	"github.com/gisquick/tilecache/internal/tile"
)

func openAppend(path string) (*os.File, error) {
	return os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
}

// Renderer is the subset of render.Renderer a seed command needs.
type Renderer interface {
	Render(ctx context.Context, mt tile.Metatile) (bool, error)
}

// Coordinator is the subset of coordinator.Coordinator an assembly-tileset
// seed command needs, since assembly forbids metatiling (spec §4.6) and so
// must go through per-tile retrieval rather than Renderer.Render.
type Coordinator interface {
	GetTile(ctx context.Context, t *tile.Tile) error
}

// Report is the final summary of spec §4.9.6 ("total metatiles, total
// tiles, elapsed seconds, tiles/sec"), tagged with the run's identifier so
// multiple concurrent runs can be told apart in logs and failure files.
type Report struct {
	RunID     string
	Metatiles int64
	Tiles     int64
	Elapsed   time.Duration
	Aborted   bool
}

func (r Report) TilesPerSecond() float64 {
	if r.Elapsed <= 0 {
		return 0
	}
	return float64(r.Tiles) / r.Elapsed.Seconds()
}

// Runner wires a Config to its concrete collaborators and drives the
// producer/worker/logger pipeline of spec §4.9.3 and §4.9.6.
type Runner struct {
	Cfg         *Config
	Cache       cache.Cache // primary
	Dest        cache.Cache // non-nil only in transfer mode
	Renderer    Renderer
	Coordinator Coordinator // used only when Cfg.Tileset.DimensionAssemblyType != AssemblyNone
	Log         *zap.SugaredLogger
	Progress    io.Writer // defaults to os.Stderr, per spec §6.3 "line-buffered to standard error"
	Metrics     *metrics.Metrics // optional; nil disables instrumentation

	abort     int32
	drainOnce int32 // set by StopDraining, read by draining()
}

type status struct {
	ok bool
	c  Coord
}

// StopDraining requests a graceful stop: the producer emits no further
// coordinates and sends STOP sentinels, but already-queued work runs to
// completion (spec §4.9.6 "SIGINT drains the queue once"). Calling it a
// second time has no additional effect here — a caller wanting "terminate
// immediately" should cancel the context instead.
func (r *Runner) StopDraining() {
	atomic.StoreInt32(&r.drainOnce, 1)
}

func (r *Runner) draining() bool {
	return atomic.LoadInt32(&r.drainOnce) != 0
}

func (r *Runner) aborted() bool {
	return atomic.LoadInt32(&r.abort) != 0 || r.draining()
}

// Run drives the full seeding pipeline to completion or abort. Each run is
// tagged with a fresh UUID (mirroring the original util/mapcache_seed.c's
// end-of-run summary, generalized with an identifier so progress/failure
// logs from concurrent runs don't interleave ambiguously).
func (r *Runner) Run(ctx context.Context) (Report, error) {
	runID, err := uuid.NewV4()
	if err != nil {
		return Report{}, fmt.Errorf("generating run id: %w", err)
	}
	r.Log = r.Log.With("run_id", runID.String())

	if r.Progress == nil {
		r.Progress = os.Stderr
	}
	start := time.Now()
	nWorkers := r.Cfg.NWorkers
	if nWorkers < 1 {
		nWorkers = 1
	}

	workCh := make(chan WorkItem, nWorkers*4)
	statusCh := make(chan status, nWorkers*4)

	examiner := &Examiner{Cfg: r.Cfg, PrimaryGet: r.Cache, Dest: r.Dest}

	var failedLog io.Writer
	var failedFile io.Closer
	if r.Cfg.LogFailedPath != "" {
		f, err := openAppend(r.Cfg.LogFailedPath)
		if err != nil {
			return Report{}, fmt.Errorf("opening failure log: %w", err)
		}
		failedLog = f
		failedFile = f
	}

	var metatiles, tiles int64
	var wg sync.WaitGroup
	for i := 0; i < nWorkers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			r.worker(ctx, workCh, statusCh, &metatiles, &tiles)
		}()
	}

	loggerDone := make(chan struct{})
	go func() {
		defer close(loggerDone)
		r.runLogger(ctx, statusCh, failedLog)
	}()

	produceErr := r.produce(ctx, examiner, workCh, nWorkers)

	wg.Wait()
	close(statusCh)
	<-loggerDone
	if failedFile != nil {
		failedFile.Close()
	}
	if produceErr != nil {
		return Report{}, produceErr
	}

	return Report{
		RunID:     runID.String(),
		Metatiles: atomic.LoadInt64(&metatiles),
		Tiles:     atomic.LoadInt64(&tiles),
		Elapsed:   time.Since(start),
		Aborted:   r.aborted(),
	}, nil
}

// produce runs the configured iteration strategy, examines each coordinate,
// and feeds the resulting commands into workCh, stopping and sending STOP
// sentinels once the abort flag is observed (spec §5 "Cancellation").
func (r *Runner) produce(ctx context.Context, ex *Examiner, workCh chan<- WorkItem, nWorkers int) error {
	defer func() {
		for i := 0; i < nWorkers; i++ {
			workCh <- WorkItem{Cmd: CmdStop}
		}
	}()

	emit := func(c Command, x, y, z int) {
		workCh <- WorkItem{Cmd: c, X: x, Y: y, Z: z}
		if r.Metrics != nil {
			r.Metrics.QueueDepth.Set(float64(len(workCh)))
		}
	}

	if r.Cfg.RetryFailedPath != "" {
		p, err := OpenRetryLog(r.Cfg.RetryFailedPath)
		if err != nil {
			return err
		}
		defer p.Close()
		for {
			if r.aborted() {
				return nil
			}
			c, ok := p.Next()
			if !ok {
				return nil
			}
			cmds, err := ex.Examine(ctx, c.X, c.Y, c.Z, true)
			if err != nil {
				r.Log.Warnw("examine failed", "x", c.X, "y", c.Y, "z", c.Z, "error", err)
				continue
			}
			for _, cmd := range cmds {
				if cmd != CmdStopRecursion {
					emit(cmd, c.X, c.Y, c.Z)
				}
			}
		}
	}

	link := r.Cfg.GridLink
	if r.Cfg.Extent != nil {
		gl := r.Cfg.GridLink
		restricted, err := grid.NewLink(gl.Grid, gl.MinZ, gl.MaxZ, gl.MaxCachedZoom, gl.OutOfZoom, r.Cfg.Extent, 0)
		if err != nil {
			return err
		}
		link = restricted
	}

	if r.Cfg.Iteration == IterationDrillDown {
		examine := func(x, y, z int) ([]Command, error) {
			if r.aborted() {
				return []Command{CmdStopRecursion}, nil
			}
			inBounds := true
			if r.Cfg.GeometryFilter != nil {
				ext, err := metatileExtent(r.Cfg, x, y, z)
				if err != nil {
					return nil, err
				}
				inBounds = r.Cfg.GeometryFilter.Test(ext)
			}
			return ex.Examine(ctx, x, y, z, inBounds)
		}
		return DrillDown(link, r.Cfg.MetaSizeX, r.Cfg.MetaSizeY, r.Cfg.MinZoom, r.Cfg.MaxZoom, examine, emit)
	}

	p := NewLevelByLevel(link, r.Cfg.MinZoom, r.Cfg.MaxZoom, r.Cfg.MetaSizeX, r.Cfg.MetaSizeY)
	for {
		if r.aborted() {
			return nil
		}
		c, ok := p.Next()
		if !ok {
			return nil
		}
		inBounds := true
		if r.Cfg.GeometryFilter != nil {
			ext, err := metatileExtent(r.Cfg, c.X, c.Y, c.Z)
			if err != nil {
				return err
			}
			inBounds = r.Cfg.GeometryFilter.Test(ext)
		}
		cmds, err := ex.Examine(ctx, c.X, c.Y, c.Z, inBounds)
		if err != nil {
			r.Log.Warnw("examine failed", "x", c.X, "y", c.Y, "z", c.Z, "error", err)
			continue
		}
		for _, cmd := range cmds {
			if cmd != CmdStopRecursion {
				emit(cmd, c.X, c.Y, c.Z)
			}
		}
	}
}

func metatileExtent(cfg *Config, x, y, z int) (grid.Extent, error) {
	mt := tile.Metatile{Tileset: cfg.Tileset, GridLink: cfg.GridLink, MX: x, MY: y, Z: z}
	return mt.MapExtent()
}

// worker pops commands and dispatches them per spec §4.9.3, reporting one
// status record per metatile processed.
func (r *Runner) worker(ctx context.Context, workCh <-chan WorkItem, statusCh chan<- status, metatiles, tiles *int64) {
	for item := range workCh {
		switch item.Cmd {
		case CmdStop:
			return
		case CmdSkip:
			continue
		case CmdSeed:
			err := r.dispatchSeed(ctx, item.X, item.Y, item.Z)
			r.report(statusCh, item, err, metatiles, tiles)
		case CmdDelete:
			err := r.dispatchDelete(ctx, item.X, item.Y, item.Z)
			r.report(statusCh, item, err, metatiles, tiles)
		case CmdTransfer:
			err := r.dispatchTransfer(ctx, item.X, item.Y, item.Z)
			r.report(statusCh, item, err, metatiles, tiles)
		}
	}
}

func (r *Runner) report(statusCh chan<- status, item WorkItem, err error, metatiles, tiles *int64) {
	ok := err == nil
	if err != nil {
		r.Log.Warnw("seed command failed", "cmd", item.Cmd, "x", item.X, "y", item.Y, "z", item.Z, "error", err)
		if r.Metrics != nil {
			r.Metrics.SeedFailed.Inc()
		}
	} else {
		atomic.AddInt64(metatiles, 1)
		atomic.AddInt64(tiles, int64(r.Cfg.MetaSizeX*r.Cfg.MetaSizeY))
		if r.Metrics != nil {
			r.Metrics.SeedOK.Inc()
		}
	}
	statusCh <- status{ok: ok, c: Coord{X: item.X, Y: item.Y, Z: item.Z}}
}

// dispatchSeed implements spec §4.9.3's "SEED → §4.4.2 (or §4.6 if
// assembly)": metatile rendering for ordinary tilesets, per-tile retrieval
// through the coordinator when the tileset assembles dimension sub-values
// (metatiling is disallowed under assembly).
func (r *Runner) dispatchSeed(ctx context.Context, x, y, z int) error {
	if r.Cfg.Tileset.DimensionAssemblyType != dimension.AssemblyNone && len(r.Cfg.Dimensions) > 0 {
		t := &tile.Tile{Tileset: r.Cfg.Tileset, GridLink: r.Cfg.GridLink, X: x, Y: y, Z: z}
		return r.Coordinator.GetTile(ctx, t)
	}
	mt := tile.MetatileFor(r.Cfg.Tileset, r.Cfg.GridLink, x, y, z)
	mt.Dimensions = r.Cfg.Dimensions
	_, err := r.Renderer.Render(ctx, mt)
	return err
}

func (r *Runner) dispatchDelete(ctx context.Context, x, y, z int) error {
	mt := tile.MetatileFor(r.Cfg.Tileset, r.Cfg.GridLink, x, y, z)
	for _, child := range mt.ChildTiles() {
		c := child
		if err := r.Cache.Delete(ctx, &c); err != nil {
			return err
		}
	}
	return nil
}

func (r *Runner) dispatchTransfer(ctx context.Context, x, y, z int) error {
	mt := tile.MetatileFor(r.Cfg.Tileset, r.Cfg.GridLink, x, y, z)
	for _, child := range mt.ChildTiles() {
		c := child
		found, err := r.Cache.Get(ctx, &c)
		if err != nil {
			return err
		}
		if !found || c.NoData {
			continue
		}
		if err := r.Dest.Set(ctx, &c); err != nil {
			return err
		}
	}
	return nil
}

// runLogger is the central logger thread of spec §4.9.6: it consumes
// per-metatile status records, reports progress at most once per second, logs
// failures, and sets the abort flag when the rolling failure rate exceeds
// the configured threshold.
func (r *Runner) runLogger(ctx context.Context, statusCh <-chan status, failedLog io.Writer) {
	percent := r.Cfg.Percent
	if percent <= 0 {
		percent = 1
	}
	var ring [1000]bool
	ringIdx, ringFilled := 0, 0
	var okCount int64
	lastReport := time.Now()
	start := lastReport

	for st := range statusCh {
		ring[ringIdx] = st.ok
		ringIdx = (ringIdx + 1) % len(ring)
		if ringFilled < len(ring) {
			ringFilled++
		}
		if st.ok {
			okCount++
			if time.Since(lastReport) >= time.Second {
				fmt.Fprintf(r.Progress, "seeding: %d metatiles done, %.1fs elapsed\n", okCount, time.Since(start).Seconds())
				lastReport = time.Now()
			}
		} else {
			if failedLog != nil {
				AppendFailedLog(failedLog, st.c)
			}
			failRate := failureRate(ring[:], ringFilled)
			if failRate > percent {
				atomic.StoreInt32(&r.abort, 1)
			}
		}
	}
}

func failureRate(ring []bool, filled int) float64 {
	if filled == 0 {
		return 0
	}
	fails := 0
	for i := 0; i < filled; i++ {
		if !ring[i] {
			fails++
		}
	}
	return float64(fails) / float64(filled) * 100
}
