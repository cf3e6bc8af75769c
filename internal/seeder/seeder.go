// Package seeder implements the bulk-production driver of spec §4.9: two
// iteration strategies feeding a bounded work queue, a thread-pool worker
// fan-out, a progress/failure logger with rolling-window abort, and the
// examine-tile decision table of §4.9.5. Grounded on the original
// implementation's util/mapcache_seed.c producer/consumer/logger-thread
// structure, translated from msgqueue+pthread into goroutines and channels.
package seeder

import (
	"time"

	"github.com/gisquick/tilecache/internal/grid"
	"github.com/gisquick/tilecache/internal/tile"
)

// Mode is the seeder's mode of operation (spec §4.9.1).
type Mode int

const (
	ModeSeed Mode = iota
	ModeDelete
	ModeTransfer
)

// Command is the work-queue command tag (spec §4.9.3).
type Command int

const (
	CmdSeed Command = iota
	CmdDelete
	CmdTransfer
	CmdStop
	CmdSkip
	CmdStopRecursion
)

// WorkItem is one queued unit of work: a metatile-aligned coordinate plus
// the command to apply to it.
type WorkItem struct {
	Cmd  Command
	X, Y, Z int
}

// IterationMode selects the producer strategy (spec §4.9.2).
type IterationMode int

const (
	IterationDrillDown IterationMode = iota
	IterationLevelByLevel
)

// wellKnownDrillDownGrids mirrors spec §4.9.2's default-strategy table: these
// grid names default to drill-down, everything else defaults to level-by-level.
var wellKnownDrillDownGrids = map[string]bool{
	"g": true, "WGS84": true, "GoogleMapsCompatible": true,
}

// DefaultIterationMode picks drill-down for well-known power-of-two grids,
// level-by-level otherwise (spec §4.9.2).
func DefaultIterationMode(g *grid.Grid, metaX, metaY int) IterationMode {
	if wellKnownDrillDownGrids[g.Name] && isPowerOfTwo(metaX) && isPowerOfTwo(metaY) {
		return IterationDrillDown
	}
	return IterationLevelByLevel
}

func isPowerOfTwo(n int) bool {
	return n > 0 && n&(n-1) == 0
}

// Config is the full set of parameters a Seeder run needs, corresponding to
// the CLI surface of spec §6.3.
type Config struct {
	Tileset  *tile.Tileset
	GridLink *grid.Link
	Mode     Mode
	Dimensions []tile.DimValue

	Extent      *grid.Extent // nil means the grid link's own limits
	MinZoom     int
	MaxZoom     int // inclusive
	MetaSizeX   int
	MetaSizeY   int
	Iteration   IterationMode
	NWorkers    int
	Force       bool
	AgeLimit    time.Time // zero value means unset
	Percent     float64   // allowed failure percent over last 1000, default 1
	GeometryFilter *GeometryFilter

	RetryFailedPath string // read (x,y,z) lines from here instead of iterating
	LogFailedPath   string // append failed (x,y,z) lines here
}
