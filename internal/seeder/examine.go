package seeder

import (
	"context"

	"github.com/gisquick/tilecache/internal/cache"
	"github.com/gisquick/tilecache/internal/tile"
)

// Examiner applies the decision table of spec §4.9.5 to a candidate
// metatile coordinate, producing the command to enqueue (or CmdSkip /
// CmdStopRecursion).
type Examiner struct {
	Cfg        *Config
	PrimaryGet cache.Cache
	Dest       cache.Cache // non-nil only in transfer mode
}

// probeTile builds a representative Tile at the metatile's origin corner,
// used only for existence/mtime probing — not for content.
func (e *Examiner) probeTile(x, y, z int) *tile.Tile {
	return &tile.Tile{
		Tileset:  e.Cfg.Tileset,
		GridLink: e.Cfg.GridLink,
		X:        x, Y: y, Z: z,
	}
}

// Examine decides the action(s) for metatile-aligned coordinate (x,y,z),
// per spec §4.9.5's decision table. A stale existing tile under seed or
// transfer mode yields two commands in order (DELETE, then the mode
// command) since the table's "DELETE then SEED"/"DELETE then TRANSFER"
// rows are a compound action from one examination.
func (e *Examiner) Examine(ctx context.Context, x, y, z int, inBounds bool) ([]Command, error) {
	if !inBounds {
		if e.Cfg.Iteration == IterationDrillDown {
			return []Command{CmdStopRecursion}, nil
		}
		return []Command{CmdSkip}, nil
	}

	if e.Cfg.Force {
		return []Command{e.modeCommand()}, nil
	}

	probe := e.probeTile(x, y, z)
	exists, err := e.PrimaryGet.Exists(ctx, probe)
	if err != nil {
		return nil, err
	}

	ageSet := !e.Cfg.AgeLimit.IsZero()
	stale := false
	if exists && ageSet {
		if _, err := e.PrimaryGet.Get(ctx, probe); err != nil {
			return nil, err
		}
		stale = probe.MTime.Before(e.Cfg.AgeLimit)
	}

	switch e.Cfg.Mode {
	case ModeSeed:
		if !exists {
			return []Command{CmdSeed}, nil
		}
		if !ageSet {
			return []Command{CmdSkip}, nil
		}
		if stale {
			return []Command{CmdDelete, CmdSeed}, nil
		}
		return []Command{CmdSkip}, nil

	case ModeDelete:
		if !exists {
			return []Command{CmdSkip}, nil
		}
		return []Command{CmdDelete}, nil

	case ModeTransfer:
		if !exists {
			return []Command{CmdSkip}, nil
		}
		if stale {
			return []Command{CmdDelete, CmdTransfer}, nil
		}
		destHas, err := e.Dest.Exists(ctx, probe)
		if err != nil {
			return nil, err
		}
		if destHas {
			return []Command{CmdSkip}, nil
		}
		return []Command{CmdTransfer}, nil
	}
	return []Command{CmdSkip}, nil
}

func (e *Examiner) modeCommand() Command {
	switch e.Cfg.Mode {
	case ModeDelete:
		return CmdDelete
	case ModeTransfer:
		return CmdTransfer
	default:
		return CmdSeed
	}
}
