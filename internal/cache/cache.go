// Package cache implements the pluggable cache backend abstraction of spec
// §4.3: exists/get/set/multi_set/delete, plus the composite and multitier
// compositions (§4.3.2-§4.3.3) and the blank-tile sentinel optimisation
// (§4.3.1).
package cache

import (
	"context"

	"github.com/gisquick/tilecache/internal/tile"
)

// Cache is the abstract backend contract every concrete store implements.
type Cache interface {
	// Exists is a non-authoritative hint; it may be a cheaper check than Get.
	Exists(ctx context.Context, t *tile.Tile) (bool, error)
	// Get fills t.EncodedData/t.MTime on a hit. found=false means MISS, not
	// an error (spec §7 "Cache get translates absence into MISS").
	Get(ctx context.Context, t *tile.Tile) (found bool, err error)
	// Set encodes t.RawImage if EncodedData is absent, and writes it.
	Set(ctx context.Context, t *tile.Tile) error
	// MultiSet writes several tiles, as a single transaction if the backend
	// supports one, or by looping Set otherwise.
	MultiSet(ctx context.Context, tiles []*tile.Tile) error
	// Delete is idempotent: deleting an absent key is not an error.
	Delete(ctx context.Context, t *tile.Tile) error
}

// ConfigurationCheck/ChildInit hooks mirror spec §4.3's "each concrete
// backend supplies configuration_check and child_init hooks, invoked once
// after configuration is finalized and once per process respectively".
type ConfigurationCheck interface {
	ConfigurationCheck() error
}

type ChildInit interface {
	ChildInit(ctx context.Context) error
}

// ReadOnly lets a backend self-enforce read-only mode (the tileset-level
// read_only flag of spec §6.1 is enforced by the retrieval coordinator, but
// some backends — e.g. a demo tileset pointed at a shared production cache —
// also want to self-enforce it). In read-only mode the concrete backends'
// Set, MultiSet and Delete write nothing and return nil.
type ReadOnly interface {
	SetReadOnly(bool)
}
