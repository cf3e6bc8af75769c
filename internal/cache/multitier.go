package cache

import (
	"context"

	"go.uber.org/zap"

	"github.com/gisquick/tilecache/internal/tile"
)

// Multitier is the promote-on-read cache of spec §4.3.3: an ordered list of
// children, conventionally fast→slow, where a read hit below the front is
// asynchronously copied forward and writes land only on the last (slow,
// authoritative) tier.
type Multitier struct {
	log      *zap.SugaredLogger
	children []Cache
}

func NewMultitier(log *zap.SugaredLogger, children ...Cache) *Multitier {
	return &Multitier{log: log, children: children}
}

func (m *Multitier) Exists(ctx context.Context, t *tile.Tile) (bool, error) {
	for _, c := range m.children {
		ok, err := c.Exists(ctx, t)
		if err != nil {
			return false, err
		}
		if ok {
			return true, nil
		}
	}
	return false, nil
}

func (m *Multitier) Get(ctx context.Context, t *tile.Tile) (bool, error) {
	for i, c := range m.children {
		ok, err := c.Get(ctx, t)
		if err != nil {
			return false, err
		}
		if ok {
			if i > 0 {
				m.promote(t, i)
			}
			return true, nil
		}
	}
	return false, nil
}

// promote copies a tile found at position hitIndex into every preceding
// (faster) tier, in the background, swallowing per-child errors (spec
// §4.3.3's "errors swallowed").
func (m *Multitier) promote(t *tile.Tile, hitIndex int) {
	clone := *t
	go func() {
		ctx := context.Background()
		for i := 0; i < hitIndex; i++ {
			if err := m.children[i].Set(ctx, &clone); err != nil {
				m.log.Debugw("multitier cache promotion failed", "tier", i, "key", clone.CacheKey(), "error", err)
			}
		}
	}()
}

func (m *Multitier) lastChild() Cache {
	return m.children[len(m.children)-1]
}

func (m *Multitier) Set(ctx context.Context, t *tile.Tile) error {
	return m.lastChild().Set(ctx, t)
}

func (m *Multitier) MultiSet(ctx context.Context, tiles []*tile.Tile) error {
	return m.lastChild().MultiSet(ctx, tiles)
}

func (m *Multitier) Delete(ctx context.Context, t *tile.Tile) error {
	for _, c := range m.children {
		if err := c.Delete(ctx, t); err != nil {
			m.log.Debugw("multitier cache delete failed on tier", "key", t.CacheKey(), "error", err)
		}
	}
	return nil
}

func (m *Multitier) ConfigurationCheck() error {
	for _, c := range m.children {
		if cc, ok := c.(ConfigurationCheck); ok {
			if err := cc.ConfigurationCheck(); err != nil {
				return err
			}
		}
	}
	return nil
}

func (m *Multitier) ChildInit(ctx context.Context) error {
	for _, c := range m.children {
		if ci, ok := c.(ChildInit); ok {
			if err := ci.ChildInit(ctx); err != nil {
				return err
			}
		}
	}
	return nil
}
