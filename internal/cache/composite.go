package cache

import (
	"context"

	"go.uber.org/zap"

	"github.com/gisquick/tilecache/internal/ctxerr"
	"github.com/gisquick/tilecache/internal/tile"
)

// Predicate reports whether link applies to t (spec §4.3.2).
type Predicate func(t *tile.Tile) bool

// ZoomRange restricts a link to [min, max] inclusive.
func ZoomRange(min, max int) Predicate {
	return func(t *tile.Tile) bool { return t.Z >= min && t.Z <= max }
}

// GridNameSet restricts a link to a set of grid names.
func GridNameSet(names ...string) Predicate {
	set := make(map[string]bool, len(names))
	for _, n := range names {
		set[n] = true
	}
	return func(t *tile.Tile) bool { return set[t.GridLink.Grid.Name] }
}

// DimensionEquals restricts a link to tiles whose named dimension's
// cached_value equals want.
func DimensionEquals(name, want string) Predicate {
	return func(t *tile.Tile) bool {
		for _, d := range t.Dimensions {
			if d.Name() == name {
				return d.CachedValue == want
			}
		}
		return false
	}
}

type compositeLink struct {
	cache      Cache
	predicates []Predicate
}

func (l compositeLink) matches(t *tile.Tile) bool {
	for _, p := range l.predicates {
		if !p(t) {
			return false
		}
	}
	return true
}

// Composite is the dispatch-by-predicate cache of spec §4.3.2: the first
// link whose predicates match the tile handles the operation.
type Composite struct {
	log   *zap.SugaredLogger
	links []compositeLink
}

func NewComposite(log *zap.SugaredLogger) *Composite {
	return &Composite{log: log}
}

// Add appends a link; an empty predicate list always matches (a catch-all,
// conventionally placed last).
func (c *Composite) Add(child Cache, predicates ...Predicate) *Composite {
	c.links = append(c.links, compositeLink{cache: child, predicates: predicates})
	return c
}

func (c *Composite) resolve(t *tile.Tile) (Cache, error) {
	for _, l := range c.links {
		if l.matches(t) {
			return l.cache, nil
		}
	}
	return nil, ctxerr.NotFound("no composite cache link matches tileset %q", t.Tileset.Name)
}

func (c *Composite) Exists(ctx context.Context, t *tile.Tile) (bool, error) {
	child, err := c.resolve(t)
	if err != nil {
		return false, err
	}
	return child.Exists(ctx, t)
}

func (c *Composite) Get(ctx context.Context, t *tile.Tile) (bool, error) {
	child, err := c.resolve(t)
	if err != nil {
		return false, err
	}
	return child.Get(ctx, t)
}

func (c *Composite) Set(ctx context.Context, t *tile.Tile) error {
	child, err := c.resolve(t)
	if err != nil {
		return err
	}
	return child.Set(ctx, t)
}

func (c *Composite) MultiSet(ctx context.Context, tiles []*tile.Tile) error {
	byChild := map[Cache][]*tile.Tile{}
	order := []Cache{}
	for _, t := range tiles {
		child, err := c.resolve(t)
		if err != nil {
			return err
		}
		if _, ok := byChild[child]; !ok {
			order = append(order, child)
		}
		byChild[child] = append(byChild[child], t)
	}
	for _, child := range order {
		if err := child.MultiSet(ctx, byChild[child]); err != nil {
			return err
		}
	}
	return nil
}

func (c *Composite) Delete(ctx context.Context, t *tile.Tile) error {
	child, err := c.resolve(t)
	if err != nil {
		return err
	}
	return child.Delete(ctx, t)
}

func (c *Composite) ConfigurationCheck() error {
	for _, l := range c.links {
		if cc, ok := l.cache.(ConfigurationCheck); ok {
			if err := cc.ConfigurationCheck(); err != nil {
				return err
			}
		}
	}
	return nil
}

func (c *Composite) ChildInit(ctx context.Context) error {
	for _, l := range c.links {
		if ci, ok := l.cache.(ChildInit); ok {
			if err := ci.ChildInit(ctx); err != nil {
				return err
			}
		}
	}
	return nil
}
