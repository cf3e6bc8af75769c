// Package config implements the in-memory configuration arena of spec §6.1:
// the maps the core consults once post_config finishes — grid, source,
// cache, and tileset registries, plus the image-format table. Grounded on
// the teacher's plain-struct domain model (internal/domain/project.go) and
// built by Load (yaml.go) from a YAML document, generalized from one
// project's settings to a registry of many tilesets.
package config

import (
	"context"
	"fmt"

	"github.com/gisquick/tilecache/internal/cache"
	"github.com/gisquick/tilecache/internal/grid"
	"github.com/gisquick/tilecache/internal/source"
	"github.com/gisquick/tilecache/internal/tile"
)

// Arena holds every named resource the core depends on. It is immutable
// after Load returns (spec §6.1 "Configuration is immutable after
// post_config returns").
type Arena struct {
	Grids              map[string]*grid.Grid
	Sources            map[string]source.Source
	Caches             map[string]cache.Cache
	Tilesets           map[string]*tile.Tileset
	ImageFormats       map[string]string // name -> MIME type
	DefaultImageFormat string

	// TilesetSources records which registered source (if any) backs each
	// tileset. tile.Tileset itself carries no source reference - rendering
	// is wired up by the caller, which needs to know which source to pair
	// with which tileset's cache.
	TilesetSources map[string]source.Source
	// TilesetCaches records which registered cache backs each tileset.
	TilesetCaches map[string]cache.Cache
}

// New builds an empty arena ready for incremental registration.
func New() *Arena {
	return &Arena{
		Grids:          map[string]*grid.Grid{},
		Sources:        map[string]source.Source{},
		Caches:         map[string]cache.Cache{},
		Tilesets:       map[string]*tile.Tileset{},
		TilesetSources: map[string]source.Source{},
		TilesetCaches:  map[string]cache.Cache{},
		ImageFormats:   map[string]string{"png": "image/png", "jpeg": "image/jpeg"},
	}
}

func (a *Arena) AddGrid(g *grid.Grid) {
	a.Grids[g.Name] = g
}

func (a *Arena) AddSource(name string, s source.Source) {
	a.Sources[name] = s
}

func (a *Arena) AddCache(name string, c cache.Cache) {
	a.Caches[name] = c
}

func (a *Arena) AddTileset(ts *tile.Tileset) {
	a.Tilesets[ts.Name] = ts
}

// AddTilesetSource records the source backing a tileset, if any (read-only
// tilesets and pure-assembly tilesets may have none).
func (a *Arena) AddTilesetSource(tilesetName string, s source.Source) {
	if s != nil {
		a.TilesetSources[tilesetName] = s
	}
}

// AddTilesetCache records the cache backing a tileset.
func (a *Arena) AddTilesetCache(tilesetName string, c cache.Cache) {
	if c != nil {
		a.TilesetCaches[tilesetName] = c
	}
}

// Validate runs every registered backend's ConfigurationCheck hook once
// (spec §4.3's "invoked once after configuration is finalized") and
// confirms every tileset references grids/caches that actually exist.
func (a *Arena) Validate() error {
	if a.DefaultImageFormat == "" {
		a.DefaultImageFormat = "png"
	}
	if _, ok := a.ImageFormats[a.DefaultImageFormat]; !ok {
		return fmt.Errorf("default image format %q is not registered", a.DefaultImageFormat)
	}
	for name, c := range a.Caches {
		if cc, ok := c.(cache.ConfigurationCheck); ok {
			if err := cc.ConfigurationCheck(); err != nil {
				return fmt.Errorf("cache %q: %w", name, err)
			}
		}
	}
	for name, ts := range a.Tilesets {
		for _, gl := range ts.GridLinks {
			if _, ok := a.Grids[gl.Grid.Name]; !ok {
				return fmt.Errorf("tileset %q: references unknown grid %q", name, gl.Grid.Name)
			}
		}
		if _, ok := a.ImageFormats[ts.Format]; ts.Format != "" && !ok {
			return fmt.Errorf("tileset %q: unknown image format %q", name, ts.Format)
		}
		if _, ok := a.TilesetCaches[name]; !ok {
			return fmt.Errorf("tileset %q: no cache configured", name)
		}
	}
	return nil
}

// ChildInit runs once per worker process (spec §4.3's child_init), after
// Validate has already run in the parent.
func (a *Arena) ChildInit(ctx context.Context) error {
	for name, c := range a.Caches {
		if ci, ok := c.(cache.ChildInit); ok {
			if err := ci.ChildInit(ctx); err != nil {
				return fmt.Errorf("cache %q: child_init: %w", name, err)
			}
		}
	}
	return nil
}
