// Package render implements the lock-coalescing metatile renderer of spec
// §4.4.2: acquire (or wait for) the metatile's lock, invoke the source,
// split into per-child images, watermark, encode, and write through to the
// cache — publishing failure to any waiters. Grounded on the teacher's
// CacheService.RenderTile / Cache.GetTileFile
// (internal/mapcache/mapcache.go, internal/mapcache/service.go), which
// already coalesces concurrent metatile renders with singleflight; this
// generalizes that coalescing to the Locker abstraction so file/redis
// backends (cross-process workers) get the same guarantee.
package render

import (
	"context"
	"fmt"
	"image"
	"strings"

	"go.uber.org/zap"

	"github.com/gisquick/tilecache/internal/imaging"
	"github.com/gisquick/tilecache/internal/locker"
	"github.com/gisquick/tilecache/internal/metrics"
	"github.com/gisquick/tilecache/internal/source"
	"github.com/gisquick/tilecache/internal/tile"
)

// Cache is the subset of cache.Cache the renderer needs; declared locally to
// avoid an import cycle with the cache package's tile-level helpers.
type Cache interface {
	MultiSet(ctx context.Context, tiles []*tile.Tile) error
}

// Renderer drives spec §4.4.2's metatile lifecycle.
type Renderer struct {
	Cache     Cache
	Locker    locker.Locker
	Source    source.Source
	Watermark *image.RGBA // optional overlay applied to every child tile
	Metrics   *metrics.Metrics // optional; nil disables instrumentation
	log       *zap.SugaredLogger
}

func New(log *zap.SugaredLogger, c Cache, l locker.Locker, s source.Source, watermark *image.RGBA) *Renderer {
	return &Renderer{Cache: c, Locker: l, Source: s, Watermark: watermark, log: log}
}

// LockKey derives the metatile's coordination key: tileset, grid, z, mx, my,
// plus a fingerprint of cached dimension values so distinct dimension
// combinations render independently (spec §4.4.2 step 1).
func LockKey(mt tile.Metatile) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s/%s/%d/%d/%d", mt.Tileset.Name, mt.GridLink.Grid.Name, mt.Z, mt.MX, mt.MY)
	for _, d := range mt.Dimensions {
		fmt.Fprintf(&b, "/%s=%s", d.Name, d.Value)
	}
	return b.String()
}

// Render runs the metatile lifecycle. acquired reports whether the caller
// owned the lock (and therefore did the rendering) or merely waited for
// another owner; either way, a nil error means the caller may now read the
// metatile's children from the cache.
func (r *Renderer) Render(ctx context.Context, mt tile.Metatile) (acquired bool, err error) {
	key := LockKey(mt)
	executed, err := r.Locker.Do(ctx, key, func(ctx context.Context) error {
		if r.Metrics != nil {
			r.Metrics.RenderCount.Inc()
		}
		return r.renderOwned(ctx, mt)
	})
	if !executed {
		if r.Metrics != nil {
			r.Metrics.LockWaits.Inc()
		}
		return false, err
	}
	return true, err
}

func (r *Renderer) renderOwned(ctx context.Context, mt tile.Metatile) error {
	extent, err := mt.MapExtent()
	if err != nil {
		return err
	}
	width, height := mt.PixelSize()
	mapReq := &tile.Map{
		Tileset:    mt.Tileset,
		GridLink:   mt.GridLink,
		Extent:     extent,
		Width:      width,
		Height:     height,
		Dimensions: mt.Dimensions,
	}
	img, err := r.Source.RenderMap(ctx, mapReq)
	if err != nil {
		return fmt.Errorf("rendering metatile %s: %w", LockKey(mt), err)
	}

	children := mt.ChildTiles()
	tiles := make([]*tile.Tile, 0, len(children))
	for i := 0; i < mt.Tileset.MetaSizeX; i++ {
		for j := 0; j < mt.Tileset.MetaSizeY; j++ {
			idx := j*mt.Tileset.MetaSizeX + i
			minX, minY, maxX, maxY := mt.ChildPixelRect(i, j)
			sub := img.SubImage(image.Rect(minX, minY, maxX, maxY)).(*image.RGBA)
			if r.Watermark != nil {
				imaging.Merge(sub, r.Watermark)
			}
			t := children[idx]
			t.RawImage = sub
			tiles = append(tiles, &t)
		}
	}
	return r.Cache.MultiSet(ctx, tiles)
}
