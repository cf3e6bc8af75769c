// Package coordinator implements the tile retrieval entry point of spec
// §4.5 (get_tile) and the dimension assembly compositing of §4.6. It is the
// glue between cache, renderer, and dimension resolution, grounded on the
// teacher's Cache.GetTileFile (internal/mapcache/service.go), generalized
// from "one WMS layer, one disk path" to the pluggable cache/source/dimension
// model this module's domain needs.
package coordinator

import (
	"bytes"
	"context"
	"image"
	"image/color/palette"
	"image/draw"
	"image/gif"
	"time"

	"github.com/gisquick/tilecache/internal/ctxerr"
	"github.com/gisquick/tilecache/internal/dimension"
	"github.com/gisquick/tilecache/internal/imaging"
	"github.com/gisquick/tilecache/internal/metrics"
	"github.com/gisquick/tilecache/internal/tile"
)

// Cache is the subset of cache.Cache the coordinator needs.
type Cache interface {
	Get(ctx context.Context, t *tile.Tile) (bool, error)
	Set(ctx context.Context, t *tile.Tile) error
}

// Renderer is the subset of render.Renderer the coordinator needs.
type Renderer interface {
	Render(ctx context.Context, mt tile.Metatile) (acquired bool, err error)
}

// Coordinator answers get_tile requests (spec §4.5).
type Coordinator struct {
	Cache     Cache
	Renderer  Renderer
	HasSource bool
	Metrics   *metrics.Metrics // optional; nil disables instrumentation
}

func New(c Cache, r Renderer, hasSource bool) *Coordinator {
	return &Coordinator{Cache: c, Renderer: r, HasSource: hasSource}
}

// GetTile fills t's content per spec §4.5. A tile left with NoData=true and
// no EncodedData means the tile genuinely has no content (read-only cache
// miss, or no configured source) — that is not itself an error.
func (c *Coordinator) GetTile(ctx context.Context, t *tile.Tile) error {
	if err := t.Validate(); err != nil {
		return err
	}
	if t.Tileset.DimensionAssemblyType != dimension.AssemblyNone && len(t.Dimensions) > 0 {
		return c.getAssembled(ctx, t)
	}
	resolved, err := dimension.Resolve(t.Dimensions)
	if err != nil {
		return err
	}
	t.Dimensions = resolved
	return c.getConcrete(ctx, t)
}

// getConcrete implements spec §4.5 steps 3-4 for a tile whose dimensions
// already carry exactly one cached_value each.
func (c *Coordinator) getConcrete(ctx context.Context, t *tile.Tile) error {
	found, err := c.Cache.Get(ctx, t)
	if err != nil {
		return err
	}
	if found {
		if c.Metrics != nil {
			c.Metrics.CacheHits.Inc()
		}
		return nil
	}
	if c.Metrics != nil {
		c.Metrics.CacheMisses.Inc()
	}
	if t.Tileset.ReadOnly || !c.HasSource {
		t.NoData = true
		return nil
	}
	mt := tile.MetatileFor(t.Tileset, t.GridLink, t.X, t.Y, t.Z)
	mt.Dimensions = cachedDimValues(t.Dimensions)
	if _, err := c.Renderer.Render(ctx, mt); err != nil {
		return err
	}
	found, err = c.Cache.Get(ctx, t)
	if err != nil {
		return err
	}
	if !found {
		t.NoData = true
	}
	return nil
}

func cachedDimValues(dims []dimension.RequestedDimension) []tile.DimValue {
	out := make([]tile.DimValue, len(dims))
	for i, d := range dims {
		out[i] = tile.DimValue{Name: d.Name(), Value: d.CachedValue}
	}
	return out
}

// getAssembled implements spec §4.6: resolve every sub-value of the
// assembly dimension, fetch/render each constituent tile independently
// (metatiling forbidden in this mode — each sub-tile is rendered at
// metasize 1x1), then composite and store under the assembly key.
func (c *Coordinator) getAssembled(ctx context.Context, t *tile.Tile) error {
	if len(t.Dimensions) == 0 {
		return ctxerr.Internal("tileset %q: assembly requested but no dimension present", t.Tileset.Name)
	}
	// Exactly one dimension per tileset is the designated assembly axis
	// (spec §4.6); it is the first in the request's dimension list by
	// convention of how tilesets declare it.
	const assemblyIdx = 0
	assemblyDim := t.Dimensions[assemblyIdx]
	entries, err := dimension.ResolveEntries(assemblyDim)
	if err != nil {
		return err
	}

	resolvedOthers, err := dimension.Resolve(without(t.Dimensions, assemblyIdx))
	if err != nil {
		return err
	}

	subImages := make([]*imaging.Buffer, 0, len(entries))
	var earliestExpires int
	var latestMTime time.Time
	haveExpires := false
	for i, entry := range entries {
		sub := &tile.Tile{
			Tileset:  subTileset(t.Tileset),
			GridLink: t.GridLink,
			X:        t.X, Y: t.Y, Z: t.Z,
			Dimensions: append(append([]dimension.RequestedDimension{}, resolvedOthers...),
				dimension.RequestedDimension{Dimension: assemblyDim.Dimension, Requested: assemblyDim.Requested, CachedValue: entry}),
		}
		if err := c.getConcrete(ctx, sub); err != nil {
			return err
		}
		if sub.NoData {
			continue
		}
		buf, _, err := imaging.Decode(bytes.NewReader(sub.EncodedData))
		if err != nil {
			return ctxerr.Internal("decoding assembly sub-tile %d: %v", i, err)
		}
		subImages = append(subImages, &imaging.Buffer{RGBA: buf})
		if !haveExpires || sub.Expires < earliestExpires {
			earliestExpires = sub.Expires
			haveExpires = true
		}
		if sub.MTime.After(latestMTime) {
			latestMTime = sub.MTime
		}
	}
	if len(subImages) == 0 {
		t.NoData = true
		return nil
	}

	var out *imaging.Buffer
	switch t.Tileset.DimensionAssemblyType {
	case dimension.AssemblyAnimate:
		out, err = assembleAnimated(subImages)
	default:
		out, err = assembleStack(subImages)
	}
	if err != nil {
		return err
	}

	assembled := dimension.RequestedDimension{
		Dimension:   assemblyDim.Dimension,
		Requested:   assemblyDim.Requested,
		CachedValue: assemblyDim.Requested,
	}
	t.Dimensions = append(append([]dimension.RequestedDimension{}, resolvedOthers...), assembled)
	t.RawImage = out.RGBA
	if len(out.Encoded) > 0 {
		// ANIMATE: the animation-aware encoding IS the artifact; storing
		// RawImage alone would only keep the first frame.
		t.EncodedData = out.Encoded
	} else if err := out.Encode(t.Tileset.Format); err != nil {
		return ctxerr.Internal("encoding assembled tile: %v", err)
	} else {
		t.EncodedData = out.Encoded
	}
	t.Expires = earliestExpires
	t.MTime = latestMTime
	if t.Tileset.StoreDimensionAssemblies {
		if err := c.Cache.Set(ctx, t); err != nil {
			return err
		}
	}
	return nil
}

// subTileset is the assembly member's own rendering configuration:
// metatiling is disallowed (spec §4.6), so every sub-fetch is 1x1.
func subTileset(ts *tile.Tileset) *tile.Tileset {
	clone := *ts
	clone.MetaSizeX = 1
	clone.MetaSizeY = 1
	clone.DimensionAssemblyType = dimension.AssemblyNone
	return &clone
}

func without(dims []dimension.RequestedDimension, idx int) []dimension.RequestedDimension {
	out := make([]dimension.RequestedDimension, 0, len(dims)-1)
	for i, d := range dims {
		if i != idx {
			out = append(out, d)
		}
	}
	return out
}

// assembleStack alpha-overs sub-values in declared order (spec §4.6 STACK).
func assembleStack(subs []*imaging.Buffer) (*imaging.Buffer, error) {
	base := subs[0]
	for _, overlay := range subs[1:] {
		imaging.Merge(base.RGBA, overlay.RGBA)
	}
	return base, nil
}

// assembleAnimated encodes each sub-value as one frame of an animated GIF
// (spec §4.6 ANIMATE's "animation-aware writer"). No pack example carries a
// dedicated animation library, so this is the one deliberate stdlib choice
// in the assembly path; see DESIGN.md.
func assembleAnimated(subs []*imaging.Buffer) (*imaging.Buffer, error) {
	g := &gif.GIF{}
	for _, s := range subs {
		bounds := s.RGBA.Bounds()
		paletted := image.NewPaletted(bounds, palette.Plan9)
		draw.Draw(paletted, bounds, s.RGBA, bounds.Min, draw.Src)
		g.Image = append(g.Image, paletted)
		g.Delay = append(g.Delay, 100)
	}
	var buf bytes.Buffer
	if err := gif.EncodeAll(&buf, g); err != nil {
		return nil, ctxerr.Internal("encoding animated assembly: %v", err)
	}
	out, _, err := imaging.Decode(bytes.NewReader(buf.Bytes()))
	if err != nil {
		return nil, ctxerr.Internal("decoding re-read of animated assembly: %v", err)
	}
	return &imaging.Buffer{RGBA: out, Encoded: buf.Bytes(), Format: "gif"}, nil
}
