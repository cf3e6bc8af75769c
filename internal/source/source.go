// Package source implements the abstract upstream-renderer contract of spec
// §2 item 7 and §4.3.4: render_map/query_info, an HTTP-backed implementation,
// a retry wrapper, and a fallback composition.
package source

import (
	"context"
	"image"

	"github.com/gisquick/tilecache/internal/tile"
)

// Source is the abstract upstream map renderer every cache miss invokes.
type Source interface {
	// RenderMap renders m and returns a decoded RGBA surface at m.Width x
	// m.Height. The returned image is what §4.4.1's metatile raster is cut
	// from, not yet split into child tiles.
	RenderMap(ctx context.Context, m *tile.Map) (*image.RGBA, error)
	// QueryInfo answers a feature-info probe (spec §2 item 5); the response
	// shape is opaque beyond the raw bytes and content type, matching the
	// spec's non-goal of not parsing WMS/WMTS payloads.
	QueryInfo(ctx context.Context, fi *tile.FeatureInfo) ([]byte, string, error)
}
