package source

import (
	"context"
	"image"

	"go.uber.org/zap"

	"github.com/gisquick/tilecache/internal/tile"
)

// Fallback is the source-layer composition of spec §4.3.4: an ordered list
// of sources, first success wins; if all fail, the primary's error is
// surfaced and the rest are only logged.
type Fallback struct {
	Sources []Source
	log     *zap.SugaredLogger
}

func NewFallback(log *zap.SugaredLogger, sources ...Source) *Fallback {
	return &Fallback{Sources: sources, log: log}
}

func (f *Fallback) RenderMap(ctx context.Context, m *tile.Map) (*image.RGBA, error) {
	var primaryErr error
	for i, s := range f.Sources {
		img, err := s.RenderMap(ctx, m)
		if err == nil {
			return img, nil
		}
		if i == 0 {
			primaryErr = err
		} else {
			f.log.Debugw("fallback source failed", "index", i, "error", err)
		}
	}
	return nil, primaryErr
}

func (f *Fallback) QueryInfo(ctx context.Context, fi *tile.FeatureInfo) ([]byte, string, error) {
	var primaryErr error
	for i, s := range f.Sources {
		data, ct, err := s.QueryInfo(ctx, fi)
		if err == nil {
			return data, ct, nil
		}
		if i == 0 {
			primaryErr = err
		} else {
			f.log.Debugw("fallback source query_info failed", "index", i, "error", err)
		}
	}
	return nil, "", primaryErr
}
