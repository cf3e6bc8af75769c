package source

import (
	"context"
	"image"
	"time"

	"github.com/cenkalti/backoff/v5"
	"go.uber.org/zap"

	"github.com/gisquick/tilecache/internal/tile"
)

// Retrying wraps a Source with exponential-backoff retries (spec §2 item 7),
// so transient upstream failures don't immediately surface to the renderer.
// Every error the wrapped source returns is retried until the backoff policy
// gives up; errors are not classified, so a request the upstream rejected is
// retried the same way as a transient failure.
type Retrying struct {
	Source     Source
	MaxTries   uint
	MaxElapsed time.Duration
	log        *zap.SugaredLogger
}

func NewRetrying(log *zap.SugaredLogger, s Source, maxTries uint, maxElapsed time.Duration) *Retrying {
	return &Retrying{Source: s, MaxTries: maxTries, MaxElapsed: maxElapsed, log: log}
}

func (r *Retrying) opts() []backoff.RetryOption {
	opts := []backoff.RetryOption{backoff.WithBackOff(backoff.NewExponentialBackOff())}
	if r.MaxTries > 0 {
		opts = append(opts, backoff.WithMaxTries(r.MaxTries))
	}
	if r.MaxElapsed > 0 {
		opts = append(opts, backoff.WithMaxElapsedTime(r.MaxElapsed))
	}
	return opts
}

func (r *Retrying) RenderMap(ctx context.Context, m *tile.Map) (*image.RGBA, error) {
	img, err := backoff.Retry(ctx, func() (*image.RGBA, error) {
		img, err := r.Source.RenderMap(ctx, m)
		if err != nil {
			r.log.Debugw("source render attempt failed, retrying", "error", err)
			return nil, err
		}
		return img, nil
	}, r.opts()...)
	return img, err
}

type infoResult struct {
	data        []byte
	contentType string
}

func (r *Retrying) QueryInfo(ctx context.Context, fi *tile.FeatureInfo) ([]byte, string, error) {
	res, err := backoff.Retry(ctx, func() (infoResult, error) {
		data, ct, err := r.Source.QueryInfo(ctx, fi)
		if err != nil {
			r.log.Debugw("source query_info attempt failed, retrying", "error", err)
			return infoResult{}, err
		}
		return infoResult{data: data, contentType: ct}, nil
	}, r.opts()...)
	if err != nil {
		return nil, "", err
	}
	return res.data, res.contentType, nil
}
