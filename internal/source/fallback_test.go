package source

import (
	"context"
	"errors"
	"image"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/gisquick/tilecache/internal/tile"
)

type stubSource struct {
	img *image.RGBA
	err error
}

func (s *stubSource) RenderMap(ctx context.Context, m *tile.Map) (*image.RGBA, error) {
	return s.img, s.err
}

func (s *stubSource) QueryInfo(ctx context.Context, fi *tile.FeatureInfo) ([]byte, string, error) {
	return nil, "", s.err
}

func TestFallbackUsesFirstSuccess(t *testing.T) {
	want := image.NewRGBA(image.Rect(0, 0, 1, 1))
	f := NewFallback(zap.NewNop().Sugar(),
		&stubSource{err: errors.New("primary down")},
		&stubSource{img: want},
	)
	got, err := f.RenderMap(context.Background(), &tile.Map{})
	require.NoError(t, err)
	assert.Same(t, want, got)
}

func TestFallbackSurfacesPrimaryErrorWhenAllFail(t *testing.T) {
	primaryErr := errors.New("primary down")
	f := NewFallback(zap.NewNop().Sugar(),
		&stubSource{err: primaryErr},
		&stubSource{err: errors.New("secondary down")},
	)
	_, err := f.RenderMap(context.Background(), &tile.Map{})
	assert.Equal(t, primaryErr, err)
}
