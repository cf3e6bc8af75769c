package grid

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestComputeLimitsFullExtent(t *testing.T) {
	g := wgs84()
	link, err := NewLink(g, 0, g.NLevels(), -1, OutOfZoomNotConfigured, nil, 0.01)
	require.NoError(t, err)
	for z, lvl := range g.Levels {
		tl := link.LimitsAt(z)
		assert.Equal(t, TileLimits{0, 0, lvl.MaxX, lvl.MaxY}, tl)
	}
}

func TestComputeLimitsRestriction(t *testing.T) {
	g := wgs84()
	restriction := Extent{-10, -10, 10, 10}
	link, err := NewLink(g, 0, g.NLevels(), -1, OutOfZoomNotConfigured, &restriction, 0.01)
	require.NoError(t, err)
	tl := link.LimitsAt(2)
	assert.True(t, tl[2] > tl[0])
	assert.True(t, tl[3] > tl[1])
	// restriction is near the grid center, so the rectangle must not cover
	// the entire level.
	lvl := g.Levels[2]
	assert.Less(t, tl[2]-tl[0], lvl.MaxX)
}

func TestSnapToMetatiles(t *testing.T) {
	g := wgs84()
	link, err := NewLink(g, 0, g.NLevels(), -1, OutOfZoomNotConfigured, nil, 0.01)
	require.NoError(t, err)
	snapped := link.SnapToMetatiles(3, 3)
	for _, tl := range snapped {
		assert.Equal(t, 0, tl[0]%3)
		assert.Equal(t, 0, tl[1]%3)
	}
}
