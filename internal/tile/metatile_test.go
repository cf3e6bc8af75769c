package tile

import (
	"testing"

	"github.com/gisquick/tilecache/internal/grid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testGridLink(t *testing.T) *grid.Link {
	g, err := grid.New("g", grid.Extent{0, 0, 2560, 2560}, 256, 256, grid.OriginBL, grid.UnitMeters, []float64{10, 5, 2.5, 1.25})
	require.NoError(t, err)
	link, err := grid.NewLink(g, 0, g.NLevels(), -1, grid.OutOfZoomNotConfigured, nil, 0.01)
	require.NoError(t, err)
	return link
}

func TestMetatileForAlignment(t *testing.T) {
	gl := testGridLink(t)
	ts := &Tileset{MetaSizeX: 4, MetaSizeY: 4, MetaBuffer: 10}
	mt := MetatileFor(ts, gl, 5, 9, 2)
	assert.Equal(t, 4, mt.MX)
	assert.Equal(t, 8, mt.MY)
}

func TestChildTilesCount(t *testing.T) {
	gl := testGridLink(t)
	ts := &Tileset{MetaSizeX: 2, MetaSizeY: 3, MetaBuffer: 0}
	mt := Metatile{Tileset: ts, GridLink: gl, MX: 0, MY: 0, Z: 0}
	children := mt.ChildTiles()
	assert.Len(t, children, 6)
}

func TestMapExtentExpandsByBuffer(t *testing.T) {
	gl := testGridLink(t)
	ts := &Tileset{MetaSizeX: 2, MetaSizeY: 2, MetaBuffer: 10}
	mt := Metatile{Tileset: ts, GridLink: gl, MX: 0, MY: 0, Z: 0}
	ext, err := mt.MapExtent()
	require.NoError(t, err)
	res := gl.Grid.Levels[0].Resolution
	assert.InDelta(t, -10*res, ext[0], 1e-9)
	assert.InDelta(t, -10*res, ext[1], 1e-9)
}

func TestPixelSize(t *testing.T) {
	gl := testGridLink(t)
	ts := &Tileset{MetaSizeX: 3, MetaSizeY: 2, MetaBuffer: 5}
	mt := Metatile{Tileset: ts, GridLink: gl, Z: 0}
	w, h := mt.PixelSize()
	assert.Equal(t, 3*256+10, w)
	assert.Equal(t, 2*256+10, h)
}
