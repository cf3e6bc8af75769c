package tile

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCacheKeyIsPureFunctionOfAddress(t *testing.T) {
	gl := testGridLink(t)
	ts := &Tileset{Name: "osm", MetaSizeX: 1, MetaSizeY: 1, Format: "png"}
	a := Tile{Tileset: ts, GridLink: gl, X: 1, Y: 2, Z: 2}
	b := Tile{Tileset: ts, GridLink: gl, X: 1, Y: 2, Z: 2}
	assert.Equal(t, a.CacheKey(), b.CacheKey())

	c := Tile{Tileset: ts, GridLink: gl, X: 1, Y: 3, Z: 2}
	assert.NotEqual(t, a.CacheKey(), c.CacheKey())
}
