package tilekey

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// S2
func TestQuadkeyScenario(t *testing.T) {
	assert.Equal(t, "213", EncodeQuadkey(3, 5, 3))
	x, y, z, ok := DecodeQuadkey("213")
	require.True(t, ok)
	assert.Equal(t, 3, x)
	assert.Equal(t, 5, y)
	assert.Equal(t, 3, z)
}

// Invariant #3: quadkey round trip for all legal (x,y,z)
func TestQuadkeyRoundTrip(t *testing.T) {
	for z := 0; z <= 8; z++ {
		n := 1 << z
		for x := 0; x < n; x++ {
			for y := 0; y < n; y++ {
				qk := EncodeQuadkey(x, y, z)
				dx, dy, dz, ok := DecodeQuadkey(qk)
				require.True(t, ok)
				assert.Equal(t, x, dx)
				assert.Equal(t, y, dy)
				assert.Equal(t, z, dz)
			}
		}
	}
}

func TestDefaultTemplate(t *testing.T) {
	in := Input{Tileset: "osm", Grid: "WGS84", X: 1, Y: 2, Z: 3, Ext: "png"}
	key := Key(in, "", "", '#')
	assert.Equal(t, "osm/WGS84//3/2/1.png", key)
}

func TestInvXInvY(t *testing.T) {
	in := Input{X: 1, Y: 2, Z: 3, GridMaxX: 8, GridMaxY: 8}
	key := Key(in, "{inv_x}-{inv_y}", "", '#')
	assert.Equal(t, "6-5", key)
}

func TestDimToken(t *testing.T) {
	in := Input{Dimensions: []DimEntry{{Name: "TIME", CachedValue: "2020-01-01"}}}
	assert.Equal(t, "#TIME#2020-01-01", Key(in, "{dim}", "", '#'))
	assert.Equal(t, "2020-01-01", Key(in, "{dim:TIME}", "", '#'))
}

func TestSanitize(t *testing.T) {
	assert.Equal(t, "a#b#c", Sanitize("a/b.c", "/.", '#'))
	assert.Equal(t, "abc", Sanitize("abc", "/.", '#'))
}
