package imaging

import (
	"bytes"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// S3, and Invariant #4: decode(synthesize(C)) yields image with every
// pixel equal to C (fully transparent if alpha=0).
func TestSynthesizeBlankPNGRoundTrip(t *testing.T) {
	cases := []struct{ r, g, b, a byte }{
		{255, 0, 0, 128},
		{0, 0, 0, 0},
		{10, 20, 30, 255},
	}
	for _, c := range cases {
		data := SynthesizeBlankPNG(256, 256, c.r, c.g, c.b, c.a)
		img, err := png.Decode(bytes.NewReader(data))
		require.NoError(t, err)
		require.Equal(t, 256, img.Bounds().Dx())
		require.Equal(t, 256, img.Bounds().Dy())
		r, g, b, a := img.At(0, 0).RGBA()
		r2, g2, b2, a2 := img.At(200, 130).RGBA()
		assert.Equal(t, r, r2)
		assert.Equal(t, g, g2)
		assert.Equal(t, b, b2)
		assert.Equal(t, a, a2)
	}
}

// S3 exact sentinel bytes.
func TestSentinelBytes(t *testing.T) {
	rec := EncodeSentinel(0xFF, 0x00, 0x00, 0x80)
	assert.Equal(t, []byte{0x23, 0xFF, 0x00, 0x00, 0x80}, rec)
	assert.True(t, IsSentinel(rec))
	r, g, b, a, err := DecodeSentinel(rec)
	require.NoError(t, err)
	assert.Equal(t, byte(0xFF), r)
	assert.Equal(t, byte(0x00), g)
	assert.Equal(t, byte(0x00), b)
	assert.Equal(t, byte(0x80), a)
}

func TestExpandSentinel(t *testing.T) {
	rec := EncodeSentinel(1, 2, 3, 255)
	data, err := ExpandSentinel(rec, 256, 256)
	require.NoError(t, err)
	img, err := png.Decode(bytes.NewReader(data))
	require.NoError(t, err)
	r, g, b, _ := img.At(5, 5).RGBA()
	assert.Equal(t, uint32(1*257), r)
	assert.Equal(t, uint32(2*257), g)
	assert.Equal(t, uint32(3*257), b)
}
