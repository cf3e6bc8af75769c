package imaging

import (
	"bytes"
	"image"
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func solidRGBA(w, h int, c color.RGBA) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetRGBA(x, y, c)
		}
	}
	return img
}

func TestIsBlankDetectsConstantImage(t *testing.T) {
	img := solidRGBA(256, 256, color.RGBA{255, 0, 0, 128})
	b := NewBuffer(img)
	assert.True(t, b.IsBlank())
	r, g, bl, a := b.ConstantColor()
	assert.Equal(t, byte(255), r)
	assert.Equal(t, byte(0), g)
	assert.Equal(t, byte(0), bl)
	assert.Equal(t, byte(128), a)
}

func TestIsBlankFalseOnVariedImage(t *testing.T) {
	img := solidRGBA(4, 4, color.RGBA{0, 0, 0, 255})
	img.SetRGBA(2, 2, color.RGBA{1, 1, 1, 255})
	b := NewBuffer(img)
	assert.False(t, b.IsBlank())
}

func TestHasAlpha(t *testing.T) {
	opaque := NewBuffer(solidRGBA(4, 4, color.RGBA{0, 0, 0, 255}))
	assert.False(t, opaque.HasAlpha())

	transparent := NewBuffer(solidRGBA(4, 4, color.RGBA{0, 0, 0, 100}))
	assert.True(t, transparent.HasAlpha())
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	b := NewBuffer(solidRGBA(8, 8, color.RGBA{10, 20, 30, 255}))
	require.NoError(t, b.Encode("png"))
	require.NotEmpty(t, b.Encoded)

	decoded, format, err := Decode(bytes.NewReader(b.Encoded))
	require.NoError(t, err)
	assert.Equal(t, "png", format)
	r, g, bl, _ := decoded.At(0, 0).RGBA()
	assert.Equal(t, uint32(10*257), r)
	assert.Equal(t, uint32(20*257), g)
	assert.Equal(t, uint32(30*257), bl)
}

func TestSubImage(t *testing.T) {
	src := image.NewRGBA(image.Rect(0, 0, 10, 10))
	src.SetRGBA(5, 5, color.RGBA{9, 9, 9, 255})
	sub := SubImage(src, image.Rect(4, 4, 6, 6))
	assert.Equal(t, 2, sub.Rect.Dx())
	r, _, _, _ := sub.At(1, 1).RGBA()
	assert.Equal(t, uint32(9*257), r)
}
