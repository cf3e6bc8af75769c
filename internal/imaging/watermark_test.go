package imaging

import (
	"image"
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMergeOpaqueOverlayReplacesCenter(t *testing.T) {
	base := image.NewRGBA(image.Rect(0, 0, 10, 10))
	for i := range base.Pix {
		base.Pix[i] = 0
	}
	for y := 0; y < 10; y++ {
		for x := 0; x < 10; x++ {
			base.SetRGBA(x, y, color.RGBA{0, 0, 0, 255})
		}
	}
	overlay := image.NewRGBA(image.Rect(0, 0, 2, 2))
	for y := 0; y < 2; y++ {
		for x := 0; x < 2; x++ {
			overlay.SetRGBA(x, y, color.RGBA{255, 255, 255, 255})
		}
	}
	Merge(base, overlay)
	r, g, b, a := base.At(4, 4).RGBA()
	assert.Equal(t, uint32(255*257), r)
	assert.Equal(t, uint32(255*257), g)
	assert.Equal(t, uint32(255*257), b)
	assert.Equal(t, uint32(255*257), a)
	// corner untouched
	r, _, _, _ = base.At(0, 0).RGBA()
	assert.Equal(t, uint32(0), r)
}

func TestMergeTransparentOverlayNoOp(t *testing.T) {
	base := image.NewRGBA(image.Rect(0, 0, 4, 4))
	for y := 0; y < 4; y++ {
		for x := 0; x < 4; x++ {
			base.SetRGBA(x, y, color.RGBA{1, 2, 3, 255})
		}
	}
	overlay := image.NewRGBA(image.Rect(0, 0, 2, 2))
	Merge(base, overlay)
	r, g, b, _ := base.At(1, 1).RGBA()
	assert.Equal(t, uint32(1*257), r)
	assert.Equal(t, uint32(2*257), g)
	assert.Equal(t, uint32(3*257), b)
}
