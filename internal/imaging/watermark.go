package imaging

import "image"

// Merge composites overlay onto base in place, centered, using the integer
// alpha-over approximation of mapcache_image_merge (lib/image.c): for each
// overlay pixel with alpha a, base' = overlay + ((255-a)*base)>>8. This is
// spec §4.4.4's "RGBA alpha-over ... a/256 integer approximation".
func Merge(base, overlay *image.RGBA) {
	bw, bh := base.Rect.Dx(), base.Rect.Dy()
	ow, oh := overlay.Rect.Dx(), overlay.Rect.Dy()
	if ow > bw || oh > bh {
		return
	}
	startX := (bw - ow) / 2
	startY := (bh - oh) / 2

	for y := 0; y < oh; y++ {
		baseOff := base.PixOffset(base.Rect.Min.X+startX, base.Rect.Min.Y+startY+y)
		overOff := overlay.PixOffset(overlay.Rect.Min.X, overlay.Rect.Min.Y+y)
		for x := 0; x < ow; x++ {
			bi := baseOff + x*4
			oi := overOff + x*4
			oa := overlay.Pix[oi+3]
			if oa == 0 {
				continue
			}
			if oa == 255 {
				base.Pix[bi] = overlay.Pix[oi]
				base.Pix[bi+1] = overlay.Pix[oi+1]
				base.Pix[bi+2] = overlay.Pix[oi+2]
				base.Pix[bi+3] = overlay.Pix[oi+3]
				continue
			}
			br, bg, bb, ba := uint(base.Pix[bi]), uint(base.Pix[bi+1]), uint(base.Pix[bi+2]), uint(base.Pix[bi+3])
			or, og, ob, oaU := uint(overlay.Pix[oi]), uint(overlay.Pix[oi+1]), uint(overlay.Pix[oi+2]), uint(oa)
			base.Pix[bi] = byte(or + (((255 - oaU) * br) >> 8))
			base.Pix[bi+1] = byte(og + (((255 - oaU) * bg) >> 8))
			base.Pix[bi+2] = byte(ob + (((255 - oaU) * bb) >> 8))
			base.Pix[bi+3] = byte(oaU + (((255 - oaU) * ba) >> 8))
		}
	}
}
