package cache

import (
	"github.com/gisquick/tilecache/internal/imaging"
	"github.com/gisquick/tilecache/internal/tile"
)

// encodeForStore implements spec §4.3's "set... encodes if only raw is
// present; may refuse blank tiles or store a 5-byte sentinel" (§4.3.1).
// Concrete backends call this so the optimisation is applied uniformly.
func encodeForStore(t *tile.Tile, tileSX, tileSY int, useSentinel bool) ([]byte, error) {
	if len(t.EncodedData) > 0 {
		return t.EncodedData, nil
	}
	if t.RawImage == nil {
		return nil, nil
	}
	buf := imaging.NewBuffer(t.RawImage)
	if useSentinel && t.RawImage.Rect.Dx() == tileSX && t.RawImage.Rect.Dy() == tileSY && buf.IsBlank() {
		r, g, b, a := buf.ConstantColor()
		return imaging.EncodeSentinel(r, g, b, a), nil
	}
	if err := buf.Encode(t.Tileset.Format); err != nil {
		return nil, err
	}
	return buf.Encoded, nil
}

// decodeFromStore expands a sentinel record read from a backend back into a
// full tileSX x tileSY PNG (spec §4.3.1's read-side synthesis). Non-sentinel
// data passes through unchanged.
func decodeFromStore(data []byte, tileSX, tileSY int) ([]byte, error) {
	if imaging.IsSentinel(data) {
		return imaging.ExpandSentinel(data, tileSX, tileSY)
	}
	return data, nil
}
