package imaging

import (
	"bytes"
	"compress/zlib"
	"encoding/binary"
	"hash/crc32"
)

// The blank-tile synthesizer of spec §4.4.3: rather than round-tripping a
// solid-color image through the general PNG encoder, it builds a minimal
// single-palette-entry indexed PNG directly: IHDR, a one-entry PLTE, a
// one-entry tRNS when alpha < 255, an all-zero IDAT and IEND. Every chunk is
// assembled fresh by pngChunk, which computes its CRC-32; no fixed template
// is patched, so chunk offsets follow from the chunk sizes.
var pngSignature = [8]byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n'}

func pngChunk(ctype string, data []byte) []byte {
	buf := make([]byte, 0, 12+len(data))
	var lenb [4]byte
	binary.BigEndian.PutUint32(lenb[:], uint32(len(data)))
	buf = append(buf, lenb[:]...)
	buf = append(buf, ctype...)
	buf = append(buf, data...)
	crcInput := append([]byte(ctype), data...)
	var crcb [4]byte
	binary.BigEndian.PutUint32(crcb[:], crc32.ChecksumIEEE(crcInput))
	buf = append(buf, crcb[:]...)
	return buf
}

func ihdrChunk(w, h int) []byte {
	data := make([]byte, 13)
	binary.BigEndian.PutUint32(data[0:4], uint32(w))
	binary.BigEndian.PutUint32(data[4:8], uint32(h))
	data[8] = 8 // bit depth
	data[9] = 3 // color type: indexed palette
	data[10] = 0
	data[11] = 0
	data[12] = 0
	return pngChunk("IHDR", data)
}

func idatChunkSolid(w, h int) []byte {
	raw := make([]byte, h*(w+1))
	// each scanline is a leading "no filter" byte followed by w palette
	// index bytes, all zero: every pixel indexes the sole palette entry.
	var buf bytes.Buffer
	zw := zlib.NewWriter(&buf)
	zw.Write(raw)
	zw.Close()
	return pngChunk("IDAT", buf.Bytes())
}

func iendChunk() []byte {
	return pngChunk("IEND", nil)
}

func plteChunk(r, g, b byte) []byte {
	return pngChunk("PLTE", []byte{r, g, b})
}

func trnsChunk(a byte) []byte {
	return pngChunk("tRNS", []byte{a})
}

// SynthesizeBlankPNG builds a w x h PNG whose every pixel is (r,g,b,a),
// without invoking the general-purpose RGBA encoder.
func SynthesizeBlankPNG(w, h int, r, g, b, a byte) []byte {
	var buf bytes.Buffer
	buf.Write(pngSignature[:])
	buf.Write(ihdrChunk(w, h))
	buf.Write(plteChunk(r, g, b))
	if a != 255 {
		buf.Write(trnsChunk(a))
	}
	buf.Write(idatChunkSolid(w, h))
	buf.Write(iendChunk())
	return buf.Bytes()
}

// ExpandSentinel synthesizes the full w x h PNG encoding of a sentinel
// record, the read-side counterpart of spec §4.3.1: "a #-prefixed record
// is expanded to a full PNG of that constant colour by a fast synthesizer".
func ExpandSentinel(data []byte, w, h int) ([]byte, error) {
	r, g, b, a, err := DecodeSentinel(data)
	if err != nil {
		return nil, err
	}
	return SynthesizeBlankPNG(w, h, r, g, b, a), nil
}
