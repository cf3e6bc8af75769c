package imaging

import "fmt"

// SentinelPrefix is the ASCII '#' marker of spec §3.6/§6.5.
const SentinelPrefix = '#'

// SentinelSize is the fixed 5-byte record size: '#' + 4 RGBA bytes.
const SentinelSize = 5

// EncodeSentinel produces the 5-byte blank-tile record of spec §4.3.1: '#'
// followed by the 4 bytes of the constant pixel. Callers must have already
// confirmed the buffer IsBlank() and is the canonical tile size (256x256).
func EncodeSentinel(r, g, b, a byte) []byte {
	return []byte{SentinelPrefix, r, g, b, a}
}

// IsSentinel reports whether data is a blank-tile sentinel record.
func IsSentinel(data []byte) bool {
	return len(data) == SentinelSize && data[0] == SentinelPrefix
}

// DecodeSentinel extracts the constant RGBA color from a sentinel record.
func DecodeSentinel(data []byte) (r, g, b, a byte, err error) {
	if !IsSentinel(data) {
		return 0, 0, 0, 0, fmt.Errorf("imaging: not a sentinel record (len=%d)", len(data))
	}
	return data[1], data[2], data[3], data[4], nil
}
