package tilekey

import "strings"

// EncodeQuadkey implements mapcache_util_quadkey_encode (lib/util.c): bit k
// of x contributes 1 and bit k of y contributes 2 to character z-k.
func EncodeQuadkey(x, y, z int) string {
	if z == 0 {
		return ""
	}
	buf := make([]byte, z)
	for i := z; i > 0; i-- {
		mask := 1 << (i - 1)
		c := byte('0')
		if x&mask != 0 {
			c++
		}
		if y&mask != 0 {
			c += 2
		}
		buf[z-i] = c
	}
	return string(buf)
}

// DecodeQuadkey is the inverse of EncodeQuadkey, grounded on
// mapcache_util_quadkey_decode (lib/util.c), which the distilled spec
// omits from its token table but which the original ships for completeness
// (Testable Property #3: round trip).
func DecodeQuadkey(quadkey string) (x, y, z int, ok bool) {
	if quadkey == "" {
		return 0, 0, 0, true
	}
	z = len(quadkey)
	for i := z; i > 0; i-- {
		mask := 1 << (i - 1)
		switch quadkey[z-i] {
		case '0':
		case '1':
			x |= mask
		case '2':
			y |= mask
		case '3':
			x |= mask
			y |= mask
		default:
			return 0, 0, 0, false
		}
	}
	return x, y, z, true
}

// Sanitize replaces every rune in reject with escape, matching
// mapcache_util_str_sanitize's disallowed-character substitution.
func Sanitize(s string, reject string, escape byte) string {
	if !strings.ContainsAny(s, reject) {
		return s
	}
	b := []byte(s)
	for i, c := range b {
		if strings.IndexByte(reject, c) >= 0 {
			b[i] = escape
		}
	}
	return string(b)
}
