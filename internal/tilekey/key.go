// Package tilekey derives the canonical cache key for a tile address from a
// template (spec §3.6, §4.2, §6.2): literal text plus the enumerated
// {tileset} {grid} {z} {x} {y} {inv_x} {inv_y} {inv_z} {quadkey} {dim}
// {dim:NAME} {ext} tokens. Unknown {...} sequences are left verbatim.
package tilekey

import (
	"strconv"
	"strings"
)

// DimEntry is the minimal shape tilekey needs from a dimension request
// entry, kept independent of package tile to avoid a cyclic dependency.
type DimEntry struct {
	Name        string
	CachedValue string
}

// Input is everything the template substitution needs from a tile address.
type Input struct {
	Tileset     string
	Grid        string
	X, Y, Z     int
	GridMaxX    int // levels[z].maxx, for {inv_x}
	GridMaxY    int // levels[z].maxy, for {inv_y}
	GridNLevels int // for {inv_z}
	Dimensions  []DimEntry
	Ext         string
}

// DefaultTemplate is the layout used when no template is supplied (spec §3.6).
const DefaultTemplate = "{tileset}/{grid}/{dim}/{z}/{y}/{x}.{ext}"

// DimKey builds the {dim} token's expansion: "#name1#value1#name2#value2…"
// (spec §3.6), sanitizing cached values against reject/escape if given.
func DimKey(dims []DimEntry, reject string, escape byte) string {
	if len(dims) == 0 {
		return ""
	}
	var b strings.Builder
	for _, d := range dims {
		v := d.CachedValue
		if reject != "" {
			v = Sanitize(v, reject, escape)
		}
		b.WriteByte('#')
		b.WriteString(d.Name)
		b.WriteByte('#')
		b.WriteString(v)
	}
	return b.String()
}

// Key expands template against in, or DefaultTemplate if template is empty.
// reject/escape sanitize dimension cached-value segments, as in
// mapcache_util_get_tile_key's sanitized_chars/sanitize_to parameters.
func Key(in Input, template string, reject string, escape byte) string {
	if template == "" {
		template = DefaultTemplate
	}
	path := template

	if strings.Contains(path, "{x}") {
		path = replace(path, "{x}", strconv.Itoa(in.X))
	} else if strings.Contains(path, "{inv_x}") {
		path = replace(path, "{inv_x}", strconv.Itoa(in.GridMaxX-in.X-1))
	}
	if strings.Contains(path, "{y}") {
		path = replace(path, "{y}", strconv.Itoa(in.Y))
	} else if strings.Contains(path, "{inv_y}") {
		path = replace(path, "{inv_y}", strconv.Itoa(in.GridMaxY-in.Y-1))
	}
	if strings.Contains(path, "{z}") {
		path = replace(path, "{z}", strconv.Itoa(in.Z))
	} else if strings.Contains(path, "{inv_z}") {
		path = replace(path, "{inv_z}", strconv.Itoa(in.GridNLevels-in.Z-1))
	}
	if strings.Contains(path, "{quadkey}") {
		path = replace(path, "{quadkey}", EncodeQuadkey(in.X, in.Y, in.Z))
	}

	for _, d := range in.Dimensions {
		token := "{dim:" + d.Name + "}"
		if strings.Contains(path, token) {
			v := d.CachedValue
			if reject != "" {
				v = Sanitize(v, reject, escape)
			}
			path = replace(path, token, v)
		}
	}
	if strings.Contains(path, "{dim}") {
		path = replace(path, "{dim}", DimKey(in.Dimensions, reject, escape))
	}

	if strings.Contains(path, "{tileset}") {
		path = replace(path, "{tileset}", in.Tileset)
	}
	if strings.Contains(path, "{grid}") {
		path = replace(path, "{grid}", in.Grid)
	}
	if strings.Contains(path, "{ext}") {
		ext := in.Ext
		if ext == "" {
			ext = "png"
		}
		path = replace(path, "{ext}", ext)
	}
	return path
}

func replace(s, old, new string) string {
	return strings.ReplaceAll(s, old, new)
}

