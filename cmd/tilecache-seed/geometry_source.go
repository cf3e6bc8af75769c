package main

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/gisquick/tilecache/internal/seeder"
)

// loadWKTPolygons reads the ogr-datasource input (spec §6.3). No pack
// example carries an OGR/shapefile reader, so this substitutes the
// narrowest useful format: one "POLYGON((x1 y1, x2 y2, ...))" per line,
// WKT's own ring syntax, skipping blank lines and "#" comments. Real OGR
// datasources (shapefile, GeoPackage, PostGIS) are out of scope; see
// DESIGN.md.
func loadWKTPolygons(path string) ([]seeder.Ring, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var rings []seeder.Ring
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		ring, err := parseWKTPolygon(line)
		if err != nil {
			return nil, fmt.Errorf("line %q: %w", line, err)
		}
		rings = append(rings, ring)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return rings, nil
}

func parseWKTPolygon(line string) (seeder.Ring, error) {
	upper := strings.ToUpper(line)
	if !strings.HasPrefix(upper, "POLYGON") {
		return nil, fmt.Errorf("expected POLYGON(...), got %q", line)
	}
	open := strings.IndexByte(line, '(')
	close := strings.LastIndexByte(line, ')')
	if open < 0 || close < 0 || close <= open {
		return nil, fmt.Errorf("malformed polygon body")
	}
	body := line[open+1 : close]
	body = strings.Trim(body, "()")

	var ring seeder.Ring
	for _, pair := range strings.Split(body, ",") {
		fields := strings.Fields(strings.TrimSpace(pair))
		if len(fields) != 2 {
			return nil, fmt.Errorf("malformed coordinate pair %q", pair)
		}
		x, err := strconv.ParseFloat(fields[0], 64)
		if err != nil {
			return nil, err
		}
		y, err := strconv.ParseFloat(fields[1], 64)
		if err != nil {
			return nil, err
		}
		ring = append(ring, seeder.Point{X: x, Y: y})
	}
	if len(ring) < 3 {
		return nil, fmt.Errorf("polygon ring needs at least 3 points")
	}
	return ring, nil
}
