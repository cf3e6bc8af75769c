package config

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const testDoc = `
grids:
  wgs84:
    srs: EPSG:4326
    extent: [-180, -90, 180, 90]
    tile_size: [256, 256]
    origin: bl
    unit: degrees
    resolutions: [0.703125, 0.3515625]

caches:
  disk:
    type: file
    path: %s

tilesets:
  osm:
    cache: disk
    format: png
    grids: [wgs84]
    metasize: [1, 1]
`

func TestLoadBuildsGridCacheAndTileset(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	cacheDir := filepath.Join(dir, "cache")
	content := fmt.Sprintf(testDoc, cacheDir)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	a, err := Load(zap.NewNop().Sugar(), path)
	require.NoError(t, err)

	assert.Contains(t, a.Grids, "wgs84")
	assert.Contains(t, a.Caches, "disk")
	assert.Contains(t, a.Tilesets, "osm")
	assert.Equal(t, "png", a.DefaultImageFormat)
}

func TestLoadRejectsUnknownGridReference(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	doc := `
caches:
  disk:
    type: file
    path: ` + dir + `
tilesets:
  osm:
    cache: disk
    grids: [nosuch]
`
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o644))
	_, err := Load(zap.NewNop().Sugar(), path)
	assert.Error(t, err)
}
