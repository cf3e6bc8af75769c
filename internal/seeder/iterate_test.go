package seeder

import (
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLevelByLevelCoversAllMetatileAlignedCoords(t *testing.T) {
	gl := examineGridLink(t)
	p := NewLevelByLevel(gl, 0, 1, 2, 2)
	var coords []Coord
	for {
		c, ok := p.Next()
		if !ok {
			break
		}
		coords = append(coords, c)
		assert.Equal(t, 0, c.X%2)
		assert.Equal(t, 0, c.Y%2)
	}
	assert.NotEmpty(t, coords)
	// z=0 has a 1x1 grid (single tile), z=1 has 2x2: one metatile each.
	zCounts := map[int]int{}
	for _, c := range coords {
		zCounts[c.Z]++
	}
	assert.Equal(t, 2, len(zCounts))
}

func TestDrillDownVisitsParentBeforeChildren(t *testing.T) {
	gl := examineGridLink(t)
	var visited []Coord
	examine := func(x, y, z int) ([]Command, error) {
		visited = append(visited, Coord{X: x, Y: y, Z: z})
		return []Command{CmdSeed}, nil
	}
	emit := func(c Command, x, y, z int) {}
	err := DrillDown(gl, 1, 1, 0, 1, examine, emit)
	require.NoError(t, err)
	require.NotEmpty(t, visited)
	assert.Equal(t, 0, visited[0].Z)
}

func TestDrillDownStopsRecursionOnExclusion(t *testing.T) {
	gl := examineGridLink(t)
	calls := 0
	examine := func(x, y, z int) ([]Command, error) {
		calls++
		return []Command{CmdStopRecursion}, nil
	}
	emit := func(c Command, x, y, z int) {}
	err := DrillDown(gl, 1, 1, 0, 2, examine, emit)
	require.NoError(t, err)
	// every root-level node is visited once, none recurse further.
	rootCount := calls
	assert.Equal(t, 1, rootCount)
}

func TestRetryLogProducerReplaysCoordinates(t *testing.T) {
	dir := t.TempDir()
	path := dir + "/retry.log"
	content := "1,2,3\n4,5,6\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	p, err := OpenRetryLog(path)
	require.NoError(t, err)
	defer p.Close()

	c1, ok := p.Next()
	require.True(t, ok)
	assert.Equal(t, Coord{1, 2, 3}, c1)

	c2, ok := p.Next()
	require.True(t, ok)
	assert.Equal(t, Coord{4, 5, 6}, c2)

	_, ok = p.Next()
	assert.False(t, ok)
}

func TestAppendFailedLogFormat(t *testing.T) {
	var buf strings.Builder
	require.NoError(t, AppendFailedLog(&buf, Coord{7, 8, 9}))
	assert.Equal(t, "7,8,9\n", buf.String())
}

