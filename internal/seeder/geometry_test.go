package seeder

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/gisquick/tilecache/internal/grid"
)

func square() Ring {
	return Ring{{0, 0}, {10, 0}, {10, 10}, {0, 10}}
}

func TestGeometryFilterIntersectsInsideBox(t *testing.T) {
	f := NewGeometryFilter([]Ring{square()}, Intersects)
	assert.True(t, f.Test(grid.Extent{2, 2, 5, 5}))
}

func TestGeometryFilterIntersectsOutsideBox(t *testing.T) {
	f := NewGeometryFilter([]Ring{square()}, Intersects)
	assert.False(t, f.Test(grid.Extent{20, 20, 30, 30}))
}

func TestGeometryFilterTouchingEdgeExcludedUnderNotTouches(t *testing.T) {
	f := NewGeometryFilter([]Ring{square()}, IntersectsAndNotTouches)
	// shares only the right edge x=10, no interior overlap.
	assert.False(t, f.Test(grid.Extent{10, 0, 20, 10}))
}

func TestGeometryFilterNilPassesEverything(t *testing.T) {
	var f *GeometryFilter
	assert.True(t, f.Test(grid.Extent{100, 100, 200, 200}))
}

func TestGeometryFilterCachesVerdicts(t *testing.T) {
	f := NewGeometryFilter([]Ring{square()}, Intersects)
	ext := grid.Extent{2, 2, 5, 5}
	assert.True(t, f.Test(ext))
	assert.True(t, f.Test(ext)) // second call hits the memoization cache
}
