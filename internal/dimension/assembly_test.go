package dimension

import (
	"testing"

	"github.com/gisquick/tilecache/internal/ctxerr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type staticDimension struct {
	name    string
	entries map[string][]string
}

func (s staticDimension) Name() string { return s.name }

func (s staticDimension) GetEntriesForValue(requested string) ([]string, error) {
	return s.entries[requested], nil
}

func TestResolveSingleValue(t *testing.T) {
	d := staticDimension{name: "TIME", entries: map[string][]string{"2020": {"2020-01-01"}}}
	resolved, err := Resolve([]RequestedDimension{{Dimension: d, Requested: "2020"}})
	require.NoError(t, err)
	assert.Equal(t, "2020-01-01", resolved[0].CachedValue)
}

func TestResolveNoEntriesIsNotFound(t *testing.T) {
	d := staticDimension{name: "TIME", entries: map[string][]string{}}
	_, err := Resolve([]RequestedDimension{{Dimension: d, Requested: "missing"}})
	require.Error(t, err)
	assert.Equal(t, ctxerr.StatusNotFound, ctxerr.StatusOf(err))
}

func TestResolveMultipleEntriesIsInternalError(t *testing.T) {
	d := staticDimension{name: "STYLE", entries: map[string][]string{"all": {"a", "b"}}}
	_, err := Resolve([]RequestedDimension{{Dimension: d, Requested: "all"}})
	require.Error(t, err)
	assert.Equal(t, ctxerr.StatusInternal, ctxerr.StatusOf(err))
}

func TestResolveEntriesForAssembly(t *testing.T) {
	d := staticDimension{name: "STYLE", entries: map[string][]string{"all": {"a", "b"}}}
	entries, err := ResolveEntries(RequestedDimension{Dimension: d, Requested: "all"})
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, entries)
}
