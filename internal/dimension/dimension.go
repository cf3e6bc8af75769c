// Package dimension implements the dimension request set and assembly
// model of spec §3.5 and §4.6: an extra axis (time, elevation, style)
// along which tiles are parameterized, optionally assembling several
// backing sub-values into one composite cached tile.
package dimension

import "github.com/gisquick/tilecache/internal/ctxerr"

// AssemblyType controls how a dimension's sub-values combine (spec §3.5).
type AssemblyType int

const (
	AssemblyNone AssemblyType = iota
	AssemblyStack
	AssemblyAnimate
)

// Dimension resolves a requested value to one or more concrete cached
// sub-values. Concrete backends (time-series lookup tables, enumerated
// style lists, ...) are the external collaborators of spec §6; the core
// only depends on this contract.
type Dimension interface {
	Name() string
	// GetEntriesForValue resolves requested into the sub-values used to
	// build (or fetch) the backing tiles. A single-entry result is the
	// common AssemblyNone case; multiple entries only apply when the
	// dimension's tileset uses assembly (spec §4.6).
	GetEntriesForValue(requested string) ([]string, error)
}

// named is a Dimension stub carrying only a name, for reconstructing a
// RequestedDimension from a key's already-resolved (name, cached_value)
// pair — e.g. a metatile's dimension fingerprint, which only needs to
// round-trip through a cache key, not re-resolve anything.
type named string

func (n named) Name() string { return string(n) }
func (n named) GetEntriesForValue(requested string) ([]string, error) {
	return []string{requested}, nil
}

// Named wraps a bare dimension name so a cache key can be rebuilt without a
// live Dimension backend (spec §4.4.1's metatile fingerprint never needs to
// re-resolve, only to match the original tile's cached_value).
func Named(name string) Dimension {
	return named(name)
}

// RequestedDimension is one (dimension, requested_value, cached_value)
// triple attached to a tile request (spec §3.5).
type RequestedDimension struct {
	Dimension     Dimension
	Requested     string
	CachedValue   string
}

func (d RequestedDimension) Name() string {
	return d.Dimension.Name()
}

// Resolve fills CachedValue for every entry in dims by requiring each
// dimension to produce exactly one concrete sub-value (spec §4.5 step 2):
// zero entries is a 404, more than one is a 500 (assembly must be used
// instead).
func Resolve(dims []RequestedDimension) ([]RequestedDimension, error) {
	out := make([]RequestedDimension, len(dims))
	for i, d := range dims {
		entries, err := d.Dimension.GetEntriesForValue(d.Requested)
		if err != nil {
			return nil, ctxerr.Wrap(err, ctxerr.StatusNotFound, "resolving dimension %q", d.Name())
		}
		switch len(entries) {
		case 0:
			return nil, ctxerr.NotFound("dimension %q: no value for %q", d.Name(), d.Requested)
		case 1:
			d.CachedValue = entries[0]
			out[i] = d
		default:
			return nil, ctxerr.Internal("dimension %q: requested value %q resolves to %d sub-values, assembly required", d.Name(), d.Requested, len(entries))
		}
	}
	return out, nil
}

// ResolveEntries returns every sub-value a dimension resolves to, for the
// assembly path (spec §4.6), without collapsing to exactly one.
func ResolveEntries(d RequestedDimension) ([]string, error) {
	entries, err := d.Dimension.GetEntriesForValue(d.Requested)
	if err != nil {
		return nil, ctxerr.Wrap(err, ctxerr.StatusNotFound, "resolving dimension %q entries", d.Name())
	}
	if len(entries) == 0 {
		return nil, ctxerr.NotFound("dimension %q: no values for %q", d.Name(), d.Requested)
	}
	return entries, nil
}
