// Package locker implements the named mutual-exclusion primitive of spec
// §4.8: concurrent callers for the same name coalesce onto a single
// execution of the caller-supplied function, with in-memory, file, and
// redis backends. Grounded on the teacher's use of
// golang.org/x/sync/singleflight for render coalescing
// (internal/mapcache/service.go) generalized to backends whose lifetime
// is decoupled from a single process, as cross-process workers need.
package locker

import "context"

// Locker is the named mutex contract of spec §4.8. Do runs fn if no other
// caller currently holds name's lock, or waits for the in-flight caller's
// fn to finish and returns its result otherwise. executed reports whether
// this call is the one that ran fn (and therefore owns its result, rather
// than merely having waited on someone else's).
type Locker interface {
	Do(ctx context.Context, name string, fn func(ctx context.Context) error) (executed bool, err error)
}
