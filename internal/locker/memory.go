package locker

import (
	"context"
	"sync/atomic"

	"golang.org/x/sync/singleflight"
)

// Memory is the in-process locker backend: a singleflight.Group coalesces
// concurrent callers for the same name onto a single execution of fn, the
// same mechanism the teacher uses to coalesce concurrent metatile renders
// (internal/mapcache/service.go, internal/mapcache/mapcache.go).
type Memory struct {
	group singleflight.Group
}

func NewMemory() *Memory {
	return &Memory{}
}

func (m *Memory) Do(ctx context.Context, name string, fn func(ctx context.Context) error) (bool, error) {
	var executed atomic.Bool
	ch := m.group.DoChan(name, func() (interface{}, error) {
		executed.Store(true)
		return nil, fn(ctx)
	})
	select {
	case res := <-ch:
		return executed.Load(), res.Err
	case <-ctx.Done():
		return executed.Load(), ctx.Err()
	}
}
