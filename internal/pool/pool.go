// Package pool implements the keyed connection pool of spec §4.7: lazily
// constructed, reference-counted resources leased by key, with idle-slot
// expiry. Grounded on the teacher's JSONFileReader2
// (internal/infrastructure/cache/json_reader2.go), which drives
// jellydator/ttlcache/v3's generic Cache + LoaderFunc the same way: a
// typed cache keyed by string, a loader that lazily builds missing entries.
package pool

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/jellydator/ttlcache/v3"
)

// Constructor builds the resource behind a key; Destructor releases it.
type Constructor[T any] func(key string) (T, error)
type Destructor[T any] func(res T)

type entry[T any] struct {
	mu       sync.Mutex
	resource T
	refs     int
	failed   error
}

// Pool is the keyed cache of lazily-constructed resources of spec §4.7.
type Pool[T any] struct {
	ctor  Constructor[T]
	dtor  Destructor[T]
	cache *ttlcache.Cache[string, *entry[T]]
}

// Handle is a leased resource; call Release (or Invalidate on failure) to
// return it to the pool.
type Handle[T any] struct {
	key   string
	entry *entry[T]
	pool  *Pool[T]
}

func (h *Handle[T]) Resource() T {
	return h.entry.resource
}

// New builds a pool with idleTTL governing how long an unreferenced resource
// is kept alive before dtor runs (0 disables idle expiry).
func New[T any](ctor Constructor[T], dtor Destructor[T], idleTTL time.Duration) *Pool[T] {
	p := &Pool[T]{ctor: ctor, dtor: dtor}
	opts := []ttlcache.Option[string, *entry[T]]{}
	if idleTTL > 0 {
		opts = append(opts, ttlcache.WithTTL[string, *entry[T]](idleTTL))
	}
	c := ttlcache.New(opts...)
	c.OnEviction(func(ctx context.Context, reason ttlcache.EvictionReason, item *ttlcache.Item[string, *entry[T]]) {
		e := item.Value()
		e.mu.Lock()
		defer e.mu.Unlock()
		if e.refs == 0 && e.failed == nil && p.dtor != nil {
			p.dtor(e.resource)
		}
	})
	go c.Start()
	p.cache = c
	return p
}

// Get returns a leased handle for key, constructing the resource on first
// use for that key (ctor runs at most once per idle slot); concurrent Get
// calls for distinct keys never block each other.
func (p *Pool[T]) Get(key string) (*Handle[T], error) {
	item := p.cache.Get(key)
	var e *entry[T]
	if item == nil {
		e = &entry[T]{}
		item = p.cache.Set(key, e, ttlcache.DefaultTTL)
	} else {
		e = item.Value()
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.failed != nil {
		return nil, e.failed
	}
	if e.refs == 0 && isZero(e.resource) {
		res, err := p.ctor(key)
		if err != nil {
			e.failed = err
			return nil, fmt.Errorf("constructing pooled resource for %q: %w", key, err)
		}
		e.resource = res
	}
	e.refs++
	return &Handle[T]{key: key, entry: e, pool: p}, nil
}

func isZero[T any](v T) bool {
	var zero T
	return any(v) == any(zero)
}

// Release returns the handle to the pool without destroying its resource.
func (p *Pool[T]) Release(h *Handle[T]) {
	h.entry.mu.Lock()
	defer h.entry.mu.Unlock()
	if h.entry.refs > 0 {
		h.entry.refs--
	}
}

// Invalidate destroys the underlying resource immediately, regardless of
// other outstanding leases, and evicts it from the pool.
func (p *Pool[T]) Invalidate(h *Handle[T]) {
	p.cache.Delete(h.key)
	h.entry.mu.Lock()
	defer h.entry.mu.Unlock()
	if h.entry.refs > 0 {
		h.entry.refs--
	}
	if p.dtor != nil {
		p.dtor(h.entry.resource)
	}
	var zero T
	h.entry.resource = zero
}

func (p *Pool[T]) Close() {
	p.cache.Stop()
	p.cache.DeleteAll()
}
