package pool

import (
	"fmt"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type resource struct{ id int }

func TestGetConstructsOncePerKey(t *testing.T) {
	var constructs int32
	p := New(func(key string) (*resource, error) {
		n := atomic.AddInt32(&constructs, 1)
		return &resource{id: int(n)}, nil
	}, func(r *resource) {}, 0)
	defer p.Close()

	h1, err := p.Get("a")
	require.NoError(t, err)
	h2, err := p.Get("a")
	require.NoError(t, err)
	assert.Same(t, h1.Resource(), h2.Resource())
	assert.EqualValues(t, 1, constructs)
}

func TestGetDoesNotBlockAcrossKeys(t *testing.T) {
	p := New(func(key string) (*resource, error) {
		return &resource{}, nil
	}, func(r *resource) {}, 0)
	defer p.Close()

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			h, err := p.Get(fmt.Sprintf("key-%d", i))
			assert.NoError(t, err)
			p.Release(h)
		}(i)
	}
	wg.Wait()
}

func TestInvalidateDestroysResource(t *testing.T) {
	var destroyed int32
	p := New(func(key string) (*resource, error) {
		return &resource{id: 1}, nil
	}, func(r *resource) {
		atomic.AddInt32(&destroyed, 1)
	}, 0)
	defer p.Close()

	h, err := p.Get("a")
	require.NoError(t, err)
	p.Invalidate(h)
	assert.EqualValues(t, 1, destroyed)
}

func TestGetPropagatesConstructorError(t *testing.T) {
	p := New(func(key string) (*resource, error) {
		return nil, fmt.Errorf("boom")
	}, func(r *resource) {}, 0)
	defer p.Close()

	_, err := p.Get("a")
	assert.Error(t, err)
}
