package cache_test

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"github.com/sandrolain/gojexl/pkg/cache"
	"github.com/sandrolain/gojexl/pkg/parser"
	"github.com/sandrolain/gojexl/pkg/types"
)

func mustParse(t *testing.T, src string) *types.Script {
	t.Helper()
	script, err := parser.Parse(src)
	require.NoError(t, err)
	return script
}

func TestKey(t *testing.T) {
	base := cache.Key("x + y", []string{"x"}, "")
	assert.Equal(t, base, cache.Key("x + y", []string{"x"}, ""))

	others := []uint64{
		cache.Key("x + y", nil, ""),
		cache.Key("x + y", []string{"x", "y"}, ""),
		cache.Key("x + y", []string{"x"}, "main.jexl"),
		cache.Key("x+y", []string{"x"}, ""),
		// Parameters and source must not run together.
		cache.Key("x + y", []string{"x", ""}, ""),
	}
	for i, k := range others {
		assert.NotEqual(t, base, k, "key %d", i)
	}
}

func TestCapacity(t *testing.T) {
	assert.Equal(t, 10, cache.New(10).Capacity())
	assert.Equal(t, cache.DefaultCapacity, cache.New(0).Capacity())
	assert.Equal(t, cache.DefaultCapacity, cache.New(-1).Capacity())
}

func TestSetGet(t *testing.T) {
	c := cache.New(4)
	script := mustParse(t, "a.b")
	c.Set(1, script)
	assert.Equal(t, 1, c.Len())

	got, ok := c.Get(1)
	require.True(t, ok)
	assert.Same(t, script, got)

	_, ok = c.Get(2)
	assert.False(t, ok)

	hits, misses := c.Stats()
	assert.Equal(t, uint64(1), hits)
	assert.Equal(t, uint64(1), misses)

	other := mustParse(t, "a.c")
	c.Set(1, other)
	got, _ = c.Get(1)
	assert.Same(t, other, got)
	assert.Equal(t, 1, c.Len())
}

func TestEviction(t *testing.T) {
	c := cache.New(3)
	script := mustParse(t, "1")
	for k := uint64(1); k <= 3; k++ {
		c.Set(k, script)
	}
	// 1 becomes the most recently used, so 2 is evicted next.
	_, ok := c.Get(1)
	require.True(t, ok)
	c.Set(4, script)

	assert.Equal(t, 3, c.Len())
	_, ok = c.Get(2)
	assert.False(t, ok, "2 should have been evicted")
	for _, k := range []uint64{1, 3, 4} {
		_, ok := c.Get(k)
		assert.True(t, ok, "key %d", k)
	}
}

func TestInvalidateClear(t *testing.T) {
	c := cache.New(4)
	script := mustParse(t, "1")
	c.Set(1, script)
	c.Set(2, script)

	c.Invalidate(1)
	_, ok := c.Get(1)
	assert.False(t, ok)
	assert.Equal(t, 1, c.Len())

	c.Clear()
	assert.Equal(t, 0, c.Len())
}

func TestGetOrCompile(t *testing.T) {
	c := cache.New(4)
	calls := 0
	compile := func(src string) func() (*types.Script, error) {
		return func() (*types.Script, error) {
			calls++
			return parser.Parse(src)
		}
	}

	first, err := c.GetOrCompile(cache.Key("x * 2", nil, ""), compile("x * 2"))
	require.NoError(t, err)
	second, err := c.GetOrCompile(cache.Key("x * 2", nil, ""), compile("x * 2"))
	require.NoError(t, err)
	assert.Same(t, first, second)
	assert.Equal(t, 1, calls)

	// Errors are not cached.
	key := cache.Key("x +", nil, "")
	for range 2 {
		_, err = c.GetOrCompile(key, compile("x +"))
		assert.ErrorIs(t, err, types.ErrParsing)
	}
	assert.Equal(t, 3, calls)
	assert.Equal(t, 1, c.Len())
}

func TestConcurrentAccess(t *testing.T) {
	c := cache.New(8)
	var g errgroup.Group
	for i := range 32 {
		g.Go(func() error {
			src := fmt.Sprintf("x + %d", i%12)
			script, err := c.GetOrCompile(cache.Key(src, []string{"x"}, ""), func() (*types.Script, error) {
				return parser.Parse(src, parser.WithParameters("x"))
			})
			if err != nil {
				return err
			}
			if script.Source() != src {
				return fmt.Errorf("got script %q for %q", script.Source(), src)
			}
			return nil
		})
	}
	require.NoError(t, g.Wait())
	assert.LessOrEqual(t, c.Len(), 8)
}
