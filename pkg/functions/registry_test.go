package functions_test

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sandrolain/gojexl/pkg/functions"
	"github.com/sandrolain/gojexl/pkg/types"
)

type strs struct{}

func (strs) Upper(s string) string { return strings.ToUpper(s) }

type echoCaller struct{}

func (echoCaller) Call(_ context.Context, fn interface{}, args ...interface{}) (interface{}, error) {
	return []interface{}{fn, args}, nil
}

func TestRegistry(t *testing.T) {
	ctx := context.Background()
	reg := functions.NewRegistry()

	require.NoError(t, reg.Register("twice", func(x int) int { return 2 * x }))
	require.NoError(t, reg.Register("sum", functions.Func(func(_ context.Context, args ...interface{}) (interface{}, error) {
		return int64(len(args)), nil
	})))
	require.NoError(t, reg.Register("apply", functions.AdvancedFunc(func(ctx context.Context, c functions.Caller, args ...interface{}) (interface{}, error) {
		return c.Call(ctx, args[0], args[1:]...)
	})))
	assert.Error(t, reg.Register("bad", 42))

	tests := []struct {
		name     string
		fn       string
		args     []interface{}
		expected interface{}
	}{
		{"reflect", "twice", []interface{}{int64(21)}, 42},
		{"func", "sum", []interface{}{1, 2, 3}, int64(3)},
		{"advanced", "apply", []interface{}{"f", 1}, []interface{}{"f", []interface{}{1}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fn, ok := reg.Lookup(tt.fn)
			require.True(t, ok)
			got, err := functions.Invoke(ctx, echoCaller{}, fn, tt.args)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, got)
		})
	}

	_, ok := reg.Lookup("missing")
	assert.False(t, ok)
	assert.ElementsMatch(t, []string{"twice", "sum", "apply"}, reg.Names())
}

func TestNamespaces(t *testing.T) {
	ctx := context.Background()
	reg := functions.NewRegistry()
	reg.RegisterNamespace("str", strs{})
	reg.RegisterNamespace("m", map[string]interface{}{
		"neg":   func(x int64) int64 { return -x },
		"value": 3,
	})

	fn, err := reg.NamespaceFunc("str", "upper")
	require.NoError(t, err)
	got, err := functions.Invoke(ctx, nil, fn, []interface{}{"abc"})
	require.NoError(t, err)
	assert.Equal(t, "ABC", got)

	fn, err = reg.NamespaceFunc("m", "neg")
	require.NoError(t, err)
	got, err = functions.Invoke(ctx, nil, fn, []interface{}{int64(2)})
	require.NoError(t, err)
	assert.Equal(t, int64(-2), got)

	_, err = reg.NamespaceFunc("m", "value")
	assert.ErrorIs(t, err, types.ErrMethod)
	_, err = reg.NamespaceFunc("nope", "x")
	assert.ErrorIs(t, err, types.ErrMethod)
}

func TestConstructors(t *testing.T) {
	ctx := context.Background()
	reg := functions.NewRegistry()

	tests := []struct {
		typeName string
		args     []interface{}
		expected interface{}
	}{
		{"int", []interface{}{int64(42)}, int64(42)},
		{"int", []interface{}{"42"}, int64(42)},
		{"float", []interface{}{"1.5"}, 1.5},
		{"string", []interface{}{int64(7)}, "7"},
		{"bool", []interface{}{""}, false},
		{"list", []interface{}{1, 2}, []interface{}{1, 2}},
		{"list", nil, []interface{}{}},
		{"map", []interface{}{"a", 1}, map[string]interface{}{"a": 1}},
	}
	for _, tt := range tests {
		t.Run(tt.typeName, func(t *testing.T) {
			fn, ok := reg.Constructor(tt.typeName)
			require.True(t, ok)
			got, err := functions.Invoke(ctx, nil, fn, tt.args)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, got)
		})
	}

	fn, _ := reg.Constructor("int")
	_, err := functions.Invoke(ctx, nil, fn, []interface{}{"x"})
	assert.ErrorIs(t, err, types.ErrMethod)

	require.NoError(t, reg.RegisterConstructor("point", func(x, y int) [2]int { return [2]int{x, y} }))
	fn, ok := reg.Constructor("point")
	require.True(t, ok)
	got, err := functions.Invoke(ctx, nil, fn, []interface{}{int64(1), int64(2)})
	require.NoError(t, err)
	assert.Equal(t, [2]int{1, 2}, got)
}

func TestClone(t *testing.T) {
	reg := functions.NewRegistry()
	require.NoError(t, reg.Register("a", func() int { return 1 }))
	clone := reg.Clone()
	require.NoError(t, clone.Register("b", func() int { return 2 }))

	_, ok := reg.Lookup("b")
	assert.False(t, ok)
	_, ok = clone.Lookup("a")
	assert.True(t, ok)
	_, ok = clone.Constructor("int")
	assert.True(t, ok)
}

func TestInvokeNonFunction(t *testing.T) {
	_, err := functions.Invoke(context.Background(), nil, "x", nil)
	e, ok := types.AsError(err)
	require.True(t, ok)
	assert.Equal(t, types.ErrInvokeNonFunction, e.Code)
}
