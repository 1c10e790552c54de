package evaluator_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sandrolain/gojexl/pkg/evaluator"
	"github.com/sandrolain/gojexl/pkg/functions"
	"github.com/sandrolain/gojexl/pkg/types"
)

type point struct {
	X, Y int
}

func (p point) Sum() int { return p.X + p.Y }

type strs struct{}

func (strs) Upper(s string) string { return strings.ToUpper(s) }

// vaContext exposes Cell as a context function.
type vaContext struct {
	evaluator.MapContext
}

func (vaContext) Cell(args ...interface{}) int {
	if len(args) > 0 {
		if _, ok := args[0].([]interface{}); ok {
			return 42 + len(args) - 1
		}
	}
	return len(args)
}

func registry(t *testing.T) *functions.Registry {
	t.Helper()
	reg := functions.NewRegistry()
	require.NoError(t, reg.Register("twice", func(x int) int { return 2 * x }))
	require.NoError(t, reg.Register("upper", strings.ToUpper))
	require.NoError(t, reg.Register("fail", func() error { return errors.New("boom") }))
	require.NoError(t, reg.Register("apply", functions.AdvancedFunc(func(ctx context.Context, c functions.Caller, args ...interface{}) (interface{}, error) {
		return c.Call(ctx, args[0], args[1:]...)
	})))
	reg.RegisterNamespace("str", strs{})
	return reg
}

func TestCalls(t *testing.T) {
	ev := engine(types.DefaultFlags, evaluator.WithFunctions(registry(t)))
	jc := evaluator.MapContext{
		"p":    point{X: 1, Y: 2},
		"util": map[string]interface{}{"inc": func(x int64) int64 { return x + 1 }},
		"m":    map[string]interface{}{"f": functions.Func(func(_ context.Context, args ...interface{}) (interface{}, error) { return len(args), nil })},
	}

	tests := []struct {
		name string
		src  string
		want interface{}
	}{
		{"registered", "twice(21)", 42},
		{"registered as method", "'abc'.upper()", "ABC"},
		{"go method", "p.sum()", 3},
		{"map entry", "m.f(1, 2)", 2},
		{"namespace", "str:upper('a')", "A"},
		{"context namespace", "util:inc(1)", int64(2)},
		{"advanced", "apply(x -> x * 2, 21)", int64(42)},
		{"constructor", "new('int', '42')", int64(42)},
		{"callable constructor", "new((a, b) -> a + b, 1, 2)", int64(3)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := run(t, ev, tt.src, jc)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCallErrors(t *testing.T) {
	ev := engine(types.DefaultFlags, evaluator.WithFunctions(registry(t)))
	jc := evaluator.MapContext{"v": 1}

	tests := []struct {
		name string
		src  string
		code types.ErrorCode
	}{
		{"undefined function", "nope()", types.ErrUndefinedFunction},
		{"not a function", "v()", types.ErrInvokeNonFunction},
		{"undefined method", "v.nope()", types.ErrUndefinedMethod},
		{"undefined namespace", "ns:f()", types.ErrUndefinedFunction},
		{"undefined constructor", "new('nope')", types.ErrUndefinedConstructor},
		{"host error", "fail()", types.ErrInvocation},
		{"arity", "twice(1, 2)", types.ErrArgumentMismatch},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := run(t, ev, tt.src, jc)
			require.ErrorIs(t, err, types.ErrMethod)
			assert.Equal(t, tt.code, errorCode(t, err))
		})
	}

	_, err := run(t, ev, "fail()", jc)
	assert.Contains(t, err.Error(), "boom")
}

func TestContextMethods(t *testing.T) {
	ev := engine(types.FlagStrict | types.FlagCancellable | types.FlagAntish)
	vars := evaluator.MapContext{}
	jc := vaContext{vars}

	tests := []struct {
		src  string
		args []interface{}
		want int
	}{
		{"cell()", nil, 0},
		{"x.cell()", []interface{}{[]interface{}{10, 20}}, 42},
		{"cell('1', '2')", nil, 2},
		{"x.cell('1', '2')", []interface{}{[]interface{}{10, 20}}, 44},
	}
	for _, tt := range tests {
		t.Run(tt.src, func(t *testing.T) {
			got, err := ev.Execute(context.Background(), compile(t, tt.src, "x"), jc, tt.args...)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	// Context plumbing is not callable from scripts.
	_, err := run(t, ev, "keys()", jc)
	assert.ErrorIs(t, err, types.ErrMethod)

	vars["TVALOGAR"] = nil
	got, err := run(t, ev, "TVALOGAR==null?'SIMON':'SIMONAZO'", jc)
	require.NoError(t, err)
	assert.Equal(t, "SIMON", got)

	vars["TVALOGAR"] = map[string]interface{}{"PEPITO": nil}
	got, err = run(t, ev, "TVALOGAR.PEPITO==null?'SIMON':'SIMONAZO'", jc)
	require.NoError(t, err)
	assert.Equal(t, "SIMON", got)

	delete(vars, "TVALOGAR")
	require.NoError(t, jc.Set("TVALOGAR.PEPITO", nil))
	got, err = run(t, ev, "TVALOGAR.PEPITO==null?'SIMON':'SIMONAZO'", jc)
	require.NoError(t, err)
	assert.Equal(t, "SIMON", got)
}

func TestStackOverflow(t *testing.T) {
	ev := engine(types.DefaultFlags, evaluator.WithMaxDepth(16))
	_, err := run(t, ev, "function f(n) { f(n + 1) } f(0)", nil)
	assert.Equal(t, types.ErrStackOverflow, errorCode(t, err))
}
