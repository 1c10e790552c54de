package arithmetic_test

import (
	"math"
	"regexp"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sandrolain/gojexl/pkg/arithmetic"
	"github.com/sandrolain/gojexl/pkg/types"
)

func TestBinary(t *testing.T) {
	a := arithmetic.Default()
	x := 5

	tests := []struct {
		name     string
		op       *types.Operator
		strict   bool
		l, r     interface{}
		expected interface{}
		code     types.ErrorCode
	}{
		{name: "int add", op: types.OpAdd, l: int64(40), r: int64(2), expected: int64(42)},
		{name: "mixed add", op: types.OpAdd, l: int64(1), r: 0.5, expected: 1.5},
		{name: "narrow ints widen", op: types.OpAdd, l: int32(1), r: uint8(2), expected: int64(3)},
		{name: "pointer operand", op: types.OpMultiply, l: &x, r: int64(2), expected: int64(10)},
		{name: "concat", op: types.OpAdd, l: "a", r: "b", expected: "ab"},
		{name: "concat number", op: types.OpAdd, l: "a", r: int64(1), expected: "a1"},
		{name: "concat lists", op: types.OpAdd, l: []interface{}{1}, r: []interface{}{2}, expected: []interface{}{1, 2}},
		{name: "merge maps", op: types.OpAdd, l: map[string]interface{}{"a": 1}, r: map[string]interface{}{"b": 2}, expected: map[string]interface{}{"a": 1, "b": 2}},
		{name: "int divide", op: types.OpDivide, l: int64(7), r: int64(2), expected: int64(3)},
		{name: "float divide", op: types.OpDivide, l: 7.0, r: int64(2), expected: 3.5},
		{name: "mod", op: types.OpMod, l: int64(7), r: int64(3), expected: int64(1)},
		{name: "bitwise and", op: types.OpAnd, l: int64(6), r: int64(3), expected: int64(2)},
		{name: "boolean xor", op: types.OpXor, l: true, r: false, expected: true},

		{name: "strict null", op: types.OpAdd, strict: true, l: nil, r: int64(1), code: types.ErrNullOperand},
		{name: "lenient null", op: types.OpAdd, l: nil, r: int64(1), expected: int64(1)},
		{name: "lenient null concat", op: types.OpAdd, l: "a", r: nil, expected: "a"},
		{name: "strict division by zero", op: types.OpDivide, strict: true, l: int64(1), r: int64(0), code: types.ErrDivisionByZero},
		{name: "lenient division by zero", op: types.OpDivide, l: int64(1), r: int64(0), expected: int64(0)},
		{name: "strict overflow", op: types.OpAdd, strict: true, l: int64(math.MaxInt64), r: int64(1), code: types.ErrOverflow},
		{name: "lenient overflow", op: types.OpAdd, l: int64(math.MaxInt64), r: int64(1), expected: float64(math.MaxInt64) + 1},
		{name: "multiply overflow", op: types.OpMultiply, strict: true, l: int64(math.MaxInt64), r: int64(2), code: types.ErrOverflow},
		{name: "no operator", op: types.OpSubtract, l: "a", r: "b", code: types.ErrNoOperator},

		{name: "equals across kinds", op: types.OpEquals, l: int64(1), r: 1.0, expected: true},
		{name: "equals null", op: types.OpEquals, strict: true, l: nil, r: int64(0), expected: false},
		{name: "equals no coercion", op: types.OpEquals, l: "1", r: int64(1), expected: false},
		{name: "equals lists", op: types.OpEquals, l: []interface{}{int64(1)}, r: []interface{}{1.0}, expected: true},
		{name: "less ints", op: types.OpLessThan, l: int64(1), r: int64(2), expected: true},
		{name: "less strings", op: types.OpLessThan, l: "b", r: "a", expected: false},
		{name: "ordering by rank", op: types.OpLessThan, l: int64(9), r: "a", expected: true},
		{name: "ordering booleans", op: types.OpGreaterThan, l: true, r: false, expected: true},
		{name: "NaN ordering", op: types.OpLessThanOrEqual, l: math.NaN(), r: 1.0, expected: false},
		{name: "strict null ordering", op: types.OpLessThan, strict: true, l: nil, r: int64(1), code: types.ErrNullOperand},

		{name: "regexp match", op: types.OpContains, l: "abc", r: "a.c", expected: true},
		{name: "regexp is anchored", op: types.OpContains, l: "xabc", r: "a.c", expected: false},
		{name: "compiled regexp", op: types.OpContains, l: "xabc", r: regexp.MustCompile("a.c"), expected: true},
		{name: "membership", op: types.OpContains, l: int64(2), r: []interface{}{int64(1), int64(2)}, expected: true},
		{name: "typed membership", op: types.OpContains, l: int64(3), r: []int{1, 2}, expected: false},
		{name: "key membership", op: types.OpContains, l: "k", r: map[string]interface{}{"k": nil}, expected: true},
		{name: "substring", op: types.OpContains, l: int64(2), r: "123", expected: true},
		{name: "null container", op: types.OpContains, l: "a", r: nil, expected: false},
		{name: "invalid regexp", op: types.OpContains, l: "a", r: "(", code: types.ErrInvalidRegex},
		{name: "starts with", op: types.OpStartsWith, l: "hello", r: "he", expected: true},
		{name: "ends with", op: types.OpEndsWith, l: "hello", r: "lo", expected: true},
		{name: "list starts with", op: types.OpStartsWith, l: []interface{}{"a", "b"}, r: "a", expected: true},
		{name: "list ends with", op: types.OpEndsWith, l: []interface{}{"a", "b"}, r: "a", expected: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := a.Evaluate(tt.op, tt.strict, tt.l, tt.r)
			if tt.code != "" {
				e, ok := types.AsError(err)
				require.True(t, ok, "expected *types.Error, got %v (%v)", err, got)
				assert.Equal(t, tt.code, e.Code)
				assert.ErrorIs(t, err, types.ErrOperator)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestUnary(t *testing.T) {
	a := arithmetic.Default()

	tests := []struct {
		name     string
		op       *types.Operator
		strict   bool
		v        interface{}
		expected interface{}
		code     types.ErrorCode
	}{
		{name: "negate", op: types.OpNegate, v: int64(3), expected: int64(-3)},
		{name: "negate narrow", op: types.OpNegate, v: int8(3), expected: int64(-3)},
		{name: "negate float", op: types.OpNegate, v: 1.5, expected: -1.5},
		{name: "negate null", op: types.OpNegate, strict: true, v: nil, expected: nil},
		{name: "negate min", op: types.OpNegate, strict: true, v: int64(math.MinInt64), code: types.ErrOverflow},
		{name: "negate string", op: types.OpNegate, v: "a", code: types.ErrNoOperator},
		{name: "complement", op: types.OpComplement, v: int64(0), expected: int64(-1)},
		{name: "not", op: types.OpNot, v: "", expected: true},
		{name: "not list", op: types.OpNot, v: []interface{}{1}, expected: false},
		{name: "empty null", op: types.OpEmpty, v: nil, expected: true},
		{name: "empty zero", op: types.OpEmpty, v: int64(0), expected: true},
		{name: "empty map", op: types.OpEmpty, v: map[string]interface{}{}, expected: true},
		{name: "empty struct", op: types.OpEmpty, v: struct{}{}, expected: false},
		{name: "size string", op: types.OpSize, v: "héllo", expected: int64(5)},
		{name: "size list", op: types.OpSize, v: []interface{}{1, 2}, expected: int64(2)},
		{name: "size null", op: types.OpSize, v: nil, expected: int64(0)},
		{name: "size number", op: types.OpSize, v: int64(3), code: types.ErrNoOperator},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := a.Evaluate(tt.op, tt.strict, tt.v)
			if tt.code != "" {
				e, ok := types.AsError(err)
				require.True(t, ok, "expected *types.Error, got %v (%v)", err, got)
				assert.Equal(t, tt.code, e.Code)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestEvaluateSelf(t *testing.T) {
	a := arithmetic.Default()

	var sb strings.Builder
	got, err := a.EvaluateSelf(types.OpSelfAdd, true, &sb, int64(42))
	require.NoError(t, err)
	assert.True(t, types.IsAssigned(got))
	assert.Equal(t, "42", sb.String())

	list := []interface{}{}
	got, err = a.EvaluateSelf(types.OpSelfAdd, true, &list, "x")
	require.NoError(t, err)
	assert.True(t, types.IsAssigned(got))
	assert.Equal(t, []interface{}{"x"}, list)

	got, err = a.EvaluateSelf(types.OpSelfMultiply, true, int64(6), int64(7))
	require.NoError(t, err)
	assert.Equal(t, int64(42), got)
}

type money struct{ cents int64 }

func TestOverrides(t *testing.T) {
	a := arithmetic.New(
		arithmetic.WithBinary(types.OpAdd, arithmetic.TypeOf[money](), arithmetic.TypeOf[money](),
			func(_ *arithmetic.Arithmetic, _ bool, l, r interface{}) (interface{}, error) {
				return money{l.(money).cents + r.(money).cents}, nil
			}),
		arithmetic.WithUnary(types.OpNegate, arithmetic.TypeOf[string](),
			func(_ *arithmetic.Arithmetic, _ bool, v interface{}) (interface{}, error) {
				return "-" + v.(string), nil
			}),
		arithmetic.WithBinary(types.OpDivide, arithmetic.Any, arithmetic.Any,
			func(_ *arithmetic.Arithmetic, _ bool, _, _ interface{}) (interface{}, error) {
				return "fallback", nil
			}),
	)

	got, err := a.Binary(types.OpAdd, true, money{1}, money{2})
	require.NoError(t, err)
	assert.Equal(t, money{3}, got)

	got, err = a.Unary(types.OpNegate, true, "x")
	require.NoError(t, err)
	assert.Equal(t, "-x", got)

	got, err = a.Binary(types.OpDivide, true, "a", "b")
	require.NoError(t, err)
	assert.Equal(t, "fallback", got)

	// defaults are untouched
	got, err = a.Binary(types.OpDivide, true, int64(4), int64(2))
	require.NoError(t, err)
	assert.Equal(t, int64(2), got)
}

func TestCompare(t *testing.T) {
	values := []interface{}{
		"b", int64(2), nil, true, []interface{}{int64(1)}, 1.5, false, "a",
		map[string]interface{}{"a": 1},
	}
	expected := []interface{}{
		nil, false, true, 1.5, int64(2), "a", "b", []interface{}{int64(1)},
		map[string]interface{}{"a": 1},
	}
	sorted := append([]interface{}(nil), values...)
	for i := 1; i < len(sorted); i++ {
		for j := i; j > 0 && arithmetic.Compare(sorted[j-1], sorted[j]) > 0; j-- {
			sorted[j-1], sorted[j] = sorted[j], sorted[j-1]
		}
	}
	assert.Equal(t, expected, sorted)
	assert.Equal(t, 0, arithmetic.Compare(int64(1), 1.0))
	assert.Equal(t, -1, arithmetic.Compare(math.NaN(), math.Inf(-1)))
}

func TestConversions(t *testing.T) {
	assert.Equal(t, "1.5", arithmetic.ToString(1.5))
	assert.Equal(t, "", arithmetic.ToString(nil))
	assert.Equal(t, "42", arithmetic.ToString(int64(42)))

	n, ok := arithmetic.ToInt64("42")
	assert.True(t, ok)
	assert.Equal(t, int64(42), n)
	_, ok = arithmetic.ToInt64("x")
	assert.False(t, ok)

	truthy := []interface{}{true, int64(1), "a", []interface{}{nil}, struct{}{}}
	falsy := []interface{}{nil, false, int64(0), 0.0, math.NaN(), "", []interface{}{}, map[string]interface{}{}}
	for _, v := range truthy {
		assert.True(t, arithmetic.ToBoolean(v), "%v", v)
	}
	for _, v := range falsy {
		assert.False(t, arithmetic.ToBoolean(v), "%v", v)
	}
}

func TestRegexpCache(t *testing.T) {
	a := arithmetic.New()
	r1, err := a.Regexp("a+")
	require.NoError(t, err)
	r2, err := a.Regexp("a+")
	require.NoError(t, err)
	assert.Same(t, r1, r2)
}
