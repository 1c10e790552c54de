package introspect_test

import (
	"context"
	"errors"
	"reflect"
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sandrolain/gojexl/pkg/introspect"
	"github.com/sandrolain/gojexl/pkg/types"
)

type address struct {
	City string
}

type person struct {
	Name    string
	Age     int
	Address *address
	secret  string
	nick    *string
}

func (p *person) GetNick() *string { return p.nick }

func (p *person) Greet(greeting string, names ...string) string {
	out := greeting + " " + p.Name
	for _, n := range names {
		out += " " + n
	}
	return out
}

func (p *person) SetSecret(s string) { p.secret = s }

type bag map[string]int

func (b bag) GetProperty(name string) (interface{}, bool) {
	v, ok := b[name]
	return v, ok
}

func TestIndex(t *testing.T) {
	nick := "jo"
	p := &person{Name: "John", Age: 42, Address: &address{City: "Rome"}, nick: &nick}

	tests := []struct {
		name     string
		obj      interface{}
		key      interface{}
		expected interface{}
		code     types.ErrorCode
	}{
		{name: "map hit", obj: map[string]interface{}{"a": int64(1)}, key: "a", expected: int64(1)},
		{name: "map miss is null", obj: map[string]interface{}{}, key: "a", expected: nil},
		{name: "map numeric key", obj: map[string]interface{}{"0": "zero"}, key: int64(0), expected: "zero"},
		{name: "typed map", obj: map[int]string{3: "three"}, key: "3", expected: "three"},
		{name: "null key", obj: map[interface{}]interface{}{nil: 42}, key: nil, expected: 42},
		{name: "list", obj: []interface{}{"a", "b"}, key: int64(1), expected: "b"},
		{name: "list digit property", obj: []interface{}{"a", "b"}, key: "0", expected: "a"},
		{name: "typed slice", obj: []int{7, 8}, key: 1.0, expected: 8},
		{name: "string", obj: "héllo", key: int64(1), expected: "é"},
		{name: "field", obj: p, key: "name", expected: "John"},
		{name: "exact field", obj: p, key: "Age", expected: 42},
		{name: "getter", obj: p, key: "nick", expected: "jo"},
		{name: "struct value", obj: address{City: "Oslo"}, key: "city", expected: "Oslo"},
		{name: "property getter", obj: bag{"x": 1}, key: "x", expected: 1},
		{name: "out of range", obj: []interface{}{1}, key: int64(1), code: types.ErrIndexOutOfRange},
		{name: "negative", obj: []interface{}{1}, key: int64(-1), code: types.ErrIndexOutOfRange},
		{name: "not an index", obj: []interface{}{1}, key: "size", code: types.ErrUndefinedProperty},
		{name: "unexported", obj: p, key: "secret", code: types.ErrUndefinedProperty},
		{name: "missing member", obj: p, key: "phone", code: types.ErrUndefinedProperty},
		{name: "getter miss", obj: bag{}, key: "x", code: types.ErrUndefinedProperty},
		{name: "null receiver", obj: nil, key: "x", code: types.ErrNullProperty},
		{name: "nil pointer receiver", obj: (*person)(nil), key: "name", code: types.ErrNullProperty},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := introspect.Index(tt.obj, tt.key)
			if tt.code != "" {
				e, ok := types.AsError(err)
				require.True(t, ok, "expected *types.Error, got %v", err)
				assert.Equal(t, tt.code, e.Code)
				assert.Equal(t, introspect.KeyString(tt.key), e.Name)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestIndexNormalizes(t *testing.T) {
	p := &person{}
	got, err := introspect.Get(p, "nick")
	require.NoError(t, err)
	assert.Nil(t, got)

	got, err = introspect.Get(p, "address")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestSet(t *testing.T) {
	t.Run("map", func(t *testing.T) {
		m := map[string]interface{}{}
		require.NoError(t, introspect.Set(m, "a", int64(1)))
		assert.Equal(t, int64(1), m["a"])
	})
	t.Run("string map stringifies keys", func(t *testing.T) {
		m := map[string]interface{}{"a": int64(1)}
		require.NoError(t, introspect.Set(m, int64(1), int64(2)))
		assert.Equal(t, map[string]interface{}{"a": int64(1), "1": int64(2)}, m)
		got, err := introspect.Index(m, int64(1))
		require.NoError(t, err)
		assert.Equal(t, int64(2), got)
	})
	t.Run("null key", func(t *testing.T) {
		m := map[interface{}]interface{}{}
		require.NoError(t, introspect.Set(m, nil, int64(42)))
		assert.Equal(t, int64(42), m[nil])
	})
	t.Run("typed map converts", func(t *testing.T) {
		m := map[string]int{}
		require.NoError(t, introspect.Set(m, "a", int64(3)))
		assert.Equal(t, 3, m["a"])
	})
	t.Run("list", func(t *testing.T) {
		l := []interface{}{1, 2}
		require.NoError(t, introspect.Set(l, int64(0), "x"))
		assert.Equal(t, "x", l[0])
	})
	t.Run("list out of range", func(t *testing.T) {
		err := introspect.Set([]interface{}{}, int64(0), "x")
		assert.ErrorIs(t, err, types.ErrProperty)
	})
	t.Run("field", func(t *testing.T) {
		p := &person{}
		require.NoError(t, introspect.Set(p, "age", int64(30)))
		assert.Equal(t, 30, p.Age)
	})
	t.Run("setter", func(t *testing.T) {
		p := &person{}
		require.NoError(t, introspect.Set(p, "secret", "s"))
		assert.Equal(t, "s", p.secret)
	})
	t.Run("struct value is read only", func(t *testing.T) {
		err := introspect.Set(address{}, "city", "x")
		e, ok := types.AsError(err)
		require.True(t, ok)
		assert.Equal(t, types.ErrReadOnlyProperty, e.Code)
	})
	t.Run("null receiver", func(t *testing.T) {
		err := introspect.Set(nil, "x", 1)
		assert.ErrorIs(t, err, types.ErrProperty)
	})
}

func TestHas(t *testing.T) {
	p := &person{Name: "a"}
	assert.True(t, introspect.Has(p, "name"))
	assert.True(t, introspect.Has(p, "nick"))
	assert.False(t, introspect.Has(p, "phone"))
	assert.True(t, introspect.Has(map[string]interface{}{"x": nil}, "x"))
	assert.False(t, introspect.Has(map[string]interface{}{}, "x"))
	assert.False(t, introspect.Has(nil, "x"))
	assert.True(t, introspect.HasKey(map[interface{}]interface{}{nil: 1}, nil))
}

func TestKeys(t *testing.T) {
	assert.Equal(t, []string{"address", "age", "name"}, sorted(introspect.Keys(person{})))
	assert.Equal(t, []string{"a", "b"}, introspect.Keys(map[string]int{"b": 1, "a": 2}))
	assert.Nil(t, introspect.Keys(42))
}

func sorted(s []string) []string {
	slices.Sort(s)
	return s
}

func TestSizeAndEmpty(t *testing.T) {
	tests := []struct {
		value interface{}
		size  int
		empty bool
		ok    bool
	}{
		{nil, 0, true, true},
		{"", 0, true, true},
		{"héllo", 5, false, true},
		{[]interface{}{1, 2}, 2, false, true},
		{map[string]int{}, 0, true, true},
		{[3]int{}, 3, false, true},
		{42, 0, false, false},
	}
	for _, tt := range tests {
		n, ok := introspect.Size(tt.value)
		assert.Equal(t, tt.ok, ok, "size ok of %v", tt.value)
		assert.Equal(t, tt.size, n, "size of %v", tt.value)
		empty, ok := introspect.IsEmpty(tt.value)
		assert.Equal(t, tt.ok, ok, "empty ok of %v", tt.value)
		assert.Equal(t, tt.empty, empty, "empty of %v", tt.value)
	}
}

func TestValues(t *testing.T) {
	collect := func(v interface{}) []interface{} {
		seq, ok := introspect.Values(v)
		require.True(t, ok, "%v is not iterable", v)
		var out []interface{}
		for e := range seq {
			out = append(out, e)
		}
		return out
	}

	assert.Equal(t, []interface{}{int64(1), "a"}, collect([]interface{}{int64(1), "a"}))
	assert.Equal(t, []interface{}{"a", "é"}, collect("aé"))
	assert.Equal(t, []interface{}{int64(0), int64(1), int64(2)}, collect(int64(3)))
	assert.Equal(t, []interface{}{1, 2, 3}, collect(map[string]int{"b": 2, "a": 1, "c": 3}))
	assert.Equal(t, []interface{}{"x", "y"}, collect(map[int]string{10: "y", 2: "x"}))
	assert.Equal(t, []interface{}{4, 5}, collect([]int{4, 5}))

	_, ok := introspect.Values(3.5)
	assert.False(t, ok)
	_, ok = introspect.Values(nil)
	assert.False(t, ok)
}

func TestCall(t *testing.T) {
	p := &person{Name: "John"}
	greet, ok := introspect.Method(p, "greet")
	require.True(t, ok)

	got, err := introspect.Call(context.Background(), greet, []interface{}{"hi"})
	require.NoError(t, err)
	assert.Equal(t, "hi John", got)

	got, err = introspect.Call(context.Background(), greet, []interface{}{"hi", "and", "Jane"})
	require.NoError(t, err)
	assert.Equal(t, "hi John and Jane", got)

	_, err = introspect.Call(context.Background(), greet, nil)
	assert.ErrorIs(t, err, types.ErrMethod)

	_, ok = introspect.Method(p, "missing")
	assert.False(t, ok)
}

func TestCallContextAndErrors(t *testing.T) {
	type key struct{}
	ctx := context.WithValue(context.Background(), key{}, "v")
	boom := errors.New("boom")

	fn := reflect.ValueOf(func(ctx context.Context, n int) (string, error) {
		if n < 0 {
			return "", boom
		}
		return ctx.Value(key{}).(string), nil
	})

	got, err := introspect.Call(ctx, fn, []interface{}{int64(1)})
	require.NoError(t, err)
	assert.Equal(t, "v", got)

	_, err = introspect.Call(ctx, fn, []interface{}{int64(-1)})
	assert.ErrorIs(t, err, boom)

	_, err = introspect.Call(ctx, fn, []interface{}{"x"})
	assert.ErrorIs(t, err, types.ErrMethod)
}

func TestConvert(t *testing.T) {
	v, err := introspect.Convert([]interface{}{int64(1), int64(2)}, reflect.TypeFor[[]int]())
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2}, v.Interface())

	v, err = introspect.Convert(nil, reflect.TypeFor[int]())
	require.NoError(t, err)
	assert.Equal(t, 0, v.Interface())

	v, err = introspect.Convert("s", reflect.TypeFor[*string]())
	require.NoError(t, err)
	assert.Equal(t, "s", *v.Interface().(*string))
}
