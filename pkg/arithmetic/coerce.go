package arithmetic

import (
	"fmt"
	"math"
	"reflect"
	"strconv"

	"github.com/sandrolain/gojexl/pkg/introspect"
)

// widenings are the retry stages of operator lookup, applied cumulatively.
var widenings = []func(l, r interface{}) (interface{}, interface{}, bool){
	derefPair,
	widenIntPair,
	widenFloatPair,
}

func derefPair(l, r interface{}) (interface{}, interface{}, bool) {
	l, lc := deref(l)
	r, rc := deref(r)
	return l, r, lc || rc
}

// deref unboxes a non-nil pointer to a boolean, number or string.
func deref(v interface{}) (interface{}, bool) {
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Pointer || rv.IsNil() {
		return v, false
	}
	switch rv.Elem().Kind() {
	case reflect.Bool, reflect.String,
		reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return rv.Elem().Interface(), true
	}
	return v, false
}

func widenIntPair(l, r interface{}) (interface{}, interface{}, bool) {
	l, lc := widenInt(l)
	r, rc := widenInt(r)
	return l, r, lc || rc
}

// widenInt converts every integer kind to int64. Unsigned values that do
// not fit become float64. float32 becomes float64.
func widenInt(v interface{}) (interface{}, bool) {
	switch n := v.(type) {
	case int:
		return int64(n), true
	case int8:
		return int64(n), true
	case int16:
		return int64(n), true
	case int32:
		return int64(n), true
	case uint:
		if uint64(n) > math.MaxInt64 {
			return float64(n), true
		}
		return int64(n), true
	case uint8:
		return int64(n), true
	case uint16:
		return int64(n), true
	case uint32:
		return int64(n), true
	case uint64:
		if n > math.MaxInt64 {
			return float64(n), true
		}
		return int64(n), true
	case float32:
		return float64(n), true
	}
	// named numeric types
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		if _, ok := v.(int64); !ok {
			return rv.Int(), true
		}
	case reflect.Float32, reflect.Float64:
		if _, ok := v.(float64); !ok {
			return rv.Float(), true
		}
	}
	return v, false
}

func widenFloatPair(l, r interface{}) (interface{}, interface{}, bool) {
	switch lv := l.(type) {
	case int64:
		if _, ok := r.(float64); ok {
			return float64(lv), r, true
		}
	case float64:
		if rv, ok := r.(int64); ok {
			return l, float64(rv), true
		}
	}
	return l, r, false
}

// zeroFill replaces a null operand by the zero value matching the other one.
func zeroFill(l, r interface{}) (interface{}, interface{}) {
	if l == nil {
		l = zeroLike(r)
	}
	if r == nil {
		r = zeroLike(l)
	}
	return l, r
}

func zeroLike(v interface{}) interface{} {
	switch v.(type) {
	case string:
		return ""
	case float64, float32:
		return 0.0
	case bool:
		return false
	}
	return int64(0)
}

// IsNumber reports whether v is an integer or floating point value.
func IsNumber(v interface{}) bool {
	switch v.(type) {
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64, float32, float64:
		return true
	}
	return false
}

// ToInt64 converts v to an int64. Floats are truncated and numeric strings
// parsed; it reports false for anything else.
func ToInt64(v interface{}) (int64, bool) {
	v, _ = deref(v)
	v, _ = widenInt(v)
	switch n := v.(type) {
	case int64:
		return n, true
	case float64:
		if math.IsNaN(n) || math.IsInf(n, 0) {
			return 0, false
		}
		return int64(n), true
	case bool:
		if n {
			return 1, true
		}
		return 0, true
	case string:
		if i, err := strconv.ParseInt(n, 10, 64); err == nil {
			return i, true
		}
		if f, err := strconv.ParseFloat(n, 64); err == nil {
			return int64(f), true
		}
	}
	return 0, false
}

// ToFloat64 converts v to a float64, parsing numeric strings.
func ToFloat64(v interface{}) (float64, bool) {
	v, _ = deref(v)
	v, _ = widenInt(v)
	switch n := v.(type) {
	case int64:
		return float64(n), true
	case float64:
		return n, true
	case string:
		if f, err := strconv.ParseFloat(n, 64); err == nil {
			return f, true
		}
	}
	return 0, false
}

// ToString renders v as operators and templates see it: null is the empty
// string and numbers use the shortest exact representation.
func ToString(v interface{}) string {
	switch s := v.(type) {
	case nil:
		return ""
	case string:
		return s
	case int64:
		return strconv.FormatInt(s, 10)
	case float64:
		return strconv.FormatFloat(s, 'g', -1, 64)
	case bool:
		return strconv.FormatBool(s)
	case fmt.Stringer:
		return s.String()
	}
	return fmt.Sprint(v)
}

// ToBoolean returns the truthiness of v: null, false, zero, NaN, the empty
// string and empty collections are false; everything else is true.
func ToBoolean(v interface{}) bool {
	v, _ = deref(v)
	switch b := v.(type) {
	case nil:
		return false
	case bool:
		return b
	case string:
		return b != ""
	case float64:
		return b != 0 && !math.IsNaN(b)
	case float32:
		return b != 0 && !math.IsNaN(float64(b))
	}
	if IsNumber(v) {
		n, _ := ToInt64(v)
		return n != 0
	}
	if empty, ok := introspect.IsEmpty(v); ok {
		return !empty
	}
	return true
}
