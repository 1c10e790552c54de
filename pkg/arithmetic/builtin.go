package arithmetic

import (
	"math"
	"reflect"
	"regexp"
	"strings"

	"github.com/sandrolain/gojexl/pkg/introspect"
	"github.com/sandrolain/gojexl/pkg/types"
)

var (
	tInt64  = TypeOf[int64]()
	tFloat  = TypeOf[float64]()
	tString = TypeOf[string]()
	tBool   = TypeOf[bool]()
	tList   = TypeOf[[]interface{}]()
	tMap    = TypeOf[map[string]interface{}]()
	tRegexp = TypeOf[*regexp.Regexp]()
	tNull   reflect.Type
)

func registerDefaults(a *Arithmetic) {
	bin := func(op *types.Operator, l, r reflect.Type, fn BinaryFunc) {
		a.binary[key{op, l, r}] = fn
	}
	un := func(op *types.Operator, t reflect.Type, fn UnaryFunc) {
		a.unary[key{op: op, left: t}] = fn
	}

	// Arithmetic
	bin(types.OpAdd, tInt64, tInt64, addInt)
	bin(types.OpAdd, tFloat, tFloat, floatOp(func(l, r float64) float64 { return l + r }))
	bin(types.OpAdd, tString, tString, concat)
	bin(types.OpAdd, tString, Any, concat)
	bin(types.OpAdd, Any, tString, concat)
	bin(types.OpAdd, tList, tList, concatLists)
	bin(types.OpAdd, tMap, tMap, mergeMaps)
	bin(types.OpSubtract, tInt64, tInt64, subtractInt)
	bin(types.OpSubtract, tFloat, tFloat, floatOp(func(l, r float64) float64 { return l - r }))
	bin(types.OpMultiply, tInt64, tInt64, multiplyInt)
	bin(types.OpMultiply, tFloat, tFloat, floatOp(func(l, r float64) float64 { return l * r }))
	bin(types.OpDivide, tInt64, tInt64, divideInt)
	bin(types.OpDivide, tFloat, tFloat, divideFloat)
	bin(types.OpMod, tInt64, tInt64, modInt)
	bin(types.OpMod, tFloat, tFloat, modFloat)

	// Bitwise, also logical on booleans
	bin(types.OpAnd, tInt64, tInt64, intOp(func(l, r int64) int64 { return l & r }))
	bin(types.OpOr, tInt64, tInt64, intOp(func(l, r int64) int64 { return l | r }))
	bin(types.OpXor, tInt64, tInt64, intOp(func(l, r int64) int64 { return l ^ r }))
	bin(types.OpAnd, tBool, tBool, boolOp(func(l, r bool) bool { return l && r }))
	bin(types.OpOr, tBool, tBool, boolOp(func(l, r bool) bool { return l || r }))
	bin(types.OpXor, tBool, tBool, boolOp(func(l, r bool) bool { return l != r }))

	// Comparison
	bin(types.OpEquals, Any, Any, func(_ *Arithmetic, _ bool, l, r interface{}) (interface{}, error) {
		return Equals(l, r), nil
	})
	ordering := map[*types.Operator]func(int) bool{
		types.OpLessThan:           func(c int) bool { return c < 0 },
		types.OpLessThanOrEqual:    func(c int) bool { return c <= 0 },
		types.OpGreaterThan:        func(c int) bool { return c > 0 },
		types.OpGreaterThanOrEqual: func(c int) bool { return c >= 0 },
	}
	for op, test := range ordering {
		bin(op, tFloat, tFloat, compareFloats(test))
		bin(op, Any, Any, func(_ *Arithmetic, _ bool, l, r interface{}) (interface{}, error) {
			return test(Compare(l, r)), nil
		})
	}

	// Predicates
	bin(types.OpContains, tString, tString, matches)
	bin(types.OpContains, Any, tRegexp, func(_ *Arithmetic, _ bool, l, r interface{}) (interface{}, error) {
		return r.(*regexp.Regexp).MatchString(ToString(l)), nil
	})
	bin(types.OpContains, Any, Any, contains)
	bin(types.OpStartsWith, Any, Any, startsWith)
	bin(types.OpEndsWith, Any, Any, endsWith)

	// Unary
	un(types.OpNot, Any, func(_ *Arithmetic, _ bool, v interface{}) (interface{}, error) {
		return !ToBoolean(v), nil
	})
	un(types.OpNegate, tNull, identity)
	un(types.OpNegate, tInt64, negateInt)
	un(types.OpNegate, tFloat, func(_ *Arithmetic, _ bool, v interface{}) (interface{}, error) {
		return -v.(float64), nil
	})
	un(types.OpNegate, tBool, func(_ *Arithmetic, _ bool, v interface{}) (interface{}, error) {
		return !v.(bool), nil
	})
	un(types.OpComplement, tNull, identity)
	un(types.OpComplement, tInt64, func(_ *Arithmetic, _ bool, v interface{}) (interface{}, error) {
		return ^v.(int64), nil
	})
	un(types.OpComplement, tBool, func(_ *Arithmetic, _ bool, v interface{}) (interface{}, error) {
		return !v.(bool), nil
	})
	un(types.OpEmpty, Any, empty)
	un(types.OpSize, Any, size)

	// In-place compound assignment
	a.self[key{types.OpSelfAdd, TypeOf[*strings.Builder](), Any}] = func(_ *Arithmetic, _ bool, l, r interface{}) (interface{}, error) {
		l.(*strings.Builder).WriteString(ToString(r))
		return types.Assign, nil
	}
	a.self[key{types.OpSelfAdd, TypeOf[*[]interface{}](), Any}] = func(_ *Arithmetic, _ bool, l, r interface{}) (interface{}, error) {
		p := l.(*[]interface{})
		*p = append(*p, r)
		return types.Assign, nil
	}
}

func identity(_ *Arithmetic, _ bool, v interface{}) (interface{}, error) {
	return v, nil
}

func overflow(op string, l, r int64) error {
	return types.Errorf(types.ErrOverflow, types.Position{}, "integer overflow: %d %s %d", l, op, r).WithName(op)
}

func divisionByZero(op string) error {
	return types.Errorf(types.ErrDivisionByZero, types.Position{}, "division by zero").WithName(op)
}

func addInt(_ *Arithmetic, strict bool, l, r interface{}) (interface{}, error) {
	a, b := l.(int64), r.(int64)
	s := a + b
	if (a > 0 && b > 0 && s < 0) || (a < 0 && b < 0 && s >= 0) {
		if strict {
			return nil, overflow("+", a, b)
		}
		return float64(a) + float64(b), nil
	}
	return s, nil
}

func subtractInt(_ *Arithmetic, strict bool, l, r interface{}) (interface{}, error) {
	a, b := l.(int64), r.(int64)
	s := a - b
	if (a >= 0 && b < 0 && s < 0) || (a < 0 && b > 0 && s >= 0) {
		if strict {
			return nil, overflow("-", a, b)
		}
		return float64(a) - float64(b), nil
	}
	return s, nil
}

func multiplyInt(_ *Arithmetic, strict bool, l, r interface{}) (interface{}, error) {
	a, b := l.(int64), r.(int64)
	if a == 0 || b == 0 {
		return int64(0), nil
	}
	p := a * b
	if p/b != a || (a == -1 && b == math.MinInt64) || (b == -1 && a == math.MinInt64) {
		if strict {
			return nil, overflow("*", a, b)
		}
		return float64(a) * float64(b), nil
	}
	return p, nil
}

func divideInt(_ *Arithmetic, strict bool, l, r interface{}) (interface{}, error) {
	a, b := l.(int64), r.(int64)
	if b == 0 {
		if strict {
			return nil, divisionByZero("/")
		}
		return int64(0), nil
	}
	if a == math.MinInt64 && b == -1 {
		if strict {
			return nil, overflow("/", a, b)
		}
		return -float64(a), nil
	}
	return a / b, nil
}

func modInt(_ *Arithmetic, strict bool, l, r interface{}) (interface{}, error) {
	a, b := l.(int64), r.(int64)
	if b == 0 {
		if strict {
			return nil, divisionByZero("%")
		}
		return int64(0), nil
	}
	if b == -1 {
		return int64(0), nil
	}
	return a % b, nil
}

func divideFloat(_ *Arithmetic, strict bool, l, r interface{}) (interface{}, error) {
	a, b := l.(float64), r.(float64)
	if b == 0 {
		if strict {
			return nil, divisionByZero("/")
		}
		return 0.0, nil
	}
	return a / b, nil
}

func modFloat(_ *Arithmetic, strict bool, l, r interface{}) (interface{}, error) {
	a, b := l.(float64), r.(float64)
	if b == 0 {
		if strict {
			return nil, divisionByZero("%")
		}
		return 0.0, nil
	}
	return math.Mod(a, b), nil
}

func negateInt(_ *Arithmetic, strict bool, v interface{}) (interface{}, error) {
	n := v.(int64)
	if n == math.MinInt64 {
		if strict {
			return nil, types.Errorf(types.ErrOverflow, types.Position{}, "integer overflow: -(%d)", n).WithName("-")
		}
		return -float64(n), nil
	}
	return -n, nil
}

func floatOp(fn func(l, r float64) float64) BinaryFunc {
	return func(_ *Arithmetic, _ bool, l, r interface{}) (interface{}, error) {
		return fn(l.(float64), r.(float64)), nil
	}
}

func intOp(fn func(l, r int64) int64) BinaryFunc {
	return func(_ *Arithmetic, _ bool, l, r interface{}) (interface{}, error) {
		return fn(l.(int64), r.(int64)), nil
	}
}

func boolOp(fn func(l, r bool) bool) BinaryFunc {
	return func(_ *Arithmetic, _ bool, l, r interface{}) (interface{}, error) {
		return fn(l.(bool), r.(bool)), nil
	}
}

// compareFloats keeps IEEE semantics: every ordering involving NaN is false.
func compareFloats(test func(int) bool) BinaryFunc {
	return func(_ *Arithmetic, _ bool, l, r interface{}) (interface{}, error) {
		a, b := l.(float64), r.(float64)
		if math.IsNaN(a) || math.IsNaN(b) {
			return false, nil
		}
		return test(Compare(a, b)), nil
	}
}

func concat(_ *Arithmetic, _ bool, l, r interface{}) (interface{}, error) {
	return ToString(l) + ToString(r), nil
}

func concatLists(_ *Arithmetic, _ bool, l, r interface{}) (interface{}, error) {
	a, b := l.([]interface{}), r.([]interface{})
	out := make([]interface{}, 0, len(a)+len(b))
	return append(append(out, a...), b...), nil
}

func mergeMaps(_ *Arithmetic, _ bool, l, r interface{}) (interface{}, error) {
	a, b := l.(map[string]interface{}), r.(map[string]interface{})
	out := make(map[string]interface{}, len(a)+len(b))
	for k, v := range a {
		out[k] = v
	}
	for k, v := range b {
		out[k] = v
	}
	return out, nil
}

// matches is string =~ pattern: a full regular expression match.
func matches(a *Arithmetic, _ bool, l, r interface{}) (interface{}, error) {
	re, err := a.Regexp(r.(string))
	if err != nil {
		return nil, err
	}
	return re.MatchString(l.(string)), nil
}

// contains is value =~ container: membership in a sequence or in the key set
// of a map, substring of a string, equality otherwise.
func contains(_ *Arithmetic, _ bool, l, r interface{}) (interface{}, error) {
	switch c := r.(type) {
	case nil:
		return false, nil
	case string:
		return strings.Contains(c, ToString(l)), nil
	}
	rv := reflect.ValueOf(r)
	switch rv.Kind() {
	case reflect.Slice, reflect.Array:
		for i := 0; i < rv.Len(); i++ {
			if Equals(l, rv.Index(i).Interface()) {
				return true, nil
			}
		}
		return false, nil
	case reflect.Map:
		return introspect.HasKey(r, l), nil
	}
	return Equals(l, r), nil
}

func startsWith(_ *Arithmetic, _ bool, l, r interface{}) (interface{}, error) {
	if s, ok := l.(string); ok {
		return strings.HasPrefix(s, ToString(r)), nil
	}
	lv := reflect.ValueOf(l)
	switch lv.Kind() {
	case reflect.Slice, reflect.Array:
		return lv.Len() > 0 && Equals(lv.Index(0).Interface(), r), nil
	}
	if l == nil {
		return false, nil
	}
	return strings.HasPrefix(ToString(l), ToString(r)), nil
}

func endsWith(_ *Arithmetic, _ bool, l, r interface{}) (interface{}, error) {
	if s, ok := l.(string); ok {
		return strings.HasSuffix(s, ToString(r)), nil
	}
	lv := reflect.ValueOf(l)
	switch lv.Kind() {
	case reflect.Slice, reflect.Array:
		return lv.Len() > 0 && Equals(lv.Index(lv.Len()-1).Interface(), r), nil
	}
	if l == nil {
		return false, nil
	}
	return strings.HasSuffix(ToString(l), ToString(r)), nil
}

// empty is true for null, zero numbers, empty strings and empty collections.
func empty(_ *Arithmetic, _ bool, v interface{}) (interface{}, error) {
	v, _ = deref(v)
	if v == nil {
		return true, nil
	}
	if IsNumber(v) {
		f, _ := ToFloat64(v)
		return f == 0, nil
	}
	if e, ok := introspect.IsEmpty(v); ok {
		return e, nil
	}
	return false, nil
}

func size(_ *Arithmetic, _ bool, v interface{}) (interface{}, error) {
	v, _ = deref(v)
	if n, ok := introspect.Size(v); ok {
		return int64(n), nil
	}
	return nil, types.Errorf(types.ErrNoOperator, types.Position{}, "operator 'size' is not defined for %s", typeName(v)).WithName("size")
}
