// Package arithmetic implements operator dispatch for GoJEXL.
//
// An Arithmetic holds a capability table that maps an operator and the
// dynamic types of its operands to an implementation. The table is built
// once by New; hosts extend or override it with options:
//
//	type money struct{ cents int64 }
//
//	a := arithmetic.New(
//	    arithmetic.WithBinary(types.OpAdd, arithmetic.TypeOf[money](), arithmetic.TypeOf[money](),
//	        func(_ *arithmetic.Arithmetic, _ bool, l, r interface{}) (interface{}, error) {
//	            return money{l.(money).cents + r.(money).cents}, nil
//	        }),
//	)
//
// Lookup tries, in order: the exact operand types, the same with one side
// replaced by the Any wildcard, then again after dereferencing pointers to
// primitives, after widening integers to int64 and after widening int64 to
// float64 when the other side is floating. The (Any, Any) entry is the last
// resort; when none applies the result is an operator error.
package arithmetic

import (
	"fmt"
	"reflect"
	"regexp"
	"sync"

	"github.com/sandrolain/gojexl/pkg/types"
)

// BinaryFunc implements a binary operator for one operand type pair.
// strict is the strict flag of the evaluation in progress.
type BinaryFunc func(a *Arithmetic, strict bool, left, right interface{}) (interface{}, error)

// UnaryFunc implements a unary operator for one operand type.
type UnaryFunc func(a *Arithmetic, strict bool, operand interface{}) (interface{}, error)

// Any is the wildcard type: an entry registered with Any matches operands of
// every type.
var Any = TypeOf[interface{}]()

// TypeOf returns the reflect.Type of T.
func TypeOf[T any]() reflect.Type {
	return reflect.TypeOf((*T)(nil)).Elem()
}

type key struct {
	op          *types.Operator
	left, right reflect.Type
}

// Arithmetic dispatches operators to implementations. It is safe for
// concurrent use once built.
type Arithmetic struct {
	binary map[key]BinaryFunc
	unary  map[key]UnaryFunc
	self   map[key]BinaryFunc

	regexps sync.Map // pattern -> *regexp.Regexp
}

// Option configures an Arithmetic.
type Option func(*Arithmetic)

// WithBinary registers fn for op applied to operands of the given types.
func WithBinary(op *types.Operator, left, right reflect.Type, fn BinaryFunc) Option {
	return func(a *Arithmetic) {
		a.binary[key{op, left, right}] = fn
	}
}

// WithUnary registers fn for the unary op applied to an operand of the given
// type.
func WithUnary(op *types.Operator, operand reflect.Type, fn UnaryFunc) Option {
	return func(a *Arithmetic) {
		a.unary[key{op: op, left: operand}] = fn
	}
}

// WithSelf registers a self-mutating implementation of the compound
// assignment op. fn returns types.Assign when it updated left in place.
func WithSelf(op *types.Operator, left, right reflect.Type, fn BinaryFunc) Option {
	return func(a *Arithmetic) {
		a.self[key{op, left, right}] = fn
	}
}

// New creates an Arithmetic with the default operator semantics plus the
// given overrides.
func New(opts ...Option) *Arithmetic {
	a := &Arithmetic{
		binary: make(map[key]BinaryFunc),
		unary:  make(map[key]UnaryFunc),
		self:   make(map[key]BinaryFunc),
	}
	registerDefaults(a)
	for _, opt := range opts {
		opt(a)
	}
	return a
}

var defaultArithmetic = New()

// Default returns the shared Arithmetic with the default semantics.
func Default() *Arithmetic {
	return defaultArithmetic
}

// nullSensitive lists the operators whose null operands are an error under
// strict evaluation and zero values otherwise.
var nullSensitive = map[*types.Operator]bool{
	types.OpAdd:                true,
	types.OpSubtract:           true,
	types.OpMultiply:           true,
	types.OpDivide:             true,
	types.OpMod:                true,
	types.OpAnd:                true,
	types.OpOr:                 true,
	types.OpXor:                true,
	types.OpLessThan:           true,
	types.OpLessThanOrEqual:    true,
	types.OpGreaterThan:        true,
	types.OpGreaterThanOrEqual: true,
}

// Evaluate applies op to its operands: one for unary operators, two for
// binary ones.
func (a *Arithmetic) Evaluate(op *types.Operator, strict bool, operands ...interface{}) (interface{}, error) {
	if len(operands) != op.Arity {
		return nil, types.Errorf(types.ErrNoOperator, types.Position{}, "operator '%s' expects %d operands, got %d", op, op.Arity, len(operands)).WithName(op.Symbol)
	}
	if op.Arity == 1 {
		return a.Unary(op, strict, operands[0])
	}
	return a.Binary(op, strict, operands[0], operands[1])
}

// Binary applies a binary operator.
func (a *Arithmetic) Binary(op *types.Operator, strict bool, left, right interface{}) (interface{}, error) {
	if (left == nil || right == nil) && nullSensitive[op] {
		if _, exact := a.binary[key{op, reflect.TypeOf(left), reflect.TypeOf(right)}]; !exact {
			if strict {
				return nil, types.Errorf(types.ErrNullOperand, types.Position{}, "null operand for operator '%s'", op).WithName(op.Symbol)
			}
			left, right = zeroFill(left, right)
		}
	}

	if fn := a.matchBinary(op, left, right); fn != nil {
		return fn(a, strict, left, right)
	}
	l, r := left, right
	for _, widen := range widenings {
		var changed bool
		if l, r, changed = widen(l, r); !changed {
			continue
		}
		if fn := a.matchBinary(op, l, r); fn != nil {
			return fn(a, strict, l, r)
		}
	}
	if fn := a.binary[key{op, Any, Any}]; fn != nil {
		return fn(a, strict, l, r)
	}
	return nil, noOperator(op, left, right)
}

func (a *Arithmetic) matchBinary(op *types.Operator, l, r interface{}) BinaryFunc {
	lt, rt := reflect.TypeOf(l), reflect.TypeOf(r)
	if fn := a.binary[key{op, lt, rt}]; fn != nil {
		return fn
	}
	if fn := a.binary[key{op, lt, Any}]; fn != nil {
		return fn
	}
	return a.binary[key{op, Any, rt}]
}

// Unary applies a unary operator.
func (a *Arithmetic) Unary(op *types.Operator, strict bool, operand interface{}) (interface{}, error) {
	v := operand
	if fn := a.unary[key{op: op, left: reflect.TypeOf(v)}]; fn != nil {
		return fn(a, strict, v)
	}
	for _, widen := range widenings {
		var changed bool
		if v, _, changed = widen(v, nil); !changed {
			continue
		}
		if fn := a.unary[key{op: op, left: reflect.TypeOf(v)}]; fn != nil {
			return fn(a, strict, v)
		}
	}
	if fn := a.unary[key{op: op, left: Any}]; fn != nil {
		return fn(a, strict, v)
	}
	return nil, types.Errorf(types.ErrNoOperator, types.Position{}, "operator '%s' is not defined for %s", op, typeName(operand)).WithName(op.Symbol)
}

// EvaluateSelf applies a compound assignment operator. A self-mutating entry
// registered for the receiver type is tried first; its types.Assign result
// means left was updated in place. Otherwise the base operator is applied
// and the caller stores the result.
func (a *Arithmetic) EvaluateSelf(op *types.Operator, strict bool, left, right interface{}) (interface{}, error) {
	if !op.IsSelf() {
		return a.Binary(op, strict, left, right)
	}
	lt, rt := reflect.TypeOf(left), reflect.TypeOf(right)
	fn := a.self[key{op, lt, rt}]
	if fn == nil {
		fn = a.self[key{op, lt, Any}]
	}
	if fn != nil {
		return fn(a, strict, left, right)
	}
	return a.Binary(op.Base, strict, left, right)
}

// Regexp returns the compiled form of a =~ pattern. The pattern must match
// the whole string.
func (a *Arithmetic) Regexp(pattern string) (*regexp.Regexp, error) {
	if re, ok := a.regexps.Load(pattern); ok {
		return re.(*regexp.Regexp), nil
	}
	re, err := regexp.Compile("^(?:" + pattern + ")$")
	if err != nil {
		return nil, types.Errorf(types.ErrInvalidRegex, types.Position{}, "invalid regular expression %q", pattern).WithCause(err)
	}
	a.regexps.Store(pattern, re)
	return re, nil
}

func noOperator(op *types.Operator, l, r interface{}) error {
	return types.Errorf(types.ErrNoOperator, types.Position{}, "operator '%s' is not defined for %s and %s", op, typeName(l), typeName(r)).WithName(op.Symbol)
}

func typeName(v interface{}) string {
	if v == nil {
		return "null"
	}
	return fmt.Sprintf("%T", v)
}
