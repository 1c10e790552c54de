package types

// Operator is an immutable entry of the operator table.
//
// Name is the dispatch name an arithmetic implementation registers behavior
// under. Compound assignment operators point to the operator they are built
// on through Base.
type Operator struct {
	Symbol string
	Name   string
	Arity  int
	Base   *Operator
}

// String returns the operator symbol.
func (op *Operator) String() string {
	return op.Symbol
}

// GoString implements fmt.GoStringer.
func (op *Operator) GoString() string {
	return "types.Operator(" + op.Symbol + ")"
}

// IsSelf reports whether op is a compound assignment operator.
func (op *Operator) IsSelf() bool {
	return op.Base != nil
}

// The operator table.
var (
	OpAdd      = &Operator{Symbol: "+", Name: "add", Arity: 2}
	OpSubtract = &Operator{Symbol: "-", Name: "subtract", Arity: 2}
	OpMultiply = &Operator{Symbol: "*", Name: "multiply", Arity: 2}
	OpDivide   = &Operator{Symbol: "/", Name: "divide", Arity: 2}
	OpMod      = &Operator{Symbol: "%", Name: "mod", Arity: 2}
	OpAnd      = &Operator{Symbol: "&", Name: "and", Arity: 2}
	OpOr       = &Operator{Symbol: "|", Name: "or", Arity: 2}
	OpXor      = &Operator{Symbol: "^", Name: "xor", Arity: 2}

	OpEquals             = &Operator{Symbol: "==", Name: "equals", Arity: 2}
	OpLessThan           = &Operator{Symbol: "<", Name: "lessThan", Arity: 2}
	OpLessThanOrEqual    = &Operator{Symbol: "<=", Name: "lessThanOrEqual", Arity: 2}
	OpGreaterThan        = &Operator{Symbol: ">", Name: "greaterThan", Arity: 2}
	OpGreaterThanOrEqual = &Operator{Symbol: ">=", Name: "greaterThanOrEqual", Arity: 2}

	OpContains   = &Operator{Symbol: "=~", Name: "contains", Arity: 2}
	OpStartsWith = &Operator{Symbol: "=^", Name: "startsWith", Arity: 2}
	OpEndsWith   = &Operator{Symbol: "=$", Name: "endsWith", Arity: 2}

	OpNot        = &Operator{Symbol: "!", Name: "not", Arity: 1}
	OpComplement = &Operator{Symbol: "~", Name: "complement", Arity: 1}
	OpNegate     = &Operator{Symbol: "-", Name: "negate", Arity: 1}
	OpEmpty      = &Operator{Symbol: "empty", Name: "empty", Arity: 1}
	OpSize       = &Operator{Symbol: "size", Name: "size", Arity: 1}

	OpSelfAdd      = &Operator{Symbol: "+=", Name: "selfAdd", Arity: 2, Base: OpAdd}
	OpSelfSubtract = &Operator{Symbol: "-=", Name: "selfSubtract", Arity: 2, Base: OpSubtract}
	OpSelfMultiply = &Operator{Symbol: "*=", Name: "selfMultiply", Arity: 2, Base: OpMultiply}
	OpSelfDivide   = &Operator{Symbol: "/=", Name: "selfDivide", Arity: 2, Base: OpDivide}
	OpSelfMod      = &Operator{Symbol: "%=", Name: "selfMod", Arity: 2, Base: OpMod}
	OpSelfAnd      = &Operator{Symbol: "&=", Name: "selfAnd", Arity: 2, Base: OpAnd}
	OpSelfOr       = &Operator{Symbol: "|=", Name: "selfOr", Arity: 2, Base: OpOr}
	OpSelfXor      = &Operator{Symbol: "^=", Name: "selfXor", Arity: 2, Base: OpXor}

	// OpAssign is the plain assignment operator. Returned as a value by a
	// self operator, it signals that the side effect was already applied
	// and the interpreter must not store the result.
	OpAssign = &Operator{Symbol: "=", Arity: 2}
)

// Assign is the sentinel value a self operator returns after mutating its
// receiver in place.
var Assign interface{} = OpAssign

// Operators lists every table entry except the assignment sentinel, in
// declaration order.
var Operators = []*Operator{
	OpAdd, OpSubtract, OpMultiply, OpDivide, OpMod, OpAnd, OpOr, OpXor,
	OpEquals, OpLessThan, OpLessThanOrEqual, OpGreaterThan, OpGreaterThanOrEqual,
	OpContains, OpStartsWith, OpEndsWith,
	OpNot, OpComplement, OpNegate, OpEmpty, OpSize,
	OpSelfAdd, OpSelfSubtract, OpSelfMultiply, OpSelfDivide, OpSelfMod,
	OpSelfAnd, OpSelfOr, OpSelfXor,
}

var operatorsBySymbol = func() map[string][2]*Operator {
	m := make(map[string][2]*Operator, len(Operators))
	for _, op := range Operators {
		e := m[op.Symbol]
		e[op.Arity-1] = op
		m[op.Symbol] = e
	}
	return m
}()

// LookupOperator returns the operator with the given symbol and arity.
func LookupOperator(symbol string, arity int) (*Operator, bool) {
	if arity < 1 || arity > 2 {
		return nil, false
	}
	op := operatorsBySymbol[symbol][arity-1]
	return op, op != nil
}

// IsAssigned reports whether v is the Assign sentinel.
func IsAssigned(v interface{}) bool {
	op, ok := v.(*Operator)
	return ok && op == OpAssign
}
