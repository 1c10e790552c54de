package parser_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sandrolain/gojexl/pkg/parser"
	"github.com/sandrolain/gojexl/pkg/types"
)

// Helper functions

func parseScript(t *testing.T, input string, opts ...parser.CompileOption) *types.Script {
	t.Helper()
	script, err := parser.Parse(input, opts...)
	require.NoError(t, err, "parsing %q", input)
	return script
}

// parseExpr parses a single statement script and returns that statement.
func parseExpr(t *testing.T, input string, opts ...parser.CompileOption) *types.ASTNode {
	t.Helper()
	root := parseScript(t, input, opts...).AST()
	require.Equal(t, types.NodeBlock, root.Type)
	require.Len(t, root.Expressions, 1, "statements of %q", input)
	return root.Expressions[0]
}

func parseError(t *testing.T, input string, opts ...parser.CompileOption) *types.Error {
	t.Helper()
	_, err := parser.Parse(input, opts...)
	require.Error(t, err, "expected error parsing %q", input)
	e, ok := types.AsError(err)
	require.True(t, ok, "error %v is not a *types.Error", err)
	assert.ErrorIs(t, err, types.ErrParsing)
	return e
}

func checkNode(t *testing.T, node *types.ASTNode, expectedType types.NodeType, expectedValue interface{}) {
	t.Helper()
	require.NotNil(t, node)
	assert.Equal(t, expectedType, node.Type)
	if expectedValue != nil {
		assert.Equal(t, expectedValue, node.Value)
	}
}

// Literal tests

func TestParseLiterals(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		nodeType types.NodeType
		value    interface{}
	}{
		{"string", `"hello"`, types.NodeString, "hello"},
		{"single quoted", `'hello'`, types.NodeString, "hello"},
		{"empty string", `""`, types.NodeString, ""},
		{"integer", "42", types.NodeNumber, int64(42)},
		{"negative integer", "-42", types.NodeNumber, int64(-42)},
		{"float", "3.14", types.NodeNumber, 3.14},
		{"scientific", "1e10", types.NodeNumber, 1e10},
		{"boolean true", "true", types.NodeBoolean, true},
		{"boolean false", "false", types.NodeBoolean, false},
		{"null", "null", types.NodeNull, nil},
		{"NaN", "NaN", types.NodeNaN, nil},
		{"options", "$options", types.NodeOptions, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			node := parseExpr(t, tt.input)
			checkNode(t, node, tt.nodeType, tt.value)
		})
	}
}

func TestParseCollections(t *testing.T) {
	node := parseExpr(t, "[1, 'a', [true]]")
	checkNode(t, node, types.NodeArray, nil)
	require.Len(t, node.Arguments, 3)
	checkNode(t, node.Arguments[2], types.NodeArray, nil)

	node = parseExpr(t, "x = { 'a' : 1, 2 : b }")
	checkNode(t, node, types.NodeAssign, nil)
	m := node.RHS
	checkNode(t, m, types.NodeMap, nil)
	require.Len(t, m.Arguments, 2)
	checkNode(t, m.Arguments[0], types.NodeEntry, nil)
	checkNode(t, m.Arguments[0].LHS, types.NodeString, "a")
	checkNode(t, m.Arguments[1].RHS, types.NodeIdentifier, nil)

	for _, input := range []string{"x = {}", "x = {:}"} {
		node = parseExpr(t, input)
		checkNode(t, node.RHS, types.NodeMap, nil)
		assert.Empty(t, node.RHS.Arguments)
	}

	// a map literal may open a statement
	node = parseExpr(t, "{ 'a' : 1 }")
	checkNode(t, node, types.NodeMap, nil)
}

// Operator tests

func TestParsePrecedence(t *testing.T) {
	tests := []struct {
		input string
		want  string // root operator and its operands
		left  types.NodeType
		right types.NodeType
	}{
		{"1 + 2 * 3", "+", types.NodeNumber, types.NodeBinary},
		{"1 * 2 + 3", "+", types.NodeBinary, types.NodeNumber},
		{"a < b == c", "==", types.NodeBinary, types.NodeIdentifier},
		{"a & b | c", "|", types.NodeBinary, types.NodeIdentifier},
		{"a | b ^ c", "|", types.NodeIdentifier, types.NodeBinary},
		{"a + b =~ c", "=~", types.NodeBinary, types.NodeIdentifier},
		{"a div b mod c", "%", types.NodeBinary, types.NodeIdentifier},
		{"a lt b", "<", types.NodeIdentifier, types.NodeIdentifier},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			node := parseExpr(t, tt.input)
			checkNode(t, node, types.NodeBinary, nil)
			assert.Equal(t, tt.want, node.Operator.Symbol)
			assert.Equal(t, tt.left, node.LHS.Type)
			assert.Equal(t, tt.right, node.RHS.Type)
		})
	}
}

func TestParseLogical(t *testing.T) {
	node := parseExpr(t, "a || b && c")
	checkNode(t, node, types.NodeOr, nil)
	checkNode(t, node.RHS, types.NodeAnd, nil)

	node = parseExpr(t, "a and b or not c")
	checkNode(t, node, types.NodeOr, nil)
	checkNode(t, node.RHS, types.NodeUnary, nil)
	assert.Same(t, types.OpNot, node.RHS.Operator)
}

func TestParseNegatedOperators(t *testing.T) {
	tests := []struct {
		input string
		base  *types.Operator
	}{
		{"a != b", types.OpEquals},
		{"a ne b", types.OpEquals},
		{"a !~ b", types.OpContains},
		{"a !^ b", types.OpStartsWith},
		{"a !$ b", types.OpEndsWith},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			node := parseExpr(t, tt.input)
			checkNode(t, node, types.NodeUnary, nil)
			assert.Same(t, types.OpNot, node.Operator)
			assert.Same(t, tt.base, node.LHS.Operator)
		})
	}
}

func TestParseUnary(t *testing.T) {
	node := parseExpr(t, "-a")
	checkNode(t, node, types.NodeUnary, nil)
	assert.Same(t, types.OpNegate, node.Operator)

	node = parseExpr(t, "+a")
	checkNode(t, node, types.NodeIdentifier, nil)

	node = parseExpr(t, "~a")
	assert.Same(t, types.OpComplement, node.Operator)

	node = parseExpr(t, "empty(a)")
	assert.Same(t, types.OpEmpty, node.Operator)

	node = parseExpr(t, "size a")
	assert.Same(t, types.OpSize, node.Operator)

	node = parseExpr(t, "-2.5")
	checkNode(t, node, types.NodeNumber, -2.5)
}

func TestParseTernaries(t *testing.T) {
	node := parseExpr(t, "a ? b : c ? d : e")
	checkNode(t, node, types.NodeTernary, nil)
	checkNode(t, node.Condition, types.NodeIdentifier, nil)
	checkNode(t, node.RHS, types.NodeTernary, nil)

	// ?? binds looser than arithmetic
	node = parseExpr(t, "a ?? 42 + 10")
	checkNode(t, node, types.NodeCoalesce, nil)
	checkNode(t, node.RHS, types.NodeBinary, nil)

	node = parseExpr(t, "- a ?? 42 + +10")
	checkNode(t, node, types.NodeCoalesce, nil)
	checkNode(t, node.LHS, types.NodeUnary, nil)

	node = parseExpr(t, "a ?: b")
	checkNode(t, node, types.NodeElvis, nil)
}

// Reference tests

func TestParsePaths(t *testing.T) {
	node := parseExpr(t, "a.b.0['c']?.d")
	checkNode(t, node, types.NodePath, nil)
	checkNode(t, node.LHS, types.NodeIdentifier, nil)
	require.Len(t, node.Steps, 4)
	assert.Equal(t, "b", node.Steps[0].StrValue)
	assert.Equal(t, "0", node.Steps[1].StrValue)
	checkNode(t, node.Steps[2], types.NodeIndex, nil)
	assert.True(t, node.Steps[3].Safe)

	// any word is a member name after a dot
	node = parseExpr(t, "x.if.size.new")
	require.Len(t, node.Steps, 3)
	assert.Equal(t, "new", node.Steps[2].StrValue)
}

func TestParseCalls(t *testing.T) {
	node := parseExpr(t, "f(1, 2)")
	checkNode(t, node, types.NodeCall, nil)
	checkNode(t, node.LHS, types.NodeIdentifier, nil)
	assert.Len(t, node.Arguments, 2)

	node = parseExpr(t, "a.b.m(1)")
	checkNode(t, node, types.NodePath, nil)
	checkNode(t, node.Steps[1], types.NodeMethod, nil)
	assert.Equal(t, "m", node.Steps[1].StrValue)

	node = parseExpr(t, "f(1)(2)")
	checkNode(t, node, types.NodeCall, nil)
	checkNode(t, node.LHS, types.NodeCall, nil)

	node = parseExpr(t, "math:max(1, 2)")
	checkNode(t, node, types.NodeNSCall, "max")
	assert.Equal(t, "math", node.StrValue)

	node = parseExpr(t, "new('list', 1)")
	checkNode(t, node, types.NodeNew, nil)
	assert.Len(t, node.Arguments, 2)
}

func TestParseNamespaceNeedsAdjacentColon(t *testing.T) {
	node := parseExpr(t, "a ? b : c(1)")
	checkNode(t, node, types.NodeTernary, nil)
	checkNode(t, node.RHS, types.NodeCall, nil)
}

// Statement tests

func TestParseStatements(t *testing.T) {
	root := parseScript(t, "var x = 1; x += 2; if (x > 2) { x } else x = 0; while (x) x -= 1").AST()
	require.Len(t, root.Expressions, 4)
	checkNode(t, root.Expressions[0], types.NodeVar, nil)
	checkNode(t, root.Expressions[1], types.NodeAssign, nil)
	assert.Same(t, types.OpSelfAdd, root.Expressions[1].Operator)
	checkNode(t, root.Expressions[2], types.NodeIf, nil)
	checkNode(t, root.Expressions[2].Else, types.NodeAssign, nil)
	checkNode(t, root.Expressions[3], types.NodeWhile, nil)
}

func TestParseElseAfterSemicolon(t *testing.T) {
	node := parseExpr(t, "if (a) b; else c")
	checkNode(t, node, types.NodeIf, nil)
	require.NotNil(t, node.Else)
}

func TestParseLoops(t *testing.T) {
	node := parseExpr(t, "for (var i : items) { if (i) break; continue }")
	checkNode(t, node, types.NodeForEach, nil)
	checkNode(t, node.LHS, types.NodeVar, nil)
	checkNode(t, node.RHS, types.NodeIdentifier, nil)

	node = parseExpr(t, "do x = x + 1 while (x < 3)")
	checkNode(t, node, types.NodeDoWhile, nil)

	e := parseError(t, "break")
	assert.Equal(t, types.ErrSyntaxError, e.Code)
}

func TestParsePragmas(t *testing.T) {
	script := parseScript(t, "#pragma jexl.options '+safe -strict'\n#pragma script.mode pro50\n#pragma custom 42\nx")
	pragmas := script.Pragmas()
	require.Len(t, pragmas, 3)
	assert.Equal(t, types.Pragma{Name: "jexl.options", Value: "+safe -strict", Position: pragmas[0].Position}, pragmas[0])
	assert.Equal(t, "pro50", pragmas[1].Value)
	assert.Equal(t, int64(42), pragmas[2].Value)
	assert.Equal(t, 1, pragmas[0].Position.Line)
	assert.Equal(t, 3, pragmas[2].Position.Line)
}

// Scope tests

func TestParseLocals(t *testing.T) {
	script := parseScript(t, "var y = x * 2; { let z = y; z } y", parser.WithParameters("x"))
	assert.Equal(t, []string{"x"}, script.Parameters())
	assert.Equal(t, 3, script.Locals())

	root := script.AST()
	decl := root.Expressions[0]
	assert.Equal(t, 1, decl.Symbol)
	x := decl.RHS.LHS
	checkNode(t, x, types.NodeIdentifier, nil)
	assert.Equal(t, 0, x.Symbol)

	last := root.Expressions[2]
	assert.True(t, last.IsLocal())
	assert.Equal(t, 1, last.Symbol)
}

func TestParseContextVariables(t *testing.T) {
	node := parseExpr(t, "a")
	assert.False(t, node.IsLocal())
	assert.Equal(t, -1, node.Symbol)
}

func TestParseLambdas(t *testing.T) {
	tests := []struct {
		input  string
		params []string
	}{
		{"(a, b) -> a + b", []string{"a", "b"}},
		{"() -> 1", []string{}},
		{"x -> x * 2", []string{"x"}},
		{"(x) => { return x }", []string{"x"}},
		{"function(a) { a }", []string{"a"}},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			node := parseExpr(t, tt.input)
			checkNode(t, node, types.NodeLambda, nil)
			assert.Equal(t, tt.params, node.Params)
			assert.Equal(t, len(tt.params), node.Locals)
		})
	}

	// a parenthesized expression is not a lambda
	node := parseExpr(t, "(a + b) * 2")
	checkNode(t, node, types.NodeBinary, nil)
}

func TestParseCapture(t *testing.T) {
	root := parseScript(t, "var k = 2; var f = (x) -> x * k; function g(n) { n <= 0 ? 0 : g(n - 1) }").AST()
	lambda := root.Expressions[1].RHS
	checkNode(t, lambda, types.NodeLambda, nil)
	k := lambda.Body.RHS
	assert.Equal(t, "k", k.StrValue)
	assert.Equal(t, 1, k.Depth)
	assert.Equal(t, 0, k.Symbol)

	g := root.Expressions[2]
	checkNode(t, g, types.NodeVar, nil)
	assert.Equal(t, "g", g.StrValue)
	checkNode(t, g.RHS, types.NodeLambda, nil)
}

func TestParseVarDeclaredBeforeInitializer(t *testing.T) {
	root := parseScript(t, "var f = (n) -> 1 + f; var y = y").AST()
	f := root.Expressions[0].RHS.Body.RHS
	assert.Equal(t, "f", f.StrValue)
	assert.True(t, f.IsLocal())
	assert.Equal(t, 1, f.Depth)
	assert.Equal(t, root.Expressions[0].Symbol, f.Symbol)

	y := root.Expressions[1]
	assert.True(t, y.RHS.IsLocal())
	assert.Equal(t, y.Symbol, y.RHS.Symbol)
	assert.False(t, y.RHS.Shaded)
}

func TestParseShadedAndRedeclared(t *testing.T) {
	root := parseScript(t, "x = 1; var x = 2; var x = 3").AST()
	use := root.Expressions[0].LHS
	assert.True(t, use.Shaded)
	assert.False(t, root.Expressions[1].Redeclared)
	assert.True(t, root.Expressions[2].Redeclared)
}

func TestParseConst(t *testing.T) {
	e := parseError(t, "const x = 1; x = 2")
	assert.Equal(t, types.ErrConstAssignment, e.Code)
	assert.Equal(t, "x", e.Name)

	e = parseError(t, "let x = 1; let x = 2")
	assert.Equal(t, types.ErrConstRedeclared, e.Code)

	e = parseError(t, "const x")
	assert.Equal(t, types.ErrMissingArgument, e.Code)
}

func TestParseTemplate(t *testing.T) {
	node := parseExpr(t, "`Hello ${name}, ${1 + 2}!`")
	checkNode(t, node, types.NodeTemplate, nil)
	require.Len(t, node.Arguments, 5)
	checkNode(t, node.Arguments[0], types.NodeString, "Hello ")
	checkNode(t, node.Arguments[1], types.NodeIdentifier, nil)
	checkNode(t, node.Arguments[3], types.NodeBinary, nil)
	checkNode(t, node.Arguments[4], types.NodeString, "!")

	// interpolations see locals
	root := parseScript(t, "var n = 1; `${n}`").AST()
	assert.True(t, root.Expressions[1].Arguments[0].IsLocal())
}

// Error tests

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name  string
		input string
		code  types.ErrorCode
	}{
		{"unterminated string", "'abc", types.ErrStringNotClosed},
		{"unterminated comment", "1 /* x", types.ErrCommentNotClosed},
		{"bad character", "a @ b", types.ErrUnexpectedChar},
		{"missing paren", "(1 + 2", types.ErrExpectedToken},
		{"bad target", "1 = 2", types.ErrInvalidTarget},
		{"safe target", "a?.b = 2", types.ErrInvalidTarget},
		{"reserved name", "var if = 1", types.ErrExpectedToken},
		{"dangling operator", "1 +", types.ErrSyntaxError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := parseError(t, tt.input)
			assert.Equal(t, tt.code, e.Code)
		})
	}
}

func TestParseErrorNamesPreviousToken(t *testing.T) {
	e := parseError(t, "'The value is ' + VARIABLE ' <--- error'")
	assert.Contains(t, e.Error(), "VARIABLE")
	assert.Equal(t, types.ErrSyntaxError, e.Code)
}

func TestParseNewWithoutType(t *testing.T) {
	e := parseError(t, "new()")
	assert.Contains(t, e.Error(), ")")
	assert.Equal(t, types.ErrMissingArgument, e.Code)
}

func TestParseErrorPosition(t *testing.T) {
	e := parseError(t, "x = 1;\ny = ;", parser.WithInfo("calc.jexl", 10, 5))
	assert.Equal(t, types.Position{Line: 11, Column: 5}, e.Position)
	assert.Equal(t, "calc.jexl", e.Script)
	assert.True(t, errors.Is(e, types.ErrParsing))
}

func TestParseTooDeep(t *testing.T) {
	e := parseError(t, "((((((1))))))", parser.WithMaxDepth(4))
	assert.Equal(t, types.ErrTooDeep, e.Code)
}
