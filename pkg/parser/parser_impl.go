package parser

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/sandrolain/gojexl/pkg/types"
)

// Parser implements a recursive descent parser for scripts.
// Expressions use Pratt's "Top Down Operator Precedence" algorithm.
type Parser struct {
	lexer   *Lexer
	current Token
	prev    Token
	opts    CompileOptions
	arena   *types.NodeArena
	scope   scope
	depth   int
	loops   int
	// noNamespace disables ns:fn(...) recognition while parsing map keys.
	noNamespace bool
}

// NewParser creates a new parser for the given input string.
func NewParser(input string, opts ...CompileOption) *Parser {
	options := CompileOptions{
		MaxDepth: 500,
	}
	for _, opt := range opts {
		opt(&options)
	}

	p := &Parser{
		lexer: NewLexer(input, options.Origin),
		opts:  options,
		arena: types.NewNodeArena(),
	}

	// Read the first token
	p.advance()

	return p
}

// Parse parses the entire input and returns the script.
func (p *Parser) Parse() (*types.Script, error) {
	p.scope.pushFrame(p.opts.Parameters)
	root, err := p.parseStatements(TokenEOF)
	if err == nil && p.current.Type != TokenEOF {
		err = p.unexpected()
	}
	if err != nil {
		if e, ok := types.AsError(err); ok {
			e.WithScript(p.opts.Name)
		}
		return nil, err
	}
	locals := p.scope.popFrame()

	var pragmas []types.Pragma
	for _, stmt := range root.Expressions {
		if stmt.Type != types.NodePragma {
			break
		}
		pragmas = append(pragmas, types.Pragma{Name: stmt.StrValue, Value: stmt.Value, Position: stmt.Position})
	}

	return types.NewScript(root, p.lexer.input, types.ScriptInfo{
		Name:    p.opts.Name,
		Origin:  p.lexer.origin,
		Params:  p.opts.Parameters,
		Locals:  locals,
		Pragmas: pragmas,
		Arena:   p.arena,
	}), nil
}

// Operator precedence table (binding power)
// Higher values bind more tightly
var precedence = map[TokenType]int{
	TokenOrOr:          30, // || or
	TokenAndAnd:        40, // && and
	TokenPipe:          50, // |
	TokenCaret:         60, // ^
	TokenAmp:           70, // &
	TokenEqual:         80, // == eq
	TokenNotEqual:      80, // != ne
	TokenMatch:         80, // =~
	TokenNotMatch:      80, // !~
	TokenStartsWith:    80, // =^
	TokenNotStartsWith: 80, // !^
	TokenEndsWith:      80, // =$
	TokenNotEndsWith:   80, // !$
	TokenLess:          90, // < lt
	TokenLessEqual:     90, // <= le
	TokenGreater:       90, // > gt
	TokenGreaterEqual:  90, // >= ge
	TokenPlus:          100,
	TokenMinus:         100,
	TokenMult:          110,
	TokenDiv:           110, // / div
	TokenMod:           110, // % mod
}

// binaryOperators maps infix tokens to operators; negated entries wrap the
// result in a logical not.
var binaryOperators = map[TokenType]struct {
	op     *types.Operator
	negate bool
}{
	TokenPipe:          {types.OpOr, false},
	TokenCaret:         {types.OpXor, false},
	TokenAmp:           {types.OpAnd, false},
	TokenEqual:         {types.OpEquals, false},
	TokenNotEqual:      {types.OpEquals, true},
	TokenMatch:         {types.OpContains, false},
	TokenNotMatch:      {types.OpContains, true},
	TokenStartsWith:    {types.OpStartsWith, false},
	TokenNotStartsWith: {types.OpStartsWith, true},
	TokenEndsWith:      {types.OpEndsWith, false},
	TokenNotEndsWith:   {types.OpEndsWith, true},
	TokenLess:          {types.OpLessThan, false},
	TokenLessEqual:     {types.OpLessThanOrEqual, false},
	TokenGreater:       {types.OpGreaterThan, false},
	TokenGreaterEqual:  {types.OpGreaterThanOrEqual, false},
	TokenPlus:          {types.OpAdd, false},
	TokenMinus:         {types.OpSubtract, false},
	TokenMult:          {types.OpMultiply, false},
	TokenDiv:           {types.OpDivide, false},
	TokenMod:           {types.OpMod, false},
}

var assignOperators = map[TokenType]*types.Operator{
	TokenAssign:    types.OpAssign,
	TokenAddAssign: types.OpSelfAdd,
	TokenSubAssign: types.OpSelfSubtract,
	TokenMulAssign: types.OpSelfMultiply,
	TokenDivAssign: types.OpSelfDivide,
	TokenModAssign: types.OpSelfMod,
	TokenAndAssign: types.OpSelfAnd,
	TokenOrAssign:  types.OpSelfOr,
	TokenXorAssign: types.OpSelfXor,
}

// advance moves to the next token.
func (p *Parser) advance() {
	p.prev = p.current
	p.current = p.lexer.Next()
}

// state is a parser position used for bounded backtracking.
type state struct {
	lexer   Lexer
	current Token
	prev    Token
}

func (p *Parser) mark() state {
	return state{lexer: *p.lexer, current: p.current, prev: p.prev}
}

func (p *Parser) reset(s state) {
	*p.lexer = s.lexer
	p.current = s.current
	p.prev = s.prev
}

// peek returns the n tokens following the current one without consuming them.
func (p *Parser) peek(n int) []Token {
	l := *p.lexer
	tokens := make([]Token, n)
	for i := range tokens {
		tokens[i] = l.Next()
	}
	return tokens
}

// isKeyword reports whether the current token is the given keyword.
func (p *Parser) isKeyword(word string) bool {
	return p.current.Type == TokenName && p.current.Value == word
}

// expect checks if the current token matches the expected type and advances.
func (p *Parser) expect(tt TokenType) error {
	if p.current.Type != tt {
		return p.error(types.ErrExpectedToken, fmt.Sprintf("expected '%s' but got %s", tt, describe(p.current)))
	}
	p.advance()
	return nil
}

// expectName consumes an identifier that is not a keyword.
func (p *Parser) expectName() (string, error) {
	if p.current.Type != TokenName || isReserved(p.current.Value) {
		return "", p.error(types.ErrExpectedToken, "expected a name but got "+describe(p.current))
	}
	name := p.current.Value
	p.advance()
	return name, nil
}

// error creates a parser error at the current token.
func (p *Parser) error(code types.ErrorCode, message string) error {
	if p.current.Type == TokenError && p.lexer.Error() != nil {
		return p.lexer.Error()
	}
	return &types.Error{
		Code:     code,
		Message:  message,
		Position: p.current.Position,
		Token:    p.current.Value,
	}
}

// unexpected reports the current token, naming the token before it.
func (p *Parser) unexpected() error {
	msg := "unexpected " + describe(p.current)
	if p.prev.End > 0 {
		msg += " after " + describe(p.prev)
	}
	return p.error(types.ErrSyntaxError, msg)
}

func describe(t Token) string {
	switch t.Type {
	case TokenEOF:
		return "end of input"
	case TokenString:
		return "string '" + t.Value + "'"
	case TokenNumber:
		return "number " + t.Value
	case TokenName:
		return "'" + t.Value + "'"
	case TokenPragma:
		return "pragma " + t.Value
	}
	return "'" + t.Type.String() + "'"
}

func (p *Parser) node(nodeType types.NodeType, pos types.Position) *types.ASTNode {
	return p.arena.Alloc(nodeType, pos)
}

// Statements

// parseStatements parses statements up to end, which is not consumed.
func (p *Parser) parseStatements(end TokenType) (*types.ASTNode, error) {
	block := p.node(types.NodeBlock, p.current.Position)
	for {
		for p.current.Type == TokenSemicolon {
			p.advance()
		}
		if p.current.Type == end || p.current.Type == TokenEOF || p.current.Type == TokenError {
			break
		}
		stmt, err := p.parseStatement()
		if err != nil {
			return nil, err
		}
		block.Expressions = append(block.Expressions, stmt)

		switch p.current.Type {
		case TokenSemicolon, end, TokenEOF:
			continue
		}
		// Statements ending with a brace or a pragma line need no separator
		if p.prev.Type == TokenBraceClose || stmt.Type == types.NodePragma {
			continue
		}
		return nil, p.unexpected()
	}
	if p.current.Type == TokenError {
		return nil, p.lexer.Error()
	}
	return block, nil
}

func (p *Parser) parseStatement() (*types.ASTNode, error) {
	switch p.current.Type {
	case TokenPragma:
		return p.parsePragma()
	case TokenBraceOpen:
		if p.startsMap() {
			return p.parseExpression()
		}
		return p.parseBlock()
	case TokenName:
		switch p.current.Value {
		case "var", "let", "const":
			return p.parseVar()
		case "function":
			if next := p.peek(1)[0]; next.Type == TokenName && !isReserved(next.Value) {
				return p.parseFunction()
			}
		case "if":
			return p.parseIf()
		case "while":
			return p.parseWhile()
		case "do":
			return p.parseDoWhile()
		case "for":
			return p.parseForEach()
		case "return":
			return p.parseReturn()
		case "break", "continue":
			return p.parseJump()
		}
	}
	return p.parseExpression()
}

// startsMap reports whether a '{' in statement position opens a map literal:
// "{:", "{'k':", "{1:" or "{k :" where the colon is not a namespace call.
func (p *Parser) startsMap() bool {
	next := p.peek(2)
	switch {
	case next[0].Type == TokenColon:
		return true
	case next[1].Type != TokenColon:
		return false
	case next[0].Type == TokenString, next[0].Type == TokenNumber:
		return true
	case next[0].Type == TokenName:
		return next[1].Offset != next[0].End
	}
	return false
}

// parseBlock parses { statements } in a new lexical block.
func (p *Parser) parseBlock() (*types.ASTNode, error) {
	pos := p.current.Position
	if err := p.expect(TokenBraceOpen); err != nil {
		return nil, err
	}
	p.scope.pushBlock()
	body, err := p.parseStatements(TokenBraceClose)
	p.scope.popBlock()
	if err != nil {
		return nil, err
	}
	if err := p.expect(TokenBraceClose); err != nil {
		return nil, err
	}
	body.Position = pos
	return body, nil
}

// parseVar parses var, let and const declarations.
func (p *Parser) parseVar() (*types.ASTNode, error) {
	kw := p.current.Value
	node := p.node(types.NodeVar, p.current.Position)
	p.advance()

	name, err := p.expectName()
	if err != nil {
		return nil, err
	}
	node.StrValue = name

	// Declared before the initializer: a lambda bound here can call itself.
	if err := p.declare(node, kw); err != nil {
		return nil, err
	}
	if p.current.Type == TokenAssign {
		p.advance()
		if node.RHS, err = p.parseExpression(); err != nil {
			return nil, err
		}
	} else if kw == "const" {
		return nil, p.error(types.ErrMissingArgument, fmt.Sprintf("const '%s' requires a value", name))
	}
	return node, nil
}

// declare binds a declaration node to a slot of the current frame.
func (p *Parser) declare(node *types.ASTNode, kw string) error {
	sym, redeclared := p.scope.declare(node.StrValue)
	if redeclared {
		if sym.constant || sym.let || kw != "var" {
			err := types.Errorf(types.ErrConstRedeclared, node.Position, "variable '%s' is already declared", node.StrValue)
			return err.WithName(node.StrValue)
		}
		node.Redeclared = true
	} else {
		sym.constant = kw == "const"
		sym.let = kw == "let"
	}
	node.Symbol = sym.slot
	node.Const = sym.constant
	return nil
}

// parseFunction parses "function name(params) { body }", a local closure
// declaration. The name is declared first so the body can recurse.
func (p *Parser) parseFunction() (*types.ASTNode, error) {
	node := p.node(types.NodeVar, p.current.Position)
	p.advance()
	name, err := p.expectName()
	if err != nil {
		return nil, err
	}
	node.StrValue = name
	if err := p.declare(node, "var"); err != nil {
		return nil, err
	}
	params, err := p.parseParams()
	if err != nil {
		return nil, err
	}
	if p.current.Type != TokenBraceOpen {
		return nil, p.error(types.ErrExpectedToken, "expected '{' but got "+describe(p.current))
	}
	node.RHS, err = p.parseLambdaBody(node.Position, name, params)
	if err != nil {
		return nil, err
	}
	return node, nil
}

func (p *Parser) parseIf() (*types.ASTNode, error) {
	node := p.node(types.NodeIf, p.current.Position)
	p.advance()
	var err error
	if node.Condition, err = p.parseCondition(); err != nil {
		return nil, err
	}
	if node.Body, err = p.parseStatement(); err != nil {
		return nil, err
	}
	// "if (c) a; else b" is accepted
	if p.current.Type == TokenSemicolon {
		s := p.mark()
		p.advance()
		if !p.isKeyword("else") {
			p.reset(s)
		}
	}
	if p.isKeyword("else") {
		p.advance()
		if node.Else, err = p.parseStatement(); err != nil {
			return nil, err
		}
	}
	return node, nil
}

// parseCondition parses a parenthesized condition.
func (p *Parser) parseCondition() (*types.ASTNode, error) {
	if err := p.expect(TokenParenOpen); err != nil {
		return nil, err
	}
	cond, err := p.parseExpression()
	if err != nil {
		return nil, err
	}
	if err := p.expect(TokenParenClose); err != nil {
		return nil, err
	}
	return cond, nil
}

// parseLoopBody parses a loop body; a bare ';' is an empty body.
func (p *Parser) parseLoopBody() (*types.ASTNode, error) {
	if p.current.Type == TokenSemicolon {
		return nil, nil
	}
	p.loops++
	defer func() { p.loops-- }()
	return p.parseStatement()
}

func (p *Parser) parseWhile() (*types.ASTNode, error) {
	node := p.node(types.NodeWhile, p.current.Position)
	p.advance()
	var err error
	if node.Condition, err = p.parseCondition(); err != nil {
		return nil, err
	}
	if node.Body, err = p.parseLoopBody(); err != nil {
		return nil, err
	}
	return node, nil
}

func (p *Parser) parseDoWhile() (*types.ASTNode, error) {
	node := p.node(types.NodeDoWhile, p.current.Position)
	p.advance()
	var err error
	if node.Body, err = p.parseLoopBody(); err != nil {
		return nil, err
	}
	if p.current.Type == TokenSemicolon {
		p.advance()
	}
	if !p.isKeyword("while") {
		return nil, p.error(types.ErrExpectedToken, "expected 'while' but got "+describe(p.current))
	}
	p.advance()
	if node.Condition, err = p.parseCondition(); err != nil {
		return nil, err
	}
	return node, nil
}

// parseForEach parses "for (var x : items) body" and "for (x : items) body".
func (p *Parser) parseForEach() (*types.ASTNode, error) {
	node := p.node(types.NodeForEach, p.current.Position)
	p.advance()
	if err := p.expect(TokenParenOpen); err != nil {
		return nil, err
	}
	p.scope.pushBlock()
	defer p.scope.popBlock()

	var kw string
	switch {
	case p.isKeyword("var"), p.isKeyword("let"), p.isKeyword("const"):
		kw = p.current.Value
		node.LHS = p.node(types.NodeVar, p.current.Position)
		p.advance()
	default:
		node.LHS = p.node(types.NodeIdentifier, p.current.Position)
	}
	name, err := p.expectName()
	if err != nil {
		return nil, err
	}
	node.LHS.StrValue = name
	if err := p.expect(TokenColon); err != nil {
		return nil, err
	}
	if node.RHS, err = p.parseExpression(); err != nil {
		return nil, err
	}
	if err := p.expect(TokenParenClose); err != nil {
		return nil, err
	}
	if kw != "" {
		if err := p.declare(node.LHS, kw); err != nil {
			return nil, err
		}
	} else {
		p.scope.resolve(node.LHS)
		if err := p.checkTarget(node.LHS); err != nil {
			return nil, err
		}
	}
	if node.Body, err = p.parseLoopBody(); err != nil {
		return nil, err
	}
	return node, nil
}

func (p *Parser) parseReturn() (*types.ASTNode, error) {
	node := p.node(types.NodeReturn, p.current.Position)
	p.advance()
	switch p.current.Type {
	case TokenSemicolon, TokenBraceClose, TokenEOF:
		return node, nil
	}
	var err error
	node.LHS, err = p.parseExpression()
	return node, err
}

func (p *Parser) parseJump() (*types.ASTNode, error) {
	kw := p.current.Value
	if p.loops == 0 {
		return nil, p.error(types.ErrSyntaxError, fmt.Sprintf("'%s' outside of a loop", kw))
	}
	nodeType := types.NodeBreak
	if kw == "continue" {
		nodeType = types.NodeContinue
	}
	node := p.node(nodeType, p.current.Position)
	p.advance()
	return node, nil
}

// parsePragma turns a "#pragma name value" line into a statement.
func (p *Parser) parsePragma() (*types.ASTNode, error) {
	node := p.node(types.NodePragma, p.current.Position)
	node.StrValue = p.current.Value
	node.Value = pragmaValue(p.current.Arg)
	p.advance()
	return node, nil
}

// pragmaValue converts the raw text of a pragma value: quoted strings,
// booleans and numbers are literals, anything else is kept verbatim. A
// missing value means true.
func pragmaValue(raw string) interface{} {
	switch raw {
	case "":
		return true
	case "true":
		return true
	case "false":
		return false
	}
	if raw[0] == '\'' || raw[0] == '"' {
		l := NewLexer(raw, types.Position{})
		if t := l.Next(); t.Type == TokenString {
			return t.Value
		}
		return raw
	}
	if i, err := strconv.ParseInt(raw, 10, 64); err == nil {
		return i
	}
	if f, err := strconv.ParseFloat(raw, 64); err == nil {
		return f
	}
	return raw
}

// Expressions

// parseExpression parses an assignment or any lower level expression.
func (p *Parser) parseExpression() (*types.ASTNode, error) {
	p.depth++
	defer func() { p.depth-- }()
	if p.opts.MaxDepth > 0 && p.depth > p.opts.MaxDepth {
		return nil, p.error(types.ErrTooDeep, "expression nested too deeply")
	}

	left, err := p.parseTernary()
	if err != nil {
		return nil, err
	}
	op, ok := assignOperators[p.current.Type]
	if !ok {
		return left, nil
	}
	if err := p.checkTarget(left); err != nil {
		return nil, err
	}
	node := p.node(types.NodeAssign, p.current.Position)
	p.advance()
	right, err := p.parseExpression()
	if err != nil {
		return nil, err
	}
	node.Operator = op
	node.LHS = left
	node.RHS = right
	return node, nil
}

// checkTarget verifies that node can be assigned to.
func (p *Parser) checkTarget(node *types.ASTNode) error {
	switch node.Type {
	case types.NodeIdentifier:
		if node.Const {
			err := types.Errorf(types.ErrConstAssignment, node.Position, "cannot assign to const '%s'", node.StrValue)
			return err.WithName(node.StrValue)
		}
		return nil
	case types.NodePath:
		last := node.Steps[len(node.Steps)-1]
		if (last.Type == types.NodeProperty || last.Type == types.NodeIndex) && !last.Safe {
			return nil
		}
	}
	return types.Errorf(types.ErrInvalidTarget, node.Position, "invalid assignment target %s", node)
}

// parseTernary parses c ? a : b, a ?: b and a ?? b, all right associative
// and binding looser than every binary operator.
func (p *Parser) parseTernary() (*types.ASTNode, error) {
	cond, err := p.parseBinary(0)
	if err != nil {
		return nil, err
	}
	switch p.current.Type {
	case TokenQuestion:
		node := p.node(types.NodeTernary, cond.Position)
		p.advance()
		node.Condition = cond
		if node.LHS, err = p.parseTernary(); err != nil {
			return nil, err
		}
		if err := p.expect(TokenColon); err != nil {
			return nil, err
		}
		if node.RHS, err = p.parseTernary(); err != nil {
			return nil, err
		}
		return node, nil
	case TokenElvis, TokenCoalesce:
		nodeType := types.NodeElvis
		if p.current.Type == TokenCoalesce {
			nodeType = types.NodeCoalesce
		}
		node := p.node(nodeType, cond.Position)
		p.advance()
		node.LHS = cond
		if node.RHS, err = p.parseTernary(); err != nil {
			return nil, err
		}
		return node, nil
	}
	return cond, nil
}

// infixType returns the token type of the current token as an infix
// operator, mapping operator keywords to their symbols.
func (p *Parser) infixType() TokenType {
	if p.current.Type == TokenName {
		if tt, ok := wordOperators[p.current.Value]; ok {
			return tt
		}
	}
	return p.current.Type
}

// parseBinary parses binary operators whose precedence is above rbp.
func (p *Parser) parseBinary(rbp int) (*types.ASTNode, error) {
	left, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	for {
		tt := p.infixType()
		lbp := precedence[tt]
		if lbp <= rbp {
			return left, nil
		}
		pos := p.current.Position
		p.advance()
		right, err := p.parseBinary(lbp)
		if err != nil {
			return nil, err
		}
		left = p.binary(tt, pos, left, right)
	}
}

func (p *Parser) binary(tt TokenType, pos types.Position, left, right *types.ASTNode) *types.ASTNode {
	switch tt {
	case TokenAndAnd, TokenOrOr:
		nodeType := types.NodeAnd
		if tt == TokenOrOr {
			nodeType = types.NodeOr
		}
		node := p.node(nodeType, pos)
		node.LHS = left
		node.RHS = right
		return node
	}
	entry := binaryOperators[tt]
	node := p.node(types.NodeBinary, pos)
	node.Operator = entry.op
	node.LHS = left
	node.RHS = right
	if entry.negate {
		return p.unary(types.OpNot, pos, node)
	}
	return node
}

func (p *Parser) unary(op *types.Operator, pos types.Position, operand *types.ASTNode) *types.ASTNode {
	node := p.node(types.NodeUnary, pos)
	node.Operator = op
	node.LHS = operand
	return node
}

// parseUnary parses prefix operators: - + ! not ~ empty size.
func (p *Parser) parseUnary() (*types.ASTNode, error) {
	pos := p.current.Position
	var op *types.Operator
	switch p.infixType() {
	case TokenMinus:
		op = types.OpNegate
	case TokenPlus:
		p.advance()
		return p.parseUnary()
	case TokenNot:
		op = types.OpNot
	case TokenTilde:
		op = types.OpComplement
	case TokenName:
		switch p.current.Value {
		case "empty":
			op = types.OpEmpty
		case "size":
			op = types.OpSize
		}
	}
	if op == nil {
		primary, err := p.parsePrimary()
		if err != nil {
			return nil, err
		}
		return p.parsePostfix(primary)
	}
	p.advance()
	operand, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	if op == types.OpNegate && operand.Type == types.NodeNumber {
		switch v := operand.Value.(type) {
		case int64:
			if v != math.MinInt64 {
				operand.Value = -v
				operand.Position = pos
				return operand, nil
			}
		case float64:
			operand.Value = -v
			operand.Position = pos
			return operand, nil
		}
	}
	return p.unary(op, pos, operand), nil
}

// parsePrimary parses literals, names, lambdas and grouped expressions.
func (p *Parser) parsePrimary() (*types.ASTNode, error) {
	t := p.current
	switch t.Type {
	case TokenNumber:
		return p.parseNumber()
	case TokenString:
		node := p.node(types.NodeString, t.Position)
		node.Value = t.Value
		p.advance()
		return node, nil
	case TokenTemplate:
		return p.parseTemplate()
	case TokenParenOpen:
		if lambda, err := p.tryLambda(); lambda != nil || err != nil {
			return lambda, err
		}
		p.advance()
		node, err := p.parseExpression()
		if err != nil {
			return nil, err
		}
		if err := p.expect(TokenParenClose); err != nil {
			return nil, err
		}
		return node, nil
	case TokenBracketOpen:
		return p.parseArray()
	case TokenBraceOpen:
		return p.parseMap()
	case TokenName:
		return p.parseName()
	}
	return nil, p.unexpected()
}

func (p *Parser) parseNumber() (*types.ASTNode, error) {
	t := p.current
	node := p.node(types.NodeNumber, t.Position)
	if strings.ContainsAny(t.Value, ".eE") {
		f, err := strconv.ParseFloat(t.Value, 64)
		if err != nil {
			return nil, p.error(types.ErrNumberOutOfRange, "number out of range: "+t.Value)
		}
		node.Value = f
	} else {
		i, err := strconv.ParseInt(t.Value, 10, 64)
		if err != nil {
			return nil, p.error(types.ErrNumberOutOfRange, "number out of range: "+t.Value)
		}
		node.Value = i
	}
	p.advance()
	return node, nil
}

// parseName parses keywords literals, new, anonymous functions, namespace
// calls, single parameter lambdas and identifiers.
func (p *Parser) parseName() (*types.ASTNode, error) {
	t := p.current
	switch t.Value {
	case "true", "false":
		node := p.node(types.NodeBoolean, t.Position)
		node.Value = t.Value == "true"
		p.advance()
		return node, nil
	case "null":
		p.advance()
		return p.node(types.NodeNull, t.Position), nil
	case "NaN":
		p.advance()
		return p.node(types.NodeNaN, t.Position), nil
	case "new":
		return p.parseNew()
	case "function":
		p.advance()
		params, err := p.parseParams()
		if err != nil {
			return nil, err
		}
		if p.current.Type != TokenBraceOpen {
			return nil, p.error(types.ErrExpectedToken, "expected '{' but got "+describe(p.current))
		}
		return p.parseLambdaBody(t.Position, "", params)
	case "$options":
		p.advance()
		return p.node(types.NodeOptions, t.Position), nil
	}
	if isReserved(t.Value) {
		return nil, p.unexpected()
	}

	next := p.peek(3)
	switch {
	case next[0].Type == TokenArrow || next[0].Type == TokenFatArrow:
		p.advance()
		p.advance()
		return p.parseLambdaBody(t.Position, "", []string{t.Value})
	case !p.noNamespace && next[0].Type == TokenColon && next[0].Offset == t.End &&
		next[1].Type == TokenName && next[1].Offset == next[0].End && next[2].Type == TokenParenOpen:
		node := p.node(types.NodeNSCall, t.Position)
		node.StrValue = t.Value
		node.Value = next[1].Value
		p.advance()
		p.advance()
		p.advance()
		args, err := p.parseArguments()
		if err != nil {
			return nil, err
		}
		node.Arguments = args
		return node, nil
	}

	node := p.node(types.NodeIdentifier, t.Position)
	node.StrValue = t.Value
	p.scope.resolve(node)
	p.advance()
	return node, nil
}

// parseNew parses new(type, args...). At least the type is required.
func (p *Parser) parseNew() (*types.ASTNode, error) {
	node := p.node(types.NodeNew, p.current.Position)
	p.advance()
	if p.current.Type != TokenParenOpen {
		return nil, p.error(types.ErrExpectedToken, "expected '(' after new but got "+describe(p.current))
	}
	if p.peek(1)[0].Type == TokenParenClose {
		p.advance()
		return nil, p.error(types.ErrMissingArgument, "unexpected ')': new requires a type argument")
	}
	args, err := p.parseArguments()
	if err != nil {
		return nil, err
	}
	node.Arguments = args
	return node, nil
}

// tryLambda parses "(a, b) -> body" when the parenthesis opens a parameter
// list; otherwise it restores the position and returns nil.
func (p *Parser) tryLambda() (*types.ASTNode, error) {
	s := p.mark()
	pos := p.current.Position
	params, err := p.parseParams()
	if err == nil && (p.current.Type == TokenArrow || p.current.Type == TokenFatArrow) {
		p.advance()
		return p.parseLambdaBody(pos, "", params)
	}
	p.reset(s)
	return nil, nil
}

// parseParams parses "(a, b, ...)". A parameter may be prefixed by var.
func (p *Parser) parseParams() ([]string, error) {
	if err := p.expect(TokenParenOpen); err != nil {
		return nil, err
	}
	params := []string{}
	if p.current.Type == TokenParenClose {
		p.advance()
		return params, nil
	}
	for {
		if p.isKeyword("var") {
			p.advance()
		}
		name, err := p.expectName()
		if err != nil {
			return nil, err
		}
		params = append(params, name)
		if p.current.Type == TokenComma {
			p.advance()
			continue
		}
		if err := p.expect(TokenParenClose); err != nil {
			return nil, err
		}
		return params, nil
	}
}

// parseLambdaBody parses the body of a closure in its own frame. A body in
// braces is a statement block, anything else a single expression.
func (p *Parser) parseLambdaBody(pos types.Position, name string, params []string) (*types.ASTNode, error) {
	node := p.node(types.NodeLambda, pos)
	node.StrValue = name
	node.Params = params

	loops := p.loops
	p.loops = 0
	p.scope.pushFrame(params)
	var err error
	if p.current.Type == TokenBraceOpen {
		node.Body, err = p.parseBlock()
	} else {
		node.Body, err = p.parseExpression()
	}
	node.Locals = p.scope.popFrame()
	p.loops = loops
	if err != nil {
		return nil, err
	}
	return node, nil
}

// parseArguments parses "(a, b, ...)" call arguments.
func (p *Parser) parseArguments() ([]*types.ASTNode, error) {
	if err := p.expect(TokenParenOpen); err != nil {
		return nil, err
	}
	return p.parseList(TokenParenClose)
}

// parseList parses comma separated expressions up to and including end.
func (p *Parser) parseList(end TokenType) ([]*types.ASTNode, error) {
	var items []*types.ASTNode
	for p.current.Type != end {
		item, err := p.parseExpression()
		if err != nil {
			return nil, err
		}
		items = append(items, item)
		if p.current.Type != TokenComma {
			break
		}
		p.advance()
	}
	if err := p.expect(end); err != nil {
		return nil, err
	}
	return items, nil
}

func (p *Parser) parseArray() (*types.ASTNode, error) {
	node := p.node(types.NodeArray, p.current.Position)
	p.advance()
	items, err := p.parseList(TokenBracketClose)
	if err != nil {
		return nil, err
	}
	node.Arguments = items
	return node, nil
}

// parseMap parses { key : value, ... }; {} and {:} are empty maps.
func (p *Parser) parseMap() (*types.ASTNode, error) {
	node := p.node(types.NodeMap, p.current.Position)
	p.advance()
	if p.current.Type == TokenColon {
		p.advance()
		return node, p.expect(TokenBraceClose)
	}
	for p.current.Type != TokenBraceClose {
		entry := p.node(types.NodeEntry, p.current.Position)
		p.noNamespace = true
		key, err := p.parseTernary()
		p.noNamespace = false
		if err != nil {
			return nil, err
		}
		if err := p.expect(TokenColon); err != nil {
			return nil, err
		}
		value, err := p.parseExpression()
		if err != nil {
			return nil, err
		}
		entry.LHS = key
		entry.RHS = value
		node.Arguments = append(node.Arguments, entry)
		if p.current.Type != TokenComma {
			break
		}
		p.advance()
	}
	return node, p.expect(TokenBraceClose)
}

// parsePostfix parses member access, indexing and calls following a primary.
func (p *Parser) parsePostfix(base *types.ASTNode) (*types.ASTNode, error) {
	var steps []*types.ASTNode
	for {
		switch p.current.Type {
		case TokenDot, TokenSafeDot:
			safe := p.current.Type == TokenSafeDot
			p.advance()
			t := p.current
			switch t.Type {
			case TokenName, TokenNumber, TokenString:
			default:
				return nil, p.unexpected()
			}
			p.advance()
			step := p.node(types.NodeProperty, t.Position)
			step.StrValue = t.Value
			step.Safe = safe
			if p.current.Type == TokenParenOpen {
				args, err := p.parseArguments()
				if err != nil {
					return nil, err
				}
				step.Type = types.NodeMethod
				step.Arguments = args
			}
			steps = append(steps, step)
		case TokenBracketOpen:
			step := p.node(types.NodeIndex, p.current.Position)
			p.advance()
			key, err := p.parseExpression()
			if err != nil {
				return nil, err
			}
			if err := p.expect(TokenBracketClose); err != nil {
				return nil, err
			}
			step.LHS = key
			steps = append(steps, step)
		case TokenParenOpen:
			call := p.node(types.NodeCall, p.current.Position)
			args, err := p.parseArguments()
			if err != nil {
				return nil, err
			}
			call.LHS = p.path(base, steps)
			call.Arguments = args
			base = call
			steps = nil
		default:
			return p.path(base, steps), nil
		}
	}
}

// path wraps base and steps in a path node; with no steps base is returned.
func (p *Parser) path(base *types.ASTNode, steps []*types.ASTNode) *types.ASTNode {
	if len(steps) == 0 {
		return base
	}
	node := p.node(types.NodePath, base.Position)
	node.LHS = base
	node.Steps = steps
	return node
}

// parseTemplate splits a backtick literal into text and ${...} parts.
func (p *Parser) parseTemplate() (*types.ASTNode, error) {
	t := p.current
	node := p.node(types.NodeTemplate, t.Position)
	src := t.Value
	var text strings.Builder
	flush := func() {
		if text.Len() > 0 {
			part := p.node(types.NodeString, t.Position)
			part.Value = text.String()
			node.Arguments = append(node.Arguments, part)
			text.Reset()
		}
	}
	for i := 0; i < len(src); {
		c := src[i]
		switch {
		case c == '\\' && i+1 < len(src):
			switch e := src[i+1]; e {
			case 'n':
				text.WriteByte('\n')
			case 't':
				text.WriteByte('\t')
			case 'r':
				text.WriteByte('\r')
			default:
				text.WriteByte(e)
			}
			i += 2
		case c == '$' && i+1 < len(src) && src[i+1] == '{':
			end := matchBrace(src, i+2)
			if end < 0 {
				return nil, p.error(types.ErrStringNotClosed, "unterminated ${ in template literal")
			}
			flush()
			part, err := p.parseEmbedded(src[i+2:end], t.Offset+i+2)
			if err != nil {
				return nil, err
			}
			node.Arguments = append(node.Arguments, part)
			i = end + 1
		default:
			text.WriteByte(c)
			i++
		}
	}
	flush()
	p.advance()
	return node, nil
}

// parseEmbedded parses an interpolated expression found at offset of the
// input, in the current scope.
func (p *Parser) parseEmbedded(src string, offset int) (*types.ASTNode, error) {
	saved := p.mark()
	outer := p.lexer
	p.lexer = NewLexer(src, outer.Position(offset))
	p.advance()
	node, err := p.parseExpression()
	if err == nil && p.current.Type != TokenEOF {
		err = p.unexpected()
	}
	p.lexer = outer
	p.reset(saved)
	return node, err
}

// matchBrace returns the index of the '}' closing a brace opened just before
// start, skipping nested braces and quoted strings, or -1.
func matchBrace(s string, start int) int {
	depth := 0
	for i := start; i < len(s); i++ {
		switch c := s[i]; c {
		case '{':
			depth++
		case '}':
			if depth == 0 {
				return i
			}
			depth--
		case '\'', '"':
			for i++; i < len(s) && s[i] != c; i++ {
				if s[i] == '\\' {
					i++
				}
			}
		}
	}
	return -1
}
