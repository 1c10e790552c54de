package types

import "fmt"

// NodeType identifies the type of an AST node.
type NodeType string

// AST node types.
const (
	// Literals
	NodeString   NodeType = "string"
	NodeNumber   NodeType = "number"
	NodeBoolean  NodeType = "boolean"
	NodeNull     NodeType = "null"
	NodeNaN      NodeType = "nan"
	NodeTemplate NodeType = "template" // `text ${expr}`, parts in Arguments
	NodeArray    NodeType = "array"    // [a, b]
	NodeMap      NodeType = "map"      // {k: v}
	NodeEntry    NodeType = "entry"    // k: v inside a map literal

	// References
	NodeIdentifier NodeType = "identifier" // local or context variable
	NodePath       NodeType = "path"       // base followed by Steps
	NodeProperty   NodeType = "property"   // .name or ?.name step
	NodeIndex      NodeType = "index"      // [expr] or ?[expr] step
	NodeMethod     NodeType = "method"     // .name(args) step
	NodeOptions    NodeType = "options"    // $options

	// Operators
	NodeUnary    NodeType = "unary"
	NodeBinary   NodeType = "binary"
	NodeAnd      NodeType = "and"      // &&
	NodeOr       NodeType = "or"       // ||
	NodeTernary  NodeType = "ternary"  // c ? a : b
	NodeElvis    NodeType = "elvis"    // a ?: b
	NodeCoalesce NodeType = "coalesce" // a ?? b
	NodeAssign   NodeType = "assign"   // = and op=

	// Statements
	NodeBlock    NodeType = "block"
	NodeVar      NodeType = "var"
	NodeIf       NodeType = "if"
	NodeWhile    NodeType = "while"
	NodeDoWhile  NodeType = "dowhile"
	NodeForEach  NodeType = "foreach"
	NodeReturn   NodeType = "return"
	NodeBreak    NodeType = "break"
	NodeContinue NodeType = "continue"
	NodePragma   NodeType = "pragma"

	// Functions
	NodeLambda NodeType = "lambda"
	NodeCall   NodeType = "call"   // f(args)
	NodeNSCall NodeType = "nscall" // ns:f(args)
	NodeNew    NodeType = "new"    // new(type, args)
)

// Position is a location in the source text. Lines and columns are 1-based.
type Position struct {
	Line   int
	Column int
}

// String returns the position as "line:column".
func (p Position) String() string {
	return fmt.Sprintf("%d:%d", p.Line, p.Column)
}

// ASTNode represents a node in the Abstract Syntax Tree.
//
// Nodes are immutable once the parser returns them; the evaluator keeps all
// per-evaluation state in frames and options, never on the tree.
type ASTNode struct {
	Type     NodeType
	Value    interface{} // literal value (int64, float64, string, bool, nil)
	StrValue string      // identifier, member, function or pragma name
	Position Position

	// Relations
	LHS         *ASTNode   // left operand, assignment target, callee, loop variable
	RHS         *ASTNode   // right operand, assigned value, initializer, iterable
	Condition   *ASTNode   // if/while/ternary condition
	Body        *ASTNode   // if-then branch, loop body, lambda body
	Else        *ASTNode   // else branch
	Steps       []*ASTNode // path steps
	Arguments   []*ASTNode // call arguments, array elements, map entries
	Expressions []*ASTNode // block statements

	// Operator for unary, binary and compound assignment nodes. Plain
	// assignment carries OpAssign.
	Operator *Operator

	// Static scope annotations, filled by the parser.
	Symbol     int      // local slot, -1 when the name is not a local
	Depth      int      // number of function frames between use and declaration
	Params     []string // lambda parameters
	Locals     int      // slot count of a lambda frame
	Safe       bool     // ?. or ?[ step
	Const      bool     // const declaration
	Shaded     bool     // used before a later declaration in the same frame
	Redeclared bool     // var declared twice in the same frame
}

// IsLocal reports whether an identifier node refers to a local slot.
func (n *ASTNode) IsLocal() bool {
	return n.Symbol >= 0
}

// IsReference reports whether the node reads a variable or a member chain.
func (n *ASTNode) IsReference() bool {
	switch n.Type {
	case NodeIdentifier, NodePath:
		return true
	}
	return false
}

// NewASTNode creates a new AST node of the specified type.
// Prefer NodeArena.Alloc when parsing to reduce per-node heap allocations.
func NewASTNode(nodeType NodeType, position Position) *ASTNode {
	return &ASTNode{
		Type:     nodeType,
		Position: position,
		Symbol:   -1,
	}
}

// arenaChunkSize is the number of ASTNode values pre-allocated per arena chunk.
const arenaChunkSize = 64

// NodeArena is a bump-pointer allocator for ASTNode values.
//
// The arena must stay alive as long as any node it returned is reachable;
// the Script holding the root keeps it alive. NodeArena is not thread-safe:
// each parser owns its own arena.
type NodeArena struct {
	chunks [][]ASTNode
	pos    int // next free index in the last chunk
}

// NewNodeArena allocates an arena pre-warmed with one initial chunk.
func NewNodeArena() *NodeArena {
	return &NodeArena{
		chunks: [][]ASTNode{make([]ASTNode, arenaChunkSize)},
	}
}

// Alloc returns a pointer to a fresh ASTNode inside the arena with Type and
// Position set and Symbol cleared to -1.
func (a *NodeArena) Alloc(nodeType NodeType, position Position) *ASTNode {
	if a.pos >= arenaChunkSize {
		a.chunks = append(a.chunks, make([]ASTNode, arenaChunkSize))
		a.pos = 0
	}
	n := &a.chunks[len(a.chunks)-1][a.pos]
	a.pos++
	n.Type = nodeType
	n.Position = position
	n.Symbol = -1
	return n
}

// Len returns the number of nodes allocated so far.
func (a *NodeArena) Len() int {
	return (len(a.chunks)-1)*arenaChunkSize + a.pos
}

// String returns a string representation of the node type.
func (n *ASTNode) String() string {
	if n.StrValue != "" {
		return fmt.Sprintf("%s(%s)", n.Type, n.StrValue)
	}
	return string(n.Type)
}
