// Package types defines the core data model of GoJEXL.
//
// This package contains type definitions for:
//   - Script: compiled scripts and their static frame information
//   - ASTNode: Abstract Syntax Tree nodes with source positions
//   - Operator: the fixed operator table
//   - Options: the evaluation flag bundle, script modes and pragmas
//   - Error: structured errors with codes, kinds and positions
package types

// Script represents a parsed script.
//
// A Script is immutable and can be evaluated many times, concurrently, by
// passing it to [evaluator.Evaluator.Execute].
type Script struct {
	root    *ASTNode
	arena   *NodeArena
	source  string
	name    string
	origin  Position
	params  []string
	locals  int
	pragmas []Pragma
}

// ScriptInfo carries the static facts the parser collected about a script.
type ScriptInfo struct {
	Name    string
	Origin  Position
	Params  []string
	Locals  int
	Pragmas []Pragma
	Arena   *NodeArena
}

// NewScript creates a new Script from a parsed tree.
func NewScript(root *ASTNode, source string, info ScriptInfo) *Script {
	return &Script{
		root:    root,
		arena:   info.Arena,
		source:  source,
		name:    info.Name,
		origin:  info.Origin,
		params:  info.Params,
		locals:  info.Locals,
		pragmas: info.Pragmas,
	}
}

// AST returns the root of the tree.
func (s *Script) AST() *ASTNode {
	return s.root
}

// Source returns the original source text.
func (s *Script) Source() string {
	return s.source
}

// Name returns the script name, empty when none was given.
func (s *Script) Name() string {
	return s.name
}

// Origin returns the position of the first character of the source.
func (s *Script) Origin() Position {
	return s.origin
}

// Parameters returns the declared parameter names in order.
func (s *Script) Parameters() []string {
	return s.params
}

// Locals returns the number of local slots of the top-level frame,
// parameters included.
func (s *Script) Locals() int {
	return s.locals
}

// Pragmas returns the pragmas that precede the script body.
func (s *Script) Pragmas() []Pragma {
	return s.pragmas
}

// Snippet renders the source line err points at, with a caret.
func (s *Script) Snippet(err error) string {
	e, ok := AsError(err)
	if !ok {
		return ""
	}
	return e.Snippet(s.source, s.origin)
}

// String returns the source text.
func (s *Script) String() string {
	return s.source
}
