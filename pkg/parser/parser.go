// Package parser implements the GoJEXL script parser.
//
// The parser is a hand-written recursive descent parser that uses Pratt's
// precedence climbing for expressions. Besides the tree it resolves every
// identifier against the static scope: locals get a slot and a frame depth,
// everything else is left to context resolution at evaluation time.
//
// # Example
//
//	script, err := parser.Parse("var y = x * 2; y + 1", parser.WithParameters("x"))
//	if err != nil {
//	    log.Fatal(err)
//	}
//	root := script.AST()
package parser

import (
	"github.com/sandrolain/gojexl/pkg/types"
)

// Parse parses a script and returns it ready for evaluation.
//
// If parsing fails, it returns a *types.Error of kind parsing carrying the
// position and text of the offending token.
//
// Example:
//
//	script, err := parser.Parse("a.b ?: 'none'")
//	if err != nil {
//	    fmt.Printf("parse error: %v\n", err)
//	    return
//	}
func Parse(source string, opts ...CompileOption) (*types.Script, error) {
	p := NewParser(source, opts...)
	return p.Parse()
}

// Compile is an alias for Parse, provided for API consistency.
func Compile(source string, opts ...CompileOption) (*types.Script, error) {
	return Parse(source, opts...)
}

// CompileOption configures compilation behavior.
type CompileOption func(*CompileOptions)

// CompileOptions holds parser configuration.
type CompileOptions struct {
	// Parameters are the names bound to positional arguments, in order.
	Parameters []string
	// Name identifies the script in error messages.
	Name string
	// Origin is the position of the first character of the source. Errors
	// and nodes report positions relative to it, which lets a caller that
	// extracted the source from a larger text keep the original positions.
	Origin types.Position
	// MaxDepth limits recursion depth to prevent stack overflow.
	MaxDepth int
}

// WithParameters declares the script parameters.
func WithParameters(names ...string) CompileOption {
	return func(opts *CompileOptions) {
		opts.Parameters = append(opts.Parameters, names...)
	}
}

// WithInfo sets the script name and the position of its first character.
func WithInfo(name string, line, column int) CompileOption {
	return func(opts *CompileOptions) {
		opts.Name = name
		opts.Origin = types.Position{Line: line, Column: column}
	}
}

// WithMaxDepth sets the maximum parsing depth.
func WithMaxDepth(depth int) CompileOption {
	return func(opts *CompileOptions) {
		opts.MaxDepth = depth
	}
}
