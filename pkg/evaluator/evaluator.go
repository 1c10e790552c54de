// Package evaluator implements the GoJEXL interpreter.
//
// The evaluator walks the tree of a parsed script against a Context that
// supplies the free variables. It supports:
//   - Local variables, closures and options propagation into closures
//   - Antish resolution of dotted context names
//   - Operator dispatch through a pluggable arithmetic
//   - Host functions, namespaces and constructors
//   - Cancellation via context.Context
//
// # Example
//
//	ev := evaluator.New()
//	script, _ := parser.Parse("x + y", parser.WithParameters("x"))
//	result, err := ev.Execute(ctx, script, evaluator.MapContext{"y": 2}, 40)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
// # Concurrency
//
// An Evaluator and the scripts it runs are immutable and can be shared by
// any number of goroutines. Contexts are owned by the caller.
package evaluator

import (
	"context"
	"log/slog"

	"github.com/sandrolain/gojexl/pkg/arithmetic"
	"github.com/sandrolain/gojexl/pkg/functions"
	"github.com/sandrolain/gojexl/pkg/types"
)

// Evaluator executes scripts.
type Evaluator struct {
	opts   EvalOptions
	logger *slog.Logger
	arith  *arithmetic.Arithmetic
	funcs  *functions.Registry
}

// EvalOptions configures evaluator behavior.
type EvalOptions struct {
	// Options are the engine defaults every evaluation starts from.
	Options *types.Options
	// Arithmetic implements the operators. Defaults to arithmetic.Default().
	Arithmetic *arithmetic.Arithmetic
	// Functions holds the host functions, namespaces and constructors.
	Functions *functions.Registry
	// MaxDepth limits the nesting of closure and function calls.
	MaxDepth int
	// Debug enables debug logging.
	Debug bool
	// Logger for structured logging.
	Logger *slog.Logger
}

// EvalOption configures an Evaluator.
type EvalOption func(*EvalOptions)

// WithOptions sets the default options bundle. The evaluator keeps a copy.
func WithOptions(o *types.Options) EvalOption {
	return func(opts *EvalOptions) {
		opts.Options = o.Copy()
	}
}

// WithArithmetic sets the operator implementation.
func WithArithmetic(a *arithmetic.Arithmetic) EvalOption {
	return func(opts *EvalOptions) {
		opts.Arithmetic = a
	}
}

// WithFunctions sets the registry of host functions.
func WithFunctions(r *functions.Registry) EvalOption {
	return func(opts *EvalOptions) {
		opts.Functions = r
	}
}

// WithMaxDepth limits the call depth.
func WithMaxDepth(depth int) EvalOption {
	return func(opts *EvalOptions) {
		opts.MaxDepth = depth
	}
}

// WithDebug enables debug logging of every evaluated node.
func WithDebug(enabled bool) EvalOption {
	return func(opts *EvalOptions) {
		opts.Debug = enabled
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) EvalOption {
	return func(opts *EvalOptions) {
		opts.Logger = logger
	}
}

// New creates a new Evaluator.
func New(opts ...EvalOption) *Evaluator {
	options := EvalOptions{
		MaxDepth: 1000,
	}
	for _, opt := range opts {
		opt(&options)
	}

	if options.Options == nil {
		options.Options = types.NewOptions(types.DefaultFlags)
	}
	if options.Arithmetic == nil {
		options.Arithmetic = arithmetic.Default()
	}
	if options.Functions == nil {
		options.Functions = functions.NewRegistry()
	}
	if options.Logger == nil {
		options.Logger = slog.Default()
	}

	return &Evaluator{
		opts:   options,
		logger: options.Logger,
		arith:  options.Arithmetic,
		funcs:  options.Functions,
	}
}

// Options returns a copy of the default options bundle.
func (e *Evaluator) Options() *types.Options {
	return e.opts.Options.Copy()
}

// Functions returns the function registry.
func (e *Evaluator) Functions() *functions.Registry {
	return e.funcs
}

// Execute runs script against jc, binding args to the script parameters.
//
// A script whose body is a single lambda is that lambda: it is called with
// args. jc may be nil when the script reads no context variables.
func (e *Evaluator) Execute(ctx context.Context, script *types.Script, jc Context, args ...interface{}) (interface{}, error) {
	if script == nil || script.AST() == nil {
		return nil, types.NewError(types.ErrInvalidScript, "invalid script: nil or not compiled", types.Position{})
	}

	in := &interp{
		e:      e,
		script: script,
		jc:     jc,
		opts:   e.startOptions(jc),
	}

	result, err := in.run(ctx, args)
	return in.finish(result, err)
}

// startOptions returns the bundle a top-level evaluation starts with: a copy
// of the engine defaults, or the bundle of an OptionsProvider context, used
// as is when it is shared.
func (e *Evaluator) startOptions(jc Context) *types.Options {
	opts := e.opts.Options.Copy()
	if p, ok := jc.(OptionsProvider); ok {
		if o := p.EngineOptions(); o != nil {
			if o.SharedInstance() {
				opts = o
			} else {
				opts = o.Copy()
			}
		}
	}
	return opts
}
