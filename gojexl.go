// Package gojexl provides an embeddable expression and script language for Go.
//
// Scripts are small programs over host data: property navigation, operators,
// local variables, closures, loops and calls to host functions. Free
// variables are read from, and assigned into, a Context supplied by the host.
//
// # Quick Start
//
//	// One-off evaluation
//	result, err := gojexl.Eval(ctx, "user.name ?: 'anonymous'", map[string]interface{}{
//	    "user": map[string]interface{}{"name": "Ada"},
//	})
//
//	// Build an engine, create scripts once and execute them many times
//	engine, err := gojexl.New(
//	    gojexl.WithSafe(true),
//	    gojexl.WithFunction("greet", func(s string) string { return "Hello, " + s }),
//	)
//	script, err := engine.CreateScript("greet(name)")
//	result1, _ := engine.Execute(ctx, script, evaluator.MapContext{"name": "Ada"})
//	result2, _ := engine.Execute(ctx, script, evaluator.MapContext{"name": "Bob"})
//
// # Options
//
// Evaluation is governed by a bundle of flags (strict, safe, silent, lexical,
// lexicalShade, cancellable, sharedInstance, antish). An engine holds the
// defaults; a context implementing evaluator.OptionsProvider supplies its
// own bundle, and scripts adjust theirs with #pragma directives.
//
// # More Information
//
//   - Parser: github.com/sandrolain/gojexl/pkg/parser
//   - Evaluator: github.com/sandrolain/gojexl/pkg/evaluator
//   - Operators: github.com/sandrolain/gojexl/pkg/arithmetic
//   - Functions: github.com/sandrolain/gojexl/pkg/functions
//   - Types: github.com/sandrolain/gojexl/pkg/types
package gojexl

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/sandrolain/gojexl/pkg/arithmetic"
	"github.com/sandrolain/gojexl/pkg/cache"
	"github.com/sandrolain/gojexl/pkg/evaluator"
	"github.com/sandrolain/gojexl/pkg/functions"
	"github.com/sandrolain/gojexl/pkg/parser"
	"github.com/sandrolain/gojexl/pkg/types"
)

// Version returns the current version of GoJEXL.
func Version() string {
	return "v0.1.0-dev"
}

// Engine creates and executes scripts with a fixed configuration: default
// options, operators, host functions and a cache of compiled scripts.
//
// An Engine is safe for concurrent use.
type Engine struct {
	eval   *evaluator.Evaluator
	cache  *cache.Cache
	funcs  *functions.Registry
	logger *slog.Logger
}

type config struct {
	options   *types.Options
	arith     *arithmetic.Arithmetic
	funcs     *functions.Registry
	cacheSize int
	maxDepth  int
	debug     bool
	logger    *slog.Logger
	errs      []error
}

// Option configures an Engine.
type Option func(*config)

func flag(f types.Flag, on bool) Option {
	return func(c *config) {
		c.options.Set(f, on)
	}
}

// WithStrict makes undefined variables, null operands and unknown members
// errors.
func WithStrict(on bool) Option { return flag(types.FlagStrict, on) }

// WithSafe makes navigation through a null value yield null.
func WithSafe(on bool) Option { return flag(types.FlagSafe, on) }

// WithSilent logs evaluation errors instead of returning them.
func WithSilent(on bool) Option { return flag(types.FlagSilent, on) }

// WithLexical makes redeclaring a local in the same scope an error.
func WithLexical(on bool) Option { return flag(types.FlagLexical, on) }

// WithLexicalShade makes using a local before its declaration an error.
func WithLexicalShade(on bool) Option { return flag(types.FlagLexicalShade, on) }

// WithCancellable makes evaluation stop when its context is done.
func WithCancellable(on bool) Option { return flag(types.FlagCancellable, on) }

// WithSharedInstance makes closures share the options of their creator.
func WithSharedInstance(on bool) Option { return flag(types.FlagSharedInstance, on) }

// WithAntish enables dotted context variable names such as "a.b.c".
func WithAntish(on bool) Option { return flag(types.FlagAntish, on) }

// WithOptions applies "+flag -flag" toggles, as accepted by the
// jexl.options pragma.
func WithOptions(toggles ...string) Option {
	return func(c *config) {
		if err := c.options.SetFlags(toggles...); err != nil {
			c.errs = append(c.errs, err)
		}
	}
}

// WithArithmetic replaces the operator implementation.
func WithArithmetic(a *arithmetic.Arithmetic) Option {
	return func(c *config) {
		c.arith = a
	}
}

// WithCacheSize sets the number of compiled scripts kept by CreateScript.
func WithCacheSize(n int) Option {
	return func(c *config) {
		c.cacheSize = n
	}
}

// WithMaxDepth limits the nesting of calls.
func WithMaxDepth(depth int) Option {
	return func(c *config) {
		c.maxDepth = depth
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *config) {
		c.logger = logger
	}
}

// WithDebug enables debug tracing of every evaluated node.
func WithDebug(enabled bool) Option {
	return func(c *config) {
		c.debug = enabled
	}
}

// WithFunction registers a host function callable as name(args...).
func WithFunction(name string, fn interface{}) Option {
	return func(c *config) {
		if err := c.funcs.Register(name, fn); err != nil {
			c.errs = append(c.errs, err)
		}
	}
}

// WithNamespace registers obj as the namespace ns: its functions are
// callable as ns:fn(args...).
func WithNamespace(ns string, obj interface{}) Option {
	return func(c *config) {
		c.funcs.RegisterNamespace(ns, obj)
	}
}

// WithConstructor registers fn as the constructor new('typeName', args...).
func WithConstructor(typeName string, fn interface{}) Option {
	return func(c *config) {
		if err := c.funcs.RegisterConstructor(typeName, fn); err != nil {
			c.errs = append(c.errs, err)
		}
	}
}

// New creates an Engine. It fails when an option is invalid, such as an
// unknown flag name or a function that is not callable.
func New(opts ...Option) (*Engine, error) {
	c := &config{
		options:   types.NewOptions(types.DefaultFlags),
		funcs:     functions.NewRegistry(),
		cacheSize: cache.DefaultCapacity,
		maxDepth:  1000,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if err := errors.Join(c.errs...); err != nil {
		return nil, fmt.Errorf("gojexl: %w", err)
	}

	evalOpts := []evaluator.EvalOption{
		evaluator.WithOptions(types.NewOptions(c.options.Flags())),
		evaluator.WithFunctions(c.funcs),
		evaluator.WithMaxDepth(c.maxDepth),
		evaluator.WithDebug(c.debug),
		evaluator.WithLogger(c.logger),
	}
	if c.arith != nil {
		evalOpts = append(evalOpts, evaluator.WithArithmetic(c.arith))
	}

	return &Engine{
		eval:   evaluator.New(evalOpts...),
		cache:  cache.New(c.cacheSize),
		funcs:  c.funcs,
		logger: c.logger,
	}, nil
}

// Options returns a copy of the engine default options.
func (e *Engine) Options() *types.Options {
	return e.eval.Options()
}

// Functions returns the registry of host functions. Functions registered
// after New are visible to every later evaluation.
func (e *Engine) Functions() *functions.Registry {
	return e.funcs
}

// CreateScript parses src with the given parameter names. Scripts are
// cached: creating the same script again returns the same *types.Script.
func (e *Engine) CreateScript(src string, params ...string) (*types.Script, error) {
	return e.CreateNamedScript("", src, params...)
}

// CreateNamedScript is like CreateScript; name identifies the script in
// error messages.
func (e *Engine) CreateNamedScript(name, src string, params ...string) (*types.Script, error) {
	return e.cache.GetOrCompile(cache.Key(src, params, name), func() (*types.Script, error) {
		e.logger.Debug("compiling script", "name", name, "params", params)
		return parser.Parse(src, parser.WithParameters(params...), parser.WithInfo(name, 1, 1))
	})
}

// CacheStats returns the hit and miss counts of the script cache.
func (e *Engine) CacheStats() (hits, misses uint64) {
	return e.cache.Stats()
}

// ClearCache drops every cached script.
func (e *Engine) ClearCache() {
	e.cache.Clear()
}

// Execute runs script against jc with args bound to its parameters.
func (e *Engine) Execute(ctx context.Context, script *types.Script, jc evaluator.Context, args ...interface{}) (interface{}, error) {
	return e.eval.Execute(ctx, script, jc, args...)
}

// Eval creates src and runs it against vars. Assignments to context
// variables are visible in vars afterwards.
func (e *Engine) Eval(ctx context.Context, src string, vars map[string]interface{}) (interface{}, error) {
	script, err := e.CreateScript(src)
	if err != nil {
		return nil, err
	}
	return e.Execute(ctx, script, evaluator.NewMapContext(vars))
}

// Compile parses a script for repeated evaluation.
//
// Example:
//
//	script, err := gojexl.Compile("x * 2", parser.WithParameters("x"))
//	if err != nil {
//	    log.Fatal(err)
//	}
func Compile(src string, opts ...parser.CompileOption) (*types.Script, error) {
	return parser.Parse(src, opts...)
}

// MustCompile is like Compile but panics if the script cannot be parsed.
// It simplifies safe initialization of global variables.
func MustCompile(src string, opts ...parser.CompileOption) *types.Script {
	script, err := Compile(src, opts...)
	if err != nil {
		panic(fmt.Sprintf("gojexl: Compile(%q): %v", src, err))
	}
	return script
}

// Eval is a convenience function that parses and runs src against vars with
// the default options.
//
// For repeated evaluations, create an Engine and reuse its scripts.
func Eval(ctx context.Context, src string, vars map[string]interface{}) (interface{}, error) {
	script, err := Compile(src)
	if err != nil {
		return nil, err
	}
	return evaluator.New().Execute(ctx, script, evaluator.NewMapContext(vars))
}
