package evaluator

import (
	"context"

	"github.com/sandrolain/gojexl/pkg/types"
)

// Closure is a lambda value. It captures the frame it was defined in, the
// script and context of that evaluation and the options in effect.
//
// Unless the options are a shared instance, the closure holds its own copy
// and each invocation runs with a further copy, so pragmas executed in one
// call do not leak into the next.
type Closure struct {
	lambda *types.ASTNode
	frame  *frame
	script *types.Script
	jc     Context
	opts   *types.Options
	shared bool
	e      *Evaluator
}

func (in *interp) newClosure(lambda *types.ASTNode, f *frame) *Closure {
	c := &Closure{
		lambda: lambda,
		frame:  f,
		script: in.script,
		jc:     in.jc,
		e:      in.e,
	}
	if in.opts.SharedInstance() {
		c.opts, c.shared = in.opts, true
	} else {
		c.opts = in.opts.Copy()
	}
	return c
}

// Script returns the script the closure was defined in.
func (c *Closure) Script() *types.Script {
	return c.script
}

// Name returns the function name, empty for an anonymous lambda.
func (c *Closure) Name() string {
	return c.lambda.StrValue
}

// Parameters returns the parameter names.
func (c *Closure) Parameters() []string {
	return c.lambda.Params
}

// Options returns the options bundle the closure runs with.
func (c *Closure) Options() *types.Options {
	return c.opts
}

// Shared reports whether the closure shares its options with the evaluation
// that created it.
func (c *Closure) Shared() bool {
	return c.shared
}

// Call invokes the closure with the context it was created with.
func (c *Closure) Call(ctx context.Context, args ...interface{}) (interface{}, error) {
	return c.Execute(ctx, nil, args...)
}

// Execute invokes the closure against jc, or against the context it was
// created with when jc is nil.
func (c *Closure) Execute(ctx context.Context, jc Context, args ...interface{}) (interface{}, error) {
	if jc == nil {
		jc = c.jc
	}
	in := &interp{e: c.e, script: c.script, jc: jc, opts: c.opts}
	result, err := c.invoke(ctx, in, jc, args)
	return in.finish(result, err)
}

// invoke runs the body in a new frame whose parent is the captured frame.
func (c *Closure) invoke(ctx context.Context, caller *interp, jc Context, args []interface{}) (interface{}, error) {
	if caller.depth >= c.e.opts.MaxDepth {
		return nil, types.Errorf(types.ErrStackOverflow, c.lambda.Position, "maximum call depth %d exceeded", c.e.opts.MaxDepth)
	}
	opts := c.opts
	if !c.shared {
		opts = c.opts.Copy()
	}
	in := &interp{
		e:      c.e,
		script: c.script,
		jc:     jc,
		opts:   opts,
		depth:  caller.depth + 1,
	}
	f := newFrame(c.lambda.Locals, c.frame, c.lambda.Params, args)
	return unwrapReturn(in.eval(ctx, c.lambda.Body, f))
}
