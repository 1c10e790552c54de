package evaluator

import (
	"context"
	"fmt"
	"reflect"

	"github.com/sandrolain/gojexl/pkg/functions"
	"github.com/sandrolain/gojexl/pkg/introspect"
	"github.com/sandrolain/gojexl/pkg/types"
)

// navigate evaluates base followed by steps. It also returns the rendered
// chain, used to name the receiver in errors.
func (in *interp) navigate(ctx context.Context, base *types.ASTNode, steps []*types.ASTNode, f *frame) (interface{}, string, error) {
	var (
		v     interface{}
		err   error
		start int
		name  string
		root  = base.Type == types.NodeIdentifier
	)

	switch {
	case root && !base.IsLocal():
		if err := in.checkShade(base); err != nil {
			return nil, "", err
		}
		var defined bool
		v, start, name, defined = in.resolveRoot(base.StrValue, steps)
		if !defined {
			if in.opts.Strict() && !in.opts.Safe() {
				return nil, name, in.undefinedVariable(base, name)
			}
			return nil, name, nil
		}
	case root:
		name = base.StrValue
		if v, err = in.evalIdentifier(base, f); err != nil {
			return nil, name, err
		}
	default:
		name = base.String()
		if v, err = in.eval(ctx, base, f); err != nil {
			return nil, name, err
		}
	}

	for i := start; i < len(steps); i++ {
		step := steps[i]
		if v == nil {
			if step.Safe || in.opts.Safe() {
				return nil, name, nil
			}
			if root && i == start && in.opts.Strict() {
				return nil, name, types.Errorf(types.ErrNullVariable, base.Position, "variable '%s' is null", name).WithName(name)
			}
			if !in.opts.Strict() && step.Type == types.NodeProperty {
				return nil, name, nil
			}
			return nil, name, types.Errorf(types.ErrNullProperty, step.Position, "cannot access %s of null value %s", stepText(step), name).WithName(name)
		}
		if v, err = in.step(ctx, v, step, f); err != nil {
			return nil, name, located(err, step)
		}
		name += stepText(step)
	}
	return v, name, nil
}

func (in *interp) step(ctx context.Context, v interface{}, step *types.ASTNode, f *frame) (interface{}, error) {
	switch step.Type {
	case types.NodeProperty:
		return introspect.Get(v, step.StrValue)
	case types.NodeIndex:
		key, err := in.eval(ctx, step.LHS, f)
		if err != nil {
			return nil, err
		}
		return introspect.Index(v, key)
	case types.NodeMethod:
		return in.invokeMethod(ctx, v, step, f)
	}
	return nil, fmt.Errorf("unsupported path step: %s", step.Type)
}

// invokeMethod calls obj.name(args). The candidates are, in order, a
// function held by a map entry, a Go method of obj, a method of the context
// taking obj as first argument and a registered function taking obj as
// first argument.
func (in *interp) invokeMethod(ctx context.Context, obj interface{}, step *types.ASTNode, f *frame) (interface{}, error) {
	args, err := in.evalArgs(ctx, step.Arguments, f)
	if err != nil {
		return nil, err
	}
	name := step.StrValue

	if holdsEntries(obj) && introspect.Has(obj, name) {
		if fn, err := introspect.Get(obj, name); err == nil && isCallable(fn) {
			return in.callValue(ctx, step, fn, args)
		}
	}
	if m, ok := introspect.Method(obj, name); ok {
		return in.invokeFunc(ctx, step, m, args)
	}

	withObj := append([]interface{}{obj}, args...)
	if m, ok := in.contextMethod(name); ok {
		return in.invokeFunc(ctx, step, m, withObj)
	}
	if fn, ok := in.e.funcs.Lookup(name); ok {
		return in.invokeFunc(ctx, step, fn, withObj)
	}
	return nil, types.Errorf(types.ErrUndefinedMethod, step.Position, "undefined method '%s' of %T", name, obj).WithName(name)
}

func holdsEntries(obj interface{}) bool {
	if _, ok := obj.(introspect.PropertyGetter); ok {
		return true
	}
	return reflect.ValueOf(obj).Kind() == reflect.Map
}

func isCallable(fn interface{}) bool {
	if _, ok := fn.(*Closure); ok {
		return true
	}
	return functions.IsCallable(fn)
}

// stepText renders a step for error messages.
func stepText(step *types.ASTNode) string {
	switch step.Type {
	case types.NodeProperty:
		if step.Safe {
			return "?." + step.StrValue
		}
		return "." + step.StrValue
	case types.NodeIndex:
		if key := step.LHS; key != nil {
			switch key.Type {
			case types.NodeNumber:
				return fmt.Sprintf("[%v]", key.Value)
			case types.NodeString:
				return fmt.Sprintf("['%v']", key.Value)
			case types.NodeIdentifier:
				return "[" + key.StrValue + "]"
			}
		}
		return "[...]"
	case types.NodeMethod:
		return "." + step.StrValue + "()"
	}
	return ""
}
