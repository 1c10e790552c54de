package evaluator

import (
	"context"
	"strings"

	"github.com/sandrolain/gojexl/pkg/introspect"
	"github.com/sandrolain/gojexl/pkg/types"
)

// reference is an assignable location.
type reference struct {
	get func() (interface{}, error)
	set func(interface{}) error
}

// evalAssign evaluates target = value and the compound forms target op=
// value. The value of an assignment is the assigned value; an operator that
// updates the target in place yields the target.
func (in *interp) evalAssign(ctx context.Context, node *types.ASTNode, f *frame) (interface{}, error) {
	ref, err := in.reference(ctx, node.LHS, f)
	if err != nil {
		return nil, err
	}
	value, err := in.eval(ctx, node.RHS, f)
	if err != nil {
		return nil, err
	}

	if node.Operator != types.OpAssign {
		current, err := ref.get()
		if err != nil {
			return nil, located(err, node.LHS)
		}
		result, err := in.e.arith.EvaluateSelf(node.Operator, in.opts.Strict(), current, value)
		if err != nil {
			return nil, located(err, node)
		}
		if types.IsAssigned(result) {
			return current, nil
		}
		value = result
	}

	if err := ref.set(value); err != nil {
		return nil, located(err, node)
	}
	return value, nil
}

func (in *interp) reference(ctx context.Context, target *types.ASTNode, f *frame) (*reference, error) {
	switch target.Type {
	case types.NodeIdentifier:
		if err := in.checkShade(target); err != nil {
			return nil, err
		}
		if target.IsLocal() {
			return &reference{
				get: func() (interface{}, error) { return f.local(target), nil },
				set: func(v interface{}) error { f.setLocal(target, v); return nil },
			}, nil
		}
		return &reference{
			get: func() (interface{}, error) { return in.evalIdentifier(target, f) },
			set: func(v interface{}) error { return in.setContext(target.StrValue, v) },
		}, nil
	case types.NodePath:
		return in.memberReference(ctx, target, f)
	}
	return nil, types.Errorf(types.ErrInvalidTarget, target.Position, "cannot assign to %s", target.Type)
}

// memberReference resolves the receiver and key of a path target.
func (in *interp) memberReference(ctx context.Context, target *types.ASTNode, f *frame) (*reference, error) {
	base, steps := target.LHS, target.Steps
	last := steps[len(steps)-1]
	if base.Type == types.NodeIdentifier && !base.IsLocal() && in.opts.Antish() && antishRun(steps) == len(steps) {
		return in.antishReference(ctx, target, f)
	}

	receiver, name, err := in.navigate(ctx, base, steps[:len(steps)-1], f)
	if err != nil {
		return nil, err
	}
	var key interface{}
	switch last.Type {
	case types.NodeProperty:
		key = last.StrValue
	case types.NodeIndex:
		if key, err = in.eval(ctx, last.LHS, f); err != nil {
			return nil, err
		}
	default:
		return nil, types.Errorf(types.ErrInvalidTarget, last.Position, "cannot assign to a method call")
	}
	if receiver == nil {
		if len(steps) == 1 && base.Type == types.NodeIdentifier {
			return nil, types.Errorf(types.ErrNullVariable, base.Position, "variable '%s' is null", name).WithName(name)
		}
		return nil, types.Errorf(types.ErrNullProperty, last.Position, "cannot assign %s of null value %s", stepText(last), name).WithName(name)
	}
	return &reference{
		get: func() (interface{}, error) { return introspect.Index(receiver, key) },
		set: func(v interface{}) error { return introspect.Set(receiver, key, v) },
	}, nil
}

// antishReference handles a.b.c = v on a context variable: a defined
// dotted name a.b.c is assigned as is, else the member c of the resolved
// a.b is set, else a.b.c is created in the context.
func (in *interp) antishReference(ctx context.Context, target *types.ASTNode, f *frame) (*reference, error) {
	base, steps := target.LHS, target.Steps
	segments := []string{base.StrValue}
	for _, s := range steps {
		segments = append(segments, s.StrValue)
	}
	full := strings.Join(segments, ".")
	flat := &reference{
		get: func() (interface{}, error) {
			v, _ := in.lookup(full)
			return v, nil
		},
		set: func(v interface{}) error { return in.setContext(full, v) },
	}
	if _, ok := in.lookup(full); ok {
		return flat, nil
	}

	head := steps[:len(steps)-1]
	v, consumed, _, defined := in.resolveRoot(base.StrValue, head)
	if !defined {
		return flat, nil
	}
	receiver, name, err := in.navigateFrom(ctx, v, strings.Join(segments[:consumed+1], "."), head[consumed:], f)
	if err != nil {
		return nil, err
	}
	if receiver == nil {
		return nil, types.Errorf(types.ErrNullVariable, base.Position, "variable '%s' is null", name).WithName(name)
	}
	key := steps[len(steps)-1].StrValue
	return &reference{
		get: func() (interface{}, error) { return introspect.Get(receiver, key) },
		set: func(v interface{}) error { return introspect.Set(receiver, key, v) },
	}, nil
}

// navigateFrom applies plain property steps to an already resolved value.
func (in *interp) navigateFrom(ctx context.Context, v interface{}, name string, steps []*types.ASTNode, f *frame) (interface{}, string, error) {
	for _, step := range steps {
		if v == nil {
			return nil, name, nil
		}
		var err error
		if v, err = in.step(ctx, v, step, f); err != nil {
			return nil, name, located(err, step)
		}
		name += stepText(step)
	}
	return v, name, nil
}

func (in *interp) setContext(name string, value interface{}) error {
	if in.jc == nil {
		return types.Errorf(types.ErrUndefinedVariable, types.Position{}, "no context to assign variable '%s'", name).WithName(name)
	}
	if err := in.jc.Set(name, value); err != nil {
		if _, ok := types.AsError(err); ok {
			return err
		}
		return types.Errorf(types.ErrReadOnlyProperty, types.Position{}, "cannot assign variable '%s'", name).WithName(name).WithCause(err)
	}
	return nil
}
