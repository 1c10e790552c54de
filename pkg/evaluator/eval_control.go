package evaluator

import (
	"context"
	"errors"

	"github.com/sandrolain/gojexl/pkg/arithmetic"
	"github.com/sandrolain/gojexl/pkg/introspect"
	"github.com/sandrolain/gojexl/pkg/types"
)

// evalBlock runs the statements in order; the value of a block is the value
// of its last statement.
func (in *interp) evalBlock(ctx context.Context, node *types.ASTNode, f *frame) (interface{}, error) {
	var result interface{}
	for _, stmt := range node.Expressions {
		if err := in.checkCancel(ctx, stmt); err != nil {
			return nil, err
		}
		v, err := in.eval(ctx, stmt, f)
		if err != nil {
			return nil, err
		}
		if stmt.Type != types.NodePragma {
			result = v
		}
	}
	return result, nil
}

func (in *interp) evalVar(ctx context.Context, node *types.ASTNode, f *frame) (interface{}, error) {
	if node.Redeclared && in.opts.Lexical() {
		return nil, types.Errorf(types.ErrRedefinedVariable, node.Position, "variable '%s' is already declared", node.StrValue).WithName(node.StrValue)
	}
	v, err := in.eval(ctx, node.RHS, f)
	if err != nil {
		return nil, err
	}
	f.slots[node.Symbol] = v
	return v, nil
}

func (in *interp) evalIf(ctx context.Context, node *types.ASTNode, f *frame) (interface{}, error) {
	cond, err := in.eval(ctx, node.Condition, f)
	if err != nil {
		return nil, err
	}
	if arithmetic.ToBoolean(cond) {
		return in.eval(ctx, node.Body, f)
	}
	return in.eval(ctx, node.Else, f)
}

func (in *interp) evalWhile(ctx context.Context, node *types.ASTNode, f *frame) (interface{}, error) {
	for {
		if err := in.checkCancel(ctx, node); err != nil {
			return nil, err
		}
		cond, err := in.eval(ctx, node.Condition, f)
		if err != nil {
			return nil, err
		}
		if !arithmetic.ToBoolean(cond) {
			return nil, nil
		}
		if stop, err := in.loopBody(ctx, node.Body, f); stop || err != nil {
			return nil, err
		}
	}
}

func (in *interp) evalDoWhile(ctx context.Context, node *types.ASTNode, f *frame) (interface{}, error) {
	for {
		if err := in.checkCancel(ctx, node); err != nil {
			return nil, err
		}
		if stop, err := in.loopBody(ctx, node.Body, f); stop || err != nil {
			return nil, err
		}
		cond, err := in.eval(ctx, node.Condition, f)
		if err != nil {
			return nil, err
		}
		if !arithmetic.ToBoolean(cond) {
			return nil, nil
		}
	}
}

// evalForEach iterates the values of an iterable; iterating null does
// nothing.
func (in *interp) evalForEach(ctx context.Context, node *types.ASTNode, f *frame) (interface{}, error) {
	items, err := in.eval(ctx, node.RHS, f)
	if err != nil || items == nil {
		return nil, err
	}
	seq, ok := introspect.Values(items)
	if !ok {
		return nil, types.Errorf(types.ErrNotIterable, node.RHS.Position, "%T is not iterable", items)
	}

	for item := range seq {
		if err := in.checkCancel(ctx, node); err != nil {
			return nil, err
		}
		if err := in.bindLoopVar(node.LHS, item, f); err != nil {
			return nil, err
		}
		if stop, err := in.loopBody(ctx, node.Body, f); stop || err != nil {
			return nil, err
		}
	}
	return nil, nil
}

func (in *interp) bindLoopVar(target *types.ASTNode, item interface{}, f *frame) error {
	switch {
	case target.Type == types.NodeVar:
		f.slots[target.Symbol] = item
	case target.IsLocal():
		f.setLocal(target, item)
	default:
		return located(in.setContext(target.StrValue, item), target)
	}
	return nil
}

// loopBody runs one iteration. stop is true when the body breaks.
func (in *interp) loopBody(ctx context.Context, body *types.ASTNode, f *frame) (stop bool, err error) {
	_, err = in.eval(ctx, body, f)
	switch {
	case err == nil, errors.Is(err, errContinue):
		return false, nil
	case errors.Is(err, errBreak):
		return true, nil
	}
	return true, err
}
