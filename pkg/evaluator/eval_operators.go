package evaluator

import (
	"context"
	"errors"

	"github.com/sandrolain/gojexl/pkg/arithmetic"
	"github.com/sandrolain/gojexl/pkg/types"
)

func (in *interp) evalUnary(ctx context.Context, node *types.ASTNode, f *frame) (interface{}, error) {
	v, err := in.eval(ctx, node.LHS, f)
	if err != nil {
		return nil, err
	}
	result, err := in.e.arith.Unary(node.Operator, in.opts.Strict(), v)
	return result, located(err, node)
}

func (in *interp) evalBinary(ctx context.Context, node *types.ASTNode, f *frame) (interface{}, error) {
	left, err := in.eval(ctx, node.LHS, f)
	if err != nil {
		return nil, err
	}
	right, err := in.eval(ctx, node.RHS, f)
	if err != nil {
		return nil, err
	}
	result, err := in.e.arith.Binary(node.Operator, in.opts.Strict(), left, right)
	return result, located(err, node)
}

// evalLogical short-circuits && and ||; the result is always a boolean.
func (in *interp) evalLogical(ctx context.Context, node *types.ASTNode, f *frame) (interface{}, error) {
	left, err := in.eval(ctx, node.LHS, f)
	if err != nil {
		return nil, err
	}
	l := arithmetic.ToBoolean(left)
	if node.Type == types.NodeAnd && !l {
		return false, nil
	}
	if node.Type == types.NodeOr && l {
		return true, nil
	}
	right, err := in.eval(ctx, node.RHS, f)
	if err != nil {
		return nil, err
	}
	return arithmetic.ToBoolean(right), nil
}

func (in *interp) evalTernary(ctx context.Context, node *types.ASTNode, f *frame) (interface{}, error) {
	cond, err := in.protect(ctx, node.Condition, f)
	if err != nil {
		return nil, err
	}
	if arithmetic.ToBoolean(cond) {
		return in.eval(ctx, node.LHS, f)
	}
	return in.eval(ctx, node.RHS, f)
}

func (in *interp) evalElvis(ctx context.Context, node *types.ASTNode, f *frame) (interface{}, error) {
	left, err := in.protect(ctx, node.LHS, f)
	if err != nil {
		return nil, err
	}
	if arithmetic.ToBoolean(left) {
		return left, nil
	}
	return in.eval(ctx, node.RHS, f)
}

func (in *interp) evalCoalesce(ctx context.Context, node *types.ASTNode, f *frame) (interface{}, error) {
	left, err := in.protect(ctx, node.LHS, f)
	if err != nil {
		return nil, err
	}
	if left != nil {
		return left, nil
	}
	return in.eval(ctx, node.RHS, f)
}

// protect evaluates the tested operand of a ternary, elvis or coalesce. A
// variable or member chain that fails to resolve tests as null.
func (in *interp) protect(ctx context.Context, node *types.ASTNode, f *frame) (interface{}, error) {
	v, err := in.eval(ctx, node, f)
	if err != nil && node.IsReference() && (errors.Is(err, types.ErrVariable) || errors.Is(err, types.ErrProperty)) {
		return nil, nil
	}
	return v, err
}
