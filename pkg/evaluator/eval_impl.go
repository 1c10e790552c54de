package evaluator

import (
	"context"
	"errors"
	"fmt"
	"math"
	"reflect"
	"strings"

	"github.com/sandrolain/gojexl/pkg/arithmetic"
	"github.com/sandrolain/gojexl/pkg/introspect"
	"github.com/sandrolain/gojexl/pkg/types"
)

// interp carries the state of one evaluation: the script being run, the
// context it reads, the options bundle in effect and the call depth. A
// closure invocation runs in an interp of its own.
type interp struct {
	e      *Evaluator
	script *types.Script
	jc     Context
	opts   *types.Options
	depth  int
}

// run evaluates the script body. A body made of a single lambda (pragmas
// aside) is called with args instead of being returned.
func (in *interp) run(ctx context.Context, args []interface{}) (interface{}, error) {
	for _, p := range in.script.Pragmas() {
		if err := in.pragma(p.Name, p.Value, p.Position); err != nil {
			return nil, err
		}
	}

	f := newFrame(in.script.Locals(), nil, in.script.Parameters(), args)
	root := in.script.AST()
	if lambda := loneLambda(root); lambda != nil {
		return in.newClosure(lambda, f).invoke(ctx, in, in.jc, args)
	}
	return unwrapReturn(in.eval(ctx, root, f))
}

// finish stamps the script name on err; in silent mode it logs the error
// and yields nil. Cancellation is never silenced.
func (in *interp) finish(result interface{}, err error) (interface{}, error) {
	if err == nil {
		return result, nil
	}
	if e, ok := types.AsError(err); ok {
		e.WithScript(in.script.Name())
	}
	if in.opts.Silent() && !errors.Is(err, types.ErrCancel) {
		in.e.logger.Warn("script evaluation failed", "script", in.script.Name(), "error", err)
		return nil, nil
	}
	return nil, err
}

func loneLambda(root *types.ASTNode) *types.ASTNode {
	if root == nil || root.Type != types.NodeBlock {
		return nil
	}
	var lambda *types.ASTNode
	for _, stmt := range root.Expressions {
		if stmt.Type == types.NodePragma {
			continue
		}
		if lambda != nil || stmt.Type != types.NodeLambda {
			return nil
		}
		lambda = stmt
	}
	return lambda
}

// eval evaluates node in frame f.
func (in *interp) eval(ctx context.Context, node *types.ASTNode, f *frame) (interface{}, error) {
	if node == nil {
		return nil, nil
	}

	if in.e.opts.Debug {
		in.e.logger.Debug("evaluating node",
			"type", node.Type,
			"name", node.StrValue,
			"position", node.Position.String(),
			"depth", in.depth)
	}

	switch node.Type {
	case types.NodeString, types.NodeNumber, types.NodeBoolean:
		return node.Value, nil
	case types.NodeNull:
		return nil, nil
	case types.NodeNaN:
		return math.NaN(), nil
	case types.NodeTemplate:
		return in.evalTemplate(ctx, node, f)
	case types.NodeArray:
		return in.evalArray(ctx, node, f)
	case types.NodeMap:
		return in.evalMap(ctx, node, f)
	case types.NodeIdentifier:
		return in.evalIdentifier(node, f)
	case types.NodePath:
		v, _, err := in.navigate(ctx, node.LHS, node.Steps, f)
		return v, err
	case types.NodeOptions:
		return in.opts.Map(), nil
	case types.NodeUnary:
		return in.evalUnary(ctx, node, f)
	case types.NodeBinary:
		return in.evalBinary(ctx, node, f)
	case types.NodeAnd, types.NodeOr:
		return in.evalLogical(ctx, node, f)
	case types.NodeTernary:
		return in.evalTernary(ctx, node, f)
	case types.NodeElvis:
		return in.evalElvis(ctx, node, f)
	case types.NodeCoalesce:
		return in.evalCoalesce(ctx, node, f)
	case types.NodeAssign:
		return in.evalAssign(ctx, node, f)
	case types.NodeBlock:
		return in.evalBlock(ctx, node, f)
	case types.NodeVar:
		return in.evalVar(ctx, node, f)
	case types.NodeIf:
		return in.evalIf(ctx, node, f)
	case types.NodeWhile:
		return in.evalWhile(ctx, node, f)
	case types.NodeDoWhile:
		return in.evalDoWhile(ctx, node, f)
	case types.NodeForEach:
		return in.evalForEach(ctx, node, f)
	case types.NodeReturn:
		v, err := in.eval(ctx, node.LHS, f)
		if err != nil {
			return nil, err
		}
		return nil, &returnSignal{value: v}
	case types.NodeBreak:
		return nil, errBreak
	case types.NodeContinue:
		return nil, errContinue
	case types.NodePragma:
		return nil, in.pragma(node.StrValue, node.Value, node.Position)
	case types.NodeLambda:
		return in.newClosure(node, f), nil
	case types.NodeCall:
		return in.evalCall(ctx, node, f)
	case types.NodeNSCall:
		return in.evalNSCall(ctx, node, f)
	case types.NodeNew:
		return in.evalNew(ctx, node, f)
	}
	return nil, fmt.Errorf("unsupported node type: %s", node.Type)
}

func (in *interp) evalTemplate(ctx context.Context, node *types.ASTNode, f *frame) (interface{}, error) {
	var sb strings.Builder
	for _, part := range node.Arguments {
		v, err := in.eval(ctx, part, f)
		if err != nil {
			return nil, err
		}
		if v != nil {
			sb.WriteString(arithmetic.ToString(v))
		}
	}
	return sb.String(), nil
}

func (in *interp) evalArray(ctx context.Context, node *types.ASTNode, f *frame) (interface{}, error) {
	return in.evalArgs(ctx, node.Arguments, f)
}

// evalMap builds a map literal. Keys are expressions; a map whose keys are
// all strings is a map[string]interface{}, any other key makes it a
// map[interface{}]interface{}.
func (in *interp) evalMap(ctx context.Context, node *types.ASTNode, f *frame) (interface{}, error) {
	keys := make([]interface{}, len(node.Arguments))
	values := make([]interface{}, len(node.Arguments))
	stringKeys := true
	for i, entry := range node.Arguments {
		k, err := in.eval(ctx, entry.LHS, f)
		if err != nil {
			return nil, err
		}
		if k != nil && !reflect.TypeOf(k).Comparable() {
			return nil, types.Errorf(types.ErrInvalidKey, entry.Position, "%T cannot be a map key", k)
		}
		if _, ok := k.(string); !ok {
			stringKeys = false
		}
		v, err := in.eval(ctx, entry.RHS, f)
		if err != nil {
			return nil, err
		}
		keys[i], values[i] = k, v
	}

	if stringKeys {
		m := make(map[string]interface{}, len(keys))
		for i, k := range keys {
			m[k.(string)] = values[i]
		}
		return m, nil
	}
	m := make(map[interface{}]interface{}, len(keys))
	for i, k := range keys {
		m[k] = values[i]
	}
	return m, nil
}

func (in *interp) evalArgs(ctx context.Context, nodes []*types.ASTNode, f *frame) ([]interface{}, error) {
	args := make([]interface{}, 0, len(nodes))
	for _, n := range nodes {
		v, err := in.eval(ctx, n, f)
		if err != nil {
			return nil, err
		}
		args = append(args, v)
	}
	return args, nil
}

// evalIdentifier reads a local slot or a context variable.
func (in *interp) evalIdentifier(node *types.ASTNode, f *frame) (interface{}, error) {
	if err := in.checkShade(node); err != nil {
		return nil, err
	}
	if node.IsLocal() {
		return f.local(node), nil
	}
	v, ok := in.lookup(node.StrValue)
	if !ok {
		if in.opts.Strict() {
			return nil, in.undefinedVariable(node, node.StrValue)
		}
		return nil, nil
	}
	return v, nil
}

// lookup reads a context variable.
func (in *interp) lookup(name string) (interface{}, bool) {
	if in.jc == nil {
		return nil, false
	}
	v, ok := in.jc.Get(name)
	return introspect.Normalize(v), ok
}

func (in *interp) checkShade(node *types.ASTNode) error {
	if node.Shaded && in.opts.LexicalShade() {
		return types.Errorf(types.ErrShadedVariable, node.Position, "variable '%s' is used before its declaration", node.StrValue).WithName(node.StrValue)
	}
	return nil
}

func (in *interp) checkCancel(ctx context.Context, node *types.ASTNode) error {
	if !in.opts.Cancellable() {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return types.NewError(types.ErrCancelled, "execution cancelled", node.Position).WithCause(err)
	}
	return nil
}

func (in *interp) pragma(name string, value interface{}, pos types.Position) error {
	ok, err := in.opts.ApplyPragma(name, value)
	if err != nil {
		return types.Errorf(types.ErrInvalidPragma, pos, "invalid pragma '%s'", name).WithName(name).WithCause(err)
	}
	if !ok {
		in.e.logger.Debug("ignoring pragma", "pragma", name, "value", value)
	}
	return nil
}

// located gives err the position of node unless it already has one.
func located(err error, node *types.ASTNode) error {
	if err == nil {
		return nil
	}
	if e, ok := types.AsError(err); ok && e.Position.Line == 0 {
		e.Position = node.Position
	}
	return err
}
