package evaluator

import (
	"context"
	"reflect"
	"strings"

	"github.com/sandrolain/gojexl/pkg/functions"
	"github.com/sandrolain/gojexl/pkg/introspect"
	"github.com/sandrolain/gojexl/pkg/types"
)

// contextMethods are the methods of the context types themselves; scripts
// cannot call them as functions.
var contextMethods = map[string]bool{
	"Get":           true,
	"Set":           true,
	"Has":           true,
	"Keys":          true,
	"Object":        true,
	"EngineOptions": true,
}

// evalCall resolves the callee of f(args). A name resolves to a local, a
// context variable, a context method and a registered function, in that
// order.
func (in *interp) evalCall(ctx context.Context, node *types.ASTNode, f *frame) (interface{}, error) {
	args, err := in.evalArgs(ctx, node.Arguments, f)
	if err != nil {
		return nil, err
	}

	callee := node.LHS
	if callee.Type != types.NodeIdentifier || callee.IsLocal() {
		fn, err := in.eval(ctx, callee, f)
		if err != nil {
			return nil, err
		}
		return in.callValue(ctx, node, fn, args)
	}

	name := callee.StrValue
	if fn, ok := in.lookup(name); ok && fn != nil {
		return in.callValue(ctx, node, fn, args)
	}
	if m, ok := in.contextMethod(name); ok {
		return in.invokeFunc(ctx, node, m, args)
	}
	if fn, ok := in.e.funcs.Lookup(name); ok {
		return in.invokeFunc(ctx, node, fn, args)
	}
	return nil, types.Errorf(types.ErrUndefinedFunction, callee.Position, "undefined function '%s'", name).WithName(name)
}

// evalNSCall calls ns:name(args): a registered namespace first, then a
// context variable named ns.
func (in *interp) evalNSCall(ctx context.Context, node *types.ASTNode, f *frame) (interface{}, error) {
	args, err := in.evalArgs(ctx, node.Arguments, f)
	if err != nil {
		return nil, err
	}
	ns := node.StrValue
	name, _ := node.Value.(string)

	fn, err := in.e.funcs.NamespaceFunc(ns, name)
	if err == nil {
		return in.callValue(ctx, node, fn, args)
	}
	if obj, ok := in.lookup(ns); ok && obj != nil {
		if holdsEntries(obj) {
			if v, err := introspect.Get(obj, name); err == nil && isCallable(v) {
				return in.callValue(ctx, node, v, args)
			}
		}
		if m, ok := introspect.Method(obj, name); ok {
			return in.invokeFunc(ctx, node, m, args)
		}
	}
	return nil, located(err, node)
}

// evalNew evaluates new(type, args...). type is the name of a registered
// constructor or a callable.
func (in *interp) evalNew(ctx context.Context, node *types.ASTNode, f *frame) (interface{}, error) {
	args, err := in.evalArgs(ctx, node.Arguments, f)
	if err != nil {
		return nil, err
	}
	if len(args) == 0 {
		return nil, types.Errorf(types.ErrUndefinedConstructor, node.Position, "new requires a type")
	}
	typ, rest := args[0], args[1:]
	if name, ok := typ.(string); ok {
		ctor, ok := in.e.funcs.Constructor(name)
		if !ok {
			return nil, types.Errorf(types.ErrUndefinedConstructor, node.Position, "undefined constructor '%s'", name).WithName(name)
		}
		return in.invokeFunc(ctx, node, ctor, rest)
	}
	if isCallable(typ) {
		return in.callValue(ctx, node, typ, rest)
	}
	return nil, types.Errorf(types.ErrUndefinedConstructor, node.Position, "cannot construct %T", typ)
}

// contextMethod returns the method name of the context, if any.
func (in *interp) contextMethod(name string) (reflect.Value, bool) {
	if in.jc == nil || contextMethods[name] || contextMethods[exported(name)] {
		return reflect.Value{}, false
	}
	return introspect.Method(in.jc, name)
}

// callValue calls a closure or a host callable.
func (in *interp) callValue(ctx context.Context, node *types.ASTNode, fn interface{}, args []interface{}) (interface{}, error) {
	if c, ok := fn.(*Closure); ok {
		if err := in.checkCancel(ctx, node); err != nil {
			return nil, err
		}
		v, err := c.invoke(ctx, in, in.jc, args)
		return v, located(err, node)
	}
	if functions.IsCallable(fn) {
		return in.invokeFunc(ctx, node, fn, args)
	}
	return nil, types.Errorf(types.ErrInvokeNonFunction, node.Position, "%T is not a function", fn)
}

// invokeFunc calls a host callable. Errors that are not evaluation errors
// are wrapped.
func (in *interp) invokeFunc(ctx context.Context, node *types.ASTNode, fn interface{}, args []interface{}) (interface{}, error) {
	if err := in.checkCancel(ctx, node); err != nil {
		return nil, err
	}
	if in.depth >= in.e.opts.MaxDepth {
		return nil, types.Errorf(types.ErrStackOverflow, node.Position, "maximum call depth %d exceeded", in.e.opts.MaxDepth)
	}
	v, err := functions.Invoke(ctx, in, fn, args)
	if err != nil {
		if _, ok := types.AsError(err); !ok {
			err = types.Errorf(types.ErrInvocation, node.Position, "call to %s failed", callName(node)).WithName(callName(node)).WithCause(err)
		}
		return nil, located(err, node)
	}
	return v, nil
}

// Call implements functions.Caller so host functions can call back into
// closures.
func (in *interp) Call(ctx context.Context, fn interface{}, args ...interface{}) (interface{}, error) {
	if c, ok := fn.(*Closure); ok {
		return c.invoke(ctx, in, in.jc, args)
	}
	if !functions.IsCallable(fn) {
		return nil, types.Errorf(types.ErrInvokeNonFunction, types.Position{}, "%T is not a function", fn)
	}
	return functions.Invoke(ctx, in, fn, args)
}

func callName(node *types.ASTNode) string {
	switch node.Type {
	case types.NodeCall:
		if node.LHS != nil && node.LHS.Type == types.NodeIdentifier {
			return node.LHS.StrValue
		}
	case types.NodeNSCall:
		name, _ := node.Value.(string)
		return node.StrValue + ":" + name
	case types.NodeNew:
		return "new"
	}
	if node.StrValue != "" {
		return node.StrValue
	}
	return string(node.Type)
}

func exported(name string) string {
	if name == "" {
		return name
	}
	return strings.ToUpper(name[:1]) + name[1:]
}
