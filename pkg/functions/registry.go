// Package functions provides the registry of host functions, namespaces and
// constructors that scripts can call.
//
// A function is either a Func, an AdvancedFunc or any Go func value; the
// latter is invoked through reflection with its arguments converted to the
// parameter types.
//
// # Example
//
//	reg := functions.NewRegistry()
//	reg.Register("greet", func(name string) string { return "Hello, " + name + "!" })
//	reg.RegisterNamespace("math", map[string]interface{}{
//	    "abs": func(x float64) float64 { return math.Abs(x) },
//	})
//	// greet('World'), math:abs(-1)
package functions

import (
	"context"
	"fmt"
	"maps"
	"reflect"
	"sync"

	"github.com/sandrolain/gojexl/pkg/introspect"
	"github.com/sandrolain/gojexl/pkg/types"
)

// Func is the signature for host functions that take the evaluated
// arguments as they are.
type Func func(ctx context.Context, args ...interface{}) (interface{}, error)

// Caller can invoke a script closure that was passed as an argument.
type Caller interface {
	// Call invokes fn, a closure or any callable the evaluator recognizes,
	// with the supplied args.
	Call(ctx context.Context, fn interface{}, args ...interface{}) (interface{}, error)
}

// AdvancedFunc is like Func but also receives a Caller so the
// implementation can call back into closures passed as arguments.
type AdvancedFunc func(ctx context.Context, caller Caller, args ...interface{}) (interface{}, error)

// Registry holds named functions, namespaces and constructors.
//
// Safe for concurrent use by multiple goroutines.
type Registry struct {
	mu           sync.RWMutex
	funcs        map[string]interface{}
	namespaces   map[string]interface{}
	constructors map[string]interface{}
}

// NewRegistry creates a registry holding the built-in constructors.
func NewRegistry() *Registry {
	r := &Registry{
		funcs:        make(map[string]interface{}),
		namespaces:   make(map[string]interface{}),
		constructors: make(map[string]interface{}),
	}
	for name, fn := range builtinConstructors {
		r.constructors[name] = fn
	}
	return r
}

// Register adds the function name. fn must be a Func, an AdvancedFunc or
// a Go func.
func (r *Registry) Register(name string, fn interface{}) error {
	if err := checkCallable(name, fn); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.funcs[name] = fn
	return nil
}

// RegisterNamespace makes the functions of obj callable as ns:fn(...). obj
// is a map of callables or a Go value whose methods are the functions.
func (r *Registry) RegisterNamespace(ns string, obj interface{}) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.namespaces[ns] = obj
}

// RegisterConstructor makes fn callable as new('typeName', args...).
func (r *Registry) RegisterConstructor(typeName string, fn interface{}) error {
	if err := checkCallable(typeName, fn); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.constructors[typeName] = fn
	return nil
}

// Lookup returns the function registered under name.
func (r *Registry) Lookup(name string) (interface{}, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	fn, ok := r.funcs[name]
	return fn, ok
}

// Namespace returns the object registered under ns.
func (r *Registry) Namespace(ns string) (interface{}, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	obj, ok := r.namespaces[ns]
	return obj, ok
}

// NamespaceFunc returns the function name of namespace ns: a callable map
// entry or a method of the namespace object.
func (r *Registry) NamespaceFunc(ns, name string) (interface{}, error) {
	obj, ok := r.Namespace(ns)
	if !ok {
		return nil, types.Errorf(types.ErrUndefinedFunction, types.Position{}, "undefined namespace '%s'", ns).WithName(ns)
	}
	if m, ok := obj.(map[string]interface{}); ok {
		if fn, ok := m[name]; ok && IsCallable(fn) {
			return fn, nil
		}
	} else if m, ok := introspect.Method(obj, name); ok {
		return m, nil
	}
	return nil, types.Errorf(types.ErrUndefinedFunction, types.Position{}, "undefined function '%s:%s'", ns, name).WithName(ns + ":" + name)
}

// Constructor returns the constructor registered under typeName.
func (r *Registry) Constructor(typeName string) (interface{}, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	fn, ok := r.constructors[typeName]
	return fn, ok
}

// Names returns the registered function names, for hints.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.funcs))
	for name := range r.funcs {
		names = append(names, name)
	}
	return names
}

// Clone returns an independent copy of the registry.
func (r *Registry) Clone() *Registry {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return &Registry{
		funcs:        maps.Clone(r.funcs),
		namespaces:   maps.Clone(r.namespaces),
		constructors: maps.Clone(r.constructors),
	}
}

// IsCallable reports whether fn can be passed to Invoke.
func IsCallable(fn interface{}) bool {
	switch f := fn.(type) {
	case Func, AdvancedFunc, func(context.Context, ...interface{}) (interface{}, error):
		return true
	case reflect.Value:
		return f.Kind() == reflect.Func && !f.IsNil()
	}
	return introspect.IsFunc(fn)
}

// Invoke calls fn with args.
func Invoke(ctx context.Context, caller Caller, fn interface{}, args []interface{}) (interface{}, error) {
	switch f := fn.(type) {
	case Func:
		return f(ctx, args...)
	case func(context.Context, ...interface{}) (interface{}, error):
		return f(ctx, args...)
	case AdvancedFunc:
		return f(ctx, caller, args...)
	case reflect.Value:
		return introspect.Call(ctx, f, args)
	}
	if !introspect.IsFunc(fn) {
		return nil, types.Errorf(types.ErrInvokeNonFunction, types.Position{}, "%T is not a function", fn)
	}
	return introspect.Call(ctx, reflect.ValueOf(fn), args)
}

func checkCallable(name string, fn interface{}) error {
	if !IsCallable(fn) {
		return fmt.Errorf("functions: %s: %T is not a function", name, fn)
	}
	return nil
}
