package evaluator

import (
	"slices"

	"github.com/sandrolain/gojexl/pkg/introspect"
	"github.com/sandrolain/gojexl/pkg/types"
)

// Context supplies the free variables of a script.
type Context interface {
	// Get returns the value of name; defined is false when the context
	// does not define it. A defined variable may hold nil.
	Get(name string) (value interface{}, defined bool)
	// Set assigns name.
	Set(name string, value interface{}) error
}

// KeyLister is implemented by contexts that can list their variable names.
// The names feed "did you mean" hints.
type KeyLister interface {
	Keys() []string
}

// OptionsProvider is implemented by contexts that carry the options bundle
// their evaluations start with.
type OptionsProvider interface {
	EngineOptions() *types.Options
}

// MapContext is a Context backed by a map. It is not synchronized.
type MapContext map[string]interface{}

// NewMapContext wraps vars, creating an empty map when vars is nil.
func NewMapContext(vars map[string]interface{}) MapContext {
	if vars == nil {
		vars = make(map[string]interface{})
	}
	return MapContext(vars)
}

// Get implements Context.
func (c MapContext) Get(name string) (interface{}, bool) {
	v, ok := c[name]
	return v, ok
}

// Set implements Context.
func (c MapContext) Set(name string, value interface{}) error {
	c[name] = value
	return nil
}

// Has reports whether name is defined.
func (c MapContext) Has(name string) bool {
	_, ok := c[name]
	return ok
}

// Keys implements KeyLister.
func (c MapContext) Keys() []string {
	keys := make([]string, 0, len(c))
	for k := range c {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

// OptionsContext is a MapContext that carries its own options bundle.
type OptionsContext struct {
	MapContext
	Options *types.Options
}

// NewOptionsContext creates a context holding vars and opts.
func NewOptionsContext(vars map[string]interface{}, opts *types.Options) *OptionsContext {
	return &OptionsContext{MapContext: NewMapContext(vars), Options: opts}
}

// EngineOptions implements OptionsProvider.
func (c *OptionsContext) EngineOptions() *types.Options {
	return c.Options
}

// ObjectContext exposes the members of a host value as variables: map keys,
// struct fields and getters, resolved through introspect.
type ObjectContext struct {
	obj interface{}
}

// NewObjectContext wraps obj.
func NewObjectContext(obj interface{}) *ObjectContext {
	return &ObjectContext{obj: obj}
}

// Object returns the wrapped value.
func (c *ObjectContext) Object() interface{} {
	return c.obj
}

// Get implements Context.
func (c *ObjectContext) Get(name string) (interface{}, bool) {
	if !introspect.Has(c.obj, name) {
		return nil, false
	}
	v, err := introspect.Get(c.obj, name)
	if err != nil {
		return nil, false
	}
	return v, true
}

// Set implements Context.
func (c *ObjectContext) Set(name string, value interface{}) error {
	return introspect.Set(c.obj, name, value)
}

// Has reports whether the object defines name.
func (c *ObjectContext) Has(name string) bool {
	return introspect.Has(c.obj, name)
}

// Keys implements KeyLister.
func (c *ObjectContext) Keys() []string {
	return introspect.Keys(c.obj)
}
