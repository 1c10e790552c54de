package introspect

import (
	"context"
	"reflect"

	"github.com/sandrolain/gojexl/pkg/types"
)

var (
	errorType   = reflect.TypeFor[error]()
	contextType = reflect.TypeFor[context.Context]()
)

// Method returns the method name of obj, trying the name as written and
// with its first letter upper-cased.
func Method(obj interface{}, name string) (reflect.Value, bool) {
	if obj == nil {
		return reflect.Value{}, false
	}
	rv := reflect.ValueOf(obj)
	for _, c := range candidates(name) {
		if m := rv.MethodByName(c); m.IsValid() {
			return m, true
		}
	}
	return reflect.Value{}, false
}

// IsFunc reports whether v is a Go func value.
func IsFunc(v interface{}) bool {
	return v != nil && reflect.TypeOf(v).Kind() == reflect.Func
}

// Call invokes fn with args, converting each argument to the parameter
// type. A leading context.Context parameter receives ctx. A trailing error
// result becomes the returned error; several other results are returned as
// a list.
func Call(ctx context.Context, fn reflect.Value, args []interface{}) (interface{}, error) {
	ft := fn.Type()
	n := ft.NumIn()
	var in []reflect.Value
	first := 0
	if n > 0 && ft.In(0) == contextType {
		in = append(in, reflect.ValueOf(ctx))
		first = 1
	}
	want := n - first
	if ft.IsVariadic() {
		if len(args) < want-1 {
			return nil, arity(ft, len(args))
		}
	} else if len(args) != want {
		return nil, arity(ft, len(args))
	}
	for i, arg := range args {
		var t reflect.Type
		if ft.IsVariadic() && first+i >= n-1 {
			t = ft.In(n - 1).Elem()
		} else {
			t = ft.In(first + i)
		}
		v, err := Convert(arg, t)
		if err != nil {
			return nil, err
		}
		in = append(in, v)
	}
	return results(fn.Call(in))
}

func arity(ft reflect.Type, got int) error {
	want := ft.NumIn()
	if want > 0 && ft.In(0) == contextType {
		want--
	}
	if ft.IsVariadic() {
		return types.Errorf(types.ErrArgumentMismatch, types.Position{}, "expected at least %d arguments, got %d", want-1, got)
	}
	return types.Errorf(types.ErrArgumentMismatch, types.Position{}, "expected %d arguments, got %d", want, got)
}

// results maps the results of a reflective call to a value and an error.
func results(out []reflect.Value) (interface{}, error) {
	if len(out) > 0 && out[len(out)-1].Type() == errorType {
		last := out[len(out)-1]
		out = out[:len(out)-1]
		if !last.IsNil() {
			return nil, last.Interface().(error)
		}
	}
	switch len(out) {
	case 0:
		return nil, nil
	case 1:
		return Normalize(out[0].Interface()), nil
	}
	list := make([]interface{}, len(out))
	for i, v := range out {
		list[i] = Normalize(v.Interface())
	}
	return list, nil
}

// Convert returns v as a value of type t. Numbers convert between numeric
// kinds, lists convert element-wise to typed slices and null becomes the
// zero value.
func Convert(v interface{}, t reflect.Type) (reflect.Value, error) {
	if v == nil {
		return reflect.Zero(t), nil
	}
	rv := reflect.ValueOf(v)
	if rv.Type().AssignableTo(t) {
		return rv, nil
	}
	switch {
	case isNumber(rv.Kind()) && isNumber(t.Kind()):
		return rv.Convert(t), nil
	case rv.Kind() == reflect.String && t.Kind() == reflect.String:
		return rv.Convert(t), nil
	case rv.Kind() == reflect.Bool && t.Kind() == reflect.Bool:
		return rv.Convert(t), nil
	case t.Kind() == reflect.Pointer && rv.Type().AssignableTo(t.Elem()):
		p := reflect.New(t.Elem())
		p.Elem().Set(rv)
		return p, nil
	case rv.Kind() == reflect.Slice && t.Kind() == reflect.Slice:
		out := reflect.MakeSlice(t, rv.Len(), rv.Len())
		for i := range rv.Len() {
			e, err := Convert(rv.Index(i).Interface(), t.Elem())
			if err != nil {
				return reflect.Value{}, err
			}
			out.Index(i).Set(e)
		}
		return out, nil
	case rv.Kind() == reflect.Map && t.Kind() == reflect.Map:
		out := reflect.MakeMapWithSize(t, rv.Len())
		iter := rv.MapRange()
		for iter.Next() {
			k, err := Convert(iter.Key().Interface(), t.Key())
			if err != nil {
				return reflect.Value{}, err
			}
			e, err := Convert(iter.Value().Interface(), t.Elem())
			if err != nil {
				return reflect.Value{}, err
			}
			out.SetMapIndex(k, e)
		}
		return out, nil
	}
	return reflect.Value{}, types.Errorf(types.ErrArgumentMismatch, types.Position{}, "cannot use %T as %s", v, t)
}
