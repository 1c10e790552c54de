package functions

import (
	"context"

	"github.com/sandrolain/gojexl/pkg/arithmetic"
	"github.com/sandrolain/gojexl/pkg/types"
)

// builtinConstructors are the types new() knows without registration.
var builtinConstructors = map[string]interface{}{
	"string": Func(newString),
	"int":    Func(newInt),
	"float":  Func(newFloat),
	"bool":   Func(newBool),
	"list":   Func(newList),
	"map":    Func(newMap),
}

func newString(_ context.Context, args ...interface{}) (interface{}, error) {
	if len(args) == 0 {
		return "", nil
	}
	return arithmetic.ToString(args[0]), nil
}

func newInt(_ context.Context, args ...interface{}) (interface{}, error) {
	if len(args) == 0 {
		return int64(0), nil
	}
	n, ok := arithmetic.ToInt64(args[0])
	if !ok {
		return nil, conversion(args[0], "int")
	}
	return n, nil
}

func newFloat(_ context.Context, args ...interface{}) (interface{}, error) {
	if len(args) == 0 {
		return 0.0, nil
	}
	f, ok := arithmetic.ToFloat64(args[0])
	if !ok {
		return nil, conversion(args[0], "float")
	}
	return f, nil
}

func newBool(_ context.Context, args ...interface{}) (interface{}, error) {
	if len(args) == 0 {
		return false, nil
	}
	return arithmetic.ToBoolean(args[0]), nil
}

func newList(_ context.Context, args ...interface{}) (interface{}, error) {
	return append([]interface{}{}, args...), nil
}

// newMap builds a map from alternating keys and values.
func newMap(_ context.Context, args ...interface{}) (interface{}, error) {
	if len(args)%2 != 0 {
		return nil, types.Errorf(types.ErrArgumentMismatch, types.Position{}, "map expects key/value pairs, got %d arguments", len(args))
	}
	m := make(map[string]interface{}, len(args)/2)
	for i := 0; i < len(args); i += 2 {
		m[arithmetic.ToString(args[i])] = args[i+1]
	}
	return m, nil
}

func conversion(v interface{}, typeName string) error {
	return types.Errorf(types.ErrArgumentMismatch, types.Position{}, "cannot convert %v to %s", v, typeName).WithName(typeName)
}
