package introspect

import (
	"cmp"
	"fmt"
	"iter"
	"reflect"
	"slices"
)

// Values returns the elements a for loop visits in v: the elements of a
// sequence, the values of a map in key order, the characters of a string,
// 0 to n-1 for an integer n and the elements of an Iterable. ok is false
// when v cannot be iterated.
func Values(v interface{}) (seq iter.Seq[interface{}], ok bool) {
	switch s := v.(type) {
	case nil:
		return nil, false
	case []interface{}:
		return func(yield func(interface{}) bool) {
			for _, e := range s {
				if !yield(Normalize(e)) {
					return
				}
			}
		}, true
	case string:
		return func(yield func(interface{}) bool) {
			for _, r := range s {
				if !yield(string(r)) {
					return
				}
			}
		}, true
	case Iterable:
		return s.All(), true
	case iter.Seq[interface{}]:
		return s, true
	}

	rv := reflect.Indirect(reflect.ValueOf(v))
	switch rv.Kind() {
	case reflect.Slice, reflect.Array:
		return func(yield func(interface{}) bool) {
			for i := range rv.Len() {
				if !yield(Normalize(rv.Index(i).Interface())) {
					return
				}
			}
		}, true
	case reflect.Map:
		return func(yield func(interface{}) bool) {
			for _, k := range sortedKeys(rv) {
				if !yield(Normalize(rv.MapIndex(k).Interface())) {
					return
				}
			}
		}, true
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		n := rv.Int()
		return func(yield func(interface{}) bool) {
			for i := range n {
				if !yield(i) {
					return
				}
			}
		}, true
	}
	return nil, false
}

// sortedKeys returns the keys of a map: strings and numbers in natural
// order, anything else by printed form.
func sortedKeys(m reflect.Value) []reflect.Value {
	keys := m.MapKeys()
	slices.SortFunc(keys, compareKeys)
	return keys
}

func compareKeys(a, b reflect.Value) int {
	if a.Kind() == reflect.Interface {
		a = a.Elem()
	}
	if b.Kind() == reflect.Interface {
		b = b.Elem()
	}
	switch {
	case !a.IsValid() || !b.IsValid():
		return cmp.Compare(boolRank(a.IsValid()), boolRank(b.IsValid()))
	case a.Kind() == reflect.String && b.Kind() == reflect.String:
		return cmp.Compare(a.String(), b.String())
	case isNumber(a.Kind()) && isNumber(b.Kind()):
		return cmp.Compare(toFloat(a), toFloat(b))
	}
	return cmp.Compare(fmt.Sprint(a.Interface()), fmt.Sprint(b.Interface()))
}

func boolRank(b bool) int {
	if b {
		return 1
	}
	return 0
}

func toFloat(v reflect.Value) float64 {
	switch {
	case v.CanInt():
		return float64(v.Int())
	case v.CanUint():
		return float64(v.Uint())
	}
	return v.Float()
}
