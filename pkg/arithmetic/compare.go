package arithmetic

import (
	"cmp"
	"fmt"
	"math"
	"reflect"
	"sort"
)

// Equals reports whether l and r are equal. Numbers compare by value across
// integer and floating types; other values compare deeply.
func Equals(l, r interface{}) bool {
	if l == nil || r == nil {
		return l == nil && r == nil
	}
	l, _ = deref(l)
	r, _ = deref(r)
	if IsNumber(l) && IsNumber(r) {
		a, aok := exactInt(l)
		b, bok := exactInt(r)
		if aok && bok {
			return a == b
		}
		lf, _ := ToFloat64(l)
		rf, _ := ToFloat64(r)
		return lf == rf
	}
	switch lv := l.(type) {
	case string:
		rv, ok := r.(string)
		return ok && lv == rv
	case bool:
		rv, ok := r.(bool)
		return ok && lv == rv
	case []interface{}:
		rv, ok := r.([]interface{})
		if !ok || len(lv) != len(rv) {
			return false
		}
		for i := range lv {
			if !Equals(lv[i], rv[i]) {
				return false
			}
		}
		return true
	}
	return reflect.DeepEqual(l, r)
}

// exactInt returns v as an int64 when it is an integer that fits.
func exactInt(v interface{}) (int64, bool) {
	w, _ := widenInt(v)
	i, ok := w.(int64)
	return i, ok
}

// typeRank orders values of different kinds: null < booleans < numbers <
// strings < sequences < maps < everything else.
func typeRank(v interface{}) int {
	switch v.(type) {
	case nil:
		return 0
	case bool:
		return 1
	case string:
		return 3
	case []interface{}:
		return 4
	case map[string]interface{}, map[interface{}]interface{}:
		return 5
	}
	if IsNumber(v) {
		return 2
	}
	return 6
}

// Compare returns -1, 0 or +1 as l is less than, equal to or greater than r.
// It is a total order: values of different kinds are ordered by kind, NaN
// sorts before every other number and values the order does not know are
// compared by their printed form.
func Compare(l, r interface{}) int {
	l, _ = deref(l)
	r, _ = deref(r)
	lr, rr := typeRank(l), typeRank(r)
	if lr != rr {
		return cmp.Compare(lr, rr)
	}
	switch lr {
	case 0:
		return 0
	case 1:
		lb, rb := l.(bool), r.(bool)
		switch {
		case lb == rb:
			return 0
		case !lb:
			return -1
		}
		return 1
	case 2:
		a, aok := exactInt(l)
		b, bok := exactInt(r)
		if aok && bok {
			return cmp.Compare(a, b)
		}
		lf, _ := ToFloat64(l)
		rf, _ := ToFloat64(r)
		switch {
		case math.IsNaN(lf) && math.IsNaN(rf):
			return 0
		case math.IsNaN(lf):
			return -1
		case math.IsNaN(rf):
			return 1
		}
		return cmp.Compare(lf, rf)
	case 3:
		return cmp.Compare(l.(string), r.(string))
	case 4:
		ls, rs := l.([]interface{}), r.([]interface{})
		for i := range min(len(ls), len(rs)) {
			if c := Compare(ls[i], rs[i]); c != 0 {
				return c
			}
		}
		return cmp.Compare(len(ls), len(rs))
	case 5:
		lk, rk := sortedKeys(l), sortedKeys(r)
		if c := Compare(lk, rk); c != 0 {
			return c
		}
		for i := range lk {
			if c := Compare(mapValue(l, lk[i]), mapValue(r, rk[i])); c != 0 {
				return c
			}
		}
		return 0
	}
	return cmp.Compare(fmt.Sprintf("%T %v", l, l), fmt.Sprintf("%T %v", r, r))
}

// sortedKeys returns the keys of a map in Compare order.
func sortedKeys(m interface{}) []interface{} {
	rv := reflect.ValueOf(m)
	keys := make([]interface{}, 0, rv.Len())
	for _, k := range rv.MapKeys() {
		keys = append(keys, k.Interface())
	}
	sort.Slice(keys, func(i, j int) bool { return Compare(keys[i], keys[j]) < 0 })
	return keys
}

// mapValue returns m[k], or nil when k cannot index m.
func mapValue(m, k interface{}) interface{} {
	rm := reflect.ValueOf(m)
	kv := reflect.ValueOf(k)
	if !kv.IsValid() {
		kv = reflect.Zero(rm.Type().Key())
	}
	if !kv.Type().AssignableTo(rm.Type().Key()) {
		return nil
	}
	v := rm.MapIndex(kv)
	if !v.IsValid() {
		return nil
	}
	return v.Interface()
}
