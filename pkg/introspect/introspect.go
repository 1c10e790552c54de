// Package introspect gives the evaluator uniform access to host values.
//
// Scripts navigate Go maps, slices, arrays, strings and structs with the
// same property and index syntax. Struct members resolve, in order, to an
// exported field, a GetX method and an X method, where X is the member name
// with its first letter upper-cased; so a script can write person.name for
// Person.Name or Person.GetName(). Host types that want full control
// implement PropertyGetter and PropertySetter.
//
// Missing keys of maps read as null; missing members of every other receiver
// are property errors.
package introspect

import (
	"fmt"
	"iter"
	"reflect"
	"strconv"
	"unicode"
	"unicode/utf8"

	"github.com/sandrolain/gojexl/pkg/types"
)

// PropertyGetter is implemented by host values that resolve their own
// properties. ok is false for an undefined property.
type PropertyGetter interface {
	GetProperty(name string) (value interface{}, ok bool)
}

// PropertySetter is implemented by host values that accept property
// assignment.
type PropertySetter interface {
	SetProperty(name string, value interface{}) error
}

// Sizer is implemented by host collections that report their size.
type Sizer interface {
	Size() int
}

// Emptier is implemented by host values that know whether they are empty.
type Emptier interface {
	IsEmpty() bool
}

// Iterable is implemented by host collections a for loop can walk.
type Iterable interface {
	All() iter.Seq[interface{}]
}

// Normalize turns a nil pointer into nil and dereferences a pointer to a
// boolean, number or string.
func Normalize(v interface{}) interface{} {
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Pointer {
		return v
	}
	if rv.IsNil() {
		return nil
	}
	if isBasic(rv.Elem().Kind()) {
		return rv.Elem().Interface()
	}
	return v
}

// Get returns the property name of obj.
func Get(obj interface{}, name string) (interface{}, error) {
	return Index(obj, name)
}

// Index returns obj[key]. Sequences and strings take an integer key, or a
// string holding one; maps convert the key to their key type.
func Index(obj interface{}, key interface{}) (interface{}, error) {
	switch o := obj.(type) {
	case nil:
		return nil, nullReceiver(key)
	case map[string]interface{}:
		return Normalize(o[KeyString(key)]), nil
	case []interface{}:
		i, err := position(key, len(o))
		if err != nil {
			return nil, err
		}
		return Normalize(o[i]), nil
	case PropertyGetter:
		name := KeyString(key)
		if v, ok := o.GetProperty(name); ok {
			return Normalize(v), nil
		}
		return nil, undefined(name)
	}

	rv, err := indirect(reflect.ValueOf(obj), key)
	if err != nil {
		return nil, err
	}
	switch rv.Kind() {
	case reflect.Map:
		k, ok := mapKey(rv.Type().Key(), key)
		if !ok {
			return nil, nil
		}
		v := rv.MapIndex(k)
		if !v.IsValid() {
			return nil, nil
		}
		return Normalize(v.Interface()), nil
	case reflect.Slice, reflect.Array:
		i, err := position(key, rv.Len())
		if err != nil {
			return nil, err
		}
		return Normalize(rv.Index(i).Interface()), nil
	case reflect.String:
		runes := []rune(rv.String())
		i, err := position(key, len(runes))
		if err != nil {
			return nil, err
		}
		return string(runes[i]), nil
	}

	name := KeyString(key)
	v, found, err := member(rv, name)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, undefined(name)
	}
	return Normalize(v), nil
}

// Has reports whether obj defines the property name. Maps define only the
// keys they hold.
func Has(obj interface{}, name string) bool {
	switch o := obj.(type) {
	case nil:
		return false
	case map[string]interface{}:
		_, ok := o[name]
		return ok
	case PropertyGetter:
		_, ok := o.GetProperty(name)
		return ok
	}
	rv, err := indirect(reflect.ValueOf(obj), name)
	if err != nil {
		return false
	}
	switch rv.Kind() {
	case reflect.Map:
		return HasKey(rv.Interface(), name)
	case reflect.Slice, reflect.Array:
		_, err := position(name, rv.Len())
		return err == nil
	case reflect.Struct, reflect.Pointer:
		_, found, err := member(rv, name)
		return found && err == nil
	}
	return false
}

// HasKey reports whether the map m holds key.
func HasKey(m interface{}, key interface{}) bool {
	rv := reflect.ValueOf(m)
	if rv.Kind() != reflect.Map {
		return false
	}
	k, ok := mapKey(rv.Type().Key(), key)
	return ok && rv.MapIndex(k).IsValid()
}

// Set assigns obj[key] = value.
func Set(obj interface{}, key interface{}, value interface{}) error {
	switch o := obj.(type) {
	case nil:
		return nullReceiver(key)
	case map[string]interface{}:
		o[KeyString(key)] = value
		return nil
	case []interface{}:
		i, err := position(key, len(o))
		if err != nil {
			return err
		}
		o[i] = value
		return nil
	case PropertySetter:
		return o.SetProperty(KeyString(key), value)
	}

	rv, err := indirect(reflect.ValueOf(obj), key)
	if err != nil {
		return err
	}
	switch rv.Kind() {
	case reflect.Map:
		if rv.IsNil() {
			return readOnly(obj, key)
		}
		k, ok := mapKey(rv.Type().Key(), key)
		if !ok {
			return types.Errorf(types.ErrUndefinedProperty, types.Position{}, "key %s cannot index %T", KeyString(key), obj).WithName(KeyString(key))
		}
		v, err := Convert(value, rv.Type().Elem())
		if err != nil {
			return err
		}
		rv.SetMapIndex(k, v)
		return nil
	case reflect.Slice, reflect.Array:
		i, err := position(key, rv.Len())
		if err != nil {
			return err
		}
		elem := rv.Index(i)
		if !elem.CanSet() {
			return readOnly(obj, key)
		}
		v, err := Convert(value, elem.Type())
		if err != nil {
			return err
		}
		elem.Set(v)
		return nil
	case reflect.Pointer:
		return setMember(rv, KeyString(key), value)
	}
	return readOnly(obj, key)
}

// Keys returns the property names of obj: the keys of a string-keyed map or
// the exported fields of a struct, first letter lower-cased.
func Keys(obj interface{}) []string {
	if k, ok := obj.(interface{ Keys() []string }); ok {
		return k.Keys()
	}
	rv := reflect.Indirect(reflect.ValueOf(obj))
	var keys []string
	switch rv.Kind() {
	case reflect.Map:
		if rv.Type().Key().Kind() != reflect.String {
			return nil
		}
		for _, k := range sortedKeys(rv) {
			keys = append(keys, k.String())
		}
	case reflect.Struct:
		t := rv.Type()
		for i := range t.NumField() {
			if f := t.Field(i); f.IsExported() {
				keys = append(keys, lowerFirst(f.Name))
			}
		}
	}
	return keys
}

// Size returns the number of elements of a collection and the rune count of
// a string. ok is false when v has no size.
func Size(v interface{}) (n int, ok bool) {
	switch s := v.(type) {
	case nil:
		return 0, true
	case string:
		return utf8.RuneCountInString(s), true
	case Sizer:
		return s.Size(), true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Slice, reflect.Array, reflect.Map, reflect.Chan:
		return rv.Len(), true
	case reflect.String:
		return utf8.RuneCountInString(rv.String()), true
	}
	return 0, false
}

// IsEmpty reports whether v is null or an empty string or collection. ok is
// false when v is none of those.
func IsEmpty(v interface{}) (empty, ok bool) {
	switch e := v.(type) {
	case nil:
		return true, true
	case Emptier:
		return e.IsEmpty(), true
	}
	if n, ok := Size(v); ok {
		return n == 0, true
	}
	return false, false
}

// KeyString renders a key as a property name.
func KeyString(key interface{}) string {
	switch k := key.(type) {
	case nil:
		return "null"
	case string:
		return k
	case int64:
		return strconv.FormatInt(k, 10)
	case float64:
		return strconv.FormatFloat(k, 'g', -1, 64)
	}
	return fmt.Sprint(key)
}

// indirect follows pointers and interfaces down to a map, sequence or
// string. A pointer to a struct is kept so its pointer methods stay
// visible.
func indirect(rv reflect.Value, key interface{}) (reflect.Value, error) {
	for rv.Kind() == reflect.Pointer || rv.Kind() == reflect.Interface {
		if rv.IsNil() {
			return rv, nullReceiver(key)
		}
		if rv.Kind() == reflect.Pointer && rv.Elem().Kind() == reflect.Struct {
			return rv, nil
		}
		rv = rv.Elem()
	}
	return rv, nil
}

// candidates returns the names a member may be declared under.
func candidates(name string) []string {
	if c := upperFirst(name); c != name {
		return []string{name, c}
	}
	return []string{name}
}

// member resolves a field or getter of a struct or pointer to struct.
func member(rv reflect.Value, name string) (interface{}, bool, error) {
	if name == "" {
		return nil, false, nil
	}
	sv := reflect.Indirect(rv)
	if sv.Kind() == reflect.Struct {
		for _, c := range candidates(name) {
			if f, ok := sv.Type().FieldByName(c); ok && f.IsExported() {
				return sv.FieldByIndex(f.Index).Interface(), true, nil
			}
		}
	}
	upper := upperFirst(name)
	for _, c := range []string{"Get" + upper, upper} {
		m := rv.MethodByName(c)
		if !m.IsValid() || m.Type().NumIn() != 0 {
			continue
		}
		v, err := results(m.Call(nil))
		return v, true, err
	}
	return nil, false, nil
}

func setMember(rv reflect.Value, name string, value interface{}) error {
	sv := rv.Elem()
	for _, c := range candidates(name) {
		if f, ok := sv.Type().FieldByName(c); ok && f.IsExported() {
			field := sv.FieldByIndex(f.Index)
			v, err := Convert(value, field.Type())
			if err != nil {
				return err
			}
			field.Set(v)
			return nil
		}
	}
	if m := rv.MethodByName("Set" + upperFirst(name)); m.IsValid() && m.Type().NumIn() == 1 {
		v, err := Convert(value, m.Type().In(0))
		if err != nil {
			return err
		}
		_, err = results(m.Call([]reflect.Value{v}))
		return err
	}
	return readOnly(rv.Interface(), name)
}

// position converts key to an index in [0, n).
func position(key interface{}, n int) (int, error) {
	i, ok := toInt(key)
	if !ok {
		return 0, undefined(KeyString(key))
	}
	if i < 0 || i >= int64(n) {
		return 0, types.Errorf(types.ErrIndexOutOfRange, types.Position{}, "index %d out of range [0, %d)", i, n).WithName(KeyString(key))
	}
	return int(i), nil
}

// toInt reads an integral key: an integer, an integral float or a string
// holding an integer.
func toInt(key interface{}) (int64, bool) {
	rv := reflect.ValueOf(key)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return rv.Int(), true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return int64(rv.Uint()), true
	case reflect.Float32, reflect.Float64:
		f := rv.Float()
		if f != float64(int64(f)) {
			return 0, false
		}
		return int64(f), true
	case reflect.String:
		i, err := strconv.ParseInt(rv.String(), 10, 64)
		return i, err == nil
	}
	return 0, false
}

// mapKey converts key to a map key of type t.
func mapKey(t reflect.Type, key interface{}) (reflect.Value, bool) {
	if key == nil {
		switch t.Kind() {
		case reflect.Interface, reflect.Pointer:
			return reflect.Zero(t), true
		}
		return reflect.Value{}, false
	}
	kv := reflect.ValueOf(key)
	if kv.Type().AssignableTo(t) {
		return kv, true
	}
	switch {
	case t.Kind() == reflect.String:
		return reflect.ValueOf(KeyString(key)).Convert(t), true
	case isInteger(t.Kind()):
		if i, ok := toInt(key); ok {
			return reflect.ValueOf(i).Convert(t), true
		}
	case isNumber(t.Kind()) && isNumber(kv.Kind()):
		return kv.Convert(t), true
	}
	return reflect.Value{}, false
}

func nullReceiver(key interface{}) error {
	name := KeyString(key)
	return types.Errorf(types.ErrNullProperty, types.Position{}, "cannot access property '%s' of null", name).WithName(name)
}

func undefined(name string) error {
	return types.Errorf(types.ErrUndefinedProperty, types.Position{}, "undefined property '%s'", name).WithName(name)
}

func readOnly(obj interface{}, key interface{}) error {
	name := KeyString(key)
	return types.Errorf(types.ErrReadOnlyProperty, types.Position{}, "cannot set property '%s' of %T", name, obj).WithName(name)
}

func upperFirst(s string) string {
	r, n := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError || unicode.IsUpper(r) {
		return s
	}
	return string(unicode.ToUpper(r)) + s[n:]
}

func lowerFirst(s string) string {
	r, n := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError || unicode.IsLower(r) {
		return s
	}
	return string(unicode.ToLower(r)) + s[n:]
}

func isInteger(k reflect.Kind) bool {
	switch k {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return true
	}
	return false
}

func isNumber(k reflect.Kind) bool {
	return isInteger(k) || k == reflect.Float32 || k == reflect.Float64
}

func isBasic(k reflect.Kind) bool {
	return isNumber(k) || k == reflect.Bool || k == reflect.String
}
