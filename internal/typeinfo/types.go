package typeinfo

import (
	"context"
	"reflect"
	"strings"
)

var (
	ContextType = reflect.TypeFor[context.Context]()
	ErrorType   = reflect.TypeFor[error]()
	TypeType    = reflect.TypeFor[reflect.Type]()
)

// Name is the short, human readable form used in error messages.
func Name(t reflect.Type) string {
	if t == nil {
		return "<nil>"
	}
	return t.String()
}

// IsAutowirable reports whether a dependency of type t can be resolved by
// type alone. Text, numbers, booleans, reflect.Type values, functions,
// channels and maps always need an explicit value.
func IsAutowirable(t reflect.Type) bool {
	if t == nil || t == TypeType {
		return false
	}

	switch t.Kind() {
	case reflect.Interface:
		return t != ErrorType
	case reflect.Ptr:
		return !isPrimitive(t.Elem())
	case reflect.Struct:
		return true
	default:
		return false
	}
}

func isPrimitive(t reflect.Type) bool {
	switch t.Kind() {
	case reflect.Bool, reflect.String,
		reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr,
		reflect.Float32, reflect.Float64, reflect.Complex64, reflect.Complex128,
		reflect.UnsafePointer:
		return true
	default:
		return false
	}
}

// Nillable reports whether the zero value of t is nil.
func Nillable(t reflect.Type) bool {
	switch t.Kind() {
	case reflect.Ptr, reflect.Interface, reflect.Map, reflect.Slice, reflect.Chan, reflect.Func:
		return true
	default:
		return false
	}
}

// ValueOf converts v to a reflect.Value of type t. A nil v yields the zero
// value of t.
func ValueOf(v any, t reflect.Type) (reflect.Value, bool) {
	if v == nil {
		if !Nillable(t) {
			return reflect.Value{}, false
		}
		return reflect.Zero(t), true
	}

	rv := reflect.ValueOf(v)
	if !rv.Type().AssignableTo(t) {
		return reflect.Value{}, false
	}
	if rv.Type() != t {
		converted := reflect.New(t).Elem()
		converted.Set(rv)
		return converted, true
	}
	return rv, true
}

// GenericFamily returns the identifier shared by every instantiation of the
// generic type behind t, e.g. "*example.com/repo.Store" for *Store[User].
func GenericFamily(t reflect.Type) (string, bool) {
	if t == nil {
		return "", false
	}

	prefix := ""
	for t.Kind() == reflect.Ptr {
		prefix += "*"
		t = t.Elem()
	}

	name := t.Name()
	idx := strings.IndexByte(name, '[')
	if idx <= 0 {
		return "", false
	}

	return prefix + t.PkgPath() + "." + name[:idx], true
}

func IsNil(v any) bool {
	if v == nil {
		return true
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Ptr, reflect.Interface, reflect.Map, reflect.Slice, reflect.Chan, reflect.Func:
		return rv.IsNil()
	default:
		return false
	}
}
