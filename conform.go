package graft

import (
	"fmt"
	"reflect"

	"github.com/Ngone6325/graft/catalog"
)

// typeConforms reports whether values of from can stand in for to: directly
// assignable, through a pointer, by conversion between types of the same kind,
// or through an embedded struct.
func typeConforms(from, to reflect.Type) bool {
	for seen := 0; from != nil && seen < 64; seen++ {
		switch {
		case from.AssignableTo(to):
			return true
		case from.Kind() == reflect.Pointer && from.Elem().AssignableTo(to):
			return true
		case convertible(from, to):
			return true
		}
		from = catalog.Parent(from)
	}
	return false
}

func convertible(from, to reflect.Type) bool {
	return from.Kind() == to.Kind() && to.Kind() != reflect.Interface && from.ConvertibleTo(to)
}

// conform adapts v to type to, following the same rules as typeConforms.
// Embedded structs reached through a pointer are returned by address, so the
// result shares state with v.
func conform(v reflect.Value, to reflect.Type) (reflect.Value, bool) {
	for v.IsValid() {
		vt := v.Type()
		switch {
		case vt.AssignableTo(to):
			return v, true
		case v.Kind() == reflect.Pointer && !v.IsNil() && vt.Elem().AssignableTo(to):
			return v.Elem(), true
		case v.CanAddr() && reflect.PointerTo(vt).AssignableTo(to):
			return v.Addr(), true
		case convertible(vt, to):
			return v.Convert(to), true
		}
		next, ok := embedded(v)
		if !ok {
			break
		}
		v = next
	}
	return reflect.Value{}, false
}

// embedded returns the first exported embedded struct of v.
func embedded(v reflect.Value) (reflect.Value, bool) {
	if v.Kind() == reflect.Pointer {
		if v.IsNil() {
			return reflect.Value{}, false
		}
		v = v.Elem()
	}
	if v.Kind() != reflect.Struct {
		return reflect.Value{}, false
	}
	st := v.Type()
	for i := range st.NumField() {
		f := st.Field(i)
		if !f.Anonymous || !f.IsExported() {
			continue
		}
		switch {
		case f.Type.Kind() == reflect.Struct:
			return v.Field(i), true
		case f.Type.Kind() == reflect.Pointer && f.Type.Elem().Kind() == reflect.Struct:
			return v.Field(i), true
		}
	}
	return reflect.Value{}, false
}

// conformAny adapts a resolved instance to t.
func conformAny(v any, t reflect.Type) (any, error) {
	if isNil(v) {
		return nil, nil
	}
	cv, ok := conform(reflect.ValueOf(v), t)
	if !ok {
		return nil, fmt.Errorf("%w: %T to %s", ErrTypeConvertFailed, v, t)
	}
	return cv.Interface(), nil
}

// isNil reports untyped nil and nil values of nillable kinds.
func isNil(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Func, reflect.Chan, reflect.Interface, reflect.UnsafePointer:
		return rv.IsNil()
	}
	return false
}

// as asserts a resolved value to T.
func as[T any](v any) (T, error) {
	var zero T
	if v == nil {
		return zero, nil
	}
	if t, ok := v.(T); ok {
		return t, nil
	}
	cv, err := conformAny(v, reflect.TypeFor[T]())
	if err != nil {
		return zero, err
	}
	t, ok := cv.(T)
	if !ok {
		return zero, fmt.Errorf("%w: %T to %s", ErrTypeConvertFailed, v, reflect.TypeFor[T]())
	}
	return t, nil
}
