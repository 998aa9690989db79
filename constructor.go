package graft

import (
	"fmt"
	"reflect"
	"slices"

	"github.com/Ngone6325/graft/catalog"
)

// constructors returns the declared constructors of t, or the implicit zero
// value constructor for structs and pointers to structs.
func (c *Container) constructors(t reflect.Type) []catalog.Constructor {
	if d, ok := c.catalog.Describe(t); ok && len(d.Constructors) > 0 {
		return d.Constructors
	}
	if isStruct(t) {
		return []catalog.Constructor{{}}
	}
	return nil
}

func (c *Container) instantiable(t reflect.Type) bool {
	return t != nil && t.Kind() != reflect.Interface && len(c.constructors(t)) > 0
}

func isStruct(t reflect.Type) bool {
	if t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	return t.Kind() == reflect.Struct
}

// construct picks the constructor of t with the most parameters whose every
// parameter is resolvable or optional, and calls it. Ties keep declaration
// order. Without a usable constructor it returns nil when optional, and a
// *MissingConstructorError otherwise.
func (s *session) construct(t reflect.Type, optional bool) (any, error) {
	c := s.engine.c
	ctors := c.constructors(t)
	ordered := slices.Clone(ctors)
	slices.SortStableFunc(ordered, func(a, b catalog.Constructor) int {
		return len(b.Params) - len(a.Params)
	})

	for _, ctor := range ordered {
		if s.injectable(ctor) {
			return s.invoke(t, ctor)
		}
	}
	if optional {
		return nil, nil
	}
	return nil, s.missingConstructor(t, ctors)
}

func (s *session) injectable(ctor catalog.Constructor) bool {
	for i, p := range ctor.Params {
		if !ctor.Optional[i] && !s.engine.c.isResolvable(p) {
			return false
		}
	}
	return true
}

func (s *session) invoke(t reflect.Type, ctor catalog.Constructor) (any, error) {
	if !ctor.Func.IsValid() {
		if t.Kind() == reflect.Pointer {
			return reflect.New(t.Elem()).Interface(), nil
		}
		return reflect.New(t).Elem().Interface(), nil
	}

	args := make([]reflect.Value, len(ctor.Params))
	for i, p := range ctor.Params {
		args[i] = reflect.Zero(p)
		if ctor.Optional[i] && !s.engine.c.isResolvable(p) {
			continue
		}
		v, err := s.resolve(p, ctor.Optional[i])
		if err != nil {
			return nil, err
		}
		if v == nil {
			continue
		}
		cv, ok := conform(reflect.ValueOf(v), p)
		if !ok {
			return nil, &ResolutionError{Type: t, Err: fmt.Errorf("%w: parameter %d: %T to %s", ErrTypeConvertFailed, i, v, p)}
		}
		args[i] = cv
	}

	out := ctor.Func.Call(args)
	if ctor.Fallible && !out[1].IsNil() {
		return nil, fmt.Errorf("%w: %s: %w", ErrConstructorFailed, t, out[1].Interface().(error))
	}
	return out[0].Interface(), nil
}

func (s *session) missingConstructor(t reflect.Type, ctors []catalog.Constructor) error {
	err := &MissingConstructorError{Type: t}
	for _, ctor := range ctors {
		fc := FailingConstructor{Signature: ctor.Signature(), Params: ctor.Params}
		for i, p := range ctor.Params {
			if !ctor.Optional[i] && !s.engine.c.isResolvable(p) {
				fc.Missing = append(fc.Missing, i)
			}
		}
		err.Constructors = append(err.Constructors, fc)
	}
	return err
}
