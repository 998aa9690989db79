package graft

import (
	"fmt"
	"reflect"

	"github.com/Ngone6325/graft/deferred"
)

// Resolve resolves T from r.
func Resolve[T any](r Resolver) (T, error) {
	v, err := r.Resolve(reflect.TypeFor[T]())
	if err != nil {
		var zero T
		return zero, err
	}
	return as[T](v)
}

// ResolveOptional resolves T from r, reporting false when nothing can
// produce it.
func ResolveOptional[T any](r Resolver) (T, bool, error) {
	var zero T
	v, err := r.ResolveOptional(reflect.TypeFor[T]())
	if err != nil || v == nil {
		return zero, false, err
	}
	t, err := as[T](v)
	return t, err == nil, err
}

// MustResolve resolves T from r and panics on error.
func MustResolve[T any](r Resolver) T {
	t, err := Resolve[T](r)
	if err != nil {
		panic(fmt.Sprintf("graft: resolve failed: %v", err))
	}
	return t
}

// ResolveAll resolves one T per registration of T, newest first.
func ResolveAll[T any](r Resolver) ([]T, error) {
	items, err := r.ResolveMany(reflect.TypeFor[T]())
	if err != nil {
		return nil, err
	}
	out := make([]T, 0, len(items))
	for _, item := range items {
		t, err := as[T](item)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, nil
}

// RegisterType resolves TReq to TImpl with lifetime lt.
func RegisterType[TReq, TImpl any](c *Container, lt Lifetime) error {
	return c.Register(reflect.TypeFor[TReq](), reflect.TypeFor[TImpl](), lt)
}

// RegisterFunc resolves T by calling f.
func RegisterFunc[T any](c *Container, f func(r Resolver) (T, error), lt Lifetime) error {
	if f == nil {
		return fmt.Errorf("%w: nil factory for %s", ErrBadConstructor, reflect.TypeFor[T]())
	}
	return c.RegisterFactory(reflect.TypeFor[T](), func(r Resolver) (any, error) {
		return f(r)
	}, lt)
}

// RegisterValue makes T resolve to v in every scope.
func RegisterValue[T any](c *Container, v T) error {
	return c.RegisterInstance(reflect.TypeFor[T](), v, Singleton)
}

// RegisterHierarchyOf registers every type from TMost up to TLeast to
// resolve to TMost.
func RegisterHierarchyOf[TLeast, TMost any](c *Container, lt Lifetime) error {
	return c.RegisterHierarchy(reflect.TypeFor[TLeast](), reflect.TypeFor[TMost](), lt)
}

// RegisterConsolidator makes impl, which must implement
// deferred.Consolidator[T], merge every registration of T.
func RegisterConsolidator[T any](c *Container, impl reflect.Type) error {
	if impl == nil {
		return ErrNilType
	}
	if want := reflect.TypeFor[deferred.Consolidator[T]](); !impl.Implements(want) {
		return fmt.Errorf("%w: %s does not implement %s", ErrNotConsolidator, impl, want)
	}
	return c.AddConsolidator(reflect.TypeFor[T](), impl, deferred.Merger[T]())
}

// UnregisterType removes every registration of T.
func UnregisterType[T any](c *Container) bool {
	return c.Unregister(reflect.TypeFor[T]())
}

// IsRegisteredType reports whether T has an exact registration.
func IsRegisteredType[T any](c *Container) bool {
	return c.IsRegistered(reflect.TypeFor[T]())
}
