package graft

import (
	"fmt"
	"reflect"
)

// Global is the default container for single-service programs, saving them
// from threading a container through their wiring code.
var Global = NewContainer()

// ResolveInto resolves the type out points to and stores the instance in it.
func ResolveInto(r Resolver, out any) error {
	ov := reflect.ValueOf(out)
	if ov.Kind() != reflect.Pointer || ov.IsNil() {
		return ErrInvalidOutPtr
	}
	target := ov.Elem().Type()
	v, err := r.Resolve(target)
	if err != nil {
		return err
	}
	if v == nil {
		ov.Elem().SetZero()
		return nil
	}
	cv, ok := conform(reflect.ValueOf(v), target)
	if !ok {
		return fmt.Errorf("%w: %T to %s", ErrTypeConvertFailed, v, target)
	}
	ov.Elem().Set(cv)
	return nil
}

// MustRegister registers TReq to TImpl on Global and panics on error.
func MustRegister[TReq, TImpl any](lt Lifetime) {
	if err := RegisterType[TReq, TImpl](Global, lt); err != nil {
		panic(fmt.Sprintf("graft: registration failed: %v", err))
	}
}

// MustRegisterFunc registers a factory for T on Global and panics on error.
func MustRegisterFunc[T any](f func(r Resolver) (T, error), lt Lifetime) {
	if err := RegisterFunc(Global, f, lt); err != nil {
		panic(fmt.Sprintf("graft: factory registration failed: %v", err))
	}
}

// MustRegisterValue registers v as the singleton T on Global and panics on error.
func MustRegisterValue[T any](v T) {
	if err := RegisterValue(Global, v); err != nil {
		panic(fmt.Sprintf("graft: instance registration failed: %v", err))
	}
}

// MustRegisterHierarchy registers TMost up to TLeast on Global and panics on error.
func MustRegisterHierarchy[TLeast, TMost any](lt Lifetime) {
	if err := RegisterHierarchyOf[TLeast, TMost](Global, lt); err != nil {
		panic(fmt.Sprintf("graft: hierarchy registration failed: %v", err))
	}
}

// Bootstrap seeds Global from its catalog.
func Bootstrap() error { return Global.Bootstrap() }

// Get resolves T from Global.
func Get[T any]() (T, error) { return Resolve[T](Global) }

// MustGet resolves T from Global and panics on error.
func MustGet[T any]() T { return MustResolve[T](Global) }

// NewScope begins a scope on Global.
func NewScope() *Scope { return Global.BeginScope() }

// ScopeGet resolves T within s.
func ScopeGet[T any](s *Scope) (T, error) { return Resolve[T](s) }

// ScopeMustGet resolves T within s and panics on error.
func ScopeMustGet[T any](s *Scope) T { return MustResolve[T](s) }

// GlobalReset clears Global.
func GlobalReset() { Global.Reset() }
