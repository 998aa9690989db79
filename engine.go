package graft

import (
	"reflect"

	"github.com/Ngone6325/graft/store"
)

// Resolver resolves dependencies. Containers, scopes and engines implement
// it; factories receive one bound to the resolution that invoked them.
type Resolver interface {
	// Resolve returns an instance of t or a resolution error.
	Resolve(t reflect.Type) (any, error)
	// ResolveOptional returns nil instead of failing when t cannot be built.
	ResolveOptional(t reflect.Type) (any, error)
	// ResolveMany returns one instance per registration of t, newest first.
	ResolveMany(t reflect.Type) ([]any, error)
	// ResolveProperties injects the marked fields of v and returns v.
	ResolveProperties(v any) (any, error)
}

// Engine is a view combining a container's process wide stores with an
// optional scoped store. Every call starts a fresh resolution context.
type Engine struct {
	c      *Container
	scoped *store.ScopedStore
}

var transient store.TransientStore

// Container returns the container the engine resolves from.
func (e *Engine) Container() *Container { return e.c }

// store returns the store serving lt in this view.
func (e *Engine) store(lt Lifetime) (store.Store, bool) {
	switch lt {
	case Transient:
		return transient, true
	case Singleton:
		return e.c.singletons, true
	case Scoped:
		if e.scoped == nil {
			return nil, false
		}
		return e.scoped, true
	}
	return e.c.provider(lt)
}

func (e *Engine) Resolve(t reflect.Type) (any, error) {
	return e.session().resolve(t, false)
}

func (e *Engine) ResolveOptional(t reflect.Type) (any, error) {
	return e.session().resolve(t, true)
}

func (e *Engine) ResolveMany(t reflect.Type) ([]any, error) {
	if t == nil {
		return nil, ErrNilType
	}
	return e.session().resolveMany(t)
}

func (e *Engine) ResolveProperties(v any) (any, error) {
	return e.session().ResolveProperties(v)
}
