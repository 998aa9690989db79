package graft

import (
	"reflect"

	"github.com/google/uuid"

	"github.com/Ngone6325/graft/store"
)

// Scope is a bounded lifetime region, such as one request. Scoped instances
// are unique within a scope and isolated from other scopes; singletons come
// from the container.
type Scope struct {
	id     uuid.UUID
	engine *Engine
	store  *store.ScopedStore
}

// BeginScope starts a scope with its own scoped store.
func (c *Container) BeginScope() *Scope {
	st := store.NewScoped()
	s := &Scope{
		id:     uuid.New(),
		engine: &Engine{c: c, scoped: st},
		store:  st,
	}
	c.logger.Debug("scope started", "scope", s.id)
	return s
}

// ID identifies the scope in logs.
func (s *Scope) ID() uuid.UUID { return s.id }

// Engine returns the scope's resolution view.
func (s *Scope) Engine() *Engine { return s.engine }

// Ended reports whether End has been called.
func (s *Scope) Ended() bool { return s.store.Closed() }

func (s *Scope) Resolve(t reflect.Type) (any, error) {
	if s.Ended() {
		return nil, ErrScopeEnded
	}
	return s.engine.Resolve(t)
}

func (s *Scope) ResolveOptional(t reflect.Type) (any, error) {
	if s.Ended() {
		return nil, ErrScopeEnded
	}
	return s.engine.ResolveOptional(t)
}

func (s *Scope) ResolveMany(t reflect.Type) ([]any, error) {
	if s.Ended() {
		return nil, ErrScopeEnded
	}
	return s.engine.ResolveMany(t)
}

func (s *Scope) ResolveProperties(v any) (any, error) {
	if s.Ended() {
		return nil, ErrScopeEnded
	}
	return s.engine.ResolveProperties(v)
}

// End closes every io.Closer the scope kept, exactly once, and releases the
// scoped store. Later calls return nil.
func (s *Scope) End() error {
	if s.Ended() {
		return nil
	}
	n := s.store.Len()
	err := s.store.Close()
	log := s.engine.c.logger.With("scope", s.id, "instances", n)
	if err != nil {
		log.Warn("scope ended with close errors", "error", err)
		return err
	}
	log.Debug("scope ended")
	return nil
}
