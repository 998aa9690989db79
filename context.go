package graft

import (
	"reflect"
	"slices"
)

// session is the state of one top-level resolution: the in-flight stack
// used for cycle detection and the consolidated values built so far. It is
// never shared between goroutines and needs no locking.
type session struct {
	engine *Engine
	detect bool
	stack  []Frame

	consolidated  map[reflect.Type]any
	consolidating map[reflect.Type]bool
}

func (e *Engine) session() *session {
	return &session{engine: e, detect: e.c.detect.Load()}
}

// push records f as in flight. With detection enabled a frame already on the
// stack fails with the full chain.
func (s *session) push(f Frame) error {
	if !s.detect {
		return nil
	}
	if slices.Contains(s.stack, f) {
		chain := append(slices.Clone(s.stack), f)
		return &CircularResolutionError{Chain: chain}
	}
	s.stack = append(s.stack, f)
	return nil
}

func (s *session) pop() {
	if s.detect && len(s.stack) > 0 {
		s.stack = s.stack[:len(s.stack)-1]
	}
}

func (s *session) Resolve(t reflect.Type) (any, error) { return s.resolve(t, false) }

func (s *session) ResolveOptional(t reflect.Type) (any, error) { return s.resolve(t, true) }

func (s *session) ResolveMany(t reflect.Type) ([]any, error) {
	if t == nil {
		return nil, ErrNilType
	}
	return s.resolveMany(t)
}

func (s *session) ResolveProperties(v any) (any, error) {
	if isNil(v) {
		return nil, ErrNilInstance
	}
	if err := s.injectProperties(v); err != nil {
		return nil, err
	}
	return v, nil
}
