package graft

import (
	"reflect"

	"github.com/Ngone6325/graft/deferred"
)

// consolidate merges every registration of t through its consolidator, once
// per resolution. handled is false when the consolidator itself could not be
// built, in which case t resolves like any other type.
func (s *session) consolidate(t reflect.Type, con consolidator, optional bool) (v any, handled bool, err error) {
	if v, ok := s.consolidated[t]; ok {
		return v, true, nil
	}
	if s.consolidating[t] {
		return nil, false, &ResolutionError{Type: t, Err: ErrReentrantResolution}
	}
	if s.consolidating == nil {
		s.consolidating = make(map[reflect.Type]bool)
	}
	s.consolidating[t] = true
	defer delete(s.consolidating, t)

	c := s.engine.c
	self, err := s.consolidatorInstance(con.impl)
	if err != nil {
		return nil, false, err
	}
	if self == nil {
		c.logger.Warn("consolidator could not be built, resolving registrations directly",
			"type", t, "consolidator", con.impl)
		return nil, false, nil
	}

	items := &deferred.List{}
	for _, reg := range c.lookup(t) {
		if reg.Implementation == con.impl {
			continue
		}
		items.Add(func() (any, error) {
			return s.resolveRegistration(t, reg, optional)
		})
	}

	merged, err := con.merge(self, items)
	if err != nil {
		return nil, false, err
	}
	if v, err = conformAny(merged, t); err != nil {
		return nil, false, err
	}
	if s.consolidated == nil {
		s.consolidated = make(map[reflect.Type]any)
	}
	s.consolidated[t] = v
	return v, true, nil
}

// consolidatorInstance resolves impl optionally, building it directly when it
// has no registration of its own.
func (s *session) consolidatorInstance(impl reflect.Type) (any, error) {
	v, err := s.resolve(impl, true)
	if err != nil || v != nil {
		return v, err
	}
	if !s.engine.c.instantiable(impl) {
		return nil, nil
	}
	v, err = s.construct(impl, true)
	if err != nil || isNil(v) {
		return nil, err
	}
	if err := s.injectProperties(v); err != nil {
		return nil, err
	}
	return v, nil
}
