package graft

import (
	"errors"
	"fmt"
	"reflect"

	"github.com/Ngone6325/graft/catalog"
	"github.com/Ngone6325/graft/store"
)

var (
	selfRegisteringType     = reflect.TypeFor[SelfRegistering]()
	registerMostDerivedType = reflect.TypeFor[RegisterMostDerived]()
)

// SelfRegistering types resolve to themselves without being registered.
type SelfRegistering interface {
	SelfRegistering()
}

// RegisterMostDerived types resolve to the most derived catalog type that
// embeds them, without being registered.
type RegisterMostDerived interface {
	RegisterMostDerived()
}

// collectionElem reports whether t is a slice resolved by collecting every
// registration of its element. Byte slices and slice types with their own
// registration are resolved as single values.
func (c *Container) collectionElem(t reflect.Type) (reflect.Type, bool) {
	if t.Kind() != reflect.Slice || t.Elem().Kind() == reflect.Uint8 {
		return nil, false
	}
	if c.table.has(t) {
		return nil, false
	}
	return t.Elem(), true
}

// lookup returns the registrations that can produce t, newest first. Exact
// registrations shadow open generic ones, which shadow collection recursion.
func (c *Container) lookup(t reflect.Type) []Registration {
	if regs := c.table.get(t); len(regs) > 0 {
		return regs
	}
	if regs := c.specialize(t); len(regs) > 0 {
		return regs
	}
	if elem, ok := c.collectionElem(t); ok {
		return c.lookup(elem)
	}
	return nil
}

// specialize closes the open registrations matching t's generic definition
// over t's type arguments.
func (c *Container) specialize(t reflect.Type) []Registration {
	shape, ok := catalog.ShapeOf(t)
	if !ok {
		return nil
	}
	open := c.table.getOpen(shape.Key())
	if len(open) == 0 {
		return nil
	}
	out := make([]Registration, 0, len(open))
	for _, reg := range open {
		implShape, _ := catalog.ShapeOf(reg.Implementation)
		impl := t
		if implShape.Key() != shape.Key() {
			var found bool
			if impl, found = c.catalog.Instantiation(implShape, shape.Args); !found {
				c.logger.Debug("no catalog instantiation for open registration",
					"requested", t, "implementation", implShape.String())
				continue
			}
		}
		out = append(out, Registration{Requested: t, Implementation: impl, Lifetime: reg.Lifetime})
	}
	return out
}

// isResolvable reports whether t has registrations, is a collection, or
// declares itself auto-registering. Answers are cached, negatives included.
func (c *Container) isResolvable(t reflect.Type) bool {
	if t == nil {
		return false
	}
	version := c.table.version.Load()
	if ok, hit := c.table.cached(t); hit {
		return ok
	}
	ok := len(c.lookup(t)) > 0
	if !ok {
		_, ok = c.collectionElem(t)
	}
	if !ok {
		ok = c.selfRegister(t)
	}
	c.table.remember(t, ok, version)
	return ok
}

// selfRegister registers t lazily when it declares itself auto-registering.
func (c *Container) selfRegister(t reflect.Type) bool {
	d, described := c.catalog.Describe(t)
	concrete := t.Kind() != reflect.Interface
	self := (described && d.SelfRegistering) || (concrete && t.Implements(selfRegisteringType))
	mostDerived := (described && d.MostDerived) || (concrete && t.Implements(registerMostDerivedType))
	if !self && !mostDerived {
		return false
	}
	impl := t
	if mostDerived {
		impl = c.catalog.MostDerived(t)
	}
	// Concurrent first uses race here; only one of them registers t.
	if c.table.addIfAbsent(t, Registration{Requested: t, Implementation: impl, Lifetime: Transient}) {
		c.logger.Debug("self registered", "type", t, "implementation", impl)
	}
	return true
}

func (s *session) resolve(t reflect.Type, optional bool) (any, error) {
	if t == nil {
		return nil, ErrNilType
	}
	if elem, ok := s.engine.c.collectionElem(t); ok {
		return s.resolveCollection(t, elem)
	}
	return s.resolveSingle(t, optional)
}

// resolveCollection builds a slice of type t holding one instance per
// registration of elem. Zero registrations yield an empty slice.
func (s *session) resolveCollection(t, elem reflect.Type) (any, error) {
	items, err := s.resolveMany(elem)
	if err != nil {
		return nil, err
	}
	out := reflect.MakeSlice(t, 0, len(items))
	for _, item := range items {
		v, ok := conform(reflect.ValueOf(item), elem)
		if !ok {
			return nil, &ResolutionError{Type: t, Err: fmt.Errorf("%w: %T to %s", ErrTypeConvertFailed, item, elem)}
		}
		out = reflect.Append(out, v)
	}
	return out.Interface(), nil
}

func (s *session) resolveMany(t reflect.Type) ([]any, error) {
	regs := s.engine.c.lookup(t)
	out := make([]any, 0, len(regs))
	for _, reg := range regs {
		v, err := s.resolveRegistration(t, reg, false)
		if err != nil {
			return nil, wrapResolution(t, err)
		}
		if v != nil {
			out = append(out, v)
		}
	}
	return out, nil
}

// resolveSingle returns the first non-nil instance produced by t's
// registrations, newest first, or the consolidated value when t has a
// consolidator. A failing registration falls back to older ones; the newest
// failure is reported when none succeeds.
func (s *session) resolveSingle(t reflect.Type, optional bool) (any, error) {
	c := s.engine.c
	if !c.isResolvable(t) {
		if optional {
			return nil, nil
		}
		return nil, &ResolutionError{Type: t, Err: ErrNotResolvable}
	}

	if con, ok := c.consolidator(t); ok {
		v, handled, err := s.consolidate(t, con, optional)
		switch {
		case err != nil:
			if optional && !isFatal(err) {
				return nil, nil
			}
			return nil, wrapResolution(t, err)
		case handled && v == nil && !optional:
			return nil, &ResolutionError{Type: t, Err: ErrNotResolvable}
		case handled:
			return v, nil
		}
	}

	var firstErr error
	for _, reg := range c.lookup(t) {
		v, err := s.resolveRegistration(t, reg, optional)
		if err != nil {
			if isFatal(err) {
				return nil, err
			}
			if firstErr == nil {
				firstErr = err
			}
			c.logger.Debug("registration failed, trying older one", "registration", reg, "error", err)
			continue
		}
		if v != nil {
			return v, nil
		}
	}
	if optional {
		return nil, nil
	}
	if firstErr != nil {
		return nil, wrapResolution(t, firstErr)
	}
	return nil, &ResolutionError{Type: t, Err: ErrNotResolvable}
}

// resolveRegistration returns the instance reg yields for t: the one kept by
// its lifetime's store, or a newly built one which is then kept.
func (s *session) resolveRegistration(t reflect.Type, reg Registration, optional bool) (any, error) {
	if err := s.push(reg.frame()); err != nil {
		return nil, err
	}
	defer s.pop()

	st, ok := s.engine.store(reg.Lifetime)
	if !ok {
		s.engine.c.logger.Warn("lifetime provider not available, resolving as transient",
			"implementation", reg.Implementation, "lifetime", reg.Lifetime)
		st = store.TransientStore{}
	}

	key := reg.storeKey()
	if kept := st.Get(key); len(kept) > 0 {
		return conformAny(kept[len(kept)-1], t)
	}

	v, err := s.materialize(reg, optional)
	if err != nil || v == nil {
		return nil, err
	}
	return conformAny(st.Claim(key, v), t)
}

// materialize builds a new instance for reg and injects its properties.
func (s *session) materialize(reg Registration, optional bool) (any, error) {
	var (
		v   any
		err error
	)
	switch {
	case reg.Factory != nil:
		v, err = reg.Factory(s)
		if err != nil {
			if isFatal(err) {
				return nil, err
			}
			return nil, fmt.Errorf("%w: factory for %s: %w", ErrConstructorFailed, reg.Requested, err)
		}
	case s.engine.c.instantiable(reg.Implementation):
		v, err = s.construct(reg.Implementation, optional)
		if err != nil {
			return nil, err
		}
	}
	if isNil(v) {
		return nil, nil
	}
	if err := s.injectProperties(v); err != nil {
		return nil, err
	}
	return v, nil
}

// wrapResolution attaches t to err unless err already reports a failed
// resolution or a cycle.
func wrapResolution(t reflect.Type, err error) error {
	var re *ResolutionError
	if errors.As(err, &re) || errors.Is(err, ErrCircularResolution) {
		return err
	}
	return &ResolutionError{Type: t, Err: err}
}
