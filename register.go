package graft

import (
	"fmt"
	"reflect"

	"github.com/Ngone6325/graft/catalog"
)

// Add inserts reg ahead of the existing registrations for reg.Requested.
// A nil Implementation defaults to Requested; the zero Lifetime is Transient.
func (c *Container) Add(reg Registration) error {
	if reg.Requested == nil {
		return ErrNilType
	}
	if reg.Implementation == nil {
		reg.Implementation = reg.Requested
	}
	if reg.Factory == nil && !typeConforms(reg.Implementation, reg.Requested) {
		return fmt.Errorf("%w: %s to %s", ErrNotAssignable, reg.Implementation, reg.Requested)
	}
	reg.open = false
	reg.key = nil
	if reg.Factory != nil {
		reg.key = &ownKey{requested: reg.Requested}
	}
	return c.add(reg)
}

func (c *Container) add(reg Registration) error {
	if err := c.checkLifetime(reg.Lifetime); err != nil {
		return err
	}
	c.logger.Debug("registering", "requested", reg.Requested, "implementation", reg.Implementation, "lifetime", reg.Lifetime)
	c.table.add(reg.Requested, reg)
	return nil
}

// Register resolves requested to implementation with lifetime lt.
// A nil implementation registers requested to itself.
func (c *Container) Register(requested, implementation reflect.Type, lt Lifetime) error {
	return c.Add(Registration{Requested: requested, Implementation: implementation, Lifetime: lt})
}

// RegisterFactory resolves requested by calling f. Instances are kept by lt.
func (c *Container) RegisterFactory(requested reflect.Type, f Factory, lt Lifetime) error {
	if f == nil {
		return fmt.Errorf("%w: nil factory for %s", ErrBadConstructor, requested)
	}
	return c.Add(Registration{Requested: requested, Factory: f, Lifetime: lt})
}

// RegisterOpen resolves every instantiation of requested's generic type to
// the matching instantiation of implementation's generic type. Both are
// passed as any instantiation, e.g. Repository[any] and *SQLRepository[any];
// the concrete instantiations must be described in the catalog. An exact
// registration of a closed type takes precedence.
func (c *Container) RegisterOpen(requested, implementation reflect.Type, lt Lifetime) error {
	if requested == nil {
		return ErrNilType
	}
	if implementation == nil {
		implementation = requested
	}
	reqShape, ok := catalog.ShapeOf(requested)
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotOpenGeneric, requested)
	}
	implShape, ok := catalog.ShapeOf(implementation)
	if !ok || len(implShape.Args) != len(reqShape.Args) {
		return fmt.Errorf("%w: %s", ErrNotOpenGeneric, implementation)
	}
	if err := c.checkLifetime(lt); err != nil {
		return err
	}
	c.logger.Debug("registering open generic", "requested", reqShape.String(), "implementation", implShape.String(), "lifetime", lt)
	c.table.addOpen(reqShape.Key(), Registration{
		Requested:      requested,
		Implementation: implementation,
		Lifetime:       lt,
		open:           true,
	})
	return nil
}

// hierarchy returns every type on most's chain that conforms to least, in
// chain order up to least itself. least is appended when it is not on the
// chain, which is how interfaces are usually reached.
func (c *Container) hierarchy(least, most reflect.Type) ([]reflect.Type, error) {
	if least == nil || most == nil {
		return nil, ErrNilType
	}
	if !typeConforms(most, least) {
		return nil, fmt.Errorf("%w: %s is not a %s", ErrNotInHierarchy, most, least)
	}
	var out []reflect.Type
	for _, t := range c.catalog.Chain(most) {
		if !typeConforms(t, least) {
			continue
		}
		out = append(out, t)
		if t == least {
			return out, nil
		}
	}
	return append(out, least), nil
}

// RegisterHierarchy registers every type from most up to least to resolve
// to most. With a caching lifetime they all share one instance.
func (c *Container) RegisterHierarchy(least, most reflect.Type, lt Lifetime) error {
	types, err := c.hierarchy(least, most)
	if err != nil {
		return err
	}
	if err := c.checkLifetime(lt); err != nil {
		return err
	}
	for _, t := range types {
		if err := c.Add(Registration{Requested: t, Implementation: most, Lifetime: lt}); err != nil {
			return err
		}
	}
	return nil
}

// RegisterInstance makes requested resolve to instance itself. instance must
// be assignable to requested. Only the singleton lifetime and static provider
// lifetimes can hold an instance.
func (c *Container) RegisterInstance(requested reflect.Type, instance any, lt Lifetime) error {
	if requested == nil {
		return ErrNilType
	}
	if isNil(instance) {
		return ErrNilInstance
	}
	st, ok := c.root.store(lt)
	if !ok || lt == Transient || lt == Scoped {
		return fmt.Errorf("%w: %s", ErrInstanceLifetime, lt)
	}
	if it := reflect.TypeOf(instance); !it.AssignableTo(requested) {
		return fmt.Errorf("%w: %s to %s", ErrNotAssignable, it, requested)
	}
	key := &ownKey{requested: requested}
	st.Add(key, instance)
	return c.add(Registration{Requested: requested, Implementation: requested, Lifetime: lt, key: key})
}

// RegisterInstanceHierarchy registers instance under every type from its own
// type up to least. An embedded ancestor is registered by its address inside
// instance, so every view shares state with it.
func (c *Container) RegisterInstanceHierarchy(least reflect.Type, instance any, lt Lifetime) error {
	if isNil(instance) {
		return ErrNilInstance
	}
	types, err := c.hierarchy(least, reflect.TypeOf(instance))
	if err != nil {
		return err
	}
	for _, t := range types {
		v, ok := conform(reflect.ValueOf(instance), t)
		if !ok {
			return fmt.Errorf("%w: %T to %s", ErrNotAssignable, instance, t)
		}
		if err := c.RegisterInstance(t, v.Interface(), lt); err != nil {
			return err
		}
	}
	return nil
}

// Unregister removes every exact registration of t. Instances already kept
// by a store are not released.
func (c *Container) Unregister(t reflect.Type) bool {
	if t == nil {
		return false
	}
	ok := c.table.remove(t)
	if ok {
		c.logger.Debug("unregistered", "type", t)
	}
	return ok
}

// UnregisterOpen removes the open registrations of t's generic type.
func (c *Container) UnregisterOpen(t reflect.Type) bool {
	shape, ok := catalog.ShapeOf(t)
	if !ok {
		return false
	}
	return c.table.removeOpen(shape.Key())
}

// IsRegistered reports whether t has an exact registration.
func (c *Container) IsRegistered(t reflect.Type) bool {
	return t != nil && c.table.has(t)
}
