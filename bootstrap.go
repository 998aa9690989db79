package graft

import (
	"errors"
	"fmt"
	"reflect"

	"github.com/Ngone6325/graft/catalog"
	"github.com/Ngone6325/graft/store"
)

var registrarType = reflect.TypeFor[DependencyRegistrar]()

// ServiceRegister is the surface handed to a DependencyRegistrar.
type ServiceRegister interface {
	Register(requested, implementation reflect.Type, lt Lifetime) error
	RegisterFactory(requested reflect.Type, f Factory, lt Lifetime) error
}

// DependencyRegistrar types in the catalog are built during bootstrap and
// register their own dependencies.
type DependencyRegistrar interface {
	RegisterDependencies(r ServiceRegister) error
}

// Bootstrap seeds the container from its catalog. It runs once per
// container (until Reset): static providers are added first so that markers
// can name their lifetimes, then each described type is processed in catalog
// order. A failing type is logged and skipped; all failures are returned
// joined.
func (c *Container) Bootstrap() error {
	c.mu.Lock()
	if c.booted {
		c.mu.Unlock()
		return nil
	}
	c.booted = true
	c.mu.Unlock()

	descriptors := c.catalog.Descriptors()
	var errs []error
	fail := func(d *catalog.Descriptor, err error) {
		c.logger.Warn("failed to load information for type", "type", d.Type, "error", err)
		errs = append(errs, fmt.Errorf("bootstrap %s: %w", d.Type, err))
	}

	for _, d := range descriptors {
		if d.StaticProvider {
			if err := c.bootstrapProvider(d); err != nil {
				fail(d, err)
			}
		}
	}
	for _, d := range descriptors {
		if err := c.bootstrapType(d); err != nil {
			fail(d, err)
		}
	}

	c.logger.Info("bootstrap complete", "types", len(descriptors), "failures", len(errs))
	return errors.Join(errs...)
}

func (c *Container) bootstrapProvider(d *catalog.Descriptor) error {
	v, err := c.root.session().construct(d.Type, false)
	if err != nil {
		return err
	}
	st, ok := v.(store.Store)
	if !ok {
		return fmt.Errorf("%w: %T", ErrNotProvider, v)
	}
	return c.AddProvider(st)
}

func (c *Container) bootstrapType(d *catalog.Descriptor) error {
	t := d.Type
	if t.Kind() == reflect.Interface {
		return nil
	}

	for _, m := range d.Register {
		if len(m.Types) == 0 {
			if err := c.Register(t, t, m.Lifetime); err != nil {
				return err
			}
			continue
		}
		for _, requested := range m.Types {
			if err := c.Register(requested, t, m.Lifetime); err != nil {
				return err
			}
		}
	}

	for _, m := range d.ThroughMostDerived {
		most := c.catalog.MostDerived(t)
		for _, requested := range m.Types {
			if err := c.RegisterHierarchy(requested, most, m.Lifetime); err != nil {
				return err
			}
		}
	}

	if t.Implements(registrarType) {
		c.logger.Debug("registering dependencies", "registrar", t)
		v, err := c.root.session().construct(t, false)
		if err != nil {
			return err
		}
		if err := v.(DependencyRegistrar).RegisterDependencies(c); err != nil {
			return err
		}
	}

	if con := d.Consolidates; con != nil {
		if err := c.AddConsolidator(con.Target, t, con.Merge); err != nil {
			if !errors.Is(err, ErrProviderConflict) {
				return err
			}
			c.logger.Debug("consolidator ignored", "type", t, "error", err)
		}
	}

	if (d.SelfRegistering && !d.MostDerived) || t.Implements(selfRegisteringType) {
		if err := c.Register(t, t, Transient); err != nil {
			return err
		}
	}
	return nil
}
