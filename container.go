package graft

import (
	"fmt"
	"log/slog"
	"reflect"
	"sync"
	"sync/atomic"

	"github.com/Ngone6325/graft/catalog"
	"github.com/Ngone6325/graft/config"
	"github.com/Ngone6325/graft/deferred"
	"github.com/Ngone6325/graft/store"
)

var resolverType = reflect.TypeFor[Resolver]()

type consolidator struct {
	impl  reflect.Type
	merge deferred.MergeFunc
}

// Container owns the registration table, the consolidator mapping, the
// singleton store and every static provider. Resolutions run on an Engine:
// the container's root engine, or the engine of a Scope.
//
// Bootstrap should complete before the first resolution. Reset restores an
// empty container for tests.
type Container struct {
	table      *table
	catalog    *catalog.Catalog
	singletons *store.SingletonStore
	logger     *slog.Logger
	detect     atomic.Bool
	cacheSize  int

	mu            sync.RWMutex
	consolidators map[reflect.Type]consolidator
	providers     map[Lifetime]store.Store
	booted        bool

	fields sync.Map // reflect.Type -> []catalog.Field
	root   *Engine
}

// Option configures a Container.
type Option func(c *Container)

// WithLogger sets the logger used for registration and bootstrap events.
func WithLogger(l *slog.Logger) Option {
	return func(c *Container) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithCatalog sets the type catalog used for bootstrap, constructors and
// generic specialization. catalog.Default is used otherwise.
func WithCatalog(cat *catalog.Catalog) Option {
	return func(c *Container) {
		if cat != nil {
			c.catalog = cat
		}
	}
}

// WithCircularDetection enables the in-flight stack that turns dependency
// cycles into errors. Without it a cycle recurses until the stack overflows.
func WithCircularDetection(on bool) Option {
	return func(c *Container) { c.detect.Store(on) }
}

// WithCacheSize bounds the resolvability cache.
func WithCacheSize(n int) Option {
	return func(c *Container) {
		if n > 0 {
			c.cacheSize = n
		}
	}
}

// WithConfig applies the engine section of a loaded configuration.
func WithConfig(cfg config.Config) Option {
	return func(c *Container) {
		WithCircularDetection(cfg.DetectCircularResolution)(c)
		WithCacheSize(cfg.ResolvableCacheSize)(c)
	}
}

// NewContainer creates an empty container. The Resolver type is always
// registered and resolves to the engine doing the resolving.
func NewContainer(opts ...Option) *Container {
	c := &Container{
		catalog:    catalog.Default,
		singletons: store.NewSingleton(),
		logger:     slog.Default().With("component", "graft"),
		cacheSize:  config.DefaultResolvableCacheSize,
	}
	for _, opt := range opts {
		opt(c)
	}
	tb, err := newTable(c.cacheSize)
	if err != nil {
		panic(fmt.Sprintf("graft: %v", err))
	}
	c.table = tb
	c.root = &Engine{c: c}
	c.init()
	return c
}

func (c *Container) init() {
	c.mu.Lock()
	c.consolidators = make(map[reflect.Type]consolidator)
	c.providers = make(map[Lifetime]store.Store)
	c.booted = false
	c.mu.Unlock()

	c.table.add(resolverType, Registration{
		Requested:      resolverType,
		Implementation: resolverType,
		Lifetime:       Transient,
		Factory: func(r Resolver) (any, error) {
			if s, ok := r.(*session); ok {
				return s.engine, nil
			}
			return r, nil
		},
	})
}

// Reset clears every registration, consolidator, static provider and
// singleton instance. The catalog is left untouched.
func (c *Container) Reset() {
	c.table.reset()
	c.singletons.Reset()
	c.fields.Clear()
	c.init()
}

// Catalog returns the container's type catalog.
func (c *Container) Catalog() *catalog.Catalog { return c.catalog }

// Logger returns the container's logger.
func (c *Container) Logger() *slog.Logger { return c.logger }

// Root returns the engine resolving outside of any scope.
func (c *Container) Root() *Engine { return c.root }

// SetDetectCircularResolution toggles cycle detection for resolutions that
// start after the call.
func (c *Container) SetDetectCircularResolution(on bool) { c.detect.Store(on) }

// DetectCircularResolution reports whether cycle detection is enabled.
func (c *Container) DetectCircularResolution() bool { return c.detect.Load() }

// Registrations returns a copy of the exact registrations, newest first per type.
func (c *Container) Registrations() map[reflect.Type][]Registration {
	exact, _ := c.table.snapshot()
	return exact
}

// OpenRegistrations returns a copy of every open generic registration.
func (c *Container) OpenRegistrations() []Registration {
	_, open := c.table.snapshot()
	return open
}

// Consolidators returns a copy of the consolidated type to consolidator mapping.
func (c *Container) Consolidators() map[reflect.Type]reflect.Type {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make(map[reflect.Type]reflect.Type, len(c.consolidators))
	for t, con := range c.consolidators {
		out[t] = con.impl
	}
	return out
}

// AddProvider serves s for its lifetime in every engine of the container.
// Builtin lifetimes cannot be replaced.
func (c *Container) AddProvider(s store.Store) error {
	if s == nil {
		return ErrNotProvider
	}
	lt := s.Lifetime()
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, exists := c.providers[lt]; exists || lt.Builtin() {
		return fmt.Errorf("%w: %s", ErrProviderConflict, lt)
	}
	c.providers[lt] = s
	c.logger.Debug("added static provider", "lifetime", lt, "provider", fmt.Sprintf("%T", s))
	return nil
}

func (c *Container) provider(lt Lifetime) (store.Store, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	s, ok := c.providers[lt]
	return s, ok
}

func (c *Container) checkLifetime(lt Lifetime) error {
	if lt.Builtin() {
		return nil
	}
	if _, ok := c.provider(lt); ok {
		return nil
	}
	return fmt.Errorf("%w: %s", ErrInvalidLifetime, lt)
}

// AddConsolidator makes impl merge every registration of target into one
// value. The first consolidator added for a target wins; later ones are
// reported with ErrProviderConflict.
func (c *Container) AddConsolidator(target, impl reflect.Type, merge deferred.MergeFunc) error {
	if target == nil || impl == nil {
		return ErrNilType
	}
	if merge == nil {
		return fmt.Errorf("%w: %s has no merge function", ErrNotConsolidator, impl)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if existing, ok := c.consolidators[target]; ok {
		return fmt.Errorf("%w: %s already consolidated by %s", ErrProviderConflict, target, existing.impl)
	}
	c.consolidators[target] = consolidator{impl: impl, merge: merge}
	c.table.invalidate(target)
	return nil
}

func (c *Container) consolidator(t reflect.Type) (consolidator, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	con, ok := c.consolidators[t]
	return con, ok
}

// Resolve resolves t from the root engine.
func (c *Container) Resolve(t reflect.Type) (any, error) { return c.root.Resolve(t) }

// ResolveOptional resolves t from the root engine, returning nil when t
// cannot be produced.
func (c *Container) ResolveOptional(t reflect.Type) (any, error) { return c.root.ResolveOptional(t) }

// ResolveMany resolves every registration of t from the root engine.
func (c *Container) ResolveMany(t reflect.Type) ([]any, error) { return c.root.ResolveMany(t) }

// ResolveProperties injects the marked fields of v from the root engine.
func (c *Container) ResolveProperties(v any) (any, error) { return c.root.ResolveProperties(v) }
