package graft

import (
	"reflect"
	"sort"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"github.com/Ngone6325/graft/config"
	"github.com/Ngone6325/graft/store"
)

// TestNewContainer tests container creation
func TestNewContainer(t *testing.T) {
	c, _ := newTestContainer(t)
	require.NotNil(t, c)
	assert.NotNil(t, c.Root())
	assert.NotNil(t, c.Logger())
	assert.False(t, c.DetectCircularResolution())
	assert.True(t, c.IsRegistered(typeOf[Resolver]()), "resolver is always registered")
}

// TestWithConfig tests that a loaded configuration reaches the engine
func TestWithConfig(t *testing.T) {
	cfg := config.Default()
	cfg.DetectCircularResolution = true
	cfg.ResolvableCacheSize = 16

	c := NewContainer(WithConfig(cfg))
	assert.True(t, c.DetectCircularResolution())
	assert.Equal(t, 16, c.cacheSize)

	c.SetDetectCircularResolution(false)
	assert.False(t, c.DetectCircularResolution())
}

// TestTransientLifetime tests that every resolution builds a new instance
func TestTransientLifetime(t *testing.T) {
	c, _ := newTestContainer(t)
	require.NoError(t, RegisterType[Greeter, *EnglishGreeter](c, Transient))

	first, err := Resolve[Greeter](c)
	require.NoError(t, err)
	second, err := Resolve[Greeter](c)
	require.NoError(t, err)

	assert.IsType(t, &EnglishGreeter{}, first)
	assert.NotSame(t, first, second)
}

// TestSingletonLifetime tests singleton identity across goroutines
func TestSingletonLifetime(t *testing.T) {
	c, _ := newTestContainer(t)
	require.NoError(t, RegisterType[Greeter, *EnglishGreeter](c, Singleton))

	const workers = 32
	got := make([]Greeter, workers)
	var g errgroup.Group
	for i := range workers {
		g.Go(func() error {
			v, err := Resolve[Greeter](c)
			got[i] = v
			return err
		})
	}
	require.NoError(t, g.Wait())

	for _, v := range got[1:] {
		assert.Same(t, got[0], v)
	}

	s := c.BeginScope()
	defer s.End()
	fromScope, err := Resolve[Greeter](s)
	require.NoError(t, err)
	assert.Same(t, got[0], fromScope, "scopes share singletons")
}

// TestScopedLifetime tests per-scope identity and disposal
func TestScopedLifetime(t *testing.T) {
	c, _ := newTestContainer(t)
	require.NoError(t, RegisterType[*Closable, *Closable](c, Scoped))

	s1 := c.BeginScope()
	a, err := Resolve[*Closable](s1)
	require.NoError(t, err)
	b, err := Resolve[*Closable](s1)
	require.NoError(t, err)
	assert.Same(t, a, b)

	s2 := c.BeginScope()
	other, err := Resolve[*Closable](s2)
	require.NoError(t, err)
	assert.NotSame(t, a, other)
	assert.NotEqual(t, s1.ID(), s2.ID())

	require.NoError(t, s1.End())
	require.NoError(t, s1.End())
	assert.True(t, s1.Ended())
	assert.Equal(t, 1, a.Closed)
	assert.Equal(t, 0, other.Closed)

	_, err = Resolve[*Closable](s1)
	assert.ErrorIs(t, err, ErrScopeEnded)
	_, err = s1.ResolveMany(typeOf[*Closable]())
	assert.ErrorIs(t, err, ErrScopeEnded)
	_, err = s1.ResolveOptional(typeOf[*Closable]())
	assert.ErrorIs(t, err, ErrScopeEnded)
	_, err = s1.ResolveProperties(&Injected{})
	assert.ErrorIs(t, err, ErrScopeEnded)

	require.NoError(t, s2.End())
	assert.Equal(t, 1, other.Closed)
}

// TestScopedOnRoot tests that scoped registrations resolve as transient outside a scope
func TestScopedOnRoot(t *testing.T) {
	c, _ := newTestContainer(t)
	require.NoError(t, RegisterType[*Closable, *Closable](c, Scoped))

	a, err := Resolve[*Closable](c)
	require.NoError(t, err)
	b, err := Resolve[*Closable](c)
	require.NoError(t, err)
	assert.NotSame(t, a, b)
}

// TestStaticProvider tests custom lifetimes served by a registered store
func TestStaticProvider(t *testing.T) {
	c, _ := newTestContainer(t)
	custom := Lifetime(7)

	err := RegisterType[*Zeta, *Zeta](c, custom)
	assert.ErrorIs(t, err, ErrInvalidLifetime)

	provider := countingStore{SingletonStore: store.NewSingleton(), lt: custom}
	require.NoError(t, c.AddProvider(provider))
	assert.ErrorIs(t, c.AddProvider(provider), ErrProviderConflict)
	assert.ErrorIs(t, c.AddProvider(store.NewSingleton()), ErrProviderConflict)
	assert.ErrorIs(t, c.AddProvider(nil), ErrNotProvider)

	require.NoError(t, RegisterType[*Zeta, *Zeta](c, custom))
	first, err := Resolve[*Zeta](c)
	require.NoError(t, err)
	second, err := Resolve[*Zeta](c.BeginScope())
	require.NoError(t, err)
	assert.Same(t, first, second)
	assert.Len(t, provider.Get(typeOf[*Zeta]()), 1)

	inst := &User{Name: "kept"}
	require.NoError(t, c.RegisterInstance(typeOf[*User](), inst, custom))
	got, err := Resolve[*User](c)
	require.NoError(t, err)
	assert.Same(t, inst, got)
}

// TestRegisterErrors tests synchronous registration failures
func TestRegisterErrors(t *testing.T) {
	c, _ := newTestContainer(t)

	tests := []struct {
		name string
		err  error
		want error
	}{
		{"nil requested", c.Register(nil, nil, Transient), ErrNilType},
		{"not assignable", RegisterType[Greeter, *Zeta](c, Transient), ErrNotAssignable},
		{"unknown lifetime", RegisterType[*Zeta, *Zeta](c, Lifetime(42)), ErrInvalidLifetime},
		{"nil factory", c.RegisterFactory(typeOf[*Zeta](), nil, Transient), ErrBadConstructor},
		{"nil typed factory", RegisterFunc[*Zeta](c, nil, Transient), ErrBadConstructor},
		{"open not generic", c.RegisterOpen(typeOf[*Zeta](), nil, Transient), ErrNotOpenGeneric},
		{"open arity", c.RegisterOpen(typeOf[Repository[User]](), typeOf[*Zeta](), Transient), ErrNotOpenGeneric},
		{"not in hierarchy", RegisterHierarchyOf[*Zeta, *Derived](c, Singleton), ErrNotInHierarchy},
		{"nil instance", c.RegisterInstance(typeOf[*Zeta](), (*Zeta)(nil), Singleton), ErrNilInstance},
		{"transient instance", c.RegisterInstance(typeOf[*Zeta](), &Zeta{}, Transient), ErrInstanceLifetime},
		{"scoped instance", c.RegisterInstance(typeOf[*Zeta](), &Zeta{}, Scoped), ErrInstanceLifetime},
		{"instance not assignable", c.RegisterInstance(typeOf[Greeter](), &Zeta{}, Singleton), ErrNotAssignable},
		{"consolidator without merge", c.AddConsolidator(typeOf[Greeter](), typeOf[*chorus](), nil), ErrNotConsolidator},
		{"not a consolidator", RegisterConsolidator[Greeter](c, typeOf[*Zeta]()), ErrNotConsolidator},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorIs(t, tt.err, tt.want)
		})
	}
	assert.False(t, IsRegisteredType[*Zeta](c))
	assert.False(t, IsRegisteredType[Greeter](c))
}

// TestRegistrations tests the registration snapshot
func TestRegistrations(t *testing.T) {
	c, _ := newTestContainer(t)
	require.NoError(t, RegisterType[Greeter, *EnglishGreeter](c, Transient))
	require.NoError(t, RegisterType[Greeter, *FrenchGreeter](c, Singleton))
	require.NoError(t, RegisterFunc(c, func(Resolver) (*Zeta, error) { return &Zeta{}, nil }, Scoped))
	require.NoError(t, c.RegisterOpen(typeOf[Repository[any]](), typeOf[*memoryRepository[any]](), Singleton))

	got := make(map[string][]string)
	for typ, regs := range c.Registrations() {
		for _, r := range regs {
			got[typ.String()] = append(got[typ.String()], r.String())
		}
	}
	want := map[string][]string{
		"graft.Resolver": {"graft.Resolver => factory (transient)"},
		"graft.Greeter": {
			"graft.Greeter => *graft.FrenchGreeter (singleton)",
			"graft.Greeter => *graft.EnglishGreeter (transient)",
		},
		"*graft.Zeta": {"*graft.Zeta => factory (scoped)"},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Registrations() mismatch (-want +got):\n%s", diff)
	}

	open := c.OpenRegistrations()
	require.Len(t, open, 1)
	assert.True(t, open[0].Open())
	assert.Contains(t, open[0].String(), "[open]")

	// The snapshot is a copy.
	c.Registrations()[typeOf[Greeter]()][0] = Registration{}
	assert.Len(t, c.Registrations()[typeOf[Greeter]()], 2)
	assert.Equal(t, typeOf[*FrenchGreeter](), c.Registrations()[typeOf[Greeter]()][0].Implementation)
}

// TestUnregister tests removing registrations
func TestUnregister(t *testing.T) {
	c, _ := newTestContainer(t)
	require.NoError(t, RegisterType[Greeter, *EnglishGreeter](c, Transient))
	_, err := Resolve[Greeter](c)
	require.NoError(t, err)

	assert.True(t, UnregisterType[Greeter](c))
	assert.False(t, IsRegisteredType[Greeter](c))
	assert.False(t, UnregisterType[Greeter](c))
	assert.False(t, c.Unregister(nil))

	_, err = Resolve[Greeter](c)
	assert.ErrorIs(t, err, ErrNotResolvable)

	require.NoError(t, c.RegisterOpen(typeOf[Repository[any]](), typeOf[*memoryRepository[any]](), Transient))
	assert.True(t, c.UnregisterOpen(typeOf[Repository[string]]()))
	assert.False(t, c.UnregisterOpen(typeOf[Repository[string]]()))
	assert.False(t, c.UnregisterOpen(typeOf[*Zeta]()))
	assert.Empty(t, c.OpenRegistrations())
}

// TestReset tests that Reset empties the container
func TestReset(t *testing.T) {
	c, _ := newTestContainer(t)
	require.NoError(t, RegisterType[Greeter, *EnglishGreeter](c, Singleton))
	require.NoError(t, RegisterConsolidator[Greeter](c, typeOf[*chorus]()))
	require.NoError(t, c.AddProvider(countingStore{SingletonStore: store.NewSingleton(), lt: Lifetime(9)}))
	_, err := Resolve[Greeter](c)
	require.NoError(t, err)

	c.Reset()

	assert.False(t, IsRegisteredType[Greeter](c))
	assert.Empty(t, c.Consolidators())
	assert.Empty(t, c.singletons.Keys())
	assert.ErrorIs(t, RegisterType[*Zeta, *Zeta](c, Lifetime(9)), ErrInvalidLifetime)
	assert.True(t, IsRegisteredType[Resolver](c))
}

// TestConcurrentRegisterResolve tests registering while resolving
func TestConcurrentRegisterResolve(t *testing.T) {
	c, _ := newTestContainer(t)
	require.NoError(t, RegisterType[Greeter, *EnglishGreeter](c, Transient))

	var g errgroup.Group
	for range 8 {
		g.Go(func() error {
			return RegisterType[Greeter, *FrenchGreeter](c, Transient)
		})
		g.Go(func() error {
			_, err := Resolve[Greeter](c)
			return err
		})
		g.Go(func() error {
			_, err := ResolveAll[Greeter](c)
			return err
		})
	}
	require.NoError(t, g.Wait())

	all, err := ResolveAll[Greeter](c)
	require.NoError(t, err)
	assert.Len(t, all, 9)
}

// TestConsolidatorsSnapshot tests that the first consolidator for a type wins
func TestConsolidatorsSnapshot(t *testing.T) {
	c, _ := newTestContainer(t)
	require.NoError(t, RegisterConsolidator[Greeter](c, typeOf[*chorus]()))
	err := RegisterConsolidator[Greeter](c, typeOf[*strictChorus]())
	assert.ErrorIs(t, err, ErrProviderConflict)

	got := c.Consolidators()
	keys := make([]string, 0, len(got))
	for k := range got {
		keys = append(keys, k.String())
	}
	sort.Strings(keys)
	assert.Equal(t, []string{"graft.Greeter"}, keys)
	assert.Equal(t, reflect.TypeFor[*chorus](), got[typeOf[Greeter]()])
}
