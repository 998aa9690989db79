package graft

import (
	"errors"
	"reflect"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Ngone6325/graft/catalog"
	"github.com/Ngone6325/graft/deferred"
	"github.com/Ngone6325/graft/store"
)

// Test interfaces
type Greeter interface {
	Greet() string
}

type Describer interface {
	Describe() string
}

// Test implementations
type EnglishGreeter struct {
	Name string
}

func (g *EnglishGreeter) Greet() string { return "hello " + g.Name }

type FrenchGreeter struct {
	Name string
}

func (g *FrenchGreeter) Greet() string { return "bonjour " + g.Name }

type Zeta struct {
	Value int
}

type Service struct {
	Zeta     *Zeta
	Greeter  Greeter
	Selected string
}

func NewService(z *Zeta) *Service { return &Service{Zeta: z, Selected: "zeta"} }

func NewServiceWithGreeter(z *Zeta, g Greeter) *Service {
	return &Service{Zeta: z, Greeter: g, Selected: "zeta+greeter"}
}

// Loop needs a Greeter and is registered as one.
type Loop struct {
	Next Greeter
}

func NewLoop(next Greeter) *Loop { return &Loop{Next: next} }

func (l *Loop) Greet() string { return "loop" }

// Hierarchy: Derived embeds Mid embeds Base.
type Base struct {
	ID int
}

type Mid struct {
	Base
	Label string
}

type Derived struct {
	Mid
	Extra string
}

func (d *Derived) Describe() string { return "derived" }

// Closable records how often it is closed.
type Closable struct {
	Closed int
}

func (c *Closable) Close() error {
	c.Closed++
	return nil
}

// Injected has tagged fields for property injection.
type Injected struct {
	Greeter  Greeter `inject:""`
	Optional Describer `inject:""`
	Plain    Greeter
}

// chorus consolidates every Greeter into one.
type chorus struct {
	greeters []Greeter
}

func (c *chorus) Greet() string {
	parts := make([]string, len(c.greeters))
	for i, g := range c.greeters {
		parts[i] = g.Greet()
	}
	return strings.Join(parts, " | ")
}

func (*chorus) Consolidate(items deferred.Seq[Greeter]) (Greeter, error) {
	all, err := items.Values()
	if err != nil {
		return nil, err
	}
	return &chorus{greeters: all}, nil
}

// Generic repository for open registrations.
type Repository[T any] interface {
	Get() T
}

type memoryRepository[T any] struct {
	item T
}

func (r *memoryRepository[T]) Get() T { return r.item }

type User struct {
	Name string
}

// auto registers itself on first use.
type auto struct {
	N int
}

func (auto) SelfRegistering() {}

// countingStore is a custom lifetime provider.
type countingStore struct {
	*store.SingletonStore
	lt Lifetime
}

func (s countingStore) Lifetime() Lifetime { return s.lt }

var errBoom = errors.New("boom")

func typeOf[T any]() reflect.Type { return reflect.TypeFor[T]() }

// newTestContainer returns a container with an empty private catalog.
func newTestContainer(t *testing.T, opts ...Option) (*Container, *catalog.Catalog) {
	t.Helper()
	cat := catalog.New()
	opts = append([]Option{WithCatalog(cat)}, opts...)
	return NewContainer(opts...), cat
}

func describe(t *testing.T, cat *catalog.Catalog, typ reflect.Type, opts ...catalog.Option) {
	t.Helper()
	_, err := cat.Add(typ, opts...)
	require.NoError(t, err)
}

// strictChorus can only be built when a *Zeta is registered.
type strictChorus struct {
	zeta *Zeta
}

func newStrictChorus(z *Zeta) *strictChorus { return &strictChorus{zeta: z} }

func (*strictChorus) Consolidate(items deferred.Seq[Greeter]) (Greeter, error) {
	all, err := items.Values()
	if err != nil {
		return nil, err
	}
	return &chorus{greeters: all}, nil
}

// needy implements Greeter but needs a *Zeta to be built.
type needy struct {
	zeta *Zeta
}

func newNeedy(z *Zeta) *needy { return &needy{zeta: z} }

func (*needy) Greet() string { return "needy" }

// pair receives two Greeters in one resolution.
type pair struct {
	A, B Greeter
}

func newPair(a, b Greeter) *pair { return &pair{A: a, B: b} }
