// Package catalog is a static registry of type descriptors.
//
// Go has no way to enumerate the types of a program at run time, so types
// that take part in auto-registration describe themselves here, usually from
// an init function:
//
//	func init() {
//		catalog.Register[*UserService](
//			catalog.WithConstructor(NewUserService),
//			catalog.RegisterAs(store.Transient, reflect.TypeFor[IUserService]()),
//		)
//	}
package catalog

import (
	"errors"
	"fmt"
	"reflect"
	"slices"
	"sync"
)

var (
	ErrNilType        = errors.New("type must not be nil")
	ErrDuplicateType  = errors.New("type already described in catalog")
	ErrBadConstructor = errors.New("constructor must be a non-variadic function returning the type and an optional error")
	ErrUnknownField   = errors.New("field cannot be injected")
	ErrNotProvider    = errors.New("static provider must implement store.Store")
)

// Catalog holds descriptors in the order they were added.
type Catalog struct {
	mu     sync.RWMutex
	order  []*Descriptor
	byType map[reflect.Type]*Descriptor
	byName map[string]*Descriptor
}

// New returns an empty catalog.
func New() *Catalog {
	return &Catalog{
		byType: make(map[reflect.Type]*Descriptor),
		byName: make(map[string]*Descriptor),
	}
}

// Default is the catalog filled by Register.
var Default = New()

// Register describes T in the Default catalog and panics on error. It is
// meant for init functions.
func Register[T any](opts ...Option) *Descriptor {
	d, err := Default.Add(reflect.TypeFor[T](), opts...)
	if err != nil {
		panic(fmt.Sprintf("catalog: %v", err))
	}
	return d
}

// Add describes t. Options are applied in order.
func (c *Catalog) Add(t reflect.Type, opts ...Option) (*Descriptor, error) {
	if t == nil {
		return nil, ErrNilType
	}
	d := &Descriptor{Type: t}
	for _, opt := range opts {
		if err := opt(d); err != nil {
			return nil, fmt.Errorf("describe %s: %w", t, err)
		}
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if _, exists := c.byType[t]; exists {
		return nil, fmt.Errorf("%w: %s", ErrDuplicateType, t)
	}
	c.byType[t] = d
	c.byName[t.String()] = d
	c.order = append(c.order, d)
	return d, nil
}

// Describe returns the descriptor for t.
func (c *Catalog) Describe(t reflect.Type) (*Descriptor, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	d, ok := c.byType[t]
	return d, ok
}

// Lookup finds a descriptor by the type's string form, e.g. "*model.UserRepo".
func (c *Catalog) Lookup(name string) (*Descriptor, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	d, ok := c.byName[name]
	return d, ok
}

// Descriptors returns a copy of every descriptor in insertion order.
func (c *Catalog) Descriptors() []*Descriptor {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return slices.Clone(c.order)
}

// Len reports how many types are described.
func (c *Catalog) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.order)
}

// Fields returns the injectable fields of t: the declared ones followed by
// tagged fields not already declared. Tag defaults are resolved by name.
func (c *Catalog) Fields(t reflect.Type) []Field {
	var fields []Field
	declared := make(map[string]bool)
	if d, ok := c.Describe(t); ok {
		for _, f := range d.Fields {
			declared[f.Name] = true
			fields = append(fields, f)
		}
	}
	for _, f := range TaggedFields(t) {
		if declared[f.Name] {
			continue
		}
		if f.DefaultName != "" {
			if d, ok := c.Lookup(f.DefaultName); ok && d.Type.AssignableTo(f.Type) {
				f.Default = d.Type
			}
		}
		fields = append(fields, f)
	}
	return fields
}

// Parent returns the first exported embedded struct of t, or nil. For a
// pointer t an embedded struct value is reported as a pointer to it.
func Parent(t reflect.Type) reflect.Type {
	ptr := t.Kind() == reflect.Pointer
	st, ok := structOf(t)
	if !ok {
		return nil
	}
	for i := range st.NumField() {
		f := st.Field(i)
		if !f.Anonymous || !f.IsExported() {
			continue
		}
		switch {
		case f.Type.Kind() == reflect.Struct:
			if ptr {
				return reflect.PointerTo(f.Type)
			}
			return f.Type
		case f.Type.Kind() == reflect.Pointer && f.Type.Elem().Kind() == reflect.Struct:
			return f.Type
		}
	}
	return nil
}

// Chain returns t, its embedded ancestors nearest first, then the declared
// bases of each of those in the same order. Every type appears once.
func (c *Catalog) Chain(t reflect.Type) []reflect.Type {
	var (
		chain []reflect.Type
		bases []reflect.Type
		seen  = make(map[reflect.Type]bool)
	)
	for cur := t; cur != nil && !seen[cur]; cur = Parent(cur) {
		seen[cur] = true
		chain = append(chain, cur)
		if d, ok := c.Describe(cur); ok {
			bases = append(bases, d.Bases...)
		}
	}
	for _, b := range bases {
		if !seen[b] {
			seen[b] = true
			chain = append(chain, b)
		}
	}
	return chain
}

// MostDerived returns the described concrete type that has t furthest up its
// chain. Ties go to the type described first. t itself is returned when no
// other described type derives from it.
func (c *Catalog) MostDerived(t reflect.Type) reflect.Type {
	best, depth := t, 0
	for _, d := range c.Descriptors() {
		if d.Type.Kind() == reflect.Interface {
			continue
		}
		if i := slices.Index(c.Chain(d.Type), t); i > depth {
			best, depth = d.Type, i
		}
	}
	return best
}

// Instantiation finds the described type sharing shape's generic definition
// and instantiated with args.
func (c *Catalog) Instantiation(shape Shape, args []string) (reflect.Type, bool) {
	key := shape.Key()
	for _, d := range c.Descriptors() {
		s, ok := ShapeOf(d.Type)
		if ok && s.Key() == key && slices.Equal(s.Args, args) {
			return d.Type, true
		}
	}
	return nil, false
}

// Reset removes every descriptor.
func (c *Catalog) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.order = nil
	c.byType = make(map[reflect.Type]*Descriptor)
	c.byName = make(map[string]*Descriptor)
}
