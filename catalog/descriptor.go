package catalog

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/Ngone6325/graft/deferred"
	"github.com/Ngone6325/graft/store"
)

var errorType = reflect.TypeFor[error]()

// Descriptor is everything the container knows about a type without
// scanning for it: how to construct it, which fields to inject and which
// auto-registration markers it carries.
type Descriptor struct {
	Type reflect.Type

	// Constructors in declaration order. Empty means the zero value of the
	// type (or a pointer to one) is used.
	Constructors []Constructor
	// Fields are injected after construction.
	Fields []Field
	// Bases are additional types the hierarchy walk treats as ancestors,
	// after the embedded struct chain.
	Bases []reflect.Type

	// Register registers the type under each marker's types, or itself.
	Register []Marker
	// ThroughMostDerived registers each marker's types to the most derived
	// described type embedding this one.
	ThroughMostDerived []Marker
	// SelfRegistering types resolve to themselves without a registration.
	SelfRegistering bool
	// MostDerived self-registering types resolve to their most derived descendant.
	MostDerived bool
	// StaticProvider types are stores served by every engine of a container.
	StaticProvider bool
	// Consolidates is set when the type merges all registrations of a target.
	Consolidates *Consolidation
}

func (d *Descriptor) String() string {
	return d.Type.String()
}

// Constructor is a function producing the described type.
type Constructor struct {
	Func     reflect.Value
	Params   []reflect.Type
	Optional []bool
	// Fallible constructors return (T, error).
	Fallible bool
}

// Signature renders the constructor's function type.
func (c Constructor) Signature() string {
	if !c.Func.IsValid() {
		return "func()"
	}
	return c.Func.Type().String()
}

// Field is a struct field filled by property injection.
type Field struct {
	Name  string
	Index []int
	Type  reflect.Type
	// Default is built when nothing is registered for Type.
	Default reflect.Type
	// DefaultName names Default by its type string when it comes from a tag.
	DefaultName string
}

// Marker is one auto-registration instruction.
type Marker struct {
	Lifetime store.Lifetime
	Types    []reflect.Type
}

// Consolidation ties a consolidator to the type it merges.
type Consolidation struct {
	Target reflect.Type
	Merge  deferred.MergeFunc
}

// Option configures a Descriptor when it is added to a catalog.
type Option func(d *Descriptor) error

// WithConstructor declares fn as a constructor. fn must return the described
// type, optionally followed by an error. The indices in optional mark
// parameters that get their zero value when they cannot be resolved.
func WithConstructor(fn any, optional ...int) Option {
	return func(d *Descriptor) error {
		v := reflect.ValueOf(fn)
		if v.Kind() != reflect.Func || v.IsNil() {
			return fmt.Errorf("%w: %T is not a function", ErrBadConstructor, fn)
		}
		ft := v.Type()
		if ft.IsVariadic() {
			return fmt.Errorf("%w: %s is variadic", ErrBadConstructor, ft)
		}

		c := Constructor{Func: v}
		switch ft.NumOut() {
		case 1:
		case 2:
			if ft.Out(1) != errorType {
				return fmt.Errorf("%w: second result of %s must be error", ErrBadConstructor, ft)
			}
			c.Fallible = true
		default:
			return fmt.Errorf("%w: %s must return %s", ErrBadConstructor, ft, d.Type)
		}
		if !ft.Out(0).AssignableTo(d.Type) {
			return fmt.Errorf("%w: %s does not return %s", ErrBadConstructor, ft, d.Type)
		}

		c.Params = make([]reflect.Type, ft.NumIn())
		c.Optional = make([]bool, ft.NumIn())
		for i := range c.Params {
			c.Params[i] = ft.In(i)
		}
		for _, i := range optional {
			if i < 0 || i >= len(c.Params) {
				return fmt.Errorf("%w: optional parameter %d out of range for %s", ErrBadConstructor, i, ft)
			}
			c.Optional[i] = true
		}
		d.Constructors = append(d.Constructors, c)
		return nil
	}
}

// WithField marks an exported field for property injection.
func WithField(name string) Option {
	return WithFieldDefault(name, nil)
}

// WithFieldDefault marks a field for injection and names the type to build
// when nothing is registered for the field's type.
func WithFieldDefault(name string, def reflect.Type) Option {
	return func(d *Descriptor) error {
		f, err := structField(d.Type, name)
		if err != nil {
			return err
		}
		if def != nil && !def.AssignableTo(f.Type) {
			return fmt.Errorf("%w: default %s is not assignable to %s.%s", ErrUnknownField, def, d.Type, name)
		}
		d.Fields = append(d.Fields, Field{Name: f.Name, Index: f.Index, Type: f.Type, Default: def})
		return nil
	}
}

// WithBases declares extra ancestors, typically interfaces, for hierarchy walks.
func WithBases(bases ...reflect.Type) Option {
	return func(d *Descriptor) error {
		for _, b := range bases {
			if b == nil {
				return ErrNilType
			}
		}
		d.Bases = append(d.Bases, bases...)
		return nil
	}
}

// RegisterAs registers the type under each of types, or under itself when
// none are given.
func RegisterAs(lt store.Lifetime, types ...reflect.Type) Option {
	return func(d *Descriptor) error {
		for _, t := range types {
			if t == nil {
				return ErrNilType
			}
		}
		d.Register = append(d.Register, Marker{Lifetime: lt, Types: types})
		return nil
	}
}

// RegisterThroughMostDerived registers every type from the most derived
// descendant of the described type up to requested.
func RegisterThroughMostDerived(requested reflect.Type, lt store.Lifetime) Option {
	return func(d *Descriptor) error {
		if requested == nil {
			return ErrNilType
		}
		d.ThroughMostDerived = append(d.ThroughMostDerived, Marker{Lifetime: lt, Types: []reflect.Type{requested}})
		return nil
	}
}

// SelfRegistering lets the type resolve to itself on first use.
func SelfRegistering() Option {
	return func(d *Descriptor) error {
		d.SelfRegistering = true
		return nil
	}
}

// RegisterMostDerived makes a self-registering type resolve to its most
// derived descendant instead of itself.
func RegisterMostDerived() Option {
	return func(d *Descriptor) error {
		d.SelfRegistering = true
		d.MostDerived = true
		return nil
	}
}

// StaticProvider marks a store.Store implementation to be served by every
// engine for its lifetime.
func StaticProvider() Option {
	return func(d *Descriptor) error {
		if !d.Type.Implements(reflect.TypeFor[store.Store]()) {
			return fmt.Errorf("%w: %s does not implement store.Store", ErrNotProvider, d.Type)
		}
		d.StaticProvider = true
		return nil
	}
}

// Consolidates marks the type as the consolidator for T.
func Consolidates[T any]() Option {
	return func(d *Descriptor) error {
		want := reflect.TypeFor[deferred.Consolidator[T]]()
		if !d.Type.Implements(want) {
			return fmt.Errorf("%w: %s does not implement %s", deferred.ErrNotConsolidator, d.Type, want)
		}
		d.Consolidates = &Consolidation{Target: reflect.TypeFor[T](), Merge: deferred.Merger[T]()}
		return nil
	}
}

func structOf(t reflect.Type) (reflect.Type, bool) {
	if t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	return t, t.Kind() == reflect.Struct
}

func structField(t reflect.Type, name string) (reflect.StructField, error) {
	st, ok := structOf(t)
	if !ok {
		return reflect.StructField{}, fmt.Errorf("%w: %s is not a struct", ErrUnknownField, t)
	}
	f, ok := st.FieldByName(name)
	if !ok {
		return reflect.StructField{}, fmt.Errorf("%w: %s has no field %s", ErrUnknownField, t, name)
	}
	if !f.IsExported() {
		return reflect.StructField{}, fmt.Errorf("%w: %s.%s is not exported", ErrUnknownField, t, name)
	}
	return f, nil
}

// TaggedFields returns the fields of t carrying an `inject` tag. The tag
// value may name a default type as `default=<type string>`.
func TaggedFields(t reflect.Type) []Field {
	st, ok := structOf(t)
	if !ok {
		return nil
	}
	var fields []Field
	for _, f := range reflect.VisibleFields(st) {
		tag, ok := f.Tag.Lookup("inject")
		if !ok || !f.IsExported() {
			continue
		}
		field := Field{Name: f.Name, Index: f.Index, Type: f.Type}
		for _, opt := range strings.Split(tag, ",") {
			if name, ok := strings.CutPrefix(strings.TrimSpace(opt), "default="); ok {
				field.DefaultName = name
			}
		}
		fields = append(fields, field)
	}
	return fields
}
