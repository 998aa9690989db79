// Package deferred provides lazily evaluated resolution lists used by
// consolidators to merge every registration of a type into one value.
//
// Each item computes at most once. Asking for an item while it is still being
// computed fails with ErrReentrant instead of recursing. A List belongs to a
// single resolution and is evaluated on the goroutine running it.
package deferred

import (
	"errors"
	"fmt"
	"iter"
	"reflect"
	"sync"
)

var (
	// ErrReentrant is returned when an item is requested while it is computing.
	ErrReentrant = errors.New("deferred item requested while it is being resolved")
	// ErrTypeMismatch is returned when an item does not hold the list's element type.
	ErrTypeMismatch = errors.New("deferred item has unexpected type")
	// ErrNotConsolidator is returned when a merge target does not consolidate the element type.
	ErrNotConsolidator = errors.New("value does not consolidate the requested type")
)

type state uint8

const (
	unresolved state = iota
	resolving
	resolved
)

// item is one lazily computed element.
type item struct {
	mu    sync.Mutex
	state state
	fn    func() (any, error)
	val   any
	err   error
}

func (it *item) value() (any, error) {
	it.mu.Lock()
	switch it.state {
	case resolved:
		it.mu.Unlock()
		return it.val, it.err
	case resolving:
		it.mu.Unlock()
		return nil, ErrReentrant
	}
	it.state = resolving
	fn := it.fn
	it.mu.Unlock()

	val, err := fn()

	it.mu.Lock()
	it.state, it.val, it.err, it.fn = resolved, val, err, nil
	it.mu.Unlock()
	return val, err
}

func (it *item) inFlight() bool {
	it.mu.Lock()
	defer it.mu.Unlock()
	return it.state == resolving
}

// List is an untyped list of deferred resolutions.
type List struct {
	items []*item
}

// NewList returns a list evaluating fns on demand, in order.
func NewList(fns ...func() (any, error)) *List {
	l := &List{items: make([]*item, 0, len(fns))}
	for _, fn := range fns {
		l.Add(fn)
	}
	return l
}

// Add appends a deferred resolution. It must not race with evaluation.
func (l *List) Add(fn func() (any, error)) {
	l.items = append(l.items, &item{fn: fn})
}

// Len returns the number of items, evaluated or not.
func (l *List) Len() int { return len(l.items) }

// At evaluates item i, computing it on first use.
func (l *List) At(i int) (any, error) {
	if i < 0 || i >= len(l.items) {
		return nil, fmt.Errorf("deferred: index %d out of range [0,%d)", i, len(l.items))
	}
	return l.items[i].value()
}

// All evaluates items in order. Items that are being computed further up the
// call stack are skipped rather than failing the iteration.
func (l *List) All() iter.Seq2[any, error] {
	return func(yield func(any, error) bool) {
		for _, it := range l.items {
			if it.inFlight() {
				continue
			}
			v, err := it.value()
			if !yield(v, err) {
				return
			}
		}
	}
}

// Seq is a typed view over a List.
type Seq[T any] struct {
	l *List
}

// Typed returns a view of l whose items are asserted to T.
func Typed[T any](l *List) Seq[T] {
	return Seq[T]{l: l}
}

// Len returns the number of items.
func (s Seq[T]) Len() int {
	if s.l == nil {
		return 0
	}
	return s.l.Len()
}

// At evaluates item i. A nil item yields the zero T.
func (s Seq[T]) At(i int) (T, error) {
	var zero T
	if s.l == nil {
		return zero, fmt.Errorf("deferred: index %d out of range [0,0)", i)
	}
	v, err := s.l.At(i)
	if err != nil {
		return zero, err
	}
	return as[T](v)
}

// All yields every item that resolved to a non-nil value, skipping items that
// are in flight. Errors are yielded with the zero T.
func (s Seq[T]) All() iter.Seq2[T, error] {
	return func(yield func(T, error) bool) {
		if s.l == nil {
			return
		}
		for v, err := range s.l.All() {
			var zero T
			if err != nil {
				if !yield(zero, err) {
					return
				}
				continue
			}
			if v == nil {
				continue
			}
			t, err := as[T](v)
			if !yield(t, err) {
				return
			}
		}
	}
}

// Values collects All, stopping at the first error.
func (s Seq[T]) Values() ([]T, error) {
	out := make([]T, 0, s.Len())
	for v, err := range s.All() {
		if err != nil {
			return out, err
		}
		out = append(out, v)
	}
	return out, nil
}

func as[T any](v any) (T, error) {
	var zero T
	if v == nil {
		return zero, nil
	}
	t, ok := v.(T)
	if !ok {
		return zero, fmt.Errorf("%w: %T is not %s", ErrTypeMismatch, v, reflect.TypeFor[T]())
	}
	return t, nil
}

// Consolidator merges every registration of T into a single T.
type Consolidator[T any] interface {
	Consolidate(items Seq[T]) (T, error)
}

// MergeFunc invokes a consolidator held as any on an untyped list.
type MergeFunc func(consolidator any, l *List) (any, error)

// Merger returns the MergeFunc for consolidators of T.
func Merger[T any]() MergeFunc {
	return func(consolidator any, l *List) (any, error) {
		c, ok := consolidator.(Consolidator[T])
		if !ok {
			return nil, fmt.Errorf("%w: %T does not consolidate %s", ErrNotConsolidator, consolidator, reflect.TypeFor[T]())
		}
		return c.Consolidate(Typed[T](l))
	}
}
