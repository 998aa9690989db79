package store

import (
	"errors"
	"fmt"
	"io"
	"reflect"
	"sync"
)

// ScopedStore keeps instances for a single scope. Close disposes every
// io.Closer it kept, newest first, exactly once.
type ScopedStore struct {
	instances

	mu      sync.Mutex
	created []any
	closed  bool
}

// NewScoped returns an empty scoped store.
func NewScoped() *ScopedStore {
	return &ScopedStore{instances: newInstances()}
}

func (*ScopedStore) Lifetime() Lifetime { return Scoped }

func (s *ScopedStore) Get(k Key) []any {
	if s.Closed() {
		return nil
	}
	return s.get(k)
}

// Add keeps v for k. Once the store is closed Add is a no-op.
func (s *ScopedStore) Add(k Key, v any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.add(k, v)
	s.created = append(s.created, v)
}

// Claim keeps v for k unless an instance is already kept. A closed store
// keeps nothing and hands v back.
func (s *ScopedStore) Claim(k Key, v any) any {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return v
	}
	kept, stored := s.claim(k, v)
	if stored {
		s.created = append(s.created, v)
	}
	return kept
}

// Closed reports whether Close has been called.
func (s *ScopedStore) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// Len reports how many instances the store has kept.
func (s *ScopedStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.created)
}

// Close releases every kept instance, closing those that implement io.Closer.
// The same pointer kept under several types is closed once. Subsequent calls
// return nil.
func (s *ScopedStore) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	created := s.created
	s.created = nil
	s.reset()
	s.mu.Unlock()

	var errs []error
	seen := make(map[any]struct{}, len(created))
	for i := len(created) - 1; i >= 0; i-- {
		v := created[i]
		closer, ok := v.(io.Closer)
		if !ok {
			continue
		}
		if reflect.ValueOf(v).Kind() == reflect.Pointer {
			if _, dup := seen[v]; dup {
				continue
			}
			seen[v] = struct{}{}
		}
		if err := closer.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close %T: %w", v, err))
		}
	}
	return errors.Join(errs...)
}
