// Package store keeps resolved instances for each lifetime.
//
// A store maps a key to the instances built for it. The
// transient store never keeps anything, the singleton store lives as long as
// its container, and a scoped store belongs to exactly one scope.
package store

import "sync"

// Key identifies a set of kept instances. Type registrations are keyed by
// their implementation type so a hierarchy shares one instance; factory and
// instance registrations each carry a key of their own.
type Key = any

// Store is the instance cache behind a lifetime.
type Store interface {
	// Lifetime reports which registrations this store serves.
	Lifetime() Lifetime
	// Get returns the instances kept for k, oldest first. The returned slice
	// must not be modified.
	Get(k Key) []any
	// Add appends v to the instances kept for k.
	Add(k Key, v any)
	// Claim keeps v for k unless an instance is already kept, and returns
	// the instance callers should use.
	Claim(k Key, v any) any
}

// TransientStore never keeps an instance, so every resolution builds anew.
type TransientStore struct{}

func (TransientStore) Lifetime() Lifetime { return Transient }

func (TransientStore) Get(Key) []any { return nil }

func (TransientStore) Add(Key, any) {}

func (TransientStore) Claim(_ Key, v any) any { return v }

// entry holds the instances for one key. items is replaced on every write
// and never mutated in place, so a slice handed to a reader stays valid.
type entry struct {
	mu    sync.Mutex
	items []any
}

// instances is the shared map behind the singleton and scoped stores.
type instances struct {
	mu      sync.RWMutex
	entries map[Key]*entry
}

func newInstances() instances {
	return instances{entries: make(map[Key]*entry)}
}

func (s *instances) lookup(k Key, create bool) *entry {
	s.mu.RLock()
	e := s.entries[k]
	s.mu.RUnlock()
	if e != nil || !create {
		return e
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if e = s.entries[k]; e == nil {
		e = &entry{}
		s.entries[k] = e
	}
	return e
}

func (s *instances) get(k Key) []any {
	e := s.lookup(k, false)
	if e == nil {
		return nil
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.items
}

func (s *instances) add(k Key, v any) {
	e := s.lookup(k, true)
	e.mu.Lock()
	defer e.mu.Unlock()
	next := make([]any, len(e.items), len(e.items)+1)
	copy(next, e.items)
	e.items = append(next, v)
}

// claim returns the kept instance and whether v became it.
func (s *instances) claim(k Key, v any) (any, bool) {
	e := s.lookup(k, true)
	e.mu.Lock()
	defer e.mu.Unlock()
	if n := len(e.items); n > 0 {
		return e.items[n-1], false
	}
	e.items = []any{v}
	return v, true
}

func (s *instances) keys() []Key {
	s.mu.RLock()
	defer s.mu.RUnlock()
	keys := make([]Key, 0, len(s.entries))
	for k, e := range s.entries {
		e.mu.Lock()
		n := len(e.items)
		e.mu.Unlock()
		if n > 0 {
			keys = append(keys, k)
		}
	}
	return keys
}

func (s *instances) reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = make(map[Key]*entry)
}

// SingletonStore keeps one shared set of instances per container.
type SingletonStore struct {
	instances
}

// NewSingleton returns an empty singleton store.
func NewSingleton() *SingletonStore {
	return &SingletonStore{instances: newInstances()}
}

func (*SingletonStore) Lifetime() Lifetime { return Singleton }

func (s *SingletonStore) Get(k Key) []any { return s.get(k) }

func (s *SingletonStore) Add(k Key, v any) { s.add(k, v) }

func (s *SingletonStore) Claim(k Key, v any) any {
	kept, _ := s.claim(k, v)
	return kept
}

// Keys lists the keys that currently hold at least one instance.
func (s *SingletonStore) Keys() []Key { return s.keys() }

// Reset drops every kept instance.
func (s *SingletonStore) Reset() { s.reset() }
