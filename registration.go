package graft

import (
	"fmt"
	"reflect"
	"sync"
	"sync/atomic"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/Ngone6325/graft/store"
)

// Factory builds an instance. r resolves further dependencies as part of the
// same resolution and must not be kept after the factory returns.
type Factory func(r Resolver) (any, error)

// Registration maps a requested type to the implementation or factory that
// produces it. Registrations are immutable once added.
type Registration struct {
	Requested      reflect.Type
	Implementation reflect.Type
	Lifetime       Lifetime
	Factory        Factory

	open bool
	// key is the store key of factory and instance registrations.
	key *ownKey
}

// ownKey gives a registration instances of its own. It is not zero sized so
// every allocation has a distinct address.
type ownKey struct {
	requested reflect.Type
}

// storeKey names the instances reg keeps in its lifetime store. Type
// registrations share them by implementation, which is how a hierarchy
// resolves to one instance.
func (r Registration) storeKey() store.Key {
	if r.key != nil {
		return r.key
	}
	return r.Implementation
}

// Open reports whether the registration applies to every instantiation of
// a generic type.
func (r Registration) Open() bool { return r.open }

func (r Registration) String() string {
	impl := "factory"
	if r.Factory == nil {
		impl = r.Implementation.String()
	}
	s := fmt.Sprintf("%s => %s (%s)", r.Requested, impl, r.Lifetime)
	if r.open {
		s += " [open]"
	}
	return s
}

func (r Registration) frame() Frame {
	return Frame{Requested: r.Requested, Implementation: r.Implementation}
}

// regList is the newest-first list for one key. items is replaced on every
// write so snapshots handed to readers never change.
type regList struct {
	mu    sync.Mutex
	items []Registration
}

func (l *regList) snapshot() []Registration {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.items
}

func (l *regList) prepend(r Registration) {
	l.mu.Lock()
	defer l.mu.Unlock()
	next := make([]Registration, 0, len(l.items)+1)
	next = append(next, r)
	l.items = append(next, l.items...)
}

// table is the registration table plus the resolvability cache. Readers of
// the cache remember a version before computing an answer; any mutation bumps
// the version, so answers computed across a mutation are never cached.
type table struct {
	mu    sync.RWMutex
	exact map[reflect.Type]*regList
	open  map[string]*regList

	cacheMu    sync.Mutex
	version    atomic.Uint64
	resolvable *lru.Cache[reflect.Type, bool]
}

func newTable(cacheSize int) (*table, error) {
	cache, err := lru.New[reflect.Type, bool](cacheSize)
	if err != nil {
		return nil, fmt.Errorf("resolvable cache: %w", err)
	}
	return &table{
		exact:      make(map[reflect.Type]*regList),
		open:       make(map[string]*regList),
		resolvable: cache,
	}, nil
}

func (tb *table) add(key reflect.Type, r Registration) {
	insert(&tb.mu, tb.exact, key, r)
	tb.invalidate(key)
}

// addIfAbsent adds r unless key already has registrations.
func (tb *table) addIfAbsent(key reflect.Type, r Registration) bool {
	tb.mu.Lock()
	if _, ok := tb.exact[key]; ok {
		tb.mu.Unlock()
		return false
	}
	tb.exact[key] = &regList{items: []Registration{r}}
	tb.mu.Unlock()
	tb.invalidate(key)
	return true
}

func (tb *table) addOpen(key string, r Registration) {
	insert(&tb.mu, tb.open, key, r)
	tb.invalidate(nil)
}

func insert[K comparable](mu *sync.RWMutex, m map[K]*regList, key K, r Registration) {
	mu.RLock()
	if l, ok := m[key]; ok {
		l.prepend(r)
		mu.RUnlock()
		return
	}
	mu.RUnlock()

	mu.Lock()
	defer mu.Unlock()
	if l, ok := m[key]; ok {
		l.prepend(r)
		return
	}
	m[key] = &regList{items: []Registration{r}}
}

func (tb *table) remove(key reflect.Type) bool {
	tb.mu.Lock()
	_, ok := tb.exact[key]
	delete(tb.exact, key)
	tb.mu.Unlock()
	if ok {
		tb.invalidate(key)
	}
	return ok
}

func (tb *table) removeOpen(key string) bool {
	tb.mu.Lock()
	_, ok := tb.open[key]
	delete(tb.open, key)
	tb.mu.Unlock()
	if ok {
		tb.invalidate(nil)
	}
	return ok
}

func (tb *table) get(key reflect.Type) []Registration {
	tb.mu.RLock()
	l := tb.exact[key]
	tb.mu.RUnlock()
	if l == nil {
		return nil
	}
	return l.snapshot()
}

func (tb *table) getOpen(key string) []Registration {
	tb.mu.RLock()
	l := tb.open[key]
	tb.mu.RUnlock()
	if l == nil {
		return nil
	}
	return l.snapshot()
}

func (tb *table) has(key reflect.Type) bool {
	tb.mu.RLock()
	defer tb.mu.RUnlock()
	_, ok := tb.exact[key]
	return ok
}

// invalidate drops the cached answer for key, or every answer when key is nil.
func (tb *table) invalidate(key reflect.Type) {
	tb.version.Add(1)
	tb.cacheMu.Lock()
	defer tb.cacheMu.Unlock()
	if key == nil {
		tb.resolvable.Purge()
		return
	}
	tb.resolvable.Remove(key)
}

func (tb *table) cached(key reflect.Type) (bool, bool) {
	return tb.resolvable.Get(key)
}

// remember caches v for key unless the table changed since version was read.
func (tb *table) remember(key reflect.Type, v bool, version uint64) {
	tb.cacheMu.Lock()
	defer tb.cacheMu.Unlock()
	if tb.version.Load() == version {
		tb.resolvable.Add(key, v)
	}
}

func (tb *table) snapshot() (exact map[reflect.Type][]Registration, open []Registration) {
	tb.mu.RLock()
	defer tb.mu.RUnlock()
	exact = make(map[reflect.Type][]Registration, len(tb.exact))
	for t, l := range tb.exact {
		exact[t] = append([]Registration(nil), l.snapshot()...)
	}
	for _, l := range tb.open {
		open = append(open, l.snapshot()...)
	}
	return exact, open
}

func (tb *table) reset() {
	tb.mu.Lock()
	tb.exact = make(map[reflect.Type]*regList)
	tb.open = make(map[string]*regList)
	tb.mu.Unlock()
	tb.invalidate(nil)
}
