package model

import (
	"errors"
	"log/slog"
	"reflect"
	"sync"

	"github.com/Ngone6325/graft"
	"github.com/Ngone6325/graft/catalog"
	"github.com/Ngone6325/graft/deferred"
	"github.com/Ngone6325/graft/store"
)

func init() {
	catalog.Register[*LogNotifier](
		catalog.RegisterAs(store.Singleton, reflect.TypeFor[Notifier]()),
	)
	catalog.Register[*Broadcast](catalog.Consolidates[Notifier]())
	catalog.Register[Module]()
}

// Notifier receives user events.
type Notifier interface {
	Notify(event string) error
}

// LogNotifier writes events to the default logger.
type LogNotifier struct{}

func (*LogNotifier) Notify(event string) error {
	slog.Info("user event", "event", event)
	return nil
}

// MemoryNotifier keeps every event it receives.
type MemoryNotifier struct {
	mu     sync.Mutex
	events []string
}

func (n *MemoryNotifier) Notify(event string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, event)
	return nil
}

// Events returns the events received so far.
func (n *MemoryNotifier) Events() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]string(nil), n.events...)
}

// Broadcast merges every registered Notifier into one that fans out.
type Broadcast struct {
	Targets []Notifier
}

// Consolidate implements deferred.Consolidator.
func (*Broadcast) Consolidate(items deferred.Seq[Notifier]) (Notifier, error) {
	targets, err := items.Values()
	if err != nil {
		return nil, err
	}
	return &Broadcast{Targets: targets}, nil
}

// Notify delivers event to every target and joins their errors.
func (b *Broadcast) Notify(event string) error {
	var errs []error
	for _, t := range b.Targets {
		if err := t.Notify(event); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Module registers the dependencies that need a factory.
type Module struct{}

// RegisterDependencies implements graft.DependencyRegistrar.
func (Module) RegisterDependencies(r graft.ServiceRegister) error {
	return r.RegisterFactory(reflect.TypeFor[Notifier](), func(graft.Resolver) (any, error) {
		return &MemoryNotifier{}, nil
	}, graft.Singleton)
}
