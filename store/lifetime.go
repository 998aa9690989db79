package store

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUnknownLifetime is returned by ParseLifetime for names it does not know.
var ErrUnknownLifetime = errors.New("unknown lifetime")

// Lifetime selects the store that keeps a resolved instance. Values past
// Scoped are free for custom stores registered on a container.
type Lifetime int

const (
	Transient Lifetime = iota // Transient: creates new instance on each resolution
	Singleton                 // Singleton: unique per container, shared by every scope
	Scoped                    // Scoped: unique within scope, isolated between different scopes
)

// Builtin reports whether every container serves l without extra setup.
func (l Lifetime) Builtin() bool {
	return l >= Transient && l <= Scoped
}

func (l Lifetime) String() string {
	switch l {
	case Transient:
		return "transient"
	case Scoped:
		return "scoped"
	case Singleton:
		return "singleton"
	}
	return fmt.Sprintf("lifetime(%d)", int(l))
}

// ParseLifetime maps a builtin lifetime name back to its value.
func ParseLifetime(s string) (Lifetime, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "transient":
		return Transient, nil
	case "scoped":
		return Scoped, nil
	case "singleton":
		return Singleton, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownLifetime, s)
}
