package graft

import "github.com/Ngone6325/graft/store"

// Lifetime selects the store that keeps resolved instances.
type Lifetime = store.Lifetime

const (
	Transient = store.Transient // Transient: creates new instance on each resolution
	Singleton = store.Singleton // Singleton: unique per container, shared by every scope
	Scoped    = store.Scoped    // Scoped: unique within scope, isolated between different scopes
)
