// Package graft is a runtime dependency resolution engine.
//
// A Container maps requested types to implementations, factories or
// instances. Resolving a type walks its registrations newest first, builds
// the implementation through the constructor with the most resolvable
// parameters, injects its marked fields and keeps the instance according to
// its lifetime:
//
//   - Transient: a new instance for every resolution
//   - Scoped: one instance per Scope, closed when the scope ends
//   - Singleton: one instance per container
//
// Slices resolve to every registration of their element type, instantiated
// generic types fall back to open registrations, and a consolidator can merge
// all registrations of a type into one value.
//
// Types take part in auto-registration by describing themselves in a
// catalog.Catalog; Bootstrap reads the catalog once and seeds the
// registration table from it.
//
//	c := graft.NewContainer(graft.WithCircularDetection(true))
//	if err := c.Bootstrap(); err != nil {
//		return err
//	}
//	svc, err := graft.Resolve[model.IUserService](c)
package graft
