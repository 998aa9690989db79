package graft

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/Ngone6325/graft/catalog"
	"github.com/Ngone6325/graft/deferred"
)

// Registration errors are returned synchronously by the call that caused them.
var (
	ErrNilType          = catalog.ErrNilType
	ErrBadConstructor   = catalog.ErrBadConstructor
	ErrInvalidLifetime  = errors.New("lifetime has no provider, register a static provider for it first")
	ErrNotAssignable    = errors.New("implementation is not assignable to the requested type")
	ErrNilInstance      = errors.New("registered instance cannot be nil")
	ErrInstanceLifetime = errors.New("instance registration only supports the singleton lifetime")
	ErrNotInHierarchy   = errors.New("least derived type is not in the hierarchy of the most derived type")
	ErrNotOpenGeneric   = errors.New("open registration requires instantiated generic types of the same arity")
	ErrNotProvider      = catalog.ErrNotProvider
	ErrProviderConflict = errors.New("lifetime already has a provider")
	ErrNotConsolidator  = deferred.ErrNotConsolidator
)

// Resolution errors.
var (
	ErrNotResolvable           = errors.New("no registration can produce the requested type")
	ErrNoInjectableConstructor = errors.New("no constructor has only resolvable parameters")
	ErrConstructorFailed       = errors.New("constructor returned an error")
	ErrCircularResolution      = errors.New("circular dependency detected during resolution")
	ErrReentrantResolution     = deferred.ErrReentrant
	ErrTypeConvertFailed       = errors.New("instance cannot be converted to target type")
	ErrInvalidOutPtr           = errors.New("out must be a non-nil pointer type")
	ErrScopeEnded              = errors.New("scope has already ended")
)

// ResolutionError reports a failed mandatory resolution of Type.
type ResolutionError struct {
	Type reflect.Type
	Err  error
}

func (e *ResolutionError) Error() string {
	return fmt.Sprintf("resolve %s: %v", e.Type, e.Err)
}

func (e *ResolutionError) Unwrap() error { return e.Err }

// Frame is one in-flight step of a resolution.
type Frame struct {
	Requested      reflect.Type
	Implementation reflect.Type
}

func (f Frame) String() string {
	if f.Implementation == nil || f.Implementation == f.Requested {
		return f.Requested.String()
	}
	return fmt.Sprintf("%s => %s", f.Requested, f.Implementation)
}

// CircularResolutionError carries the chain that led back to an in-flight frame.
// The last frame repeats an earlier one.
type CircularResolutionError struct {
	Chain []Frame
}

func (e *CircularResolutionError) Error() string {
	parts := make([]string, len(e.Chain))
	for i, f := range e.Chain {
		parts[i] = f.String()
	}
	return fmt.Sprintf("%v: %s", ErrCircularResolution, strings.Join(parts, " -> "))
}

func (e *CircularResolutionError) Is(target error) bool {
	return target == ErrCircularResolution
}

// FailingConstructor describes one constructor that could not be used.
type FailingConstructor struct {
	Signature string
	Params    []reflect.Type
	// Missing holds the indices of parameters with no way to resolve them.
	Missing []int
}

// MissingConstructorError lists every constructor of Type and which of their
// parameters could not be resolved.
type MissingConstructorError struct {
	Type         reflect.Type
	Constructors []FailingConstructor
}

func (e *MissingConstructorError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "type %s does not contain a constructor with registered parameters", e.Type)
	for _, c := range e.Constructors {
		fmt.Fprintf(&b, "\n  %s", c.Signature)
		missing := make([]string, len(c.Missing))
		for i, idx := range c.Missing {
			missing[i] = fmt.Sprintf("#%d %s", idx, c.Params[idx])
		}
		fmt.Fprintf(&b, "\n    missing registrations: %s", strings.Join(missing, ", "))
	}
	return b.String()
}

func (e *MissingConstructorError) Is(target error) bool {
	return target == ErrNoInjectableConstructor
}

// MissingTypes returns every distinct unresolvable parameter type.
func (e *MissingConstructorError) MissingTypes() []reflect.Type {
	seen := make(map[reflect.Type]bool)
	var out []reflect.Type
	for _, c := range e.Constructors {
		for _, idx := range c.Missing {
			if t := c.Params[idx]; !seen[t] {
				seen[t] = true
				out = append(out, t)
			}
		}
	}
	return out
}

// isFatal reports errors that must not be swallowed by fallbacks or optional
// resolution.
func isFatal(err error) bool {
	return errors.Is(err, ErrCircularResolution) || errors.Is(err, ErrReentrantResolution)
}
