package graft

import (
	"errors"
	"fmt"
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var allErrors = []struct {
	name string
	err  error
}{
	{"ErrNilType", ErrNilType},
	{"ErrBadConstructor", ErrBadConstructor},
	{"ErrInvalidLifetime", ErrInvalidLifetime},
	{"ErrNotAssignable", ErrNotAssignable},
	{"ErrNilInstance", ErrNilInstance},
	{"ErrInstanceLifetime", ErrInstanceLifetime},
	{"ErrNotInHierarchy", ErrNotInHierarchy},
	{"ErrNotOpenGeneric", ErrNotOpenGeneric},
	{"ErrNotProvider", ErrNotProvider},
	{"ErrProviderConflict", ErrProviderConflict},
	{"ErrNotConsolidator", ErrNotConsolidator},
	{"ErrNotResolvable", ErrNotResolvable},
	{"ErrNoInjectableConstructor", ErrNoInjectableConstructor},
	{"ErrConstructorFailed", ErrConstructorFailed},
	{"ErrCircularResolution", ErrCircularResolution},
	{"ErrReentrantResolution", ErrReentrantResolution},
	{"ErrTypeConvertFailed", ErrTypeConvertFailed},
	{"ErrInvalidOutPtr", ErrInvalidOutPtr},
	{"ErrScopeEnded", ErrScopeEnded},
}

// TestErrorConstants tests that all error constants are defined and distinct
func TestErrorConstants(t *testing.T) {
	for i, tt := range allErrors {
		t.Run(tt.name, func(t *testing.T) {
			require.Error(t, tt.err)
			assert.NotEmpty(t, tt.err.Error())
			for _, other := range allErrors[i+1:] {
				assert.NotErrorIs(t, tt.err, other.err, "%s should differ from %s", tt.name, other.name)
			}
		})
	}
}

// TestErrorWrapping tests that errors can be wrapped
func TestErrorWrapping(t *testing.T) {
	wrapped := errors.Join(ErrNotResolvable, errors.New("additional context"))
	assert.ErrorIs(t, wrapped, ErrNotResolvable)

	wrapped = fmt.Errorf("outer: %w", &ResolutionError{Type: typeOf[Greeter](), Err: ErrScopeEnded})
	assert.ErrorIs(t, wrapped, ErrScopeEnded)
	var re *ResolutionError
	require.ErrorAs(t, wrapped, &re)
	assert.Equal(t, typeOf[Greeter](), re.Type)
}

// TestCircularResolutionError tests the cycle message and matching
func TestCircularResolutionError(t *testing.T) {
	err := &CircularResolutionError{Chain: []Frame{
		{Requested: typeOf[Greeter](), Implementation: typeOf[*Loop]()},
		{Requested: typeOf[*Zeta]()},
		{Requested: typeOf[Greeter](), Implementation: typeOf[*Loop]()},
	}}

	assert.ErrorIs(t, err, ErrCircularResolution)
	assert.NotErrorIs(t, err, ErrReentrantResolution)
	assert.Equal(t,
		"circular dependency detected during resolution: graft.Greeter => *graft.Loop -> *graft.Zeta -> graft.Greeter => *graft.Loop",
		err.Error())
	assert.True(t, isFatal(err))
}

// TestMissingConstructorError tests the constructor diagnostic
func TestMissingConstructorError(t *testing.T) {
	zeta, greeter := typeOf[*Zeta](), typeOf[Greeter]()
	err := &MissingConstructorError{
		Type: typeOf[*Service](),
		Constructors: []FailingConstructor{
			{Signature: "func(*graft.Zeta) *graft.Service", Params: []reflect.Type{zeta}, Missing: []int{0}},
			{Signature: "func(*graft.Zeta, graft.Greeter) *graft.Service", Params: []reflect.Type{zeta, greeter}, Missing: []int{0, 1}},
		},
	}

	assert.ErrorIs(t, err, ErrNoInjectableConstructor)
	assert.Equal(t, []reflect.Type{zeta, greeter}, err.MissingTypes())
	assert.Equal(t, "type *graft.Service does not contain a constructor with registered parameters"+
		"\n  func(*graft.Zeta) *graft.Service"+
		"\n    missing registrations: #0 *graft.Zeta"+
		"\n  func(*graft.Zeta, graft.Greeter) *graft.Service"+
		"\n    missing registrations: #0 *graft.Zeta, #1 graft.Greeter", err.Error())
	assert.False(t, isFatal(err))
}

// TestFrameString tests frame rendering
func TestFrameString(t *testing.T) {
	tests := []struct {
		name  string
		frame Frame
		want  string
	}{
		{"self", Frame{Requested: typeOf[*Zeta](), Implementation: typeOf[*Zeta]()}, "*graft.Zeta"},
		{"no implementation", Frame{Requested: typeOf[*Zeta]()}, "*graft.Zeta"},
		{"mapped", Frame{Requested: typeOf[Greeter](), Implementation: typeOf[*FrenchGreeter]()}, "graft.Greeter => *graft.FrenchGreeter"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.frame.String())
		})
	}
}
