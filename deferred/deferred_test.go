package deferred

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type greeter interface{ Greet() string }

type hello struct{ name string }

func (h hello) Greet() string { return "hello " + h.name }

type joined []greeter

func (j joined) Greet() string {
	parts := make([]string, 0, len(j))
	for _, g := range j {
		parts = append(parts, g.Greet())
	}
	return strings.Join(parts, ", ")
}

type joiner struct{}

func (joiner) Consolidate(items Seq[greeter]) (greeter, error) {
	all, err := items.Values()
	if err != nil {
		return nil, err
	}
	return joined(all), nil
}

func counting(calls *int, v any) func() (any, error) {
	return func() (any, error) {
		*calls++
		return v, nil
	}
}

// TestItemsComputeOnce tests at-most-once evaluation
func TestItemsComputeOnce(t *testing.T) {
	var calls int
	l := NewList(counting(&calls, hello{"a"}))

	for range 3 {
		v, err := l.At(0)
		require.NoError(t, err)
		assert.Equal(t, hello{"a"}, v)
	}
	assert.Equal(t, 1, calls)
}

// TestItemErrorIsMemoized tests that a failed item keeps its error
func TestItemErrorIsMemoized(t *testing.T) {
	boom := errors.New("boom")
	var calls int
	l := NewList(func() (any, error) {
		calls++
		return nil, boom
	})

	_, err := l.At(0)
	assert.ErrorIs(t, err, boom)
	_, err = l.At(0)
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 1, calls)
}

// TestReentrantAt tests that an item asking for itself fails
func TestReentrantAt(t *testing.T) {
	l := &List{}
	var inner error
	l.Add(func() (any, error) {
		_, inner = l.At(0)
		return hello{"outer"}, nil
	})

	v, err := l.At(0)
	require.NoError(t, err)
	assert.Equal(t, hello{"outer"}, v)
	assert.ErrorIs(t, inner, ErrReentrant)
}

// TestAllSkipsInFlight tests that iteration from inside an item skips that item
func TestAllSkipsInFlight(t *testing.T) {
	l := &List{}
	var seen []any
	l.Add(func() (any, error) {
		for v, err := range l.All() {
			require.NoError(t, err)
			seen = append(seen, v)
		}
		return hello{"first"}, nil
	})
	l.Add(func() (any, error) { return hello{"second"}, nil })

	_, err := l.At(0)
	require.NoError(t, err)
	assert.Equal(t, []any{hello{"second"}}, seen)
}

// TestIndexOutOfRange tests bounds checking
func TestIndexOutOfRange(t *testing.T) {
	l := NewList()
	_, err := l.At(0)
	assert.Error(t, err)

	var empty Seq[greeter]
	assert.Zero(t, empty.Len())
	_, err = empty.At(0)
	assert.Error(t, err)
}

// TestSeqSkipsNil tests that nil results are not yielded
func TestSeqSkipsNil(t *testing.T) {
	l := NewList(
		func() (any, error) { return hello{"a"}, nil },
		func() (any, error) { return nil, nil },
		func() (any, error) { return hello{"b"}, nil },
	)

	got, err := Typed[greeter](l).Values()
	require.NoError(t, err)
	assert.Equal(t, []greeter{hello{"a"}, hello{"b"}}, got)
}

// TestSeqTypeMismatch tests assertion failures surface as errors
func TestSeqTypeMismatch(t *testing.T) {
	l := NewList(func() (any, error) { return 42, nil })

	_, err := Typed[greeter](l).At(0)
	assert.ErrorIs(t, err, ErrTypeMismatch)

	_, err = Typed[greeter](l).Values()
	assert.ErrorIs(t, err, ErrTypeMismatch)
}

// TestMerger tests the untyped consolidator bridge
func TestMerger(t *testing.T) {
	l := NewList(
		func() (any, error) { return hello{"a"}, nil },
		func() (any, error) { return hello{"b"}, nil },
	)

	merged, err := Merger[greeter]()(joiner{}, l)
	require.NoError(t, err)
	assert.Equal(t, "hello a, hello b", merged.(greeter).Greet())

	_, err = Merger[greeter]()(hello{}, l)
	assert.ErrorIs(t, err, ErrNotConsolidator)
}
