package promise

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFulfiller_IsWaiting(t *testing.T) {
	p, f := NewPromiseFulfiller[int]()

	assert.True(t, f.IsWaiting())
	f.Fulfill(1)
	assert.False(t, f.IsWaiting())

	l := newTestLoop(t)
	v, err := Wait(l, p)
	require.NoError(t, err)
	assert.Equal(t, 1, v)
}

// TestFulfiller_FirstSettlementWins verifies that only the first of
// Fulfill/Reject takes effect.
func TestFulfiller_FirstSettlementWins(t *testing.T) {
	l := newTestLoop(t)

	p, f := NewPromiseFulfiller[int]()
	f.Fulfill(1)
	f.Fulfill(2)
	f.Reject(errors.New("too late"))

	v, err := Wait(l, p)
	require.NoError(t, err)
	assert.Equal(t, 1, v)
}

func TestFulfiller_RejectThenFulfill(t *testing.T) {
	l := newTestLoop(t)

	boom := errors.New("boom")
	p, f := NewPromiseFulfiller[int]()
	f.Reject(boom)
	f.Fulfill(5)

	_, err := Wait(l, p)
	assert.Equal(t, boom, err)
}

// TestFulfiller_DetachedByAbsolve verifies that dropping the promise turns
// the fulfiller into a silent no-op.
func TestFulfiller_DetachedByAbsolve(t *testing.T) {
	p, f := NewPromiseFulfiller[int]()
	p.Absolve()

	assert.False(t, f.IsWaiting())
	f.Fulfill(1)
	f.Reject(errors.New("ignored"))
}

func TestFulfiller_PreSettledBeforeWait(t *testing.T) {
	l := newTestLoop(t)

	p, f := NewPromiseFulfiller[string]()
	f.Fulfill("done")

	v, err := Wait(l, p)
	require.NoError(t, err)
	assert.Equal(t, "done", v)
}

func TestFulfiller_ChainedTransform(t *testing.T) {
	l := newTestLoop(t)

	p, f := NewPromiseFulfiller[int]()
	q := Then(p, func(v int) (int, error) { return v * 2, nil })
	f.Fulfill(8)

	v, err := Wait(l, q)
	require.NoError(t, err)
	assert.Equal(t, 16, v)
}
