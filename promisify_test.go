package promise

import (
	"context"
	"errors"
	"runtime"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPromisify_Success(t *testing.T) {
	l := newTestLoop(t)

	p := Promisify(context.Background(), l, func(ctx context.Context) (int, error) {
		return 11, nil
	})

	v, err := Wait(l, p)
	require.NoError(t, err)
	assert.Equal(t, 11, v)
}

func TestPromisify_Error(t *testing.T) {
	l := newTestLoop(t)

	boom := errors.New("worker boom")
	p := Promisify(context.Background(), l, func(ctx context.Context) (int, error) {
		return 0, boom
	})

	_, err := Wait(l, p)
	assert.Equal(t, boom, err)
}

func TestPromisify_Panic(t *testing.T) {
	l := newTestLoop(t)

	p := Promisify(context.Background(), l, func(ctx context.Context) (int, error) {
		panic("worker kaboom")
	})

	_, err := Wait(l, p)
	require.Error(t, err)

	var pe PanicError
	require.True(t, errors.As(err, &pe))
	assert.Equal(t, "worker kaboom", pe.Value)
}

func TestPromisify_Goexit(t *testing.T) {
	l := newTestLoop(t)

	p := Promisify(context.Background(), l, func(ctx context.Context) (int, error) {
		runtime.Goexit()
		return 1, nil
	})

	_, err := Wait(l, p)
	assert.ErrorIs(t, err, ErrGoexit)
}

// TestPromisify_CanceledContext verifies that a context already done at
// launch rejects the promise without invoking the function.
func TestPromisify_CanceledContext(t *testing.T) {
	l := newTestLoop(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	invoked := make(chan struct{}, 1)
	p := Promisify(ctx, l, func(ctx context.Context) (int, error) {
		invoked <- struct{}{}
		return 1, nil
	})

	_, err := Wait(l, p)
	assert.ErrorIs(t, err, context.Canceled)

	select {
	case <-invoked:
		t.Fatal("function ran despite canceled context")
	default:
	}
}

func TestPromisify_ContextPropagated(t *testing.T) {
	l := newTestLoop(t)

	type key struct{}
	ctx := context.WithValue(context.Background(), key{}, "payload")

	p := Promisify(ctx, l, func(ctx context.Context) (string, error) {
		v, _ := ctx.Value(key{}).(string)
		return v, nil
	})

	v, err := Wait(l, p)
	require.NoError(t, err)
	assert.Equal(t, "payload", v)
}

func TestPromisify_ClosedLoop(t *testing.T) {
	l, err := NewEventLoop()
	require.NoError(t, err)
	require.NoError(t, l.Close())

	p := Promisify(context.Background(), l, func(ctx context.Context) (int, error) {
		return 1, nil
	})

	// The rejection is immediate and consumable on any live loop.
	l2 := newTestLoop(t)
	_, err = Wait(l2, p)
	assert.ErrorIs(t, err, ErrLoopClosed)
}

func TestPromisify_SlowWorker(t *testing.T) {
	l := newTestLoop(t)

	p := Promisify(context.Background(), l, func(ctx context.Context) (int, error) {
		time.Sleep(30 * time.Millisecond)
		return 77, nil
	})

	v, err := Wait(l, p)
	require.NoError(t, err)
	assert.Equal(t, 77, v)
}
