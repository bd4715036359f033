package promise

import (
	"context"
)

// Promisify executes fn in a new goroutine and returns a promise for its
// result, fulfilled through a cross-thread fulfiller pair.
//
// It ensures:
//   - Panic handler: a panic in fn rejects the promise with [PanicError].
//   - Goexit handler: if the goroutine exits via runtime.Goexit, the promise
//     is rejected with [ErrGoexit] rather than hanging indefinitely.
//   - Context propagation: ctx is passed to fn, and a context already done
//     at launch rejects the promise without invoking fn.
//
// The loop argument is the loop expected to consume the promise; it is woken
// when the result arrives. It is used to fail fast when already closed, and
// its logger and ID are used to log a panic in fn.
func Promisify[T any](ctx context.Context, l *EventLoop, fn func(ctx context.Context) (T, error)) *Promise[T] {
	l.queueMu.Lock()
	closed := l.closed
	l.queueMu.Unlock()
	if closed {
		return Reject[T](ErrLoopClosed)
	}

	p, f := NewPromiseFulfiller[T]()

	go func() {
		// Completion flag to distinguish normal return from Goexit.
		completed := false

		select {
		case <-ctx.Done():
			completed = true
			f.Reject(ctx.Err())
			return
		default:
		}

		defer func() {
			if r := recover(); r != nil {
				logError(l.logger, "promisify", "function panicked", l.id, PanicError{Value: r})
				f.Reject(PanicError{Value: r})
			} else if !completed {
				// Function ended but not via normal return: Goexit.
				f.Reject(ErrGoexit)
			}
		}()

		v, err := fn(ctx)
		completed = true
		if err != nil {
			f.Reject(err)
		} else {
			f.Fulfill(v)
		}
	}()

	return p
}
