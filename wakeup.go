package promise

import "sync"

// waker is the loop's sleep/wake primitive.
//
// The protocol mirrors a futex: prepareToSleep publishes intent to sleep
// while the queue lock is still held, sleep blocks until the intent flag is
// cleared, and wake clears the flag and signals only if it was set. No
// wakeup is lost between enqueue and sleep.
type waker interface {
	// prepareToSleep is called with the loop's queue lock held.
	prepareToSleep()
	// sleep blocks until a wake clears the prepared flag. Called without
	// locks held, on the loop goroutine.
	sleep()
	// wake is safe to call from any goroutine, including under the queue
	// lock.
	wake()
	close() error
}

// WakeupMode selects the loop's sleep/wake primitive.
type WakeupMode int

const (
	// WakeupAuto picks the best primitive for the platform: eventfd on
	// Linux, a condition variable elsewhere.
	WakeupAuto WakeupMode = iota

	// WakeupEventFD forces the eventfd primitive. Only available on Linux;
	// NewEventLoop fails elsewhere.
	WakeupEventFD

	// WakeupCond forces the portable condition-variable primitive.
	WakeupCond
)

// String returns the string representation of the wakeup mode.
func (m WakeupMode) String() string {
	switch m {
	case WakeupAuto:
		return "auto"
	case WakeupEventFD:
		return "eventfd"
	case WakeupCond:
		return "cond"
	default:
		return "unknown"
	}
}

// condWaker implements the sleep/wake protocol with a condition variable.
// The mutex is acquired in prepareToSleep and released at the end of sleep,
// closing the window in which a wake could be missed.
type condWaker struct {
	mu       sync.Mutex
	cond     *sync.Cond
	prepared bool
}

func newCondWaker() *condWaker {
	w := &condWaker{}
	w.cond = sync.NewCond(&w.mu)
	return w
}

func (w *condWaker) prepareToSleep() {
	w.mu.Lock()
	w.prepared = true
}

func (w *condWaker) sleep() {
	for w.prepared {
		w.cond.Wait()
	}
	w.mu.Unlock()
}

func (w *condWaker) wake() {
	w.mu.Lock()
	if w.prepared {
		w.prepared = false
		w.cond.Signal()
	}
	w.mu.Unlock()
}

func (w *condWaker) close() error { return nil }
