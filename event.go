package promise

import "sync"

// schedule selects where an event is inserted into its loop's queue.
type schedule int

const (
	// schedulePreempt inserts the event at the loop's insert point, so that
	// events armed while another event is firing run immediately after it, in
	// insertion order, ahead of pre-existing queued events. Increasing the
	// granularity of a computation never demotes its priority.
	schedulePreempt schedule = iota

	// scheduleYield appends the event at the tail of the queue. Cross-thread
	// hand-off and fork publication use this so that producers targeting the
	// same loop observe global FIFO order.
	scheduleYield
)

// event is an entry in an event loop's intrusive circular queue.
//
// next is non-nil iff the event is armed. The firing mutex is held while
// fireFn runs; disarm acquires it after unlinking, guaranteeing that no fire
// is in flight once disarm returns.
//
// An event borrows its loop: the loop must outlive every event registered
// against it.
type event struct {
	loop   *EventLoop
	prev   *event
	next   *event
	firing sync.Mutex
	fireFn func()
}

// arm inserts the event into its loop's queue. Arming an already-armed event
// is a no-op. Arming on a closed loop panics with [ErrLoopClosed].
//
// Safe to call from any goroutine.
func (e *event) arm(s schedule) {
	l := e.loop
	l.queueMu.Lock()
	defer l.queueMu.Unlock()

	if l.closed {
		panic(ErrLoopClosed)
	}
	if e.next != nil {
		return
	}

	queueWasEmpty := l.queue.next == &l.queue

	switch s {
	case schedulePreempt:
		e.next = l.insertPoint
		e.prev = e.next.prev
		e.next.prev = e
		e.prev.next = e

	case scheduleYield:
		e.prev = l.queue.prev
		e.next = e.prev.next
		e.prev.next = e
		e.next.prev = e

		// When the queue was empty the insert point still refers to the
		// sentinel; move it here so later preempt insertions land at the head.
		if l.insertPoint == &l.queue {
			l.insertPoint = e
		}
	}

	if queueWasEmpty {
		l.waker.wake()
	}
}

// disarm removes the event from the queue if armed, then synchronizes with
// any in-flight fire by cycling the firing mutex. After disarm returns the
// event is in no queue and is not firing.
func (e *event) disarm() {
	l := e.loop
	l.queueMu.Lock()
	if e.next != nil {
		if l.insertPoint == e {
			l.insertPoint = e.next
		}
		e.next.prev = e.prev
		e.prev.next = e.next
		e.next = nil
		e.prev = nil
	}
	l.queueMu.Unlock()

	e.firing.Lock()
	e.firing.Unlock() //nolint:staticcheck // empty critical section is the point
}

// boolEvent records that it fired. Wait uses one to observe readiness of the
// node it is driving toward.
type boolEvent struct {
	event
	fired bool
}

func newBoolEvent(l *EventLoop) *boolEvent {
	be := &boolEvent{event: event{loop: l}}
	be.fireFn = func() { be.fired = true }
	return be
}
