package promise

import (
	"runtime"
	"sync"
	"sync/atomic"
)

// EventLoop is a per-goroutine cooperative scheduler. It owns an intrusive
// circular doubly-linked queue of events rooted at a head sentinel, and
// drains the queue in strict priority order while a goroutine is inside
// [Wait].
//
// Multiple loops on multiple goroutines coexist; a loop is driven by exactly
// one goroutine at a time. [EventLoop.Wake] is the only method that is
// meaningful to call from other goroutines.
type EventLoop struct {
	id     int64
	logger Logger

	queueMu sync.Mutex
	// queue is the head sentinel of the circular queue. Its fireFn must never
	// run; popping it would mean the queue links are corrupt.
	queue event
	// insertPoint refers either to the sentinel or to an event currently in
	// the queue; preempt insertions land immediately before it.
	insertPoint *event
	closed      bool

	waker waker
}

var loopIDCounter atomic.Int64

// NewEventLoop creates a new event loop. The caller must eventually release
// the loop's wake primitive with [EventLoop.Close].
func NewEventLoop(opts ...LoopOption) (*EventLoop, error) {
	cfg, err := resolveLoopOptions(opts)
	if err != nil {
		return nil, err
	}

	w, err := newPlatformWaker(cfg.wakeupMode)
	if err != nil {
		return nil, err
	}

	l := &EventLoop{
		id:     loopIDCounter.Add(1),
		logger: cfg.logger,
		waker:  w,
	}
	l.queue.loop = l
	l.queue.next = &l.queue
	l.queue.prev = &l.queue
	l.queue.fireFn = func() { panic("promise: fired event queue head sentinel") }
	l.insertPoint = &l.queue
	return l, nil
}

// ID returns a process-unique identifier for the loop, for use in logging.
func (l *EventLoop) ID() int64 { return l.id }

// Close releases the loop's wake primitive. Events must not be armed against
// a closed loop; doing so panics. Close is not safe to call concurrently
// with an active Wait.
func (l *EventLoop) Close() error {
	l.queueMu.Lock()
	if l.closed {
		l.queueMu.Unlock()
		return ErrLoopClosed
	}
	l.closed = true
	l.queueMu.Unlock()
	return l.waker.close()
}

// Wake signals a potentially-sleeping loop that new work is available.
// Safe to call from any goroutine.
func (l *EventLoop) Wake() {
	l.waker.wake()
}

// currentLoops maps goroutine IDs to the loop whose Wait that goroutine is
// currently inside. Wait's re-entrant semantics (an event may Wait on a
// different loop) are implemented by save/restore of the entry.
var currentLoops struct {
	sync.Mutex
	m map[uint64]*EventLoop
}

func init() {
	currentLoops.m = make(map[uint64]*EventLoop)
}

// Current returns the loop whose Wait the calling goroutine is currently
// inside, or ErrNoCurrentLoop if there is none.
func Current() (*EventLoop, error) {
	gid := getGoroutineID()
	currentLoops.Lock()
	l := currentLoops.m[gid]
	currentLoops.Unlock()
	if l == nil {
		return nil, ErrNoCurrentLoop
	}
	return l, nil
}

// currentOrNil is Current without the error plumbing, for combinators that
// fall back to an unpinned node when no loop is active.
func currentOrNil() *EventLoop {
	l, err := Current()
	if err != nil {
		return nil
	}
	return l
}

func swapCurrentLoop(gid uint64, l *EventLoop) *EventLoop {
	currentLoops.Lock()
	prev := currentLoops.m[gid]
	currentLoops.m[gid] = l
	currentLoops.Unlock()
	return prev
}

func restoreCurrentLoop(gid uint64, prev *EventLoop) {
	currentLoops.Lock()
	if prev == nil {
		delete(currentLoops.m, gid)
	} else {
		currentLoops.m[gid] = prev
	}
	currentLoops.Unlock()
}

// getGoroutineID returns the current goroutine's ID.
func getGoroutineID() uint64 {
	var buf [64]byte
	n := runtime.Stack(buf[:], false)
	var id uint64
	for i := len("goroutine "); i < n; i++ {
		if buf[i] >= '0' && buf[i] <= '9' {
			id = id*10 + uint64(buf[i]-'0')
		} else {
			break
		}
	}
	return id
}

// waitImpl drives the loop until node is ready, then settles node into out
// and releases it. node must already be safe for this loop (see
// makeSafeForLoop).
func (l *EventLoop) waitImpl(node promiseNode, out *result) {
	gid := getGoroutineID()
	prev := swapCurrentLoop(gid, l)
	if prev == l {
		restoreCurrentLoop(gid, prev)
		panic(ErrReentrantWait)
	}
	defer restoreCurrentLoop(gid, prev)

	logDebug(l.logger, "wait", "entering wait", l.id, nil)

	be := newBoolEvent(l)
	be.fired = node.onReady(&be.event)

	for !be.fired {
		l.queueMu.Lock()

		e := l.queue.next
		if e == &l.queue {
			// Queue is empty; sleep until another goroutine arms an event.
			l.waker.prepareToSleep()
			l.queueMu.Unlock()
			l.waker.sleep()
			continue
		}

		// Unlink the head event.
		l.queue.next = e.next
		e.next.prev = &l.queue
		e.next = nil
		e.prev = nil

		// New preempt insertions go to the front, in order.
		l.insertPoint = l.queue.next

		// Take the firing lock before releasing the queue so a concurrent
		// disarm observes the fire in progress.
		e.firing.Lock()
		l.queueMu.Unlock()

		e.fireFn()
		e.firing.Unlock()
	}

	node.get(out)
	be.disarm()
	dropCatching(node, out)

	logDebug(l.logger, "wait", "wait satisfied", l.id, map[string]any{"err": out.err != nil})
}
