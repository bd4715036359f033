package promise

import (
	"sync"
	"sync/atomic"
)

// forkHub drives a shared inner node once and fans the settled result out to
// any number of branches. The hub is an event on its owning loop, created
// armed with yield scheduling.
//
// Branches form an intrusive singly-linked list guarded by the hub's lock.
// lastPtr addresses the link slot the next branch goes into; it is nil once
// the hub has published, which is also the signal that branches created
// later must be born ready.
type forkHub struct {
	event
	refs atomic.Int32

	inner     promiseNode
	isWaiting bool
	res       result

	branchMu sync.Mutex
	first    *forkBranch
	lastPtr  **forkBranch
}

func newForkHub(l *EventLoop, inner promiseNode) *forkHub {
	h := &forkHub{inner: inner}
	h.event.loop = l
	h.event.fireFn = h.fire
	h.lastPtr = &h.first
	h.refs.Store(1) // held by the ForkedPromise handle
	h.arm(scheduleYield)
	return h
}

func (h *forkHub) fire() {
	if !h.isWaiting && !h.inner.onReady(&h.event) {
		h.isWaiting = true
		return
	}

	// Dependency is ready. Pull its result, release it, then publish to
	// every registered branch.
	h.inner.get(&h.res)
	inner := h.inner
	h.inner = nil
	dropCatching(inner, &h.res)

	h.branchMu.Lock()
	for b := h.first; b != nil; b = b.next {
		b.hubReady()
		*b.prevPtr = nil
		b.prevPtr = nil
	}
	if h.lastPtr != nil {
		*h.lastPtr = nil
	}
	// Mark the list inactive; branches added from here on are born ready.
	h.lastPtr = nil
	h.branchMu.Unlock()
}

// addBranch registers a new consumer. Branches added after the hub has
// published are immediately ready.
func (h *forkHub) addBranch() *forkBranch {
	b := &forkBranch{hub: h}
	h.refs.Add(1)

	h.branchMu.Lock()
	if h.lastPtr == nil {
		b.onReadyEvent.markReady()
	} else {
		b.prevPtr = h.lastPtr
		*b.prevPtr = b
		h.lastPtr = &b.next
	}
	h.branchMu.Unlock()
	return b
}

// release drops one reference. The last reference tears the hub down:
// disarm the event and release the inner dependency if it never settled.
func (h *forkHub) release() {
	if h.refs.Add(-1) != 0 {
		return
	}
	h.disarm()
	inner := h.inner
	h.inner = nil
	if inner != nil {
		inner.drop()
	}
}

// forkBranch is one consumer of a hub. Readiness is published through the
// atomic on-ready protocol since the hub may fire on a different goroutine
// than the branch's consumer.
type forkBranch struct {
	hub          *forkHub
	next         *forkBranch
	prevPtr      **forkBranch
	onReadyEvent onReadySlot
	released     bool
}

func (b *forkBranch) hubReady() {
	b.onReadyEvent.ready(scheduleYield)
}

func (b *forkBranch) onReady(e *event) bool {
	return b.onReadyEvent.onReady(e)
}

// get copies the hub's shared result. Branch results are shallow copies;
// the payload must be a value type or safe for concurrent reads.
func (b *forkBranch) get(out *result) {
	out.value = b.hub.res.value
	out.err = b.hub.res.err
	b.releaseHub(out)
}

func (b *forkBranch) safeEventLoop() *EventLoop {
	// Reading the hub's published result is safe from any loop.
	return nil
}

func (b *forkBranch) drop() {
	var discard result
	b.releaseHub(&discard)
}

func (b *forkBranch) releaseHub(out *result) {
	if b.released {
		return
	}
	b.released = true

	h := b.hub
	h.branchMu.Lock()
	if b.prevPtr != nil {
		// Still on the hub's list; unlink.
		*b.prevPtr = b.next
		if b.next == nil {
			h.lastPtr = b.prevPtr
		} else {
			b.next.prevPtr = b.prevPtr
		}
		b.prevPtr = nil
		b.next = nil
	}
	h.branchMu.Unlock()

	defer func() {
		if r := recover(); r != nil {
			out.addErr(PanicError{Value: r})
		}
	}()
	h.release()
}
