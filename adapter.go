package promise

import "sync"

// adapterNode is the generic escape hatch: user code publishes into the node
// through a fulfiller, from any goroutine. All readiness transitions go
// through the atomic on-ready protocol.
type adapterNode struct {
	mu           sync.Mutex
	res          result
	done         bool
	weak         *weakFulfiller
	onReadyEvent onReadySlot
}

func (n *adapterNode) fulfill(v any) {
	n.mu.Lock()
	if n.done {
		n.mu.Unlock()
		return
	}
	n.done = true
	n.res.value = v
	n.mu.Unlock()
	n.onReadyEvent.ready(scheduleYield)
}

func (n *adapterNode) reject(err error) {
	n.mu.Lock()
	if n.done {
		n.mu.Unlock()
		return
	}
	n.done = true
	n.res.err = err
	n.mu.Unlock()
	n.onReadyEvent.ready(scheduleYield)
}

func (n *adapterNode) isWaiting() bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	return !n.done
}

func (n *adapterNode) onReady(e *event) bool {
	return n.onReadyEvent.onReady(e)
}

func (n *adapterNode) get(out *result) {
	*out = n.res
}

func (n *adapterNode) safeEventLoop() *EventLoop {
	// Publication is thread-safe, so any loop may consume.
	return nil
}

func (n *adapterNode) drop() {
	if n.weak != nil {
		n.weak.detach()
		n.weak = nil
	}
}

// weakFulfiller is the detachable sender half of an adapter pair. Dropping
// the promise detaches it, after which fulfill and reject are silent no-ops.
type weakFulfiller struct {
	mu    sync.Mutex
	inner *adapterNode
}

func (w *weakFulfiller) fulfill(v any) {
	w.mu.Lock()
	n := w.inner
	w.mu.Unlock()
	if n != nil {
		n.fulfill(v)
	}
}

func (w *weakFulfiller) reject(err error) {
	w.mu.Lock()
	n := w.inner
	w.mu.Unlock()
	if n != nil {
		n.reject(err)
	}
}

func (w *weakFulfiller) isWaiting() bool {
	w.mu.Lock()
	n := w.inner
	w.mu.Unlock()
	return n != nil && n.isWaiting()
}

func (w *weakFulfiller) detach() {
	w.mu.Lock()
	w.inner = nil
	w.mu.Unlock()
}

// newAdaptedPromise wires an adapter node to its weak fulfiller.
func newAdaptedPromise() (*adapterNode, *weakFulfiller) {
	n := &adapterNode{}
	w := &weakFulfiller{inner: n}
	n.weak = w
	return n, w
}
