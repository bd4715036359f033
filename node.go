package promise

import "sync/atomic"

// result is a promise's settlement slot: a value or an error. Slots are
// single-assignment; once a node has surfaced a non-empty result through
// get, it is never mutated again.
type result struct {
	value any
	err   error
}

// addErr records a secondary failure without losing the primary one.
// Secondary failures (typically panics recovered while releasing a
// dependency) are accumulated into an [AggregateError].
func (r *result) addErr(err error) {
	if err == nil {
		return
	}
	if r.err == nil {
		r.err = err
		return
	}
	if agg, ok := r.err.(*AggregateError); ok {
		agg.Errors = append(agg.Errors, err)
		return
	}
	r.err = &AggregateError{Errors: []error{r.err, err}}
}

// promiseNode is the capability set shared by every node variant in the
// promise graph. The facade is generic; nodes are type-erased.
type promiseNode interface {
	// onReady registers e to be armed when the node's result becomes
	// available. Returns true if the node is already ready, in which case e
	// is not armed. Callable at most once per node; non-atomic nodes panic
	// on a second call.
	onReady(e *event) bool

	// get writes the node's value or error into out. Must only be called
	// after readiness has been observed.
	get(out *result)

	// safeEventLoop reports the loop this node is pinned to, or nil if the
	// node may be consumed from any loop.
	safeEventLoop() *EventLoop

	// drop releases the node: disarm its events and release its
	// dependencies. Idempotent.
	drop()
}

// dropCatching releases a node, converting any panic raised during release
// into a secondary failure on out.
func dropCatching(n promiseNode, out *result) {
	if n == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			out.addErr(PanicError{Value: r})
		}
	}()
	n.drop()
}

// alreadyReadyEvent is the sentinel stored in an onReadySlot once the result
// is published with no waiter registered.
var alreadyReadyEvent = new(event)

// onReadySlot is the atomic on-ready protocol shared by nodes whose
// readiness may be published from any goroutine (cross-thread, fork branch,
// adapter). The slot holds nil (no waiter, not ready), a waiter event, or
// the already-ready sentinel. The CAS provides the release/acquire ordering
// that makes the producer's result slot visible to a consumer that observed
// readiness.
type onReadySlot struct {
	p atomic.Pointer[event]
}

// onReady implements promiseNode.onReady over the slot.
func (s *onReadySlot) onReady(e *event) bool {
	if s.p.CompareAndSwap(nil, e) {
		// Waiter registered; it will be armed on publication.
		return false
	}
	if s.p.Load() != alreadyReadyEvent {
		panic("promise: onReady called twice on the same node")
	}
	return true
}

// ready publishes readiness: if no waiter is registered the sentinel is
// stored, otherwise the waiter is armed with the given schedule.
func (s *onReadySlot) ready(sched schedule) {
	if !s.p.CompareAndSwap(nil, alreadyReadyEvent) {
		s.p.Load().arm(sched)
	}
}

// markReady stores the sentinel directly, for nodes born ready.
func (s *onReadySlot) markReady() {
	s.p.Store(alreadyReadyEvent)
}

// immediateNode is a node that is ready from birth, carrying either a value
// or a pre-constructed failure.
type immediateNode struct {
	res           result
	onReadyCalled bool
}

func newImmediateNode(v any) *immediateNode {
	return &immediateNode{res: result{value: v}}
}

func newBrokenNode(err error) *immediateNode {
	return &immediateNode{res: result{err: err}}
}

func (n *immediateNode) onReady(*event) bool {
	if n.onReadyCalled {
		panic("promise: onReady called twice on the same node")
	}
	n.onReadyCalled = true
	return true
}

func (n *immediateNode) get(out *result) { *out = n.res }

func (n *immediateNode) safeEventLoop() *EventLoop { return nil }

func (n *immediateNode) drop() {}

// transformNode applies a user function to its dependency's result,
// synchronously, at get time. Failures short-circuit past fn into errFn (or
// propagate unchanged when errFn is nil); panics from either function are
// captured as PanicError.
type transformNode struct {
	loop  *EventLoop // optional pin; nil delegates to the dependency
	dep   promiseNode
	fn    func(v any) (any, error)
	errFn func(err error) (any, error)
}

func (n *transformNode) onReady(e *event) bool {
	return n.dep.onReady(e)
}

func (n *transformNode) get(out *result) {
	var depRes result
	n.dep.get(&depRes)
	dep := n.dep
	n.dep = nil
	dropCatching(dep, &depRes)

	if depRes.err != nil {
		if n.errFn == nil {
			out.err = depRes.err
			return
		}
		applyCatching(out, func() (any, error) { return n.errFn(depRes.err) })
		return
	}
	applyCatching(out, func() (any, error) { return n.fn(depRes.value) })
}

func (n *transformNode) safeEventLoop() *EventLoop {
	if n.loop != nil {
		return n.loop
	}
	if n.dep != nil {
		return n.dep.safeEventLoop()
	}
	return nil
}

func (n *transformNode) drop() {
	dep := n.dep
	n.dep = nil
	if dep != nil {
		dep.drop()
	}
}

// applyCatching runs fn and settles out with its result, converting a panic
// into a PanicError rejection.
func applyCatching(out *result, fn func() (any, error)) {
	defer func() {
		if r := recover(); r != nil {
			out.addErr(PanicError{Value: r})
		}
	}()
	v, err := fn()
	if err != nil {
		out.err = err
		return
	}
	out.value = v
}

// makeSafeForLoop wraps node so it can be consumed from l. Nodes pinned to a
// different loop are bridged with a cross-thread node that fires on the
// preferred loop and publishes atomically.
func makeSafeForLoop(node promiseNode, l *EventLoop) promiseNode {
	if preferred := node.safeEventLoop(); preferred != nil && preferred != l {
		return newCrossThreadNode(preferred, node)
	}
	return node
}

// spark forces evaluation of node to begin on l as soon as possible, even if
// no one is waiting on it yet.
func spark(node promiseNode, l *EventLoop) promiseNode {
	return newCrossThreadNode(l, node)
}
