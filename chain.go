package promise

// chainNode collapses one level of promise nesting: its dependency settles
// to a promise node, which the chain adopts as its new inner and forwards to.
//
// The node is also an event on its owning loop, created armed. It advances
// through three states:
//
//	chainPreStep1: waiting to fire for the first time
//	chainStep1:    fired once, inner not yet ready, waiting to be re-armed
//	chainStep2:    inner's value adopted as the new inner
//
// Only the owning loop's goroutine touches the state machine, so no locking
// is needed beyond the event's own firing discipline.
type chainNode struct {
	event
	state        int
	inner        promiseNode
	onReadyEvent *event
}

const (
	chainPreStep1 = iota
	chainStep1
	chainStep2
)

// newChainNode creates a chain over inner, armed on l with the given
// schedule. inner's settled value must be a promiseNode (the erased
// continuation wrappers guarantee this).
func newChainNode(l *EventLoop, inner promiseNode, sched schedule) *chainNode {
	c := &chainNode{inner: inner}
	c.event.loop = l
	c.event.fireFn = c.fire
	c.arm(sched)
	return c
}

func (c *chainNode) fire() {
	if c.state == chainPreStep1 && !c.inner.onReady(&c.event) {
		c.state = chainStep1
		return
	}

	if c.state == chainStep2 {
		panic("promise: chain node fired after adopting its inner promise")
	}

	var intermediate result
	c.inner.get(&intermediate)
	inner := c.inner
	c.inner = nil
	dropCatching(inner, &intermediate)

	if intermediate.err != nil {
		// The step-1 result failed; adopt a broken inner, discarding any
		// partial value.
		c.inner = newBrokenNode(intermediate.err)
	} else if node, ok := intermediate.value.(promiseNode); ok {
		// The value is itself a promise. Adopt its node as our step 2.
		c.inner = node
	} else {
		c.inner = newBrokenNode(ErrNilPromise)
	}
	c.state = chainStep2

	if c.onReadyEvent != nil {
		if c.inner.onReady(c.onReadyEvent) {
			c.onReadyEvent.arm(schedulePreempt)
		}
	}
}

func (c *chainNode) onReady(e *event) bool {
	switch c.state {
	case chainPreStep1, chainStep1:
		if c.onReadyEvent != nil {
			panic("promise: onReady called twice on the same node")
		}
		c.onReadyEvent = e
		return false
	case chainStep2:
		return c.inner.onReady(e)
	}
	panic("promise: chain node in impossible state")
}

func (c *chainNode) get(out *result) {
	if c.state != chainStep2 {
		panic("promise: chain node read before its inner promise settled")
	}
	c.inner.get(out)
}

func (c *chainNode) safeEventLoop() *EventLoop {
	return c.event.loop
}

func (c *chainNode) drop() {
	c.disarm()
	inner := c.inner
	c.inner = nil
	if inner != nil {
		inner.drop()
	}
}
