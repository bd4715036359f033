package promise

// crossThreadNode bridges a node produced on one loop into a consumer on
// another. It is an event on the loop its dependency is pinned to (or, when
// used as a spark, on the loop that should evaluate the dependency eagerly),
// armed with yield scheduling so that the first onReady against the
// dependency happens on that loop's goroutine, and so that sequences of
// cross-thread arrivals preserve FIFO order.
//
// Publication goes through the atomic on-ready protocol; the consumer may
// register its waiter from any goroutine.
type crossThreadNode struct {
	event
	dep          promiseNode
	isWaiting    bool
	res          result
	onReadyEvent onReadySlot
}

func newCrossThreadNode(l *EventLoop, dep promiseNode) *crossThreadNode {
	n := &crossThreadNode{dep: dep}
	n.event.loop = l
	n.event.fireFn = n.fire
	n.arm(scheduleYield)
	return n
}

func (n *crossThreadNode) fire() {
	if !n.isWaiting && !n.dep.onReady(&n.event) {
		n.isWaiting = true
		return
	}

	n.dep.get(&n.res)
	dep := n.dep
	n.dep = nil
	dropCatching(dep, &n.res)

	n.onReadyEvent.ready(scheduleYield)
}

func (n *crossThreadNode) onReady(e *event) bool {
	return n.onReadyEvent.onReady(e)
}

func (n *crossThreadNode) get(out *result) {
	*out = n.res
}

func (n *crossThreadNode) safeEventLoop() *EventLoop {
	return nil
}

func (n *crossThreadNode) drop() {
	n.disarm()
	dep := n.dep
	n.dep = nil
	if dep != nil {
		dep.drop()
	}
}
