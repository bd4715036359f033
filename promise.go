package promise

// Promise is the user-facing handle over one node of the promise graph. A
// handle owns its node exclusively; combinators consume the handle and move
// the node into the resulting combinator node. Using a handle after it has
// been consumed panics with [ErrPromiseConsumed].
type Promise[T any] struct {
	node promiseNode
}

// takeNode moves the node out of the handle.
func (p *Promise[T]) takeNode() promiseNode {
	if p == nil || p.node == nil {
		panic(ErrPromiseConsumed)
	}
	n := p.node
	p.node = nil
	return n
}

// Resolve returns a promise that is already fulfilled with v.
func Resolve[T any](v T) *Promise[T] {
	return &Promise[T]{node: newImmediateNode(v)}
}

// Reject returns a promise that is already broken with err.
func Reject[T any](err error) *Promise[T] {
	return &Promise[T]{node: newBrokenNode(err)}
}

// Broken returns a promise already broken with a [BrokenError] carrying the
// given message.
func Broken[T any](message string) *Promise[T] {
	return Reject[T](&BrokenError{Message: message})
}

// eraseFn adapts a typed transform to the erased node signature.
func eraseFn[T, U any](fn func(T) (U, error)) func(any) (any, error) {
	return func(v any) (any, error) {
		t, _ := v.(T)
		return fn(t)
	}
}

// eraseErrFn adapts a typed error handler to the erased node signature.
func eraseErrFn[U any](fn func(error) (U, error)) func(error) (any, error) {
	return func(err error) (any, error) {
		return fn(err)
	}
}

// erasePromiseFn adapts a promise-returning transform: the returned handle's
// node is moved out immediately so the chain can adopt it.
func erasePromiseFn[T, U any](fn func(T) (*Promise[U], error)) func(any) (any, error) {
	return func(v any) (any, error) {
		t, _ := v.(T)
		next, err := fn(t)
		if err != nil {
			return nil, err
		}
		if next == nil {
			return nil, ErrNilPromise
		}
		return next.takeNode(), nil
	}
}

// Then attaches a synchronous transform to p. The transform runs when the
// result is extracted; an error return or a panic breaks the resulting
// promise, and a failure of p skips fn entirely.
//
// When called inside a Wait, the transform is pinned to the current loop and
// p is bridged to it if pinned elsewhere. Outside any Wait the transform is
// unpinned and inherits p's pin.
func Then[T, U any](p *Promise[T], fn func(T) (U, error)) *Promise[U] {
	return thenImpl[T, U](p, eraseFn(fn), nil)
}

// ThenCatch is Then with an error handler: failures of p are routed to
// errFn, which may recover with a substitute value or return a new error.
func ThenCatch[T, U any](p *Promise[T], fn func(T) (U, error), errFn func(error) (U, error)) *Promise[U] {
	return thenImpl[T, U](p, eraseFn(fn), eraseErrFn(errFn))
}

func thenImpl[T, U any](p *Promise[T], fn func(any) (any, error), errFn func(error) (any, error)) *Promise[U] {
	dep := p.takeNode()
	l := currentOrNil()
	if l != nil {
		dep = makeSafeForLoop(dep, l)
	}
	return &Promise[U]{node: &transformNode{loop: l, dep: dep, fn: fn, errFn: errFn}}
}

// ThenPromise attaches a continuation that itself returns a promise; the
// resulting promise collapses the nesting, settling to the inner promise's
// result.
//
// Must be called inside a Wait (the collapse is driven by an event on the
// current loop); panics with [ErrNoCurrentLoop] otherwise. Use
// [TherePromise] outside a Wait.
func ThenPromise[T, U any](p *Promise[T], fn func(T) (*Promise[U], error)) *Promise[U] {
	l, err := Current()
	if err != nil {
		panic(err)
	}
	t := &transformNode{loop: l, dep: makeSafeForLoop(p.takeNode(), l), fn: erasePromiseFn(fn)}
	return &Promise[U]{node: newChainNode(l, t, schedulePreempt)}
}

// There schedules fn to consume p's result on the given loop, which may be a
// different loop than the one p is pinned to. Evaluation is forced to begin
// as soon as the loop runs, even if nothing waits on the returned promise.
func There[T, U any](l *EventLoop, p *Promise[T], fn func(T) (U, error)) *Promise[U] {
	return thereImpl[T, U](l, p.takeNode(), eraseFn(fn), nil)
}

// ThereCatch is There with an error handler.
func ThereCatch[T, U any](l *EventLoop, p *Promise[T], fn func(T) (U, error), errFn func(error) (U, error)) *Promise[U] {
	return thereImpl[T, U](l, p.takeNode(), eraseFn(fn), eraseErrFn(errFn))
}

func thereImpl[T, U any](l *EventLoop, dep promiseNode, fn func(any) (any, error), errFn func(error) (any, error)) *Promise[U] {
	t := &transformNode{loop: l, dep: makeSafeForLoop(dep, l), fn: fn, errFn: errFn}
	return &Promise[U]{node: spark(t, l)}
}

// TherePromise is [ThenPromise] scheduled on an explicit loop; the chain's
// first step is appended at the loop's tail so that successive scheduled
// continuations run in order.
func TherePromise[T, U any](l *EventLoop, p *Promise[T], fn func(T) (*Promise[U], error)) *Promise[U] {
	t := &transformNode{loop: l, dep: makeSafeForLoop(p.takeNode(), l), fn: erasePromiseFn(fn)}
	chain := newChainNode(l, t, scheduleYield)
	return &Promise[U]{node: spark(chain, l)}
}

// EvalLater schedules fn to run on l at tail-of-queue fairness. Successive
// EvalLater calls against the same loop execute in order.
func EvalLater[T any](l *EventLoop, fn func() (T, error)) *Promise[T] {
	return There(l, Resolve(struct{}{}), func(struct{}) (T, error) {
		return fn()
	})
}

// Wait drives l until p is ready, consuming p, and returns its result. The
// calling goroutine becomes the loop's driver for the duration; re-entering
// Wait on the same loop panics. If p is pinned to a different loop it is
// bridged with a cross-thread node, and that loop must be driven elsewhere.
func Wait[T any](l *EventLoop, p *Promise[T]) (T, error) {
	node := p.takeNode()
	var zero T

	l.queueMu.Lock()
	closed := l.closed
	l.queueMu.Unlock()
	if closed {
		var res result
		dropCatching(node, &res)
		return zero, ErrLoopClosed
	}

	var res result
	l.waitImpl(makeSafeForLoop(node, l), &res)
	if res.err != nil {
		return zero, res.err
	}
	v, ok := res.value.(T)
	if !ok {
		return zero, nil
	}
	return v, nil
}

// Absolve drops the promise without surfacing any pending failure. Panics
// raised while releasing the node are swallowed and logged at debug level.
func (p *Promise[T]) Absolve() {
	if p == nil || p.node == nil {
		return
	}
	node := p.node
	p.node = nil
	defer func() {
		if r := recover(); r != nil {
			logDebug(nil, "absolve", "panic swallowed while releasing node", 0,
				map[string]any{"panic": r})
		}
	}()
	node.drop()
}

// Fork splits p into a hub on l from which any number of independently
// waitable branches can be taken. Every branch observes the same value or
// the same failure; branch results are shallow copies, so T should be a
// value type or safe for concurrent reads.
func (p *Promise[T]) Fork(l *EventLoop) *ForkedPromise[T] {
	return &ForkedPromise[T]{hub: newForkHub(l, makeSafeForLoop(p.takeNode(), l))}
}

// ForkedPromise is the shared source produced by [Promise.Fork].
type ForkedPromise[T any] struct {
	hub *forkHub
}

// AddBranch returns a new consumer of the forked result. Branches may be
// added before or after the source settles; late branches are born ready.
func (f *ForkedPromise[T]) AddBranch() *Promise[T] {
	if f == nil || f.hub == nil {
		panic(ErrPromiseConsumed)
	}
	return &Promise[T]{node: f.hub.addBranch()}
}

// Absolve releases the handle's reference on the hub. Existing branches
// keep the hub (and its result) alive; AddBranch panics afterwards.
func (f *ForkedPromise[T]) Absolve() {
	if f == nil || f.hub == nil {
		return
	}
	hub := f.hub
	f.hub = nil
	hub.release()
}

// Fulfiller is the sender half of a promise/fulfiller pair. It is safe to
// call from any goroutine. Once the paired promise is dropped, Fulfill and
// Reject become silent no-ops.
type Fulfiller[T any] struct {
	w *weakFulfiller
}

// Fulfill publishes a value. Only the first of Fulfill/Reject takes effect.
func (f *Fulfiller[T]) Fulfill(v T) {
	f.w.fulfill(v)
}

// Reject publishes a failure. Only the first of Fulfill/Reject takes effect.
func (f *Fulfiller[T]) Reject(err error) {
	f.w.reject(err)
}

// IsWaiting reports whether the paired promise is still attached and
// unsettled.
func (f *Fulfiller[T]) IsWaiting() bool {
	return f.w.isWaiting()
}

// NewPromiseFulfiller returns a promise and a [Fulfiller] that settles it.
// The fulfiller side is usable from any goroutine; a loop waiting on the
// promise is woken when the fulfiller fires.
func NewPromiseFulfiller[T any]() (*Promise[T], *Fulfiller[T]) {
	node, w := newAdaptedPromise()
	return &Promise[T]{node: node}, &Fulfiller[T]{w: w}
}
