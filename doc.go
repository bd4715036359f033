// Package promise provides a single-threaded cooperative event loop and a
// composable promise graph supporting chaining, fan-out (fork), and
// cross-thread hand-off of results.
//
// # Architecture
//
// The package is built around an [EventLoop]: a per-goroutine scheduler that
// drains an intrusive FIFO of events in strict priority order. Promises are
// thin generic handles ([Promise]) over an internal graph of nodes; each node
// knows how to register a continuation event, surface its result, and report
// the loop (if any) it is pinned to.
//
// Continuations are attached with [Then] (synchronous transform),
// [ThenPromise] (promise-returning transform; the chain collapses one level
// automatically), and [ThenCatch] (transform with an error handler).
// [Promise.Fork] fans a single result out to any number of independently
// waitable branches. [NewPromiseFulfiller] produces a promise together with a
// [Fulfiller] that may be invoked from any goroutine.
//
// # Scheduling
//
// Two disciplines govern queue insertion. Events armed while another event is
// firing are inserted immediately after it (preempt), so that increasing the
// granularity of a computation never demotes its priority. Cross-thread
// publications and fork notifications are appended at the tail (yield),
// preserving global FIFO across producers targeting the same loop.
//
// # Thread Safety
//
// Each loop is single-threaded and cooperative: exactly one goroutine drives
// it at a time, inside a Wait call. Multiple loops on multiple goroutines
// coexist; the only cross-loop primitives are the cross-thread node used
// internally by [There], fork, and the fulfiller pair, all of which publish
// readiness through an atomic one-word protocol with release/acquire
// ordering.
//
// [EventLoop.Wake] is safe to call from any goroutine. Waking uses an eventfd
// on Linux and a condition variable elsewhere; no wakeup is lost between
// enqueue and sleep.
//
// # Errors
//
// Failures travel through the promise graph as ordinary error values: a
// transform that returns an error produces a broken promise, chains adopt
// broken inner promises, and every fork branch observes the same failure.
// Panics recovered from user functions are wrapped in [PanicError]; errors
// accumulated while releasing dependencies are joined into [AggregateError].
// Contract violations, such as registering two continuations on the same
// node, are programming errors and panic.
//
// # Usage
//
//	loop, err := promise.NewEventLoop()
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer loop.Close()
//
//	p := promise.EvalLater(loop, func() (int, error) {
//		return 6, nil
//	})
//	v, err := promise.Wait(loop, p) // 6, nil
//
// Within a Wait, continuations run on the waiting goroutine:
//
//	doubled := promise.Then(p, func(v int) (int, error) {
//		return v * 2, nil
//	})
package promise
