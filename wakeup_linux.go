//go:build linux

package promise

import (
	"encoding/binary"
	"sync/atomic"

	"golang.org/x/sys/unix"
)

// eventfdWaker implements the sleep/wake protocol with a Linux eventfd and a
// relaxed atomic prepared flag, in the manner of a futex: wake exchanges the
// flag to 0 and writes the eventfd only if the previous value was 1.
type eventfdWaker struct {
	prepared atomic.Int32
	fd       int
}

func newEventfdWaker() (*eventfdWaker, error) {
	// Blocking read end: sleep parks in read(2) until a wake writes.
	fd, err := unix.Eventfd(0, unix.EFD_CLOEXEC)
	if err != nil {
		return nil, WrapError("promise: eventfd", err)
	}
	return &eventfdWaker{fd: fd}, nil
}

func (w *eventfdWaker) prepareToSleep() {
	w.prepared.Store(1)
}

func (w *eventfdWaker) sleep() {
	var buf [8]byte
	for w.prepared.Load() == 1 {
		if _, err := readFD(w.fd, buf[:]); err != nil {
			if err == unix.EINTR {
				continue
			}
			// Resource errors on the wake primitive are fatal.
			panic(WrapError("promise: eventfd read", err))
		}
	}
}

func (w *eventfdWaker) wake() {
	if w.prepared.Swap(0) != 0 {
		// prepared was 1, so a sleep is in progress (or imminent) on the
		// loop goroutine.
		var buf [8]byte
		binary.NativeEndian.PutUint64(buf[:], 1)
		if _, err := writeFD(w.fd, buf[:]); err != nil && err != unix.EAGAIN {
			panic(WrapError("promise: eventfd write", err))
		}
	}
}

func (w *eventfdWaker) close() error {
	return closeFD(w.fd)
}

// newPlatformWaker maps a WakeupMode to a concrete waker on Linux.
func newPlatformWaker(mode WakeupMode) (waker, error) {
	switch mode {
	case WakeupCond:
		return newCondWaker(), nil
	default:
		return newEventfdWaker()
	}
}
