//go:build !linux

package promise

import "errors"

// newPlatformWaker maps a WakeupMode to a concrete waker on platforms
// without eventfd support.
func newPlatformWaker(mode WakeupMode) (waker, error) {
	if mode == WakeupEventFD {
		return nil, errors.New("promise: eventfd wakeup is only supported on linux")
	}
	return newCondWaker(), nil
}
