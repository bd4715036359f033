package promise

// loopOptions holds configuration options for EventLoop creation.
type loopOptions struct {
	wakeupMode WakeupMode
	logger     Logger
}

// LoopOption configures an EventLoop instance.
type LoopOption interface {
	applyLoop(*loopOptions) error
}

// loopOptionImpl implements LoopOption.
type loopOptionImpl struct {
	applyLoopFunc func(*loopOptions) error
}

func (l *loopOptionImpl) applyLoop(opts *loopOptions) error {
	return l.applyLoopFunc(opts)
}

// WithWakeupMode selects the loop's sleep/wake primitive. The default,
// [WakeupAuto], uses an eventfd on Linux and a condition variable elsewhere.
func WithWakeupMode(mode WakeupMode) LoopOption {
	return &loopOptionImpl{func(opts *loopOptions) error {
		opts.wakeupMode = mode
		return nil
	}}
}

// WithLogger attaches a structured logger to the loop. When unset, the loop
// logs through the package-level logger configured with
// [SetStructuredLogger].
func WithLogger(logger Logger) LoopOption {
	return &loopOptionImpl{func(opts *loopOptions) error {
		opts.logger = logger
		return nil
	}}
}

// resolveLoopOptions applies LoopOption instances to loopOptions.
func resolveLoopOptions(opts []LoopOption) (*loopOptions, error) {
	cfg := &loopOptions{
		wakeupMode: WakeupAuto, // default
	}
	for _, opt := range opts {
		if opt == nil {
			continue // Skip nil options gracefully
		}
		if err := opt.applyLoop(cfg); err != nil {
			return nil, err
		}
	}
	return cfg, nil
}
