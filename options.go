package corebridge

import (
	"fmt"

	"github.com/joeycumines/logiface"
)

// options holds shared configuration applied by [Option] values.
type options struct {
	logger     *logiface.Logger[logiface.Event]
	taskBudget int
}

// Option configures a component constructor ([NewSelectorLoop],
// [NewLoopSelector], [NewCompletionBridge], [NewSocketWatcher],
// [NewTimerBridge], [NewConnector], [NewRetryPoller]). Each constructor uses
// the fields relevant to it and ignores the rest.
type Option interface {
	apply(*options) error
}

// optionImpl implements Option.
type optionImpl struct {
	applyFunc func(*options) error
}

func (o *optionImpl) apply(cfg *options) error {
	return o.applyFunc(cfg)
}

// WithLogger attaches a structured logger. A nil logger disables logging,
// which is also the default.
func WithLogger(logger *logiface.Logger[logiface.Event]) Option {
	return &optionImpl{func(cfg *options) error {
		cfg.logger = logger
		return nil
	}}
}

// WithTaskBudget sets the maximum number of submitted tasks executed per loop
// tick before yielding to timers and I/O. Only meaningful for
// [NewSelectorLoop] (and loops constructed on its behalf by [LoopSelector]).
func WithTaskBudget(n int) Option {
	return &optionImpl{func(cfg *options) error {
		if n <= 0 {
			return fmt.Errorf("corebridge: task budget must be positive: %d", n)
		}
		cfg.taskBudget = n
		return nil
	}}
}

// resolveOptions applies Option instances over the defaults.
func resolveOptions(opts []Option) (*options, error) {
	cfg := &options{
		taskBudget: 1024,
	}
	for _, opt := range opts {
		if opt == nil {
			continue // Skip nil options gracefully
		}
		if err := opt.apply(cfg); err != nil {
			return nil, err
		}
	}
	return cfg, nil
}
