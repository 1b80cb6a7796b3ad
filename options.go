package mdmp

import (
	"github.com/go-kit/log"
)

// Advice is an access-pattern hint passed to the kernel for the mapping.
type Advice int

const (
	// AdviceRandom suits address lookups jumping between regions.
	AdviceRandom Advice = iota
	// AdviceSequential suits scanning every region in order.
	AdviceSequential
	// AdviceWillNeed asks the kernel to prefetch the whole file.
	AdviceWillNeed
	// AdviceNone leaves the kernel defaults alone.
	AdviceNone
)

type options struct {
	logger log.Logger
	advice Advice
}

func defaultOptions() options {
	return options{
		logger: log.NewNopLogger(),
		advice: AdviceRandom,
	}
}

// Option configures a Reader.
type Option func(*options)

// WithLogger sets the logger used for debug output. Defaults to a no-op
// logger.
func WithLogger(logger log.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithAccessAdvice sets the access-pattern hint given for the mapping.
// Defaults to AdviceRandom. Ignored by OpenBytes.
func WithAccessAdvice(a Advice) Option {
	return func(o *options) {
		o.advice = a
	}
}
