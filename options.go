package contrastive

import (
	"log/slog"
)

// DefaultTemperature is the logit temperature used when WithTemperature is
// not supplied. Smaller values sharpen the softmax distribution.
const DefaultTemperature = 0.1

type options struct {
	temperature float32
	collector   Collector
	logger      *Logger
}

// Option configures loss-engine construction.
//
// Options exist to avoid exploding the API surface with constructor
// variants; both engines accept the same set.
type Option func(*options)

// WithTemperature configures the temperature applied to the SimCLR
// similarity logits. Values <= 0 fall back to DefaultTemperature.
func WithTemperature(tau float32) Option {
	return func(o *options) {
		if tau <= 0 {
			tau = DefaultTemperature
		}
		o.temperature = tau
	}
}

// WithCollector configures where forward results are reported.
//
// If nil is passed, NoopCollector is used.
func WithCollector(c Collector) Option {
	return func(o *options) {
		if c == nil {
			c = NoopCollector{}
		}
		o.collector = c
	}
}

// WithLogger sets a custom structured logger:
//
//	logger := contrastive.NewJSONLogger(slog.LevelInfo)
//	loss := contrastive.NewSIMCLRLoss(c, contrastive.WithLogger(logger))
func WithLogger(logger *Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithLogLevel creates a text logger with the specified level and sets it.
// Convenience shortcut for WithLogger(NewTextLogger(level)).
func WithLogLevel(level slog.Level) Option {
	return func(o *options) {
		o.logger = NewTextLogger(level)
	}
}

func defaultOptions() options {
	return options{
		temperature: DefaultTemperature,
		collector:   NoopCollector{},
		logger:      NoopLogger(),
	}
}
