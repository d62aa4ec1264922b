package proxy

import (
	"time"

	"keyproxy/pkg/introspect"
	"keyproxy/pkg/target"
)

// CreateMode selects how Create treats a key that already exists.
type CreateMode uint8

const (
	// CreateKeepExisting leaves every existing key untouched.
	CreateKeepExisting CreateMode = iota
	// CreateFillUninitialised writes the value into existing keys that are
	// not initialised yet.
	CreateFillUninitialised
)

func (m CreateMode) String() string {
	switch m {
	case CreateKeepExisting:
		return "keep-existing"
	case CreateFillUninitialised:
		return "fill-uninitialised"
	default:
		return "unknown"
	}
}

// Logger is the minimal structured logging contract used by the accessor.
// *slog.Logger satisfies it.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// MetricsRecorder observes the outcome of every accessor operation.
type MetricsRecorder interface {
	Observe(operation string, success bool, duration time.Duration)
}

type noopMetricsRecorder struct{}

func (noopMetricsRecorder) Observe(string, bool, time.Duration) {}

// Clock provides the time source used to measure operation durations.
type Clock interface {
	Now() time.Time
}

// ClockFunc adapts a function to the Clock interface.
type ClockFunc func() time.Time

// Now returns the current time from the underlying function.
func (f ClockFunc) Now() time.Time {
	return f()
}

// Option customises an accessor. Nested accessors inherit their parent's
// options.
type Option func(*options)

type options struct {
	introspector target.Introspector
	createMode   CreateMode
	logger       Logger
	metrics      MetricsRecorder
	clock        Clock
}

func defaultOptions() options {
	return options{
		introspector: introspect.Default(),
		createMode:   CreateKeepExisting,
		logger:       noopLogger{},
		metrics:      noopMetricsRecorder{},
		clock:        ClockFunc(time.Now),
	}
}

func resolveOptions(opts []Option) options {
	o := defaultOptions()
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}
	return o
}

// WithIntrospector replaces the introspector used to classify wrapped and
// nested values.
func WithIntrospector(in target.Introspector) Option {
	return func(o *options) {
		if in != nil {
			o.introspector = in
		}
	}
}

// WithCreateMode sets how Create treats existing keys.
func WithCreateMode(mode CreateMode) Option {
	return func(o *options) {
		o.createMode = mode
	}
}

// WithLogger sets the logger receiving mutation events.
func WithLogger(logger Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithMetricsRecorder sets the recorder observing operation outcomes.
func WithMetricsRecorder(recorder MetricsRecorder) Option {
	return func(o *options) {
		if recorder != nil {
			o.metrics = recorder
		}
	}
}

// WithClock overrides the time source used for operation durations.
func WithClock(clock Clock) Option {
	return func(o *options) {
		if clock != nil {
			o.clock = clock
		}
	}
}
