package compensation

import (
	"log/slog"
	"time"

	"github.com/randalmurphal/eventlink/pkg/eventlink/observability"
)

type options struct {
	logger  *slog.Logger
	metrics observability.MetricsRecorder
	ledger  Ledger
	faults  FaultInjector
	now     func() time.Time
}

func applyOptions(opts []Option) options {
	o := options{
		logger:  slog.Default(),
		metrics: observability.NoopMetrics{},
		ledger:  NewMemoryLedger(),
		now:     func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// Option configures a CounterHandler or Compensator.
type Option func(*options)

// WithLogger sets the logger. Nil is ignored.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithMetrics sets the metrics recorder. Nil is ignored.
func WithMetrics(m observability.MetricsRecorder) Option {
	return func(o *options) {
		if m != nil {
			o.metrics = m
		}
	}
}

// WithLedger sets the ledger transactions are recorded in. Share one ledger
// between handlers and the compensator to follow a transaction end to end.
func WithLedger(l Ledger) Option {
	return func(o *options) {
		if l != nil {
			o.ledger = l
		}
	}
}

// WithFaults overrides the injector derived from Config.
func WithFaults(f FaultInjector) Option {
	return func(o *options) {
		if f != nil {
			o.faults = f
		}
	}
}

// WithClock sets the clock used for ledger timestamps.
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		if now != nil {
			o.now = now
		}
	}
}
