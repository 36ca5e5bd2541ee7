package event

import (
	"log/slog"
	"time"

	elerrors "github.com/randalmurphal/eventlink/pkg/eventlink/errors"
	"github.com/randalmurphal/eventlink/pkg/eventlink/observability"
)

type options struct {
	logger         *slog.Logger
	metrics        observability.MetricsRecorder
	spans          observability.SpanManager
	retry          elerrors.RetryConfig
	handlerTimeout time.Duration
	onError        func(evt DomainEvent, handler string, err error)
}

func defaultOptions() options {
	return options{
		logger:  slog.Default(),
		metrics: observability.NoopMetrics{},
		spans:   observability.NoopSpanManager{},
		retry:   elerrors.DefaultRetry,
	}
}

func applyOptions(opts []Option) options {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// Option configures a Publisher or Router.
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

// WithSpans sets the span manager used by the router. Nil is ignored.
func WithSpans(s observability.SpanManager) Option {
	return func(o *options) {
		if s != nil {
			o.spans = s
		}
	}
}

// WithRetry sets the publish retry policy for transient transport errors.
func WithRetry(cfg elerrors.RetryConfig) Option {
	return func(o *options) {
		o.retry = cfg
	}
}

// WithHandlerTimeout bounds each handler invocation's context.
// Zero disables the bound.
func WithHandlerTimeout(d time.Duration) Option {
	return func(o *options) {
		o.handlerTimeout = d
	}
}

// WithErrorHook is called for every failed handler invocation, after logging.
func WithErrorHook(fn func(evt DomainEvent, handler string, err error)) Option {
	return func(o *options) {
		o.onError = fn
	}
}
