package eventlink

import (
	"log/slog"
	"time"

	"github.com/randalmurphal/eventlink/pkg/eventlink/compensation"
	"github.com/randalmurphal/eventlink/pkg/eventlink/counter"
	"github.com/randalmurphal/eventlink/pkg/eventlink/event"
	"github.com/randalmurphal/eventlink/pkg/eventlink/exchange"
	"github.com/randalmurphal/eventlink/pkg/eventlink/observability"
	"github.com/randalmurphal/eventlink/pkg/eventlink/readmodel"
	"github.com/randalmurphal/eventlink/pkg/eventlink/transport"
)

type runtimeConfig struct {
	logger         *slog.Logger
	metrics        observability.MetricsRecorder
	spans          observability.SpanManager
	transport      transport.Transport
	counters       counter.Store
	ledger         compensation.Ledger
	faults         compensation.FaultInjector
	providers      []exchange.Option
	handlers       []event.Handler
	posts          readmodel.PostLoader
	handlerTimeout time.Duration
}

// Option configures a Runtime.
type Option func(*runtimeConfig)

// WithLogger sets the logger shared by every component. Nil is ignored.
func WithLogger(logger *slog.Logger) Option {
	return func(c *runtimeConfig) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithMetrics overrides the recorder chosen by settings.
func WithMetrics(m observability.MetricsRecorder) Option {
	return func(c *runtimeConfig) {
		c.metrics = m
	}
}

// WithSpans overrides the span manager chosen by settings.
func WithSpans(s observability.SpanManager) Option {
	return func(c *runtimeConfig) {
		c.spans = s
	}
}

// WithTransport uses t instead of opening the configured transport. The
// caller keeps ownership: Close unsubscribes but does not close t.
func WithTransport(t transport.Transport) Option {
	return func(c *runtimeConfig) {
		c.transport = t
	}
}

// WithCounterStore uses store instead of the configured driver. The caller
// keeps ownership and closes it.
func WithCounterStore(store counter.Store) Option {
	return func(c *runtimeConfig) {
		c.counters = store
	}
}

// WithLedger records compensating transactions in l.
func WithLedger(l compensation.Ledger) Option {
	return func(c *runtimeConfig) {
		c.ledger = l
	}
}

// WithFaults overrides the fault injector derived from settings.
func WithFaults(f compensation.FaultInjector) Option {
	return func(c *runtimeConfig) {
		c.faults = f
	}
}

// WithProviders makes the node answer requests from the given providers.
func WithProviders(opts ...exchange.Option) Option {
	return func(c *runtimeConfig) {
		c.providers = append(c.providers, opts...)
	}
}

// WithHandlers registers extra handlers alongside the built-in ones.
func WithHandlers(handlers ...event.Handler) Option {
	return func(c *runtimeConfig) {
		c.handlers = append(c.handlers, handlers...)
	}
}

// WithPostLoader enables bookmark assembly on the HTTP API.
func WithPostLoader(l readmodel.PostLoader) Option {
	return func(c *runtimeConfig) {
		c.posts = l
	}
}

// WithHandlerTimeout bounds each handler invocation. Zero disables it.
func WithHandlerTimeout(d time.Duration) Option {
	return func(c *runtimeConfig) {
		c.handlerTimeout = d
	}
}
