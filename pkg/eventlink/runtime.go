package eventlink

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/randalmurphal/eventlink/pkg/eventlink/compensation"
	"github.com/randalmurphal/eventlink/pkg/eventlink/config"
	"github.com/randalmurphal/eventlink/pkg/eventlink/correlation"
	"github.com/randalmurphal/eventlink/pkg/eventlink/counter"
	"github.com/randalmurphal/eventlink/pkg/eventlink/event"
	"github.com/randalmurphal/eventlink/pkg/eventlink/exchange"
	"github.com/randalmurphal/eventlink/pkg/eventlink/httpapi"
	"github.com/randalmurphal/eventlink/pkg/eventlink/observability"
	"github.com/randalmurphal/eventlink/pkg/eventlink/readmodel"
	"github.com/randalmurphal/eventlink/pkg/eventlink/transport"
)

// Runtime is one eventlink node: a transport, the publisher and router over
// it, the correlation store, counter and compensation handlers, request
// resolvers, optional responders, and the read-model assembler.
type Runtime struct {
	settings   config.Settings
	cfg        runtimeConfig
	transport  transport.Transport
	publisher  *event.Publisher
	router     *event.Router
	registry   *event.HandlerRegistry
	requests   *correlation.Store
	counters   counter.Store
	ledger     compensation.Ledger
	assembler  *readmodel.Assembler
	mu         sync.Mutex
	started    bool
	closed     bool
	sub        transport.Subscription
	stopSweep  context.CancelFunc
	sweepDone  chan struct{}
	closeOnce  sync.Once
	closeError error

	// Set when open created the component; caller-supplied ones stay open.
	ownsTransport bool
	ownsCounters  bool
}

// New validates settings and builds a runtime. Nothing is delivered until
// Start.
func New(ctx context.Context, settings config.Settings, opts ...Option) (*Runtime, error) {
	if err := settings.Validate(); err != nil {
		return nil, err
	}

	cfg := runtimeConfig{logger: slog.Default()}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.metrics == nil {
		cfg.metrics = metricsFor(settings)
	}
	if cfg.spans == nil {
		cfg.spans = spansFor(settings)
	}
	if cfg.ledger == nil {
		cfg.ledger = compensation.NewMemoryLedger()
	}

	rt := &Runtime{settings: settings, cfg: cfg, ledger: cfg.ledger}
	if err := rt.open(ctx); err != nil {
		rt.release()
		return nil, err
	}
	if err := rt.wire(); err != nil {
		rt.release()
		return nil, err
	}
	return rt, nil
}

func metricsFor(s config.Settings) observability.MetricsRecorder {
	if s.Observability.Metrics {
		return observability.NewMetricsRecorder()
	}
	return observability.NoopMetrics{}
}

func spansFor(s config.Settings) observability.SpanManager {
	if s.Observability.Tracing {
		return observability.NewSpanManager()
	}
	return observability.NoopSpanManager{}
}

// open acquires the transport and the counter store.
func (rt *Runtime) open(ctx context.Context) error {
	rt.transport = rt.cfg.transport
	if rt.transport == nil {
		t, err := transport.Open(ctx, TransportConfig(rt.settings), transport.WithLogger(rt.cfg.logger))
		if err != nil {
			return fmt.Errorf("open transport: %w", err)
		}
		rt.transport = t
		rt.ownsTransport = true
	}

	rt.counters = rt.cfg.counters
	if rt.counters == nil {
		store, err := OpenCounterStore(rt.settings.Counters)
		if err != nil {
			return fmt.Errorf("open counter store: %w", err)
		}
		rt.counters = store
		rt.ownsCounters = true
	}
	return nil
}

func (rt *Runtime) wire() error {
	logger := rt.cfg.logger

	rt.publisher = event.NewPublisher(rt.transport,
		event.WithLogger(logger),
		event.WithMetrics(rt.cfg.metrics),
	)
	rt.requests = correlation.NewStore(
		correlation.WithRetention(rt.settings.Requests.Retention),
		correlation.WithDefaultTimeout(rt.settings.Requests.Timeout),
		correlation.WithLogger(logger),
		correlation.WithMetrics(rt.cfg.metrics),
	)

	compOpts := []compensation.Option{
		compensation.WithLogger(logger),
		compensation.WithMetrics(rt.cfg.metrics),
		compensation.WithLedger(rt.ledger),
	}
	if rt.cfg.faults != nil {
		compOpts = append(compOpts, compensation.WithFaults(rt.cfg.faults))
	}
	counterHandlers, err := compensation.NewCounterHandlers(rt.counters, rt.publisher, CompensationConfig(rt.settings), compOpts...)
	if err != nil {
		return err
	}

	builder := event.NewRegistryBuilder().
		Add(counterHandlers...).
		Add(compensation.NewCompensator(rt.counters, compOpts...).Handlers()...).
		Add(exchange.Resolvers(rt.requests)...)
	if len(rt.cfg.providers) > 0 {
		providers := append([]exchange.Option{exchange.WithLogger(logger)}, rt.cfg.providers...)
		builder.Add(exchange.NewResponders(rt.publisher, providers...).Handlers()...)
	}
	builder.Add(rt.cfg.handlers...)

	rt.registry, err = builder.Build()
	if err != nil {
		return fmt.Errorf("build handler registry: %w", err)
	}
	rt.router = event.NewRouter(rt.registry,
		event.WithLogger(logger),
		event.WithMetrics(rt.cfg.metrics),
		event.WithSpans(rt.cfg.spans),
		event.WithHandlerTimeout(rt.cfg.handlerTimeout),
	)
	rt.assembler = readmodel.NewAssembler(rt.publisher, rt.requests,
		readmodel.WithTimeouts(RequestTimeouts(rt.settings)),
		readmodel.WithLogger(logger),
	)
	return nil
}

// Start subscribes the router to both channels and starts the request
// sweeper. The runtime delivers until ctx is done or Close is called.
func (rt *Runtime) Start(ctx context.Context) error {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	switch {
	case rt.closed:
		return ErrRuntimeClosed
	case rt.started:
		return ErrAlreadyStarted
	}

	sub, err := rt.transport.Subscribe(ctx, rt.router.OnMessage, transport.ChannelNames()...)
	if err != nil {
		return fmt.Errorf("subscribe: %w", err)
	}
	rt.sub = sub

	sweepCtx, cancel := context.WithCancel(ctx)
	rt.stopSweep = cancel
	rt.sweepDone = make(chan struct{})
	go func() {
		defer close(rt.sweepDone)
		rt.requests.Run(sweepCtx, rt.settings.Requests.SweepInterval)
	}()

	rt.started = true
	rt.cfg.logger.Info("eventlink runtime started",
		slog.String("transport", rt.settings.Transport.Kind),
		slog.String("counters", rt.settings.Counters.Driver),
		slog.Int("event_types", len(rt.registry.Types())),
		slog.Bool("compensation", rt.settings.Compensation.EnableCompensation),
	)
	return nil
}

// Close stops delivery and closes the transport and counter store the
// runtime opened itself. Ones passed with WithTransport or WithCounterStore
// are left to the caller. It is safe to call more than once.
func (rt *Runtime) Close() error {
	rt.closeOnce.Do(func() {
		rt.mu.Lock()
		rt.closed = true
		sub, stop, done := rt.sub, rt.stopSweep, rt.sweepDone
		rt.mu.Unlock()

		var errs []error
		if sub != nil {
			if err := sub.Unsubscribe(); err != nil {
				errs = append(errs, fmt.Errorf("unsubscribe: %w", err))
			}
		}
		if stop != nil {
			stop()
			<-done
		}
		if err := rt.release(); err != nil {
			errs = append(errs, err)
		}
		rt.closeError = errors.Join(errs...)
	})
	return rt.closeError
}

func (rt *Runtime) release() error {
	var errs []error
	if rt.transport != nil && rt.ownsTransport {
		if err := rt.transport.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close transport: %w", err))
		}
	}
	if rt.counters != nil && rt.ownsCounters {
		if err := rt.counters.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close counter store: %w", err))
		}
	}
	return errors.Join(errs...)
}

// Publisher returns the bus modules publish on.
func (rt *Runtime) Publisher() event.EventBus { return rt.publisher }

// Router returns the router fed by the transport.
func (rt *Runtime) Router() *event.Router { return rt.router }

// Requests returns the correlation store.
func (rt *Runtime) Requests() *correlation.Store { return rt.requests }

// Counters returns the post counter store.
func (rt *Runtime) Counters() counter.Store { return rt.counters }

// Ledger returns the compensation ledger.
func (rt *Runtime) Ledger() compensation.Ledger { return rt.ledger }

// Assembler returns the read-model assembler.
func (rt *Runtime) Assembler() *readmodel.Assembler { return rt.assembler }

// Settings returns the settings the runtime was built from.
func (rt *Runtime) Settings() config.Settings { return rt.settings }

// HTTPHandler returns the debug/query API over this runtime.
func (rt *Runtime) HTTPHandler() http.Handler {
	return httpapi.NewRouter(httpapi.Deps{
		Requests:  rt.requests,
		Ledger:    rt.ledger,
		Counters:  rt.counters,
		Assembler: rt.assembler,
		Posts:     rt.cfg.posts,
		Bus:       rt.publisher,
		Catalog:   rt.registry.Catalog(),
		Logger:    rt.cfg.logger,
	})
}

// TransportConfig maps settings to a transport configuration.
func TransportConfig(s config.Settings) transport.Config {
	t := s.Transport
	return transport.Config{
		Kind: transport.Kind(t.Kind),
		Memory: transport.MemoryConfig{
			BufferSize:  t.BufferSize,
			NonBlocking: t.NonBlocking,
		},
		Redis: transport.RedisConfig{URL: t.RedisURL},
		Kafka: transport.KafkaConfig{
			Brokers:      t.KafkaBrokers,
			TopicPrefix:  t.KafkaTopicPrefix,
			GroupID:      t.KafkaGroupID,
			InstanceID:   t.KafkaInstanceID,
			SharedGroup:  t.KafkaSharedGroup,
			BatchTimeout: t.KafkaBatchWait,
		},
	}
}

// CompensationConfig maps settings to a compensation configuration.
func CompensationConfig(s config.Settings) compensation.Config {
	return compensation.Config{
		SimulateFailure:    s.Compensation.SimulateFailure,
		FailureRate:        s.Compensation.FailureRate,
		EnableCompensation: s.Compensation.EnableCompensation,
	}
}

// RequestTimeouts maps settings to per-kind request bounds.
func RequestTimeouts(s config.Settings) correlation.Timeouts {
	r := s.Requests
	per := map[correlation.Kind]time.Duration{}
	for kind, d := range map[correlation.Kind]time.Duration{
		correlation.KindUser:        r.UserTimeout,
		correlation.KindInteraction: r.InteractionTimeout,
		correlation.KindComment:     r.CommentTimeout,
		correlation.KindBookmark:    r.BookmarkTimeout,
		correlation.KindValidation:  r.ValidationTimeout,
	} {
		if d > 0 {
			per[kind] = d
		}
	}
	return correlation.Timeouts{Default: r.Timeout, PerKind: per}
}

// OpenCounterStore opens the store selected by s.Driver.
func OpenCounterStore(s config.CounterSettings) (counter.Store, error) {
	switch s.Driver {
	case "memory", "":
		return counter.NewMemoryStore(), nil
	case "sqlite":
		store, err := counter.NewSQLiteStore(s.Path)
		if err != nil {
			return nil, err
		}
		return store, nil
	default:
		return nil, fmt.Errorf("unknown counter driver %q", s.Driver)
	}
}
