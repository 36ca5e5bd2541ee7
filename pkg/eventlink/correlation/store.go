package correlation

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/randalmurphal/eventlink/pkg/eventlink/observability"
)

// Kind is the logical category of a request.
type Kind string

const (
	KindUser        Kind = "user"
	KindInteraction Kind = "interaction"
	KindComment     Kind = "comment"
	KindBookmark    Kind = "bookmark"
	KindValidation  Kind = "validation"
)

// Kinds returns every request kind.
func Kinds() []Kind {
	return []Kind{KindUser, KindInteraction, KindComment, KindBookmark, KindValidation}
}

// DefaultRetention is how long an entry may live before Sweep reclaims it.
const DefaultRetention = 5 * time.Minute

// DefaultTimeout bounds Await when the caller passes a non-positive timeout.
const DefaultTimeout = 2 * time.Second

// NewRequestID returns prefix_<uuid>, or a bare uuid when prefix is empty.
func NewRequestID(prefix string) string {
	if prefix == "" {
		return uuid.New().String()
	}
	return prefix + "_" + uuid.New().String()
}

type state int

const (
	statePending state = iota
	stateResolved
	stateExpired
)

// entry is one PendingRequest. done is closed exactly once, on the first
// transition out of pending.
type entry struct {
	id        string
	kind      Kind
	createdAt time.Time
	state     state
	value     any
	done      chan struct{}
}

func (e *entry) finish(s state, value any) bool {
	if e.state != statePending {
		return false
	}
	e.state = s
	e.value = value
	close(e.done)
	return true
}

// Stats is a point-in-time view of the store.
type Stats struct {
	Pending     int          `json:"pending"`
	Uncollected int          `json:"uncollected"`
	ByKind      map[Kind]int `json:"byKind"`
	Oldest      time.Time    `json:"oldest"`

	Registered int64 `json:"registered"`
	Resolved   int64 `json:"resolved"`
	TimedOut   int64 `json:"timedOut"`
	Discarded  int64 `json:"discarded"`
}

// Store tracks outstanding requests by id. It is safe for concurrent use;
// waiters on distinct ids never block one another.
type Store struct {
	mu      sync.Mutex
	entries map[string]*entry

	registered int64
	resolved   int64
	timedOut   int64
	discarded  int64

	retention      time.Duration
	lastSweep      time.Time
	defaultTimeout time.Duration
	now            func() time.Time
	logger         *slog.Logger
	metrics        observability.MetricsRecorder
}

// Option configures a Store.
type Option func(*Store)

// WithRetention sets how long an entry may live before Sweep reclaims it.
func WithRetention(d time.Duration) Option {
	return func(s *Store) {
		if d > 0 {
			s.retention = d
		}
	}
}

// WithDefaultTimeout sets the bound used when Await gets a non-positive timeout.
func WithDefaultTimeout(d time.Duration) Option {
	return func(s *Store) {
		if d > 0 {
			s.defaultTimeout = d
		}
	}
}

// WithClock overrides the time source used for entry ages.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		if now != nil {
			s.now = now
		}
	}
}

// WithLogger sets the logger. Nil is ignored.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithMetrics sets the metrics recorder. Nil is ignored.
func WithMetrics(m observability.MetricsRecorder) Option {
	return func(s *Store) {
		if m != nil {
			s.metrics = m
		}
	}
}

// NewStore creates an empty Store.
func NewStore(opts ...Option) *Store {
	s := &Store{
		entries:        make(map[string]*entry),
		retention:      DefaultRetention,
		defaultTimeout: DefaultTimeout,
		now:            time.Now,
		logger:         slog.Default(),
		metrics:        observability.NoopMetrics{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Register creates a pending entry for requestID. Stale entries are swept
// first when a quarter of the retention period has passed since the last
// sweep.
func (s *Store) Register(requestID string, kind Kind) error {
	if requestID == "" {
		return fmt.Errorf("register: empty request id")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	if now.Sub(s.lastSweep) >= s.retention/4 {
		s.sweepLocked(now)
	}

	if existing, ok := s.entries[requestID]; ok {
		return &DuplicateRequestError{RequestID: requestID, Kind: existing.kind}
	}
	s.entries[requestID] = &entry{
		id:        requestID,
		kind:      kind,
		createdAt: now,
		done:      make(chan struct{}),
	}
	s.registered++
	return nil
}

// Resolve stores value for a pending request and wakes its waiter. It
// reports whether it did so; resolving an unknown, resolved, or expired id
// is a no-op.
func (s *Store) Resolve(requestID string, value any) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[requestID]
	if !ok || !e.finish(stateResolved, value) {
		s.discarded++
		s.logger.Debug("late or unknown response discarded", slog.String("request_id", requestID))
		return false
	}
	s.resolved++
	return true
}

// Cancel expires and removes requestID, waking any waiter with its default.
func (s *Store) Cancel(requestID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if e, ok := s.entries[requestID]; ok {
		e.finish(stateExpired, nil)
		delete(s.entries, requestID)
	}
}

// Sweep expires and removes every entry created before now minus the
// retention period. It returns the number of entries removed.
func (s *Store) Sweep(now time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sweepLocked(now)
}

func (s *Store) sweepLocked(now time.Time) int {
	s.lastSweep = now
	cutoff := now.Add(-s.retention)
	removed := 0
	for id, e := range s.entries {
		if e.createdAt.Before(cutoff) {
			e.finish(stateExpired, nil)
			delete(s.entries, id)
			removed++
		}
	}
	if removed > 0 {
		s.logger.Debug("swept stale requests", slog.Int("removed", removed))
	}
	return removed
}

// Run sweeps every interval until ctx is done.
func (s *Store) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.Sweep(s.now())
		case <-ctx.Done():
			return
		}
	}
}

// Len returns the number of live entries.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// Stats returns a snapshot of the store.
func (s *Store) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := Stats{
		ByKind:     make(map[Kind]int),
		Registered: s.registered,
		Resolved:   s.resolved,
		TimedOut:   s.timedOut,
		Discarded:  s.discarded,
	}
	for _, e := range s.entries {
		switch e.state {
		case statePending:
			st.Pending++
			st.ByKind[e.kind]++
		case stateResolved:
			st.Uncollected++
		}
		if st.Oldest.IsZero() || e.createdAt.Before(st.Oldest) {
			st.Oldest = e.createdAt
		}
	}
	return st
}

// collect waits for requestID and settles its outcome under the mutex.
// The entry is removed whatever the outcome.
func (s *Store) collect(ctx context.Context, requestID string, timeout time.Duration) (any, error) {
	s.mu.Lock()
	e, ok := s.entries[requestID]
	s.mu.Unlock()
	if !ok {
		s.logger.Debug("await on unknown request", slog.String("request_id", requestID))
		return nil, fmt.Errorf("await %s: %w", requestID, ErrUnknownRequest)
	}

	if timeout <= 0 {
		timeout = s.defaultTimeout
	}
	start := time.Now()
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case <-e.done:
	case <-timer.C:
	case <-ctx.Done():
	}

	s.mu.Lock()
	e.finish(stateExpired, nil)
	if s.entries[requestID] == e {
		delete(s.entries, requestID)
	}
	if e.state == stateExpired {
		s.timedOut++
	}
	resolved := e.state == stateResolved
	value := e.value
	s.mu.Unlock()

	waited := time.Since(start)
	s.metrics.RecordRequest(ctx, string(e.kind), waited, resolved)
	if resolved {
		return value, nil
	}

	if err := ctx.Err(); err != nil {
		s.logger.Debug("await cancelled",
			slog.String("request_id", requestID),
			slog.String("kind", string(e.kind)),
		)
		return nil, fmt.Errorf("await %s: %w", requestID, err)
	}
	observability.LogRequestTimeout(s.logger, requestID, string(e.kind), waited)
	return nil, &RequestTimeoutError{RequestID: requestID, Kind: e.kind, Waited: waited}
}

// AwaitResult blocks until requestID is resolved, timeout elapses, ctx is
// done, or the entry is cancelled or swept. A non-positive timeout uses the
// store default.
func AwaitResult[T any](ctx context.Context, s *Store, requestID string, timeout time.Duration) (T, error) {
	var zero T
	value, err := s.collect(ctx, requestID, timeout)
	if err != nil {
		return zero, err
	}
	typed, ok := value.(T)
	if !ok {
		err := &ResponseTypeError{
			RequestID: requestID,
			Want:      fmt.Sprintf("%T", zero),
			Got:       fmt.Sprintf("%T", value),
		}
		s.logger.Error("response type mismatch, using default",
			slog.String("request_id", requestID),
			slog.String("error", err.Error()),
		)
		return zero, err
	}
	return typed, nil
}

// Await is AwaitResult that returns def on any failure. Timeouts and type
// mismatches are logged; the caller never sees an error.
func Await[T any](ctx context.Context, s *Store, requestID string, timeout time.Duration, def T) T {
	v, err := AwaitResult[T](ctx, s, requestID, timeout)
	if err != nil {
		return def
	}
	return v
}
