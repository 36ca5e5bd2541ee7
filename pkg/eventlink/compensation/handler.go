package compensation

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/randalmurphal/eventlink/pkg/eventlink/counter"
	"github.com/randalmurphal/eventlink/pkg/eventlink/event"
	"github.com/randalmurphal/eventlink/pkg/eventlink/observability"
)

// CounterHandler applies the counter mutation of one primary event type and
// publishes a compensation event when the mutation fails.
type CounterHandler struct {
	eventType string
	mutation  Mutation
	store     counter.Store
	bus       event.EventBus
	cfg       Config
	opts      options
}

// NewCounterHandler creates the handler for a primary event tag.
func NewCounterHandler(eventType string, store counter.Store, bus event.EventBus, cfg Config, opts ...Option) (*CounterHandler, error) {
	m, ok := MutationFor(eventType)
	if !ok {
		return nil, fmt.Errorf("no counter mutation for event type %q", eventType)
	}
	if store == nil {
		return nil, fmt.Errorf("counter handler %s: store is required", eventType)
	}
	if bus == nil {
		return nil, fmt.Errorf("counter handler %s: event bus is required", eventType)
	}
	o := applyOptions(opts)
	if o.faults == nil {
		o.faults = InjectorFor(cfg)
	}
	return &CounterHandler{
		eventType: eventType,
		mutation:  m,
		store:     store,
		bus:       bus,
		cfg:       cfg,
		opts:      o,
	}, nil
}

// NewCounterHandlers creates one handler per primary event type. All
// handlers share the options, including a single fault injector.
func NewCounterHandlers(store counter.Store, bus event.EventBus, cfg Config, opts ...Option) ([]event.Handler, error) {
	o := applyOptions(opts)
	if o.faults == nil {
		opts = append(opts, WithFaults(InjectorFor(cfg)))
	}
	opts = append(opts, WithLedger(o.ledger))

	handlers := make([]event.Handler, 0, len(primaryMutations))
	for _, tag := range PrimaryTypes() {
		h, err := NewCounterHandler(tag, store, bus, cfg, opts...)
		if err != nil {
			return nil, err
		}
		handlers = append(handlers, h)
	}
	return handlers, nil
}

// EventType implements event.Handler.
func (h *CounterHandler) EventType() string { return h.eventType }

// Name identifies the handler in logs.
func (h *CounterHandler) Name() string { return "counter(" + h.eventType + ")" }

// Ledger returns the ledger failures are recorded in.
func (h *CounterHandler) Ledger() Ledger { return h.opts.ledger }

// Handle applies the mutation. Failures are handled here and never
// returned.
func (h *CounterHandler) Handle(ctx context.Context, evt event.DomainEvent) error {
	postID := postIDOf(evt)
	err := h.apply(ctx, postID)
	if err == nil {
		h.opts.logger.Debug("counter updated",
			slog.String("event_type", h.eventType),
			slog.String("event_id", evt.EventID()),
			slog.String("post_id", postID),
			slog.String("field", string(h.mutation.Field)),
			slog.String("direction", h.mutation.Direction.String()),
		)
		return nil
	}
	h.onFailure(ctx, evt, postID, err)
	return nil
}

func (h *CounterHandler) apply(ctx context.Context, postID string) error {
	if h.opts.faults.ShouldFail() {
		return ErrInjectedFault
	}
	p, err := h.store.Get(ctx, postID)
	if err != nil {
		return err
	}
	updated, err := counter.Apply(p, h.mutation.Field, h.mutation.Direction)
	if err != nil {
		return err
	}
	return h.store.Save(ctx, updated)
}

func (h *CounterHandler) onFailure(ctx context.Context, evt event.DomainEvent, postID string, cause error) {
	now := h.opts.now()
	tx := &Transaction{
		ID:               uuid.New().String(),
		OriginalEventID:  evt.EventID(),
		OriginalType:     h.eventType,
		CompensationType: h.mutation.CompensationType,
		PostID:           postID,
		Field:            h.mutation.Field,
		Direction:        h.mutation.Direction,
		Cause:            cause.Error(),
		CreatedAt:        now,
		UpdatedAt:        now,
	}

	h.opts.logger.Error("counter update failed",
		slog.String("event_type", h.eventType),
		slog.String("event_id", evt.EventID()),
		slog.String("post_id", postID),
		slog.String("transaction_id", tx.ID),
		slog.String("error", cause.Error()),
	)

	if !h.cfg.EnableCompensation {
		h.opts.logger.Warn("compensation disabled, compensation event not published",
			slog.String("transaction_id", tx.ID),
			slog.String("compensation_type", tx.CompensationType),
		)
		tx.Status = StatusSkipped
		h.record(ctx, tx)
		return
	}

	comp, err := event.NewCompensationEvent(tx.CompensationType, event.Compensation{
		TransactionID:     tx.ID,
		OriginalEventID:   tx.OriginalEventID,
		TargetAggregateID: postID,
	})
	if err != nil {
		h.publishFailed(ctx, tx, err)
		return
	}

	// Recorded before publishing: a synchronous transport may deliver the
	// compensation, and the compensator's outcome must not be overwritten.
	tx.Status = StatusPublished
	h.record(ctx, tx)

	if err := h.bus.Publish(ctx, comp, event.ChannelCompensation); err != nil {
		h.publishFailed(ctx, tx, err)
		return
	}

	observability.LogCompensation(h.opts.logger, tx.ID, tx.CompensationType, tx.OriginalEventID, postID)
	h.opts.metrics.RecordCompensation(ctx, tx.CompensationType)
}

func (h *CounterHandler) publishFailed(ctx context.Context, tx *Transaction, err error) {
	h.opts.logger.Error("failed to publish compensation event",
		slog.String("transaction_id", tx.ID),
		slog.String("compensation_type", tx.CompensationType),
		slog.String("error", err.Error()),
	)
	tx.Status = StatusPublishFailed
	tx.Error = err.Error()
	tx.UpdatedAt = h.opts.now()
	h.record(ctx, tx)
}

func (h *CounterHandler) record(ctx context.Context, tx *Transaction) {
	if err := h.opts.ledger.Record(ctx, tx); err != nil {
		h.opts.logger.Warn("failed to record compensating transaction",
			slog.String("transaction_id", tx.ID),
			slog.String("error", err.Error()),
		)
	}
}

// postIDOf returns the post a primary event mutates.
func postIDOf(evt event.DomainEvent) string {
	switch e := evt.(type) {
	case *event.CommentCreated:
		return e.PostID
	case *event.CommentDeleted:
		return e.PostID
	case *event.PostLiked:
		return e.PostID
	case *event.PostUnliked:
		return e.PostID
	default:
		return evt.AggregateID()
	}
}
