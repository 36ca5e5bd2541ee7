package compensation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/randalmurphal/eventlink/pkg/eventlink/counter"
	"github.com/randalmurphal/eventlink/pkg/eventlink/event"
)

// Compensator applies the inverse counter mutation for compensation events.
type Compensator struct {
	store counter.Store
	opts  options
}

// NewCompensator creates a compensator over store.
func NewCompensator(store counter.Store, opts ...Option) *Compensator {
	return &Compensator{store: store, opts: applyOptions(opts)}
}

// Ledger returns the ledger outcomes are recorded in.
func (c *Compensator) Ledger() Ledger { return c.opts.ledger }

// Handlers returns one event.Handler per compensation type.
func (c *Compensator) Handlers() []event.Handler {
	tags := CompensationTypes()
	handlers := make([]event.Handler, 0, len(tags))
	for _, tag := range tags {
		handlers = append(handlers, &compensationHandler{tag: tag, c: c})
	}
	return handlers
}

// Apply applies the inverse mutation described by evt. A failure is logged,
// recorded as terminal, and returned as *CompensationFailure. It is never
// retried and never compensated.
func (c *Compensator) Apply(ctx context.Context, evt event.CompensationEvent) error {
	details := evt.Details()
	m, ok := InverseFor(evt.EventType())
	if !ok {
		return c.fail(ctx, evt, Mutation{CompensationType: evt.EventType()},
			fmt.Errorf("unknown compensation type %q", evt.EventType()))
	}

	p, err := c.store.Get(ctx, details.TargetAggregateID)
	if err == nil {
		p, err = counter.Apply(p, m.Field, m.Direction)
	}
	if err == nil {
		err = c.store.Save(ctx, p)
	}
	if err != nil {
		return c.fail(ctx, evt, m, err)
	}

	c.opts.logger.Info("compensation applied",
		slog.String("transaction_id", details.TransactionID),
		slog.String("compensation_type", evt.EventType()),
		slog.String("post_id", details.TargetAggregateID),
		slog.String("field", string(m.Field)),
		slog.Int64("count", p.Count(m.Field)),
	)
	c.record(ctx, evt, m, StatusApplied, nil)
	return nil
}

func (c *Compensator) fail(ctx context.Context, evt event.CompensationEvent, m Mutation, err error) error {
	details := evt.Details()
	failure := &CompensationFailure{
		TransactionID:    details.TransactionID,
		CompensationType: evt.EventType(),
		PostID:           details.TargetAggregateID,
		Err:              err,
	}
	c.opts.logger.Error("compensation failed",
		slog.String("transaction_id", details.TransactionID),
		slog.String("compensation_type", evt.EventType()),
		slog.String("post_id", details.TargetAggregateID),
		slog.String("error", err.Error()),
	)
	c.record(ctx, evt, m, StatusFailed, err)
	return failure
}

func (c *Compensator) record(ctx context.Context, evt event.CompensationEvent, m Mutation, status Status, cause error) {
	details := evt.Details()
	now := c.opts.now()

	tx, err := c.opts.ledger.Get(ctx, details.TransactionID)
	if errors.Is(err, ErrTransactionNotFound) {
		// Published by another process.
		tx = &Transaction{
			ID:               details.TransactionID,
			OriginalEventID:  details.OriginalEventID,
			CompensationType: evt.EventType(),
			PostID:           details.TargetAggregateID,
			Field:            m.Field,
			Direction:        m.Direction.Inverse(),
			CreatedAt:        now,
		}
	} else if err != nil {
		c.opts.logger.Warn("failed to load compensating transaction",
			slog.String("transaction_id", details.TransactionID),
			slog.String("error", err.Error()),
		)
		return
	}

	tx.Status = status
	tx.UpdatedAt = now
	if cause != nil {
		tx.Error = cause.Error()
	}
	if err := c.opts.ledger.Record(ctx, tx); err != nil {
		c.opts.logger.Warn("failed to record compensating transaction",
			slog.String("transaction_id", details.TransactionID),
			slog.String("error", err.Error()),
		)
	}
}

// compensationHandler routes one compensation tag to the Compensator.
type compensationHandler struct {
	tag string
	c   *Compensator
}

func (h *compensationHandler) EventType() string { return h.tag }

func (h *compensationHandler) Name() string { return "compensator(" + h.tag + ")" }

func (h *compensationHandler) Handle(ctx context.Context, evt event.DomainEvent) error {
	ce, ok := evt.(event.CompensationEvent)
	if !ok {
		return fmt.Errorf("compensator for %s got %T", h.tag, evt)
	}
	return h.c.Apply(ctx, ce)
}
