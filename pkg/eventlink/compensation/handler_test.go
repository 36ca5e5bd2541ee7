package compensation_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/randalmurphal/eventlink/pkg/eventlink/compensation"
	"github.com/randalmurphal/eventlink/pkg/eventlink/counter"
	"github.com/randalmurphal/eventlink/pkg/eventlink/event"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type rejectingBus struct{}

func (rejectingBus) Publish(context.Context, event.DomainEvent, event.Channel) error {
	return errors.New("broker unavailable")
}

func newHandler(t *testing.T, tag string, store counter.Store, bus event.EventBus, cfg compensation.Config, opts ...compensation.Option) *compensation.CounterHandler {
	t.Helper()
	opts = append([]compensation.Option{compensation.WithLogger(quietLogger())}, opts...)
	h, err := compensation.NewCounterHandler(tag, store, bus, cfg, opts...)
	require.NoError(t, err)
	return h
}

func TestCounterHandler_AppliesMutations(t *testing.T) {
	ctx := context.Background()
	store := counter.NewMemoryStore(counter.Post{ID: "p1", CommentCount: 2, LikeCount: 2})
	batch := event.NewBatch()
	cfg := compensation.DefaultConfig()

	created, _ := event.NewCommentCreated("c1", "p1", "u1")
	deleted, _ := event.NewCommentDeleted("c0", "p1", "u1")
	liked, _ := event.NewPostLiked("p1", "u2")
	unliked, _ := event.NewPostUnliked("p1", "u3")

	for _, evt := range []event.DomainEvent{created, created, deleted, liked, unliked, unliked} {
		h := newHandler(t, evt.EventType(), store, batch, cfg)
		require.NoError(t, h.Handle(ctx, evt))
	}

	p, err := store.Get(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, int64(3), p.CommentCount)
	assert.Equal(t, int64(1), p.LikeCount)
	assert.Zero(t, batch.Len(), "no compensation on success")
}

func TestCounterHandler_FailurePublishesCompensation(t *testing.T) {
	ctx := context.Background()
	store := counter.NewMemoryStore(counter.Post{ID: "p1", CommentCount: 5})
	batch := event.NewBatch()
	ledger := compensation.NewMemoryLedger()
	cfg := compensation.Config{SimulateFailure: true, FailureRate: 1.0, EnableCompensation: true}

	h := newHandler(t, event.TypeCommentCreated, store, batch, cfg, compensation.WithLedger(ledger))
	created, err := event.NewCommentCreated("c1", "p1", "u1")
	require.NoError(t, err)

	require.NoError(t, h.Handle(ctx, created), "failures never reach the router")

	p, err := store.Get(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, int64(5), p.CommentCount, "injected fault leaves the counter untouched")

	recorded := batch.Events()
	require.Len(t, recorded, 1)
	assert.Equal(t, event.ChannelCompensation, recorded[0].Channel)

	comp, ok := recorded[0].Event.(*event.CommentCountIncreaseCompensation)
	require.True(t, ok, "got %T", recorded[0].Event)
	assert.NotEmpty(t, comp.TransactionID)
	assert.Equal(t, created.EventID(), comp.OriginalEventID)
	assert.Equal(t, "p1", comp.TargetAggregateID)

	tx, err := ledger.Get(ctx, comp.TransactionID)
	require.NoError(t, err)
	assert.Equal(t, compensation.StatusPublished, tx.Status)
	assert.Equal(t, counter.FieldCommentCount, tx.Field)
	assert.Equal(t, counter.Increase, tx.Direction)
	assert.Equal(t, compensation.ErrInjectedFault.Error(), tx.Cause)

	compensator := compensation.NewCompensator(store,
		compensation.WithLedger(ledger), compensation.WithLogger(quietLogger()))
	require.NoError(t, compensator.Apply(ctx, comp))

	p, err = store.Get(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, int64(4), p.CommentCount)

	tx, err = ledger.Get(ctx, comp.TransactionID)
	require.NoError(t, err)
	assert.Equal(t, compensation.StatusApplied, tx.Status)
}

func TestCounterHandler_CompensationDisabled(t *testing.T) {
	ctx := context.Background()
	store := counter.NewMemoryStore(counter.Post{ID: "p1", LikeCount: 3})
	batch := event.NewBatch()
	ledger := compensation.NewMemoryLedger()
	cfg := compensation.Config{SimulateFailure: true, FailureRate: 1.0, EnableCompensation: false}

	h := newHandler(t, event.TypePostLiked, store, batch, cfg, compensation.WithLedger(ledger))
	liked, _ := event.NewPostLiked("p1", "u1")
	require.NoError(t, h.Handle(ctx, liked))

	assert.Zero(t, batch.Len())
	txs, err := ledger.List(ctx, &compensation.ListFilter{Status: compensation.StatusSkipped})
	require.NoError(t, err)
	require.Len(t, txs, 1)
	assert.Equal(t, liked.EventID(), txs[0].OriginalEventID)
}

func TestCounterHandler_MissingPostCompensates(t *testing.T) {
	ctx := context.Background()
	batch := event.NewBatch()
	h := newHandler(t, event.TypePostUnliked, counter.NewMemoryStore(), batch, compensation.DefaultConfig())

	unliked, _ := event.NewPostUnliked("ghost", "u1")
	require.NoError(t, h.Handle(ctx, unliked))

	comps := batch.OfType(event.TypeLikeCountDecreaseCompensation)
	require.Len(t, comps, 1)
	assert.Equal(t, "ghost", comps[0].(event.CompensationEvent).Details().TargetAggregateID)
}

func TestCounterHandler_PublishFailureRecorded(t *testing.T) {
	ctx := context.Background()
	ledger := compensation.NewMemoryLedger()
	cfg := compensation.Config{SimulateFailure: true, FailureRate: 1.0, EnableCompensation: true}
	h := newHandler(t, event.TypeCommentDeleted, counter.NewMemoryStore(), rejectingBus{}, cfg,
		compensation.WithLedger(ledger))

	deleted, _ := event.NewCommentDeleted("c1", "p1", "u1")
	require.NoError(t, h.Handle(ctx, deleted))

	txs, err := ledger.List(ctx, nil)
	require.NoError(t, err)
	require.Len(t, txs, 1)
	assert.Equal(t, compensation.StatusPublishFailed, txs[0].Status)
	assert.Contains(t, txs[0].Error, "broker unavailable")
}

func TestCounterHandler_FaultSequence(t *testing.T) {
	ctx := context.Background()
	store := counter.NewMemoryStore(counter.Post{ID: "p1"})
	batch := event.NewBatch()
	h := newHandler(t, event.TypePostLiked, store, batch, compensation.DefaultConfig(),
		compensation.WithFaults(compensation.NewFaultSequence(false, true, false)))

	for range 3 {
		liked, _ := event.NewPostLiked("p1", "u1")
		require.NoError(t, h.Handle(ctx, liked))
	}

	p, err := store.Get(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, int64(2), p.LikeCount)
	assert.Len(t, batch.OfType(event.TypeLikeCountIncreaseCompensation), 1)
}

func TestNewCounterHandler_Validation(t *testing.T) {
	store := counter.NewMemoryStore()
	batch := event.NewBatch()

	_, err := compensation.NewCounterHandler(event.TypeUserDataRequested, store, batch, compensation.Config{})
	assert.Error(t, err)
	_, err = compensation.NewCounterHandler(event.TypePostLiked, nil, batch, compensation.Config{})
	assert.Error(t, err)
	_, err = compensation.NewCounterHandler(event.TypePostLiked, store, nil, compensation.Config{})
	assert.Error(t, err)
}

func TestNewCounterHandlers_ShareLedger(t *testing.T) {
	ctx := context.Background()
	batch := event.NewBatch()
	cfg := compensation.Config{SimulateFailure: true, FailureRate: 1.0, EnableCompensation: true}

	handlers, err := compensation.NewCounterHandlers(counter.NewMemoryStore(), batch, cfg,
		compensation.WithLogger(quietLogger()))
	require.NoError(t, err)
	require.Len(t, handlers, 4)

	tags := make([]string, 0, len(handlers))
	for _, h := range handlers {
		tags = append(tags, h.EventType())
	}
	assert.Equal(t, compensation.PrimaryTypes(), tags)

	created, _ := event.NewCommentCreated("c1", "p1", "u1")
	liked, _ := event.NewPostLiked("p1", "u1")
	require.NoError(t, handlers[0].Handle(ctx, created))
	require.NoError(t, handlers[2].Handle(ctx, liked))

	ledger := handlers[0].(*compensation.CounterHandler).Ledger()
	assert.Same(t, ledger, handlers[2].(*compensation.CounterHandler).Ledger())
	txs, err := ledger.List(ctx, nil)
	require.NoError(t, err)
	assert.Len(t, txs, 2)
}
