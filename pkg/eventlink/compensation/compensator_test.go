package compensation_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/randalmurphal/eventlink/pkg/eventlink/compensation"
	"github.com/randalmurphal/eventlink/pkg/eventlink/counter"
	"github.com/randalmurphal/eventlink/pkg/eventlink/event"
)

func compensationFor(t *testing.T, tag, postID string) event.CompensationEvent {
	t.Helper()
	evt, err := event.NewCompensationEvent(tag, event.Compensation{
		TransactionID:     "tx-" + postID,
		OriginalEventID:   "evt-1",
		TargetAggregateID: postID,
	})
	require.NoError(t, err)
	return evt
}

func TestCompensator_AppliesInverse(t *testing.T) {
	cases := []struct {
		tag          string
		wantComments int64
		wantLikes    int64
	}{
		{event.TypeCommentCountIncreaseCompensation, 4, 5},
		{event.TypeCommentCountDecreaseCompensation, 6, 5},
		{event.TypeLikeCountIncreaseCompensation, 5, 4},
		{event.TypeLikeCountDecreaseCompensation, 5, 6},
	}
	for _, tc := range cases {
		t.Run(tc.tag, func(t *testing.T) {
			ctx := context.Background()
			store := counter.NewMemoryStore(counter.Post{ID: "p1", CommentCount: 5, LikeCount: 5})
			c := compensation.NewCompensator(store, compensation.WithLogger(quietLogger()))

			require.NoError(t, c.Apply(ctx, compensationFor(t, tc.tag, "p1")))

			p, err := store.Get(ctx, "p1")
			require.NoError(t, err)
			assert.Equal(t, tc.wantComments, p.CommentCount)
			assert.Equal(t, tc.wantLikes, p.LikeCount)
		})
	}
}

func TestCompensator_FloorsAtZero(t *testing.T) {
	ctx := context.Background()
	store := counter.NewMemoryStore(counter.Post{ID: "p1"})
	c := compensation.NewCompensator(store, compensation.WithLogger(quietLogger()))

	require.NoError(t, c.Apply(ctx, compensationFor(t, event.TypeLikeCountIncreaseCompensation, "p1")))
	require.NoError(t, c.Apply(ctx, compensationFor(t, event.TypeCommentCountIncreaseCompensation, "p1")))

	p, err := store.Get(ctx, "p1")
	require.NoError(t, err)
	assert.Zero(t, p.LikeCount)
	assert.Zero(t, p.CommentCount)
}

func TestCompensator_FailureIsTerminal(t *testing.T) {
	ctx := context.Background()
	ledger := compensation.NewMemoryLedger()
	c := compensation.NewCompensator(counter.NewMemoryStore(),
		compensation.WithLedger(ledger), compensation.WithLogger(quietLogger()))

	evt := compensationFor(t, event.TypeCommentCountIncreaseCompensation, "missing")
	err := c.Apply(ctx, evt)

	var failure *compensation.CompensationFailure
	require.True(t, errors.As(err, &failure))
	assert.Equal(t, "tx-missing", failure.TransactionID)
	assert.ErrorIs(t, err, counter.ErrPostNotFound)

	tx, err := ledger.Get(ctx, "tx-missing")
	require.NoError(t, err)
	assert.Equal(t, compensation.StatusFailed, tx.Status)
	assert.True(t, tx.Status.IsTerminal())
	assert.Equal(t, counter.Increase, tx.Direction, "ledger keeps the original direction")
}

func TestCompensator_Handlers(t *testing.T) {
	c := compensation.NewCompensator(counter.NewMemoryStore())
	handlers := c.Handlers()
	require.Len(t, handlers, 4)
	for i, h := range handlers {
		assert.Equal(t, compensation.CompensationTypes()[i], h.EventType())
	}

	liked, _ := event.NewPostLiked("p1", "u1")
	assert.Error(t, handlers[0].Handle(context.Background(), liked))
}

func TestInverseFor(t *testing.T) {
	m, ok := compensation.InverseFor(event.TypeCommentCountIncreaseCompensation)
	require.True(t, ok)
	assert.Equal(t, counter.FieldCommentCount, m.Field)
	assert.Equal(t, counter.Decrease, m.Direction)

	m, ok = compensation.InverseFor(event.TypeLikeCountDecreaseCompensation)
	require.True(t, ok)
	assert.Equal(t, counter.FieldLikeCount, m.Field)
	assert.Equal(t, counter.Increase, m.Direction)

	_, ok = compensation.InverseFor(event.TypePostLiked)
	assert.False(t, ok)

	for _, tag := range compensation.PrimaryTypes() {
		primary, ok := compensation.MutationFor(tag)
		require.True(t, ok)
		inverse, ok := compensation.InverseFor(primary.CompensationType)
		require.True(t, ok)
		assert.Equal(t, primary.Field, inverse.Field)
		assert.Equal(t, primary.Direction.Inverse(), inverse.Direction)
	}
}

// loopback delivers published envelopes straight back into a router.
type loopback struct {
	router *event.Router
}

func (l *loopback) Send(ctx context.Context, channel string, payload []byte) error {
	l.router.OnMessage(ctx, channel, payload)
	return nil
}

func TestCompensation_EndToEnd(t *testing.T) {
	ctx := context.Background()
	store := counter.NewMemoryStore(counter.Post{ID: "p1", CommentCount: 5})
	ledger := compensation.NewMemoryLedger()
	opts := []compensation.Option{
		compensation.WithLedger(ledger),
		compensation.WithLogger(quietLogger()),
		compensation.WithFaults(compensation.NewFaultSequence(true)),
	}

	sender := &loopback{}
	publisher := event.NewPublisher(sender, event.WithLogger(quietLogger()))
	handlers, err := compensation.NewCounterHandlers(store, publisher, compensation.DefaultConfig(), opts...)
	require.NoError(t, err)
	registry := event.NewRegistryBuilder().
		Add(handlers...).
		Add(compensation.NewCompensator(store, opts...).Handlers()...).
		MustBuild()
	sender.router = event.NewRouter(registry, event.WithLogger(quietLogger()))

	first, _ := event.NewCommentCreated("c1", "p1", "u1")
	second, _ := event.NewCommentCreated("c2", "p1", "u1")
	require.NoError(t, publisher.Publish(ctx, first, event.ChannelDomain))
	require.NoError(t, publisher.Publish(ctx, second, event.ChannelDomain))

	p, err := store.Get(ctx, "p1")
	require.NoError(t, err)
	// 5, first increment fails and its compensation decrements, second succeeds.
	assert.Equal(t, int64(5), p.CommentCount)

	txs, err := ledger.List(ctx, nil)
	require.NoError(t, err)
	require.Len(t, txs, 1)
	assert.Equal(t, compensation.StatusApplied, txs[0].Status)
	assert.Equal(t, first.EventID(), txs[0].OriginalEventID)
}
