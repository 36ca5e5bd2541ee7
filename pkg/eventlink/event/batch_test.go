package event_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/randalmurphal/eventlink/pkg/eventlink/event"
)

// failingBus rejects the event at index failAt.
type failingBus struct {
	published []event.DomainEvent
	failAt    int
}

func (b *failingBus) Publish(_ context.Context, evt event.DomainEvent, _ event.Channel) error {
	if len(b.published) == b.failAt {
		b.failAt = -1
		return errors.New("transport down")
	}
	b.published = append(b.published, evt)
	return nil
}

func TestBatch_Records(t *testing.T) {
	batch := event.NewBatch()
	ctx := context.Background()

	liked, err := event.NewPostLiked("p1", "u1")
	require.NoError(t, err)
	comp, err := event.NewCompensationEvent(event.TypeLikeCountIncreaseCompensation,
		event.Compensation{TransactionID: "t1", OriginalEventID: liked.EventID(), TargetAggregateID: "p1"})
	require.NoError(t, err)

	require.NoError(t, batch.Publish(ctx, liked, event.ChannelDomain))
	require.NoError(t, batch.Publish(ctx, comp, event.ChannelCompensation))

	assert.Equal(t, 2, batch.Len())
	events := batch.Events()
	assert.Equal(t, event.ChannelDomain, events[0].Channel)
	assert.Equal(t, event.ChannelCompensation, events[1].Channel)
	assert.Len(t, batch.OfType(event.TypeLikeCountIncreaseCompensation), 1)
	assert.Empty(t, batch.OfType(event.TypeCommentCountIncreaseCompensation))

	batch.Reset()
	assert.Zero(t, batch.Len())
}

func TestBatch_RejectsMalformed(t *testing.T) {
	batch := event.NewBatch()
	err := batch.Publish(context.Background(), &event.PostLiked{}, event.ChannelDomain)

	var serErr *event.SerializationError
	assert.True(t, errors.As(err, &serErr))
	assert.Zero(t, batch.Len())
}

func TestBatch_Flush(t *testing.T) {
	ctx := context.Background()

	newBatch := func(t *testing.T, n int) *event.Batch {
		b := event.NewBatch()
		for i := 0; i < n; i++ {
			evt, err := event.NewPostLiked("p1", "u1")
			require.NoError(t, err)
			require.NoError(t, b.Publish(ctx, evt, event.ChannelDomain))
		}
		return b
	}

	t.Run("publishes in order and empties", func(t *testing.T) {
		b := newBatch(t, 3)
		recorded := b.Events()
		bus := &failingBus{failAt: -1}

		require.NoError(t, b.Flush(ctx, bus))
		require.Len(t, bus.published, 3)
		for i := range recorded {
			assert.Equal(t, recorded[i].Event.EventID(), bus.published[i].EventID())
		}
		assert.Zero(t, b.Len())
	})

	t.Run("keeps remainder on failure", func(t *testing.T) {
		b := newBatch(t, 3)
		bus := &failingBus{failAt: 1}

		err := b.Flush(ctx, bus)
		require.Error(t, err)
		assert.Len(t, bus.published, 1)
		assert.Equal(t, 2, b.Len())

		require.NoError(t, b.Flush(ctx, bus))
		assert.Len(t, bus.published, 3)
		assert.Zero(t, b.Len())
	})

	t.Run("flush into another batch", func(t *testing.T) {
		b := newBatch(t, 2)
		target := event.NewBatch()
		require.NoError(t, b.Flush(ctx, target))
		assert.Equal(t, 2, target.Len())
	})
}
