package compensation_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/randalmurphal/eventlink/pkg/eventlink/compensation"
)

func TestMemoryLedger(t *testing.T) {
	ctx := context.Background()
	l := compensation.NewMemoryLedger()
	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	for i, id := range []string{"t1", "t2", "t3"} {
		status := compensation.StatusPublished
		if id == "t2" {
			status = compensation.StatusSkipped
		}
		require.NoError(t, l.Record(ctx, &compensation.Transaction{
			ID:        id,
			PostID:    "p1",
			Status:    status,
			CreatedAt: base.Add(time.Duration(i) * time.Second),
		}))
	}

	got, err := l.Get(ctx, "t2")
	require.NoError(t, err)
	assert.Equal(t, compensation.StatusSkipped, got.Status)

	got.Status = compensation.StatusFailed
	again, err := l.Get(ctx, "t2")
	require.NoError(t, err)
	assert.Equal(t, compensation.StatusSkipped, again.Status, "Get returns a copy")

	all, err := l.List(ctx, nil)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "t1", all[0].ID)
	assert.Equal(t, "t3", all[2].ID)

	published, err := l.List(ctx, &compensation.ListFilter{Status: compensation.StatusPublished})
	require.NoError(t, err)
	assert.Len(t, published, 2)

	page, err := l.List(ctx, &compensation.ListFilter{Offset: 1, Limit: 1})
	require.NoError(t, err)
	require.Len(t, page, 1)
	assert.Equal(t, "t2", page[0].ID)

	empty, err := l.List(ctx, &compensation.ListFilter{Offset: 10})
	require.NoError(t, err)
	assert.Empty(t, empty)

	require.NoError(t, l.Delete(ctx, "t1"))
	_, err = l.Get(ctx, "t1")
	assert.ErrorIs(t, err, compensation.ErrTransactionNotFound)
	assert.ErrorIs(t, l.Delete(ctx, "t1"), compensation.ErrTransactionNotFound)
}

func TestMemoryLedger_RecordPreservesCreatedAt(t *testing.T) {
	ctx := context.Background()
	l := compensation.NewMemoryLedger()
	created := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	require.NoError(t, l.Record(ctx, &compensation.Transaction{
		ID: "t1", OriginalType: "comment.created", Status: compensation.StatusPublished, CreatedAt: created,
	}))
	require.NoError(t, l.Record(ctx, &compensation.Transaction{
		ID: "t1", Status: compensation.StatusApplied, CreatedAt: created.Add(time.Hour),
	}))

	got, err := l.Get(ctx, "t1")
	require.NoError(t, err)
	assert.Equal(t, compensation.StatusApplied, got.Status)
	assert.Equal(t, created, got.CreatedAt)
	assert.Equal(t, "comment.created", got.OriginalType)
}

func TestMemoryLedger_RequiresID(t *testing.T) {
	l := compensation.NewMemoryLedger()
	assert.Error(t, l.Record(context.Background(), &compensation.Transaction{}))
	assert.Error(t, l.Record(context.Background(), nil))
}

func TestStatus_IsTerminal(t *testing.T) {
	assert.False(t, compensation.StatusPublished.IsTerminal())
	assert.True(t, compensation.StatusSkipped.IsTerminal())
	assert.True(t, compensation.StatusApplied.IsTerminal())
	assert.True(t, compensation.StatusFailed.IsTerminal())
	assert.True(t, compensation.StatusPublishFailed.IsTerminal())
}
