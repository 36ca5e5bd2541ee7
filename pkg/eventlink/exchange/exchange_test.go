package exchange_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/randalmurphal/eventlink/pkg/eventlink/correlation"
	"github.com/randalmurphal/eventlink/pkg/eventlink/counter"
	"github.com/randalmurphal/eventlink/pkg/eventlink/event"
	"github.com/randalmurphal/eventlink/pkg/eventlink/exchange"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func seededDirectory() *exchange.MemoryDirectory {
	d := exchange.NewMemoryDirectory()
	d.AddUser(event.UserData{UserID: "u1", Nickname: "alice"})
	d.AddUser(event.UserData{UserID: "u2", Nickname: "bob"})
	d.AddPost("p1")
	d.AddInteraction(event.InteractionData{PostID: "p1", UserID: "u2", InteractionType: event.InteractionLike, InteractionStatus: event.StatusActive, ContentType: "POST"})
	d.AddInteraction(event.InteractionData{PostID: "p1", UserID: "u3", InteractionType: event.InteractionLike, InteractionStatus: event.StatusInactive, ContentType: "POST"})
	d.AddInteraction(event.InteractionData{PostID: "p1", UserID: "u1", InteractionType: event.InteractionBookmark, InteractionStatus: event.StatusActive, ContentType: "POST"})
	d.AddComment(event.CommentData{CommentID: "c1", PostID: "p1", UserID: "u2"})
	d.AddComment(event.CommentData{CommentID: "c2", PostID: "p2", UserID: "u2"})
	return d
}

// dispatch hands evt to the handler registered for its type.
func dispatch(t *testing.T, handlers []event.Handler, evt event.DomainEvent) {
	t.Helper()
	for _, h := range handlers {
		if h.EventType() == evt.EventType() {
			require.NoError(t, h.Handle(context.Background(), evt))
			return
		}
	}
	t.Fatalf("no handler for %s", evt.EventType())
}

func TestResponders_AnswerEveryKind(t *testing.T) {
	batch := event.NewBatch()
	handlers := exchange.NewResponders(batch,
		exchange.WithDirectory(seededDirectory()),
		exchange.WithLogger(quietLogger()),
	).Handlers()
	require.Len(t, handlers, 5)

	users, _ := event.NewUserDataRequested("r-user", []string{"u1", "ghost"})
	interactions, _ := event.NewInteractionDataRequested("r-int", []string{"p1"}, "POST")
	comments, _ := event.NewCommentDataRequested("r-com", []string{"p1"})
	bookmarks, _ := event.NewBookmarkDataRequested("r-bm", "u1", "POST")
	validation, _ := event.NewPostValidationRequested("r-val", "p1")

	for _, evt := range []event.DomainEvent{users, interactions, comments, bookmarks, validation} {
		dispatch(t, handlers, evt)
	}
	require.Equal(t, 5, batch.Len())

	userResp := batch.OfType(event.TypeUserDataResponse)[0].(*event.UserDataResponse)
	assert.Equal(t, "r-user", userResp.RequestID)
	assert.Equal(t, []event.UserData{
		{UserID: "u1", Nickname: "alice"},
		{UserID: "ghost", Nickname: exchange.UnknownNickname},
	}, userResp.Users)

	intResp := batch.OfType(event.TypeInteractionDataResponse)[0].(*event.InteractionDataResponse)
	assert.Equal(t, "r-int", intResp.RequestID)
	assert.Len(t, intResp.Interactions, 2, "inactive interactions are excluded")

	comResp := batch.OfType(event.TypeCommentDataResponse)[0].(*event.CommentDataResponse)
	require.Len(t, comResp.Comments, 1)
	assert.Equal(t, "c1", comResp.Comments[0].CommentID)

	bmResp := batch.OfType(event.TypeBookmarkDataResponse)[0].(*event.BookmarkDataResponse)
	assert.Equal(t, []string{"p1"}, bmResp.PostIDs)

	valResp := batch.OfType(event.TypePostValidationResponse)[0].(*event.PostValidationResponse)
	assert.True(t, valResp.Valid)
	assert.Equal(t, "p1", valResp.PostID)
}

type failingComments struct{}

func (failingComments) CommentsForPosts(context.Context, []string) ([]event.CommentData, error) {
	return nil, errors.New("database down")
}

func TestResponders_ProviderFailureSendsNothing(t *testing.T) {
	batch := event.NewBatch()
	handlers := exchange.NewResponders(batch,
		exchange.WithComments(failingComments{}),
		exchange.WithLogger(quietLogger()),
	).Handlers()
	require.Len(t, handlers, 1)

	req, _ := event.NewCommentDataRequested("r1", []string{"p1"})
	dispatch(t, handlers, req)
	assert.Zero(t, batch.Len())
}

func TestResolvers(t *testing.T) {
	ctx := context.Background()
	store := correlation.NewStore(correlation.WithLogger(quietLogger()))
	handlers := exchange.Resolvers(store)
	require.Len(t, handlers, 5)

	require.NoError(t, store.Register("r-user", correlation.KindUser))
	require.NoError(t, store.Register("r-val", correlation.KindValidation))

	users, _ := event.NewUserDataResponse("r-user", []event.UserData{{UserID: "u1", Nickname: "alice"}})
	dispatch(t, handlers, users)
	validation, _ := event.NewPostValidationResponse("r-val", "p1", true)
	dispatch(t, handlers, validation)

	gotUsers := correlation.Await(ctx, store, "r-user", time.Second, []event.UserData(nil))
	assert.Equal(t, "alice", gotUsers[0].Nickname)
	assert.True(t, correlation.Await(ctx, store, "r-val", time.Second, false))

	late, _ := event.NewUserDataResponse("r-user", nil)
	dispatch(t, handlers, late)
	assert.Zero(t, store.Len(), "late responses are discarded")
}

func TestStorePosts(t *testing.T) {
	ctx := context.Background()
	posts := exchange.StorePosts{Store: counter.NewMemoryStore(counter.Post{ID: "p1"})}

	ok, err := posts.PostExists(ctx, "p1")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = posts.PostExists(ctx, "p2")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestMemoryDirectory_UnknownUser(t *testing.T) {
	_, err := exchange.NewMemoryDirectory().UserByID(context.Background(), "nobody")
	assert.ErrorIs(t, err, exchange.ErrUserNotFound)
}
