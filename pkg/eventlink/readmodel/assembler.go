package readmodel

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"

	"github.com/samber/lo"

	"github.com/randalmurphal/eventlink/pkg/eventlink/correlation"
	"github.com/randalmurphal/eventlink/pkg/eventlink/event"
)

// UnknownNickname is the author nickname used when the user module does not
// answer for a post's author.
const UnknownNickname = "Unknown"

// Assembler builds read models from correlated cross-module requests.
type Assembler struct {
	bus         event.EventBus
	store       *correlation.Store
	timeouts    correlation.Timeouts
	contentType string
	logger      *slog.Logger
}

// NewAssembler creates an assembler that publishes requests on bus and
// waits for answers in store.
func NewAssembler(bus event.EventBus, store *correlation.Store, opts ...Option) *Assembler {
	a := &Assembler{
		bus:         bus,
		store:       store,
		timeouts:    correlation.DefaultTimeouts(),
		contentType: ContentTypePost,
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// RequestUsers asks the user module for userIDs. It returns nil on timeout.
func (a *Assembler) RequestUsers(ctx context.Context, userIDs []string) []event.UserData {
	if len(userIDs) == 0 {
		return nil
	}
	return request(ctx, a, correlation.KindUser, func(id string) (event.DomainEvent, error) {
		return event.NewUserDataRequested(id, userIDs)
	}, []event.UserData(nil))
}

// RequestInteractions asks the interaction module for the active
// interactions on postIDs. It returns nil on timeout.
func (a *Assembler) RequestInteractions(ctx context.Context, postIDs []string, contentType string) []event.InteractionData {
	if len(postIDs) == 0 {
		return nil
	}
	return request(ctx, a, correlation.KindInteraction, func(id string) (event.DomainEvent, error) {
		return event.NewInteractionDataRequested(id, postIDs, contentType)
	}, []event.InteractionData(nil))
}

// RequestComments asks the comment module for the comments on postIDs. It
// returns nil on timeout.
func (a *Assembler) RequestComments(ctx context.Context, postIDs []string) []event.CommentData {
	if len(postIDs) == 0 {
		return nil
	}
	return request(ctx, a, correlation.KindComment, func(id string) (event.DomainEvent, error) {
		return event.NewCommentDataRequested(id, postIDs)
	}, []event.CommentData(nil))
}

// RequestBookmarks asks the interaction module for the posts userID has
// bookmarked. It returns nil on timeout.
func (a *Assembler) RequestBookmarks(ctx context.Context, userID, contentType string) []string {
	return request(ctx, a, correlation.KindBookmark, func(id string) (event.DomainEvent, error) {
		return event.NewBookmarkDataRequested(id, userID, contentType)
	}, []string(nil))
}

// ValidatePost asks the post module whether postID exists. Unanswered
// requests count as invalid.
func (a *Assembler) ValidatePost(ctx context.Context, postID string) bool {
	return request(ctx, a, correlation.KindValidation, func(id string) (event.DomainEvent, error) {
		return event.NewPostValidationRequested(id, postID)
	}, false)
}

// request registers a pending request, publishes the event built for its
// id, and waits for the answer. Any failure yields def.
func request[T any](ctx context.Context, a *Assembler, kind correlation.Kind, build func(requestID string) (event.DomainEvent, error), def T) T {
	requestID := correlation.NewRequestID(string(kind))
	if err := a.store.Register(requestID, kind); err != nil {
		a.logger.Error("failed to register request",
			slog.String("kind", string(kind)),
			slog.String("error", err.Error()),
		)
		return def
	}

	timeout := a.timeouts.For(kind)
	evt, err := build(requestID)
	if err == nil {
		// Publishing counts against the request bound.
		pubCtx, cancel := context.WithTimeout(ctx, timeout)
		err = a.bus.Publish(pubCtx, evt, event.ChannelDomain)
		cancel()
	}
	if err != nil {
		a.store.Cancel(requestID)
		a.logger.Warn("request not sent, using default",
			slog.String("request_id", requestID),
			slog.String("kind", string(kind)),
			slog.String("error", err.Error()),
		)
		return def
	}

	return correlation.Await(ctx, a.store, requestID, timeout, def)
}

// AssemblePosts merges posts with their authors, interactions and comments.
// The three requests run concurrently. The result has the order of posts.
func (a *Assembler) AssemblePosts(ctx context.Context, posts []PostSummary) []PostView {
	if len(posts) == 0 {
		return []PostView{}
	}
	postIDs := lo.Map(posts, func(p PostSummary, _ int) string { return p.ID })
	authorIDs := lo.Uniq(lo.Map(posts, func(p PostSummary, _ int) string { return p.AuthorID }))

	var (
		users        []event.UserData
		interactions []event.InteractionData
		comments     []event.CommentData
		wg           sync.WaitGroup
	)
	wg.Add(3)
	go func() {
		defer wg.Done()
		users = a.RequestUsers(ctx, authorIDs)
	}()
	go func() {
		defer wg.Done()
		interactions = a.RequestInteractions(ctx, postIDs, a.contentType)
	}()
	go func() {
		defer wg.Done()
		comments = a.RequestComments(ctx, postIDs)
	}()
	wg.Wait()

	return Merge(posts, users, interactions, comments)
}

// ErrNoPostLoader is returned by AssembleBookmarks when no loader is given.
var ErrNoPostLoader = errors.New("readmodel: no post loader")

// AssembleBookmarks assembles the posts userID has bookmarked, in bookmark
// order. No bookmarks, or no answer, yields an empty result.
func (a *Assembler) AssembleBookmarks(ctx context.Context, userID, contentType string, loader PostLoader) ([]PostView, error) {
	if loader == nil {
		return nil, ErrNoPostLoader
	}
	ids := a.RequestBookmarks(ctx, userID, contentType)
	if len(ids) == 0 {
		return []PostView{}, nil
	}

	rows, err := loader.PostsByID(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("load bookmarked posts: %w", err)
	}
	if len(rows) == 0 {
		a.logger.Warn("no posts found for bookmarked ids",
			slog.String("user_id", userID),
			slog.Int("bookmarks", len(ids)),
		)
		return []PostView{}, nil
	}

	rank := make(map[string]int, len(ids))
	for i, id := range ids {
		if _, seen := rank[id]; !seen {
			rank[id] = i
		}
	}
	slices.SortStableFunc(rows, func(x, y PostSummary) int {
		return rank[x.ID] - rank[y.ID]
	})
	return a.AssemblePosts(ctx, rows), nil
}

// Merge combines posts with the answers of the other modules. Authors
// missing from users get nickname UnknownNickname. likeCount counts ACTIVE
// LIKE interactions; commentCount counts comment rows.
func Merge(posts []PostSummary, users []event.UserData, interactions []event.InteractionData, comments []event.CommentData) []PostView {
	byUser := lo.KeyBy(users, func(u event.UserData) string { return u.UserID })
	byPost := lo.GroupBy(interactions, func(i event.InteractionData) string { return i.PostID })
	commentCounts := lo.CountValuesBy(comments, func(c event.CommentData) string { return c.PostID })

	return lo.Map(posts, func(p PostSummary, _ int) PostView {
		rows := byPost[p.ID]
		return PostView{
			PostSummary:  p,
			Author:       lo.ValueOr(byUser, p.AuthorID, event.UserData{UserID: p.AuthorID, Nickname: UnknownNickname}),
			Interactions: rows,
			LikeCount:    int64(lo.CountBy(rows, event.InteractionData.Counts)),
			CommentCount: int64(commentCounts[p.ID]),
		}
	})
}
