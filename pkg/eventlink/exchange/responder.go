package exchange

import (
	"context"
	"log/slog"

	"github.com/randalmurphal/eventlink/pkg/eventlink/event"
)

// UnknownNickname is the nickname returned for users the directory cannot
// resolve.
const UnknownNickname = "Unknown"

// Responders answers *Requested events from the configured providers.
type Responders struct {
	bus  event.EventBus
	opts options
}

// NewResponders creates responders that publish responses on bus.
func NewResponders(bus event.EventBus, opts ...Option) *Responders {
	return &Responders{bus: bus, opts: applyOptions(opts)}
}

// Handlers returns a handler for each request kind that has a provider.
func (r *Responders) Handlers() []event.Handler {
	var hs []event.Handler
	if r.opts.users != nil {
		hs = append(hs, event.TypedHandler(event.TypeUserDataRequested, r.answerUsers))
	}
	if r.opts.interactions != nil {
		hs = append(hs, event.TypedHandler(event.TypeInteractionDataRequested, r.answerInteractions))
	}
	if r.opts.comments != nil {
		hs = append(hs, event.TypedHandler(event.TypeCommentDataRequested, r.answerComments))
	}
	if r.opts.bookmarks != nil {
		hs = append(hs, event.TypedHandler(event.TypeBookmarkDataRequested, r.answerBookmarks))
	}
	if r.opts.posts != nil {
		hs = append(hs, event.TypedHandler(event.TypePostValidationRequested, r.answerValidation))
	}
	return hs
}

func (r *Responders) answerUsers(ctx context.Context, req *event.UserDataRequested) error {
	users := make([]event.UserData, 0, len(req.UserIDs))
	for _, id := range req.UserIDs {
		u, err := r.opts.users.UserByID(ctx, id)
		if err != nil {
			r.opts.logger.Warn("user lookup failed, answering with placeholder",
				slog.String("request_id", req.RequestID),
				slog.String("user_id", id),
				slog.String("error", err.Error()),
			)
			u = event.UserData{UserID: id, Nickname: UnknownNickname}
		}
		users = append(users, u)
	}
	resp, err := event.NewUserDataResponse(req.RequestID, users)
	return r.respond(ctx, req, resp, err)
}

func (r *Responders) answerInteractions(ctx context.Context, req *event.InteractionDataRequested) error {
	rows, err := r.opts.interactions.ActiveInteractions(ctx, req.PostIDs, req.ContentType)
	if err != nil {
		return r.providerFailed(req, err)
	}
	resp, err := event.NewInteractionDataResponse(req.RequestID, rows)
	return r.respond(ctx, req, resp, err)
}

func (r *Responders) answerComments(ctx context.Context, req *event.CommentDataRequested) error {
	rows, err := r.opts.comments.CommentsForPosts(ctx, req.PostIDs)
	if err != nil {
		return r.providerFailed(req, err)
	}
	resp, err := event.NewCommentDataResponse(req.RequestID, rows)
	return r.respond(ctx, req, resp, err)
}

func (r *Responders) answerBookmarks(ctx context.Context, req *event.BookmarkDataRequested) error {
	ids, err := r.opts.bookmarks.BookmarkedPostIDs(ctx, req.UserID(), req.ContentType)
	if err != nil {
		return r.providerFailed(req, err)
	}
	resp, err := event.NewBookmarkDataResponse(req.RequestID, ids)
	return r.respond(ctx, req, resp, err)
}

func (r *Responders) answerValidation(ctx context.Context, req *event.PostValidationRequested) error {
	ok, err := r.opts.posts.PostExists(ctx, req.PostID)
	if err != nil {
		return r.providerFailed(req, err)
	}
	resp, err := event.NewPostValidationResponse(req.RequestID, req.PostID, ok)
	return r.respond(ctx, req, resp, err)
}

// providerFailed logs and swallows the error so no response is sent.
func (r *Responders) providerFailed(req event.DomainEvent, err error) error {
	r.opts.logger.Error("provider failed, no response sent",
		slog.String("event_type", req.EventType()),
		slog.String("event_id", req.EventID()),
		slog.String("error", err.Error()),
	)
	return nil
}

func (r *Responders) respond(ctx context.Context, req, resp event.DomainEvent, err error) error {
	if err != nil {
		return err
	}
	if err := r.bus.Publish(ctx, resp, event.ChannelDomain); err != nil {
		return err
	}
	r.opts.logger.Debug("request answered",
		slog.String("event_type", req.EventType()),
		slog.String("response_type", resp.EventType()),
		slog.String("event_id", req.EventID()),
	)
	return nil
}
