package exchange

import (
	"context"

	"github.com/randalmurphal/eventlink/pkg/eventlink/correlation"
	"github.com/randalmurphal/eventlink/pkg/eventlink/event"
)

// Resolvers returns a handler per *Response type that resolves the pending
// request in store. The resolved values are:
//
//	UserDataResponse        []event.UserData
//	InteractionDataResponse []event.InteractionData
//	CommentDataResponse     []event.CommentData
//	BookmarkDataResponse    []string
//	PostValidationResponse  bool
func Resolvers(store *correlation.Store) []event.Handler {
	return []event.Handler{
		resolver(store, event.TypeUserDataResponse, func(e *event.UserDataResponse) (string, any) {
			return e.RequestID, e.Users
		}),
		resolver(store, event.TypeInteractionDataResponse, func(e *event.InteractionDataResponse) (string, any) {
			return e.RequestID, e.Interactions
		}),
		resolver(store, event.TypeCommentDataResponse, func(e *event.CommentDataResponse) (string, any) {
			return e.RequestID, e.Comments
		}),
		resolver(store, event.TypeBookmarkDataResponse, func(e *event.BookmarkDataResponse) (string, any) {
			return e.RequestID, e.PostIDs
		}),
		resolver(store, event.TypePostValidationResponse, func(e *event.PostValidationResponse) (string, any) {
			return e.RequestID, e.Valid
		}),
	}
}

// resolver resolves the request named by each T. Late and unknown
// responses are discarded by the store.
func resolver[T event.DomainEvent](store *correlation.Store, tag string, extract func(T) (string, any)) event.Handler {
	return event.TypedHandler(tag, func(_ context.Context, evt T) error {
		store.Resolve(extract(evt))
		return nil
	})
}
