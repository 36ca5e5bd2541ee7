// Package exchange implements both ends of the correlated request/response
// contract between modules.
//
// Responders run in the module that owns the data: they answer each
// *Requested event by querying a provider and publishing the matching
// *Response with the same requestId. Resolvers run in the requesting
// module: they hand each *Response to the correlation store so the waiting
// caller resumes. A provider failure produces no response; the requester
// degrades through its timeout.
package exchange

import (
	"context"
	"errors"
	"slices"
	"sync"

	"github.com/randalmurphal/eventlink/pkg/eventlink/counter"
	"github.com/randalmurphal/eventlink/pkg/eventlink/event"
)

// ErrUserNotFound is returned by a UserDirectory for an unknown user.
var ErrUserNotFound = errors.New("user not found")

// UserDirectory looks up public user data.
type UserDirectory interface {
	UserByID(ctx context.Context, userID string) (event.UserData, error)
}

// InteractionSource lists the active interactions on a set of posts.
type InteractionSource interface {
	ActiveInteractions(ctx context.Context, postIDs []string, contentType string) ([]event.InteractionData, error)
}

// CommentSource lists the comments on a set of posts.
type CommentSource interface {
	CommentsForPosts(ctx context.Context, postIDs []string) ([]event.CommentData, error)
}

// BookmarkSource lists the posts a user has bookmarked.
type BookmarkSource interface {
	BookmarkedPostIDs(ctx context.Context, userID, contentType string) ([]string, error)
}

// PostDirectory answers whether a post exists.
type PostDirectory interface {
	PostExists(ctx context.Context, postID string) (bool, error)
}

// StorePosts adapts a counter.Store into a PostDirectory.
type StorePosts struct {
	Store counter.Store
}

// PostExists reports whether the store holds postID.
func (s StorePosts) PostExists(ctx context.Context, postID string) (bool, error) {
	_, err := s.Store.Get(ctx, postID)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, counter.ErrPostNotFound):
		return false, nil
	default:
		return false, err
	}
}

// MemoryDirectory is an in-memory provider for every request kind.
// It is safe for concurrent use.
type MemoryDirectory struct {
	mu           sync.RWMutex
	users        map[string]event.UserData
	interactions []event.InteractionData
	comments     []event.CommentData
	bookmarks    map[string][]string
	posts        map[string]bool
}

// NewMemoryDirectory creates an empty directory.
func NewMemoryDirectory() *MemoryDirectory {
	return &MemoryDirectory{
		users:     make(map[string]event.UserData),
		bookmarks: make(map[string][]string),
		posts:     make(map[string]bool),
	}
}

// AddUser stores a user.
func (d *MemoryDirectory) AddUser(u event.UserData) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.users[u.UserID] = u
}

// AddInteraction stores an interaction. A BOOKMARK interaction that is
// ACTIVE also bookmarks the post for its user.
func (d *MemoryDirectory) AddInteraction(i event.InteractionData) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.interactions = append(d.interactions, i)
	if i.InteractionType == event.InteractionBookmark && i.InteractionStatus == event.StatusActive {
		key := bookmarkKey(i.UserID, i.ContentType)
		if !slices.Contains(d.bookmarks[key], i.PostID) {
			d.bookmarks[key] = append(d.bookmarks[key], i.PostID)
		}
	}
}

// AddComment stores a comment.
func (d *MemoryDirectory) AddComment(c event.CommentData) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.comments = append(d.comments, c)
}

// AddPost marks a post as existing.
func (d *MemoryDirectory) AddPost(postID string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.posts[postID] = true
}

// UserByID implements UserDirectory.
func (d *MemoryDirectory) UserByID(_ context.Context, userID string) (event.UserData, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	u, ok := d.users[userID]
	if !ok {
		return event.UserData{}, ErrUserNotFound
	}
	return u, nil
}

// ActiveInteractions implements InteractionSource.
func (d *MemoryDirectory) ActiveInteractions(_ context.Context, postIDs []string, contentType string) ([]event.InteractionData, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	var out []event.InteractionData
	for _, i := range d.interactions {
		if i.InteractionStatus != event.StatusActive || !slices.Contains(postIDs, i.PostID) {
			continue
		}
		if contentType != "" && i.ContentType != contentType {
			continue
		}
		out = append(out, i)
	}
	return out, nil
}

// CommentsForPosts implements CommentSource.
func (d *MemoryDirectory) CommentsForPosts(_ context.Context, postIDs []string) ([]event.CommentData, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	var out []event.CommentData
	for _, c := range d.comments {
		if slices.Contains(postIDs, c.PostID) {
			out = append(out, c)
		}
	}
	return out, nil
}

// BookmarkedPostIDs implements BookmarkSource.
func (d *MemoryDirectory) BookmarkedPostIDs(_ context.Context, userID, contentType string) ([]string, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return slices.Clone(d.bookmarks[bookmarkKey(userID, contentType)]), nil
}

// PostExists implements PostDirectory.
func (d *MemoryDirectory) PostExists(_ context.Context, postID string) (bool, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.posts[postID], nil
}

func bookmarkKey(userID, contentType string) string {
	return userID + "\x00" + contentType
}
