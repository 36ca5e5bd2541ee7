// Package readmodel assembles post views from data owned by other modules.
//
// The Assembler issues correlated requests (users, interactions, comments,
// bookmarks, post validation) over the event bus and waits for the answers
// with a bounded timeout. A request that is not answered in time degrades
// to a default: no users, no interactions, no comments, no bookmarks, or
// "not valid". Assembled views therefore always render, possibly with
// placeholder authors and zero counts.
package readmodel

import (
	"cmp"
	"context"
	"slices"
	"time"

	"github.com/randalmurphal/eventlink/pkg/eventlink/event"
)

// ContentTypePost is the default content type of assembled posts.
const ContentTypePost = "POST"

// PostSummary is the post module's own row for a post.
type PostSummary struct {
	ID          string    `json:"postId"`
	AuthorID    string    `json:"userId"`
	Title       string    `json:"title"`
	ContentType string    `json:"contentType"`
	ViewCount   int64     `json:"viewCount"`
	CreatedAt   time.Time `json:"createdAt"`
}

// PostView is a post merged with data from other modules.
type PostView struct {
	PostSummary
	Author       event.UserData          `json:"author"`
	Interactions []event.InteractionData `json:"interactions"`
	LikeCount    int64                   `json:"likeCount"`
	CommentCount int64                   `json:"commentCount"`
}

// Score ranks a post: views count once, likes twice, comments three times.
func (v PostView) Score() float64 {
	return float64(v.ViewCount) + 3*float64(v.CommentCount) + 2*float64(v.LikeCount)
}

// TopPosts returns up to limit views ordered by descending Score. Ties keep
// their input order. A non-positive limit returns every view.
func TopPosts(views []PostView, limit int) []PostView {
	ranked := slices.Clone(views)
	slices.SortStableFunc(ranked, func(a, b PostView) int {
		return cmp.Compare(b.Score(), a.Score())
	})
	if limit > 0 && limit < len(ranked) {
		ranked = ranked[:limit]
	}
	return ranked
}

// PostLoader loads post rows by id. Missing ids are skipped.
type PostLoader interface {
	PostsByID(ctx context.Context, ids []string) ([]PostSummary, error)
}

// PostLoaderFunc adapts a function into a PostLoader.
type PostLoaderFunc func(ctx context.Context, ids []string) ([]PostSummary, error)

// PostsByID calls f.
func (f PostLoaderFunc) PostsByID(ctx context.Context, ids []string) ([]PostSummary, error) {
	return f(ctx, ids)
}
