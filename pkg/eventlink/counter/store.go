package counter

import (
	"context"
	"errors"
)

var (
	// ErrPostNotFound is returned when a post has no counter row.
	ErrPostNotFound = errors.New("post not found")

	// ErrStoreClosed is returned when operating on a closed store.
	ErrStoreClosed = errors.New("store closed")
)

// Store loads and saves post counters.
type Store interface {
	// Get returns the post's counters or ErrPostNotFound.
	Get(ctx context.Context, postID string) (Post, error)

	// Save inserts or replaces the post's counters.
	Save(ctx context.Context, p Post) error

	// List returns every post ordered by id.
	List(ctx context.Context) ([]Post, error)

	// Close releases resources.
	Close() error
}
