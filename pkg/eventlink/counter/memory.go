package counter

import (
	"context"
	"slices"
	"strings"
	"sync"
)

// MemoryStore keeps counters in a map.
type MemoryStore struct {
	mu     sync.RWMutex
	posts  map[string]Post
	closed bool
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore creates a MemoryStore seeded with posts.
func NewMemoryStore(posts ...Post) *MemoryStore {
	m := &MemoryStore{posts: make(map[string]Post, len(posts))}
	for _, p := range posts {
		m.posts[p.ID] = p
	}
	return m
}

// Get implements Store.
func (m *MemoryStore) Get(_ context.Context, postID string) (Post, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return Post{}, ErrStoreClosed
	}
	p, ok := m.posts[postID]
	if !ok {
		return Post{}, ErrPostNotFound
	}
	return p, nil
}

// Save implements Store.
func (m *MemoryStore) Save(_ context.Context, p Post) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return ErrStoreClosed
	}
	m.posts[p.ID] = p
	return nil
}

// List implements Store.
func (m *MemoryStore) List(_ context.Context) ([]Post, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return nil, ErrStoreClosed
	}
	out := make([]Post, 0, len(m.posts))
	for _, p := range m.posts {
		out = append(out, p)
	}
	slices.SortFunc(out, func(a, b Post) int { return strings.Compare(a.ID, b.ID) })
	return out, nil
}

// Close implements Store.
func (m *MemoryStore) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}
