package counter

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	_ "modernc.org/sqlite" // Pure Go SQLite driver
)

// SQLiteStore persists counters to SQLite.
// It is suitable for single-process production use.
type SQLiteStore struct {
	db     *sql.DB
	mu     sync.RWMutex
	closed bool
}

var _ Store = (*SQLiteStore)(nil)

// NewSQLiteStore opens or creates the counter table at path.
// Use ":memory:" for tests.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	// A single connection keeps ":memory:" databases shared and serializes writers.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable WAL mode: %w", err)
	}

	if _, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS post_counters (
			post_id TEXT PRIMARY KEY,
			comment_count INTEGER NOT NULL DEFAULT 0 CHECK (comment_count >= 0),
			like_count INTEGER NOT NULL DEFAULT 0 CHECK (like_count >= 0),
			updated_at TEXT NOT NULL
		)
	`); err != nil {
		db.Close()
		return nil, fmt.Errorf("create table: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// Get implements Store.
func (s *SQLiteStore) Get(ctx context.Context, postID string) (Post, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return Post{}, ErrStoreClosed
	}

	var p Post
	var updated string
	err := s.db.QueryRowContext(ctx, `
		SELECT post_id, comment_count, like_count, updated_at
		FROM post_counters
		WHERE post_id = ?
	`, postID).Scan(&p.ID, &p.CommentCount, &p.LikeCount, &updated)

	if errors.Is(err, sql.ErrNoRows) {
		return Post{}, ErrPostNotFound
	}
	if err != nil {
		return Post{}, fmt.Errorf("load counters: %w", err)
	}
	p.UpdatedAt, _ = time.Parse(time.RFC3339Nano, updated)
	return p, nil
}

// Save implements Store.
func (s *SQLiteStore) Save(ctx context.Context, p Post) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrStoreClosed
	}

	updated := p.UpdatedAt
	if updated.IsZero() {
		updated = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO post_counters (post_id, comment_count, like_count, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(post_id) DO UPDATE SET
			comment_count = excluded.comment_count,
			like_count = excluded.like_count,
			updated_at = excluded.updated_at
	`, p.ID, p.CommentCount, p.LikeCount, updated.UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("save counters: %w", err)
	}
	return nil
}

// List implements Store.
func (s *SQLiteStore) List(ctx context.Context) ([]Post, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, ErrStoreClosed
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT post_id, comment_count, like_count, updated_at
		FROM post_counters
		ORDER BY post_id
	`)
	if err != nil {
		return nil, fmt.Errorf("list counters: %w", err)
	}
	defer rows.Close()

	var posts []Post
	for rows.Next() {
		var p Post
		var updated string
		if err := rows.Scan(&p.ID, &p.CommentCount, &p.LikeCount, &updated); err != nil {
			return nil, fmt.Errorf("scan counters: %w", err)
		}
		p.UpdatedAt, _ = time.Parse(time.RFC3339Nano, updated)
		posts = append(posts, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate counters: %w", err)
	}
	return posts, nil
}

// Close implements Store.
func (s *SQLiteStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true
	return s.db.Close()
}
