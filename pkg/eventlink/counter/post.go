// Package counter holds the denormalized post counters that cross-module
// events keep up to date, and the stores that persist them.
package counter

import (
	"fmt"
	"time"
)

// Field names a denormalized counter on a post.
type Field string

const (
	FieldCommentCount Field = "comment_count"
	FieldLikeCount    Field = "like_count"
)

// Direction is the sign of a counter mutation.
type Direction int

const (
	Increase Direction = 1
	Decrease Direction = -1
)

// Inverse returns the opposite direction.
func (d Direction) Inverse() Direction {
	return -d
}

// String returns "increase" or "decrease".
func (d Direction) String() string {
	switch d {
	case Increase:
		return "increase"
	case Decrease:
		return "decrease"
	default:
		return fmt.Sprintf("direction(%d)", int(d))
	}
}

// Post carries the counters of one post.
type Post struct {
	ID           string    `json:"id"`
	CommentCount int64     `json:"commentCount"`
	LikeCount    int64     `json:"likeCount"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// IncreaseCommentCount returns p with one more comment.
func (p Post) IncreaseCommentCount() Post {
	p.CommentCount++
	p.UpdatedAt = time.Now().UTC()
	return p
}

// DecreaseCommentCount returns p with one fewer comment, floored at 0.
func (p Post) DecreaseCommentCount() Post {
	p.CommentCount = max(p.CommentCount-1, 0)
	p.UpdatedAt = time.Now().UTC()
	return p
}

// IncreaseLikeCount returns p with one more like.
func (p Post) IncreaseLikeCount() Post {
	p.LikeCount++
	p.UpdatedAt = time.Now().UTC()
	return p
}

// DecreaseLikeCount returns p with one fewer like, floored at 0.
func (p Post) DecreaseLikeCount() Post {
	p.LikeCount = max(p.LikeCount-1, 0)
	p.UpdatedAt = time.Now().UTC()
	return p
}

// Count returns the value of field.
func (p Post) Count(field Field) int64 {
	switch field {
	case FieldCommentCount:
		return p.CommentCount
	case FieldLikeCount:
		return p.LikeCount
	default:
		return 0
	}
}

// Apply moves field one step in direction.
func Apply(p Post, field Field, d Direction) (Post, error) {
	switch {
	case field == FieldCommentCount && d == Increase:
		return p.IncreaseCommentCount(), nil
	case field == FieldCommentCount && d == Decrease:
		return p.DecreaseCommentCount(), nil
	case field == FieldLikeCount && d == Increase:
		return p.IncreaseLikeCount(), nil
	case field == FieldLikeCount && d == Decrease:
		return p.DecreaseLikeCount(), nil
	default:
		return p, fmt.Errorf("unsupported counter mutation %s %s", d, field)
	}
}
