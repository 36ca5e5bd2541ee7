package event

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// DomainEvent is an immutable record describing something that happened in
// one module, of interest to others.
type DomainEvent interface {
	EventID() string
	EventType() string
	AggregateID() string
	OccurredAt() time.Time
	UserID() string
}

// Meta holds the attributes common to every event. Variants embed it, so its
// fields are flattened into the variant's JSON body.
type Meta struct {
	ID        string    `json:"eventId"`
	Type      string    `json:"eventType"`
	Aggregate string    `json:"aggregateId"`
	At        time.Time `json:"occurredAt"`
	User      string    `json:"userId,omitempty"`
}

// MetaOption configures optional Meta fields.
type MetaOption func(*Meta)

// WithEventID overrides the generated event id.
func WithEventID(id string) MetaOption {
	return func(m *Meta) {
		m.ID = id
	}
}

// WithOccurredAt overrides the construction timestamp.
func WithOccurredAt(t time.Time) MetaOption {
	return func(m *Meta) {
		m.At = t
	}
}

// WithUserID sets the acting user.
func WithUserID(userID string) MetaOption {
	return func(m *Meta) {
		m.User = userID
	}
}

// NewMeta builds the common attributes for an event of the given type.
// It fails when eventType or aggregateID is blank.
func NewMeta(eventType, aggregateID string, opts ...MetaOption) (Meta, error) {
	m := Meta{
		ID:        uuid.New().String(),
		Type:      eventType,
		Aggregate: aggregateID,
		At:        time.Now().UTC(),
	}
	for _, opt := range opts {
		opt(&m)
	}
	if err := m.Validate(); err != nil {
		return Meta{}, err
	}
	return m, nil
}

// Validate checks the mandatory attributes.
func (m Meta) Validate() error {
	switch {
	case strings.TrimSpace(m.Type) == "":
		return &ValidationError{Field: "eventType", Message: "must not be blank"}
	case strings.TrimSpace(m.Aggregate) == "":
		return &ValidationError{Field: "aggregateId", Message: "must not be blank"}
	case strings.TrimSpace(m.ID) == "":
		return &ValidationError{Field: "eventId", Message: "must not be blank"}
	}
	return nil
}

// EventID returns the unique event identifier.
func (m Meta) EventID() string { return m.ID }

// EventType returns the catalog tag.
func (m Meta) EventType() string { return m.Type }

// AggregateID returns the key of the subject entity.
func (m Meta) AggregateID() string { return m.Aggregate }

// OccurredAt returns when the event was constructed.
func (m Meta) OccurredAt() time.Time { return m.At }

// UserID returns the acting user, if any.
func (m Meta) UserID() string { return m.User }
