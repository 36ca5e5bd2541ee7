package event

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
)

// Envelope is the wire record a transport carries. It is immutable: fields
// are only reachable through accessors, and decoding goes through ParseEnvelope.
type Envelope struct {
	messageID   string
	eventType   string
	payload     string
	publishedAt time.Time
}

// envelopeWire is the JSON shape of an Envelope.
type envelopeWire struct {
	MessageID   string    `json:"messageId"`
	EventType   string    `json:"eventType"`
	Payload     string    `json:"payload"`
	PublishedAt time.Time `json:"publishedAt"`
}

// NewEnvelope wraps an encoded event body with a fresh message id and the
// current time.
func NewEnvelope(eventType string, payload []byte) Envelope {
	return Envelope{
		messageID:   uuid.New().String(),
		eventType:   eventType,
		payload:     string(payload),
		publishedAt: time.Now().UTC(),
	}
}

// MessageID is unique per transmission and distinct from the event id.
func (e Envelope) MessageID() string { return e.messageID }

// EventType is the catalog tag used for dispatch.
func (e Envelope) EventType() string { return e.eventType }

// Payload returns the encoded event body.
func (e Envelope) Payload() []byte { return []byte(e.payload) }

// PublishedAt returns when the envelope was built.
func (e Envelope) PublishedAt() time.Time { return e.publishedAt }

// MarshalJSON implements json.Marshaler.
func (e Envelope) MarshalJSON() ([]byte, error) {
	return json.Marshal(envelopeWire{
		MessageID:   e.messageID,
		EventType:   e.eventType,
		Payload:     e.payload,
		PublishedAt: e.publishedAt,
	})
}

// ParseEnvelope decodes raw transport bytes. The message id and event type
// are mandatory.
func ParseEnvelope(raw []byte) (Envelope, error) {
	var w envelopeWire
	if err := json.Unmarshal(raw, &w); err != nil {
		return Envelope{}, err
	}
	if w.MessageID == "" {
		return Envelope{}, errors.New("missing messageId")
	}
	if w.EventType == "" {
		return Envelope{}, errors.New("missing eventType")
	}
	return Envelope{
		messageID:   w.MessageID,
		eventType:   w.EventType,
		payload:     w.Payload,
		publishedAt: w.PublishedAt,
	}, nil
}
