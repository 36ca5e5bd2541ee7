package event

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	elerrors "github.com/randalmurphal/eventlink/pkg/eventlink/errors"
	"github.com/randalmurphal/eventlink/pkg/eventlink/observability"
)

// Channel is a logical pub/sub channel.
type Channel int

const (
	// ChannelDomain carries ordinary domain events and request/response traffic.
	ChannelDomain Channel = iota
	// ChannelCompensation carries compensation events.
	ChannelCompensation
)

// Wire names of the two channels.
const (
	DomainChannelName       = "domain-events"
	CompensationChannelName = "compensation-events"
)

// String returns the wire name of the channel.
func (c Channel) String() string {
	switch c {
	case ChannelDomain:
		return DomainChannelName
	case ChannelCompensation:
		return CompensationChannelName
	default:
		return fmt.Sprintf("channel(%d)", int(c))
	}
}

// ParseChannel maps a wire name back to its Channel.
func ParseChannel(name string) (Channel, bool) {
	switch name {
	case DomainChannelName:
		return ChannelDomain, true
	case CompensationChannelName:
		return ChannelCompensation, true
	default:
		return 0, false
	}
}

// Channels returns every logical channel.
func Channels() []Channel {
	return []Channel{ChannelDomain, ChannelCompensation}
}

// EventBus publishes events. Every component that emits events receives one
// explicitly.
type EventBus interface {
	Publish(ctx context.Context, evt DomainEvent, ch Channel) error
}

// Sender moves encoded envelopes onto a named channel.
type Sender interface {
	Send(ctx context.Context, channel string, payload []byte) error
}

// Publisher is the EventBus backed by a transport Sender.
type Publisher struct {
	sender Sender
	opts   options
}

var _ EventBus = (*Publisher)(nil)

// NewPublisher creates a Publisher sending through sender.
func NewPublisher(sender Sender, opts ...Option) *Publisher {
	return &Publisher{
		sender: sender,
		opts:   applyOptions(opts),
	}
}

// Publish encodes evt into an Envelope and sends it on ch.
//
// Encoding failures return a *SerializationError and are never retried.
// Transport failures are retried while they categorize as transient.
func (p *Publisher) Publish(ctx context.Context, evt DomainEvent, ch Channel) error {
	raw, env, err := encode(evt)
	if err != nil {
		return err
	}

	retry := p.opts.retry
	retry.OnRetry = func(attempt int, err error, wait time.Duration) {
		p.opts.logger.Warn("publish failed, retrying",
			slog.String("event_type", env.EventType()),
			slog.String("channel", ch.String()),
			slog.Int("attempt", attempt),
			slog.Duration("backoff", wait),
			slog.String("error", err.Error()),
		)
	}
	err = elerrors.Retry(ctx, retry, "send", func(ctx context.Context) error {
		return p.sender.Send(ctx, ch.String(), raw)
	})
	if err != nil {
		return fmt.Errorf("publish %s on %s: %w", env.EventType(), ch, err)
	}

	observability.LogPublish(p.opts.logger, env.EventType(), env.MessageID(), ch.String())
	p.opts.metrics.RecordPublished(ctx, env.EventType(), ch.String())
	return nil
}

// encode validates and serializes evt, returning the envelope bytes.
func encode(evt DomainEvent) ([]byte, Envelope, error) {
	if evt == nil {
		return nil, Envelope{}, &SerializationError{Err: errors.New("nil event")}
	}
	if v, ok := evt.(interface{ Validate() error }); ok {
		if err := v.Validate(); err != nil {
			return nil, Envelope{}, &SerializationError{EventType: evt.EventType(), EventID: evt.EventID(), Err: err}
		}
	}

	body, err := json.Marshal(evt)
	if err != nil {
		return nil, Envelope{}, &SerializationError{EventType: evt.EventType(), EventID: evt.EventID(), Err: err}
	}

	env := NewEnvelope(evt.EventType(), body)
	raw, err := json.Marshal(env)
	if err != nil {
		return nil, Envelope{}, &SerializationError{EventType: evt.EventType(), EventID: evt.EventID(), Err: err}
	}
	return raw, env, nil
}
