package event

import (
	"context"
	"fmt"
	"sync"
)

// Recorded is an event captured by a Batch with the channel it was meant for.
type Recorded struct {
	Event   DomainEvent
	Channel Channel
}

// Batch is the offline EventBus: it records events instead of sending them.
// Callers pass a Batch explicitly where events should be collected and later
// flushed through a live bus, or inspected in tests.
type Batch struct {
	mu     sync.Mutex
	events []Recorded
}

var _ EventBus = (*Batch)(nil)

// NewBatch creates an empty Batch.
func NewBatch() *Batch {
	return &Batch{}
}

// Publish records evt. It applies the same encoding checks as Publisher so
// a malformed event fails here rather than at Flush.
func (b *Batch) Publish(_ context.Context, evt DomainEvent, ch Channel) error {
	if _, _, err := encode(evt); err != nil {
		return err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = append(b.events, Recorded{Event: evt, Channel: ch})
	return nil
}

// Events returns a copy of the recorded events in publish order.
func (b *Batch) Events() []Recorded {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]Recorded, len(b.events))
	copy(out, b.events)
	return out
}

// OfType returns the recorded events carrying tag.
func (b *Batch) OfType(tag string) []DomainEvent {
	b.mu.Lock()
	defer b.mu.Unlock()
	var out []DomainEvent
	for _, r := range b.events {
		if r.Event.EventType() == tag {
			out = append(out, r.Event)
		}
	}
	return out
}

// Len returns the number of recorded events.
func (b *Batch) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.events)
}

// Flush publishes the recorded events through bus in order. Events are
// removed as they are published; on failure the unsent remainder is kept.
func (b *Batch) Flush(ctx context.Context, bus EventBus) error {
	b.mu.Lock()
	pending := b.events
	b.events = nil
	b.mu.Unlock()

	for i, r := range pending {
		if err := bus.Publish(ctx, r.Event, r.Channel); err != nil {
			b.mu.Lock()
			b.events = append(append([]Recorded(nil), pending[i:]...), b.events...)
			b.mu.Unlock()
			return fmt.Errorf("flush batch at %d of %d: %w", i+1, len(pending), err)
		}
	}
	return nil
}

// Reset discards every recorded event.
func (b *Batch) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = nil
}
