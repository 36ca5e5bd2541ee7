package transport

import (
	"context"
	"log/slog"
	"slices"
	"sync"
	"sync/atomic"
)

// MemoryConfig configures the in-process transport.
type MemoryConfig struct {
	// BufferSize bounds each subscription's queue for outside senders.
	// Messages published by a handler while it handles a delivery are always
	// queued. Default: 256
	BufferSize int

	// NonBlocking makes Send drop messages when a subscriber's buffer is full.
	// Default: false (blocking)
	NonBlocking bool

	// OnDrop is called when a message is dropped in non-blocking mode.
	OnDrop func(channel string, payload []byte)
}

// DefaultMemoryConfig provides reasonable defaults.
var DefaultMemoryConfig = MemoryConfig{
	BufferSize: 256,
}

// MemoryTransport delivers messages between components of one process.
// Each subscription owns a queue drained by its own goroutine, so a slow
// handler never blocks other subscribers beyond its buffer. A Send made from
// inside a delivery (a responder answering, a handler emitting a
// compensation) never waits for buffer space: only the delivering goroutines
// could make that space.
type MemoryTransport struct {
	config MemoryConfig
	opts   options

	mu        sync.RWMutex
	byChannel map[string]map[int64]*memorySubscription

	nextID  atomic.Int64
	closed  atomic.Bool
	closeCh chan struct{}
}

var _ Transport = (*MemoryTransport)(nil)

// deliveryKey marks contexts handed to handlers by a MemoryTransport.
type deliveryKey struct{}

// NewMemoryTransport creates an in-process transport.
func NewMemoryTransport(config MemoryConfig, opts ...Option) *MemoryTransport {
	if config.BufferSize <= 0 {
		config.BufferSize = DefaultMemoryConfig.BufferSize
	}
	return &MemoryTransport{
		config:    config,
		opts:      applyOptions(opts),
		byChannel: make(map[string]map[int64]*memorySubscription),
		closeCh:   make(chan struct{}),
	}
}

type memoryMessage struct {
	channel string
	payload []byte
}

type memorySubscription struct {
	id       int64
	channels []string
	handler  MessageHandler
	ctx      context.Context

	qmu   sync.Mutex
	queue []memoryMessage
	ready chan struct{}
	space chan struct{}

	done   chan struct{}
	exited chan struct{}
	once   sync.Once
	t      *MemoryTransport
}

// inDelivery reports whether ctx belongs to a handler running on one of
// t's delivery goroutines.
func (t *MemoryTransport) inDelivery(ctx context.Context) bool {
	owner, _ := ctx.Value(deliveryKey{}).(*MemoryTransport)
	return owner == t
}

// Send delivers payload to every subscription on channel.
func (t *MemoryTransport) Send(ctx context.Context, channel string, payload []byte) error {
	if t.closed.Load() {
		return ErrClosed
	}

	msg := memoryMessage{channel: channel, payload: slices.Clone(payload)}
	force := t.inDelivery(ctx)

	t.mu.RLock()
	subs := make([]*memorySubscription, 0, len(t.byChannel[channel]))
	for _, sub := range t.byChannel[channel] {
		subs = append(subs, sub)
	}
	t.mu.RUnlock()

	for _, sub := range subs {
		if force {
			sub.push(msg)
			continue
		}
		if t.config.NonBlocking {
			if !sub.tryPush(msg) {
				t.opts.logger.Warn("memory transport buffer full, message dropped",
					slog.String("channel", channel),
					slog.Int64("subscription", sub.id),
				)
				if t.config.OnDrop != nil {
					t.config.OnDrop(channel, payload)
				}
			}
			continue
		}

		for !sub.tryPush(msg) {
			select {
			case <-sub.space:
			case <-sub.done:
			case <-ctx.Done():
				return ctx.Err()
			case <-t.closeCh:
				return ErrClosed
			}
			if sub.isDone() {
				break
			}
		}
	}
	return nil
}

// Subscribe starts a delivery goroutine for channels. Messages are handled
// with ctx until the subscription ends.
func (t *MemoryTransport) Subscribe(ctx context.Context, handler MessageHandler, channels ...string) (Subscription, error) {
	if t.closed.Load() {
		return nil, ErrClosed
	}
	if len(channels) == 0 {
		channels = ChannelNames()
	}

	sub := &memorySubscription{
		id:       t.nextID.Add(1),
		channels: channels,
		handler:  handler,
		ctx:      context.WithValue(context.WithoutCancel(ctx), deliveryKey{}, t),
		ready:    make(chan struct{}, 1),
		space:    make(chan struct{}, 1),
		done:     make(chan struct{}),
		exited:   make(chan struct{}),
		t:        t,
	}

	t.mu.Lock()
	for _, ch := range channels {
		if t.byChannel[ch] == nil {
			t.byChannel[ch] = make(map[int64]*memorySubscription)
		}
		t.byChannel[ch][sub.id] = sub
	}
	t.mu.Unlock()

	go sub.process()
	go func() {
		select {
		case <-ctx.Done():
			_ = sub.Unsubscribe()
		case <-sub.done:
		}
	}()

	return sub, nil
}

// Close stops every subscription. Queued messages are discarded.
func (t *MemoryTransport) Close() error {
	if !t.closed.CompareAndSwap(false, true) {
		return nil
	}
	close(t.closeCh)

	t.mu.RLock()
	subs := make(map[int64]*memorySubscription)
	for _, byID := range t.byChannel {
		for id, sub := range byID {
			subs[id] = sub
		}
	}
	t.mu.RUnlock()

	for _, sub := range subs {
		_ = sub.Unsubscribe()
	}
	return nil
}

// tryPush queues msg if the queue is below the buffer size.
func (s *memorySubscription) tryPush(msg memoryMessage) bool {
	s.qmu.Lock()
	if len(s.queue) >= s.t.config.BufferSize {
		s.qmu.Unlock()
		return false
	}
	s.queue = append(s.queue, msg)
	s.qmu.Unlock()
	notify(s.ready)
	return true
}

// push queues msg regardless of the buffer size.
func (s *memorySubscription) push(msg memoryMessage) {
	s.qmu.Lock()
	s.queue = append(s.queue, msg)
	s.qmu.Unlock()
	notify(s.ready)
}

func (s *memorySubscription) pop() (memoryMessage, bool) {
	s.qmu.Lock()
	defer s.qmu.Unlock()
	if len(s.queue) == 0 {
		return memoryMessage{}, false
	}
	msg := s.queue[0]
	s.queue[0] = memoryMessage{}
	s.queue = s.queue[1:]
	return msg, true
}

func (s *memorySubscription) isDone() bool {
	select {
	case <-s.done:
		return true
	default:
		return false
	}
}

func notify(ch chan struct{}) {
	select {
	case ch <- struct{}{}:
	default:
	}
}

func (s *memorySubscription) process() {
	defer close(s.exited)
	for {
		msg, ok := s.pop()
		if !ok {
			select {
			case <-s.ready:
				continue
			case <-s.done:
				return
			}
		}
		notify(s.space)
		if s.isDone() {
			return
		}
		s.handler(s.ctx, msg.channel, msg.payload)
	}
}

// Unsubscribe removes the subscription and waits for its goroutine.
func (s *memorySubscription) Unsubscribe() error {
	s.once.Do(func() {
		s.t.mu.Lock()
		for _, ch := range s.channels {
			if byID, ok := s.t.byChannel[ch]; ok {
				delete(byID, s.id)
			}
		}
		s.t.mu.Unlock()
		close(s.done)
	})
	<-s.exited
	return nil
}
