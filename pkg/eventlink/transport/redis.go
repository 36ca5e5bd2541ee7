package transport

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/redis/go-redis/v9"

	elerrors "github.com/randalmurphal/eventlink/pkg/eventlink/errors"
)

// RedisConfig locates the Redis server.
type RedisConfig struct {
	// URL is either a redis:// URL or a plain host:port.
	URL string
}

// ConnectRedis builds a client from a redis:// URL or a host:port and pings it.
func ConnectRedis(ctx context.Context, cfg RedisConfig) (*redis.Client, error) {
	var client *redis.Client
	if strings.HasPrefix(cfg.URL, "redis://") || strings.HasPrefix(cfg.URL, "rediss://") {
		opt, err := redis.ParseURL(cfg.URL)
		if err != nil {
			return nil, fmt.Errorf("parse redis url: %w", err)
		}
		client = redis.NewClient(opt)
	} else {
		client = redis.NewClient(&redis.Options{Addr: cfg.URL})
	}
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return client, nil
}

// RedisTransport publishes with PUBLISH and receives with SUBSCRIBE on the
// channel names. Redis pub/sub is at-most-once: a message published while no
// subscriber is connected is lost.
type RedisTransport struct {
	client *redis.Client
	opts   options

	mu     sync.Mutex
	subs   map[*redisSubscription]struct{}
	closed atomic.Bool
}

var _ Transport = (*RedisTransport)(nil)

// NewRedisTransport wraps client. The transport owns the client and closes
// it on Close.
func NewRedisTransport(client *redis.Client, opts ...Option) *RedisTransport {
	return &RedisTransport{
		client: client,
		opts:   applyOptions(opts),
		subs:   make(map[*redisSubscription]struct{}),
	}
}

// Send publishes payload on channel.
func (t *RedisTransport) Send(ctx context.Context, channel string, payload []byte) error {
	if t.closed.Load() {
		return elerrors.Permanent(ErrClosed, "redis publish "+channel)
	}
	if err := t.client.Publish(ctx, channel, payload).Err(); err != nil {
		return redisSendError(channel, err)
	}
	return nil
}

// redisSendError classifies a closed client as permanent and the server's
// busy or loading replies as transient. Anything else is left to
// errors.Categorize.
func redisSendError(channel string, err error) error {
	op := "redis publish " + channel
	switch {
	case errors.Is(err, redis.ErrClosed):
		return elerrors.Permanent(err, op)
	case redis.HasErrorPrefix(err, "LOADING"),
		redis.HasErrorPrefix(err, "BUSY"),
		redis.HasErrorPrefix(err, "TRYAGAIN"):
		return elerrors.Transient(err, op)
	default:
		return fmt.Errorf("%s: %w", op, err)
	}
}

// Subscribe subscribes to channels and waits for the server to confirm
// before returning, so nothing published afterwards is missed.
func (t *RedisTransport) Subscribe(ctx context.Context, handler MessageHandler, channels ...string) (Subscription, error) {
	if t.closed.Load() {
		return nil, ErrClosed
	}
	if len(channels) == 0 {
		channels = ChannelNames()
	}

	pubsub := t.client.Subscribe(ctx, channels...)
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return nil, fmt.Errorf("redis subscribe %v: %w", channels, err)
	}

	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	sub := &redisSubscription{
		pubsub: pubsub,
		cancel: cancel,
		exited: make(chan struct{}),
		t:      t,
	}

	t.mu.Lock()
	t.subs[sub] = struct{}{}
	t.mu.Unlock()

	go sub.process(runCtx, handler)
	go func() {
		select {
		case <-ctx.Done():
			_ = sub.Unsubscribe()
		case <-sub.exited:
		}
	}()

	t.opts.logger.Info("redis subscription started", slog.Any("channels", channels))
	return sub, nil
}

// Close stops every subscription and closes the client.
func (t *RedisTransport) Close() error {
	if !t.closed.CompareAndSwap(false, true) {
		return nil
	}

	t.mu.Lock()
	subs := make([]*redisSubscription, 0, len(t.subs))
	for sub := range t.subs {
		subs = append(subs, sub)
	}
	t.mu.Unlock()

	for _, sub := range subs {
		_ = sub.Unsubscribe()
	}
	return t.client.Close()
}

type redisSubscription struct {
	pubsub *redis.PubSub
	cancel context.CancelFunc
	exited chan struct{}
	once   sync.Once
	err    error
	t      *RedisTransport
}

func (s *redisSubscription) process(ctx context.Context, handler MessageHandler) {
	defer close(s.exited)
	for msg := range s.pubsub.Channel() {
		handler(ctx, msg.Channel, []byte(msg.Payload))
	}
}

// Unsubscribe closes the pub/sub connection and waits for the delivery loop.
func (s *redisSubscription) Unsubscribe() error {
	s.once.Do(func() {
		s.t.mu.Lock()
		delete(s.t.subs, s)
		s.t.mu.Unlock()

		s.cancel()
		s.err = s.pubsub.Close()
	})
	<-s.exited
	return s.err
}
