// Package transport moves encoded envelopes between processes.
//
// Three implementations share one contract: MemoryTransport for a single
// process and tests, RedisTransport over PUBLISH/SUBSCRIBE, and
// KafkaTransport over topics named after the channels. None of them
// acknowledge remote processing.
package transport

import (
	"context"
	"errors"
	"fmt"

	"github.com/randalmurphal/eventlink/pkg/eventlink/event"
)

// ErrClosed is returned by operations on a closed transport.
var ErrClosed = errors.New("transport is closed")

// MessageHandler receives one raw message. (*event.Router).OnMessage has
// this shape.
type MessageHandler func(ctx context.Context, channel string, payload []byte)

// Subscription is an active delivery loop.
type Subscription interface {
	// Unsubscribe stops delivery and waits for the loop to exit.
	Unsubscribe() error
}

// Transport sends and receives raw channel traffic.
type Transport interface {
	event.Sender

	// Subscribe starts delivering messages published on channels to handler.
	// Delivery runs on transport-owned goroutines until the subscription or
	// transport is closed.
	Subscribe(ctx context.Context, handler MessageHandler, channels ...string) (Subscription, error)

	// Close releases the transport and stops every subscription.
	Close() error
}

// ChannelNames returns the wire names of every logical channel.
func ChannelNames() []string {
	chs := event.Channels()
	names := make([]string, len(chs))
	for i, ch := range chs {
		names[i] = ch.String()
	}
	return names
}

// Kind names a transport implementation in configuration.
type Kind string

const (
	KindMemory Kind = "memory"
	KindRedis  Kind = "redis"
	KindKafka  Kind = "kafka"
)

// Config selects and configures a transport.
type Config struct {
	Kind   Kind
	Memory MemoryConfig
	Redis  RedisConfig
	Kafka  KafkaConfig
}

// Open builds the transport selected by cfg.Kind.
func Open(ctx context.Context, cfg Config, opts ...Option) (Transport, error) {
	switch cfg.Kind {
	case KindMemory, "":
		return NewMemoryTransport(cfg.Memory, opts...), nil
	case KindRedis:
		client, err := ConnectRedis(ctx, cfg.Redis)
		if err != nil {
			return nil, err
		}
		return NewRedisTransport(client, opts...), nil
	case KindKafka:
		return NewKafkaTransport(cfg.Kafka, opts...)
	default:
		return nil, fmt.Errorf("unknown transport kind %q", cfg.Kind)
	}
}
