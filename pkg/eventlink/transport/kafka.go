package transport

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"

	elerrors "github.com/randalmurphal/eventlink/pkg/eventlink/errors"
)

// KafkaConfig configures the Kafka transport. Each channel maps to the topic
// TopicPrefix+channel.
//
// By default every transport consumes through its own group,
// GroupID+"."+InstanceID, starting at the newest offset. Each node then sees
// every message published while it is subscribed, as with Redis pub/sub,
// which request/response correlation depends on. SharedGroup joins GroupID
// itself so that replicas of one module split the traffic; use it only when
// no replica issues requests.
type KafkaConfig struct {
	Brokers     []string
	TopicPrefix string
	GroupID     string

	// InstanceID distinguishes this node's group. Default: a random uuid.
	InstanceID string

	// SharedGroup load-balances partitions across every transport with the
	// same GroupID.
	SharedGroup bool

	// BatchTimeout bounds how long the writer waits to fill a batch.
	// Default: 10ms
	BatchTimeout time.Duration
}

// KafkaTransport publishes envelopes to per-channel topics and consumes them
// through a consumer group. Offsets are committed after the handler returns.
type KafkaTransport struct {
	cfg    KafkaConfig
	writer *kafka.Writer
	opts   options

	mu     sync.Mutex
	subs   map[*kafkaSubscription]struct{}
	closed atomic.Bool
}

var _ Transport = (*KafkaTransport)(nil)

// NewKafkaTransport creates a Kafka transport. No connection is made until
// the first Send or Subscribe.
func NewKafkaTransport(cfg KafkaConfig, opts ...Option) (*KafkaTransport, error) {
	if len(cfg.Brokers) == 0 {
		return nil, fmt.Errorf("kafka transport requires at least one broker")
	}
	if cfg.GroupID == "" {
		return nil, fmt.Errorf("kafka transport requires group id")
	}
	if cfg.BatchTimeout <= 0 {
		cfg.BatchTimeout = 10 * time.Millisecond
	}
	if cfg.InstanceID == "" {
		cfg.InstanceID = uuid.NewString()
	}
	return &KafkaTransport{
		cfg: cfg,
		writer: &kafka.Writer{
			Addr:                   kafka.TCP(cfg.Brokers...),
			RequiredAcks:           kafka.RequireAll,
			Balancer:               &kafka.Hash{},
			BatchTimeout:           cfg.BatchTimeout,
			AllowAutoTopicCreation: true,
		},
		opts: applyOptions(opts),
		subs: make(map[*kafkaSubscription]struct{}),
	}, nil
}

// Topic returns the topic a channel is carried on.
func (t *KafkaTransport) Topic(channel string) string {
	return t.cfg.TopicPrefix + channel
}

// Channel returns the channel carried on topic.
func (t *KafkaTransport) Channel(topic string) string {
	return strings.TrimPrefix(topic, t.cfg.TopicPrefix)
}

// Group returns the consumer group this transport subscribes with.
func (t *KafkaTransport) Group() string {
	if t.cfg.SharedGroup {
		return t.cfg.GroupID
	}
	return t.cfg.GroupID + "." + t.cfg.InstanceID
}

// Send writes payload to the channel's topic.
func (t *KafkaTransport) Send(ctx context.Context, channel string, payload []byte) error {
	if t.closed.Load() {
		return elerrors.Permanent(ErrClosed, "kafka write "+t.Topic(channel))
	}
	err := t.writer.WriteMessages(ctx, kafka.Message{
		Topic: t.Topic(channel),
		Value: payload,
		Time:  time.Now().UTC(),
	})
	if err != nil {
		return kafkaSendError(t.Topic(channel), err)
	}
	return nil
}

// kafkaSendError classifies broker error codes: retriable codes are
// transient, the rest permanent. Other errors are left to errors.Categorize.
func kafkaSendError(topic string, err error) error {
	op := "kafka write " + topic
	var kerr kafka.Error
	if errors.As(err, &kerr) {
		if kerr.Temporary() {
			return elerrors.Transient(err, op)
		}
		return elerrors.Permanent(err, op)
	}
	var tooLarge kafka.MessageTooLargeError
	if errors.As(err, &tooLarge) {
		return elerrors.Permanent(err, op)
	}
	return fmt.Errorf("%s: %w", op, err)
}

// Subscribe joins the transport's consumer group for the channels' topics.
func (t *KafkaTransport) Subscribe(ctx context.Context, handler MessageHandler, channels ...string) (Subscription, error) {
	if t.closed.Load() {
		return nil, ErrClosed
	}
	if len(channels) == 0 {
		channels = ChannelNames()
	}

	topics := make([]string, len(channels))
	for i, ch := range channels {
		topics[i] = t.Topic(ch)
	}

	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:     t.cfg.Brokers,
		GroupID:     t.Group(),
		GroupTopics: topics,
		StartOffset: kafka.LastOffset,
		MinBytes:    1,
		MaxBytes:    10e6,
		MaxWait:     500 * time.Millisecond,
	})

	runCtx, cancel := context.WithCancel(ctx)
	sub := &kafkaSubscription{
		reader: reader,
		cancel: cancel,
		exited: make(chan struct{}),
		t:      t,
	}

	t.mu.Lock()
	t.subs[sub] = struct{}{}
	t.mu.Unlock()

	go sub.process(runCtx, handler)

	t.opts.logger.Info("kafka subscription started",
		slog.Any("topics", topics),
		slog.String("group_id", t.Group()),
	)
	return sub, nil
}

// Close stops every subscription and flushes the writer.
func (t *KafkaTransport) Close() error {
	if !t.closed.CompareAndSwap(false, true) {
		return nil
	}

	t.mu.Lock()
	subs := make([]*kafkaSubscription, 0, len(t.subs))
	for sub := range t.subs {
		subs = append(subs, sub)
	}
	t.mu.Unlock()

	var errs []error
	for _, sub := range subs {
		if err := sub.Unsubscribe(); err != nil {
			errs = append(errs, err)
		}
	}
	if err := t.writer.Close(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

type kafkaSubscription struct {
	reader *kafka.Reader
	cancel context.CancelFunc
	exited chan struct{}
	once   sync.Once
	err    error
	t      *KafkaTransport
}

func (s *kafkaSubscription) process(ctx context.Context, handler MessageHandler) {
	defer close(s.exited)
	for {
		msg, err := s.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, context.Canceled) {
				return
			}
			s.t.opts.logger.Warn("kafka fetch failed", slog.String("error", err.Error()))
			select {
			case <-ctx.Done():
				return
			case <-time.After(time.Second):
			}
			continue
		}

		handler(context.WithoutCancel(ctx), s.t.Channel(msg.Topic), msg.Value)

		if err := s.reader.CommitMessages(ctx, msg); err != nil && ctx.Err() == nil {
			s.t.opts.logger.Warn("kafka commit failed",
				slog.String("topic", msg.Topic),
				slog.Int64("offset", msg.Offset),
				slog.String("error", err.Error()),
			)
		}
	}
}

// Unsubscribe leaves the consumer group and waits for the fetch loop.
func (s *kafkaSubscription) Unsubscribe() error {
	s.once.Do(func() {
		s.t.mu.Lock()
		delete(s.t.subs, s)
		s.t.mu.Unlock()

		s.cancel()
		<-s.exited
		s.err = s.reader.Close()
	})
	<-s.exited
	return s.err
}
