package config

import (
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/kelseyhightower/envconfig"
)

// Settings is the typed configuration of an eventlink node.
type Settings struct {
	Transport     TransportSettings
	Requests      RequestSettings
	Compensation  CompensationSettings
	Counters      CounterSettings
	Logging       LogSettings
	Observability ObservabilitySettings
	HTTP          HTTPSettings
}

// TransportSettings selects and configures the message transport.
type TransportSettings struct {
	Kind             string        `validate:"oneof=memory redis kafka"`
	BufferSize       int           `split_words:"true" validate:"gte=0"`
	NonBlocking      bool          `split_words:"true"`
	RedisURL         string        `split_words:"true" validate:"required_if=Kind redis"`
	KafkaBrokers     []string      `split_words:"true" validate:"required_if=Kind kafka"`
	KafkaTopicPrefix string        `split_words:"true"`
	KafkaGroupID     string        `split_words:"true" validate:"required_if=Kind kafka"`
	KafkaInstanceID  string        `split_words:"true"`
	KafkaSharedGroup bool          `split_words:"true"`
	KafkaBatchWait   time.Duration `split_words:"true" validate:"gte=0"`
}

// RequestSettings bounds correlated request waits. A zero per-kind timeout
// falls back to Timeout.
type RequestSettings struct {
	Timeout            time.Duration `validate:"gt=0"`
	UserTimeout        time.Duration `split_words:"true" validate:"gte=0"`
	InteractionTimeout time.Duration `split_words:"true" validate:"gte=0"`
	CommentTimeout     time.Duration `split_words:"true" validate:"gte=0"`
	BookmarkTimeout    time.Duration `split_words:"true" validate:"gte=0"`
	ValidationTimeout  time.Duration `split_words:"true" validate:"gte=0"`
	Retention          time.Duration `validate:"gt=0"`
	SweepInterval      time.Duration `split_words:"true" validate:"gt=0"`
}

// CompensationSettings controls failure simulation and compensation.
type CompensationSettings struct {
	SimulateFailure    bool    `split_words:"true"`
	FailureRate        float64 `split_words:"true" validate:"gte=0,lte=1"`
	EnableCompensation bool    `split_words:"true"`
}

// CounterSettings selects the post counter store.
type CounterSettings struct {
	Driver string `validate:"oneof=memory sqlite"`
	Path   string `validate:"required_if=Driver sqlite"`
}

// LogSettings configures the process logger.
type LogSettings struct {
	Level     string `validate:"oneof=debug info warn warning error"`
	Format    string `validate:"oneof=text json"`
	AddSource bool   `split_words:"true"`
}

// ObservabilitySettings toggles OpenTelemetry instrumentation.
type ObservabilitySettings struct {
	Metrics bool
	Tracing bool
}

// HTTPSettings configures the debug/query API.
type HTTPSettings struct {
	Enabled bool
	Addr    string `validate:"required_if=Enabled true"`
}

// DefaultSettings is an in-process node: memory transport and counters,
// 2s request bound, compensation on, no failure simulation.
func DefaultSettings() Settings {
	return Settings{
		Transport: TransportSettings{
			Kind:             "memory",
			BufferSize:       256,
			KafkaTopicPrefix: "eventlink.",
			KafkaGroupID:     "eventlink",
			KafkaBatchWait:   10 * time.Millisecond,
		},
		Requests: RequestSettings{
			Timeout:       2 * time.Second,
			Retention:     5 * time.Minute,
			SweepInterval: 30 * time.Second,
		},
		Compensation: CompensationSettings{
			EnableCompensation: true,
		},
		Counters: CounterSettings{
			Driver: "memory",
		},
		Logging: LogSettings{
			Level:  "info",
			Format: "text",
		},
		HTTP: HTTPSettings{
			Addr: ":8080",
		},
	}
}

// SettingsFrom overlays v on DefaultSettings. Keys mirror the struct in
// snake case, e.g. "transport.kafka_brokers" or "compensation.failure_rate".
func SettingsFrom(v Values) Settings {
	s := DefaultSettings()

	t := v.Section("transport")
	s.Transport.Kind = t.String("kind", s.Transport.Kind)
	s.Transport.BufferSize = t.Int("buffer_size", s.Transport.BufferSize)
	s.Transport.NonBlocking = t.Bool("non_blocking", s.Transport.NonBlocking)
	s.Transport.RedisURL = t.String("redis_url", s.Transport.RedisURL)
	s.Transport.KafkaBrokers = t.StringSlice("kafka_brokers", s.Transport.KafkaBrokers)
	s.Transport.KafkaTopicPrefix = t.String("kafka_topic_prefix", s.Transport.KafkaTopicPrefix)
	s.Transport.KafkaGroupID = t.String("kafka_group_id", s.Transport.KafkaGroupID)
	s.Transport.KafkaInstanceID = t.String("kafka_instance_id", s.Transport.KafkaInstanceID)
	s.Transport.KafkaSharedGroup = t.Bool("kafka_shared_group", s.Transport.KafkaSharedGroup)
	s.Transport.KafkaBatchWait = t.Duration("kafka_batch_wait", s.Transport.KafkaBatchWait)

	r := v.Section("requests")
	s.Requests.Timeout = r.Duration("timeout", s.Requests.Timeout)
	s.Requests.UserTimeout = r.Duration("user_timeout", s.Requests.UserTimeout)
	s.Requests.InteractionTimeout = r.Duration("interaction_timeout", s.Requests.InteractionTimeout)
	s.Requests.CommentTimeout = r.Duration("comment_timeout", s.Requests.CommentTimeout)
	s.Requests.BookmarkTimeout = r.Duration("bookmark_timeout", s.Requests.BookmarkTimeout)
	s.Requests.ValidationTimeout = r.Duration("validation_timeout", s.Requests.ValidationTimeout)
	s.Requests.Retention = r.Duration("retention", s.Requests.Retention)
	s.Requests.SweepInterval = r.Duration("sweep_interval", s.Requests.SweepInterval)

	c := v.Section("compensation")
	s.Compensation.SimulateFailure = c.Bool("simulate_failure", s.Compensation.SimulateFailure)
	s.Compensation.FailureRate = c.Float("failure_rate", s.Compensation.FailureRate)
	s.Compensation.EnableCompensation = c.Bool("enable_compensation", s.Compensation.EnableCompensation)

	s.Counters.Driver = v.String("counters.driver", s.Counters.Driver)
	s.Counters.Path = v.String("counters.path", s.Counters.Path)

	s.Logging.Level = v.String("logging.level", s.Logging.Level)
	s.Logging.Format = v.String("logging.format", s.Logging.Format)
	s.Logging.AddSource = v.Bool("logging.add_source", s.Logging.AddSource)

	s.Observability.Metrics = v.Bool("observability.metrics", s.Observability.Metrics)
	s.Observability.Tracing = v.Bool("observability.tracing", s.Observability.Tracing)

	s.HTTP.Enabled = v.Bool("http.enabled", s.HTTP.Enabled)
	s.HTTP.Addr = v.String("http.addr", s.HTTP.Addr)
	return s
}

// ApplyEnv overlays environment variables named PREFIX_SECTION_FIELD.
// Unset variables leave the current value in place.
func (s *Settings) ApplyEnv(prefix string) error {
	if err := envconfig.Process(prefix, s); err != nil {
		return fmt.Errorf("apply environment: %w", err)
	}
	return nil
}

var validate = validator.New()

// Validate checks field ranges, enums, and the fields each transport and
// counter driver requires.
func (s Settings) Validate() error {
	if err := validate.Struct(s); err != nil {
		return fmt.Errorf("invalid settings: %w", err)
	}
	return nil
}
