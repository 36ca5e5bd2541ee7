package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/randalmurphal/eventlink/pkg/eventlink/config"
)

func TestDefaultSettings(t *testing.T) {
	s := config.DefaultSettings()
	require.NoError(t, s.Validate())
	assert.Equal(t, "memory", s.Transport.Kind)
	assert.Equal(t, 2*time.Second, s.Requests.Timeout)
	assert.Equal(t, 5*time.Minute, s.Requests.Retention)
	assert.True(t, s.Compensation.EnableCompensation)
	assert.False(t, s.Compensation.SimulateFailure)
}

func TestSettingsFrom(t *testing.T) {
	v, err := config.FromYAML([]byte(`
transport:
  kind: kafka
  kafka_brokers: [k1:9092, k2:9092]
  kafka_group_id: post-module
  kafka_instance_id: post-1
requests:
  timeout: 1500ms
  user_timeout: 500ms
compensation:
  simulate_failure: true
  failure_rate: 0.25
  enable_compensation: false
counters:
  driver: sqlite
  path: /tmp/counters.db
logging:
  level: debug
  format: json
http:
  enabled: true
  addr: 127.0.0.1:9000
`))
	require.NoError(t, err)

	s := config.SettingsFrom(v)
	require.NoError(t, s.Validate())

	assert.Equal(t, "kafka", s.Transport.Kind)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, s.Transport.KafkaBrokers)
	assert.Equal(t, "post-module", s.Transport.KafkaGroupID)
	assert.Equal(t, "post-1", s.Transport.KafkaInstanceID)
	assert.False(t, s.Transport.KafkaSharedGroup)
	assert.Equal(t, "eventlink.", s.Transport.KafkaTopicPrefix, "unset keys keep defaults")
	assert.Equal(t, 1500*time.Millisecond, s.Requests.Timeout)
	assert.Equal(t, 500*time.Millisecond, s.Requests.UserTimeout)
	assert.True(t, s.Compensation.SimulateFailure)
	assert.Equal(t, 0.25, s.Compensation.FailureRate)
	assert.False(t, s.Compensation.EnableCompensation)
	assert.Equal(t, "sqlite", s.Counters.Driver)
	assert.Equal(t, "json", s.Logging.Format)
	assert.True(t, s.HTTP.Enabled)
	assert.Equal(t, "127.0.0.1:9000", s.HTTP.Addr)
}

func TestSettings_ApplyEnv(t *testing.T) {
	t.Setenv("ELTEST_TRANSPORT_KIND", "redis")
	t.Setenv("ELTEST_TRANSPORT_REDIS_URL", "redis://localhost:6379/0")
	t.Setenv("ELTEST_REQUESTS_TIMEOUT", "3s")
	t.Setenv("ELTEST_COMPENSATION_FAILURE_RATE", "1")
	t.Setenv("ELTEST_COMPENSATION_SIMULATE_FAILURE", "true")
	t.Setenv("ELTEST_TRANSPORT_KAFKA_BROKERS", "a:1,b:2")

	s := config.DefaultSettings()
	require.NoError(t, s.ApplyEnv("ELTEST"))
	require.NoError(t, s.Validate())

	assert.Equal(t, "redis", s.Transport.Kind)
	assert.Equal(t, "redis://localhost:6379/0", s.Transport.RedisURL)
	assert.Equal(t, 3*time.Second, s.Requests.Timeout)
	assert.Equal(t, 1.0, s.Compensation.FailureRate)
	assert.True(t, s.Compensation.SimulateFailure)
	assert.Equal(t, []string{"a:1", "b:2"}, s.Transport.KafkaBrokers)
	assert.Equal(t, 5*time.Minute, s.Requests.Retention, "unset variables keep values")
}

func TestSettings_ApplyEnvRejectsGarbage(t *testing.T) {
	t.Setenv("ELTEST_REQUESTS_TIMEOUT", "soon")
	s := config.DefaultSettings()
	assert.Error(t, s.ApplyEnv("ELTEST"))
}

func TestSettings_Validate(t *testing.T) {
	cases := map[string]func(*config.Settings){
		"unknown transport":      func(s *config.Settings) { s.Transport.Kind = "nats" },
		"redis without url":      func(s *config.Settings) { s.Transport.Kind = "redis" },
		"kafka without brokers":  func(s *config.Settings) { s.Transport.Kind = "kafka" },
		"failure rate above one": func(s *config.Settings) { s.Compensation.FailureRate = 1.5 },
		"negative failure rate":  func(s *config.Settings) { s.Compensation.FailureRate = -0.1 },
		"zero timeout":           func(s *config.Settings) { s.Requests.Timeout = 0 },
		"negative kind timeout":  func(s *config.Settings) { s.Requests.UserTimeout = -time.Second },
		"sqlite without path":    func(s *config.Settings) { s.Counters.Driver = "sqlite" },
		"unknown log level":      func(s *config.Settings) { s.Logging.Level = "loud" },
		"http without addr": func(s *config.Settings) {
			s.HTTP.Enabled = true
			s.HTTP.Addr = ""
		},
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			s := config.DefaultSettings()
			mutate(&s)
			assert.Error(t, s.Validate())
		})
	}
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "eventlink.yaml")
	require.NoError(t, os.WriteFile(path, []byte("requests:\n  timeout: 4s\n"), 0o600))
	t.Setenv("ELLOAD_LOGGING_LEVEL", "debug")

	s, err := config.Load(path, "ELLOAD")
	require.NoError(t, err)
	assert.Equal(t, 4*time.Second, s.Requests.Timeout)
	assert.Equal(t, "debug", s.Logging.Level)

	s, err = config.Load("", "ELLOAD")
	require.NoError(t, err)
	assert.Equal(t, 2*time.Second, s.Requests.Timeout)

	t.Setenv("ELLOAD_COMPENSATION_FAILURE_RATE", "2")
	_, err = config.Load("", "ELLOAD")
	assert.Error(t, err)
}
