package compensation

import "fmt"

// Config controls failure simulation and whether compensations are published.
type Config struct {
	// SimulateFailure enables fault injection in counter handlers.
	SimulateFailure bool `json:"simulateFailure" yaml:"simulate_failure"`

	// FailureRate is the probability, in [0, 1], that an injected fault fires.
	FailureRate float64 `json:"failureRate" yaml:"failure_rate"`

	// EnableCompensation publishes a compensation event when a counter
	// mutation fails. When false the failure is only logged.
	EnableCompensation bool `json:"enableCompensation" yaml:"enable_compensation"`
}

// DefaultConfig has no fault injection and compensation enabled.
func DefaultConfig() Config {
	return Config{EnableCompensation: true}
}

// Validate checks FailureRate bounds.
func (c Config) Validate() error {
	if c.FailureRate < 0 || c.FailureRate > 1 {
		return fmt.Errorf("failure rate %v out of range [0, 1]", c.FailureRate)
	}
	return nil
}
