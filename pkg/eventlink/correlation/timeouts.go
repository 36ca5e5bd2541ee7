package correlation

import "time"

// Timeouts holds the global request bound and per-kind overrides.
type Timeouts struct {
	Default time.Duration
	PerKind map[Kind]time.Duration
}

// DefaultTimeouts uses DefaultTimeout for every kind.
func DefaultTimeouts() Timeouts {
	return Timeouts{Default: DefaultTimeout}
}

// For returns the bound for kind: its override if positive, else Default,
// else DefaultTimeout.
func (t Timeouts) For(kind Kind) time.Duration {
	if d, ok := t.PerKind[kind]; ok && d > 0 {
		return d
	}
	if t.Default > 0 {
		return t.Default
	}
	return DefaultTimeout
}
