package compensation

import (
	"errors"
	"math/rand/v2"
	"sync"
	"time"
)

// ErrInjectedFault is the error a counter handler fails with when its
// FaultInjector fires.
var ErrInjectedFault = errors.New("simulated failure for testing compensation events")

// FaultInjector decides whether the next counter mutation should fail.
// Implementations must be safe for concurrent use.
type FaultInjector interface {
	ShouldFail() bool
}

// NoFaults never fails.
type NoFaults struct{}

// ShouldFail always returns false.
func (NoFaults) ShouldFail() bool { return false }

// ProbabilisticFaults fails with a fixed probability.
type ProbabilisticFaults struct {
	mu   sync.Mutex
	rate float64
	rng  *rand.Rand
}

// NewProbabilisticFaults fails with probability rate, clamped to [0, 1].
// The same seed yields the same sequence of decisions.
func NewProbabilisticFaults(rate float64, seed uint64) *ProbabilisticFaults {
	return &ProbabilisticFaults{
		rate: min(max(rate, 0), 1),
		rng:  rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)),
	}
}

// ShouldFail draws a uniform value in [0, 1) and fails when it is below rate.
func (f *ProbabilisticFaults) ShouldFail() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.rng.Float64() < f.rate
}

// FaultSequence replays a fixed list of decisions, then stops failing.
type FaultSequence struct {
	mu        sync.Mutex
	decisions []bool
	next      int
}

// NewFaultSequence returns an injector that answers ShouldFail with
// decisions in order.
func NewFaultSequence(decisions ...bool) *FaultSequence {
	return &FaultSequence{decisions: decisions}
}

// ShouldFail returns the next decision, or false once exhausted.
func (f *FaultSequence) ShouldFail() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.next >= len(f.decisions) {
		return false
	}
	d := f.decisions[f.next]
	f.next++
	return d
}

// InjectorFor builds the injector described by cfg.
func InjectorFor(cfg Config) FaultInjector {
	if !cfg.SimulateFailure || cfg.FailureRate <= 0 {
		return NoFaults{}
	}
	return NewProbabilisticFaults(cfg.FailureRate, uint64(time.Now().UnixNano()))
}
