// Package circuitbreaker sheds work from an unhealthy downstream.
//
// A Breaker starts closed and counts consecutive failures. At the
// threshold it opens and rejects work for a cooldown period, then lets
// a single probe through (half-open). A successful probe closes the
// circuit; a failed one reopens it.
package circuitbreaker

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// State is the current position of the circuit.
type State int

const (
	StateClosed State = iota
	StateOpen
	StateHalfOpen
)

func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half_open"
	default:
		return "unknown"
	}
}

var stateTransitions = prometheus.NewCounterVec(prometheus.CounterOpts{
	Namespace: "txguard",
	Subsystem: "circuitbreaker",
	Name:      "state_transitions_total",
	Help:      "Circuit breaker state transitions by breaker name.",
}, []string{"name", "from_state", "to_state"})

func init() {
	prometheus.MustRegister(stateTransitions)
}

// Breaker guards a single downstream. Safe for concurrent use.
type Breaker struct {
	name      string
	threshold int
	cooldown  time.Duration

	mu       sync.Mutex
	state    State
	failures int
	openedAt time.Time

	now func() time.Time
}

// New creates a closed breaker named name that opens after threshold
// consecutive failures and stays open for cooldown before probing.
func New(name string, threshold int, cooldown time.Duration) *Breaker {
	if threshold <= 0 {
		threshold = 5
	}
	if cooldown <= 0 {
		cooldown = 30 * time.Second
	}
	return &Breaker{
		name:      name,
		threshold: threshold,
		cooldown:  cooldown,
		now:       time.Now,
	}
}

// Allow reports whether a call should be attempted. When the circuit is
// open and the cooldown has elapsed, the breaker moves to half-open and
// Allow returns true exactly once for the probe.
func (b *Breaker) Allow() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case StateOpen:
		if b.now().Sub(b.openedAt) >= b.cooldown {
			b.transition(StateHalfOpen)
			return true
		}
		return false
	case StateHalfOpen:
		// A probe is already in flight.
		return false
	default:
		return true
	}
}

// RecordSuccess resets the failure count and closes a half-open circuit.
func (b *Breaker) RecordSuccess() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.failures = 0
	if b.state == StateHalfOpen {
		b.transition(StateClosed)
	}
}

// RecordFailure counts a failed call. It reopens a half-open circuit
// immediately and opens a closed one at the threshold.
func (b *Breaker) RecordFailure() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.failures++
	switch {
	case b.state == StateHalfOpen:
		b.openedAt = b.now()
		b.transition(StateOpen)
	case b.state == StateClosed && b.failures >= b.threshold:
		b.openedAt = b.now()
		b.transition(StateOpen)
	}
}

// State returns the current circuit state.
func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// transition must be called with b.mu held.
func (b *Breaker) transition(to State) {
	from := b.state
	if from == to {
		return
	}
	b.state = to
	stateTransitions.WithLabelValues(b.name, from.String(), to.String()).Inc()
}
