package circuitbreaker

import (
	"context"
	"fmt"
	"sync"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

type State int

const (
	StateClosed   State = iota // Normal operation
	StateOpen                  // Blocking calls
	StateHalfOpen              // Probing for recovery
)

func (s State) String() string {
	switch s {
	case StateClosed:
		return "CLOSED"
	case StateOpen:
		return "OPEN"
	case StateHalfOpen:
		return "HALF-OPEN"
	default:
		return "UNKNOWN"
	}
}

// Default tunables used when a service has no preset configuration.
const (
	DefaultFailureThreshold = 5
	DefaultSuccessThreshold = 2
	DefaultTimeout          = 30 * time.Second
	DefaultHalfOpenMaxCalls = 3
)

// Config holds the per-service tunables of one breaker. It is immutable
// after the breaker is constructed.
type Config struct {
	Name             string
	FailureThreshold int
	SuccessThreshold int
	Timeout          time.Duration
	HalfOpenMaxCalls int
}

// DefaultConfig returns the documented default tunables for the given service.
func DefaultConfig(name string) Config {
	return Config{
		Name:             name,
		FailureThreshold: DefaultFailureThreshold,
		SuccessThreshold: DefaultSuccessThreshold,
		Timeout:          DefaultTimeout,
		HalfOpenMaxCalls: DefaultHalfOpenMaxCalls,
	}
}

// Validate rejects configurations that would make the state machine
// degenerate (zero thresholds, no timeout).
func (c Config) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.Name, validation.Required),
		validation.Field(&c.FailureThreshold, validation.Required, validation.Min(1)),
		validation.Field(&c.SuccessThreshold, validation.Required, validation.Min(1)),
		validation.Field(&c.Timeout, validation.Required, validation.Min(time.Millisecond)),
		validation.Field(&c.HalfOpenMaxCalls, validation.Required, validation.Min(1)),
	)
}

// Operation is a call protected by a breaker. It must return exactly once;
// an operation that never returns leaves a half-open probe slot reserved
// forever, so callers are expected to time out their own work.
type Operation func(context.Context) error

type transition struct {
	state State
	at    time.Time
}

// CircuitBreaker is the state machine guarding one named service. All mutable
// state is protected by a single mutex; breakers for different services are
// fully independent.
type CircuitBreaker struct {
	mutex sync.Mutex

	cfg Config

	state         State
	failureCount  int
	successCount  int
	halfOpenCalls int

	consecutiveFailures  int
	consecutiveSuccesses int

	totalCalls     int64
	totalFailures  int64
	totalSuccesses int64

	lastFailure     time.Time
	lastSuccess     time.Time
	lastStateChange time.Time

	latencies *latencyRing
	history   []transition
	createdAt time.Time

	now           func() time.Time
	onStateChange StateChangeHook
	onCall        CallHook
}

// New creates a breaker in the CLOSED state. The configuration is validated
// up front; there is no way to reconfigure a live breaker.
func New(cfg Config, opts ...Option) (*CircuitBreaker, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid breaker config for %q: %w", cfg.Name, err)
	}
	return newBreaker(cfg, opts...), nil
}

// newBreaker skips validation. Used by the registry, which validates all
// configurations at construction time.
func newBreaker(cfg Config, opts ...Option) *CircuitBreaker {
	cb := &CircuitBreaker{
		cfg:       cfg,
		state:     StateClosed,
		latencies: newLatencyRing(latencySampleSize),
		now:       time.Now,
	}

	for _, opt := range opts {
		opt(cb)
	}

	cb.createdAt = cb.now()
	cb.lastStateChange = cb.createdAt
	cb.history = []transition{{state: StateClosed, at: cb.createdAt}}

	return cb
}

// Name returns the protected service's name.
func (cb *CircuitBreaker) Name() string {
	return cb.cfg.Name
}

// Config returns a copy of the breaker's configuration.
func (cb *CircuitBreaker) Config() Config {
	return cb.cfg
}

// CanExecute reports whether a call would currently be admitted. It performs
// the lazy OPEN to HALF-OPEN check but does not reserve a probe slot.
func (cb *CircuitBreaker) CanExecute() bool {
	cb.mutex.Lock()
	defer cb.mutex.Unlock()

	cb.checkStateTransition()

	switch cb.state {
	case StateClosed:
		return true
	case StateOpen:
		return false
	case StateHalfOpen:
		return cb.halfOpenCalls < cb.cfg.HalfOpenMaxCalls
	default:
		return false
	}
}

// Execute runs op under the breaker's protection. A rejected call returns
// *OpenError and op is never invoked. An admitted call runs outside the
// breaker's lock; its error is returned to the caller unchanged after the
// outcome has been recorded.
func (cb *CircuitBreaker) Execute(ctx context.Context, op Operation) error {
	if err := cb.admit(); err != nil {
		cb.emitCall(OutcomeRejected, 0)
		return err
	}

	start := cb.now()
	err := op(ctx)
	elapsed := cb.now().Sub(start)

	if err != nil {
		cb.recordFailure(elapsed)
		return err
	}

	cb.recordSuccess(elapsed)
	return nil
}

// State returns the current state after the lazy transition check.
func (cb *CircuitBreaker) State() State {
	cb.mutex.Lock()
	defer cb.mutex.Unlock()

	cb.checkStateTransition()
	return cb.state
}

// Reset restores the breaker to its initial CLOSED state: all counters zero,
// latency sample empty, transition history restarted. Configuration is kept.
func (cb *CircuitBreaker) Reset() {
	cb.mutex.Lock()
	from := cb.state
	now := cb.now()

	cb.state = StateClosed
	cb.failureCount = 0
	cb.successCount = 0
	cb.halfOpenCalls = 0
	cb.consecutiveFailures = 0
	cb.consecutiveSuccesses = 0
	cb.totalCalls = 0
	cb.totalFailures = 0
	cb.totalSuccesses = 0
	cb.lastFailure = time.Time{}
	cb.lastSuccess = time.Time{}
	cb.lastStateChange = now
	cb.createdAt = now
	cb.latencies.reset()
	cb.history = []transition{{state: StateClosed, at: now}}
	cb.mutex.Unlock()

	if from != StateClosed && cb.onStateChange != nil {
		cb.onStateChange(cb.cfg.Name, from, StateClosed)
	}
}

// ForceOpen unconditionally trips the breaker, regardless of counters.
// The circuit stays open for the configured timeout before probing again.
func (cb *CircuitBreaker) ForceOpen() {
	cb.mutex.Lock()
	defer cb.mutex.Unlock()

	cb.lastFailure = cb.now()
	cb.transitionTo(StateOpen)
}

// ForceClose unconditionally closes the breaker, regardless of counters.
func (cb *CircuitBreaker) ForceClose() {
	cb.mutex.Lock()
	defer cb.mutex.Unlock()

	cb.transitionTo(StateClosed)
}

// admit performs the admission check and, while HALF-OPEN, reserves a probe
// slot in the same critical section so concurrent probes can never overshoot
// HalfOpenMaxCalls.
func (cb *CircuitBreaker) admit() error {
	cb.mutex.Lock()
	defer cb.mutex.Unlock()

	cb.checkStateTransition()

	switch cb.state {
	case StateOpen:
		return &OpenError{Name: cb.cfg.Name, State: cb.state}
	case StateHalfOpen:
		if cb.halfOpenCalls >= cb.cfg.HalfOpenMaxCalls {
			return &OpenError{Name: cb.cfg.Name, State: cb.state}
		}
		cb.halfOpenCalls++
	}

	return nil
}

func (cb *CircuitBreaker) recordSuccess(elapsed time.Duration) {
	cb.mutex.Lock()

	cb.totalCalls++
	cb.totalSuccesses++
	cb.consecutiveSuccesses++
	cb.consecutiveFailures = 0
	cb.lastSuccess = cb.now()
	cb.latencies.add(elapsed)

	switch cb.state {
	case StateHalfOpen:
		if cb.halfOpenCalls > 0 {
			cb.halfOpenCalls--
		}
		cb.successCount++
		if cb.successCount >= cb.cfg.SuccessThreshold {
			cb.transitionTo(StateClosed)
		}
	case StateClosed:
		// A single success forgives accumulated failures.
		cb.failureCount = 0
	}

	cb.mutex.Unlock()
	cb.emitCall(OutcomeSuccess, elapsed)
}

func (cb *CircuitBreaker) recordFailure(elapsed time.Duration) {
	cb.mutex.Lock()

	cb.totalCalls++
	cb.totalFailures++
	cb.consecutiveFailures++
	cb.consecutiveSuccesses = 0
	cb.lastFailure = cb.now()
	cb.failureCount++
	cb.latencies.add(elapsed)

	switch cb.state {
	case StateHalfOpen:
		if cb.halfOpenCalls > 0 {
			cb.halfOpenCalls--
		}
		// A single failed probe re-opens the circuit.
		cb.transitionTo(StateOpen)
	case StateClosed:
		if cb.failureCount >= cb.cfg.FailureThreshold {
			cb.transitionTo(StateOpen)
		}
	}

	cb.mutex.Unlock()
	cb.emitCall(OutcomeFailure, elapsed)
}

// checkStateTransition performs the lazy, timer-less OPEN to HALF-OPEN
// transition. Must be called with cb.mutex held.
func (cb *CircuitBreaker) checkStateTransition() {
	if cb.state == StateOpen && cb.now().Sub(cb.lastFailure) >= cb.cfg.Timeout {
		cb.transitionTo(StateHalfOpen)
	}
}

// transitionTo changes state, resets the counters owned by the target state
// and appends a history entry. Must be called with cb.mutex held.
func (cb *CircuitBreaker) transitionTo(newState State) {
	if cb.state == newState {
		return
	}

	from := cb.state
	cb.state = newState

	now := cb.now()
	cb.lastStateChange = now
	cb.history = append(cb.history, transition{state: newState, at: now})

	switch newState {
	case StateClosed:
		cb.failureCount = 0
		cb.successCount = 0
		cb.halfOpenCalls = 0
	case StateHalfOpen:
		cb.successCount = 0
		cb.halfOpenCalls = 0
	}

	if cb.onStateChange != nil {
		cb.onStateChange(cb.cfg.Name, from, newState)
	}
}

func (cb *CircuitBreaker) emitCall(outcome Outcome, elapsed time.Duration) {
	if cb.onCall != nil {
		cb.onCall(cb.cfg.Name, outcome, elapsed)
	}
}
