package circuitbreaker

import "time"

// Outcome classifies a single call as seen by the breaker.
type Outcome string

const (
	OutcomeSuccess  Outcome = "success"
	OutcomeFailure  Outcome = "failure"
	OutcomeRejected Outcome = "rejected"
)

// StateChangeHook is invoked on every state transition. It may be called
// while the breaker's lock is held, so it must not block and must not call
// back into the breaker.
type StateChangeHook func(name string, from, to State)

// CallHook is invoked after every call outcome has been recorded. Rejected
// calls report a zero duration. Same restrictions as StateChangeHook.
type CallHook func(name string, outcome Outcome, elapsed time.Duration)

// Option configures a CircuitBreaker at construction time.
type Option func(*CircuitBreaker)

// WithClock replaces the breaker's time source. Tests use this to drive the
// lazy OPEN to HALF-OPEN transition deterministically.
func WithClock(now func() time.Time) Option {
	return func(cb *CircuitBreaker) {
		cb.now = now
	}
}

// WithStateChangeHook registers an observer for state transitions.
func WithStateChangeHook(hook StateChangeHook) Option {
	return func(cb *CircuitBreaker) {
		cb.onStateChange = hook
	}
}

// WithCallHook registers an observer for call outcomes.
func WithCallHook(hook CallHook) Option {
	return func(cb *CircuitBreaker) {
		cb.onCall = hook
	}
}
