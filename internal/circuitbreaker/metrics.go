package circuitbreaker

import "time"

// latencySampleSize bounds the rolling latency sample per breaker.
const latencySampleSize = 100

// latencyRing is a fixed-capacity FIFO of recent call durations, implemented
// as a ring buffer. Oldest sample is evicted once the capacity is reached.
type latencyRing struct {
	samples []time.Duration
	head    int
	count   int
}

func newLatencyRing(size int) *latencyRing {
	return &latencyRing{samples: make([]time.Duration, size)}
}

func (r *latencyRing) add(d time.Duration) {
	r.samples[r.head] = d
	r.head = (r.head + 1) % len(r.samples)
	if r.count < len(r.samples) {
		r.count++
	}
}

func (r *latencyRing) average() time.Duration {
	if r.count == 0 {
		return 0
	}

	var sum time.Duration
	for i := 0; i < r.count; i++ {
		sum += r.samples[i]
	}

	return sum / time.Duration(r.count)
}

func (r *latencyRing) reset() {
	r.head = 0
	r.count = 0
}

// Metrics is a point-in-time snapshot of one breaker, shaped for JSON
// dashboards and health endpoints.
type Metrics struct {
	Name                 string        `json:"name"`
	State                string        `json:"state"`
	FailureCount         int           `json:"failure_count"`
	SuccessCount         int           `json:"success_count"`
	HalfOpenCalls        int           `json:"half_open_calls"`
	ConsecutiveFailures  int           `json:"consecutive_failures"`
	ConsecutiveSuccesses int           `json:"consecutive_successes"`
	TotalCalls           int64         `json:"total_calls"`
	TotalFailures        int64         `json:"total_failures"`
	TotalSuccesses       int64         `json:"total_successes"`
	FailureRate          float64       `json:"failure_rate"`
	AvgLatency           time.Duration `json:"avg_latency"`
	Uptime               float64       `json:"uptime"`
	LastFailure          *time.Time    `json:"last_failure"`
	LastSuccess          *time.Time    `json:"last_success"`
	LastStateChange      time.Time     `json:"last_state_change"`
}

// Metrics returns a snapshot of the breaker. The only state it may mutate is
// the lazy OPEN to HALF-OPEN transition, so reading metrics on an expired
// OPEN breaker reports HALF-OPEN, consistent with what CanExecute would see.
func (cb *CircuitBreaker) Metrics() Metrics {
	cb.mutex.Lock()
	defer cb.mutex.Unlock()

	cb.checkStateTransition()

	m := Metrics{
		Name:                 cb.cfg.Name,
		State:                cb.state.String(),
		FailureCount:         cb.failureCount,
		SuccessCount:         cb.successCount,
		HalfOpenCalls:        cb.halfOpenCalls,
		ConsecutiveFailures:  cb.consecutiveFailures,
		ConsecutiveSuccesses: cb.consecutiveSuccesses,
		TotalCalls:           cb.totalCalls,
		TotalFailures:        cb.totalFailures,
		TotalSuccesses:       cb.totalSuccesses,
		AvgLatency:           cb.latencies.average(),
		Uptime:               cb.uptime(cb.now()),
		LastStateChange:      cb.lastStateChange,
	}

	if cb.totalCalls > 0 {
		m.FailureRate = float64(cb.totalFailures) / float64(cb.totalCalls)
	}

	if !cb.lastFailure.IsZero() {
		t := cb.lastFailure
		m.LastFailure = &t
	}
	if !cb.lastSuccess.IsZero() {
		t := cb.lastSuccess
		m.LastSuccess = &t
	}

	return m
}

// uptime computes the fraction of wall-clock time since creation spent in
// CLOSED, by walking the transition history. The final interval extends to
// now. Must be called with cb.mutex held.
func (cb *CircuitBreaker) uptime(now time.Time) float64 {
	total := now.Sub(cb.createdAt)
	if total <= 0 {
		return 1
	}

	var closed time.Duration
	for i, tr := range cb.history {
		end := now
		if i+1 < len(cb.history) {
			end = cb.history[i+1].at
		}
		if tr.state == StateClosed {
			closed += end.Sub(tr.at)
		}
	}

	return float64(closed) / float64(total)
}
