// Package circuitbreaker implements a per-service circuit breaker with a
// registry of named breakers.
//
// Each breaker is a three-state machine guarding one downstream service:
//
//   - CLOSED: Normal operation, calls pass through
//   - OPEN: Service failing, calls rejected immediately
//   - HALF-OPEN: Limited concurrent probes test whether the service recovered
//
// The OPEN to HALF-OPEN transition is evaluated lazily on access rather than
// by a background timer. Breakers track lifetime call totals, a rolling
// latency sample and a state-transition history from which uptime (fraction
// of time spent CLOSED) is derived.
//
// Usage:
//
//	registry, err := circuitbreaker.NewRegistry(circuitbreaker.DefaultConfig(""), nil)
//	if err != nil {
//	    return err
//	}
//
//	result, err := circuitbreaker.DoWithFallback(ctx, registry, "crm-sync",
//	    func(ctx context.Context) (string, error) {
//	        return client.Sync(ctx)
//	    },
//	    func(ctx context.Context) (string, error) {
//	        return cached, nil // dependency known-down, degrade gracefully
//	    })
package circuitbreaker
