// Package metrics provides Prometheus instrumentation for circuit breakers.
//
// Breaker call outcomes and state transitions are delivered through a
// channel-based event pipeline: breakers emit events via non-blocking hooks,
// and a collector goroutine updates the Prometheus collectors and logs state
// changes. Events are dropped rather than ever blocking a protected call.
//
// Example usage:
//
//	metrics.Init()
//	collector := metrics.NewCollector(1024, logger)
//	collector.Start(ctx)
//
//	registry, err := circuitbreaker.NewRegistry(defaults, presets,
//	    circuitbreaker.WithCallHook(collector.CallHook()),
//	    circuitbreaker.WithStateChangeHook(collector.StateChangeHook()))
//
// The collector drains pending events on shutdown to prevent data loss.
package metrics
