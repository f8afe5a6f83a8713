// Package monitor implements optional active probing of protected services.
// Probes run through the service's circuit breaker, so breaker state reflects
// service health even when no caller traffic is flowing.
package monitor
