// Package handler implements the admin HTTP surface for the breaker registry:
// metrics snapshots, readiness reporting and operator overrides.
package handler
