package circuitbreaker

import "context"

// Do looks up the breaker for name in the registry and executes op under its
// protection, for call sites that don't want to hold a breaker reference.
// On rejection the returned error is *OpenError and op never runs.
func Do[T any](ctx context.Context, r *Registry, name string, op func(context.Context) (T, error)) (T, error) {
	var result T

	err := r.Get(name).Execute(ctx, func(ctx context.Context) error {
		var opErr error
		result, opErr = op(ctx)
		return opErr
	})
	if err != nil {
		var zero T
		return zero, err
	}

	return result, nil
}

// DoWithFallback behaves like Do, but when the breaker rejects the call it
// invokes fallback instead of propagating the rejection. Genuine operation
// failures still reach the caller, so the two error kinds stay distinguishable.
func DoWithFallback[T any](ctx context.Context, r *Registry, name string, op, fallback func(context.Context) (T, error)) (T, error) {
	result, err := Do(ctx, r, name, op)
	if err != nil && IsOpenError(err) {
		return fallback(ctx)
	}
	return result, err
}

// IsServiceAvailable reports whether a call to the named service would be
// admitted right now, without executing anything. Used for health and
// readiness reporting.
func IsServiceAvailable(r *Registry, name string) bool {
	return r.Get(name).CanExecute()
}
