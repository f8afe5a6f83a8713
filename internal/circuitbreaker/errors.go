package circuitbreaker

import (
	"errors"
	"fmt"
)

// OpenError is returned when the breaker rejects a call before the protected
// operation ever runs: either the circuit is OPEN, or it is HALF-OPEN with
// all probe slots taken. It is always recoverable by the caller and is the
// only error kind the fallback wrappers intercept.
type OpenError struct {
	Name  string
	State State
}

func (e *OpenError) Error() string {
	return fmt.Sprintf("circuit breaker %q is %s: call rejected", e.Name, e.State)
}

// IsOpenError reports whether err is a breaker rejection, as opposed to an
// error produced by the protected operation itself.
func IsOpenError(err error) bool {
	var openErr *OpenError
	return errors.As(err, &openErr)
}
