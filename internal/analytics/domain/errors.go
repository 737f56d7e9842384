package analytics

import (
	"errors"
	"fmt"
)

var (
	// ErrValidation marks caller mistakes: bad interval, bad function,
	// or a function the fact type does not support. Returned to the
	// query caller as-is, never coerced to a default.
	ErrValidation = errors.New("analytics: validation")
)

// BadIntervalError reports an unparseable interval.
func BadIntervalError(value string) error {
	return fmt.Errorf("%w: unknown interval %q", ErrValidation, value)
}

// BadFuncError reports an unparseable aggregation function.
func BadFuncError(value string) error {
	return fmt.Errorf("%w: unknown aggregation function %q", ErrValidation, value)
}

// IncompatibleFuncError reports a function/fact-type mismatch.
func IncompatibleFuncError(fn Func, entity string) error {
	return fmt.Errorf("%w: %s over %s is not meaningful", ErrValidation, fn, entity)
}
