package normalize

import (
	"errors"
	"fmt"
)

var (
	// ErrUnknownEntity is returned when a raw record references an entity
	// code absent from the catalog. Retrying cannot fix a missing catalog
	// entry, so callers must not retry this error.
	ErrUnknownEntity = errors.New("normalize: unknown entity")
	// ErrUnitMismatch is returned when a raw record is missing a required
	// value field or carries one that cannot be converted.
	ErrUnitMismatch = errors.New("normalize: unit mismatch")
	// ErrMalformedRecord is returned when a raw record's timestamp or
	// labels cannot be parsed.
	ErrMalformedRecord = errors.New("normalize: malformed record")
)

// UnknownEntityError wraps ErrUnknownEntity with the offending code.
func UnknownEntityError(code string) error {
	return fmt.Errorf("%w: %q", ErrUnknownEntity, code)
}

// UnitMismatchError wraps ErrUnitMismatch with the missing/invalid field.
func UnitMismatchError(field string) error {
	return fmt.Errorf("%w: field %q", ErrUnitMismatch, field)
}
