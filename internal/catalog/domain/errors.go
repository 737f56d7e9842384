package catalog

import (
	"errors"
	"fmt"
)

var (
	// ErrUnknownZone is returned when a zone code is not in the catalog.
	ErrUnknownZone = errors.New("catalog: unknown zone")
	// ErrUnknownRegion is returned when a region code is not in the catalog.
	ErrUnknownRegion = errors.New("catalog: unknown region")
	// ErrUnknownInterface is returned when an interface id is not in the catalog.
	ErrUnknownInterface = errors.New("catalog: unknown interface")
	// ErrEmptyCatalog is returned when a snapshot would contain no zones.
	ErrEmptyCatalog = errors.New("catalog: empty catalog")
	// ErrNotLoaded is returned when the cache has not been refreshed yet.
	ErrNotLoaded = errors.New("catalog: not loaded")
)

// UnknownZoneError wraps ErrUnknownZone with the offending code.
func UnknownZoneError(code string) error {
	return fmt.Errorf("%w: %s", ErrUnknownZone, code)
}

// UnknownRegionError wraps ErrUnknownRegion with the offending code.
func UnknownRegionError(code string) error {
	return fmt.Errorf("%w: %s", ErrUnknownRegion, code)
}

// UnknownInterfaceError wraps ErrUnknownInterface with the offending id.
func UnknownInterfaceError(id string) error {
	return fmt.Errorf("%w: %s", ErrUnknownInterface, id)
}
