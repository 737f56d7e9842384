package timeseries

import "errors"

var (
	// ErrUnknownEntityType is returned for an unrecognized entity type string.
	ErrUnknownEntityType = errors.New("timeseries: unknown entity type")
	// ErrUnknownMarketType is returned for an unrecognized market type string.
	ErrUnknownMarketType = errors.New("timeseries: unknown market type")
	// ErrInvalidRange is returned when a time range is empty or inverted.
	ErrInvalidRange = errors.New("timeseries: invalid time range")
	// ErrInvalidRecord is returned when a record is missing key fields.
	ErrInvalidRecord = errors.New("timeseries: invalid record")
)
