package application

import "errors"

var (
	// ErrNoAdapter means no source adapter covers the requested entity type.
	ErrNoAdapter = errors.New("ingest: no adapter for entity type")
	// ErrEmptyWindow means the resolved fetch window has zero or negative span.
	ErrEmptyWindow = errors.New("ingest: empty fetch window")
)
