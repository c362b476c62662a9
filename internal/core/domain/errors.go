package domain

import "errors"

var (
	// ErrInvalidBounds is returned for malformed viewports. It is raised before
	// any planning or storage access happens.
	ErrInvalidBounds = errors.New("invalid bounds")

	// ErrStorageUnavailable wraps failures of the fountain storage layer.
	ErrStorageUnavailable = errors.New("storage unavailable")

	// ErrSchemaViolation is returned when a payload does not match its typed schema.
	ErrSchemaViolation = errors.New("schema violation")

	ErrNotFound = errors.New("not found")
)
