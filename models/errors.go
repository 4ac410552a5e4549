package models

import "errors"

// ErrNotFound is returned when a requested catalog entity does not exist or
// is soft-deleted. Callers should treat it as an empty result, not a failure.
var ErrNotFound = errors.New("not found")

// ErrInvalidField is returned when an update names a column outside the
// allow-list of updatable movie attributes.
var ErrInvalidField = errors.New("field is not updatable")
