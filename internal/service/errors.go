package service

import "errors"

// Engine error taxonomy. Store failures wrap ErrStoreUnavailable so the
// intercept pipeline can fail open while mutation callers see a hard error.
var (
	// ErrValidation marks a malformed rule: both or neither of path/regex
	// source set, or both of node/url target set. Nothing is written.
	ErrValidation = errors.New("validation failed")

	// ErrNotFound marks a missing rule or record.
	ErrNotFound = errors.New("not found")

	// ErrConflict marks a store-level concurrent update/delete conflict. No
	// cache invalidation is performed; the caller may retry.
	ErrConflict = errors.New("conflict")

	// ErrStoreUnavailable marks a failed store round-trip.
	ErrStoreUnavailable = errors.New("store unavailable")
)
