package domain

import "errors"

var (
	// ErrValidation marks malformed input rejected before any record is created.
	ErrValidation = errors.New("validation error")
	// ErrNotFound marks a lookup for an unknown record or template.
	ErrNotFound = errors.New("not found")
	// ErrConflict marks an operation that lost against the stored state.
	ErrConflict = errors.New("conflict")
	// ErrRateLimited marks a submission rejected by admission control.
	// No record is created; the caller retries later.
	ErrRateLimited = errors.New("rate limit exceeded")
	// ErrUnsupportedChannel marks a channel outside the known adapter set.
	ErrUnsupportedChannel = errors.New("unsupported channel")
)
