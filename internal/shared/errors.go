package shared

import "errors"

var (
	// ErrCSRFTokenMissing occurs when no token was submitted or issued.
	ErrCSRFTokenMissing = errors.New("csrf token missing")
	// ErrCSRFTokenMismatch occurs when tokens differ.
	ErrCSRFTokenMismatch = errors.New("csrf token mismatch")
	// ErrIdempotencyConflict indicates the key was already processed.
	ErrIdempotencyConflict = errors.New("idempotent request already processed")
)
