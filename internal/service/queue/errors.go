package queue

import "errors"

// Sentinel errors for the queue service layer.
var (
	ErrNotFound          = errors.New("draft not found")
	ErrInvalidTransition = errors.New("invalid status transition")
	ErrConfirmRequired   = errors.New("destructive operation requires explicit confirmation")
)
