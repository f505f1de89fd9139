package models

import "errors"

// Error taxonomy shared by the scheduler, the reminder engine and the stores.
// Callers match with errors.Is; the wrapped message carries the detail.
var (
	ErrValidation     = errors.New("validation error")
	ErrNotFound       = errors.New("not found")
	ErrStorageFailure = errors.New("storage failure")
)
