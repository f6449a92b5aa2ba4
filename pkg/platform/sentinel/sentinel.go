package sentinel

import "errors"

// Sentinel errors for storage facts. Stores return these (optionally wrapped)
// and services translate them into coded domain errors.
//
//   - ErrNotFound: the record does not exist
//   - ErrConflict: a unique constraint rejected the write
//   - ErrAlreadyUsed: a one-shot resource (a verified payment) was already consumed
//   - ErrInvalidState: the record is not in a state that permits the write
//   - ErrUnavailable: the backing store could not be reached
var (
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("conflict")
	ErrAlreadyUsed  = errors.New("already used")
	ErrInvalidState = errors.New("invalid state")
	ErrUnavailable  = errors.New("unavailable")
)
