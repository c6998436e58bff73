package mqtt

import "errors"

var (
	// ErrAckTimeout is returned when the backend does not acknowledge an
	// operation in time. The board state is left untouched.
	ErrAckTimeout = errors.New("mqtt: no acknowledgment from backend")
	// ErrRejected is returned when the backend refuses an operation.
	ErrRejected = errors.New("mqtt: operation refused by backend")
)
