package mqtt

import (
	"time"

	"github.com/kilianp07/dispatchboard/core/model"
)

// Client publishes dispatch operations to the backend and waits for the
// backend to acknowledge that it stored them.
type Client interface {
	// SendOperation publishes op and returns the command identifier used to
	// track the acknowledgment.
	SendOperation(op *model.DispatchOperation) (commandID string, err error)

	// WaitForAck waits for an acknowledgment for the provided command
	// identifier or until the timeout expires.
	WaitForAck(commandID string, timeout time.Duration) (bool, error)
}
