package mqtt

import (
	"context"
	"fmt"
	"time"

	"github.com/kilianp07/dispatchboard/core/model"
	coremqtt "github.com/kilianp07/dispatchboard/core/mqtt"
)

// Applier hands operations to the backend over MQTT and waits for it to
// acknowledge storing them.
type Applier struct {
	client  coremqtt.Client
	timeout time.Duration
}

// NewApplier creates an applier. timeout bounds the ack wait when the
// context carries no deadline.
func NewApplier(client coremqtt.Client, timeout time.Duration) *Applier {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Applier{client: client, timeout: timeout}
}

// Apply publishes op exactly once and waits for the ack.
func (a *Applier) Apply(ctx context.Context, op *model.DispatchOperation) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	cmdID, err := a.client.SendOperation(op)
	if err != nil {
		return err
	}
	wait := a.timeout
	if dl, ok := ctx.Deadline(); ok {
		if left := time.Until(dl); left < wait {
			wait = left
		}
	}
	ok, err := a.client.WaitForAck(cmdID, wait)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("mqtt: %s: %w", op.ID, coremqtt.ErrRejected)
	}
	return nil
}
