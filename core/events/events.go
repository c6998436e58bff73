package events

import (
	"time"

	"github.com/kilianp07/dispatchboard/core/constraint"
	"github.com/kilianp07/dispatchboard/core/model"
)

// Event is any value published on the board bus.
type Event interface {
	EventName() string
}

// OperationEvent is published after every apply attempt.
type OperationEvent struct {
	Operation *model.DispatchOperation
	// Action is "commit", "undo" or "redo".
	Action  string
	Err     error
	Latency time.Duration
}

func (OperationEvent) EventName() string { return "operation" }

// RejectionEvent is published when an engine action is refused.
type RejectionEvent struct {
	Violation *constraint.Violation
}

func (RejectionEvent) EventName() string { return "rejection" }

// BusyEvent is published when an action is dropped because an apply is
// still pending.
type BusyEvent struct {
	Description string
}

func (BusyEvent) EventName() string { return "busy" }
