package model

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// ErrEmptyOperation is returned by Validate for operations without changes.
var ErrEmptyOperation = errors.New("operation has no changes")

// DispatchOperation is an atomic, reversible batch of assignment changes.
// Applying Changes then UndoChanges, in listed order, restores the board.
type DispatchOperation struct {
	ID          string     `json:"id"`
	Description string     `json:"description"`
	Changes     ChangeList `json:"changes"`
	UndoChanges ChangeList `json:"undoChanges"`
	CreatedAt   time.Time  `json:"createdAt"`
}

// NewOperation builds an operation with a fresh identifier.
func NewOperation(description string, changes, undo []Change) *DispatchOperation {
	return &DispatchOperation{
		ID:          uuid.NewString(),
		Description: description,
		Changes:     ChangeList(changes),
		UndoChanges: ChangeList(undo),
		CreatedAt:   time.Now(),
	}
}

// Inverse returns the operation that reverts op. Its own inverse replays op.
func (op DispatchOperation) Inverse() *DispatchOperation {
	return &DispatchOperation{
		ID:          uuid.NewString(),
		Description: "Undo: " + op.Description,
		Changes:     append(ChangeList(nil), op.UndoChanges...),
		UndoChanges: append(ChangeList(nil), op.Changes...),
		CreatedAt:   time.Now(),
	}
}

// Replay returns a copy of op with a fresh identifier, used to redo it.
func (op DispatchOperation) Replay() *DispatchOperation {
	return &DispatchOperation{
		ID:          uuid.NewString(),
		Description: "Redo: " + op.Description,
		Changes:     append(ChangeList(nil), op.Changes...),
		UndoChanges: append(ChangeList(nil), op.UndoChanges...),
		CreatedAt:   time.Now(),
	}
}

// Validate checks that both change lists are populated.
func (op DispatchOperation) Validate() error {
	if len(op.Changes) == 0 || len(op.UndoChanges) == 0 {
		return ErrEmptyOperation
	}
	return nil
}

// Gate carries the externally supplied editing flags. Every mutating entry
// point is a no-op unless the gate allows it.
type Gate struct {
	Editing  bool `json:"editing"`
	ReadOnly bool `json:"readOnly"`
	Mutating bool `json:"mutating"`
}

// Allows returns true when the board is editable, writable and idle.
func (g Gate) Allows() bool {
	return g.Editing && !g.ReadOnly && !g.Mutating
}

// OpenGate returns a gate allowing mutations.
func OpenGate() Gate { return Gate{Editing: true} }
