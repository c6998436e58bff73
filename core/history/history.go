// Package history keeps the undo and redo stacks of committed operations.
package history

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/kilianp07/dispatchboard/core/journal"
	"github.com/kilianp07/dispatchboard/core/model"
)

// DefaultMax is the number of operations kept on each stack.
const DefaultMax = 50

var (
	ErrNothingToUndo = errors.New("history: nothing to undo")
	ErrNothingToRedo = errors.New("history: nothing to redo")
)

// Committer applies an operation. *dispatch.Committer satisfies it.
type Committer interface {
	Commit(ctx context.Context, op *model.DispatchOperation, action journal.Action) error
}

// History is a bounded undo/redo log. Undo commits the inverse of the
// newest operation, redo replays the newest undone one.
type History struct {
	mu   sync.Mutex
	max  int
	undo []*model.DispatchOperation
	redo []*model.DispatchOperation
}

// New creates a history keeping at most max operations per stack.
// A non-positive max uses DefaultMax.
func New(max int) *History {
	if max <= 0 {
		max = DefaultMax
	}
	return &History{max: max}
}

// Record pushes a freshly committed operation and clears the redo stack.
func (h *History) Record(op *model.DispatchOperation) {
	if op == nil {
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	h.undo = push(h.undo, op, h.max)
	h.redo = nil
}

// Undo reverts the newest operation. The stacks only change once the
// commit succeeded. A closed gate is a no-op.
func (h *History) Undo(ctx context.Context, gate model.Gate, c Committer) (*model.DispatchOperation, error) {
	if !gate.Allows() {
		return nil, nil
	}
	h.mu.Lock()
	op := peek(h.undo)
	h.mu.Unlock()
	if op == nil {
		return nil, ErrNothingToUndo
	}
	inv := op.Inverse()
	if err := c.Commit(ctx, inv, journal.ActionUndo); err != nil {
		return nil, fmt.Errorf("history: undo %q: %w", op.Description, err)
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	h.undo = drop(h.undo, op)
	h.redo = push(h.redo, op, h.max)
	return inv, nil
}

// Redo re-applies the newest undone operation.
func (h *History) Redo(ctx context.Context, gate model.Gate, c Committer) (*model.DispatchOperation, error) {
	if !gate.Allows() {
		return nil, nil
	}
	h.mu.Lock()
	op := peek(h.redo)
	h.mu.Unlock()
	if op == nil {
		return nil, ErrNothingToRedo
	}
	replay := op.Replay()
	if err := c.Commit(ctx, replay, journal.ActionRedo); err != nil {
		return nil, fmt.Errorf("history: redo %q: %w", op.Description, err)
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	h.redo = drop(h.redo, op)
	h.undo = push(h.undo, op, h.max)
	return replay, nil
}

// CanUndo reports whether an operation can be undone.
func (h *History) CanUndo() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.undo) > 0
}

// CanRedo reports whether an operation can be redone.
func (h *History) CanRedo() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.redo) > 0
}

// Len returns the sizes of the undo and redo stacks.
func (h *History) Len() (undo, redo int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.undo), len(h.redo)
}

// Undoable returns the undo stack, newest first.
func (h *History) Undoable() []*model.DispatchOperation {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]*model.DispatchOperation, 0, len(h.undo))
	for i := len(h.undo) - 1; i >= 0; i-- {
		out = append(out, h.undo[i])
	}
	return out
}

// Clear empties both stacks, typically after loading a new snapshot.
func (h *History) Clear() {
	h.mu.Lock()
	h.undo, h.redo = nil, nil
	h.mu.Unlock()
}

func push(stack []*model.DispatchOperation, op *model.DispatchOperation, max int) []*model.DispatchOperation {
	stack = append(stack, op)
	if len(stack) > max {
		stack = append([]*model.DispatchOperation(nil), stack[len(stack)-max:]...)
	}
	return stack
}

func peek(stack []*model.DispatchOperation) *model.DispatchOperation {
	if len(stack) == 0 {
		return nil
	}
	return stack[len(stack)-1]
}

// drop removes op from the top of the stack if it is still there. A Record
// racing with a commit may have replaced the stack meanwhile.
func drop(stack []*model.DispatchOperation, op *model.DispatchOperation) []*model.DispatchOperation {
	if peek(stack) == op {
		return stack[:len(stack)-1]
	}
	return stack
}
