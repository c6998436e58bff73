package history

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/dispatchboard/core/dispatch"
	"github.com/kilianp07/dispatchboard/core/journal"
	"github.com/kilianp07/dispatchboard/core/model"
	"github.com/kilianp07/dispatchboard/core/timegrid"
	"github.com/kilianp07/dispatchboard/core/viewmodel"
	"github.com/kilianp07/dispatchboard/infra/logger"
	"github.com/kilianp07/dispatchboard/internal/fixture"
)

type committerFunc func(ctx context.Context, op *model.DispatchOperation, action journal.Action) error

func (f committerFunc) Commit(ctx context.Context, op *model.DispatchOperation, action journal.Action) error {
	return f(ctx, op, action)
}

func op(desc string) *model.DispatchOperation {
	return model.NewOperation(desc,
		[]model.Change{model.Assign{BookingID: desc, ToGuideID: "g"}},
		[]model.Change{model.Unassign{BookingIDs: []string{desc}, FromGuideID: "g"}},
	)
}

var open = model.OpenGate()

func TestUndoRedoThroughBoardState(t *testing.T) {
	snap := fixture.New().
		Guide("ana", "Ana", 10).
		Guide("ben", "Ben", 10).
		TourRun("city", "City Walk", "09:00", 90, fixture.Booking("b1", 2, model.ModeJoin)).
		Run("ana", "city", "09:00", "b1").
		Snapshot()
	state := viewmodel.NewState(snap, timegrid.DefaultWindow)
	eng, err := dispatch.NewEngine(state, nil, logger.NopLogger{})
	require.NoError(t, err)
	store := journal.NewMemoryStore()
	com, err := dispatch.NewCommitter(dispatch.ApplierFunc(state.Apply), 0, nil, nil, logger.NopLogger{})
	require.NoError(t, err)
	com.SetJournal(store)
	h := New(0)

	fwd, err := eng.MoveRunAt(open, "ana", "ana:city", "ben", "11:00")
	require.NoError(t, err)
	require.NoError(t, com.Commit(context.Background(), fwd, journal.ActionCommit))
	h.Record(fwd)

	run, ok := state.Board().RunOf("b1")
	require.True(t, ok)
	assert.Equal(t, "ben", run.GuideID)
	assert.Equal(t, "11:00", run.Start)

	inv, err := h.Undo(context.Background(), com.Gate(true, false), com)
	require.NoError(t, err)
	assert.Equal(t, "Undo: "+fwd.Description, inv.Description)
	run, _ = state.Board().RunOf("b1")
	assert.Equal(t, "ana", run.GuideID)
	assert.Equal(t, "09:00", run.Start)
	assert.False(t, h.CanUndo())
	assert.True(t, h.CanRedo())

	_, err = h.Redo(context.Background(), com.Gate(true, false), com)
	require.NoError(t, err)
	run, _ = state.Board().RunOf("b1")
	assert.Equal(t, "ben", run.GuideID)
	assert.Equal(t, "11:00", run.Start)

	recs, err := store.Query(context.Background(), journal.Query{})
	require.NoError(t, err)
	var actions []journal.Action
	for _, r := range recs {
		actions = append(actions, r.Action)
	}
	assert.Equal(t, []journal.Action{journal.ActionCommit, journal.ActionUndo, journal.ActionRedo}, actions)
}

func TestEmptyStacks(t *testing.T) {
	h := New(0)
	c := committerFunc(func(context.Context, *model.DispatchOperation, journal.Action) error {
		t.Fatal("commit must not be called")
		return nil
	})
	_, err := h.Undo(context.Background(), open, c)
	assert.ErrorIs(t, err, ErrNothingToUndo)
	_, err = h.Redo(context.Background(), open, c)
	assert.ErrorIs(t, err, ErrNothingToRedo)
}

func TestClosedGate(t *testing.T) {
	h := New(0)
	h.Record(op("a"))
	called := false
	c := committerFunc(func(context.Context, *model.DispatchOperation, journal.Action) error {
		called = true
		return nil
	})
	got, err := h.Undo(context.Background(), model.Gate{Editing: true, Mutating: true}, c)
	assert.NoError(t, err)
	assert.Nil(t, got)
	assert.False(t, called)
	assert.True(t, h.CanUndo())
}

func TestFailedCommitKeepsStacks(t *testing.T) {
	h := New(0)
	h.Record(op("a"))
	boom := errors.New("apply failed")
	_, err := h.Undo(context.Background(), open, committerFunc(func(context.Context, *model.DispatchOperation, journal.Action) error {
		return boom
	}))
	assert.ErrorIs(t, err, boom)
	u, r := h.Len()
	assert.Equal(t, 1, u)
	assert.Equal(t, 0, r)
}

func TestBusyCommitterDropsUndo(t *testing.T) {
	h := New(0)
	h.Record(op("a"))
	_, err := h.Undo(context.Background(), open, committerFunc(func(context.Context, *model.DispatchOperation, journal.Action) error {
		return dispatch.ErrBusy
	}))
	assert.ErrorIs(t, err, dispatch.ErrBusy)
	assert.True(t, h.CanUndo())
}

func TestRecordClearsRedoAndBounds(t *testing.T) {
	h := New(3)
	ok := committerFunc(func(context.Context, *model.DispatchOperation, journal.Action) error { return nil })
	for _, d := range []string{"a", "b", "c", "d"} {
		h.Record(op(d))
	}
	u, _ := h.Len()
	assert.Equal(t, 3, u)
	var descs []string
	for _, o := range h.Undoable() {
		descs = append(descs, o.Description)
	}
	assert.Equal(t, []string{"d", "c", "b"}, descs)

	_, err := h.Undo(context.Background(), open, ok)
	require.NoError(t, err)
	assert.True(t, h.CanRedo())
	h.Record(op("e"))
	assert.False(t, h.CanRedo(), "a new operation clears redo")

	h.Clear()
	u, r := h.Len()
	assert.Zero(t, u)
	assert.Zero(t, r)
	h.Record(nil)
	assert.False(t, h.CanUndo())
}

func TestUndoCommitsInverse(t *testing.T) {
	h := New(0)
	orig := op("a")
	h.Record(orig)
	var got *model.DispatchOperation
	var action journal.Action
	_, err := h.Undo(context.Background(), open, committerFunc(func(_ context.Context, o *model.DispatchOperation, a journal.Action) error {
		got, action = o, a
		return nil
	}))
	require.NoError(t, err)
	assert.Equal(t, journal.ActionUndo, action)
	assert.Equal(t, orig.UndoChanges, got.Changes)
	assert.Equal(t, orig.Changes, got.UndoChanges)
	assert.NotEqual(t, orig.ID, got.ID)
}
