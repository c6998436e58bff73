package viewmodel

import (
	"context"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/dispatchboard/core/model"
	"github.com/kilianp07/dispatchboard/core/timegrid"
)

// observable captures what the round-trip property compares: run
// membership, run start and guest totals per guide.
func observable(t *testing.T, snap model.Snapshot) map[string]map[string]string {
	t.Helper()
	b := Build(snap, timegrid.DefaultWindow)
	out := make(map[string]map[string]string)
	for _, row := range b.Rows {
		m := map[string]string{"total": strconv.Itoa(row.TotalGuests)}
		for _, r := range row.Runs {
			for _, id := range r.BookingIDs {
				m[id] = r.Key + "@" + r.Start
			}
		}
		out[row.ID()] = m
	}
	return out
}

func TestApplyAssignCreatesRunAtTourTime(t *testing.T) {
	next, err := Apply(sampleDay(), []model.Change{model.Assign{BookingID: "b3", ToGuideID: "g3"}})
	require.NoError(t, err)
	b := Build(next, timegrid.DefaultWindow)
	run, ok := b.RunOf("b3")
	require.True(t, ok)
	assert.Equal(t, "g3", run.GuideID)
	assert.Equal(t, "09:00", run.Start)
	assert.Equal(t, 90, run.DurationMinutes)
	_, ok = b.Group("run_city-0900")
	assert.False(t, ok, "group disappears once all its bookings are assigned")
}

func TestApplyAssignJoinsExistingRun(t *testing.T) {
	next, err := Apply(sampleDay(), []model.Change{model.Assign{BookingID: "b3", ToGuideID: "g1"}})
	require.NoError(t, err)
	b := Build(next, timegrid.DefaultWindow)
	row, _ := b.Row("g1")
	require.Len(t, row.Runs, 1)
	assert.Equal(t, 7, row.TotalGuests)
}

func TestApplyDoesNotMutateInput(t *testing.T) {
	snap := sampleDay()
	before := snap.Clone()
	_, err := Apply(snap, []model.Change{model.Unassign{BookingIDs: []string{"b1", "b2"}, FromGuideID: "g1"}})
	require.NoError(t, err)
	assert.Equal(t, before, snap)
}

func TestApplyUnassignDropsEmptyRun(t *testing.T) {
	next, err := Apply(sampleDay(), []model.Change{model.Unassign{BookingIDs: []string{"b1", "b2"}, FromGuideID: "g1"}})
	require.NoError(t, err)
	b := Build(next, timegrid.DefaultWindow)
	row, _ := b.Row("g1")
	assert.Empty(t, row.Runs)
	assert.Zero(t, row.TotalGuests)
	assert.Equal(t, "break", next.GuideTimelines[1].Segments[0].Type)
}

func TestApplyReassignKeepsStart(t *testing.T) {
	shifted, err := Apply(sampleDay(), []model.Change{
		model.TimeShift{BookingIDs: []string{"b1", "b2"}, GuideID: "g1", NewStartTime: "10:15"},
		model.Reassign{BookingIDs: []string{"b1", "b2"}, FromGuideID: "g1", ToGuideID: "g3"},
	})
	require.NoError(t, err)
	run, ok := Build(shifted, timegrid.DefaultWindow).RunOf("b1")
	require.True(t, ok)
	assert.Equal(t, "g3", run.GuideID)
	assert.Equal(t, "10:15", run.Start)
	assert.Equal(t, []string{"b1", "b2"}, run.BookingIDs)
}

func TestApplyRejectsInvalidChanges(t *testing.T) {
	cases := []struct {
		name   string
		change model.Change
		err    error
	}{
		{"assign held booking", model.Assign{BookingID: "b1", ToGuideID: "g3"}, ErrAlreadyAssigned},
		{"unknown booking", model.Assign{BookingID: "zz", ToGuideID: "g3"}, ErrUnknownBooking},
		{"unknown guide", model.Assign{BookingID: "b3", ToGuideID: "zz"}, ErrUnknownGuide},
		{"reassign from wrong guide", model.Reassign{BookingIDs: []string{"b1"}, FromGuideID: "g2", ToGuideID: "g3"}, ErrNotHeld},
		{"unassign queued", model.Unassign{BookingIDs: []string{"b3"}, FromGuideID: "g1"}, ErrNotHeld},
		{"shift foreign run", model.TimeShift{BookingIDs: []string{"c1"}, GuideID: "g1", NewStartTime: "10:00"}, ErrNotHeld},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			_, err := Apply(sampleDay(), []model.Change{c.change})
			assert.ErrorIs(t, err, c.err)
		})
	}
}

func TestApplyForwardThenUndoRestoresBoard(t *testing.T) {
	cases := []struct {
		name    string
		forward []model.Change
		undo    []model.Change
	}{
		{
			"assign",
			[]model.Change{model.Assign{BookingID: "b3", ToGuideID: "g3"}},
			[]model.Change{model.Unassign{BookingIDs: []string{"b3"}, FromGuideID: "g3"}},
		},
		{
			"reassign",
			[]model.Change{model.Reassign{BookingIDs: []string{"b1", "b2"}, FromGuideID: "g1", ToGuideID: "g2"}},
			[]model.Change{model.Reassign{BookingIDs: []string{"b1", "b2"}, FromGuideID: "g2", ToGuideID: "g1"}},
		},
		{
			"time shift",
			[]model.Change{model.TimeShift{BookingIDs: []string{"c1"}, GuideID: "g2", NewStartTime: "15:30"}},
			[]model.Change{model.TimeShift{BookingIDs: []string{"c1"}, GuideID: "g2", NewStartTime: "14:00"}},
		},
		{
			"return to queue",
			[]model.Change{model.Unassign{BookingIDs: []string{"b1", "b2"}, FromGuideID: "g1"}},
			[]model.Change{
				model.Assign{BookingID: "b1", ToGuideID: "g1"},
				model.Assign{BookingID: "b2", ToGuideID: "g1"},
			},
		},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			start := sampleDay()
			mid, err := Apply(start, c.forward)
			require.NoError(t, err)
			end, err := Apply(mid, c.undo)
			require.NoError(t, err)
			assert.Equal(t, observable(t, start), observable(t, end))
		})
	}
}

func TestStateApplyRebuildsBoard(t *testing.T) {
	s := NewState(sampleDay(), timegrid.DefaultWindow)
	old := s.Board()
	op := model.NewOperation("assign",
		[]model.Change{model.Assign{BookingID: "b3", ToGuideID: "g3"}},
		[]model.Change{model.Unassign{BookingIDs: []string{"b3"}, FromGuideID: "g3"}},
	)
	require.NoError(t, s.Apply(context.Background(), op))
	assert.NotSame(t, old, s.Board())
	guide, ok := s.Board().GuideOf("b3")
	assert.True(t, ok)
	assert.Equal(t, "g3", guide)
	_, ok = old.GuideOf("b3")
	assert.False(t, ok, "previous board is left untouched")
}

func TestStateApplyKeepsSnapshotOnError(t *testing.T) {
	s := NewState(sampleDay(), timegrid.DefaultWindow)
	before := s.Snapshot()
	op := model.NewOperation("bad",
		[]model.Change{model.Assign{BookingID: "b3", ToGuideID: "g3"}, model.Assign{BookingID: "b3", ToGuideID: "g1"}},
		[]model.Change{model.Unassign{BookingIDs: []string{"b3"}, FromGuideID: "g3"}},
	)
	assert.ErrorIs(t, s.Apply(context.Background(), op), ErrAlreadyAssigned)
	assert.Equal(t, before, s.Snapshot())
}

func TestStateApplyHonoursCancelledContext(t *testing.T) {
	s := NewState(sampleDay(), timegrid.DefaultWindow)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, s.Apply(ctx, &model.DispatchOperation{}), context.Canceled)
}
