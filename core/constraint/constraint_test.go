package constraint

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/dispatchboard/core/model"
	"github.com/kilianp07/dispatchboard/core/timegrid"
	"github.com/kilianp07/dispatchboard/core/viewmodel"
	"github.com/kilianp07/dispatchboard/internal/fixture"
)

func board(snap model.Snapshot) *viewmodel.Board {
	return viewmodel.Build(snap, timegrid.DefaultWindow)
}

func TestCapacityRejectsOverflowWithNumbers(t *testing.T) {
	b := board(fixture.New().
		Guide("a", "Ana", 6).
		TourRun("r1", "Bay", "09:00", 60,
			fixture.Booking("held", 4, model.ModeJoin),
			fixture.Booking("new", 3, model.ModeJoin),
		).
		Run("a", "r1", "09:00", "held").
		Snapshot())
	row, _ := b.Row("a")
	incoming, err := b.Bookings([]string{"new"})
	require.NoError(t, err)

	v := Capacity(row, incoming)
	require.NotNil(t, v)
	assert.Equal(t, KindCapacity, v.Kind)
	assert.Equal(t, 7, v.Projected)
	assert.Equal(t, 6, v.Capacity)
	assert.Contains(t, v.Error(), "Ana")
	assert.Contains(t, v.Error(), "7/6")
}

func TestCapacityDoesNotDoubleCountHeldBookings(t *testing.T) {
	b := board(fixture.New().
		Guide("a", "Ana", 6).
		TourRun("r1", "Bay", "09:00", 60,
			fixture.Booking("held", 4, model.ModeJoin),
			fixture.Booking("new", 2, model.ModeJoin),
		).
		Run("a", "r1", "09:00", "held").
		Snapshot())
	row, _ := b.Row("a")
	incoming, _ := b.Bookings([]string{"held", "new"})
	assert.Equal(t, 6, Projected(row, incoming))
	assert.Nil(t, Capacity(row, incoming))
}

func charterDay() *viewmodel.Board {
	return board(fixture.New().
		Guide("b", "Ben", 12).
		TourRun("r-charter", "Sunrise", "09:00", 60, fixture.Booking("c1", 2, model.ModeCharter)).
		TourRun("r-shared", "Harbour", "09:00", 60, fixture.Booking("s1", 2, model.ModeJoin)).
		TourRun("r-other", "Harbour", "09:00", 60, fixture.Booking("s2", 2, model.ModeJoin)).
		TourRun("r-private", "Cellar", "09:00", 60, fixture.Booking("p1", 2, model.ModeBook)).
		Run("b", "r-charter", "09:00", "c1").
		Snapshot())
}

func TestCharterBlocksSharedBookingInSameSlot(t *testing.T) {
	b := charterDay()
	row, _ := b.Row("b")
	incoming, _ := b.Bookings([]string{"s1"})
	v := CharterExclusive(b.Window, row, "09:00", incoming, "")
	require.NotNil(t, v)
	assert.Equal(t, KindCharter, v.Kind)
	assert.Contains(t, v.Error(), "Charter exclusivity")
	assert.Equal(t, "09:00", v.Slot)

	assert.Nil(t, CharterExclusive(b.Window, row, "10:00", incoming, ""), "other slots are free")
}

func TestCharterBlocksIncomingCharterInOccupiedSlot(t *testing.T) {
	b := board(fixture.New().
		Guide("b", "Ben", 12).
		TourRun("r-shared", "Harbour", "09:00", 60, fixture.Booking("s1", 2, model.ModeJoin)).
		TourRun("r-private", "Cellar", "09:00", 60, fixture.Booking("p1", 2, model.ModeBook)).
		Run("b", "r-shared", "09:00", "s1").
		Snapshot())
	row, _ := b.Row("b")
	incoming, _ := b.Bookings([]string{"p1"})
	assert.NotNil(t, CharterExclusive(b.Window, row, "09:00", incoming, ""))
	assert.Nil(t, CharterExclusive(b.Window, row, "09:00", incoming, "b:r-shared"), "own run excluded")
}

func TestCharterAllowsSharedRunsTogether(t *testing.T) {
	b := board(fixture.New().
		Guide("b", "Ben", 12).
		TourRun("r-shared", "Harbour", "09:00", 60, fixture.Booking("s1", 2, model.ModeJoin)).
		TourRun("r-other", "Bay", "09:00", 60, fixture.Booking("s2", 2, model.ModeJoin)).
		Run("b", "r-shared", "09:00", "s1").
		Snapshot())
	row, _ := b.Row("b")
	incoming, _ := b.Bookings([]string{"s2"})
	assert.Nil(t, CharterExclusive(b.Window, row, "09:00", incoming, ""))
}

func TestCharterIgnoresItsOwnRun(t *testing.T) {
	b := charterDay()
	row, _ := b.Row("b")
	incoming, _ := b.Bookings([]string{"c1"})
	assert.Nil(t, CharterExclusive(b.Window, row, "09:00", incoming, "b:r-charter"))
}

func TestCharterBlocksIncomingRunsSharingASlot(t *testing.T) {
	b := charterDay()
	row, _ := b.Row("b")
	incoming, _ := b.Bookings([]string{"s1", "p1"})
	v := CharterExclusive(b.Window, row, "11:00", incoming, "")
	require.NotNil(t, v)
	assert.Contains(t, v.Message, "2 runs at 11:00")

	shared, _ := b.Bookings([]string{"s1", "s2"})
	assert.Nil(t, CharterExclusive(b.Window, row, "11:00", shared, ""), "shared runs may share a slot")
}

func TestNoCandidate(t *testing.T) {
	v := NoCandidate(5)
	assert.Equal(t, KindNoCandidate, v.Kind)
	assert.Equal(t, "No guide has 5 free seats", v.Error())
}

func TestAuditFindsExistingViolations(t *testing.T) {
	b := board(fixture.New().
		Guide("a", "Ana", 2).
		Guide("b", "Ben", 10).
		TourRun("r1", "Bay", "09:00", 60,
			fixture.Booking("x", 3, model.ModeJoin),
		).
		TourRun("r2", "Cellar", "11:00", 60, fixture.Booking("p", 2, model.ModeCharter)).
		TourRun("r3", "Harbour", "11:00", 60, fixture.Booking("y", 2, model.ModeJoin)).
		Run("a", "r1", "09:00", "x").
		Run("b", "r2", "11:00", "p").
		Run("b", "r3", "11:00", "y").
		Snapshot())
	got := Audit(b)
	require.Len(t, got, 2)
	assert.Equal(t, KindCapacity, got[0].Kind)
	assert.Equal(t, "a", got[0].GuideID)
	assert.Equal(t, KindCharter, got[1].Kind)
	assert.Equal(t, "b", got[1].GuideID)
}

func TestAuditCleanBoard(t *testing.T) {
	assert.Empty(t, Audit(charterDay()))
}
