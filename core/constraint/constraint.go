// Package constraint holds the pure legality predicates of the dispatch
// board. Checks never mutate their inputs; callers decide what to do with
// a Violation.
package constraint

import (
	"fmt"

	"github.com/kilianp07/dispatchboard/core/model"
	"github.com/kilianp07/dispatchboard/core/timegrid"
)

// Kind classifies a rejected action.
type Kind string

const (
	KindCapacity    Kind = "capacity"
	KindCharter     Kind = "charter"
	KindNoCandidate Kind = "no-candidate"
)

// Violation describes why an action may not be committed. It satisfies
// error so engine entry points can return it directly.
type Violation struct {
	Kind      Kind   `json:"kind"`
	GuideID   string `json:"guideId,omitempty"`
	GuideName string `json:"guideName,omitempty"`
	Slot      string `json:"slot,omitempty"`
	Projected int    `json:"projected,omitempty"`
	Capacity  int    `json:"capacity,omitempty"`
	Message   string `json:"message"`
}

func (v *Violation) Error() string { return v.Message }

// Projected returns the guest count of row once incoming is added. Bookings
// already carried by the row are not counted twice.
func Projected(row model.GuideRow, incoming []model.Booking) int {
	projected := row.TotalGuests
	for _, b := range incoming {
		if !row.Holds(b.ID) {
			projected += b.Guests()
		}
	}
	return projected
}

// Capacity reports an overflow of the row's vehicle.
func Capacity(row model.GuideRow, incoming []model.Booking) *Violation {
	projected := Projected(row, incoming)
	if projected <= row.VehicleCapacity {
		return nil
	}
	return &Violation{
		Kind:      KindCapacity,
		GuideID:   row.ID(),
		GuideName: row.Name(),
		Projected: projected,
		Capacity:  row.VehicleCapacity,
		Message:   fmt.Sprintf("%s: %d/%d seats, vehicle capacity exceeded", row.Name(), projected, row.VehicleCapacity),
	}
}

// CharterExclusive reports a charter collision in the slot starting at
// slot once incoming lands there. The run excludeRunID is left out of the
// scan so a run never collides with itself. Incoming bookings of distinct
// tour runs become distinct runs, so they collide with each other too.
func CharterExclusive(w timegrid.Window, row model.GuideRow, slot string, incoming []model.Booking, excludeRunID string) *Violation {
	at := w.Minutes(slot)
	occupied := false
	for _, r := range row.Runs {
		if r.ID == excludeRunID || w.Minutes(r.Start) != at {
			continue
		}
		if r.Exclusive {
			return charter(row, at, fmt.Sprintf("%s already runs a private charter at %s", row.Name(), timegrid.FormatClock(at)))
		}
		occupied = true
	}
	if !model.AnyExclusive(incoming) {
		return nil
	}
	if occupied {
		return charter(row, at, fmt.Sprintf("%s already has a run at %s and charters need the slot alone", row.Name(), timegrid.FormatClock(at)))
	}
	keys := make(map[string]bool, len(incoming))
	for _, bk := range incoming {
		keys[bk.TourRunKey] = true
	}
	if len(keys) > 1 {
		return charter(row, at, fmt.Sprintf("%s would get %d runs at %s including a private charter", row.Name(), len(keys), timegrid.FormatClock(at)))
	}
	return nil
}

// CharterMerge reports incoming bookings joining run, an existing run of
// the same tour on row, when either side is a private charter.
func CharterMerge(w timegrid.Window, row model.GuideRow, run model.Run, incoming []model.Booking) *Violation {
	if !run.Exclusive && !model.AnyExclusive(incoming) {
		return nil
	}
	at := w.Minutes(run.Start)
	return charter(row, at, fmt.Sprintf("%s already runs %s at %s and charters cannot share a run", row.Name(), run.Tour, timegrid.FormatClock(at)))
}

func charter(row model.GuideRow, at int, detail string) *Violation {
	return &Violation{
		Kind:      KindCharter,
		GuideID:   row.ID(),
		GuideName: row.Name(),
		Slot:      timegrid.FormatClock(at),
		Message:   "Charter exclusivity: " + detail,
	}
}

// NoCandidate reports that best-fit found no guide able to take guests.
func NoCandidate(guests int) *Violation {
	return &Violation{
		Kind:      KindNoCandidate,
		Projected: guests,
		Message:   fmt.Sprintf("No guide has %d free seats", guests),
	}
}
