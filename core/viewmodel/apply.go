package viewmodel

import (
	"errors"
	"fmt"

	"github.com/kilianp07/dispatchboard/core/model"
)

// ErrAlreadyAssigned is returned when an Assign change targets a booking
// that some guide already holds.
var ErrAlreadyAssigned = errors.New("booking already assigned")

// ErrNotHeld is returned when a change names a source guide that does not
// carry the booking.
var ErrNotHeld = errors.New("booking not held by guide")

// Apply executes changes in order against a copy of snap and returns the
// resulting snapshot. snap itself is never modified. The first invalid
// change aborts the whole batch.
func Apply(snap model.Snapshot, changes []model.Change) (model.Snapshot, error) {
	a := newApplier(snap.Clone())
	for i, c := range changes {
		if err := a.apply(c); err != nil {
			return snap, fmt.Errorf("viewmodel: change %d (%s): %w", i, c.Kind(), err)
		}
	}
	a.recompute()
	return a.snap, nil
}

type applier struct {
	snap     model.Snapshot
	guides   map[string]int
	bookings map[string]model.Booking
	runs     map[string]model.TourRun
}

func newApplier(snap model.Snapshot) *applier {
	a := &applier{
		snap:     snap,
		guides:   make(map[string]int, len(snap.GuideTimelines)),
		bookings: make(map[string]model.Booking),
		runs:     make(map[string]model.TourRun, len(snap.TourRuns)),
	}
	for i, tl := range snap.GuideTimelines {
		a.guides[tl.Guide.ID] = i
	}
	for _, tr := range snap.TourRuns {
		a.runs[tr.Key] = tr
		for _, bk := range tr.Bookings {
			if bk.TourRunKey == "" {
				bk.TourRunKey = tr.Key
			}
			a.bookings[bk.ID] = bk
		}
	}
	return a
}

func (a *applier) apply(c model.Change) error {
	switch v := c.(type) {
	case model.Assign:
		return a.assign(v)
	case model.Reassign:
		return a.reassign(v)
	case model.Unassign:
		return a.unassign(v)
	case model.TimeShift:
		return a.timeShift(v)
	default:
		return fmt.Errorf("unsupported change %T", c)
	}
}

func (a *applier) timeline(guideID string) (*model.GuideTimeline, error) {
	i, ok := a.guides[guideID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownGuide, guideID)
	}
	return &a.snap.GuideTimelines[i], nil
}

func (a *applier) assign(c model.Assign) error {
	bk, ok := a.bookings[c.BookingID]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownBooking, c.BookingID)
	}
	tl, err := a.timeline(c.ToGuideID)
	if err != nil {
		return err
	}
	for i := range a.snap.GuideTimelines {
		if segmentOf(&a.snap.GuideTimelines[i], bk.ID) >= 0 {
			return fmt.Errorf("%w: %s", ErrAlreadyAssigned, bk.ID)
		}
	}
	tr := a.runs[bk.TourRunKey]
	start := tr.Time
	if start == "" {
		start = bk.Time
	}
	place(tl, bk, model.Segment{
		Tour:            tr.Tour,
		Start:           start,
		DurationMinutes: durationOr(tr.DurationMinutes),
	})
	return nil
}

func (a *applier) reassign(c model.Reassign) error {
	from, err := a.timeline(c.FromGuideID)
	if err != nil {
		return err
	}
	to, err := a.timeline(c.ToGuideID)
	if err != nil {
		return err
	}
	for _, id := range c.BookingIDs {
		bk, ok := a.bookings[id]
		if !ok {
			return fmt.Errorf("%w: %s", ErrUnknownBooking, id)
		}
		seg, ok := remove(from, id)
		if !ok {
			return fmt.Errorf("%w: %s on %s", ErrNotHeld, id, c.FromGuideID)
		}
		place(to, bk, seg)
	}
	return nil
}

func (a *applier) unassign(c model.Unassign) error {
	from, err := a.timeline(c.FromGuideID)
	if err != nil {
		return err
	}
	for _, id := range c.BookingIDs {
		if _, ok := remove(from, id); !ok {
			return fmt.Errorf("%w: %s on %s", ErrNotHeld, id, c.FromGuideID)
		}
	}
	return nil
}

func (a *applier) timeShift(c model.TimeShift) error {
	tl, err := a.timeline(c.GuideID)
	if err != nil {
		return err
	}
	for _, id := range c.BookingIDs {
		i := segmentOf(tl, id)
		if i < 0 {
			return fmt.Errorf("%w: %s on %s", ErrNotHeld, id, c.GuideID)
		}
		tl.Segments[i].Start = c.NewStartTime
	}
	return nil
}

// recompute refreshes the guide totals from the bookings actually held.
func (a *applier) recompute() {
	for i := range a.snap.GuideTimelines {
		tl := &a.snap.GuideTimelines[i]
		total := 0
		for _, seg := range tl.Segments {
			if seg.Type != model.SegmentTour {
				continue
			}
			for _, id := range seg.BookingIDs {
				total += a.bookings[id].Guests()
			}
		}
		tl.TotalGuests = total
		tl.Utilization = model.Utilization(total, tl.VehicleCapacity)
	}
}

func segmentOf(tl *model.GuideTimeline, bookingID string) int {
	for i, seg := range tl.Segments {
		if seg.Type != model.SegmentTour {
			continue
		}
		for _, id := range seg.BookingIDs {
			if id == bookingID {
				return i
			}
		}
	}
	return -1
}

// remove detaches the booking from its segment and drops the segment once
// empty. The returned segment carries the placement of the removed booking.
func remove(tl *model.GuideTimeline, bookingID string) (model.Segment, bool) {
	i := segmentOf(tl, bookingID)
	if i < 0 {
		return model.Segment{}, false
	}
	seg := tl.Segments[i]
	ids := make([]string, 0, len(seg.BookingIDs))
	for _, id := range seg.BookingIDs {
		if id != bookingID {
			ids = append(ids, id)
		}
	}
	if len(ids) == 0 {
		tl.Segments = append(tl.Segments[:i], tl.Segments[i+1:]...)
	} else {
		tl.Segments[i].BookingIDs = ids
	}
	seg.BookingIDs = nil
	return seg, true
}

// place appends the booking to the guide's segment for the booking's tour
// run, creating it from the template when the guide has none.
func place(tl *model.GuideTimeline, bk model.Booking, template model.Segment) {
	for i, seg := range tl.Segments {
		if seg.Type == model.SegmentTour && seg.RunKey == bk.TourRunKey {
			tl.Segments[i].BookingIDs = append(tl.Segments[i].BookingIDs, bk.ID)
			return
		}
	}
	template.Type = model.SegmentTour
	template.RunKey = bk.TourRunKey
	if template.Tour == "" {
		template.Tour = bk.Tour
	}
	template.BookingIDs = []string{bk.ID}
	tl.Segments = append(tl.Segments, template)
}
