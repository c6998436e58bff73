// Package viewmodel derives the dispatch board (guide rows, runs, queue
// groups and lookups) from a backend snapshot.
package viewmodel

import (
	"errors"
	"sort"

	"github.com/kilianp07/dispatchboard/core/model"
	"github.com/kilianp07/dispatchboard/core/timegrid"
)

// DefaultDurationMinutes is used for runs whose duration is unknown.
const DefaultDurationMinutes = 60

var (
	ErrUnknownGuide   = errors.New("unknown guide")
	ErrUnknownRun     = errors.New("unknown run")
	ErrUnknownBooking = errors.New("unknown booking")
)

type runRef struct {
	row int
	run int
}

// Board is the immutable working view of one snapshot. Lookups are built
// once by Build and never patched; a new snapshot yields a new Board.
type Board struct {
	Window timegrid.Window
	Rows   []model.GuideRow
	Groups []model.UnassignedGroup

	bookings     map[string]model.Booking
	tourRuns     map[string]model.TourRun
	rowIndex     map[string]int
	runIndex     map[string]runRef
	bookingRun   map[string]string
	groupIndex   map[string]int
	bookingOrder []string
}

// Build derives a Board from the snapshot. Building the same snapshot twice
// yields identical rows, runs and group identifiers.
func Build(snap model.Snapshot, window timegrid.Window) *Board {
	b := &Board{
		Window:     window,
		bookings:   make(map[string]model.Booking),
		tourRuns:   make(map[string]model.TourRun),
		rowIndex:   make(map[string]int),
		runIndex:   make(map[string]runRef),
		bookingRun: make(map[string]string),
		groupIndex: make(map[string]int),
	}
	b.indexBookings(snap.TourRuns)
	for _, tl := range snap.GuideTimelines {
		b.Rows = append(b.Rows, b.buildRow(tl))
	}
	sort.SliceStable(b.Rows, func(i, j int) bool {
		if b.Rows[i].Name() != b.Rows[j].Name() {
			return b.Rows[i].Name() < b.Rows[j].Name()
		}
		return b.Rows[i].ID() < b.Rows[j].ID()
	})
	for i, row := range b.Rows {
		b.rowIndex[row.ID()] = i
		for j, run := range row.Runs {
			b.runIndex[run.ID] = runRef{row: i, run: j}
			for _, id := range run.BookingIDs {
				b.bookingRun[id] = run.ID
			}
		}
	}
	b.buildGroups()
	return b
}

func (b *Board) indexBookings(runs []model.TourRun) {
	for _, tr := range runs {
		b.tourRuns[tr.Key] = tr
		for _, bk := range tr.Bookings {
			if bk.TourRunKey == "" {
				bk.TourRunKey = tr.Key
			}
			if bk.Tour == "" {
				bk.Tour = tr.Tour
			}
			if bk.Time == "" {
				bk.Time = tr.Time
			}
			if _, dup := b.bookings[bk.ID]; !dup {
				b.bookingOrder = append(b.bookingOrder, bk.ID)
			}
			b.bookings[bk.ID] = bk
		}
	}
}

func (b *Board) buildRow(tl model.GuideTimeline) model.GuideRow {
	row := model.GuideRow{Guide: tl.Guide, VehicleCapacity: tl.VehicleCapacity}
	byKey := make(map[string]int)
	for _, seg := range tl.Segments {
		if seg.Type != model.SegmentTour || len(seg.BookingIDs) == 0 {
			continue
		}
		key := seg.RunKey
		if key == "" {
			key = seg.Tour + "@" + seg.Start
		}
		if i, ok := byKey[key]; ok {
			row.Runs[i].BookingIDs = append(row.Runs[i].BookingIDs, seg.BookingIDs...)
			continue
		}
		byKey[key] = len(row.Runs)
		row.Runs = append(row.Runs, b.newRun(tl.Guide.ID, key, seg))
	}
	for i := range row.Runs {
		b.finishRun(&row.Runs[i])
		row.TotalGuests += row.Runs[i].Guests
	}
	sort.SliceStable(row.Runs, func(i, j int) bool {
		si, sj := b.Window.Minutes(row.Runs[i].Start), b.Window.Minutes(row.Runs[j].Start)
		if si != sj {
			return si < sj
		}
		return row.Runs[i].ID < row.Runs[j].ID
	})
	row.Utilization = model.Utilization(row.TotalGuests, row.VehicleCapacity)
	return row
}

func (b *Board) newRun(guideID, key string, seg model.Segment) model.Run {
	tr := b.tourRuns[key]
	run := model.Run{
		ID:              model.RunID(guideID, key),
		GuideID:         guideID,
		Key:             key,
		Tour:            seg.Tour,
		Start:           timegrid.FormatClock(b.Window.Minutes(seg.Start)),
		DurationMinutes: seg.DurationMinutes,
		Health:          seg.Health,
		BookingIDs:      append([]string(nil), seg.BookingIDs...),
	}
	if run.Tour == "" {
		run.Tour = tr.Tour
	}
	if run.DurationMinutes <= 0 {
		run.DurationMinutes = tr.DurationMinutes
	}
	if run.DurationMinutes <= 0 {
		run.DurationMinutes = DefaultDurationMinutes
	}
	if !run.Health.Valid() {
		run.Health = model.HealthGood
	}
	return run
}

func (b *Board) finishRun(run *model.Run) {
	run.Guests = 0
	run.Exclusive = false
	for _, id := range run.BookingIDs {
		bk, ok := b.bookings[id]
		if !ok {
			continue
		}
		run.Guests += bk.Guests()
		run.Exclusive = run.Exclusive || bk.IsExclusive()
	}
	run.End = b.Window.EndTime(run.Start, run.DurationMinutes)
}

func (b *Board) buildGroups() {
	byID := make(map[string]int)
	for _, id := range b.bookingOrder {
		if _, assigned := b.bookingRun[id]; assigned {
			continue
		}
		bk := b.bookings[id]
		tr := b.tourRuns[bk.TourRunKey]
		gid := model.RunGroupID(bk.TourRunKey)
		if bk.IsExclusive() {
			gid = model.CharterGroupID(bk.ID)
		}
		i, ok := byID[gid]
		if !ok {
			i = len(b.Groups)
			byID[gid] = i
			b.Groups = append(b.Groups, model.UnassignedGroup{
				ID:              gid,
				RunKey:          bk.TourRunKey,
				Tour:            bk.Tour,
				Time:            timegrid.FormatClock(b.Window.Minutes(bk.Time)),
				DurationMinutes: durationOr(tr.DurationMinutes),
			})
		}
		g := &b.Groups[i]
		g.BookingIDs = append(g.BookingIDs, bk.ID)
		g.Guests += bk.Guests()
		g.Exclusive = g.Exclusive || bk.IsExclusive()
	}
	sort.SliceStable(b.Groups, func(i, j int) bool {
		ti, tj := b.Window.Minutes(b.Groups[i].Time), b.Window.Minutes(b.Groups[j].Time)
		if ti != tj {
			return ti < tj
		}
		return b.Groups[i].ID < b.Groups[j].ID
	})
	for i, g := range b.Groups {
		b.groupIndex[g.ID] = i
	}
}

func durationOr(d int) int {
	if d <= 0 {
		return DefaultDurationMinutes
	}
	return d
}

// Row returns the guide row with the given id.
func (b *Board) Row(guideID string) (model.GuideRow, bool) {
	i, ok := b.rowIndex[guideID]
	if !ok {
		return model.GuideRow{}, false
	}
	return b.Rows[i], true
}

// Run returns the run with the given id.
func (b *Board) Run(runID string) (model.Run, bool) {
	ref, ok := b.runIndex[runID]
	if !ok {
		return model.Run{}, false
	}
	return b.Rows[ref.row].Runs[ref.run], true
}

// Booking returns the booking with the given id.
func (b *Board) Booking(id string) (model.Booking, bool) {
	bk, ok := b.bookings[id]
	return bk, ok
}

// Bookings resolves ids into bookings, failing on the first unknown id.
func (b *Board) Bookings(ids []string) ([]model.Booking, error) {
	out := make([]model.Booking, 0, len(ids))
	for _, id := range ids {
		bk, ok := b.bookings[id]
		if !ok {
			return nil, ErrUnknownBooking
		}
		out = append(out, bk)
	}
	return out, nil
}

// RunOf returns the run currently carrying the booking.
func (b *Board) RunOf(bookingID string) (model.Run, bool) {
	runID, ok := b.bookingRun[bookingID]
	if !ok {
		return model.Run{}, false
	}
	return b.Run(runID)
}

// GuideOf returns the guide currently holding the booking.
func (b *Board) GuideOf(bookingID string) (string, bool) {
	run, ok := b.RunOf(bookingID)
	if !ok {
		return "", false
	}
	return run.GuideID, true
}

// Group returns the queue group with the given id.
func (b *Board) Group(id string) (model.UnassignedGroup, bool) {
	i, ok := b.groupIndex[id]
	if !ok {
		return model.UnassignedGroup{}, false
	}
	return b.Groups[i], true
}

// TourRun returns the tour run with the given key.
func (b *Board) TourRun(key string) (model.TourRun, bool) {
	tr, ok := b.tourRuns[key]
	return tr, ok
}

// RunByKey returns the run of the guide built from the given run key.
func (b *Board) RunByKey(guideID, key string) (model.Run, bool) {
	return b.Run(model.RunID(guideID, key))
}

// RunsInSlot returns the runs of the guide starting at the given minute.
func (b *Board) RunsInSlot(guideID string, minutes int) []model.Run {
	row, ok := b.Row(guideID)
	if !ok {
		return nil
	}
	var out []model.Run
	for _, r := range row.Runs {
		if b.Window.Minutes(r.Start) == minutes {
			out = append(out, r)
		}
	}
	return out
}
