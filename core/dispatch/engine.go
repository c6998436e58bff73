// Package dispatch turns user intents into reversible dispatch operations
// and commits them through an external applier.
package dispatch

import (
	"errors"
	"fmt"
	"sort"

	"github.com/kilianp07/dispatchboard/core/constraint"
	"github.com/kilianp07/dispatchboard/core/logger"
	"github.com/kilianp07/dispatchboard/core/model"
	"github.com/kilianp07/dispatchboard/core/timegrid"
	"github.com/kilianp07/dispatchboard/core/viewmodel"
)

// ErrRunMismatch is returned when a run is addressed through a guide that
// does not carry it.
var ErrRunMismatch = errors.New("run not carried by guide")

// BoardSource yields the board an action is computed against.
type BoardSource interface {
	Board() *viewmodel.Board
}

// BoardFunc adapts a function to BoardSource.
type BoardFunc func() *viewmodel.Board

func (f BoardFunc) Board() *viewmodel.Board { return f() }

// Notifier surfaces rejections to the operator.
type Notifier interface {
	Reject(v *constraint.Violation)
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(v *constraint.Violation)

func (f NotifierFunc) Reject(v *constraint.Violation) { f(v) }

// Engine computes the operation of every board action. Entry points are
// synchronous and never mutate the board. They return:
//   - a nil operation and nil error for closed gates and no-op inputs,
//   - a nil operation and a *constraint.Violation when a check fails,
//   - a validated operation otherwise.
type Engine struct {
	boards   BoardSource
	notifier Notifier
	log      logger.Logger
}

// NewEngine creates an engine reading boards from src.
func NewEngine(src BoardSource, n Notifier, log logger.Logger) (*Engine, error) {
	if src == nil || log == nil {
		return nil, fmt.Errorf("dispatch: nil parameter provided to NewEngine")
	}
	if n == nil {
		n = NotifierFunc(func(*constraint.Violation) {})
	}
	return &Engine{boards: src, notifier: n, log: log}, nil
}

func (e *Engine) reject(v *constraint.Violation) (*model.DispatchOperation, error) {
	rejectionsTotal.WithLabelValues(string(v.Kind)).Inc()
	e.log.Warnf("rejected: %s", v.Message)
	e.notifier.Reject(v)
	return nil, v
}

// Assign attaches bookings to guideID. Queued bookings produce an assign
// change, bookings held by another guide a reassign. Bookings already on
// the target are left alone.
func (e *Engine) Assign(gate model.Gate, bookingIDs []string, guideID string) (*model.DispatchOperation, error) {
	if !gate.Allows() {
		return nil, nil
	}
	b := e.boards.Board()
	row, ok := b.Row(guideID)
	if !ok {
		return nil, fmt.Errorf("dispatch: %w: %s", viewmodel.ErrUnknownGuide, guideID)
	}
	incoming, err := b.Bookings(unique(bookingIDs))
	if err != nil {
		return nil, fmt.Errorf("dispatch: %w", err)
	}
	var moving []model.Booking
	for _, bk := range incoming {
		if !row.Holds(bk.ID) {
			moving = append(moving, bk)
		}
	}
	if len(moving) == 0 {
		return nil, nil
	}
	if v := constraint.Capacity(row, incoming); v != nil {
		return e.reject(v)
	}

	landing := landingStarts(b, guideID)
	emptied := make(map[string][]string)
	var changes, undo []model.Change
	for _, bk := range moving {
		src, held := b.RunOf(bk.ID)
		if !held {
			changes = append(changes, model.Assign{BookingID: bk.ID, ToGuideID: guideID})
			undo = append(undo, model.Unassign{BookingIDs: []string{bk.ID}, FromGuideID: guideID})
			landing.claim(bk.TourRunKey, tourTime(b, bk))
			continue
		}
		changes = append(changes, model.Reassign{BookingIDs: []string{bk.ID}, FromGuideID: src.GuideID, ToGuideID: guideID})
		undo = append(undo, model.Reassign{BookingIDs: []string{bk.ID}, FromGuideID: guideID, ToGuideID: src.GuideID})
		landing.claim(bk.TourRunKey, src.Start)
		emptied[src.ID] = append(emptied[src.ID], bk.ID)
	}
	for _, slot := range landing.slots(b.Window, moving) {
		if v := constraint.CharterExclusive(b.Window, row, slot.start, slot.bookings, ""); v != nil {
			return e.reject(v)
		}
	}
	reverse(undo)
	undo = append(undo, restoreStarts(b, emptied, landing)...)

	desc := fmt.Sprintf("Assign %s to %s", describeBookings(moving), row.Name())
	return e.finish(desc, changes, undo)
}

// BestFit assigns bookings to the tightest fitting guide.
func (e *Engine) BestFit(gate model.Gate, bookingIDs []string) (*model.DispatchOperation, error) {
	if !gate.Allows() {
		return nil, nil
	}
	b := e.boards.Board()
	incoming, err := b.Bookings(unique(bookingIDs))
	if err != nil {
		return nil, fmt.Errorf("dispatch: %w", err)
	}
	cands := rank(b, incoming)
	if len(cands) == 0 {
		return e.reject(constraint.NoCandidate(model.TotalGuests(incoming)))
	}
	e.log.Debugw("best fit", map[string]any{
		"guide":      cands[0].GuideID,
		"remaining":  cands[0].Remaining,
		"candidates": len(cands),
	})
	return e.Assign(gate, bookingIDs, cands[0].GuideID)
}

// Candidate is a guide able to take a booking set without overflowing.
type Candidate struct {
	GuideID     string  `json:"guideId"`
	Name        string  `json:"name"`
	Projected   int     `json:"projected"`
	Remaining   int     `json:"remaining"`
	Utilization float64 `json:"utilization"`
}

// RankCandidates orders the guides able to take the bookings: fewest
// remaining seats first, then highest current utilization. Name and id
// break the remaining ties so the ranking is deterministic.
func (e *Engine) RankCandidates(bookingIDs []string) ([]Candidate, error) {
	b := e.boards.Board()
	incoming, err := b.Bookings(unique(bookingIDs))
	if err != nil {
		return nil, fmt.Errorf("dispatch: %w", err)
	}
	return rank(b, incoming), nil
}

func rank(b *viewmodel.Board, incoming []model.Booking) []Candidate {
	var out []Candidate
	for _, row := range b.Rows {
		projected := constraint.Projected(row, incoming)
		remaining := row.VehicleCapacity - projected
		if remaining < 0 {
			continue
		}
		out = append(out, Candidate{
			GuideID:     row.ID(),
			Name:        row.Name(),
			Projected:   projected,
			Remaining:   remaining,
			Utilization: row.Utilization,
		})
	}
	sort.SliceStable(out, func(i, j int) bool {
		a, c := out[i], out[j]
		if a.Remaining != c.Remaining {
			return a.Remaining < c.Remaining
		}
		if a.Utilization != c.Utilization {
			return a.Utilization > c.Utilization
		}
		if a.Name != c.Name {
			return a.Name < c.Name
		}
		return a.GuideID < c.GuideID
	})
	return out
}

// MoveRun hands a whole run to another guide, keeping its start time.
func (e *Engine) MoveRun(gate model.Gate, fromGuideID, runID, toGuideID string) (*model.DispatchOperation, error) {
	return e.move(gate, fromGuideID, runID, toGuideID, "")
}

// MoveRunAt hands a run to another guide and starts it at newStart.
func (e *Engine) MoveRunAt(gate model.Gate, fromGuideID, runID, toGuideID, newStart string) (*model.DispatchOperation, error) {
	return e.move(gate, fromGuideID, runID, toGuideID, newStart)
}

func (e *Engine) move(gate model.Gate, fromGuideID, runID, toGuideID, newStart string) (*model.DispatchOperation, error) {
	if !gate.Allows() {
		return nil, nil
	}
	if fromGuideID == toGuideID {
		if newStart == "" {
			return nil, nil
		}
		return e.Reschedule(gate, fromGuideID, runID, newStart)
	}
	b := e.boards.Board()
	run, err := lookupRun(b, fromGuideID, runID)
	if err != nil {
		return nil, err
	}
	to, ok := b.Row(toGuideID)
	if !ok {
		return nil, fmt.Errorf("dispatch: %w: %s", viewmodel.ErrUnknownGuide, toGuideID)
	}
	bookings, err := b.Bookings(run.BookingIDs)
	if err != nil {
		return nil, fmt.Errorf("dispatch: %w", err)
	}

	start := run.Start
	shift := false
	if newStart != "" {
		snapped := b.Window.Snap(newStart, run.DurationMinutes)
		if !b.Window.SameSlot(snapped, run.Start, run.DurationMinutes) {
			start, shift = snapped, true
		}
	}
	// A run whose key already exists on the target merges into that run
	// and takes its start; a time shift then moves the merged run.
	landed := run.Start
	slot, incoming, exclude := start, bookings, run.ID
	if existing, ok := b.RunByKey(toGuideID, run.Key); ok {
		if v := constraint.CharterMerge(b.Window, to, existing, bookings); v != nil {
			return e.reject(v)
		}
		merged, err := b.Bookings(append(append([]string(nil), existing.BookingIDs...), run.BookingIDs...))
		if err != nil {
			return nil, fmt.Errorf("dispatch: %w", err)
		}
		landed = existing.Start
		incoming, exclude = merged, existing.ID
		if !shift {
			slot = landed
		}
	}
	if v := constraint.CharterExclusive(b.Window, to, slot, incoming, exclude); v != nil {
		return e.reject(v)
	}
	if v := constraint.Capacity(to, bookings); v != nil {
		return e.reject(v)
	}

	ids := append([]string(nil), run.BookingIDs...)
	changes := []model.Change{model.Reassign{BookingIDs: ids, FromGuideID: fromGuideID, ToGuideID: toGuideID}}
	undo := []model.Change{model.Reassign{BookingIDs: ids, FromGuideID: toGuideID, ToGuideID: fromGuideID}}

	desc := fmt.Sprintf("Move %s %s from %s to %s", run.Tour, run.Start, rowName(b, fromGuideID), to.Name())
	if shift {
		changes = append(changes, model.TimeShift{BookingIDs: ids, GuideID: toGuideID, NewStartTime: start})
		undo = append([]model.Change{model.TimeShift{BookingIDs: ids, GuideID: toGuideID, NewStartTime: landed}}, undo...)
		desc += " at " + start
	}
	if !sameMinute(b.Window, landed, run.Start) {
		undo = append(undo, model.TimeShift{BookingIDs: ids, GuideID: fromGuideID, NewStartTime: run.Start})
	}
	return e.finish(desc, changes, undo)
}

// Reschedule moves a run to a new start time on the same guide. The time
// is snapped to the grid; a request landing on the current slot is a no-op.
func (e *Engine) Reschedule(gate model.Gate, guideID, runID, newStart string) (*model.DispatchOperation, error) {
	if !gate.Allows() {
		return nil, nil
	}
	b := e.boards.Board()
	run, err := lookupRun(b, guideID, runID)
	if err != nil {
		return nil, err
	}
	snapped := b.Window.Snap(newStart, run.DurationMinutes)
	if b.Window.SameSlot(snapped, run.Start, run.DurationMinutes) {
		return nil, nil
	}
	row, _ := b.Row(guideID)
	bookings, err := b.Bookings(run.BookingIDs)
	if err != nil {
		return nil, fmt.Errorf("dispatch: %w", err)
	}
	if v := constraint.CharterExclusive(b.Window, row, snapped, bookings, run.ID); v != nil {
		return e.reject(v)
	}
	ids := append([]string(nil), run.BookingIDs...)
	desc := fmt.Sprintf("Reschedule %s from %s to %s", run.Tour, run.Start, snapped)
	return e.finish(desc,
		[]model.Change{model.TimeShift{BookingIDs: ids, GuideID: guideID, NewStartTime: snapped}},
		[]model.Change{model.TimeShift{BookingIDs: ids, GuideID: guideID, NewStartTime: run.Start}},
	)
}

// Nudge shifts a run by deltaMinutes, typically one grid step.
func (e *Engine) Nudge(gate model.Gate, guideID, runID string, deltaMinutes int) (*model.DispatchOperation, error) {
	if !gate.Allows() {
		return nil, nil
	}
	b := e.boards.Board()
	run, err := lookupRun(b, guideID, runID)
	if err != nil {
		return nil, err
	}
	target := b.Window.SnapMinutesOf(b.Window.Minutes(run.Start)+deltaMinutes, run.DurationMinutes)
	return e.Reschedule(gate, guideID, runID, timegrid.FormatClock(target))
}

// ReturnToQueue unassigns every booking of a run. The undo assigns each
// booking back separately since the queue holds no single run.
func (e *Engine) ReturnToQueue(gate model.Gate, guideID, runID string) (*model.DispatchOperation, error) {
	if !gate.Allows() {
		return nil, nil
	}
	b := e.boards.Board()
	run, err := lookupRun(b, guideID, runID)
	if err != nil {
		return nil, err
	}
	ids := append([]string(nil), run.BookingIDs...)
	undo := make([]model.Change, 0, len(ids)+1)
	restoreAt := ""
	for _, id := range ids {
		undo = append(undo, model.Assign{BookingID: id, ToGuideID: guideID})
		if bk, ok := b.Booking(id); ok && restoreAt == "" && !sameMinute(b.Window, tourTime(b, bk), run.Start) {
			restoreAt = run.Start
		}
	}
	if restoreAt != "" {
		undo = append(undo, model.TimeShift{BookingIDs: ids, GuideID: guideID, NewStartTime: restoreAt})
	}
	desc := fmt.Sprintf("Return %s %s from %s to queue", run.Tour, run.Start, rowName(b, guideID))
	return e.finish(desc, []model.Change{model.Unassign{BookingIDs: ids, FromGuideID: guideID}}, undo)
}

// Unassign is ReturnToQueue triggered by dropping a run on the queue.
func (e *Engine) Unassign(gate model.Gate, guideID, runID string) (*model.DispatchOperation, error) {
	return e.ReturnToQueue(gate, guideID, runID)
}

func (e *Engine) finish(desc string, changes, undo []model.Change) (*model.DispatchOperation, error) {
	op := model.NewOperation(desc, changes, undo)
	if err := op.Validate(); err != nil {
		return nil, fmt.Errorf("dispatch: %s: %w", desc, err)
	}
	e.log.Debugw("operation built", map[string]any{
		"id":       op.ID,
		"desc":     desc,
		"changes":  len(op.Changes),
		"undo":     len(op.UndoChanges),
		"bookings": op.Changes.Bookings(),
	})
	return op, nil
}

func lookupRun(b *viewmodel.Board, guideID, runID string) (model.Run, error) {
	run, ok := b.Run(runID)
	if !ok {
		return model.Run{}, fmt.Errorf("dispatch: %w: %s", viewmodel.ErrUnknownRun, runID)
	}
	if run.GuideID != guideID {
		return model.Run{}, fmt.Errorf("dispatch: %w: %s on %s", ErrRunMismatch, runID, guideID)
	}
	return run, nil
}

func rowName(b *viewmodel.Board, guideID string) string {
	if row, ok := b.Row(guideID); ok {
		return row.Name()
	}
	return guideID
}

// tourTime is the start a queued booking gets when assigned.
func tourTime(b *viewmodel.Board, bk model.Booking) string {
	if tr, ok := b.TourRun(bk.TourRunKey); ok && tr.Time != "" {
		return tr.Time
	}
	return bk.Time
}

func sameMinute(w timegrid.Window, a, b string) bool {
	return w.Minutes(a) == w.Minutes(b)
}

// landing tracks the start each run key will have on the target guide
// once the forward changes are applied.
type landing struct {
	starts map[string]string
}

func landingStarts(b *viewmodel.Board, guideID string) landing {
	l := landing{starts: make(map[string]string)}
	if row, ok := b.Row(guideID); ok {
		for _, r := range row.Runs {
			l.starts[r.Key] = r.Start
		}
	}
	return l
}

func (l landing) claim(key, start string) {
	if _, ok := l.starts[key]; !ok {
		l.starts[key] = start
	}
}

// landingSlot groups the bookings that land at the same start.
type landingSlot struct {
	start    string
	bookings []model.Booking
}

// slots groups bookings by the minute they land at, earliest first.
func (l landing) slots(w timegrid.Window, bookings []model.Booking) []landingSlot {
	byMinute := make(map[int]*landingSlot)
	var minutes []int
	for _, bk := range bookings {
		start := l.starts[bk.TourRunKey]
		m := w.Minutes(start)
		s, ok := byMinute[m]
		if !ok {
			s = &landingSlot{start: start}
			byMinute[m] = s
			minutes = append(minutes, m)
		}
		s.bookings = append(s.bookings, bk)
	}
	sort.Ints(minutes)
	out := make([]landingSlot, 0, len(minutes))
	for _, m := range minutes {
		out = append(out, *byMinute[m])
	}
	return out
}

// restoreStarts returns the time shifts needed after undoing reassigns so
// that source runs emptied by the forward batch come back at their own
// start instead of the start they adopted on the target.
func restoreStarts(b *viewmodel.Board, emptied map[string][]string, l landing) []model.Change {
	ids := make([]string, 0, len(emptied))
	for runID := range emptied {
		ids = append(ids, runID)
	}
	sort.Strings(ids)
	var out []model.Change
	for _, runID := range ids {
		run, _ := b.Run(runID)
		if len(emptied[runID]) != len(run.BookingIDs) {
			continue
		}
		if sameMinute(b.Window, l.starts[run.Key], run.Start) {
			continue
		}
		out = append(out, model.TimeShift{
			BookingIDs:   append([]string(nil), run.BookingIDs...),
			GuideID:      run.GuideID,
			NewStartTime: run.Start,
		})
	}
	return out
}

func describeBookings(bookings []model.Booking) string {
	if len(bookings) == 1 {
		return "booking " + bookings[0].ID
	}
	return fmt.Sprintf("%d bookings", len(bookings))
}

func unique(ids []string) []string {
	seen := make(map[string]bool, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}

func reverse(changes []model.Change) {
	for i, j := 0, len(changes)-1; i < j; i, j = i+1, j-1 {
		changes[i], changes[j] = changes[j], changes[i]
	}
}
