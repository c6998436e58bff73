// Package journal persists committed dispatch operations so the day's
// changes can be audited and queried after the fact.
package journal

import (
	"context"
	"slices"
	"time"

	"github.com/kilianp07/dispatchboard/core/model"
)

// Action tells how an operation reached the board.
type Action string

const (
	ActionCommit Action = "commit"
	ActionUndo   Action = "undo"
	ActionRedo   Action = "redo"
)

// Record captures one applied (or failed) operation.
type Record struct {
	Timestamp   time.Time        `json:"timestamp"`
	OperationID string           `json:"operation_id"`
	Action      Action           `json:"action"`
	Description string           `json:"description"`
	Changes     model.ChangeList `json:"changes"`
	UndoChanges model.ChangeList `json:"undo_changes"`
	Guides      []string         `json:"guides"`
	Bookings    []string         `json:"bookings"`
	Latency     time.Duration    `json:"latency_ns"`
	Error       string           `json:"error,omitempty"`
}

// NewRecord builds the journal entry of op.
func NewRecord(op *model.DispatchOperation, action Action, latency time.Duration, err error) Record {
	rec := Record{
		Timestamp:   time.Now(),
		OperationID: op.ID,
		Action:      action,
		Description: op.Description,
		Changes:     op.Changes,
		UndoChanges: op.UndoChanges,
		Guides:      op.Changes.Guides(),
		Bookings:    op.Changes.Bookings(),
		Latency:     latency,
	}
	if err != nil {
		rec.Error = err.Error()
	}
	return rec
}

// Query filters records. Zero fields match everything. Limit keeps the
// most recent records.
type Query struct {
	Start     time.Time
	End       time.Time
	GuideID   string
	BookingID string
	Action    Action
	Limit     int
}

// Match reports whether r satisfies the query filters, ignoring Limit.
func (q Query) Match(r Record) bool {
	if !q.Start.IsZero() && r.Timestamp.Before(q.Start) {
		return false
	}
	if !q.End.IsZero() && r.Timestamp.After(q.End) {
		return false
	}
	if q.Action != "" && r.Action != q.Action {
		return false
	}
	if q.GuideID != "" && !slices.Contains(r.Guides, q.GuideID) {
		return false
	}
	if q.BookingID != "" && !slices.Contains(r.Bookings, q.BookingID) {
		return false
	}
	return true
}

func (q Query) apply(in []Record) []Record {
	var out []Record
	for _, r := range in {
		if q.Match(r) {
			out = append(out, r)
		}
	}
	if q.Limit > 0 && len(out) > q.Limit {
		out = out[len(out)-q.Limit:]
	}
	return out
}

// Store persists records and supports querying.
type Store interface {
	Append(ctx context.Context, rec Record) error
	Query(ctx context.Context, q Query) ([]Record, error)
	Close() error
}
