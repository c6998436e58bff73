package metrics

import (
	"time"
)

// OperationRecord is one applied (or failed) dispatch operation.
type OperationRecord struct {
	OperationID string
	Description string
	// Action is "commit", "undo" or "redo".
	Action   string
	Kinds    []string
	Guides   []string
	Bookings int
	Latency  time.Duration
	Success  bool
	Time     time.Time
}

// MetricsSink records dispatch operations for observability purposes.
type MetricsSink interface {
	RecordOperation(rec OperationRecord) error
}

// RejectionEvent captures an action refused by a constraint check.
type RejectionEvent struct {
	Kind    string
	GuideID string
	Message string
	Time    time.Time
}

// RejectionRecorder records rejected actions.
type RejectionRecorder interface {
	RecordRejection(ev RejectionEvent) error
}

// GuideLoad is the seat usage of one guide after a commit.
type GuideLoad struct {
	GuideID     string
	Guests      int
	Capacity    int
	Utilization float64
	Time        time.Time
}

// LoadRecorder records guide loads.
type LoadRecorder interface {
	RecordGuideLoad(loads []GuideLoad) error
}

// NopSink implements every recorder with no-op methods.
type NopSink struct{}

func (NopSink) RecordOperation(OperationRecord) error { return nil }
func (NopSink) RecordRejection(RejectionEvent) error  { return nil }
func (NopSink) RecordGuideLoad([]GuideLoad) error     { return nil }
