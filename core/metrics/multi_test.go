package metrics

import (
	"errors"
	"testing"
)

type recordSink struct {
	ops   int
	loads int
	err   error
}

func (r *recordSink) RecordOperation(OperationRecord) error {
	r.ops++
	return r.err
}

func (r *recordSink) RecordGuideLoad([]GuideLoad) error {
	r.loads++
	return nil
}

type opsOnly struct{ ops int }

func (o *opsOnly) RecordOperation(OperationRecord) error {
	o.ops++
	return nil
}

// TestMultiSink ensures records reach every sink supporting them.
func TestMultiSink(t *testing.T) {
	s1 := &recordSink{}
	s2 := &opsOnly{}
	m := NewMultiSink(s1, s2)
	if err := m.RecordOperation(OperationRecord{}); err != nil {
		t.Fatalf("record operation: %v", err)
	}
	if err := m.RecordGuideLoad(nil); err != nil {
		t.Fatalf("record load: %v", err)
	}
	if err := m.RecordRejection(RejectionEvent{}); err != nil {
		t.Fatalf("record rejection: %v", err)
	}
	if s1.ops != 1 || s2.ops != 1 || s1.loads != 1 {
		t.Fatalf("records not forwarded: %+v %+v", s1, s2)
	}
}

func TestMultiSinkJoinsErrors(t *testing.T) {
	boom := errors.New("boom")
	m := NewMultiSink(&recordSink{err: boom}, &opsOnly{})
	if err := m.RecordOperation(OperationRecord{}); !errors.Is(err, boom) {
		t.Fatalf("expected joined error, got %v", err)
	}
}
