package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"

	coremetrics "github.com/kilianp07/dispatchboard/core/metrics"
)

type lineServer struct {
	mu     sync.Mutex
	bodies []string
	srv    *httptest.Server
}

func newLineServer(t *testing.T) *lineServer {
	t.Helper()
	ls := &lineServer{}
	ls.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		data, _ := io.ReadAll(r.Body)
		ls.mu.Lock()
		ls.bodies = append(ls.bodies, strings.TrimSpace(string(data)))
		ls.mu.Unlock()
		w.WriteHeader(http.StatusNoContent)
	}))
	t.Cleanup(ls.srv.Close)
	return ls
}

func (ls *lineServer) sink() *InfluxSink {
	return NewInfluxSink(InfluxConfig{URL: ls.srv.URL, Token: "token", Org: "org", Bucket: "bucket"})
}

func line(p *write.Point) string {
	return strings.TrimSpace(write.PointToLineProtocol(p, time.Nanosecond))
}

func TestInfluxSink_RecordOperation(t *testing.T) {
	ls := newLineServer(t)
	now := time.Now()
	rec := coremetrics.OperationRecord{
		OperationID: "op1",
		Description: "Assign booking b1 to Ana",
		Action:      "commit",
		Kinds:       []string{"assign", "reassign"},
		Guides:      []string{"ana", "ben"},
		Bookings:    2,
		Latency:     1500 * time.Microsecond,
		Success:     true,
		Time:        now,
	}
	if err := ls.sink().RecordOperation(rec); err != nil {
		t.Fatalf("record error: %v", err)
	}
	p := write.NewPointWithMeasurement("dispatch_operation").
		AddTag("operation_id", "op1").
		AddTag("action", "commit").
		AddTag("success", "true").
		AddTag("component", "committer").
		AddField("changes", 2).
		AddField("kinds", "assign,reassign").
		AddField("guides", "ana,ben").
		AddField("bookings", 2).
		AddField("latency_ms", 1.5).
		SetTime(now)
	if len(ls.bodies) != 1 || ls.bodies[0] != line(p) {
		t.Errorf("unexpected bodies: %#v", ls.bodies)
	}
}

func TestInfluxSink_RecordRejection(t *testing.T) {
	ls := newLineServer(t)
	now := time.Now()
	ev := coremetrics.RejectionEvent{Kind: "capacity", GuideID: "ana", Message: "Ana: 7/6 seats", Time: now}
	if err := ls.sink().RecordRejection(ev); err != nil {
		t.Fatalf("record: %v", err)
	}
	p := write.NewPointWithMeasurement("dispatch_rejection").
		AddTag("kind", "capacity").
		AddTag("guide_id", "ana").
		AddField("message", "Ana: 7/6 seats").
		SetTime(now)
	if len(ls.bodies) != 1 || ls.bodies[0] != line(p) {
		t.Errorf("bodies: %#v", ls.bodies)
	}
}

func TestInfluxSink_RecordGuideLoad(t *testing.T) {
	ls := newLineServer(t)
	now := time.Now()
	loads := []coremetrics.GuideLoad{
		{GuideID: "ana", Guests: 4, Capacity: 6, Utilization: 4.0 / 6, Time: now},
		{GuideID: "ben", Guests: 0, Capacity: 8, Time: now},
	}
	if err := ls.sink().RecordGuideLoad(loads); err != nil {
		t.Fatalf("record: %v", err)
	}
	p := write.NewPointWithMeasurement("guide_load").
		AddTag("guide_id", "ana").
		AddField("guests", 4).
		AddField("capacity", 6).
		AddField("utilization", 0.667).
		SetTime(now)
	if len(ls.bodies) != 2 || ls.bodies[0] != line(p) {
		t.Errorf("bodies: %#v", ls.bodies)
	}
}

func TestNewInfluxSinkWithFallback(t *testing.T) {
	called := false
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/health" {
			called = true
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
	}))
	defer srv.Close()

	sink := NewInfluxSinkWithFallback(InfluxConfig{URL: srv.URL + "/api/v2/write", Token: "tok", Org: "org", Bucket: "bucket"})
	if _, ok := sink.(*InfluxSink); ok {
		t.Fatalf("expected NopSink on failing health check")
	}
	if !called {
		t.Fatalf("health endpoint not called")
	}
}
