package metrics

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/dispatchboard/core/constraint"
	"github.com/kilianp07/dispatchboard/core/events"
	coremetrics "github.com/kilianp07/dispatchboard/core/metrics"
	"github.com/kilianp07/dispatchboard/core/model"
	"github.com/kilianp07/dispatchboard/core/timegrid"
	"github.com/kilianp07/dispatchboard/core/viewmodel"
	"github.com/kilianp07/dispatchboard/internal/eventbus"
	"github.com/kilianp07/dispatchboard/internal/fixture"
)

type captureSink struct {
	coremetrics.NopSink
	mu         sync.Mutex
	rejections []coremetrics.RejectionEvent
	loads      [][]coremetrics.GuideLoad
}

func (c *captureSink) RecordRejection(ev coremetrics.RejectionEvent) error {
	c.mu.Lock()
	c.rejections = append(c.rejections, ev)
	c.mu.Unlock()
	return nil
}

func (c *captureSink) RecordGuideLoad(l []coremetrics.GuideLoad) error {
	c.mu.Lock()
	c.loads = append(c.loads, l)
	c.mu.Unlock()
	return nil
}

func (c *captureSink) counts() (int, int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.rejections), len(c.loads)
}

func TestEventCollector(t *testing.T) {
	board := viewmodel.Build(fixture.New().
		Guide("ana", "Ana", 6).
		TourRun("bay", "Bay", "09:00", 60, fixture.Booking("b1", 3, model.ModeJoin)).
		Run("ana", "bay", "09:00", "b1").
		Snapshot(), timegrid.DefaultWindow)

	bus := eventbus.NewTyped[events.Event]()
	sink := &captureSink{}
	ctx, cancel := context.WithCancel(context.Background())
	done := StartEventCollector(ctx, bus, sink, func() *viewmodel.Board { return board })
	require.Eventually(t, func() bool { return bus.Subscribers() == 1 }, time.Second, time.Millisecond)

	bus.Publish(events.RejectionEvent{Violation: &constraint.Violation{Kind: constraint.KindCapacity, GuideID: "ana", Message: "full"}})
	bus.Publish(events.OperationEvent{Action: "commit"})
	bus.Publish(events.BusyEvent{Description: "ignored"})

	require.Eventually(t, func() bool {
		r, l := sink.counts()
		return r == 1 && l == 1
	}, time.Second, 5*time.Millisecond)

	assert.Equal(t, "capacity", sink.rejections[0].Kind)
	require.Len(t, sink.loads[0], 1)
	assert.Equal(t, coremetrics.GuideLoad{GuideID: "ana", Guests: 3, Capacity: 6, Utilization: 0.5, Time: sink.loads[0][0].Time}, sink.loads[0][0])

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("collector did not stop")
	}
	assert.Zero(t, bus.Subscribers())
}

func TestEventCollectorNilBus(t *testing.T) {
	done := StartEventCollector(context.Background(), nil, coremetrics.NopSink{}, nil)
	select {
	case <-done:
	default:
		t.Fatal("expected closed channel")
	}
}
