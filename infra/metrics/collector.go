package metrics

import (
	"context"
	"time"

	"github.com/kilianp07/dispatchboard/core/events"
	coremetrics "github.com/kilianp07/dispatchboard/core/metrics"
	"github.com/kilianp07/dispatchboard/core/viewmodel"
	"github.com/kilianp07/dispatchboard/internal/eventbus"
)

// Loads returns the seat usage of every guide on the board.
func Loads(b *viewmodel.Board, at time.Time) []coremetrics.GuideLoad {
	out := make([]coremetrics.GuideLoad, 0, len(b.Rows))
	for _, row := range b.Rows {
		out = append(out, coremetrics.GuideLoad{
			GuideID:     row.ID(),
			Guests:      row.TotalGuests,
			Capacity:    row.VehicleCapacity,
			Utilization: row.Utilization,
			Time:        at,
		})
	}
	return out
}

// StartEventCollector subscribes to the event bus and forwards rejections
// and post-commit guide loads to the sink. It stops when the context is
// canceled or the bus is closed. The returned channel is closed once the
// collector goroutine has exited.
func StartEventCollector(ctx context.Context, bus *eventbus.TypedBus[events.Event], sink coremetrics.MetricsSink, board func() *viewmodel.Board) <-chan struct{} {
	done := make(chan struct{})
	if bus == nil || sink == nil {
		close(done)
		return done
	}
	sub := bus.Subscribe()
	go func() {
		defer close(done)
		defer bus.Unsubscribe(sub)
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-sub:
				if !ok {
					return
				}
				switch e := ev.(type) {
				case events.RejectionEvent:
					if r, ok := sink.(coremetrics.RejectionRecorder); ok && e.Violation != nil {
						_ = r.RecordRejection(coremetrics.RejectionEvent{
							Kind:    string(e.Violation.Kind),
							GuideID: e.Violation.GuideID,
							Message: e.Violation.Message,
							Time:    time.Now(),
						})
					}
				case events.OperationEvent:
					if r, ok := sink.(coremetrics.LoadRecorder); ok && e.Err == nil && board != nil {
						_ = r.RecordGuideLoad(Loads(board(), time.Now()))
					}
				}
			}
		}
	}()
	return done
}
