package dispatch

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/kilianp07/dispatchboard/core/events"
	"github.com/kilianp07/dispatchboard/core/journal"
	"github.com/kilianp07/dispatchboard/core/logger"
	"github.com/kilianp07/dispatchboard/core/metrics"
	"github.com/kilianp07/dispatchboard/core/model"
	"github.com/kilianp07/dispatchboard/core/monitoring"
	"github.com/kilianp07/dispatchboard/internal/eventbus"
)

var (
	// ErrBusy is returned when an apply is already in flight. The dropped
	// action is not queued.
	ErrBusy = errors.New("dispatch: another operation is being applied")
	// ErrReadOnly is returned by callers refusing actions on a read-only
	// board.
	ErrReadOnly = errors.New("dispatch: board is read-only")
)

// Applier executes a committed operation against the system of record.
type Applier interface {
	Apply(ctx context.Context, op *model.DispatchOperation) error
}

// ApplierFunc adapts a function to Applier.
type ApplierFunc func(ctx context.Context, op *model.DispatchOperation) error

func (f ApplierFunc) Apply(ctx context.Context, op *model.DispatchOperation) error { return f(ctx, op) }

// Chain applies op with each applier in order and stops at the first
// failure. It is used to store an operation remotely before applying it to
// the local board.
func Chain(appliers ...Applier) Applier {
	return ApplierFunc(func(ctx context.Context, op *model.DispatchOperation) error {
		for _, a := range appliers {
			if err := a.Apply(ctx, op); err != nil {
				return err
			}
		}
		return nil
	})
}

// Committer serializes applies. While one is pending every other commit
// fails fast with ErrBusy.
type Committer struct {
	applier  Applier
	timeout  time.Duration
	metrics  metrics.MetricsSink
	bus      *eventbus.TypedBus[events.Event]
	logger   logger.Logger
	store    journal.Store
	mu       sync.Mutex
	mutating bool
}

// NewCommitter creates a committer. A zero timeout defaults to five seconds.
func NewCommitter(applier Applier, timeout time.Duration, sink metrics.MetricsSink, bus *eventbus.TypedBus[events.Event], log logger.Logger) (*Committer, error) {
	if applier == nil || log == nil {
		return nil, fmt.Errorf("dispatch: nil parameter provided to NewCommitter")
	}
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	if sink == nil {
		sink = metrics.NopSink{}
	}
	return &Committer{applier: applier, timeout: timeout, metrics: sink, bus: bus, logger: log}, nil
}

// SetJournal configures the store committed operations are appended to.
func (c *Committer) SetJournal(store journal.Store) {
	c.mu.Lock()
	c.store = store
	c.mu.Unlock()
}

// Mutating reports whether an apply is in flight.
func (c *Committer) Mutating() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.mutating
}

// Gate returns the gate for the given editing flags and the current
// mutating state.
func (c *Committer) Gate(editing, readOnly bool) model.Gate {
	return model.Gate{Editing: editing, ReadOnly: readOnly, Mutating: c.Mutating()}
}

func (c *Committer) acquire() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.mutating {
		return false
	}
	c.mutating = true
	return true
}

func (c *Committer) release() {
	c.mu.Lock()
	c.mutating = false
	c.mu.Unlock()
}

// Commit applies op exactly once and waits for the result.
func (c *Committer) Commit(ctx context.Context, op *model.DispatchOperation, action journal.Action) error {
	if err := validate(op); err != nil {
		return err
	}
	if !c.acquire() {
		c.dropBusy(op.Description)
		return ErrBusy
	}
	defer c.release()
	return c.apply(ctx, op, action)
}

// Begin takes the mutating flag for a whole compute-and-commit sequence,
// so the operation is built against the board it will be applied to. It
// fails with ErrBusy while another apply or session holds the flag. The
// session must be ended.
func (c *Committer) Begin(desc string) (*Session, error) {
	if !c.acquire() {
		c.dropBusy(desc)
		return nil, ErrBusy
	}
	return &Session{c: c}, nil
}

// Session holds the mutating flag of a Committer until End.
type Session struct {
	c    *Committer
	once sync.Once
}

// Gate returns an open gate for the holder of the flag.
func (s *Session) Gate(editing, readOnly bool) model.Gate {
	return model.Gate{Editing: editing, ReadOnly: readOnly}
}

// Commit applies op exactly once under the held flag.
func (s *Session) Commit(ctx context.Context, op *model.DispatchOperation, action journal.Action) error {
	if err := validate(op); err != nil {
		return err
	}
	return s.c.apply(ctx, op, action)
}

// End releases the flag. Further calls are no-ops.
func (s *Session) End() {
	s.once.Do(s.c.release)
}

func validate(op *model.DispatchOperation) error {
	if op == nil {
		return fmt.Errorf("dispatch: %w", model.ErrEmptyOperation)
	}
	if err := op.Validate(); err != nil {
		return fmt.Errorf("dispatch: %s: %w", op.Description, err)
	}
	return nil
}

func (c *Committer) dropBusy(desc string) {
	busyDrops.Inc()
	c.logger.Warnf("dropping %q: apply in flight", desc)
	c.publish(events.BusyEvent{Description: desc})
}

func (c *Committer) apply(ctx context.Context, op *model.DispatchOperation, action journal.Action) error {
	actx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	start := time.Now()
	err := c.applier.Apply(actx, op)
	latency := time.Since(start)

	applyLatency.WithLabelValues(string(action)).Observe(latency.Seconds())
	if err != nil {
		applyFailures.Inc()
		c.logger.Errorf("apply %s %q failed: %v", action, op.Description, err)
		monitoring.CaptureException(err, map[string]string{"operation_id": op.ID, "action": string(action), "module": "dispatch"})
	} else {
		for _, ch := range op.Changes {
			operationsTotal.WithLabelValues(string(action), string(ch.Kind())).Inc()
		}
		c.logger.Infof("%s %q: %d changes in %s", action, op.Description, len(op.Changes), latency)
	}
	c.record(op, action, latency, err)
	c.publish(events.OperationEvent{Operation: op, Action: string(action), Err: err, Latency: latency})
	if err != nil {
		return fmt.Errorf("dispatch: apply %q: %w", op.Description, err)
	}
	return nil
}

func (c *Committer) record(op *model.DispatchOperation, action journal.Action, latency time.Duration, err error) {
	kinds := make([]string, 0, len(op.Changes))
	for _, ch := range op.Changes {
		kinds = append(kinds, string(ch.Kind()))
	}
	rec := metrics.OperationRecord{
		OperationID: op.ID,
		Description: op.Description,
		Action:      string(action),
		Kinds:       kinds,
		Guides:      op.Changes.Guides(),
		Bookings:    len(op.Changes.Bookings()),
		Latency:     latency,
		Success:     err == nil,
		Time:        time.Now(),
	}
	if merr := c.metrics.RecordOperation(rec); merr != nil {
		c.logger.Errorf("metrics error: %v", merr)
	}
	c.mu.Lock()
	store := c.store
	c.mu.Unlock()
	if store == nil {
		return
	}
	if jerr := store.Append(context.Background(), journal.NewRecord(op, action, latency, err)); jerr != nil {
		c.logger.Errorf("journal error: %v", jerr)
	}
}

func (c *Committer) publish(e events.Event) {
	if c.bus != nil {
		c.bus.Publish(e)
	}
}
