// Package drag stages drag gestures on the board and resolves drops into
// dispatch operations.
package drag

import (
	"fmt"
	"sync"

	"github.com/kilianp07/dispatchboard/core/logger"
	"github.com/kilianp07/dispatchboard/core/model"
	"github.com/kilianp07/dispatchboard/core/timegrid"
)

// State is the stage of the current gesture.
type State int

const (
	Idle State = iota
	Dragging
	Previewing
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Dragging:
		return "dragging"
	case Previewing:
		return "previewing"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Source tells where a dragged item was picked up.
type Source string

const (
	SourceHopper Source = "hopper"
	SourceGuide  Source = "guide"
)

// Payload is the item being dragged.
type Payload struct {
	Source          Source   `json:"source"`
	BookingIDs      []string `json:"bookingIds"`
	Guests          int      `json:"guests"`
	Exclusive       bool     `json:"exclusive"`
	RunID           string   `json:"runId,omitempty"`
	RunName         string   `json:"runName"`
	Start           string   `json:"start"`
	DurationMinutes int      `json:"durationMinutes"`
	FromGuideID     string   `json:"fromGuideId,omitempty"`
}

// Preview is the ghost of a guide-sourced run over a lane. Left and Width
// are percentages of the lane.
type Preview struct {
	GuideID string  `json:"guideId"`
	Start   string  `json:"start"`
	End     string  `json:"end"`
	Left    float64 `json:"left"`
	Width   float64 `json:"width"`
}

// Actions are the engine entry points a drop can resolve to.
type Actions interface {
	Assign(gate model.Gate, bookingIDs []string, guideID string) (*model.DispatchOperation, error)
	BestFit(gate model.Gate, bookingIDs []string) (*model.DispatchOperation, error)
	MoveRun(gate model.Gate, fromGuideID, runID, toGuideID string) (*model.DispatchOperation, error)
	MoveRunAt(gate model.Gate, fromGuideID, runID, toGuideID, newStart string) (*model.DispatchOperation, error)
	Reschedule(gate model.Gate, guideID, runID, newStart string) (*model.DispatchOperation, error)
	ReturnToQueue(gate model.Gate, guideID, runID string) (*model.DispatchOperation, error)
}

// Controller owns the drag state machine. Every drop and cancel returns
// it to Idle whatever the outcome.
type Controller struct {
	window  timegrid.Window
	actions Actions
	log     logger.Logger

	mu      sync.Mutex
	state   State
	payload *Payload
	preview *Preview
}

// NewController creates an idle controller.
func NewController(w timegrid.Window, actions Actions, log logger.Logger) (*Controller, error) {
	if actions == nil || log == nil {
		return nil, fmt.Errorf("drag: nil parameter provided to NewController")
	}
	if err := w.Validate(); err != nil {
		return nil, fmt.Errorf("drag: %w", err)
	}
	return &Controller{window: w, actions: actions, log: log}, nil
}

// StartFromQueue picks up an unassigned group.
func (c *Controller) StartFromQueue(g model.UnassignedGroup) {
	c.start(&Payload{
		Source:          SourceHopper,
		BookingIDs:      append([]string(nil), g.BookingIDs...),
		Guests:          g.Guests,
		Exclusive:       g.Exclusive,
		RunName:         g.Tour,
		Start:           g.Time,
		DurationMinutes: g.DurationMinutes,
	})
}

// StartFromRun picks up a run from a guide lane.
func (c *Controller) StartFromRun(guideID string, r model.Run) {
	c.start(&Payload{
		Source:          SourceGuide,
		BookingIDs:      append([]string(nil), r.BookingIDs...),
		Guests:          r.Guests,
		Exclusive:       r.Exclusive,
		RunID:           r.ID,
		RunName:         r.Tour,
		Start:           r.Start,
		DurationMinutes: r.DurationMinutes,
		FromGuideID:     guideID,
	})
}

func (c *Controller) start(p *Payload) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state = Dragging
	c.payload = p
	c.preview = nil
	c.log.Debugf("drag start: %s %s (%d guests)", p.Source, p.RunName, p.Guests)
}

// HoverLane updates the preview for a pointer at fraction of the lane
// width. Only guide-sourced drags are previewed.
func (c *Controller) HoverLane(guideID string, fraction float64) (Preview, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.payload == nil || c.payload.Source != SourceGuide {
		return Preview{}, false
	}
	start := c.window.PositionToTime(fraction, c.payload.DurationMinutes)
	c.preview = &Preview{
		GuideID: guideID,
		Start:   start,
		End:     c.window.EndTime(start, c.payload.DurationMinutes),
		Left:    c.window.TimeToPercent(start),
		Width:   c.window.DurationToPercent(c.payload.DurationMinutes),
	}
	c.state = Previewing
	return *c.preview, true
}

// HoverOther clears the preview when the pointer leaves every lane.
func (c *Controller) HoverOther() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.preview = nil
	if c.payload != nil {
		c.state = Dragging
	}
}

// DropOnLane resolves a drop on guideID at fraction of the lane width.
// A negative fraction targets the lane header: hopper items go to the
// best-fitting guide instead of guideID.
func (c *Controller) DropOnLane(gate model.Gate, guideID string, fraction float64) (*model.DispatchOperation, error) {
	p := c.take()
	if p == nil || !gate.Allows() {
		return nil, nil
	}
	if p.Source == SourceHopper {
		if fraction < 0 {
			return c.actions.BestFit(gate, p.BookingIDs)
		}
		return c.actions.Assign(gate, p.BookingIDs, guideID)
	}
	start := c.window.PositionToTime(fraction, p.DurationMinutes)
	if fraction < 0 {
		start = p.Start
	}
	if guideID == p.FromGuideID {
		return c.actions.Reschedule(gate, guideID, p.RunID, start)
	}
	if c.window.SameSlot(start, p.Start, p.DurationMinutes) {
		return c.actions.MoveRun(gate, p.FromGuideID, p.RunID, guideID)
	}
	return c.actions.MoveRunAt(gate, p.FromGuideID, p.RunID, guideID, start)
}

// DropOnAuto sends a hopper item to the best-fitting guide.
func (c *Controller) DropOnAuto(gate model.Gate) (*model.DispatchOperation, error) {
	p := c.take()
	if p == nil || !gate.Allows() || p.Source != SourceHopper {
		return nil, nil
	}
	return c.actions.BestFit(gate, p.BookingIDs)
}

// DropOnQueue returns a guide-sourced run to the unassigned queue. Hopper
// items dropped back on the queue are a no-op.
func (c *Controller) DropOnQueue(gate model.Gate) (*model.DispatchOperation, error) {
	p := c.take()
	if p == nil || !gate.Allows() || p.Source != SourceGuide {
		return nil, nil
	}
	return c.actions.ReturnToQueue(gate, p.FromGuideID, p.RunID)
}

// Cancel discards the gesture without emitting anything.
func (c *Controller) Cancel() {
	if p := c.take(); p != nil {
		c.log.Debugf("drag cancelled: %s", p.RunName)
	}
}

// End handles a drag that finished outside any drop target.
func (c *Controller) End() { c.Cancel() }

// State returns the current stage.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Payload returns a copy of the dragged item.
func (c *Controller) Payload() (Payload, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.payload == nil {
		return Payload{}, false
	}
	p := *c.payload
	p.BookingIDs = append([]string(nil), p.BookingIDs...)
	return p, true
}

// Preview returns the current preview.
func (c *Controller) Preview() (Preview, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.preview == nil {
		return Preview{}, false
	}
	return *c.preview, true
}

// take resets the controller to Idle and returns the payload it held.
func (c *Controller) take() *Payload {
	c.mu.Lock()
	defer c.mu.Unlock()
	p := c.payload
	c.state = Idle
	c.payload = nil
	c.preview = nil
	return p
}
