package model

import (
	"encoding/json"
	"fmt"
)

// ChangeKind names a change variant on the wire.
type ChangeKind string

const (
	ChangeAssign    ChangeKind = "assign"
	ChangeReassign  ChangeKind = "reassign"
	ChangeUnassign  ChangeKind = "unassign"
	ChangeTimeShift ChangeKind = "time-shift"
)

// Change is one step of a dispatch operation. The set of implementations
// is closed: Assign, Reassign, Unassign and TimeShift.
type Change interface {
	Kind() ChangeKind
	// Bookings returns the bookings touched by the change.
	Bookings() []string
	// Guides returns the guides touched by the change.
	Guides() []string
	isChange()
}

// Assign attaches an unassigned booking to a guide.
type Assign struct {
	BookingID string
	ToGuideID string
}

// Reassign moves bookings from one guide to another.
type Reassign struct {
	BookingIDs  []string
	FromGuideID string
	ToGuideID   string
}

// Unassign returns bookings to the queue.
type Unassign struct {
	BookingIDs  []string
	FromGuideID string
}

// TimeShift moves the run carrying the bookings to a new start time.
type TimeShift struct {
	BookingIDs   []string
	GuideID      string
	NewStartTime string
}

func (Assign) Kind() ChangeKind    { return ChangeAssign }
func (Reassign) Kind() ChangeKind  { return ChangeReassign }
func (Unassign) Kind() ChangeKind  { return ChangeUnassign }
func (TimeShift) Kind() ChangeKind { return ChangeTimeShift }

func (c Assign) Bookings() []string    { return []string{c.BookingID} }
func (c Reassign) Bookings() []string  { return c.BookingIDs }
func (c Unassign) Bookings() []string  { return c.BookingIDs }
func (c TimeShift) Bookings() []string { return c.BookingIDs }

func (c Assign) Guides() []string    { return []string{c.ToGuideID} }
func (c Reassign) Guides() []string  { return []string{c.FromGuideID, c.ToGuideID} }
func (c Unassign) Guides() []string  { return []string{c.FromGuideID} }
func (c TimeShift) Guides() []string { return []string{c.GuideID} }

func (Assign) isChange()    {}
func (Reassign) isChange()  {}
func (Unassign) isChange()  {}
func (TimeShift) isChange() {}

// wireChange is the flat JSON form of every change variant.
type wireChange struct {
	Type         ChangeKind `json:"type"`
	BookingID    string     `json:"bookingId,omitempty"`
	BookingIDs   []string   `json:"bookingIds,omitempty"`
	FromGuideID  string     `json:"fromGuideId,omitempty"`
	ToGuideID    string     `json:"toGuideId,omitempty"`
	GuideID      string     `json:"guideId,omitempty"`
	NewStartTime string     `json:"newStartTime,omitempty"`
}

// ChangeList is an ordered batch of changes with a tagged JSON encoding.
type ChangeList []Change

// MarshalJSON encodes the list using the "type" discriminator.
func (l ChangeList) MarshalJSON() ([]byte, error) {
	out := make([]wireChange, 0, len(l))
	for _, c := range l {
		w := wireChange{Type: c.Kind()}
		switch v := c.(type) {
		case Assign:
			w.BookingID = v.BookingID
			w.ToGuideID = v.ToGuideID
		case Reassign:
			w.BookingIDs = v.BookingIDs
			w.FromGuideID = v.FromGuideID
			w.ToGuideID = v.ToGuideID
		case Unassign:
			w.BookingIDs = v.BookingIDs
			w.FromGuideID = v.FromGuideID
		case TimeShift:
			w.BookingIDs = v.BookingIDs
			w.GuideID = v.GuideID
			w.NewStartTime = v.NewStartTime
		default:
			return nil, fmt.Errorf("model: unknown change %T", c)
		}
		out = append(out, w)
	}
	return json.Marshal(out)
}

// UnmarshalJSON decodes a list encoded by MarshalJSON.
func (l *ChangeList) UnmarshalJSON(data []byte) error {
	var in []wireChange
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	out := make(ChangeList, 0, len(in))
	for i, w := range in {
		switch w.Type {
		case ChangeAssign:
			out = append(out, Assign{BookingID: w.BookingID, ToGuideID: w.ToGuideID})
		case ChangeReassign:
			out = append(out, Reassign{BookingIDs: w.BookingIDs, FromGuideID: w.FromGuideID, ToGuideID: w.ToGuideID})
		case ChangeUnassign:
			out = append(out, Unassign{BookingIDs: w.BookingIDs, FromGuideID: w.FromGuideID})
		case ChangeTimeShift:
			out = append(out, TimeShift{BookingIDs: w.BookingIDs, GuideID: w.GuideID, NewStartTime: w.NewStartTime})
		default:
			return fmt.Errorf("model: change %d: unknown type %q", i, w.Type)
		}
	}
	*l = out
	return nil
}

// Bookings returns the distinct booking ids touched by the list, in order.
func (l ChangeList) Bookings() []string {
	return distinct(l, Change.Bookings)
}

// Guides returns the distinct guide ids touched by the list, in order.
func (l ChangeList) Guides() []string {
	return distinct(l, Change.Guides)
}

func distinct(l ChangeList, ids func(Change) []string) []string {
	seen := make(map[string]bool)
	var out []string
	for _, c := range l {
		for _, id := range ids(c) {
			if id == "" || seen[id] {
				continue
			}
			seen[id] = true
			out = append(out, id)
		}
	}
	return out
}
