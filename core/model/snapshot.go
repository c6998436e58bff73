package model

// SegmentTour is the schedule segment type carrying a tour run.
const SegmentTour = "tour"

// Segment is one block of a guide's schedule. Only tour segments become runs.
type Segment struct {
	Type            string   `json:"type" yaml:"type"`
	RunKey          string   `json:"runKey,omitempty" yaml:"runKey,omitempty"`
	Tour            string   `json:"tour,omitempty" yaml:"tour,omitempty"`
	Start           string   `json:"start" yaml:"start"`
	DurationMinutes int      `json:"durationMinutes" yaml:"durationMinutes"`
	Health          Health   `json:"health,omitempty" yaml:"health,omitempty"`
	BookingIDs      []string `json:"bookingIds,omitempty" yaml:"bookingIds,omitempty"`
}

// GuideTimeline is the schedule of one guide as served by the backend.
type GuideTimeline struct {
	Guide           Guide     `json:"guide" yaml:"guide"`
	VehicleCapacity int       `json:"vehicleCapacity" yaml:"vehicleCapacity"`
	TotalGuests     int       `json:"totalGuests" yaml:"totalGuests"`
	Utilization     float64   `json:"utilization" yaml:"utilization"`
	Segments        []Segment `json:"segments" yaml:"segments"`
}

// TourRun is a departure of a tour with its full booking list.
type TourRun struct {
	Key             string    `json:"key" yaml:"key"`
	Time            string    `json:"time" yaml:"time"`
	Tour            string    `json:"tour" yaml:"tour"`
	DurationMinutes int       `json:"durationMinutes" yaml:"durationMinutes"`
	Bookings        []Booking `json:"bookings" yaml:"bookings"`
}

// Snapshot is the dispatch state of one operating day. A snapshot is never
// mutated in place; every commit produces a new one.
type Snapshot struct {
	Date           string          `json:"date,omitempty" yaml:"date,omitempty"`
	GuideTimelines []GuideTimeline `json:"guideTimelines" yaml:"guideTimelines"`
	TourRuns       []TourRun       `json:"tourRuns" yaml:"tourRuns"`
}

// Clone returns a deep copy of the snapshot.
func (s Snapshot) Clone() Snapshot {
	out := Snapshot{Date: s.Date}
	if s.GuideTimelines != nil {
		out.GuideTimelines = make([]GuideTimeline, len(s.GuideTimelines))
		for i, g := range s.GuideTimelines {
			g.Segments = cloneSegments(g.Segments)
			out.GuideTimelines[i] = g
		}
	}
	if s.TourRuns != nil {
		out.TourRuns = make([]TourRun, len(s.TourRuns))
		for i, tr := range s.TourRuns {
			tr.Bookings = append([]Booking(nil), tr.Bookings...)
			out.TourRuns[i] = tr
		}
	}
	return out
}

func cloneSegments(in []Segment) []Segment {
	if in == nil {
		return nil
	}
	out := make([]Segment, len(in))
	for i, s := range in {
		s.BookingIDs = append([]string(nil), s.BookingIDs...)
		out[i] = s
	}
	return out
}
