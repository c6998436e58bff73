package model

// Health is the confidence tag attached to a scheduled run.
type Health string

const (
	HealthOptimal Health = "optimal"
	HealthGood    Health = "good"
	HealthReview  Health = "review"
	HealthProblem Health = "problem"
)

// Valid returns true for the known health tags.
func (h Health) Valid() bool {
	switch h {
	case HealthOptimal, HealthGood, HealthReview, HealthProblem:
		return true
	default:
		return false
	}
}

// Guide identifies a guide or vehicle for the operating day.
type Guide struct {
	ID   string `json:"id" yaml:"id"`
	Name string `json:"name" yaml:"name"`
}

// Run is a scheduled departure carried by exactly one guide.
type Run struct {
	ID              string   `json:"id"`
	GuideID         string   `json:"guideId"`
	Key             string   `json:"key"`
	Tour            string   `json:"tour"`
	Start           string   `json:"start"`
	DurationMinutes int      `json:"durationMinutes"`
	End             string   `json:"end"`
	Health          Health   `json:"health"`
	BookingIDs      []string `json:"bookingIds"`
	Guests          int      `json:"guests"`
	// Exclusive is true when the run carries a charter or private booking.
	Exclusive bool `json:"exclusive"`
}

// RunID derives the stable identifier of a run from its guide and run key.
func RunID(guideID, runKey string) string {
	return guideID + ":" + runKey
}

// Holds reports whether the run carries the booking.
func (r Run) Holds(bookingID string) bool {
	for _, id := range r.BookingIDs {
		if id == bookingID {
			return true
		}
	}
	return false
}

// GuideRow is one guide lane of the dispatch board.
type GuideRow struct {
	Guide           Guide   `json:"guide"`
	VehicleCapacity int     `json:"vehicleCapacity"`
	TotalGuests     int     `json:"totalGuests"`
	Utilization     float64 `json:"utilization"`
	Runs            []Run   `json:"runs"`
}

// ID returns the guide identifier of the row.
func (g GuideRow) ID() string { return g.Guide.ID }

// Name returns the display name, falling back to the identifier.
func (g GuideRow) Name() string {
	if g.Guide.Name != "" {
		return g.Guide.Name
	}
	return g.Guide.ID
}

// RemainingSeats returns the free seats left in the vehicle.
func (g GuideRow) RemainingSeats() int {
	return g.VehicleCapacity - g.TotalGuests
}

// Holds reports whether any run of the row carries the booking.
func (g GuideRow) Holds(bookingID string) bool {
	for _, r := range g.Runs {
		if r.Holds(bookingID) {
			return true
		}
	}
	return false
}

// Utilization returns guests divided by capacity, or 0 without capacity.
func Utilization(guests, capacity int) float64 {
	if capacity <= 0 {
		return 0
	}
	return float64(guests) / float64(capacity)
}

// UnassignedGroup is a queue entry of bookings not attached to any guide.
// Shared bookings are grouped by tour run; every exclusive booking forms
// its own group.
type UnassignedGroup struct {
	ID              string   `json:"id"`
	RunKey          string   `json:"runKey"`
	Tour            string   `json:"tour"`
	Time            string   `json:"time"`
	DurationMinutes int      `json:"durationMinutes"`
	BookingIDs      []string `json:"bookingIds"`
	Guests          int      `json:"guests"`
	Exclusive       bool     `json:"exclusive"`
}

// CharterGroupID returns the queue group id of an exclusive booking.
func CharterGroupID(bookingID string) string { return "charter_" + bookingID }

// RunGroupID returns the queue group id of a shared tour run.
func RunGroupID(runKey string) string { return "run_" + runKey }
