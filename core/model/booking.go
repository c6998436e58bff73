package model

// ExperienceMode defines how a booking occupies a guide's timeslot.
type ExperienceMode string

const (
	// ModeJoin is a shared departure open to other bookings.
	ModeJoin ExperienceMode = "join"
	// ModeCharter is a private departure.
	ModeCharter ExperienceMode = "charter"
	// ModeBook is a private departure booked as a whole.
	ModeBook ExperienceMode = "book"
)

// IsExclusive returns true for private experiences requiring the whole slot.
func (m ExperienceMode) IsExclusive() bool {
	return m == ModeCharter || m == ModeBook
}

// Pickup describes where and when guests are collected.
type Pickup struct {
	Location string `json:"location,omitempty" yaml:"location,omitempty"`
	Time     string `json:"time,omitempty" yaml:"time,omitempty"`
}

// Booking is an individual reservation. Bookings are supplied by the
// backend and never modified by the dispatch engine; only their assignment
// changes.
type Booking struct {
	ID         string         `json:"id" yaml:"id"`
	TourRunKey string         `json:"tourRunKey,omitempty" yaml:"tourRunKey,omitempty"`
	Tour       string         `json:"tour,omitempty" yaml:"tour,omitempty"`
	Time       string         `json:"time,omitempty" yaml:"time,omitempty"`
	Lead       string         `json:"lead,omitempty" yaml:"lead,omitempty"`
	Adults     int            `json:"adults" yaml:"adults"`
	Children   int            `json:"children" yaml:"children"`
	Infants    int            `json:"infants" yaml:"infants"`
	Pickup     Pickup         `json:"pickup" yaml:"pickup"`
	Mode       ExperienceMode `json:"experienceMode" yaml:"experienceMode"`
}

// Guests returns the number of seats the booking occupies.
func (b Booking) Guests() int {
	return b.Adults + b.Children + b.Infants
}

// IsExclusive reports whether the booking requires a private run.
func (b Booking) IsExclusive() bool {
	return b.Mode.IsExclusive()
}

// TotalGuests sums the guests of the provided bookings.
func TotalGuests(bookings []Booking) int {
	total := 0
	for _, b := range bookings {
		total += b.Guests()
	}
	return total
}

// AnyExclusive returns true if at least one booking is a private experience.
func AnyExclusive(bookings []Booking) bool {
	for _, b := range bookings {
		if b.IsExclusive() {
			return true
		}
	}
	return false
}
