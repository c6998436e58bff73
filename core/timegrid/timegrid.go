// Package timegrid maps clock times of the operating day onto a normalized
// timeline and snaps start times to the dispatch grid.
//
// Every function is pure. Malformed clock strings never produce an error:
// they fail closed to the window start.
package timegrid

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

const minutesPerDay = 24 * 60

// Window is the operating range of the board in minutes since midnight.
type Window struct {
	StartMinutes int `json:"start_minutes"`
	EndMinutes   int `json:"end_minutes"`
	SnapMinutes  int `json:"snap_minutes"`
}

// DefaultWindow covers 06:00 to 24:00 with a 15 minute grid.
var DefaultWindow = Window{StartMinutes: 6 * 60, EndMinutes: minutesPerDay, SnapMinutes: 15}

// NewWindow builds a window from "HH:MM" bounds.
func NewWindow(start, end string, snap int) (Window, error) {
	s, ok := ParseClock(start)
	if !ok {
		return Window{}, fmt.Errorf("timegrid: invalid window start %q", start)
	}
	e, ok := ParseClock(end)
	if !ok {
		return Window{}, fmt.Errorf("timegrid: invalid window end %q", end)
	}
	w := Window{StartMinutes: s, EndMinutes: e, SnapMinutes: snap}
	return w, w.Validate()
}

// Validate checks that the window is non-empty and the grid positive.
func (w Window) Validate() error {
	if w.EndMinutes <= w.StartMinutes {
		return fmt.Errorf("timegrid: window end must be after start")
	}
	if w.SnapMinutes <= 0 {
		return fmt.Errorf("timegrid: snap minutes must be positive")
	}
	return nil
}

// Length returns the window length in minutes.
func (w Window) Length() int { return w.EndMinutes - w.StartMinutes }

// ParseClock converts "HH:MM" to minutes since midnight. 24:00 is accepted
// as the end of the day.
func ParseClock(t string) (int, bool) {
	h, m, found := strings.Cut(strings.TrimSpace(t), ":")
	if !found || len(m) != 2 || len(h) == 0 || len(h) > 2 {
		return 0, false
	}
	hours, err := strconv.Atoi(h)
	if err != nil || hours < 0 || hours > 24 {
		return 0, false
	}
	mins, err := strconv.Atoi(m)
	if err != nil || mins < 0 || mins > 59 {
		return 0, false
	}
	if hours == 24 && mins != 0 {
		return 0, false
	}
	return hours*60 + mins, true
}

// FormatClock converts minutes since midnight to "HH:MM". Negative values
// are reported as 00:00.
func FormatClock(minutes int) string {
	if minutes < 0 {
		minutes = 0
	}
	return fmt.Sprintf("%02d:%02d", minutes/60, minutes%60)
}

// Minutes parses t, falling back to the window start when malformed.
func (w Window) Minutes(t string) int {
	m, ok := ParseClock(t)
	if !ok {
		return w.StartMinutes
	}
	return m
}

func (w Window) clamp(m int) int {
	return min(max(m, w.StartMinutes), w.EndMinutes)
}

// TimeToPercent returns the position of t on the timeline in [0,100].
func (w Window) TimeToPercent(t string) float64 {
	return w.MinutesToPercent(w.Minutes(t))
}

// MinutesToPercent is TimeToPercent for an already parsed time.
func (w Window) MinutesToPercent(m int) float64 {
	if w.Length() <= 0 {
		return 0
	}
	return float64(w.clamp(m)-w.StartMinutes) / float64(w.Length()) * 100
}

// DurationToPercent returns the width of a duration on the timeline.
func (w Window) DurationToPercent(d int) float64 {
	if d <= 0 || w.Length() <= 0 {
		return 0
	}
	return float64(d) / float64(w.Length()) * 100
}

// LatestStart returns the last grid line at which a run of the given
// duration still ends inside the window.
func (w Window) LatestStart(duration int) int {
	latest := w.EndMinutes - max(duration, 0)
	if w.SnapMinutes > 0 {
		latest = latest - mod(latest, w.SnapMinutes)
	}
	return max(latest, w.StartMinutes)
}

// SnapMinutesOf rounds m to the nearest grid line and clamps it so that a
// run of the given duration fits inside the window.
func (w Window) SnapMinutesOf(m, duration int) int {
	if w.SnapMinutes > 0 {
		m = int(math.Round(float64(m)/float64(w.SnapMinutes))) * w.SnapMinutes
	}
	return min(max(m, w.StartMinutes), w.LatestStart(duration))
}

// Snap rounds t to the grid and clamps it into the window.
// Snap(Snap(t)) == Snap(t) for every input.
func (w Window) Snap(t string, duration int) string {
	return FormatClock(w.SnapMinutesOf(w.Minutes(t), duration))
}

// EndTime returns the clock time at which a run started at start ends.
func (w Window) EndTime(start string, duration int) string {
	return FormatClock(w.Minutes(start) + max(duration, 0))
}

// AddMinutes offsets t by delta minutes without snapping. The result is
// clamped into the window.
func (w Window) AddMinutes(t string, delta int) string {
	return FormatClock(w.clamp(w.Minutes(t) + delta))
}

// PositionToTime converts a pointer position expressed as a fraction of the
// lane width into a snapped start time for a run of the given duration.
func (w Window) PositionToTime(fraction float64, duration int) string {
	if math.IsNaN(fraction) {
		fraction = 0
	}
	fraction = math.Min(math.Max(fraction, 0), 1)
	m := w.StartMinutes + int(math.Round(fraction*float64(w.Length())))
	return FormatClock(w.SnapMinutesOf(m, duration))
}

// SameSlot reports whether two clock times snap to the same grid line.
func (w Window) SameSlot(a, b string, duration int) bool {
	return w.SnapMinutesOf(w.Minutes(a), duration) == w.SnapMinutesOf(w.Minutes(b), duration)
}

func mod(a, b int) int {
	r := a % b
	if r < 0 {
		r += b
	}
	return r
}
