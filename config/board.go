package config

import (
	"fmt"

	"github.com/kilianp07/dispatchboard/core/history"
	"github.com/kilianp07/dispatchboard/core/timegrid"
)

// BoardConfig describes the operating day shown on the board.
type BoardConfig struct {
	// Start and End bound the timeline as "HH:MM"; End may be "24:00".
	Start       string `json:"start"`
	End         string `json:"end"`
	SnapMinutes int    `json:"snap_minutes"`
	MaxHistory  int    `json:"max_history"`
	// Snapshot is a JSON or YAML file loaded at startup. It takes
	// precedence over the backend.
	Snapshot string `json:"snapshot"`
	// Date is the operating day requested from the backend.
	Date string `json:"date"`
	// RefreshSeconds polls the backend for a fresh snapshot. Zero
	// disables polling.
	RefreshSeconds int  `json:"refresh_seconds"`
	ReadOnly       bool `json:"read_only"`
}

// SetDefaults applies the default 06:00-24:00 window.
func (c *BoardConfig) SetDefaults() {
	if c.Start == "" {
		c.Start = timegrid.FormatClock(timegrid.DefaultWindow.StartMinutes)
	}
	if c.End == "" {
		c.End = timegrid.FormatClock(timegrid.DefaultWindow.EndMinutes)
	}
	if c.SnapMinutes <= 0 {
		c.SnapMinutes = timegrid.DefaultWindow.SnapMinutes
	}
	if c.MaxHistory <= 0 {
		c.MaxHistory = history.DefaultMax
	}
}

// Window parses the configured bounds.
func (c BoardConfig) Window() (timegrid.Window, error) {
	w, err := timegrid.NewWindow(c.Start, c.End, c.SnapMinutes)
	if err != nil {
		return timegrid.Window{}, fmt.Errorf("board: %w", err)
	}
	return w, nil
}

// Validate checks the window and the refresh interval.
func (c BoardConfig) Validate() error {
	if _, err := c.Window(); err != nil {
		return err
	}
	if c.RefreshSeconds < 0 {
		return fmt.Errorf("board: negative refresh_seconds")
	}
	return nil
}

// APIConfig configures the HTTP API.
type APIConfig struct {
	// Listen is the HTTP address. Empty disables the API.
	Listen string `json:"listen"`
	// Token, when set, is required as a bearer token on every request.
	Token string `json:"token"`
}
