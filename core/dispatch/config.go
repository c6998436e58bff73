package dispatch

import (
	"fmt"
	"time"
)

// Config defines dispatch-related settings.
type Config struct {
	// ApplyTimeoutSeconds bounds a single apply call.
	ApplyTimeoutSeconds int `json:"apply_timeout_seconds"`
	// Backend selects where operations are applied: "memory", "mqtt" or
	// "dry-run".
	Backend string `json:"backend"`
}

// SetDefaults fills unset fields.
func (c *Config) SetDefaults() {
	if c.ApplyTimeoutSeconds <= 0 {
		c.ApplyTimeoutSeconds = 5
	}
	if c.Backend == "" {
		c.Backend = "memory"
	}
}

// Validate checks the backend name.
func (c Config) Validate() error {
	switch c.Backend {
	case "memory", "mqtt", "dry-run":
		return nil
	default:
		return fmt.Errorf("dispatch: unknown backend %q", c.Backend)
	}
}

// ApplyTimeout returns the apply timeout as a duration.
func (c Config) ApplyTimeout() time.Duration {
	return time.Duration(c.ApplyTimeoutSeconds) * time.Second
}
