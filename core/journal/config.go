package journal

import "fmt"

// Config selects and tunes the journal backend.
type Config struct {
	Backend    string `json:"backend"`
	Path       string `json:"path"`
	MaxSizeMB  int    `json:"max_size_mb"`
	MaxBackups int    `json:"max_backups"`
	MaxAgeDays int    `json:"max_age_days"`
}

// Open creates the store described by cfg. An empty backend keeps the
// journal in memory.
func Open(cfg Config) (Store, error) {
	switch cfg.Backend {
	case "", "memory":
		return NewMemoryStore(), nil
	case "jsonl":
		if cfg.MaxSizeMB > 0 {
			return NewRotatingJSONLStore(cfg.Path, cfg.MaxSizeMB, cfg.MaxBackups, cfg.MaxAgeDays)
		}
		return NewJSONLStore(cfg.Path)
	case "sqlite":
		return NewSQLiteStore(cfg.Path)
	default:
		return nil, fmt.Errorf("journal: unknown backend %q", cfg.Backend)
	}
}

// SetDefaults fills the path of file backends.
func (c *Config) SetDefaults() {
	if c.Path != "" {
		return
	}
	switch c.Backend {
	case "jsonl":
		c.Path = "operations.jsonl"
	case "sqlite":
		c.Path = "operations.db"
	}
}

// Validate checks the backend name and path.
func (c Config) Validate() error {
	switch c.Backend {
	case "", "memory":
		return nil
	case "jsonl", "sqlite":
		if c.Path == "" {
			return fmt.Errorf("journal: path is required for %s", c.Backend)
		}
		return nil
	default:
		return fmt.Errorf("journal: unknown backend %q", c.Backend)
	}
}
