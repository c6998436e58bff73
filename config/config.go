package config

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/kilianp07/dispatchboard/core/dispatch"
	"github.com/kilianp07/dispatchboard/core/journal"
	"github.com/kilianp07/dispatchboard/core/metrics"
	"github.com/kilianp07/dispatchboard/infra/backend"
	"github.com/kilianp07/dispatchboard/infra/logger"
	"github.com/kilianp07/dispatchboard/infra/monitoring"
	"github.com/kilianp07/dispatchboard/infra/mqtt"
)

type Config struct {
	Board    BoardConfig       `json:"board"`
	Dispatch dispatch.Config   `json:"dispatch"`
	MQTT     mqtt.Config       `json:"mqtt"`
	Backend  backend.Config    `json:"backend"`
	Metrics  metrics.Config    `json:"metrics"`
	Journal  journal.Config    `json:"journal"`
	API      APIConfig         `json:"api"`
	Logging  logger.Config     `json:"logging"`
	Sentry   monitoring.Config `json:"sentry"`
}

// Load reads the configuration file at path and applies K_ prefixed
// environment overrides, e.g. K_DISPATCH__BACKEND=mqtt. An empty path
// loads the environment only.
func Load(path string) (*Config, error) {
	k := koanf.New(".")
	if path != "" {
		ext := strings.ToLower(filepath.Ext(path))
		var parser koanf.Parser
		switch ext {
		case ".yaml", ".yml":
			parser = yaml.Parser()
		case ".json":
			parser = json.Parser()
		default:
			return nil, fmt.Errorf("unsupported config format: %s", ext)
		}
		if err := k.Load(file.Provider(path), parser); err != nil {
			return nil, err
		}
	}
	// Optional environment overrides
	if err := k.Load(env.Provider("K_", "__", func(s string) string {
		s = strings.TrimPrefix(strings.ToLower(s), "k_")
		return strings.ReplaceAll(s, "__", ".")
	}), nil); err != nil {
		return nil, err
	}
	var cfg Config
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "json"}); err != nil {
		return nil, err
	}
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// SetDefaults fills unset fields of every section.
func (c *Config) SetDefaults() {
	c.Board.SetDefaults()
	c.Dispatch.SetDefaults()
	c.Journal.SetDefaults()
	if c.Dispatch.Backend == "mqtt" {
		c.MQTT.SetDefaults()
	}
	if c.Backend.URL != "" {
		c.Backend.SetDefaults()
	}
}

// Validate checks every section in use.
func (c Config) Validate() error {
	if err := c.Board.Validate(); err != nil {
		return err
	}
	if err := c.Dispatch.Validate(); err != nil {
		return err
	}
	if c.Dispatch.Backend == "mqtt" {
		if err := c.MQTT.Validate(); err != nil {
			return err
		}
	}
	if c.Backend.URL != "" {
		if err := c.Backend.Validate(); err != nil {
			return err
		}
	}
	if c.Board.RefreshSeconds > 0 && c.Backend.URL == "" {
		return fmt.Errorf("board: refresh_seconds requires a backend url")
	}
	return c.Journal.Validate()
}
