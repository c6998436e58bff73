package metrics

import "github.com/kilianp07/dispatchboard/core/factory"

// Config selects the sinks that receive operation, rejection and guide
// load records.
type Config struct {
	// Sinks are built in order through the sink registry.
	Sinks []factory.ModuleConfig `json:"sinks"`
	// Listen is the Prometheus scrape address. Empty disables the
	// endpoint.
	Listen string `json:"listen"`
}
