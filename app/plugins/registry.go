// Package plugins holds the apply backends selectable by dispatch.backend.
package plugins

import (
	"fmt"
	"sort"

	"github.com/kilianp07/dispatchboard/config"
	"github.com/kilianp07/dispatchboard/core/dispatch"
	"github.com/kilianp07/dispatchboard/core/viewmodel"
)

// Backend is a built apply backend. Close releases its transport and may
// be nil.
type Backend struct {
	Applier dispatch.Applier
	Close   func()
}

// ApplierFactory builds the backend committing operations. Every backend
// must end by applying onto state so the board reflects the commit.
type ApplierFactory func(cfg *config.Config, state *viewmodel.State) (Backend, error)

var Appliers = map[string]ApplierFactory{}

func RegisterApplier(name string, f ApplierFactory) { Appliers[name] = f }

// ApplierTypes lists the registered backend names.
func ApplierTypes() []string {
	out := make([]string, 0, len(Appliers))
	for name := range Appliers {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// NewBackend builds the backend named by cfg.Dispatch.Backend.
func NewBackend(cfg *config.Config, state *viewmodel.State) (Backend, error) {
	f, ok := Appliers[cfg.Dispatch.Backend]
	if !ok {
		return Backend{}, fmt.Errorf("plugins: unknown apply backend %q (known: %v)", cfg.Dispatch.Backend, ApplierTypes())
	}
	return f(cfg, state)
}
