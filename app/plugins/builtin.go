package plugins

import (
	"fmt"

	"github.com/kilianp07/dispatchboard/config"
	"github.com/kilianp07/dispatchboard/core/dispatch"
	"github.com/kilianp07/dispatchboard/core/viewmodel"
	"github.com/kilianp07/dispatchboard/infra/mqtt"
)

func init() {
	RegisterApplier("memory", func(_ *config.Config, state *viewmodel.State) (Backend, error) {
		return Backend{Applier: dispatch.ApplierFunc(state.Apply)}, nil
	})
	RegisterApplier("mqtt", func(cfg *config.Config, state *viewmodel.State) (Backend, error) {
		client, err := mqtt.NewPahoClient(cfg.MQTT)
		if err != nil {
			return Backend{}, fmt.Errorf("mqtt client: %w", err)
		}
		remote := mqtt.NewApplier(client, cfg.Dispatch.ApplyTimeout())
		return Backend{
			Applier: dispatch.Chain(remote, dispatch.ApplierFunc(state.Apply)),
			Close:   client.Disconnect,
		}, nil
	})
	// dry-run acknowledges every operation without a broker.
	RegisterApplier("dry-run", func(cfg *config.Config, state *viewmodel.State) (Backend, error) {
		remote := mqtt.NewApplier(mqtt.NewMockPublisher(), cfg.Dispatch.ApplyTimeout())
		return Backend{Applier: dispatch.Chain(remote, dispatch.ApplierFunc(state.Apply))}, nil
	})
}
