package plugins

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/dispatchboard/config"
	"github.com/kilianp07/dispatchboard/core/model"
	"github.com/kilianp07/dispatchboard/core/timegrid"
	"github.com/kilianp07/dispatchboard/core/viewmodel"
	"github.com/kilianp07/dispatchboard/internal/fixture"
)

func TestBuiltinBackendsApplyOntoState(t *testing.T) {
	assert.Equal(t, []string{"dry-run", "memory", "mqtt"}, ApplierTypes())

	for _, name := range []string{"memory", "dry-run"} {
		t.Run(name, func(t *testing.T) {
			snap := fixture.New().
				Guide("ana", "Ana", 10).
				TourRun("city", "City Walk", "09:00", 90, fixture.Booking("b1", 2, model.ModeJoin)).
				Snapshot()
			state := viewmodel.NewState(snap, timegrid.DefaultWindow)
			cfg := &config.Config{}
			cfg.Dispatch.Backend = name
			cfg.SetDefaults()

			b, err := NewBackend(cfg, state)
			require.NoError(t, err)
			op := model.NewOperation("Assign b1",
				[]model.Change{model.Assign{BookingID: "b1", ToGuideID: "ana"}},
				[]model.Change{model.Unassign{BookingIDs: []string{"b1"}, FromGuideID: "ana"}},
			)
			require.NoError(t, b.Applier.Apply(context.Background(), op))
			guide, ok := state.Board().GuideOf("b1")
			require.True(t, ok)
			assert.Equal(t, "ana", guide)
		})
	}
}

func TestUnknownBackend(t *testing.T) {
	cfg := &config.Config{}
	cfg.Dispatch.Backend = "kafka"
	_, err := NewBackend(cfg, viewmodel.NewState(model.Snapshot{}, timegrid.DefaultWindow))
	assert.ErrorContains(t, err, "kafka")
}
