package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/kilianp07/dispatchboard/core/constraint"
	"github.com/kilianp07/dispatchboard/core/dispatch"
	"github.com/kilianp07/dispatchboard/core/journal"
	"github.com/kilianp07/dispatchboard/core/logger"
	"github.com/kilianp07/dispatchboard/core/model"
	"github.com/kilianp07/dispatchboard/core/timegrid"
	"github.com/kilianp07/dispatchboard/core/viewmodel"
)

// PlanResult is the outcome of AutoPlan.
type PlanResult struct {
	Snapshot   model.Snapshot
	Operations []*model.DispatchOperation
	// Rejected maps queue group ids to the reason they stayed queued.
	Rejected map[string]*constraint.Violation
}

// AutoPlan best-fits every queued group of snap in queue order, committing
// each operation in memory before planning the next group. Groups no guide
// can take stay in the queue.
func AutoPlan(ctx context.Context, snap model.Snapshot, window timegrid.Window, log logger.Logger) (PlanResult, error) {
	state := viewmodel.NewState(snap, window)
	res := PlanResult{Rejected: make(map[string]*constraint.Violation)}
	eng, err := dispatch.NewEngine(state, nil, log)
	if err != nil {
		return res, err
	}
	com, err := dispatch.NewCommitter(dispatch.ApplierFunc(state.Apply), 0, nil, nil, log)
	if err != nil {
		return res, err
	}
	for _, g := range state.Board().Groups {
		op, err := eng.BestFit(com.Gate(true, false), g.BookingIDs)
		var v *constraint.Violation
		switch {
		case errors.As(err, &v):
			res.Rejected[g.ID] = v
			log.Warnf("group %s stays queued: %s", g.ID, v.Message)
			continue
		case err != nil:
			return res, fmt.Errorf("plan %s: %w", g.ID, err)
		case op == nil:
			continue
		}
		if err := com.Commit(ctx, op, journal.ActionCommit); err != nil {
			return res, fmt.Errorf("plan %s: %w", g.ID, err)
		}
		res.Operations = append(res.Operations, op)
	}
	res.Snapshot = state.Snapshot()
	return res, nil
}
