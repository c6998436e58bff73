package viewmodel

import (
	"gonum.org/v1/gonum/stat"
)

// Summary aggregates the load of a board.
type Summary struct {
	Guides            int      `json:"guides"`
	Runs              int      `json:"runs"`
	Capacity          int      `json:"capacity"`
	AssignedGuests    int      `json:"assignedGuests"`
	UnassignedGuests  int      `json:"unassignedGuests"`
	UnassignedGroups  int      `json:"unassignedGroups"`
	MeanUtilization   float64  `json:"meanUtilization"`
	StdDevUtilization float64  `json:"stdDevUtilization"`
	OverCapacity      []string `json:"overCapacity,omitempty"`
}

// Summary computes load statistics across all guide rows.
func (b *Board) Summary() Summary {
	s := Summary{Guides: len(b.Rows), UnassignedGroups: len(b.Groups)}
	utils := make([]float64, 0, len(b.Rows))
	for _, row := range b.Rows {
		s.Runs += len(row.Runs)
		s.Capacity += row.VehicleCapacity
		s.AssignedGuests += row.TotalGuests
		utils = append(utils, row.Utilization)
		if row.VehicleCapacity > 0 && row.TotalGuests > row.VehicleCapacity {
			s.OverCapacity = append(s.OverCapacity, row.ID())
		}
	}
	for _, g := range b.Groups {
		s.UnassignedGuests += g.Guests
	}
	switch len(utils) {
	case 0:
	case 1:
		s.MeanUtilization = utils[0]
	default:
		s.MeanUtilization, s.StdDevUtilization = stat.MeanStdDev(utils, nil)
	}
	return s
}
