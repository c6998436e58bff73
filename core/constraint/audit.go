package constraint

import (
	"fmt"

	"github.com/kilianp07/dispatchboard/core/timegrid"
	"github.com/kilianp07/dispatchboard/core/viewmodel"
)

// Audit lists the violations already present on a board: rows loaded past
// their vehicle capacity and slots where a charter shares its start time.
func Audit(b *viewmodel.Board) []Violation {
	var out []Violation
	for _, row := range b.Rows {
		if v := Capacity(row, nil); v != nil {
			out = append(out, *v)
		}
		seen := make(map[int]bool)
		for _, r := range row.Runs {
			at := b.Window.Minutes(r.Start)
			if seen[at] {
				continue
			}
			seen[at] = true
			runs := b.RunsInSlot(row.ID(), at)
			if len(runs) < 2 {
				continue
			}
			for _, other := range runs {
				if other.Exclusive {
					detail := fmt.Sprintf("%s has %d runs at %s including a private charter", row.Name(), len(runs), timegrid.FormatClock(at))
					out = append(out, *charter(row, at, detail))
					break
				}
			}
		}
	}
	return out
}
