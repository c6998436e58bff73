// Package export writes the board plan of a dispatch day for downstream
// tools: a JSON document or a flat CSV sheet with one line per booking.
package export

import (
	"encoding/csv"
	"encoding/json"
	"io"
	"strconv"

	"github.com/kilianp07/dispatchboard/core/model"
	"github.com/kilianp07/dispatchboard/core/viewmodel"
)

// Plan is the exported form of a board.
type Plan struct {
	Date       string                  `json:"date,omitempty"`
	Guides     []model.GuideRow        `json:"guides"`
	Unassigned []model.UnassignedGroup `json:"unassigned"`
	Summary    viewmodel.Summary       `json:"summary"`
}

// NewPlan collects the plan of board b.
func NewPlan(date string, b *viewmodel.Board) Plan {
	p := Plan{
		Date:       date,
		Guides:     b.Rows,
		Unassigned: b.Groups,
		Summary:    b.Summary(),
	}
	if p.Guides == nil {
		p.Guides = []model.GuideRow{}
	}
	if p.Unassigned == nil {
		p.Unassigned = []model.UnassignedGroup{}
	}
	return p
}

// WriteJSON writes the plan to w in JSON format.
func WriteJSON(w io.Writer, p Plan) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(p)
}

var csvHeader = []string{
	"guide_id", "guide_name", "run_id", "tour", "start", "end",
	"booking_id", "lead", "guests", "mode", "health",
}

// WriteCSV writes one line per booking: assigned bookings in lane order,
// then queued bookings with empty guide and run columns.
func WriteCSV(w io.Writer, b *viewmodel.Board) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return err
	}
	for _, row := range b.Rows {
		for _, run := range row.Runs {
			for _, id := range run.BookingIDs {
				bk, _ := b.Booking(id)
				rec := []string{
					row.ID(), row.Name(), run.ID, run.Tour, run.Start, run.End,
					id, bk.Lead, strconv.Itoa(bk.Guests()), string(bk.Mode), string(run.Health),
				}
				if err := cw.Write(rec); err != nil {
					return err
				}
			}
		}
	}
	for _, g := range b.Groups {
		end := b.Window.EndTime(g.Time, g.DurationMinutes)
		for _, id := range g.BookingIDs {
			bk, _ := b.Booking(id)
			rec := []string{
				"", "", "", g.Tour, g.Time, end,
				id, bk.Lead, strconv.Itoa(bk.Guests()), string(bk.Mode), "",
			}
			if err := cw.Write(rec); err != nil {
				return err
			}
		}
	}
	cw.Flush()
	return cw.Error()
}
