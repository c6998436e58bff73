// Package fixture builds dispatch snapshots for tests.
package fixture

import "github.com/kilianp07/dispatchboard/core/model"

// Builder accumulates guides, tour runs and segments of a snapshot.
type Builder struct {
	snap model.Snapshot
}

// New returns an empty builder.
func New() *Builder {
	return &Builder{snap: model.Snapshot{Date: "2024-06-01"}}
}

// Booking returns a booking of the given party size with adults only.
func Booking(id string, guests int, mode model.ExperienceMode) model.Booking {
	return model.Booking{ID: id, Adults: guests, Mode: mode, Lead: "Lead " + id}
}

// Guide adds a guide lane.
func (b *Builder) Guide(id, name string, capacity int) *Builder {
	b.snap.GuideTimelines = append(b.snap.GuideTimelines, model.GuideTimeline{
		Guide:           model.Guide{ID: id, Name: name},
		VehicleCapacity: capacity,
	})
	return b
}

// TourRun adds a departure with its full booking list.
func (b *Builder) TourRun(key, tour, at string, duration int, bookings ...model.Booking) *Builder {
	for i := range bookings {
		bookings[i].TourRunKey = key
		bookings[i].Tour = tour
		bookings[i].Time = at
	}
	b.snap.TourRuns = append(b.snap.TourRuns, model.TourRun{
		Key: key, Tour: tour, Time: at, DurationMinutes: duration, Bookings: bookings,
	})
	return b
}

// Run schedules bookings of a tour run on a guide at the given start.
func (b *Builder) Run(guideID, runKey, start string, bookingIDs ...string) *Builder {
	tl := b.timeline(guideID)
	seg := model.Segment{
		Type:       model.SegmentTour,
		RunKey:     runKey,
		Start:      start,
		Health:     model.HealthGood,
		BookingIDs: bookingIDs,
	}
	for _, tr := range b.snap.TourRuns {
		if tr.Key == runKey {
			seg.Tour = tr.Tour
			seg.DurationMinutes = tr.DurationMinutes
		}
	}
	tl.Segments = append(tl.Segments, seg)
	return b
}

// Break adds a non-tour segment to a guide.
func (b *Builder) Break(guideID, start string, duration int) *Builder {
	tl := b.timeline(guideID)
	tl.Segments = append(tl.Segments, model.Segment{Type: "break", Start: start, DurationMinutes: duration})
	return b
}

// Snapshot returns a copy of the built snapshot.
func (b *Builder) Snapshot() model.Snapshot {
	return b.snap.Clone()
}

func (b *Builder) timeline(guideID string) *model.GuideTimeline {
	for i := range b.snap.GuideTimelines {
		if b.snap.GuideTimelines[i].Guide.ID == guideID {
			return &b.snap.GuideTimelines[i]
		}
	}
	b.Guide(guideID, guideID, 0)
	return &b.snap.GuideTimelines[len(b.snap.GuideTimelines)-1]
}
