package cmd

import (
	"bytes"
	"encoding/csv"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/kilianp07/dispatchboard/core/model"
	"github.com/kilianp07/dispatchboard/infra/snapshot"
	"github.com/kilianp07/dispatchboard/internal/fixture"
)

func writeSnapshot(t *testing.T, snap model.Snapshot) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "day.json")
	if err := snapshot.Save(path, snap); err != nil {
		t.Fatalf("save: %v", err)
	}
	return path
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	planOut, exportOut, exportFormat = "", "", "json"
	var buf bytes.Buffer
	rootCmd.SetOut(&buf)
	rootCmd.SetErr(&buf)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return buf.String(), err
}

func queued() model.Snapshot {
	return fixture.New().
		Guide("ana", "Ana", 10).
		TourRun("city", "City Walk", "09:00", 90,
			fixture.Booking("b1", 2, model.ModeJoin),
			fixture.Booking("b2", 3, model.ModeJoin),
		).
		TourRun("bus", "Coach Tour", "16:00", 240,
			fixture.Booking("big", 30, model.ModeBook),
		).
		Snapshot()
}

func TestPlanCommand(t *testing.T) {
	in := writeSnapshot(t, queued())
	out := filepath.Join(t.TempDir(), "planned.yaml")
	got, err := execute(t, "plan", in, "--out", out)
	if err != nil {
		t.Fatalf("plan: %v", err)
	}
	if !strings.Contains(got, "1 planned, 1 left in queue") {
		t.Fatalf("unexpected output: %q", got)
	}
	if !strings.Contains(got, "queued\tcharter_big") {
		t.Fatalf("rejected group not reported: %q", got)
	}
	planned, err := snapshot.Load(out)
	if err != nil {
		t.Fatalf("load planned: %v", err)
	}
	if len(planned.GuideTimelines[0].Segments) != 1 {
		t.Fatalf("expected one planned run, got %+v", planned.GuideTimelines[0].Segments)
	}
}

func TestCheckCommand(t *testing.T) {
	ok := writeSnapshot(t, queued())
	if _, err := execute(t, "check", ok); err != nil {
		t.Fatalf("clean snapshot: %v", err)
	}

	over := fixture.New().
		Guide("ana", "Ana", 4).
		TourRun("city", "City Walk", "09:00", 90,
			fixture.Booking("b1", 2, model.ModeJoin),
			fixture.Booking("b2", 3, model.ModeJoin),
		).
		Run("ana", "city", "09:00", "b1", "b2").
		Snapshot()
	got, err := execute(t, "check", writeSnapshot(t, over))
	if err != errViolations {
		t.Fatalf("expected violations, got %v", err)
	}
	if !strings.Contains(got, "capacity\tana") {
		t.Fatalf("violation not printed: %q", got)
	}
}

func TestExportCommand(t *testing.T) {
	in := writeSnapshot(t, queued())
	out := filepath.Join(t.TempDir(), "plan.csv")
	if _, err := execute(t, "export", in, "--format", "csv", "--out", out); err != nil {
		t.Fatalf("export: %v", err)
	}
	f, err := os.Open(out)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer f.Close()
	recs, err := csv.NewReader(f).ReadAll()
	if err != nil {
		t.Fatalf("csv: %v", err)
	}
	if len(recs) != 4 {
		t.Fatalf("expected header and 3 bookings, got %d lines", len(recs))
	}

	got, err := execute(t, "export", in)
	if err != nil {
		t.Fatalf("export json: %v", err)
	}
	if !strings.Contains(got, `"unassigned"`) {
		t.Fatalf("unexpected json: %q", got)
	}

	if _, err := execute(t, "export", in, "--format", "xml"); err == nil {
		t.Fatal("expected unknown format error")
	}
}
