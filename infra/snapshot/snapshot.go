// Package snapshot reads and writes dispatch snapshots as JSON or YAML files.
package snapshot

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/kilianp07/dispatchboard/core/model"
	"github.com/kilianp07/dispatchboard/core/timegrid"
)

// Format is the encoding of a snapshot file.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

var ErrUnknownFormat = errors.New("snapshot: unknown format")

// FormatOf infers the format from a file extension.
func FormatOf(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return FormatJSON, nil
	case ".yaml", ".yml":
		return FormatYAML, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownFormat, filepath.Ext(path))
	}
}

// Load reads and validates the snapshot stored at path.
func Load(path string) (model.Snapshot, error) {
	format, err := FormatOf(path)
	if err != nil {
		return model.Snapshot{}, err
	}
	f, err := os.Open(path)
	if err != nil {
		return model.Snapshot{}, fmt.Errorf("snapshot: open: %w", err)
	}
	defer f.Close()
	snap, err := Decode(f, format)
	if err != nil {
		return model.Snapshot{}, fmt.Errorf("snapshot: %s: %w", path, err)
	}
	return snap, nil
}

// Decode reads a snapshot from r and validates it.
func Decode(r io.Reader, format Format) (model.Snapshot, error) {
	var snap model.Snapshot
	switch format {
	case FormatJSON:
		dec := json.NewDecoder(r)
		dec.DisallowUnknownFields()
		if err := dec.Decode(&snap); err != nil {
			return model.Snapshot{}, fmt.Errorf("decode json: %w", err)
		}
	case FormatYAML:
		dec := yaml.NewDecoder(r)
		dec.KnownFields(true)
		if err := dec.Decode(&snap); err != nil && !errors.Is(err, io.EOF) {
			return model.Snapshot{}, fmt.Errorf("decode yaml: %w", err)
		}
	default:
		return model.Snapshot{}, fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}
	if err := Validate(snap); err != nil {
		return model.Snapshot{}, err
	}
	return snap, nil
}

// Encode writes snap to w.
func Encode(w io.Writer, snap model.Snapshot, format Format) error {
	switch format {
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(snap)
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(snap); err != nil {
			return err
		}
		return enc.Close()
	default:
		return fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}
}

// Save writes snap to path in the format of its extension. The file is
// replaced atomically.
func Save(path string, snap model.Snapshot) error {
	format, err := FormatOf(path)
	if err != nil {
		return err
	}
	var buf bytes.Buffer
	if err := Encode(&buf, snap, format); err != nil {
		return fmt.Errorf("snapshot: encode: %w", err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("snapshot: write: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("snapshot: rename: %w", err)
	}
	return nil
}

// Validate checks the referential integrity of a snapshot: unique guide,
// tour run and booking identifiers, well-formed clock times, and guide
// segments that only reference known bookings.
func Validate(snap model.Snapshot) error {
	var errs []error
	bookings := make(map[string]bool)
	runs := make(map[string]bool)
	for _, tr := range snap.TourRuns {
		if tr.Key == "" {
			errs = append(errs, errors.New("tour run without key"))
			continue
		}
		if runs[tr.Key] {
			errs = append(errs, fmt.Errorf("duplicate tour run %q", tr.Key))
		}
		runs[tr.Key] = true
		if _, ok := timegrid.ParseClock(tr.Time); !ok {
			errs = append(errs, fmt.Errorf("tour run %q: malformed time %q", tr.Key, tr.Time))
		}
		for _, bk := range tr.Bookings {
			if bk.ID == "" {
				errs = append(errs, fmt.Errorf("tour run %q: booking without id", tr.Key))
				continue
			}
			if bookings[bk.ID] {
				errs = append(errs, fmt.Errorf("duplicate booking %q", bk.ID))
			}
			bookings[bk.ID] = true
			if bk.Guests() < 0 {
				errs = append(errs, fmt.Errorf("booking %q: negative guest count", bk.ID))
			}
		}
	}
	guides := make(map[string]bool)
	for _, tl := range snap.GuideTimelines {
		id := tl.Guide.ID
		if id == "" {
			errs = append(errs, errors.New("guide without id"))
			continue
		}
		if guides[id] {
			errs = append(errs, fmt.Errorf("duplicate guide %q", id))
		}
		guides[id] = true
		if tl.VehicleCapacity < 0 {
			errs = append(errs, fmt.Errorf("guide %q: negative vehicle capacity", id))
		}
		for _, seg := range tl.Segments {
			if seg.Type != model.SegmentTour {
				continue
			}
			if _, ok := timegrid.ParseClock(seg.Start); !ok {
				errs = append(errs, fmt.Errorf("guide %q: run %q: malformed start %q", id, seg.RunKey, seg.Start))
			}
			for _, bid := range seg.BookingIDs {
				if !bookings[bid] {
					errs = append(errs, fmt.Errorf("guide %q: run %q: unknown booking %q", id, seg.RunKey, bid))
				}
			}
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("snapshot: invalid: %w", errors.Join(errs...))
	}
	return nil
}
