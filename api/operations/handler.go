// Package operations serves the journal of committed dispatch operations.
package operations

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/kilianp07/dispatchboard/core/journal"
)

// NewHandler returns an HTTP handler exposing the journal via
// GET /api/operations. Requests must include an Authorization header with
// "Bearer <token>" when token is non-empty.
//
// Supported filters: start and end (RFC3339), guide_id, booking_id,
// action (commit, undo, redo) and limit.
func NewHandler(store journal.Store, token string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		if token != "" && r.Header.Get("Authorization") != "Bearer "+token {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		q, err := parseQuery(r)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		records, err := store.Query(r.Context(), q)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		if records == nil {
			records = []journal.Record{}
		}
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(records); err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
	})
}

func parseQuery(r *http.Request) (journal.Query, error) {
	v := r.URL.Query()
	q := journal.Query{
		GuideID:   v.Get("guide_id"),
		BookingID: v.Get("booking_id"),
	}
	for name, dst := range map[string]*time.Time{"start": &q.Start, "end": &q.End} {
		s := v.Get(name)
		if s == "" {
			continue
		}
		t, err := time.Parse(time.RFC3339, s)
		if err != nil {
			return journal.Query{}, fmt.Errorf("invalid %s: %q", name, s)
		}
		*dst = t
	}
	switch a := journal.Action(v.Get("action")); a {
	case "", journal.ActionCommit, journal.ActionUndo, journal.ActionRedo:
		q.Action = a
	default:
		return journal.Query{}, fmt.Errorf("invalid action: %q", a)
	}
	if s := v.Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 0 {
			return journal.Query{}, fmt.Errorf("invalid limit: %q", s)
		}
		q.Limit = n
	}
	return q, nil
}
