// Package board serves the dispatch board and accepts board actions over
// HTTP.
package board

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/kilianp07/dispatchboard/core/constraint"
	"github.com/kilianp07/dispatchboard/core/dispatch"
	"github.com/kilianp07/dispatchboard/core/history"
	"github.com/kilianp07/dispatchboard/core/model"
	"github.com/kilianp07/dispatchboard/core/viewmodel"
	"github.com/kilianp07/dispatchboard/pkg/export"
)

// Service is the board owner. *app.Service satisfies it.
type Service interface {
	Board() *viewmodel.Board
	Snapshot() model.Snapshot
	Candidates(bookingIDs []string) ([]dispatch.Candidate, error)
	Assign(ctx context.Context, bookingIDs []string, guideID string) (*model.DispatchOperation, error)
	BestFit(ctx context.Context, bookingIDs []string) (*model.DispatchOperation, error)
	MoveRun(ctx context.Context, fromGuideID, runID, toGuideID, newStart string) (*model.DispatchOperation, error)
	Reschedule(ctx context.Context, guideID, runID, newStart string) (*model.DispatchOperation, error)
	Nudge(ctx context.Context, guideID, runID string, deltaMinutes int) (*model.DispatchOperation, error)
	ReturnToQueue(ctx context.Context, guideID, runID string) (*model.DispatchOperation, error)
	Undo(ctx context.Context) (*model.DispatchOperation, error)
	Redo(ctx context.Context) (*model.DispatchOperation, error)
}

// Request is the body of every action.
type Request struct {
	BookingIDs   []string `json:"bookingIds,omitempty"`
	GuideID      string   `json:"guideId,omitempty"`
	FromGuideID  string   `json:"fromGuideId,omitempty"`
	ToGuideID    string   `json:"toGuideId,omitempty"`
	RunID        string   `json:"runId,omitempty"`
	Start        string   `json:"start,omitempty"`
	DeltaMinutes int      `json:"deltaMinutes,omitempty"`
}

// ErrorResponse carries a refused action. Violation is set for constraint
// rejections.
type ErrorResponse struct {
	Error     string                `json:"error"`
	Violation *constraint.Violation `json:"violation,omitempty"`
}

type action func(ctx context.Context, s Service, req Request) (*model.DispatchOperation, error)

var actions = map[string]action{
	"assign": func(ctx context.Context, s Service, req Request) (*model.DispatchOperation, error) {
		return s.Assign(ctx, req.BookingIDs, req.GuideID)
	},
	"best-fit": func(ctx context.Context, s Service, req Request) (*model.DispatchOperation, error) {
		return s.BestFit(ctx, req.BookingIDs)
	},
	"move": func(ctx context.Context, s Service, req Request) (*model.DispatchOperation, error) {
		return s.MoveRun(ctx, req.FromGuideID, req.RunID, req.ToGuideID, req.Start)
	},
	"reschedule": func(ctx context.Context, s Service, req Request) (*model.DispatchOperation, error) {
		return s.Reschedule(ctx, req.GuideID, req.RunID, req.Start)
	},
	"nudge": func(ctx context.Context, s Service, req Request) (*model.DispatchOperation, error) {
		return s.Nudge(ctx, req.GuideID, req.RunID, req.DeltaMinutes)
	},
	"return": func(ctx context.Context, s Service, req Request) (*model.DispatchOperation, error) {
		return s.ReturnToQueue(ctx, req.GuideID, req.RunID)
	},
	"undo": func(ctx context.Context, s Service, _ Request) (*model.DispatchOperation, error) {
		return s.Undo(ctx)
	},
	"redo": func(ctx context.Context, s Service, _ Request) (*model.DispatchOperation, error) {
		return s.Redo(ctx)
	},
}

// NewHandler returns the board API:
//
//	GET  /api/board              board plan (rows, queue, summary)
//	GET  /api/board/summary      load summary
//	GET  /api/board/audit        violations present on the board
//	GET  /api/board/candidates   best-fit ranking for ?booking_id=...
//	GET  /api/board/export.csv   one line per booking
//	POST /api/board/{action}     assign, best-fit, move, reschedule, nudge,
//	                             return, undo, redo
//
// Requests must include an Authorization header with "Bearer <token>"
// when token is non-empty.
func NewHandler(s Service, token string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if token != "" && r.Header.Get("Authorization") != "Bearer "+token {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		path := strings.Trim(strings.TrimPrefix(r.URL.Path, "/api/board"), "/")
		if r.Method == http.MethodPost {
			act, ok := actions[path]
			if !ok {
				http.NotFound(w, r)
				return
			}
			handleAction(w, r, s, act)
			return
		}
		if r.Method != http.MethodGet {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		switch path {
		case "":
			writeJSON(w, http.StatusOK, export.NewPlan(s.Snapshot().Date, s.Board()))
		case "summary":
			writeJSON(w, http.StatusOK, s.Board().Summary())
		case "audit":
			v := constraint.Audit(s.Board())
			if v == nil {
				v = []constraint.Violation{}
			}
			writeJSON(w, http.StatusOK, v)
		case "candidates":
			c, err := s.Candidates(r.URL.Query()["booking_id"])
			if err != nil {
				writeError(w, err)
				return
			}
			if c == nil {
				c = []dispatch.Candidate{}
			}
			writeJSON(w, http.StatusOK, c)
		case "export.csv":
			w.Header().Set("Content-Type", "text/csv")
			if err := export.WriteCSV(w, s.Board()); err != nil {
				http.Error(w, err.Error(), http.StatusInternalServerError)
			}
		default:
			http.NotFound(w, r)
		}
	})
}

func handleAction(w http.ResponseWriter, r *http.Request, s Service, act action) {
	var req Request
	if r.ContentLength != 0 {
		dec := json.NewDecoder(r.Body)
		dec.DisallowUnknownFields()
		if err := dec.Decode(&req); err != nil {
			writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "invalid body: " + err.Error()})
			return
		}
	}
	op, err := act(r.Context(), s, req)
	if err != nil {
		writeError(w, err)
		return
	}
	if op == nil {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	writeJSON(w, http.StatusOK, op)
}

// writeError maps engine and committer errors to HTTP statuses.
func writeError(w http.ResponseWriter, err error) {
	var v *constraint.Violation
	switch {
	case errors.As(err, &v):
		writeJSON(w, http.StatusUnprocessableEntity, ErrorResponse{Error: v.Message, Violation: v})
	case errors.Is(err, viewmodel.ErrUnknownGuide),
		errors.Is(err, viewmodel.ErrUnknownRun),
		errors.Is(err, viewmodel.ErrUnknownBooking):
		writeJSON(w, http.StatusNotFound, ErrorResponse{Error: err.Error()})
	case errors.Is(err, dispatch.ErrBusy),
		errors.Is(err, dispatch.ErrReadOnly),
		errors.Is(err, history.ErrNothingToUndo),
		errors.Is(err, history.ErrNothingToRedo):
		writeJSON(w, http.StatusConflict, ErrorResponse{Error: err.Error()})
	default:
		writeJSON(w, http.StatusInternalServerError, ErrorResponse{Error: err.Error()})
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
