package board

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/dispatchboard/core/constraint"
	"github.com/kilianp07/dispatchboard/core/dispatch"
	"github.com/kilianp07/dispatchboard/core/history"
	"github.com/kilianp07/dispatchboard/core/model"
	"github.com/kilianp07/dispatchboard/core/timegrid"
	"github.com/kilianp07/dispatchboard/core/viewmodel"
	"github.com/kilianp07/dispatchboard/internal/fixture"
	"github.com/kilianp07/dispatchboard/pkg/export"
)

// stubService records the last call and answers with op and err.
type stubService struct {
	snap  model.Snapshot
	calls []string
	op    *model.DispatchOperation
	err   error
}

func (s *stubService) call(format string, args ...any) (*model.DispatchOperation, error) {
	s.calls = append(s.calls, fmt.Sprintf(format, args...))
	return s.op, s.err
}

func (s *stubService) Board() *viewmodel.Board {
	return viewmodel.Build(s.snap, timegrid.DefaultWindow)
}
func (s *stubService) Snapshot() model.Snapshot { return s.snap }
func (s *stubService) Candidates(ids []string) ([]dispatch.Candidate, error) {
	s.calls = append(s.calls, fmt.Sprintf("candidates %v", ids))
	if s.err != nil {
		return nil, s.err
	}
	return []dispatch.Candidate{{GuideID: "ana", Remaining: 3}}, nil
}
func (s *stubService) Assign(_ context.Context, ids []string, guideID string) (*model.DispatchOperation, error) {
	return s.call("assign %v %s", ids, guideID)
}
func (s *stubService) BestFit(_ context.Context, ids []string) (*model.DispatchOperation, error) {
	return s.call("bestfit %v", ids)
}
func (s *stubService) MoveRun(_ context.Context, from, runID, to, start string) (*model.DispatchOperation, error) {
	return s.call("move %s %s %s %q", from, runID, to, start)
}
func (s *stubService) Reschedule(_ context.Context, guideID, runID, start string) (*model.DispatchOperation, error) {
	return s.call("reschedule %s %s %s", guideID, runID, start)
}
func (s *stubService) Nudge(_ context.Context, guideID, runID string, delta int) (*model.DispatchOperation, error) {
	return s.call("nudge %s %s %d", guideID, runID, delta)
}
func (s *stubService) ReturnToQueue(_ context.Context, guideID, runID string) (*model.DispatchOperation, error) {
	return s.call("return %s %s", guideID, runID)
}
func (s *stubService) Undo(context.Context) (*model.DispatchOperation, error) { return s.call("undo") }
func (s *stubService) Redo(context.Context) (*model.DispatchOperation, error) { return s.call("redo") }

func newStub() *stubService {
	return &stubService{snap: fixture.New().
		Guide("ana", "Ana", 4).
		TourRun("city", "City Walk", "09:00", 90,
			fixture.Booking("b1", 3, model.ModeJoin),
			fixture.Booking("b2", 2, model.ModeJoin),
		).
		Run("ana", "city", "09:00", "b1", "b2").
		Snapshot()}
}

func do(h http.Handler, method, target, body, token string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func TestAuth(t *testing.T) {
	h := NewHandler(newStub(), "tok")
	assert.Equal(t, http.StatusUnauthorized, do(h, http.MethodGet, "/api/board", "", "").Code)
	assert.Equal(t, http.StatusOK, do(h, http.MethodGet, "/api/board", "", "tok").Code)
}

func TestReadEndpoints(t *testing.T) {
	s := newStub()
	h := NewHandler(s, "")

	rr := do(h, http.MethodGet, "/api/board", "", "")
	require.Equal(t, http.StatusOK, rr.Code)
	var plan export.Plan
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &plan))
	assert.Equal(t, "2024-06-01", plan.Date)
	require.Len(t, plan.Guides, 1)
	assert.Equal(t, 5, plan.Guides[0].TotalGuests)

	rr = do(h, http.MethodGet, "/api/board/summary", "", "")
	require.Equal(t, http.StatusOK, rr.Code)
	var sum viewmodel.Summary
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &sum))
	assert.Equal(t, []string{"ana"}, sum.OverCapacity)

	rr = do(h, http.MethodGet, "/api/board/audit", "", "")
	require.Equal(t, http.StatusOK, rr.Code)
	var audit []constraint.Violation
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &audit))
	require.Len(t, audit, 1)
	assert.Equal(t, constraint.KindCapacity, audit[0].Kind)

	rr = do(h, http.MethodGet, "/api/board/candidates?booking_id=b1&booking_id=b2", "", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, []string{"candidates [b1 b2]"}, s.calls)

	rr = do(h, http.MethodGet, "/api/board/export.csv", "", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "text/csv", rr.Header().Get("Content-Type"))
	recs, err := csv.NewReader(rr.Body).ReadAll()
	require.NoError(t, err)
	assert.Len(t, recs, 3)

	assert.Equal(t, http.StatusNotFound, do(h, http.MethodGet, "/api/board/nope", "", "").Code)
	assert.Equal(t, http.StatusMethodNotAllowed, do(h, http.MethodDelete, "/api/board", "", "").Code)
}

func TestActionsRouteToService(t *testing.T) {
	tests := []struct {
		path string
		body string
		want string
	}{
		{"assign", `{"bookingIds":["b1"],"guideId":"ben"}`, "assign [b1] ben"},
		{"best-fit", `{"bookingIds":["b1","b2"]}`, "bestfit [b1 b2]"},
		{"move", `{"fromGuideId":"ana","runId":"ana:city","toGuideId":"ben"}`, `move ana ana:city ben ""`},
		{"move", `{"fromGuideId":"ana","runId":"ana:city","toGuideId":"ben","start":"13:00"}`, `move ana ana:city ben "13:00"`},
		{"reschedule", `{"guideId":"ana","runId":"ana:city","start":"10:00"}`, "reschedule ana ana:city 10:00"},
		{"nudge", `{"guideId":"ana","runId":"ana:city","deltaMinutes":-15}`, "nudge ana ana:city -15"},
		{"return", `{"guideId":"ana","runId":"ana:city"}`, "return ana ana:city"},
		{"undo", "", "undo"},
		{"redo", "", "redo"},
	}
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			s := newStub()
			s.op = model.NewOperation("op",
				[]model.Change{model.Assign{BookingID: "b1", ToGuideID: "ben"}},
				[]model.Change{model.Unassign{BookingIDs: []string{"b1"}, FromGuideID: "ben"}},
			)
			rr := do(NewHandler(s, ""), http.MethodPost, "/api/board/"+tt.path, tt.body, "")
			require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
			assert.Equal(t, []string{tt.want}, s.calls)
			var got model.DispatchOperation
			require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &got))
			assert.Equal(t, s.op.ID, got.ID)
		})
	}
}

func TestActionStatuses(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"no-op", nil, http.StatusNoContent},
		{"violation", &constraint.Violation{Kind: constraint.KindCapacity, Message: "Ana: 5/4 seats"}, http.StatusUnprocessableEntity},
		{"unknown guide", fmt.Errorf("dispatch: %w: zed", viewmodel.ErrUnknownGuide), http.StatusNotFound},
		{"unknown run", fmt.Errorf("dispatch: %w", viewmodel.ErrUnknownRun), http.StatusNotFound},
		{"busy", dispatch.ErrBusy, http.StatusConflict},
		{"read-only", dispatch.ErrReadOnly, http.StatusConflict},
		{"nothing to undo", history.ErrNothingToUndo, http.StatusConflict},
		{"apply failure", fmt.Errorf("dispatch: apply: boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newStub()
			s.err = tt.err
			rr := do(NewHandler(s, ""), http.MethodPost, "/api/board/undo", "", "")
			assert.Equal(t, tt.want, rr.Code)
			if tt.name == "violation" {
				var resp ErrorResponse
				require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
				assert.Equal(t, "Ana: 5/4 seats", resp.Error)
				require.NotNil(t, resp.Violation)
				assert.Equal(t, constraint.KindCapacity, resp.Violation.Kind)
			}
		})
	}
}

func TestBadActionRequests(t *testing.T) {
	h := NewHandler(newStub(), "")
	assert.Equal(t, http.StatusNotFound, do(h, http.MethodPost, "/api/board/teleport", "{}", "").Code)
	assert.Equal(t, http.StatusBadRequest, do(h, http.MethodPost, "/api/board/assign", "{", "").Code)
	assert.Equal(t, http.StatusBadRequest, do(h, http.MethodPost, "/api/board/assign", `{"vehicle":"x"}`, "").Code)
}
