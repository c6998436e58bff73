package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/kilianp07/dispatchboard/api/board"
	"github.com/kilianp07/dispatchboard/api/operations"
	"github.com/kilianp07/dispatchboard/app/plugins"
	"github.com/kilianp07/dispatchboard/config"
	"github.com/kilianp07/dispatchboard/core/constraint"
	"github.com/kilianp07/dispatchboard/core/dispatch"
	"github.com/kilianp07/dispatchboard/core/events"
	"github.com/kilianp07/dispatchboard/core/history"
	"github.com/kilianp07/dispatchboard/core/journal"
	coremetrics "github.com/kilianp07/dispatchboard/core/metrics"
	"github.com/kilianp07/dispatchboard/core/model"
	coremon "github.com/kilianp07/dispatchboard/core/monitoring"
	"github.com/kilianp07/dispatchboard/core/viewmodel"
	"github.com/kilianp07/dispatchboard/infra/backend"
	"github.com/kilianp07/dispatchboard/infra/logger"
	"github.com/kilianp07/dispatchboard/infra/metrics"
	"github.com/kilianp07/dispatchboard/infra/monitoring"
	"github.com/kilianp07/dispatchboard/infra/snapshot"
	"github.com/kilianp07/dispatchboard/internal/eventbus"
)

// ErrNoBackend is returned by Refresh when no backend url is configured.
var ErrNoBackend = errors.New("app: no backend configured")

// Service owns the board state and routes every board action through the
// engine, the committer and the undo history.
type Service struct {
	cfg        *config.Config
	state      *viewmodel.State
	engine     *dispatch.Engine
	committer  *dispatch.Committer
	history    *history.History
	journal    journal.Store
	sink       coremetrics.MetricsSink
	bus        *eventbus.TypedBus[events.Event]
	backend    *backend.Client
	closeApply func()
	log        logger.Logger
}

// New creates a Service from the configuration. The initial snapshot is
// read from board.snapshot, else fetched from the backend, else empty.
func New(ctx context.Context, cfg *config.Config) (*Service, error) {
	if err := logger.Configure(cfg.Logging); err != nil {
		return nil, err
	}
	log := logger.New("service")
	mon, err := monitoring.NewSentryMonitor(cfg.Sentry)
	if err != nil {
		return nil, fmt.Errorf("sentry: %w", err)
	}
	coremon.Init(mon)

	window, err := cfg.Board.Window()
	if err != nil {
		return nil, err
	}
	svc := &Service{cfg: cfg, log: log, bus: eventbus.NewTyped[events.Event]()}
	if cfg.Backend.URL != "" {
		svc.backend, err = backend.NewClient(cfg.Backend, logger.New("backend"))
		if err != nil {
			return nil, err
		}
	}
	snap, err := svc.initialSnapshot(ctx)
	if err != nil {
		return nil, err
	}
	svc.state = viewmodel.NewState(snap, window)

	svc.engine, err = dispatch.NewEngine(svc.state, dispatch.NotifierFunc(svc.reject), logger.New("engine"))
	if err != nil {
		return nil, err
	}
	svc.sink, err = coremetrics.NewMetricsSink(cfg.Metrics.Sinks)
	if err != nil {
		return nil, fmt.Errorf("metrics sink: %w", err)
	}
	be, err := plugins.NewBackend(cfg, svc.state)
	if err != nil {
		return nil, err
	}
	svc.closeApply = be.Close
	svc.committer, err = dispatch.NewCommitter(be.Applier, cfg.Dispatch.ApplyTimeout(), svc.sink, svc.bus, logger.New("committer"))
	if err != nil {
		return nil, err
	}
	svc.journal, err = journal.Open(cfg.Journal)
	if err != nil {
		return nil, err
	}
	svc.committer.SetJournal(svc.journal)
	svc.history = history.New(cfg.Board.MaxHistory)
	return svc, nil
}

func (s *Service) initialSnapshot(ctx context.Context) (model.Snapshot, error) {
	switch {
	case s.cfg.Board.Snapshot != "":
		return snapshot.Load(s.cfg.Board.Snapshot)
	case s.backend != nil:
		return s.backend.Snapshot(ctx, s.cfg.Board.Date)
	default:
		s.log.Warnf("no snapshot source configured, starting with an empty board")
		return model.Snapshot{Date: s.cfg.Board.Date}, nil
	}
}

// reject forwards refused actions to the bus; the metrics collector and
// any UI subscriber pick them up from there.
func (s *Service) reject(v *constraint.Violation) {
	s.log.With(map[string]any{"kind": string(v.Kind), "guide": v.GuideID}).Warnf("rejected: %s", v.Message)
	s.bus.Publish(events.RejectionEvent{Violation: v})
}

// Run serves the API and the metrics endpoint and polls the backend until
// ctx is canceled.
func (s *Service) Run(ctx context.Context) error {
	defer coremon.Recover()
	collected := metrics.StartEventCollector(ctx, s.bus, s.sink, s.state.Board)
	if s.cfg.Metrics.Listen != "" {
		go func() {
			if err := metrics.StartPromServer(ctx, s.cfg.Metrics.Listen); err != nil {
				s.log.Errorf("prom server: %v", err)
			}
		}()
	}
	if s.cfg.Board.RefreshSeconds > 0 {
		go s.poll(ctx, time.Duration(s.cfg.Board.RefreshSeconds)*time.Second)
	}
	if s.cfg.API.Listen != "" {
		if err := s.serveAPI(ctx); err != nil {
			return err
		}
	}
	<-ctx.Done()
	<-collected
	return nil
}

// Handler returns the HTTP API of the service.
func (s *Service) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/api/operations", operations.NewHandler(s.journal, s.cfg.API.Token))
	b := board.NewHandler(s, s.cfg.API.Token)
	mux.Handle("/api/board", b)
	mux.Handle("/api/board/", b)
	return mux
}

func (s *Service) serveAPI(ctx context.Context) error {
	srv := &http.Server{Addr: s.cfg.API.Listen, Handler: s.Handler(), ReadHeaderTimeout: 5 * time.Second}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := srv.Shutdown(shutdownCtx); err != nil {
			s.log.Errorf("api shutdown: %v", err)
		}
		cancel()
	}()
	s.log.Infof("serving api on %s", s.cfg.API.Listen)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Service) poll(ctx context.Context, every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := s.Refresh(ctx); err != nil {
				s.log.Errorf("refresh: %v", err)
			}
		}
	}
}

// Refresh replaces the board with a fresh backend snapshot. The refresh
// is skipped while an apply is in flight, holds off every action until the
// snapshot is installed and clears the undo history, whose operations no
// longer match the new snapshot.
func (s *Service) Refresh(ctx context.Context) error {
	if s.backend == nil {
		return ErrNoBackend
	}
	sess, err := s.committer.Begin("refresh")
	if err != nil {
		return err
	}
	defer sess.End()
	snap, err := s.backend.Snapshot(ctx, s.cfg.Board.Date)
	if err != nil {
		return err
	}
	s.Replace(snap)
	return nil
}

// Replace installs snap as the current board and clears the history.
func (s *Service) Replace(snap model.Snapshot) {
	s.state.Replace(snap)
	s.history.Clear()
}

// Board returns the current board.
func (s *Service) Board() *viewmodel.Board { return s.state.Board() }

// Snapshot returns the current snapshot.
func (s *Service) Snapshot() model.Snapshot { return s.state.Snapshot() }

// Events subscribes to the board events.
func (s *Service) Events() <-chan events.Event { return s.bus.Subscribe() }

// begin takes the mutating flag for one action. A closed gate is reported
// to API callers instead of being silently dropped.
func (s *Service) begin(name string) (*dispatch.Session, model.Gate, error) {
	if s.cfg.Board.ReadOnly {
		return nil, model.Gate{}, dispatch.ErrReadOnly
	}
	sess, err := s.committer.Begin(name)
	if err != nil {
		return nil, model.Gate{}, err
	}
	return sess, sess.Gate(true, false), nil
}

// commit runs one engine action and commits the resulting operation while
// holding the mutating flag. A nil operation with a nil error means the
// action was a no-op.
func (s *Service) commit(ctx context.Context, name string, action func(model.Gate) (*model.DispatchOperation, error)) (*model.DispatchOperation, error) {
	sess, g, err := s.begin(name)
	if err != nil {
		return nil, err
	}
	defer sess.End()
	op, err := action(g)
	if err != nil || op == nil {
		return nil, err
	}
	if err := sess.Commit(ctx, op, journal.ActionCommit); err != nil {
		return nil, err
	}
	s.history.Record(op)
	s.log.With(map[string]any{"operation": op.ID}).Infof("committed: %s", op.Description)
	return op, nil
}

// Assign places bookings on guideID.
func (s *Service) Assign(ctx context.Context, bookingIDs []string, guideID string) (*model.DispatchOperation, error) {
	return s.commit(ctx, "assign", func(g model.Gate) (*model.DispatchOperation, error) {
		return s.engine.Assign(g, bookingIDs, guideID)
	})
}

// BestFit places bookings on the best-fitting guide.
func (s *Service) BestFit(ctx context.Context, bookingIDs []string) (*model.DispatchOperation, error) {
	return s.commit(ctx, "best-fit", func(g model.Gate) (*model.DispatchOperation, error) {
		return s.engine.BestFit(g, bookingIDs)
	})
}

// Candidates ranks the guides able to take bookingIDs.
func (s *Service) Candidates(bookingIDs []string) ([]dispatch.Candidate, error) {
	return s.engine.RankCandidates(bookingIDs)
}

// MoveRun moves a run to toGuideID, at newStart when given.
func (s *Service) MoveRun(ctx context.Context, fromGuideID, runID, toGuideID, newStart string) (*model.DispatchOperation, error) {
	return s.commit(ctx, "move run", func(g model.Gate) (*model.DispatchOperation, error) {
		if newStart == "" {
			return s.engine.MoveRun(g, fromGuideID, runID, toGuideID)
		}
		return s.engine.MoveRunAt(g, fromGuideID, runID, toGuideID, newStart)
	})
}

// Reschedule changes the start of a run.
func (s *Service) Reschedule(ctx context.Context, guideID, runID, newStart string) (*model.DispatchOperation, error) {
	return s.commit(ctx, "reschedule", func(g model.Gate) (*model.DispatchOperation, error) {
		return s.engine.Reschedule(g, guideID, runID, newStart)
	})
}

// Nudge shifts a run by deltaMinutes.
func (s *Service) Nudge(ctx context.Context, guideID, runID string, deltaMinutes int) (*model.DispatchOperation, error) {
	return s.commit(ctx, "nudge", func(g model.Gate) (*model.DispatchOperation, error) {
		return s.engine.Nudge(g, guideID, runID, deltaMinutes)
	})
}

// ReturnToQueue unassigns every booking of a run.
func (s *Service) ReturnToQueue(ctx context.Context, guideID, runID string) (*model.DispatchOperation, error) {
	return s.commit(ctx, "return to queue", func(g model.Gate) (*model.DispatchOperation, error) {
		return s.engine.ReturnToQueue(g, guideID, runID)
	})
}

// Undo reverts the newest operation.
func (s *Service) Undo(ctx context.Context) (*model.DispatchOperation, error) {
	sess, g, err := s.begin("undo")
	if err != nil {
		return nil, err
	}
	defer sess.End()
	return s.history.Undo(ctx, g, sess)
}

// Redo re-applies the newest undone operation.
func (s *Service) Redo(ctx context.Context) (*model.DispatchOperation, error) {
	sess, g, err := s.begin("redo")
	if err != nil {
		return nil, err
	}
	defer sess.End()
	return s.history.Redo(ctx, g, sess)
}

// Close releases the journal, the apply transport and the bus.
func (s *Service) Close() error {
	if s.closeApply != nil {
		s.closeApply()
	}
	if c, ok := s.sink.(interface{ Close() }); ok {
		c.Close()
	}
	s.bus.Close()
	coremon.Flush(2 * time.Second)
	return s.journal.Close()
}
