package viewmodel

import (
	"context"
	"sync"

	"github.com/kilianp07/dispatchboard/core/model"
	"github.com/kilianp07/dispatchboard/core/timegrid"
)

// State holds the current snapshot and the board derived from it. Every
// successful Apply swaps both atomically; readers never see a patched board.
type State struct {
	mu     sync.RWMutex
	window timegrid.Window
	snap   model.Snapshot
	board  *Board
}

// NewState builds the initial board of snap.
func NewState(snap model.Snapshot, window timegrid.Window) *State {
	s := &State{window: window}
	s.Replace(snap)
	return s
}

// Replace installs a fresh snapshot, for instance after a backend refresh.
func (s *State) Replace(snap model.Snapshot) {
	snap = snap.Clone()
	board := Build(snap, s.window)
	s.mu.Lock()
	s.snap = snap
	s.board = board
	s.mu.Unlock()
}

// Board returns the board of the current snapshot.
func (s *State) Board() *Board {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.board
}

// Snapshot returns a copy of the current snapshot.
func (s *State) Snapshot() model.Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snap.Clone()
}

// Window returns the operating window boards are built with.
func (s *State) Window() timegrid.Window { return s.window }

// Apply commits op in memory and rebuilds the board.
func (s *State) Apply(ctx context.Context, op *model.DispatchOperation) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	next, err := Apply(s.snap, op.Changes)
	if err != nil {
		return err
	}
	s.snap = next
	s.board = Build(next, s.window)
	return nil
}
