package floor

import (
	"context"
	"sync"
	"time"
)

// SessionConfig carries the floor-session tunables.
type SessionConfig struct {
	Drag            DragConfig
	UndoDepth       int
	CompletionGrace time.Duration
	RefreshInterval time.Duration
}

// Session wires one operator's interactive surfaces together: the shared
// furniture index, the typed event bus, selection, modal coordination,
// drag editing, periodic refresh and the reassignment workflow.  One
// session exists per authenticated staff member.
type Session struct {
	StaffID uint64

	Events    *Events
	Index     *Index
	Selection *SelectionState
	Drag      *DragController
	Modals    *ModalCoordinator
	Reassign  *ReassignmentEngine
	Refresh   *RefreshScheduler

	backend Backend

	mu       sync.Mutex
	viewDate time.Time
}

// NewSession builds a fully wired session viewing the given date.
func NewSession(staffID uint64, cfg SessionConfig, backend Backend, viewDate time.Time) *Session {
	s := &Session{
		StaffID:  staffID,
		backend:  backend,
		viewDate: viewDate,
	}
	s.Events = NewEvents()
	s.Index = NewIndex()
	s.Selection = NewSelectionState(s.Index, s.Events)
	s.Refresh = NewRefreshScheduler(cfg.RefreshInterval, s.reload)
	s.Drag = NewDragController(cfg.Drag, s.Index, backend, s.Events, s.Refresh)
	s.Modals = NewModalCoordinator(s.Selection, s.Drag)
	s.Reassign = NewReassignmentEngine(backend, s.Events, s.Selection, cfg.UndoDepth, cfg.CompletionGrace)
	return s
}

// Start begins periodic index refresh and performs the initial load.
func (s *Session) Start(ctx context.Context) {
	s.Refresh.RefreshNow(ctx)
	s.Refresh.Start(ctx)
}

// Stop ends the periodic refresh.
func (s *Session) Stop() { s.Refresh.Stop() }

// ViewDate returns the service date the floor plan currently shows.
func (s *Session) ViewDate() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.viewDate
}

// SetViewDate switches the viewed date and refreshes the index.  When the
// reassignment workflow is active its pool follows the new date too.
func (s *Session) SetViewDate(ctx context.Context, date time.Time) error {
	s.mu.Lock()
	s.viewDate = date
	s.mu.Unlock()
	s.Refresh.RefreshNow(ctx)
	if s.Reassign.Active() {
		return s.Reassign.SetDate(ctx, date)
	}
	return nil
}

func (s *Session) reload(ctx context.Context) error {
	units, err := s.backend.ListUnits(ctx, s.ViewDate())
	if err != nil {
		return err
	}
	s.Index.Replace(units)
	return nil
}

// ActivateReassignment opens the reassignment surface (closing any other
// modal) and starts the workflow for the date.
func (s *Session) ActivateReassignment(ctx context.Context, date time.Time, conflict *ConflictContext) error {
	s.Modals.Open(ModalReassign, s.Reassign)
	return s.Reassign.Activate(ctx, date, conflict)
}

// DeactivateReassignment runs the guarded exit; on success the surface is
// unregistered from the coordinator.
func (s *Session) DeactivateReassignment() error {
	if err := s.Reassign.Deactivate(); err != nil {
		return err
	}
	s.Modals.Close(ModalReassign)
	return nil
}

// ForceDeactivateReassignment exits unconditionally.
func (s *Session) ForceDeactivateReassignment() {
	s.Reassign.ForceDeactivate()
	s.Modals.Close(ModalReassign)
}

// CancelReassignmentToConflict exits a conflict-triggered session and
// returns the original conflict context to the caller.
func (s *Session) CancelReassignmentToConflict() (*ConflictContext, error) {
	conflict, err := s.Reassign.CancelToConflict()
	if err != nil {
		return nil, err
	}
	s.Modals.Close(ModalReassign)
	return conflict, nil
}
