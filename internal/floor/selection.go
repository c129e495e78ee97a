package floor

import (
	"errors"
	"sort"
	"sync"
)

// ErrUnitBlocked rejects selection of blocked furniture.  The rejection
// is unconditional: it applies even when the read-only gate is open.
var ErrUnitBlocked = errors.New("unit blocked")

// SelectionState tracks which furniture units are selected on the canvas.
// Mutation is gated by a read-only flag owned by the ModalCoordinator:
// while a non-interactive surface is open, Select is a silent no-op.
type SelectionState struct {
	mu       sync.Mutex
	ids      map[uint64]struct{}
	readOnly bool

	index  *Index
	events *Events
}

// NewSelectionState returns an empty selection over the given index.
func NewSelectionState(index *Index, events *Events) *SelectionState {
	return &SelectionState{
		ids:    make(map[uint64]struct{}),
		index:  index,
		events: events,
	}
}

// Select adds a unit to the selection.  Non-additive selection replaces
// the whole set with the one unit; additive selection on an already
// selected unit toggles it off.  It returns false without mutating when
// the read-only gate is set, and ErrUnitBlocked (plus a rejection cue)
// for blocked units regardless of the gate.
func (s *SelectionState) Select(id uint64, additive bool) (bool, error) {
	if u, ok := s.index.Get(id); ok && u.Blocked {
		s.events.publishRejection(RejectionEvent{UnitID: id, Reason: "blocked"})
		return false, ErrUnitBlocked
	}
	s.mu.Lock()
	if s.readOnly {
		s.mu.Unlock()
		return false, nil
	}
	if additive {
		if _, selected := s.ids[id]; selected {
			delete(s.ids, id)
		} else {
			s.ids[id] = struct{}{}
		}
	} else {
		s.ids = map[uint64]struct{}{id: {}}
	}
	snapshot := s.selectedLocked()
	s.mu.Unlock()
	s.events.publishSelectionChange(SelectionChangeEvent{UnitIDs: snapshot})
	return true, nil
}

// Deselect removes one unit from the selection if present.
func (s *SelectionState) Deselect(id uint64) {
	s.mu.Lock()
	if _, ok := s.ids[id]; !ok {
		s.mu.Unlock()
		return
	}
	delete(s.ids, id)
	snapshot := s.selectedLocked()
	s.mu.Unlock()
	s.events.publishSelectionChange(SelectionChangeEvent{UnitIDs: snapshot})
}

// Clear empties the selection.  Clearing an already empty selection does
// not publish an event.
func (s *SelectionState) Clear() {
	s.mu.Lock()
	if len(s.ids) == 0 {
		s.mu.Unlock()
		return
	}
	s.ids = make(map[uint64]struct{})
	s.mu.Unlock()
	s.events.publishSelectionChange(SelectionChangeEvent{UnitIDs: []uint64{}})
}

// IsSelected reports whether the unit is in the selection.
func (s *SelectionState) IsSelected(id uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.ids[id]
	return ok
}

// CanSelect reports whether the read-only gate currently allows selection.
func (s *SelectionState) CanSelect() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return !s.readOnly
}

// SetReadOnly flips the mutation gate.  Owned by the ModalCoordinator.
func (s *SelectionState) SetReadOnly(readOnly bool) {
	s.mu.Lock()
	s.readOnly = readOnly
	s.mu.Unlock()
}

// Selected returns the selected unit ids in ascending order.
func (s *SelectionState) Selected() []uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.selectedLocked()
}

func (s *SelectionState) selectedLocked() []uint64 {
	out := make([]uint64, 0, len(s.ids))
	for id := range s.ids {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
