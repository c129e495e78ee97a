package floor

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"
)

// Engine errors surfaced to the wiring layer.
var (
	ErrNotActive         = errors.New("reassignment not active")
	ErrAlreadyActive     = errors.New("reassignment already active")
	ErrIncompletePool    = errors.New("pool entries incomplete")
	ErrNotConflictDriven = errors.New("reassignment was not conflict triggered")
	ErrEntryNotFound     = errors.New("pool entry not found")
)

// ConflictContext identifies the external conflict-resolution flow that
// triggered a reassignment session.  It is handed back verbatim on the
// cancel-to-conflict exit so the caller can resume where it left off.
type ConflictContext struct {
	Origin        string `json:"origin"`
	ReservationID uint64 `json:"reservation_id"`
}

// ReassignmentEngine runs the pool based workflow that resolves capacity
// shortfalls by moving furniture between reservations.  It is registered
// with the ModalCoordinator under ModalReassign, the one surface exempt
// from the read-only gate.
type ReassignmentEngine struct {
	mu sync.Mutex

	backend   Backend
	events    *Events
	selection *SelectionState
	undo      *UndoStack

	active   bool
	conflict *ConflictContext
	date     time.Time

	pool     []*PoolEntry
	selected uint64 // reservation id of the working entry, 0 when none

	graceDelay time.Duration
	generation uint64

	// afterFunc schedules the grace-period removal; swapped out in tests.
	afterFunc func(d time.Duration, fn func()) *time.Timer
}

// NewReassignmentEngine wires the workflow over the shared backend, bus,
// selection state and a bounded undo history.
func NewReassignmentEngine(backend Backend, events *Events, selection *SelectionState, undoDepth int, graceDelay time.Duration) *ReassignmentEngine {
	return &ReassignmentEngine{
		backend:    backend,
		events:     events,
		selection:  selection,
		undo:       NewUndoStack(undoDepth),
		graceDelay: graceDelay,
		afterFunc:  time.AfterFunc,
	}
}

// Close implements Surface.  The coordinator calls it best-effort when
// another surface opens; the incomplete-pool guard still applies, so an
// operator cannot lose an unfinished session to a stray overlay.
func (e *ReassignmentEngine) Close() error { return e.Deactivate() }

// Active reports whether a session is running.
func (e *ReassignmentEngine) Active() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.active
}

// Date returns the service date of the running session.
func (e *ReassignmentEngine) Date() time.Time {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.date
}

// UndoDepth returns the number of undoable actions currently stored.
func (e *ReassignmentEngine) UndoDepth() int { return e.undo.Len() }

// Activate starts a session for the date: pool, undo history and canvas
// selection reset, the under-assigned reservations are loaded and one
// pool entry is seeded per reservation, auto-selecting the first when the
// pool was empty before.  A non-nil conflict marks the session as
// conflict-triggered, which only affects the exit paths.
func (e *ReassignmentEngine) Activate(ctx context.Context, date time.Time, conflict *ConflictContext) error {
	e.mu.Lock()
	if e.active {
		e.mu.Unlock()
		return ErrAlreadyActive
	}
	e.active = true
	e.conflict = conflict
	e.date = date
	e.pool = nil
	e.selected = 0
	e.mu.Unlock()

	e.undo.Clear()
	e.selection.Clear()
	e.events.publishActivate(ActivateEvent{Date: date, ConflictTriggered: conflict != nil})

	if err := e.loadPool(ctx, date); err != nil {
		return err
	}

	e.mu.Lock()
	var first uint64
	if e.selected == 0 && len(e.pool) > 0 {
		first = e.pool[0].ReservationID
	}
	e.mu.Unlock()
	if first != 0 {
		if err := e.SelectEntry(ctx, first); err != nil {
			log.Printf("reassign: auto-select entry %d: %v", first, err)
		}
	}
	return nil
}

// loadPool replaces the pool with one entry per under-assigned
// reservation for the date.
func (e *ReassignmentEngine) loadPool(ctx context.Context, date time.Time) error {
	ids, err := e.backend.UnderAssigned(ctx, date)
	if err != nil {
		return err
	}
	entries := make([]*PoolEntry, 0, len(ids))
	for _, id := range ids {
		seed, err := e.backend.PoolSeed(ctx, id, date)
		if err != nil {
			log.Printf("reassign: seeding reservation %d: %v", id, err)
			continue
		}
		e.mu.Lock()
		e.generation++
		gen := e.generation
		e.mu.Unlock()
		entries = append(entries, entryFromSeed(seed, gen))
	}
	e.mu.Lock()
	e.pool = entries
	e.mu.Unlock()
	e.publishPool()
	return nil
}

// Pool returns a snapshot of the current entries.
func (e *ReassignmentEngine) Pool() []PoolEntry {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.poolSnapshotLocked()
}

func (e *ReassignmentEngine) poolSnapshotLocked() []PoolEntry {
	out := make([]PoolEntry, 0, len(e.pool))
	for _, p := range e.pool {
		out = append(out, *p)
	}
	return out
}

func (e *ReassignmentEngine) publishPool() {
	e.mu.Lock()
	snap := e.poolSnapshotLocked()
	e.mu.Unlock()
	e.events.publishPoolUpdate(PoolUpdateEvent{Entries: snap})
}

func (e *ReassignmentEngine) findLocked(reservationID uint64) *PoolEntry {
	for _, p := range e.pool {
		if p.ReservationID == reservationID {
			return p
		}
	}
	return nil
}

// SelectEntry makes the pool entry the working one and requests a
// preference match for it; the response is forwarded as the two highlight
// tiers.
func (e *ReassignmentEngine) SelectEntry(ctx context.Context, reservationID uint64) error {
	e.mu.Lock()
	if !e.active {
		e.mu.Unlock()
		return ErrNotActive
	}
	entry := e.findLocked(reservationID)
	if entry == nil {
		e.mu.Unlock()
		return ErrEntryNotFound
	}
	e.selected = reservationID
	prefs := append([]string(nil), entry.Preferences...)
	date := e.date
	e.mu.Unlock()

	e.events.publishEntrySelected(EntrySelectedEvent{ReservationID: reservationID})
	if len(prefs) == 0 {
		e.events.publishHighlight(HighlightEvent{Full: []uint64{}, Partial: []uint64{}})
		return nil
	}
	match, err := e.backend.MatchPreferences(ctx, date, prefs)
	if err != nil {
		return err
	}
	e.events.publishHighlight(HighlightEvent{Full: match.Full, Partial: match.Partial})
	return nil
}

// SelectedEntry returns the reservation id of the working entry, 0 when
// none is selected.
func (e *ReassignmentEngine) SelectedEntry() uint64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.selected
}

// Unassign releases the units from the reservation for the session date.
//
// Locked furniture emits the dedicated lockBlocked cue instead of a
// generic failure.  A successful call that released nothing means the
// units were not actually attached: a distinct warning is surfaced and no
// undo entry is pushed.  A successful non-zero release pushes the inverse
// assign onto the undo stack and reloads the entry from backend truth.
func (e *ReassignmentEngine) Unassign(ctx context.Context, reservationID uint64, unitIDs []uint64) error {
	e.mu.Lock()
	if !e.active {
		e.mu.Unlock()
		return ErrNotActive
	}
	date := e.date
	e.mu.Unlock()

	res, err := e.backend.Unassign(ctx, reservationID, unitIDs, date)
	if err != nil {
		var lock *LockConflictError
		if errors.As(err, &lock) {
			e.events.publishLockBlocked(LockBlockedEvent{ReservationID: reservationID, UnitIDs: lock.UnitIDs})
			return nil
		}
		return err
	}
	if res.Changed == 0 {
		e.events.publishWarning(WarningEvent{
			Code:    WarnNothingReleased,
			Message: "none of the requested furniture was assigned to this reservation",
		})
		return nil
	}
	e.undo.Push(UndoAction{
		Type:          UndoAssign,
		ReservationID: reservationID,
		FurnitureIDs:  res.UnitIDs,
		Date:          date,
	})
	return e.reloadEntry(ctx, reservationID)
}

// Assign attaches the units to the reservation for the session date.  A
// rejection with a server-supplied reason is surfaced as a warning and is
// not fatal to the workflow.  On success the inverse unassign is pushed
// and the entry reloads from backend truth.
func (e *ReassignmentEngine) Assign(ctx context.Context, reservationID uint64, unitIDs []uint64) error {
	e.mu.Lock()
	if !e.active {
		e.mu.Unlock()
		return ErrNotActive
	}
	date := e.date
	e.mu.Unlock()

	res, err := e.backend.Assign(ctx, reservationID, unitIDs, date)
	if err != nil {
		var rej *RejectedError
		if errors.As(err, &rej) {
			e.events.publishWarning(WarningEvent{Code: WarnAssignRejected, Message: rej.Reason})
			return nil
		}
		return err
	}
	if res.Changed > 0 {
		e.undo.Push(UndoAction{
			Type:          UndoUnassign,
			ReservationID: reservationID,
			FurnitureIDs:  res.UnitIDs,
			Date:          date,
		})
	}
	return e.reloadEntry(ctx, reservationID)
}

// reloadEntry refreshes one entry from the backend.  Capacity is never
// extrapolated locally.  A reservation that is not in the pool yet (it
// became under-assigned through this session's own mutations) enters it
// now, with the snapshot captured at this moment.  Entries that reach
// their needed capacity are marked complete and scheduled for removal
// after the grace delay.
func (e *ReassignmentEngine) reloadEntry(ctx context.Context, reservationID uint64) error {
	e.mu.Lock()
	date := e.date
	e.mu.Unlock()

	seed, err := e.backend.PoolSeed(ctx, reservationID, date)
	if err != nil {
		return err
	}

	e.mu.Lock()
	e.generation++
	gen := e.generation
	entry := e.findLocked(reservationID)
	if entry == nil {
		entry = entryFromSeed(seed, gen)
		e.pool = append(e.pool, entry)
	} else {
		entry.applySeed(seed, gen)
	}
	complete := entry.Complete
	delay := e.graceDelay
	e.mu.Unlock()

	e.publishPool()
	if complete {
		// Keep the finished entry visible briefly for confirmation, then
		// remove it only if nothing touched it during the grace window.
		e.afterFunc(delay, func() { e.removeIfUnchanged(reservationID, gen) })
	}
	return nil
}

// removeIfUnchanged drops a completed entry after its grace period.  The
// entry is re-fetched from the live pool rather than assumed present, and
// the generation recorded at scheduling time must still match: a
// concurrent mutation of the same reservation bumps the generation and
// keeps the entry alive.
func (e *ReassignmentEngine) removeIfUnchanged(reservationID, scheduledGen uint64) {
	e.mu.Lock()
	entry := e.findLocked(reservationID)
	if entry == nil || entry.generation != scheduledGen || !entry.Complete {
		e.mu.Unlock()
		return
	}
	kept := e.pool[:0]
	for _, p := range e.pool {
		if p.ReservationID != reservationID {
			kept = append(kept, p)
		}
	}
	e.pool = kept
	if e.selected == reservationID {
		e.selected = 0
	}
	e.mu.Unlock()
	e.publishPool()
}

// Undo pops the newest action and replays it against the backend.  The
// replay itself pushes nothing.  An empty stack is a no-op with a
// user-visible notice.  A failed replay restores the action to the top of
// the stack; nothing retries automatically.
func (e *ReassignmentEngine) Undo(ctx context.Context) error {
	e.mu.Lock()
	if !e.active {
		e.mu.Unlock()
		return ErrNotActive
	}
	e.mu.Unlock()

	action, ok := e.undo.Pop()
	if !ok {
		e.events.publishWarning(WarningEvent{Code: WarnUndoEmpty, Message: "nothing to undo"})
		return nil
	}

	var err error
	switch action.Type {
	case UndoAssign:
		_, err = e.backend.Assign(ctx, action.ReservationID, action.FurnitureIDs, action.Date)
	case UndoUnassign:
		_, err = e.backend.Unassign(ctx, action.ReservationID, action.FurnitureIDs, action.Date)
	}
	if err != nil {
		e.undo.Restore(action)
		e.events.publishWarning(WarningEvent{Code: WarnUndoFailed, Message: err.Error()})
		return err
	}
	if reloadErr := e.reloadEntry(ctx, action.ReservationID); reloadErr != nil {
		log.Printf("reassign: reload after undo for reservation %d: %v", action.ReservationID, reloadErr)
	}
	e.events.publishUndo(UndoEvent{Action: action, Remaining: e.undo.Len()})
	return nil
}

// SetDate switches the session to a new service date.  History is not
// meaningful across dates: pool, selection and undo stack are cleared
// before the under-assigned reservations for the new date load.
func (e *ReassignmentEngine) SetDate(ctx context.Context, date time.Time) error {
	e.mu.Lock()
	if !e.active {
		e.mu.Unlock()
		return ErrNotActive
	}
	e.date = date
	e.pool = nil
	e.selected = 0
	e.mu.Unlock()

	e.undo.Clear()
	e.selection.Clear()
	return e.loadPool(ctx, date)
}

// Deactivate ends the session.  While any pool entry remains incomplete
// it refuses with an advisory warning and changes no state.
func (e *ReassignmentEngine) Deactivate() error {
	e.mu.Lock()
	if !e.active {
		e.mu.Unlock()
		return nil
	}
	for _, p := range e.pool {
		if p.Incomplete() {
			e.mu.Unlock()
			e.events.publishWarning(WarningEvent{
				Code:    WarnIncompletePool,
				Message: "reservations still need furniture; finish or force-exit",
			})
			return ErrIncompletePool
		}
	}
	e.resetLocked()
	e.mu.Unlock()
	e.finishReset(DeactivateEvent{})
	return nil
}

// ForceDeactivate ends the session unconditionally.
func (e *ReassignmentEngine) ForceDeactivate() {
	e.mu.Lock()
	if !e.active {
		e.mu.Unlock()
		return
	}
	e.resetLocked()
	e.mu.Unlock()
	e.finishReset(DeactivateEvent{Forced: true})
}

// CancelToConflict is the exit path for conflict-triggered sessions: the
// same reset as deactivation, but the original conflict context is handed
// back to the caller instead of the exit counting as completion.
func (e *ReassignmentEngine) CancelToConflict() (*ConflictContext, error) {
	e.mu.Lock()
	if !e.active {
		e.mu.Unlock()
		return nil, ErrNotActive
	}
	if e.conflict == nil {
		e.mu.Unlock()
		return nil, ErrNotConflictDriven
	}
	conflict := e.conflict
	e.resetLocked()
	e.mu.Unlock()
	e.finishReset(DeactivateEvent{Conflict: conflict})
	return conflict, nil
}

// resetLocked clears all session state.  Caller holds e.mu.
func (e *ReassignmentEngine) resetLocked() {
	e.active = false
	e.conflict = nil
	e.pool = nil
	e.selected = 0
}

func (e *ReassignmentEngine) finishReset(ev DeactivateEvent) {
	e.undo.Clear()
	e.selection.Clear()
	e.events.publishDeactivate(ev)
}
