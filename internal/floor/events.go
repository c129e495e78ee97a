// Package floor implements the interactive floor-plan subsystem: selection
// state, modal coordination, optimistic drag editing and the pool based
// reassignment workflow.  The package owns no persistence; everything
// authoritative goes through the Backend interface and every state change
// visible to a consuming view is announced on the typed event bus.
package floor

import (
	"sync"
	"time"
)

// Event payloads.  One struct per event kind keeps the payload shape
// checked at compile time instead of relying on name-keyed callback lists.

// ActivateEvent fires when the reassignment workflow becomes active.
type ActivateEvent struct {
	Date              time.Time `json:"date"`
	ConflictTriggered bool      `json:"conflict_triggered"`
}

// DeactivateEvent fires when the reassignment workflow ends.  Conflict is
// non-nil only for the cancel-to-conflict exit path.
type DeactivateEvent struct {
	Forced   bool             `json:"forced"`
	Conflict *ConflictContext `json:"conflict,omitempty"`
}

// PoolUpdateEvent carries a snapshot of the reassignment pool.
type PoolUpdateEvent struct {
	Entries []PoolEntry `json:"entries"`
}

// SelectionChangeEvent carries the furniture ids currently selected.
type SelectionChangeEvent struct {
	UnitIDs []uint64 `json:"unit_ids"`
}

// EntrySelectedEvent fires when a pool entry becomes the working entry.
type EntrySelectedEvent struct {
	ReservationID uint64 `json:"reservation_id"`
}

// HighlightEvent carries the two preference-match tiers for the rendering
// surface.  Full matches satisfy every requested preference code, partial
// matches satisfy at least one.
type HighlightEvent struct {
	Full    []uint64 `json:"full"`
	Partial []uint64 `json:"partial"`
}

// TransformEvent is the per-unit visual transform stream.  Committed is
// false for in-gesture updates and rollbacks, true once the backend has
// accepted the position.
type TransformEvent struct {
	UnitID    uint64  `json:"unit_id"`
	X         float64 `json:"x"`
	Y         float64 `json:"y"`
	Rotation  float64 `json:"rotation"`
	Committed bool    `json:"committed"`
}

// UndoEvent fires after a successful undo replay.
type UndoEvent struct {
	Action    UndoAction `json:"action"`
	Remaining int        `json:"remaining"`
}

/// WarningEvent surfaces advisory, non-fatal conditions: workflow guards,
// zero-released unassignments, server-supplied assign rejections, empty
// undo stacks.
type WarningEvent struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Warning codes used across the subsystem.
const (
	WarnNothingReleased = "nothing_released"
	WarnAssignRejected  = "assign_rejected"
	WarnIncompletePool  = "incomplete_pool"
	WarnUndoEmpty       = "undo_empty"
	WarnUndoFailed      = "undo_failed"
)

// LockBlockedEvent is the dedicated lock-conflict cue emitted when an
// unassignment hits locked furniture.
type LockBlockedEvent struct {
	ReservationID uint64   `json:"reservation_id"`
	UnitIDs       []uint64 `json:"unit_ids"`
}

// RejectionEvent is the visual cue for an unconditionally rejected input,
// currently only selection attempts on blocked units.
type RejectionEvent struct {
	UnitID uint64 `json:"unit_id"`
	Reason string `json:"reason"`
}

// Events is the per-session publish/subscribe bus.  Each kind has its own
// subscriber list; Subscribe methods return an unsubscribe function so
// transient consumers such as an SSE stream can detach cleanly.  Handlers
// run synchronously on the announcing goroutine and must not block.
type Events struct {
	mu sync.Mutex

	nextID        uint64
	activate      map[uint64]func(ActivateEvent)
	deactivate    map[uint64]func(DeactivateEvent)
	poolUpdate    map[uint64]func(PoolUpdateEvent)
	selection     map[uint64]func(SelectionChangeEvent)
	entrySelected map[uint64]func(EntrySelectedEvent)
	highlight     map[uint64]func(HighlightEvent)
	transform     map[uint64]func(TransformEvent)
	undo          map[uint64]func(UndoEvent)
	warning       map[uint64]func(WarningEvent)
	lockBlocked   map[uint64]func(LockBlockedEvent)
	rejection     map[uint64]func(RejectionEvent)
}

// NewEvents returns an empty bus.
func NewEvents() *Events {
	return &Events{
		activate:      make(map[uint64]func(ActivateEvent)),
		deactivate:    make(map[uint64]func(DeactivateEvent)),
		poolUpdate:    make(map[uint64]func(PoolUpdateEvent)),
		selection:     make(map[uint64]func(SelectionChangeEvent)),
		entrySelected: make(map[uint64]func(EntrySelectedEvent)),
		highlight:     make(map[uint64]func(HighlightEvent)),
		transform:     make(map[uint64]func(TransformEvent)),
		undo:          make(map[uint64]func(UndoEvent)),
		warning:       make(map[uint64]func(WarningEvent)),
		lockBlocked:   make(map[uint64]func(LockBlockedEvent)),
		rejection:     make(map[uint64]func(RejectionEvent)),
	}
}

func (e *Events) id() uint64 {
	e.nextID++
	return e.nextID
}

func (e *Events) OnActivate(fn func(ActivateEvent)) func() {
	e.mu.Lock()
	defer e.mu.Unlock()
	id := e.id()
	e.activate[id] = fn
	return func() { e.mu.Lock(); delete(e.activate, id); e.mu.Unlock() }
}

func (e *Events) OnDeactivate(fn func(DeactivateEvent)) func() {
	e.mu.Lock()
	defer e.mu.Unlock()
	id := e.id()
	e.deactivate[id] = fn
	return func() { e.mu.Lock(); delete(e.deactivate, id); e.mu.Unlock() }
}

func (e *Events) OnPoolUpdate(fn func(PoolUpdateEvent)) func() {
	e.mu.Lock()
	defer e.mu.Unlock()
	id := e.id()
	e.poolUpdate[id] = fn
	return func() { e.mu.Lock(); delete(e.poolUpdate, id); e.mu.Unlock() }
}

func (e *Events) OnSelectionChange(fn func(SelectionChangeEvent)) func() {
	e.mu.Lock()
	defer e.mu.Unlock()
	id := e.id()
	e.selection[id] = fn
	return func() { e.mu.Lock(); delete(e.selection, id); e.mu.Unlock() }
}

func (e *Events) OnEntrySelected(fn func(EntrySelectedEvent)) func() {
	e.mu.Lock()
	defer e.mu.Unlock()
	id := e.id()
	e.entrySelected[id] = fn
	return func() { e.mu.Lock(); delete(e.entrySelected, id); e.mu.Unlock() }
}

func (e *Events) OnHighlight(fn func(HighlightEvent)) func() {
	e.mu.Lock()
	defer e.mu.Unlock()
	id := e.id()
	e.highlight[id] = fn
	return func() { e.mu.Lock(); delete(e.highlight, id); e.mu.Unlock() }
}

func (e *Events) OnTransform(fn func(TransformEvent)) func() {
	e.mu.Lock()
	defer e.mu.Unlock()
	id := e.id()
	e.transform[id] = fn
	return func() { e.mu.Lock(); delete(e.transform, id); e.mu.Unlock() }
}

func (e *Events) OnUndo(fn func(UndoEvent)) func() {
	e.mu.Lock()
	defer e.mu.Unlock()
	id := e.id()
	e.undo[id] = fn
	return func() { e.mu.Lock(); delete(e.undo, id); e.mu.Unlock() }
}

func (e *Events) OnWarning(fn func(WarningEvent)) func() {
	e.mu.Lock()
	defer e.mu.Unlock()
	id := e.id()
	e.warning[id] = fn
	return func() { e.mu.Lock(); delete(e.warning, id); e.mu.Unlock() }
}

func (e *Events) OnLockBlocked(fn func(LockBlockedEvent)) func() {
	e.mu.Lock()
	defer e.mu.Unlock()
	id := e.id()
	e.lockBlocked[id] = fn
	return func() { e.mu.Lock(); delete(e.lockBlocked, id); e.mu.Unlock() }
}

func (e *Events) OnRejection(fn func(RejectionEvent)) func() {
	e.mu.Lock()
	defer e.mu.Unlock()
	id := e.id()
	e.rejection[id] = fn
	return func() { e.mu.Lock(); delete(e.rejection, id); e.mu.Unlock() }
}

func (e *Events) publishActivate(ev ActivateEvent) {
	e.mu.Lock()
	out := make([]func(ActivateEvent), 0, len(e.activate))
	for _, fn := range e.activate {
		out = append(out, fn)
	}
	e.mu.Unlock()
	for _, fn := range out {
		fn(ev)
	}
}

func (e *Events) publishDeactivate(ev DeactivateEvent) {
	e.mu.Lock()
	out := make([]func(DeactivateEvent), 0, len(e.deactivate))
	for _, fn := range e.deactivate {
		out = append(out, fn)
	}
	e.mu.Unlock()
	for _, fn := range out {
		fn(ev)
	}
}

func (e *Events) publishPoolUpdate(ev PoolUpdateEvent) {
	e.mu.Lock()
	out := make([]func(PoolUpdateEvent), 0, len(e.poolUpdate))
	for _, fn := range e.poolUpdate {
		out = append(out, fn)
	}
	e.mu.Unlock()
	for _, fn := range out {
		fn(ev)
	}
}

func (e *Events) publishSelectionChange(ev SelectionChangeEvent) {
	e.mu.Lock()
	out := make([]func(SelectionChangeEvent), 0, len(e.selection))
	for _, fn := range e.selection {
		out = append(out, fn)
	}
	e.mu.Unlock()
	for _, fn := range out {
		fn(ev)
	}
}

func (e *Events) publishEntrySelected(ev EntrySelectedEvent) {
	e.mu.Lock()
	out := make([]func(EntrySelectedEvent), 0, len(e.entrySelected))
	for _, fn := range e.entrySelected {
		out = append(out, fn)
	}
	e.mu.Unlock()
	for _, fn := range out {
		fn(ev)
	}
}

func (e *Events) publishHighlight(ev HighlightEvent) {
	e.mu.Lock()
	out := make([]func(HighlightEvent), 0, len(e.highlight))
	for _, fn := range e.highlight {
		out = append(out, fn)
	}
	e.mu.Unlock()
	for _, fn := range out {
		fn(ev)
	}
}

func (e *Events) publishTransform(ev TransformEvent) {
	e.mu.Lock()
	out := make([]func(TransformEvent), 0, len(e.transform))
	for _, fn := range e.transform {
		out = append(out, fn)
	}
	e.mu.Unlock()
	for _, fn := range out {
		fn(ev)
	}
}

func (e *Events) publishUndo(ev UndoEvent) {
	e.mu.Lock()
	out := make([]func(UndoEvent), 0, len(e.undo))
	for _, fn := range e.undo {
		out = append(out, fn)
	}
	e.mu.Unlock()
	for _, fn := range out {
		fn(ev)
	}
}

func (e *Events) publishWarning(ev WarningEvent) {
	e.mu.Lock()
	out := make([]func(WarningEvent), 0, len(e.warning))
	for _, fn := range e.warning {
		out = append(out, fn)
	}
	e.mu.Unlock()
	for _, fn := range out {
		fn(ev)
	}
}

func (e *Events) publishLockBlocked(ev LockBlockedEvent) {
	e.mu.Lock()
	out := make([]func(LockBlockedEvent), 0, len(e.lockBlocked))
	for _, fn := range e.lockBlocked {
		out = append(out, fn)
	}
	e.mu.Unlock()
	for _, fn := range out {
		fn(ev)
	}
}

func (e *Events) publishRejection(ev RejectionEvent) {
	e.mu.Lock()
	out := make([]func(RejectionEvent), 0, len(e.rejection))
	for _, fn := range e.rejection {
		out = append(out, fn)
	}
	e.mu.Unlock()
	for _, fn := range out {
		fn(ev)
	}
}
