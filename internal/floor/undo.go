package floor

import (
	"sync"
	"time"
)

// UndoActionType names the inverse operation an UndoAction replays.
type UndoActionType string

const (
	UndoAssign   UndoActionType = "assign"
	UndoUnassign UndoActionType = "unassign"
)

// UndoAction is one bounded-history entry: the inverse of an applied
// assign or unassign, scoped to a reservation, unit set and date.
type UndoAction struct {
	Type          UndoActionType `json:"type"`
	ReservationID uint64         `json:"reservation_id"`
	FurnitureIDs  []uint64       `json:"furniture_ids"`
	Date          time.Time      `json:"date"`
}

// UndoStack is a fixed-depth LIFO.  Pushing past the depth evicts the
// oldest entry, making it unrecoverable.  Replay failures put the popped
// action back on top via Restore; nothing retries automatically.
type UndoStack struct {
	mu      sync.Mutex
	depth   int
	actions []UndoAction
}

// NewUndoStack returns a stack bounded at depth entries.  A depth below
// one falls back to a single entry.
func NewUndoStack(depth int) *UndoStack {
	if depth < 1 {
		depth = 1
	}
	return &UndoStack{depth: depth}
}

// Push appends an action, evicting the oldest entry when full.
func (u *UndoStack) Push(a UndoAction) {
	u.mu.Lock()
	defer u.mu.Unlock()
	if len(u.actions) == u.depth {
		u.actions = append(u.actions[:0], u.actions[1:]...)
		u.actions[len(u.actions)-1] = a
		return
	}
	u.actions = append(u.actions, a)
}

// Pop removes and returns the newest action.  ok is false on empty.
func (u *UndoStack) Pop() (UndoAction, bool) {
	u.mu.Lock()
	defer u.mu.Unlock()
	if len(u.actions) == 0 {
		return UndoAction{}, false
	}
	a := u.actions[len(u.actions)-1]
	u.actions = u.actions[:len(u.actions)-1]
	return a, true
}

// Restore puts a just-popped action back on top after a failed replay.
func (u *UndoStack) Restore(a UndoAction) { u.Push(a) }

// Len returns the number of stored actions.
func (u *UndoStack) Len() int {
	u.mu.Lock()
	defer u.mu.Unlock()
	return len(u.actions)
}

// Clear drops the whole history.
func (u *UndoStack) Clear() {
	u.mu.Lock()
	u.actions = u.actions[:0]
	u.mu.Unlock()
}
