// Package queue defines message payloads exchanged over the message broker.
package queue

// FurnitureMovedEvent is published after a drag position commit lands.
// Downstream consumers use it for an audit trail of layout edits without
// querying the primary database.
type FurnitureMovedEvent struct {
	UnitID   uint64  `json:"unit_id"`
	StaffID  uint64  `json:"staff_id"`
	X        float64 `json:"x"`
	Y        float64 `json:"y"`
	Rotation float64 `json:"rotation"`
	MovedAt  string  `json:"moved_at"`
}

// ReassignmentAppliedEvent is published whenever furniture is assigned
// to or released from a reservation through the reassignment workflow,
// including undo replays.
type ReassignmentAppliedEvent struct {
	ReservationID uint64   `json:"reservation_id"`
	StaffID       uint64   `json:"staff_id"`
	Action        string   `json:"action"` // "assign" or "unassign"
	UnitIDs       []uint64 `json:"unit_ids"`
	ServiceDate   string   `json:"service_date"`
	AppliedAt     string   `json:"applied_at"`
}
