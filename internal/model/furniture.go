package model

import "time"

// FurnitureUnit describes a reservable piece of furniture placed on the
// floor plan.  Units are uniquely positioned within a room and carry the
// seat capacity used for reservation fit checks.  Temporary units exist
// only inside their validity range; permanent units have both bounds nil.
// This struct corresponds to a row in the `furniture_units` table.
//
// Fields:
//  ID        – primary key identifier.
//  RoomID    – room the unit belongs to.
//  Label     – human readable label shown on the plan (e.g. "T12").
//  X, Y      – position on the floor plan in plan coordinates.
//  Rotation  – rotation in degrees.
//  Capacity  – number of seats the unit provides.
//  UnitType  – kind of furniture (TABLE, BOOTH, COUNTER, LOUNGE).
//  Attributes – comma separated attribute codes (WINDOW, QUIET, ...)
//               matched against reservation preferences.
//  ValidFrom – first day a temporary unit exists (nil for permanent).
//  ValidTo   – last day a temporary unit exists (nil for permanent).
//  Locked    – unit may not be released from its reservation.
//  Blocked   – unit is out of service (maintenance or hold).
//  Version   – optimistic locking counter bumped on every position commit.
//  CreatedAt – creation timestamp.
//  UpdatedAt – last update timestamp.
type FurnitureUnit struct {
	ID         uint64     // furniture_units.id
	RoomID     uint64     // furniture_units.room_id
	Label      string     // furniture_units.label
	X          float64    // furniture_units.pos_x
	Y          float64    // furniture_units.pos_y
	Rotation   float64    // furniture_units.rotation
	Capacity   uint32     // furniture_units.capacity
	UnitType   string     // furniture_units.unit_type
	Attributes string     // furniture_units.attributes (comma separated codes)
	ValidFrom  *time.Time // furniture_units.valid_from (nullable)
	ValidTo    *time.Time // furniture_units.valid_to (nullable)
	Locked     bool       // furniture_units.locked
	Blocked    bool       // furniture_units.blocked
	Version    uint32     // furniture_units.version
	CreatedAt  time.Time  // furniture_units.created_at
	UpdatedAt  time.Time  // furniture_units.updated_at
}

// Temporary reports whether the unit only exists for a limited date range.
func (u *FurnitureUnit) Temporary() bool {
	return u.ValidFrom != nil || u.ValidTo != nil
}
