package model

import "time"

// Reservation records a booking for a party on a service date.  The party
// size drives capacity accounting: a reservation is under-assigned while
// the summed capacity of its assigned furniture stays below PartySize.
//
// Fields:
//  ID          – primary key identifier.
//  GuestName   – display name of the party.
//  PartySize   – number of people that need to be seated.
//  ServiceDate – first (or only) day the reservation covers.
//  EndDate     – last day for multi-day reservations (nil for single day).
//  Status      – state of the reservation (PENDING, CONFIRMED, CANCELLED).
//  Preferences – comma separated preference codes (e.g. "WINDOW,QUIET").
//  CreatedAt   – creation timestamp.
//  UpdatedAt   – last update timestamp.
type Reservation struct {
	ID          uint64     // reservations.id
	GuestName   string     // reservations.guest_name
	PartySize   uint32     // reservations.party_size
	ServiceDate time.Time  // reservations.service_date
	EndDate     *time.Time // reservations.end_date (nullable)
	Status      string     // reservations.status
	Preferences string     // reservations.preferences
	CreatedAt   time.Time  // reservations.created_at
	UpdatedAt   time.Time  // reservations.updated_at
}

// FurnitureAssignment attaches one furniture unit to a reservation for a
// single service date.  Multi-day reservations carry one row per day so
// that a unit can be swapped out on individual days.
//
// Fields:
//  ID            – primary key identifier.
//  ReservationID – reservation the unit is assigned to.
//  UnitID        – assigned furniture unit.
//  ServiceDate   – day the assignment applies to.
//  CreatedAt     – creation timestamp.
type FurnitureAssignment struct {
	ID            uint64    // furniture_assignments.id
	ReservationID uint64    // furniture_assignments.reservation_id
	UnitID        uint64    // furniture_assignments.unit_id
	ServiceDate   time.Time // furniture_assignments.service_date
	CreatedAt     time.Time // furniture_assignments.created_at
}
