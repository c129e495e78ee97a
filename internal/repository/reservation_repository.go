package repository

import (
	"context"
	"database/sql"
	"strings"
	"time"
)

// ReservationRepo provides read access to reservations for the floor
// subsystem.  The pool seed and the under-assigned listing both derive
// capacity from the furniture_assignments table joined against the
// current unit capacities, never from a cached counter, so the numbers
// always reflect backend truth.
type ReservationRepo struct {
	db *sql.DB
}

// NewReservationRepo returns a new ReservationRepo bound to the given database.
func NewReservationRepo(db *sql.DB) *ReservationRepo { return &ReservationRepo{db: db} }

// AssignedUnit pairs an assigned furniture unit with its seat capacity.
type AssignedUnit struct {
	UnitID   uint64 `json:"unit_id"`
	Capacity uint32 `json:"capacity"`
}

// PoolSeedDetail is the authoritative snapshot the reassignment pool is
// built from.  AssignedCapacity is the sum of the listed unit capacities;
// it is recomputed on every fetch.
type PoolSeedDetail struct {
	ReservationID    uint64         `json:"reservation_id"`
	GuestName        string         `json:"guest_name"`
	NumPeople        uint32         `json:"num_people"`
	CurrentFurniture []AssignedUnit `json:"current_furniture"`
	AssignedCapacity uint32         `json:"assigned_capacity"`
	Preferences      []string       `json:"preferences"`
	MultiDay         bool           `json:"multi_day"`
}

// dateCovers restricts a reservation row to ones whose service window
// includes the given day.  Single day reservations match on service_date;
// multi-day ones match anywhere between service_date and end_date.
const dateCovers = `(r.service_date = DATE(?)
                 OR (r.end_date IS NOT NULL AND DATE(?) BETWEEN r.service_date AND r.end_date))`

// ListUnderAssigned returns the IDs of confirmed reservations covering the
// given date whose assigned seat capacity is below their party size.
// Reservations with no assignments at all are included.  Results are
// ordered by party size descending so the hardest fits surface first.
func (r *ReservationRepo) ListUnderAssigned(ctx context.Context, date time.Time) ([]uint64, error) {
	q := `SELECT r.id
          FROM reservations r
          WHERE r.status = 'CONFIRMED'
            AND ` + dateCovers + `
            AND (SELECT COALESCE(SUM(u.capacity), 0)
                 FROM furniture_assignments a
                 JOIN furniture_units u ON u.id = a.unit_id
                 WHERE a.reservation_id = r.id AND a.service_date = DATE(?)) < r.party_size
          ORDER BY r.party_size DESC, r.id`
	d := date.UTC()
	rows, err := r.db.QueryContext(ctx, q, d, d, d)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	ids := make([]uint64, 0)
	for rows.Next() {
		var id uint64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return ids, nil
}

// GetPoolSeed loads the reservation fields and current assignments needed
// to seed or reload a pool entry for the given date.  It returns
// ErrNotFound when the reservation does not exist or does not cover the
// date.
func (r *ReservationRepo) GetPoolSeed(ctx context.Context, reservationID uint64, date time.Time) (*PoolSeedDetail, error) {
	q := `SELECT r.id, r.guest_name, r.party_size, r.preferences, r.end_date
          FROM reservations r
          WHERE r.id = ? AND ` + dateCovers
	d := date.UTC()
	var det PoolSeedDetail
	var prefs sql.NullString
	var endDate sql.NullTime
	err := r.db.QueryRowContext(ctx, q, reservationID, d, d).Scan(
		&det.ReservationID, &det.GuestName, &det.NumPeople, &prefs, &endDate,
	)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	det.MultiDay = endDate.Valid
	det.Preferences = []string{}
	if prefs.Valid {
		for _, p := range strings.Split(prefs.String, ",") {
			p = strings.TrimSpace(strings.ToUpper(p))
			if p != "" {
				det.Preferences = append(det.Preferences, p)
			}
		}
	}
	const seatQ = `SELECT a.unit_id, u.capacity
                   FROM furniture_assignments a
                   JOIN furniture_units u ON u.id = a.unit_id
                   WHERE a.reservation_id = ? AND a.service_date = DATE(?)
                   ORDER BY a.unit_id`
	rows, err := r.db.QueryContext(ctx, seatQ, reservationID, d)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	det.CurrentFurniture = []AssignedUnit{}
	for rows.Next() {
		var au AssignedUnit
		if err := rows.Scan(&au.UnitID, &au.Capacity); err != nil {
			return nil, err
		}
		det.CurrentFurniture = append(det.CurrentFurniture, au)
		det.AssignedCapacity += au.Capacity
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return &det, nil
}

// ExistsTx reports whether a reservation row exists, inside the caller's
// transaction.  Used to fail assignment requests early with ErrNotFound.
func (r *ReservationRepo) ExistsTx(ctx context.Context, tx *sql.Tx, reservationID uint64) (bool, error) {
	var one int
	err := tx.QueryRowContext(ctx, `SELECT 1 FROM reservations WHERE id = ?`, reservationID).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}
