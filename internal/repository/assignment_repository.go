package repository

import (
	"context"
	"database/sql"
	"strings"
	"time"
)

// AssignmentRepo manages rows in furniture_assignments, the table that
// attaches furniture units to reservations per service date.  A unique
// key on (unit_id, service_date) guarantees a unit seats at most one
// party per day.  Mutations run inside caller supplied transactions so
// the service layer can combine them with lock checks atomically.
type AssignmentRepo struct {
	db *sql.DB
}

// NewAssignmentRepo returns a new AssignmentRepo bound to the given database.
func NewAssignmentRepo(db *sql.DB) *AssignmentRepo { return &AssignmentRepo{db: db} }

func idPlaceholders(ids []uint64) (string, []interface{}) {
	ph := make([]string, 0, len(ids))
	args := make([]interface{}, 0, len(ids))
	for _, id := range ids {
		ph = append(ph, "?")
		args = append(args, id)
	}
	return strings.Join(ph, ","), args
}

// TakenByOthersTx returns the subset of the given units already assigned
// to a different reservation on the date.  The caller rejects the assign
// request with these IDs as the conflict reason.
func (r *AssignmentRepo) TakenByOthersTx(ctx context.Context, tx *sql.Tx, reservationID uint64, unitIDs []uint64, date time.Time) ([]uint64, error) {
	if len(unitIDs) == 0 {
		return []uint64{}, nil
	}
	ph, args := idPlaceholders(unitIDs)
	q := `SELECT unit_id FROM furniture_assignments
          WHERE service_date = DATE(?) AND reservation_id <> ? AND unit_id IN (` + ph + `)`
	all := append([]interface{}{date.UTC(), reservationID}, args...)
	rows, err := tx.QueryContext(ctx, q, all...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	taken := make([]uint64, 0)
	for rows.Next() {
		var id uint64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		taken = append(taken, id)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return taken, nil
}

// AssignTx inserts assignment rows for the units not yet attached to the
// reservation on the date and returns how many rows were created together
// with the affected unit IDs.  Units already attached are skipped, so a
// fully redundant request reports zero changed rows.
func (r *AssignmentRepo) AssignTx(ctx context.Context, tx *sql.Tx, reservationID uint64, unitIDs []uint64, date time.Time) (int, []uint64, error) {
	if len(unitIDs) == 0 {
		return 0, []uint64{}, nil
	}
	d := date.UTC()
	// Find which of the requested units are already attached.
	ph, args := idPlaceholders(unitIDs)
	q := `SELECT unit_id FROM furniture_assignments
          WHERE reservation_id = ? AND service_date = DATE(?) AND unit_id IN (` + ph + `)`
	all := append([]interface{}{reservationID, d}, args...)
	rows, err := tx.QueryContext(ctx, q, all...)
	if err != nil {
		return 0, nil, err
	}
	attached := make(map[uint64]bool)
	for rows.Next() {
		var id uint64
		if scanErr := rows.Scan(&id); scanErr != nil {
			rows.Close()
			return 0, nil, scanErr
		}
		attached[id] = true
	}
	if err = rows.Close(); err != nil {
		return 0, nil, err
	}
	fresh := make([]uint64, 0, len(unitIDs))
	for _, id := range unitIDs {
		if !attached[id] {
			fresh = append(fresh, id)
		}
	}
	if len(fresh) == 0 {
		return 0, []uint64{}, nil
	}
	insert := `INSERT INTO furniture_assignments (reservation_id, unit_id, service_date) VALUES `
	insArgs := make([]interface{}, 0, len(fresh)*3)
	for i, id := range fresh {
		if i > 0 {
			insert += ","
		}
		insert += "(?, ?, DATE(?))"
		insArgs = append(insArgs, reservationID, id, d)
	}
	if _, err := tx.ExecContext(ctx, insert, insArgs...); err != nil {
		return 0, nil, err
	}
	return len(fresh), fresh, nil
}

// UnassignTx deletes the assignment rows linking the given units to the
// reservation on the date.  It returns the unit IDs that were actually
// released; units that were never attached simply do not appear in the
// result, leaving the caller to surface a zero-released warning.
func (r *AssignmentRepo) UnassignTx(ctx context.Context, tx *sql.Tx, reservationID uint64, unitIDs []uint64, date time.Time) ([]uint64, error) {
	if len(unitIDs) == 0 {
		return []uint64{}, nil
	}
	d := date.UTC()
	ph, args := idPlaceholders(unitIDs)
	q := `SELECT unit_id FROM furniture_assignments
          WHERE reservation_id = ? AND service_date = DATE(?) AND unit_id IN (` + ph + `)`
	all := append([]interface{}{reservationID, d}, args...)
	rows, err := tx.QueryContext(ctx, q, all...)
	if err != nil {
		return nil, err
	}
	released := make([]uint64, 0, len(unitIDs))
	for rows.Next() {
		var id uint64
		if scanErr := rows.Scan(&id); scanErr != nil {
			rows.Close()
			return nil, scanErr
		}
		released = append(released, id)
	}
	if err = rows.Close(); err != nil {
		return nil, err
	}
	if len(released) == 0 {
		return released, nil
	}
	delPh, delArgs := idPlaceholders(released)
	del := `DELETE FROM furniture_assignments
            WHERE reservation_id = ? AND service_date = DATE(?) AND unit_id IN (` + delPh + `)`
	delAll := append([]interface{}{reservationID, d}, delArgs...)
	if _, err := tx.ExecContext(ctx, del, delAll...); err != nil {
		return nil, err
	}
	return released, nil
}
