package repository

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/ordelia/floorplan-reservation/internal/model"
)

// FurnitureRepo encapsulates database operations for furniture_units.
// Positions are committed with an optimistic version bump so that a stale
// client update can be detected.  All timestamp fields are stored in UTC
// and service dates are compared on the DATE portion only.
type FurnitureRepo struct {
	db *sql.DB
}

// NewFurnitureRepo returns a new FurnitureRepo bound to the given database.
func NewFurnitureRepo(db *sql.DB) *FurnitureRepo { return &FurnitureRepo{db: db} }

// DB exposes the underlying handle so callers can open transactions that
// span multiple repositories.
func (r *FurnitureRepo) DB() *sql.DB { return r.db }

const furnitureColumns = `id, room_id, label, pos_x, pos_y, rotation, capacity,
        unit_type, attributes, valid_from, valid_to, locked, blocked, version, created_at, updated_at`

func scanUnit(scan func(dest ...interface{}) error) (model.FurnitureUnit, error) {
	var u model.FurnitureUnit
	var attrs sql.NullString
	var validFrom, validTo sql.NullTime
	err := scan(
		&u.ID, &u.RoomID, &u.Label, &u.X, &u.Y, &u.Rotation, &u.Capacity,
		&u.UnitType, &attrs, &validFrom, &validTo, &u.Locked, &u.Blocked, &u.Version,
		&u.CreatedAt, &u.UpdatedAt,
	)
	if err != nil {
		return u, err
	}
	u.Attributes = attrs.String
	if validFrom.Valid {
		t := validFrom.Time
		u.ValidFrom = &t
	}
	if validTo.Valid {
		t := validTo.Time
		u.ValidTo = &t
	}
	return u, nil
}

// ListForDate returns every furniture unit that exists on the given service
// date: all permanent units plus temporary units whose validity range
// covers the date.  The result backs the full in-memory index refresh, so
// blocked and locked units are included.
func (r *FurnitureRepo) ListForDate(ctx context.Context, date time.Time) ([]model.FurnitureUnit, error) {
	const q = `SELECT ` + furnitureColumns + `
               FROM furniture_units
               WHERE (valid_from IS NULL AND valid_to IS NULL)
                  OR (DATE(?) >= COALESCE(DATE(valid_from), DATE(?))
                      AND DATE(?) <= COALESCE(DATE(valid_to), DATE(?)))
               ORDER BY room_id, label`
	d := date.UTC()
	rows, err := r.db.QueryContext(ctx, q, d, d, d, d)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	units := make([]model.FurnitureUnit, 0)
	for rows.Next() {
		u, err := scanUnit(rows.Scan)
		if err != nil {
			return nil, err
		}
		units = append(units, u)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return units, nil
}

// GetByID returns a single furniture unit or ErrNotFound.
func (r *FurnitureRepo) GetByID(ctx context.Context, unitID uint64) (*model.FurnitureUnit, error) {
	const q = `SELECT ` + furnitureColumns + ` FROM furniture_units WHERE id = ?`
	u, err := scanUnit(r.db.QueryRowContext(ctx, q, unitID).Scan)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// UpdatePositionTx writes a committed drag position within the provided
// transaction and bumps the optimistic version counter.  Blocked units
// reject the update.  It reports whether a row was actually changed; a
// false return with nil error means the unit is missing or blocked and
// the caller should treat the commit as failed.
func (r *FurnitureRepo) UpdatePositionTx(ctx context.Context, tx *sql.Tx, unitID uint64, x, y, rotation float64) (bool, error) {
	const q = `UPDATE furniture_units
               SET pos_x = ?, pos_y = ?, rotation = ?, version = version + 1
               WHERE id = ? AND blocked = 0`
	res, err := tx.ExecContext(ctx, q, x, y, rotation, unitID)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// LockedAmongTx returns the subset of the given unit IDs that are flagged
// locked.  Used to reject releases before touching assignment rows.
// Passing an empty slice returns an empty result.
func (r *FurnitureRepo) LockedAmongTx(ctx context.Context, tx *sql.Tx, unitIDs []uint64) ([]uint64, error) {
	if len(unitIDs) == 0 {
		return []uint64{}, nil
	}
	placeholders := make([]string, 0, len(unitIDs))
	args := make([]interface{}, 0, len(unitIDs))
	for _, id := range unitIDs {
		placeholders = append(placeholders, "?")
		args = append(args, id)
	}
	q := `SELECT id FROM furniture_units WHERE locked = 1 AND id IN (` + strings.Join(placeholders, ",") + `)`
	rows, err := tx.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var locked []uint64
	for rows.Next() {
		var id uint64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		locked = append(locked, id)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return locked, nil
}

// preferenceCodes splits a comma separated attribute string into a set.
func preferenceCodes(s string) map[string]bool {
	set := make(map[string]bool)
	for _, p := range strings.Split(s, ",") {
		p = strings.TrimSpace(strings.ToUpper(p))
		if p != "" {
			set[p] = true
		}
	}
	return set
}

// MatchPreferences partitions the units still free on the given date into
// two tiers against the requested preference codes: full matches carry
// every requested code, partial matches carry at least one but not all.
// Blocked units and units already assigned on the date are excluded.  The
// attribute comparison happens in Go because both sides are stored as
// comma separated code lists.
func (r *FurnitureRepo) MatchPreferences(ctx context.Context, date time.Time, codes []string) (full []uint64, partial []uint64, err error) {
	full, partial = []uint64{}, []uint64{}
	want := make([]string, 0, len(codes))
	for _, c := range codes {
		c = strings.TrimSpace(strings.ToUpper(c))
		if c != "" {
			want = append(want, c)
		}
	}
	if len(want) == 0 {
		return full, partial, nil
	}
	const q = `SELECT u.id, u.attributes
               FROM furniture_units u
               WHERE u.blocked = 0
                 AND ((u.valid_from IS NULL AND u.valid_to IS NULL)
                      OR (DATE(?) >= COALESCE(DATE(u.valid_from), DATE(?))
                          AND DATE(?) <= COALESCE(DATE(u.valid_to), DATE(?))))
                 AND NOT EXISTS (
                     SELECT 1 FROM furniture_assignments a
                     WHERE a.unit_id = u.id AND a.service_date = DATE(?))`
	d := date.UTC()
	rows, err := r.db.QueryContext(ctx, q, d, d, d, d, d)
	if err != nil {
		return nil, nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var id uint64
		var attrs sql.NullString
		if err := rows.Scan(&id, &attrs); err != nil {
			return nil, nil, err
		}
		have := preferenceCodes(attrs.String)
		hits := 0
		for _, c := range want {
			if have[c] {
				hits++
			}
		}
		switch {
		case hits == len(want):
			full = append(full, id)
		case hits > 0:
			partial = append(partial, id)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, nil, err
	}
	return full, partial, nil
}
