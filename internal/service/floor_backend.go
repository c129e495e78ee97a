// Package service implements the authoritative backend the floor
// subsystem talks to.  Every mutation runs inside a single transaction so
// lock checks and assignment writes cannot interleave with a concurrent
// request, and every applied change is mirrored to the activity queue on
// a best-effort basis.
package service

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/ordelia/floorplan-reservation/internal/floor"
	"github.com/ordelia/floorplan-reservation/internal/model"
	"github.com/ordelia/floorplan-reservation/internal/queue"
	"github.com/ordelia/floorplan-reservation/internal/repository"
)

type staffIDKey struct{}

// WithStaffID stamps the acting staff member onto the context so backend
// mutations can attribute activity events.  Handlers call this after
// authentication.
func WithStaffID(ctx context.Context, staffID uint64) context.Context {
	return context.WithValue(ctx, staffIDKey{}, staffID)
}

func staffIDFrom(ctx context.Context) uint64 {
	if id, ok := ctx.Value(staffIDKey{}).(uint64); ok {
		return id
	}
	return 0
}

// FloorBackend implements floor.Backend on top of the MySQL repositories.
type FloorBackend struct {
	db           *sql.DB
	furniture    *repository.FurnitureRepo
	reservations *repository.ReservationRepo
	assignments  *repository.AssignmentRepo
}

// NewFloorBackend wires the backend over one database handle.
func NewFloorBackend(db *sql.DB) *FloorBackend {
	return &FloorBackend{
		db:           db,
		furniture:    repository.NewFurnitureRepo(db),
		reservations: repository.NewReservationRepo(db),
		assignments:  repository.NewAssignmentRepo(db),
	}
}

var _ floor.Backend = (*FloorBackend)(nil)

// CommitPosition persists a settled drag position.  A blocked or missing
// unit fails the commit so the caller rolls its optimistic update back.
func (b *FloorBackend) CommitPosition(ctx context.Context, commit floor.PositionCommit) error {
	tx, err := b.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	changed, err := b.furniture.UpdatePositionTx(ctx, tx, commit.UnitID, commit.X, commit.Y, commit.Rotation)
	if err != nil {
		return err
	}
	if !changed {
		return fmt.Errorf("unit %d: %w", commit.UnitID, repository.ErrConflict)
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	committed = true

	staffID := staffIDFrom(ctx)
	go func() {
		ev := queue.FurnitureMovedEvent{
			UnitID:   commit.UnitID,
			StaffID:  staffID,
			X:        commit.X,
			Y:        commit.Y,
			Rotation: commit.Rotation,
			MovedAt:  time.Now().UTC().Format(time.RFC3339),
		}
		pctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := queue.PublishFurnitureMoved(pctx, ev); err != nil {
			log.Printf("floor-backend: publish moved event failed: %v", err)
		}
	}()
	return nil
}

// Assign attaches units to a reservation for the date.  Units already
// seated by a different party on the date reject the whole request with a
// presentable reason; units already attached to this reservation are
// skipped silently, so a fully redundant request reports zero changes.
func (b *FloorBackend) Assign(ctx context.Context, reservationID uint64, unitIDs []uint64, date time.Time) (floor.ChangeResult, error) {
	tx, err := b.db.BeginTx(ctx, nil)
	if err != nil {
		return floor.ChangeResult{}, err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	exists, err := b.reservations.ExistsTx(ctx, tx, reservationID)
	if err != nil {
		return floor.ChangeResult{}, err
	}
	if !exists {
		return floor.ChangeResult{}, &floor.RejectedError{Reason: fmt.Sprintf("reservation %d does not exist", reservationID)}
	}
	taken, err := b.assignments.TakenByOthersTx(ctx, tx, reservationID, unitIDs, date)
	if err != nil {
		return floor.ChangeResult{}, err
	}
	if len(taken) > 0 {
		return floor.ChangeResult{}, &floor.RejectedError{
			Reason: "already seated by another party: units " + joinIDs(taken),
		}
	}
	changed, fresh, err := b.assignments.AssignTx(ctx, tx, reservationID, unitIDs, date)
	if err != nil {
		return floor.ChangeResult{}, err
	}
	if err := tx.Commit(); err != nil {
		return floor.ChangeResult{}, err
	}
	committed = true

	if changed > 0 {
		b.publishReassignment(ctx, reservationID, "assign", fresh, date)
	}
	return floor.ChangeResult{Changed: changed, UnitIDs: fresh}, nil
}

// Unassign releases units from the reservation on the date.  Locked
// furniture rejects the whole request before any row is touched.
func (b *FloorBackend) Unassign(ctx context.Context, reservationID uint64, unitIDs []uint64, date time.Time) (floor.ChangeResult, error) {
	tx, err := b.db.BeginTx(ctx, nil)
	if err != nil {
		return floor.ChangeResult{}, err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	locked, err := b.furniture.LockedAmongTx(ctx, tx, unitIDs)
	if err != nil {
		return floor.ChangeResult{}, err
	}
	if len(locked) > 0 {
		return floor.ChangeResult{}, &floor.LockConflictError{UnitIDs: locked}
	}
	released, err := b.assignments.UnassignTx(ctx, tx, reservationID, unitIDs, date)
	if err != nil {
		return floor.ChangeResult{}, err
	}
	if err := tx.Commit(); err != nil {
		return floor.ChangeResult{}, err
	}
	committed = true

	if len(released) > 0 {
		b.publishReassignment(ctx, reservationID, "unassign", released, date)
	}
	return floor.ChangeResult{Changed: len(released), UnitIDs: released}, nil
}

// UnderAssigned lists reservations on the date whose assigned seat
// capacity is below their party size.
func (b *FloorBackend) UnderAssigned(ctx context.Context, date time.Time) ([]uint64, error) {
	return b.reservations.ListUnderAssigned(ctx, date)
}

// PoolSeed loads the authoritative snapshot for one reservation.
func (b *FloorBackend) PoolSeed(ctx context.Context, reservationID uint64, date time.Time) (floor.PoolSeed, error) {
	det, err := b.reservations.GetPoolSeed(ctx, reservationID, date)
	if err != nil {
		return floor.PoolSeed{}, err
	}
	seed := floor.PoolSeed{
		ReservationID:    det.ReservationID,
		GuestName:        det.GuestName,
		NumPeople:        det.NumPeople,
		CurrentFurniture: make([]floor.AssignedUnit, 0, len(det.CurrentFurniture)),
		AssignedCapacity: det.AssignedCapacity,
		Preferences:      det.Preferences,
		MultiDay:         det.MultiDay,
	}
	for _, au := range det.CurrentFurniture {
		seed.CurrentFurniture = append(seed.CurrentFurniture, floor.AssignedUnit{UnitID: au.UnitID, Capacity: au.Capacity})
	}
	return seed, nil
}

// MatchPreferences resolves preference codes to highlight tiers.
func (b *FloorBackend) MatchPreferences(ctx context.Context, date time.Time, codes []string) (floor.PreferenceMatch, error) {
	full, partial, err := b.furniture.MatchPreferences(ctx, date, codes)
	if err != nil {
		return floor.PreferenceMatch{}, err
	}
	return floor.PreferenceMatch{Full: full, Partial: partial}, nil
}

// ListUnits returns every unit existing on the date for the index refresh.
func (b *FloorBackend) ListUnits(ctx context.Context, date time.Time) ([]model.FurnitureUnit, error) {
	return b.furniture.ListForDate(ctx, date)
}

func (b *FloorBackend) publishReassignment(ctx context.Context, reservationID uint64, action string, unitIDs []uint64, date time.Time) {
	staffID := staffIDFrom(ctx)
	go func() {
		ev := queue.ReassignmentAppliedEvent{
			ReservationID: reservationID,
			StaffID:       staffID,
			Action:        action,
			UnitIDs:       unitIDs,
			ServiceDate:   date.UTC().Format("2006-01-02"),
			AppliedAt:     time.Now().UTC().Format(time.RFC3339),
		}
		pctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := queue.PublishReassignmentApplied(pctx, ev); err != nil {
			log.Printf("floor-backend: publish reassignment event failed: %v", err)
		}
	}()
}

func joinIDs(ids []uint64) string {
	parts := make([]string, 0, len(ids))
	for _, id := range ids {
		parts = append(parts, fmt.Sprint(id))
	}
	return strings.Join(parts, ",")
}
