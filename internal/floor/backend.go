package floor

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ordelia/floorplan-reservation/internal/model"
)

// PositionCommit is the authoritative position write issued when a drag
// gesture settles.
type PositionCommit struct {
	UnitID   uint64  `json:"unit_id"`
	X        float64 `json:"x"`
	Y        float64 `json:"y"`
	Rotation float64 `json:"rotation"`
}

// ChangeResult reports the outcome of an assign or unassign request.
// Changed counts the rows actually touched; UnitIDs lists them.  A
// successful request with Changed == 0 means none of the requested units
// were attached the way the caller assumed.
type ChangeResult struct {
	Changed int      `json:"changed"`
	UnitIDs []uint64 `json:"unit_ids"`
}

// AssignedUnit pairs an assigned unit with its seat capacity.
type AssignedUnit struct {
	UnitID   uint64 `json:"unit_id"`
	Capacity uint32 `json:"capacity"`
}

// PoolSeed is the authoritative reservation snapshot a pool entry is
// built or reloaded from.  AssignedCapacity is the capacity sum of
// CurrentFurniture as computed by the backend; the engine never derives
// it locally.
type PoolSeed struct {
	ReservationID    uint64         `json:"reservation_id"`
	GuestName        string         `json:"guest_name"`
	NumPeople        uint32         `json:"num_people"`
	CurrentFurniture []AssignedUnit `json:"current_furniture"`
	AssignedCapacity uint32         `json:"assigned_capacity"`
	Preferences      []string       `json:"preferences"`
	MultiDay         bool           `json:"multi_day"`
}

// PreferenceMatch partitions available units into full and partial
// preference-match tiers.
type PreferenceMatch struct {
	Full    []uint64 `json:"full"`
	Partial []uint64 `json:"partial"`
}

// Backend is the authoritative collaborator for everything the floor
// subsystem cannot decide locally.  Implementations must be safe for
// concurrent use; independent drag commits may be in flight at once.
type Backend interface {
	// CommitPosition persists a settled drag position.  Any error means
	// the caller must roll the optimistic update back.
	CommitPosition(ctx context.Context, commit PositionCommit) error

	// Assign attaches units to a reservation for a date.  A rejection
	// with a server-supplied reason arrives as a *RejectedError.
	Assign(ctx context.Context, reservationID uint64, unitIDs []uint64, date time.Time) (ChangeResult, error)

	// Unassign releases units from a reservation for a date.  Locked
	// furniture arrives as a *LockConflictError.
	Unassign(ctx context.Context, reservationID uint64, unitIDs []uint64, date time.Time) (ChangeResult, error)

	// UnderAssigned lists reservations on the date whose assigned seat
	// capacity is below their party size.
	UnderAssigned(ctx context.Context, date time.Time) ([]uint64, error)

	// PoolSeed loads the authoritative snapshot for one reservation.
	PoolSeed(ctx context.Context, reservationID uint64, date time.Time) (PoolSeed, error)

	// MatchPreferences resolves preference codes to highlight tiers.
	MatchPreferences(ctx context.Context, date time.Time, codes []string) (PreferenceMatch, error)

	// ListUnits returns every unit existing on the date; it feeds the
	// full index refresh.
	ListUnits(ctx context.Context, date time.Time) ([]model.FurnitureUnit, error)
}

// ErrLockConflict is matched via errors.Is against a LockConflictError.
var ErrLockConflict = errors.New("locked furniture")

// LockConflictError is the distinguished unassignment failure carrying
// the locked unit ids for the dedicated visual rejection cue.
type LockConflictError struct {
	UnitIDs []uint64
}

func (e *LockConflictError) Error() string {
	parts := make([]string, 0, len(e.UnitIDs))
	for _, id := range e.UnitIDs {
		parts = append(parts, fmt.Sprint(id))
	}
	return "locked furniture: units " + strings.Join(parts, ",")
}

func (e *LockConflictError) Is(target error) bool { return target == ErrLockConflict }

// RejectedError carries a server-supplied, user-presentable reason for a
// refused assign request.  It is advisory: the engine surfaces the reason
// as a warning instead of failing the workflow.
type RejectedError struct {
	Reason string
}

func (e *RejectedError) Error() string { return "assignment rejected: " + e.Reason }
