// Package repository defines error types that are reused across multiple
// repositories. These sentinel values allow higher layers such as the
// floor service to distinguish between different failure scenarios. For
// example, ErrLocked signals that a release was attempted on locked
// furniture, while ErrConflict signals that an operation cannot proceed
// because of existing dependent records (e.g. assigning a unit that is
// already taken for the date).
package repository

import (
	"errors"
	"fmt"
	"strings"
)

// ErrForbidden is returned when the caller attempts an operation
// on a resource they do not own. Handlers should translate this
// into an HTTP 403 response.
var ErrForbidden = errors.New("forbidden")

// ErrConflict is returned when an update cannot be performed because
// of conflicting state, such as assigning furniture that is already
// attached to another reservation for the same date.
var ErrConflict = errors.New("conflict")

// ErrNotFound is returned when a referenced reservation or furniture
// unit does not exist.
var ErrNotFound = errors.New("not found")

// ErrLocked is the sentinel matched via errors.Is against a
// LockedUnitsError. It marks unassignment attempts on locked furniture.
var ErrLocked = errors.New("furniture locked")

// LockedUnitsError carries the IDs of the locked units that caused an
// unassignment to be rejected. It satisfies errors.Is(err, ErrLocked)
// so callers can branch on the lock condition while still reaching the
// offending unit IDs through errors.As.
type LockedUnitsError struct {
	UnitIDs []uint64
}

func (e *LockedUnitsError) Error() string {
	parts := make([]string, 0, len(e.UnitIDs))
	for _, id := range e.UnitIDs {
		parts = append(parts, fmt.Sprint(id))
	}
	return "furniture locked: units " + strings.Join(parts, ",")
}

func (e *LockedUnitsError) Is(target error) bool { return target == ErrLocked }
