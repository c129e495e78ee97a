package floor

import (
	"context"
	"sync"
	"time"

	"github.com/ordelia/floorplan-reservation/internal/model"
)

// fakeBackend implements Backend with overridable function fields.  Nil
// fields behave as successful no-ops.
type fakeBackend struct {
	mu      sync.Mutex
	commits []PositionCommit

	commitFn   func(ctx context.Context, commit PositionCommit) error
	assignFn   func(ctx context.Context, reservationID uint64, unitIDs []uint64, date time.Time) (ChangeResult, error)
	unassignFn func(ctx context.Context, reservationID uint64, unitIDs []uint64, date time.Time) (ChangeResult, error)
	underFn    func(ctx context.Context, date time.Time) ([]uint64, error)
	seedFn     func(ctx context.Context, reservationID uint64, date time.Time) (PoolSeed, error)
	matchFn    func(ctx context.Context, date time.Time, codes []string) (PreferenceMatch, error)
	listFn     func(ctx context.Context, date time.Time) ([]model.FurnitureUnit, error)
}

func (f *fakeBackend) CommitPosition(ctx context.Context, commit PositionCommit) error {
	f.mu.Lock()
	f.commits = append(f.commits, commit)
	f.mu.Unlock()
	if f.commitFn != nil {
		return f.commitFn(ctx, commit)
	}
	return nil
}

func (f *fakeBackend) committed() []PositionCommit {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]PositionCommit(nil), f.commits...)
}

func (f *fakeBackend) Assign(ctx context.Context, reservationID uint64, unitIDs []uint64, date time.Time) (ChangeResult, error) {
	if f.assignFn != nil {
		return f.assignFn(ctx, reservationID, unitIDs, date)
	}
	return ChangeResult{Changed: len(unitIDs), UnitIDs: unitIDs}, nil
}

func (f *fakeBackend) Unassign(ctx context.Context, reservationID uint64, unitIDs []uint64, date time.Time) (ChangeResult, error) {
	if f.unassignFn != nil {
		return f.unassignFn(ctx, reservationID, unitIDs, date)
	}
	return ChangeResult{Changed: len(unitIDs), UnitIDs: unitIDs}, nil
}

func (f *fakeBackend) UnderAssigned(ctx context.Context, date time.Time) ([]uint64, error) {
	if f.underFn != nil {
		return f.underFn(ctx, date)
	}
	return nil, nil
}

func (f *fakeBackend) PoolSeed(ctx context.Context, reservationID uint64, date time.Time) (PoolSeed, error) {
	if f.seedFn != nil {
		return f.seedFn(ctx, reservationID, date)
	}
	return PoolSeed{ReservationID: reservationID}, nil
}

func (f *fakeBackend) MatchPreferences(ctx context.Context, date time.Time, codes []string) (PreferenceMatch, error) {
	if f.matchFn != nil {
		return f.matchFn(ctx, date, codes)
	}
	return PreferenceMatch{Full: []uint64{}, Partial: []uint64{}}, nil
}

func (f *fakeBackend) ListUnits(ctx context.Context, date time.Time) ([]model.FurnitureUnit, error) {
	if f.listFn != nil {
		return f.listFn(ctx, date)
	}
	return nil, nil
}

// permUnit is a permanent unit at the given position.
func permUnit(id uint64, x, y float64) model.FurnitureUnit {
	return model.FurnitureUnit{ID: id, Label: "T", X: x, Y: y, Capacity: 4}
}

// tempUnit is a temporary unit valid around today.
func tempUnit(id uint64, x, y float64) model.FurnitureUnit {
	from := time.Now().Add(-24 * time.Hour)
	to := time.Now().Add(24 * time.Hour)
	u := permUnit(id, x, y)
	u.ValidFrom = &from
	u.ValidTo = &to
	return u
}

// eventLog collects everything published on a bus for assertions.
type eventLog struct {
	mu         sync.Mutex
	transforms []TransformEvent
	selections []SelectionChangeEvent
	warnings   []WarningEvent
	rejections []RejectionEvent
	locks      []LockBlockedEvent
	pools      []PoolUpdateEvent
	highlights []HighlightEvent
	entries    []EntrySelectedEvent
	activates  []ActivateEvent
	deactivs   []DeactivateEvent
	undos      []UndoEvent
}

func recordEvents(ev *Events) *eventLog {
	l := &eventLog{}
	ev.OnTransform(func(e TransformEvent) { l.mu.Lock(); l.transforms = append(l.transforms, e); l.mu.Unlock() })
	ev.OnSelectionChange(func(e SelectionChangeEvent) { l.mu.Lock(); l.selections = append(l.selections, e); l.mu.Unlock() })
	ev.OnWarning(func(e WarningEvent) { l.mu.Lock(); l.warnings = append(l.warnings, e); l.mu.Unlock() })
	ev.OnRejection(func(e RejectionEvent) { l.mu.Lock(); l.rejections = append(l.rejections, e); l.mu.Unlock() })
	ev.OnLockBlocked(func(e LockBlockedEvent) { l.mu.Lock(); l.locks = append(l.locks, e); l.mu.Unlock() })
	ev.OnPoolUpdate(func(e PoolUpdateEvent) { l.mu.Lock(); l.pools = append(l.pools, e); l.mu.Unlock() })
	ev.OnHighlight(func(e HighlightEvent) { l.mu.Lock(); l.highlights = append(l.highlights, e); l.mu.Unlock() })
	ev.OnEntrySelected(func(e EntrySelectedEvent) { l.mu.Lock(); l.entries = append(l.entries, e); l.mu.Unlock() })
	ev.OnActivate(func(e ActivateEvent) { l.mu.Lock(); l.activates = append(l.activates, e); l.mu.Unlock() })
	ev.OnDeactivate(func(e DeactivateEvent) { l.mu.Lock(); l.deactivs = append(l.deactivs, e); l.mu.Unlock() })
	ev.OnUndo(func(e UndoEvent) { l.mu.Lock(); l.undos = append(l.undos, e); l.mu.Unlock() })
	return l
}

func (l *eventLog) lastTransform() (TransformEvent, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.transforms) == 0 {
		return TransformEvent{}, false
	}
	return l.transforms[len(l.transforms)-1], true
}

func (l *eventLog) warningCodes() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]string, 0, len(l.warnings))
	for _, w := range l.warnings {
		out = append(out, w.Code)
	}
	return out
}
