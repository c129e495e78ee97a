package floor

import (
	"context"
	"errors"
	"testing"
	"time"
)

var testDate = time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC)

func mkSeed(rid uint64, need uint32, prefs []string, units ...AssignedUnit) PoolSeed {
	var assigned uint32
	for _, u := range units {
		assigned += u.Capacity
	}
	return PoolSeed{
		ReservationID:    rid,
		GuestName:        "party",
		NumPeople:        need,
		CurrentFurniture: units,
		AssignedCapacity: assigned,
		Preferences:      prefs,
	}
}

type reassignFixture struct {
	engine  *ReassignmentEngine
	backend *fakeBackend
	log     *eventLog
	sel     *SelectionState

	seeds  map[uint64]PoolSeed
	timers []func()
}

// newReassignFixture builds an engine whose backend serves the given
// seeds and whose grace timers fire only when the test says so.
func newReassignFixture(under []uint64, seeds map[uint64]PoolSeed) *reassignFixture {
	ev := NewEvents()
	log := recordEvents(ev)
	ix := NewIndex()
	sel := NewSelectionState(ix, ev)

	fx := &reassignFixture{log: log, sel: sel, seeds: seeds}
	fx.backend = &fakeBackend{
		underFn: func(ctx context.Context, date time.Time) ([]uint64, error) {
			return under, nil
		},
		seedFn: func(ctx context.Context, rid uint64, date time.Time) (PoolSeed, error) {
			seed, ok := fx.seeds[rid]
			if !ok {
				return PoolSeed{}, errors.New("no such reservation")
			}
			return seed, nil
		},
	}
	fx.engine = NewReassignmentEngine(fx.backend, ev, sel, 20, time.Second)
	fx.engine.afterFunc = func(d time.Duration, fn func()) *time.Timer {
		fx.timers = append(fx.timers, fn)
		return nil
	}
	return fx
}

func (fx *reassignFixture) activate(t *testing.T) {
	t.Helper()
	if err := fx.engine.Activate(context.Background(), testDate, nil); err != nil {
		t.Fatalf("activate: %v", err)
	}
}

func poolEntry(t *testing.T, pool []PoolEntry, rid uint64) PoolEntry {
	t.Helper()
	for _, p := range pool {
		if p.ReservationID == rid {
			return p
		}
	}
	t.Fatalf("reservation %d not in pool %+v", rid, pool)
	return PoolEntry{}
}

func TestActivateLoadsPoolAndAutoSelects(t *testing.T) {
	fx := newReassignFixture([]uint64{10, 11}, map[uint64]PoolSeed{
		10: mkSeed(10, 6, []string{"WINDOW"}, AssignedUnit{UnitID: 1, Capacity: 4}),
		11: mkSeed(11, 2, nil),
	})
	fx.backend.matchFn = func(ctx context.Context, date time.Time, codes []string) (PreferenceMatch, error) {
		return PreferenceMatch{Full: []uint64{3}, Partial: []uint64{4}}, nil
	}

	fx.activate(t)

	pool := fx.engine.Pool()
	if len(pool) != 2 {
		t.Fatalf("pool = %+v, want 2 entries", pool)
	}
	e10 := poolEntry(t, pool, 10)
	if e10.AssignedCapacity != 4 || e10.TotalNeeded != 6 || e10.Complete {
		t.Fatalf("entry 10 = %+v", e10)
	}
	if got := e10.InitialFurniture; len(got) != 1 || got[0] != 1 {
		t.Fatalf("initial furniture = %v", got)
	}

	if len(fx.log.activates) != 1 || fx.log.activates[0].ConflictTriggered {
		t.Fatalf("activate events = %+v", fx.log.activates)
	}
	// First entry is auto-selected and its preferences highlighted.
	if fx.engine.SelectedEntry() != 10 {
		t.Fatalf("selected = %d, want 10", fx.engine.SelectedEntry())
	}
	if len(fx.log.highlights) == 0 {
		t.Fatalf("auto-select should publish a highlight")
	}
	hl := fx.log.highlights[len(fx.log.highlights)-1]
	if len(hl.Full) != 1 || hl.Full[0] != 3 {
		t.Fatalf("highlight = %+v", hl)
	}
}

func TestActivateTwiceFails(t *testing.T) {
	fx := newReassignFixture(nil, nil)
	fx.activate(t)
	if err := fx.engine.Activate(context.Background(), testDate, nil); err != ErrAlreadyActive {
		t.Fatalf("second activate: %v", err)
	}
}

func TestSelectEntryWithoutPreferencesClearsHighlight(t *testing.T) {
	fx := newReassignFixture([]uint64{11}, map[uint64]PoolSeed{
		11: mkSeed(11, 2, nil),
	})
	matchCalls := 0
	fx.backend.matchFn = func(ctx context.Context, date time.Time, codes []string) (PreferenceMatch, error) {
		matchCalls++
		return PreferenceMatch{}, nil
	}
	fx.activate(t)

	if matchCalls != 0 {
		t.Fatalf("no preferences, no match request; got %d calls", matchCalls)
	}
	hl := fx.log.highlights[len(fx.log.highlights)-1]
	if len(hl.Full) != 0 || len(hl.Partial) != 0 {
		t.Fatalf("highlight should be empty, got %+v", hl)
	}
}

func TestUnassignLockConflictEmitsCue(t *testing.T) {
	fx := newReassignFixture([]uint64{10}, map[uint64]PoolSeed{
		10: mkSeed(10, 6, nil, AssignedUnit{UnitID: 5, Capacity: 4}),
	})
	fx.backend.unassignFn = func(ctx context.Context, rid uint64, ids []uint64, date time.Time) (ChangeResult, error) {
		return ChangeResult{}, &LockConflictError{UnitIDs: []uint64{5}}
	}
	fx.activate(t)

	if err := fx.engine.Unassign(context.Background(), 10, []uint64{5}); err != nil {
		t.Fatalf("lock conflict must not be a hard failure: %v", err)
	}
	if len(fx.log.locks) != 1 || fx.log.locks[0].UnitIDs[0] != 5 {
		t.Fatalf("lock cue = %+v", fx.log.locks)
	}
	if fx.engine.UndoDepth() != 0 {
		t.Fatalf("a blocked release must not be undoable")
	}
}

func TestUnassignNothingReleasedWarns(t *testing.T) {
	fx := newReassignFixture([]uint64{10}, map[uint64]PoolSeed{
		10: mkSeed(10, 6, nil),
	})
	fx.backend.unassignFn = func(ctx context.Context, rid uint64, ids []uint64, date time.Time) (ChangeResult, error) {
		return ChangeResult{Changed: 0, UnitIDs: []uint64{}}, nil
	}
	fx.activate(t)

	if err := fx.engine.Unassign(context.Background(), 10, []uint64{9}); err != nil {
		t.Fatalf("zero released: %v", err)
	}
	codes := fx.log.warningCodes()
	if len(codes) == 0 || codes[len(codes)-1] != WarnNothingReleased {
		t.Fatalf("warnings = %v, want %s", codes, WarnNothingReleased)
	}
	if fx.engine.UndoDepth() != 0 {
		t.Fatalf("zero-released must not push an undo entry")
	}
}

func TestUnassignPushesInverseAndReloads(t *testing.T) {
	fx := newReassignFixture([]uint64{10}, map[uint64]PoolSeed{
		10: mkSeed(10, 6, nil, AssignedUnit{UnitID: 5, Capacity: 4}),
	})
	fx.activate(t)

	// After the release the backend reports the reservation bare.
	fx.seeds[10] = mkSeed(10, 6, nil)
	if err := fx.engine.Unassign(context.Background(), 10, []uint64{5}); err != nil {
		t.Fatalf("unassign: %v", err)
	}

	e := poolEntry(t, fx.engine.Pool(), 10)
	if e.AssignedCapacity != 0 {
		t.Fatalf("capacity must come from the reload, got %d", e.AssignedCapacity)
	}
	// The initial snapshot never changes.
	if len(e.InitialFurniture) != 1 || e.InitialFurniture[0] != 5 {
		t.Fatalf("initial furniture mutated: %v", e.InitialFurniture)
	}
	if fx.engine.UndoDepth() != 1 {
		t.Fatalf("undo depth = %d, want 1", fx.engine.UndoDepth())
	}
}

func TestAssignRejectionIsAdvisory(t *testing.T) {
	fx := newReassignFixture([]uint64{10}, map[uint64]PoolSeed{
		10: mkSeed(10, 6, nil),
	})
	fx.backend.assignFn = func(ctx context.Context, rid uint64, ids []uint64, date time.Time) (ChangeResult, error) {
		return ChangeResult{}, &RejectedError{Reason: "already seated by another party"}
	}
	fx.activate(t)

	if err := fx.engine.Assign(context.Background(), 10, []uint64{3}); err != nil {
		t.Fatalf("rejection must not be a hard failure: %v", err)
	}
	codes := fx.log.warningCodes()
	if codes[len(codes)-1] != WarnAssignRejected {
		t.Fatalf("warnings = %v", codes)
	}
	if fx.engine.UndoDepth() != 0 {
		t.Fatalf("a rejected assign must not be undoable")
	}
}

func TestRedundantAssignPushesNothing(t *testing.T) {
	fx := newReassignFixture([]uint64{10}, map[uint64]PoolSeed{
		10: mkSeed(10, 6, nil, AssignedUnit{UnitID: 3, Capacity: 4}),
	})
	fx.backend.assignFn = func(ctx context.Context, rid uint64, ids []uint64, date time.Time) (ChangeResult, error) {
		return ChangeResult{Changed: 0, UnitIDs: []uint64{}}, nil
	}
	fx.activate(t)

	if err := fx.engine.Assign(context.Background(), 10, []uint64{3}); err != nil {
		t.Fatalf("assign: %v", err)
	}
	if fx.engine.UndoDepth() != 0 {
		t.Fatalf("zero-change assign must not be undoable")
	}
}

func TestCompletedEntryRemovedAfterGrace(t *testing.T) {
	fx := newReassignFixture([]uint64{10}, map[uint64]PoolSeed{
		10: mkSeed(10, 6, nil, AssignedUnit{UnitID: 1, Capacity: 4}),
	})
	fx.activate(t)

	// The assign brings the reservation to capacity.
	fx.seeds[10] = mkSeed(10, 6, nil,
		AssignedUnit{UnitID: 1, Capacity: 4}, AssignedUnit{UnitID: 2, Capacity: 2})
	if err := fx.engine.Assign(context.Background(), 10, []uint64{2}); err != nil {
		t.Fatalf("assign: %v", err)
	}

	e := poolEntry(t, fx.engine.Pool(), 10)
	if !e.Complete {
		t.Fatalf("entry should be complete: %+v", e)
	}
	if len(fx.timers) != 1 {
		t.Fatalf("completion should schedule one grace removal, got %d", len(fx.timers))
	}

	fx.timers[0]()
	if len(fx.engine.Pool()) != 0 {
		t.Fatalf("entry should be gone after the grace period")
	}
	if fx.engine.SelectedEntry() != 0 {
		t.Fatalf("removing the working entry must clear the selection")
	}
}

func TestGraceRemovalSkippedAfterConcurrentMutation(t *testing.T) {
	fx := newReassignFixture([]uint64{10}, map[uint64]PoolSeed{
		10: mkSeed(10, 4, nil),
	})
	fx.activate(t)

	complete := mkSeed(10, 4, nil, AssignedUnit{UnitID: 1, Capacity: 4})
	fx.seeds[10] = complete
	if err := fx.engine.Assign(context.Background(), 10, []uint64{1}); err != nil {
		t.Fatalf("assign: %v", err)
	}
	if len(fx.timers) != 1 {
		t.Fatalf("want one scheduled removal, got %d", len(fx.timers))
	}
	staleTimer := fx.timers[0]

	// Before the grace period elapses the entry is touched again; the
	// reload bumps its generation (and reschedules, since it is still
	// complete).
	if err := fx.engine.Assign(context.Background(), 10, []uint64{1}); err != nil {
		t.Fatalf("second assign: %v", err)
	}

	staleTimer()
	if len(fx.engine.Pool()) != 1 {
		t.Fatalf("a stale grace timer must not remove a touched entry")
	}

	// The rescheduled removal still applies.
	fx.timers[len(fx.timers)-1]()
	if len(fx.engine.Pool()) != 0 {
		t.Fatalf("the fresh grace timer should remove the entry")
	}
}

func TestReservationEntersPoolOnFirstMutation(t *testing.T) {
	fx := newReassignFixture(nil, map[uint64]PoolSeed{
		20: mkSeed(20, 8, nil, AssignedUnit{UnitID: 6, Capacity: 4}),
	})
	fx.activate(t)

	if len(fx.engine.Pool()) != 0 {
		t.Fatalf("pool should start empty")
	}
	if err := fx.engine.Unassign(context.Background(), 20, []uint64{6}); err != nil {
		t.Fatalf("unassign: %v", err)
	}
	e := poolEntry(t, fx.engine.Pool(), 20)
	// The snapshot is captured at entry time, not at session start.
	if len(e.InitialFurniture) != 1 || e.InitialFurniture[0] != 6 {
		t.Fatalf("initial furniture = %v", e.InitialFurniture)
	}
}

func TestUndoEmptyWarns(t *testing.T) {
	fx := newReassignFixture(nil, nil)
	fx.activate(t)

	if err := fx.engine.Undo(context.Background()); err != nil {
		t.Fatalf("empty undo: %v", err)
	}
	codes := fx.log.warningCodes()
	if codes[len(codes)-1] != WarnUndoEmpty {
		t.Fatalf("warnings = %v", codes)
	}
}

func TestUndoReplaysInverseWithoutPushing(t *testing.T) {
	fx := newReassignFixture([]uint64{10}, map[uint64]PoolSeed{
		10: mkSeed(10, 6, nil),
	})
	var unassigned [][]uint64
	fx.backend.unassignFn = func(ctx context.Context, rid uint64, ids []uint64, date time.Time) (ChangeResult, error) {
		unassigned = append(unassigned, ids)
		return ChangeResult{Changed: len(ids), UnitIDs: ids}, nil
	}
	fx.activate(t)

	if err := fx.engine.Assign(context.Background(), 10, []uint64{7}); err != nil {
		t.Fatalf("assign: %v", err)
	}
	if fx.engine.UndoDepth() != 1 {
		t.Fatalf("undo depth = %d", fx.engine.UndoDepth())
	}

	if err := fx.engine.Undo(context.Background()); err != nil {
		t.Fatalf("undo: %v", err)
	}
	if len(unassigned) != 1 || unassigned[0][0] != 7 {
		t.Fatalf("undo should replay the inverse release, got %v", unassigned)
	}
	// The replay itself must not become undoable.
	if fx.engine.UndoDepth() != 0 {
		t.Fatalf("undo depth after replay = %d, want 0", fx.engine.UndoDepth())
	}
	if len(fx.log.undos) != 1 || fx.log.undos[0].Remaining != 0 {
		t.Fatalf("undo events = %+v", fx.log.undos)
	}
}

func TestUndoFailureRestoresAction(t *testing.T) {
	fx := newReassignFixture([]uint64{10}, map[uint64]PoolSeed{
		10: mkSeed(10, 6, nil),
	})
	fx.activate(t)
	if err := fx.engine.Assign(context.Background(), 10, []uint64{7}); err != nil {
		t.Fatalf("assign: %v", err)
	}

	boom := errors.New("backend down")
	fx.backend.unassignFn = func(ctx context.Context, rid uint64, ids []uint64, date time.Time) (ChangeResult, error) {
		return ChangeResult{}, boom
	}
	if err := fx.engine.Undo(context.Background()); !errors.Is(err, boom) {
		t.Fatalf("undo: %v, want backend error", err)
	}
	if fx.engine.UndoDepth() != 1 {
		t.Fatalf("failed replay must restore the action, depth = %d", fx.engine.UndoDepth())
	}
	codes := fx.log.warningCodes()
	if codes[len(codes)-1] != WarnUndoFailed {
		t.Fatalf("warnings = %v", codes)
	}
}

func TestDeactivateRefusesWhileIncomplete(t *testing.T) {
	fx := newReassignFixture([]uint64{10}, map[uint64]PoolSeed{
		10: mkSeed(10, 6, nil, AssignedUnit{UnitID: 1, Capacity: 4}),
	})
	fx.activate(t)

	if err := fx.engine.Deactivate(); err != ErrIncompletePool {
		t.Fatalf("deactivate with shortfall: %v", err)
	}
	if !fx.engine.Active() {
		t.Fatalf("refused deactivation must not change state")
	}
	codes := fx.log.warningCodes()
	if codes[len(codes)-1] != WarnIncompletePool {
		t.Fatalf("warnings = %v", codes)
	}

	// Fill the shortfall, then deactivation goes through.
	fx.seeds[10] = mkSeed(10, 6, nil,
		AssignedUnit{UnitID: 1, Capacity: 4}, AssignedUnit{UnitID: 2, Capacity: 2})
	if err := fx.engine.Assign(context.Background(), 10, []uint64{2}); err != nil {
		t.Fatalf("assign: %v", err)
	}
	if err := fx.engine.Deactivate(); err != nil {
		t.Fatalf("deactivate: %v", err)
	}
	if fx.engine.Active() {
		t.Fatalf("engine should be inactive")
	}
	if len(fx.log.deactivs) != 1 || fx.log.deactivs[0].Forced {
		t.Fatalf("deactivate events = %+v", fx.log.deactivs)
	}
}

func TestForceDeactivateIsUnconditional(t *testing.T) {
	fx := newReassignFixture([]uint64{10}, map[uint64]PoolSeed{
		10: mkSeed(10, 6, nil),
	})
	fx.activate(t)

	fx.engine.ForceDeactivate()
	if fx.engine.Active() {
		t.Fatalf("force deactivate must always end the session")
	}
	if len(fx.log.deactivs) != 1 || !fx.log.deactivs[0].Forced {
		t.Fatalf("deactivate events = %+v", fx.log.deactivs)
	}
	if fx.engine.UndoDepth() != 0 {
		t.Fatalf("deactivation clears the undo history")
	}
}

func TestCancelToConflict(t *testing.T) {
	fx := newReassignFixture(nil, nil)
	fx.activate(t)
	if _, err := fx.engine.CancelToConflict(); err != ErrNotConflictDriven {
		t.Fatalf("non-conflict session: %v", err)
	}
	fx.engine.ForceDeactivate()

	conflict := &ConflictContext{Origin: "double-booking", ReservationID: 42}
	if err := fx.engine.Activate(context.Background(), testDate, conflict); err != nil {
		t.Fatalf("activate: %v", err)
	}
	got, err := fx.engine.CancelToConflict()
	if err != nil || got.ReservationID != 42 {
		t.Fatalf("cancel-to-conflict: %+v, %v", got, err)
	}
	last := fx.log.deactivs[len(fx.log.deactivs)-1]
	if last.Conflict == nil || last.Conflict.Origin != "double-booking" {
		t.Fatalf("deactivate event should carry the conflict context: %+v", last)
	}
}

func TestSetDateResetsSessionState(t *testing.T) {
	fx := newReassignFixture([]uint64{10}, map[uint64]PoolSeed{
		10: mkSeed(10, 6, nil),
		30: mkSeed(30, 2, nil),
	})
	fx.activate(t)
	if err := fx.engine.Assign(context.Background(), 10, []uint64{7}); err != nil {
		t.Fatalf("assign: %v", err)
	}

	nextDate := testDate.AddDate(0, 0, 1)
	fx.backend.underFn = func(ctx context.Context, date time.Time) ([]uint64, error) {
		return []uint64{30}, nil
	}
	if err := fx.engine.SetDate(context.Background(), nextDate); err != nil {
		t.Fatalf("set date: %v", err)
	}

	if fx.engine.UndoDepth() != 0 {
		t.Fatalf("history must not survive a date switch")
	}
	pool := fx.engine.Pool()
	if len(pool) != 1 || pool[0].ReservationID != 30 {
		t.Fatalf("pool = %+v, want only reservation 30", pool)
	}
	if !fx.engine.Date().Equal(nextDate) {
		t.Fatalf("date = %v", fx.engine.Date())
	}
}
