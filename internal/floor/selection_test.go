package floor

import (
	"testing"

	"github.com/ordelia/floorplan-reservation/internal/model"
)

func newSelectionFixture(units ...model.FurnitureUnit) (*SelectionState, *eventLog) {
	ev := NewEvents()
	log := recordEvents(ev)
	ix := NewIndex()
	ix.Replace(units)
	return NewSelectionState(ix, ev), log
}

func TestSelectReplacesByDefault(t *testing.T) {
	s, _ := newSelectionFixture(permUnit(1, 0, 0), permUnit(2, 0, 0))

	if _, err := s.Select(1, false); err != nil {
		t.Fatalf("select 1: %v", err)
	}
	if _, err := s.Select(2, false); err != nil {
		t.Fatalf("select 2: %v", err)
	}
	got := s.Selected()
	if len(got) != 1 || got[0] != 2 {
		t.Fatalf("non-additive select should replace, got %v", got)
	}
}

func TestSelectAdditiveToggles(t *testing.T) {
	s, _ := newSelectionFixture(permUnit(1, 0, 0), permUnit(2, 0, 0))

	s.Select(1, false)
	s.Select(2, true)
	if got := s.Selected(); len(got) != 2 {
		t.Fatalf("additive select should extend, got %v", got)
	}
	// Additive select on an already selected unit removes it.
	s.Select(2, true)
	if got := s.Selected(); len(got) != 1 || got[0] != 1 {
		t.Fatalf("additive re-select should toggle off, got %v", got)
	}
}

func TestSelectBlockedUnitRejected(t *testing.T) {
	blocked := permUnit(7, 0, 0)
	blocked.Blocked = true
	s, log := newSelectionFixture(blocked)

	if _, err := s.Select(7, false); err != ErrUnitBlocked {
		t.Fatalf("want ErrUnitBlocked, got %v", err)
	}
	if len(log.rejections) != 1 || log.rejections[0].UnitID != 7 {
		t.Fatalf("want one rejection cue for unit 7, got %+v", log.rejections)
	}

	// The rejection applies even when the read-only gate is set.
	s.SetReadOnly(true)
	if _, err := s.Select(7, false); err != ErrUnitBlocked {
		t.Fatalf("blocked rejection must survive read-only, got %v", err)
	}
}

func TestSelectReadOnlyIsSilentNoOp(t *testing.T) {
	s, log := newSelectionFixture(permUnit(1, 0, 0))
	s.SetReadOnly(true)

	ok, err := s.Select(1, false)
	if err != nil || ok {
		t.Fatalf("read-only select: got (%v, %v), want (false, nil)", ok, err)
	}
	if len(s.Selected()) != 0 {
		t.Fatalf("read-only select must not mutate")
	}
	if len(log.selections) != 0 {
		t.Fatalf("read-only select must not publish, got %+v", log.selections)
	}
}

func TestClearEmptySelectionPublishesNothing(t *testing.T) {
	s, log := newSelectionFixture(permUnit(1, 0, 0))

	s.Clear()
	if len(log.selections) != 0 {
		t.Fatalf("clearing an empty selection published %+v", log.selections)
	}

	s.Select(1, false)
	s.Clear()
	last := log.selections[len(log.selections)-1]
	if len(last.UnitIDs) != 0 {
		t.Fatalf("clear should publish empty selection, got %+v", last)
	}
}

func TestSelectedSorted(t *testing.T) {
	s, _ := newSelectionFixture(permUnit(3, 0, 0), permUnit(1, 0, 0), permUnit(2, 0, 0))
	s.Select(3, false)
	s.Select(1, true)
	s.Select(2, true)
	got := s.Selected()
	for i := 1; i < len(got); i++ {
		if got[i-1] >= got[i] {
			t.Fatalf("selection not sorted: %v", got)
		}
	}
}
