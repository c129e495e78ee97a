package floor

import (
	"context"
	"testing"
	"time"

	"github.com/ordelia/floorplan-reservation/internal/model"
)

func sessionConfig() SessionConfig {
	return SessionConfig{
		Drag:            DragConfig{GridStep: 10, ThresholdPx: 4},
		UndoDepth:       20,
		CompletionGrace: time.Second,
		RefreshInterval: time.Hour,
	}
}

func TestHubReturnsSameSessionPerStaff(t *testing.T) {
	hub := NewSessionHub(context.Background(), sessionConfig(), &fakeBackend{})
	defer hub.Drop(7)

	a := hub.Get(7)
	if got := hub.Get(7); got != a {
		t.Fatalf("same staff id must map to the same session")
	}
	if b := hub.Get(8); b == a {
		t.Fatalf("different staff ids must not share a session")
	}
	hub.Drop(8)

	hub.Drop(7)
	if got := hub.Get(7); got == a {
		t.Fatalf("dropped session must not be handed out again")
	}
	hub.Drop(7)
}

func TestSessionStartLoadsIndex(t *testing.T) {
	backend := &fakeBackend{
		listFn: func(ctx context.Context, date time.Time) ([]model.FurnitureUnit, error) {
			return []model.FurnitureUnit{permUnit(1, 100, 100)}, nil
		},
	}
	s := NewSession(7, sessionConfig(), backend, time.Now().UTC())
	s.Start(context.Background())
	defer s.Stop()

	if _, ok := s.Index.Get(1); !ok {
		t.Fatalf("initial load should populate the index")
	}
}

func TestSetViewDateFollowsReassignment(t *testing.T) {
	var underDates []time.Time
	backend := &fakeBackend{
		underFn: func(ctx context.Context, date time.Time) ([]uint64, error) {
			underDates = append(underDates, date)
			return nil, nil
		},
	}
	s := NewSession(7, sessionConfig(), backend, testDate)
	s.Start(context.Background())
	defer s.Stop()

	if err := s.ActivateReassignment(context.Background(), testDate, nil); err != nil {
		t.Fatalf("activate: %v", err)
	}
	next := testDate.AddDate(0, 0, 1)
	if err := s.SetViewDate(context.Background(), next); err != nil {
		t.Fatalf("set view date: %v", err)
	}

	if !s.ViewDate().Equal(next) {
		t.Fatalf("view date = %v", s.ViewDate())
	}
	if last := underDates[len(underDates)-1]; !last.Equal(next) {
		t.Fatalf("pool should reload for the new date, got %v", last)
	}
}

func TestGuardedDeactivateKeepsModalOpen(t *testing.T) {
	backend := &fakeBackend{
		underFn: func(ctx context.Context, date time.Time) ([]uint64, error) {
			return []uint64{10}, nil
		},
		seedFn: func(ctx context.Context, rid uint64, date time.Time) (PoolSeed, error) {
			return mkSeed(10, 6, nil), nil
		},
	}
	s := NewSession(7, sessionConfig(), backend, testDate)
	s.Start(context.Background())
	defer s.Stop()

	if err := s.ActivateReassignment(context.Background(), testDate, nil); err != nil {
		t.Fatalf("activate: %v", err)
	}
	if err := s.DeactivateReassignment(); err != ErrIncompletePool {
		t.Fatalf("guarded exit: %v", err)
	}
	if s.Modals.Active() != ModalReassign {
		t.Fatalf("refused exit must leave the surface open")
	}

	s.ForceDeactivateReassignment()
	if s.Modals.Active() != "" {
		t.Fatalf("forced exit must close the surface")
	}
}
