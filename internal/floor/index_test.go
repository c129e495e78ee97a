package floor

import (
	"testing"

	"github.com/ordelia/floorplan-reservation/internal/model"
)

func TestIndexReplaceAndGet(t *testing.T) {
	ix := NewIndex()
	ix.Replace([]model.FurnitureUnit{permUnit(1, 10, 20), permUnit(2, 30, 40)})

	if ix.Len() != 2 {
		t.Fatalf("len = %d, want 2", ix.Len())
	}
	u, ok := ix.Get(1)
	if !ok || u.X != 10 || u.Y != 20 {
		t.Fatalf("get 1 = %+v, %v", u, ok)
	}
	if _, ok := ix.Get(99); ok {
		t.Fatalf("unknown id should miss")
	}
}

func TestIndexGetReturnsCopy(t *testing.T) {
	ix := NewIndex()
	ix.Replace([]model.FurnitureUnit{permUnit(1, 10, 20)})

	u, _ := ix.Get(1)
	u.X = 999
	again, _ := ix.Get(1)
	if again.X != 10 {
		t.Fatalf("mutating a Get result leaked into the index: %v", again.X)
	}
}

func TestIndexApplyPosition(t *testing.T) {
	ix := NewIndex()
	ix.Replace([]model.FurnitureUnit{permUnit(1, 10, 20)})

	if !ix.ApplyPosition(1, 50, 60, 90) {
		t.Fatalf("apply on existing unit should report true")
	}
	u, _ := ix.Get(1)
	if u.X != 50 || u.Y != 60 || u.Rotation != 90 {
		t.Fatalf("position not applied: %+v", u)
	}
	if ix.ApplyPosition(99, 0, 0, 0) {
		t.Fatalf("apply on missing unit should report false")
	}
}

func TestIndexReplaceDropsStaleUnits(t *testing.T) {
	ix := NewIndex()
	ix.Replace([]model.FurnitureUnit{permUnit(1, 0, 0), permUnit(2, 0, 0)})
	ix.Replace([]model.FurnitureUnit{permUnit(2, 5, 5)})

	if _, ok := ix.Get(1); ok {
		t.Fatalf("unit absent from the refresh should be gone")
	}
	if u, _ := ix.Get(2); u.X != 5 {
		t.Fatalf("refresh should carry new positions, got %+v", u)
	}
}
