package floor

import (
	"sync"

	"github.com/ordelia/floorplan-reservation/internal/model"
)

// Index is the shared in-memory furniture table keyed by unit id.  Drag
// commits mutate positions in place; a full data refresh replaces the
// whole table.  Lookups hand out copies so callers never hold an aliased
// pointer across a refresh.
type Index struct {
	mu    sync.RWMutex
	units map[uint64]*model.FurnitureUnit
}

// NewIndex returns an empty index.
func NewIndex() *Index {
	return &Index{units: make(map[uint64]*model.FurnitureUnit)}
}

// Replace swaps the entire table for the given units.
func (ix *Index) Replace(units []model.FurnitureUnit) {
	next := make(map[uint64]*model.FurnitureUnit, len(units))
	for i := range units {
		u := units[i]
		next[u.ID] = &u
	}
	ix.mu.Lock()
	ix.units = next
	ix.mu.Unlock()
}

// Get returns a copy of the unit and whether it exists.
func (ix *Index) Get(id uint64) (model.FurnitureUnit, bool) {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	u, ok := ix.units[id]
	if !ok {
		return model.FurnitureUnit{}, false
	}
	return *u, true
}

// ApplyPosition writes a position and rotation into the table in place.
// It reports false when the unit is not indexed.
func (ix *Index) ApplyPosition(id uint64, x, y, rotation float64) bool {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	u, ok := ix.units[id]
	if !ok {
		return false
	}
	u.X, u.Y, u.Rotation = x, y, rotation
	return true
}

// All returns a copy of every indexed unit.
func (ix *Index) All() []model.FurnitureUnit {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	out := make([]model.FurnitureUnit, 0, len(ix.units))
	for _, u := range ix.units {
		out = append(out, *u)
	}
	return out
}

// Len returns the number of indexed units.
func (ix *Index) Len() int {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return len(ix.units)
}
