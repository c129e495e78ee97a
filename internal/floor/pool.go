package floor

// PoolEntry is the working-set record for one under-assigned reservation
// during a reassignment session.
//
// InitialFurniture is an immutable snapshot of the unit ids assigned the
// moment the reservation entered the pool; it never changes afterwards.
// AssignedCapacity is the seat-capacity sum of the currently assigned
// units, only ever taken from the latest backend reload.
//
// generation increases on every reload of the entry.  The grace-period
// removal of a completed entry compares generations so that a concurrent
// mutation during the grace window keeps the entry alive.
type PoolEntry struct {
	ReservationID    uint64   `json:"reservation_id"`
	GuestName        string   `json:"guest_name"`
	InitialFurniture []uint64 `json:"initial_furniture"`
	AssignedCapacity uint32   `json:"assigned_capacity"`
	TotalNeeded      uint32   `json:"total_needed"`
	Complete         bool     `json:"complete"`
	Preferences      []string `json:"preferences"`
	MultiDay         bool     `json:"multi_day"`

	generation uint64
}

// Incomplete reports whether the entry still needs capacity.
func (p *PoolEntry) Incomplete() bool { return !p.Complete }

// entryFromSeed builds a fresh pool entry from a backend snapshot,
// capturing the initial furniture set.
func entryFromSeed(seed PoolSeed, generation uint64) *PoolEntry {
	initial := make([]uint64, 0, len(seed.CurrentFurniture))
	for _, au := range seed.CurrentFurniture {
		initial = append(initial, au.UnitID)
	}
	return &PoolEntry{
		ReservationID:    seed.ReservationID,
		GuestName:        seed.GuestName,
		InitialFurniture: initial,
		AssignedCapacity: seed.AssignedCapacity,
		TotalNeeded:      seed.NumPeople,
		Complete:         seed.AssignedCapacity >= seed.NumPeople,
		Preferences:      seed.Preferences,
		MultiDay:         seed.MultiDay,
		generation:       generation,
	}
}

// applySeed refreshes the mutable fields of an existing entry from a
// backend snapshot.  The initial furniture snapshot is left untouched.
func (p *PoolEntry) applySeed(seed PoolSeed, generation uint64) {
	p.AssignedCapacity = seed.AssignedCapacity
	p.TotalNeeded = seed.NumPeople
	p.Preferences = seed.Preferences
	p.MultiDay = seed.MultiDay
	p.Complete = seed.AssignedCapacity >= seed.NumPeople
	p.generation = generation
}
