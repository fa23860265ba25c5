package state

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// RosterEntry records one joined participant. Entries are never removed;
// refunds and claims consume the derived balance, not the entry.
type RosterEntry struct {
	Identity uuid.UUID
	JoinedAt time.Time
}

// Roster tracks joined players for one tournament instance: unique per
// identity, capacity-bounded, join order preserved. Not thread-safe — the
// owning instance serializes access.
type Roster struct {
	capacity int
	entries  []RosterEntry
	index    map[uuid.UUID]int
}

func NewRoster(capacity int) *Roster {
	return &Roster{
		capacity: capacity,
		index:    make(map[uuid.UUID]int, capacity),
	}
}

// Add appends an entry. The caller checks capacity and uniqueness under its
// own lock first; failures here indicate a broken caller, not user error.
func (r *Roster) Add(identity uuid.UUID, joinedAt time.Time) error {
	if _, exists := r.index[identity]; exists {
		return fmt.Errorf("identity %s already in roster", identity)
	}
	if len(r.entries) >= r.capacity {
		return fmt.Errorf("roster full: %d/%d", len(r.entries), r.capacity)
	}

	r.index[identity] = len(r.entries)
	r.entries = append(r.entries, RosterEntry{Identity: identity, JoinedAt: joinedAt})
	return nil
}

func (r *Roster) Contains(identity uuid.UUID) bool {
	_, ok := r.index[identity]
	return ok
}

func (r *Roster) Len() int {
	return len(r.entries)
}

func (r *Roster) Capacity() int {
	return r.capacity
}

func (r *Roster) Full() bool {
	return len(r.entries) >= r.capacity
}

// Identities returns all joined identities in join order.
func (r *Roster) Identities() []uuid.UUID {
	out := make([]uuid.UUID, len(r.entries))
	for i, e := range r.entries {
		out[i] = e.Identity
	}
	return out
}

// Entries returns a copy of all roster entries in join order.
func (r *Roster) Entries() []RosterEntry {
	out := make([]RosterEntry, len(r.entries))
	copy(out, r.entries)
	return out
}
