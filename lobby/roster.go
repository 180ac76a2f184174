/* Copyright © 2026 Mike Brown. All Rights Reserved.
 *
 * See LICENSE file at the root of this repository for license terms
 */
package lobby

const (
	// TeamCapacity is the maximum number of players on one side of a
	// manual session.
	TeamCapacity = 5
	// PoolCapacity is the maximum number of players in a balanced
	// session's shared pool prior to the split.
	PoolCapacity = 10
)

// Roster is the mutable, insertion-ordered set of participants attached to
// one side (or the unsplit pool) of a session. Insertion order is display
// order only. A Roster is not safe for concurrent use; sessions are mutated
// from a single goroutine.
type Roster struct {
	capacity int
	members  []Participant
}

func NewRoster(capacity int) *Roster {
	return &Roster{capacity: capacity}
}

// Add inserts p into the roster. Adding an identity that is already a member
// is a silent no-op. Add returns ErrRosterFull when the roster is at
// capacity.
func (r *Roster) Add(p Participant) error {
	if r.Contains(p.ID) {
		return nil
	}
	if len(r.members) >= r.capacity {
		return ErrRosterFull
	}
	r.members = append(r.members, p)
	return nil
}

// Remove drops the participant with the given identity. Removing an identity
// that is not a member is a no-op.
func (r *Roster) Remove(id string) {
	for i, p := range r.members {
		if p.ID == id {
			r.members = append(r.members[:i], r.members[i+1:]...)
			return
		}
	}
}

func (r *Roster) Contains(id string) bool {
	for _, p := range r.members {
		if p.ID == id {
			return true
		}
	}
	return false
}

func (r *Roster) Len() int {
	return len(r.members)
}

func (r *Roster) Capacity() int {
	return r.capacity
}

// Participants returns a copy of the roster in insertion order.
func (r *Roster) Participants() []Participant {
	out := make([]Participant, len(r.members))
	copy(out, r.members)
	return out
}

// AverageRating returns the mean rating snapshot of the roster rounded to
// the nearest integer, or 0 when empty.
func (r *Roster) AverageRating() int {
	return AverageRating(r.members)
}

// replace swaps the roster membership wholesale, preserving capacity. Used
// when a balanced split or reshuffle reassigns sides.
func (r *Roster) replace(ps []Participant) {
	r.members = make([]Participant, len(ps))
	copy(r.members, ps)
}
