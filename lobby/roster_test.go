/* Copyright © 2026 Mike Brown. All Rights Reserved.
 *
 * See LICENSE file at the root of this repository for license terms
 */
package lobby

import (
	"errors"
	"fmt"
	"testing"
)

func mkParticipant(n, rating int) Participant {
	return Participant{
		ID:       fmt.Sprintf("u%v", n),
		Username: fmt.Sprintf("player%v", n),
		Rating:   rating,
	}
}

func TestRosterAddRemove(t *testing.T) {
	r := NewRoster(TeamCapacity)

	p := mkParticipant(1, 1500)
	if err := r.Add(p); err != nil {
		t.Fatalf("unexpected error adding to empty roster: %v", err)
	}
	if !r.Contains(p.ID) {
		t.Fatalf("roster should contain %v", p.ID)
	}
	if r.Len() != 1 {
		t.Fatalf("Len = %v; want 1", r.Len())
	}

	// duplicate add is a silent no-op
	if err := r.Add(p); err != nil {
		t.Fatalf("duplicate add should not error: %v", err)
	}
	if r.Len() != 1 {
		t.Fatalf("duplicate add changed Len to %v", r.Len())
	}

	r.Remove(p.ID)
	if r.Contains(p.ID) {
		t.Fatalf("roster still contains %v after remove", p.ID)
	}

	// removing an absent member is a no-op
	r.Remove("nobody")
	if r.Len() != 0 {
		t.Fatalf("Len = %v after removing absent member; want 0", r.Len())
	}
}

func TestRosterFull(t *testing.T) {
	r := NewRoster(TeamCapacity)
	for i := 0; i < TeamCapacity; i++ {
		if err := r.Add(mkParticipant(i, 1500)); err != nil {
			t.Fatalf("unexpected error filling roster: %v", err)
		}
	}

	err := r.Add(mkParticipant(99, 1500))
	if !errors.Is(err, ErrRosterFull) {
		t.Fatalf("Add on full roster = %v; want ErrRosterFull", err)
	}

	// re-adding an existing member of a full roster stays a no-op
	if err := r.Add(mkParticipant(0, 1500)); err != nil {
		t.Fatalf("duplicate add on full roster should not error: %v", err)
	}
}

func TestRosterParticipantsIsCopy(t *testing.T) {
	r := NewRoster(TeamCapacity)
	r.Add(mkParticipant(1, 1500))
	r.Add(mkParticipant(2, 1600))

	ps := r.Participants()
	ps[0].Rating = 9999
	if r.Participants()[0].Rating == 9999 {
		t.Fatalf("Participants must return a copy")
	}
}

func TestRosterAverageRating(t *testing.T) {
	r := NewRoster(TeamCapacity)
	if r.AverageRating() != 0 {
		t.Fatalf("empty roster average = %v; want 0", r.AverageRating())
	}

	r.Add(mkParticipant(1, 1400))
	r.Add(mkParticipant(2, 1601))
	// 3001/2 rounds to 1501
	if got := r.AverageRating(); got != 1501 {
		t.Fatalf("AverageRating = %v; want 1501", got)
	}
}
