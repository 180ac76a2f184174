/* Copyright © 2026 Mike Brown. All Rights Reserved.
 *
 * See LICENSE file at the root of this repository for license terms
 */
package lobby

import (
	"errors"
	"math/rand"
	"testing"
)

func TestManualEnrollAndSwitchSides(t *testing.T) {
	s := NewManualSession("g1", "chan1", "creator")

	p := mkParticipant(1, 1500)
	if err := s.Enroll(p, SideA); err != nil {
		t.Fatalf("unexpected enroll error: %v", err)
	}
	if !s.TeamA().Contains(p.ID) {
		t.Fatalf("participant missing from team A")
	}

	// switching sides moves, never duplicates
	if err := s.Enroll(p, SideB); err != nil {
		t.Fatalf("unexpected switch error: %v", err)
	}
	if s.TeamA().Contains(p.ID) {
		t.Fatalf("participant still on team A after switch")
	}
	if !s.TeamB().Contains(p.ID) {
		t.Fatalf("participant missing from team B after switch")
	}
	if s.PlayerCount() != 1 {
		t.Fatalf("PlayerCount = %v; want 1", s.PlayerCount())
	}

	// re-enrolling on the current side is a no-op
	if err := s.Enroll(p, SideB); err != nil {
		t.Fatalf("same-side re-enroll should not error: %v", err)
	}
	if s.PlayerCount() != 1 {
		t.Fatalf("PlayerCount = %v after re-enroll; want 1", s.PlayerCount())
	}
}

func TestManualEnrollFullTargetKeepsCurrentSide(t *testing.T) {
	s := NewManualSession("g1", "chan1", "creator")

	for i := 0; i < TeamCapacity; i++ {
		if err := s.Enroll(mkParticipant(i, 1500), SideA); err != nil {
			t.Fatalf("unexpected enroll error: %v", err)
		}
	}
	p := mkParticipant(10, 1500)
	if err := s.Enroll(p, SideB); err != nil {
		t.Fatalf("unexpected enroll error: %v", err)
	}

	// switch toward a full side fails and must not evict p from side B
	err := s.Enroll(p, SideA)
	if !errors.Is(err, ErrRosterFull) {
		t.Fatalf("switch to full side = %v; want ErrRosterFull", err)
	}
	if !s.TeamB().Contains(p.ID) {
		t.Fatalf("failed switch removed participant from original side")
	}
}

func TestBalancedEnrollIgnoresSide(t *testing.T) {
	s := NewBalancedSession("g1", "chan1", "creator")

	if err := s.Enroll(mkParticipant(1, 1500), SideA); err != nil {
		t.Fatalf("unexpected enroll error: %v", err)
	}
	if s.Pool().Len() != 1 {
		t.Fatalf("pool Len = %v; want 1", s.Pool().Len())
	}

	for i := 2; i <= PoolCapacity; i++ {
		if err := s.Enroll(mkParticipant(i, 1500), SideNone); err != nil {
			t.Fatalf("unexpected enroll error at %v: %v", i, err)
		}
	}
	err := s.Enroll(mkParticipant(99, 1500), SideNone)
	if !errors.Is(err, ErrRosterFull) {
		t.Fatalf("enroll on full pool = %v; want ErrRosterFull", err)
	}
}

func TestEnrollmentFreezesOutsideOpen(t *testing.T) {
	s := NewManualSession("g1", "chan1", "creator")
	s.Enroll(mkParticipant(1, 1500), SideA)
	if err := s.RequestConfirmation(); err != nil {
		t.Fatalf("unexpected confirmation request error: %v", err)
	}

	err := s.Enroll(mkParticipant(2, 1500), SideB)
	if !errors.Is(err, ErrEnrollmentClosed) {
		t.Fatalf("enroll while awaiting = %v; want ErrEnrollmentClosed", err)
	}
	err = s.Leave("u1")
	if !errors.Is(err, ErrEnrollmentClosed) {
		t.Fatalf("leave while awaiting = %v; want ErrEnrollmentClosed", err)
	}
	if !s.TeamA().Contains("u1") {
		t.Fatalf("failed leave mutated the roster")
	}
}

func TestManualConfirmationFlow(t *testing.T) {
	s := NewManualSession("g1", "chan1", "creator")

	// zero players cannot be promoted
	err := s.RequestConfirmation()
	if !errors.Is(err, ErrNotEnoughPlayers) {
		t.Fatalf("empty confirmation request = %v; want ErrNotEnoughPlayers",
			err)
	}

	s.Enroll(mkParticipant(1, 1500), SideA)
	s.Enroll(mkParticipant(2, 1500), SideB)

	if s.ReadyForConfirmation() {
		t.Fatalf("partial teams reported ready")
	}
	if err := s.RequestConfirmation(); err != nil {
		t.Fatalf("unexpected confirmation request error: %v", err)
	}
	if s.State() != StateAwaitingConfirmation {
		t.Fatalf("state = %v; want awaiting confirmation", s.State())
	}

	// reject reopens without losing membership
	if err := s.Reject(); err != nil {
		t.Fatalf("unexpected reject error: %v", err)
	}
	if s.State() != StateOpen {
		t.Fatalf("state after reject = %v; want open", s.State())
	}
	if s.PlayerCount() != 2 {
		t.Fatalf("reject dropped players: %v", s.PlayerCount())
	}

	// confirm only applies while awaiting
	err = s.Confirm()
	if !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("confirm while open = %v; want ErrInvalidTransition", err)
	}

	s.RequestConfirmation()
	if err := s.Confirm(); err != nil {
		t.Fatalf("unexpected confirm error: %v", err)
	}
	if s.State() != StateActive {
		t.Fatalf("state after confirm = %v; want active", s.State())
	}
}

func TestReadyForConfirmationFullTeams(t *testing.T) {
	s := NewManualSession("g1", "chan1", "creator")
	for i := 0; i < TeamCapacity; i++ {
		s.Enroll(mkParticipant(i, 1500), SideA)
		s.Enroll(mkParticipant(i+TeamCapacity, 1500), SideB)
	}
	if !s.ReadyForConfirmation() {
		t.Fatalf("full teams not reported ready")
	}
}

func TestStartBalanced(t *testing.T) {
	s := NewBalancedSession("g1", "chan1", "creator")

	s.Enroll(mkParticipant(1, 1800), SideNone)
	err := s.StartBalanced()
	if !errors.Is(err, ErrNotEnoughPlayers) {
		t.Fatalf("single-player start = %v; want ErrNotEnoughPlayers", err)
	}

	s.Enroll(mkParticipant(2, 1200), SideNone)
	s.Enroll(mkParticipant(3, 1600), SideNone)
	s.Enroll(mkParticipant(4, 1400), SideNone)
	if err := s.StartBalanced(); err != nil {
		t.Fatalf("unexpected start error: %v", err)
	}
	if s.State() != StateActive {
		t.Fatalf("state = %v; want active", s.State())
	}
	if s.TeamA().Len()+s.TeamB().Len() != 4 {
		t.Fatalf("split dropped players: %v + %v", s.TeamA().Len(),
			s.TeamB().Len())
	}

	// balanced sessions never pass through awaiting confirmation
	err = s.Confirm()
	if !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("confirm on balanced = %v; want ErrInvalidTransition", err)
	}
}

func TestReshuffleOnlyActiveBalanced(t *testing.T) {
	rng := rand.New(rand.NewSource(5))

	m := NewManualSession("g1", "chan1", "creator")
	m.Enroll(mkParticipant(1, 1500), SideA)
	m.Enroll(mkParticipant(2, 1500), SideB)
	m.RequestConfirmation()
	m.Confirm()
	err := m.Reshuffle(10, rng)
	if !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("reshuffle on manual = %v; want ErrInvalidTransition", err)
	}

	b := NewBalancedSession("g2", "chan1", "creator")
	b.Enroll(mkParticipant(1, 1500), SideNone)
	b.Enroll(mkParticipant(2, 1600), SideNone)
	err = b.Reshuffle(10, rng)
	if !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("reshuffle before start = %v; want ErrInvalidTransition",
			err)
	}

	b.StartBalanced()
	if err := b.Reshuffle(10, rng); err != nil {
		t.Fatalf("unexpected reshuffle error: %v", err)
	}
	if b.TeamA().Len()+b.TeamB().Len() != 2 {
		t.Fatalf("reshuffle dropped players")
	}
}

func TestCompleteIdempotent(t *testing.T) {
	s := NewManualSession("g1", "chan1", "creator")
	s.Enroll(mkParticipant(1, 1500), SideA)
	s.Enroll(mkParticipant(2, 1500), SideB)

	// completion requires an active session
	_, err := s.Complete(SideA)
	if !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("complete while open = %v; want ErrInvalidTransition", err)
	}

	s.RequestConfirmation()
	s.Confirm()

	_, err = s.Complete(SideNone)
	if !errors.Is(err, ErrUnknownSide) {
		t.Fatalf("complete with no side = %v; want ErrUnknownSide", err)
	}

	changed, err := s.Complete(SideA)
	if err != nil || !changed {
		t.Fatalf("first complete = (%v, %v); want (true, nil)", changed, err)
	}
	if s.State() != StateCompleted {
		t.Fatalf("state = %v; want completed", s.State())
	}

	// duplicate selections are absorbed without error
	changed, err = s.Complete(SideB)
	if err != nil || changed {
		t.Fatalf("repeat complete = (%v, %v); want (false, nil)", changed,
			err)
	}
}
