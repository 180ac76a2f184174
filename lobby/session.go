/* Copyright © 2026 Mike Brown. All Rights Reserved.
 *
 * See LICENSE file at the root of this repository for license terms
 */
package lobby

import "math/rand"

// Kind selects how a session forms its teams.
type Kind int

const (
	// KindManual sessions let participants self-select a side; results do
	// not move ratings.
	KindManual Kind = iota
	// KindBalanced sessions pool participants and split them by rating;
	// results are rated.
	KindBalanced
)

func (k Kind) String() string {
	switch k {
	case KindManual:
		return "manual"
	case KindBalanced:
		return "balanced"
	}
	return "unknown"
}

// State is the lifecycle state of a session.
type State int

const (
	// StateOpen accepts enrollment changes.
	StateOpen State = iota
	// StateAwaitingConfirmation waits for an authority to confirm or
	// reject a manual session's start; membership is frozen.
	StateAwaitingConfirmation
	// StateActive has fixed teams and awaits a winner selection.
	StateActive
	// StateCompleted is terminal; the session has a recorded result.
	StateCompleted
)

func (s State) String() string {
	switch s {
	case StateOpen:
		return "open"
	case StateAwaitingConfirmation:
		return "awaiting-confirmation"
	case StateActive:
		return "active"
	case StateCompleted:
		return "completed"
	}
	return "unknown"
}

// Side identifies one of the two competing groups within a session.
type Side int

const (
	SideNone Side = iota
	SideA
	SideB
)

func (s Side) String() string {
	switch s {
	case SideA:
		return "Team 1"
	case SideB:
		return "Team 2"
	}
	return "no team"
}

// Session owns the lifecycle of one lobby from open enrollment through a
// recorded result. All methods validate before mutating: a returned error
// means the session state is unchanged. Session performs no I/O and is not
// safe for concurrent use; callers serialize events per session.
type Session struct {
	Handle  string
	Scope   string
	Kind    Kind
	Creator string

	state State
	teamA *Roster
	teamB *Roster
	pool  *Roster
}

// NewManualSession opens a manual lobby: two self-selected sides of up to
// TeamCapacity players each.
func NewManualSession(handle, scope, creator string) *Session {
	return &Session{
		Handle:  handle,
		Scope:   scope,
		Kind:    KindManual,
		Creator: creator,
		state:   StateOpen,
		teamA:   NewRoster(TeamCapacity),
		teamB:   NewRoster(TeamCapacity),
	}
}

// NewBalancedSession opens a balanced lobby: one shared pool of up to
// PoolCapacity players, split by rating when the session starts.
func NewBalancedSession(handle, scope, creator string) *Session {
	return &Session{
		Handle:  handle,
		Scope:   scope,
		Kind:    KindBalanced,
		Creator: creator,
		state:   StateOpen,
		teamA:   NewRoster(TeamCapacity),
		teamB:   NewRoster(TeamCapacity),
		pool:    NewRoster(PoolCapacity),
	}
}

func (s *Session) State() State { return s.state }

// Rated reports whether a result of this session moves ratings. Manual
// sessions record results with a zero delta by policy.
func (s *Session) Rated() bool { return s.Kind == KindBalanced }

// TeamA returns side A's roster. The returned roster is the live set; it
// must only be inspected from the goroutine serializing this session.
func (s *Session) TeamA() *Roster { return s.teamA }

func (s *Session) TeamB() *Roster { return s.teamB }

// Pool returns the unsplit pool of a balanced session, or nil for manual
// sessions.
func (s *Session) Pool() *Roster { return s.pool }

// Enroll adds p to the session. For manual sessions side selects the team;
// switching sides removes the participant from the other side atomically,
// but only if the target side has room. For balanced sessions side is
// ignored and p joins the shared pool with its rating snapshot. Enrollment
// events after the session leaves StateOpen fail with ErrEnrollmentClosed.
func (s *Session) Enroll(p Participant, side Side) error {
	if s.state != StateOpen {
		return ErrEnrollmentClosed
	}

	if s.Kind == KindBalanced {
		return s.pool.Add(p)
	}

	var target, other *Roster
	switch side {
	case SideA:
		target, other = s.teamA, s.teamB
	case SideB:
		target, other = s.teamB, s.teamA
	default:
		return ErrUnknownSide
	}

	if target.Contains(p.ID) {
		return nil
	}
	if target.Len() >= target.Capacity() {
		// Reject before unenrolling from the other side so a failed
		// switch leaves the previous selection intact.
		return ErrRosterFull
	}
	other.Remove(p.ID)
	return target.Add(p)
}

// Leave removes the identity from whichever roster holds it. Leaving after
// membership froze fails with ErrEnrollmentClosed.
func (s *Session) Leave(id string) error {
	if s.state != StateOpen {
		return ErrEnrollmentClosed
	}
	if s.pool != nil {
		s.pool.Remove(id)
	}
	s.teamA.Remove(id)
	s.teamB.Remove(id)
	return nil
}

// PlayerCount returns the number of enrolled participants.
func (s *Session) PlayerCount() int {
	if s.Kind == KindBalanced && s.state == StateOpen {
		return s.pool.Len()
	}
	return s.teamA.Len() + s.teamB.Len()
}

// ReadyForConfirmation reports whether a manual session's sides are both at
// capacity, which triggers the confirmation request automatically.
func (s *Session) ReadyForConfirmation() bool {
	return s.Kind == KindManual && s.state == StateOpen &&
		s.teamA.Len() == TeamCapacity && s.teamB.Len() == TeamCapacity
}

// RequestConfirmation freezes a manual session's membership and moves it to
// StateAwaitingConfirmation. It requires at least one participant. Balanced
// sessions never await confirmation.
func (s *Session) RequestConfirmation() error {
	if s.Kind != KindManual || s.state != StateOpen {
		return ErrInvalidTransition
	}
	if s.PlayerCount() == 0 {
		return ErrNotEnoughPlayers
	}
	s.state = StateAwaitingConfirmation
	return nil
}

// Confirm fixes the teams and moves the session to StateActive.
func (s *Session) Confirm() error {
	if s.state != StateAwaitingConfirmation {
		return ErrInvalidTransition
	}
	s.state = StateActive
	return nil
}

// Reject returns an awaiting session to StateOpen without losing current
// membership.
func (s *Session) Reject() error {
	if s.state != StateAwaitingConfirmation {
		return ErrInvalidTransition
	}
	s.state = StateOpen
	return nil
}

// StartBalanced freezes the pool, splits it greedily by rating and moves a
// balanced session straight to StateActive. It requires at least two pool
// participants.
func (s *Session) StartBalanced() error {
	if s.Kind != KindBalanced || s.state != StateOpen {
		return ErrInvalidTransition
	}
	if s.pool.Len() < 2 {
		return ErrNotEnoughPlayers
	}
	a, b := GreedySplit(s.pool.Participants())
	s.teamA.replace(a)
	s.teamB.replace(b)
	s.state = StateActive
	return nil
}

// Reshuffle re-partitions an active balanced session's players, keeping the
// current side sizes while biasing toward composition change. The session
// stays StateActive.
func (s *Session) Reshuffle(iterations int, rng *rand.Rand) error {
	if s.Kind != KindBalanced || s.state != StateActive {
		return ErrInvalidTransition
	}
	all := append(s.teamA.Participants(), s.teamB.Participants()...)
	a, b := ReshuffleSplit(all, s.teamA.Participants(),
		s.teamB.Participants(), iterations, rng)
	s.teamA.replace(a)
	s.teamB.replace(b)
	return nil
}

// Complete records that a winner was selected and moves the session to its
// terminal state. A session that is already completed ignores further
// winner selections; Complete reports whether this call performed the
// transition.
func (s *Session) Complete(winner Side) (bool, error) {
	if s.state == StateCompleted {
		return false, nil
	}
	if s.state != StateActive {
		return false, ErrInvalidTransition
	}
	if winner != SideA && winner != SideB {
		return false, ErrUnknownSide
	}
	s.state = StateCompleted
	return true, nil
}
