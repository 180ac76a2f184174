/* Copyright © 2026 Mike Brown. All Rights Reserved.
 *
 * See LICENSE file at the root of this repository for license terms
 */
package hub

import (
	"time"

	"github.com/mikeb26/customslobby-bot/lobby"
)

// SessionView is an immutable snapshot of one session, safe to hand to
// notifiers and callers on other goroutines.
type SessionView struct {
	Handle    string
	Scope     string
	Creator   string
	Kind      lobby.Kind
	State     lobby.State
	TeamA     []lobby.Participant
	TeamB     []lobby.Participant
	Pool      []lobby.Participant
	CreatedAt time.Time
}

// PlayerCount returns the number of enrolled participants in the view.
func (v SessionView) PlayerCount() int {
	if v.Kind == lobby.KindBalanced && v.State == lobby.StateOpen {
		return len(v.Pool)
	}
	return len(v.TeamA) + len(v.TeamB)
}

// TeamAAverage returns side A's average rating snapshot.
func (v SessionView) TeamAAverage() int { return lobby.AverageRating(v.TeamA) }

// TeamBAverage returns side B's average rating snapshot.
func (v SessionView) TeamBAverage() int { return lobby.AverageRating(v.TeamB) }

// PoolAverage returns the unsplit pool's average rating snapshot.
func (v SessionView) PoolAverage() int { return lobby.AverageRating(v.Pool) }

func snapshot(sess *lobby.Session, createdAt time.Time) SessionView {
	view := SessionView{
		Handle:    sess.Handle,
		Scope:     sess.Scope,
		Creator:   sess.Creator,
		Kind:      sess.Kind,
		State:     sess.State(),
		TeamA:     sess.TeamA().Participants(),
		TeamB:     sess.TeamB().Participants(),
		CreatedAt: createdAt,
	}
	if sess.Pool() != nil {
		view.Pool = sess.Pool().Participants()
	}
	return view
}
