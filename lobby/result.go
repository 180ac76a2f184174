/* Copyright © 2026 Mike Brown. All Rights Reserved.
 *
 * See LICENSE file at the root of this repository for license terms
 */
package lobby

import "time"

// CompletedResult is the immutable record of a finished session: the side
// snapshots, the winner, and the rating delta that was applied. It is what
// survives a session's destruction and what an undo replays in reverse.
type CompletedResult struct {
	Handle      string
	Scope       string
	TeamA       []Participant
	TeamB       []Participant
	Winner      Side
	RatingDelta int
	Rated       bool
	CompletedAt time.Time
}

// Winners returns the side snapshot that won.
func (r CompletedResult) Winners() []Participant {
	if r.Winner == SideA {
		return r.TeamA
	}
	return r.TeamB
}

// Losers returns the side snapshot that lost.
func (r CompletedResult) Losers() []Participant {
	if r.Winner == SideA {
		return r.TeamB
	}
	return r.TeamA
}
