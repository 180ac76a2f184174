/* Copyright © 2026 Mike Brown. All Rights Reserved.
 *
 * See LICENSE file at the root of this repository for license terms
 */
package lobby

import "errors"

var (
	// ErrRosterFull indicates an enrollment would exceed a side's or the
	// pool's capacity. The requester's current selection is left unchanged.
	ErrRosterFull = errors.New("roster is at capacity")

	// ErrEnrollmentClosed indicates an enroll or leave event arrived after
	// the session froze its membership (AwaitingConfirmation or later for
	// manual sessions; formation start for balanced sessions).
	ErrEnrollmentClosed = errors.New("session no longer accepts enrollment changes")

	// ErrInvalidTransition indicates an action that is illegal in the
	// session's current lifecycle state.
	ErrInvalidTransition = errors.New("action not legal in current session state")

	// ErrNotEnoughPlayers indicates a start request with fewer participants
	// than the session kind requires.
	ErrNotEnoughPlayers = errors.New("not enough players to start")

	// ErrUnknownSide indicates a side value other than SideA or SideB where
	// one was required.
	ErrUnknownSide = errors.New("unknown side")
)
