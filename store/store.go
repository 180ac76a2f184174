/* Copyright © 2026 Mike Brown. All Rights Reserved.
 *
 * See LICENSE file at the root of this repository for license terms
 */

// Package store defines the durable user-record store consumed by the
// session core and the command layer. Ratings, win/loss counters and linked
// game accounts live here; everything else about a running session is
// in-memory only.
package store

import (
	"context"
	"errors"
	"time"
)

// DefaultRating is the rating assigned to newly registered users.
const DefaultRating = 1500

// ErrNotFound indicates no user record exists for the given identity.
var ErrNotFound = errors.New("user not found")

// User is one durable user record.
type User struct {
	ID           string
	Username     string
	Tag          string
	AvatarURL    string
	GameHandle   string
	Rating       int
	GamesPlayed  int
	Wins         int
	Losses       int
	RegisteredAt time.Time
	UpdatedAt    time.Time
}

// WinRate returns the user's win percentage, or 0 with no games played.
func (u User) WinRate() float64 {
	if u.GamesPlayed == 0 {
		return 0
	}
	return float64(u.Wins) / float64(u.GamesPlayed) * 100.0
}

// UserStore persists user records. Result application and reversal are
// per-user atomic increments: a multi-user update that fails partway leaves
// the completed users updated (see rating.PartialError).
type UserStore interface {
	// EnsureRegistered upserts the identity fields of u (ID, Username,
	// Tag, AvatarURL) and returns the stored record, creating it with
	// DefaultRating and zeroed counters when absent.
	EnsureRegistered(ctx context.Context, u User) (User, error)

	// GetUser returns the record for id, or ErrNotFound.
	GetUser(ctx context.Context, id string) (User, error)

	// ListUsers returns all records ordered by registration time,
	// newest first.
	ListUsers(ctx context.Context) ([]User, error)

	// LinkGameHandle attaches an external game account handle to an
	// existing record.
	LinkGameHandle(ctx context.Context, id, handle string) error

	// ApplyResult applies one game result: rating += ratingDelta, games
	// played += 1, and the win or loss counter += 1 depending on won.
	ApplyResult(ctx context.Context, id string, ratingDelta int, won bool) error

	// ReverseResult is the exact additive inverse of ApplyResult with the
	// same arguments: rating -= ratingDelta, games played -= 1, and the
	// corresponding counter -= 1.
	ReverseResult(ctx context.Context, id string, ratingDelta int, hadWon bool) error

	// AdjustRating applies a manual rating correction.
	AdjustRating(ctx context.Context, id string, change int) error

	// RemoveWin decrements a user's win and games-played counters,
	// failing if either is already zero.
	RemoveWin(ctx context.Context, id string) error

	// RemoveLoss decrements a user's loss and games-played counters,
	// failing if either is already zero.
	RemoveLoss(ctx context.Context, id string) error
}
