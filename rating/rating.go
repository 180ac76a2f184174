/* Copyright © 2026 Mike Brown. All Rights Reserved.
 *
 * See LICENSE file at the root of this repository for license terms
 */

// Package rating computes and applies skill-rating adjustments for team
// results. The delta is derived once from the two sides' average ratings and
// applied symmetrically: every winner gains what every loser loses. Reversal
// replays the recorded delta; the formula is never re-derived.
package rating

import (
	"context"
	"math"

	"golang.org/x/sync/errgroup"

	"github.com/mikeb26/customslobby-bot/store"
)

// DefaultKFactor is the K used for session results unless a caller
// overrides it.
const DefaultKFactor = 32

// ExpectedScore returns the probability that a player rated ratingA beats a
// player rated ratingB under the logistic rating model.
func ExpectedScore(ratingA, ratingB float64) float64 {
	// 1/(10^((b-a)/400)+1)
	exp := math.Pow(10, (ratingB-ratingA)/400.0)
	return 1.0 / (exp + 1.0)
}

// Delta returns the rating adjustment for a win by the side averaging
// winnerAvg over the side averaging loserAvg. The result is rounded to the
// nearest integer and is always >= 0.
func Delta(winnerAvg, loserAvg float64, kFactor int) int {
	return int(math.Round(float64(kFactor) * (1.0 - ExpectedScore(winnerAvg, loserAvg))))
}

// TeamAverages fetches the current stored rating of every listed user
// concurrently and returns the two side averages. Fresh store reads are used
// rather than join-time snapshots so the delta reflects any drift between
// enrollment and result.
func TeamAverages(ctx context.Context, st store.UserStore,
	winnerIDs, loserIDs []string) (winnerAvg, loserAvg float64, err error) {

	winners := make([]int, len(winnerIDs))
	losers := make([]int, len(loserIDs))

	g, ctx := errgroup.WithContext(ctx)
	for i := range winnerIDs {
		i := i
		g.Go(func() error {
			u, err := st.GetUser(ctx, winnerIDs[i])
			if err != nil {
				return err
			}
			winners[i] = u.Rating
			return nil
		})
	}
	for i := range loserIDs {
		i := i
		g.Go(func() error {
			u, err := st.GetUser(ctx, loserIDs[i])
			if err != nil {
				return err
			}
			losers[i] = u.Rating
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return 0, 0, err
	}

	return mean(winners), mean(losers), nil
}

func mean(ratings []int) float64 {
	if len(ratings) == 0 {
		return store.DefaultRating
	}
	sum := 0
	for _, r := range ratings {
		sum += r
	}
	return float64(sum) / float64(len(ratings))
}

// ApplyResult records a result against every participant: winners gain
// delta and a win, losers lose delta and gain a loss, and games played
// increments for all. Each participant is updated independently; failures
// do not roll back updates that already succeeded. A non-nil return is
// always a *PartialError listing exactly which participants failed.
func ApplyResult(ctx context.Context, st store.UserStore,
	winnerIDs, loserIDs []string, delta int) error {

	perr := &PartialError{Op: "apply"}
	for _, id := range winnerIDs {
		if err := st.ApplyResult(ctx, id, delta, true); err != nil {
			perr.add(id, err)
		}
	}
	for _, id := range loserIDs {
		if err := st.ApplyResult(ctx, id, -delta, false); err != nil {
			perr.add(id, err)
		}
	}
	return perr.orNil()
}

// ReverseResult is the exact additive inverse of ApplyResult with the same
// recorded delta: winners give back delta and a win, losers regain delta
// and shed a loss, and games played decrements for all.
func ReverseResult(ctx context.Context, st store.UserStore,
	winnerIDs, loserIDs []string, delta int) error {

	perr := &PartialError{Op: "reverse"}
	for _, id := range winnerIDs {
		if err := st.ReverseResult(ctx, id, delta, true); err != nil {
			perr.add(id, err)
		}
	}
	for _, id := range loserIDs {
		if err := st.ReverseResult(ctx, id, -delta, false); err != nil {
			perr.add(id, err)
		}
	}
	return perr.orNil()
}
