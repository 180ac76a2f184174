/* Copyright © 2026 Mike Brown. All Rights Reserved.
 *
 * See LICENSE file at the root of this repository for license terms
 */
package lobby

import (
	"math"
	"math/rand"
	"sort"
)

// DefaultReshuffleIterations is the number of random candidate splits
// examined by ReshuffleSplit when the caller has no preference.
const DefaultReshuffleIterations = 50

// reshuffleTieWindow is the rating-average distance within which two
// candidate splits are considered equally balanced; among such near-ties the
// candidate that changes more participants' sides wins.
const reshuffleTieWindow = 0.5

// GreedySplit partitions a pool into two sides by rating. The pool is sorted
// descending by rating and walked once, assigning each participant to
// whichever side currently has the lower rating sum; ties favor side A. The
// result is deterministic for a given pool and not guaranteed optimal, but
// the final sum gap never exceeds the highest single rating in the pool.
func GreedySplit(pool []Participant) (teamA, teamB []Participant) {
	sorted := make([]Participant, len(pool))
	copy(sorted, pool)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Rating > sorted[j].Rating
	})

	sumA, sumB := 0, 0
	for _, p := range sorted {
		if sumA <= sumB {
			teamA = append(teamA, p)
			sumA += p.Rating
		} else {
			teamB = append(teamB, p)
			sumB += p.Rating
		}
	}

	return teamA, teamB
}

// ReshuffleSplit searches iterations random shuffles of the full pool,
// slicing each into the previous side sizes, and returns the candidate
// minimizing the absolute difference of side rating averages. Candidates
// within reshuffleTieWindow of the best found prefer changing more
// participants' sides relative to the previous split, so repeated reshuffles
// produce visible variety without giving up balance. rng may be nil, in
// which case the global math/rand source is used.
func ReshuffleSplit(all, prevA, prevB []Participant, iterations int,
	rng *rand.Rand) (teamA, teamB []Participant) {

	if iterations <= 0 {
		iterations = DefaultReshuffleIterations
	}
	shuffle := rand.Shuffle
	if rng != nil {
		shuffle = rng.Shuffle
	}

	prevSideA := make(map[string]bool, len(prevA))
	for _, p := range prevA {
		prevSideA[p.ID] = true
	}
	prevSideB := make(map[string]bool, len(prevB))
	for _, p := range prevB {
		prevSideB[p.ID] = true
	}

	candidate := make([]Participant, len(all))
	copy(candidate, all)

	var bestA, bestB []Participant
	bestDiff := math.Inf(1)
	bestChanged := -1

	for i := 0; i < iterations; i++ {
		shuffle(len(candidate), func(x, y int) {
			candidate[x], candidate[y] = candidate[y], candidate[x]
		})
		a := candidate[:len(prevA)]
		b := candidate[len(prevA) : len(prevA)+len(prevB)]

		diff := math.Abs(avgRatingFloat(a) - avgRatingFloat(b))
		changed := 0
		for _, p := range a {
			if !prevSideA[p.ID] {
				changed++
			}
		}
		for _, p := range b {
			if !prevSideB[p.ID] {
				changed++
			}
		}

		better := diff < bestDiff-reshuffleTieWindow
		nearTie := math.Abs(diff-bestDiff) <= reshuffleTieWindow &&
			changed > bestChanged
		if bestA == nil || better || nearTie {
			bestA = append([]Participant(nil), a...)
			bestB = append([]Participant(nil), b...)
			bestDiff = diff
			bestChanged = changed
		}
	}

	return bestA, bestB
}
