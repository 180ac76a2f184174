/* Copyright © 2026 Mike Brown. All Rights Reserved.
 *
 * See LICENSE file at the root of this repository for license terms
 */
package lobby

// Participant is one player attached to a session. Rating is the skill
// snapshot captured when the participant joined; for manual sessions it is
// informational only and the store is consulted at result time instead.
type Participant struct {
	ID         string
	Username   string
	GameHandle string
	Rating     int
}

// AverageRating returns the mean rating of ps rounded to the nearest
// integer, or 0 for an empty slice.
func AverageRating(ps []Participant) int {
	if len(ps) == 0 {
		return 0
	}
	sum := 0
	for _, p := range ps {
		sum += p.Rating
	}
	return int(float64(sum)/float64(len(ps)) + 0.5)
}

func ratingSum(ps []Participant) int {
	sum := 0
	for _, p := range ps {
		sum += p.Rating
	}
	return sum
}

func avgRatingFloat(ps []Participant) float64 {
	if len(ps) == 0 {
		return 0
	}
	return float64(ratingSum(ps)) / float64(len(ps))
}
