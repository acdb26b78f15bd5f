// Package rating implements the multiplayer Elo update applied after a
// contest ends. Expected and actual scores both live on a [0, N-1] scale:
// the expectation is an unnormalized sum of pairwise win probabilities and
// the actual score is N minus the final rank.
package rating

import (
	"math"

	"github.com/pavelanni/contestor/internal/model"
)

// DefaultFloor is the rating assigned to unrated participants before the
// update. A stored rating of exactly zero means "never rated".
const DefaultFloor = 1000

// kStep maps a rating ceiling to a K-factor. Lower-rated players move
// faster; the table is policy, not algorithm, so keep it data-driven.
type kStep struct {
	below int
	k     float64
}

var kTable = []kStep{
	{below: 1500, k: 40},
	{below: 2000, k: 24},
}

const kDefault = 16

// KFactor returns the update step for the given rating.
func KFactor(rating int) float64 {
	for _, s := range kTable {
		if rating < s.below {
			return s.k
		}
	}
	return kDefault
}

type titleStep struct {
	below int
	title model.Title
}

var titleTable = []titleStep{
	{below: 1200, title: model.TitleNewbie},
	{below: 1400, title: model.TitlePupil},
	{below: 1600, title: model.TitleSpecialist},
	{below: 1900, title: model.TitleExpert},
	{below: 2100, title: model.TitleCandidateMaster},
}

// TitleFor returns the title for a rating. Monotonic, no hysteresis.
func TitleFor(rating int) model.Title {
	for _, s := range titleTable {
		if rating < s.below {
			return s.title
		}
	}
	return model.TitleMaster
}

// expectedScore sums the logistic win probability of rating r against every
// opponent rating.
func expectedScore(r int, opponents []int) float64 {
	var sum float64
	for _, q := range opponents {
		sum += 1 / (1 + math.Pow(10, float64(q-r)/400))
	}
	return sum
}

// Changes computes the rating delta for every ranked participant.
// standings must carry final dense ranks (1 = best); ratings maps each
// participant to their current, already-bootstrapped rating.
func Changes(standings []model.StandingsRow, ratings map[int64]int) []model.RatingChange {
	n := len(standings)
	all := make([]int, 0, n)
	for _, row := range standings {
		all = append(all, ratings[row.UserID])
	}

	changes := make([]model.RatingChange, 0, n)
	for i, row := range standings {
		r := ratings[row.UserID]
		opponents := make([]int, 0, n-1)
		for j, q := range all {
			if j != i {
				opponents = append(opponents, q)
			}
		}
		expected := expectedScore(r, opponents)
		actual := float64(n - row.Rank)
		delta := int(math.Round(KFactor(r) * (actual - expected)))
		newRating := r + delta
		changes = append(changes, model.RatingChange{
			UserID:    row.UserID,
			OldRating: r,
			NewRating: newRating,
			Delta:     delta,
			NewTitle:  TitleFor(newRating),
		})
	}
	return changes
}
