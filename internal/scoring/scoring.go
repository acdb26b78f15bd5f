// Package scoring contains the pure grading and leaderboard aggregation
// logic. Nothing here touches storage or the clock; both functions are
// deterministic over their inputs.
package scoring

import (
	"sort"

	"github.com/pavelanni/contestor/internal/model"
)

// Grade computes the verdict and score for an answer against a problem.
// Grading is all-or-nothing: the selected options must match the correct
// options exactly (order-independent). There is no partial credit.
func Grade(p model.Problem, selected []string) (model.Verdict, int) {
	if sameOptionSet(p.CorrectOptions, selected) {
		return model.VerdictAccepted, p.Score
	}
	return model.VerdictWrongAnswer, 0
}

// sameOptionSet compares two option lists as multisets.
func sameOptionSet(correct, selected []string) bool {
	if len(correct) == 0 || len(correct) != len(selected) {
		return false
	}
	counts := make(map[string]int, len(correct))
	for _, o := range correct {
		counts[o]++
	}
	for _, o := range selected {
		counts[o]--
		if counts[o] < 0 {
			return false
		}
	}
	return true
}

// Standings aggregates contest submissions into a ranked leaderboard.
//
// Per (user, problem) only the best-scoring attempt counts, anchored at the
// earliest submission that reached it. Per user the total is the sum of
// those bests and the tie-break time is the latest of the per-problem
// anchors: the moment the user completed their final standing. Ordering is
// total score descending, anchor time ascending, then user ID so the result
// is fully deterministic. Ranks are dense and 1-based with no sharing.
func Standings(subs []model.Submission) []model.StandingsRow {
	type key struct {
		user    int64
		problem int64
	}
	best := make(map[key]model.Submission)
	for _, s := range subs {
		k := key{s.UserID, s.ProblemID}
		prev, ok := best[k]
		if !ok || s.Score > prev.Score ||
			(s.Score == prev.Score && s.SubmittedAt.Before(prev.SubmittedAt)) {
			best[k] = s
		}
	}

	totals := make(map[int64]*model.StandingsRow)
	for k, s := range best {
		row, ok := totals[k.user]
		if !ok {
			row = &model.StandingsRow{UserID: k.user, LastSubmissionTime: s.SubmittedAt}
			totals[k.user] = row
		}
		row.TotalScore += s.Score
		if s.SubmittedAt.After(row.LastSubmissionTime) {
			row.LastSubmissionTime = s.SubmittedAt
		}
	}

	rows := make([]model.StandingsRow, 0, len(totals))
	for _, row := range totals {
		rows = append(rows, *row)
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].TotalScore != rows[j].TotalScore {
			return rows[i].TotalScore > rows[j].TotalScore
		}
		if !rows[i].LastSubmissionTime.Equal(rows[j].LastSubmissionTime) {
			return rows[i].LastSubmissionTime.Before(rows[j].LastSubmissionTime)
		}
		return rows[i].UserID < rows[j].UserID
	})
	for i := range rows {
		rows[i].Rank = i + 1
	}
	return rows
}
