package store

import (
	"fmt"

	"github.com/pavelanni/contestor/internal/model"
	"github.com/pavelanni/contestor/internal/scoring"
)

// ExportContestResults builds export-ready final standings for a contest,
// joined with usernames and, if ratings were finalized, the rating changes.
func (s *Store) ExportContestResults(contestID int64) (*model.ContestExport, error) {
	contest, err := s.GetContest(contestID)
	if err != nil {
		return nil, fmt.Errorf("get contest %d: %w", contestID, err)
	}

	subs, err := s.ListContestSubmissions(contestID, true)
	if err != nil {
		return nil, fmt.Errorf("list submissions: %w", err)
	}
	standings := scoring.Standings(subs)

	history, err := s.ContestRatingChanges(contestID)
	if err != nil {
		return nil, fmt.Errorf("list rating changes: %w", err)
	}
	changes := make(map[int64]model.RatingHistoryEntry, len(history))
	for _, e := range history {
		changes[e.UserID] = e
	}

	var results []model.ParticipantResult
	for _, row := range standings {
		user, err := s.GetUserByID(row.UserID)
		if err != nil {
			return nil, fmt.Errorf("get user %d: %w", row.UserID, err)
		}

		res := model.ParticipantResult{
			Rank:               row.Rank,
			UserID:             row.UserID,
			TotalScore:         row.TotalScore,
			LastSubmissionTime: row.LastSubmissionTime,
		}
		if user != nil {
			res.Username = user.Username
			res.DisplayName = user.DisplayName
		}
		if e, ok := changes[row.UserID]; ok {
			old, updated := e.OldRating, e.NewRating
			res.OldRating = &old
			res.NewRating = &updated
		}
		results = append(results, res)
	}

	return &model.ContestExport{
		ContestID:      contest.ID,
		Name:           contest.Name,
		StartTime:      contest.StartTime,
		EndTime:        contest.EndTime,
		RatingsUpdated: contest.RatingsUpdated,
		Results:        results,
	}, nil
}
