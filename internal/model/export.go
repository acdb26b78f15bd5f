package model

import "time"

// ContestExport is the top-level JSON structure for contest result export.
type ContestExport struct {
	ContestID      int64               `json:"contest_id"`
	Name           string              `json:"name"`
	StartTime      time.Time           `json:"start_time"`
	EndTime        time.Time           `json:"end_time"`
	RatingsUpdated bool                `json:"ratings_updated"`
	Results        []ParticipantResult `json:"results"`
}

// ParticipantResult holds one participant's final standing for export.
// Rating fields are nil until the contest's ratings have been finalized.
type ParticipantResult struct {
	Rank               int       `json:"rank"`
	UserID             int64     `json:"user_id"`
	Username           string    `json:"username"`
	DisplayName        string    `json:"display_name"`
	TotalScore         int       `json:"total_score"`
	LastSubmissionTime time.Time `json:"last_submission_time"`
	OldRating          *int      `json:"old_rating,omitempty"`
	NewRating          *int      `json:"new_rating,omitempty"`
}
