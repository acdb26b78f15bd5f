package model

import (
	"context"
	"time"
)

// UserRole represents a user's access level.
type UserRole string

const (
	// UserRoleStudent is a regular contest participant.
	UserRoleStudent UserRole = "student"
	// UserRoleAdmin is an operator who manages contests and ratings.
	UserRoleAdmin UserRole = "admin"
)

// User represents a system user.
type User struct {
	ID           int64     `json:"id"`
	Username     string    `json:"username"`
	DisplayName  string    `json:"display_name"`
	PasswordHash string    `json:"-"`
	Role         UserRole  `json:"role"`
	Rating       int       `json:"rating"`
	Title        Title     `json:"title"`
	Active       bool      `json:"active"`
	CreatedAt    time.Time `json:"created_at"`
}

// AuthSession represents an authentication session.
type AuthSession struct {
	ID        string
	UserID    int64
	CreatedAt time.Time
	ExpiresAt time.Time
}

type userCtxKey struct{}

// ContextWithUser stores a user in the request context.
func ContextWithUser(ctx context.Context, u *User) context.Context {
	return context.WithValue(ctx, userCtxKey{}, u)
}

// UserFromContext retrieves the authenticated user from context, or nil.
func UserFromContext(ctx context.Context) *User {
	u, _ := ctx.Value(userCtxKey{}).(*User)
	return u
}

// Verdict is the graded outcome of a submission.
type Verdict string

const (
	VerdictAccepted    Verdict = "accepted"
	VerdictWrongAnswer Verdict = "wrong_answer"
)

// Title is a cosmetic rating tier label.
type Title string

const (
	TitleNewbie          Title = "newbie"
	TitlePupil           Title = "pupil"
	TitleSpecialist      Title = "specialist"
	TitleExpert          Title = "expert"
	TitleCandidateMaster Title = "candidate_master"
	TitleMaster          Title = "master"
)

// ContestState represents the lifecycle stage of a contest.
// Transitions are one-way: created -> published -> active -> ended -> finalized.
type ContestState string

const (
	ContestCreated   ContestState = "created"
	ContestPublished ContestState = "published"
	ContestActive    ContestState = "active"
	ContestEnded     ContestState = "ended"
	ContestFinalized ContestState = "finalized"
)

// Problem represents a quiz problem.
type Problem struct {
	ID             int64    `json:"id"`
	Subject        string   `json:"subject"`
	Tags           string   `json:"tags"`
	Text           string   `json:"text"`
	Options        []string `json:"options"`
	CorrectOptions []string `json:"-"`
	Score          int      `json:"score"`
}

// Contest represents a rated contest with a half-open time window [start, end).
type Contest struct {
	ID             int64     `json:"id"`
	Name           string    `json:"name"`
	StartTime      time.Time `json:"start_time"`
	EndTime        time.Time `json:"end_time"`
	IsPublished    bool      `json:"is_published"`
	RatingsUpdated bool      `json:"ratings_updated"`
	CreatedAt      time.Time `json:"created_at"`
}

// StateAt derives the contest state from the clock and the stored flags.
func (c *Contest) StateAt(now time.Time) ContestState {
	switch {
	case c.RatingsUpdated:
		return ContestFinalized
	case !now.Before(c.EndTime):
		return ContestEnded
	case !c.IsPublished:
		return ContestCreated
	case now.Before(c.StartTime):
		return ContestPublished
	default:
		return ContestActive
	}
}

// IsActiveAt reports whether now falls within the contest window [start, end).
func (c *Contest) IsActiveAt(now time.Time) bool {
	return !now.Before(c.StartTime) && now.Before(c.EndTime)
}

// Submission represents one graded answer. ContestID is nil for practice
// submissions, which are final on creation. Contest submissions start as
// drafts and are locked to final at most once per (user, contest).
type Submission struct {
	ID              int64     `json:"id"`
	UserID          int64     `json:"user_id"`
	ProblemID       int64     `json:"problem_id"`
	ContestID       *int64    `json:"contest_id,omitempty"`
	SelectedOptions []string  `json:"selected_options"`
	Verdict         Verdict   `json:"verdict"`
	Score           int       `json:"score"`
	IsFinal         bool      `json:"is_final"`
	SubmittedAt     time.Time `json:"submitted_at"`
}

// IsPractice reports whether the submission is outside any contest.
func (s *Submission) IsPractice() bool {
	return s.ContestID == nil
}

// StandingsRow is one line of a contest leaderboard.
type StandingsRow struct {
	UserID             int64     `json:"user_id"`
	TotalScore         int       `json:"total_score"`
	LastSubmissionTime time.Time `json:"last_submission_time"`
	Rank               int       `json:"rank"`
}

// RatingChange is the outcome of a rating finalization for one participant.
type RatingChange struct {
	UserID    int64 `json:"user_id"`
	OldRating int   `json:"old_rating"`
	NewRating int   `json:"new_rating"`
	Delta     int   `json:"delta"`
	NewTitle  Title `json:"new_title"`
}

// RatingHistoryEntry is an append-only record of one rating update.
type RatingHistoryEntry struct {
	ID        int64     `json:"id"`
	UserID    int64     `json:"user_id"`
	ContestID int64     `json:"contest_id"`
	OldRating int       `json:"old_rating"`
	NewRating int       `json:"new_rating"`
	CreatedAt time.Time `json:"created_at"`
}

// ProblemImport is used for loading problems from JSON.
type ProblemImport struct {
	Subject        string   `json:"subject"`
	Tags           string   `json:"tags"`
	Text           string   `json:"text"`
	Options        []string `json:"options"`
	CorrectOptions []string `json:"correct_options"`
	Score          int      `json:"score"`
}

// ServerConfig holds runtime parameters set via CLI flags.
type ServerConfig struct {
	RatingFloor   int  // rating assigned to unrated (zero-rated) participants
	SecureCookies bool // set Secure flag on session cookies
}
