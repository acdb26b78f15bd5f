package model

import "errors"

// Sentinel errors for the scoring and rating core. Callers match with
// errors.Is; none of these are retryable.
var (
	ErrContestNotFound          = errors.New("contest not found")
	ErrProblemNotFound          = errors.New("problem not found")
	ErrUserNotFound             = errors.New("user not found")
	ErrContestNotActive         = errors.New("contest not active")
	ErrContestNotEnded          = errors.New("contest not ended")
	ErrProblemNotInContest      = errors.New("problem not in contest")
	ErrNotParticipant           = errors.New("user has not joined the contest")
	ErrDuplicateFinalSubmission = errors.New("final submission already exists")
	ErrRatingsFinalized         = errors.New("ratings already finalized")
	ErrNoParticipants           = errors.New("contest has no participants")
)
