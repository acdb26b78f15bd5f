package rating

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/pavelanni/contestor/internal/model"
	"github.com/pavelanni/contestor/internal/scoring"
	"github.com/pavelanni/contestor/internal/store"
)

// Engine runs the one-shot rating finalization for ended contests.
// Finalize must never be retried blindly: the per-contest lock plus the
// ratings_updated check-and-set in the store guarantee at-most-once
// application, and a second call reports ErrRatingsFinalized.
type Engine struct {
	store *store.Store
	floor int

	mu    sync.Mutex
	locks map[int64]*sync.Mutex
}

// NewEngine creates a rating engine. floor is the rating assigned to unrated
// participants; zero means DefaultFloor.
func NewEngine(s *store.Store, floor int) *Engine {
	if floor <= 0 {
		floor = DefaultFloor
	}
	return &Engine{
		store: s,
		floor: floor,
		locks: make(map[int64]*sync.Mutex),
	}
}

// contestLock returns the mutex serializing finalization of one contest.
func (e *Engine) contestLock(contestID int64) *sync.Mutex {
	e.mu.Lock()
	defer e.mu.Unlock()
	lock, ok := e.locks[contestID]
	if !ok {
		lock = &sync.Mutex{}
		e.locks[contestID] = lock
	}
	return lock
}

// Finalize computes final standings from final submissions, derives rating
// deltas, and commits new ratings, titles, and history in one transaction.
// Preconditions, checked in order: the contest exists, its ratings were not
// finalized before, and its window has closed. No state is written if any
// check or the computation fails.
func (e *Engine) Finalize(contestID int64, now time.Time) ([]model.RatingChange, error) {
	lock := e.contestLock(contestID)
	lock.Lock()
	defer lock.Unlock()

	contest, err := e.store.GetContest(contestID)
	if err != nil {
		return nil, err
	}
	if contest.RatingsUpdated {
		return nil, model.ErrRatingsFinalized
	}
	if now.Before(contest.EndTime) {
		return nil, model.ErrContestNotEnded
	}

	subs, err := e.store.ListContestSubmissions(contestID, true)
	if err != nil {
		return nil, fmt.Errorf("list final submissions: %w", err)
	}
	standings := scoring.Standings(subs)
	if len(standings) == 0 {
		return nil, model.ErrNoParticipants
	}

	userIDs := make([]int64, 0, len(standings))
	for _, row := range standings {
		userIDs = append(userIDs, row.UserID)
	}
	ratings, err := e.store.GetUserRatings(userIDs)
	if err != nil {
		return nil, fmt.Errorf("load ratings: %w", err)
	}
	// Unrated participants enter at the floor so that true-zero ratings
	// cannot skew the pairwise expectations.
	for _, id := range userIDs {
		if ratings[id] == 0 {
			ratings[id] = e.floor
		}
	}

	changes := Changes(standings, ratings)
	if err := e.store.ApplyRatingChanges(contestID, changes, now); err != nil {
		return nil, err
	}

	slog.Info("finalized contest ratings",
		"contest_id", contestID,
		"participants", len(changes),
	)
	return changes, nil
}
