package rating

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/pavelanni/contestor/internal/model"
	"github.com/pavelanni/contestor/internal/store"
)

func newTestStore(t *testing.T) *store.Store {
	t.Helper()
	s, err := store.New(":memory:")
	if err != nil {
		t.Fatalf("newTestStore: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func createTestUser(t *testing.T, s *store.Store, username string, ratingValue int) int64 {
	t.Helper()
	id, err := s.CreateUser(model.User{
		Username:     username,
		DisplayName:  username,
		PasswordHash: "x",
		Role:         model.UserRoleStudent,
		Rating:       ratingValue,
		Active:       true,
	})
	if err != nil {
		t.Fatalf("createTestUser: %v", err)
	}
	return id
}

// endedContest creates a contest whose window closed an hour ago.
func endedContest(t *testing.T, s *store.Store) (int64, time.Time) {
	t.Helper()
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	id, err := s.CreateContest(model.Contest{
		Name:      "Weekly Round",
		StartTime: now.Add(-3 * time.Hour),
		EndTime:   now.Add(-1 * time.Hour),
	})
	if err != nil {
		t.Fatalf("endedContest: %v", err)
	}
	return id, now
}

func finalizeUserEntry(t *testing.T, s *store.Store, userID, contestID int64, score int, offset time.Duration) {
	t.Helper()
	verdict := model.VerdictWrongAnswer
	if score > 0 {
		verdict = model.VerdictAccepted
	}
	err := s.FinalizeBatch(userID, contestID, []model.Submission{{
		UserID:          userID,
		ProblemID:       1,
		ContestID:       &contestID,
		SelectedOptions: []string{"A"},
		Verdict:         verdict,
		Score:           score,
		SubmittedAt:     time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC).Add(offset),
	}})
	if err != nil {
		t.Fatalf("finalizeUserEntry: %v", err)
	}
}

func TestFinalizePreconditions(t *testing.T) {
	s := newTestStore(t)
	engine := NewEngine(s, 0)

	_, err := engine.Finalize(9999, time.Now())
	if !errors.Is(err, model.ErrContestNotFound) {
		t.Errorf("missing contest: got %v, want ErrContestNotFound", err)
	}

	contestID, now := endedContest(t, s)

	// Before the window closes finalization is rejected.
	_, err = engine.Finalize(contestID, now.Add(-2*time.Hour))
	if !errors.Is(err, model.ErrContestNotEnded) {
		t.Errorf("running contest: got %v, want ErrContestNotEnded", err)
	}

	// Ended but nobody submitted.
	_, err = engine.Finalize(contestID, now)
	if !errors.Is(err, model.ErrNoParticipants) {
		t.Errorf("empty contest: got %v, want ErrNoParticipants", err)
	}
}

func TestFinalizeThreeEqualParticipants(t *testing.T) {
	s := newTestStore(t)
	engine := NewEngine(s, 0)
	contestID, now := endedContest(t, s)

	// All three start unrated (zero) and bootstrap to the 1000 floor.
	var userIDs []int64
	for i := 0; i < 3; i++ {
		userIDs = append(userIDs, createTestUser(t, s, fmt.Sprintf("user%d", i+1), 0))
	}
	finalizeUserEntry(t, s, userIDs[0], contestID, 100, 0)
	finalizeUserEntry(t, s, userIDs[1], contestID, 50, time.Minute)
	finalizeUserEntry(t, s, userIDs[2], contestID, 0, 2*time.Minute)

	changes, err := engine.Finalize(contestID, now)
	if err != nil {
		t.Fatalf("Finalize: %v", err)
	}
	if len(changes) != 3 {
		t.Fatalf("expected 3 changes, got %d", len(changes))
	}

	want := map[int64]int{userIDs[0]: 1040, userIDs[1]: 1000, userIDs[2]: 960}
	for _, ch := range changes {
		if ch.OldRating != 1000 {
			t.Errorf("user %d old rating = %d, want bootstrapped 1000", ch.UserID, ch.OldRating)
		}
		if ch.NewRating != want[ch.UserID] {
			t.Errorf("user %d new rating = %d, want %d", ch.UserID, ch.NewRating, want[ch.UserID])
		}
	}

	// Ratings, titles, and history are committed.
	for _, ch := range changes {
		u, err := s.GetUserByID(ch.UserID)
		if err != nil || u == nil {
			t.Fatalf("GetUserByID(%d): %v", ch.UserID, err)
		}
		if u.Rating != ch.NewRating {
			t.Errorf("stored rating for user %d = %d, want %d", ch.UserID, u.Rating, ch.NewRating)
		}
		if u.Title != TitleFor(ch.NewRating) {
			t.Errorf("stored title for user %d = %v, want %v", ch.UserID, u.Title, TitleFor(ch.NewRating))
		}
		history, err := s.ListRatingHistory(ch.UserID)
		if err != nil {
			t.Fatalf("ListRatingHistory: %v", err)
		}
		if len(history) != 1 {
			t.Fatalf("expected 1 history entry for user %d, got %d", ch.UserID, len(history))
		}
		if history[0].ContestID != contestID || history[0].NewRating != ch.NewRating {
			t.Errorf("history entry = %+v, want contest %d rating %d", history[0], contestID, ch.NewRating)
		}
	}

	contest, err := s.GetContest(contestID)
	if err != nil {
		t.Fatalf("GetContest: %v", err)
	}
	if !contest.RatingsUpdated {
		t.Error("ratings_updated flag not set after finalization")
	}
	if contest.StateAt(now) != model.ContestFinalized {
		t.Errorf("contest state = %v, want finalized", contest.StateAt(now))
	}
}

func TestFinalizeRunsExactlyOnce(t *testing.T) {
	s := newTestStore(t)
	engine := NewEngine(s, 0)
	contestID, now := endedContest(t, s)

	u1 := createTestUser(t, s, "alice", 1500)
	u2 := createTestUser(t, s, "bob", 1500)
	finalizeUserEntry(t, s, u1, contestID, 100, 0)
	finalizeUserEntry(t, s, u2, contestID, 0, time.Minute)

	if _, err := engine.Finalize(contestID, now); err != nil {
		t.Fatalf("first Finalize: %v", err)
	}

	snapshot := func() map[int64]int {
		ratings, err := s.GetUserRatings([]int64{u1, u2})
		if err != nil {
			t.Fatalf("GetUserRatings: %v", err)
		}
		return ratings
	}
	before := snapshot()

	_, err := engine.Finalize(contestID, now.Add(time.Hour))
	if !errors.Is(err, model.ErrRatingsFinalized) {
		t.Fatalf("second Finalize: got %v, want ErrRatingsFinalized", err)
	}

	after := snapshot()
	for id, r := range before {
		if after[id] != r {
			t.Errorf("user %d rating changed on second run: %d -> %d", id, r, after[id])
		}
	}
	for _, id := range []int64{u1, u2} {
		history, err := s.ListRatingHistory(id)
		if err != nil {
			t.Fatalf("ListRatingHistory: %v", err)
		}
		if len(history) != 1 {
			t.Errorf("user %d has %d history entries after double finalize, want 1", id, len(history))
		}
	}
}

func TestFinalizeUsesStoredRatings(t *testing.T) {
	s := newTestStore(t)
	engine := NewEngine(s, 0)
	contestID, now := endedContest(t, s)

	// A rated underdog beating a rated favorite gains more than the
	// symmetric 20 points.
	favorite := createTestUser(t, s, "favorite", 2000)
	underdog := createTestUser(t, s, "underdog", 1000)
	finalizeUserEntry(t, s, underdog, contestID, 100, 0)
	finalizeUserEntry(t, s, favorite, contestID, 0, time.Minute)

	changes, err := engine.Finalize(contestID, now)
	if err != nil {
		t.Fatalf("Finalize: %v", err)
	}
	byUser := changesByUser(changes)
	if byUser[underdog].Delta != 40 {
		t.Errorf("underdog delta = %+d, want +40", byUser[underdog].Delta)
	}
	if byUser[favorite].Delta != -16 {
		t.Errorf("favorite delta = %+d, want -16", byUser[favorite].Delta)
	}
}
