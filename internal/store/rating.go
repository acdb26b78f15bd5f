package store

import (
	"fmt"
	"strings"
	"time"

	"github.com/pavelanni/contestor/internal/model"
)

// GetUserRatings returns the current rating for each of the given users.
func (s *Store) GetUserRatings(userIDs []int64) (map[int64]int, error) {
	if len(userIDs) == 0 {
		return map[int64]int{}, nil
	}
	placeholders := strings.Repeat("?,", len(userIDs)-1) + "?"
	args := make([]any, len(userIDs))
	for i, id := range userIDs {
		args[i] = id
	}
	rows, err := s.db.Query(
		`SELECT id, rating FROM users WHERE id IN (`+placeholders+`)`, args...,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	ratings := make(map[int64]int, len(userIDs))
	for rows.Next() {
		var id int64
		var rating int
		if err := rows.Scan(&id, &rating); err != nil {
			return nil, err
		}
		ratings[id] = rating
	}
	return ratings, rows.Err()
}

// ApplyRatingChanges commits a rating finalization: the ratings_updated flag
// flip, every user update, and every history row happen in one transaction,
// or none of them do. The flag flip is a check-and-set, so a contest that
// was already finalized (by anyone) aborts with ErrRatingsFinalized before
// any user is touched.
func (s *Store) ApplyRatingChanges(contestID int64, changes []model.RatingChange, now time.Time) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	res, err := tx.Exec(
		`UPDATE contests SET ratings_updated = 1 WHERE id = ? AND ratings_updated = 0`, contestID,
	)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return model.ErrRatingsFinalized
	}

	for _, ch := range changes {
		res, err := tx.Exec(
			`UPDATE users SET rating = ?, title = ? WHERE id = ?`,
			ch.NewRating, ch.NewTitle, ch.UserID,
		)
		if err != nil {
			return fmt.Errorf("update rating for user %d: %w", ch.UserID, err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if n == 0 {
			return fmt.Errorf("update rating for user %d: %w", ch.UserID, model.ErrUserNotFound)
		}
		_, err = tx.Exec(
			`INSERT INTO rating_history (user_id, contest_id, old_rating, new_rating, created_at)
			 VALUES (?, ?, ?, ?, ?)`,
			ch.UserID, contestID, ch.OldRating, ch.NewRating, now,
		)
		if err != nil {
			return fmt.Errorf("insert history for user %d: %w", ch.UserID, err)
		}
	}
	return tx.Commit()
}

// ListRatingHistory returns a user's rating history, oldest first.
func (s *Store) ListRatingHistory(userID int64) ([]model.RatingHistoryEntry, error) {
	rows, err := s.db.Query(
		`SELECT id, user_id, contest_id, old_rating, new_rating, created_at
		 FROM rating_history WHERE user_id = ? ORDER BY id`, userID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var entries []model.RatingHistoryEntry
	for rows.Next() {
		var e model.RatingHistoryEntry
		if err := rows.Scan(&e.ID, &e.UserID, &e.ContestID, &e.OldRating, &e.NewRating, &e.CreatedAt); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// ContestRatingChanges returns the rating history rows recorded for one
// contest, used by the export command.
func (s *Store) ContestRatingChanges(contestID int64) ([]model.RatingHistoryEntry, error) {
	rows, err := s.db.Query(
		`SELECT id, user_id, contest_id, old_rating, new_rating, created_at
		 FROM rating_history WHERE contest_id = ? ORDER BY id`, contestID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var entries []model.RatingHistoryEntry
	for rows.Next() {
		var e model.RatingHistoryEntry
		if err := rows.Scan(&e.ID, &e.UserID, &e.ContestID, &e.OldRating, &e.NewRating, &e.CreatedAt); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
