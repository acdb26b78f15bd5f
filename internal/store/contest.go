package store

import (
	"database/sql"
	"time"

	"github.com/pavelanni/contestor/internal/model"
)

// CreateContest creates an unpublished contest.
func (s *Store) CreateContest(c model.Contest) (int64, error) {
	res, err := s.db.Exec(
		`INSERT INTO contests (name, start_time, end_time, is_published, ratings_updated, created_at)
		 VALUES (?, ?, ?, 0, 0, ?)`,
		c.Name, c.StartTime, c.EndTime, time.Now(),
	)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

// GetContest returns a contest by ID.
func (s *Store) GetContest(id int64) (model.Contest, error) {
	var c model.Contest
	err := s.db.QueryRow(
		`SELECT id, name, start_time, end_time, is_published, ratings_updated, created_at
		 FROM contests WHERE id = ?`, id,
	).Scan(&c.ID, &c.Name, &c.StartTime, &c.EndTime, &c.IsPublished, &c.RatingsUpdated, &c.CreatedAt)
	if err == sql.ErrNoRows {
		return c, model.ErrContestNotFound
	}
	return c, err
}

// ListContests returns contests ordered by start time, newest first.
// When publishedOnly is set, unpublished contests are hidden.
func (s *Store) ListContests(publishedOnly bool) ([]model.Contest, error) {
	query := `SELECT id, name, start_time, end_time, is_published, ratings_updated, created_at FROM contests`
	if publishedOnly {
		query += ` WHERE is_published = 1`
	}
	query += ` ORDER BY start_time DESC`
	rows, err := s.db.Query(query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var contests []model.Contest
	for rows.Next() {
		var c model.Contest
		if err := rows.Scan(&c.ID, &c.Name, &c.StartTime, &c.EndTime, &c.IsPublished, &c.RatingsUpdated, &c.CreatedAt); err != nil {
			return nil, err
		}
		contests = append(contests, c)
	}
	return contests, rows.Err()
}

// PublishContest makes a contest visible to participants.
func (s *Store) PublishContest(id int64) error {
	res, err := s.db.Exec(`UPDATE contests SET is_published = 1 WHERE id = ?`, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return model.ErrContestNotFound
	}
	return nil
}

// SetContestProblems replaces the ordered problem set of a contest.
func (s *Store) SetContestProblems(contestID int64, problemIDs []int64) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM contest_problems WHERE contest_id = ?`, contestID); err != nil {
		return err
	}
	for i, pID := range problemIDs {
		_, err := tx.Exec(
			`INSERT INTO contest_problems (contest_id, problem_id, position) VALUES (?, ?, ?)`,
			contestID, pID, i,
		)
		if err != nil {
			return err
		}
	}
	return tx.Commit()
}

// ContestProblemIDs returns the contest's problem IDs in order.
func (s *Store) ContestProblemIDs(contestID int64) ([]int64, error) {
	rows, err := s.db.Query(
		`SELECT problem_id FROM contest_problems WHERE contest_id = ? ORDER BY position`, contestID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// ContestHasProblem reports whether a problem belongs to a contest.
func (s *Store) ContestHasProblem(contestID, problemID int64) (bool, error) {
	var one int
	err := s.db.QueryRow(
		`SELECT 1 FROM contest_problems WHERE contest_id = ? AND problem_id = ?`,
		contestID, problemID,
	).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	return err == nil, err
}

// JoinContest registers a user as a contest participant. Joining twice is a
// no-op.
func (s *Store) JoinContest(contestID, userID int64) error {
	_, err := s.db.Exec(
		`INSERT INTO contest_participants (contest_id, user_id, joined_at) VALUES (?, ?, ?)
		 ON CONFLICT(contest_id, user_id) DO NOTHING`,
		contestID, userID, time.Now(),
	)
	return err
}

// IsParticipant reports whether a user has joined a contest.
func (s *Store) IsParticipant(contestID, userID int64) (bool, error) {
	var one int
	err := s.db.QueryRow(
		`SELECT 1 FROM contest_participants WHERE contest_id = ? AND user_id = ?`,
		contestID, userID,
	).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	return err == nil, err
}
