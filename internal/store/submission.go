package store

import (
	"fmt"

	"github.com/pavelanni/contestor/internal/model"
)

// SaveDraft upserts a contest draft keyed by (user, problem, contest) in one
// atomic statement. The conditional update leaves finalized rows untouched;
// zero affected rows therefore means the user already locked this contest.
func (s *Store) SaveDraft(sub model.Submission) error {
	selected, err := encodeOptions(sub.SelectedOptions)
	if err != nil {
		return err
	}
	res, err := s.db.Exec(
		`INSERT INTO submissions (user_id, problem_id, contest_id, selected_options, verdict, score, is_final, submitted_at)
		 VALUES (?, ?, ?, ?, ?, ?, 0, ?)
		 ON CONFLICT(user_id, problem_id, contest_id) DO UPDATE SET
			selected_options = excluded.selected_options,
			verdict = excluded.verdict,
			score = excluded.score,
			submitted_at = excluded.submitted_at
		 WHERE submissions.is_final = 0`,
		sub.UserID, sub.ProblemID, sub.ContestID, selected, sub.Verdict, sub.Score, sub.SubmittedAt,
	)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return model.ErrDuplicateFinalSubmission
	}
	return nil
}

// FinalizeBatch grades a user's whole contest entry as final in one
// transaction. The prior-final check and the writes share the transaction,
// so concurrent finalize calls from the same user cannot both succeed.
func (s *Store) FinalizeBatch(userID, contestID int64, subs []model.Submission) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var count int
	err = tx.QueryRow(
		`SELECT COUNT(*) FROM submissions WHERE user_id = ? AND contest_id = ? AND is_final = 1`,
		userID, contestID,
	).Scan(&count)
	if err != nil {
		return err
	}
	if count > 0 {
		return model.ErrDuplicateFinalSubmission
	}

	for _, sub := range subs {
		selected, err := encodeOptions(sub.SelectedOptions)
		if err != nil {
			return err
		}
		_, err = tx.Exec(
			`INSERT INTO submissions (user_id, problem_id, contest_id, selected_options, verdict, score, is_final, submitted_at)
			 VALUES (?, ?, ?, ?, ?, ?, 1, ?)
			 ON CONFLICT(user_id, problem_id, contest_id) DO UPDATE SET
				selected_options = excluded.selected_options,
				verdict = excluded.verdict,
				score = excluded.score,
				is_final = 1,
				submitted_at = excluded.submitted_at`,
			userID, sub.ProblemID, contestID, selected, sub.Verdict, sub.Score, sub.SubmittedAt,
		)
		if err != nil {
			return fmt.Errorf("finalize problem %d: %w", sub.ProblemID, err)
		}
	}
	return tx.Commit()
}

// InsertPractice records a practice submission, final on creation.
func (s *Store) InsertPractice(sub model.Submission) (int64, error) {
	selected, err := encodeOptions(sub.SelectedOptions)
	if err != nil {
		return 0, err
	}
	res, err := s.db.Exec(
		`INSERT INTO submissions (user_id, problem_id, contest_id, selected_options, verdict, score, is_final, submitted_at)
		 VALUES (?, ?, NULL, ?, ?, ?, 1, ?)`,
		sub.UserID, sub.ProblemID, selected, sub.Verdict, sub.Score, sub.SubmittedAt,
	)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

// ListContestSubmissions returns all submissions for a contest, oldest
// first. When finalOnly is set, drafts are excluded.
func (s *Store) ListContestSubmissions(contestID int64, finalOnly bool) ([]model.Submission, error) {
	query := `SELECT id, user_id, problem_id, contest_id, selected_options, verdict, score, is_final, submitted_at
		 FROM submissions WHERE contest_id = ?`
	if finalOnly {
		query += ` AND is_final = 1`
	}
	query += ` ORDER BY submitted_at, id`
	rows, err := s.db.Query(query, contestID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var subs []model.Submission
	for rows.Next() {
		var sub model.Submission
		var selected string
		if err := rows.Scan(&sub.ID, &sub.UserID, &sub.ProblemID, &sub.ContestID,
			&selected, &sub.Verdict, &sub.Score, &sub.IsFinal, &sub.SubmittedAt); err != nil {
			return nil, err
		}
		if err := decodeOptions(selected, &sub.SelectedOptions); err != nil {
			return nil, fmt.Errorf("decode options for submission %d: %w", sub.ID, err)
		}
		subs = append(subs, sub)
	}
	return subs, rows.Err()
}

// PracticedProblemIDs returns the IDs of problems the user has already faced
// in practice mode.
func (s *Store) PracticedProblemIDs(userID int64) ([]int64, error) {
	rows, err := s.db.Query(
		`SELECT DISTINCT problem_id FROM submissions WHERE user_id = ? AND contest_id IS NULL ORDER BY problem_id`,
		userID,
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
