package store

import (
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/pavelanni/contestor/internal/model"

	_ "modernc.org/sqlite"
)

type Store struct {
	db *sql.DB
}

func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}
	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS problems (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		subject TEXT NOT NULL,
		tags TEXT NOT NULL DEFAULT '',
		text TEXT NOT NULL,
		options TEXT NOT NULL,
		correct_options TEXT NOT NULL,
		score INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS contests (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT NOT NULL,
		start_time DATETIME NOT NULL,
		end_time DATETIME NOT NULL,
		is_published INTEGER NOT NULL DEFAULT 0,
		ratings_updated INTEGER NOT NULL DEFAULT 0,
		created_at DATETIME NOT NULL
	);

	CREATE TABLE IF NOT EXISTS contest_problems (
		contest_id INTEGER NOT NULL,
		problem_id INTEGER NOT NULL,
		position INTEGER NOT NULL,
		PRIMARY KEY (contest_id, problem_id),
		FOREIGN KEY (contest_id) REFERENCES contests(id),
		FOREIGN KEY (problem_id) REFERENCES problems(id)
	);

	CREATE TABLE IF NOT EXISTS contest_participants (
		contest_id INTEGER NOT NULL,
		user_id INTEGER NOT NULL,
		joined_at DATETIME NOT NULL,
		PRIMARY KEY (contest_id, user_id),
		FOREIGN KEY (contest_id) REFERENCES contests(id),
		FOREIGN KEY (user_id) REFERENCES users(id)
	);

	CREATE TABLE IF NOT EXISTS users (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		username TEXT NOT NULL UNIQUE,
		display_name TEXT NOT NULL,
		password_hash TEXT NOT NULL,
		role TEXT NOT NULL DEFAULT 'student',
		rating INTEGER NOT NULL DEFAULT 0,
		title TEXT NOT NULL DEFAULT 'newbie',
		active INTEGER NOT NULL DEFAULT 1,
		created_at DATETIME NOT NULL
	);

	CREATE TABLE IF NOT EXISTS submissions (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		user_id INTEGER NOT NULL,
		problem_id INTEGER NOT NULL,
		contest_id INTEGER,
		selected_options TEXT NOT NULL,
		verdict TEXT NOT NULL,
		score INTEGER NOT NULL,
		is_final INTEGER NOT NULL DEFAULT 0,
		submitted_at DATETIME NOT NULL,
		UNIQUE (user_id, problem_id, contest_id),
		FOREIGN KEY (user_id) REFERENCES users(id),
		FOREIGN KEY (problem_id) REFERENCES problems(id)
	);

	CREATE TABLE IF NOT EXISTS rating_history (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		user_id INTEGER NOT NULL,
		contest_id INTEGER NOT NULL,
		old_rating INTEGER NOT NULL,
		new_rating INTEGER NOT NULL,
		created_at DATETIME NOT NULL,
		FOREIGN KEY (user_id) REFERENCES users(id),
		FOREIGN KEY (contest_id) REFERENCES contests(id)
	);

	CREATE TABLE IF NOT EXISTS auth_sessions (
		id TEXT PRIMARY KEY,
		user_id INTEGER NOT NULL,
		created_at DATETIME NOT NULL,
		expires_at DATETIME NOT NULL,
		FOREIGN KEY (user_id) REFERENCES users(id)
	);

	CREATE TABLE IF NOT EXISTS metadata (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);
	`
	_, err := s.db.Exec(schema)
	return err
}

// encodeOptions serializes an option list for storage.
func encodeOptions(opts []string) (string, error) {
	data, err := json.Marshal(opts)
	if err != nil {
		return "", fmt.Errorf("encode options: %w", err)
	}
	return string(data), nil
}

// decodeOptions deserializes a stored option list.
func decodeOptions(data string, opts *[]string) error {
	if data == "" {
		return nil
	}
	return json.Unmarshal([]byte(data), opts)
}

// InsertProblem stores a problem.
func (s *Store) InsertProblem(p model.Problem) (int64, error) {
	options, err := encodeOptions(p.Options)
	if err != nil {
		return 0, err
	}
	correct, err := encodeOptions(p.CorrectOptions)
	if err != nil {
		return 0, err
	}
	res, err := s.db.Exec(
		`INSERT INTO problems (subject, tags, text, options, correct_options, score)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		p.Subject, p.Tags, p.Text, options, correct, p.Score,
	)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

func scanProblem(row interface{ Scan(...any) error }) (model.Problem, error) {
	var p model.Problem
	var options, correct string
	err := row.Scan(&p.ID, &p.Subject, &p.Tags, &p.Text, &options, &correct, &p.Score)
	if err != nil {
		return p, err
	}
	if err := decodeOptions(options, &p.Options); err != nil {
		return p, fmt.Errorf("decode options for problem %d: %w", p.ID, err)
	}
	if err := decodeOptions(correct, &p.CorrectOptions); err != nil {
		return p, fmt.Errorf("decode correct options for problem %d: %w", p.ID, err)
	}
	return p, nil
}

// GetProblem returns a problem by ID.
func (s *Store) GetProblem(id int64) (model.Problem, error) {
	p, err := scanProblem(s.db.QueryRow(
		`SELECT id, subject, tags, text, options, correct_options, score FROM problems WHERE id = ?`, id,
	))
	if err == sql.ErrNoRows {
		return p, model.ErrProblemNotFound
	}
	return p, err
}

// ListProblems returns all problems, optionally filtered by subject.
func (s *Store) ListProblems(subject string) ([]model.Problem, error) {
	query := `SELECT id, subject, tags, text, options, correct_options, score FROM problems`
	var args []any
	if subject != "" {
		query += ` WHERE subject = ?`
		args = append(args, subject)
	}
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var problems []model.Problem
	for rows.Next() {
		p, err := scanProblem(rows)
		if err != nil {
			return nil, err
		}
		problems = append(problems, p)
	}
	return problems, rows.Err()
}

// RandomUnsolvedProblem draws a random problem the user has not yet faced in
// practice. An empty subject means any subject. Returns ErrProblemNotFound
// when the user has exhausted the pool.
func (s *Store) RandomUnsolvedProblem(userID int64, subject string) (model.Problem, error) {
	query := `SELECT id, subject, tags, text, options, correct_options, score FROM problems
		 WHERE id NOT IN (
			SELECT problem_id FROM submissions WHERE user_id = ? AND contest_id IS NULL
		 )`
	args := []any{userID}
	if subject != "" {
		query += ` AND subject = ?`
		args = append(args, subject)
	}
	query += ` ORDER BY RANDOM() LIMIT 1`
	p, err := scanProblem(s.db.QueryRow(query, args...))
	if err == sql.ErrNoRows {
		return p, model.ErrProblemNotFound
	}
	return p, err
}

// ProblemCount returns the number of problems in the database.
func (s *Store) ProblemCount() (int, error) {
	var count int
	err := s.db.QueryRow(`SELECT COUNT(*) FROM problems`).Scan(&count)
	return count, err
}
