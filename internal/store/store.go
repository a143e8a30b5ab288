// Package store persists grading runs to sqlite so consolidated
// reports can be regenerated after the fact.
package store

import (
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/gradescan/gradescan/internal/model"
)

// Store wraps the results database.
type Store struct {
	db *sql.DB
}

// New opens (and migrates) the database at the given path. Use
// ":memory:" for tests.
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
	CREATE TABLE IF NOT EXISTS runs (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		key_file TEXT NOT NULL,
		total_possible REAL NOT NULL DEFAULT 0,
		created_at DATETIME NOT NULL
	);

	CREATE TABLE IF NOT EXISTS sheets (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id INTEGER NOT NULL,
		student_id TEXT NOT NULL,
		total_score REAL NOT NULL DEFAULT 0,
		total_possible REAL NOT NULL DEFAULT 0,
		percentage REAL NOT NULL DEFAULT 0,
		UNIQUE (run_id, student_id),
		FOREIGN KEY (run_id) REFERENCES runs(id)
	);

	CREATE TABLE IF NOT EXISTS question_results (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		sheet_id INTEGER NOT NULL,
		question TEXT NOT NULL,
		sub_letter TEXT NOT NULL DEFAULT '',
		score REAL NOT NULL DEFAULT 0,
		max_score REAL NOT NULL DEFAULT 0,
		feedback TEXT NOT NULL DEFAULT '',
		answer_text TEXT NOT NULL DEFAULT '',
		FOREIGN KEY (sheet_id) REFERENCES sheets(id)
	);
	`
	_, err := s.db.Exec(schema)
	return err
}

// CreateRun records one grading run against one answer key.
func (s *Store) CreateRun(keyFile string, totalPossible float64) (int64, error) {
	res, err := s.db.Exec(
		`INSERT INTO runs (key_file, total_possible, created_at) VALUES (?, ?, ?)`,
		keyFile, totalPossible, time.Now().UTC(),
	)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

// LatestRunID returns the most recent run, or 0 when none exist.
func (s *Store) LatestRunID() (int64, error) {
	var id int64
	err := s.db.QueryRow(`SELECT id FROM runs ORDER BY id DESC LIMIT 1`).Scan(&id)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	return id, err
}

// SaveEvaluation persists one student's evaluation under a run,
// replacing any previous result for the same student.
func (s *Store) SaveEvaluation(runID int64, ev *model.Evaluation) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	// Replace an earlier grading of the same sheet.
	var oldSheet int64
	err = tx.QueryRow(`SELECT id FROM sheets WHERE run_id = ? AND student_id = ?`, runID, ev.StudentID).Scan(&oldSheet)
	switch err {
	case nil:
		if _, err := tx.Exec(`DELETE FROM question_results WHERE sheet_id = ?`, oldSheet); err != nil {
			return err
		}
		if _, err := tx.Exec(`DELETE FROM sheets WHERE id = ?`, oldSheet); err != nil {
			return err
		}
	case sql.ErrNoRows:
	default:
		return err
	}

	res, err := tx.Exec(
		`INSERT INTO sheets (run_id, student_id, total_score, total_possible, percentage)
		 VALUES (?, ?, ?, ?, ?)`,
		runID, ev.StudentID, ev.Summary.TotalScore, ev.Summary.TotalPossible, ev.Summary.Percentage,
	)
	if err != nil {
		return err
	}
	sheetID, err := res.LastInsertId()
	if err != nil {
		return err
	}

	insert := `INSERT INTO question_results (sheet_id, question, sub_letter, score, max_score, feedback, answer_text)
	           VALUES (?, ?, ?, ?, ?, ?, ?)`
	for qNum, q := range ev.Questions {
		if _, err := tx.Exec(insert, sheetID, qNum, "", q.Score, q.MaxScore, q.Feedback, q.AnswerText); err != nil {
			return err
		}
		for letter, sr := range q.Subs {
			if _, err := tx.Exec(insert, sheetID, qNum, letter, sr.Score, sr.MaxScore, sr.Feedback, ""); err != nil {
				return err
			}
		}
	}

	return tx.Commit()
}
