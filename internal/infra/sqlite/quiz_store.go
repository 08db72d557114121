// Package sqlite stores quizzes in a local SQLite file, for hosts without a database server.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"live-quiz-service/internal/domain"
)

const schema = `
CREATE TABLE IF NOT EXISTS quizzes (
	id         TEXT PRIMARY KEY,
	title      TEXT NOT NULL DEFAULT '',
	data       TEXT NOT NULL,
	updated_at INTEGER NOT NULL
);
`

type QuizStore struct {
	db *sql.DB
}

// Open opens (creating if needed) the database at path and ensures the schema exists.
func Open(ctx context.Context, path string) (*QuizStore, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// a single connection keeps ":memory:" databases shared across calls
	db.SetMaxOpenConns(1)
	if _, err := db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}
	return &QuizStore{db: db}, nil
}

func (s *QuizStore) Close() error {
	return s.db.Close()
}

// LoadQuiz returns the quiz stored under quizID, or the most recently saved one when
// quizID is empty.
func (s *QuizStore) LoadQuiz(ctx context.Context, quizID string) (domain.Quiz, error) {
	var row *sql.Row
	if quizID == "" {
		// INSERT OR REPLACE assigns a fresh rowid, so it orders saves within the same second
		row = s.db.QueryRowContext(ctx, `SELECT id, data FROM quizzes ORDER BY updated_at DESC, rowid DESC LIMIT 1`)
	} else {
		row = s.db.QueryRowContext(ctx, `SELECT id, data FROM quizzes WHERE id = ?`, quizID)
	}

	var id, raw string
	err := row.Scan(&id, &raw)
	if errors.Is(err, sql.ErrNoRows) {
		if quizID == "" {
			return domain.Quiz{}, fmt.Errorf("%w: no quizzes stored", domain.ErrQuizNotFound)
		}
		return domain.Quiz{}, fmt.Errorf("%w: %s", domain.ErrQuizNotFound, quizID)
	}
	if err != nil {
		return domain.Quiz{}, fmt.Errorf("load quiz: %w", err)
	}
	var quiz domain.Quiz
	if err := json.Unmarshal([]byte(raw), &quiz); err != nil {
		return domain.Quiz{}, fmt.Errorf("unmarshal quiz: %w", err)
	}
	quiz.ID = id
	return quiz, nil
}

func (s *QuizStore) SaveQuiz(ctx context.Context, q domain.Quiz) error {
	data, err := json.Marshal(q)
	if err != nil {
		return fmt.Errorf("marshal quiz: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
	INSERT OR REPLACE INTO quizzes (id, title, data, updated_at)
	VALUES (?, ?, ?, ?);
	`, q.ID, q.Title, string(data), time.Now().Unix())
	if err != nil {
		return fmt.Errorf("save quiz %s: %w", q.ID, err)
	}
	return nil
}
