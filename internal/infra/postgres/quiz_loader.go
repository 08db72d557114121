package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"live-quiz-service/internal/domain"
)

const (
	selectQuizByID = `SELECT id, title, data FROM quizzes WHERE id = $1`
	selectLatest   = `SELECT id, title, data FROM quizzes ORDER BY updated_at DESC, id LIMIT 1`
)

// QuizLoader reads quizzes stored by QuizWriter. An empty quiz id selects the most
// recently stored quiz.
type QuizLoader struct {
	pool *pgxpool.Pool
}

func NewQuizLoader(pool *pgxpool.Pool) *QuizLoader {
	return &QuizLoader{pool: pool}
}

func (l *QuizLoader) LoadQuiz(ctx context.Context, quizID string) (domain.Quiz, error) {
	var row pgx.Row
	if quizID == "" {
		row = l.pool.QueryRow(ctx, selectLatest)
	} else {
		row = l.pool.QueryRow(ctx, selectQuizByID, quizID)
	}

	var (
		id, title string
		raw       []byte
	)
	err := row.Scan(&id, &title, &raw)
	if errors.Is(err, pgx.ErrNoRows) {
		if quizID == "" {
			return domain.Quiz{}, fmt.Errorf("%w: no quizzes stored", domain.ErrQuizNotFound)
		}
		return domain.Quiz{}, fmt.Errorf("%w: %s", domain.ErrQuizNotFound, quizID)
	}
	if err != nil {
		return domain.Quiz{}, fmt.Errorf("load quiz %q: %w", quizID, err)
	}
	return decodeRow(id, title, raw)
}

// decodeRow lets the row's columns win over whatever the JSON document claims.
func decodeRow(id, title string, raw []byte) (domain.Quiz, error) {
	var quiz domain.Quiz
	if err := json.Unmarshal(raw, &quiz); err != nil {
		return domain.Quiz{}, fmt.Errorf("decode quiz %s: %w", id, err)
	}
	quiz.ID = id
	if title != "" {
		quiz.Title = title
	}
	return quiz, nil
}
