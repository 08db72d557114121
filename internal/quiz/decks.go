package quiz

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"os"
	"path"

	"gopkg.in/yaml.v3"

	"live-quiz-service/internal/domain"
)

// DefaultQuizID is the bundled deck used when no quiz is configured.
const DefaultQuizID = "superagency"

//go:embed decks/*.yaml
var decks embed.FS

// Builtin returns the decks bundled with the binary, keyed by quiz id.
func Builtin() (map[string]domain.Quiz, error) {
	entries, err := decks.ReadDir("decks")
	if err != nil {
		return nil, err
	}
	out := make(map[string]domain.Quiz, len(entries))
	for _, e := range entries {
		data, err := decks.ReadFile(path.Join("decks", e.Name()))
		if err != nil {
			return nil, err
		}
		q, err := Parse(data)
		if err != nil {
			return nil, fmt.Errorf("deck %s: %w", e.Name(), err)
		}
		out[q.ID] = q
	}
	return out, nil
}

// Parse decodes and validates a YAML quiz document.
func Parse(data []byte) (domain.Quiz, error) {
	var q domain.Quiz
	if err := yaml.Unmarshal(data, &q); err != nil {
		return domain.Quiz{}, fmt.Errorf("parse quiz: %w", err)
	}
	return q, Validate(q)
}

// Validate checks the structural rules a playable quiz must satisfy.
func Validate(q domain.Quiz) error {
	if len(q.Questions) == 0 {
		return domain.ErrNoQuestions
	}
	seen := make(map[string]struct{}, len(q.Questions))
	for i, question := range q.Questions {
		if question.ID == "" {
			return fmt.Errorf("question %d: missing id", i)
		}
		if _, dup := seen[question.ID]; dup {
			return fmt.Errorf("question %s: duplicate id", question.ID)
		}
		seen[question.ID] = struct{}{}
		if len(question.Options) < 2 {
			return fmt.Errorf("question %s: needs at least 2 options", question.ID)
		}
		for _, opt := range question.Options {
			if opt.ID == "" {
				return fmt.Errorf("question %s: option without id", question.ID)
			}
		}
	}
	return nil
}

// FileLoader reads a single YAML quiz from disk on every load.
type FileLoader struct {
	path string
}

func NewFileLoader(path string) *FileLoader {
	return &FileLoader{path: path}
}

func (l *FileLoader) LoadQuiz(_ context.Context, quizID string) (domain.Quiz, error) {
	data, err := os.ReadFile(l.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return domain.Quiz{}, fmt.Errorf("%w: %s", domain.ErrQuizNotFound, l.path)
		}
		return domain.Quiz{}, fmt.Errorf("read quiz file: %w", err)
	}
	q, err := Parse(data)
	if err != nil {
		return domain.Quiz{}, err
	}
	if q.ID == "" {
		q.ID = quizID
	}
	if quizID != "" && q.ID != quizID {
		return domain.Quiz{}, fmt.Errorf("%w: %s has %q, want %q", domain.ErrQuizNotFound, l.path, q.ID, quizID)
	}
	return q, nil
}
