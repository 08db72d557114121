package quiz

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"google.golang.org/genai"

	"live-quiz-service/internal/domain"
)

const (
	defaultModel         = "gemini-2.5-flash"
	defaultQuestionCount = 5
	defaultOptionCount   = 4
)

// GeneratorConfig configures quiz generation.
type GeneratorConfig struct {
	APIKey     string
	Model      string
	Topic      string
	Difficulty string
}

// jsonGenerator asks a model for a JSON document matching schema.
type jsonGenerator interface {
	GenerateJSON(ctx context.Context, prompt string, schema *genai.Schema) (string, error)
}

// Generator produces a fresh quiz on every load by prompting Gemini.
type Generator struct {
	model      jsonGenerator
	topic      string
	difficulty string
}

// NewGenerator fails immediately when no API key is configured.
func NewGenerator(ctx context.Context, cfg GeneratorConfig) (*Generator, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("%w: gemini api key", domain.ErrMissingCredential)
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("gemini client: %w", err)
	}
	model := cfg.Model
	if model == "" {
		model = defaultModel
	}
	return newGenerator(&geminiModel{client: client, model: model}, cfg.Topic, cfg.Difficulty), nil
}

func newGenerator(model jsonGenerator, topic, difficulty string) *Generator {
	if difficulty == "" {
		difficulty = "medium"
	}
	return &Generator{model: model, topic: topic, difficulty: difficulty}
}

type generatedQuestion struct {
	QuestionText string `json:"questionText"`
	Options      []struct {
		Text      string `json:"text"`
		IsCorrect bool   `json:"isCorrect"`
	} `json:"options"`
	Explanation string `json:"explanation"`
}

// LoadQuiz generates a new quiz. The quiz id is taken from the caller.
func (g *Generator) LoadQuiz(ctx context.Context, quizID string) (domain.Quiz, error) {
	raw, err := g.model.GenerateJSON(ctx, g.prompt(), questionSchema())
	if err != nil {
		return domain.Quiz{}, fmt.Errorf("generate quiz: %w", err)
	}

	var generated []generatedQuestion
	if err := json.Unmarshal([]byte(raw), &generated); err != nil {
		return domain.Quiz{}, fmt.Errorf("decode generated quiz: %w", err)
	}

	q := domain.Quiz{ID: quizID, Title: g.topic}
	for _, gq := range generated {
		question := domain.Question{
			ID:          uuid.NewString(),
			Text:        gq.QuestionText,
			Explanation: gq.Explanation,
		}
		for _, opt := range gq.Options {
			question.Options = append(question.Options, domain.QuizOption{
				ID:        uuid.NewString(),
				Text:      opt.Text,
				IsCorrect: opt.IsCorrect,
			})
		}
		q.Questions = append(q.Questions, question)
	}
	if err := Validate(q); err != nil {
		return domain.Quiz{}, fmt.Errorf("generated quiz: %w", err)
	}
	return q, nil
}

func (g *Generator) prompt() string {
	return fmt.Sprintf(`Generate a fun and engaging multiple-choice quiz about %q.
Difficulty level: %s.
Create exactly %d questions.
Each question must have %d options.
Make sure one option is clearly correct.
Include a short, interesting explanation for the answer.`,
		g.topic, g.difficulty, defaultQuestionCount, defaultOptionCount)
}

func questionSchema() *genai.Schema {
	return &genai.Schema{
		Type: genai.TypeArray,
		Items: &genai.Schema{
			Type: genai.TypeObject,
			Properties: map[string]*genai.Schema{
				"questionText": {Type: genai.TypeString},
				"options": {
					Type: genai.TypeArray,
					Items: &genai.Schema{
						Type: genai.TypeObject,
						Properties: map[string]*genai.Schema{
							"text":      {Type: genai.TypeString},
							"isCorrect": {Type: genai.TypeBoolean},
						},
						Required: []string{"text", "isCorrect"},
					},
				},
				"explanation": {Type: genai.TypeString},
			},
			Required: []string{"questionText", "options", "explanation"},
		},
	}
}

type geminiModel struct {
	client *genai.Client
	model  string
}

func (m *geminiModel) GenerateJSON(ctx context.Context, prompt string, schema *genai.Schema) (string, error) {
	resp, err := m.client.Models.GenerateContent(ctx, m.model, genai.Text(prompt), &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
		ResponseSchema:   schema,
	})
	if err != nil {
		return "", err
	}
	return resp.Text(), nil
}
