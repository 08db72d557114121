package cli

import (
	"context"
	"fmt"
	"os"
	"sort"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"live-quiz-service/internal/config"
	"live-quiz-service/internal/domain"
	pgstore "live-quiz-service/internal/infra/postgres"
	"live-quiz-service/internal/infra/sqlite"
	"live-quiz-service/internal/quiz"
)

type quizWriter interface {
	SaveQuiz(ctx context.Context, q domain.Quiz) error
}

// NewSeedCmd copies quizzes (bundled decks or YAML files) into a database source.
func NewSeedCmd(root *rootOptions) *cobra.Command {
	var target string
	cmd := &cobra.Command{
		Use:   "seed [quiz.yaml...]",
		Short: "Store quizzes in postgres or sqlite (bundled decks when no files are given)",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(root)
			if err != nil {
				return err
			}
			quizzes, err := quizzesToSeed(args)
			if err != nil {
				return err
			}
			return runSeed(cmd.Context(), cfg, target, quizzes)
		},
	}
	cmd.Flags().StringVar(&target, "target", config.SourcePostgres, "where to store quizzes: postgres or sqlite")
	bindEnv(cmd.Flags())
	return cmd
}

func quizzesToSeed(files []string) ([]domain.Quiz, error) {
	if len(files) == 0 {
		decks, err := quiz.Builtin()
		if err != nil {
			return nil, err
		}
		ids := make([]string, 0, len(decks))
		for id := range decks {
			ids = append(ids, id)
		}
		sort.Strings(ids)
		out := make([]domain.Quiz, 0, len(ids))
		for _, id := range ids {
			out = append(out, decks[id])
		}
		return out, nil
	}

	out := make([]domain.Quiz, 0, len(files))
	for _, f := range files {
		data, err := os.ReadFile(f)
		if err != nil {
			return nil, err
		}
		q, err := quiz.Parse(data)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", f, err)
		}
		if q.ID == "" {
			return nil, fmt.Errorf("%s: quiz needs an id to be stored", f)
		}
		out = append(out, q)
	}
	return out, nil
}

func runSeed(ctx context.Context, cfg config.Config, target string, quizzes []domain.Quiz) error {
	switch target {
	case config.SourcePostgres:
		if err := runMigrationsWithConfig(ctx, cfg); err != nil {
			return err
		}
		db := pgstore.OpenDB(cfg.Postgres.URL)
		defer db.Close()
		writer := pgstore.NewQuizWriter(db)
		if err := saveAll(ctx, writer, quizzes); err != nil {
			return err
		}
		stored, err := writer.ListQuizzes(ctx)
		if err != nil {
			return err
		}
		log.Info().Int("quizzes", len(stored)).Msg("postgres quiz source ready")
		return nil
	case config.SourceSQLite:
		if cfg.SQLite.Path == "" {
			return fmt.Errorf("sqlite path not configured")
		}
		store, err := sqlite.Open(ctx, cfg.SQLite.Path)
		if err != nil {
			return err
		}
		defer store.Close()
		return saveAll(ctx, store, quizzes)
	default:
		return fmt.Errorf("unknown seed target %q", target)
	}
}

func saveAll(ctx context.Context, w quizWriter, quizzes []domain.Quiz) error {
	for _, q := range quizzes {
		if err := w.SaveQuiz(ctx, q); err != nil {
			return err
		}
		log.Info().Str("quiz", q.ID).Int("questions", len(q.Questions)).Msg("quiz stored")
	}
	return nil
}
