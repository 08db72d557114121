package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"live-quiz-service/internal/app"
	"live-quiz-service/internal/config"
	"live-quiz-service/internal/infra/memory"
	pgstore "live-quiz-service/internal/infra/postgres"
	redisstore "live-quiz-service/internal/infra/redis"
	"live-quiz-service/internal/infra/sqlite"
	"live-quiz-service/internal/quiz"
)

// backends holds the stores a host process runs on. close releases them.
type backends struct {
	quizzes app.QuizRepository
	games   app.GameRepository
	redis   *redisstore.GameStore
	close   func()
}

func openBackends(ctx context.Context, cfg config.Config) (*backends, error) {
	var closers []func()
	b := &backends{close: func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}}

	loader, closeLoader, err := quizLoader(ctx, cfg)
	if err != nil {
		return nil, err
	}
	closers = append(closers, closeLoader)

	// generated quizzes are fresh per game unless a ttl is configured explicitly
	fallbackTTL := 10 * time.Minute
	if cfg.Quiz.Source == config.SourceGenerate {
		fallbackTTL = 0
	}
	quizTTL := config.TTLDuration(cfg.Quiz.TTL, fallbackTTL)

	if cfg.Redis.Addr != "" {
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err := client.Ping(ctx).Err(); err != nil {
			b.close()
			return nil, fmt.Errorf("connect redis: %w", err)
		}
		closers = append(closers, func() { _ = client.Close() })

		b.quizzes = redisstore.NewQuizRepository(client, loader, quizTTL)
		b.redis = redisstore.NewGameStore(client, hostname(), config.TTLDuration(cfg.Redis.TTL, 10*time.Minute))
		b.games = b.redis
		log.Info().Str("addr", cfg.Redis.Addr).Msg("using redis for quiz cache and join codes")
	} else {
		b.quizzes = memory.NewQuizRepository(loader, quizTTL)
		b.games = memory.NewGameStore()
	}
	return b, nil
}

// quizLoader builds the configured quiz source.
func quizLoader(ctx context.Context, cfg config.Config) (memory.QuizLoader, func(), error) {
	noop := func() {}
	switch cfg.Quiz.Source {
	case config.SourceStatic, "":
		decks, err := quiz.Builtin()
		if err != nil {
			return nil, nil, err
		}
		return memory.NewStaticQuizLoader(decks), noop, nil
	case config.SourceFile:
		return quiz.NewFileLoader(cfg.Quiz.File), noop, nil
	case config.SourcePostgres:
		if err := runMigrationsWithConfig(ctx, cfg); err != nil {
			return nil, nil, err
		}
		pool, err := pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return nil, nil, fmt.Errorf("connect postgres: %w", err)
		}
		return pgstore.NewQuizLoader(pool), pool.Close, nil
	case config.SourceSQLite:
		store, err := sqlite.Open(ctx, cfg.SQLite.Path)
		if err != nil {
			return nil, nil, err
		}
		return store, func() { _ = store.Close() }, nil
	case config.SourceGenerate:
		gen, err := quiz.NewGenerator(ctx, quiz.GeneratorConfig{
			APIKey:     cfg.Gemini.APIKey,
			Model:      cfg.Gemini.Model,
			Topic:      cfg.Quiz.Topic,
			Difficulty: cfg.Quiz.Difficulty,
		})
		if err != nil {
			return nil, nil, err
		}
		return gen, noop, nil
	default:
		return nil, nil, fmt.Errorf("unknown quiz source %q", cfg.Quiz.Source)
	}
}

// quizID picks the quiz a source serves when none is configured.
func quizID(cfg config.Config) string {
	if cfg.Quiz.ID != "" {
		return cfg.Quiz.ID
	}
	switch cfg.Quiz.Source {
	case config.SourceFile:
		// a quiz file holds a single quiz, whatever its id
		return ""
	case config.SourcePostgres, config.SourceSQLite:
		// the most recently stored quiz
		return ""
	case config.SourceGenerate:
		return "generated"
	default:
		return quiz.DefaultQuizID
	}
}
