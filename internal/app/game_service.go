package app

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"live-quiz-service/internal/domain"
	"live-quiz-service/internal/quiz"
)

const (
	joinCodeLength  = 8
	maxCodeAttempts = 5
	minReapInterval = time.Second
)

// GameRepository keeps track of running hosts by join code.
type GameRepository interface {
	// Put stores host under its code. It reports false when the code is already taken.
	Put(ctx context.Context, host *Host) (bool, error)
	Get(code string) (*Host, bool)
	Delete(ctx context.Context, code string)
	List() []*Host
}

// QuizRepository loads quiz content (from cache/backing store).
type QuizRepository interface {
	GetQuiz(ctx context.Context, quizID string) (domain.Quiz, error)
}

// GameServiceOptions configures how new games are seeded and when idle ones are dropped.
type GameServiceOptions struct {
	QuizID        string
	Shuffle       bool
	RedactAnswers bool
	// IdleTimeout closes games with no peers that have seen no activity for this long.
	// Zero disables reaping.
	IdleTimeout time.Duration
}

// GameService creates, finds and retires games.
type GameService struct {
	games   GameRepository
	quizzes QuizRepository
	opts    GameServiceOptions
	now     func() time.Time
}

func NewGameService(games GameRepository, quizzes QuizRepository, opts GameServiceOptions) *GameService {
	return &GameService{games: games, quizzes: quizzes, opts: opts, now: time.Now}
}

// Create starts a new game. An empty code asks for a generated one.
func (s *GameService) Create(ctx context.Context, code string) (*Host, error) {
	seed := s.seeder()
	questions, err := seed(ctx)
	if err != nil {
		return nil, err
	}

	attempts := maxCodeAttempts
	if code != "" {
		attempts = 1
	}
	for i := 0; i < attempts; i++ {
		c := code
		if c == "" {
			c = newJoinCode()
		}
		host := NewHost(c, questions, HostOptions{
			RedactAnswers: s.opts.RedactAnswers,
			Seeder:        seed,
			Now:           s.now,
		})
		ok, err := s.games.Put(ctx, host)
		if err != nil {
			return nil, fmt.Errorf("store game: %w", err)
		}
		if !ok {
			continue
		}
		go host.Run(context.Background())
		log.Info().Str("game", c).Str("quiz", s.opts.QuizID).Int("questions", len(questions)).Msg("game created")
		return host, nil
	}
	if code != "" {
		return nil, fmt.Errorf("%w: %s", domain.ErrCodeTaken, code)
	}
	return nil, errors.New("could not allocate a join code")
}

// Get returns the running game for code.
func (s *GameService) Get(code string) (*Host, error) {
	host, ok := s.games.Get(code)
	if !ok {
		return nil, domain.ErrGameNotFound
	}
	select {
	case <-host.Done():
		return nil, domain.ErrGameNotFound
	default:
		return host, nil
	}
}

// Close stops one game and forgets it.
func (s *GameService) Close(ctx context.Context, code string) error {
	host, ok := s.games.Get(code)
	if !ok {
		return domain.ErrGameNotFound
	}
	host.Close()
	s.games.Delete(ctx, code)
	log.Info().Str("game", code).Msg("game closed")
	return nil
}

// Shutdown stops every game.
func (s *GameService) Shutdown(ctx context.Context) {
	for _, host := range s.games.List() {
		host.Close()
		s.games.Delete(ctx, host.Code())
	}
}

// Reap closes games that have stopped or have been idle with no peers. It returns how many were closed.
func (s *GameService) Reap(ctx context.Context, now time.Time) int {
	closed := 0
	for _, host := range s.games.List() {
		if !s.expired(ctx, host, now) {
			continue
		}
		host.Close()
		s.games.Delete(ctx, host.Code())
		log.Info().Str("game", host.Code()).Msg("idle game reaped")
		closed++
	}
	return closed
}

func (s *GameService) expired(ctx context.Context, host *Host, now time.Time) bool {
	select {
	case <-host.Done():
		return true
	default:
	}
	if s.opts.IdleTimeout <= 0 || now.Sub(host.LastActive()) < s.opts.IdleTimeout {
		return false
	}
	peers, err := host.PeerCount(ctx)
	if err != nil {
		return errors.Is(err, domain.ErrHostClosed)
	}
	return peers == 0
}

// RunReaper calls Reap periodically until ctx is done.
func (s *GameService) RunReaper(ctx context.Context) {
	if s.opts.IdleTimeout <= 0 {
		<-ctx.Done()
		return
	}
	interval := s.opts.IdleTimeout / 2
	if interval < minReapInterval {
		interval = minReapInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Reap(ctx, s.now())
		}
	}
}

// seeder loads the configured quiz and applies its ordering rules, once per call.
func (s *GameService) seeder() Seeder {
	return func(ctx context.Context) ([]domain.Question, error) {
		q, err := s.quizzes.GetQuiz(ctx, s.opts.QuizID)
		if err != nil {
			return nil, fmt.Errorf("load quiz: %w", err)
		}
		if len(q.Questions) == 0 {
			return nil, domain.ErrNoQuestions
		}
		if !s.opts.Shuffle {
			return append([]domain.Question(nil), q.Questions...), nil
		}
		rnd := rand.New(rand.NewSource(time.Now().UnixNano()))
		return quiz.Shuffle(q.Questions, q.Ordering, rnd), nil
	}
}

func newJoinCode() string {
	raw := strings.ReplaceAll(uuid.NewString(), "-", "")
	return strings.ToUpper(raw[:joinCodeLength])
}
