package memory

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"live-quiz-service/internal/domain"
	"live-quiz-service/internal/quiz"
)

// QuizLoader is a quiz source: the embedded decks, a YAML file, a database or the generator.
type QuizLoader interface {
	LoadQuiz(ctx context.Context, quizID string) (domain.Quiz, error)
}

// QuizRepository serves quizzes for new games and reseeds. Loaded quizzes are validated
// before anyone sees them. Valid ones are kept for ttl plus up to 10% jitter; a zero ttl
// loads fresh content for every game, which is what a generator source wants.
type QuizRepository struct {
	loader QuizLoader
	ttl    time.Duration
	clock  func() time.Time
	fills  singleflight.Group

	mu      sync.RWMutex
	entries map[string]cacheEntry

	rndMu sync.Mutex
	rnd   *rand.Rand
}

type cacheEntry struct {
	quiz    domain.Quiz
	expires time.Time
}

func NewQuizRepository(loader QuizLoader, ttl time.Duration) *QuizRepository {
	return &QuizRepository{
		loader:  loader,
		ttl:     ttl,
		clock:   time.Now,
		entries: make(map[string]cacheEntry),
		rnd:     rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// GetQuiz returns the quiz for quizID. Concurrent misses for the same id share one load.
func (r *QuizRepository) GetQuiz(ctx context.Context, quizID string) (domain.Quiz, error) {
	if q, ok := r.lookup(quizID); ok {
		return q, nil
	}

	v, err, _ := r.fills.Do(quizID, func() (interface{}, error) {
		if q, ok := r.lookup(quizID); ok {
			return q, nil
		}
		q, err := r.loader.LoadQuiz(ctx, quizID)
		if err != nil {
			return domain.Quiz{}, err
		}
		if err := quiz.Validate(q); err != nil {
			return domain.Quiz{}, fmt.Errorf("quiz %q: %w", quizID, err)
		}
		r.store(quizID, q)
		return q, nil
	})
	if err != nil {
		return domain.Quiz{}, err
	}
	return v.(domain.Quiz), nil
}

func (r *QuizRepository) lookup(quizID string) (domain.Quiz, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.entries[quizID]
	if !ok || !e.expires.After(r.clock()) {
		return domain.Quiz{}, false
	}
	return e.quiz, true
}

func (r *QuizRepository) store(quizID string, q domain.Quiz) {
	if r.ttl <= 0 {
		return
	}
	expires := r.clock().Add(r.ttlWithJitter())
	r.mu.Lock()
	r.entries[quizID] = cacheEntry{quiz: q, expires: expires}
	r.mu.Unlock()
}

func (r *QuizRepository) ttlWithJitter() time.Duration {
	r.rndMu.Lock()
	defer r.rndMu.Unlock()
	return r.ttl + time.Duration(r.rnd.Int63n(int64(r.ttl)/10+1))
}

// StaticQuizLoader serves quizzes from a fixed map, such as the embedded decks.
type StaticQuizLoader struct {
	quizzes map[string]domain.Quiz
}

func NewStaticQuizLoader(quizzes map[string]domain.Quiz) *StaticQuizLoader {
	return &StaticQuizLoader{quizzes: quizzes}
}

func (l *StaticQuizLoader) LoadQuiz(_ context.Context, quizID string) (domain.Quiz, error) {
	if q, ok := l.quizzes[quizID]; ok {
		return q, nil
	}
	return domain.Quiz{}, fmt.Errorf("%w: %s", domain.ErrQuizNotFound, quizID)
}
