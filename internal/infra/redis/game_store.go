package redis

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"live-quiz-service/internal/app"
)

// GameStore is a Redis-aware implementation of app.GameRepository.
// Hosts live in a local map since their state never leaves the process; Redis holds a
// liveness key per join code so hosts sharing one Redis never hand out the same code.
type GameStore struct {
	client *redis.Client
	ttl    time.Duration
	owner  string

	mu    sync.RWMutex
	games map[string]*app.Host
}

// NewGameStore marks codes as owned by owner for ttl. Refresh extends live keys.
func NewGameStore(client *redis.Client, owner string, ttl time.Duration) *GameStore {
	return &GameStore{
		client: client,
		ttl:    ttl,
		owner:  owner,
		games:  make(map[string]*app.Host),
	}
}

func (s *GameStore) Put(ctx context.Context, host *app.Host) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.games[host.Code()]; ok {
		return false, nil
	}
	ok, err := s.client.SetNX(ctx, s.key(host.Code()), s.owner, s.ttl).Result()
	if err != nil {
		return false, err
	}
	if !ok {
		return false, nil
	}
	s.games[host.Code()] = host
	return true, nil
}

func (s *GameStore) Get(code string) (*app.Host, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	host, ok := s.games[code]
	return host, ok
}

func (s *GameStore) Delete(ctx context.Context, code string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.games[code]; !ok {
		return
	}
	delete(s.games, code)
	// best-effort release of the code
	if err := s.client.Del(ctx, s.key(code)).Err(); err != nil {
		log.Warn().Err(err).Str("game", code).Msg("release join code")
	}
}

func (s *GameStore) List() []*app.Host {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*app.Host, 0, len(s.games))
	for _, host := range s.games {
		out = append(out, host)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code() < out[j].Code() })
	return out
}

// Refresh extends the liveness keys of every local game.
func (s *GameStore) Refresh(ctx context.Context) error {
	if s.ttl <= 0 {
		return nil
	}
	s.mu.RLock()
	codes := make([]string, 0, len(s.games))
	for code := range s.games {
		codes = append(codes, code)
	}
	s.mu.RUnlock()

	pipe := s.client.Pipeline()
	for _, code := range codes {
		pipe.Expire(ctx, s.key(code), s.ttl)
	}
	_, err := pipe.Exec(ctx)
	return err
}

// RunRefresher calls Refresh at a third of the ttl until ctx is done.
func (s *GameStore) RunRefresher(ctx context.Context) {
	if s.ttl <= 0 {
		return
	}
	ticker := time.NewTicker(s.ttl / 3)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := s.Refresh(ctx); err != nil {
				log.Warn().Err(err).Msg("refresh join codes")
			}
		}
	}
}

func (s *GameStore) key(code string) string {
	return "quiz:game:" + code
}
