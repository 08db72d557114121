package memory

import (
	"context"
	"sort"
	"sync"

	"live-quiz-service/internal/app"
)

// GameStore is an in-memory implementation of app.GameRepository.
type GameStore struct {
	mu    sync.RWMutex
	games map[string]*app.Host
}

func NewGameStore() *GameStore {
	return &GameStore{
		games: make(map[string]*app.Host),
	}
}

func (s *GameStore) Put(_ context.Context, host *app.Host) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.games[host.Code()]; ok {
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

func (s *GameStore) Delete(_ context.Context, code string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.games, code)
}

// List returns the stored hosts ordered by join code.
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
