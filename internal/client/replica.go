package client

import (
	"sync"

	"live-quiz-service/internal/domain"
	"live-quiz-service/internal/protocol"
)

// Replica is a player's read-only copy of the host's game state.
// It is only ever replaced wholesale by frames from the host.
type Replica struct {
	mu        sync.RWMutex
	state     domain.GameState
	version   uint64
	seen      bool
	connected bool

	submitted      bool
	submittedIndex int
}

func NewReplica() *Replica {
	return &Replica{state: domain.NewGameState("", nil)}
}

// Apply handles one frame from the host and reports whether the visible state changed.
// Stale snapshots and frames a player has no use for are ignored.
func (r *Replica) Apply(msg protocol.Message) bool {
	switch msg.Type {
	case protocol.KindSyncState:
		payload, err := msg.Sync()
		if err != nil {
			return false
		}
		r.mu.Lock()
		defer r.mu.Unlock()
		if r.seen && payload.Version < r.version {
			return false
		}
		r.state = payload.GameState
		r.version = payload.Version
		r.seen = true
		if r.state.Status != domain.StatusQuestionActive || r.state.CurrentQuestionIndex != r.submittedIndex {
			r.submitted = false
		}
		return true
	case protocol.KindAdminReset:
		r.mu.Lock()
		defer r.mu.Unlock()
		r.state = domain.NewGameState("", nil)
		r.version = 0
		r.seen = false
		r.submitted = false
		return true
	default:
		return false
	}
}

// State returns a copy of the current replica.
func (r *Replica) State() domain.GameState {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.state.Clone()
}

func (r *Replica) Version() uint64 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.version
}

func (r *Replica) Connected() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.connected
}

func (r *Replica) SetConnected(v bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.connected = v
}

// HasSubmitted is the optimistic "answer sent" flag for the active question.
// It clears as soon as a different question becomes active.
func (r *Replica) HasSubmitted() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.submitted
}

func (r *Replica) MarkSubmitted() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.submitted = true
	r.submittedIndex = r.state.CurrentQuestionIndex
}

// Player looks up a player entry in the replica.
func (r *Replica) Player(id string) (domain.Player, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.state.Players[id]
	if !ok || p == nil {
		return domain.Player{}, false
	}
	return *p, true
}
