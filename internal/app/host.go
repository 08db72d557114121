package app

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"live-quiz-service/internal/domain"
	"live-quiz-service/internal/game"
	"live-quiz-service/internal/protocol"
)

// Peer is a player connection as seen by the host.
type Peer interface {
	ID() string
	// Deliver queues an encoded frame for the peer. It must not block.
	Deliver(frame []byte)
	Close()
}

// Seeder produces the questions for a fresh lobby.
type Seeder func(ctx context.Context) ([]domain.Question, error)

// HostOptions tunes a Host. The zero value is usable.
type HostOptions struct {
	// RedactAnswers strips isCorrect from questions that have not been revealed yet
	// before state leaves the host.
	RedactAnswers bool
	// Seeder refills the lobby after a reset. Without one the initial questions are reused.
	Seeder Seeder
	// Now is the clock used for idle tracking.
	Now func() time.Time
}

// Host owns the canonical GameState of one game and the set of connected peers.
// All reads and writes of that state happen on the goroutine running Run; every other
// method hands it a command and waits for the command to finish.
type Host struct {
	code string
	opts HostOptions
	log  zerolog.Logger

	// Owned by the Run goroutine.
	state     domain.GameState
	initial   []domain.Question
	version   uint64
	peers     map[string]Peer
	commands  chan func()
	stop      chan struct{}
	done      chan struct{}
	stopOnce  sync.Once
	lastTouch atomic.Int64
}

// NewHost creates a host for a lobby with the given questions. Call Run to start it.
func NewHost(code string, questions []domain.Question, opts HostOptions) *Host {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	h := &Host{
		code:     code,
		opts:     opts,
		log:      log.With().Str("game", code).Logger(),
		state:    domain.NewGameState(code, questions),
		initial:  questions,
		peers:    make(map[string]Peer),
		commands: make(chan func(), 64),
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
	h.touch()
	return h
}

// Code returns the join code players use to reach this host.
func (h *Host) Code() string { return h.code }

// LastActive reports when the host last processed a command.
func (h *Host) LastActive() time.Time {
	return time.Unix(0, h.lastTouch.Load())
}

// Done is closed once the host loop has stopped.
func (h *Host) Done() <-chan struct{} { return h.done }

// Run processes commands until ctx is cancelled or Close is called. Peers are closed on exit.
func (h *Host) Run(ctx context.Context) {
	defer close(h.done)
	defer h.closePeers()

	for {
		select {
		case <-ctx.Done():
			return
		case <-h.stop:
			return
		case cmd := <-h.commands:
			cmd()
			h.touch()
		}
	}
}

// Close stops the host loop.
func (h *Host) Close() {
	h.stopOnce.Do(func() { close(h.stop) })
}

func (h *Host) touch() {
	h.lastTouch.Store(h.opts.Now().UnixNano())
}

// do runs fn on the host goroutine and waits for it to complete.
func (h *Host) do(ctx context.Context, fn func()) error {
	finished := make(chan struct{})
	cmd := func() {
		fn()
		close(finished)
	}

	select {
	case h.commands <- cmd:
	case <-h.done:
		return domain.ErrHostClosed
	case <-ctx.Done():
		return ctx.Err()
	}

	select {
	case <-finished:
		return nil
	case <-h.done:
		select {
		case <-finished:
			return nil
		default:
			return domain.ErrHostClosed
		}
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Snapshot returns a deep copy of the canonical state.
func (h *Host) Snapshot(ctx context.Context) (domain.GameState, error) {
	var out domain.GameState
	err := h.do(ctx, func() { out = h.state.Clone() })
	return out, err
}

// PeerCount returns the number of open player connections.
func (h *Host) PeerCount(ctx context.Context) (int, error) {
	var n int
	err := h.do(ctx, func() { n = len(h.peers) })
	return n, err
}

// Advance moves the game to its next phase and broadcasts the result.
// It reports false when the game could not advance.
func (h *Host) Advance(ctx context.Context) (bool, error) {
	var changed bool
	err := h.do(ctx, func() {
		changed = game.Advance(&h.state)
		if !changed {
			return
		}
		h.log.Info().
			Str("status", string(h.state.Status)).
			Int("question", h.state.CurrentQuestionIndex).
			Msg("advanced")
		h.broadcastState()
	})
	return changed, err
}

// Reset tells every peer to discard its state and starts a fresh lobby under the same
// join code. The reset itself is not followed by a state sync.
func (h *Host) Reset(ctx context.Context) error {
	questions := h.initial
	var seedErr error
	if h.opts.Seeder != nil {
		questions, seedErr = h.opts.Seeder(ctx)
		if seedErr != nil {
			h.log.Error().Err(seedErr).Msg("reseed after reset failed")
			questions = nil
		}
	}

	err := h.do(ctx, func() {
		h.broadcast(protocol.NewAdminReset())
		h.state = domain.NewGameState(h.code, questions)
		h.log.Info().Int("questions", len(questions)).Msg("game reset")
	})
	if err != nil {
		return err
	}
	return seedErr
}

// Connect registers a peer and sends it the current state straight away.
func (h *Host) Connect(ctx context.Context, peer Peer) error {
	return h.do(ctx, func() {
		h.peers[peer.ID()] = peer
		h.log.Debug().Str("peer", peer.ID()).Int("peers", len(h.peers)).Msg("peer connected")
		if frame, ok := h.syncFrame(); ok {
			peer.Deliver(frame)
		}
	})
}

// Disconnect forgets a peer. The player's entry and score stay in the game.
func (h *Host) Disconnect(ctx context.Context, peerID string) error {
	return h.do(ctx, func() {
		if _, ok := h.peers[peerID]; !ok {
			return
		}
		delete(h.peers, peerID)
		h.log.Debug().Str("peer", peerID).Int("peers", len(h.peers)).Msg("peer disconnected")
	})
}

// Ingest applies an event from a remote peer or an in-process caller.
// Frames that are malformed, unknown, or only meaningful to players are ignored.
func (h *Host) Ingest(ctx context.Context, msg protocol.Message) error {
	return h.do(ctx, func() {
		var changed bool
		switch msg.Type {
		case protocol.KindPlayerJoin:
			p, err := msg.Join()
			if err != nil {
				h.log.Debug().Err(err).Msg("dropping join")
				return
			}
			changed = game.Join(&h.state, p.ID, p.Name)
			if changed {
				h.log.Info().Str("player", p.ID).Str("name", p.Name).Msg("player joined")
			}
		case protocol.KindPlayerAnswer:
			p, err := msg.Answer()
			if err != nil {
				h.log.Debug().Err(err).Msg("dropping answer")
				return
			}
			changed = game.Answer(&h.state, p.PlayerID, p.OptionID)
		default:
			h.log.Debug().Str("type", string(msg.Type)).Msg("ignoring message")
		}
		if changed {
			h.broadcastState()
		}
	})
}

// Join registers a simulated player without going over the network.
func (h *Host) Join(ctx context.Context, playerID, name string) error {
	msg, err := protocol.NewPlayerJoin(playerID, name)
	if err != nil {
		return err
	}
	return h.Ingest(ctx, msg)
}

// Answer submits a simulated player's answer without going over the network.
func (h *Host) Answer(ctx context.Context, playerID, optionID string) error {
	msg, err := protocol.NewPlayerAnswer(playerID, optionID)
	if err != nil {
		return err
	}
	return h.Ingest(ctx, msg)
}

func (h *Host) syncFrame() ([]byte, bool) {
	view := h.state
	if h.opts.RedactAnswers {
		view = game.Redact(h.state)
	}
	msg, err := protocol.NewSyncState(view, h.version)
	if err != nil {
		h.log.Error().Err(err).Msg("encode state")
		return nil, false
	}
	frame, err := protocol.Encode(msg)
	if err != nil {
		h.log.Error().Err(err).Msg("encode state")
		return nil, false
	}
	return frame, true
}

func (h *Host) broadcastState() {
	h.version++
	frame, ok := h.syncFrame()
	if !ok {
		return
	}
	for _, p := range h.peers {
		p.Deliver(frame)
	}
}

func (h *Host) broadcast(msg protocol.Message) {
	frame, err := protocol.Encode(msg)
	if err != nil {
		h.log.Error().Err(err).Str("type", string(msg.Type)).Msg("encode message")
		return
	}
	for _, p := range h.peers {
		p.Deliver(frame)
	}
}

func (h *Host) closePeers() {
	for id, p := range h.peers {
		p.Close()
		delete(h.peers, id)
	}
}
