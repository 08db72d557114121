// Package client is the player side of a game: one connection to the host and a
// replica of the state it broadcasts.
package client

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"live-quiz-service/internal/domain"
	"live-quiz-service/internal/protocol"
)

const writeWait = 10 * time.Second

// Player is a connected participant. It never reconnects on its own; once the
// connection drops, Connected reports false and actions fail with domain.ErrNotConnected.
type Player struct {
	id      string
	conn    *websocket.Conn
	replica *Replica
	updates chan domain.GameState
	log     zerolog.Logger

	writeMu   sync.Mutex
	done      chan struct{}
	closeOnce sync.Once
}

// Dial opens the single connection to the host serving code.
// baseURL is the host's http(s) address.
func Dial(ctx context.Context, baseURL, code, playerID string) (*Player, error) {
	endpoint, err := socketURL(baseURL, code, playerID)
	if err != nil {
		return nil, err
	}
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("dial host: %w", err)
	}

	p := &Player{
		id:      playerID,
		conn:    conn,
		replica: NewReplica(),
		updates: make(chan domain.GameState, 1),
		log:     log.With().Str("game", code).Str("player", playerID).Logger(),
		done:    make(chan struct{}),
	}
	p.replica.SetConnected(true)
	go p.readLoop()
	return p, nil
}

func socketURL(baseURL, code, playerID string) (string, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return "", fmt.Errorf("parse host address: %w", err)
	}
	switch u.Scheme {
	case "http", "":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	}
	u.Path = strings.TrimRight(u.Path, "/") + "/ws/" + url.PathEscape(code)
	q := url.Values{}
	q.Set("player", playerID)
	u.RawQuery = q.Encode()
	return u.String(), nil
}

func (p *Player) ID() string { return p.id }

// Replica exposes the player's copy of the game state.
func (p *Player) Replica() *Replica { return p.replica }

func (p *Player) Connected() bool { return p.replica.Connected() }

// Updates delivers the latest state after each change. Only the newest state is kept
// when the reader falls behind. The channel is closed when the connection ends.
func (p *Player) Updates() <-chan domain.GameState { return p.updates }

// Done is closed once the connection has ended.
func (p *Player) Done() <-chan struct{} { return p.done }

// Join announces the player to the host under name.
func (p *Player) Join(name string) error {
	msg, err := protocol.NewPlayerJoin(p.id, name)
	if err != nil {
		return err
	}
	return p.send(msg)
}

// Answer submits optionID for the active question and marks the replica as submitted.
func (p *Player) Answer(optionID string) error {
	msg, err := protocol.NewPlayerAnswer(p.id, optionID)
	if err != nil {
		return err
	}
	if err := p.send(msg); err != nil {
		return err
	}
	p.replica.MarkSubmitted()
	return nil
}

// Close ends the connection and waits for the reader to stop.
func (p *Player) Close() error {
	p.writeMu.Lock()
	_ = p.conn.SetWriteDeadline(time.Now().Add(writeWait))
	_ = p.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	p.writeMu.Unlock()

	err := p.conn.Close()
	<-p.done
	return err
}

func (p *Player) send(msg protocol.Message) error {
	if !p.replica.Connected() {
		return domain.ErrNotConnected
	}
	frame, err := protocol.Encode(msg)
	if err != nil {
		return err
	}

	p.writeMu.Lock()
	defer p.writeMu.Unlock()
	_ = p.conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := p.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
		p.replica.SetConnected(false)
		return fmt.Errorf("%w: %v", domain.ErrNotConnected, err)
	}
	return nil
}

func (p *Player) readLoop() {
	defer p.closeOnce.Do(func() {
		p.replica.SetConnected(false)
		close(p.updates)
		close(p.done)
	})

	for {
		_, data, err := p.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				p.log.Warn().Err(err).Msg("connection to host lost")
			}
			return
		}
		msg, err := protocol.Decode(data)
		if err != nil {
			p.log.Debug().Err(err).Msg("dropping malformed frame")
			continue
		}
		if !p.replica.Apply(msg) {
			continue
		}
		p.publish(p.replica.State())
	}
}

func (p *Player) publish(state domain.GameState) {
	select {
	case p.updates <- state:
	default:
		select {
		case <-p.updates:
		default:
		}
		p.updates <- state
	}
}
