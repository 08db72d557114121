// Package protocol defines the frames exchanged between a host and its players.
// Every frame is a JSON object {"type": <kind>, "payload": {...}}.
package protocol

import (
	"encoding/json"
	"errors"
	"fmt"

	"live-quiz-service/internal/domain"
)

// Kind tags a frame.
type Kind string

const (
	KindSyncState    Kind = "SYNC_STATE"
	KindPlayerJoin   Kind = "PLAYER_JOIN"
	KindPlayerAnswer Kind = "PLAYER_ANSWER"
	KindAdminReset   Kind = "ADMIN_RESET"
)

// ErrWrongKind is returned when a payload accessor is used on a frame of another kind.
var ErrWrongKind = errors.New("message has a different kind")

// Message is the tagged union carried over the wire.
type Message struct {
	Type    Kind            `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// SyncPayload carries the whole canonical state. Version increases with every frame a
// host sends, so replicas can discard snapshots that arrive out of order.
type SyncPayload struct {
	domain.GameState
	Version uint64 `json:"version"`
}

type JoinPayload struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type AnswerPayload struct {
	PlayerID string `json:"playerId"`
	OptionID string `json:"optionId"`
}

func newMessage(kind Kind, payload any) (Message, error) {
	if payload == nil {
		return Message{Type: kind}, nil
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return Message{}, fmt.Errorf("marshal %s payload: %w", kind, err)
	}
	return Message{Type: kind, Payload: raw}, nil
}

func NewSyncState(state domain.GameState, version uint64) (Message, error) {
	return newMessage(KindSyncState, SyncPayload{GameState: state, Version: version})
}

func NewPlayerJoin(id, name string) (Message, error) {
	return newMessage(KindPlayerJoin, JoinPayload{ID: id, Name: name})
}

func NewPlayerAnswer(playerID, optionID string) (Message, error) {
	return newMessage(KindPlayerAnswer, AnswerPayload{PlayerID: playerID, OptionID: optionID})
}

func NewAdminReset() Message {
	return Message{Type: KindAdminReset}
}

// Encode serializes a frame.
func Encode(msg Message) ([]byte, error) {
	return json.Marshal(msg)
}

// Decode parses a frame. Unknown kinds decode successfully; receivers ignore them.
func Decode(data []byte) (Message, error) {
	var msg Message
	if err := json.Unmarshal(data, &msg); err != nil {
		return Message{}, fmt.Errorf("decode message: %w", err)
	}
	if msg.Type == "" {
		return Message{}, errors.New("decode message: missing type")
	}
	return msg, nil
}

func (m Message) decodePayload(kind Kind, v any) error {
	if m.Type != kind {
		return fmt.Errorf("%w: want %s, got %s", ErrWrongKind, kind, m.Type)
	}
	if len(m.Payload) == 0 {
		return fmt.Errorf("%s: empty payload", kind)
	}
	if err := json.Unmarshal(m.Payload, v); err != nil {
		return fmt.Errorf("%s: %w", kind, err)
	}
	return nil
}

func (m Message) Sync() (SyncPayload, error) {
	var p SyncPayload
	err := m.decodePayload(KindSyncState, &p)
	if err != nil {
		return p, err
	}
	if p.Players == nil {
		p.Players = make(map[string]*domain.Player)
	}
	// a null entry is not a player
	for id, player := range p.Players {
		if player == nil {
			delete(p.Players, id)
		}
	}
	return p, nil
}

func (m Message) Join() (JoinPayload, error) {
	var p JoinPayload
	return p, m.decodePayload(KindPlayerJoin, &p)
}

func (m Message) Answer() (AnswerPayload, error) {
	var p AnswerPayload
	return p, m.decodePayload(KindPlayerAnswer, &p)
}
