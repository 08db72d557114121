// Package identity keeps the participant id a device reuses across sessions.
package identity

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"
)

type record struct {
	ParticipantID string `yaml:"participant_id"`
	Name          string `yaml:"name,omitempty"`
}

// Store is a small YAML file holding this device's participant id and last used name.
type Store struct {
	path string
	mu   sync.Mutex
}

func NewStore(path string) *Store {
	return &Store{path: path}
}

// DefaultPath is the per-user location of the identity file.
func DefaultPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("locate config dir: %w", err)
	}
	return filepath.Join(dir, "live-quiz", "identity.yaml"), nil
}

// ParticipantID returns the stored id, generating and persisting one on first use.
func (s *Store) ParticipantID() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, err := s.load()
	if err != nil {
		return "", err
	}
	if rec.ParticipantID != "" {
		return rec.ParticipantID, nil
	}
	rec.ParticipantID = uuid.NewString()
	if err := s.save(rec); err != nil {
		return "", err
	}
	return rec.ParticipantID, nil
}

// Name returns the display name saved by SetName, if any.
func (s *Store) Name() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, err := s.load()
	return rec.Name, err
}

func (s *Store) SetName(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, err := s.load()
	if err != nil {
		return err
	}
	rec.Name = name
	return s.save(rec)
}

func (s *Store) load() (record, error) {
	var rec record
	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return rec, nil
	}
	if err != nil {
		return rec, fmt.Errorf("read identity: %w", err)
	}
	if err := yaml.Unmarshal(data, &rec); err != nil {
		return rec, fmt.Errorf("parse identity: %w", err)
	}
	return rec, nil
}

func (s *Store) save(rec record) error {
	data, err := yaml.Marshal(rec)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return fmt.Errorf("create identity dir: %w", err)
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("write identity: %w", err)
	}
	return os.Rename(tmp, s.path)
}
