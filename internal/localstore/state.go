package localstore

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// Mode identifies which backing store is authoritative for this process.
type Mode string

const (
	// ModeDatabase means the Postgres store owns the collection.
	ModeDatabase Mode = "database"

	// ModeLocal means the local mirror store owns the collection.
	ModeLocal Mode = "localStorage"
)

// StorageState records the persisted storage-mode decision.
// It is written once per detected transition and read on every startup to
// skip re-probing the database.
type StorageState struct {
	Mode        Mode `json:"mode"`
	Initialized bool `json:"initialized"`
}

// DefaultState is the state before any probe has run.
func DefaultState() StorageState {
	return StorageState{Mode: ModeDatabase, Initialized: false}
}

// StatePath returns the path of the storage state file.
func (s *Store) StatePath() string {
	return filepath.Join(s.dir, StateFile)
}

// LoadState reads the persisted storage state. A missing or unparseable
// state file yields the default (database, uninitialized) state.
func (s *Store) LoadState() StorageState {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.StatePath())
	if err != nil {
		return DefaultState()
	}

	var state StorageState
	if err := json.Unmarshal(data, &state); err != nil {
		return DefaultState()
	}
	if state.Mode != ModeDatabase && state.Mode != ModeLocal {
		return DefaultState()
	}
	return state
}

// SaveState persists the storage state.
func (s *Store) SaveState(state StorageState) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal storage state: %w", err)
	}
	if err := os.WriteFile(s.StatePath(), data, 0644); err != nil {
		return fmt.Errorf("failed to write storage state: %w", err)
	}
	return nil
}

// ClearState removes the persisted storage state so the next startup
// re-probes the database.
func (s *Store) ClearState() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.Remove(s.StatePath()); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to clear storage state: %w", err)
	}
	return nil
}
