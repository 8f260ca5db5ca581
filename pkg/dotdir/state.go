package dotdir

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

const (
	activeFile = "active.json"
)

// ActiveState represents the persisted active-conversation state.
type ActiveState struct {
	// ConversationID is the conversation the CLI is currently tracking.
	ConversationID string `json:"conversation_id"`

	// UpdatedAt records when the active conversation last changed.
	UpdatedAt time.Time `json:"updated_at"`
}

// LoadActiveState loads the active state from a target .drift/active.json.
// Returns nil, nil if no active state exists (no conversation started yet).
// If overrideDir is non-empty, it is used instead of the default ~/.drift/ location.
func (m *Manager) LoadActiveState(overrideDir string) (*ActiveState, error) {
	dir, err := m.Target(overrideDir)
	if err != nil {
		return nil, err
	}

	path := filepath.Join(dir, activeFile)
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading active state: %w", err)
	}

	state := &ActiveState{}
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, fmt.Errorf("parsing active state: %w", err)
	}

	return state, nil
}

// SaveActive persists the active state to a target .drift/active.json.
func (m *Manager) SaveActive(state *ActiveState, overrideDir string) error {
	if state == nil {
		return errors.New("cannot save nil active state")
	}

	dir, err := m.Target(overrideDir)
	if err != nil {
		return err
	}

	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling active state: %w", err)
	}

	path := filepath.Join(dir, activeFile)
	if err := os.WriteFile(path, data, 0o644); err != nil { //nolint:gosec
		return fmt.Errorf("writing active state: %w", err)
	}

	return nil
}

// ClearActive removes the active state file.
// This resets the state so the next session starts a new conversation.
// If overrideDir is non-empty, it is used instead of the default ~/.drift/ location.
// Returns nil if the file doesn't exist (already cleared).
func (m *Manager) ClearActive(overrideDir string) error {
	dir, err := m.Target(overrideDir)
	if err != nil {
		return err
	}

	path := filepath.Join(dir, activeFile)
	if err := os.Remove(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("removing active state: %w", err)
	}

	return nil
}
