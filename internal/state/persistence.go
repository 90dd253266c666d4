package state

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

const (
	// DefaultStateDir is the directory under $HOME for state files
	DefaultStateDir = ".local/state/tray"
	// DefaultStateFile is the state file name
	DefaultStateFile = "state.json"
)

// GetStatePath returns the full path to the state file
func GetStatePath() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, DefaultStateDir, DefaultStateFile)
}

// LoadState loads state from the default path, creating new state if file doesn't exist
func LoadState() (*RuntimeState, error) {
	return LoadStateFrom(GetStatePath())
}

// LoadStateFrom loads state from a specific path
func LoadStateFrom(path string) (*RuntimeState, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return NewRuntimeState(), nil
		}
		return nil, fmt.Errorf("failed to read state file: %w", err)
	}

	var state RuntimeState
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, fmt.Errorf("failed to parse state file: %w", err)
	}

	if state.Version < StateVersion {
		return migrateState(&state), nil
	}

	// Initialize maps if nil (not persisted or old format)
	if state.Shown == nil {
		state.Shown = make(map[string]*ShownItem)
	}
	if state.Layouts == nil {
		state.Layouts = make(map[string]*LayoutSnapshot)
	}

	return &state, nil
}

// Save persists state to the default path
func (rs *RuntimeState) Save() error {
	return rs.SaveTo(GetStatePath())
}

// SaveTo persists state to a specific path
func (rs *RuntimeState) SaveTo(path string) error {
	rs.mu.Lock()
	rs.LastUpdated = time.Now()
	rs.mu.Unlock()

	rs.mu.RLock()
	defer rs.mu.RUnlock()

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create state directory: %w", err)
	}

	data, err := json.MarshalIndent(rs, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal state: %w", err)
	}

	// Write atomically using temp file + rename
	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write state file: %w", err)
	}

	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to rename state file: %w", err)
	}

	return nil
}

// Reset clears all state and saves it to path
func (rs *RuntimeState) Reset(path string) error {
	rs.mu.Lock()
	rs.Shown = make(map[string]*ShownItem)
	rs.Layouts = make(map[string]*LayoutSnapshot)
	rs.mu.Unlock()

	return rs.SaveTo(path)
}

// migrateState handles migration from older state versions. Version 1
// files carried no shown items; layouts are rebuilt on the next refresh.
func migrateState(old *RuntimeState) *RuntimeState {
	migrated := NewRuntimeState()
	if old.Shown != nil {
		migrated.Shown = old.Shown
	}
	migrated.LastUpdated = old.LastUpdated
	return migrated
}
