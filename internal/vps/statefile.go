package vps

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// PersistentState holds instance state that survives restarts.
type PersistentState struct {
	// Config is the instance description as of the last save.
	Config Config `json:"config"`

	// LastBoot is when the instance was last started.
	LastBoot time.Time `json:"last_boot,omitempty"`

	// LastShutdown is when the instance was last stopped.
	LastShutdown time.Time `json:"last_shutdown,omitempty"`

	// BootCount is the number of times the instance has started.
	BootCount int `json:"boot_count"`

	// CleanShutdown is false while the instance runs.
	CleanShutdown bool `json:"clean_shutdown"`
}

// StateFile manages the per-instance state.json.
type StateFile struct {
	path string
}

// NewStateFile creates a state file manager under dir.
func NewStateFile(dir string) *StateFile {
	return &StateFile{
		path: filepath.Join(dir, "state.json"),
	}
}

// Load reads the state. A missing file yields the zero state.
func (s *StateFile) Load() (*PersistentState, error) {
	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return &PersistentState{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read state file: %w", err)
	}

	var state PersistentState
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, fmt.Errorf("parse state file: %w", err)
	}
	return &state, nil
}

// Save writes the state atomically.
func (s *StateFile) Save(state *PersistentState) error {
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create state dir: %w", err)
	}

	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal state: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".state-*.tmp")
	if err != nil {
		return fmt.Errorf("create temp state file: %w", err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write state file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close state file: %w", err)
	}
	return os.Rename(tmpPath, s.path)
}

// Update loads the state, applies fn and saves the result.
func (s *StateFile) Update(fn func(*PersistentState)) error {
	state, err := s.Load()
	if err != nil {
		return err
	}
	fn(state)
	return s.Save(state)
}

// RecordBoot stores cfg and counts a boot.
func (s *StateFile) RecordBoot(cfg Config) error {
	return s.Update(func(state *PersistentState) {
		state.Config = cfg
		state.LastBoot = time.Now()
		state.BootCount++
		state.CleanShutdown = false
	})
}

// RecordShutdown stores cfg and the shutdown time.
func (s *StateFile) RecordShutdown(cfg Config, clean bool) error {
	return s.Update(func(state *PersistentState) {
		state.Config = cfg
		state.LastShutdown = time.Now()
		state.CleanShutdown = clean
	})
}

// Path returns the state file path.
func (s *StateFile) Path() string {
	return s.path
}
