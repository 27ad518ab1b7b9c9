package queue

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// PersistentState is the queue and player state written between runs.
type PersistentState struct {
	State
	Volume float64 `json:"volume"`
	Muted  bool    `json:"muted"`
}

// Store persists queue state as JSON in the state directory.
type Store struct {
	path string
}

// NewStore creates a store writing to dir/queue.json.
func NewStore(dir string) *Store {
	return &Store{path: filepath.Join(dir, "queue.json")}
}

// Load reads persisted state. A missing file returns an empty state with the
// given default volume.
func (s *Store) Load(defaultVolume float64) (PersistentState, error) {
	state := PersistentState{
		State:  State{CurrentIndex: -1},
		Volume: defaultVolume,
	}

	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return state, nil
	}
	if err != nil {
		return state, fmt.Errorf("failed to read queue state: %w", err)
	}

	if err := json.Unmarshal(data, &state); err != nil {
		return state, fmt.Errorf("failed to parse queue state: %w", err)
	}
	return state, nil
}

// Save writes the state atomically by renaming over the previous file.
func (s *Store) Save(state PersistentState) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("failed to create state dir: %w", err)
	}

	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode queue state: %w", err)
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("failed to write queue state: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("failed to replace queue state: %w", err)
	}
	return nil
}
