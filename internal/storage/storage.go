// Package storage persists the pipeline's output files. Every file is
// rewritten whole each run except the history, which appends.
package storage

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/retea-se/pag/internal/event"
)

const (
	SnapshotFile = "events.json"
	StatusFile   = "status.json"
	HistoryFile  = "history.json"
)

// Storage handles persistence under one output directory.
type Storage struct {
	dir string
}

// New creates a Storage rooted at dir, creating it if needed.
func New(dir string) (*Storage, error) {
	if strings.HasPrefix(dir, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("getting home directory: %w", err)
		}
		dir = filepath.Join(home, dir[2:])
	}

	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("creating output directory: %w", err)
	}

	return &Storage{dir: dir}, nil
}

// Dir returns the resolved output directory.
func (s *Storage) Dir() string { return s.dir }

// LoadSnapshot reads the previous run's snapshot. A missing file is
// not an error; the pipeline starts from empty state.
func (s *Storage) LoadSnapshot() (*event.Snapshot, error) {
	data, err := os.ReadFile(filepath.Join(s.dir, SnapshotFile))
	if err != nil {
		if os.IsNotExist(err) {
			return &event.Snapshot{}, nil
		}
		return nil, fmt.Errorf("reading snapshot: %w", err)
	}

	var snapshot event.Snapshot
	if err := json.Unmarshal(data, &snapshot); err != nil {
		return nil, fmt.Errorf("parsing snapshot: %w", err)
	}
	return &snapshot, nil
}

// SaveSnapshot writes the full snapshot.
func (s *Storage) SaveSnapshot(snapshot *event.Snapshot) error {
	return s.WriteJSON(SnapshotFile, snapshot)
}

// WriteJSON marshals v with indentation and writes it under name.
func (s *Storage) WriteJSON(name string, v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding %s: %w", name, err)
	}
	return s.WriteFile(name, data)
}

// WriteFile writes raw bytes under name.
func (s *Storage) WriteFile(name string, data []byte) error {
	path := filepath.Join(s.dir, name)
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing %s: %w", name, err)
	}
	return nil
}

// ReadJSON reads name into v. Returns os.ErrNotExist wrapped when the
// file is absent.
func (s *Storage) ReadJSON(name string, v interface{}) error {
	data, err := os.ReadFile(filepath.Join(s.dir, name))
	if err != nil {
		return fmt.Errorf("reading %s: %w", name, err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("parsing %s: %w", name, err)
	}
	return nil
}
