package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// Store persists section data.
type Store interface {
	Load() error
	Save() error
	GetSection(sectionID string) (map[string]interface{}, error)
	SetSection(sectionID string, data map[string]interface{}) error
}

const fileVersion = "1"

type fileLayout struct {
	Version  string                            `json:"version"`
	Sections map[string]map[string]interface{} `json:"sections"`
}

// FileStore keeps sections in a single JSON file. Writes go through a
// temporary file in the same directory and are renamed into place.
type FileStore struct {
	path string
	mu   sync.RWMutex
	data map[string]map[string]interface{}
}

// NewFileStore opens the store at path, defaulting to
// ~/.domscope/config.json. A missing file is an empty store.
func NewFileStore(path string) (*FileStore, error) {
	if path == "" {
		dir, err := DefaultDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get user home directory: %w", err)
		}
		path = filepath.Join(dir, "config.json")
	}

	s := &FileStore{path: path, data: make(map[string]map[string]interface{})}
	if err := s.Load(); err != nil {
		return nil, fmt.Errorf("failed to load config from %s: %w", path, err)
	}
	return s, nil
}

// Path returns the file the store reads and writes.
func (s *FileStore) Path() string {
	return s.path
}

// Load reads the file, replacing everything held in memory.
func (s *FileStore) Load() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	raw, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		s.data = make(map[string]map[string]interface{})
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	var layout fileLayout
	if err := json.Unmarshal(raw, &layout); err != nil {
		return fmt.Errorf("failed to decode config file: %w", err)
	}
	if layout.Sections == nil {
		layout.Sections = make(map[string]map[string]interface{})
	}
	s.data = layout.Sections
	return nil
}

// Save writes every section to disk.
func (s *FileStore) Save() error {
	s.mu.RLock()
	layout := fileLayout{Version: fileVersion, Sections: s.data}
	raw, err := json.MarshalIndent(layout, "", "  ")
	s.mu.RUnlock()
	if err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".config-*.json")
	if err != nil {
		return fmt.Errorf("failed to create temp config file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(append(raw, '\n')); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write temp config file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close temp config file: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return fmt.Errorf("failed to replace config file: %w", err)
	}
	return nil
}

// GetSection returns a copy of the section's data. Unknown sections are
// empty.
func (s *FileStore) GetSection(sectionID string) (map[string]interface{}, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return copyMap(s.data[sectionID]), nil
}

// SetSection replaces the section's data with a copy of data.
func (s *FileStore) SetSection(sectionID string, data map[string]interface{}) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[sectionID] = copyMap(data)
	return nil
}

func copyMap(in map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
