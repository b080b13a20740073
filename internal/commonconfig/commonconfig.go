// Package commonconfig persists the small set of runtime-tunable settings
// that aren't part of process startup configuration, currently just the
// default-playlist genre filter.
package commonconfig

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// data is the on-disk shape of commonConfig.json.
type data struct {
	DefaultPlaylistGenre string `json:"defaultPlaylistGenre"`
}

// Store holds the common-config value and persists it atomically on change.
type Store struct {
	mu   sync.RWMutex
	path string
	data data
}

// New opens (or creates) the common-config file at path, defaulting the
// genre filter to "all" when the file does not yet exist.
func New(path string) (*Store, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("commonconfig: create directory %q: %w", dir, err)
	}

	s := &Store{path: path, data: data{DefaultPlaylistGenre: "all"}}

	raw, err := os.ReadFile(path)
	if err == nil {
		if jsonErr := json.Unmarshal(raw, &s.data); jsonErr != nil {
			return nil, fmt.Errorf("commonconfig: parse %q: %w", path, jsonErr)
		}
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("commonconfig: read %q: %w", path, err)
	}

	return s, nil
}

// Genre returns the configured default-playlist genre filter. This method
// value is used directly as a fetcher.GenreProvider.
func (s *Store) Genre() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.data.DefaultPlaylistGenre
}

// SetGenre updates and persists the genre filter.
func (s *Store) SetGenre(genre string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data.DefaultPlaylistGenre = genre
	return s.saveLocked()
}

func (s *Store) saveLocked() error {
	raw, err := json.MarshalIndent(s.data, "", "  ")
	if err != nil {
		return fmt.Errorf("commonconfig: marshal: %w", err)
	}

	dir := filepath.Dir(s.path)
	tmp, err := os.CreateTemp(dir, "commonconfig-*.json.tmp")
	if err != nil {
		return fmt.Errorf("commonconfig: create temp file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(raw); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("commonconfig: write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("commonconfig: close temp file: %w", err)
	}
	return os.Rename(tmpName, s.path)
}
