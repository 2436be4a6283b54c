package translate

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// StoreFileVersion is the current label cache file format
const StoreFileVersion = 1

type storeFile struct {
	Version   int               `json:"version"`
	UpdatedAt time.Time         `json:"updated_at"`
	Labels    map[string]string `json:"labels"`
}

// Store persists a Cache as JSON between runs
type Store struct {
	filePath string
}

// NewStore creates a store backed by the given file
func NewStore(filePath string) *Store {
	return &Store{filePath: filePath}
}

// Path returns the backing file
func (s *Store) Path() string {
	return s.filePath
}

// Load fills the cache from the file. A missing file leaves the cache empty
// and is not an error.
func (s *Store) Load(cache *Cache) error {
	data, err := os.ReadFile(s.filePath)
	if os.IsNotExist(err) {
		cache.Clear()
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read label cache: %w", err)
	}

	var file storeFile
	if err := json.Unmarshal(data, &file); err != nil {
		return fmt.Errorf("failed to parse label cache: %w", err)
	}

	if file.Version != StoreFileVersion {
		return fmt.Errorf("unsupported label cache version %d (expected %d)", file.Version, StoreFileVersion)
	}

	cache.Init(file.Labels)
	return nil
}

// Save writes the cache to the file atomically
func (s *Store) Save(cache *Cache) error {
	data, err := json.MarshalIndent(storeFile{
		Version:   StoreFileVersion,
		UpdatedAt: time.Now().UTC(),
		Labels:    cache.Snapshot(),
	}, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal label cache: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(s.filePath), 0755); err != nil {
		return fmt.Errorf("failed to create label cache directory: %w", err)
	}

	// Write to a temp file, then rename
	tmpFile := s.filePath + ".tmp"
	if err := os.WriteFile(tmpFile, data, 0644); err != nil {
		return fmt.Errorf("failed to write temp label cache: %w", err)
	}
	if err := os.Rename(tmpFile, s.filePath); err != nil {
		os.Remove(tmpFile)
		return fmt.Errorf("failed to rename temp label cache: %w", err)
	}
	return nil
}
