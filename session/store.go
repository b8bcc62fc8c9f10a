// Package session persists the logged-in identity across runs, the way the
// browser build of this client kept it in localStorage.
package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"barpoints/models"
)

const sessionFile = "session.json"

// Store is the key-value collaborator holding the current Session. The core
// only ever reads and writes the whole document.
type Store interface {
	// Load returns the persisted session, or nil when none exists.
	Load() (*models.Session, error)

	// Save replaces the persisted session.
	Save(s *models.Session) error

	// Clear removes the persisted session. Clearing an empty store is a no-op.
	Clear() error
}

// FileStore keeps the session as a JSON document under dir.
type FileStore struct {
	dir string
}

// NewFileStore creates a FileStore rooted at dir, creating it if needed.
func NewFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("create session dir: %w", err)
	}
	return &FileStore{dir: dir}, nil
}

func (fs *FileStore) path() string {
	return filepath.Join(fs.dir, sessionFile)
}

// Load returns the persisted session, or nil when none exists.
func (fs *FileStore) Load() (*models.Session, error) {
	b, err := os.ReadFile(fs.path())
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var s models.Session
	if err := json.Unmarshal(b, &s); err != nil {
		return nil, fmt.Errorf("parse session file: %w", err)
	}
	return &s, nil
}

// Save writes the session via a temp file then rename.
func (fs *FileStore) Save(s *models.Session) error {
	b, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return err
	}
	tmp := fs.path() + ".tmp"
	if err := os.WriteFile(tmp, b, 0o600); err != nil {
		return err
	}
	return os.Rename(tmp, fs.path())
}

// Clear removes the persisted session.
func (fs *FileStore) Clear() error {
	err := os.Remove(fs.path())
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return err
}

// MemoryStore is an in-process Store for tests and embedded use.
type MemoryStore struct {
	s *models.Session
}

func NewMemoryStore() *MemoryStore { return &MemoryStore{} }

func (m *MemoryStore) Load() (*models.Session, error) {
	if m.s == nil {
		return nil, nil
	}
	cp := *m.s
	return &cp, nil
}

func (m *MemoryStore) Save(s *models.Session) error {
	cp := *s
	m.s = &cp
	return nil
}

func (m *MemoryStore) Clear() error {
	m.s = nil
	return nil
}
