package sessionstore

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/devbush/poser/internal/ports"
)

// FileStore keeps the session in a JSON file readable only by the owner
type FileStore struct {
	path string
}

func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// Path returns the session file location
func (s *FileStore) Path() string {
	return s.path
}

func (s *FileStore) Load() (*ports.StoredSession, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var stored ports.StoredSession
	if err := json.Unmarshal(data, &stored); err != nil {
		return nil, fmt.Errorf("corrupt session file %s: %w", s.path, err)
	}
	if stored.Token == "" {
		return nil, nil
	}
	return &stored, nil
}

func (s *FileStore) Save(stored *ports.StoredSession) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0700); err != nil {
		return err
	}

	data, err := json.MarshalIndent(stored, "", "  ")
	if err != nil {
		return err
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0600); err != nil {
		return err
	}
	return os.Rename(tmp, s.path)
}

func (s *FileStore) Clear() error {
	if err := os.Remove(s.path); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

var _ ports.SessionStore = (*FileStore)(nil)
