package persistence

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/salescrm/crm-portal/internal/domain"
)

// FileStore persists session records as one JSON document per storage key.
type FileStore struct {
	mu   sync.Mutex
	path string
}

// ErrCorruptSessionFile marks a session file that is not a valid document.
var ErrCorruptSessionFile = errors.New("corrupt session file")

type fileDocument map[string]domain.PersistedSession

// NewFileStore prepares the directory holding the session file.
func NewFileStore(path string) (*FileStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("create session directory: %w", err)
	}
	return &FileStore{path: path}, nil
}

// Load returns the record stored under key, or nil when none exists.
func (s *FileStore) Load(_ context.Context, key string) (*domain.PersistedSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.read()
	if err != nil {
		return nil, err
	}
	record, ok := doc[key]
	if !ok {
		return nil, nil
	}
	return &record, nil
}

// Save rewrites the record stored under key. A corrupt file is moved aside
// to <path>.corrupt and replaced by a fresh document.
func (s *FileStore) Save(_ context.Context, key string, record domain.PersistedSession) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.read()
	if errors.Is(err, ErrCorruptSessionFile) {
		if err := os.Rename(s.path, s.path+".corrupt"); err != nil {
			return fmt.Errorf("quarantine session file: %w", err)
		}
		doc, err = fileDocument{}, nil
	}
	if err != nil {
		return err
	}
	doc[key] = record

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("write session: %w", err)
	}
	return os.Rename(tmp, s.path)
}

// Ping checks that the session file is readable.
func (s *FileStore) Ping(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.read()
	return err
}

func (s *FileStore) read() (fileDocument, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return fileDocument{}, nil
		}
		return nil, fmt.Errorf("read session file: %w", err)
	}
	doc := fileDocument{}
	if len(data) == 0 {
		return doc, nil
	}
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptSessionFile, err)
	}
	return doc, nil
}
