package store

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sync"

	"github.com/papertrade/engine/internal/model"
)

// FileStore implements Store with a single JSON file holding every account
// keyed by user id. Writes use the atomic write pattern: marshal to a temp
// file, fsync, then rename over the destination.
type FileStore struct {
	mu   sync.Mutex
	path string
}

// NewFileStore creates a file-backed store at the given path. The file is
// created on first save; a missing file loads as an empty account set.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

func (s *FileStore) Load(_ context.Context, userID string) (*model.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	accounts, err := s.readAll()
	if err != nil {
		return nil, err
	}
	acct, ok := accounts[userID]
	if !ok {
		return nil, nil
	}
	return acct, nil
}

func (s *FileStore) Save(_ context.Context, userID string, acct *model.Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	accounts, err := s.readAll()
	if err != nil {
		return err
	}
	accounts[userID] = acct
	return s.writeAll(accounts)
}

func (s *FileStore) readAll() (map[string]*model.Account, error) {
	b, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return make(map[string]*model.Account), nil
	}
	if err != nil {
		return nil, fmt.Errorf("read accounts file: %w", err)
	}

	accounts := make(map[string]*model.Account)
	if err := json.Unmarshal(b, &accounts); err != nil {
		return nil, fmt.Errorf("decode accounts file: %w", err)
	}
	return accounts, nil
}

func (s *FileStore) writeAll(accounts map[string]*model.Account) error {
	b, err := json.MarshalIndent(accounts, "", "  ")
	if err != nil {
		return fmt.Errorf("encode accounts: %w", err)
	}

	tmp := s.path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("create temp accounts file: %w", err)
	}
	if _, err := f.Write(b); err != nil {
		f.Close()
		return fmt.Errorf("write temp accounts file: %w", err)
	}
	// Sync before rename so a crash can't leave a truncated file behind.
	if err := f.Sync(); err != nil {
		f.Close()
		return fmt.Errorf("sync temp accounts file: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close temp accounts file: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("replace accounts file: %w", err)
	}
	return nil
}
