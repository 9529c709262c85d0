package store

import (
	"context"
	"sync"

	"github.com/papertrade/engine/internal/model"
)

// MemoryStore implements Store with an in-memory map. Used for testing and
// development. Not suitable for production (no persistence).
type MemoryStore struct {
	mu       sync.RWMutex
	accounts map[string]*model.Account
}

// NewMemoryStore creates a new in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		accounts: make(map[string]*model.Account),
	}
}

func (s *MemoryStore) Load(_ context.Context, userID string) (*model.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	acct, ok := s.accounts[userID]
	if !ok {
		return nil, nil
	}
	// Hand out a copy to avoid external mutation.
	return acct.Clone(), nil
}

func (s *MemoryStore) Save(_ context.Context, userID string, acct *model.Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.accounts[userID] = acct.Clone()
	return nil
}
