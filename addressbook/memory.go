package addressbook

import (
	"context"
	"sync"

	"github.com/prior-it/addressbook/core"
)

// MemoryStore is an address book that only lives as long as the process.
type MemoryStore struct {
	mu      sync.RWMutex
	entries entries
}

var _ core.AddressBook = &MemoryStore{}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) Add(_ context.Context, address core.Address) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = s.entries.with(address)
	return nil
}

func (s *MemoryStore) List(context.Context) ([]core.Address, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.entries.list(), nil
}

func (s *MemoryStore) Remove(_ context.Context, id core.AddressID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	updated, ok := s.entries.without(id)
	if !ok {
		return core.ErrNotFound
	}
	s.entries = updated
	return nil
}
