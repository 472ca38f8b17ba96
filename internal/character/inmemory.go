package character

import (
	"context"
	"sync"
)

// InMemoryStore keeps sheets in process memory for local/dev use.
type InMemoryStore struct {
	mu     sync.RWMutex
	sheets map[string]Sheet
}

// NewInMemoryStore returns a store seeded with DefaultCharacter.
func NewInMemoryStore() *InMemoryStore {
	def := DefaultCharacter()
	return &InMemoryStore{sheets: map[string]Sheet{def.ID: def}}
}

func (s *InMemoryStore) FindByID(_ context.Context, id string) (Sheet, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sheet, ok := s.sheets[id]
	if !ok {
		return Sheet{}, ErrNotFound
	}
	return sheet.clone(), nil
}

func (s *InMemoryStore) Create(_ context.Context, sheet Sheet) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sheets[sheet.ID] = sheet.clone()
	return nil
}

func (s *InMemoryStore) Close() error { return nil }
