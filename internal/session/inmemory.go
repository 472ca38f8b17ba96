package session

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// InMemoryStore keeps sessions in process memory for local/dev use.
type InMemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]*Session
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{sessions: make(map[string]*Session)}
}

func (s *InMemoryStore) Create(_ context.Context, sess Session) (Session, error) {
	sess = prepareSession(sess)

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.sessions[sess.ID]; exists {
		return Session{}, fmt.Errorf("create session %s: already exists", sess.ID)
	}
	stored := sess.clone()
	s.sessions[sess.ID] = &stored
	return sess.clone(), nil
}

func (s *InMemoryStore) Get(_ context.Context, id string) (Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sess, ok := s.sessions[id]
	if !ok {
		return Session{}, ErrNotFound
	}
	return sess.clone(), nil
}

func (s *InMemoryStore) AppendEntry(_ context.Context, id string, entry LogEntry) (LogEntry, error) {
	if err := validateEntry(entry); err != nil {
		return LogEntry{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[id]
	if !ok {
		return LogEntry{}, ErrNotFound
	}
	entry = prepareEntry(entry, len(sess.Log)+1)
	sess.Log = append(sess.Log, entry)
	sess.UpdatedAt = time.Now().UTC()
	return entry, nil
}

func (s *InMemoryStore) UpdateState(_ context.Context, id string, state GameState) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[id]
	if !ok {
		return ErrNotFound
	}
	sess.State = state
	sess.UpdatedAt = time.Now().UTC()
	return nil
}

func (s *InMemoryStore) Close() error { return nil }
