package state

import (
	"context"
	"sync"
)

// MemoryStore keeps sessions in process. Values are copied through JSON so
// callers never share pointers with the store.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string][]byte
}

var _ Store = (*MemoryStore)(nil)

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{sessions: make(map[string][]byte)}
}

func (s *MemoryStore) Load(_ context.Context, sessionID string) (*SessionState, error) {
	if _, err := sessionKey("", sessionID); err != nil {
		return nil, err
	}
	s.mu.RLock()
	payload, ok := s.sessions[sessionID]
	s.mu.RUnlock()
	if !ok {
		return nil, ErrStateNotFound
	}
	return decodeSession(payload)
}

func (s *MemoryStore) Save(_ context.Context, st *SessionState) error {
	payload, err := encodeSession(st)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.sessions[st.SessionID] = payload
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) Delete(_ context.Context, sessionID string) error {
	if _, err := sessionKey("", sessionID); err != nil {
		return err
	}
	s.mu.Lock()
	delete(s.sessions, sessionID)
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}
