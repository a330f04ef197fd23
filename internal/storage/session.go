package storage

import (
	"context"
	"sync"
)

// SessionTier keeps snapshots in memory only. Everything in it is gone when
// the process exits, which is exactly the contract of a session-scoped login.
type SessionTier struct {
	mu    sync.RWMutex
	items map[string][]byte
}

func NewSessionTier() *SessionTier {
	return &SessionTier{items: make(map[string][]byte)}
}

func (s *SessionTier) Get(_ context.Context, key string) ([]byte, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.items[key]
	if !ok {
		return nil, false, nil
	}
	out := append([]byte(nil), v...)
	return out, true, nil
}

func (s *SessionTier) Set(_ context.Context, key string, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items[key] = append([]byte(nil), value...)
	return nil
}

func (s *SessionTier) Remove(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.items, key)
	return nil
}

func (s *SessionTier) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = make(map[string][]byte)
	return nil
}
