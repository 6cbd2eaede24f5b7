package memory

import (
	"context"
	"sync"

	"forest-valley-trail/internal/domain"
)

// SessionStore is an in-memory implementation of app.SessionStore.
type SessionStore struct {
	mu       sync.RWMutex
	sessions map[string]domain.TrailSession
}

func NewSessionStore() *SessionStore {
	return &SessionStore{
		sessions: make(map[string]domain.TrailSession),
	}
}

func (s *SessionStore) Get(_ context.Context, deviceID string) (domain.TrailSession, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	session, ok := s.sessions[deviceID]
	return session, ok, nil
}

func (s *SessionStore) Save(_ context.Context, session domain.TrailSession) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[session.DeviceID] = session
	return nil
}

func (s *SessionStore) Delete(_ context.Context, deviceID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, deviceID)
	return nil
}
