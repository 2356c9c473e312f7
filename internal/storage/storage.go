package storage

import (
	"sort"
	"sync"

	"github.com/lehigh-university-libraries/cardscanner/internal/session"
)

// SessionStore keeps the in-memory capture sessions by ID
type SessionStore struct {
	sessions map[string]*session.Controller
	mu       sync.RWMutex
}

func New() *SessionStore {
	return &SessionStore{
		sessions: make(map[string]*session.Controller),
	}
}

func (s *SessionStore) Get(sessionID string) (*session.Controller, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, exists := s.sessions[sessionID]
	return c, exists
}

func (s *SessionStore) Add(c *session.Controller) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[c.ID()] = c
}

// List returns every session, oldest first
func (s *SessionStore) List() []*session.Controller {
	s.mu.RLock()
	result := make([]*session.Controller, 0, len(s.sessions))
	for _, c := range s.sessions {
		result = append(result, c)
	}
	s.mu.RUnlock()

	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt().Before(result[j].CreatedAt())
	})
	return result
}

func (s *SessionStore) Delete(sessionID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, sessionID)
}

// Clear drops all sessions, e.g. on logout
func (s *SessionStore) Clear() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := len(s.sessions)
	s.sessions = make(map[string]*session.Controller)
	return n
}
