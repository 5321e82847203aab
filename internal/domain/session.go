package domain

import (
	"sync"
	"time"
)

// Session is the authenticated identity behind one websocket connection.
type Session struct {
	ID           string
	UserID       string
	RemoteAddr   string
	CreatedAt    time.Time
	LastActiveAt time.Time
	mu           sync.RWMutex
}

func NewSession(id, userID, remoteAddr string) *Session {
	now := time.Now()
	return &Session{
		ID:           id,
		UserID:       userID,
		RemoteAddr:   remoteAddr,
		CreatedAt:    now,
		LastActiveAt: now,
	}
}

func (s *Session) UpdateActivity() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.LastActiveAt = time.Now()
}

func (s *Session) LastActive() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.LastActiveAt
}
