package memory

import (
	"context"
	"sync"
	"time"

	"myth-quiz-service/internal/app"
	"myth-quiz-service/internal/domain"
)

// SessionStore is an in-memory implementation of app.SessionRepository.
// A session expires once it has been idle for longer than ttl (ttl <= 0 never expires).
type SessionStore struct {
	ttl   time.Duration
	clock func() time.Time

	mu       sync.Mutex
	sessions map[string]*sessionData
}

type sessionData struct {
	values   map[string][]byte
	lastSeen time.Time
}

func NewSessionStore(ttl time.Duration) *SessionStore {
	return NewSessionStoreWithClock(ttl, time.Now)
}

// NewSessionStoreWithClock is test-only for deterministic expiry.
func NewSessionStoreWithClock(ttl time.Duration, clock func() time.Time) *SessionStore {
	return &SessionStore{
		ttl:      ttl,
		clock:    clock,
		sessions: make(map[string]*sessionData),
	}
}

func (s *SessionStore) Create(_ context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sessions[sessionID]; !ok {
		s.sessions[sessionID] = &sessionData{values: make(map[string][]byte)}
	}
	s.sessions[sessionID].lastSeen = s.clock()
	return nil
}

func (s *SessionStore) Open(_ context.Context, sessionID string) (app.Storage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.liveLocked(sessionID); err != nil {
		return nil, err
	}
	return &sessionStorage{store: s, sessionID: sessionID}, nil
}

func (s *SessionStore) Drop(_ context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, sessionID)
	return nil
}

// Sweep removes expired sessions and returns how many were dropped.
func (s *SessionStore) Sweep() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	dropped := 0
	for id, data := range s.sessions {
		if s.expiredLocked(data) {
			delete(s.sessions, id)
			dropped++
		}
	}
	return dropped
}

// RunSweeper calls Sweep every interval until ctx is done.
func (s *SessionStore) RunSweeper(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Sweep()
		}
	}
}

// Len reports the number of sessions currently held, expired or not.
func (s *SessionStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

// liveLocked returns the session data and refreshes its idle timer.
func (s *SessionStore) liveLocked(sessionID string) (*sessionData, error) {
	data, ok := s.sessions[sessionID]
	if !ok {
		return nil, domain.ErrSessionNotFound
	}
	if s.expiredLocked(data) {
		delete(s.sessions, sessionID)
		return nil, domain.ErrSessionNotFound
	}
	data.lastSeen = s.clock()
	return data, nil
}

func (s *SessionStore) expiredLocked(data *sessionData) bool {
	return s.ttl > 0 && s.clock().Sub(data.lastSeen) > s.ttl
}

// sessionStorage is one session's view of the store.
type sessionStorage struct {
	store     *SessionStore
	sessionID string
}

func (st *sessionStorage) Get(_ context.Context, key string) ([]byte, error) {
	st.store.mu.Lock()
	defer st.store.mu.Unlock()
	data, err := st.store.liveLocked(st.sessionID)
	if err != nil {
		return nil, err
	}
	value, ok := data.values[key]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return append([]byte{}, value...), nil
}

func (st *sessionStorage) Set(_ context.Context, key string, value []byte) error {
	st.store.mu.Lock()
	defer st.store.mu.Unlock()
	data, err := st.store.liveLocked(st.sessionID)
	if err != nil {
		return err
	}
	data.values[key] = append([]byte{}, value...)
	return nil
}

func (st *sessionStorage) Delete(_ context.Context, key string) error {
	st.store.mu.Lock()
	defer st.store.mu.Unlock()
	data, err := st.store.liveLocked(st.sessionID)
	if err != nil {
		return err
	}
	delete(data.values, key)
	return nil
}
