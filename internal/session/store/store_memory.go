package store

import (
	"context"
	"fmt"
	"sync"
	"time"

	"address-cri/internal/session/models"
	id "address-cri/pkg/domain"
	"address-cri/pkg/platform/sentinel"
)

// Error Contract:
// All store methods follow this pattern:
// - Return sentinel.ErrNotFound when the requested session does not exist
// - Return nil for successful operations
// - Return wrapped errors with context for infrastructure failures
//
// Stores are pure persistence: no state-machine rules live here.

// InMemorySessionStore keeps sessions in memory for tests and development.
// Reads and writes copy the record so concurrent units of work never alias
// the same Session value; concurrent updates are last-write-wins.
type InMemorySessionStore struct {
	mu       sync.RWMutex
	sessions map[id.SessionID]*models.Session
	byToken  map[string]id.SessionID
}

// New constructs an empty in-memory session store.
func New() *InMemorySessionStore {
	return &InMemorySessionStore{
		sessions: make(map[id.SessionID]*models.Session),
		byToken:  make(map[string]id.SessionID),
	}
}

func (s *InMemorySessionStore) Create(_ context.Context, session *models.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.sessions[session.ID]; exists {
		return fmt.Errorf("session already exists: %w", sentinel.ErrConflict)
	}
	s.sessions[session.ID] = clone(session)
	return nil
}

func (s *InMemorySessionStore) FindByID(_ context.Context, sessionID id.SessionID) (*models.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	session, ok := s.sessions[sessionID]
	if !ok {
		return nil, fmt.Errorf("session not found: %w", sentinel.ErrNotFound)
	}
	return clone(session), nil
}

func (s *InMemorySessionStore) FindByAccessToken(_ context.Context, token string) (*models.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sessionID, ok := s.byToken[token]
	if !ok {
		return nil, fmt.Errorf("access token not bound: %w", sentinel.ErrNotFound)
	}
	session, ok := s.sessions[sessionID]
	if !ok {
		return nil, fmt.Errorf("session not found: %w", sentinel.ErrNotFound)
	}
	return clone(session), nil
}

func (s *InMemorySessionStore) Update(_ context.Context, session *models.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sessions[session.ID]; !ok {
		return fmt.Errorf("session not found: %w", sentinel.ErrNotFound)
	}
	s.sessions[session.ID] = clone(session)
	return nil
}

// BindAccessToken records the token-to-session secondary key and stores the
// token on the session record.
func (s *InMemorySessionStore) BindAccessToken(_ context.Context, sessionID id.SessionID, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	session, ok := s.sessions[sessionID]
	if !ok {
		return fmt.Errorf("session not found: %w", sentinel.ErrNotFound)
	}
	if existing, taken := s.byToken[token]; taken && existing != sessionID {
		return fmt.Errorf("access token already bound: %w", sentinel.ErrConflict)
	}
	session.AccessToken = token
	s.byToken[token] = sessionID
	return nil
}

func (s *InMemorySessionStore) Delete(_ context.Context, sessionID id.SessionID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	session, ok := s.sessions[sessionID]
	if !ok {
		return fmt.Errorf("session not found: %w", sentinel.ErrNotFound)
	}
	if session.AccessToken != "" {
		delete(s.byToken, session.AccessToken)
	}
	delete(s.sessions, sessionID)
	return nil
}

// confirmedRetention bounds how long a confirmed session outlives its TTL.
// A confirmed session stays collectable past expiry, so sweeps must not
// remove it at expires_at; the retention window is when it finally goes.
const confirmedRetention = 24 * time.Hour

// sweepCutoff is the time after which a session is eligible for removal.
func sweepCutoff(session *models.Session) time.Time {
	if session.State == models.StateAddressConfirmed {
		return session.ExpiresAt.Add(confirmedRetention)
	}
	return session.ExpiresAt
}

// DeleteExpired removes sessions whose TTL passed before the given time.
// Confirmed sessions are kept until their retention window lapses.
// The time parameter is injected for testability (no hidden time.Now() calls).
func (s *InMemorySessionStore) DeleteExpired(_ context.Context, now time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	deleted := 0
	for sessionID, session := range s.sessions {
		if sweepCutoff(session).Before(now) {
			if session.AccessToken != "" {
				delete(s.byToken, session.AccessToken)
			}
			delete(s.sessions, sessionID)
			deleted++
		}
	}
	return deleted, nil
}

func clone(session *models.Session) *models.Session {
	copied := *session
	if session.CandidateAddresses != nil {
		copied.CandidateAddresses = append(copied.CandidateAddresses[:0:0], session.CandidateAddresses...)
	}
	if session.ConfirmedAddress != nil {
		addr := *session.ConfirmedAddress
		copied.ConfirmedAddress = &addr
	}
	return &copied
}
