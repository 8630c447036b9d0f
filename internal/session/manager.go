package session

import (
	"sync"

	"github.com/rs/zerolog/log"
)

// Manager tracks live sessions by id.
type Manager struct {
	creds *CredentialStore

	mu       sync.Mutex
	sessions map[string]*Session
}

// NewManager returns a manager that authenticates against creds.
func NewManager(creds *CredentialStore) *Manager {
	return &Manager{creds: creds, sessions: make(map[string]*Session)}
}

// Login verifies the credentials and opens a new session.
func (m *Manager) Login(user, password string) (*Session, error) {
	if err := m.creds.Verify(user, password); err != nil {
		log.Warn().Str("user", user).Msg("login rejected")
		return nil, err
	}
	s := New(user)
	m.mu.Lock()
	m.sessions[s.ID] = s
	m.mu.Unlock()
	log.Info().Str("user", user).Str("session", s.ID).Msg("login")
	return s, nil
}

// Get returns a live session.
func (m *Manager) Get(id string) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	if !ok {
		return nil, ErrNotFound
	}
	return s, nil
}

// Logout clears and forgets a session.
func (m *Manager) Logout(id string) error {
	m.mu.Lock()
	s, ok := m.sessions[id]
	delete(m.sessions, id)
	m.mu.Unlock()
	if !ok {
		return ErrNotFound
	}
	s.Clear()
	log.Info().Str("user", s.User).Str("session", id).Msg("logout")
	return nil
}

// Len returns the number of live sessions.
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}
