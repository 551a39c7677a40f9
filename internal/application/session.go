package application

import (
	"fmt"
	"sync"
	"time"

	"github.com/devbush/poser/internal/domain"
	"github.com/devbush/poser/internal/ports"
)

// Session is the authenticated user session. It is created once at startup
// and passed to every service that talks to the API.
type Session struct {
	mu      sync.RWMutex
	store   ports.SessionStore
	current *ports.StoredSession
	now     func() time.Time
}

// NewSession restores the persisted session, if any
func NewSession(store ports.SessionStore) (*Session, error) {
	s := &Session{store: store, now: time.Now}
	stored, err := store.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load session: %w", err)
	}
	if stored != nil && stored.Token != "" {
		s.current = stored
	}
	return s, nil
}

// Token returns the bearer token, or "" when logged out
func (s *Session) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.current == nil {
		return ""
	}
	return s.current.Token
}

// Email returns the address the session was established for
func (s *Session) Email() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.current == nil {
		return ""
	}
	return s.current.Email
}

// LoginAt returns when the session was established
func (s *Session) LoginAt() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.current == nil {
		return time.Time{}
	}
	return s.current.LoginAt
}

func (s *Session) IsLoggedIn() bool {
	return s.Token() != ""
}

// Login establishes the session from a verified token and persists it
func (s *Session) Login(email string, tok *ports.TokenResponse) error {
	if tok == nil || tok.AccessToken == "" {
		return domain.ErrNotVerified
	}

	next := &ports.StoredSession{
		Email:     email,
		Token:     tok.AccessToken,
		TokenType: tok.TokenType,
		LoginAt:   s.now().UTC(),
	}

	s.mu.Lock()
	s.current = next
	s.mu.Unlock()

	if err := s.store.Save(next); err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}
	return nil
}

// Logout ends the session and removes it from disk
func (s *Session) Logout() error {
	s.mu.Lock()
	s.current = nil
	s.mu.Unlock()

	if err := s.store.Clear(); err != nil {
		return fmt.Errorf("failed to clear session: %w", err)
	}
	return nil
}

// RequireLogin returns domain.ErrNotLoggedIn when there is no session
func (s *Session) RequireLogin() error {
	if !s.IsLoggedIn() {
		return domain.ErrNotLoggedIn
	}
	return nil
}

var _ ports.TokenSource = (*Session)(nil)
