package ports

import "time"

// StoredSession is the persisted form of an authenticated session
type StoredSession struct {
	Email     string    `json:"email"`
	Token     string    `json:"access_token"`
	TokenType string    `json:"token_type"`
	LoginAt   time.Time `json:"login_at"`
}

// SessionStore persists the authenticated session between runs
type SessionStore interface {
	// Load returns the stored session, or nil when logged out.
	Load() (*StoredSession, error)
	Save(s *StoredSession) error
	Clear() error
}
