// Package session holds the signed-in user's credentials for the lifetime of a login.
package session

import (
	"fmt"
	"strings"
	"sync"

	"github.com/golang-jwt/jwt/v5"
)

const defaultDisplayName = "Student"

// Session is created on login and torn down on logout.
// It is threaded through the request layer instead of being read from global state.
type Session struct {
	mu       sync.RWMutex
	token    string
	userID   int64
	roles    []string
	subject  string
	username string
	email    string
	closed   bool
}

// Option customises a new session.
type Option func(*Session)

// WithUsername sets the display username.
func WithUsername(username string) Option {
	return func(s *Session) {
		s.username = strings.TrimSpace(username)
	}
}

// WithEmail sets the contact email. Values without an @ are ignored.
func WithEmail(email string) Option {
	return func(s *Session) {
		if strings.Contains(email, "@") {
			s.email = strings.TrimSpace(email)
		}
	}
}

// WithRoles sets the role set, overriding roles carried by the token.
func WithRoles(roles ...string) Option {
	return func(s *Session) {
		s.roles = append([]string(nil), roles...)
	}
}

// New creates a session for userID. The token may be empty for backends without auth.
// Claims are decoded without signature verification; the backend verifies tokens.
func New(token string, userID int64, opts ...Option) (*Session, error) {
	if userID <= 0 {
		return nil, fmt.Errorf("invalid user ID: %d", userID)
	}

	s := &Session{
		token:  token,
		userID: userID,
	}

	if token != "" {
		claims := jwt.MapClaims{}
		if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
			return nil, fmt.Errorf("failed to decode session token: %w", err)
		}
		s.subject, _ = claims.GetSubject()
		s.roles = rolesFromClaims(claims)
		if email, ok := claims["email"].(string); ok {
			WithEmail(email)(s)
		}
	}

	for _, opt := range opts {
		opt(s)
	}

	return s, nil
}

func rolesFromClaims(claims jwt.MapClaims) []string {
	raw, ok := claims["roles"].([]any)
	if !ok {
		return nil
	}
	roles := make([]string, 0, len(raw))
	for _, r := range raw {
		if role, ok := r.(string); ok && role != "" {
			roles = append(roles, role)
		}
	}
	return roles
}

// Token returns the bearer token, or "" once the session is closed.
func (s *Session) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return ""
	}
	return s.token
}

// UserID returns the signed-in user's id.
func (s *Session) UserID() int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.userID
}

// Roles returns a copy of the role set.
func (s *Session) Roles() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]string(nil), s.roles...)
}

// HasRole reports whether the session carries role.
func (s *Session) HasRole(role string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, r := range s.roles {
		if r == role {
			return true
		}
	}
	return false
}

// DisplayName prefers the username, then the token subject.
func (s *Session) DisplayName() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	switch {
	case s.username != "":
		return s.username
	case s.subject != "":
		return s.subject
	default:
		return defaultDisplayName
	}
}

// Email returns the contact email, if known.
func (s *Session) Email() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.email
}

// Active reports whether the session has not been closed.
func (s *Session) Active() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return !s.closed
}

// Close tears the session down. Requests made afterwards carry no credentials.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	s.token = ""
	s.roles = nil
}
