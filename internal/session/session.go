// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package session holds the authenticated identity passed explicitly to
// every editor operation. A Session is created after login (or restored
// from the credentials directory) and torn down with Close on logout.
package session

import (
	"net/http"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/pdiddy/doc-studio/internal/apperr"
	"github.com/pdiddy/doc-studio/internal/secrets"
)

// Session is a bearer token plus the account it was issued to. It is safe
// for concurrent use.
type Session struct {
	mu        sync.RWMutex
	token     string
	email     string
	expiresAt time.Time
}

// New creates a session for token. The token's expiry is read from its
// claims when it is a JWT; the signature is not checked here, the services
// do that.
func New(token, email string) (*Session, error) {
	if token == "" {
		return nil, apperr.New(apperr.KindUnauthorized, "empty session token")
	}
	s := &Session{token: token, email: email}

	claims := jwt.RegisteredClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, &claims); err == nil && claims.ExpiresAt != nil {
		s.expiresAt = claims.ExpiresAt.Time
	}
	return s, nil
}

// Email returns the account name the session was issued to.
func (s *Session) Email() string {
	if s == nil {
		return ""
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.email
}

// ExpiresAt returns the token expiry, or the zero time when unknown.
func (s *Session) ExpiresAt() time.Time {
	if s == nil {
		return time.Time{}
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.expiresAt
}

// Valid reports whether the session holds a token that has not expired.
// A nil session is never valid.
func (s *Session) Valid() bool {
	if s == nil {
		return false
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.token == "" {
		return false
	}
	return s.expiresAt.IsZero() || time.Now().Before(s.expiresAt)
}

// Check returns an Unauthorized error unless the session is valid.
func Check(s *Session) error {
	if !s.Valid() {
		return apperr.New(apperr.KindUnauthorized, "no valid session; run login first")
	}
	return nil
}

// Authorize sets the Authorization header on req.
func (s *Session) Authorize(req *http.Request) error {
	if err := Check(s); err != nil {
		return err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	req.Header.Set("Authorization", "Bearer "+s.token)
	return nil
}

// Close tears the session down. Later operations using it fail with
// Unauthorized.
func (s *Session) Close() {
	if s == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = ""
}

// Restore loads the session persisted in dir. It fails with Unauthorized
// when no token is stored or the stored token has expired.
func Restore(dir string) (*Session, error) {
	values, err := secrets.Load(dir)
	if err != nil {
		return nil, err
	}
	s, err := New(values[secrets.SessionToken], values[secrets.SessionEmail])
	if err != nil {
		return nil, apperr.New(apperr.KindUnauthorized, "not logged in; run login first")
	}
	if !s.Valid() {
		return nil, apperr.New(apperr.KindUnauthorized, "session expired; run login again")
	}
	return s, nil
}

// Persist stores the session in dir so later runs can Restore it.
func Persist(dir string, s *Session) error {
	if err := Check(s); err != nil {
		return err
	}
	s.mu.RLock()
	token, email := s.token, s.email
	s.mu.RUnlock()

	if err := secrets.Save(dir, secrets.SessionToken, token); err != nil {
		return err
	}
	if email == "" {
		return secrets.Remove(dir, secrets.SessionEmail)
	}
	return secrets.Save(dir, secrets.SessionEmail, email)
}

// Clear removes any session persisted in dir.
func Clear(dir string) error {
	if err := secrets.Remove(dir, secrets.SessionToken); err != nil {
		return err
	}
	return secrets.Remove(dir, secrets.SessionEmail)
}
