// Package auth holds the credential object every API call authenticates
// with. It is an explicit value handed to clients at construction, never a
// package-level singleton, so tests can run with fake tokens.
package auth

import (
	"fmt"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Credentials carries the bearer token for the remote backend. Safe for
// concurrent use; the token can be swapped at runtime after a re-login.
type Credentials struct {
	mu    sync.RWMutex
	token string
}

// NewCredentials creates credentials around a bearer token. An empty token
// is allowed and produces unauthenticated requests.
func NewCredentials(token string) *Credentials {
	return &Credentials{token: token}
}

// Token returns the current bearer token.
func (c *Credentials) Token() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token
}

// SetToken replaces the bearer token.
func (c *Credentials) SetToken(token string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.token = token
}

// ExpiresAt inspects the token's exp claim without verifying the
// signature. Verification belongs to the backend; the engine only wants to
// know when a 401 is coming.
func (c *Credentials) ExpiresAt() (time.Time, error) {
	c.mu.RLock()
	token := c.token
	c.mu.RUnlock()

	if token == "" {
		return time.Time{}, fmt.Errorf("no token configured")
	}

	claims := jwt.MapClaims{}
	parser := jwt.NewParser()
	if _, _, err := parser.ParseUnverified(token, claims); err != nil {
		return time.Time{}, fmt.Errorf("failed to parse token: %w", err)
	}

	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}, fmt.Errorf("token has no expiration claim")
	}

	return exp.Time, nil
}

// Expired reports whether the token carries an exp claim in the past.
// Opaque (non-JWT) tokens are never considered expired locally.
func (c *Credentials) Expired() bool {
	exp, err := c.ExpiresAt()
	if err != nil {
		return false
	}
	return time.Now().After(exp)
}
