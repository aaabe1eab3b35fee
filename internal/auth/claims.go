package auth

import (
	"errors"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"

	"github.com/jusdesk/portal-sync/internal/domain"
)

// SessionClaims is the payload the backend signs into the session
// token. The signing key belongs to the backend, so the claims are
// decoded without verification; they are used for topic naming and
// expiry-aware logging, never for authorization decisions.
type SessionClaims struct {
	SubjectID string      `json:"sub"`
	Email     string      `json:"email"`
	Role      domain.Role `json:"role"`
	jwt.RegisteredClaims
}

// ParseSessionClaims decodes claims from an opaque session token.
func ParseSessionClaims(token string) (*SessionClaims, error) {
	claims := &SessionClaims{}
	parser := jwt.NewParser()
	if _, _, err := parser.ParseUnverified(token, claims); err != nil {
		return nil, err
	}
	if claims.SubjectID == "" {
		return nil, errors.New("token missing subject")
	}
	return claims, nil
}

// ExpiresWithin reports whether the session ends before now+window.
// Tokens without an expiry never report as expiring.
func (c *SessionClaims) ExpiresWithin(now time.Time, window time.Duration) bool {
	if c.ExpiresAt == nil {
		return false
	}
	return c.ExpiresAt.Time.Before(now.Add(window))
}
