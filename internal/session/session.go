// Package session issues and validates the single administrator's session
// tokens. The admin flag the rest of the system consumes is derived from
// token verification here; no other caller identity exists.
package session

import (
	"errors"
	"strings"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"

	"swapshelf/internal/util"
)

const (
	issuer       = "swapshelf"
	audience     = "swapshelf-admin"
	adminSubject = "admin"
)

var leeway = 30 * time.Second

// Manager issues HS256 session tokens for the admin account and checks them
// against the revocation list on every call.
type Manager struct {
	secret  []byte
	ttl     time.Duration
	revoker Revoker
}

// NewManager builds a session manager. The revoker may be nil, in which case
// logout only relies on token expiry.
func NewManager(secret string, ttl time.Duration, revoker Revoker) (*Manager, error) {
	secret = strings.TrimSpace(secret)
	if secret == "" {
		return nil, errors.New("session secret required")
	}
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &Manager{secret: []byte(secret), ttl: ttl, revoker: revoker}, nil
}

// NewAdminSession creates a signed session token after a successful login.
func (m *Manager) NewAdminSession() (string, error) {
	now := time.Now().UTC()
	claims := jwt.RegisteredClaims{
		Subject:   adminSubject,
		Issuer:    issuer,
		Audience:  jwt.ClaimStrings{audience},
		ExpiresAt: jwt.NewNumericDate(now.Add(m.ttl)),
		IssuedAt:  jwt.NewNumericDate(now),
		NotBefore: jwt.NewNumericDate(now),
		ID:        util.NewID(),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
}

// Verify reports whether the token is a live admin session. A malformed,
// expired or revoked token is simply not valid; the error is reserved for
// revocation-store failures.
func (m *Manager) Verify(token string) (bool, error) {
	claims, err := m.parse(token)
	if err != nil {
		return false, nil
	}
	if claims.Subject != adminSubject {
		return false, nil
	}
	if m.revoker != nil {
		revoked, err := m.revoker.IsRevoked(claims.ID)
		if err != nil {
			return false, err
		}
		if revoked {
			return false, nil
		}
	}
	return true, nil
}

// Revoke invalidates the token until its natural expiry. Unparseable tokens
// are ignored; there is nothing to revoke.
func (m *Manager) Revoke(token string) error {
	if m.revoker == nil {
		return nil
	}
	claims, err := m.parse(token)
	if err != nil {
		return nil
	}
	if claims.ExpiresAt == nil {
		return nil
	}
	ttl := time.Until(claims.ExpiresAt.Time)
	if ttl <= 0 {
		return nil
	}
	return m.revoker.Revoke(claims.ID, ttl)
}

func (m *Manager) parse(token string) (jwt.RegisteredClaims, error) {
	claims := jwt.RegisteredClaims{}
	token = strings.TrimSpace(token)
	if token == "" {
		return claims, errors.New("empty token")
	}
	parsed, err := jwt.ParseWithClaims(token, &claims, func(t *jwt.Token) (any, error) {
		return m.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(issuer),
		jwt.WithAudience(audience),
		jwt.WithIssuedAt(),
		jwt.WithLeeway(leeway),
	)
	if err != nil || !parsed.Valid {
		if err == nil {
			err = errors.New("invalid token")
		}
		return claims, err
	}
	if strings.TrimSpace(claims.ID) == "" {
		return claims, errors.New("token jti missing")
	}
	return claims, nil
}
