// Package session issues signed guest tokens that tie a browser to its
// quick-order pipeline and saved draft. This is continuity, not
// authentication: the token carries no identity beyond a random id.
package session

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/printforge/quickorder-backend/pkg/config"
)

type Manager struct {
	secret []byte
	issuer string
	ttl    time.Duration
}

func NewManager(cfg config.SessionConfig) (*Manager, error) {
	if cfg.Secret == "" {
		return nil, fmt.Errorf("session secret is required")
	}
	return &Manager{
		secret: []byte(cfg.Secret),
		issuer: cfg.Issuer,
		ttl:    cfg.TTL(),
	}, nil
}

// Issue mints a fresh guest session token and returns it with its id.
func (m *Manager) Issue() (token string, sessionID string, err error) {
	sessionID = uuid.NewString()
	now := time.Now()
	claims := jwt.RegisteredClaims{
		Subject:   sessionID,
		Issuer:    m.issuer,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(m.ttl)),
	}
	token, err = jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
	if err != nil {
		return "", "", fmt.Errorf("signing session token: %w", err)
	}
	return token, sessionID, nil
}

// Parse validates a guest token and returns the session id it carries.
func (m *Manager) Parse(token string) (string, error) {
	parsed, err := jwt.ParseWithClaims(token, &jwt.RegisteredClaims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return m.secret, nil
	}, jwt.WithIssuer(m.issuer))
	if err != nil {
		return "", fmt.Errorf("parsing session token: %w", err)
	}
	claims, ok := parsed.Claims.(*jwt.RegisteredClaims)
	if !ok || claims.Subject == "" {
		return "", fmt.Errorf("session token missing subject")
	}
	return claims.Subject, nil
}
