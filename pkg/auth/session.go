package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"bookassist/pkg/domain"
)

const (
	defaultSessionTTL = 7 * 24 * time.Hour
	sessionIssuer     = "bookassist"
)

// SessionStore is the persistence surface the session manager needs.
type SessionStore interface {
	SaveSession(session domain.Session) error
	GetSessionByToken(token string) (domain.Session, bool, error)
	DeleteSessionByToken(token string) (bool, error)
	GetUserByID(id string) (domain.User, bool, error)
}

// SessionManager mints signed session tokens backed by durable session rows.
// Every verification goes through the row, so deletion and bulk invalidation
// take effect immediately even while the signature would still verify.
type SessionManager struct {
	store  SessionStore
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewSessionManager builds a session manager. ttl <= 0 selects the 7-day default.
func NewSessionManager(store SessionStore, secret string, ttl time.Duration) (*SessionManager, error) {
	if store == nil {
		return nil, errors.New("session store required")
	}
	if strings.TrimSpace(secret) == "" {
		return nil, errors.New("session secret required")
	}
	if ttl <= 0 {
		ttl = defaultSessionTTL
	}
	return &SessionManager{
		store:  store,
		secret: []byte(secret),
		ttl:    ttl,
		now:    time.Now,
	}, nil
}

// CreateSession mints a signed token bound to the user and records it.
func (m *SessionManager) CreateSession(userID string) (string, error) {
	now := m.now().UTC()
	expiresAt := now.Add(m.ttl)
	claims := jwt.RegisteredClaims{
		Subject:   userID,
		Issuer:    sessionIssuer,
		ExpiresAt: jwt.NewNumericDate(expiresAt),
		IssuedAt:  jwt.NewNumericDate(now),
		ID:        uuid.NewString(),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
	if err != nil {
		return "", fmt.Errorf("sign session token: %w", err)
	}
	session := domain.Session{
		ID:        uuid.NewString(),
		UserID:    userID,
		Token:     token,
		ExpiresAt: expiresAt,
		CreatedAt: now,
	}
	if err := m.store.SaveSession(session); err != nil {
		return "", fmt.Errorf("save session: %w", err)
	}
	return token, nil
}

// VerifySession resolves the user behind a token via the durable row.
// Expired rows are deleted on access so a repeat lookup is cheap and
// consistently empty.
func (m *SessionManager) VerifySession(token string) (domain.User, bool, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return domain.User{}, false, nil
	}
	session, ok, err := m.store.GetSessionByToken(token)
	if err != nil {
		return domain.User{}, false, fmt.Errorf("fetch session: %w", err)
	}
	if !ok {
		return domain.User{}, false, nil
	}
	if m.now().UTC().After(session.ExpiresAt) {
		if _, err := m.store.DeleteSessionByToken(token); err != nil {
			return domain.User{}, false, fmt.Errorf("delete expired session: %w", err)
		}
		return domain.User{}, false, nil
	}
	user, found, err := m.store.GetUserByID(session.UserID)
	if err != nil {
		return domain.User{}, false, fmt.Errorf("fetch user: %w", err)
	}
	if !found {
		return domain.User{}, false, nil
	}
	return user, true, nil
}

// DeleteSession removes the durable row, reporting whether one existed.
func (m *SessionManager) DeleteSession(token string) (bool, error) {
	return m.store.DeleteSessionByToken(strings.TrimSpace(token))
}
