// Package tokens implements the lifecycle of email-verification and
// password-reset tokens: single live token per kind per user, bounded
// expiry, and strict one-time use.
package tokens

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"bookassist/pkg/domain"
)

const (
	// VerificationTTL bounds email verification tokens.
	VerificationTTL = 24 * time.Hour
	// ResetTTL bounds password reset tokens.
	ResetTTL = time.Hour

	tokenBytes = 32
)

// TokenStore is the persistence surface the manager needs.
type TokenStore interface {
	CreateLifecycleToken(kind domain.TokenKind, token domain.LifecycleToken) error
	GetLifecycleToken(kind domain.TokenKind, token string) (domain.LifecycleToken, bool, error)
	MarkLifecycleTokenUsed(kind domain.TokenKind, token string, at time.Time) (bool, error)
	ConsumeVerificationToken(userID, token string, at time.Time) error
	GetUserByID(id string) (domain.User, bool, error)
	DeleteSessionsByUser(userID string) (int, error)
}

// Manager issues and consumes lifecycle tokens.
type Manager struct {
	store TokenStore
	now   func() time.Time
}

// NewManager builds a token lifecycle manager.
func NewManager(store TokenStore) (*Manager, error) {
	if store == nil {
		return nil, errors.New("token store required")
	}
	return &Manager{store: store, now: time.Now}, nil
}

func ttlFor(kind domain.TokenKind) (time.Duration, error) {
	switch kind {
	case domain.TokenKindVerification:
		return VerificationTTL, nil
	case domain.TokenKindReset:
		return ResetTTL, nil
	}
	return 0, fmt.Errorf("unknown token kind: %s", kind)
}

// Issue invalidates any unused tokens of the kind for the user and stores
// a fresh one. The delete+insert runs in one store transaction, so two
// concurrent issues cannot leave two live tokens.
func (m *Manager) Issue(kind domain.TokenKind, userID string) (string, error) {
	ttl, err := ttlFor(kind)
	if err != nil {
		return "", err
	}
	token, err := generateSecureToken()
	if err != nil {
		return "", fmt.Errorf("generate token: %w", err)
	}
	now := m.now().UTC()
	record := domain.LifecycleToken{
		ID:        uuid.NewString(),
		UserID:    userID,
		Token:     token,
		ExpiresAt: now.Add(ttl),
		CreatedAt: now,
	}
	if err := m.store.CreateLifecycleToken(kind, record); err != nil {
		return "", fmt.Errorf("store token: %w", err)
	}
	return token, nil
}

// ConsumeForVerification validates a verification token and, when valid,
// marks the user verified and the token used. Succeeds at most once per
// token.
func (m *Manager) ConsumeForVerification(token string) (domain.User, bool, error) {
	record, user, ok, err := m.lookupLive(domain.TokenKindVerification, token)
	if err != nil || !ok {
		return domain.User{}, false, err
	}
	now := m.now().UTC()
	if err := m.store.ConsumeVerificationToken(record.UserID, token, now); err != nil {
		return domain.User{}, false, fmt.Errorf("consume token: %w", err)
	}
	user.EmailVerified = true
	user.EmailVerifiedAt = &now
	return user, true, nil
}

// ValidateForReset checks a reset token without consuming it, so the new
// password can be validated before anything is marked used.
func (m *Manager) ValidateForReset(token string) (domain.User, bool, error) {
	_, user, ok, err := m.lookupLive(domain.TokenKindReset, token)
	if err != nil || !ok {
		return domain.User{}, false, err
	}
	return user, true, nil
}

// MarkUsed consumes a reset token after the new password was accepted.
func (m *Manager) MarkUsed(token string) (bool, error) {
	return m.store.MarkLifecycleTokenUsed(domain.TokenKindReset, token, m.now().UTC())
}

// InvalidateAllSessions deletes every session for the user, forcing
// re-authentication everywhere. Called after a completed password reset.
func (m *Manager) InvalidateAllSessions(userID string) (int, error) {
	return m.store.DeleteSessionsByUser(userID)
}

// lookupLive returns the token record and its user when the token exists,
// is unused, and is not expired.
func (m *Manager) lookupLive(kind domain.TokenKind, token string) (domain.LifecycleToken, domain.User, bool, error) {
	if token == "" {
		return domain.LifecycleToken{}, domain.User{}, false, nil
	}
	record, ok, err := m.store.GetLifecycleToken(kind, token)
	if err != nil {
		return domain.LifecycleToken{}, domain.User{}, false, fmt.Errorf("fetch token: %w", err)
	}
	if !ok || record.Used() || m.now().UTC().After(record.ExpiresAt) {
		return domain.LifecycleToken{}, domain.User{}, false, nil
	}
	user, found, err := m.store.GetUserByID(record.UserID)
	if err != nil {
		return domain.LifecycleToken{}, domain.User{}, false, fmt.Errorf("fetch user: %w", err)
	}
	if !found {
		return domain.LifecycleToken{}, domain.User{}, false, nil
	}
	return record, user, true, nil
}

// generateSecureToken returns a cryptographically random URL-safe token.
func generateSecureToken() (string, error) {
	buf := make([]byte, tokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}
