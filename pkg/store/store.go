package store

import (
	"time"

	"bookassist/pkg/domain"
)

// Store defines persistence operations for users, sessions, lifecycle
// tokens, and the conversation log.
type Store interface {
	// users
	SaveUser(user domain.User) error
	HasUserEmail(email string) (bool, error)
	GetUserByEmail(email string) (domain.User, bool, error)
	GetUserByID(id string) (domain.User, bool, error)
	UpdatePasswordHash(userID, hash string) error
	UpdateLastLogin(userID string, at time.Time) error

	// sessions
	SaveSession(session domain.Session) error
	GetSessionByToken(token string) (domain.Session, bool, error)
	DeleteSessionByToken(token string) (bool, error)
	// DeleteSessionsByUser removes every session row for the user and
	// returns how many were deleted.
	DeleteSessionsByUser(userID string) (int, error)

	// lifecycle tokens
	// CreateLifecycleToken deletes all unused tokens of the kind for the
	// token's user and inserts the new one, in a single transaction, so at
	// most one live token per kind per user exists at any time.
	CreateLifecycleToken(kind domain.TokenKind, token domain.LifecycleToken) error
	GetLifecycleToken(kind domain.TokenKind, token string) (domain.LifecycleToken, bool, error)
	MarkLifecycleTokenUsed(kind domain.TokenKind, token string, at time.Time) (bool, error)
	// ConsumeVerificationToken marks the user verified and the token used
	// in a single transaction.
	ConsumeVerificationToken(userID, token string, at time.Time) error

	// conversation log
	AppendConversationTurn(turn domain.ConversationTurn) error
	ListConversationTurns(sessionID string, limit int) ([]domain.ConversationTurn, error)
}
