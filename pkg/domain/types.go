package domain

import "time"

// User is a registered account.
type User struct {
	ID              string     `json:"id"`
	FullName        string     `json:"fullName"`
	Email           string     `json:"email"`
	PasswordHash    string     `json:"-"`
	IsActive        bool       `json:"isActive"`
	EmailVerified   bool       `json:"emailVerified"`
	EmailVerifiedAt *time.Time `json:"emailVerifiedAt,omitempty"`
	CreatedAt       time.Time  `json:"createdAt"`
	LastLogin       *time.Time `json:"lastLogin,omitempty"`
}

// Session is a durable login session backing a signed token.
// The token signature alone never authorizes a request; the row must exist.
type Session struct {
	ID        string    `json:"id"`
	UserID    string    `json:"userId"`
	Token     string    `json:"-"`
	ExpiresAt time.Time `json:"expiresAt"`
	CreatedAt time.Time `json:"createdAt"`
}

// TokenKind selects a one-time token table and expiry window.
type TokenKind string

const (
	TokenKindVerification TokenKind = "verification"
	TokenKindReset        TokenKind = "reset"
)

// LifecycleToken is an email-verification or password-reset token.
// It transitions unused -> used exactly once; expired or used tokens are inert.
type LifecycleToken struct {
	ID        string     `json:"id"`
	UserID    string     `json:"userId"`
	Token     string     `json:"-"`
	ExpiresAt time.Time  `json:"expiresAt"`
	CreatedAt time.Time  `json:"createdAt"`
	UsedAt    *time.Time `json:"usedAt,omitempty"`
}

// Used reports whether the token has been consumed.
func (t LifecycleToken) Used() bool {
	return t.UsedAt != nil
}

// Chunk is one heading-bounded section of a book document.
// Identity is deterministic: re-ingesting unchanged content yields the same ID.
type Chunk struct {
	ID                  string `json:"id"`
	Text                string `json:"text"`
	SourceFile          string `json:"sourceFile"`
	Title               string `json:"title"`
	Heading             string `json:"heading"`
	SequenceIndex       int    `json:"sequenceIndex"`
	TotalChunksInSource int    `json:"totalChunksInSource"`
}

// RetrievedChunk is a request-scoped projection of an index hit.
type RetrievedChunk struct {
	Text     string            `json:"text"`
	Score    float32           `json:"score"`
	Metadata map[string]string `json:"metadata"`
}

// ConversationTurn records one completed chat exchange. Append-only; the
// (sessionId, userMessage, assistantMessage, contextUsed, selectedText,
// createdAt) shape is depended on by downstream analytics.
type ConversationTurn struct {
	ID               string    `json:"id"`
	SessionID        string    `json:"sessionId"`
	UserMessage      string    `json:"userMessage"`
	AssistantMessage string    `json:"assistantMessage"`
	ContextUsed      string    `json:"contextUsed,omitempty"`
	SelectedText     string    `json:"selectedText,omitempty"`
	Sources          []Source  `json:"sources,omitempty"`
	CreatedAt        time.Time `json:"createdAt"`
}

// Source annotates where a retrieved context chunk came from.
type Source struct {
	SourceFile string  `json:"sourceFile"`
	Title      string  `json:"title,omitempty"`
	Heading    string  `json:"heading,omitempty"`
	Score      float32 `json:"score"`
}
