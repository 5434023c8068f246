package store

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"bookassist/pkg/domain"
)

// MemoryStore is an in-memory Store for tests and local development.
type MemoryStore struct {
	mu                 sync.Mutex
	users              map[string]domain.User
	sessions           map[string]domain.Session // token -> session
	verificationTokens map[string]domain.LifecycleToken
	resetTokens        map[string]domain.LifecycleToken
	turns              []domain.ConversationTurn
}

// NewMemoryStore constructs an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		users:              make(map[string]domain.User),
		sessions:           make(map[string]domain.Session),
		verificationTokens: make(map[string]domain.LifecycleToken),
		resetTokens:        make(map[string]domain.LifecycleToken),
	}
}

// SaveUser inserts or updates a user.
func (s *MemoryStore) SaveUser(u domain.User) error {
	s.mu.Lock()
	s.users[u.ID] = u
	s.mu.Unlock()
	return nil
}

// HasUserEmail checks if email exists.
func (s *MemoryStore) HasUserEmail(email string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.Email == email {
			return true, nil
		}
	}
	return false, nil
}

// GetUserByEmail looks up a user by email.
func (s *MemoryStore) GetUserByEmail(email string) (domain.User, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.Email == email {
			return u, true, nil
		}
	}
	return domain.User{}, false, nil
}

// GetUserByID returns a user by ID.
func (s *MemoryStore) GetUserByID(id string) (domain.User, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	return u, ok, nil
}

// UpdatePasswordHash replaces the stored password hash.
func (s *MemoryStore) UpdatePasswordHash(userID, hash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[userID]
	if !ok {
		return nil
	}
	u.PasswordHash = hash
	s.users[userID] = u
	return nil
}

// UpdateLastLogin records the most recent login time.
func (s *MemoryStore) UpdateLastLogin(userID string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[userID]
	if !ok {
		return nil
	}
	at = at.UTC()
	u.LastLogin = &at
	s.users[userID] = u
	return nil
}

// SaveSession inserts a session row.
func (s *MemoryStore) SaveSession(session domain.Session) error {
	s.mu.Lock()
	s.sessions[session.Token] = session
	s.mu.Unlock()
	return nil
}

// GetSessionByToken returns the session row for a token.
func (s *MemoryStore) GetSessionByToken(token string) (domain.Session, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	session, ok := s.sessions[token]
	return session, ok, nil
}

// DeleteSessionByToken removes a session row, reporting whether it existed.
func (s *MemoryStore) DeleteSessionByToken(token string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.sessions[token]
	delete(s.sessions, token)
	return ok, nil
}

// DeleteSessionsByUser removes every session for a user.
func (s *MemoryStore) DeleteSessionsByUser(userID string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	count := 0
	for token, session := range s.sessions {
		if session.UserID == userID {
			delete(s.sessions, token)
			count++
		}
	}
	return count, nil
}

func (s *MemoryStore) tokensByKind(kind domain.TokenKind) (map[string]domain.LifecycleToken, error) {
	switch kind {
	case domain.TokenKindVerification:
		return s.verificationTokens, nil
	case domain.TokenKindReset:
		return s.resetTokens, nil
	}
	return nil, fmt.Errorf("unknown token kind: %s", kind)
}

// CreateLifecycleToken replaces unused tokens of the kind for the user.
func (s *MemoryStore) CreateLifecycleToken(kind domain.TokenKind, token domain.LifecycleToken) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	tokens, err := s.tokensByKind(kind)
	if err != nil {
		return err
	}
	for key, t := range tokens {
		if t.UserID == token.UserID && !t.Used() {
			delete(tokens, key)
		}
	}
	tokens[token.Token] = token
	return nil
}

// GetLifecycleToken looks up a token of the given kind.
func (s *MemoryStore) GetLifecycleToken(kind domain.TokenKind, token string) (domain.LifecycleToken, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	tokens, err := s.tokensByKind(kind)
	if err != nil {
		return domain.LifecycleToken{}, false, err
	}
	t, ok := tokens[token]
	return t, ok, nil
}

// MarkLifecycleTokenUsed stamps used_at on an unused token.
func (s *MemoryStore) MarkLifecycleTokenUsed(kind domain.TokenKind, token string, at time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	tokens, err := s.tokensByKind(kind)
	if err != nil {
		return false, err
	}
	t, ok := tokens[token]
	if !ok || t.Used() {
		return false, nil
	}
	at = at.UTC()
	t.UsedAt = &at
	tokens[token] = t
	return true, nil
}

// ConsumeVerificationToken marks the user verified and the token used.
func (s *MemoryStore) ConsumeVerificationToken(userID, token string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	at = at.UTC()
	if u, ok := s.users[userID]; ok {
		u.EmailVerified = true
		u.EmailVerifiedAt = &at
		s.users[userID] = u
	}
	if t, ok := s.verificationTokens[token]; ok && !t.Used() {
		t.UsedAt = &at
		s.verificationTokens[token] = t
	}
	return nil
}

// AppendConversationTurn records a completed chat exchange.
func (s *MemoryStore) AppendConversationTurn(turn domain.ConversationTurn) error {
	s.mu.Lock()
	s.turns = append(s.turns, turn)
	s.mu.Unlock()
	return nil
}

// ListConversationTurns returns recent turns in chronological order.
func (s *MemoryStore) ListConversationTurns(sessionID string, limit int) ([]domain.ConversationTurn, error) {
	if limit <= 0 {
		return []domain.ConversationTurn{}, nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	matched := make([]domain.ConversationTurn, 0)
	for _, turn := range s.turns {
		if turn.SessionID == sessionID {
			matched = append(matched, turn)
		}
	}
	sort.SliceStable(matched, func(i, j int) bool {
		return matched[i].CreatedAt.Before(matched[j].CreatedAt)
	})
	if len(matched) > limit {
		matched = matched[len(matched)-limit:]
	}
	return matched, nil
}
