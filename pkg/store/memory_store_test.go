package store

import (
	"testing"
	"time"

	"bookassist/pkg/domain"
)

func TestMemoryStoreUserRoundTrip(t *testing.T) {
	s := NewMemoryStore()
	u := domain.User{ID: "u1", FullName: "Ada Lovelace", Email: "ada@example.com", IsActive: true}
	if err := s.SaveUser(u); err != nil {
		t.Fatalf("save: %v", err)
	}

	got, ok, err := s.GetUserByID("u1")
	if err != nil || !ok {
		t.Fatalf("get by id: ok=%v err=%v", ok, err)
	}
	if got.Email != u.Email || got.FullName != u.FullName {
		t.Fatalf("got %+v, want %+v", got, u)
	}

	got, ok, err = s.GetUserByEmail("ada@example.com")
	if err != nil || !ok {
		t.Fatalf("get by email: ok=%v err=%v", ok, err)
	}
	if got.ID != "u1" {
		t.Fatalf("got ID %q, want u1", got.ID)
	}

	exists, err := s.HasUserEmail("ada@example.com")
	if err != nil || !exists {
		t.Fatalf("has email: exists=%v err=%v", exists, err)
	}
	exists, err = s.HasUserEmail("nobody@example.com")
	if err != nil || exists {
		t.Fatalf("unknown email: exists=%v err=%v", exists, err)
	}
}

func TestMemoryStoreUserUpdates(t *testing.T) {
	s := NewMemoryStore()
	if err := s.SaveUser(domain.User{ID: "u1", Email: "u1@example.com", PasswordHash: "old"}); err != nil {
		t.Fatalf("save: %v", err)
	}

	if err := s.UpdatePasswordHash("u1", "new"); err != nil {
		t.Fatalf("update hash: %v", err)
	}
	at := time.Date(2026, 8, 29, 12, 0, 0, 0, time.UTC)
	if err := s.UpdateLastLogin("u1", at); err != nil {
		t.Fatalf("update last login: %v", err)
	}

	u, _, err := s.GetUserByID("u1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if u.PasswordHash != "new" {
		t.Fatalf("hash %q, want new", u.PasswordHash)
	}
	if u.LastLogin == nil || !u.LastLogin.Equal(at) {
		t.Fatalf("last login %v, want %v", u.LastLogin, at)
	}
}

func TestMemoryStoreSessions(t *testing.T) {
	s := NewMemoryStore()
	exp := time.Now().Add(time.Hour)
	for _, token := range []string{"t1", "t2"} {
		if err := s.SaveSession(domain.Session{ID: token, UserID: "u1", Token: token, ExpiresAt: exp}); err != nil {
			t.Fatalf("save: %v", err)
		}
	}
	if err := s.SaveSession(domain.Session{ID: "t3", UserID: "u2", Token: "t3", ExpiresAt: exp}); err != nil {
		t.Fatalf("save: %v", err)
	}

	got, ok, err := s.GetSessionByToken("t1")
	if err != nil || !ok {
		t.Fatalf("get: ok=%v err=%v", ok, err)
	}
	if got.UserID != "u1" {
		t.Fatalf("user %q, want u1", got.UserID)
	}

	deleted, err := s.DeleteSessionByToken("t1")
	if err != nil || !deleted {
		t.Fatalf("delete: deleted=%v err=%v", deleted, err)
	}
	deleted, err = s.DeleteSessionByToken("t1")
	if err != nil || deleted {
		t.Fatalf("second delete: deleted=%v err=%v", deleted, err)
	}

	count, err := s.DeleteSessionsByUser("u1")
	if err != nil {
		t.Fatalf("delete by user: %v", err)
	}
	if count != 1 {
		t.Fatalf("deleted %d, want 1", count)
	}
	if _, ok, _ := s.GetSessionByToken("t3"); !ok {
		t.Fatal("other user's session must survive")
	}
}

func TestMemoryStoreLifecycleTokenReplacement(t *testing.T) {
	s := NewMemoryStore()
	now := time.Now().UTC()
	mk := func(id, token string) domain.LifecycleToken {
		return domain.LifecycleToken{ID: id, UserID: "u1", Token: token, ExpiresAt: now.Add(time.Hour), CreatedAt: now}
	}

	if err := s.CreateLifecycleToken(domain.TokenKindReset, mk("1", "old")); err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := s.CreateLifecycleToken(domain.TokenKindReset, mk("2", "new")); err != nil {
		t.Fatalf("create: %v", err)
	}

	if _, ok, _ := s.GetLifecycleToken(domain.TokenKindReset, "old"); ok {
		t.Fatal("superseded token must be gone")
	}
	if _, ok, _ := s.GetLifecycleToken(domain.TokenKindReset, "new"); !ok {
		t.Fatal("fresh token missing")
	}

	// A used token is history, not superseded by later issues.
	if used, err := s.MarkLifecycleTokenUsed(domain.TokenKindReset, "new", now); err != nil || !used {
		t.Fatalf("mark used: used=%v err=%v", used, err)
	}
	if err := s.CreateLifecycleToken(domain.TokenKindReset, mk("3", "newer")); err != nil {
		t.Fatalf("create: %v", err)
	}
	record, ok, err := s.GetLifecycleToken(domain.TokenKindReset, "new")
	if err != nil || !ok {
		t.Fatalf("used token should persist: ok=%v err=%v", ok, err)
	}
	if !record.Used() {
		t.Fatal("used flag lost")
	}

	if used, _ := s.MarkLifecycleTokenUsed(domain.TokenKindReset, "new", now); used {
		t.Fatal("marking a used token again must report false")
	}

	if err := s.CreateLifecycleToken("bogus", mk("4", "x")); err == nil {
		t.Fatal("unknown kind must error")
	}
}

func TestMemoryStoreConsumeVerificationToken(t *testing.T) {
	s := NewMemoryStore()
	if err := s.SaveUser(domain.User{ID: "u1", Email: "u1@example.com"}); err != nil {
		t.Fatalf("save user: %v", err)
	}
	now := time.Now().UTC()
	token := domain.LifecycleToken{ID: "1", UserID: "u1", Token: "v", ExpiresAt: now.Add(time.Hour), CreatedAt: now}
	if err := s.CreateLifecycleToken(domain.TokenKindVerification, token); err != nil {
		t.Fatalf("create: %v", err)
	}

	if err := s.ConsumeVerificationToken("u1", "v", now); err != nil {
		t.Fatalf("consume: %v", err)
	}

	u, _, err := s.GetUserByID("u1")
	if err != nil {
		t.Fatalf("get user: %v", err)
	}
	if !u.EmailVerified || u.EmailVerifiedAt == nil {
		t.Fatalf("user not verified: %+v", u)
	}
	record, _, err := s.GetLifecycleToken(domain.TokenKindVerification, "v")
	if err != nil {
		t.Fatalf("get token: %v", err)
	}
	if !record.Used() {
		t.Fatal("token not marked used")
	}
}

func TestMemoryStoreConversationTurns(t *testing.T) {
	s := NewMemoryStore()
	base := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		turn := domain.ConversationTurn{
			ID:          string(rune('a' + i)),
			SessionID:   "s1",
			UserMessage: "q",
			CreatedAt:   base.Add(time.Duration(i) * time.Minute),
		}
		if err := s.AppendConversationTurn(turn); err != nil {
			t.Fatalf("append: %v", err)
		}
	}
	if err := s.AppendConversationTurn(domain.ConversationTurn{ID: "x", SessionID: "s2", CreatedAt: base}); err != nil {
		t.Fatalf("append: %v", err)
	}

	turns, err := s.ListConversationTurns("s1", 3)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(turns) != 3 {
		t.Fatalf("got %d turns, want 3", len(turns))
	}
	// Keeps the most recent N, oldest first.
	for i, want := range []string{"c", "d", "e"} {
		if turns[i].ID != want {
			t.Fatalf("turn %d ID %q, want %q", i, turns[i].ID, want)
		}
	}

	turns, err = s.ListConversationTurns("s1", 0)
	if err != nil {
		t.Fatalf("list limit 0: %v", err)
	}
	if len(turns) != 0 {
		t.Fatalf("limit 0 returned %d turns", len(turns))
	}

	turns, err = s.ListConversationTurns("unknown", 10)
	if err != nil || len(turns) != 0 {
		t.Fatalf("unknown session: %d turns err=%v", len(turns), err)
	}
}
