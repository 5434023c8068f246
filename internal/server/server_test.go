package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"

	"bookassist/internal/app"
	"bookassist/internal/ratelimit"
	"bookassist/pkg/ai"
	"bookassist/pkg/auth"
	"bookassist/pkg/mail"
	"bookassist/pkg/store"
	"bookassist/pkg/tokens"
	"bookassist/pkg/vectorindex"
)

type stubEmbedder struct{}

func (stubEmbedder) Embed(context.Context, string) ([]float32, error) {
	return []float32{0.5}, nil
}

func (stubEmbedder) EmbedBatch(_ context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i := range out {
		out[i] = []float32{0.5}
	}
	return out, nil
}

type stubIndex struct{}

func (stubIndex) EnsureCollection(context.Context, string, int) error       { return nil }
func (stubIndex) Upsert(context.Context, string, []vectorindex.Point) error { return nil }
func (stubIndex) Search(context.Context, string, []float32, int) ([]vectorindex.Hit, error) {
	return []vectorindex.Hit{{
		ID:      "p1",
		Score:   0.8,
		Payload: map[string]string{"text": "chunk text", "source": "ch01.md"},
	}}, nil
}

type stubStreamer struct {
	fragments []string
	err       error
}

func (s stubStreamer) StreamChat(context.Context, []ai.ChatMessage) (*ai.ChatStream, error) {
	return ai.NewScriptedStream(s.err, s.fragments...), nil
}

type testEnv struct {
	server *Server
	mailer *mail.NopMailer
}

func newTestServer(t *testing.T, limits Limiters) *testEnv {
	t.Helper()
	st := store.NewMemoryStore()
	sessions, err := auth.NewSessionManager(st, "test-secret", 0)
	if err != nil {
		t.Fatalf("session manager: %v", err)
	}
	tokenMgr, err := tokens.NewManager(st)
	if err != nil {
		t.Fatalf("token manager: %v", err)
	}
	mailer := &mail.NopMailer{}
	a, err := app.New(app.Config{
		Store:      st,
		Sessions:   sessions,
		Tokens:     tokenMgr,
		Mailer:     mailer,
		Embedder:   stubEmbedder{},
		Streamer:   stubStreamer{fragments: []string{"Hello ", "world."}},
		Index:      stubIndex{},
		Collection: "book",
	})
	if err != nil {
		t.Fatalf("new app: %v", err)
	}
	return &testEnv{server: New(Config{App: a, Limits: limits}), mailer: mailer}
}

func doJSON(t *testing.T, s *Server, method, path, body, bearer string) *httptest.ResponseRecorder {
	t.Helper()
	var reader *strings.Reader
	if body == "" {
		reader = strings.NewReader("{}")
	} else {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)
	return rec
}

func register(t *testing.T, env *testEnv, email string) (userID, token string) {
	t.Helper()
	rec := doJSON(t, env.server, http.MethodPost, "/api/auth/register",
		`{"full_name":"Test User","email":"`+email+`","password":"secret123!"}`, "")
	if rec.Code != http.StatusCreated {
		t.Fatalf("register status = %d, body %s", rec.Code, rec.Body.String())
	}
	var resp struct {
		Token string `json:"token"`
		User  struct {
			ID string `json:"id"`
		} `json:"user"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode register response: %v", err)
	}
	return resp.User.ID, resp.Token
}

func TestHealth(t *testing.T) {
	env := newTestServer(t, Limiters{})
	rec := doJSON(t, env.server, http.MethodGet, "/api/health", "", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("health status = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"status":"ok"`) {
		t.Fatalf("health body = %s", rec.Body.String())
	}
}

func TestRegisterLoginMeFlow(t *testing.T) {
	env := newTestServer(t, Limiters{})
	userID, token := register(t, env, "flow@example.com")

	rec := doJSON(t, env.server, http.MethodGet, "/api/auth/me", "", token)
	if rec.Code != http.StatusOK {
		t.Fatalf("me status = %d, body %s", rec.Code, rec.Body.String())
	}
	if !strings.Contains(rec.Body.String(), userID) {
		t.Fatalf("me body missing user id: %s", rec.Body.String())
	}

	rec = doJSON(t, env.server, http.MethodPost, "/api/auth/login",
		`{"email":"flow@example.com","password":"secret123!"}`, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("login status = %d, body %s", rec.Code, rec.Body.String())
	}
}

func TestRegisterDuplicateEmailConflict(t *testing.T) {
	env := newTestServer(t, Limiters{})
	register(t, env, "x@test.com")

	rec := doJSON(t, env.server, http.MethodPost, "/api/auth/register",
		`{"full_name":"Test User","email":"X@Test.com","password":"secret123!"}`, "")
	if rec.Code != http.StatusConflict {
		t.Fatalf("duplicate register status = %d, want 409", rec.Code)
	}
}

func TestLoginBadCredentials(t *testing.T) {
	env := newTestServer(t, Limiters{})
	register(t, env, "who@example.com")

	rec := doJSON(t, env.server, http.MethodPost, "/api/auth/login",
		`{"email":"who@example.com","password":"wrongpass1!"}`, "")
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("login status = %d, want 401", rec.Code)
	}
}

func TestMeRequiresAuth(t *testing.T) {
	env := newTestServer(t, Limiters{})
	rec := doJSON(t, env.server, http.MethodGet, "/api/auth/me", "", "")
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("me status = %d, want 401", rec.Code)
	}
}

func TestLogoutThenMe(t *testing.T) {
	env := newTestServer(t, Limiters{})
	_, token := register(t, env, "bye@example.com")

	rec := doJSON(t, env.server, http.MethodPost, "/api/auth/logout", "", token)
	if rec.Code != http.StatusOK {
		t.Fatalf("logout status = %d", rec.Code)
	}
	rec = doJSON(t, env.server, http.MethodGet, "/api/auth/me", "", token)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("me after logout = %d, want 401", rec.Code)
	}
}

func TestVerifyEmailEndpoint(t *testing.T) {
	env := newTestServer(t, Limiters{})
	register(t, env, "verify@example.com")

	if len(env.mailer.Verifications) != 1 {
		t.Fatalf("expected 1 verification email, got %d", len(env.mailer.Verifications))
	}
	token := strings.SplitN(env.mailer.Verifications[0], ":", 2)[1]

	rec := doJSON(t, env.server, http.MethodPost, "/api/auth/verify-email",
		`{"token":"`+token+`"}`, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("verify status = %d, body %s", rec.Code, rec.Body.String())
	}
	if !strings.Contains(rec.Body.String(), `"emailVerified":true`) {
		t.Fatalf("verify body = %s", rec.Body.String())
	}

	rec = doJSON(t, env.server, http.MethodPost, "/api/auth/verify-email",
		`{"token":"`+token+`"}`, "")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("reused token status = %d, want 400", rec.Code)
	}
}

func TestForgotAndResetPasswordEndpoints(t *testing.T) {
	env := newTestServer(t, Limiters{})
	register(t, env, "reset@example.com")

	rec := doJSON(t, env.server, http.MethodPost, "/api/auth/forgot-password",
		`{"email":"unknown@example.com"}`, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("forgot (unknown) status = %d, want 200", rec.Code)
	}

	rec = doJSON(t, env.server, http.MethodPost, "/api/auth/forgot-password",
		`{"email":"reset@example.com"}`, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("forgot status = %d", rec.Code)
	}
	if len(env.mailer.Resets) != 1 {
		t.Fatalf("expected 1 reset email, got %d", len(env.mailer.Resets))
	}
	token := strings.SplitN(env.mailer.Resets[0], ":", 2)[1]

	rec = doJSON(t, env.server, http.MethodPost, "/api/auth/reset-password",
		`{"token":"`+token+`","password":"brandnew1!"}`, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("reset status = %d, body %s", rec.Code, rec.Body.String())
	}

	rec = doJSON(t, env.server, http.MethodPost, "/api/auth/reset-password",
		`{"token":"bogus","password":"brandnew1!"}`, "")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("bogus token status = %d, want 400", rec.Code)
	}
}

func TestResendVerificationRequiresAuth(t *testing.T) {
	env := newTestServer(t, Limiters{})
	rec := doJSON(t, env.server, http.MethodPost, "/api/auth/resend-verification", "", "")
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("resend status = %d, want 401", rec.Code)
	}

	_, token := register(t, env, "resend@example.com")
	rec = doJSON(t, env.server, http.MethodPost, "/api/auth/resend-verification", "", token)
	if rec.Code != http.StatusOK {
		t.Fatalf("resend status = %d, body %s", rec.Code, rec.Body.String())
	}
	if len(env.mailer.Verifications) != 2 {
		t.Fatalf("expected 2 verification emails, got %d", len(env.mailer.Verifications))
	}
}

func TestChatStreamsPlainText(t *testing.T) {
	env := newTestServer(t, Limiters{})
	rec := doJSON(t, env.server, http.MethodPost, "/api/chat",
		`{"message":"What is a process?","session_id":"s1"}`, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("chat status = %d, body %s", rec.Code, rec.Body.String())
	}
	if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/plain") {
		t.Fatalf("content-type = %q", ct)
	}
	if rec.Body.String() != "Hello world." {
		t.Fatalf("chat body = %q", rec.Body.String())
	}
}

func TestChatValidation(t *testing.T) {
	env := newTestServer(t, Limiters{})
	rec := doJSON(t, env.server, http.MethodPost, "/api/chat", `{"session_id":"s1"}`, "")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("chat without message = %d, want 400", rec.Code)
	}
	rec = doJSON(t, env.server, http.MethodPost, "/api/chat", `{"message":"hi"}`, "")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("chat without session = %d, want 400", rec.Code)
	}
}

func TestRegisterRateLimited(t *testing.T) {
	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	limiter, err := ratelimit.NewFixedWindowLimiter(client, "register", 2, time.Hour)
	if err != nil {
		t.Fatalf("new limiter: %v", err)
	}
	env := newTestServer(t, Limiters{Register: limiter})

	register(t, env, "one@example.com")
	register(t, env, "two@example.com")
	rec := doJSON(t, env.server, http.MethodPost, "/api/auth/register",
		`{"full_name":"Test User","email":"three@example.com","password":"secret123!"}`, "")
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("third register = %d, want 429", rec.Code)
	}
}

func TestStatusForError(t *testing.T) {
	if got := statusForError(app.ErrAccountInactive); got != http.StatusForbidden {
		t.Fatalf("inactive = %d, want 403", got)
	}
	if got := statusForError(app.ErrInvalidCredentials); got != http.StatusUnauthorized {
		t.Fatalf("credentials = %d, want 401", got)
	}
	if got := statusForError(app.ErrEmailAlreadyRegistered); got != http.StatusConflict {
		t.Fatalf("conflict = %d, want 409", got)
	}
	if got := statusForError(errors.New("boom")); got != http.StatusInternalServerError {
		t.Fatalf("unknown = %d, want 500", got)
	}
}
