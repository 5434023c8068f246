// Package app wires storage, auth, retrieval, and generation into the
// service's use cases.
package app

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"bookassist/pkg/ai"
	"bookassist/pkg/auth"
	"bookassist/pkg/domain"
	"bookassist/pkg/mail"
	"bookassist/pkg/store"
	"bookassist/pkg/tokens"
	"bookassist/pkg/vectorindex"
)

// Config holds runtime dependencies and tunables for the core application.
type Config struct {
	Store      store.Store
	Sessions   *auth.SessionManager
	Tokens     *tokens.Manager
	Mailer     mail.Mailer
	Embedder   ai.Embedder
	Streamer   ai.ChatStreamer
	Index      vectorindex.Gateway
	Collection string
	TopK       int
	// HistoryLimit bounds how many prior conversation turns are replayed
	// into the completion call. Zero selects the default of 10 turns.
	HistoryLimit int
	Logger       *slog.Logger
}

// App is the core application service.
type App struct {
	store        store.Store
	sessions     *auth.SessionManager
	tokens       *tokens.Manager
	mailer       mail.Mailer
	embedder     ai.Embedder
	streamer     ai.ChatStreamer
	index        vectorindex.Gateway
	collection   string
	topK         int
	historyLimit int
	logger       *slog.Logger
	now          func() time.Time
}

const defaultHistoryLimit = 10

// New constructs the application service.
func New(cfg Config) (*App, error) {
	if cfg.Store == nil {
		return nil, fmt.Errorf("store required")
	}
	if cfg.Sessions == nil {
		return nil, fmt.Errorf("session manager required")
	}
	if cfg.Tokens == nil {
		return nil, fmt.Errorf("token manager required")
	}
	mailer := cfg.Mailer
	if mailer == nil {
		mailer = &mail.NopMailer{}
	}
	topK := cfg.TopK
	if topK <= 0 {
		topK = 5
	}
	historyLimit := cfg.HistoryLimit
	if historyLimit <= 0 {
		historyLimit = defaultHistoryLimit
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &App{
		store:        cfg.Store,
		sessions:     cfg.Sessions,
		tokens:       cfg.Tokens,
		mailer:       mailer,
		embedder:     cfg.Embedder,
		streamer:     cfg.Streamer,
		index:        cfg.Index,
		collection:   cfg.Collection,
		topK:         topK,
		historyLimit: historyLimit,
		logger:       logger,
		now:          time.Now,
	}, nil
}

// Register creates an account, emails a verification link, and opens a
// session so the user is signed in immediately.
func (a *App) Register(fullName, email, password string) (domain.User, string, error) {
	if err := auth.ValidateFullName(fullName); err != nil {
		return domain.User{}, "", domain.WrapError(domain.KindValidation, err.Error(), err)
	}
	email = strings.TrimSpace(strings.ToLower(email))
	if err := auth.ValidateEmail(email); err != nil {
		return domain.User{}, "", domain.WrapError(domain.KindValidation, err.Error(), err)
	}
	if err := auth.ValidatePassword(password); err != nil {
		return domain.User{}, "", domain.WrapError(domain.KindValidation, err.Error(), err)
	}

	exists, err := a.store.HasUserEmail(email)
	if err != nil {
		return domain.User{}, "", fmt.Errorf("check email: %w", err)
	}
	if exists {
		return domain.User{}, "", ErrEmailAlreadyRegistered
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return domain.User{}, "", fmt.Errorf("hash password: %w", err)
	}
	user := domain.User{
		ID:           uuid.NewString(),
		FullName:     auth.SanitizeName(fullName),
		Email:        email,
		PasswordHash: hash,
		IsActive:     true,
		CreatedAt:    a.now().UTC(),
	}
	if err := a.store.SaveUser(user); err != nil {
		return domain.User{}, "", fmt.Errorf("save user: %w", err)
	}

	a.sendVerificationEmail(user)

	token, err := a.sessions.CreateSession(user.ID)
	if err != nil {
		return domain.User{}, "", fmt.Errorf("create session: %w", err)
	}
	a.logger.Info("user registered", "user_id", user.ID)
	return user, token, nil
}

// Login authenticates credentials and opens a session.
func (a *App) Login(email, password string) (domain.User, string, error) {
	email = strings.TrimSpace(strings.ToLower(email))
	user, ok, err := a.store.GetUserByEmail(email)
	if err != nil {
		return domain.User{}, "", fmt.Errorf("fetch user: %w", err)
	}
	if !ok || !auth.CheckPassword(password, user.PasswordHash) {
		return domain.User{}, "", ErrInvalidCredentials
	}
	if !user.IsActive {
		return domain.User{}, "", ErrAccountInactive
	}

	now := a.now().UTC()
	if err := a.store.UpdateLastLogin(user.ID, now); err != nil {
		return domain.User{}, "", fmt.Errorf("update last login: %w", err)
	}
	user.LastLogin = &now

	token, err := a.sessions.CreateSession(user.ID)
	if err != nil {
		return domain.User{}, "", fmt.Errorf("create session: %w", err)
	}
	return user, token, nil
}

// Logout deletes the session behind the token. Deleting an unknown token
// is not an error.
func (a *App) Logout(token string) error {
	if _, err := a.sessions.DeleteSession(token); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

// Authenticate resolves the user behind a bearer token.
func (a *App) Authenticate(token string) (domain.User, error) {
	user, ok, err := a.sessions.VerifySession(token)
	if err != nil {
		return domain.User{}, fmt.Errorf("verify session: %w", err)
	}
	if !ok {
		return domain.User{}, ErrInvalidSession
	}
	if !user.IsActive {
		return domain.User{}, ErrAccountInactive
	}
	return user, nil
}

// VerifyEmail consumes a verification token, marking the account verified.
func (a *App) VerifyEmail(token string) (domain.User, error) {
	user, ok, err := a.tokens.ConsumeForVerification(token)
	if err != nil {
		return domain.User{}, fmt.Errorf("verify email: %w", err)
	}
	if !ok {
		return domain.User{}, ErrInvalidVerificationToken
	}
	return user, nil
}

// ResendVerification issues a fresh verification token for an unverified
// account and emails it.
func (a *App) ResendVerification(user domain.User) error {
	if user.EmailVerified {
		return ErrEmailAlreadyVerified
	}
	a.sendVerificationEmail(user)
	return nil
}

// ForgotPassword starts a password reset. It always reports success so
// responses cannot be used to probe which emails have accounts.
func (a *App) ForgotPassword(email string) error {
	email = strings.TrimSpace(strings.ToLower(email))
	if err := auth.ValidateEmail(email); err != nil {
		return nil
	}
	user, ok, err := a.store.GetUserByEmail(email)
	if err != nil {
		a.logger.Error("forgot password lookup failed", "error", err)
		return nil
	}
	if !ok {
		return nil
	}

	token, err := a.tokens.Issue(domain.TokenKindReset, user.ID)
	if err != nil {
		a.logger.Error("issue reset token failed", "user_id", user.ID, "error", err)
		return nil
	}
	// Delivery failure is logged, never surfaced, so the response stays
	// indistinguishable from the unknown-email case.
	if err := a.mailer.SendPasswordReset(user.Email, token); err != nil {
		a.logger.Error("send reset email failed", "user_id", user.ID, "error", err)
	}
	return nil
}

// ResetPassword completes a reset: validates the new password, swaps the
// hash, consumes the token, and invalidates every session for the user.
func (a *App) ResetPassword(token, password string) error {
	if err := auth.ValidatePassword(password); err != nil {
		return domain.WrapError(domain.KindValidation, err.Error(), err)
	}
	user, ok, err := a.tokens.ValidateForReset(token)
	if err != nil {
		return fmt.Errorf("validate reset token: %w", err)
	}
	if !ok {
		return ErrInvalidResetToken
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	if err := a.store.UpdatePasswordHash(user.ID, hash); err != nil {
		return fmt.Errorf("update password: %w", err)
	}
	if _, err := a.tokens.MarkUsed(token); err != nil {
		return fmt.Errorf("mark token used: %w", err)
	}
	deleted, err := a.tokens.InvalidateAllSessions(user.ID)
	if err != nil {
		return fmt.Errorf("invalidate sessions: %w", err)
	}
	a.logger.Info("password reset", "user_id", user.ID, "sessions_invalidated", deleted)
	return nil
}

func (a *App) sendVerificationEmail(user domain.User) {
	token, err := a.tokens.Issue(domain.TokenKindVerification, user.ID)
	if err != nil {
		a.logger.Error("issue verification token failed", "user_id", user.ID, "error", err)
		return
	}
	if err := a.mailer.SendVerification(user.Email, token); err != nil {
		a.logger.Error("send verification email failed", "user_id", user.ID, "error", err)
	}
}
