package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"bookassist/pkg/domain"
)

const migrateLockID int64 = 52815281

// GormStore implements Store using GORM + Postgres.
type GormStore struct {
	db *gorm.DB
}

// NewGormStore opens the DB and runs auto-migrations.
func NewGormStore(dsn string) (*GormStore, error) {
	gormLog := gormlogger.New(
		log.New(os.Stdout, "\r\n", log.LstdFlags),
		gormlogger.Config{
			SlowThreshold:             time.Second,
			LogLevel:                  gormlogger.Warn,
			IgnoreRecordNotFoundError: true,
			Colorful:                  false,
		},
	)
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{Logger: gormLog})
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if err := withMigrationLock(db, func(tx *gorm.DB) error {
		if err := tx.AutoMigrate(
			&UserModel{},
			&SessionModel{},
			&EmailVerificationTokenModel{},
			&PasswordResetTokenModel{},
			&ConversationTurnModel{},
		); err != nil {
			return fmt.Errorf("auto migrate: %w", err)
		}
		return nil
	}); err != nil {
		return nil, err
	}
	return &GormStore{db: db}, nil
}

func withMigrationLock(db *gorm.DB, fn func(*gorm.DB) error) error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("get sql db: %w", err)
	}
	conn, err := sqlDB.Conn(ctx)
	if err != nil {
		return fmt.Errorf("open sql conn: %w", err)
	}
	defer conn.Close()
	if err := execAdvisory(ctx, conn, "SELECT pg_advisory_lock($1)", migrateLockID); err != nil {
		return fmt.Errorf("acquire migrate lock: %w", err)
	}
	defer func() {
		_ = execAdvisory(ctx, conn, "SELECT pg_advisory_unlock($1)", migrateLockID)
	}()
	return fn(db)
}

func execAdvisory(ctx context.Context, conn *sql.Conn, query string, lockID int64) error {
	_, err := conn.ExecContext(ctx, query, lockID)
	return err
}

// SaveUser inserts or updates a user.
func (s *GormStore) SaveUser(u domain.User) error {
	model := userToModel(u)
	return s.db.Save(&model).Error
}

// HasUserEmail checks if email exists.
func (s *GormStore) HasUserEmail(email string) (bool, error) {
	var count int64
	if err := s.db.Model(&UserModel{}).Where("email = ?", email).Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// GetUserByEmail looks up a user by email.
func (s *GormStore) GetUserByEmail(email string) (domain.User, bool, error) {
	var model UserModel
	if err := s.db.Where("email = ?", email).First(&model).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return domain.User{}, false, nil
		}
		return domain.User{}, false, err
	}
	return userFromModel(model), true, nil
}

// GetUserByID returns a user by ID.
func (s *GormStore) GetUserByID(id string) (domain.User, bool, error) {
	var model UserModel
	if err := s.db.First(&model, "id = ?", id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return domain.User{}, false, nil
		}
		return domain.User{}, false, err
	}
	return userFromModel(model), true, nil
}

// UpdatePasswordHash replaces the stored password hash.
func (s *GormStore) UpdatePasswordHash(userID, hash string) error {
	return s.db.Model(&UserModel{}).Where("id = ?", userID).
		Update("password_hash", hash).Error
}

// UpdateLastLogin records the most recent login time.
func (s *GormStore) UpdateLastLogin(userID string, at time.Time) error {
	return s.db.Model(&UserModel{}).Where("id = ?", userID).
		Update("last_login", at.UTC()).Error
}

// SaveSession inserts a session row.
func (s *GormStore) SaveSession(session domain.Session) error {
	model := sessionToModel(session)
	return s.db.Create(&model).Error
}

// GetSessionByToken returns the session row for a token.
func (s *GormStore) GetSessionByToken(token string) (domain.Session, bool, error) {
	var model SessionModel
	if err := s.db.Where("token = ?", token).First(&model).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return domain.Session{}, false, nil
		}
		return domain.Session{}, false, err
	}
	return sessionFromModel(model), true, nil
}

// DeleteSessionByToken removes a session row, reporting whether it existed.
func (s *GormStore) DeleteSessionByToken(token string) (bool, error) {
	res := s.db.Delete(&SessionModel{}, "token = ?", token)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// DeleteSessionsByUser removes every session for a user.
func (s *GormStore) DeleteSessionsByUser(userID string) (int, error) {
	res := s.db.Delete(&SessionModel{}, "user_id = ?", userID)
	if res.Error != nil {
		return 0, res.Error
	}
	return int(res.RowsAffected), nil
}

// CreateLifecycleToken replaces any unused tokens of the kind for the user
// with the new one, transactionally.
func (s *GormStore) CreateLifecycleToken(kind domain.TokenKind, token domain.LifecycleToken) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		switch kind {
		case domain.TokenKindVerification:
			if err := tx.Delete(&EmailVerificationTokenModel{}, "user_id = ? AND used_at IS NULL", token.UserID).Error; err != nil {
				return err
			}
			model := verificationTokenToModel(token)
			return tx.Create(&model).Error
		case domain.TokenKindReset:
			if err := tx.Delete(&PasswordResetTokenModel{}, "user_id = ? AND used_at IS NULL", token.UserID).Error; err != nil {
				return err
			}
			model := resetTokenToModel(token)
			return tx.Create(&model).Error
		}
		return fmt.Errorf("unknown token kind: %s", kind)
	})
}

// GetLifecycleToken looks up a token of the given kind.
func (s *GormStore) GetLifecycleToken(kind domain.TokenKind, token string) (domain.LifecycleToken, bool, error) {
	switch kind {
	case domain.TokenKindVerification:
		var model EmailVerificationTokenModel
		if err := s.db.Where("token = ?", token).First(&model).Error; err != nil {
			if err == gorm.ErrRecordNotFound {
				return domain.LifecycleToken{}, false, nil
			}
			return domain.LifecycleToken{}, false, err
		}
		return verificationTokenFromModel(model), true, nil
	case domain.TokenKindReset:
		var model PasswordResetTokenModel
		if err := s.db.Where("token = ?", token).First(&model).Error; err != nil {
			if err == gorm.ErrRecordNotFound {
				return domain.LifecycleToken{}, false, nil
			}
			return domain.LifecycleToken{}, false, err
		}
		return resetTokenFromModel(model), true, nil
	}
	return domain.LifecycleToken{}, false, fmt.Errorf("unknown token kind: %s", kind)
}

// MarkLifecycleTokenUsed stamps used_at on an unused token.
func (s *GormStore) MarkLifecycleTokenUsed(kind domain.TokenKind, token string, at time.Time) (bool, error) {
	at = at.UTC()
	var res *gorm.DB
	switch kind {
	case domain.TokenKindVerification:
		res = s.db.Model(&EmailVerificationTokenModel{}).
			Where("token = ? AND used_at IS NULL", token).
			Update("used_at", at)
	case domain.TokenKindReset:
		res = s.db.Model(&PasswordResetTokenModel{}).
			Where("token = ? AND used_at IS NULL", token).
			Update("used_at", at)
	default:
		return false, fmt.Errorf("unknown token kind: %s", kind)
	}
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// ConsumeVerificationToken marks the user verified and the token used in
// one transaction.
func (s *GormStore) ConsumeVerificationToken(userID, token string, at time.Time) error {
	at = at.UTC()
	return s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&UserModel{}).Where("id = ?", userID).
			Updates(map[string]any{
				"email_verified":    true,
				"email_verified_at": at,
			}).Error; err != nil {
			return err
		}
		return tx.Model(&EmailVerificationTokenModel{}).
			Where("token = ? AND used_at IS NULL", token).
			Update("used_at", at).Error
	})
}

// AppendConversationTurn records a completed chat exchange.
func (s *GormStore) AppendConversationTurn(turn domain.ConversationTurn) error {
	model := conversationTurnToModel(turn)
	return s.db.Create(&model).Error
}

// ListConversationTurns returns recent turns for a chat session in
// chronological order.
func (s *GormStore) ListConversationTurns(sessionID string, limit int) ([]domain.ConversationTurn, error) {
	if limit <= 0 {
		return []domain.ConversationTurn{}, nil
	}
	var models []ConversationTurnModel
	if err := s.db.Where("session_id = ?", sessionID).
		Order("created_at DESC").
		Limit(limit).
		Find(&models).Error; err != nil {
		return nil, err
	}
	turns := make([]domain.ConversationTurn, 0, len(models))
	for i := len(models) - 1; i >= 0; i-- {
		turns = append(turns, conversationTurnFromModel(models[i]))
	}
	return turns, nil
}

func userToModel(u domain.User) UserModel {
	return UserModel{
		ID:              u.ID,
		FullName:        u.FullName,
		Email:           u.Email,
		PasswordHash:    u.PasswordHash,
		IsActive:        u.IsActive,
		EmailVerified:   u.EmailVerified,
		EmailVerifiedAt: u.EmailVerifiedAt,
		CreatedAt:       u.CreatedAt,
		LastLogin:       u.LastLogin,
	}
}

func userFromModel(m UserModel) domain.User {
	return domain.User{
		ID:              m.ID,
		FullName:        m.FullName,
		Email:           m.Email,
		PasswordHash:    m.PasswordHash,
		IsActive:        m.IsActive,
		EmailVerified:   m.EmailVerified,
		EmailVerifiedAt: m.EmailVerifiedAt,
		CreatedAt:       m.CreatedAt,
		LastLogin:       m.LastLogin,
	}
}

func sessionToModel(s domain.Session) SessionModel {
	return SessionModel{
		ID:        s.ID,
		UserID:    s.UserID,
		Token:     s.Token,
		ExpiresAt: s.ExpiresAt,
		CreatedAt: s.CreatedAt,
	}
}

func sessionFromModel(m SessionModel) domain.Session {
	return domain.Session{
		ID:        m.ID,
		UserID:    m.UserID,
		Token:     m.Token,
		ExpiresAt: m.ExpiresAt,
		CreatedAt: m.CreatedAt,
	}
}

func verificationTokenToModel(t domain.LifecycleToken) EmailVerificationTokenModel {
	return EmailVerificationTokenModel{
		ID:        t.ID,
		UserID:    t.UserID,
		Token:     t.Token,
		ExpiresAt: t.ExpiresAt,
		CreatedAt: t.CreatedAt,
		UsedAt:    t.UsedAt,
	}
}

func verificationTokenFromModel(m EmailVerificationTokenModel) domain.LifecycleToken {
	return domain.LifecycleToken{
		ID:        m.ID,
		UserID:    m.UserID,
		Token:     m.Token,
		ExpiresAt: m.ExpiresAt,
		CreatedAt: m.CreatedAt,
		UsedAt:    m.UsedAt,
	}
}

func resetTokenToModel(t domain.LifecycleToken) PasswordResetTokenModel {
	return PasswordResetTokenModel{
		ID:        t.ID,
		UserID:    t.UserID,
		Token:     t.Token,
		ExpiresAt: t.ExpiresAt,
		CreatedAt: t.CreatedAt,
		UsedAt:    t.UsedAt,
	}
}

func resetTokenFromModel(m PasswordResetTokenModel) domain.LifecycleToken {
	return domain.LifecycleToken{
		ID:        m.ID,
		UserID:    m.UserID,
		Token:     m.Token,
		ExpiresAt: m.ExpiresAt,
		CreatedAt: m.CreatedAt,
		UsedAt:    m.UsedAt,
	}
}

func conversationTurnToModel(t domain.ConversationTurn) ConversationTurnModel {
	rawSources, _ := json.Marshal(t.Sources)
	return ConversationTurnModel{
		ID:               t.ID,
		SessionID:        t.SessionID,
		UserMessage:      t.UserMessage,
		AssistantMessage: t.AssistantMessage,
		ContextUsed:      t.ContextUsed,
		SelectedText:     t.SelectedText,
		Sources:          rawSources,
		CreatedAt:        t.CreatedAt,
	}
}

func conversationTurnFromModel(m ConversationTurnModel) domain.ConversationTurn {
	var sources []domain.Source
	if len(m.Sources) > 0 {
		_ = json.Unmarshal(m.Sources, &sources)
	}
	return domain.ConversationTurn{
		ID:               m.ID,
		SessionID:        m.SessionID,
		UserMessage:      m.UserMessage,
		AssistantMessage: m.AssistantMessage,
		ContextUsed:      m.ContextUsed,
		SelectedText:     m.SelectedText,
		Sources:          sources,
		CreatedAt:        m.CreatedAt,
	}
}
