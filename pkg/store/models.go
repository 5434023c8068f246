package store

import (
	"time"

	"gorm.io/datatypes"
)

// GORM models used for persistence.
type UserModel struct {
	ID              string `gorm:"primaryKey"`
	FullName        string `gorm:"not null"`
	Email           string `gorm:"uniqueIndex;not null"`
	PasswordHash    string `gorm:"not null"`
	IsActive        bool   `gorm:"not null;default:true"`
	EmailVerified   bool   `gorm:"not null;default:false"`
	EmailVerifiedAt *time.Time
	CreatedAt       time.Time `gorm:"not null"`
	LastLogin       *time.Time
}

type SessionModel struct {
	ID        string    `gorm:"primaryKey"`
	UserID    string    `gorm:"not null;index"`
	Token     string    `gorm:"uniqueIndex;not null;size:500"`
	ExpiresAt time.Time `gorm:"not null"`
	CreatedAt time.Time `gorm:"not null"`
}

type EmailVerificationTokenModel struct {
	ID        string    `gorm:"primaryKey"`
	UserID    string    `gorm:"not null;index"`
	Token     string    `gorm:"uniqueIndex;not null;size:500"`
	ExpiresAt time.Time `gorm:"not null"`
	CreatedAt time.Time `gorm:"not null"`
	UsedAt    *time.Time
}

type PasswordResetTokenModel struct {
	ID        string    `gorm:"primaryKey"`
	UserID    string    `gorm:"not null;index"`
	Token     string    `gorm:"uniqueIndex;not null;size:500"`
	ExpiresAt time.Time `gorm:"not null"`
	CreatedAt time.Time `gorm:"not null"`
	UsedAt    *time.Time
}

type ConversationTurnModel struct {
	ID               string         `gorm:"primaryKey"`
	SessionID        string         `gorm:"not null;index"`
	UserMessage      string         `gorm:"type:text;not null"`
	AssistantMessage string         `gorm:"type:text;not null"`
	ContextUsed      string         `gorm:"type:text"`
	SelectedText     string         `gorm:"type:text"`
	Sources          datatypes.JSON `gorm:"type:jsonb"`
	CreatedAt        time.Time      `gorm:"not null;index"`
}
