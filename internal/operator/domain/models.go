// Package domain contains the operator account models.
package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
)

var (
	ErrNotFound           = errors.New("operator_not_found")
	ErrInvalidCredentials = errors.New("invalid_credentials")
	ErrInvalidToken       = errors.New("invalid_token")
	ErrTokenExpired       = errors.New("token_expired")
	ErrEmailTaken         = errors.New("email_taken")
	ErrWeakPassword       = errors.New("weak_password")
)

// Operator is a staff account that drives the admin surface.
type Operator struct {
	ID           snowflake.ID `json:"id" gorm:"primaryKey"`
	Email        string       `json:"email" gorm:"type:text;not null;uniqueIndex"`
	Name         string       `json:"name" gorm:"type:text;not null"`
	PasswordHash string       `json:"-" gorm:"type:text;not null"`
	CreatedAt    time.Time    `json:"created_at" gorm:"not null"`
	UpdatedAt    time.Time    `json:"updated_at" gorm:"not null"`
}

func (Operator) TableName() string { return "operators" }

// Session is an issued API token. Only the sha256 of the token is stored.
type Session struct {
	ID         snowflake.ID `json:"id" gorm:"primaryKey"`
	OperatorID snowflake.ID `json:"operator_id" gorm:"not null;index"`
	TokenHash  string       `json:"-" gorm:"type:text;not null;uniqueIndex"`
	ExpiresAt  time.Time    `json:"expires_at" gorm:"not null;index"`
	CreatedAt  time.Time    `json:"created_at" gorm:"not null"`
}

func (Session) TableName() string { return "operator_sessions" }

type AuthResult struct {
	Operator  Operator  `json:"operator"`
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

type Service interface {
	Register(ctx context.Context, email, name, password string) (*Operator, error)
	Authenticate(ctx context.Context, email, password string) (*AuthResult, error)
	VerifyToken(ctx context.Context, token string) (*Operator, error)
}
