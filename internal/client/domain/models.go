// Package domain contains the paying-party model and service contract.
package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
)

// Client identifies a paying party. Email is the natural key: repeat contact
// updates the existing row in place rather than creating a duplicate.
type Client struct {
	ID             snowflake.ID `json:"id" gorm:"primaryKey"`
	Name           string       `json:"name" gorm:"type:text;not null"`
	Email          string       `json:"email" gorm:"type:text;not null;uniqueIndex"`
	Phone          string       `json:"phone" gorm:"type:text"`
	Company        string       `json:"company" gorm:"type:text"`
	Archived       bool         `json:"archived" gorm:"not null;default:false"`
	ArchivedReason *string      `json:"archived_reason" gorm:"type:text"`
	ArchivedAt     *time.Time   `json:"archived_at"`
	CreatedAt      time.Time    `json:"created_at" gorm:"not null"`
	UpdatedAt      time.Time    `json:"updated_at" gorm:"not null"`
}

func (Client) TableName() string { return "clients" }

type UpsertClientRequest struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Phone   string `json:"phone"`
	Company string `json:"company"`
}

type Service interface {
	// UpsertByEmail creates the client on first contact and refreshes
	// contact details on repeat contact.
	UpsertByEmail(ctx context.Context, req UpsertClientRequest) (Client, error)
	GetByID(ctx context.Context, id string) (Client, error)
	List(ctx context.Context, includeArchived bool) ([]Client, error)
	Archive(ctx context.Context, id, reason, actor string) (Client, error)
	Unarchive(ctx context.Context, id, actor string) (Client, error)
}

var (
	ErrNotFound     = errors.New("client_not_found")
	ErrInvalidEmail = errors.New("invalid_email")
	ErrInvalidName  = errors.New("invalid_name")
)
