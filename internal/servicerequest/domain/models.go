// Package domain contains the service request models and contracts.
package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"

	paymentdomain "github.com/D-Honoured1/Kamisoft-sub002/internal/payment/domain"
	"github.com/D-Honoured1/Kamisoft-sub002/pkg/db/pagination"
)

// Status is the service request lifecycle state.
type Status string

const (
	StatusPending    Status = "pending"
	StatusApproved   Status = "approved"
	StatusInProgress Status = "in_progress"
	StatusPaidInFull Status = "paid_in_full"
	StatusCompleted  Status = "completed"
	StatusCancelled  Status = "cancelled"
)

func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusApproved, StatusInProgress, StatusPaidInFull,
		StatusCompleted, StatusCancelled:
		return true
	default:
		return false
	}
}

// Category is the kind of engagement requested.
type Category string

const (
	CategoryWebDevelopment    Category = "web_development"
	CategoryMobileDevelopment Category = "mobile_development"
	CategoryConsulting        Category = "consulting"
	CategoryMaintenance       Category = "maintenance"
	CategoryOther             Category = "other"
)

func (c Category) Valid() bool {
	switch c {
	case CategoryWebDevelopment, CategoryMobileDevelopment, CategoryConsulting,
		CategoryMaintenance, CategoryOther:
		return true
	default:
		return false
	}
}

var (
	ErrNotFound            = errors.New("request_not_found")
	ErrInvalidCategory     = errors.New("invalid_category")
	ErrInvalidTitle        = errors.New("invalid_title")
	ErrInvalidStatus       = errors.New("invalid_status")
	ErrInvalidTransition   = errors.New("invalid_request_transition")
	ErrInvalidCost         = errors.New("invalid_cost")
	ErrClientNotFound      = errors.New("client_not_found")
	ErrNotApproved         = errors.New("request_not_approved")
	ErrPaymentLinkNotFound = errors.New("payment_link_not_found")
	ErrPaymentLinkExpired  = errors.New("payment_link_expired")
	ErrInvalidPageToken    = errors.New("invalid_page_token")
)

// ServiceRequest is a client's engagement that payments settle against.
type ServiceRequest struct {
	ID                   snowflake.ID   `json:"id" gorm:"primaryKey"`
	ClientID             snowflake.ID   `json:"client_id" gorm:"not null;index"`
	Category             Category       `json:"category" gorm:"type:text;not null"`
	Title                string         `json:"title" gorm:"type:text;not null"`
	Description          string         `json:"description" gorm:"type:text"`
	Status               Status         `json:"status" gorm:"type:text;not null;default:'pending';index"`
	EstimatedCost        *int64         `json:"estimated_cost"`
	FinalCost            *int64         `json:"final_cost"`
	Currency             string         `json:"currency" gorm:"type:text;not null"`
	PaymentLinkToken     *string        `json:"-" gorm:"type:text;uniqueIndex"`
	PaymentLinkExpiresAt *time.Time     `json:"payment_link_expires_at"`
	CreatedAt            time.Time      `json:"created_at" gorm:"not null;index"`
	UpdatedAt            time.Time      `json:"updated_at" gorm:"not null"`
	DeletedAt            gorm.DeletedAt `json:"-" gorm:"index"`
}

func (ServiceRequest) TableName() string { return "service_requests" }

// LinkActive reports whether the payment link is issued and unexpired at now.
func (r *ServiceRequest) LinkActive(now time.Time) bool {
	return r.PaymentLinkToken != nil && r.PaymentLinkExpiresAt != nil &&
		now.Before(*r.PaymentLinkExpiresAt)
}

type CreateRequestRequest struct {
	ClientID      snowflake.ID `json:"client_id"`
	Category      Category     `json:"category"`
	Title         string       `json:"title"`
	Description   string       `json:"description"`
	EstimatedCost *int64       `json:"estimated_cost"`
	Currency      string       `json:"currency"`
}

type ListRequestRequest struct {
	ClientID *snowflake.ID
	Status   *Status
	pagination.Pagination
}

type ListRequestResponse struct {
	Requests []ServiceRequest    `json:"requests"`
	PageInfo pagination.PageInfo `json:"page_info"`
}

// PaymentLink is the shareable handle a client pays through.
type PaymentLink struct {
	Token     string       `json:"token"`
	RequestID snowflake.ID `json:"request_id"`
	ExpiresAt time.Time    `json:"expires_at"`
}

// Service manages service requests and implements the payment ledger's
// RequestSynchronizer.
type Service interface {
	paymentdomain.RequestSynchronizer

	Create(ctx context.Context, req CreateRequestRequest) (*ServiceRequest, error)
	GetByID(ctx context.Context, id snowflake.ID) (*ServiceRequest, error)
	List(ctx context.Context, req ListRequestRequest) (*ListRequestResponse, error)
	Approve(ctx context.Context, id snowflake.ID, finalCost int64, actor string) (*ServiceRequest, error)
	Complete(ctx context.Context, id snowflake.ID, actor string) (*ServiceRequest, error)
	Cancel(ctx context.Context, id snowflake.ID, actor string) (*ServiceRequest, error)
	IssuePaymentLink(ctx context.Context, id snowflake.ID, ttl time.Duration, actor string) (*PaymentLink, error)
	ResolvePaymentLink(ctx context.Context, token string) (*ServiceRequest, error)
	ClearExpiredLinks(ctx context.Context, now time.Time) (int64, error)
	CountExpiredLinks(ctx context.Context, now time.Time) (int64, error)
}
