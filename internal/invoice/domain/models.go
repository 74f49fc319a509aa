// Package domain contains the invoice models and contracts.
package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"

	"github.com/D-Honoured1/Kamisoft-sub002/pkg/db/pagination"
)

// Status is the invoice lifecycle state.
type Status string

const (
	StatusDraft     Status = "draft"
	StatusSent      Status = "sent"
	StatusPaid      Status = "paid"
	StatusOverdue   Status = "overdue"
	StatusCancelled Status = "cancelled"
)

func (s Status) Valid() bool {
	switch s {
	case StatusDraft, StatusSent, StatusPaid, StatusOverdue, StatusCancelled:
		return true
	default:
		return false
	}
}

var (
	ErrNotFound         = errors.New("invoice_not_found")
	ErrPaymentNotFound  = errors.New("payment_not_found")
	ErrPaymentNotFinal  = errors.New("payment_not_confirmed")
	ErrAlreadyInvoiced  = errors.New("payment_already_invoiced")
	ErrNoBillableAmount = errors.New("request_has_no_billable_amount")
	ErrInvalidStatus    = errors.New("invalid_invoice_status")
	ErrInvalidYear      = errors.New("invalid_invoice_year")
	ErrNotRendered      = errors.New("invoice_not_rendered")
	ErrInvalidPageToken = errors.New("invalid_page_token")
)

// Invoice is the document issued against a service request. PaymentID is
// set when the invoice bills a settled payment; a draft raised ahead of
// collection carries none.
type Invoice struct {
	ID          snowflake.ID   `json:"id" gorm:"primaryKey"`
	Number      string         `json:"number" gorm:"type:text;not null;uniqueIndex"`
	PaymentID   *snowflake.ID  `json:"payment_id,omitempty" gorm:"uniqueIndex"`
	RequestID   snowflake.ID   `json:"request_id" gorm:"not null;index"`
	ClientID    snowflake.ID   `json:"client_id" gorm:"not null;index"`
	Status      Status         `json:"status" gorm:"type:text;not null;default:'draft';index"`
	Currency    string         `json:"currency" gorm:"type:text;not null"`
	Subtotal    int64          `json:"subtotal" gorm:"not null"`
	TaxAmount   int64          `json:"tax_amount" gorm:"not null"`
	Total       int64          `json:"total" gorm:"not null"`
	IssuedAt    time.Time      `json:"issued_at" gorm:"not null"`
	DueAt       time.Time      `json:"due_at" gorm:"not null;index"`
	PaidAt      *time.Time     `json:"paid_at"`
	DocumentURL *string        `json:"document_url" gorm:"type:text"`
	SentAt      *time.Time     `json:"sent_at"`
	Items       []InvoiceItem  `json:"items" gorm:"foreignKey:InvoiceID"`
	CreatedAt   time.Time      `json:"created_at" gorm:"not null;index"`
	UpdatedAt   time.Time      `json:"updated_at" gorm:"not null"`
	DeletedAt   gorm.DeletedAt `json:"-" gorm:"index"`
}

func (Invoice) TableName() string { return "invoices" }

// InvoiceItem is one billed line.
type InvoiceItem struct {
	ID          snowflake.ID `json:"id" gorm:"primaryKey"`
	InvoiceID   snowflake.ID `json:"invoice_id" gorm:"not null;index"`
	Description string       `json:"description" gorm:"type:text;not null"`
	Quantity    int64        `json:"quantity" gorm:"not null;default:1"`
	UnitAmount  int64        `json:"unit_amount" gorm:"not null"`
	Amount      int64        `json:"amount" gorm:"not null"`
	CreatedAt   time.Time    `json:"created_at" gorm:"not null"`
}

func (InvoiceItem) TableName() string { return "invoice_items" }

// InvoiceCounter is the per-year sequence row backing number allocation.
type InvoiceCounter struct {
	Year  int   `json:"year" gorm:"primaryKey"`
	Value int64 `json:"value" gorm:"not null"`
}

func (InvoiceCounter) TableName() string { return "invoice_counters" }

// PrepareInvoiceRequest keys an invoice off a request, a payment, or both.
// With only RequestID set, the approved final cost is invoiced as a draft
// ahead of collection. With PaymentID set, the settled payment is billed.
type PrepareInvoiceRequest struct {
	RequestID snowflake.ID  `json:"request_id"`
	PaymentID *snowflake.ID `json:"payment_id,omitempty"`
	AutoSend  bool          `json:"auto_send"`
}

type ListInvoiceRequest struct {
	ClientID  *snowflake.ID
	RequestID *snowflake.ID
	Status    *Status
	pagination.Pagination
}

type ListInvoiceResponse struct {
	Invoices []Invoice           `json:"invoices"`
	PageInfo pagination.PageInfo `json:"page_info"`
}

// Allocator hands out gap-free invoice sequence numbers per calendar year.
type Allocator interface {
	Allocate(ctx context.Context, year int) (int64, error)
}

// Service builds, renders, and tracks invoices.
type Service interface {
	Prepare(ctx context.Context, req PrepareInvoiceRequest) (*Invoice, error)
	Rerender(ctx context.Context, id snowflake.ID) (*Invoice, error)
	GetByID(ctx context.Context, id snowflake.ID) (*Invoice, error)
	GetByNumber(ctx context.Context, number string) (*Invoice, error)
	List(ctx context.Context, req ListInvoiceRequest) (*ListInvoiceResponse, error)
	Send(ctx context.Context, id snowflake.ID) (*Invoice, error)
	Cancel(ctx context.Context, id snowflake.ID, actor string) (*Invoice, error)
	MarkOverdue(ctx context.Context, now time.Time) (int64, error)
	CountOverdueCandidates(ctx context.Context, now time.Time) (int64, error)
}
