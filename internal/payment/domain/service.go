package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"

	"github.com/D-Honoured1/Kamisoft-sub002/pkg/db/pagination"
)

var (
	ErrNotFound              = errors.New("payment_not_found")
	ErrRequestNotFound       = errors.New("request_not_found")
	ErrInvalidAmount         = errors.New("invalid_amount")
	ErrInvalidCurrency       = errors.New("invalid_currency")
	ErrInvalidMethod         = errors.New("invalid_method")
	ErrInvalidType           = errors.New("invalid_type")
	ErrInvalidStatus         = errors.New("invalid_status")
	ErrInvalidTransition     = errors.New("invalid_transition")
	ErrTerminalState         = errors.New("payment_in_terminal_state")
	ErrProviderRefTaken      = errors.New("provider_ref_taken")
	ErrConcurrentUpdate      = errors.New("concurrent_update")
	ErrNotDeletable          = errors.New("payment_not_deletable")
	ErrEventAlreadyProcessed = errors.New("event_already_processed")
	ErrEventIgnored          = errors.New("event_ignored")
	ErrEventMalformed        = errors.New("event_malformed")
	ErrSignatureInvalid      = errors.New("signature_invalid")
	ErrUnknownProvider       = errors.New("unknown_provider")
	ErrPaymentRefMissing     = errors.New("payment_ref_missing")
	ErrInvalidPageToken      = errors.New("invalid_page_token")
)

// CreatePaymentRequest opens a new ledger entry in pending.
type CreatePaymentRequest struct {
	RequestID  snowflake.ID   `json:"request_id"`
	Amount     int64          `json:"amount"`
	Currency   string         `json:"currency"`
	Method     Method         `json:"method"`
	Type       Type           `json:"type"`
	AdminNotes string         `json:"admin_notes"`
	Metadata   map[string]any `json:"metadata"`
}

// TransitionOption decorates a transition with optional side data.
type TransitionOption func(*transitionParams)

type transitionParams struct {
	ProviderRef  *string
	ErrorMessage *string
	Reason       *string
}

// ApplyTransitionOptions is exported for the service implementation.
func ApplyTransitionOptions(opts []TransitionOption) (providerRef, errorMessage, reason *string) {
	var p transitionParams
	for _, opt := range opts {
		opt(&p)
	}
	return p.ProviderRef, p.ErrorMessage, p.Reason
}

// WithProviderRef records the gateway's reference on the payment row.
func WithProviderRef(ref string) TransitionOption {
	return func(p *transitionParams) { p.ProviderRef = &ref }
}

// WithErrorMessage records the gateway's failure detail.
func WithErrorMessage(msg string) TransitionOption {
	return func(p *transitionParams) { p.ErrorMessage = &msg }
}

// WithReason records a human reason on the transition history row.
func WithReason(reason string) TransitionOption {
	return func(p *transitionParams) { p.Reason = &reason }
}

// ListPaymentRequest filters the ledger listing.
type ListPaymentRequest struct {
	RequestID      *snowflake.ID
	Status         *Status
	Method         *Method
	IncludeDeleted bool
	pagination.Pagination
}

type ListPaymentResponse struct {
	Payments []Payment           `json:"payments"`
	PageInfo pagination.PageInfo `json:"page_info"`
}

// Ledger is the single mutation point for payment status. No other code
// path writes the status column.
type Ledger interface {
	Create(ctx context.Context, req CreatePaymentRequest) (*Payment, error)
	Transition(ctx context.Context, id snowflake.ID, target Status, actor string, opts ...TransitionOption) (*Payment, error)
	GetByID(ctx context.Context, id snowflake.ID) (*Payment, error)
	GetByProviderRef(ctx context.Context, ref string) (*Payment, error)
	List(ctx context.Context, req ListPaymentRequest) (*ListPaymentResponse, error)
	Delete(ctx context.Context, id snowflake.ID, actor string) error
	ExpireStalePending(ctx context.Context, olderThan time.Time) (int64, error)
	CountStalePending(ctx context.Context, olderThan time.Time) (int64, error)
}

// RequestSynchronizer reacts to a confirmed payment by advancing the owning
// service request. Implemented by the servicerequest package; declared here
// to keep the dependency arrow pointing one way.
type RequestSynchronizer interface {
	OnPaymentConfirmed(ctx context.Context, p *Payment) error
}
