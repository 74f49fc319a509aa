// Package domain contains the payment ledger models and state machine.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Status is the payment lifecycle state.
type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusConfirmed  Status = "confirmed"
	StatusDeclined   Status = "declined"
	StatusFailed     Status = "failed"
	StatusCancelled  Status = "cancelled"
	StatusRefunded   Status = "refunded"
	StatusExpired    Status = "expired"
)

// allowedTransitions is the single source of truth for the state machine.
// Gateways may report success without an intermediate processing state, so
// pending permits a direct jump to confirmed.
var allowedTransitions = map[Status][]Status{
	StatusPending:    {StatusProcessing, StatusConfirmed, StatusCancelled, StatusExpired},
	StatusProcessing: {StatusConfirmed, StatusDeclined, StatusFailed, StatusCancelled},
	StatusConfirmed:  {StatusRefunded},
}

// CanTransition reports whether target is reachable from s.
func (s Status) CanTransition(target Status) bool {
	for _, next := range allowedTransitions[s] {
		if next == target {
			return true
		}
	}
	return false
}

// Terminal reports whether the status admits no further transitions other
// than the manual refund path out of confirmed.
func (s Status) Terminal() bool {
	switch s {
	case StatusPending, StatusProcessing:
		return false
	default:
		return true
	}
}

// Unsuccessful groups the terminal states where no money was collected.
// Declined, failed, and expired stay distinct in storage; this is the one
// formal supertype call sites may use instead of ad-hoc string lists.
func (s Status) Unsuccessful() bool {
	switch s {
	case StatusDeclined, StatusFailed, StatusExpired:
		return true
	default:
		return false
	}
}

// Valid reports whether s is a known status value.
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusProcessing, StatusConfirmed, StatusDeclined,
		StatusFailed, StatusCancelled, StatusRefunded, StatusExpired:
		return true
	default:
		return false
	}
}

// Method identifies how the money is collected.
type Method string

const (
	MethodPaystack     Method = "paystack"
	MethodFlutterwave  Method = "flutterwave"
	MethodCrypto       Method = "crypto"
	MethodBankTransfer Method = "bank_transfer"
)

func (m Method) Valid() bool {
	switch m {
	case MethodPaystack, MethodFlutterwave, MethodCrypto, MethodBankTransfer:
		return true
	default:
		return false
	}
}

// Type distinguishes a split upfront deposit from full payment.
type Type string

const (
	TypeSplitUpfront Type = "split_upfront"
	TypeFull         Type = "full"
)

func (t Type) Valid() bool {
	return t == TypeSplitUpfront || t == TypeFull
}

// Payment is one attempt to collect money against a service request.
type Payment struct {
	ID           snowflake.ID   `json:"id" gorm:"primaryKey"`
	RequestID    snowflake.ID   `json:"request_id" gorm:"not null;index"`
	Amount       int64          `json:"amount" gorm:"not null"`
	Currency     string         `json:"currency" gorm:"type:text;not null"`
	Method       Method         `json:"method" gorm:"type:text;not null"`
	Type         Type           `json:"type" gorm:"type:text;not null"`
	Status       Status         `json:"status" gorm:"type:text;not null;default:'pending';index"`
	ProviderRef  *string        `json:"provider_ref" gorm:"type:text;uniqueIndex"`
	Metadata     datatypes.JSON `json:"metadata" gorm:"type:jsonb"`
	AdminNotes   string         `json:"admin_notes" gorm:"type:text"`
	ErrorMessage string         `json:"error_message" gorm:"type:text"`
	ConfirmedAt  *time.Time     `json:"confirmed_at"`
	CreatedAt    time.Time      `json:"created_at" gorm:"not null;index"`
	UpdatedAt    time.Time      `json:"updated_at" gorm:"not null"`
	DeletedAt    gorm.DeletedAt `json:"-" gorm:"index"`
}

func (Payment) TableName() string { return "payments" }

// TransitionRecord is the append-only history of ledger transitions. Every
// status change carries the actor that caused it.
type TransitionRecord struct {
	ID         snowflake.ID `json:"id" gorm:"primaryKey"`
	PaymentID  snowflake.ID `json:"payment_id" gorm:"not null;index"`
	FromStatus Status       `json:"from_status" gorm:"type:text;not null"`
	ToStatus   Status       `json:"to_status" gorm:"type:text;not null"`
	Actor      string       `json:"actor" gorm:"type:text;not null"`
	Reason     *string      `json:"reason" gorm:"type:text"`
	CreatedAt  time.Time    `json:"created_at" gorm:"not null"`
}

func (TransitionRecord) TableName() string { return "payment_transitions" }

// EventRecord journals every correlated webhook delivery. The unique
// (provider, provider_event_id) pair makes replay detection cheap.
type EventRecord struct {
	ID              snowflake.ID   `json:"id" gorm:"primaryKey"`
	Provider        string         `json:"provider" gorm:"type:text;not null;uniqueIndex:ux_payment_events_provider_event"`
	ProviderEventID string         `json:"provider_event_id" gorm:"type:text;not null;uniqueIndex:ux_payment_events_provider_event"`
	EventType       string         `json:"event_type" gorm:"type:text;not null"`
	PaymentID       *snowflake.ID  `json:"payment_id" gorm:"index"`
	Payload         datatypes.JSON `json:"payload" gorm:"type:jsonb;not null"`
	ReceivedAt      time.Time      `json:"received_at" gorm:"not null"`
	ProcessedAt     *time.Time     `json:"processed_at"`
}

func (EventRecord) TableName() string { return "payment_events" }
