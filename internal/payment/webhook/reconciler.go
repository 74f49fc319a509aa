// Package webhook reconciles gateway notifications against the payment
// ledger. Every delivery is journaled before it is applied, so replays are
// detected no matter how the transition itself ends.
package webhook

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/D-Honoured1/Kamisoft-sub002/internal/clock"
	"github.com/D-Honoured1/Kamisoft-sub002/internal/observability/metrics"
	"github.com/D-Honoured1/Kamisoft-sub002/internal/payment/adapters"
	paymentdomain "github.com/D-Honoured1/Kamisoft-sub002/internal/payment/domain"
	"github.com/D-Honoured1/Kamisoft-sub002/pkg/db"
)

// Result reports what a single delivery did.
type Result struct {
	EventID   snowflake.ID `json:"event_id"`
	PaymentID snowflake.ID `json:"payment_id"`
	Applied   bool         `json:"applied"`
	Reason    string       `json:"reason,omitempty"`
}

type Params struct {
	fx.In

	DB       *gorm.DB
	Log      *zap.Logger
	GenID    *snowflake.Node
	Clock    clock.Clock
	Registry *adapters.Registry
	Ledger   paymentdomain.Ledger
	Metrics  *metrics.Metrics `optional:"true"`
}

type Reconciler struct {
	db       *gorm.DB
	log      *zap.Logger
	genID    *snowflake.Node
	clock    clock.Clock
	registry *adapters.Registry
	ledger   paymentdomain.Ledger
	metrics  *metrics.Metrics
}

func NewReconciler(p Params) *Reconciler {
	return &Reconciler{
		db:       p.DB,
		log:      p.Log.Named("payment.webhook"),
		genID:    p.GenID,
		clock:    p.Clock,
		registry: p.Registry,
		ledger:   p.Ledger,
		metrics:  p.Metrics,
	}
}

// Ingest processes one raw webhook delivery. The sentinel errors draw the
// acknowledgement line for the HTTP layer: ErrEventIgnored,
// ErrEventAlreadyProcessed, and ErrPaymentRefMissing are all acked so the
// gateway stops retrying; anything else short of a verified signature is
// worth a retry.
func (r *Reconciler) Ingest(ctx context.Context, provider string, payload []byte, signature string) (*Result, error) {
	adapter, err := r.registry.Get(provider)
	if err != nil {
		return nil, err
	}
	if err := adapter.Verify(payload, signature); err != nil {
		r.log.Warn("webhook signature rejected", zap.String("provider", provider))
		return nil, err
	}

	event, err := adapter.Parse(payload)
	if err != nil {
		if errors.Is(err, paymentdomain.ErrEventIgnored) {
			r.log.Debug("webhook event ignored",
				zap.String("provider", provider),
				zap.Error(err))
		}
		return nil, err
	}

	payment, err := r.resolvePayment(ctx, event)
	if err != nil {
		if errors.Is(err, paymentdomain.ErrPaymentRefMissing) {
			r.log.Warn("webhook event carries no payment reference",
				zap.String("provider", provider),
				zap.String("event_type", event.EventType),
				zap.String("provider_event_id", event.ProviderEventID))
		}
		return nil, err
	}

	record, err := r.journal(ctx, provider, event, payment.ID, payload)
	if err != nil {
		return nil, err
	}

	result := &Result{EventID: record.ID, PaymentID: payment.ID}

	if payment.Status == event.Target {
		result.Reason = "already " + string(event.Target)
		r.markProcessed(ctx, record.ID)
		r.metrics.RecordWebhookEvent(ctx, provider, event.EventType, "noop")
		return result, nil
	}

	opts := []paymentdomain.TransitionOption{}
	if event.ProviderRef != "" {
		opts = append(opts, paymentdomain.WithProviderRef(event.ProviderRef))
	}
	if event.ErrorMessage != "" {
		opts = append(opts, paymentdomain.WithErrorMessage(event.ErrorMessage))
	}

	if _, err := r.ledger.Transition(ctx, payment.ID, event.Target, "webhook", opts...); err != nil {
		switch {
		case errors.Is(err, paymentdomain.ErrTerminalState),
			errors.Is(err, paymentdomain.ErrInvalidTransition):
			// The ledger already settled this payment elsewhere. The
			// delivery is journaled; nothing left to apply.
			result.Reason = err.Error()
			r.markProcessed(ctx, record.ID)
			r.metrics.RecordWebhookEvent(ctx, provider, event.EventType, "noop")
			return result, nil
		default:
			return nil, err
		}
	}

	result.Applied = true
	r.markProcessed(ctx, record.ID)
	r.metrics.RecordWebhookEvent(ctx, provider, event.EventType, "applied")

	r.log.Info("webhook applied",
		zap.String("provider", provider),
		zap.String("event_type", event.EventType),
		zap.String("payment_id", payment.ID.String()),
		zap.String("target", string(event.Target)))
	return result, nil
}

func (r *Reconciler) resolvePayment(ctx context.Context, event *adapters.Event) (*paymentdomain.Payment, error) {
	if event.PaymentID != "" {
		id, err := snowflake.ParseString(event.PaymentID)
		if err == nil {
			return r.ledger.GetByID(ctx, id)
		}
		r.log.Warn("webhook metadata carries malformed payment id",
			zap.String("payment_id", event.PaymentID))
	}
	if event.ProviderRef != "" {
		payment, err := r.ledger.GetByProviderRef(ctx, event.ProviderRef)
		if err == nil {
			return payment, nil
		}
		if !errors.Is(err, paymentdomain.ErrNotFound) {
			return nil, err
		}
		return nil, paymentdomain.ErrNotFound
	}
	return nil, paymentdomain.ErrPaymentRefMissing
}

func (r *Reconciler) journal(ctx context.Context, provider string, event *adapters.Event, paymentID snowflake.ID, payload []byte) (*paymentdomain.EventRecord, error) {
	record := paymentdomain.EventRecord{
		ID:              r.genID.Generate(),
		Provider:        provider,
		ProviderEventID: event.ProviderEventID,
		EventType:       event.EventType,
		PaymentID:       &paymentID,
		Payload:         datatypes.JSON(payload),
		ReceivedAt:      r.clock.Now(),
	}
	if err := r.db.WithContext(ctx).Create(&record).Error; err != nil {
		if db.IsDuplicateKeyErr(err) {
			return nil, paymentdomain.ErrEventAlreadyProcessed
		}
		return nil, err
	}
	return &record, nil
}

func (r *Reconciler) markProcessed(ctx context.Context, id snowflake.ID) {
	now := r.clock.Now()
	err := r.db.WithContext(ctx).
		Model(&paymentdomain.EventRecord{}).
		Where("id = ?", id).
		Update("processed_at", now).Error
	if err != nil {
		r.log.Warn("failed to mark webhook event processed",
			zap.String("event_id", id.String()),
			zap.Error(err))
	}
}
