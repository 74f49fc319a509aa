package service

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"

	auditdomain "github.com/D-Honoured1/Kamisoft-sub002/internal/audit/domain"
	"github.com/D-Honoured1/Kamisoft-sub002/internal/clock"
	"github.com/D-Honoured1/Kamisoft-sub002/internal/observability/metrics"
	paymentdomain "github.com/D-Honoured1/Kamisoft-sub002/internal/payment/domain"
	"github.com/D-Honoured1/Kamisoft-sub002/pkg/db"
	"github.com/D-Honoured1/Kamisoft-sub002/pkg/db/option"
	"github.com/D-Honoured1/Kamisoft-sub002/pkg/db/pagination"
	"github.com/D-Honoured1/Kamisoft-sub002/pkg/repository"
)

// metadataEnvelope versions the free-form payment metadata so older rows
// stay readable when the shape evolves.
type metadataEnvelope struct {
	Version int            `json:"version"`
	Data    map[string]any `json:"data"`
}

const metadataVersion = 1

type Params struct {
	fx.In

	DB           *gorm.DB
	Log          *zap.Logger
	GenID        *snowflake.Node
	Clock        clock.Clock
	Synchronizer paymentdomain.RequestSynchronizer
	AuditSvc     auditdomain.Service
	Metrics      *metrics.Metrics `optional:"true"`
}

type Ledger struct {
	db           *gorm.DB
	log          *zap.Logger
	genID        *snowflake.Node
	clock        clock.Clock
	repo         repository.Repository[paymentdomain.Payment]
	synchronizer paymentdomain.RequestSynchronizer
	auditSvc     auditdomain.Service
	metrics      *metrics.Metrics
}

func NewLedger(p Params) paymentdomain.Ledger {
	return &Ledger{
		db:           p.DB,
		log:          p.Log.Named("payment.ledger"),
		genID:        p.GenID,
		clock:        p.Clock,
		repo:         repository.ProvideStore[paymentdomain.Payment](p.DB),
		synchronizer: p.Synchronizer,
		auditSvc:     p.AuditSvc,
		metrics:      p.Metrics,
	}
}

func (l *Ledger) Create(ctx context.Context, req paymentdomain.CreatePaymentRequest) (*paymentdomain.Payment, error) {
	if req.Amount <= 0 {
		return nil, paymentdomain.ErrInvalidAmount
	}
	currency := strings.ToUpper(strings.TrimSpace(req.Currency))
	if len(currency) != 3 {
		return nil, paymentdomain.ErrInvalidCurrency
	}
	if !req.Method.Valid() {
		return nil, paymentdomain.ErrInvalidMethod
	}
	if !req.Type.Valid() {
		return nil, paymentdomain.ErrInvalidType
	}

	var count int64
	err := l.db.WithContext(ctx).
		Table("service_requests").
		Where("id = ? AND deleted_at IS NULL", req.RequestID).
		Count(&count).Error
	if err != nil {
		return nil, err
	}
	if count == 0 {
		return nil, paymentdomain.ErrRequestNotFound
	}

	metadata, err := json.Marshal(metadataEnvelope{Version: metadataVersion, Data: req.Metadata})
	if err != nil {
		return nil, err
	}

	now := l.clock.Now()
	payment := paymentdomain.Payment{
		ID:         l.genID.Generate(),
		RequestID:  req.RequestID,
		Amount:     req.Amount,
		Currency:   currency,
		Method:     req.Method,
		Type:       req.Type,
		Status:     paymentdomain.StatusPending,
		Metadata:   metadata,
		AdminNotes: strings.TrimSpace(req.AdminNotes),
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := l.repo.Create(ctx, &payment); err != nil {
		return nil, err
	}

	l.log.Info("payment created",
		zap.String("payment_id", payment.ID.String()),
		zap.String("request_id", payment.RequestID.String()),
		zap.Int64("amount", payment.Amount),
		zap.String("currency", payment.Currency),
		zap.String("method", string(payment.Method)))
	return &payment, nil
}

// Transition moves a payment between lifecycle states. It is the only code
// path that writes the status column. The status change is a conditional
// update keyed on the current status, so two racing callers cannot both
// win; the loser gets ErrConcurrentUpdate.
func (l *Ledger) Transition(ctx context.Context, id snowflake.ID, target paymentdomain.Status, actor string, opts ...paymentdomain.TransitionOption) (*paymentdomain.Payment, error) {
	if !target.Valid() {
		return nil, paymentdomain.ErrInvalidStatus
	}

	payment, err := l.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if payment.Status == target {
		return payment, nil
	}
	if payment.Status.Terminal() && !payment.Status.CanTransition(target) {
		return nil, paymentdomain.ErrTerminalState
	}
	if !payment.Status.CanTransition(target) {
		return nil, paymentdomain.ErrInvalidTransition
	}

	providerRef, errorMessage, reason := paymentdomain.ApplyTransitionOptions(opts)

	now := l.clock.Now()
	updates := map[string]any{
		"status":     target,
		"updated_at": now,
	}
	if providerRef != nil {
		updates["provider_ref"] = *providerRef
	}
	if errorMessage != nil {
		updates["error_message"] = *errorMessage
	}
	if target == paymentdomain.StatusConfirmed {
		updates["confirmed_at"] = now
	}

	from := payment.Status
	err = l.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&paymentdomain.Payment{}).
			Where("id = ? AND status = ?", id, from).
			Updates(updates)
		if result.Error != nil {
			if db.IsDuplicateKeyErr(result.Error) {
				return paymentdomain.ErrProviderRefTaken
			}
			return result.Error
		}
		if result.RowsAffected == 0 {
			return paymentdomain.ErrConcurrentUpdate
		}

		record := paymentdomain.TransitionRecord{
			ID:         l.genID.Generate(),
			PaymentID:  id,
			FromStatus: from,
			ToStatus:   target,
			Actor:      actor,
			Reason:     reason,
			CreatedAt:  now,
		}
		return tx.Create(&record).Error
	})
	if err != nil {
		return nil, err
	}

	payment.Status = target
	payment.UpdatedAt = now
	if providerRef != nil {
		payment.ProviderRef = providerRef
	}
	if errorMessage != nil {
		payment.ErrorMessage = *errorMessage
	}
	if target == paymentdomain.StatusConfirmed {
		payment.ConfirmedAt = &now
	}

	l.log.Info("payment transitioned",
		zap.String("payment_id", id.String()),
		zap.String("from", string(from)),
		zap.String("to", string(target)),
		zap.String("actor", actor))
	l.metrics.RecordPaymentTransition(ctx, string(from), string(target), actor)

	targetID := id.String()
	_ = l.auditSvc.Record(ctx, actor, "payment.transitioned", "payment", &targetID, map[string]any{
		"from": string(from),
		"to":   string(target),
	})

	if target == paymentdomain.StatusConfirmed {
		// The status change is already committed; a synchronizer failure
		// must not roll the money back. Replays are safe because the
		// confirmed row cannot transition again.
		if err := l.synchronizer.OnPaymentConfirmed(ctx, payment); err != nil {
			l.log.Error("request synchronization failed",
				zap.String("payment_id", id.String()),
				zap.String("request_id", payment.RequestID.String()),
				zap.Error(err))
		}
	}
	return payment, nil
}

func (l *Ledger) GetByID(ctx context.Context, id snowflake.ID) (*paymentdomain.Payment, error) {
	payment, err := l.repo.FindOne(ctx, &paymentdomain.Payment{ID: id})
	if err != nil {
		return nil, err
	}
	if payment == nil {
		return nil, paymentdomain.ErrNotFound
	}
	return payment, nil
}

func (l *Ledger) GetByProviderRef(ctx context.Context, ref string) (*paymentdomain.Payment, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return nil, paymentdomain.ErrNotFound
	}
	payment, err := l.repo.FindOne(ctx, &paymentdomain.Payment{ProviderRef: &ref})
	if err != nil {
		return nil, err
	}
	if payment == nil {
		return nil, paymentdomain.ErrNotFound
	}
	return payment, nil
}

func (l *Ledger) List(ctx context.Context, req paymentdomain.ListPaymentRequest) (*paymentdomain.ListPaymentResponse, error) {
	filter := &paymentdomain.Payment{}
	if req.RequestID != nil {
		filter.RequestID = *req.RequestID
	}
	if req.Status != nil {
		filter.Status = *req.Status
	}
	if req.Method != nil {
		filter.Method = *req.Method
	}

	limit := req.PageSize
	if limit <= 0 {
		limit = 25
	}

	opts := []option.QueryOption{
		option.WithOrder("created_at DESC, id DESC"),
		option.WithLimit(limit + 1),
	}
	if req.IncludeDeleted {
		opts = append(opts, option.WithDeleted())
	}
	if token := strings.TrimSpace(req.PageToken); token != "" {
		cursor, err := pagination.DecodeCursor(token)
		if err != nil {
			return nil, paymentdomain.ErrInvalidPageToken
		}
		opts = append(opts, option.ApplyOperator(option.Condition{
			Field:    "id",
			Operator: option.LT,
			Value:    cursor.ID,
		}))
	}

	rows, err := l.repo.Find(ctx, filter, opts...)
	if err != nil {
		return nil, err
	}

	rows, pageInfo := pagination.BuildCursorPageInfo(rows, limit, func(row *paymentdomain.Payment) string {
		token, _ := pagination.EncodeCursor(pagination.Cursor{ID: row.ID.String()})
		return token
	})

	payments := make([]paymentdomain.Payment, 0, len(rows))
	for _, row := range rows {
		if row == nil {
			continue
		}
		payments = append(payments, *row)
	}

	return &paymentdomain.ListPaymentResponse{Payments: payments, PageInfo: pageInfo}, nil
}

// Delete soft-deletes a payment that never settled. Confirmed, refunded,
// and in-flight payments stay visible; money that moved must keep its row.
func (l *Ledger) Delete(ctx context.Context, id snowflake.ID, actor string) error {
	payment, err := l.GetByID(ctx, id)
	if err != nil {
		return err
	}

	switch payment.Status {
	case paymentdomain.StatusConfirmed, paymentdomain.StatusRefunded, paymentdomain.StatusProcessing:
		return paymentdomain.ErrNotDeletable
	}

	if err := l.repo.Delete(ctx, id.String()); err != nil {
		return err
	}

	l.log.Info("payment deleted",
		zap.String("payment_id", id.String()),
		zap.String("actor", actor))

	targetID := id.String()
	_ = l.auditSvc.Record(ctx, actor, "payment.deleted", "payment", &targetID, map[string]any{
		"status": string(payment.Status),
	})
	return nil
}

// CountStalePending reports how many pending payments a sweep with the
// given cutoff would expire, without touching them.
func (l *Ledger) CountStalePending(ctx context.Context, olderThan time.Time) (int64, error) {
	var count int64
	err := l.db.WithContext(ctx).
		Model(&paymentdomain.Payment{}).
		Where("status = ? AND created_at <= ?", paymentdomain.StatusPending, olderThan).
		Count(&count).Error
	return count, err
}

// ExpireStalePending expires pending payments created before olderThan,
// one conditional transition at a time so each expiry leaves a history row.
func (l *Ledger) ExpireStalePending(ctx context.Context, olderThan time.Time) (int64, error) {
	var ids []snowflake.ID
	err := l.db.WithContext(ctx).
		Model(&paymentdomain.Payment{}).
		Where("status = ? AND created_at <= ?", paymentdomain.StatusPending, olderThan).
		Pluck("id", &ids).Error
	if err != nil {
		return 0, err
	}

	var expired int64
	for _, id := range ids {
		if _, err := l.Transition(ctx, id, paymentdomain.StatusExpired, "system-sweeper",
			paymentdomain.WithReason("pending past expiry window")); err != nil {
			// A row confirmed between the scan and the transition is
			// not an error worth failing the sweep over.
			l.log.Warn("skipping stale payment",
				zap.String("payment_id", id.String()),
				zap.Error(err))
			continue
		}
		expired++
	}
	return expired, nil
}
