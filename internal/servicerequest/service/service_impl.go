package service

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/google/uuid"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"

	auditdomain "github.com/D-Honoured1/Kamisoft-sub002/internal/audit/domain"
	clientdomain "github.com/D-Honoured1/Kamisoft-sub002/internal/client/domain"
	"github.com/D-Honoured1/Kamisoft-sub002/internal/clock"
	paymentdomain "github.com/D-Honoured1/Kamisoft-sub002/internal/payment/domain"
	requestdomain "github.com/D-Honoured1/Kamisoft-sub002/internal/servicerequest/domain"
	"github.com/D-Honoured1/Kamisoft-sub002/pkg/db/option"
	"github.com/D-Honoured1/Kamisoft-sub002/pkg/db/pagination"
	"github.com/D-Honoured1/Kamisoft-sub002/pkg/repository"
)

type Params struct {
	fx.In

	DB       *gorm.DB
	Log      *zap.Logger
	GenID    *snowflake.Node
	Clock    clock.Clock
	AuditSvc auditdomain.Service
}

type Service struct {
	db       *gorm.DB
	log      *zap.Logger
	genID    *snowflake.Node
	clock    clock.Clock
	repo     repository.Repository[requestdomain.ServiceRequest]
	auditSvc auditdomain.Service
}

func NewService(p Params) requestdomain.Service {
	return &Service{
		db:       p.DB,
		log:      p.Log.Named("servicerequest.service"),
		genID:    p.GenID,
		clock:    p.Clock,
		repo:     repository.ProvideStore[requestdomain.ServiceRequest](p.DB),
		auditSvc: p.AuditSvc,
	}
}

func (s *Service) Create(ctx context.Context, req requestdomain.CreateRequestRequest) (*requestdomain.ServiceRequest, error) {
	if !req.Category.Valid() {
		return nil, requestdomain.ErrInvalidCategory
	}
	title := strings.TrimSpace(req.Title)
	if title == "" {
		return nil, requestdomain.ErrInvalidTitle
	}
	if req.EstimatedCost != nil && *req.EstimatedCost <= 0 {
		return nil, requestdomain.ErrInvalidCost
	}

	var client clientdomain.Client
	err := s.db.WithContext(ctx).Where("id = ?", req.ClientID).First(&client).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, requestdomain.ErrClientNotFound
		}
		return nil, err
	}

	now := s.clock.Now()
	currency := strings.ToUpper(strings.TrimSpace(req.Currency))
	if currency == "" {
		currency = "USD"
	}

	item := requestdomain.ServiceRequest{
		ID:            s.genID.Generate(),
		ClientID:      req.ClientID,
		Category:      req.Category,
		Title:         title,
		Description:   strings.TrimSpace(req.Description),
		Status:        requestdomain.StatusPending,
		EstimatedCost: req.EstimatedCost,
		Currency:      currency,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := s.repo.Create(ctx, &item); err != nil {
		return nil, err
	}
	return &item, nil
}

func (s *Service) GetByID(ctx context.Context, id snowflake.ID) (*requestdomain.ServiceRequest, error) {
	item, err := s.repo.FindOne(ctx, &requestdomain.ServiceRequest{ID: id})
	if err != nil {
		return nil, err
	}
	if item == nil {
		return nil, requestdomain.ErrNotFound
	}
	return item, nil
}

func (s *Service) List(ctx context.Context, req requestdomain.ListRequestRequest) (*requestdomain.ListRequestResponse, error) {
	filter := &requestdomain.ServiceRequest{}
	if req.ClientID != nil {
		filter.ClientID = *req.ClientID
	}
	if req.Status != nil {
		filter.Status = *req.Status
	}

	limit := req.PageSize
	if limit <= 0 {
		limit = 25
	}

	opts := []option.QueryOption{
		option.WithOrder("created_at DESC, id DESC"),
		option.WithLimit(limit + 1),
	}
	if token := strings.TrimSpace(req.PageToken); token != "" {
		cursor, err := pagination.DecodeCursor(token)
		if err != nil {
			return nil, requestdomain.ErrInvalidPageToken
		}
		opts = append(opts, option.ApplyOperator(option.Condition{
			Field:    "id",
			Operator: option.LT,
			Value:    cursor.ID,
		}))
	}

	rows, err := s.repo.Find(ctx, filter, opts...)
	if err != nil {
		return nil, err
	}

	rows, pageInfo := pagination.BuildCursorPageInfo(rows, limit, func(row *requestdomain.ServiceRequest) string {
		token, _ := pagination.EncodeCursor(pagination.Cursor{ID: row.ID.String()})
		return token
	})

	requests := make([]requestdomain.ServiceRequest, 0, len(rows))
	for _, row := range rows {
		if row == nil {
			continue
		}
		requests = append(requests, *row)
	}

	return &requestdomain.ListRequestResponse{Requests: requests, PageInfo: pageInfo}, nil
}

func (s *Service) Approve(ctx context.Context, id snowflake.ID, finalCost int64, actor string) (*requestdomain.ServiceRequest, error) {
	if finalCost <= 0 {
		return nil, requestdomain.ErrInvalidCost
	}

	item, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if item.Status == requestdomain.StatusApproved && item.FinalCost != nil && *item.FinalCost == finalCost {
		return item, nil
	}
	if item.Status != requestdomain.StatusPending && item.Status != requestdomain.StatusApproved {
		return nil, requestdomain.ErrInvalidTransition
	}

	now := s.clock.Now()
	if err := s.repo.Update(ctx, id.String(), map[string]any{
		"status":     requestdomain.StatusApproved,
		"final_cost": finalCost,
		"updated_at": now,
	}); err != nil {
		return nil, err
	}

	item.Status = requestdomain.StatusApproved
	item.FinalCost = &finalCost
	item.UpdatedAt = now

	targetID := id.String()
	_ = s.auditSvc.Record(ctx, actor, "request.approved", "service_request", &targetID, map[string]any{
		"final_cost": finalCost,
		"currency":   item.Currency,
	})
	return item, nil
}

func (s *Service) Complete(ctx context.Context, id snowflake.ID, actor string) (*requestdomain.ServiceRequest, error) {
	item, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if item.Status == requestdomain.StatusCompleted {
		return item, nil
	}
	if item.Status != requestdomain.StatusInProgress && item.Status != requestdomain.StatusPaidInFull {
		return nil, requestdomain.ErrInvalidTransition
	}

	return s.setStatus(ctx, item, requestdomain.StatusCompleted, actor, "request.completed")
}

func (s *Service) Cancel(ctx context.Context, id snowflake.ID, actor string) (*requestdomain.ServiceRequest, error) {
	item, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if item.Status == requestdomain.StatusCancelled {
		return item, nil
	}
	if item.Status == requestdomain.StatusCompleted {
		return nil, requestdomain.ErrInvalidTransition
	}

	return s.setStatus(ctx, item, requestdomain.StatusCancelled, actor, "request.cancelled")
}

func (s *Service) setStatus(ctx context.Context, item *requestdomain.ServiceRequest, status requestdomain.Status, actor, action string) (*requestdomain.ServiceRequest, error) {
	now := s.clock.Now()
	if err := s.repo.Update(ctx, item.ID.String(), map[string]any{
		"status":     status,
		"updated_at": now,
	}); err != nil {
		return nil, err
	}

	from := item.Status
	item.Status = status
	item.UpdatedAt = now

	targetID := item.ID.String()
	_ = s.auditSvc.Record(ctx, actor, action, "service_request", &targetID, map[string]any{
		"from": string(from),
		"to":   string(status),
	})
	return item, nil
}

func (s *Service) IssuePaymentLink(ctx context.Context, id snowflake.ID, ttl time.Duration, actor string) (*requestdomain.PaymentLink, error) {
	item, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if item.Status != requestdomain.StatusApproved && item.Status != requestdomain.StatusInProgress {
		return nil, requestdomain.ErrNotApproved
	}
	if ttl <= 0 {
		ttl = time.Hour
	}

	now := s.clock.Now()
	token := uuid.NewString()
	expiresAt := now.Add(ttl)

	if err := s.repo.Update(ctx, id.String(), map[string]any{
		"payment_link_token":      token,
		"payment_link_expires_at": expiresAt,
		"updated_at":              now,
	}); err != nil {
		return nil, err
	}

	targetID := id.String()
	_ = s.auditSvc.Record(ctx, actor, "request.payment_link_issued", "service_request", &targetID, map[string]any{
		"expires_at": expiresAt.Format(time.RFC3339),
	})

	return &requestdomain.PaymentLink{
		Token:     token,
		RequestID: id,
		ExpiresAt: expiresAt,
	}, nil
}

func (s *Service) ResolvePaymentLink(ctx context.Context, token string) (*requestdomain.ServiceRequest, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, requestdomain.ErrPaymentLinkNotFound
	}

	item, err := s.repo.FindOne(ctx, &requestdomain.ServiceRequest{PaymentLinkToken: &token})
	if err != nil {
		return nil, err
	}
	if item == nil {
		return nil, requestdomain.ErrPaymentLinkNotFound
	}
	if !item.LinkActive(s.clock.Now()) {
		return nil, requestdomain.ErrPaymentLinkExpired
	}
	return item, nil
}

func (s *Service) ClearExpiredLinks(ctx context.Context, now time.Time) (int64, error) {
	result := s.db.WithContext(ctx).
		Model(&requestdomain.ServiceRequest{}).
		Where("payment_link_token IS NOT NULL AND payment_link_expires_at <= ?", now).
		Updates(map[string]any{
			"payment_link_token":      nil,
			"payment_link_expires_at": nil,
			"updated_at":              now,
		})
	if result.Error != nil {
		return 0, result.Error
	}
	return result.RowsAffected, nil
}

func (s *Service) CountExpiredLinks(ctx context.Context, now time.Time) (int64, error) {
	var count int64
	err := s.db.WithContext(ctx).
		Model(&requestdomain.ServiceRequest{}).
		Where("payment_link_token IS NOT NULL AND payment_link_expires_at <= ?", now).
		Count(&count).Error
	return count, err
}

// OnPaymentConfirmed advances the owning request after a payment lands.
// A split upfront deposit moves approved to in_progress; a full payment
// moves approved or in_progress to paid_in_full. Any other current status
// is left alone, so replayed confirmations are harmless.
func (s *Service) OnPaymentConfirmed(ctx context.Context, p *paymentdomain.Payment) error {
	item, err := s.GetByID(ctx, p.RequestID)
	if err != nil {
		return err
	}

	var target requestdomain.Status
	switch p.Type {
	case paymentdomain.TypeSplitUpfront:
		if item.Status != requestdomain.StatusApproved {
			s.log.Info("payment confirmed with no request change",
				zap.String("request_id", item.ID.String()),
				zap.String("request_status", string(item.Status)),
				zap.String("payment_type", string(p.Type)))
			return nil
		}
		target = requestdomain.StatusInProgress
	case paymentdomain.TypeFull:
		if item.Status != requestdomain.StatusApproved && item.Status != requestdomain.StatusInProgress {
			s.log.Info("payment confirmed with no request change",
				zap.String("request_id", item.ID.String()),
				zap.String("request_status", string(item.Status)),
				zap.String("payment_type", string(p.Type)))
			return nil
		}
		target = requestdomain.StatusPaidInFull
	default:
		return paymentdomain.ErrInvalidType
	}

	now := s.clock.Now()
	if err := s.repo.Update(ctx, item.ID.String(), map[string]any{
		"status":     target,
		"updated_at": now,
	}); err != nil {
		return err
	}

	targetID := item.ID.String()
	_ = s.auditSvc.Record(ctx, "ledger", "request.status_synced", "service_request", &targetID, map[string]any{
		"from":       string(item.Status),
		"to":         string(target),
		"payment_id": p.ID.String(),
	})

	s.log.Info("request advanced by confirmed payment",
		zap.String("request_id", item.ID.String()),
		zap.String("payment_id", p.ID.String()),
		zap.String("from", string(item.Status)),
		zap.String("to", string(target)))
	return nil
}
