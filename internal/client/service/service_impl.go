package service

import (
	"context"
	"strings"

	auditdomain "github.com/D-Honoured1/Kamisoft-sub002/internal/audit/domain"
	clientdomain "github.com/D-Honoured1/Kamisoft-sub002/internal/client/domain"
	"github.com/D-Honoured1/Kamisoft-sub002/internal/clock"
	"github.com/D-Honoured1/Kamisoft-sub002/pkg/repository"
	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
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
	repo     repository.Repository[clientdomain.Client]
	auditSvc auditdomain.Service
}

func NewService(p Params) clientdomain.Service {
	return &Service{
		db:       p.DB,
		log:      p.Log.Named("client.service"),
		genID:    p.GenID,
		clock:    p.Clock,
		repo:     repository.ProvideStore[clientdomain.Client](p.DB),
		auditSvc: p.AuditSvc,
	}
}

func (s *Service) UpsertByEmail(ctx context.Context, req clientdomain.UpsertClientRequest) (clientdomain.Client, error) {
	email := strings.ToLower(strings.TrimSpace(req.Email))
	if email == "" || !strings.Contains(email, "@") {
		return clientdomain.Client{}, clientdomain.ErrInvalidEmail
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return clientdomain.Client{}, clientdomain.ErrInvalidName
	}

	now := s.clock.Now()

	existing, err := s.repo.FindOne(ctx, &clientdomain.Client{Email: email})
	if err != nil {
		return clientdomain.Client{}, err
	}
	if existing != nil {
		existing.Name = name
		if phone := strings.TrimSpace(req.Phone); phone != "" {
			existing.Phone = phone
		}
		if company := strings.TrimSpace(req.Company); company != "" {
			existing.Company = company
		}
		existing.UpdatedAt = now
		if err := s.db.WithContext(ctx).Save(existing).Error; err != nil {
			return clientdomain.Client{}, err
		}
		return *existing, nil
	}

	client := clientdomain.Client{
		ID:        s.genID.Generate(),
		Name:      name,
		Email:     email,
		Phone:     strings.TrimSpace(req.Phone),
		Company:   strings.TrimSpace(req.Company),
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.repo.Create(ctx, &client); err != nil {
		return clientdomain.Client{}, err
	}
	return client, nil
}

func (s *Service) GetByID(ctx context.Context, id string) (clientdomain.Client, error) {
	clientID, err := snowflake.ParseString(strings.TrimSpace(id))
	if err != nil {
		return clientdomain.Client{}, clientdomain.ErrNotFound
	}

	item, err := s.repo.FindOne(ctx, &clientdomain.Client{ID: clientID})
	if err != nil {
		return clientdomain.Client{}, err
	}
	if item == nil {
		return clientdomain.Client{}, clientdomain.ErrNotFound
	}
	return *item, nil
}

func (s *Service) List(ctx context.Context, includeArchived bool) ([]clientdomain.Client, error) {
	stmt := s.db.WithContext(ctx).Order("created_at DESC")
	if !includeArchived {
		stmt = stmt.Where("archived = ?", false)
	}

	var rows []clientdomain.Client
	if err := stmt.Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (s *Service) Archive(ctx context.Context, id, reason, actor string) (clientdomain.Client, error) {
	client, err := s.GetByID(ctx, id)
	if err != nil {
		return clientdomain.Client{}, err
	}
	if client.Archived {
		return client, nil
	}

	now := s.clock.Now()
	reason = strings.TrimSpace(reason)
	updates := map[string]any{
		"archived":        true,
		"archived_reason": reason,
		"archived_at":     now,
		"updated_at":      now,
	}
	if err := s.repo.Update(ctx, client.ID.String(), updates); err != nil {
		return clientdomain.Client{}, err
	}

	client.Archived = true
	client.ArchivedReason = &reason
	client.ArchivedAt = &now
	client.UpdatedAt = now

	targetID := client.ID.String()
	_ = s.auditSvc.Record(ctx, actor, "client.archived", "client", &targetID, map[string]any{
		"email":  client.Email,
		"reason": reason,
	})
	return client, nil
}

func (s *Service) Unarchive(ctx context.Context, id, actor string) (clientdomain.Client, error) {
	client, err := s.GetByID(ctx, id)
	if err != nil {
		return clientdomain.Client{}, err
	}
	if !client.Archived {
		return client, nil
	}

	now := s.clock.Now()
	updates := map[string]any{
		"archived":        false,
		"archived_reason": nil,
		"archived_at":     nil,
		"updated_at":      now,
	}
	if err := s.repo.Update(ctx, client.ID.String(), updates); err != nil {
		return clientdomain.Client{}, err
	}

	client.Archived = false
	client.ArchivedReason = nil
	client.ArchivedAt = nil
	client.UpdatedAt = now

	targetID := client.ID.String()
	_ = s.auditSvc.Record(ctx, actor, "client.unarchived", "client", &targetID, map[string]any{
		"email": client.Email,
	})
	return client, nil
}
