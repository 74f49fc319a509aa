package service

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/D-Honoured1/Kamisoft-sub002/internal/clock"
	operatordomain "github.com/D-Honoured1/Kamisoft-sub002/internal/operator/domain"
	"github.com/D-Honoured1/Kamisoft-sub002/pkg/db"
	"github.com/D-Honoured1/Kamisoft-sub002/pkg/repository"
)

const sessionTTL = 12 * time.Hour

type Params struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	GenID *snowflake.Node
	Clock clock.Clock
}

type Service struct {
	db          *gorm.DB
	log         *zap.Logger
	genID       *snowflake.Node
	clock       clock.Clock
	repo        repository.Repository[operatordomain.Operator]
	sessionRepo repository.Repository[operatordomain.Session]
}

func NewService(p Params) operatordomain.Service {
	return &Service{
		db:          p.DB,
		log:         p.Log.Named("operator.service"),
		genID:       p.GenID,
		clock:       p.Clock,
		repo:        repository.ProvideStore[operatordomain.Operator](p.DB),
		sessionRepo: repository.ProvideStore[operatordomain.Session](p.DB),
	}
}

func (s *Service) Register(ctx context.Context, email, name, password string) (*operatordomain.Operator, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	name = strings.TrimSpace(name)
	if len(password) < 10 {
		return nil, operatordomain.ErrWeakPassword
	}

	hash, err := hashPassword(password)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()
	operator := operatordomain.Operator{
		ID:           s.genID.Generate(),
		Email:        email,
		Name:         name,
		PasswordHash: hash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.repo.Create(ctx, &operator); err != nil {
		if db.IsDuplicateKeyErr(err) {
			return nil, operatordomain.ErrEmailTaken
		}
		return nil, err
	}
	return &operator, nil
}

func (s *Service) Authenticate(ctx context.Context, email, password string) (*operatordomain.AuthResult, error) {
	email = strings.ToLower(strings.TrimSpace(email))

	operator, err := s.repo.FindOne(ctx, &operatordomain.Operator{Email: email})
	if err != nil {
		return nil, err
	}
	if operator == nil || !verifyPassword(password, operator.PasswordHash) {
		return nil, operatordomain.ErrInvalidCredentials
	}

	token, err := newSessionToken()
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()
	session := operatordomain.Session{
		ID:         s.genID.Generate(),
		OperatorID: operator.ID,
		TokenHash:  hashToken(token),
		ExpiresAt:  now.Add(sessionTTL),
		CreatedAt:  now,
	}
	if err := s.sessionRepo.Create(ctx, &session); err != nil {
		return nil, err
	}

	s.log.Info("operator authenticated", zap.String("operator_id", operator.ID.String()))

	return &operatordomain.AuthResult{
		Operator:  *operator,
		Token:     token,
		ExpiresAt: session.ExpiresAt,
	}, nil
}

func (s *Service) VerifyToken(ctx context.Context, token string) (*operatordomain.Operator, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, operatordomain.ErrInvalidToken
	}

	session, err := s.sessionRepo.FindOne(ctx, &operatordomain.Session{TokenHash: hashToken(token)})
	if err != nil {
		return nil, err
	}
	if session == nil {
		return nil, operatordomain.ErrInvalidToken
	}
	if s.clock.Now().After(session.ExpiresAt) {
		return nil, operatordomain.ErrTokenExpired
	}

	operator, err := s.repo.FindOne(ctx, &operatordomain.Operator{ID: session.OperatorID})
	if err != nil {
		return nil, err
	}
	if operator == nil {
		return nil, operatordomain.ErrNotFound
	}
	return operator, nil
}
