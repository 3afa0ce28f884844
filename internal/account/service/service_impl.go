package service

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/lafcloud/platform/internal/account/domain"
	"github.com/lafcloud/platform/pkg/db"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	GenID *snowflake.Node
	Repo  domain.Repository
}

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	genID *snowflake.Node
	repo  domain.Repository
}

func New(p Params) domain.Service {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("account.service"),
		genID: p.GenID,
		repo:  p.Repo,
	}
}

func (s *Service) GetOrCreate(ctx context.Context, ownerID snowflake.ID) (*domain.Account, error) {
	if ownerID == 0 {
		return nil, domain.ErrInvalidOwner
	}

	account, err := s.repo.FindByOwner(ctx, s.db, ownerID)
	if err != nil {
		return nil, err
	}
	if account != nil {
		return account, nil
	}

	now := time.Now().UTC()
	account = &domain.Account{
		ID:        s.genID.Generate(),
		OwnerID:   ownerID,
		Balance:   0,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.repo.Insert(ctx, s.db, account); err != nil {
		// Concurrent first use of the same owner loses the insert race and
		// reads back the winner's row.
		if db.IsDuplicateKeyErr(err) {
			return s.repo.FindByOwner(ctx, s.db, ownerID)
		}
		return nil, err
	}

	s.log.Info("account created",
		zap.String("account_id", account.ID.String()),
		zap.String("owner_id", ownerID.String()),
	)
	return account, nil
}

func (s *Service) Get(ctx context.Context, id snowflake.ID) (*domain.Account, error) {
	if id == 0 {
		return nil, domain.ErrInvalidID
	}
	account, err := s.repo.FindByID(ctx, s.db, id)
	if err != nil {
		return nil, err
	}
	if account == nil {
		return nil, domain.ErrNotFound
	}
	return account, nil
}

func (s *Service) ListTransactions(ctx context.Context, accountID snowflake.ID, limit int) ([]*domain.Transaction, error) {
	if accountID == 0 {
		return nil, domain.ErrInvalidID
	}
	return s.repo.ListTransactions(ctx, s.db, accountID, limit)
}
