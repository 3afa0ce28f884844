package service

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/lafcloud/platform/internal/chargeorder/domain"
	"github.com/lafcloud/platform/internal/metrics"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB      *gorm.DB
	Log     *zap.Logger
	GenID   *snowflake.Node
	Repo    domain.Repository
	Metrics *metrics.Metrics `optional:"true"`
}

type Service struct {
	db      *gorm.DB
	log     *zap.Logger
	genID   *snowflake.Node
	repo    domain.Repository
	metrics *metrics.Metrics
}

func New(p Params) domain.Service {
	return &Service{
		db:      p.DB,
		log:     p.Log.Named("chargeorder.service"),
		genID:   p.GenID,
		repo:    p.Repo,
		metrics: p.Metrics,
	}
}

func (s *Service) Create(ctx context.Context, req domain.CreateOrderRequest) (*domain.ChargeOrder, error) {
	if req.AccountID == 0 {
		return nil, domain.ErrInvalidAccount
	}
	if req.Amount <= 0 {
		return nil, domain.ErrInvalidAmount
	}
	currency := strings.ToUpper(strings.TrimSpace(req.Currency))
	if !domain.ValidCurrency(currency) {
		return nil, domain.ErrInvalidCurrency
	}
	if !domain.ValidChannel(req.Channel) {
		return nil, domain.ErrInvalidChannel
	}

	now := time.Now().UTC()
	order := &domain.ChargeOrder{
		ID:        s.genID.Generate(),
		AccountID: req.AccountID,
		Amount:    req.Amount,
		Currency:  currency,
		Channel:   req.Channel,
		Phase:     domain.PhasePending,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.repo.Insert(ctx, s.db, order); err != nil {
		return nil, err
	}

	s.metrics.RecordOrderCreated(string(order.Channel))
	s.log.Info("charge order created",
		zap.String("order_id", order.ID.String()),
		zap.String("account_id", order.AccountID.String()),
		zap.Int64("amount", order.Amount),
		zap.String("channel", string(order.Channel)),
	)
	return order, nil
}

func (s *Service) GetForAccount(ctx context.Context, accountID, id snowflake.ID) (*domain.ChargeOrder, error) {
	if accountID == 0 || id == 0 {
		return nil, domain.ErrNotFound
	}
	order, err := s.repo.FindByIDForAccount(ctx, s.db, accountID, id)
	if err != nil {
		return nil, err
	}
	if order == nil {
		return nil, domain.ErrNotFound
	}
	return order, nil
}
