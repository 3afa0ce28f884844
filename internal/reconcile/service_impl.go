package reconcile

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	accountdomain "github.com/lafcloud/platform/internal/account/domain"
	chargeorderdomain "github.com/lafcloud/platform/internal/chargeorder/domain"
	"github.com/lafcloud/platform/internal/metrics"
	paymentdomain "github.com/lafcloud/platform/internal/payment/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Result reports how a notification delivery was reconciled.
type Result string

const (
	// ResultApplied means the order moved to its terminal phase in this
	// delivery; for a success outcome the balance was credited.
	ResultApplied Result = "applied"
	// ResultDuplicate means the order was already terminal: the delivery is
	// a provider redelivery and produced no side effects.
	ResultDuplicate Result = "duplicate"
)

type Params struct {
	fx.In

	DB       *gorm.DB
	Log      *zap.Logger
	GenID    *snowflake.Node
	Orders   chargeorderdomain.Repository
	Accounts accountdomain.Repository
	Metrics  *metrics.Metrics `optional:"true"`
}

// Service drives a verified payment notification through the charge order
// state machine. It is the only writer that moves orders out of pending and
// the only writer that credits balances for charge orders.
type Service struct {
	db       *gorm.DB
	log      *zap.Logger
	genID    *snowflake.Node
	orders   chargeorderdomain.Repository
	accounts accountdomain.Repository
	metrics  *metrics.Metrics
}

func New(p Params) *Service {
	return &Service{
		db:       p.DB,
		log:      p.Log.Named("reconcile.service"),
		genID:    p.GenID,
		orders:   p.Orders,
		accounts: p.Accounts,
		metrics:  p.Metrics,
	}
}

// Apply reconciles one verified notification. It is safe to call any number
// of times for the same delivery: the pending-phase precondition on the
// order update guarantees at most one delivery ever applies.
func (s *Service) Apply(ctx context.Context, n *paymentdomain.Notification) (Result, error) {
	if n == nil || n.OrderID == 0 {
		return "", paymentdomain.ErrInvalidPayload
	}

	var result Result
	var err error
	if n.Outcome == paymentdomain.OutcomeSuccess {
		result, err = s.applySuccess(ctx, n)
	} else {
		result, err = s.applyFailure(ctx, n)
	}
	if err != nil {
		s.metrics.RecordNotification(n.Provider, "error")
		return "", err
	}

	s.metrics.RecordNotification(n.Provider, string(result))
	return result, nil
}

// applyFailure marks the order failed if it is still pending. It never
// touches the account.
func (s *Service) applyFailure(ctx context.Context, n *paymentdomain.Notification) (Result, error) {
	matched, err := s.orders.ConditionalTransition(
		ctx, s.db, n.OrderID,
		chargeorderdomain.PhasePending, chargeorderdomain.PhaseFailed,
		datatypes.JSON(n.RawPayload),
	)
	if err != nil {
		return "", err
	}
	if matched == 0 {
		order, err := s.orders.FindByID(ctx, s.db, n.OrderID)
		if err != nil {
			return "", err
		}
		if order == nil {
			return "", chargeorderdomain.ErrNotFound
		}
		return ResultDuplicate, nil
	}

	s.log.Info("charge order failed",
		zap.String("order_id", n.OrderID.String()),
		zap.String("provider", n.Provider),
	)
	return ResultApplied, nil
}

// applySuccess runs the whole success path in one unit of work: the
// conditional pending->paid transition, the balance increment and the
// transaction append commit together or not at all. If the account is
// missing the transaction aborts and the order stays pending, so a
// redelivery can retry; an order is never paid without its credit.
func (s *Service) applySuccess(ctx context.Context, n *paymentdomain.Notification) (Result, error) {
	var result Result
	var credited *chargeorderdomain.ChargeOrder
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		matched, err := s.orders.ConditionalTransition(
			ctx, tx, n.OrderID,
			chargeorderdomain.PhasePending, chargeorderdomain.PhasePaid,
			datatypes.JSON(n.RawPayload),
		)
		if err != nil {
			return err
		}
		if matched == 0 {
			order, err := s.orders.FindByID(ctx, tx, n.OrderID)
			if err != nil {
				return err
			}
			if order == nil {
				return chargeorderdomain.ErrNotFound
			}
			result = ResultDuplicate
			return nil
		}

		order, err := s.orders.FindByID(ctx, tx, n.OrderID)
		if err != nil {
			return err
		}
		if order == nil {
			return chargeorderdomain.ErrNotFound
		}

		balance, err := s.accounts.IncrementBalance(ctx, tx, order.AccountID, order.Amount)
		if err != nil {
			return err
		}

		txn := &accountdomain.Transaction{
			ID:        s.genID.Generate(),
			AccountID: order.AccountID,
			Amount:    order.Amount,
			Balance:   balance,
			Message:   creditMessage(order.Channel),
			OrderID:   order.ID,
			CreatedAt: time.Now().UTC(),
		}
		if err := s.accounts.InsertTransaction(ctx, tx, txn); err != nil {
			return err
		}

		credited = order
		result = ResultApplied
		return nil
	})
	if err != nil {
		return "", err
	}

	if result == ResultApplied && credited != nil {
		s.metrics.RecordCredit(credited.Currency, credited.Amount)
		s.log.Info("charge order paid",
			zap.String("order_id", n.OrderID.String()),
			zap.String("provider", n.Provider),
		)
	}
	return result, nil
}

func creditMessage(channel chargeorderdomain.Channel) string {
	switch channel {
	case chargeorderdomain.ChannelWeChatPay:
		return "Recharge by WeChat Pay"
	case chargeorderdomain.ChannelAlipay:
		return "Recharge by Alipay"
	default:
		return "Recharge"
	}
}
