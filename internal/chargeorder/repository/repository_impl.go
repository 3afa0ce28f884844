package repository

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/lafcloud/platform/internal/chargeorder/domain"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, order *domain.ChargeOrder) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO charge_orders (id, account_id, amount, currency, channel, phase, result, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		order.ID,
		order.AccountID,
		order.Amount,
		order.Currency,
		string(order.Channel),
		string(order.Phase),
		order.Result,
		order.CreatedAt,
		order.UpdatedAt,
	).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.ChargeOrder, error) {
	var item domain.ChargeOrder
	err := db.WithContext(ctx).Raw(
		`SELECT id, account_id, amount, currency, channel, phase, result, created_at, updated_at
		 FROM charge_orders
		 WHERE id = ?
		 LIMIT 1`,
		id,
	).Scan(&item).Error
	if err != nil {
		return nil, err
	}
	if item.ID == 0 {
		return nil, nil
	}
	return &item, nil
}

func (r *repo) FindByIDForAccount(ctx context.Context, db *gorm.DB, accountID, id snowflake.ID) (*domain.ChargeOrder, error) {
	var item domain.ChargeOrder
	err := db.WithContext(ctx).Raw(
		`SELECT id, account_id, amount, currency, channel, phase, result, created_at, updated_at
		 FROM charge_orders
		 WHERE id = ? AND account_id = ?
		 LIMIT 1`,
		id,
		accountID,
	).Scan(&item).Error
	if err != nil {
		return nil, err
	}
	if item.ID == 0 {
		return nil, nil
	}
	return &item, nil
}

// ConditionalTransition is a compare-and-swap on (id, phase). It must stay a
// single UPDATE statement; splitting it into a read followed by a write would
// let two concurrent deliveries both pass the phase check.
func (r *repo) ConditionalTransition(ctx context.Context, db *gorm.DB, id snowflake.ID, from, to domain.Phase, result datatypes.JSON) (int64, error) {
	res := db.WithContext(ctx).Exec(
		`UPDATE charge_orders
		 SET phase = ?, result = ?, updated_at = ?
		 WHERE id = ? AND phase = ?`,
		string(to),
		result,
		time.Now().UTC(),
		id,
		string(from),
	)
	if res.Error != nil {
		return 0, res.Error
	}
	return res.RowsAffected, nil
}
