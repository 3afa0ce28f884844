package repository

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/lafcloud/platform/internal/account/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, account *domain.Account) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO accounts (id, owner_id, balance, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?)`,
		account.ID,
		account.OwnerID,
		account.Balance,
		account.CreatedAt,
		account.UpdatedAt,
	).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.Account, error) {
	var item domain.Account
	err := db.WithContext(ctx).Raw(
		`SELECT id, owner_id, balance, created_at, updated_at
		 FROM accounts
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

func (r *repo) FindByOwner(ctx context.Context, db *gorm.DB, ownerID snowflake.ID) (*domain.Account, error) {
	var item domain.Account
	err := db.WithContext(ctx).Raw(
		`SELECT id, owner_id, balance, created_at, updated_at
		 FROM accounts
		 WHERE owner_id = ?
		 LIMIT 1`,
		ownerID,
	).Scan(&item).Error
	if err != nil {
		return nil, err
	}
	if item.ID == 0 {
		return nil, nil
	}
	return &item, nil
}

func (r *repo) IncrementBalance(ctx context.Context, db *gorm.DB, id snowflake.ID, delta int64) (int64, error) {
	res := db.WithContext(ctx).Exec(
		`UPDATE accounts
		 SET balance = balance + ?, updated_at = ?
		 WHERE id = ?`,
		delta,
		time.Now().UTC(),
		id,
	)
	if res.Error != nil {
		return 0, res.Error
	}
	if res.RowsAffected == 0 {
		return 0, domain.ErrNotFound
	}

	var balance int64
	if err := db.WithContext(ctx).Raw(
		`SELECT balance FROM accounts WHERE id = ?`,
		id,
	).Scan(&balance).Error; err != nil {
		return 0, err
	}
	return balance, nil
}

func (r *repo) InsertTransaction(ctx context.Context, db *gorm.DB, txn *domain.Transaction) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO account_transactions (id, account_id, amount, balance, message, order_id, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		txn.ID,
		txn.AccountID,
		txn.Amount,
		txn.Balance,
		txn.Message,
		txn.OrderID,
		txn.CreatedAt,
	).Error
}

func (r *repo) ListTransactions(ctx context.Context, db *gorm.DB, accountID snowflake.ID, limit int) ([]*domain.Transaction, error) {
	if limit <= 0 {
		limit = 50
	}
	var items []*domain.Transaction
	err := db.WithContext(ctx).Raw(
		`SELECT id, account_id, amount, balance, message, order_id, created_at
		 FROM account_transactions
		 WHERE account_id = ?
		 ORDER BY id DESC
		 LIMIT ?`,
		accountID,
		limit,
	).Scan(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

func (r *repo) SumTransactions(ctx context.Context, db *gorm.DB, accountID snowflake.ID) (int64, error) {
	var total int64
	err := db.WithContext(ctx).Raw(
		`SELECT COALESCE(SUM(amount), 0)
		 FROM account_transactions
		 WHERE account_id = ?`,
		accountID,
	).Scan(&total).Error
	if err != nil {
		return 0, err
	}
	return total, nil
}
