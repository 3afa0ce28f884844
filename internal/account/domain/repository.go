package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

// Repository is the account ledger persistence contract. All writes that the
// reconciliation engine performs are handed the engine's transaction handle
// so they commit or abort together with the order transition.
type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, account *Account) error
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Account, error)
	FindByOwner(ctx context.Context, db *gorm.DB, ownerID snowflake.ID) (*Account, error)

	// IncrementBalance applies the delta with a single conditioned UPDATE and
	// returns the resulting balance. A zero row match reports ErrNotFound.
	IncrementBalance(ctx context.Context, db *gorm.DB, id snowflake.ID, delta int64) (int64, error)

	InsertTransaction(ctx context.Context, db *gorm.DB, txn *Transaction) error
	ListTransactions(ctx context.Context, db *gorm.DB, accountID snowflake.ID, limit int) ([]*Transaction, error)
	SumTransactions(ctx context.Context, db *gorm.DB, accountID snowflake.ID) (int64, error)
}
