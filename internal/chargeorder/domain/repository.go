package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Repository is the charge order persistence contract.
type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, order *ChargeOrder) error
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*ChargeOrder, error)
	FindByIDForAccount(ctx context.Context, db *gorm.DB, accountID, id snowflake.ID) (*ChargeOrder, error)

	// ConditionalTransition moves the order from one phase to another with a
	// single conditioned UPDATE keyed on (id, phase) and stores the provider
	// payload. The returned match count is the engine's sole concurrency
	// primitive: concurrent deliveries for the same order race on it and at
	// most one observes a match.
	ConditionalTransition(ctx context.Context, db *gorm.DB, id snowflake.ID, from, to Phase, result datatypes.JSON) (int64, error)
}
