package domain

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
)

type Service interface {
	// GetOrCreate resolves the owner's account, creating an empty one on
	// first use.
	GetOrCreate(ctx context.Context, ownerID snowflake.ID) (*Account, error)
	Get(ctx context.Context, id snowflake.ID) (*Account, error)
	ListTransactions(ctx context.Context, accountID snowflake.ID, limit int) ([]*Transaction, error)
}

var (
	ErrInvalidOwner = errors.New("invalid_owner")
	ErrInvalidID    = errors.New("invalid_id")
	ErrNotFound     = errors.New("account_not_found")
)
