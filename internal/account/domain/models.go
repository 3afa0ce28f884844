package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

// Account holds the spendable balance for one platform user.
// Balance is kept in minor currency units and only moves together with an
// append-only transaction record.
type Account struct {
	ID        snowflake.ID `gorm:"primaryKey" json:"id"`
	OwnerID   snowflake.ID `gorm:"not null;uniqueIndex:ux_accounts_owner" json:"owner_id"`
	Balance   int64        `gorm:"not null;default:0" json:"balance"`
	CreatedAt time.Time    `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time    `gorm:"not null" json:"updated_at"`
}

func (Account) TableName() string { return "accounts" }

// Transaction is the immutable ledger record for a balance change. Amount is
// signed; Balance snapshots the account balance after the change applied.
type Transaction struct {
	ID        snowflake.ID `gorm:"primaryKey" json:"id"`
	AccountID snowflake.ID `gorm:"not null;index" json:"account_id"`
	Amount    int64        `gorm:"not null" json:"amount"`
	Balance   int64        `gorm:"not null" json:"balance"`
	Message   string       `gorm:"type:text;not null" json:"message"`
	OrderID   snowflake.ID `gorm:"not null;index" json:"order_id"`
	CreatedAt time.Time    `gorm:"not null" json:"created_at"`
}

func (Transaction) TableName() string { return "account_transactions" }
