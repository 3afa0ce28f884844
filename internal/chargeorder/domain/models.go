package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

// Phase is the charge order state machine position. Transitions are
// one-directional: pending moves to exactly one of paid or failed, and a
// terminal order is never mutated again.
type Phase string

const (
	PhasePending Phase = "pending"
	PhasePaid    Phase = "paid"
	PhaseFailed  Phase = "failed"
)

// Channel identifies the external payment provider for an order.
type Channel string

const (
	ChannelWeChatPay Channel = "wechat_pay"
	ChannelAlipay    Channel = "alipay"
)

// ChargeOrder records an intent to add funds to an account. The order id is
// the correlation token echoed back by the provider in its notification.
// Orders are never deleted; Result stores the provider payload verbatim for
// audit once a notification arrives.
type ChargeOrder struct {
	ID        snowflake.ID   `gorm:"primaryKey" json:"id"`
	AccountID snowflake.ID   `gorm:"not null;index" json:"account_id"`
	Amount    int64          `gorm:"not null" json:"amount"`
	Currency  string         `gorm:"type:text;not null" json:"currency"`
	Channel   Channel        `gorm:"type:text;not null" json:"channel"`
	Phase     Phase          `gorm:"type:text;not null;index" json:"phase"`
	Result    datatypes.JSON `gorm:"type:jsonb" json:"result,omitempty"`
	CreatedAt time.Time      `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time      `gorm:"not null" json:"updated_at"`
}

func (ChargeOrder) TableName() string { return "charge_orders" }
