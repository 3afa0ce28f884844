package domain

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
)

type CreateOrderRequest struct {
	AccountID snowflake.ID
	Amount    int64
	Currency  string
	Channel   Channel
}

type Service interface {
	// Create inserts a new pending order. It has no balance side effect.
	Create(ctx context.Context, req CreateOrderRequest) (*ChargeOrder, error)
	GetForAccount(ctx context.Context, accountID, id snowflake.ID) (*ChargeOrder, error)
}

var (
	ErrInvalidAccount  = errors.New("invalid_account")
	ErrInvalidAmount   = errors.New("invalid_amount")
	ErrInvalidCurrency = errors.New("invalid_currency")
	ErrInvalidChannel  = errors.New("invalid_channel")
	ErrNotFound        = errors.New("order_not_found")
)

var supportedCurrencies = map[string]struct{}{
	"CNY": {},
	"USD": {},
}

func ValidCurrency(currency string) bool {
	_, ok := supportedCurrencies[currency]
	return ok
}

func ValidChannel(channel Channel) bool {
	switch channel {
	case ChannelWeChatPay, ChannelAlipay:
		return true
	default:
		return false
	}
}
