package server

import (
	"net/http"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	chargeorderdomain "github.com/lafcloud/platform/internal/chargeorder/domain"
	paymentdomain "github.com/lafcloud/platform/internal/payment/domain"
)

func (s *Server) GetAccount(c *gin.Context) {
	account, ok := accountFromContext(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": account})
}

type createChargeOrderRequest struct {
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
	Channel  string `json:"channel"`
}

// CreateChargeOrder inserts a pending order and opens the provider-side
// payment for it. The order id doubles as the provider's out-trade number,
// so the later notification can be matched back.
func (s *Server) CreateChargeOrder(c *gin.Context) {
	account, ok := accountFromContext(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	var req createChargeOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	currency := strings.ToUpper(strings.TrimSpace(req.Currency))
	if currency == "" {
		currency = "CNY"
	}
	channel := chargeorderdomain.Channel(strings.TrimSpace(req.Channel))

	gateway, ok := s.gateways[string(channel)]
	if !ok {
		if !chargeorderdomain.ValidChannel(channel) {
			AbortWithError(c, chargeorderdomain.ErrInvalidChannel)
			return
		}
		AbortWithError(c, ErrServiceUnavailable)
		return
	}

	order, err := s.orderSvc.Create(c.Request.Context(), chargeorderdomain.CreateOrderRequest{
		AccountID: account.ID,
		Amount:    req.Amount,
		Currency:  currency,
		Channel:   channel,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	intent, err := gateway.CreatePayment(c.Request.Context(), paymentdomain.PaymentRequest{
		OrderID:     order.ID,
		Amount:      order.Amount,
		Currency:    order.Currency,
		Description: "Account recharge",
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": gin.H{
		"order":   order,
		"payment": intent,
	}})
}

func (s *Server) GetChargeOrder(c *gin.Context) {
	account, ok := accountFromContext(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	id, err := snowflake.ParseString(strings.TrimSpace(c.Param("id")))
	if err != nil {
		AbortWithError(c, chargeorderdomain.ErrNotFound)
		return
	}

	order, err := s.orderSvc.GetForAccount(c.Request.Context(), account.ID, id)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": order})
}

func (s *Server) ListAccountTransactions(c *gin.Context) {
	account, ok := accountFromContext(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	var query struct {
		Limit int `form:"limit"`
	}
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	if query.Limit <= 0 || query.Limit > 500 {
		query.Limit = 100
	}

	transactions, err := s.accountSvc.ListTransactions(c.Request.Context(), account.ID, query.Limit)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": transactions})
}
