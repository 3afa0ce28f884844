package server

import (
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	chargeorderdomain "github.com/lafcloud/platform/internal/chargeorder/domain"
	paymentdomain "github.com/lafcloud/platform/internal/payment/domain"
	"go.uber.org/zap"
)

// HandlePaymentNotify receives a provider callback. The response code drives
// the provider's redelivery loop: 2xx stops it, anything else makes the
// provider retry, so only errors a retry could fix return non-2xx.
func (s *Server) HandlePaymentNotify(c *gin.Context) {
	provider := strings.TrimSpace(c.Param("provider"))
	payload, err := io.ReadAll(c.Request.Body)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"code": "FAIL", "message": "invalid body"})
		return
	}

	result, err := s.webhookSvc.Ingest(c.Request.Context(), provider, payload, c.Request.Header)
	if err != nil {
		switch {
		case errors.Is(err, paymentdomain.ErrEventIgnored):
			// Not a transaction event; acknowledge so it is not redelivered.
			c.JSON(http.StatusOK, gin.H{"code": "SUCCESS"})
		case errors.Is(err, chargeorderdomain.ErrNotFound):
			// A verified notification for an order we never issued. Redelivery
			// cannot fix it, so acknowledge and keep the evidence in the logs.
			s.log.Warn("notification for unknown order",
				zap.String("provider", provider),
			)
			c.JSON(http.StatusOK, gin.H{"code": "SUCCESS"})
		case errors.Is(err, paymentdomain.ErrInvalidSignature),
			errors.Is(err, paymentdomain.ErrInvalidPayload),
			errors.Is(err, paymentdomain.ErrInvalidConfig),
			errors.Is(err, paymentdomain.ErrProviderNotFound):
			c.JSON(http.StatusBadRequest, gin.H{"code": "FAIL", "message": "verification failed"})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"code": "FAIL", "message": "processing failed"})
		}
		return
	}

	s.log.Debug("notification reconciled",
		zap.String("provider", provider),
		zap.String("result", string(result)),
	)
	c.JSON(http.StatusOK, gin.H{"code": "SUCCESS"})
}
