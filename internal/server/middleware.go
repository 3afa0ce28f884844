package server

import (
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	accountdomain "github.com/lafcloud/platform/internal/account/domain"
)

const (
	contextAccountKey = "auth.account"
	requestIDHeader   = "X-Request-Id"
)

// RequestID echoes the caller's request id or mints one, so log lines and
// error responses can be correlated with provider-side records.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := strings.TrimSpace(c.GetHeader(requestIDHeader))
		if id == "" {
			id = uuid.NewString()
		}
		c.Header(requestIDHeader, id)
		c.Next()
	}
}

// AuthRequired authenticates the bearer token and resolves the caller's
// account, creating it on first use. The token subject is the owner id.
func (s *Server) AuthRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		header := strings.TrimSpace(c.GetHeader("Authorization"))
		if header == "" || !strings.HasPrefix(header, "Bearer ") {
			AbortWithError(c, ErrUnauthorized)
			return
		}
		raw := strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))

		claims := jwt.MapClaims{}
		token, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (any, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, ErrUnauthorized
			}
			return []byte(s.cfg.AuthJWTSecret), nil
		}, jwt.WithValidMethods([]string{"HS256"}))
		if err != nil || !token.Valid {
			AbortWithError(c, ErrUnauthorized)
			return
		}

		sub, err := claims.GetSubject()
		if err != nil || sub == "" {
			AbortWithError(c, ErrUnauthorized)
			return
		}
		ownerID, err := snowflake.ParseString(sub)
		if err != nil {
			AbortWithError(c, ErrUnauthorized)
			return
		}

		account, err := s.accountSvc.GetOrCreate(c.Request.Context(), ownerID)
		if err != nil {
			AbortWithError(c, err)
			return
		}

		c.Set(contextAccountKey, account)
		c.Next()
	}
}

func accountFromContext(c *gin.Context) (*accountdomain.Account, bool) {
	value, ok := c.Get(contextAccountKey)
	if !ok {
		return nil, false
	}
	account, ok := value.(*accountdomain.Account)
	return account, ok && account != nil
}
