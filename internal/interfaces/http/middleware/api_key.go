package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	domainerrors "onepay.payagent/internal/domain/errors"
	"onepay.payagent/internal/interfaces/http/response"
	"onepay.payagent/pkg/crypto"
	"onepay.payagent/pkg/logger"
)

const (
	// APIKeyHeader carries the caller's API key
	APIKeyHeader = "X-API-Key"
	// AuthorizationHeader is accepted as a fallback: Bearer <key>
	AuthorizationHeader = "Authorization"
	BearerPrefix        = "Bearer "
)

var checkKey = crypto.CheckSecret

// APIKeyMiddleware rejects requests whose key does not match the bcrypt hash.
// An empty hash disables the check.
func APIKeyMiddleware(keyHash string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if keyHash == "" {
			c.Next()
			return
		}

		key := c.GetHeader(APIKeyHeader)
		if key == "" {
			key = strings.TrimPrefix(c.GetHeader(AuthorizationHeader), BearerPrefix)
		}
		key = strings.TrimSpace(key)
		if key == "" {
			response.Error(c, domainerrors.Unauthorized("API key is required"))
			c.Abort()
			return
		}
		if !checkKey(key, keyHash) {
			logger.Warn(c.Request.Context(), "Rejected API key", zap.String("path", c.Request.URL.Path))
			response.Error(c, domainerrors.Unauthorized("Invalid API key"))
			c.Abort()
			return
		}
		c.Next()
	}
}
