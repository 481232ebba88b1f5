package response

import (
	"github.com/gin-gonic/gin"

	domainerrors "onepay.payagent/internal/domain/errors"
	"onepay.payagent/pkg/utils"
)

// Success sends a success response
func Success(c *gin.Context, status int, data interface{}) {
	c.JSON(status, data)
}

// Paginated sends a page of items with its metadata
func Paginated(c *gin.Context, status int, key string, items interface{}, meta utils.PaginationMeta) {
	c.JSON(status, gin.H{
		key:          items,
		"pagination": meta,
	})
}

// Error sends an error response. Settlement failures are mapped onto their HTTP status.
func Error(c *gin.Context, err error) {
	appErr := domainerrors.FromPaymentError(err)

	c.JSON(appErr.Status, gin.H{
		"code":    appErr.Code,
		"message": appErr.Message,
		"error":   appErr.Message,
	})
}

// ErrorWithError sends an error response with a specific status and message
func ErrorWithError(c *gin.Context, status int, code string, message string) {
	c.JSON(status, gin.H{
		"code":    code,
		"message": message,
	})
}
