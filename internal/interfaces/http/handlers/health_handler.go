package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
)

// HealthChecker reports whether a dependency is reachable
type HealthChecker interface {
	Healthy(ctx context.Context) bool
}

// HealthHandler reports service liveness and the encryption service status
type HealthHandler struct {
	service string
	version string
	fhe     HealthChecker
}

// NewHealthHandler creates a health handler. fhe may be nil.
func NewHealthHandler(service, version string, fhe HealthChecker) *HealthHandler {
	return &HealthHandler{service: service, version: version, fhe: fhe}
}

// Health always answers 200; a down encryption service only degrades confidential payments
// GET /health
func (h *HealthHandler) Health(c *gin.Context) {
	body := gin.H{
		"status":  "ok",
		"service": h.service,
		"version": h.version,
	}
	if h.fhe != nil {
		if h.fhe.Healthy(c.Request.Context()) {
			body["fhe"] = "ok"
		} else {
			body["fhe"] = "unavailable"
		}
	}
	c.JSON(http.StatusOK, body)
}
