package main

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	domainerrors "onepay.payagent/internal/domain/errors"
	"onepay.payagent/internal/interfaces/http/handlers"
	"onepay.payagent/internal/interfaces/http/middleware"
	"onepay.payagent/internal/interfaces/http/response"
)

type routeDeps struct {
	paymentHandler     *handlers.PaymentHandler
	transactionHandler *handlers.TransactionHandler
	chainHandler       *handlers.ChainHandler
	healthHandler      *handlers.HealthHandler
	apiKeyMiddleware   gin.HandlerFunc
}

func newRouter(d routeDeps) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestIDMiddleware())
	r.Use(middleware.LoggerMiddleware("/health", "/metrics"))

	applyCORSMiddleware(r)
	registerHealthRoute(r, d.healthHandler)
	registerMetricsRoute(r)
	registerAPIV1Routes(r, d)
	r.NoRoute(func(c *gin.Context) {
		response.ErrorWithError(c, http.StatusNotFound, domainerrors.CodeNotFound, "route not found")
	})
	return r
}

func applyCORSMiddleware(r *gin.Engine) {
	r.Use(func(c *gin.Context) {
		origin := c.GetHeader("Origin")
		if origin != "" {
			c.Header("Access-Control-Allow-Origin", origin)
			c.Header("Vary", "Origin")
		}
		c.Header("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Content-Type, Authorization, X-API-Key, X-Request-ID")
		c.Header("Access-Control-Expose-Headers", "X-Request-ID")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	})
}

func registerHealthRoute(r *gin.Engine, h *handlers.HealthHandler) {
	r.GET("/health", h.Health)
}

func registerMetricsRoute(r *gin.Engine) {
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
}

func registerAPIV1Routes(r *gin.Engine, d routeDeps) {
	v1 := r.Group("/api/v1")
	v1.Use(d.apiKeyMiddleware)
	{
		v1.GET("/chains", d.chainHandler.ListChains)

		payments := v1.Group("/payments")
		{
			payments.POST("/execute", d.paymentHandler.ExecutePayment)
		}

		transactions := v1.Group("/transactions")
		{
			transactions.GET("", d.transactionHandler.ListTransactions)
			transactions.GET("/recent", d.transactionHandler.RecentTransactions)
			transactions.GET("/:hash", d.transactionHandler.GetTransaction)
			transactions.GET("/:hash/amount", d.transactionHandler.RevealAmount)
			transactions.DELETE("", d.transactionHandler.ClearTransactions)
		}
	}
}
