package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"onepay.payagent/internal/app"
	"onepay.payagent/internal/config"
	"onepay.payagent/internal/infrastructure/jobs"
	"onepay.payagent/internal/interfaces/http/handlers"
	"onepay.payagent/internal/interfaces/http/middleware"
	"onepay.payagent/internal/metrics"
	"onepay.payagent/pkg/logger"
)

const (
	serviceName    = "payagent"
	serviceVersion = "1.0.0"
)

var (
	loadDotenv  = godotenv.Load
	loadCfg     = config.Load
	initLog     = logger.Init
	newPayAgent = app.New
	runServer   = serve
)

const shutdownTimeout = 10 * time.Second

// serve runs the HTTP server until ctx is cancelled, then drains in-flight requests
func serve(ctx context.Context, r *gin.Engine, port string) error {
	srv := &http.Server{Addr: ":" + port, Handler: r, ReadHeaderTimeout: 10 * time.Second}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func main() {
	if err := runMainProcess(); err != nil {
		log.Fatal(err)
	}
}

func runMainProcess() error {
	if err := loadDotenv(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	cfg := loadCfg()

	initLog(cfg.Server.Env)
	defer logger.Sync()
	logger.Info(context.Background(), "Logger initialized", zap.String("env", cfg.Server.Env))

	metrics.Register()

	if cfg.Server.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	agent, err := newPayAgent(cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize payagent: %w", err)
	}
	defer agent.Close()

	if cfg.Server.APIKeyHash == "" {
		logger.Warn(context.Background(), "PAYAGENT_API_KEY_HASH not set, API is unauthenticated")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	reconcileJob := jobs.NewPendingReconcileJob(agent.Reconciler, cfg.Settlement.ReconcileInterval)
	go reconcileJob.Start(ctx)

	r := newRouter(routeDeps{
		paymentHandler:     handlers.NewPaymentHandler(agent.Orchestrator),
		transactionHandler: handlers.NewTransactionHandler(agent.History, agent.Encryptor),
		chainHandler:       handlers.NewChainHandler(agent.Chains),
		healthHandler:      handlers.NewHealthHandler(serviceName, serviceVersion, agent.Encryptor),
		apiKeyMiddleware:   middleware.APIKeyMiddleware(cfg.Server.APIKeyHash),
	})

	for _, route := range r.Routes() {
		logger.Debug(ctx, "Registered route", zap.String("method", route.Method), zap.String("path", route.Path))
	}

	logger.Info(ctx, "PayAgent server starting",
		zap.String("port", cfg.Server.Port),
		zap.String("api", "http://localhost:"+cfg.Server.Port+"/api/v1"),
	)

	err = runServer(ctx, r, cfg.Server.Port)
	reconcileJob.Stop()
	if err != nil {
		return fmt.Errorf("failed to start server: %w", err)
	}
	logger.Info(context.Background(), "Server stopped")
	return nil
}
