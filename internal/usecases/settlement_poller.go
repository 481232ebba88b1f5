package usecases

import (
	"context"
	"time"

	"github.com/volatiletech/null/v8"
	"go.uber.org/zap"

	"onepay.payagent/internal/domain/entities"
	"onepay.payagent/internal/metrics"
	"onepay.payagent/pkg/logger"
)

const (
	DefaultPollMaxAttempts = 12
	DefaultPollInterval    = 5 * time.Second
)

// StatusCheckFunc asks the backend for the settlement state once
type StatusCheckFunc func(ctx context.Context) (*entities.StatusReport, error)

// SettlementPoller checks a settlement at a fixed interval until it is final
type SettlementPoller struct {
	sleep func(ctx context.Context, d time.Duration) error
}

func NewSettlementPoller() *SettlementPoller {
	return &SettlementPoller{sleep: sleepContext}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Poll calls check up to maxAttempts times. Errors from check count as pending.
// The result is Timeout when no final status arrives or ctx ends first.
func (p *SettlementPoller) Poll(ctx context.Context, check StatusCheckFunc, maxAttempts int, interval time.Duration) entities.SettlementResult {
	if maxAttempts <= 0 {
		maxAttempts = DefaultPollMaxAttempts
	}
	if interval < 0 {
		interval = DefaultPollInterval
	}

	result := entities.SettlementResult{Status: entities.SettlementPending}
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			result.Status = entities.SettlementTimeout
			result.FailureReason = null.StringFrom(err.Error())
			return result
		}

		result.Attempts = attempt
		report, err := check(ctx)
		switch {
		case err != nil:
			metrics.StatusChecksTotal.WithLabelValues("error").Inc()
			logger.Warn(ctx, "Settlement status check failed", zap.Int("attempt", attempt), zap.Error(err))
		case report == nil:
			metrics.StatusChecksTotal.WithLabelValues("pending").Inc()
		case report.Status == string(entities.SettlementSuccess):
			metrics.StatusChecksTotal.WithLabelValues("success").Inc()
			result.Status = entities.SettlementSuccess
			return result
		case report.Status == string(entities.SettlementFailed):
			metrics.StatusChecksTotal.WithLabelValues("failed").Inc()
			result.Status = entities.SettlementFailed
			if report.FailedReason != "" {
				result.FailureReason = null.StringFrom(report.FailedReason)
			}
			return result
		default:
			metrics.StatusChecksTotal.WithLabelValues("pending").Inc()
		}

		if attempt < maxAttempts {
			if err := p.sleep(ctx, interval); err != nil {
				result.Status = entities.SettlementTimeout
				result.FailureReason = null.StringFrom(err.Error())
				return result
			}
		}
	}

	result.Status = entities.SettlementTimeout
	return result
}
