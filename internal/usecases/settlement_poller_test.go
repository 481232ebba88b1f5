package usecases

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"onepay.payagent/internal/domain/entities"
)

func scriptedCheck(statuses ...string) (StatusCheckFunc, *int) {
	calls := 0
	return func(context.Context) (*entities.StatusReport, error) {
		i := calls
		calls++
		if i >= len(statuses) {
			i = len(statuses) - 1
		}
		return &entities.StatusReport{Status: statuses[i]}, nil
	}, &calls
}

func TestSettlementPoller_TimeoutAfterMaxAttempts(t *testing.T) {
	check, calls := scriptedCheck("pending")
	result := NewSettlementPoller().Poll(context.Background(), check, 3, 0)

	assert.Equal(t, entities.SettlementTimeout, result.Status)
	assert.Equal(t, 3, *calls)
	assert.Equal(t, 3, result.Attempts)
}

func TestSettlementPoller_SuccessOnThirdCheck(t *testing.T) {
	check, calls := scriptedCheck("pending", "pending", "success")
	result := NewSettlementPoller().Poll(context.Background(), check, 12, 0)

	assert.Equal(t, entities.SettlementSuccess, result.Status)
	assert.Equal(t, 3, *calls)
	assert.False(t, result.FailureReason.Valid)
}

func TestSettlementPoller_Failed(t *testing.T) {
	calls := 0
	check := func(context.Context) (*entities.StatusReport, error) {
		calls++
		return &entities.StatusReport{Status: "failed", FailedReason: "amount mismatch"}, nil
	}
	result := NewSettlementPoller().Poll(context.Background(), check, 5, 0)

	assert.Equal(t, entities.SettlementFailed, result.Status)
	assert.Equal(t, "amount mismatch", result.FailureReason.String)
	assert.Equal(t, 1, calls)
}

func TestSettlementPoller_ErrorsCountAsPending(t *testing.T) {
	calls := 0
	check := func(context.Context) (*entities.StatusReport, error) {
		calls++
		if calls == 1 {
			return nil, errors.New("connection refused")
		}
		return &entities.StatusReport{Status: "success"}, nil
	}
	result := NewSettlementPoller().Poll(context.Background(), check, 3, 0)

	assert.Equal(t, entities.SettlementSuccess, result.Status)
	assert.Equal(t, 2, calls)
}

func TestSettlementPoller_EmptyReportCountsAsPending(t *testing.T) {
	calls := 0
	check := func(context.Context) (*entities.StatusReport, error) {
		calls++
		if calls < 3 {
			return nil, nil
		}
		return &entities.StatusReport{Status: "success"}, nil
	}
	var result entities.SettlementResult
	assert.NotPanics(t, func() {
		result = NewSettlementPoller().Poll(context.Background(), check, 3, 0)
	})
	assert.Equal(t, entities.SettlementSuccess, result.Status)
	assert.Equal(t, 3, calls)
}

func TestSettlementPoller_SleepsOnlyBetweenAttempts(t *testing.T) {
	var slept []time.Duration
	p := NewSettlementPoller()
	p.sleep = func(_ context.Context, d time.Duration) error {
		slept = append(slept, d)
		return nil
	}
	check, _ := scriptedCheck("pending")
	p.Poll(context.Background(), check, 4, 5*time.Second)

	assert.Equal(t, []time.Duration{5 * time.Second, 5 * time.Second, 5 * time.Second}, slept)
}

func TestSettlementPoller_ContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	check, calls := scriptedCheck("pending")
	p := NewSettlementPoller()
	p.sleep = func(ctx context.Context, _ time.Duration) error {
		cancel()
		return ctx.Err()
	}
	result := p.Poll(ctx, check, 10, time.Second)

	assert.Equal(t, entities.SettlementTimeout, result.Status)
	assert.Equal(t, 1, *calls)
	assert.Equal(t, context.Canceled.Error(), result.FailureReason.String)
}
