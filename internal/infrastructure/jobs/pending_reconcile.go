package jobs

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"onepay.payagent/pkg/logger"
)

// PendingReconciler resolves history records whose settlement was never confirmed
type PendingReconciler interface {
	ReconcilePending(ctx context.Context) (int, error)
}

// PendingReconcileJob periodically re-checks pending and timed out payments
type PendingReconcileJob struct {
	reconciler PendingReconciler
	interval   time.Duration
	stop       chan struct{}
	stopOnce   sync.Once
}

func NewPendingReconcileJob(reconciler PendingReconciler, interval time.Duration) *PendingReconcileJob {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	return &PendingReconcileJob{
		reconciler: reconciler,
		interval:   interval,
		stop:       make(chan struct{}),
	}
}

func (j *PendingReconcileJob) Start(ctx context.Context) {
	logger.Info(ctx, "Starting pending payment reconcile job", zap.Duration("interval", j.interval))

	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Info(ctx, "Pending payment reconcile job stopped (context cancelled)")
			return
		case <-j.stop:
			logger.Info(ctx, "Pending payment reconcile job stopped")
			return
		case <-ticker.C:
			j.reconcile(ctx)
		}
	}
}

// Stop ends Start; later calls are no-ops
func (j *PendingReconcileJob) Stop() {
	j.stopOnce.Do(func() { close(j.stop) })
}

func (j *PendingReconcileJob) reconcile(ctx context.Context) {
	resolved, err := j.reconciler.ReconcilePending(ctx)
	if err != nil {
		logger.Error(ctx, "Error reconciling pending payments", zap.Error(err))
		return
	}
	if resolved > 0 {
		logger.Info(ctx, "Reconciled pending payments", zap.Int("resolved", resolved))
	}
}
