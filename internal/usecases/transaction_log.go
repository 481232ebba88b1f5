package usecases

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/volatiletech/null/v8"
	"go.uber.org/zap"

	"onepay.payagent/internal/domain/entities"
	domainerrors "onepay.payagent/internal/domain/errors"
	"onepay.payagent/internal/domain/repositories"
	"onepay.payagent/internal/metrics"
	"onepay.payagent/pkg/logger"
)

const defaultRecentLimit = 10

// Metadata keys written by the orchestrator and read back by the reconciler
const (
	metaOrderID    = "orderId"
	metaChain      = "chain"
	metaBlockchain = "blockchain"
	metaSender     = "sender"
	metaReceiver   = "receiver"
	metaToken      = "toToken"
	metaAfterBlock = "afterBlock"
	metaDeadline   = "deadline"
	metaExplorer   = "explorerUrl"
	metaFailure    = "failureReason"
	metaCipher     = "fheCiphertext"
)

// TransactionLog is the display history of executed payments, newest first
type TransactionLog struct {
	repo repositories.TransactionLogRepository
	now  func() time.Time
}

func NewTransactionLog(repo repositories.TransactionLogRepository) *TransactionLog {
	return &TransactionLog{repo: repo, now: time.Now}
}

// Add stamps the record with its id and timestamp and stores it at the head of the log
func (l *TransactionLog) Add(ctx context.Context, record *entities.TransactionRecord) (string, error) {
	if record == nil || record.Hash == "" {
		return "", domainerrors.BadRequest("transaction hash is required")
	}
	stamped := entities.NewTransactionRecord(record.Hash, l.now())
	record.ID = stamped.ID
	record.Timestamp = stamped.Timestamp
	if record.Status == "" {
		record.Status = entities.TransactionStatusPending
	}
	if err := l.repo.Prepend(ctx, record); err != nil {
		return "", fmt.Errorf("failed to store transaction: %w", err)
	}
	return record.ID, nil
}

// Update patches the records with the given hash and reports whether any matched
func (l *TransactionLog) Update(ctx context.Context, hash string, patch entities.TransactionPatch) (bool, error) {
	n, err := l.repo.UpdateByHash(ctx, hash, patch)
	if err != nil {
		return false, fmt.Errorf("failed to update transaction: %w", err)
	}
	return n > 0, nil
}

func (l *TransactionLog) List(ctx context.Context) ([]*entities.TransactionRecord, error) {
	return l.repo.List(ctx)
}

func (l *TransactionLog) ListByType(ctx context.Context, t entities.TransactionType) ([]*entities.TransactionRecord, error) {
	return l.filter(ctx, func(r *entities.TransactionRecord) bool { return r.Type == t })
}

// ListByAddress returns records sent from or to address, ignoring case
func (l *TransactionLog) ListByAddress(ctx context.Context, address string) ([]*entities.TransactionRecord, error) {
	return l.filter(ctx, func(r *entities.TransactionRecord) bool {
		return strings.EqualFold(r.From, address) || strings.EqualFold(r.To, address)
	})
}

// Recent returns up to limit of the newest records
func (l *TransactionLog) Recent(ctx context.Context, limit int) ([]*entities.TransactionRecord, error) {
	if limit <= 0 {
		limit = defaultRecentLimit
	}
	all, err := l.repo.List(ctx)
	if err != nil {
		return nil, err
	}
	if len(all) > limit {
		all = all[:limit]
	}
	return all, nil
}

// GetByHash returns the newest record with the hash
func (l *TransactionLog) GetByHash(ctx context.Context, hash string) (*entities.TransactionRecord, error) {
	all, err := l.repo.List(ctx)
	if err != nil {
		return nil, err
	}
	for _, r := range all {
		if r.Hash == hash {
			return r, nil
		}
	}
	return nil, domainerrors.NotFound("transaction not found")
}

func (l *TransactionLog) Clear(ctx context.Context) error {
	return l.repo.Clear(ctx)
}

// Pending returns records whose settlement was never confirmed either way
func (l *TransactionLog) Pending(ctx context.Context) ([]*entities.TransactionRecord, error) {
	return l.filter(ctx, func(r *entities.TransactionRecord) bool {
		return r.Status == entities.TransactionStatusPending || r.Status == entities.TransactionStatusTimeout
	})
}

func (l *TransactionLog) filter(ctx context.Context, keep func(*entities.TransactionRecord) bool) ([]*entities.TransactionRecord, error) {
	all, err := l.repo.List(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]*entities.TransactionRecord, 0, len(all))
	for _, r := range all {
		if keep(r) {
			out = append(out, r)
		}
	}
	return out, nil
}

// TransactionReconciler re-checks unresolved history records against the backend
type TransactionReconciler struct {
	log     *TransactionLog
	backend PaymentBackend
}

func NewTransactionReconciler(log *TransactionLog, backend PaymentBackend) *TransactionReconciler {
	return &TransactionReconciler{log: log, backend: backend}
}

// ReconcilePending issues one status check per unresolved record and stores final answers.
// It returns how many records were resolved.
func (r *TransactionReconciler) ReconcilePending(ctx context.Context) (int, error) {
	pending, err := r.log.Pending(ctx)
	if err != nil {
		return 0, err
	}

	resolved := 0
	for _, rec := range pending {
		if err := ctx.Err(); err != nil {
			return resolved, err
		}
		query, ok := statusQueryFromRecord(rec)
		if !ok {
			continue
		}
		report, err := r.backend.CheckStatus(ctx, query)
		if err != nil {
			logger.Warn(ctx, "Reconcile status check failed", zap.String("hash", rec.Hash), zap.Error(err))
			continue
		}

		var status entities.TransactionStatus
		switch report.Status {
		case string(entities.SettlementSuccess):
			status = entities.TransactionStatusSuccess
		case string(entities.SettlementFailed):
			status = entities.TransactionStatusFailed
		default:
			continue
		}
		patch := entities.TransactionPatch{Status: &status}
		if report.FailedReason != "" {
			patch.Metadata = map[string]interface{}{metaFailure: report.FailedReason}
		}
		if _, err := r.log.Update(ctx, rec.Hash, patch); err != nil {
			logger.Error(ctx, "Failed to store reconciled status", zap.String("hash", rec.Hash), zap.Error(err))
			continue
		}
		metrics.ReconciledTotal.WithLabelValues(string(status)).Inc()
		resolved++
	}
	return resolved, nil
}

// statusQueryMetadata records what the reconciler needs to re-issue a status check
func statusQueryMetadata(q entities.StatusQuery) map[string]interface{} {
	meta := map[string]interface{}{
		metaBlockchain: q.Blockchain,
		metaSender:     q.Sender,
		metaReceiver:   q.Receiver,
		metaToken:      q.ToToken,
		metaAfterBlock: strconv.FormatUint(q.AfterBlock, 10),
		metaDeadline:   strconv.FormatInt(q.Deadline, 10),
	}
	if q.OrderID != "" {
		meta[metaOrderID] = q.OrderID
	}
	return meta
}

func statusQueryFromRecord(rec *entities.TransactionRecord) (entities.StatusQuery, bool) {
	q := entities.StatusQuery{
		OrderID:     metaString(rec.Metadata, metaOrderID),
		Blockchain:  metaString(rec.Metadata, metaBlockchain),
		Transaction: rec.Hash,
		Sender:      metaString(rec.Metadata, metaSender),
		Receiver:    metaString(rec.Metadata, metaReceiver),
		ToToken:     metaString(rec.Metadata, metaToken),
	}
	if q.Blockchain == "" || q.Transaction == "" {
		return q, false
	}
	q.AfterBlock, _ = strconv.ParseUint(metaString(rec.Metadata, metaAfterBlock), 10, 64)
	q.Deadline, _ = strconv.ParseInt(metaString(rec.Metadata, metaDeadline), 10, 64)
	return q, true
}

func metaString(m map[string]interface{}, key string) string {
	switch v := m[key].(type) {
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case nil:
		return ""
	default:
		return fmt.Sprint(v)
	}
}

func nullIfEmpty(s string) null.String {
	if s == "" {
		return null.String{}
	}
	return null.StringFrom(s)
}
