package repositories

import (
	"context"
	"sync"

	"onepay.payagent/internal/domain/entities"
)

// MemoryTransactionLogRepository keeps the history in process memory
type MemoryTransactionLogRepository struct {
	mu      sync.RWMutex
	records []*entities.TransactionRecord
}

func NewMemoryTransactionLogRepository() *MemoryTransactionLogRepository {
	return &MemoryTransactionLogRepository{}
}

func (r *MemoryTransactionLogRepository) Prepend(_ context.Context, record *entities.TransactionRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.records = append([]*entities.TransactionRecord{cloneRecord(record)}, r.records...)
	return nil
}

func (r *MemoryTransactionLogRepository) UpdateByHash(_ context.Context, hash string, patch entities.TransactionPatch) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, rec := range r.records {
		if rec.Hash == hash {
			patch.Apply(rec)
			n++
		}
	}
	return n, nil
}

func (r *MemoryTransactionLogRepository) List(_ context.Context) ([]*entities.TransactionRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*entities.TransactionRecord, 0, len(r.records))
	for _, rec := range r.records {
		out = append(out, cloneRecord(rec))
	}
	return out, nil
}

func (r *MemoryTransactionLogRepository) Clear(_ context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.records = nil
	return nil
}

func cloneRecord(rec *entities.TransactionRecord) *entities.TransactionRecord {
	cp := *rec
	if rec.Metadata != nil {
		cp.Metadata = make(map[string]interface{}, len(rec.Metadata))
		for k, v := range rec.Metadata {
			cp.Metadata[k] = v
		}
	}
	return &cp
}
