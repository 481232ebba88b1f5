package repositories

import (
	"context"

	"onepay.payagent/internal/domain/entities"
)

// TransactionLogRepository stores the display history of executed payments.
// Implementations keep records newest first.
type TransactionLogRepository interface {
	// Prepend stores a new record ahead of all existing ones
	Prepend(ctx context.Context, record *entities.TransactionRecord) error
	// UpdateByHash patches every record carrying the hash and reports how many matched
	UpdateByHash(ctx context.Context, hash string, patch entities.TransactionPatch) (int, error)
	List(ctx context.Context) ([]*entities.TransactionRecord, error)
	Clear(ctx context.Context) error
}
