package repositories

import (
	"context"
	"encoding/json"

	"github.com/volatiletech/null/v8"
	"gorm.io/gorm"

	"onepay.payagent/internal/domain/entities"
	"onepay.payagent/internal/infrastructure/models"
)

// TransactionLogRepository persists the history in a SQL table
type TransactionLogRepository struct {
	db *gorm.DB
}

func NewTransactionLogRepository(db *gorm.DB) *TransactionLogRepository {
	return &TransactionLogRepository{db: db}
}

func (r *TransactionLogRepository) Prepend(ctx context.Context, record *entities.TransactionRecord) error {
	m, err := r.toModel(record)
	if err != nil {
		return err
	}
	return r.db.WithContext(ctx).Create(m).Error
}

func (r *TransactionLogRepository) UpdateByHash(ctx context.Context, hash string, patch entities.TransactionPatch) (int, error) {
	n := 0
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var ms []models.TransactionRecord
		if err := tx.Where("hash = ?", hash).Find(&ms).Error; err != nil {
			return err
		}
		for i := range ms {
			rec, err := r.toEntity(&ms[i])
			if err != nil {
				return err
			}
			patch.Apply(rec)
			updated, err := r.toModel(rec)
			if err != nil {
				return err
			}
			if err := tx.Model(&models.TransactionRecord{}).Where("id = ?", rec.ID).Updates(map[string]interface{}{
				"status":       updated.Status,
				"block_number": updated.BlockNumber,
				"metadata":     updated.Metadata,
			}).Error; err != nil {
				return err
			}
			n++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return n, nil
}

func (r *TransactionLogRepository) List(ctx context.Context) ([]*entities.TransactionRecord, error) {
	var ms []models.TransactionRecord
	if err := r.db.WithContext(ctx).
		Order("timestamp DESC, created_at DESC").
		Find(&ms).Error; err != nil {
		return nil, err
	}
	items := make([]*entities.TransactionRecord, 0, len(ms))
	for i := range ms {
		rec, err := r.toEntity(&ms[i])
		if err != nil {
			return nil, err
		}
		items = append(items, rec)
	}
	return items, nil
}

func (r *TransactionLogRepository) Clear(ctx context.Context) error {
	return r.db.WithContext(ctx).Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(&models.TransactionRecord{}).Error
}

func (r *TransactionLogRepository) toModel(e *entities.TransactionRecord) (*models.TransactionRecord, error) {
	meta := ""
	if len(e.Metadata) > 0 {
		b, err := json.Marshal(e.Metadata)
		if err != nil {
			return nil, err
		}
		meta = string(b)
	}
	return &models.TransactionRecord{
		ID:              e.ID,
		Hash:            e.Hash,
		Type:            string(e.Type),
		FromAddress:     e.From,
		ToAddress:       e.To,
		Amount:          e.Amount.Ptr(),
		EncryptedAmount: e.EncryptedAmount.Ptr(),
		Status:          string(e.Status),
		Timestamp:       e.Timestamp,
		BlockNumber:     e.BlockNumber.Ptr(),
		Network:         e.Network,
		Metadata:        meta,
	}, nil
}

func (r *TransactionLogRepository) toEntity(m *models.TransactionRecord) (*entities.TransactionRecord, error) {
	var meta map[string]interface{}
	if m.Metadata != "" {
		if err := json.Unmarshal([]byte(m.Metadata), &meta); err != nil {
			return nil, err
		}
	}
	return &entities.TransactionRecord{
		ID:              m.ID,
		Hash:            m.Hash,
		Type:            entities.TransactionType(m.Type),
		From:            m.FromAddress,
		To:              m.ToAddress,
		Amount:          null.StringFromPtr(m.Amount),
		EncryptedAmount: null.StringFromPtr(m.EncryptedAmount),
		Status:          entities.TransactionStatus(m.Status),
		Timestamp:       m.Timestamp,
		BlockNumber:     null.Uint64FromPtr(m.BlockNumber),
		Network:         m.Network,
		Metadata:        meta,
	}, nil
}
