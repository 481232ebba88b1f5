package repositories

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"onepay.payagent/internal/domain/entities"
	"onepay.payagent/pkg/redis"
)

// RedisTransactionLogRepository stores the whole history as one JSON array under a single key,
// the same shape browser local storage held it in.
type RedisTransactionLogRepository struct {
	key string
}

func NewRedisTransactionLogRepository(key string) *RedisTransactionLogRepository {
	return &RedisTransactionLogRepository{key: key}
}

func decodeRecords(raw string) ([]*entities.TransactionRecord, error) {
	if raw == "" {
		return []*entities.TransactionRecord{}, nil
	}
	var records []*entities.TransactionRecord
	if err := json.Unmarshal([]byte(raw), &records); err != nil {
		return nil, fmt.Errorf("corrupt transaction log: %w", err)
	}
	return records, nil
}

func encodeRecords(records []*entities.TransactionRecord) (string, error) {
	b, err := json.Marshal(records)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func (r *RedisTransactionLogRepository) Prepend(ctx context.Context, record *entities.TransactionRecord) error {
	return redis.Update(ctx, r.key, func(current string) (string, error) {
		records, err := decodeRecords(current)
		if err != nil {
			return "", err
		}
		return encodeRecords(append([]*entities.TransactionRecord{record}, records...))
	})
}

func (r *RedisTransactionLogRepository) UpdateByHash(ctx context.Context, hash string, patch entities.TransactionPatch) (int, error) {
	n := 0
	err := redis.Update(ctx, r.key, func(current string) (string, error) {
		records, err := decodeRecords(current)
		if err != nil {
			return "", err
		}
		n = 0
		for _, rec := range records {
			if rec.Hash == hash {
				patch.Apply(rec)
				n++
			}
		}
		return encodeRecords(records)
	})
	if err != nil {
		return 0, err
	}
	return n, nil
}

func (r *RedisTransactionLogRepository) List(ctx context.Context) ([]*entities.TransactionRecord, error) {
	raw, err := redis.Get(ctx, r.key)
	if errors.Is(err, redis.ErrNil) {
		return []*entities.TransactionRecord{}, nil
	}
	if err != nil {
		return nil, err
	}
	return decodeRecords(raw)
}

func (r *RedisTransactionLogRepository) Clear(ctx context.Context) error {
	return redis.Del(ctx, r.key)
}
