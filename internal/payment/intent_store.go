package payment

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Intent — запись dedup-кэша о недавно созданном платеже.
type Intent struct {
	PaymentID   int64  `json:"payment_id"`
	Fingerprint string `json:"fingerprint"`
}

// IntentStore хранит недавние платёжные намерения в Redis.
// Ключ — (order_id, revision, method), TTL короткий (по умолчанию 120s):
// кэш гасит double-click и reload, долгосрочная дедупликация — через
// поиск по external_reference в шлюзе.
//
// Redis вместо process-local map: состояние дедупликации общее для всех
// инстансов и переживает рестарт процесса.
type IntentStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewIntentStore создаёт IntentStore.
func NewIntentStore(client *redis.Client, ttl time.Duration) *IntentStore {
	return &IntentStore{client: client, ttl: ttl}
}

// intentKey возвращает Redis-ключ записи.
func intentKey(orderID string, revision int, method string) string {
	return fmt.Sprintf("intent:%s:%d:%s", orderID, revision, method)
}

// Put регистрирует созданный платёж в кэше.
func (s *IntentStore) Put(ctx context.Context, orderID string, revision int, method string, intent *Intent) error {
	data, err := json.Marshal(intent)
	if err != nil {
		return fmt.Errorf("ошибка сериализации intent: %w", err)
	}

	if err := s.client.Set(ctx, intentKey(orderID, revision, method), data, s.ttl).Err(); err != nil {
		return fmt.Errorf("ошибка записи intent в Redis: %w", err)
	}
	return nil
}

// Get возвращает недавнее платёжное намерение или nil, если записи нет.
func (s *IntentStore) Get(ctx context.Context, orderID string, revision int, method string) (*Intent, error) {
	data, err := s.client.Get(ctx, intentKey(orderID, revision, method)).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, nil
		}
		return nil, fmt.Errorf("ошибка чтения intent из Redis: %w", err)
	}

	var intent Intent
	if err := json.Unmarshal(data, &intent); err != nil {
		return nil, fmt.Errorf("ошибка десериализации intent: %w", err)
	}
	return &intent, nil
}

// Delete удаляет запись (платёж отменён, кэш больше не актуален).
func (s *IntentStore) Delete(ctx context.Context, orderID string, revision int, method string) error {
	return s.client.Del(ctx, intentKey(orderID, revision, method)).Err()
}
