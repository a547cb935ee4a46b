package payment

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// statusTTL — как долго помним последний увиденный статус платежа.
// Дольше окна клиентского polling с запасом.
const statusTTL = 24 * time.Hour

// StatusTracker хранит последний увиденный статус платежа.
// Используется при polling для публикации события смены статуса
// ровно при первом наблюдении перехода.
type StatusTracker struct {
	client *redis.Client
}

// NewStatusTracker создаёт StatusTracker.
func NewStatusTracker(client *redis.Client) *StatusTracker {
	return &StatusTracker{client: client}
}

func statusKey(paymentID int64) string {
	return fmt.Sprintf("paystatus:%d", paymentID)
}

// Swap записывает новый статус и возвращает предыдущий
// (пустая строка — статус ещё не наблюдался).
func (t *StatusTracker) Swap(ctx context.Context, paymentID int64, status Status) (Status, error) {
	old, err := t.client.GetSet(ctx, statusKey(paymentID), string(status)).Result()
	if err != nil && err != redis.Nil {
		return "", fmt.Errorf("ошибка записи статуса в Redis: %w", err)
	}
	// GETSET сбрасывает TTL — выставляем заново
	if err := t.client.Expire(ctx, statusKey(paymentID), statusTTL).Err(); err != nil {
		return "", fmt.Errorf("ошибка выставления TTL статуса: %w", err)
	}
	return Status(old), nil
}
