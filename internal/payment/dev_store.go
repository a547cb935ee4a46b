package payment

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// devOverrideTTL — время жизни dev-переопределения статуса.
const devOverrideTTL = time.Hour

// DevOverrideStore хранит переопределения статуса платежа для отладки.
// Используется только вне production: позволяет прогнать UI через
// approved/rejected без реальной оплаты.
type DevOverrideStore struct {
	client *redis.Client
}

// NewDevOverrideStore создаёт DevOverrideStore.
func NewDevOverrideStore(client *redis.Client) *DevOverrideStore {
	return &DevOverrideStore{client: client}
}

func devOverrideKey(paymentID int64) string {
	return fmt.Sprintf("devstatus:%d", paymentID)
}

// Set задаёт переопределённый статус платежа.
func (s *DevOverrideStore) Set(ctx context.Context, paymentID int64, status Status) error {
	if err := s.client.Set(ctx, devOverrideKey(paymentID), string(status), devOverrideTTL).Err(); err != nil {
		return fmt.Errorf("ошибка записи dev-переопределения: %w", err)
	}
	return nil
}

// Get возвращает переопределённый статус или пустую строку, если его нет.
func (s *DevOverrideStore) Get(ctx context.Context, paymentID int64) (Status, error) {
	val, err := s.client.Get(ctx, devOverrideKey(paymentID)).Result()
	if err != nil {
		if err == redis.Nil {
			return "", nil
		}
		return "", fmt.Errorf("ошибка чтения dev-переопределения: %w", err)
	}
	return Status(val), nil
}

// Clear удаляет переопределение.
func (s *DevOverrideStore) Clear(ctx context.Context, paymentID int64) error {
	return s.client.Del(ctx, devOverrideKey(paymentID)).Err()
}
