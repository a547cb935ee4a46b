// Package outbox реализует Outbox Pattern для доставки событий платежей в Kafka.
// Обработчик платежа пишет запись в таблицу outbox, отдельный OutboxWorker
// читает необработанные записи и отправляет их в Kafka (at-least-once).
package outbox

import (
	"encoding/json"
	"time"
)

// Типы событий платежей.
const (
	EventPaymentCreated       = "payment.created"
	EventPaymentStatusChanged = "payment.status_changed"
)

// Record — запись в таблице outbox.
type Record struct {
	ID          string            // UUID записи
	OrderID     string            // ID заказа (ключ партиционирования)
	PaymentID   string            // ID платежа в шлюзе
	EventType   string            // Тип события (payment.created / payment.status_changed)
	Topic       string            // Kafka топик
	Payload     []byte            // JSON payload
	Headers     map[string]string // Headers для Kafka (trace_id)
	CreatedAt   time.Time         // Время создания
	ProcessedAt *time.Time        // Время обработки (nil = не обработана)
	RetryCount  int               // Количество попыток отправки
	LastError   *string           // Последняя ошибка
}

// HeadersJSON возвращает headers в формате JSON для БД.
func (r *Record) HeadersJSON() ([]byte, error) {
	if r.Headers == nil {
		return nil, nil
	}
	return json.Marshal(r.Headers)
}

// SetHeadersFromJSON устанавливает headers из JSON.
func (r *Record) SetHeadersFromJSON(data []byte) error {
	if len(data) == 0 {
		return nil
	}
	return json.Unmarshal(data, &r.Headers)
}
