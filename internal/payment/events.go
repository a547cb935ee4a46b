package payment

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"

	"example.com/checkout/internal/mercadopago"
	"example.com/checkout/pkg/kafka"
	"example.com/checkout/pkg/logger"
	"example.com/checkout/pkg/outbox"
)

// Event — payload события платежа для Kafka.
type Event struct {
	Event       string    `json:"event"`
	OrderID     string    `json:"order_id"`
	Revision    int       `json:"revision"`
	PaymentID   int64     `json:"payment_id"`
	Status      string    `json:"status"`
	OldStatus   string    `json:"old_status,omitempty"`
	Method      string    `json:"method"`
	AmountCents int64     `json:"amount_cents"`
	OccurredAt  time.Time `json:"occurred_at"`
}

// Publisher пишет события платежей в outbox.
// Доставка в Kafka — асинхронная, через OutboxWorker (at-least-once).
type Publisher struct {
	repo outbox.Repository
}

// NewPublisher создаёт Publisher.
func NewPublisher(repo outbox.Repository) *Publisher {
	return &Publisher{repo: repo}
}

// PaymentCreated публикует событие создания платежа.
func (p *Publisher) PaymentCreated(ctx context.Context, orderID string, revision int, method string, pmt *mercadopago.Payment) error {
	return p.publish(ctx, outbox.EventPaymentCreated, &Event{
		Event:       outbox.EventPaymentCreated,
		OrderID:     orderID,
		Revision:    revision,
		PaymentID:   pmt.ID,
		Status:      pmt.Status,
		Method:      method,
		AmountCents: mercadopago.AmountToCents(pmt.TransactionAmount),
		OccurredAt:  time.Now().UTC(),
	})
}

// StatusChanged публикует событие смены статуса платежа.
func (p *Publisher) StatusChanged(ctx context.Context, orderID string, pmt *mercadopago.Payment, oldStatus Status) error {
	return p.publish(ctx, outbox.EventPaymentStatusChanged, &Event{
		Event:       outbox.EventPaymentStatusChanged,
		OrderID:     orderID,
		PaymentID:   pmt.ID,
		Status:      pmt.Status,
		OldStatus:   string(oldStatus),
		Method:      pmt.PaymentMethodID,
		AmountCents: mercadopago.AmountToCents(pmt.TransactionAmount),
		OccurredAt:  time.Now().UTC(),
	})
}

// publish сериализует событие и пишет запись outbox.
func (p *Publisher) publish(ctx context.Context, eventType string, event *Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("ошибка сериализации события: %w", err)
	}

	record := &outbox.Record{
		ID:        uuid.NewString(),
		OrderID:   event.OrderID,
		PaymentID: strconv.FormatInt(event.PaymentID, 10),
		EventType: eventType,
		Topic:     kafka.TopicPaymentEvents,
		Payload:   payload,
	}
	if traceID := logger.TraceIDFromContext(ctx); traceID != "" {
		record.Headers = map[string]string{kafka.HeaderTraceID: traceID}
	}

	if err := p.repo.Create(ctx, record); err != nil {
		return fmt.Errorf("ошибка записи события в outbox: %w", err)
	}
	return nil
}
