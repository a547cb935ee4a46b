// Package mercadopago содержит HTTP клиент платёжного шлюза Mercado Pago.
// Покрывает create / get / search / cancel, идемпотентность через заголовок
// X-Idempotency-Key, таймауты, повторы с backoff и circuit breaker.
package mercadopago

import "time"

// Payer — плательщик.
type Payer struct {
	Email          string          `json:"email,omitempty"`
	FirstName      string          `json:"first_name,omitempty"`
	Identification *Identification `json:"identification,omitempty"`
}

// Identification — документ плательщика (CPF для Pix/boleto).
type Identification struct {
	Type   string `json:"type,omitempty"`
	Number string `json:"number,omitempty"`
}

// TransactionData — данные для оплаты через Pix.
type TransactionData struct {
	// QRCode — строка "copia e cola" (EMV payload).
	QRCode string `json:"qr_code,omitempty"`
	// QRCodeBase64 — PNG QR-кода в base64. Шлюз иногда не возвращает поле,
	// тогда изображение рендерится локально из QRCode.
	QRCodeBase64 string `json:"qr_code_base64,omitempty"`
	TicketURL    string `json:"ticket_url,omitempty"`
}

// PointOfInteraction — блок ответа с данными Pix.
type PointOfInteraction struct {
	TransactionData *TransactionData `json:"transaction_data,omitempty"`
}

// TransactionDetails — ссылки на внешние ресурсы (boleto PDF).
type TransactionDetails struct {
	ExternalResourceURL string `json:"external_resource_url,omitempty"`
}

// Payment — платёж на стороне шлюза (referenced, not owned).
type Payment struct {
	ID                 int64               `json:"id"`
	Status             string              `json:"status"`
	StatusDetail       string              `json:"status_detail,omitempty"`
	ExternalReference  string              `json:"external_reference,omitempty"`
	TransactionAmount  float64             `json:"transaction_amount"`
	PaymentMethodID    string              `json:"payment_method_id,omitempty"`
	Description        string              `json:"description,omitempty"`
	Metadata           map[string]any      `json:"metadata,omitempty"`
	Payer              *Payer              `json:"payer,omitempty"`
	PointOfInteraction *PointOfInteraction `json:"point_of_interaction,omitempty"`
	TransactionDetails *TransactionDetails `json:"transaction_details,omitempty"`
	DateCreated        time.Time           `json:"date_created,omitzero"`
	DateOfExpiration   *time.Time          `json:"date_of_expiration,omitempty"`
}

// MetadataString возвращает строковое значение из metadata платежа.
// Шлюз хранит metadata как JSON: значения приходят как any.
func (p *Payment) MetadataString(key string) string {
	if p.Metadata == nil {
		return ""
	}
	if v, ok := p.Metadata[key].(string); ok {
		return v
	}
	return ""
}

// CreatePaymentRequest — запрос создания платежа.
type CreatePaymentRequest struct {
	TransactionAmount float64        `json:"transaction_amount"`
	Description       string         `json:"description"`
	PaymentMethodID   string         `json:"payment_method_id"`
	ExternalReference string         `json:"external_reference"`
	NotificationURL   string         `json:"notification_url,omitempty"`
	Metadata          map[string]any `json:"metadata,omitempty"`
	Payer             *Payer         `json:"payer,omitempty"`
	DateOfExpiration  *time.Time     `json:"date_of_expiration,omitempty"`
	// Token и Installments — только для оплаты картой.
	Token        string `json:"token,omitempty"`
	Installments int    `json:"installments,omitempty"`
}

// SearchResult — ответ search endpoint.
type SearchResult struct {
	Paging  Paging     `json:"paging"`
	Results []*Payment `json:"results"`
}

// Paging — пагинация search endpoint.
type Paging struct {
	Total  int `json:"total"`
	Limit  int `json:"limit"`
	Offset int `json:"offset"`
}

// CentsToAmount конвертирует центы в decimal сумму шлюза (BRL).
func CentsToAmount(cents int64) float64 {
	return float64(cents) / 100
}

// AmountToCents конвертирует decimal сумму шлюза в центы.
// Округление до ближайшего цента — суммы шлюза имеют два знака после запятой.
func AmountToCents(amount float64) int64 {
	if amount < 0 {
		return int64(amount*100 - 0.5)
	}
	return int64(amount*100 + 0.5)
}
