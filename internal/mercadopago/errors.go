package mercadopago

import (
	"errors"
	"fmt"
	"strings"
)

// Известные причины отказа шлюза, для которых есть осмысленная подсказка клиенту.
var (
	// ErrMissingPixKey — у аккаунта продавца не настроен Pix-ключ,
	// шлюз не может отрендерить QR.
	ErrMissingPixKey = errors.New("у аккаунта не настроен Pix-ключ")

	// ErrPolicyRejected — платёж отклонён policy/risk-правилами шлюза
	// (как правило, слишком маленькая сумма).
	ErrPolicyRejected = errors.New("платёж отклонён правилами шлюза")
)

// APIError — ошибка, возвращённая API шлюза.
// Исходный payload логируется на сервере, но не отдаётся клиенту as-is.
type APIError struct {
	StatusCode int    // HTTP статус ответа
	Code       string // Машиночитаемый код причины (из cause)
	Message    string // Сообщение шлюза

	// cause — распознанная sentinel-ошибка (ErrMissingPixKey и т.д.),
	// доступна обработчикам через errors.Is.
	cause error
}

// Error возвращает строковое представление ошибки.
func (e *APIError) Error() string {
	return fmt.Sprintf("mercadopago: HTTP %d, code=%s: %s", e.StatusCode, e.Code, e.Message)
}

// Unwrap возвращает распознанную причину отказа.
func (e *APIError) Unwrap() error {
	return e.cause
}

// Retryable возвращает true, если запрос имеет смысл повторить.
// Повторяем только 429 и 5xx; 4xx — ошибка запроса, повтор бесполезен.
func (e *APIError) Retryable() bool {
	return e.StatusCode == 429 || e.StatusCode >= 500
}

// errorBody — формат тела ошибки API.
type errorBody struct {
	Message string `json:"message"`
	Err     string `json:"error"`
	Status  int    `json:"status"`
	Cause   []struct {
		Code        any    `json:"code"` // Шлюз отдаёт code то числом, то строкой
		Description string `json:"description"`
	} `json:"cause"`
}

// classify распознаёт известные причины отказа и прикрепляет
// sentinel-ошибку к APIError (доступна через errors.Is).
func classify(apiErr *APIError) error {
	msg := strings.ToLower(apiErr.Message)

	// Pix-ключ не настроен: "Collector user without key enabled for QR render"
	if strings.Contains(msg, "without key enabled") || apiErr.Code == "13253" {
		apiErr.cause = ErrMissingPixKey
	}

	// Policy/risk отказ: минимальные суммы, высокий риск
	if strings.Contains(msg, "cannot pay") ||
		strings.Contains(msg, "high_risk") ||
		apiErr.Code == "cc_rejected_high_risk" {
		apiErr.cause = ErrPolicyRejected
	}

	return apiErr
}
