// Package handler содержит HTTP обработчики REST API checkout.
// Все JSON ответы несут поле ok; ошибки дополнительно trace_id
// для корреляции с обращениями в поддержку.
package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"example.com/checkout/internal/mercadopago"
	"example.com/checkout/internal/payment"
	"example.com/checkout/internal/pricing"
	"example.com/checkout/pkg/circuitbreaker"
	"example.com/checkout/pkg/logger"
)

// ErrorResponse — стандартный формат ошибки API.
type ErrorResponse struct {
	OK      bool   `json:"ok"`
	Error   string `json:"error"`
	Message string `json:"message"`
	TraceID string `json:"trace_id,omitempty"`
}

// respondError отправляет ошибку клиенту с trace_id.
func respondError(c *gin.Context, httpStatus int, errorCode, message string) {
	c.JSON(httpStatus, ErrorResponse{
		OK:      false,
		Error:   errorCode,
		Message: message,
		TraceID: c.GetString("trace_id"),
	})
}

// HandlePaymentError преобразует ошибку платёжного слоя в HTTP ответ.
// Известные причины отказа шлюза получают подсказку по устранению;
// всё остальное — generic 500 с trace_id, payload шлюза не эхо-ится клиенту.
func HandlePaymentError(c *gin.Context, err error, method string) {
	log := logger.FromContext(c.Request.Context())

	switch {
	case errors.Is(err, pricing.ErrUnknownPlan):
		respondError(c, http.StatusBadRequest, "unknown_plan", "Plano desconhecido")

	case errors.Is(err, pricing.ErrUnknownBilling):
		respondError(c, http.StatusBadRequest, "unknown_billing", "Período de cobrança desconhecido")

	case errors.Is(err, payment.ErrUnknownMethod):
		respondError(c, http.StatusBadRequest, "unknown_method", "Método de pagamento desconhecido")

	case errors.Is(err, payment.ErrMissingCardData):
		respondError(c, http.StatusBadRequest, "missing_card_data", "Dados do cartão incompletos")

	case errors.Is(err, payment.ErrPaymentNotFound):
		respondError(c, http.StatusNotFound, "payment_not_found", "Pagamento não encontrado")

	case errors.Is(err, mercadopago.ErrMissingPixKey):
		// Проблема настройки аккаунта продавца, не клиента
		log.Error().Err(err).Str("method", method).Msg("Pix-ключ не настроен у аккаунта шлюза")
		respondError(c, http.StatusUnprocessableEntity, "pix_key_missing",
			"Pix indisponível no momento. Configure uma chave Pix na conta do vendedor ou tente outro método")

	case errors.Is(err, mercadopago.ErrPolicyRejected):
		log.Warn().Err(err).Str("method", method).Msg("Платёж отклонён policy-правилами шлюза")
		respondError(c, http.StatusUnprocessableEntity, "policy_rejected",
			"Pagamento recusado pelo provedor. Verifique o valor mínimo do método escolhido")

	case errors.Is(err, circuitbreaker.ErrOpen):
		log.Warn().Str("method", method).Msg("Платёжный шлюз недоступен (circuit breaker открыт)")
		respondError(c, http.StatusServiceUnavailable, "gateway_unavailable",
			"Provedor de pagamento temporariamente indisponível. Tente novamente em instantes")

	default:
		log.Error().Err(err).Str("method", method).Msg("Внутренняя ошибка платёжного слоя")
		respondError(c, http.StatusInternalServerError, "internal_error", "Erro interno. Tente novamente")
	}
}
