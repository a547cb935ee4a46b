package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"example.com/checkout/internal/middleware"
	"example.com/checkout/internal/payment"
	"example.com/checkout/internal/repository"
	"example.com/checkout/pkg/logger"
)

// DevHandler — переопределение статуса платежа для отладки.
// Доступ: только вне production и только пользователям из таблицы dev_permission.
type DevHandler struct {
	devStore   *payment.DevOverrideStore
	users      repository.UserRepository
	production bool
}

// NewDevHandler создаёт dev-обработчик.
func NewDevHandler(devStore *payment.DevOverrideStore, users repository.UserRepository, production bool) *DevHandler {
	return &DevHandler{devStore: devStore, users: users, production: production}
}

// SetOverrideRequest — запрос на переопределение статуса.
type SetOverrideRequest struct {
	PaymentID int64  `json:"payment_id" binding:"required"`
	Status    string `json:"status" binding:"required,oneof=pending approved rejected cancelled expired in_process authorized in_mediation"`
}

// guard проверяет окружение и права. Возвращает false, если доступ закрыт
// (ответ уже отправлен).
func (h *DevHandler) guard(c *gin.Context) bool {
	if h.production {
		respondError(c, http.StatusNotFound, "not_found", "Não encontrado")
		return false
	}

	discordID := middleware.DiscordID(c)
	if discordID == "" {
		respondError(c, http.StatusUnauthorized, "unauthorized", "Sessão necessária")
		return false
	}

	allowed, err := h.users.HasDevPermission(c.Request.Context(), discordID)
	if err != nil {
		logger.Ctx(c.Request.Context()).Error().Err(err).Msg("Ошибка проверки dev-прав")
		respondError(c, http.StatusInternalServerError, "internal_error", "Erro interno")
		return false
	}
	if !allowed {
		respondError(c, http.StatusForbidden, "forbidden", "Sem permissão")
		return false
	}
	return true
}

// Get возвращает текущее переопределение статуса платежа.
// GET /api/pagment/dev?payment_id=123
func (h *DevHandler) Get(c *gin.Context) {
	if !h.guard(c) {
		return
	}

	paymentID, err := strconv.ParseInt(c.Query("payment_id"), 10, 64)
	if err != nil || paymentID <= 0 {
		respondError(c, http.StatusBadRequest, "invalid_payment_id", "payment_id inválido")
		return
	}

	status, err := h.devStore.Get(c.Request.Context(), paymentID)
	if err != nil {
		logger.Ctx(c.Request.Context()).Error().Err(err).Msg("Ошибка чтения dev-переопределения")
		respondError(c, http.StatusInternalServerError, "internal_error", "Erro interno")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"ok":         true,
		"payment_id": paymentID,
		"override":   string(status), // Пустая строка — переопределения нет
	})
}

// Clear удаляет переопределение статуса платежа: polling снова
// возвращает реальный статус шлюза.
// DELETE /api/pagment/dev?payment_id=123
func (h *DevHandler) Clear(c *gin.Context) {
	if !h.guard(c) {
		return
	}

	paymentID, err := strconv.ParseInt(c.Query("payment_id"), 10, 64)
	if err != nil || paymentID <= 0 {
		respondError(c, http.StatusBadRequest, "invalid_payment_id", "payment_id inválido")
		return
	}

	if err := h.devStore.Clear(c.Request.Context(), paymentID); err != nil {
		logger.Ctx(c.Request.Context()).Error().Err(err).Msg("Ошибка удаления dev-переопределения")
		respondError(c, http.StatusInternalServerError, "internal_error", "Erro interno")
		return
	}

	logger.Ctx(c.Request.Context()).Info().
		Int64("payment_id", paymentID).
		Str("discord_id", middleware.DiscordID(c)).
		Msg("Dev-переопределение статуса снято")

	c.JSON(http.StatusOK, gin.H{
		"ok":         true,
		"payment_id": paymentID,
		"override":   "",
	})
}

// Set задаёт переопределение статуса платежа.
// POST /api/pagment/dev
func (h *DevHandler) Set(c *gin.Context) {
	if !h.guard(c) {
		return
	}

	var req SetOverrideRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "invalid_request", "Dados da requisição inválidos")
		return
	}

	if err := h.devStore.Set(c.Request.Context(), req.PaymentID, payment.Status(req.Status)); err != nil {
		logger.Ctx(c.Request.Context()).Error().Err(err).Msg("Ошибка записи dev-переопределения")
		respondError(c, http.StatusInternalServerError, "internal_error", "Erro interno")
		return
	}

	logger.Ctx(c.Request.Context()).Info().
		Int64("payment_id", req.PaymentID).
		Str("status", req.Status).
		Str("discord_id", middleware.DiscordID(c)).
		Msg("Статус платежа переопределён для отладки")

	c.JSON(http.StatusOK, gin.H{
		"ok":         true,
		"payment_id": req.PaymentID,
		"override":   req.Status,
	})
}
