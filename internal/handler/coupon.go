package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"example.com/checkout/internal/coupon"
	"example.com/checkout/internal/middleware"
	"example.com/checkout/internal/payment"
	"example.com/checkout/internal/pricing"
	"example.com/checkout/internal/repository"
	"example.com/checkout/pkg/logger"
)

// CouponHandler — обработчик валидации и применения купонов.
type CouponHandler struct {
	service *payment.Service
	coupons repository.CouponRepository
}

// NewCouponHandler создаёт обработчик купонов.
func NewCouponHandler(service *payment.Service, coupons repository.CouponRepository) *CouponHandler {
	return &CouponHandler{service: service, coupons: coupons}
}

// ClaimCouponRequest — запрос на применение купона.
type ClaimCouponRequest struct {
	Code    string `json:"code" binding:"required"`
	Plan    string `json:"plan" binding:"required"`
	Billing string `json:"billing" binding:"required"`
}

// Validate проверяет купон и возвращает пересчитанную стоимость.
// GET /api/pagment/cupom?code=CODE&plan=pro&billing=monthly
func (h *CouponHandler) Validate(c *gin.Context) {
	ctx := c.Request.Context()

	code := c.Query("code")
	if code == "" {
		respondError(c, http.StatusBadRequest, "invalid_request", "Informe o código do cupom")
		return
	}

	res, err := h.service.QuoteOrder(ctx, &payment.QuoteRequest{
		Plan:       pricing.Plan(c.Query("plan")),
		Billing:    pricing.Billing(c.Query("billing")),
		CouponCode: code,
		DiscordID:  middleware.DiscordID(c),
	})
	if err != nil {
		HandlePaymentError(c, err, "validate_coupon")
		return
	}

	if res.Coupon.Outcome == coupon.OutcomeRejected {
		c.JSON(http.StatusOK, gin.H{
			"ok":      false,
			"valid":   false,
			"message": res.Coupon.Message,
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"ok":     true,
		"valid":  true,
		"coupon": toCouponResponse(res.Coupon),
		"quote":  toQuoteResponse(res.Quote, false),
	})
}

// Claim применяет купон: валидирует и атомарно инкрементирует счётчик
// использований через хранимую процедуру claim_coupon.
// Claim и создание платежа не связаны транзакцией — best-effort.
// POST /api/pagment/cupom
func (h *CouponHandler) Claim(c *gin.Context) {
	ctx := c.Request.Context()
	log := logger.FromContext(ctx)

	var req ClaimCouponRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "invalid_request", "Dados da requisição inválidos")
		return
	}

	discordID := middleware.DiscordID(c)

	res, err := h.service.QuoteOrder(ctx, &payment.QuoteRequest{
		Plan:       pricing.Plan(req.Plan),
		Billing:    pricing.Billing(req.Billing),
		CouponCode: req.Code,
		DiscordID:  discordID,
	})
	if err != nil {
		HandlePaymentError(c, err, "claim_coupon")
		return
	}

	if res.Coupon.Outcome != coupon.OutcomeApplied {
		respondError(c, http.StatusUnprocessableEntity, "coupon_rejected", res.Coupon.Message)
		return
	}

	// Статические купоны не ведут счётчик использований
	if res.Coupon.Source != coupon.SourceStatic {
		claimed, err := h.coupons.ClaimCoupon(ctx, res.Coupon.Code, discordID, res.Coupon.Source)
		if err != nil {
			log.Error().Err(err).Str("coupon", res.Coupon.Code).Msg("Ошибка применения купона")
			respondError(c, http.StatusInternalServerError, "internal_error", "Erro ao aplicar o cupom")
			return
		}
		if !claimed {
			respondError(c, http.StatusConflict, "coupon_exhausted", "Cupom esgotado")
			return
		}
	}

	log.Info().
		Str("coupon", res.Coupon.Code).
		Str("source", string(res.Coupon.Source)).
		Str("discord_id", discordID).
		Msg("Купон применён пользователем")

	c.JSON(http.StatusOK, gin.H{
		"ok":     true,
		"coupon": toCouponResponse(res.Coupon),
		"quote":  toQuoteResponse(res.Quote, false),
	})
}
