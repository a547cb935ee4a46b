package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"example.com/checkout/internal/coupon"
	"example.com/checkout/internal/middleware"
	"example.com/checkout/internal/payment"
	"example.com/checkout/internal/pricing"
	"example.com/checkout/pkg/logger"
)

// PaymentHandler — обработчик платежей.
type PaymentHandler struct {
	service  *payment.Service
	devStore *payment.DevOverrideStore

	// devEnabled — применять ли dev-переопределения статуса (false в production).
	devEnabled bool
}

// NewPaymentHandler создаёт обработчик платежей.
func NewPaymentHandler(service *payment.Service, devStore *payment.DevOverrideStore, devEnabled bool) *PaymentHandler {
	return &PaymentHandler{
		service:    service,
		devStore:   devStore,
		devEnabled: devEnabled,
	}
}

// === Request/Response DTOs ===

// CreatePaymentRequest — запрос на создание платежа.
type CreatePaymentRequest struct {
	OrderID    string `json:"order_id"` // Пустой — генерируется сервером
	Revision   int    `json:"revision" binding:"min=0"`
	Method     string `json:"method" binding:"required,oneof=pix boleto card"`
	Plan       string `json:"plan" binding:"required"`
	Billing    string `json:"billing" binding:"required"`
	CouponCode string `json:"coupon_code"`

	PayerEmail     string `json:"payer_email" binding:"required,email"`
	PayerCPF       string `json:"payer_cpf"`
	PayerFirstName string `json:"payer_first_name"`

	CardToken    string `json:"card_token"`
	CardBrand    string `json:"card_brand"`
	Installments int    `json:"installments"`

	CancelPrevious   bool  `json:"cancel_previous"`
	ReplacePaymentID int64 `json:"replace_payment_id"`
}

// QuoteResponse — расчёт стоимости в ответе.
type QuoteResponse struct {
	Plan          string `json:"plan"`
	Billing       string `json:"billing"`
	UnitCents     int64  `json:"unit_cents"`
	Months        int    `json:"months"`
	BaseCents     int64  `json:"base_cents"`
	DiscountCents int64  `json:"discount_cents"`
	TotalCents    int64  `json:"total_cents"`
	FloorApplied  bool   `json:"floor_applied,omitempty"`
}

// CouponResponse — исход применения купона в ответе.
type CouponResponse struct {
	Outcome       string `json:"outcome"`
	Code          string `json:"code,omitempty"`
	Message       string `json:"message,omitempty"`
	DiscountCents int64  `json:"discount_cents,omitempty"`
}

// CreatePaymentResponse — ответ на создание платежа.
type CreatePaymentResponse struct {
	OK           bool                  `json:"ok"`
	OrderID      string                `json:"order_id"`
	Revision     int                   `json:"revision"`
	PaymentID    int64                 `json:"payment_id"`
	Status       string                `json:"status"`
	Deduped      bool                  `json:"deduped"`
	DedupSource  string                `json:"dedup_source,omitempty"`
	Quote        QuoteResponse         `json:"quote"`
	Coupon       *CouponResponse       `json:"coupon,omitempty"`
	Cancellation *payment.Cancellation `json:"cancellation,omitempty"`
	QRCode       string                `json:"qr_code,omitempty"`
	QRCodeBase64 string                `json:"qr_code_base64,omitempty"`
	BoletoURL    string                `json:"boleto_url,omitempty"`
}

// PaymentStatusResponse — ответ на polling статуса.
type PaymentStatusResponse struct {
	OK           bool   `json:"ok"`
	PaymentID    int64  `json:"payment_id"`
	Status       string `json:"status"`
	StatusDetail string `json:"status_detail,omitempty"`
	Terminal     bool   `json:"terminal"` // true — клиент останавливает polling
}

// === Handlers ===

// Get обрабатывает GET /api/pagment.
// С payment_id — polling статуса, без — расчёт стоимости.
func (h *PaymentHandler) Get(c *gin.Context) {
	if c.Query("payment_id") != "" {
		h.pollStatus(c)
		return
	}
	h.quote(c)
}

// quote возвращает расчёт стоимости заказа.
// GET /api/pagment?plan=pro&billing=monthly&coupon=CODE&method=pix
func (h *PaymentHandler) quote(c *gin.Context) {
	ctx := c.Request.Context()

	plan := c.Query("plan")
	billing := c.Query("billing")
	if plan == "" || billing == "" {
		respondError(c, http.StatusBadRequest, "invalid_request", "Informe plan e billing")
		return
	}

	res, err := h.service.QuoteOrder(ctx, &payment.QuoteRequest{
		Plan:       pricing.Plan(plan),
		Billing:    pricing.Billing(billing),
		CouponCode: c.Query("coupon"),
		DiscordID:  middleware.DiscordID(c),
		Method:     c.Query("method"),
	})
	if err != nil {
		HandlePaymentError(c, err, "quote")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"ok":     true,
		"quote":  toQuoteResponse(res.Quote, res.FloorApplied),
		"coupon": toCouponResponse(res.Coupon),
	})
}

// pollStatus возвращает текущий статус платежа.
// GET /api/pagment?payment_id=123
func (h *PaymentHandler) pollStatus(c *gin.Context) {
	ctx := c.Request.Context()

	paymentID, err := strconv.ParseInt(c.Query("payment_id"), 10, 64)
	if err != nil || paymentID <= 0 {
		respondError(c, http.StatusBadRequest, "invalid_payment_id", "payment_id inválido")
		return
	}

	var devOverride payment.Status
	if h.devEnabled && h.devStore != nil {
		devOverride, err = h.devStore.Get(ctx, paymentID)
		if err != nil {
			// Переопределение best-effort: идём к шлюзу за реальным статусом
			logger.Ctx(ctx).Warn().Err(err).Msg("Ошибка чтения dev-переопределения")
			devOverride = ""
		}
	}

	res, err := h.service.GetStatus(ctx, paymentID, devOverride)
	if err != nil {
		HandlePaymentError(c, err, "poll_status")
		return
	}

	c.JSON(http.StatusOK, PaymentStatusResponse{
		OK:           true,
		PaymentID:    res.Payment.ID,
		Status:       string(res.Status),
		StatusDetail: res.Payment.StatusDetail,
		Terminal:     res.Terminal,
	})
}

// Create создаёт платёж (или возвращает существующий при дедупликации).
// POST /api/pagment
func (h *PaymentHandler) Create(c *gin.Context) {
	ctx := c.Request.Context()
	log := logger.FromContext(ctx)

	var req CreatePaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		log.Debug().Err(err).Msg("Невалидный запрос на создание платежа")
		respondError(c, http.StatusBadRequest, "invalid_request", "Dados da requisição inválidos")
		return
	}

	// order_id назначается сервером при первом платеже заказа
	if req.OrderID == "" {
		req.OrderID = uuid.NewString()
	}

	res, err := h.service.Create(ctx, &payment.CreateRequest{
		OrderID:          req.OrderID,
		Revision:         req.Revision,
		Method:           req.Method,
		Plan:             pricing.Plan(req.Plan),
		Billing:          pricing.Billing(req.Billing),
		CouponCode:       req.CouponCode,
		DiscordID:        middleware.DiscordID(c),
		PayerEmail:       req.PayerEmail,
		PayerCPF:         req.PayerCPF,
		PayerFirstName:   req.PayerFirstName,
		CardToken:        req.CardToken,
		CardBrand:        req.CardBrand,
		Installments:     req.Installments,
		CancelPrevious:   req.CancelPrevious,
		ReplacePaymentID: req.ReplacePaymentID,
	})
	if err != nil {
		HandlePaymentError(c, err, "create_payment")
		return
	}

	// Купон отклонён — платёж не создан, клиент должен исправить код
	if res.Coupon != nil && res.Coupon.Outcome == coupon.OutcomeRejected {
		respondError(c, http.StatusUnprocessableEntity, "coupon_rejected", res.Coupon.Message)
		return
	}

	c.JSON(http.StatusOK, CreatePaymentResponse{
		OK:           true,
		OrderID:      req.OrderID,
		Revision:     req.Revision,
		PaymentID:    res.Payment.ID,
		Status:       res.Payment.Status,
		Deduped:      res.Deduped,
		DedupSource:  res.DedupSource,
		Quote:        toQuoteResponse(res.Quote, res.FloorApplied),
		Coupon:       toCouponResponse(res.Coupon),
		Cancellation: res.Cancellation,
		QRCode:       res.QRCode,
		QRCodeBase64: res.QRCodeBase64,
		BoletoURL:    res.BoletoURL,
	})
}

// === Преобразования DTO ===

func toQuoteResponse(q *pricing.Quote, floorApplied bool) QuoteResponse {
	return QuoteResponse{
		Plan:          string(q.Plan),
		Billing:       string(q.Billing),
		UnitCents:     q.UnitCents,
		Months:        q.Months,
		BaseCents:     q.BaseCents,
		DiscountCents: q.DiscountCents,
		TotalCents:    q.TotalCents,
		FloorApplied:  floorApplied,
	}
}

func toCouponResponse(res *coupon.Result) *CouponResponse {
	if res == nil || res.Outcome == coupon.OutcomeNotApplied {
		return nil
	}
	return &CouponResponse{
		Outcome:       string(res.Outcome),
		Code:          res.Code,
		Message:       res.Message,
		DiscountCents: res.DiscountCents,
	}
}
