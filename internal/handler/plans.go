package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"example.com/checkout/internal/pricing"
	"example.com/checkout/internal/repository"
	"example.com/checkout/pkg/logger"
)

// PlansHandler — обработчик витрины тарифов.
type PlansHandler struct {
	pricing *pricing.Engine
	plans   repository.PlanRepository
}

// NewPlansHandler создаёт обработчик тарифов.
func NewPlansHandler(engine *pricing.Engine, plans repository.PlanRepository) *PlansHandler {
	return &PlansHandler{pricing: engine, plans: plans}
}

// PlanResponse — тариф в ответе.
type PlanResponse struct {
	Plan             string   `json:"plan"`
	UnitCents        int64    `json:"unit_cents"`
	AnnualTotalCents int64    `json:"annual_total_cents"`
	Features         []string `json:"features"`
}

// List возвращает тарифы с ценами и фичами.
// GET /api/plans
func (h *PlansHandler) List(c *gin.Context) {
	ctx := c.Request.Context()

	features, err := h.plans.GetFeatures(ctx)
	if err != nil {
		logger.Ctx(ctx).Error().Err(err).Msg("Ошибка загрузки фич тарифов")
		respondError(c, http.StatusInternalServerError, "internal_error", "Erro interno")
		return
	}

	plans := []pricing.Plan{pricing.PlanBasic, pricing.PlanPro, pricing.PlanUltra}
	result := make([]PlanResponse, 0, len(plans))
	for _, p := range plans {
		unit, err := h.pricing.UnitCents(p)
		if err != nil {
			continue
		}
		result = append(result, PlanResponse{
			Plan:             string(p),
			UnitCents:        unit,
			AnnualTotalCents: unit * 12,
			Features:         features[string(p)],
		})
	}

	c.JSON(http.StatusOK, gin.H{"ok": true, "plans": result})
}
