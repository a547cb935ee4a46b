package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"example.com/checkout/internal/pricing"
	"example.com/checkout/pkg/config"
)

// stubPlanRepo — мок репозитория фич тарифов.
type stubPlanRepo struct {
	features map[string][]string
	err      error
}

func (s stubPlanRepo) GetFeatures(ctx context.Context) (map[string][]string, error) {
	return s.features, s.err
}

func TestPlansHandler_List(t *testing.T) {
	gin.SetMode(gin.TestMode)

	engine := pricing.NewEngine(config.PaymentConfig{
		PriceBasicCents: 990,
		PriceProCents:   1990,
		PriceUltraCents: 3990,
	})
	h := NewPlansHandler(engine, stubPlanRepo{
		features: map[string][]string{
			"basic": {"Suporte por email"},
			"pro":   {"Suporte prioritário", "Projetos ilimitados"},
		},
	})

	r := gin.New()
	r.GET("/api/plans", h.List)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/plans", nil)
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		OK    bool           `json:"ok"`
		Plans []PlanResponse `json:"plans"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))

	require.Len(t, body.Plans, 3)

	basic := body.Plans[0]
	assert.Equal(t, "basic", basic.Plan)
	assert.Equal(t, int64(990), basic.UnitCents)
	assert.Equal(t, int64(990*12), basic.AnnualTotalCents)
	assert.Equal(t, []string{"Suporte por email"}, basic.Features)

	pro := body.Plans[1]
	assert.Equal(t, "pro", pro.Plan)
	assert.Equal(t, int64(1990), pro.UnitCents)
	assert.Len(t, pro.Features, 2)
}
