package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"example.com/checkout/internal/coupon"
)

func newCouponRouter(t *testing.T, static []*coupon.Coupon, repo stubCouponRepo) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	h := NewCouponHandler(newTestService(t, &stubGateway{}, static), repo)

	r := gin.New()
	r.GET("/api/pagment/cupom", h.Validate)
	r.POST("/api/pagment/cupom", h.Claim)
	return r
}

func staticHalfOff(t *testing.T) []*coupon.Coupon {
	t.Helper()
	static, err := coupon.ParseStatic([]string{"METADE:percent:50"})
	require.NoError(t, err)
	return static
}

func TestCouponHandler_Validate_Applied(t *testing.T) {
	r := newCouponRouter(t, staticHalfOff(t), stubCouponRepo{})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/pagment/cupom?code=metade&plan=pro&billing=monthly", nil)
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		OK     bool           `json:"ok"`
		Valid  bool           `json:"valid"`
		Coupon CouponResponse `json:"coupon"`
		Quote  QuoteResponse  `json:"quote"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))

	assert.True(t, body.OK)
	assert.True(t, body.Valid)
	assert.Equal(t, "METADE", body.Coupon.Code)
	assert.Equal(t, int64(995), body.Coupon.DiscountCents)
	assert.Equal(t, int64(995), body.Quote.TotalCents)
}

func TestCouponHandler_Validate_Rejected(t *testing.T) {
	r := newCouponRouter(t, nil, stubCouponRepo{})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/pagment/cupom?code=NAOEXISTE&plan=pro&billing=monthly", nil)
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		OK    bool `json:"ok"`
		Valid bool `json:"valid"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))

	assert.False(t, body.OK)
	assert.False(t, body.Valid)
}

func TestCouponHandler_Validate_MissingCode(t *testing.T) {
	r := newCouponRouter(t, nil, stubCouponRepo{})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/pagment/cupom?plan=pro&billing=monthly", nil)
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCouponHandler_Claim_StaticSkipsCounter(t *testing.T) {
	claimCalled := false
	repo := stubCouponRepo{
		claimFunc: func(ctx context.Context, code, discordID string, source coupon.Source) (bool, error) {
			claimCalled = true
			return true, nil
		},
	}
	r := newCouponRouter(t, staticHalfOff(t), repo)

	payload, _ := json.Marshal(map[string]any{
		"code":    "METADE",
		"plan":    "pro",
		"billing": "monthly",
	})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/pagment/cupom", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.False(t, claimCalled, "статические купоны не ведут счётчик применений")
}

func TestCouponHandler_Claim_Rejected(t *testing.T) {
	r := newCouponRouter(t, nil, stubCouponRepo{})

	payload, _ := json.Marshal(map[string]any{
		"code":    "NAOEXISTE",
		"plan":    "pro",
		"billing": "monthly",
	})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/pagment/cupom", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Contains(t, w.Body.String(), "coupon_rejected")
}
