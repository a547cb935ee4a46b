package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"example.com/checkout/internal/middleware"
	"example.com/checkout/internal/payment"
	"example.com/checkout/internal/repository"
)

// stubUserRepo — мок репозитория пользователей.
type stubUserRepo struct {
	devPermission bool
}

func (s stubUserRepo) Upsert(ctx context.Context, user *repository.DiscordUser) error {
	return nil
}

func (s stubUserRepo) GetByDiscordID(ctx context.Context, discordID string) (*repository.DiscordUser, error) {
	return nil, repository.ErrUserNotFound
}

func (s stubUserRepo) HasDevPermission(ctx context.Context, discordID string) (bool, error) {
	return s.devPermission, nil
}

func newDevStore(t *testing.T) *payment.DevOverrideStore {
	t.Helper()

	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	redisClient := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = redisClient.Close() })

	return payment.NewDevOverrideStore(redisClient)
}

// newDevRouter собирает роутер с опциональной сессией в контексте.
func newDevRouter(h *DevHandler, discordID string) *gin.Engine {
	gin.SetMode(gin.TestMode)

	r := gin.New()
	r.Use(func(c *gin.Context) {
		if discordID != "" {
			c.Set(middleware.ContextKeyDiscordID, discordID)
		}
	})
	r.GET("/api/pagment/dev", h.Get)
	r.POST("/api/pagment/dev", h.Set)
	r.DELETE("/api/pagment/dev", h.Clear)
	return r
}

func TestDevHandler_ProductionHidden(t *testing.T) {
	h := NewDevHandler(newDevStore(t), stubUserRepo{devPermission: true}, true)
	r := newDevRouter(h, "dev-user")

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/pagment/dev?payment_id=1", nil)
	r.ServeHTTP(w, req)

	// В production endpoint не раскрывает своё существование
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestDevHandler_RequiresSession(t *testing.T) {
	h := NewDevHandler(newDevStore(t), stubUserRepo{devPermission: true}, false)
	r := newDevRouter(h, "")

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/pagment/dev?payment_id=1", nil)
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestDevHandler_RequiresPermission(t *testing.T) {
	h := NewDevHandler(newDevStore(t), stubUserRepo{devPermission: false}, false)
	r := newDevRouter(h, "regular-user")

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/pagment/dev?payment_id=1", nil)
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestDevHandler_SetAndGet(t *testing.T) {
	h := NewDevHandler(newDevStore(t), stubUserRepo{devPermission: true}, false)
	r := newDevRouter(h, "dev-user")

	payload, _ := json.Marshal(map[string]any{
		"payment_id": 123,
		"status":     "approved",
	})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/pagment/dev", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/api/pagment/dev?payment_id=123", nil)
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		OK       bool   `json:"ok"`
		Override string `json:"override"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.True(t, body.OK)
	assert.Equal(t, "approved", body.Override)
}

func TestDevHandler_ClearOverride(t *testing.T) {
	h := NewDevHandler(newDevStore(t), stubUserRepo{devPermission: true}, false)
	r := newDevRouter(h, "dev-user")

	payload, _ := json.Marshal(map[string]any{
		"payment_id": 123,
		"status":     "rejected",
	})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/pagment/dev", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodDelete, "/api/pagment/dev?payment_id=123", nil)
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	// После удаления переопределения нет
	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/api/pagment/dev?payment_id=123", nil)
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		OK       bool   `json:"ok"`
		Override string `json:"override"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.True(t, body.OK)
	assert.Empty(t, body.Override)
}

func TestDevHandler_Clear_InvalidID(t *testing.T) {
	h := NewDevHandler(newDevStore(t), stubUserRepo{devPermission: true}, false)
	r := newDevRouter(h, "dev-user")

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodDelete, "/api/pagment/dev?payment_id=abc", nil)
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestDevHandler_Set_InvalidStatus(t *testing.T) {
	h := NewDevHandler(newDevStore(t), stubUserRepo{devPermission: true}, false)
	r := newDevRouter(h, "dev-user")

	payload, _ := json.Marshal(map[string]any{
		"payment_id": 123,
		"status":     "paid", // не статус шлюза
	})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/pagment/dev", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}
