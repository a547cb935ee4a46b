package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"example.com/checkout/internal/middleware"
	"example.com/checkout/pkg/metrics"
)

// ReadinessChecker — функция проверки готовности сервиса.
type ReadinessChecker func(ctx context.Context) error

// Router — конфигурация роутера.
type Router struct {
	engine         *gin.Engine
	payments       *PaymentHandler
	coupons        *CouponHandler
	dev            *DevHandler
	auth           *AuthHandler
	plans          *PlansHandler
	sessionMW      *middleware.SessionMiddleware
	rateLimitMW    *middleware.RateLimitMiddleware
	tracingMW      *middleware.TracingMiddleware
	readinessCheck ReadinessChecker // опциональная проверка готовности
}

// RouterConfig — параметры для создания роутера.
type RouterConfig struct {
	Payments       *PaymentHandler
	Coupons        *CouponHandler
	Dev            *DevHandler
	Auth           *AuthHandler
	Plans          *PlansHandler
	SessionMW      *middleware.SessionMiddleware
	RateLimitMW    *middleware.RateLimitMiddleware
	TracingMW      *middleware.TracingMiddleware
	ReadinessCheck ReadinessChecker // опциональная проверка готовности для /readyz
	Debug          bool             // Режим отладки Gin
}

// NewRouter создаёт и настраивает HTTP роутер.
func NewRouter(cfg RouterConfig) *Router {
	if cfg.Debug {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	engine := gin.New()

	// Стандартные middleware Gin
	engine.Use(gin.Recovery())

	// CORS — обработка cross-origin запросов
	engine.Use(middleware.CORS(middleware.DefaultCORSConfig()))

	// Security headers — защита от clickjacking, MIME-sniffing, XSS
	engine.Use(middleware.SecurityHeaders())

	// OpenTelemetry tracing — создаёт spans для Jaeger
	engine.Use(otelgin.Middleware("checkout"))

	// Prometheus метрики — requests_total, request_duration_seconds
	engine.Use(metrics.GinMetricsMiddleware())

	r := &Router{
		engine:         engine,
		payments:       cfg.Payments,
		coupons:        cfg.Coupons,
		dev:            cfg.Dev,
		auth:           cfg.Auth,
		plans:          cfg.Plans,
		sessionMW:      cfg.SessionMW,
		rateLimitMW:    cfg.RateLimitMW,
		tracingMW:      cfg.TracingMW,
		readinessCheck: cfg.ReadinessCheck,
	}

	r.setupRoutes()
	return r
}

// setupRoutes настраивает все маршруты API.
func (r *Router) setupRoutes() {
	// Глобальные middleware
	if r.tracingMW != nil {
		r.engine.Use(r.tracingMW.Handle())
	}
	if r.sessionMW != nil {
		r.engine.Use(r.sessionMW.Handle())
	}

	// Health endpoints (без rate limiting)
	r.engine.GET("/healthz", r.livenessCheck)
	r.engine.GET("/readyz", r.readinessProbe)

	api := r.engine.Group("/api")
	if r.rateLimitMW != nil {
		api.Use(r.rateLimitMW.Handle())
	}

	// Платежи
	pagment := api.Group("/pagment")
	{
		pagment.GET("", r.payments.Get)
		pagment.POST("", r.payments.Create)

		pagment.GET("/cupom", r.coupons.Validate)
		pagment.POST("/cupom", r.sessionMW.RequireAuth(), r.coupons.Claim)

		// Доступ проверяется внутри обработчика (окружение + dev_permission)
		pagment.GET("/dev", r.dev.Get)
		pagment.POST("/dev", r.dev.Set)
		pagment.DELETE("/dev", r.dev.Clear)
	}

	// Аутентификация
	authGroup := api.Group("/auth")
	{
		authGroup.GET("/discord", r.auth.Login)
		authGroup.GET("/discord/callback", r.auth.Callback)
		authGroup.POST("/logout", r.auth.Logout)
	}

	api.GET("/me", r.auth.Me)
	api.GET("/plans", r.plans.List)
}

// Engine возвращает Gin engine (для тестов и запуска сервера).
func (r *Router) Engine() *gin.Engine {
	return r.engine
}

// livenessCheck — liveness probe.
func (r *Router) livenessCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "alive"})
}

// readinessProbe — readiness probe с проверкой зависимостей.
func (r *Router) readinessProbe(c *gin.Context) {
	if r.readinessCheck == nil {
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	if err := r.readinessCheck(ctx); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "not_ready"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ready"})
}
