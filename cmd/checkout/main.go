// Package main — точка входа сервиса checkout.
// Сервис обслуживает оплату подписки: расчёт цены, купоны, создание
// платежей в Mercado Pago с дедупликацией, Discord OAuth сессии.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"example.com/checkout/internal/auth"
	"example.com/checkout/internal/coupon"
	"example.com/checkout/internal/handler"
	"example.com/checkout/internal/mercadopago"
	"example.com/checkout/internal/middleware"
	"example.com/checkout/internal/payment"
	"example.com/checkout/internal/pricing"
	"example.com/checkout/internal/repository"
	"example.com/checkout/pkg/config"
	"example.com/checkout/pkg/db"
	"example.com/checkout/pkg/healthcheck"
	"example.com/checkout/pkg/kafka"
	"example.com/checkout/pkg/logger"
	"example.com/checkout/pkg/metrics"
	"example.com/checkout/pkg/outbox"
	"example.com/checkout/pkg/tracing"
)

func main() {
	// Загружаем конфигурацию
	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("Ошибка загрузки конфигурации")
	}

	// Инициализируем логгер
	logger.Init(logger.Config{
		Level:  cfg.App.LogLevel,
		Pretty: cfg.App.LogPretty,
	})

	logger.Info().
		Str("service", cfg.App.Name).
		Str("env", cfg.App.Env).
		Msg("Запуск сервиса checkout")

	// === Observability: Metrics + Tracing ===

	shutdownTracing, err := tracing.InitTracer(tracing.Config{
		ServiceName:    cfg.App.Name,
		Environment:    cfg.App.Env,
		JaegerEndpoint: cfg.Jaeger.OTLPEndpoint(),
		Enabled:        cfg.Jaeger.Enabled,
	})
	if err != nil {
		logger.Warn().Err(err).Msg("Не удалось инициализировать tracing")
	}

	// === Хранилища ===

	gormDB, err := db.ConnectMySQL(cfg.MySQL, cfg.IsDevelopment())
	if err != nil {
		logger.Fatal().Err(err).Msg("Не удалось подключиться к MySQL")
	}
	logger.Info().Str("host", cfg.MySQL.Host).Msg("Подключено к MySQL")

	redisClient := db.ConnectRedis(cfg.Redis)
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Error().Err(err).Msg("Ошибка закрытия Redis")
		}
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	if err := redisClient.Ping(ctx).Err(); err != nil {
		cancel()
		logger.Fatal().Err(err).Msg("Не удалось подключиться к Redis")
	}
	cancel()
	logger.Info().Str("addr", cfg.Redis.Addr()).Msg("Подключено к Redis")

	// Общая проверка готовности для /readyz
	readiness := healthcheck.Composite(
		func(ctx context.Context) error { return healthcheck.CheckMySQL(ctx, gormDB) },
		func(ctx context.Context) error { return healthcheck.CheckRedis(ctx, redisClient) },
	)

	// Metrics server (отдельный порт, вне основного роутера)
	var metricsServer *metrics.Server
	if cfg.Metrics.Enabled {
		metricsServer = metrics.NewServer(cfg.Metrics.Addr(), cfg.App.Name,
			metrics.WithReadinessCheck(readiness))
		go func() {
			if err := metricsServer.Start(); err != nil {
				logger.Error().Err(err).Msg("Ошибка Metrics Server")
			}
		}()
	}

	// === Kafka + Outbox ===

	// Жизненный цикл фоновых задач
	workerCtx, stopWorkers := context.WithCancel(context.Background())
	defer stopWorkers()

	var events *payment.Publisher
	var kafkaProducer *kafka.Producer
	if cfg.Kafka.Enabled {
		kafkaProducer, err = kafka.NewProducer(kafka.Config{Brokers: cfg.Kafka.Brokers})
		if err != nil {
			logger.Fatal().Err(err).Msg("Ошибка создания Kafka producer")
		}
		defer func() {
			if err := kafkaProducer.Close(); err != nil {
				logger.Error().Err(err).Msg("Ошибка закрытия Kafka producer")
			}
		}()

		outboxRepo := outbox.NewRepository(gormDB)
		events = payment.NewPublisher(outboxRepo)

		worker := outbox.NewWorker(outboxRepo, kafkaProducer, outbox.DefaultWorkerConfig())
		go worker.Run(workerCtx)
		logger.Info().Strs("brokers", cfg.Kafka.Brokers).Msg("Outbox worker запущен")
	}

	// === Доменные компоненты ===

	staticCoupons, err := coupon.ParseStatic(cfg.Payment.StaticCoupons)
	if err != nil {
		logger.Fatal().Err(err).Msg("Невалидные статические купоны в конфигурации")
	}

	couponRepo := repository.NewCouponRepository(gormDB)
	userRepo := repository.NewUserRepository(gormDB)
	planRepo := repository.NewPlanRepository(gormDB)

	engine := pricing.NewEngine(cfg.Payment)
	evaluator := coupon.NewEvaluator(staticCoupons, couponRepo)
	gateway := mercadopago.NewClient(cfg.MercadoPago)

	intents := payment.NewIntentStore(redisClient, cfg.Payment.IntentTTL)
	tracker := payment.NewStatusTracker(redisClient)
	devStore := payment.NewDevOverrideStore(redisClient)

	notificationURL := cfg.App.BaseURL + cfg.MercadoPago.NotificationPath
	paymentService := payment.NewService(
		cfg.Payment, engine, evaluator, gateway,
		intents, tracker, events, notificationURL,
	)

	sessions := auth.NewSessionManager(cfg.Session)
	discordClient := auth.NewDiscordClient(cfg.Discord, cfg.App.BaseURL)

	// === Middleware ===

	tracingMW := middleware.NewTracingMiddleware()
	sessionMW := middleware.NewSessionMiddleware(sessions)

	var rateLimitMW *middleware.RateLimitMiddleware
	if cfg.RateLimit.Enabled {
		rateLimitMW = middleware.NewRateLimitMiddleware(middleware.RateLimitConfig{
			Redis:  redisClient,
			Limit:  cfg.RateLimit.RequestsLimit,
			Window: cfg.RateLimit.Window,
		})
		logger.Info().
			Int("limit", cfg.RateLimit.RequestsLimit).
			Dur("window", cfg.RateLimit.Window).
			Msg("Rate limiting включён")
	}

	// === Настройка роутера ===

	router := handler.NewRouter(handler.RouterConfig{
		Payments:       handler.NewPaymentHandler(paymentService, devStore, !cfg.IsProduction()),
		Coupons:        handler.NewCouponHandler(paymentService, couponRepo),
		Dev:            handler.NewDevHandler(devStore, userRepo, cfg.IsProduction()),
		Auth:           handler.NewAuthHandler(discordClient, sessions, sessionMW, userRepo, cfg.Discord.SuccessRedirect),
		Plans:          handler.NewPlansHandler(engine, planRepo),
		SessionMW:      sessionMW,
		RateLimitMW:    rateLimitMW,
		TracingMW:      tracingMW,
		ReadinessCheck: handler.ReadinessChecker(readiness),
		Debug:          cfg.IsDevelopment(),
	})

	// === HTTP сервер ===

	srv := &http.Server{
		Addr:         cfg.HTTP.Addr(),
		Handler:      router.Engine(),
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
		IdleTimeout:  cfg.HTTP.IdleTimeout,
	}

	go func() {
		logger.Info().
			Str("addr", cfg.HTTP.Addr()).
			Msg("HTTP сервер запущен")

		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("Ошибка HTTP сервера")
		}
	}()

	// === Graceful Shutdown ===

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("Получен сигнал завершения, останавливаем сервер...")

	// Даём 30 секунд на завершение текущих запросов
	ctx, cancel = context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	stopWorkers()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error().Err(err).Msg("Ошибка при остановке сервера")
	}

	if metricsServer != nil {
		if err := metricsServer.Shutdown(ctx); err != nil {
			logger.Error().Err(err).Msg("Ошибка остановки Metrics Server")
		}
	}

	if shutdownTracing != nil {
		if err := shutdownTracing(ctx); err != nil {
			logger.Error().Err(err).Msg("Ошибка остановки Tracing")
		}
	}

	if sqlDB, err := gormDB.DB(); err == nil {
		_ = sqlDB.Close()
	}

	logger.Info().Msg("Сервис checkout остановлен")
}
