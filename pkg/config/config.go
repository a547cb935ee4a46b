// Package config предоставляет загрузку конфигурации из переменных окружения.
package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"
)

// Config содержит полную конфигурацию приложения.
type Config struct {
	App         AppConfig
	HTTP        HTTPConfig
	MySQL       MySQLConfig
	Redis       RedisConfig
	Kafka       KafkaConfig
	Session     SessionConfig
	Discord     DiscordConfig
	MercadoPago MercadoPagoConfig
	Payment     PaymentConfig
	RateLimit   RateLimitConfig
	Jaeger      JaegerConfig
	Metrics     MetricsConfig
}

// AppConfig содержит общие настройки приложения.
type AppConfig struct {
	Name      string `env:"APP_NAME" envDefault:"checkout"`
	Env       string `env:"APP_ENV" envDefault:"development"`
	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogPretty bool   `env:"LOG_PRETTY" envDefault:"false"`
	// BaseURL — публичный адрес сервиса. Используется для OAuth redirect_uri
	// и для notification_url платёжного шлюза.
	BaseURL string `env:"APP_BASE_URL" envDefault:"http://localhost:8080"`
}

// HTTPConfig содержит настройки HTTP сервера.
type HTTPConfig struct {
	Host         string        `env:"HTTP_HOST" envDefault:"0.0.0.0"`
	Port         int           `env:"HTTP_PORT" envDefault:"8080"`
	ReadTimeout  time.Duration `env:"HTTP_READ_TIMEOUT" envDefault:"10s"`
	WriteTimeout time.Duration `env:"HTTP_WRITE_TIMEOUT" envDefault:"30s"`
	IdleTimeout  time.Duration `env:"HTTP_IDLE_TIMEOUT" envDefault:"60s"`
}

// Addr возвращает адрес для HTTP сервера.
func (c HTTPConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// MySQLConfig содержит настройки подключения к MySQL.
type MySQLConfig struct {
	Host            string        `env:"MYSQL_HOST" envDefault:"localhost"`
	Port            int           `env:"MYSQL_PORT" envDefault:"3306"`
	User            string        `env:"MYSQL_USER" envDefault:"root"`
	Password        string        `env:"MYSQL_PASSWORD" envDefault:"root"`
	Database        string        `env:"MYSQL_DATABASE" envDefault:"checkout"`
	MaxOpenConns    int           `env:"MYSQL_MAX_OPEN_CONNS" envDefault:"25"`
	MaxIdleConns    int           `env:"MYSQL_MAX_IDLE_CONNS" envDefault:"10"`
	ConnMaxLifetime time.Duration `env:"MYSQL_CONN_MAX_LIFETIME" envDefault:"5m"`
}

// DSN возвращает строку подключения к MySQL.
func (c MySQLConfig) DSN() string {
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=utf8mb4&parseTime=True&loc=Local",
		c.User, c.Password, c.Host, c.Port, c.Database)
}

// RedisConfig содержит настройки подключения к Redis.
type RedisConfig struct {
	Host     string `env:"REDIS_HOST" envDefault:"localhost"`
	Port     int    `env:"REDIS_PORT" envDefault:"6379"`
	Password string `env:"REDIS_PASSWORD" envDefault:""`
	DB       int    `env:"REDIS_DB" envDefault:"0"`
}

// Addr возвращает адрес Redis сервера.
func (c RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// KafkaConfig содержит настройки подключения к Kafka.
type KafkaConfig struct {
	Enabled bool     `env:"KAFKA_ENABLED" envDefault:"true"`
	Brokers []string `env:"KAFKA_BROKERS" envDefault:"localhost:9092" envSeparator:","`
}

// SessionConfig содержит настройки cookie-сессии.
// Сессия — HS256-подписанный токен в cookie. Схема каноничная и версионированная:
// старый формат пары cookie (payload + подпись) не поддерживается при чтении.
type SessionConfig struct {
	// Secret — ключ HMAC подписи сессионного токена.
	Secret string `env:"SESSION_SECRET,required"`
	// TTL — время жизни сессии.
	TTL time.Duration `env:"SESSION_TTL" envDefault:"168h"`
	// CookieName — имя cookie с сессионным токеном.
	CookieName string `env:"SESSION_COOKIE_NAME" envDefault:"discord_user"`
	// CookieDomain — домен cookie (пустой = текущий хост).
	CookieDomain string `env:"SESSION_COOKIE_DOMAIN" envDefault:""`
	// CookieSecure — выставлять ли флаг Secure (true в production).
	CookieSecure bool `env:"SESSION_COOKIE_SECURE" envDefault:"false"`
}

// DiscordConfig содержит настройки Discord OAuth.
type DiscordConfig struct {
	ClientID     string `env:"DISCORD_CLIENT_ID,required"`
	ClientSecret string `env:"DISCORD_CLIENT_SECRET,required"`
	// RedirectPath — путь callback относительно APP_BASE_URL.
	RedirectPath string `env:"DISCORD_REDIRECT_PATH" envDefault:"/api/auth/discord/callback"`
	// APIBaseURL — адрес Discord API (переопределяется в тестах).
	APIBaseURL string `env:"DISCORD_API_BASE_URL" envDefault:"https://discord.com/api/v10"`
	// SuccessRedirect — куда отправить пользователя после успешного логина.
	SuccessRedirect string `env:"DISCORD_SUCCESS_REDIRECT" envDefault:"/"`
}

// MercadoPagoConfig содержит настройки платёжного шлюза.
type MercadoPagoConfig struct {
	AccessToken string `env:"MP_ACCESS_TOKEN,required"`
	// BaseURL — адрес API шлюза (переопределяется в тестах).
	BaseURL string `env:"MP_BASE_URL" envDefault:"https://api.mercadopago.com"`
	// Timeout — таймаут одного HTTP запроса к шлюзу.
	Timeout time.Duration `env:"MP_TIMEOUT" envDefault:"10s"`
	// MaxRetries — количество повторов при 429/5xx.
	MaxRetries int `env:"MP_MAX_RETRIES" envDefault:"3"`
	// NotificationPath — путь webhook относительно APP_BASE_URL.
	// Webhook указывается при создании платежа, но этим сервисом не обрабатывается.
	NotificationPath string `env:"MP_NOTIFICATION_PATH" envDefault:"/api/pagment/webhook"`
}

// PaymentConfig содержит бизнес-настройки платежей и тарифов.
type PaymentConfig struct {
	// Цены тарифов в центах за месяц.
	PriceBasicCents int64 `env:"PRICE_BASIC_CENTS" envDefault:"990"`
	PriceProCents   int64 `env:"PRICE_PRO_CENTS" envDefault:"1990"`
	PriceUltraCents int64 `env:"PRICE_ULTRA_CENTS" envDefault:"3990"`

	// Минимальная итоговая сумма по методу оплаты (центы).
	// Шлюз отклоняет слишком маленькие платежи по policy-правилам.
	MinPixCents    int64 `env:"MIN_PIX_CENTS" envDefault:"100"`
	MinBoletoCents int64 `env:"MIN_BOLETO_CENTS" envDefault:"300"`
	MinCardCents   int64 `env:"MIN_CARD_CENTS" envDefault:"100"`

	// IntentTTL — время жизни записи о созданном платеже в dedup-кэше.
	IntentTTL time.Duration `env:"PAYMENT_INTENT_TTL" envDefault:"120s"`

	// StaticCoupons — купоны, заданные конфигурацией (без БД).
	// Формат: code:kind:value через запятую, например
	// "LAUNCH50:percent:50,CENTAVO:target_total:1".
	StaticCoupons []string `env:"STATIC_COUPONS" envSeparator:","`
}

// RateLimitConfig содержит настройки rate limiting.
type RateLimitConfig struct {
	Enabled       bool          `env:"RATE_LIMIT_ENABLED" envDefault:"true"`
	RequestsLimit int           `env:"RATE_LIMIT_REQUESTS" envDefault:"60"`
	Window        time.Duration `env:"RATE_LIMIT_WINDOW" envDefault:"1m"`
}

// JaegerConfig содержит настройки трассировки Jaeger.
type JaegerConfig struct {
	Enabled  bool   `env:"JAEGER_ENABLED" envDefault:"true"`
	Host     string `env:"JAEGER_HOST" envDefault:"localhost"`
	OTLPPort int    `env:"JAEGER_OTLP_PORT" envDefault:"4317"` // OTLP gRPC порт
}

// OTLPEndpoint возвращает OTLP gRPC endpoint для Jaeger.
func (c JaegerConfig) OTLPEndpoint() string {
	return fmt.Sprintf("%s:%d", c.Host, c.OTLPPort)
}

// MetricsConfig содержит настройки Prometheus метрик.
type MetricsConfig struct {
	Enabled bool `env:"METRICS_ENABLED" envDefault:"true"` // Включить metrics endpoint
	Port    int  `env:"METRICS_PORT" envDefault:"9090"`    // Порт для /metrics
}

// Addr возвращает адрес для Metrics HTTP сервера.
func (c MetricsConfig) Addr() string {
	return fmt.Sprintf(":%d", c.Port)
}

// Load загружает конфигурацию из переменных окружения.
// Опционально загружает .env файл, если он существует.
func Load() (*Config, error) {
	// Пытаемся загрузить .env файл (игнорируем ошибку, если файл не найден)
	_ = godotenv.Load()

	cfg := &Config{}

	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("ошибка парсинга конфигурации: %w", err)
	}

	return cfg, nil
}

// IsDevelopment возвращает true, если приложение запущено в development режиме.
func (c *Config) IsDevelopment() bool {
	return c.App.Env == "development"
}

// IsProduction возвращает true, если приложение запущено в production режиме.
func (c *Config) IsProduction() bool {
	return c.App.Env == "production"
}
