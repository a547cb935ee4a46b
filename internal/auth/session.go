// Package auth содержит Discord OAuth и cookie-сессии.
//
// Сессия — HS256-подписанный JWT в одном cookie. Схема каноничная
// и версионированная: токены других версий (и старый формат пары cookie)
// при чтении отклоняются, cookie очищается.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"example.com/checkout/pkg/config"
)

// sessionVersion — текущая версия схемы сессии.
const sessionVersion = 2

// ErrInvalidSession — токен отсутствует, подпись не сошлась, версия чужая
// или срок истёк. Обработчик очищает cookie и считает пользователя анонимом.
var ErrInvalidSession = errors.New("недействительная сессия")

// SessionClaims — claims сессионного токена.
// sub — Discord ID пользователя, ver — версия схемы.
type SessionClaims struct {
	Version int `json:"ver"`
	jwt.RegisteredClaims
}

// SessionManager выпускает и проверяет сессионные токены.
type SessionManager struct {
	secret []byte
	ttl    time.Duration

	cookieName   string
	cookieDomain string
	cookieSecure bool

	now func() time.Time // Подменяется в тестах
}

// NewSessionManager создаёт SessionManager.
func NewSessionManager(cfg config.SessionConfig) *SessionManager {
	return &SessionManager{
		secret:       []byte(cfg.Secret),
		ttl:          cfg.TTL,
		cookieName:   cfg.CookieName,
		cookieDomain: cfg.CookieDomain,
		cookieSecure: cfg.CookieSecure,
		now:          time.Now,
	}
}

// CookieName возвращает имя сессионного cookie.
func (m *SessionManager) CookieName() string {
	return m.cookieName
}

// CookieDomain возвращает домен сессионного cookie.
func (m *SessionManager) CookieDomain() string {
	return m.cookieDomain
}

// CookieSecure возвращает true, если cookie выставляется с флагом Secure.
func (m *SessionManager) CookieSecure() bool {
	return m.cookieSecure
}

// TTL возвращает время жизни сессии.
func (m *SessionManager) TTL() time.Duration {
	return m.ttl
}

// Issue выпускает сессионный токен для пользователя Discord.
func (m *SessionManager) Issue(discordID string) (string, error) {
	now := m.now()

	claims := &SessionClaims{
		Version: sessionVersion,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   discordID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.ttl)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(m.secret)
	if err != nil {
		return "", fmt.Errorf("ошибка подписи сессионного токена: %w", err)
	}
	return signed, nil
}

// Verify проверяет токен и возвращает Discord ID пользователя.
// Любой дефект токена (подпись, срок, версия, метод подписи) — ErrInvalidSession.
func (m *SessionManager) Verify(tokenString string) (string, error) {
	if tokenString == "" {
		return "", ErrInvalidSession
	}

	claims := &SessionClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("неожиданный метод подписи: %v", t.Header["alg"])
		}
		return m.secret, nil
	}, jwt.WithTimeFunc(m.now))
	if err != nil || !token.Valid {
		return "", ErrInvalidSession
	}

	if claims.Version != sessionVersion || claims.Subject == "" {
		return "", ErrInvalidSession
	}
	return claims.Subject, nil
}
