package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"example.com/checkout/internal/auth"
	"example.com/checkout/pkg/logger"
)

// ContextKeyDiscordID — ключ Gin context с Discord ID пользователя сессии.
const ContextKeyDiscordID = "discord_id"

// SessionMiddleware читает сессионный cookie и кладёт Discord ID в контекст.
// Недействительная сессия (подпись, срок, версия схемы) — cookie очищается,
// запрос продолжается анонимно. Сессия мутируется только OAuth callback'ом.
type SessionMiddleware struct {
	sessions *auth.SessionManager
}

// NewSessionMiddleware создаёт middleware сессий.
func NewSessionMiddleware(sessions *auth.SessionManager) *SessionMiddleware {
	return &SessionMiddleware{sessions: sessions}
}

// Handle возвращает Gin handler function для middleware.
func (m *SessionMiddleware) Handle() gin.HandlerFunc {
	return func(c *gin.Context) {
		token, err := c.Cookie(m.sessions.CookieName())
		if err != nil || token == "" {
			c.Next()
			return
		}

		discordID, err := m.sessions.Verify(token)
		if err != nil {
			logger.Ctx(c.Request.Context()).Debug().Msg("Недействительная сессия, очищаем cookie")
			m.ClearCookie(c)
			c.Next()
			return
		}

		c.Set(ContextKeyDiscordID, discordID)
		c.Next()
	}
}

// RequireAuth отклоняет запросы без действительной сессии.
func (m *SessionMiddleware) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		if DiscordID(c) == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"ok":    false,
				"error": "unauthorized",
			})
			return
		}
		c.Next()
	}
}

// SetCookie выставляет сессионный cookie с выпущенным токеном.
func (m *SessionMiddleware) SetCookie(c *gin.Context, token string) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(
		m.sessions.CookieName(),
		token,
		int(m.sessions.TTL().Seconds()),
		"/",
		m.sessions.CookieDomain(),
		m.sessions.CookieSecure(),
		true, // HttpOnly: сессия недоступна из JS
	)
}

// ClearCookie удаляет сессионный cookie.
func (m *SessionMiddleware) ClearCookie(c *gin.Context) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(m.sessions.CookieName(), "", -1, "/", m.sessions.CookieDomain(), m.sessions.CookieSecure(), true)
}

// DiscordID возвращает Discord ID пользователя текущей сессии
// (пустая строка — аноним).
func DiscordID(c *gin.Context) string {
	return c.GetString(ContextKeyDiscordID)
}
