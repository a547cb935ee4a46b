package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"example.com/checkout/internal/auth"
	"example.com/checkout/internal/middleware"
	"example.com/checkout/internal/repository"
	"example.com/checkout/pkg/logger"
)

// stateCookieName — cookie с CSRF state для OAuth flow.
const stateCookieName = "oauth_state"

// stateCookieMaxAge — время жизни state cookie (секунды).
const stateCookieMaxAge = 300

// AuthHandler — обработчик Discord OAuth и сессий.
type AuthHandler struct {
	discord         *auth.DiscordClient
	sessions        *auth.SessionManager
	sessionMW       *middleware.SessionMiddleware
	users           repository.UserRepository
	successRedirect string
}

// NewAuthHandler создаёт обработчик аутентификации.
func NewAuthHandler(
	discord *auth.DiscordClient,
	sessions *auth.SessionManager,
	sessionMW *middleware.SessionMiddleware,
	users repository.UserRepository,
	successRedirect string,
) *AuthHandler {
	return &AuthHandler{
		discord:         discord,
		sessions:        sessions,
		sessionMW:       sessionMW,
		users:           users,
		successRedirect: successRedirect,
	}
}

// Login начинает OAuth flow: редирект на страницу согласия Discord.
// GET /api/auth/discord
func (h *AuthHandler) Login(c *gin.Context) {
	state := uuid.NewString()

	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(stateCookieName, state, stateCookieMaxAge, "/", h.sessions.CookieDomain(), h.sessions.CookieSecure(), true)

	c.Redirect(http.StatusTemporaryRedirect, h.discord.AuthorizeURL(state))
}

// Callback завершает OAuth flow: проверка state, обмен кода на токен,
// запрос профиля, upsert пользователя, выпуск сессии.
// Единственное место, где сессия мутируется.
// GET /api/auth/discord/callback?code=...&state=...
func (h *AuthHandler) Callback(c *gin.Context) {
	ctx := c.Request.Context()
	log := logger.FromContext(ctx)

	// CSRF: state из query должен совпасть с cookie
	expectedState, err := c.Cookie(stateCookieName)
	if err != nil || expectedState == "" || c.Query("state") != expectedState {
		log.Warn().Msg("OAuth callback с невалидным state")
		respondError(c, http.StatusBadRequest, "invalid_state", "Estado OAuth inválido. Tente fazer login novamente")
		return
	}
	c.SetCookie(stateCookieName, "", -1, "/", h.sessions.CookieDomain(), h.sessions.CookieSecure(), true)

	code := c.Query("code")
	if code == "" {
		respondError(c, http.StatusBadRequest, "missing_code", "Código OAuth ausente")
		return
	}

	accessToken, err := h.discord.ExchangeCode(ctx, code)
	if err != nil {
		log.Error().Err(err).Msg("Ошибка обмена OAuth кода")
		respondError(c, http.StatusBadGateway, "oauth_exchange_failed", "Falha na autenticação com Discord")
		return
	}

	profile, err := h.discord.FetchProfile(ctx, accessToken)
	if err != nil {
		log.Error().Err(err).Msg("Ошибка запроса профиля Discord")
		respondError(c, http.StatusBadGateway, "oauth_profile_failed", "Falha ao obter perfil do Discord")
		return
	}

	if err := h.users.Upsert(ctx, &repository.DiscordUser{
		DiscordID:  profile.ID,
		Username:   profile.Username,
		GlobalName: profile.GlobalName,
		Avatar:     profile.Avatar,
		Email:      profile.Email,
	}); err != nil {
		log.Error().Err(err).Str("discord_id", profile.ID).Msg("Ошибка сохранения пользователя")
		respondError(c, http.StatusInternalServerError, "internal_error", "Erro interno")
		return
	}

	token, err := h.sessions.Issue(profile.ID)
	if err != nil {
		log.Error().Err(err).Msg("Ошибка выпуска сессии")
		respondError(c, http.StatusInternalServerError, "internal_error", "Erro interno")
		return
	}
	h.sessionMW.SetCookie(c, token)

	log.Info().Str("discord_id", profile.ID).Msg("Пользователь вошёл через Discord")
	c.Redirect(http.StatusTemporaryRedirect, h.successRedirect)
}

// Me возвращает профиль пользователя текущей сессии.
// GET /api/me
func (h *AuthHandler) Me(c *gin.Context) {
	ctx := c.Request.Context()

	discordID := middleware.DiscordID(c)
	if discordID == "" {
		c.JSON(http.StatusOK, gin.H{"ok": true, "authenticated": false})
		return
	}

	user, err := h.users.GetByDiscordID(ctx, discordID)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			// Сессия валидна, но пользователя нет в БД — сессия устарела
			h.sessionMW.ClearCookie(c)
			c.JSON(http.StatusOK, gin.H{"ok": true, "authenticated": false})
			return
		}
		logger.Ctx(ctx).Error().Err(err).Msg("Ошибка загрузки пользователя")
		respondError(c, http.StatusInternalServerError, "internal_error", "Erro interno")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"ok":            true,
		"authenticated": true,
		"user": gin.H{
			"discord_id":  user.DiscordID,
			"username":    user.Username,
			"global_name": user.GlobalName,
			"avatar":      user.Avatar,
		},
	})
}

// Logout очищает сессионный cookie.
// POST /api/auth/logout
func (h *AuthHandler) Logout(c *gin.Context) {
	h.sessionMW.ClearCookie(c)
	c.JSON(http.StatusOK, gin.H{"ok": true})
}
