package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"example.com/checkout/internal/auth"
	"example.com/checkout/internal/middleware"
	"example.com/checkout/internal/repository"
	"example.com/checkout/pkg/config"
)

// recordingUserRepo — мок репозитория пользователей с записью upsert'ов.
type recordingUserRepo struct {
	upserted *repository.DiscordUser
	user     *repository.DiscordUser
}

func (r *recordingUserRepo) Upsert(ctx context.Context, user *repository.DiscordUser) error {
	r.upserted = user
	return nil
}

func (r *recordingUserRepo) GetByDiscordID(ctx context.Context, discordID string) (*repository.DiscordUser, error) {
	if r.user == nil || r.user.DiscordID != discordID {
		return nil, repository.ErrUserNotFound
	}
	return r.user, nil
}

func (r *recordingUserRepo) HasDevPermission(ctx context.Context, discordID string) (bool, error) {
	return false, nil
}

// newAuthRouter собирает auth-роутер поверх фейкового Discord API.
func newAuthRouter(t *testing.T, discordAPI string, users repository.UserRepository) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	sessions := auth.NewSessionManager(config.SessionConfig{
		Secret:     "test-secret",
		TTL:        time.Hour,
		CookieName: "discord_user",
	})
	discord := auth.NewDiscordClient(config.DiscordConfig{
		ClientID:     "client-id",
		ClientSecret: "client-secret",
		RedirectPath: "/api/auth/discord/callback",
		APIBaseURL:   discordAPI,
	}, "https://checkout.example.com")
	sessionMW := middleware.NewSessionMiddleware(sessions)

	h := NewAuthHandler(discord, sessions, sessionMW, users, "/checkout")

	r := gin.New()
	r.Use(sessionMW.Handle())
	r.GET("/api/auth/discord", h.Login)
	r.GET("/api/auth/discord/callback", h.Callback)
	r.GET("/api/me", h.Me)
	r.POST("/api/auth/logout", h.Logout)
	return r
}

// fakeDiscordAPI поднимает httptest-сервер с token и profile endpoint'ами.
func fakeDiscordAPI(t *testing.T) *httptest.Server {
	t.Helper()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/oauth2/token":
			_, _ = w.Write([]byte(`{"access_token": "access-123", "token_type": "Bearer"}`))
		case "/users/@me":
			_, _ = w.Write([]byte(`{"id": "42", "username": "tester", "global_name": "Tester", "email": "t@example.com"}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestAuthHandler_Login_SetsStateAndRedirects(t *testing.T) {
	r := newAuthRouter(t, "https://discord.com/api/v10", &recordingUserRepo{})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/auth/discord", nil)
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusTemporaryRedirect, w.Code)
	assert.Contains(t, w.Header().Get("Location"), "oauth2/authorize")
	assert.Contains(t, w.Header().Get("Set-Cookie"), "oauth_state=")
}

func TestAuthHandler_Callback(t *testing.T) {
	srv := fakeDiscordAPI(t)
	users := &recordingUserRepo{}
	r := newAuthRouter(t, srv.URL, users)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/auth/discord/callback?code=the-code&state=state-1", nil)
	req.AddCookie(&http.Cookie{Name: "oauth_state", Value: "state-1"})
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusTemporaryRedirect, w.Code, w.Body.String())
	assert.Equal(t, "/checkout", w.Header().Get("Location"))

	// Пользователь сохранён, сессионный cookie выпущен
	require.NotNil(t, users.upserted)
	assert.Equal(t, "42", users.upserted.DiscordID)
	assert.Equal(t, "tester", users.upserted.Username)

	cookies := w.Result().Cookies()
	var session string
	for _, c := range cookies {
		if c.Name == "discord_user" && c.Value != "" {
			session = c.Value
		}
	}
	assert.NotEmpty(t, session, "callback должен выставить сессионный cookie")
}

func TestAuthHandler_Callback_StateMismatch(t *testing.T) {
	srv := fakeDiscordAPI(t)
	r := newAuthRouter(t, srv.URL, &recordingUserRepo{})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/auth/discord/callback?code=the-code&state=evil", nil)
	req.AddCookie(&http.Cookie{Name: "oauth_state", Value: "state-1"})
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "invalid_state")
}

func TestAuthHandler_Callback_MissingStateCookie(t *testing.T) {
	srv := fakeDiscordAPI(t)
	r := newAuthRouter(t, srv.URL, &recordingUserRepo{})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/auth/discord/callback?code=the-code&state=state-1", nil)
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAuthHandler_Me_Anonymous(t *testing.T) {
	r := newAuthRouter(t, "https://discord.com/api/v10", &recordingUserRepo{})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/me", nil)
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		OK            bool `json:"ok"`
		Authenticated bool `json:"authenticated"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.True(t, body.OK)
	assert.False(t, body.Authenticated)
}

func TestAuthHandler_Me_Authenticated(t *testing.T) {
	srv := fakeDiscordAPI(t)
	users := &recordingUserRepo{
		user: &repository.DiscordUser{DiscordID: "42", Username: "tester", GlobalName: "Tester"},
	}
	r := newAuthRouter(t, srv.URL, users)

	// Получаем сессию через callback
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/auth/discord/callback?code=the-code&state=state-1", nil)
	req.AddCookie(&http.Cookie{Name: "oauth_state", Value: "state-1"})
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusTemporaryRedirect, w.Code)

	var session *http.Cookie
	for _, c := range w.Result().Cookies() {
		if c.Name == "discord_user" && c.Value != "" {
			session = c
		}
	}
	require.NotNil(t, session)

	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/api/me", nil)
	req.AddCookie(session)
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Authenticated bool `json:"authenticated"`
		User          struct {
			DiscordID string `json:"discord_id"`
			Username  string `json:"username"`
		} `json:"user"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.True(t, body.Authenticated)
	assert.Equal(t, "42", body.User.DiscordID)
	assert.Equal(t, "tester", body.User.Username)
}

func TestAuthHandler_Me_StaleSession(t *testing.T) {
	srv := fakeDiscordAPI(t)
	// Репозиторий без пользователя: сессия есть, записи в БД нет
	users := &recordingUserRepo{}
	r := newAuthRouter(t, srv.URL, users)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/auth/discord/callback?code=the-code&state=state-1", nil)
	req.AddCookie(&http.Cookie{Name: "oauth_state", Value: "state-1"})
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusTemporaryRedirect, w.Code)

	var session *http.Cookie
	for _, c := range w.Result().Cookies() {
		if c.Name == "discord_user" && c.Value != "" {
			session = c
		}
	}
	require.NotNil(t, session)

	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/api/me", nil)
	req.AddCookie(session)
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		OK            bool `json:"ok"`
		Authenticated bool `json:"authenticated"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.True(t, body.OK)
	assert.False(t, body.Authenticated)

	// Устаревшая сессия сбрасывается
	assert.Contains(t, w.Header().Get("Set-Cookie"), "discord_user=")
	assert.Contains(t, w.Header().Get("Set-Cookie"), "Max-Age=0")
}

func TestAuthHandler_Logout(t *testing.T) {
	r := newAuthRouter(t, "https://discord.com/api/v10", &recordingUserRepo{})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/auth/logout", nil)
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Set-Cookie"), "discord_user=")
	assert.Contains(t, w.Header().Get("Set-Cookie"), "Max-Age=0")
}
