package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"example.com/checkout/pkg/config"
)

func discordTestConfig(apiBaseURL string) config.DiscordConfig {
	return config.DiscordConfig{
		ClientID:     "client-id",
		ClientSecret: "client-secret",
		RedirectPath: "/api/auth/discord/callback",
		APIBaseURL:   apiBaseURL,
	}
}

func TestDiscordClient_AuthorizeURL(t *testing.T) {
	c := NewDiscordClient(discordTestConfig("https://discord.com/api/v10"), "https://checkout.example.com")

	raw := c.AuthorizeURL("state-123")
	u, err := url.Parse(raw)
	require.NoError(t, err)

	q := u.Query()
	assert.Equal(t, "client-id", q.Get("client_id"))
	assert.Equal(t, "code", q.Get("response_type"))
	assert.Equal(t, "https://checkout.example.com/api/auth/discord/callback", q.Get("redirect_uri"))
	assert.Equal(t, "identify email", q.Get("scope"))
	assert.Equal(t, "state-123", q.Get("state"))
}

func TestDiscordClient_ExchangeCode(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/oauth2/token", r.URL.Path)
		require.Equal(t, http.MethodPost, r.Method)

		// Client credentials через Basic Auth
		user, pass, ok := r.BasicAuth()
		require.True(t, ok)
		assert.Equal(t, "client-id", user)
		assert.Equal(t, "client-secret", pass)

		require.NoError(t, r.ParseForm())
		assert.Equal(t, "authorization_code", r.PostForm.Get("grant_type"))
		assert.Equal(t, "the-code", r.PostForm.Get("code"))

		_, _ = w.Write([]byte(`{"access_token": "access-123", "token_type": "Bearer"}`))
	}))
	defer srv.Close()

	c := NewDiscordClient(discordTestConfig(srv.URL), "https://checkout.example.com")

	token, err := c.ExchangeCode(context.Background(), "the-code")
	require.NoError(t, err)
	assert.Equal(t, "access-123", token)
}

func TestDiscordClient_ExchangeCode_Failure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error": "invalid_grant"}`))
	}))
	defer srv.Close()

	c := NewDiscordClient(discordTestConfig(srv.URL), "https://checkout.example.com")

	_, err := c.ExchangeCode(context.Background(), "bad-code")
	assert.ErrorIs(t, err, ErrOAuthExchange)
}

func TestDiscordClient_FetchProfile(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/users/@me", r.URL.Path)
		assert.Equal(t, "Bearer access-123", r.Header.Get("Authorization"))

		_, _ = w.Write([]byte(`{"id": "42", "username": "tester", "global_name": "Tester", "avatar": "abc", "email": "t@example.com"}`))
	}))
	defer srv.Close()

	c := NewDiscordClient(discordTestConfig(srv.URL), "https://checkout.example.com")

	profile, err := c.FetchProfile(context.Background(), "access-123")
	require.NoError(t, err)

	assert.Equal(t, "42", profile.ID)
	assert.Equal(t, "tester", profile.Username)
	assert.Equal(t, "t@example.com", profile.Email)
}

func TestDiscordClient_FetchProfile_EmptyID(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	c := NewDiscordClient(discordTestConfig(srv.URL), "https://checkout.example.com")

	_, err := c.FetchProfile(context.Background(), "access-123")
	assert.ErrorIs(t, err, ErrOAuthExchange)
}
