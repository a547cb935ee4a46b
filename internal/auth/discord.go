package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"example.com/checkout/pkg/config"
)

// ErrOAuthExchange — обмен кода на токен или запрос профиля не удался.
var ErrOAuthExchange = errors.New("ошибка OAuth обмена с Discord")

// DiscordProfile — профиль пользователя из Discord API.
type DiscordProfile struct {
	ID         string `json:"id"`
	Username   string `json:"username"`
	GlobalName string `json:"global_name"`
	Avatar     string `json:"avatar"`
	Email      string `json:"email"`
}

// DiscordClient — клиент Discord OAuth (authorization code flow).
type DiscordClient struct {
	httpClient  *http.Client
	clientID    string
	secret      string
	apiBaseURL  string
	redirectURI string
}

// NewDiscordClient создаёт клиент Discord OAuth.
// appBaseURL — публичный адрес сервиса для построения redirect_uri.
func NewDiscordClient(cfg config.DiscordConfig, appBaseURL string) *DiscordClient {
	return &DiscordClient{
		httpClient:  &http.Client{Timeout: 10 * time.Second},
		clientID:    cfg.ClientID,
		secret:      cfg.ClientSecret,
		apiBaseURL:  strings.TrimSuffix(cfg.APIBaseURL, "/"),
		redirectURI: strings.TrimSuffix(appBaseURL, "/") + cfg.RedirectPath,
	}
}

// AuthorizeURL возвращает URL страницы согласия Discord.
// state — CSRF-токен, проверяется в callback.
func (c *DiscordClient) AuthorizeURL(state string) string {
	q := url.Values{}
	q.Set("client_id", c.clientID)
	q.Set("response_type", "code")
	q.Set("redirect_uri", c.redirectURI)
	q.Set("scope", "identify email")
	q.Set("state", state)
	return c.apiBaseURL + "/oauth2/authorize?" + q.Encode()
}

// ExchangeCode обменивает authorization code на access token.
func (c *DiscordClient) ExchangeCode(ctx context.Context, code string) (string, error) {
	form := url.Values{}
	form.Set("grant_type", "authorization_code")
	form.Set("code", code)
	form.Set("redirect_uri", c.redirectURI)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.apiBaseURL+"/oauth2/token", strings.NewReader(form.Encode()))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.SetBasicAuth(c.clientID, c.secret)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrOAuthExchange, err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrOAuthExchange, err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%w: HTTP %d", ErrOAuthExchange, resp.StatusCode)
	}

	var token struct {
		AccessToken string `json:"access_token"`
	}
	if err := json.Unmarshal(body, &token); err != nil || token.AccessToken == "" {
		return "", fmt.Errorf("%w: пустой access_token", ErrOAuthExchange)
	}
	return token.AccessToken, nil
}

// FetchProfile возвращает профиль пользователя по access token.
func (c *DiscordClient) FetchProfile(ctx context.Context, accessToken string) (*DiscordProfile, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.apiBaseURL+"/users/@me", nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrOAuthExchange, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: HTTP %d при запросе профиля", ErrOAuthExchange, resp.StatusCode)
	}

	var profile DiscordProfile
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&profile); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrOAuthExchange, err)
	}
	if profile.ID == "" {
		return nil, fmt.Errorf("%w: профиль без id", ErrOAuthExchange)
	}
	return &profile, nil
}
