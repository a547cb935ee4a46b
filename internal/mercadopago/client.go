package mercadopago

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"example.com/checkout/pkg/circuitbreaker"
	"example.com/checkout/pkg/config"
	"example.com/checkout/pkg/logger"
	"example.com/checkout/pkg/metrics"
)

// Client — HTTP клиент API Mercado Pago.
type Client struct {
	httpClient *http.Client
	breaker    *circuitbreaker.Breaker
	baseURL    string
	token      string
	maxRetries int
}

// NewClient создаёт клиент шлюза.
func NewClient(cfg config.MercadoPagoConfig) *Client {
	return &Client{
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		breaker:    circuitbreaker.New("mercadopago"),
		baseURL:    cfg.BaseURL,
		token:      cfg.AccessToken,
		maxRetries: cfg.MaxRetries,
	}
}

// Create создаёт платёж. idempotencyKey передаётся в X-Idempotency-Key:
// повторный запрос с тем же ключом возвращает уже созданный платёж,
// это последний рубеж защиты от двойного списания.
func (c *Client) Create(ctx context.Context, req *CreatePaymentRequest, idempotencyKey string) (*Payment, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("ошибка сериализации запроса: %w", err)
	}

	headers := map[string]string{"X-Idempotency-Key": idempotencyKey}

	var payment Payment
	if err := c.do(ctx, "create", http.MethodPost, "/v1/payments", nil, body, headers, &payment); err != nil {
		return nil, err
	}
	return &payment, nil
}

// Get возвращает текущее состояние платежа.
func (c *Client) Get(ctx context.Context, id int64) (*Payment, error) {
	var payment Payment
	path := "/v1/payments/" + strconv.FormatInt(id, 10)
	if err := c.do(ctx, "get", http.MethodGet, path, nil, nil, nil, &payment); err != nil {
		return nil, err
	}
	return &payment, nil
}

// SearchByExternalReference возвращает платежи заказа, свежие первыми.
// Пагинация не обходится: берём limit самых свежих результатов, более
// старые кандидаты считаются устаревшими и не переиспользуются.
func (c *Client) SearchByExternalReference(ctx context.Context, externalReference string, limit int) ([]*Payment, error) {
	query := url.Values{}
	query.Set("external_reference", externalReference)
	query.Set("sort", "date_created")
	query.Set("criteria", "desc")
	query.Set("limit", strconv.Itoa(limit))

	var result SearchResult
	if err := c.do(ctx, "search", http.MethodGet, "/v1/payments/search", query, nil, nil, &result); err != nil {
		return nil, err
	}
	return result.Results, nil
}

// Cancel отменяет платёж (перевод в status=cancelled).
func (c *Client) Cancel(ctx context.Context, id int64) (*Payment, error) {
	body := []byte(`{"status":"cancelled"}`)

	var payment Payment
	path := "/v1/payments/" + strconv.FormatInt(id, 10)
	if err := c.do(ctx, "cancel", http.MethodPut, path, nil, body, nil, &payment); err != nil {
		return nil, err
	}
	return &payment, nil
}

// do выполняет запрос с повторами и circuit breaker, декодирует ответ в out.
// Повторы: только 429/5xx и сетевые ошибки, экспоненциальный backoff.
func (c *Client) do(ctx context.Context, operation, method, path string, query url.Values, body []byte, headers map[string]string, out any) error {
	log := logger.FromContext(ctx)

	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			// 250ms, 500ms, 1s, ... — экспоненциальный backoff между попытками
			backoff := time.Duration(250*(1<<(attempt-1))) * time.Millisecond
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(backoff):
			}

			log.Warn().
				Str("operation", operation).
				Int("attempt", attempt).
				Err(lastErr).
				Msg("Повтор запроса к платёжному шлюзу")
		}

		err := c.doOnce(ctx, method, path, query, body, headers, out)
		if err == nil {
			metrics.GatewayRequests.WithLabelValues(operation, "success").Inc()
			return nil
		}
		lastErr = err

		// Breaker открыт — дальнейшие попытки бессмысленны
		if errors.Is(err, circuitbreaker.ErrOpen) {
			break
		}

		var apiErr *APIError
		if errors.As(err, &apiErr) && !apiErr.Retryable() {
			// 4xx: ошибка запроса, повтор не поможет
			break
		}
	}

	metrics.GatewayRequests.WithLabelValues(operation, "error").Inc()
	return lastErr
}

// doOnce выполняет один HTTP запрос через circuit breaker.
func (c *Client) doOnce(ctx context.Context, method, path string, query url.Values, body []byte, headers map[string]string, out any) error {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	respBody, err := circuitbreaker.Execute(c.breaker, func() ([]byte, error) {
		var reader io.Reader
		if body != nil {
			reader = bytes.NewReader(body)
		}

		req, err := http.NewRequestWithContext(ctx, method, u, reader)
		if err != nil {
			return nil, err
		}

		req.Header.Set("Authorization", "Bearer "+c.token)
		req.Header.Set("Accept", "application/json")
		if body != nil {
			req.Header.Set("Content-Type", "application/json")
		}
		for k, v := range headers {
			req.Header.Set(k, v)
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return nil, fmt.Errorf("ошибка запроса к шлюзу: %w", err)
		}
		defer func() { _ = resp.Body.Close() }()

		data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
		if err != nil {
			return nil, fmt.Errorf("ошибка чтения ответа шлюза: %w", err)
		}

		if resp.StatusCode >= 400 {
			return nil, parseAPIError(resp.StatusCode, data)
		}

		return data, nil
	})
	if err != nil {
		return err
	}

	if out != nil {
		if err := json.Unmarshal(respBody, out); err != nil {
			return fmt.Errorf("ошибка декодирования ответа шлюза: %w", err)
		}
	}

	return nil
}

// parseAPIError разбирает тело ошибки и классифицирует известные причины.
func parseAPIError(statusCode int, body []byte) error {
	apiErr := &APIError{StatusCode: statusCode}

	var parsed errorBody
	if err := json.Unmarshal(body, &parsed); err == nil {
		apiErr.Message = parsed.Message
		if apiErr.Message == "" {
			apiErr.Message = parsed.Err
		}
		if len(parsed.Cause) > 0 {
			apiErr.Code = fmt.Sprintf("%v", parsed.Cause[0].Code)
			if apiErr.Message == "" {
				apiErr.Message = parsed.Cause[0].Description
			}
		}
	}
	if apiErr.Message == "" {
		apiErr.Message = string(body)
	}

	return classify(apiErr)
}
