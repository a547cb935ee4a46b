package mercadopago

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"example.com/checkout/pkg/config"
)

func testClient(baseURL string) *Client {
	return NewClient(config.MercadoPagoConfig{
		AccessToken: "test-token",
		BaseURL:     baseURL,
		Timeout:     5 * time.Second,
		MaxRetries:  3,
	})
}

func TestClient_Create_SendsIdempotencyKey(t *testing.T) {
	var gotKey, gotAuth string
	var gotBody CreatePaymentRequest

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/v1/payments", r.URL.Path)

		gotKey = r.Header.Get("X-Idempotency-Key")
		gotAuth = r.Header.Get("Authorization")

		body, _ := io.ReadAll(r.Body)
		require.NoError(t, json.Unmarshal(body, &gotBody))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id": 123, "status": "pending", "transaction_amount": 19.9}`))
	}))
	defer srv.Close()

	client := testClient(srv.URL)
	pmt, err := client.Create(context.Background(), &CreatePaymentRequest{
		TransactionAmount: 19.90,
		PaymentMethodID:   "pix",
		ExternalReference: "order:a:rev:0",
	}, "idem-key-1")
	require.NoError(t, err)

	assert.Equal(t, int64(123), pmt.ID)
	assert.Equal(t, "pending", pmt.Status)
	assert.Equal(t, "idem-key-1", gotKey)
	assert.Equal(t, "Bearer test-token", gotAuth)
	assert.Equal(t, "order:a:rev:0", gotBody.ExternalReference)
}

func TestClient_RetriesOn429(t *testing.T) {
	attempts := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		if attempts < 3 {
			w.WriteHeader(http.StatusTooManyRequests)
			_, _ = w.Write([]byte(`{"message": "too many requests"}`))
			return
		}
		_, _ = w.Write([]byte(`{"id": 1, "status": "pending"}`))
	}))
	defer srv.Close()

	client := testClient(srv.URL)
	pmt, err := client.Get(context.Background(), 1)
	require.NoError(t, err)

	assert.Equal(t, int64(1), pmt.ID)
	assert.Equal(t, 3, attempts)
}

func TestClient_NoRetryOn4xx(t *testing.T) {
	attempts := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"message": "invalid request", "cause": [{"code": 4001, "description": "bad field"}]}`))
	}))
	defer srv.Close()

	client := testClient(srv.URL)
	_, err := client.Get(context.Background(), 1)
	require.Error(t, err)

	// 4xx — ошибка запроса, повтор бесполезен
	assert.Equal(t, 1, attempts)

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusBadRequest, apiErr.StatusCode)
	assert.False(t, apiErr.Retryable())
}

func TestClient_ClassifiesMissingPixKey(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"message": "Collector user without key enabled for QR render", "cause": [{"code": 13253}]}`))
	}))
	defer srv.Close()

	client := testClient(srv.URL)
	_, err := client.Create(context.Background(), &CreatePaymentRequest{PaymentMethodID: "pix"}, "k")
	require.Error(t, err)

	assert.ErrorIs(t, err, ErrMissingPixKey)
}

func TestClient_ClassifiesPolicyRejection(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte(`{"message": "Cannot pay this amount", "cause": [{"code": "cc_rejected_high_risk"}]}`))
	}))
	defer srv.Close()

	client := testClient(srv.URL)
	_, err := client.Create(context.Background(), &CreatePaymentRequest{PaymentMethodID: "pix"}, "k")
	require.Error(t, err)

	assert.ErrorIs(t, err, ErrPolicyRejected)
}

func TestClient_SearchByExternalReference(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v1/payments/search", r.URL.Path)

		q := r.URL.Query()
		assert.Equal(t, "order:a:rev:1", q.Get("external_reference"))
		assert.Equal(t, "date_created", q.Get("sort"))
		assert.Equal(t, "desc", q.Get("criteria"))
		assert.Equal(t, "30", q.Get("limit"))

		_, _ = w.Write([]byte(`{"paging": {"total": 2}, "results": [{"id": 2, "status": "pending"}, {"id": 1, "status": "cancelled"}]}`))
	}))
	defer srv.Close()

	client := testClient(srv.URL)
	results, err := client.SearchByExternalReference(context.Background(), "order:a:rev:1", 30)
	require.NoError(t, err)

	require.Len(t, results, 2)
	assert.Equal(t, int64(2), results[0].ID)
}

func TestClient_Cancel(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPut, r.Method)
		require.Equal(t, "/v1/payments/55", r.URL.Path)

		body, _ := io.ReadAll(r.Body)
		assert.JSONEq(t, `{"status":"cancelled"}`, string(body))

		_, _ = w.Write([]byte(`{"id": 55, "status": "cancelled"}`))
	}))
	defer srv.Close()

	client := testClient(srv.URL)
	pmt, err := client.Cancel(context.Background(), 55)
	require.NoError(t, err)

	assert.Equal(t, "cancelled", pmt.Status)
}

func TestAmountConversion(t *testing.T) {
	assert.InDelta(t, 19.90, CentsToAmount(1990), 0.0001)
	assert.Equal(t, int64(1990), AmountToCents(19.90))
	assert.Equal(t, int64(1), AmountToCents(0.01))
	assert.Equal(t, int64(0), AmountToCents(0))
}

func TestPixQRCodeBase64_Fallback(t *testing.T) {
	// Шлюз вернул qr_code_base64 — используем как есть
	withBase64 := &Payment{
		ID: 1,
		PointOfInteraction: &PointOfInteraction{
			TransactionData: &TransactionData{QRCode: "payload", QRCodeBase64: "already-encoded"},
		},
	}
	b64, err := PixQRCodeBase64(withBase64)
	require.NoError(t, err)
	assert.Equal(t, "already-encoded", b64)

	// Поля нет — рендерим локально из EMV payload
	withoutBase64 := &Payment{
		ID: 2,
		PointOfInteraction: &PointOfInteraction{
			TransactionData: &TransactionData{QRCode: "00020126580014br.gov.bcb.pix"},
		},
	}
	b64, err = PixQRCodeBase64(withoutBase64)
	require.NoError(t, err)
	assert.NotEmpty(t, b64)

	// Нет данных Pix вовсе
	_, err = PixQRCodeBase64(&Payment{ID: 3})
	assert.Error(t, err)
}
