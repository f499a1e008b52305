package payment

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shantivaas/rental/internal/domain/rental"
	"github.com/shantivaas/rental/internal/infrastructure/config"
)

const (
	testKeyID         = "rzp_test_key"
	testKeySecret     = "key_secret"
	testWebhookSecret = "webhook_secret"
)

func newTestAdapter(t *testing.T, handler http.HandlerFunc) *RazorpayAdapter {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	cfg := NewRazorpayConfig(config.RazorpayConfig{
		KeyID:         testKeyID,
		KeySecret:     testKeySecret,
		WebhookSecret: testWebhookSecret,
		BaseURL:       server.URL + "/",
		Timeout:       5 * time.Second,
	})
	adapter, err := NewRazorpayAdapter(cfg, WithHTTPClient(server.Client()))
	require.NoError(t, err)
	return adapter
}

func TestRazorpayConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		config  config.RazorpayConfig
		wantErr error
	}{
		{
			name:   "valid config",
			config: config.RazorpayConfig{KeyID: "k", KeySecret: "s", WebhookSecret: "w"},
		},
		{
			name:    "missing key id",
			config:  config.RazorpayConfig{KeySecret: "s", WebhookSecret: "w"},
			wantErr: ErrRazorpayMissingKeyID,
		},
		{
			name:    "missing key secret",
			config:  config.RazorpayConfig{KeyID: "k", WebhookSecret: "w"},
			wantErr: ErrRazorpayMissingKeySecret,
		},
		{
			name:    "missing webhook secret",
			config:  config.RazorpayConfig{KeyID: "k", KeySecret: "s"},
			wantErr: ErrRazorpayMissingWebhookSecret,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := NewRazorpayConfig(tt.config).Validate()
			if tt.wantErr == nil {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, tt.wantErr)
			}
		})
	}
}

func TestNewRazorpayConfig_Defaults(t *testing.T) {
	cfg := NewRazorpayConfig(config.RazorpayConfig{})
	assert.Equal(t, razorpayAPIBaseURL, cfg.BaseURL)
	assert.Equal(t, razorpayDefaultTimeout, cfg.Timeout)
}

func TestRazorpayAdapter_CreateOrder(t *testing.T) {
	var captured razorpayOrderRequest
	adapter := newTestAdapter(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/orders", r.URL.Path)
		user, pass, ok := r.BasicAuth()
		assert.True(t, ok)
		assert.Equal(t, testKeyID, user)
		assert.Equal(t, testKeySecret, pass)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		body, _ := io.ReadAll(r.Body)
		assert.NoError(t, json.Unmarshal(body, &captured))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"order_abc","entity":"order","amount":450050,"currency":"INR","receipt":"rc_1","status":"created","notes":[],"created_at":1709280000}`))
	})

	order, err := adapter.CreateOrder(context.Background(), rental.OrderRequest{
		Amount:  decimal.RequireFromString("4500.50"),
		Receipt: "rc_1",
		Notes:   map[string]string{rental.NoteUserID: "u-1"},
	})
	require.NoError(t, err)

	assert.Equal(t, int64(450050), captured.Amount)
	assert.Equal(t, "INR", captured.Currency)
	assert.Equal(t, "u-1", captured.Notes[rental.NoteUserID])

	assert.Equal(t, "order_abc", order.ID)
	assert.True(t, decimal.RequireFromString("4500.50").Equal(order.Amount))
	assert.Equal(t, "created", order.Status)
	assert.Empty(t, order.Notes)
	assert.Equal(t, time.Unix(1709280000, 0).UTC(), order.CreatedAt)
}

func TestRazorpayAdapter_CreateOrder_RejectsNonPositiveAmount(t *testing.T) {
	adapter := newTestAdapter(t, func(w http.ResponseWriter, r *http.Request) {
		t.Error("gateway must not be called")
	})
	_, err := adapter.CreateOrder(context.Background(), rental.OrderRequest{Amount: decimal.Zero})
	assert.ErrorIs(t, err, rental.ErrInvalidAmount)
}

func TestRazorpayAdapter_FetchOrder(t *testing.T) {
	adapter := newTestAdapter(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/orders/order_abc", r.URL.Path)
		_, _ = w.Write([]byte(`{"id":"order_abc","amount":500000,"amount_paid":500000,"currency":"INR","status":"paid","notes":{"user_id":"u-1","rent_cycle_id":null}}`))
	})

	order, err := adapter.FetchOrder(context.Background(), "order_abc")
	require.NoError(t, err)
	assert.True(t, decimal.NewFromInt(5000).Equal(order.Amount))
	assert.Equal(t, "paid", order.Status)
	assert.Equal(t, map[string]string{"user_id": "u-1", "rent_cycle_id": ""}, order.Notes)
}

func TestRazorpayAdapter_ErrorClassification(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		wantErr error
		wantMsg string
	}{
		{
			name:    "bad request carries gateway description",
			status:  http.StatusBadRequest,
			body:    `{"error":{"code":"BAD_REQUEST_ERROR","description":"The id provided does not exist"}}`,
			wantErr: rental.ErrGatewayRequestFailed,
			wantMsg: "The id provided does not exist",
		},
		{
			name:    "unauthorized without body",
			status:  http.StatusUnauthorized,
			wantErr: rental.ErrGatewayRequestFailed,
			wantMsg: "HTTP 401",
		},
		{
			name:    "server error",
			status:  http.StatusBadGateway,
			wantErr: rental.ErrGatewayUnavailable,
			wantMsg: "HTTP 502",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			adapter := newTestAdapter(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			})
			_, err := adapter.FetchOrder(context.Background(), "order_x")
			assert.ErrorIs(t, err, tt.wantErr)
			assert.Contains(t, err.Error(), tt.wantMsg)
		})
	}

	t.Run("malformed success body", func(t *testing.T) {
		adapter := newTestAdapter(t, func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`<html>`))
		})
		_, err := adapter.FetchOrder(context.Background(), "order_x")
		assert.ErrorIs(t, err, rental.ErrGatewayInvalidResponse)
	})

	t.Run("unreachable gateway", func(t *testing.T) {
		server := httptest.NewServer(http.NotFoundHandler())
		server.Close()
		cfg := NewRazorpayConfig(config.RazorpayConfig{KeyID: "k", KeySecret: "s", WebhookSecret: "w", BaseURL: server.URL})
		adapter, err := NewRazorpayAdapter(cfg)
		require.NoError(t, err)

		_, err = adapter.FetchOrder(context.Background(), "order_x")
		assert.ErrorIs(t, err, rental.ErrGatewayUnavailable)
	})
}

func TestRazorpayAdapter_VerifyPaymentSignature(t *testing.T) {
	adapter := newTestAdapter(t, http.NotFound)
	valid := Sign(testKeySecret, []byte("order_1|pay_1"))

	assert.NoError(t, adapter.VerifyPaymentSignature("order_1", "pay_1", valid))
	assert.NoError(t, adapter.VerifyPaymentSignature("order_1", "pay_1", strings.ToUpper(valid)))
	assert.ErrorIs(t, adapter.VerifyPaymentSignature("order_1", "pay_2", valid), rental.ErrSignatureMismatch)
	assert.ErrorIs(t, adapter.VerifyPaymentSignature("order_1", "pay_1", "not-hex"), rental.ErrSignatureMismatch)
	assert.ErrorIs(t, adapter.VerifyPaymentSignature("order_1", "pay_1", ""), rental.ErrSignatureMismatch)
	assert.ErrorIs(t, adapter.VerifyPaymentSignature("order_1", "pay_1", Sign(testWebhookSecret, []byte("order_1|pay_1"))),
		rental.ErrSignatureMismatch, "the webhook secret must not sign checkout results")
}

func TestRazorpayAdapter_VerifyWebhookSignature(t *testing.T) {
	adapter := newTestAdapter(t, http.NotFound)
	body := []byte(`{"event":"payment.captured"}`)

	assert.NoError(t, adapter.VerifyWebhookSignature(body, Sign(testWebhookSecret, body)))
	assert.ErrorIs(t, adapter.VerifyWebhookSignature(body, Sign(testKeySecret, body)), rental.ErrSignatureMismatch)
	assert.ErrorIs(t, adapter.VerifyWebhookSignature([]byte(`{"event":"payment.captured" }`), Sign(testWebhookSecret, body)),
		rental.ErrSignatureMismatch, "a reformatted body must fail")
}

func TestRazorpayAdapter_ParseWebhookEvent(t *testing.T) {
	adapter := newTestAdapter(t, http.NotFound)

	t.Run("payment captured", func(t *testing.T) {
		body := []byte(`{
			"entity": "event",
			"event": "payment.captured",
			"contains": ["payment"],
			"payload": {"payment": {"entity": {
				"id": "pay_29QQoUBi66xm2f",
				"amount": 500000,
				"currency": "INR",
				"status": "captured",
				"order_id": "order_9A33XWu170gUtm",
				"method": "upi",
				"notes": {"user_id": "4d3f", "rent_cycle_id": null, "attempt": 2}
			}}},
			"created_at": 1709280000
		}`)

		event, err := adapter.ParseWebhookEvent(body)
		require.NoError(t, err)
		assert.True(t, event.IsPaymentCaptured())
		assert.Equal(t, "pay_29QQoUBi66xm2f", event.PaymentID)
		assert.Equal(t, "order_9A33XWu170gUtm", event.OrderID)
		assert.True(t, decimal.NewFromInt(5000).Equal(event.Amount))
		assert.Equal(t, "upi", event.Method)
		assert.Equal(t, "4d3f", event.Notes[rental.NoteUserID])
		assert.Equal(t, "", event.Notes[rental.NoteRentCycleID])
		assert.Equal(t, "2", event.Notes["attempt"])
	})

	t.Run("empty notes array", func(t *testing.T) {
		body := []byte(`{"event":"payment.failed","payload":{"payment":{"entity":{"id":"pay_1","amount":100,"notes":[]}}}}`)
		event, err := adapter.ParseWebhookEvent(body)
		require.NoError(t, err)
		assert.False(t, event.IsPaymentCaptured())
		assert.Empty(t, event.Notes)
	})

	t.Run("event without payment entity", func(t *testing.T) {
		event, err := adapter.ParseWebhookEvent([]byte(`{"event":"refund.created","payload":{}}`))
		require.NoError(t, err)
		assert.Equal(t, "refund.created", event.Event)
		assert.Empty(t, event.PaymentID)
	})

	invalid := map[string]string{
		"not json":                  `{`,
		"missing event":             `{"payload":{}}`,
		"captured without payment":  `{"event":"payment.captured","payload":{}}`,
		"captured with zero amount": `{"event":"payment.captured","payload":{"payment":{"entity":{"id":"pay_1","amount":0}}}}`,
	}
	for name, body := range invalid {
		t.Run(name, func(t *testing.T) {
			_, err := adapter.ParseWebhookEvent([]byte(body))
			assert.ErrorIs(t, err, rental.ErrInvalidWebhookPayload)
		})
	}
}
