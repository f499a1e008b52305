package payment

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/shantivaas/rental/internal/domain/rental"
)

const (
	razorpayOrdersPath = "/orders"
	razorpayOrderPath  = "/orders/%s"

	// maxResponseBytes bounds how much of a gateway response is read
	maxResponseBytes = 1 << 20
)

// RazorpayAdapter implements rental.Gateway against the Razorpay REST API
type RazorpayAdapter struct {
	config     *RazorpayConfig
	httpClient *http.Client
}

// RazorpayOption configures the adapter
type RazorpayOption func(*RazorpayAdapter)

// WithHTTPClient replaces the default traced HTTP client
func WithHTTPClient(client *http.Client) RazorpayOption {
	return func(a *RazorpayAdapter) {
		a.httpClient = client
	}
}

// NewRazorpayAdapter creates a new Razorpay adapter
func NewRazorpayAdapter(config *RazorpayConfig, opts ...RazorpayOption) (*RazorpayAdapter, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	a := &RazorpayAdapter{
		config: config,
		httpClient: &http.Client{
			Timeout:   config.Timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
	}
	for _, opt := range opts {
		opt(a)
	}
	return a, nil
}

// KeyID returns the public key for the checkout widget
func (a *RazorpayAdapter) KeyID() string {
	return a.config.KeyID
}

// CreateOrder opens a checkout order. Amounts go out in paise.
func (a *RazorpayAdapter) CreateOrder(ctx context.Context, req rental.OrderRequest) (*rental.Order, error) {
	if !req.Amount.IsPositive() {
		return nil, rental.ErrInvalidAmount
	}
	currency := req.Currency
	if currency == "" {
		currency = rental.DefaultCurrency
	}

	body, err := json.Marshal(razorpayOrderRequest{
		Amount:   rental.ToMinorUnits(req.Amount),
		Currency: currency,
		Receipt:  req.Receipt,
		Notes:    req.Notes,
	})
	if err != nil {
		return nil, fmt.Errorf("razorpay: failed to marshal request: %w", err)
	}

	respBody, err := a.doRequest(ctx, http.MethodPost, razorpayOrdersPath, body)
	if err != nil {
		return nil, err
	}
	return decodeOrder(respBody)
}

// FetchOrder loads an order by id
func (a *RazorpayAdapter) FetchOrder(ctx context.Context, orderID string) (*rental.Order, error) {
	if orderID == "" {
		return nil, fmt.Errorf("%w: empty order id", rental.ErrGatewayRequestFailed)
	}

	respBody, err := a.doRequest(ctx, http.MethodGet, fmt.Sprintf(razorpayOrderPath, url.PathEscape(orderID)), nil)
	if err != nil {
		return nil, err
	}
	return decodeOrder(respBody)
}

// VerifyPaymentSignature checks hex(HMAC-SHA256(key_secret, order_id|payment_id))
func (a *RazorpayAdapter) VerifyPaymentSignature(orderID, paymentID, signature string) error {
	return verifyHMAC(a.config.KeySecret, []byte(orderID+"|"+paymentID), signature)
}

// VerifyWebhookSignature checks hex(HMAC-SHA256(webhook_secret, body)) over the raw body
func (a *RazorpayAdapter) VerifyWebhookSignature(body []byte, signature string) error {
	return verifyHMAC(a.config.WebhookSecret, body, signature)
}

// ParseWebhookEvent decodes a webhook body. Events without a payment
// entity come back with only Event set.
func (a *RazorpayAdapter) ParseWebhookEvent(body []byte) (*rental.WebhookEvent, error) {
	var hook razorpayWebhook
	if err := json.Unmarshal(body, &hook); err != nil {
		return nil, fmt.Errorf("%w: %v", rental.ErrInvalidWebhookPayload, err)
	}
	if hook.Event == "" {
		return nil, fmt.Errorf("%w: missing event", rental.ErrInvalidWebhookPayload)
	}

	event := &rental.WebhookEvent{Event: hook.Event, Notes: map[string]string{}}
	if hook.Payload.Payment == nil {
		if hook.Event == rental.WebhookEventPaymentCaptured {
			return nil, fmt.Errorf("%w: payment entity missing", rental.ErrInvalidWebhookPayload)
		}
		return event, nil
	}

	p := hook.Payload.Payment.Entity
	if hook.Event == rental.WebhookEventPaymentCaptured && (p.ID == "" || p.Amount <= 0) {
		return nil, fmt.Errorf("%w: payment id and positive amount required", rental.ErrInvalidWebhookPayload)
	}

	event.PaymentID = p.ID
	event.OrderID = p.OrderID
	event.Amount = rental.FromMinorUnits(p.Amount)
	event.Currency = p.Currency
	event.Status = p.Status
	event.Method = p.Method
	for k, v := range p.Notes {
		event.Notes[k] = v
	}
	return event, nil
}

// doRequest performs an authenticated call and classifies failures:
// transport errors and 5xx are ErrGatewayUnavailable, 4xx is ErrGatewayRequestFailed.
func (a *RazorpayAdapter) doRequest(ctx context.Context, method, path string, body []byte) ([]byte, error) {
	var reqBody io.Reader
	if body != nil {
		reqBody = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, a.config.BaseURL+path, reqBody)
	if err != nil {
		return nil, fmt.Errorf("razorpay: failed to create request: %w", err)
	}
	req.SetBasicAuth(a.config.KeyID, a.config.KeySecret)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", rental.ErrGatewayUnavailable, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read response: %v", rental.ErrGatewayUnavailable, err)
	}

	switch {
	case resp.StatusCode >= http.StatusInternalServerError:
		return nil, fmt.Errorf("%w: HTTP %d", rental.ErrGatewayUnavailable, resp.StatusCode)
	case resp.StatusCode >= http.StatusBadRequest:
		var errResp razorpayErrorResponse
		if err := json.Unmarshal(respBody, &errResp); err == nil && errResp.Error.Code != "" {
			return nil, fmt.Errorf("%w: %s - %s", rental.ErrGatewayRequestFailed, errResp.Error.Code, errResp.Error.Description)
		}
		return nil, fmt.Errorf("%w: HTTP %d", rental.ErrGatewayRequestFailed, resp.StatusCode)
	}

	return respBody, nil
}

func decodeOrder(body []byte) (*rental.Order, error) {
	var o razorpayOrder
	if err := json.Unmarshal(body, &o); err != nil {
		return nil, fmt.Errorf("%w: %v", rental.ErrGatewayInvalidResponse, err)
	}
	if o.ID == "" {
		return nil, fmt.Errorf("%w: order id missing", rental.ErrGatewayInvalidResponse)
	}

	order := &rental.Order{
		ID:       o.ID,
		Amount:   rental.FromMinorUnits(o.Amount),
		Currency: o.Currency,
		Receipt:  o.Receipt,
		Status:   o.Status,
		Notes:    map[string]string(o.Notes),
	}
	if order.Notes == nil {
		order.Notes = map[string]string{}
	}
	if o.CreatedAt > 0 {
		order.CreatedAt = time.Unix(o.CreatedAt, 0).UTC()
	}
	return order, nil
}

// verifyHMAC compares in constant time. Signatures are case-insensitive hex.
func verifyHMAC(secret string, message []byte, signature string) error {
	if secret == "" || signature == "" {
		return rental.ErrSignatureMismatch
	}
	got, err := hex.DecodeString(strings.TrimSpace(signature))
	if err != nil {
		return rental.ErrSignatureMismatch
	}

	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(message)
	if !hmac.Equal(mac.Sum(nil), got) {
		return rental.ErrSignatureMismatch
	}
	return nil
}

// Sign returns the hex HMAC-SHA256 Razorpay would attach to message.
// Used by tooling and tests to produce valid signatures.
func Sign(secret string, message []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(message)
	return hex.EncodeToString(mac.Sum(nil))
}

var _ rental.Gateway = (*RazorpayAdapter)(nil)
