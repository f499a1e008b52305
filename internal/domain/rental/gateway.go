package rental

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

// Gateway errors
var (
	ErrGatewayNotConfigured   = errors.New("gateway: not configured")
	ErrGatewayUnavailable     = errors.New("gateway: temporarily unavailable")
	ErrGatewayRequestFailed   = errors.New("gateway: request failed")
	ErrGatewayInvalidResponse = errors.New("gateway: invalid response")
	ErrSignatureMismatch      = errors.New("gateway: signature mismatch")
	ErrInvalidWebhookPayload  = errors.New("gateway: invalid webhook payload")
)

// WebhookEventPaymentCaptured is the only webhook event that records money
const WebhookEventPaymentCaptured = "payment.captured"

// Order note keys carried from checkout to the webhook
const (
	NoteRentCycleID = "rent_cycle_id"
	NoteUserID      = "user_id"
	NoteTenantID    = "tenant_id"
)

// DefaultCurrency is the currency rent is billed in
const DefaultCurrency = "INR"

// OrderRequest asks the gateway to open a checkout order
type OrderRequest struct {
	// Amount in rupees; adapters convert to minor units
	Amount   decimal.Decimal
	Currency string
	Receipt  string
	Notes    map[string]string
}

// Order is a gateway checkout order
type Order struct {
	ID        string
	Amount    decimal.Decimal
	Currency  string
	Receipt   string
	Status    string
	Notes     map[string]string
	CreatedAt time.Time
}

// WebhookEvent is a parsed, signature-checked gateway notification
type WebhookEvent struct {
	Event     string
	PaymentID string
	OrderID   string
	Amount    decimal.Decimal
	Currency  string
	Status    string
	Method    string
	Notes     map[string]string
}

// IsPaymentCaptured reports whether the event confirms captured money
func (e *WebhookEvent) IsPaymentCaptured() bool {
	return e.Event == WebhookEventPaymentCaptured
}

// Gateway is the online payment provider
type Gateway interface {
	// KeyID is the public key the checkout widget is opened with
	KeyID() string
	CreateOrder(ctx context.Context, req OrderRequest) (*Order, error)
	FetchOrder(ctx context.Context, orderID string) (*Order, error)
	// VerifyPaymentSignature authenticates a client-reported checkout result
	VerifyPaymentSignature(orderID, paymentID, signature string) error
	// VerifyWebhookSignature authenticates a raw webhook body
	VerifyWebhookSignature(body []byte, signature string) error
	ParseWebhookEvent(body []byte) (*WebhookEvent, error)
}

// ToMinorUnits converts rupees to paise, rounding half away from zero
func ToMinorUnits(amount decimal.Decimal) int64 {
	return amount.Mul(decimal.NewFromInt(100)).Round(0).IntPart()
}

// IsWholePaise reports whether amount has no digits below one paisa.
// Ledger amounts are stored with two decimal places.
func IsWholePaise(amount decimal.Decimal) bool {
	return amount.Equal(amount.Truncate(2))
}

// FromMinorUnits converts paise to rupees
func FromMinorUnits(minor int64) decimal.Decimal {
	return decimal.New(minor, -2)
}
