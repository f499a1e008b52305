package rental

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shantivaas/rental/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// PaymentMode represents how money was received
type PaymentMode string

const (
	PaymentModeCash          PaymentMode = "CASH"
	PaymentModeBankTransfer  PaymentMode = "BANK_TRANSFER"
	PaymentModeUPIManual     PaymentMode = "UPI_MANUAL"
	PaymentModeOnlineGateway PaymentMode = "ONLINE_GATEWAY"
)

// IsValid checks if the mode is a valid PaymentMode
func (m PaymentMode) IsValid() bool {
	switch m {
	case PaymentModeCash, PaymentModeBankTransfer, PaymentModeUPIManual, PaymentModeOnlineGateway:
		return true
	}
	return false
}

// IsManual returns true for modes an admin records by hand
func (m PaymentMode) IsManual() bool {
	return m.IsValid() && m != PaymentModeOnlineGateway
}

// String returns the string representation of PaymentMode
func (m PaymentMode) String() string {
	return string(m)
}

// ManualPaymentModes lists the modes accepted from the admin mark-payment flow
func ManualPaymentModes() []PaymentMode {
	return []PaymentMode{PaymentModeCash, PaymentModeBankTransfer, PaymentModeUPIManual}
}

// GatewayReference carries the provider identifiers of an online payment
type GatewayReference struct {
	OrderID   string
	PaymentID string
	Signature string
}

// Validate requires the provider payment id, which is the idempotency key
func (g GatewayReference) Validate() error {
	if strings.TrimSpace(g.PaymentID) == "" {
		return shared.NewDomainError("INVALID_GATEWAY_REFERENCE", "Gateway payment ID is required")
	}
	return nil
}

// Payment is one ledger entry against exactly one rent cycle.
// Entries are append-only.
type Payment struct {
	shared.BaseEntity
	TenantID    uuid.UUID
	RentCycleID uuid.UUID
	Amount      decimal.Decimal
	Mode        PaymentMode
	PaymentDate time.Time
	IsVerified  bool
	VerifiedBy  *uuid.UUID
	VerifiedAt  *time.Time
	ReceivedBy  *uuid.UUID
	Gateway     *GatewayReference
	Notes       string
}

// NewPayment creates an unverified ledger entry
func NewPayment(tenantID, rentCycleID uuid.UUID, amount decimal.Decimal, mode PaymentMode, paymentDate time.Time) (*Payment, error) {
	if tenantID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_TENANT", "Tenant ID cannot be empty")
	}
	if rentCycleID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_RENT_CYCLE", "Rent cycle ID cannot be empty")
	}
	if !amount.IsPositive() {
		return nil, ErrInvalidAmount
	}
	if !mode.IsValid() {
		return nil, ErrInvalidPaymentMode
	}
	if paymentDate.IsZero() {
		paymentDate = time.Now()
	}

	return &Payment{
		BaseEntity:  shared.NewBaseEntity(),
		TenantID:    tenantID,
		RentCycleID: rentCycleID,
		Amount:      amount,
		Mode:        mode,
		PaymentDate: paymentDate,
	}, nil
}

// MarkVerified records who verified the payment and when.
// by is nil for payments authenticated by the gateway signature.
func (p *Payment) MarkVerified(by *uuid.UUID, at time.Time) {
	p.IsVerified = true
	p.VerifiedBy = by
	p.VerifiedAt = &at
}

// AttachGateway links the payment to a provider transaction
func (p *Payment) AttachGateway(ref GatewayReference) error {
	if err := ref.Validate(); err != nil {
		return err
	}
	p.Gateway = &ref
	return nil
}

// GatewayPaymentID returns the provider payment id, or "" for manual entries
func (p *Payment) GatewayPaymentID() string {
	if p.Gateway == nil {
		return ""
	}
	return p.Gateway.PaymentID
}
