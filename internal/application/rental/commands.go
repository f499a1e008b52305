package rental

import (
	"time"

	"github.com/google/uuid"
	"github.com/shantivaas/rental/internal/domain/rental"
	"github.com/shopspring/decimal"
)

// MarkPaymentCommand records money an admin received outside the gateway.
// A nil RentCycleID spreads the amount oldest-first.
type MarkPaymentCommand struct {
	TenantID    uuid.UUID
	RentCycleID *uuid.UUID
	Amount      decimal.Decimal
	Mode        rental.PaymentMode
	PaymentDate time.Time
	Notes       string
	AdminID     uuid.UUID
}

// CreateOrderCommand opens a gateway checkout for the signed-in tenant
type CreateOrderCommand struct {
	UserID      uuid.UUID
	RentCycleID *uuid.UUID
	Amount      decimal.Decimal
}

// CheckoutOrder is what the checkout widget needs
type CheckoutOrder struct {
	OrderID  string
	Amount   decimal.Decimal
	Currency string
	Receipt  string
	KeyID    string
}

// VerifyPaymentCommand carries a client-reported checkout result
type VerifyPaymentCommand struct {
	UserID      uuid.UUID
	OrderID     string
	PaymentID   string
	Signature   string
	RentCycleID *uuid.UUID
	Amount      decimal.Decimal
}

// PaymentOutcome is the result of a payment operation.
// Replayed means the gateway payment was already recorded and nothing was written.
// Ignored means the notification carried nothing to record.
type PaymentOutcome struct {
	Result   *rental.AllocationResult
	Replayed bool
	Ignored  bool
	Reason   string
}

// PaymentsCreated returns the number of ledger rows written
func (o *PaymentOutcome) PaymentsCreated() int {
	if o == nil || o.Result == nil {
		return 0
	}
	return o.Result.PaymentsCreated()
}

// GenerateCyclesResult reports a monthly generation run
type GenerateCyclesResult struct {
	Period  rental.BillingPeriod
	Created int
	Existed int
	Skipped int
}

// RefreshOverdueResult reports an overdue sweep
type RefreshOverdueResult struct {
	MarkedOverdue  int
	LateFeeApplied int
}

// TenantCycleView is a cycle with its paid and pending amounts
type TenantCycleView struct {
	Cycle   *rental.RentCycle
	Paid    decimal.Decimal
	Pending decimal.Decimal
}

// CreateTenantCommand links a login user to a room
type CreateTenantCommand struct {
	UserID      uuid.UUID
	RoomID      uuid.UUID
	MonthlyRent decimal.Decimal
	JoinDate    time.Time
}

// UpdateTenantCommand changes a tenancy. Nil fields are left as they are.
type UpdateTenantCommand struct {
	TenantID uuid.UUID
	rental.TenantChanges
}

// DeactivateTenantCommand ends a tenancy. A zero LeaveDate means today.
type DeactivateTenantCommand struct {
	TenantID  uuid.UUID
	LeaveDate time.Time
}
