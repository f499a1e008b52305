package rental

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shantivaas/rental/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// CycleStatus represents the lifecycle status of a rent cycle
type CycleStatus string

const (
	CycleStatusPending CycleStatus = "pending"
	CycleStatusPaid    CycleStatus = "paid"
	CycleStatusOverdue CycleStatus = "overdue"
	CycleStatusWaived  CycleStatus = "waived"
)

// IsValid checks if the status is a valid CycleStatus
func (s CycleStatus) IsValid() bool {
	switch s {
	case CycleStatusPending, CycleStatusPaid, CycleStatusOverdue, CycleStatusWaived:
		return true
	}
	return false
}

// String returns the string representation of CycleStatus
func (s CycleStatus) String() string {
	return string(s)
}

// IsOpen returns true while money is still expected on the cycle
func (s CycleStatus) IsOpen() bool {
	return s == CycleStatusPending || s == CycleStatusOverdue
}

// OpenCycleStatuses lists the statuses that auto-allocation pays into
func OpenCycleStatuses() []CycleStatus {
	return []CycleStatus{CycleStatusPending, CycleStatusOverdue}
}

// RentCycle is one tenant's rent obligation for one calendar month.
// At most one cycle exists per tenant and period.
type RentCycle struct {
	shared.BaseAggregateRoot
	TenantID          uuid.UUID
	RoomID            uuid.UUID
	Period            BillingPeriod
	DueDate           time.Time
	AmountDue         decimal.Decimal
	LateFeeAmount     decimal.Decimal
	LateFeeApplicable bool
	LateFeeStartDate  *time.Time
	Status            CycleStatus
}

// NewRentCycle creates a pending rent cycle
func NewRentCycle(tenantID, roomID uuid.UUID, period BillingPeriod, dueDate time.Time, amountDue decimal.Decimal) (*RentCycle, error) {
	if tenantID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_TENANT", "Tenant ID cannot be empty")
	}
	if err := period.Validate(); err != nil {
		return nil, err
	}
	if dueDate.IsZero() {
		return nil, shared.NewDomainError("INVALID_DUE_DATE", "Due date is required")
	}
	if !amountDue.IsPositive() {
		return nil, ErrInvalidAmount.WithMessage("Amount due must be greater than zero")
	}

	return &RentCycle{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		TenantID:          tenantID,
		RoomID:            roomID,
		Period:            period,
		DueDate:           dueDate,
		AmountDue:         amountDue,
		LateFeeAmount:     decimal.Zero,
		Status:            CycleStatusPending,
	}, nil
}

// EnableLateFee makes the cycle eligible for a late fee from the given date
func (c *RentCycle) EnableLateFee(from time.Time) {
	c.LateFeeApplicable = true
	c.LateFeeStartDate = &from
}

// TotalDue is the base amount plus any late fee charged
func (c *RentCycle) TotalDue() decimal.Decimal {
	return c.AmountDue.Add(c.LateFeeAmount)
}

// IsOpen returns true if the cycle still accepts auto-allocated payments
func (c *RentCycle) IsOpen() bool {
	return c.Status.IsOpen()
}

// BelongsTo reports whether the cycle is owned by the tenant
func (c *RentCycle) BelongsTo(tenantID uuid.UUID) bool {
	return c.TenantID == tenantID
}

// PendingGiven returns what is still owed once paid has been applied
func (c *RentCycle) PendingGiven(paid decimal.Decimal) decimal.Decimal {
	return PendingAmount(c.TotalDue(), paid)
}

// MarkPaid closes the cycle once nothing is pending
func (c *RentCycle) MarkPaid() error {
	switch c.Status {
	case CycleStatusPaid:
		return nil
	case CycleStatusWaived:
		return shared.ErrInvalidState.WithMessage("Cannot mark a waived rent cycle as paid")
	}
	c.Status = CycleStatusPaid
	c.Touch()
	return nil
}

// MarkOverdue flags a pending cycle whose due date has passed.
// Returns true if the status changed.
func (c *RentCycle) MarkOverdue(now time.Time) bool {
	if c.Status != CycleStatusPending || !now.After(c.DueDate) {
		return false
	}
	c.Status = CycleStatusOverdue
	c.Touch()
	return true
}

// ApplyLateFee charges fee once, when the cycle is open, eligible and past its late fee start date.
// Returns true if a fee was charged.
func (c *RentCycle) ApplyLateFee(now time.Time, fee decimal.Decimal) bool {
	if !c.IsOpen() || !c.LateFeeApplicable || c.LateFeeStartDate == nil {
		return false
	}
	if now.Before(*c.LateFeeStartDate) || !c.LateFeeAmount.IsZero() || !fee.IsPositive() {
		return false
	}
	c.LateFeeAmount = fee
	c.Touch()
	return true
}

// Waive cancels the obligation
func (c *RentCycle) Waive() error {
	if c.Status == CycleStatusPaid {
		return shared.ErrInvalidState.WithMessage(fmt.Sprintf("Cannot waive rent cycle in %s status", c.Status))
	}
	c.Status = CycleStatusWaived
	c.Touch()
	return nil
}

// PendingAmount is max(0, totalDue - paid)
func PendingAmount(totalDue, paid decimal.Decimal) decimal.Decimal {
	pending := totalDue.Sub(paid)
	if pending.IsNegative() {
		return decimal.Zero
	}
	return pending
}
