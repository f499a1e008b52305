package rental

import (
	"time"

	"github.com/google/uuid"
	"github.com/shantivaas/rental/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// AllocationRequest asks for one tendered amount to be written to the ledger.
// With TargetCycleID set the whole amount goes to that cycle; otherwise it is
// spread oldest-first over open cycles and any excess becomes an advance.
type AllocationRequest struct {
	TenantID      uuid.UUID
	Amount        decimal.Decimal
	TargetCycleID *uuid.UUID
	Mode          PaymentMode
	PaymentDate   time.Time
	Notes         string
	RecordedBy    *uuid.UUID
	Gateway       *GatewayReference
}

// IsTargeted reports whether the request names a cycle
func (r AllocationRequest) IsTargeted() bool {
	return r.TargetCycleID != nil && *r.TargetCycleID != uuid.Nil
}

// Validate checks the request before any ledger access
func (r AllocationRequest) Validate() error {
	if r.TenantID == uuid.Nil {
		return shared.ErrInvalidInput.WithMessage("Tenant ID is required")
	}
	if !r.Amount.IsPositive() {
		return ErrInvalidAmount
	}
	if !IsWholePaise(r.Amount) {
		return ErrInvalidAmount.WithMessage("Amount cannot be finer than one paisa")
	}
	if !r.Mode.IsValid() {
		return ErrInvalidPaymentMode
	}
	if r.Mode == PaymentModeOnlineGateway {
		if r.Gateway == nil {
			return shared.ErrInvalidInput.WithMessage("Gateway reference is required for online payments")
		}
		return r.Gateway.Validate()
	}
	if r.Gateway != nil {
		return shared.ErrInvalidInput.WithMessage("Gateway reference is only allowed for online payments")
	}
	if r.RecordedBy == nil || *r.RecordedBy == uuid.Nil {
		return shared.ErrInvalidInput.WithMessage("Recording admin is required for manual payments")
	}
	return nil
}

// AllocationLine is one (cycle, amount) pair written to the ledger
type AllocationLine struct {
	CycleID uuid.UUID
	Period  BillingPeriod
	Amount  decimal.Decimal
	Advance bool
}

// AllocationResult reports what an allocation wrote
type AllocationResult struct {
	Lines          []AllocationLine
	Payments       []*Payment
	AdvanceCycleID *uuid.UUID
}

// Total is the sum written across all lines
func (r *AllocationResult) Total() decimal.Decimal {
	total := decimal.Zero
	for _, line := range r.Lines {
		total = total.Add(line.Amount)
	}
	return total
}

// PaymentsCreated returns the number of ledger rows written
func (r *AllocationResult) PaymentsCreated() int {
	return len(r.Payments)
}

// HasAdvance reports whether part of the money went to a future cycle
func (r *AllocationResult) HasAdvance() bool {
	return r.AdvanceCycleID != nil
}

// CycleIDs returns the distinct cycles touched, in write order
func (r *AllocationResult) CycleIDs() []uuid.UUID {
	seen := make(map[uuid.UUID]struct{}, len(r.Lines))
	ids := make([]uuid.UUID, 0, len(r.Lines))
	for _, line := range r.Lines {
		if _, ok := seen[line.CycleID]; ok {
			continue
		}
		seen[line.CycleID] = struct{}{}
		ids = append(ids, line.CycleID)
	}
	return ids
}
