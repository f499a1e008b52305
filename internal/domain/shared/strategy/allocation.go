// Package strategy holds the pluggable policies the rental engine delegates to.
package strategy

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Obligation is an open amount owed by a payer, such as one month of rent
type Obligation struct {
	ID        uuid.UUID
	DueDate   time.Time
	CreatedAt time.Time
	Pending   decimal.Decimal
}

// Allocation is the share of a payment applied to one obligation
type Allocation struct {
	ObligationID    uuid.UUID
	AllocatedAmount decimal.Decimal
	PendingBefore   decimal.Decimal
	PendingAfter    decimal.Decimal
}

// AllocationContext provides context for payment allocation
type AllocationContext struct {
	PayerID       uuid.UUID
	PaymentAmount decimal.Decimal
	PaymentDate   time.Time
}

// AllocationResult contains the result of payment allocation.
// Remaining is whatever could not be placed on the given obligations.
type AllocationResult struct {
	Allocations    []Allocation
	TotalAllocated decimal.Decimal
	Remaining      decimal.Decimal
}

// PaymentAllocationStrategy spreads one payment over open obligations.
// Implementations must not mutate the obligations they are given.
type PaymentAllocationStrategy interface {
	// Name identifies the strategy in logs and spans
	Name() string
	// Allocate spreads a payment amount over outstanding obligations
	Allocate(ctx context.Context, allocCtx AllocationContext, obligations []Obligation) (AllocationResult, error)
	// SupportsPartialAllocation returns true if an obligation may be left partly paid
	SupportsPartialAllocation() bool
}
