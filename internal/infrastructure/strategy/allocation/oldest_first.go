package allocation

import (
	"context"
	"sort"

	"github.com/shantivaas/rental/internal/domain/shared/strategy"
	"github.com/shopspring/decimal"
)

// OldestFirstStrategyName is the registered name of OldestFirstStrategy
const OldestFirstStrategyName = "oldest_first"

// OldestFirstStrategy pays the oldest open obligation first.
// A newer obligation never receives money while an older one still has
// something pending.
type OldestFirstStrategy struct{}

var _ strategy.PaymentAllocationStrategy = (*OldestFirstStrategy)(nil)

// NewOldestFirstStrategy creates a new oldest-first allocation strategy
func NewOldestFirstStrategy() *OldestFirstStrategy {
	return &OldestFirstStrategy{}
}

// Name returns OldestFirstStrategyName
func (s *OldestFirstStrategy) Name() string { return OldestFirstStrategyName }

// Allocate allocates payment to obligations ordered by due date, creation time and id
func (s *OldestFirstStrategy) Allocate(
	ctx context.Context,
	allocCtx strategy.AllocationContext,
	obligations []strategy.Obligation,
) (strategy.AllocationResult, error) {
	if err := ctx.Err(); err != nil {
		return strategy.AllocationResult{}, err
	}

	sorted := make([]strategy.Obligation, len(obligations))
	copy(sorted, obligations)
	sort.SliceStable(sorted, func(i, j int) bool {
		a, b := sorted[i], sorted[j]
		if !a.DueDate.Equal(b.DueDate) {
			return a.DueDate.Before(b.DueDate)
		}
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.Before(b.CreatedAt)
		}
		return a.ID.String() < b.ID.String()
	})

	remaining := allocCtx.PaymentAmount
	allocations := make([]strategy.Allocation, 0, len(sorted))
	totalAllocated := decimal.Zero

	for _, ob := range sorted {
		if !remaining.IsPositive() {
			break
		}
		if !ob.Pending.IsPositive() {
			continue
		}

		applied := decimal.Min(remaining, ob.Pending)
		allocations = append(allocations, strategy.Allocation{
			ObligationID:    ob.ID,
			AllocatedAmount: applied,
			PendingBefore:   ob.Pending,
			PendingAfter:    ob.Pending.Sub(applied),
		})

		remaining = remaining.Sub(applied)
		totalAllocated = totalAllocated.Add(applied)
	}

	return strategy.AllocationResult{
		Allocations:    allocations,
		TotalAllocated: totalAllocated,
		Remaining:      remaining,
	}, nil
}

// SupportsPartialAllocation returns true; the last obligation paid may stay partly open
func (s *OldestFirstStrategy) SupportsPartialAllocation() bool {
	return true
}
