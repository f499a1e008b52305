package rental

import (
	"context"
	"sort"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CycleWithPending pairs an open cycle with its verified payments and what remains
type CycleWithPending struct {
	Cycle   *RentCycle
	Paid    decimal.Decimal
	Pending decimal.Decimal
}

// PendingCycleLookup lists a tenant's open cycles oldest-first with their pending amounts
type PendingCycleLookup interface {
	ListPending(ctx context.Context, tenantID uuid.UUID) ([]CycleWithPending, error)
}

// SortOldestFirst orders cycles by due date, then creation time, then id
func SortOldestFirst(cycles []CycleWithPending) {
	sort.SliceStable(cycles, func(i, j int) bool {
		return cycleLess(cycles[i].Cycle, cycles[j].Cycle)
	})
}

func cycleLess(a, b *RentCycle) bool {
	if !a.DueDate.Equal(b.DueDate) {
		return a.DueDate.Before(b.DueDate)
	}
	if !a.CreatedAt.Equal(b.CreatedAt) {
		return a.CreatedAt.Before(b.CreatedAt)
	}
	return a.ID.String() < b.ID.String()
}
