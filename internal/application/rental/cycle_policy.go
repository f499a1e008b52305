package rental

import (
	"time"

	"github.com/shantivaas/rental/internal/domain/rental"
	"github.com/shopspring/decimal"
)

// CyclePolicy decides the terms of newly materialised rent cycles.
type CyclePolicy struct {
	// DueDay is the day of month rent is due (clamped to month length)
	DueDay int
	// LateFee is charged once on open cycles after the grace period; zero disables late fees
	LateFee decimal.Decimal
	// LateFeeGraceDays counts from the due date
	LateFeeGraceDays int
	Location         *time.Location
}

// DefaultCyclePolicy returns rent due on the 5th with no late fee
func DefaultCyclePolicy() CyclePolicy {
	return CyclePolicy{
		DueDay:   5,
		LateFee:  decimal.Zero,
		Location: time.UTC,
	}
}

func (p CyclePolicy) location() *time.Location {
	if p.Location == nil {
		return time.UTC
	}
	return p.Location
}

// NewCycle builds a pending cycle for tenant in period
func (p CyclePolicy) NewCycle(tenant *rental.Tenant, period rental.BillingPeriod, amountDue decimal.Decimal) (*rental.RentCycle, error) {
	due := period.DueDate(p.DueDay, p.location())
	cycle, err := rental.NewRentCycle(tenant.ID, tenant.RoomID, period, due, amountDue)
	if err != nil {
		return nil, err
	}
	if p.LateFee.IsPositive() {
		cycle.EnableLateFee(due.AddDate(0, 0, p.LateFeeGraceDays))
	}
	return cycle, nil
}
