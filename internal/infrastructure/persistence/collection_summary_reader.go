package persistence

import (
	"context"
	"fmt"

	"github.com/shantivaas/rental/internal/domain/rental"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// collectionSummaryQuery aggregates one period in a single pass.
// Waived cycles count towards TotalCycles only.
const collectionSummaryQuery = `
SELECT
	COUNT(*) AS total_cycles,
	COALESCE(SUM(CASE WHEN c.status = @pending THEN 1 ELSE 0 END), 0) AS pending_count,
	COALESCE(SUM(CASE WHEN c.status = @paid THEN 1 ELSE 0 END), 0) AS paid_count,
	COALESCE(SUM(CASE WHEN c.status = @overdue THEN 1 ELSE 0 END), 0) AS overdue_count,
	COALESCE(SUM(CASE WHEN c.status = @waived THEN 1 ELSE 0 END), 0) AS waived_count,
	COALESCE(SUM(CASE WHEN c.status <> @waived THEN c.amount_due + c.late_fee_amount ELSE 0 END), 0) AS total_expected,
	COALESCE(SUM(COALESCE(p.paid, 0)), 0) AS total_collected,
	COALESCE(SUM(CASE
		WHEN c.status IN (@pending, @overdue) AND c.amount_due + c.late_fee_amount > COALESCE(p.paid, 0)
		THEN c.amount_due + c.late_fee_amount - COALESCE(p.paid, 0)
		ELSE 0 END), 0) AS total_pending
FROM rent_cycles c
LEFT JOIN (
	SELECT rent_cycle_id, SUM(amount) AS paid
	FROM payments
	WHERE is_verified = @verified
	GROUP BY rent_cycle_id
) p ON p.rent_cycle_id = c.id
WHERE c.due_month = @month AND c.due_year = @year`

type collectionSummaryRow struct {
	TotalCycles    int64
	PendingCount   int64
	PaidCount      int64
	OverdueCount   int64
	WaivedCount    int64
	TotalExpected  decimal.Decimal
	TotalCollected decimal.Decimal
	TotalPending   decimal.Decimal
}

// GormCollectionSummaryReader implements CollectionSummaryReader with one aggregate query
type GormCollectionSummaryReader struct {
	db *gorm.DB
}

// NewGormCollectionSummaryReader creates a new GormCollectionSummaryReader
func NewGormCollectionSummaryReader(db *gorm.DB) *GormCollectionSummaryReader {
	return &GormCollectionSummaryReader{db: db}
}

// Summarize totals what was expected, collected and is still pending for the period
func (r *GormCollectionSummaryReader) Summarize(ctx context.Context, period rental.BillingPeriod) (*rental.CollectionSummary, error) {
	var row collectionSummaryRow
	if err := r.db.WithContext(ctx).Raw(collectionSummaryQuery, map[string]interface{}{
		"pending":  rental.CycleStatusPending.String(),
		"paid":     rental.CycleStatusPaid.String(),
		"overdue":  rental.CycleStatusOverdue.String(),
		"waived":   rental.CycleStatusWaived.String(),
		"verified": true,
		"month":    period.Month,
		"year":     period.Year,
	}).Scan(&row).Error; err != nil {
		return nil, fmt.Errorf("failed to summarise collections for %s: %w", period, err)
	}

	return &rental.CollectionSummary{
		Period:         period,
		TotalCycles:    row.TotalCycles,
		PendingCount:   row.PendingCount,
		PaidCount:      row.PaidCount,
		OverdueCount:   row.OverdueCount,
		WaivedCount:    row.WaivedCount,
		TotalExpected:  row.TotalExpected.Round(2),
		TotalCollected: row.TotalCollected.Round(2),
		TotalPending:   row.TotalPending.Round(2),
	}, nil
}

// Ensure GormCollectionSummaryReader implements CollectionSummaryReader
var _ rental.CollectionSummaryReader = (*GormCollectionSummaryReader)(nil)
