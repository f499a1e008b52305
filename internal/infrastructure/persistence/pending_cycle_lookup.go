package persistence

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/shantivaas/rental/internal/domain/rental"
	"github.com/shantivaas/rental/internal/infrastructure/persistence/models"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

const pendingLookupSavepoint = "pending_cycle_lookup"

// pendingCycleRow is one row of get_pending_rent_cycles
type pendingCycleRow struct {
	models.RentCycleModel
	PaidAmount    decimal.Decimal
	PendingAmount decimal.Decimal
}

// SQLPendingCycleLookup reads pending amounts precomputed by the
// get_pending_rent_cycles database function.
// The call runs under a savepoint so that a failing function leaves the
// surrounding transaction usable for the fallback lookup.
type SQLPendingCycleLookup struct {
	db *gorm.DB
}

// NewSQLPendingCycleLookup creates a new SQLPendingCycleLookup
func NewSQLPendingCycleLookup(db *gorm.DB) *SQLPendingCycleLookup {
	return &SQLPendingCycleLookup{db: db}
}

// ListPending implements rental.PendingCycleLookup
func (l *SQLPendingCycleLookup) ListPending(ctx context.Context, tenantID uuid.UUID) ([]rental.CycleWithPending, error) {
	db := l.db.WithContext(ctx)
	if err := db.SavePoint(pendingLookupSavepoint).Error; err != nil {
		return nil, fmt.Errorf("failed to create savepoint: %w", err)
	}

	var rows []pendingCycleRow
	if err := db.Raw("SELECT * FROM get_pending_rent_cycles(?)", tenantID).Scan(&rows).Error; err != nil {
		if rbErr := db.RollbackTo(pendingLookupSavepoint).Error; rbErr != nil {
			return nil, fmt.Errorf("get_pending_rent_cycles failed: %w (rollback to savepoint: %v)", err, rbErr)
		}
		return nil, fmt.Errorf("get_pending_rent_cycles failed: %w", err)
	}

	cycles := make([]rental.CycleWithPending, len(rows))
	for i := range rows {
		cycles[i] = rental.CycleWithPending{
			Cycle:   rows[i].RentCycleModel.ToDomain(),
			Paid:    rows[i].PaidAmount,
			Pending: rows[i].PendingAmount,
		}
	}
	return cycles, nil
}

// QueryPendingCycleLookup derives pending amounts from the raw cycle and
// payment rows. It needs no database functions.
type QueryPendingCycleLookup struct {
	cycles   *GormRentCycleRepository
	payments *GormPaymentRepository
}

// NewQueryPendingCycleLookup creates a new QueryPendingCycleLookup
func NewQueryPendingCycleLookup(db *gorm.DB) *QueryPendingCycleLookup {
	return &QueryPendingCycleLookup{
		cycles:   NewGormRentCycleRepository(db),
		payments: NewGormPaymentRepository(db),
	}
}

// ListPending implements rental.PendingCycleLookup
func (l *QueryPendingCycleLookup) ListPending(ctx context.Context, tenantID uuid.UUID) ([]rental.CycleWithPending, error) {
	open, err := l.cycles.ListOpenByTenant(ctx, tenantID)
	if err != nil {
		return nil, fmt.Errorf("failed to list open rent cycles: %w", err)
	}
	if len(open) == 0 {
		return []rental.CycleWithPending{}, nil
	}

	ids := make([]uuid.UUID, len(open))
	for i, c := range open {
		ids[i] = c.ID
	}
	paid, err := l.payments.SumVerifiedByCycles(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to sum verified payments: %w", err)
	}

	cycles := make([]rental.CycleWithPending, len(open))
	for i, c := range open {
		p := paid[c.ID]
		cycles[i] = rental.CycleWithPending{
			Cycle:   c,
			Paid:    p,
			Pending: c.PendingGiven(p),
		}
	}
	return cycles, nil
}

var (
	_ rental.PendingCycleLookup = (*SQLPendingCycleLookup)(nil)
	_ rental.PendingCycleLookup = (*QueryPendingCycleLookup)(nil)
)
