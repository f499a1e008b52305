package persistence

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shantivaas/rental/internal/domain/rental"
	"github.com/shantivaas/rental/internal/domain/shared"
	"github.com/shantivaas/rental/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormRentCycleRepository implements RentCycleRepository using GORM
type GormRentCycleRepository struct {
	db *gorm.DB
}

// NewGormRentCycleRepository creates a new GormRentCycleRepository
func NewGormRentCycleRepository(db *gorm.DB) *GormRentCycleRepository {
	return &GormRentCycleRepository{db: db}
}

// FindByID finds a rent cycle by its ID
func (r *GormRentCycleRepository) FindByID(ctx context.Context, id uuid.UUID) (*rental.RentCycle, error) {
	var model models.RentCycleModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindByPeriod finds the tenant's rent cycle for a billing period
func (r *GormRentCycleRepository) FindByPeriod(ctx context.Context, tenantID uuid.UUID, period rental.BillingPeriod) (*rental.RentCycle, error) {
	var model models.RentCycleModel
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND due_month = ? AND due_year = ?", tenantID, period.Month, period.Year).
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// GetOrCreate inserts the cycle unless its tenant already has one for the period.
// Concurrent callers race on the unique (tenant_id, due_month, due_year) index and
// the loser reads back the winner's row.
func (r *GormRentCycleRepository) GetOrCreate(ctx context.Context, cycle *rental.RentCycle) (*rental.RentCycle, bool, error) {
	model := models.RentCycleModelFromDomain(cycle)
	result := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "tenant_id"}, {Name: "due_month"}, {Name: "due_year"}},
			DoNothing: true,
		}).
		Create(model)
	if result.Error != nil {
		return nil, false, fmt.Errorf("failed to insert rent cycle %s: %w", cycle.Period, result.Error)
	}
	if result.RowsAffected > 0 {
		return model.ToDomain(), true, nil
	}

	existing, err := r.FindByPeriod(ctx, cycle.TenantID, cycle.Period)
	if err != nil {
		return nil, false, err
	}
	if existing == nil {
		return nil, false, fmt.Errorf("rent cycle %s for tenant %s conflicted but could not be read back", cycle.Period, cycle.TenantID)
	}
	return existing, false, nil
}

// ListByTenant lists every cycle of a tenant, newest period first
func (r *GormRentCycleRepository) ListByTenant(ctx context.Context, tenantID uuid.UUID) ([]*rental.RentCycle, error) {
	var rows []models.RentCycleModel
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ?", tenantID).
		Order("due_year DESC, due_month DESC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return cyclesToDomain(rows), nil
}

// ListOpenByTenant lists a tenant's pending and overdue cycles oldest-first
func (r *GormRentCycleRepository) ListOpenByTenant(ctx context.Context, tenantID uuid.UUID) ([]*rental.RentCycle, error) {
	var rows []models.RentCycleModel
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND status IN ?", tenantID, openStatuses()).
		Order("due_date ASC, created_at ASC, id ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return cyclesToDomain(rows), nil
}

// ListOpenDueBefore lists open cycles of every tenant whose due date is before the given time
func (r *GormRentCycleRepository) ListOpenDueBefore(ctx context.Context, before time.Time) ([]*rental.RentCycle, error) {
	var rows []models.RentCycleModel
	if err := r.db.WithContext(ctx).
		Where("status IN ? AND due_date < ?", openStatuses(), before).
		Order("due_date ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return cyclesToDomain(rows), nil
}

// Save updates a cycle with optimistic locking (checks version)
func (r *GormRentCycleRepository) Save(ctx context.Context, cycle *rental.RentCycle) error {
	result := r.db.WithContext(ctx).
		Model(&models.RentCycleModel{}).
		Where("id = ? AND version = ?", cycle.ID, cycle.Version).
		Updates(map[string]interface{}{
			"amount_due":          cycle.AmountDue,
			"late_fee_amount":     cycle.LateFeeAmount,
			"late_fee_applicable": cycle.LateFeeApplicable,
			"late_fee_start_date": cycle.LateFeeStartDate,
			"status":              string(cycle.Status),
			"version":             cycle.Version + 1,
			"updated_at":          cycle.UpdatedAt,
		})

	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrConcurrencyConflict.WithMessage(fmt.Sprintf("Rent cycle %s was modified by another transaction", cycle.ID))
	}
	cycle.IncrementVersion()
	return nil
}

func openStatuses() []string {
	statuses := rental.OpenCycleStatuses()
	out := make([]string, len(statuses))
	for i, s := range statuses {
		out[i] = s.String()
	}
	return out
}

func cyclesToDomain(rows []models.RentCycleModel) []*rental.RentCycle {
	cycles := make([]*rental.RentCycle, len(rows))
	for i := range rows {
		cycles[i] = rows[i].ToDomain()
	}
	return cycles
}

// Ensure GormRentCycleRepository implements RentCycleRepository
var _ rental.RentCycleRepository = (*GormRentCycleRepository)(nil)
