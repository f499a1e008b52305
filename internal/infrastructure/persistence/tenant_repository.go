package persistence

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shantivaas/rental/internal/domain/rental"
	"github.com/shantivaas/rental/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormTenantRepository implements TenantRepository using GORM
type GormTenantRepository struct {
	db *gorm.DB
}

// NewGormTenantRepository creates a new GormTenantRepository
func NewGormTenantRepository(db *gorm.DB) *GormTenantRepository {
	return &GormTenantRepository{db: db}
}

// Create inserts a new tenant
func (r *GormTenantRepository) Create(ctx context.Context, tenant *rental.Tenant) error {
	if err := r.db.WithContext(ctx).Create(models.TenantModelFromDomain(tenant)).Error; err != nil {
		if isUniqueViolation(err) {
			return rental.ErrTenantExists
		}
		return fmt.Errorf("failed to insert tenant for user %s: %w", tenant.UserID, err)
	}
	return nil
}

// Save writes the tenant's mutable columns. The linked user never changes.
func (r *GormTenantRepository) Save(ctx context.Context, tenant *rental.Tenant) error {
	result := r.db.WithContext(ctx).
		Model(&models.TenantModel{}).
		Where("id = ?", tenant.ID).
		Updates(map[string]any{
			"room_id":      tenant.RoomID,
			"monthly_rent": tenant.MonthlyRent,
			"is_active":    tenant.IsActive,
			"join_date":    tenant.JoinDate,
			"leave_date":   tenant.LeaveDate,
			"updated_at":   time.Now(),
		})
	if result.Error != nil {
		return fmt.Errorf("failed to update tenant %s: %w", tenant.ID, result.Error)
	}
	if result.RowsAffected == 0 {
		return rental.ErrTenantNotFound
	}
	return nil
}

// FindByID finds a tenant by its ID
func (r *GormTenantRepository) FindByID(ctx context.Context, id uuid.UUID) (*rental.Tenant, error) {
	return r.first(r.db.WithContext(ctx).Where("id = ?", id))
}

// FindByUserID finds the tenant linked to a login user
func (r *GormTenantRepository) FindByUserID(ctx context.Context, userID uuid.UUID) (*rental.Tenant, error) {
	return r.first(r.db.WithContext(ctx).Where("user_id = ?", userID))
}

// ListActive lists every active tenant
func (r *GormTenantRepository) ListActive(ctx context.Context) ([]*rental.Tenant, error) {
	var rows []models.TenantModel
	if err := r.db.WithContext(ctx).
		Where("is_active = ?", true).
		Order("join_date ASC, id ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	tenants := make([]*rental.Tenant, len(rows))
	for i := range rows {
		tenants[i] = rows[i].ToDomain()
	}
	return tenants, nil
}

// List returns one page of tenants, earliest joiners first, and the total match count
func (r *GormTenantRepository) List(ctx context.Context, filter rental.TenantFilter) ([]*rental.Tenant, int64, error) {
	var total int64
	if err := applyTenantFilter(r.db.WithContext(ctx).Model(&models.TenantModel{}), filter).
		Count(&total).Error; err != nil {
		return nil, 0, err
	}

	page := filter.Pagination.Normalize()
	var rows []models.TenantModel
	if err := applyTenantFilter(r.db.WithContext(ctx), filter).
		Order("join_date ASC, id ASC").
		Offset(page.Offset()).
		Limit(page.PageSize).
		Find(&rows).Error; err != nil {
		return nil, 0, err
	}
	tenants := make([]*rental.Tenant, len(rows))
	for i := range rows {
		tenants[i] = rows[i].ToDomain()
	}
	return tenants, total, nil
}

func applyTenantFilter(query *gorm.DB, filter rental.TenantFilter) *gorm.DB {
	if filter.Active != nil {
		query = query.Where("is_active = ?", *filter.Active)
	}
	if filter.RoomID != nil {
		query = query.Where("room_id = ?", *filter.RoomID)
	}
	return query
}

// LockForAllocation loads the tenant with SELECT ... FOR UPDATE.
// Must be called inside a transaction; the lock is released on commit or rollback.
func (r *GormTenantRepository) LockForAllocation(ctx context.Context, id uuid.UUID) (*rental.Tenant, error) {
	return r.first(r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", id))
}

func (r *GormTenantRepository) first(query *gorm.DB) (*rental.Tenant, error) {
	var model models.TenantModel
	if err := query.First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// Ensure GormTenantRepository implements TenantRepository
var _ rental.TenantRepository = (*GormTenantRepository)(nil)
