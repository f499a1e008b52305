package persistence

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shantivaas/rental/internal/domain/rental"
	"github.com/shantivaas/rental/internal/infrastructure/persistence/models"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

const pgUniqueViolation = "23505"

// GormPaymentRepository implements PaymentRepository using GORM
type GormPaymentRepository struct {
	db *gorm.DB
}

// NewGormPaymentRepository creates a new GormPaymentRepository
func NewGormPaymentRepository(db *gorm.DB) *GormPaymentRepository {
	return &GormPaymentRepository{db: db}
}

// Create appends a payment to the ledger
func (r *GormPaymentRepository) Create(ctx context.Context, payment *rental.Payment) error {
	model := models.PaymentModelFromDomain(payment)
	if err := r.db.WithContext(ctx).Create(model).Error; err != nil {
		if isUniqueViolation(err) {
			return rental.ErrDuplicatePayment
		}
		return fmt.Errorf("failed to insert payment for cycle %s: %w", payment.RentCycleID, err)
	}
	return nil
}

// ExistsByGatewayPaymentID reports whether any ledger row carries the gateway payment id
func (r *GormPaymentRepository) ExistsByGatewayPaymentID(ctx context.Context, gatewayPaymentID string) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&models.PaymentModel{}).
		Where("razorpay_payment_id = ?", gatewayPaymentID).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

type cyclePaidRow struct {
	RentCycleID uuid.UUID
	Paid        decimal.Decimal
}

// SumVerifiedByCycles sums verified payments per cycle. Cycles without payments are absent from the map.
func (r *GormPaymentRepository) SumVerifiedByCycles(ctx context.Context, cycleIDs []uuid.UUID) (map[uuid.UUID]decimal.Decimal, error) {
	sums := make(map[uuid.UUID]decimal.Decimal, len(cycleIDs))
	if len(cycleIDs) == 0 {
		return sums, nil
	}

	var rows []cyclePaidRow
	if err := r.db.WithContext(ctx).
		Model(&models.PaymentModel{}).
		Select("rent_cycle_id, COALESCE(SUM(amount), 0) AS paid").
		Where("rent_cycle_id IN ? AND is_verified = ?", cycleIDs, true).
		Group("rent_cycle_id").
		Scan(&rows).Error; err != nil {
		return nil, err
	}
	for _, row := range rows {
		sums[row.RentCycleID] = row.Paid
	}
	return sums, nil
}

// ListByTenant lists a tenant's payments, newest first
func (r *GormPaymentRepository) ListByTenant(ctx context.Context, tenantID uuid.UUID) ([]*rental.Payment, error) {
	var rows []models.PaymentModel
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ?", tenantID).
		Order("payment_date DESC, created_at DESC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return paymentsToDomain(rows), nil
}

// List returns one page of ledger entries matching the filter and the total match count
func (r *GormPaymentRepository) List(ctx context.Context, filter rental.PaymentFilter) ([]*rental.Payment, int64, error) {
	var total int64
	if err := r.applyFilter(r.db.WithContext(ctx).Model(&models.PaymentModel{}), filter).
		Count(&total).Error; err != nil {
		return nil, 0, err
	}

	page := filter.Pagination.Normalize()
	var rows []models.PaymentModel
	if err := r.applyFilter(r.db.WithContext(ctx), filter).
		Order(paymentOrder(filter)).
		Offset(page.Offset()).
		Limit(page.PageSize).
		Find(&rows).Error; err != nil {
		return nil, 0, err
	}
	return paymentsToDomain(rows), total, nil
}

func (r *GormPaymentRepository) applyFilter(query *gorm.DB, filter rental.PaymentFilter) *gorm.DB {
	if filter.TenantID != nil {
		query = query.Where("tenant_id = ?", *filter.TenantID)
	}
	if filter.Mode != nil {
		query = query.Where("payment_mode = ?", filter.Mode.String())
	}
	if filter.From != nil {
		query = query.Where("payment_date >= ?", *filter.From)
	}
	if filter.To != nil {
		query = query.Where("payment_date <= ?", *filter.To)
	}
	return query
}

// paymentOrder builds a whitelisted ORDER BY with created_at as the tiebreaker
func paymentOrder(filter rental.PaymentFilter) string {
	field := ValidateSortField(filter.SortBy, PaymentSortFields, "payment_date")
	dir := ValidateSortOrder(filter.SortDir)
	if field == "created_at" {
		return "created_at " + dir
	}
	return field + " " + dir + ", created_at " + dir
}

func paymentsToDomain(rows []models.PaymentModel) []*rental.Payment {
	payments := make([]*rental.Payment, len(rows))
	for i := range rows {
		payments[i] = rows[i].ToDomain()
	}
	return payments
}

// isUniqueViolation recognises unique index violations from the translated gorm
// error or from the raw postgres error when translation is off.
func isUniqueViolation(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation
}

// Ensure GormPaymentRepository implements PaymentRepository
var _ rental.PaymentRepository = (*GormPaymentRepository)(nil)
