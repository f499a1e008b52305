package persistence

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	apprental "github.com/shantivaas/rental/internal/application/rental"
	"github.com/shantivaas/rental/internal/domain/rental"
	"gorm.io/gorm"
)

// GormTransactionScope implements TransactionScope using GORM transactions.
// Each Execute opens a read-committed transaction and takes a row lock on
// the tenant before running fn, which serialises allocations per tenant.
type GormTransactionScope struct {
	db        *gorm.DB
	isolation sql.IsolationLevel
}

// NewGormTransactionScope creates a new GormTransactionScope.
func NewGormTransactionScope(db *gorm.DB) *GormTransactionScope {
	return &GormTransactionScope{db: db, isolation: sql.LevelReadCommitted}
}

// Execute runs fn within a database transaction holding the tenant lock.
// If fn returns an error, the transaction is rolled back.
// If fn succeeds, the transaction is committed.
func (s *GormTransactionScope) Execute(ctx context.Context, tenantID uuid.UUID, fn func(repos apprental.TransactionalRepositories) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		tenant, err := NewGormTenantRepository(tx).LockForAllocation(ctx, tenantID)
		if err != nil {
			return fmt.Errorf("failed to lock tenant %s: %w", tenantID, err)
		}
		if tenant == nil {
			return rental.ErrTenantNotFound
		}
		return fn(&gormTransactionalRepositories{tx: tx, tenant: tenant})
	}, &sql.TxOptions{Isolation: s.isolation})
}

// gormTransactionalRepositories provides access to all repositories within a transaction.
type gormTransactionalRepositories struct {
	tx     *gorm.DB
	tenant *rental.Tenant
}

// Tenant returns the tenant locked for this transaction.
func (r *gormTransactionalRepositories) Tenant() *rental.Tenant {
	return r.tenant
}

// CycleRepo returns the rent cycle repository scoped to the current transaction.
func (r *gormTransactionalRepositories) CycleRepo() rental.RentCycleRepository {
	return NewGormRentCycleRepository(r.tx)
}

// PaymentRepo returns the payment ledger scoped to the current transaction.
func (r *gormTransactionalRepositories) PaymentRepo() rental.PaymentRepository {
	return NewGormPaymentRepository(r.tx)
}

// PrimaryPendingLookup returns the database-function lookup scoped to the current transaction.
func (r *gormTransactionalRepositories) PrimaryPendingLookup() rental.PendingCycleLookup {
	return NewSQLPendingCycleLookup(r.tx)
}

// FallbackPendingLookup returns the raw-query lookup scoped to the current transaction.
func (r *gormTransactionalRepositories) FallbackPendingLookup() rental.PendingCycleLookup {
	return NewQueryPendingCycleLookup(r.tx)
}

// Ensure GormTransactionScope implements TransactionScope
var _ apprental.TransactionScope = (*GormTransactionScope)(nil)

// Ensure gormTransactionalRepositories implements TransactionalRepositories
var _ apprental.TransactionalRepositories = (*gormTransactionalRepositories)(nil)
