package rental

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shantivaas/rental/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// RentCycleRepository persists rent cycles.
// Finders return (nil, nil) when nothing matches.
type RentCycleRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*RentCycle, error)
	FindByPeriod(ctx context.Context, tenantID uuid.UUID, period BillingPeriod) (*RentCycle, error)
	// GetOrCreate inserts cycle unless one exists for its tenant and period,
	// and returns the stored cycle with created=true when it was inserted.
	GetOrCreate(ctx context.Context, cycle *RentCycle) (stored *RentCycle, created bool, err error)
	ListByTenant(ctx context.Context, tenantID uuid.UUID) ([]*RentCycle, error)
	ListOpenByTenant(ctx context.Context, tenantID uuid.UUID) ([]*RentCycle, error)
	ListOpenDueBefore(ctx context.Context, before time.Time) ([]*RentCycle, error)
	// Save updates a cycle guarded by its version
	Save(ctx context.Context, cycle *RentCycle) error
}

// PaymentFilter narrows ledger listings
type PaymentFilter struct {
	shared.Pagination
	TenantID *uuid.UUID
	Mode     *PaymentMode
	From     *time.Time
	To       *time.Time
	// SortBy names a ledger column; unknown values fall back to payment_date
	SortBy  string
	SortDir string
}

// PaymentRepository is the append-only payment ledger
type PaymentRepository interface {
	// Create inserts a payment. A gateway payment id already stored for the
	// same cycle yields ErrDuplicatePayment.
	Create(ctx context.Context, payment *Payment) error
	ExistsByGatewayPaymentID(ctx context.Context, gatewayPaymentID string) (bool, error)
	SumVerifiedByCycles(ctx context.Context, cycleIDs []uuid.UUID) (map[uuid.UUID]decimal.Decimal, error)
	ListByTenant(ctx context.Context, tenantID uuid.UUID) ([]*Payment, error)
	List(ctx context.Context, filter PaymentFilter) ([]*Payment, int64, error)
}

// TenantFilter narrows tenant listings
type TenantFilter struct {
	shared.Pagination
	Active *bool
	RoomID *uuid.UUID
}

// TenantRepository stores renters
type TenantRepository interface {
	// Create inserts a tenant. A user already linked to a tenant yields
	// ErrTenantExists.
	Create(ctx context.Context, tenant *Tenant) error
	Save(ctx context.Context, tenant *Tenant) error
	FindByID(ctx context.Context, id uuid.UUID) (*Tenant, error)
	FindByUserID(ctx context.Context, userID uuid.UUID) (*Tenant, error)
	ListActive(ctx context.Context) ([]*Tenant, error)
	List(ctx context.Context, filter TenantFilter) ([]*Tenant, int64, error)
	// LockForAllocation loads the tenant row with a write lock held until
	// the surrounding transaction ends.
	LockForAllocation(ctx context.Context, id uuid.UUID) (*Tenant, error)
}

// CollectionSummary aggregates one period's rent collection
type CollectionSummary struct {
	Period         BillingPeriod
	TotalCycles    int64
	PendingCount   int64
	PaidCount      int64
	OverdueCount   int64
	WaivedCount    int64
	TotalExpected  decimal.Decimal
	TotalCollected decimal.Decimal
	TotalPending   decimal.Decimal
}

// CollectionSummaryReader computes collection summaries
type CollectionSummaryReader interface {
	Summarize(ctx context.Context, period BillingPeriod) (*CollectionSummary, error)
}
