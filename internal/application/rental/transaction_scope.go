package rental

import (
	"context"

	"github.com/google/uuid"
	"github.com/shantivaas/rental/internal/domain/rental"
)

// TransactionScope runs allocation work atomically.
// Execute holds a per-tenant lock for the duration of fn so that two
// allocations for the same tenant never interleave their read-pending and
// write-payment steps. If fn returns an error, every write made through
// repos is rolled back.
type TransactionScope interface {
	Execute(ctx context.Context, tenantID uuid.UUID, fn func(repos TransactionalRepositories) error) error
}

// TransactionalRepositories exposes repositories bound to the current transaction.
type TransactionalRepositories interface {
	// Tenant returns the locked tenant row
	Tenant() *rental.Tenant
	CycleRepo() rental.RentCycleRepository
	PaymentRepo() rental.PaymentRepository
	// PrimaryPendingLookup returns the precomputed pending-amount lookup
	PrimaryPendingLookup() rental.PendingCycleLookup
	// FallbackPendingLookup recomputes pending amounts from raw rows
	FallbackPendingLookup() rental.PendingCycleLookup
}
