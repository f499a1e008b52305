package rental

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/shantivaas/rental/internal/domain/rental"
	"go.uber.org/zap"
)

// ResilientPendingLookup serves pending cycles from the primary lookup and
// switches to the fallback when the primary fails. Both results are returned
// oldest-first.
type ResilientPendingLookup struct {
	primary  rental.PendingCycleLookup
	fallback rental.PendingCycleLookup
	logger   *zap.Logger
	metrics  PaymentMetrics
}

// NewResilientPendingLookup creates a lookup with a fallback path
func NewResilientPendingLookup(primary, fallback rental.PendingCycleLookup, logger *zap.Logger, metrics PaymentMetrics) *ResilientPendingLookup {
	if logger == nil {
		logger = zap.NewNop()
	}
	if metrics == nil {
		metrics = noopMetrics{}
	}
	return &ResilientPendingLookup{
		primary:  primary,
		fallback: fallback,
		logger:   logger,
		metrics:  metrics,
	}
}

// ListPending implements rental.PendingCycleLookup
func (l *ResilientPendingLookup) ListPending(ctx context.Context, tenantID uuid.UUID) ([]rental.CycleWithPending, error) {
	cycles, primaryErr := l.primary.ListPending(ctx, tenantID)
	if primaryErr == nil {
		rental.SortOldestFirst(cycles)
		return cycles, nil
	}

	l.logger.Warn("Pending cycle lookup failed, using fallback query",
		zap.String("tenant_id", tenantID.String()),
		zap.Error(primaryErr))
	l.metrics.RecordLookupFallback(ctx)

	if l.fallback == nil {
		return nil, rental.ErrPendingLookupFailed.Wrap(primaryErr)
	}

	cycles, fallbackErr := l.fallback.ListPending(ctx, tenantID)
	if fallbackErr != nil {
		return nil, rental.ErrPendingLookupFailed.Wrap(errors.Join(primaryErr, fallbackErr))
	}
	rental.SortOldestFirst(cycles)
	return cycles, nil
}

var _ rental.PendingCycleLookup = (*ResilientPendingLookup)(nil)
