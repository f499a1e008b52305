package rental

import (
	"context"

	"github.com/google/uuid"
	"github.com/shantivaas/rental/internal/domain/rental"
	"go.uber.org/zap"
)

// CycleStatusSync closes cycles whose verified payments cover their total due.
type CycleStatusSync struct {
	logger *zap.Logger
}

// NewCycleStatusSync creates a status sync
func NewCycleStatusSync(logger *zap.Logger) *CycleStatusSync {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CycleStatusSync{logger: logger}
}

// Refresh marks fully paid cycles among cycleIDs as paid.
// Returns the ids whose status changed.
func (s *CycleStatusSync) Refresh(ctx context.Context, cycles rental.RentCycleRepository, payments rental.PaymentRepository, cycleIDs []uuid.UUID) ([]uuid.UUID, error) {
	if len(cycleIDs) == 0 {
		return nil, nil
	}

	paid, err := payments.SumVerifiedByCycles(ctx, cycleIDs)
	if err != nil {
		return nil, err
	}

	var closed []uuid.UUID
	for _, id := range cycleIDs {
		cycle, err := cycles.FindByID(ctx, id)
		if err != nil {
			return nil, err
		}
		if cycle == nil || !cycle.IsOpen() {
			continue
		}
		if cycle.PendingGiven(paid[id]).IsPositive() {
			continue
		}
		if err := cycle.MarkPaid(); err != nil {
			return nil, err
		}
		if err := cycles.Save(ctx, cycle); err != nil {
			return nil, err
		}
		s.logger.Debug("Rent cycle settled",
			zap.String("rent_cycle_id", id.String()),
			zap.String("period", cycle.Period.String()))
		closed = append(closed, id)
	}
	return closed, nil
}
