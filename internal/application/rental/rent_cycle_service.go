package rental

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shantivaas/rental/internal/domain/rental"
	"github.com/shantivaas/rental/internal/domain/shared"
	"github.com/shantivaas/rental/internal/infrastructure/telemetry"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// RentCycleService materialises rent cycles and serves ledger read models.
type RentCycleService struct {
	tenantRepo  rental.TenantRepository
	cycleRepo   rental.RentCycleRepository
	paymentRepo rental.PaymentRepository
	summary     rental.CollectionSummaryReader
	policy      CyclePolicy
	logger      *zap.Logger
	now         func() time.Time
}

// NewRentCycleService creates a new RentCycleService
func NewRentCycleService(
	tenantRepo rental.TenantRepository,
	cycleRepo rental.RentCycleRepository,
	paymentRepo rental.PaymentRepository,
	summary rental.CollectionSummaryReader,
	policy CyclePolicy,
	logger *zap.Logger,
) *RentCycleService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RentCycleService{
		tenantRepo:  tenantRepo,
		cycleRepo:   cycleRepo,
		paymentRepo: paymentRepo,
		summary:     summary,
		policy:      policy,
		logger:      logger,
		now:         time.Now,
	}
}

// CurrentPeriod returns the billing period containing now
func (s *RentCycleService) CurrentPeriod() rental.BillingPeriod {
	return rental.PeriodOf(s.now().In(s.policy.location()))
}

// GenerateMonthlyCycles creates the period's cycle for every active tenant.
// Running it twice for one period creates nothing the second time.
func (s *RentCycleService) GenerateMonthlyCycles(ctx context.Context, period rental.BillingPeriod) (*GenerateCyclesResult, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "rent_cycle", "generate_monthly")
	defer span.End()

	if err := period.Validate(); err != nil {
		return nil, err
	}

	tenants, err := s.tenantRepo.ListActive(ctx)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, fmt.Errorf("failed to list tenants: %w", err)
	}

	result := &GenerateCyclesResult{Period: period}
	for _, tenant := range tenants {
		if !tenant.OccupiesDuring(period) || !tenant.MonthlyRent.IsPositive() {
			result.Skipped++
			continue
		}
		cycle, err := s.policy.NewCycle(tenant, period, tenant.MonthlyRent)
		if err != nil {
			return nil, err
		}
		_, created, err := s.cycleRepo.GetOrCreate(ctx, cycle)
		if err != nil {
			telemetry.RecordError(span, err)
			return nil, fmt.Errorf("failed to create rent cycle for tenant %s: %w", tenant.ID, err)
		}
		if created {
			result.Created++
		} else {
			result.Existed++
		}
	}

	s.logger.Info("Monthly rent cycles generated",
		zap.String("period", period.String()),
		zap.Int("created", result.Created),
		zap.Int("existed", result.Existed),
		zap.Int("skipped", result.Skipped))
	telemetry.SetOK(span)
	return result, nil
}

// RefreshOverdue flags open cycles past their due date and charges late fees
func (s *RentCycleService) RefreshOverdue(ctx context.Context) (*RefreshOverdueResult, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "rent_cycle", "refresh_overdue")
	defer span.End()

	now := s.now()
	cycles, err := s.cycleRepo.ListOpenDueBefore(ctx, now)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, fmt.Errorf("failed to list open cycles: %w", err)
	}

	result := &RefreshOverdueResult{}
	for _, cycle := range cycles {
		overdue := cycle.MarkOverdue(now)
		charged := cycle.ApplyLateFee(now, s.policy.LateFee)
		if !overdue && !charged {
			continue
		}
		if err := s.cycleRepo.Save(ctx, cycle); err != nil {
			if errors.Is(err, shared.ErrConcurrencyConflict) {
				s.logger.Warn("Rent cycle changed during overdue refresh",
					zap.String("rent_cycle_id", cycle.ID.String()))
				continue
			}
			telemetry.RecordError(span, err)
			return nil, fmt.Errorf("failed to save rent cycle: %w", err)
		}
		if overdue {
			result.MarkedOverdue++
		}
		if charged {
			result.LateFeeApplied++
		}
	}

	if result.MarkedOverdue > 0 || result.LateFeeApplied > 0 {
		s.logger.Info("Overdue rent cycles refreshed",
			zap.Int("marked_overdue", result.MarkedOverdue),
			zap.Int("late_fee_applied", result.LateFeeApplied))
	}
	telemetry.SetOK(span)
	return result, nil
}

// ListTenantCycles returns the signed-in tenant's cycles with paid and pending amounts
func (s *RentCycleService) ListTenantCycles(ctx context.Context, userID uuid.UUID) ([]TenantCycleView, error) {
	tenant, err := s.tenantForUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	cycles, err := s.cycleRepo.ListByTenant(ctx, tenant.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to list rent cycles: %w", err)
	}
	ids := make([]uuid.UUID, len(cycles))
	for i, c := range cycles {
		ids[i] = c.ID
	}
	paid, err := s.paymentRepo.SumVerifiedByCycles(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to sum payments: %w", err)
	}

	views := make([]TenantCycleView, len(cycles))
	for i, c := range cycles {
		p, ok := paid[c.ID]
		if !ok {
			p = decimal.Zero
		}
		pending := c.PendingGiven(p)
		if c.Status == rental.CycleStatusWaived {
			pending = decimal.Zero
		}
		views[i] = TenantCycleView{Cycle: c, Paid: p, Pending: pending}
	}
	return views, nil
}

// ListTenantPayments returns the signed-in tenant's ledger entries
func (s *RentCycleService) ListTenantPayments(ctx context.Context, userID uuid.UUID) ([]*rental.Payment, error) {
	tenant, err := s.tenantForUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	return s.paymentRepo.ListByTenant(ctx, tenant.ID)
}

// ListPayments returns a page of the ledger for admins
func (s *RentCycleService) ListPayments(ctx context.Context, filter rental.PaymentFilter) ([]*rental.Payment, int64, error) {
	filter.Pagination = filter.Pagination.Normalize()
	return s.paymentRepo.List(ctx, filter)
}

// CollectionSummary aggregates what was expected and collected in period
func (s *RentCycleService) CollectionSummary(ctx context.Context, period rental.BillingPeriod) (*rental.CollectionSummary, error) {
	if err := period.Validate(); err != nil {
		return nil, err
	}
	return s.summary.Summarize(ctx, period)
}

func (s *RentCycleService) tenantForUser(ctx context.Context, userID uuid.UUID) (*rental.Tenant, error) {
	if userID == uuid.Nil {
		return nil, shared.ErrUnauthorized
	}
	tenant, err := s.tenantRepo.FindByUserID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load tenant: %w", err)
	}
	if tenant == nil {
		return nil, rental.ErrTenantNotFound
	}
	return tenant, nil
}
