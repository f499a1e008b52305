package rental

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shantivaas/rental/internal/domain/rental"
	"github.com/shantivaas/rental/internal/domain/shared/strategy"
	"github.com/shantivaas/rental/internal/infrastructure/telemetry"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/text/language"
)

// Allocation mode labels used in logs, spans and metrics
const (
	AllocationModeTargeted = "targeted"
	AllocationModeAuto     = "auto"
)

// AllocationEngine turns one tendered amount into payment ledger rows.
// It runs inside a TransactionScope; callers own the transaction.
type AllocationEngine struct {
	strategy strategy.PaymentAllocationStrategy
	policy   CyclePolicy
	notes    NoteFormatter
	sync     *CycleStatusSync
	logger   *zap.Logger
	metrics  PaymentMetrics
	now      func() time.Time
}

// EngineOption configures an AllocationEngine
type EngineOption func(*AllocationEngine)

// WithCyclePolicy sets the terms used for advance cycles
func WithCyclePolicy(policy CyclePolicy) EngineOption {
	return func(e *AllocationEngine) { e.policy = policy }
}

// WithNoteFormatter sets the default note renderer
func WithNoteFormatter(f NoteFormatter) EngineOption {
	return func(e *AllocationEngine) { e.notes = f }
}

// WithEngineMetrics sets the metrics sink
func WithEngineMetrics(m PaymentMetrics) EngineOption {
	return func(e *AllocationEngine) {
		if m != nil {
			e.metrics = m
		}
	}
}

// WithClock overrides the time source
func WithClock(now func() time.Time) EngineOption {
	return func(e *AllocationEngine) { e.now = now }
}

// NewAllocationEngine creates an allocation engine
func NewAllocationEngine(s strategy.PaymentAllocationStrategy, logger *zap.Logger, opts ...EngineOption) *AllocationEngine {
	if logger == nil {
		logger = zap.NewNop()
	}
	e := &AllocationEngine{
		strategy: s,
		policy:   DefaultCyclePolicy(),
		notes:    NewNoteFormatter(language.Make("en-IN")),
		logger:   logger,
		metrics:  noopMetrics{},
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	e.sync = NewCycleStatusSync(logger)
	return e
}

// Allocate writes req to the ledger through repos.
// Gateway requests whose payment id is already recorded return ErrDuplicatePayment.
func (e *AllocationEngine) Allocate(ctx context.Context, repos TransactionalRepositories, req rental.AllocationRequest) (*rental.AllocationResult, error) {
	ctx, span := telemetry.StartSpan(ctx, "allocation.allocate",
		telemetry.WithAttribute(telemetry.SpanAttrTenantID, req.TenantID.String()),
		telemetry.WithAttribute(telemetry.SpanAttrAmount, req.Amount.String()),
		telemetry.WithAttribute(telemetry.SpanAttrStrategy, e.strategy.Name()),
	)
	defer span.End()

	result, err := e.allocate(ctx, repos, req)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	telemetry.SetAttributes(span,
		telemetry.SpanAttrAllocationMode, allocationMode(req),
		telemetry.SpanAttrPaymentsCreated, result.PaymentsCreated(),
	)
	telemetry.SetOK(span)
	return result, nil
}

func allocationMode(req rental.AllocationRequest) string {
	if req.IsTargeted() {
		return AllocationModeTargeted
	}
	return AllocationModeAuto
}

func (e *AllocationEngine) allocate(ctx context.Context, repos TransactionalRepositories, req rental.AllocationRequest) (*rental.AllocationResult, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	tenant := repos.Tenant()
	if tenant == nil || tenant.ID != req.TenantID {
		return nil, rental.ErrTenantNotFound
	}

	if req.Gateway != nil {
		exists, err := repos.PaymentRepo().ExistsByGatewayPaymentID(ctx, req.Gateway.PaymentID)
		if err != nil {
			return nil, fmt.Errorf("failed to check gateway payment: %w", err)
		}
		if exists {
			return nil, rental.ErrDuplicatePayment
		}
	}

	var (
		result *rental.AllocationResult
		err    error
		mode   = allocationMode(req)
	)
	if mode == AllocationModeTargeted {
		result, err = e.allocateTargeted(ctx, repos, req)
	} else {
		result, err = e.allocateAuto(ctx, repos, tenant, req)
	}
	if err != nil {
		return nil, err
	}

	if !result.Total().Equal(req.Amount) {
		return nil, fmt.Errorf("allocation wrote %s of %s", result.Total(), req.Amount)
	}

	if _, err := e.sync.Refresh(ctx, repos.CycleRepo(), repos.PaymentRepo(), result.CycleIDs()); err != nil {
		return nil, fmt.Errorf("failed to refresh cycle status: %w", err)
	}

	e.metrics.RecordAllocation(ctx, mode, result.PaymentsCreated(), req.Amount, result.HasAdvance())
	e.logger.Info("Payment allocated",
		zap.String("tenant_id", req.TenantID.String()),
		zap.String("mode", mode),
		zap.String("payment_mode", req.Mode.String()),
		zap.String("amount", req.Amount.String()),
		zap.Int("payments_created", result.PaymentsCreated()),
		zap.Bool("advance", result.HasAdvance()))
	return result, nil
}

// allocateTargeted writes the whole amount to one cycle, whatever its pending amount
func (e *AllocationEngine) allocateTargeted(ctx context.Context, repos TransactionalRepositories, req rental.AllocationRequest) (*rental.AllocationResult, error) {
	cycle, err := repos.CycleRepo().FindByID(ctx, *req.TargetCycleID)
	if err != nil {
		return nil, fmt.Errorf("failed to load rent cycle: %w", err)
	}
	if cycle == nil {
		return nil, rental.ErrCycleNotFound
	}
	if !cycle.BelongsTo(req.TenantID) {
		return nil, rental.ErrCycleTenantMismatch
	}

	result := &rental.AllocationResult{}
	if err := e.write(ctx, repos, req, result, cycle, req.Amount, req.Notes, false); err != nil {
		return nil, err
	}
	return result, nil
}

// allocateAuto pays open cycles oldest-first and carries any excess into next month
func (e *AllocationEngine) allocateAuto(ctx context.Context, repos TransactionalRepositories, tenant *rental.Tenant, req rental.AllocationRequest) (*rental.AllocationResult, error) {
	lookup := NewResilientPendingLookup(repos.PrimaryPendingLookup(), repos.FallbackPendingLookup(), e.logger, e.metrics)
	pending, err := lookup.ListPending(ctx, req.TenantID)
	if err != nil {
		return nil, err
	}

	byID := make(map[uuid.UUID]*rental.RentCycle, len(pending))
	obligations := make([]strategy.Obligation, 0, len(pending))
	for _, p := range pending {
		byID[p.Cycle.ID] = p.Cycle
		obligations = append(obligations, strategy.Obligation{
			ID:        p.Cycle.ID,
			DueDate:   p.Cycle.DueDate,
			CreatedAt: p.Cycle.CreatedAt,
			Pending:   p.Pending,
		})
	}

	plan, err := e.strategy.Allocate(ctx, strategy.AllocationContext{
		PayerID:       req.TenantID,
		PaymentAmount: req.Amount,
		PaymentDate:   req.PaymentDate,
	}, obligations)
	if err != nil {
		return nil, fmt.Errorf("%s allocation failed: %w", e.strategy.Name(), err)
	}

	result := &rental.AllocationResult{}
	for _, a := range plan.Allocations {
		cycle := byID[a.ObligationID]
		notes := req.Notes
		if notes == "" {
			notes = e.notes.MultiCycle(a.AllocatedAmount, cycle.Period)
		}
		if err := e.write(ctx, repos, req, result, cycle, a.AllocatedAmount, notes, false); err != nil {
			return nil, err
		}
	}

	if plan.Remaining.IsPositive() {
		if err := e.allocateAdvance(ctx, repos, tenant, req, plan.Remaining, result); err != nil {
			return nil, err
		}
	}
	return result, nil
}

// allocateAdvance places remaining on the cycle for the month after today
func (e *AllocationEngine) allocateAdvance(ctx context.Context, repos TransactionalRepositories, tenant *rental.Tenant, req rental.AllocationRequest, remaining decimal.Decimal, result *rental.AllocationResult) error {
	period := rental.PeriodOf(e.now().In(e.policy.location())).Next()

	amountDue := tenant.MonthlyRent
	if !amountDue.IsPositive() {
		amountDue = remaining
	}
	candidate, err := e.policy.NewCycle(tenant, period, amountDue)
	if err != nil {
		return fmt.Errorf("failed to build advance cycle: %w", err)
	}
	cycle, created, err := repos.CycleRepo().GetOrCreate(ctx, candidate)
	if err != nil {
		return fmt.Errorf("failed to create advance cycle for %s: %w", period, err)
	}
	if created {
		e.logger.Info("Advance rent cycle created",
			zap.String("tenant_id", tenant.ID.String()),
			zap.String("rent_cycle_id", cycle.ID.String()),
			zap.String("period", period.String()))
	}

	if err := e.write(ctx, repos, req, result, cycle, remaining, e.notes.Advance(req.Notes, period), true); err != nil {
		return err
	}
	id := cycle.ID
	result.AdvanceCycleID = &id
	return nil
}

func (e *AllocationEngine) write(
	ctx context.Context,
	repos TransactionalRepositories,
	req rental.AllocationRequest,
	result *rental.AllocationResult,
	cycle *rental.RentCycle,
	amount decimal.Decimal,
	notes string,
	advance bool,
) error {
	payment, err := rental.NewPayment(req.TenantID, cycle.ID, amount, req.Mode, req.PaymentDate)
	if err != nil {
		return err
	}
	payment.Notes = notes

	now := e.now()
	if req.Gateway != nil {
		if err := payment.AttachGateway(*req.Gateway); err != nil {
			return err
		}
		payment.MarkVerified(nil, now)
	} else {
		payment.ReceivedBy = req.RecordedBy
		payment.MarkVerified(req.RecordedBy, now)
	}

	if err := repos.PaymentRepo().Create(ctx, payment); err != nil {
		return err
	}

	result.Payments = append(result.Payments, payment)
	result.Lines = append(result.Lines, rental.AllocationLine{
		CycleID: cycle.ID,
		Period:  cycle.Period,
		Amount:  amount,
		Advance: advance,
	})
	return nil
}
