package rental

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shantivaas/rental/internal/domain/rental"
	"github.com/shantivaas/rental/internal/infrastructure/telemetry"
	"go.uber.org/zap"
)

// TenantService maintains tenancies: who rents which room, for how much, and when.
type TenantService struct {
	tenantRepo rental.TenantRepository
	location   *time.Location
	logger     *zap.Logger
	now        func() time.Time
}

// NewTenantService creates a new TenantService. Leave dates default to today in loc.
func NewTenantService(tenantRepo rental.TenantRepository, loc *time.Location, logger *zap.Logger) *TenantService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if loc == nil {
		loc = time.UTC
	}
	return &TenantService{
		tenantRepo: tenantRepo,
		location:   loc,
		logger:     logger,
		now:        time.Now,
	}
}

// Create registers a tenant. A user can hold one tenancy at a time.
func (s *TenantService) Create(ctx context.Context, cmd CreateTenantCommand) (*rental.Tenant, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "tenant", "create")
	defer span.End()

	existing, err := s.tenantRepo.FindByUserID(ctx, cmd.UserID)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, fmt.Errorf("failed to load tenant: %w", err)
	}
	if existing != nil {
		return nil, rental.ErrTenantExists
	}

	tenant, err := rental.NewTenant(cmd.UserID, cmd.RoomID, cmd.MonthlyRent, cmd.JoinDate)
	if err != nil {
		return nil, err
	}
	if err := s.tenantRepo.Create(ctx, tenant); err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	s.logger.Info("Tenant created",
		zap.String("tenant_id", tenant.ID.String()),
		zap.String("user_id", tenant.UserID.String()),
		zap.String("room_id", tenant.RoomID.String()),
	)
	return tenant, nil
}

// Get returns one tenant
func (s *TenantService) Get(ctx context.Context, id uuid.UUID) (*rental.Tenant, error) {
	tenant, err := s.tenantRepo.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load tenant: %w", err)
	}
	if tenant == nil {
		return nil, rental.ErrTenantNotFound
	}
	return tenant, nil
}

// List returns one page of tenants and the total match count
func (s *TenantService) List(ctx context.Context, filter rental.TenantFilter) ([]*rental.Tenant, int64, error) {
	filter.Pagination = filter.Pagination.Normalize()
	tenants, total, err := s.tenantRepo.List(ctx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list tenants: %w", err)
	}
	return tenants, total, nil
}

// Update changes room, rent, dates or the active flag
func (s *TenantService) Update(ctx context.Context, cmd UpdateTenantCommand) (*rental.Tenant, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "tenant", "update")
	defer span.End()

	tenant, err := s.Get(ctx, cmd.TenantID)
	if err != nil {
		return nil, err
	}
	if err := tenant.Apply(cmd.TenantChanges); err != nil {
		return nil, err
	}
	if err := s.tenantRepo.Save(ctx, tenant); err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	s.logger.Info("Tenant updated",
		zap.String("tenant_id", tenant.ID.String()),
		zap.String("monthly_rent", tenant.MonthlyRent.StringFixed(2)),
		zap.Bool("is_active", tenant.IsActive),
	)
	return tenant, nil
}

// Deactivate ends the tenancy. Existing cycles stay on the ledger and can
// still be paid; generation skips the tenant from the next run.
func (s *TenantService) Deactivate(ctx context.Context, cmd DeactivateTenantCommand) (*rental.Tenant, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "tenant", "deactivate")
	defer span.End()

	tenant, err := s.Get(ctx, cmd.TenantID)
	if err != nil {
		return nil, err
	}
	leave := cmd.LeaveDate
	if leave.IsZero() {
		now := s.now().In(s.location)
		leave = time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, s.location)
	}
	if err := tenant.Deactivate(leave); err != nil {
		return nil, err
	}
	if err := s.tenantRepo.Save(ctx, tenant); err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	s.logger.Info("Tenant deactivated",
		zap.String("tenant_id", tenant.ID.String()),
		zap.Time("leave_date", leave),
	)
	return tenant, nil
}
