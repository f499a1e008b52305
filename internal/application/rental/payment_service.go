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
	"go.uber.org/zap"
)

// Sources of gateway payments, used in idempotency keys and metrics
const (
	SourceVerify  = "verify"
	SourceWebhook = "webhook"
)

const gatewayName = "razorpay"

// PaymentService records rent payments from admins, checkout and webhooks.
// Every path ends in the same AllocationEngine call inside one transaction.
type PaymentService struct {
	scope          TransactionScope
	engine         *AllocationEngine
	gateway        rental.Gateway
	tenantRepo     rental.TenantRepository
	cycleRepo      rental.RentCycleRepository
	idempotency    shared.IdempotencyStore
	idempotencyCfg shared.IdempotencyConfig
	metrics        PaymentMetrics
	logger         *zap.Logger
	now            func() time.Time
}

// PaymentServiceConfig holds the collaborators of PaymentService
type PaymentServiceConfig struct {
	Scope             TransactionScope
	Engine            *AllocationEngine
	Gateway           rental.Gateway
	TenantRepo        rental.TenantRepository
	CycleRepo         rental.RentCycleRepository
	Idempotency       shared.IdempotencyStore
	IdempotencyConfig shared.IdempotencyConfig
	Metrics           PaymentMetrics
	Logger            *zap.Logger
}

// NewPaymentService creates a new PaymentService
func NewPaymentService(config PaymentServiceConfig) *PaymentService {
	logger := config.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	metrics := config.Metrics
	if metrics == nil {
		metrics = noopMetrics{}
	}
	return &PaymentService{
		scope:          config.Scope,
		engine:         config.Engine,
		gateway:        config.Gateway,
		tenantRepo:     config.TenantRepo,
		cycleRepo:      config.CycleRepo,
		idempotency:    config.Idempotency,
		idempotencyCfg: config.IdempotencyConfig,
		metrics:        metrics,
		logger:         logger,
		now:            time.Now,
	}
}

// MarkPayment records a cash, bank transfer or manual UPI payment
func (s *PaymentService) MarkPayment(ctx context.Context, cmd MarkPaymentCommand) (*PaymentOutcome, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "payment", "mark_payment")
	defer span.End()
	telemetry.SetAttributes(span,
		telemetry.SpanAttrTenantID, cmd.TenantID.String(),
		telemetry.SpanAttrAmount, cmd.Amount.String(),
		telemetry.SpanAttrPaymentMode, string(cmd.Mode),
	)

	if !cmd.Mode.IsManual() {
		telemetry.RecordError(span, rental.ErrInvalidPaymentMode)
		return nil, rental.ErrInvalidPaymentMode.WithMessage("Payment mode must be CASH, BANK_TRANSFER or UPI_MANUAL")
	}
	if cmd.AdminID == uuid.Nil {
		return nil, shared.ErrUnauthorized
	}

	adminID := cmd.AdminID
	req := rental.AllocationRequest{
		TenantID:      cmd.TenantID,
		Amount:        cmd.Amount,
		TargetCycleID: cmd.RentCycleID,
		Mode:          cmd.Mode,
		PaymentDate:   cmd.PaymentDate,
		Notes:         cmd.Notes,
		RecordedBy:    &adminID,
	}
	if err := req.Validate(); err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	result, err := s.allocate(ctx, req)
	if err != nil {
		telemetry.RecordError(span, err)
		s.logger.Error("Failed to mark payment",
			zap.String("tenant_id", cmd.TenantID.String()),
			zap.String("admin_id", cmd.AdminID.String()),
			zap.Error(err))
		return nil, err
	}

	telemetry.SetAttributes(span, telemetry.SpanAttrPaymentsCreated, result.PaymentsCreated())
	telemetry.SetOK(span)
	return &PaymentOutcome{Result: result}, nil
}

// CreateOrder opens a checkout order for the tenant signed in as cmd.UserID
func (s *PaymentService) CreateOrder(ctx context.Context, cmd CreateOrderCommand) (*CheckoutOrder, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "payment", "create_order")
	defer span.End()

	if s.gateway == nil {
		return nil, rental.ErrGatewayNotConfigured
	}
	if !cmd.Amount.IsPositive() {
		return nil, rental.ErrInvalidAmount
	}
	if !rental.IsWholePaise(cmd.Amount) {
		return nil, rental.ErrInvalidAmount.WithMessage("Amount cannot be finer than one paisa")
	}

	tenant, err := s.resolveTenantByUser(ctx, cmd.UserID)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	if !tenant.IsActive {
		return nil, rental.ErrTenantInactive
	}

	notes := map[string]string{
		rental.NoteUserID:   cmd.UserID.String(),
		rental.NoteTenantID: tenant.ID.String(),
	}
	receipt := fmt.Sprintf("multi_%d", s.now().Unix())
	if cmd.RentCycleID != nil && *cmd.RentCycleID != uuid.Nil {
		cycle, err := s.cycleRepo.FindByID(ctx, *cmd.RentCycleID)
		if err != nil {
			return nil, fmt.Errorf("failed to load rent cycle: %w", err)
		}
		if cycle == nil {
			return nil, rental.ErrCycleNotFound
		}
		if !cycle.BelongsTo(tenant.ID) {
			return nil, rental.ErrCycleTenantMismatch
		}
		notes[rental.NoteRentCycleID] = cycle.ID.String()
		receipt = receiptForCycle(cycle.ID)
	}

	order, err := s.gateway.CreateOrder(ctx, rental.OrderRequest{
		Amount:   cmd.Amount,
		Currency: rental.DefaultCurrency,
		Receipt:  receipt,
		Notes:    notes,
	})
	if err != nil {
		telemetry.RecordError(span, err)
		s.logger.Error("Failed to create gateway order",
			zap.String("tenant_id", tenant.ID.String()),
			zap.Error(err))
		return nil, err
	}

	telemetry.SetAttributes(span,
		telemetry.SpanAttrTenantID, tenant.ID.String(),
		telemetry.SpanAttrGatewayOrderID, order.ID,
	)
	telemetry.SetOK(span)
	return &CheckoutOrder{
		OrderID:  order.ID,
		Amount:   order.Amount,
		Currency: order.Currency,
		Receipt:  order.Receipt,
		KeyID:    s.gateway.KeyID(),
	}, nil
}

// receiptForCycle keeps receipts within the gateway's 40 character limit
func receiptForCycle(id uuid.UUID) string {
	s := "rc_" + id.String()
	if len(s) > 40 {
		s = s[:40]
	}
	return s
}

// VerifyPayment authenticates a checkout result and records it
func (s *PaymentService) VerifyPayment(ctx context.Context, cmd VerifyPaymentCommand) (*PaymentOutcome, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "payment", "verify_payment")
	defer span.End()
	telemetry.SetAttributes(span,
		telemetry.SpanAttrGatewayOrderID, cmd.OrderID,
		telemetry.SpanAttrGatewayPaymentID, cmd.PaymentID,
	)

	if s.gateway == nil {
		return nil, rental.ErrGatewayNotConfigured
	}
	if cmd.OrderID == "" || cmd.PaymentID == "" || cmd.Signature == "" {
		return nil, shared.ErrInvalidInput.WithMessage("order_id, payment_id and signature are required")
	}

	if err := s.gateway.VerifyPaymentSignature(cmd.OrderID, cmd.PaymentID, cmd.Signature); err != nil {
		s.metrics.RecordSignatureRejected(ctx, SourceVerify)
		s.logger.Warn("Payment signature rejected",
			zap.String("gateway_order_id", cmd.OrderID),
			zap.String("gateway_payment_id", cmd.PaymentID),
			zap.String("user_id", cmd.UserID.String()))
		telemetry.RecordError(span, err)
		return nil, rental.ErrInvalidSignature
	}

	tenant, err := s.resolveTenantByUser(ctx, cmd.UserID)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	order, err := s.gateway.FetchOrder(ctx, cmd.OrderID)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, fmt.Errorf("failed to fetch gateway order: %w", err)
	}
	target, err := orderTarget(order, tenant, cmd.UserID, cmd.RentCycleID)
	if err != nil {
		s.logger.Warn("Gateway order does not belong to caller",
			zap.String("gateway_order_id", cmd.OrderID),
			zap.String("gateway_payment_id", cmd.PaymentID),
			zap.String("user_id", cmd.UserID.String()),
			zap.String("tenant_id", tenant.ID.String()))
		telemetry.RecordError(span, err)
		return nil, err
	}
	amount := cmd.Amount
	if amount.IsZero() {
		amount = order.Amount
	}
	if !amount.Equal(order.Amount) {
		s.logger.Warn("Verified amount does not match gateway order",
			zap.String("gateway_order_id", cmd.OrderID),
			zap.String("claimed", amount.String()),
			zap.String("order_amount", order.Amount.String()))
		return nil, rental.ErrInvalidAmount.WithMessage("Amount does not match the gateway order")
	}

	outcome, err := s.recordGatewayPayment(ctx, SourceVerify, rental.AllocationRequest{
		TenantID:      tenant.ID,
		Amount:        amount,
		TargetCycleID: target,
		Mode:          rental.PaymentModeOnlineGateway,
		PaymentDate:   s.now(),
		Gateway: &rental.GatewayReference{
			OrderID:   cmd.OrderID,
			PaymentID: cmd.PaymentID,
			Signature: cmd.Signature,
		},
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	telemetry.SetAttributes(span, telemetry.SpanAttrPaymentsCreated, outcome.PaymentsCreated())
	telemetry.SetOK(span)
	return outcome, nil
}

// orderTarget checks that order was opened by the caller and returns the
// rent cycle the payment is for. A cycle named in the order notes wins
// over the client's claim, and the two must agree when both are set.
func orderTarget(order *rental.Order, tenant *rental.Tenant, userID uuid.UUID, claimed *uuid.UUID) (*uuid.UUID, error) {
	if noted := order.Notes[rental.NoteTenantID]; noted != "" {
		if noted != tenant.ID.String() {
			return nil, rental.ErrOrderNotOwned
		}
	} else if order.Notes[rental.NoteUserID] != userID.String() {
		return nil, rental.ErrOrderNotOwned
	}

	id, err := uuid.Parse(order.Notes[rental.NoteRentCycleID])
	if err != nil {
		return claimed, nil
	}
	if claimed != nil && *claimed != uuid.Nil && *claimed != id {
		return nil, rental.ErrOrderNotOwned.WithMessage("Rent cycle does not match the gateway order")
	}
	return &id, nil
}

// HandleWebhook authenticates a raw webhook body and records captured payments.
// Events that are not payment.captured, or whose tenant cannot be resolved,
// are acknowledged as ignored.
func (s *PaymentService) HandleWebhook(ctx context.Context, body []byte, signature string) (*PaymentOutcome, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "payment", "handle_webhook")
	defer span.End()

	if s.gateway == nil {
		return nil, rental.ErrGatewayNotConfigured
	}
	if err := s.gateway.VerifyWebhookSignature(body, signature); err != nil {
		s.metrics.RecordSignatureRejected(ctx, SourceWebhook)
		s.logger.Warn("Webhook signature rejected", zap.Error(err))
		telemetry.RecordError(span, err)
		return nil, rental.ErrInvalidSignature
	}

	event, err := s.gateway.ParseWebhookEvent(body)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, shared.ErrInvalidInput.WithMessage(err.Error())
	}
	telemetry.SetAttributes(span,
		telemetry.SpanAttrGatewayOrderID, event.OrderID,
		telemetry.SpanAttrGatewayPaymentID, event.PaymentID,
	)

	if !event.IsPaymentCaptured() {
		s.logger.Info("Skipping webhook event", zap.String("event", event.Event))
		return &PaymentOutcome{Ignored: true, Reason: "event " + event.Event + " not handled"}, nil
	}

	tenant, err := s.resolveWebhookTenant(ctx, event.Notes)
	if err != nil {
		return nil, err
	}
	if tenant == nil {
		s.logger.Error("Captured payment has no resolvable tenant",
			zap.String("gateway_payment_id", event.PaymentID),
			zap.String("gateway_order_id", event.OrderID),
			zap.Any("notes", event.Notes))
		return &PaymentOutcome{Ignored: true, Reason: "tenant not resolvable"}, nil
	}

	var target *uuid.UUID
	if raw, ok := event.Notes[rental.NoteRentCycleID]; ok && raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			s.logger.Warn("Ignoring malformed rent cycle note",
				zap.String("gateway_payment_id", event.PaymentID),
				zap.String("rent_cycle_id", raw))
		} else {
			target = &id
		}
	}

	outcome, err := s.recordGatewayPayment(ctx, SourceWebhook, rental.AllocationRequest{
		TenantID:      tenant.ID,
		Amount:        event.Amount,
		TargetCycleID: target,
		Mode:          rental.PaymentModeOnlineGateway,
		PaymentDate:   s.now(),
		Gateway: &rental.GatewayReference{
			OrderID:   event.OrderID,
			PaymentID: event.PaymentID,
		},
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	telemetry.SetOK(span)
	return outcome, nil
}

// recordGatewayPayment allocates a gateway payment at most once per gateway payment id.
// The store claim only marks work in flight. A request that finds the key
// taken still goes through the ledger check under the tenant lock, which
// waits for the claim holder to commit or roll back.
func (s *PaymentService) recordGatewayPayment(ctx context.Context, source string, req rental.AllocationRequest) (*PaymentOutcome, error) {
	key := fmt.Sprintf("payment:%s:%s", gatewayName, req.Gateway.PaymentID)

	claimed := false
	if s.idempotency != nil && s.idempotencyCfg.Enabled {
		fresh, err := s.idempotency.MarkProcessed(ctx, key, s.idempotencyCfg.TTL)
		switch {
		case err != nil:
			s.logger.Warn("Idempotency store unavailable", zap.String("idempotency_key", key), zap.Error(err))
		case !fresh:
			s.logger.Debug("Gateway payment claimed elsewhere, deferring to ledger",
				zap.String("idempotency_key", key),
				zap.String("source", source))
		default:
			claimed = true
		}
	}

	result, err := s.allocate(ctx, req)
	if errors.Is(err, rental.ErrDuplicatePayment) {
		s.metrics.RecordReplay(ctx, source)
		s.logger.Info("Gateway payment already recorded",
			zap.String("gateway_payment_id", req.Gateway.PaymentID),
			zap.String("source", source))
		return &PaymentOutcome{Replayed: true, Reason: "already recorded"}, nil
	}
	if err != nil {
		if claimed {
			if releaseErr := s.idempotency.Release(context.WithoutCancel(ctx), key); releaseErr != nil {
				s.logger.Warn("Failed to release idempotency key", zap.String("idempotency_key", key), zap.Error(releaseErr))
			}
		}
		s.logger.Error("Failed to record gateway payment",
			zap.String("gateway_payment_id", req.Gateway.PaymentID),
			zap.String("source", source),
			zap.Error(err))
		return nil, err
	}
	return &PaymentOutcome{Result: result}, nil
}

func (s *PaymentService) allocate(ctx context.Context, req rental.AllocationRequest) (*rental.AllocationResult, error) {
	var result *rental.AllocationResult
	err := s.scope.Execute(ctx, req.TenantID, func(repos TransactionalRepositories) error {
		var err error
		result, err = s.engine.Allocate(ctx, repos, req)
		return err
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (s *PaymentService) resolveTenantByUser(ctx context.Context, userID uuid.UUID) (*rental.Tenant, error) {
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

// resolveWebhookTenant reads the tenant from order notes, by tenant id first and user id second.
// Returns (nil, nil) when neither note identifies a tenant.
func (s *PaymentService) resolveWebhookTenant(ctx context.Context, notes map[string]string) (*rental.Tenant, error) {
	if id, err := uuid.Parse(notes[rental.NoteTenantID]); err == nil {
		tenant, err := s.tenantRepo.FindByID(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("failed to load tenant: %w", err)
		}
		if tenant != nil {
			return tenant, nil
		}
	}
	if id, err := uuid.Parse(notes[rental.NoteUserID]); err == nil {
		tenant, err := s.tenantRepo.FindByUserID(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("failed to load tenant: %w", err)
		}
		return tenant, nil
	}
	return nil, nil
}
