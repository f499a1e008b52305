package rental

import "github.com/shantivaas/rental/internal/domain/shared"

// Rental domain errors
var (
	ErrTenantNotFound      = shared.NewDomainError("TENANT_NOT_FOUND", "Tenant not found")
	ErrTenantInactive      = shared.NewDomainError("TENANT_INACTIVE", "Tenant is not active")
	ErrTenantExists        = shared.NewDomainError("TENANT_ALREADY_EXISTS", "User is already registered as a tenant")
	ErrInvalidTenant       = shared.NewDomainError("INVALID_TENANT", "Tenant details are not valid")
	ErrCycleNotFound       = shared.NewDomainError("RENT_CYCLE_NOT_FOUND", "Rent cycle not found")
	ErrCycleTenantMismatch = shared.NewDomainError("RENT_CYCLE_TENANT_MISMATCH", "Rent cycle does not belong to this tenant")
	ErrInvalidAmount       = shared.NewDomainError("INVALID_AMOUNT", "Amount must be greater than zero")
	ErrInvalidPaymentMode  = shared.NewDomainError("INVALID_PAYMENT_MODE", "Payment mode is not valid")
	ErrInvalidPeriod       = shared.NewDomainError("INVALID_PERIOD", "Billing period is not valid")
	ErrInvalidSignature    = shared.NewDomainError("INVALID_SIGNATURE", "Invalid payment signature")
	ErrOrderNotOwned       = shared.NewDomainError("GATEWAY_ORDER_NOT_OWNED", "Gateway order belongs to another tenant")
	ErrDuplicatePayment    = shared.NewDomainError("DUPLICATE_GATEWAY_PAYMENT", "Gateway payment already recorded")
	ErrPendingLookupFailed = shared.NewDomainError("PENDING_LOOKUP_FAILED", "Could not load pending rent cycles")
)
