package dto

import "net/http"

// Error code constants organized by category
// Format: ERR_<CATEGORY>_<DESCRIPTION>

// General error codes
const (
	ErrCodeUnknown  = "ERR_UNKNOWN"
	ErrCodeInternal = "ERR_INTERNAL"
)

// Validation error codes
const (
	ErrCodeValidation         = "ERR_VALIDATION"
	ErrCodeValidationRequired = "ERR_VALIDATION_REQUIRED"
	ErrCodeValidationFormat   = "ERR_VALIDATION_FORMAT"
	ErrCodeValidationRange    = "ERR_VALIDATION_RANGE"
)

// Authentication error codes
const (
	ErrCodeUnauthorized = "ERR_UNAUTHORIZED"
	ErrCodeForbidden    = "ERR_FORBIDDEN"
	ErrCodeTokenExpired = "ERR_TOKEN_EXPIRED"
	ErrCodeTokenInvalid = "ERR_TOKEN_INVALID"
)

// Resource error codes
const (
	ErrCodeNotFound            = "ERR_NOT_FOUND"
	ErrCodeAlreadyExists       = "ERR_ALREADY_EXISTS"
	ErrCodeConflict            = "ERR_CONFLICT"
	ErrCodeConcurrencyConflict = "ERR_CONCURRENCY_CONFLICT"
)

// Business rule error codes
const (
	ErrCodeInvalidState = "ERR_INVALID_STATE"
	ErrCodeBusinessRule = "ERR_BUSINESS_RULE"
)

// Input error codes
const (
	ErrCodeBadRequest   = "ERR_BAD_REQUEST"
	ErrCodeInvalidInput = "ERR_INVALID_INPUT"
	ErrCodeInvalidJSON  = "ERR_INVALID_JSON"
)

// Rate limiting error codes
const (
	ErrCodeRateLimited = "ERR_RATE_LIMITED"
)

// Rent ledger error codes
const (
	ErrCodeTenantNotFound          = "ERR_TENANT_NOT_FOUND"
	ErrCodeTenantInactive          = "ERR_TENANT_INACTIVE"
	ErrCodeTenantExists            = "ERR_TENANT_ALREADY_EXISTS"
	ErrCodeRentCycleNotFound       = "ERR_RENT_CYCLE_NOT_FOUND"
	ErrCodeRentCycleTenantMismatch = "ERR_RENT_CYCLE_TENANT_MISMATCH"
	ErrCodeInvalidAmount           = "ERR_INVALID_AMOUNT"
	ErrCodeInvalidPaymentMode      = "ERR_INVALID_PAYMENT_MODE"
	ErrCodeInvalidPeriod           = "ERR_INVALID_PERIOD"
	ErrCodeInvalidGatewayReference = "ERR_INVALID_GATEWAY_REFERENCE"
	ErrCodeDuplicatePayment        = "ERR_DUPLICATE_GATEWAY_PAYMENT"
	ErrCodePendingLookupFailed     = "ERR_PENDING_LOOKUP_FAILED"
)

// Payment gateway error codes
const (
	ErrCodeInvalidSignature      = "ERR_INVALID_SIGNATURE"
	ErrCodeGatewayOrderNotOwned  = "ERR_GATEWAY_ORDER_NOT_OWNED"
	ErrCodeInvalidWebhookPayload = "ERR_INVALID_WEBHOOK_PAYLOAD"
	ErrCodeGatewayNotConfigured  = "ERR_GATEWAY_NOT_CONFIGURED"
	ErrCodeGatewayUnavailable    = "ERR_GATEWAY_UNAVAILABLE"
	ErrCodeGatewayRejected       = "ERR_GATEWAY_REJECTED"
)

// ErrorCodeHTTPStatus maps error codes to HTTP status codes
var ErrorCodeHTTPStatus = map[string]int{
	ErrCodeUnknown:  http.StatusInternalServerError,
	ErrCodeInternal: http.StatusInternalServerError,

	ErrCodeValidation:         http.StatusBadRequest,
	ErrCodeValidationRequired: http.StatusBadRequest,
	ErrCodeValidationFormat:   http.StatusBadRequest,
	ErrCodeValidationRange:    http.StatusBadRequest,

	ErrCodeUnauthorized: http.StatusUnauthorized,
	ErrCodeForbidden:    http.StatusForbidden,
	ErrCodeTokenExpired: http.StatusUnauthorized,
	ErrCodeTokenInvalid: http.StatusUnauthorized,

	ErrCodeNotFound:            http.StatusNotFound,
	ErrCodeAlreadyExists:       http.StatusConflict,
	ErrCodeConflict:            http.StatusConflict,
	ErrCodeConcurrencyConflict: http.StatusConflict,

	ErrCodeInvalidState: http.StatusUnprocessableEntity,
	ErrCodeBusinessRule: http.StatusUnprocessableEntity,

	ErrCodeBadRequest:   http.StatusBadRequest,
	ErrCodeInvalidInput: http.StatusBadRequest,
	ErrCodeInvalidJSON:  http.StatusBadRequest,

	ErrCodeRateLimited: http.StatusTooManyRequests,

	ErrCodeTenantNotFound:          http.StatusNotFound,
	ErrCodeTenantInactive:          http.StatusUnprocessableEntity,
	ErrCodeTenantExists:            http.StatusConflict,
	ErrCodeRentCycleNotFound:       http.StatusNotFound,
	ErrCodeRentCycleTenantMismatch: http.StatusForbidden,
	ErrCodeInvalidAmount:           http.StatusBadRequest,
	ErrCodeInvalidPaymentMode:      http.StatusBadRequest,
	ErrCodeInvalidPeriod:           http.StatusBadRequest,
	ErrCodeInvalidGatewayReference: http.StatusBadRequest,
	ErrCodeDuplicatePayment:        http.StatusConflict,
	ErrCodePendingLookupFailed:     http.StatusInternalServerError,

	ErrCodeInvalidSignature:      http.StatusBadRequest,
	ErrCodeGatewayOrderNotOwned:  http.StatusForbidden,
	ErrCodeInvalidWebhookPayload: http.StatusBadRequest,
	ErrCodeGatewayNotConfigured:  http.StatusServiceUnavailable,
	ErrCodeGatewayUnavailable:    http.StatusBadGateway,
	ErrCodeGatewayRejected:       http.StatusBadGateway,
}

// GetHTTPStatus returns the HTTP status code for an error code
// Returns 500 Internal Server Error if the error code is not found
func GetHTTPStatus(code string) int {
	if status, ok := ErrorCodeHTTPStatus[code]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// DomainErrorCodeMapping maps domain error codes to API error codes
var DomainErrorCodeMapping = map[string]string{
	"NOT_FOUND":            ErrCodeNotFound,
	"ALREADY_EXISTS":       ErrCodeAlreadyExists,
	"INVALID_INPUT":        ErrCodeInvalidInput,
	"INVALID_STATE":        ErrCodeInvalidState,
	"UNAUTHORIZED":         ErrCodeUnauthorized,
	"FORBIDDEN":            ErrCodeForbidden,
	"CONCURRENCY_CONFLICT": ErrCodeConcurrencyConflict,
	"VALIDATION_ERROR":     ErrCodeValidation,
	"BAD_REQUEST":          ErrCodeBadRequest,
	"INTERNAL_ERROR":       ErrCodeInternal,

	"TENANT_NOT_FOUND":           ErrCodeTenantNotFound,
	"TENANT_INACTIVE":            ErrCodeTenantInactive,
	"TENANT_ALREADY_EXISTS":      ErrCodeTenantExists,
	"RENT_CYCLE_NOT_FOUND":       ErrCodeRentCycleNotFound,
	"RENT_CYCLE_TENANT_MISMATCH": ErrCodeRentCycleTenantMismatch,
	"INVALID_AMOUNT":             ErrCodeInvalidAmount,
	"INVALID_PAYMENT_MODE":       ErrCodeInvalidPaymentMode,
	"INVALID_PERIOD":             ErrCodeInvalidPeriod,
	"INVALID_GATEWAY_REFERENCE":  ErrCodeInvalidGatewayReference,
	"INVALID_TENANT":             ErrCodeInvalidInput,
	"INVALID_RENT_CYCLE":         ErrCodeInvalidInput,
	"INVALID_SIGNATURE":          ErrCodeInvalidSignature,
	"GATEWAY_ORDER_NOT_OWNED":    ErrCodeGatewayOrderNotOwned,
	"DUPLICATE_GATEWAY_PAYMENT":  ErrCodeDuplicatePayment,
	"PENDING_LOOKUP_FAILED":      ErrCodePendingLookupFailed,
}

// NormalizeErrorCode converts a domain error code to its API form.
// Codes already in API form pass through unchanged.
func NormalizeErrorCode(code string) string {
	if newCode, ok := DomainErrorCodeMapping[code]; ok {
		return newCode
	}
	return code
}
