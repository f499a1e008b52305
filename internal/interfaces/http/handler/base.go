package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shantivaas/rental/internal/domain/rental"
	"github.com/shantivaas/rental/internal/domain/shared"
	"github.com/shantivaas/rental/internal/interfaces/http/dto"
	"github.com/shantivaas/rental/internal/interfaces/http/middleware"
)

// errMissingUser is returned when a protected route runs without verified claims
var errMissingUser = errors.New("user ID not found in context")

// BaseHandler provides common handler utilities
type BaseHandler struct{}

// getRequestID extracts the request ID from the context
func getRequestID(c *gin.Context) string {
	return middleware.GetRequestID(c)
}

// getUserID extracts the caller's user ID from verified JWT claims
func getUserID(c *gin.Context) (uuid.UUID, error) {
	claims := middleware.GetJWTClaims(c)
	if claims == nil {
		return uuid.Nil, errMissingUser
	}
	return claims.GetUserUUID()
}

// Success sends a success response
func (h *BaseHandler) Success(c *gin.Context, data any) {
	c.JSON(http.StatusOK, dto.NewSuccessResponse(data))
}

// SuccessWithMeta sends a success response with pagination meta
func (h *BaseHandler) SuccessWithMeta(c *gin.Context, data any, total int64, page, pageSize int) {
	c.JSON(http.StatusOK, dto.NewSuccessResponseWithMeta(data, total, page, pageSize))
}

// Error sends an error response with the appropriate status code
func (h *BaseHandler) Error(c *gin.Context, statusCode int, code, message string) {
	c.JSON(statusCode, dto.NewErrorResponseWithRequestID(code, message, getRequestID(c)))
}

// ErrorWithCode sends an error response, deriving status code from error code
func (h *BaseHandler) ErrorWithCode(c *gin.Context, code, message string) {
	code = dto.NormalizeErrorCode(code)
	h.Error(c, dto.GetHTTPStatus(code), code, message)
}

// BadRequest sends a 400 bad request response
func (h *BaseHandler) BadRequest(c *gin.Context, message string) {
	h.Error(c, http.StatusBadRequest, dto.ErrCodeBadRequest, message)
}

// Unauthorized sends a 401 unauthorized response
func (h *BaseHandler) Unauthorized(c *gin.Context, message string) {
	h.Error(c, http.StatusUnauthorized, dto.ErrCodeUnauthorized, message)
}

// InternalError sends a 500 internal server error response
func (h *BaseHandler) InternalError(c *gin.Context, message string) {
	h.Error(c, http.StatusInternalServerError, dto.ErrCodeInternal, message)
}

// gatewayErrorCodes maps gateway sentinels to API codes, checked in order
var gatewayErrorCodes = []struct {
	err     error
	code    string
	message string
}{
	{rental.ErrSignatureMismatch, dto.ErrCodeInvalidSignature, "Invalid signature"},
	{rental.ErrInvalidWebhookPayload, dto.ErrCodeInvalidWebhookPayload, "Invalid webhook payload"},
	{rental.ErrGatewayNotConfigured, dto.ErrCodeGatewayNotConfigured, "Online payments are not configured"},
	{rental.ErrGatewayUnavailable, dto.ErrCodeGatewayUnavailable, "Payment gateway is unavailable"},
	{rental.ErrGatewayRequestFailed, dto.ErrCodeGatewayRejected, "Payment gateway rejected the request"},
	{rental.ErrGatewayInvalidResponse, dto.ErrCodeGatewayRejected, "Payment gateway returned an invalid response"},
}

// HandleError converts domain and gateway errors to HTTP responses.
// Anything unrecognised becomes a 500 without leaking the cause; the full
// error is attached to the gin context for the access log.
func (h *BaseHandler) HandleError(c *gin.Context, err error) {
	if err == nil {
		return
	}
	_ = c.Error(err)

	var domainErr *shared.DomainError
	if errors.As(err, &domainErr) {
		h.ErrorWithCode(c, domainErr.Code, domainErr.Message)
		return
	}

	for _, mapping := range gatewayErrorCodes {
		if errors.Is(err, mapping.err) {
			h.ErrorWithCode(c, mapping.code, mapping.message)
			return
		}
	}

	h.InternalError(c, "An unexpected error occurred")
}
