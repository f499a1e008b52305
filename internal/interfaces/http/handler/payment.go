package handler

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	apprental "github.com/shantivaas/rental/internal/application/rental"
	"github.com/shantivaas/rental/internal/domain/rental"
	"github.com/shantivaas/rental/internal/domain/shared"
	"github.com/shantivaas/rental/internal/infrastructure/logger"
	"github.com/shantivaas/rental/internal/interfaces/http/dto"
	"github.com/shantivaas/rental/internal/interfaces/http/middleware"
	"go.uber.org/zap"
)

// RazorpaySignatureHeader carries the webhook body HMAC
const RazorpaySignatureHeader = "X-Razorpay-Signature"

// PaymentCommands is the payment side of the application layer
type PaymentCommands interface {
	MarkPayment(ctx context.Context, cmd apprental.MarkPaymentCommand) (*apprental.PaymentOutcome, error)
	CreateOrder(ctx context.Context, cmd apprental.CreateOrderCommand) (*apprental.CheckoutOrder, error)
	VerifyPayment(ctx context.Context, cmd apprental.VerifyPaymentCommand) (*apprental.PaymentOutcome, error)
	HandleWebhook(ctx context.Context, body []byte, signature string) (*apprental.PaymentOutcome, error)
}

// PaymentHandler handles admin payment recording and the online checkout
type PaymentHandler struct {
	BaseHandler
	payments PaymentCommands
	now      func() time.Time
}

// NewPaymentHandler creates a new PaymentHandler
func NewPaymentHandler(payments PaymentCommands) *PaymentHandler {
	return &PaymentHandler{
		payments: payments,
		now:      time.Now,
	}
}

// MarkPayment records a cash, bank transfer or manual UPI payment.
// POST /api/admin/payments/mark
func (h *PaymentHandler) MarkPayment(c *gin.Context) {
	adminID, err := getUserID(c)
	if err != nil {
		h.Unauthorized(c, "Authentication required")
		return
	}

	var req MarkPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.HandleValidationError(c, err)
		return
	}

	cmd, err := req.ToCommand(adminID, h.now())
	if err != nil {
		h.ErrorWithCode(c, dto.ErrCodeValidationFormat, "Invalid tenant_id, rent_cycle_id or payment_date")
		return
	}

	outcome, err := h.payments.MarkPayment(c.Request.Context(), cmd)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	c.JSON(http.StatusOK, PaymentResultResponse{
		Success:         true,
		Message:         "Payment recorded successfully",
		PaymentsCreated: outcome.PaymentsCreated(),
		Data:            toAllocationResponse(outcome.Result),
	})
}

// CreateOrder opens a gateway checkout order.
// POST /api/razorpay/order
func (h *PaymentHandler) CreateOrder(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		h.Unauthorized(c, "Authentication required")
		return
	}

	var req CreateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.HandleValidationError(c, err)
		return
	}
	cycleID, err := parseOptionalUUID(req.RentCycleID)
	if err != nil {
		h.ErrorWithCode(c, dto.ErrCodeValidationFormat, "Invalid rentCycleId")
		return
	}

	order, err := h.payments.CreateOrder(c.Request.Context(), apprental.CreateOrderCommand{
		UserID:      userID,
		RentCycleID: cycleID,
		Amount:      req.Amount,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}

	c.JSON(http.StatusOK, CreateOrderResponse{
		Success:  true,
		OrderID:  order.OrderID,
		Amount:   rental.ToMinorUnits(order.Amount),
		Currency: order.Currency,
		Receipt:  order.Receipt,
		KeyID:    order.KeyID,
	})
}

// VerifyPayment checks the checkout signature and records the payment.
// POST /api/razorpay/verify
func (h *PaymentHandler) VerifyPayment(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		h.Unauthorized(c, "Authentication required")
		return
	}

	var req VerifyPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.HandleValidationError(c, err)
		return
	}
	cycleID, err := parseOptionalUUID(req.RentCycleID)
	if err != nil {
		h.ErrorWithCode(c, dto.ErrCodeValidationFormat, "Invalid rentCycleId")
		return
	}

	outcome, err := h.payments.VerifyPayment(c.Request.Context(), apprental.VerifyPaymentCommand{
		UserID:      userID,
		OrderID:     req.OrderID,
		PaymentID:   req.PaymentID,
		Signature:   req.Signature,
		RentCycleID: cycleID,
		Amount:      req.Amount,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}

	if outcome.Replayed {
		c.JSON(http.StatusOK, PaymentResultResponse{
			Success:         true,
			Message:         "Payment already recorded",
			AlreadyRecorded: true,
		})
		return
	}

	created := outcome.PaymentsCreated()
	c.JSON(http.StatusOK, PaymentResultResponse{
		Success:         true,
		Message:         fmt.Sprintf("Payment allocated across %d cycle(s)", created),
		PaymentsCreated: created,
		Data:            toAllocationResponse(outcome.Result),
	})
}

// Webhook receives gateway notifications. The body is read raw because the
// signature covers its exact bytes.
// POST /api/webhooks/razorpay
func (h *PaymentHandler) Webhook(c *gin.Context) {
	log := logger.GetGinLogger(c)

	signature := c.GetHeader(RazorpaySignatureHeader)
	if signature == "" {
		h.ErrorWithCode(c, dto.ErrCodeInvalidSignature, "Missing signature")
		return
	}

	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		h.BadRequest(c, "Failed to read request body")
		return
	}

	outcome, err := h.payments.HandleWebhook(c.Request.Context(), body, signature)
	if err != nil {
		// Non-2xx makes the gateway redeliver, which replay protection absorbs
		if isClientError(err) {
			h.HandleError(c, err)
			return
		}
		log.Error("Webhook processing failed", zap.Error(err))
		h.InternalError(c, "Webhook handler failed")
		return
	}

	switch {
	case outcome.Ignored:
		log.Info("Webhook acknowledged without recording", zap.String("reason", outcome.Reason))
	case outcome.Replayed:
		log.Info("Webhook replay acknowledged")
	default:
		log.Info("Webhook payment recorded", zap.Int("payments_created", outcome.PaymentsCreated()))
	}
	c.JSON(http.StatusOK, WebhookResponse{Status: "ok"})
}

// isClientError reports whether err is the caller's fault rather than ours
func isClientError(err error) bool {
	var domainErr *shared.DomainError
	if !errors.As(err, &domainErr) {
		return false
	}
	return dto.GetHTTPStatus(dto.NormalizeErrorCode(domainErr.Code)) < http.StatusInternalServerError
}
