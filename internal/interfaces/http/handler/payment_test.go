package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	apprental "github.com/shantivaas/rental/internal/application/rental"
	"github.com/shantivaas/rental/internal/domain/rental"
	"github.com/shantivaas/rental/internal/infrastructure/auth"
	"github.com/shantivaas/rental/internal/interfaces/http/dto"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockPaymentCommands implements PaymentCommands for testing
type MockPaymentCommands struct {
	mock.Mock
}

func (m *MockPaymentCommands) MarkPayment(ctx context.Context, cmd apprental.MarkPaymentCommand) (*apprental.PaymentOutcome, error) {
	args := m.Called(ctx, cmd)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*apprental.PaymentOutcome), args.Error(1)
}

func (m *MockPaymentCommands) CreateOrder(ctx context.Context, cmd apprental.CreateOrderCommand) (*apprental.CheckoutOrder, error) {
	args := m.Called(ctx, cmd)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*apprental.CheckoutOrder), args.Error(1)
}

func (m *MockPaymentCommands) VerifyPayment(ctx context.Context, cmd apprental.VerifyPaymentCommand) (*apprental.PaymentOutcome, error) {
	args := m.Called(ctx, cmd)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*apprental.PaymentOutcome), args.Error(1)
}

func (m *MockPaymentCommands) HandleWebhook(ctx context.Context, body []byte, signature string) (*apprental.PaymentOutcome, error) {
	args := m.Called(ctx, body, signature)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*apprental.PaymentOutcome), args.Error(1)
}

var testNow = time.Date(2026, time.March, 10, 9, 0, 0, 0, time.UTC)

func newPaymentRouter(payments PaymentCommands, userID uuid.UUID, role auth.Role) *gin.Engine {
	h := NewPaymentHandler(payments)
	h.now = func() time.Time { return testNow }

	router := gin.New()
	authed := router.Group("/api", func(c *gin.Context) {
		if userID != uuid.Nil {
			setJWTContext(c, userID, role)
		}
		c.Next()
	})
	authed.POST("/admin/payments/mark", h.MarkPayment)
	authed.POST("/razorpay/order", h.CreateOrder)
	authed.POST("/razorpay/verify", h.VerifyPayment)
	router.POST("/api/webhooks/razorpay", h.Webhook)
	return router
}

func doJSON(router http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if s, ok := body.(string); ok {
		buf.WriteString(s)
	} else if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func twoCycleResult() *rental.AllocationResult {
	feb := uuid.New()
	mar := uuid.New()
	return &rental.AllocationResult{
		Lines: []rental.AllocationLine{
			{CycleID: feb, Period: rental.BillingPeriod{Month: 2, Year: 2026}, Amount: decimal.NewFromInt(3000)},
			{CycleID: mar, Period: rental.BillingPeriod{Month: 3, Year: 2026}, Amount: decimal.NewFromInt(2000)},
		},
		Payments: []*rental.Payment{{}, {}},
	}
}

func TestMarkPayment_AutoAllocate(t *testing.T) {
	payments := new(MockPaymentCommands)
	adminID := uuid.New()
	tenantID := uuid.New()
	router := newPaymentRouter(payments, adminID, auth.RoleAdmin)

	payments.On("MarkPayment", mock.Anything, mock.MatchedBy(func(cmd apprental.MarkPaymentCommand) bool {
		return cmd.TenantID == tenantID &&
			cmd.RentCycleID == nil &&
			cmd.Amount.Equal(decimal.NewFromInt(5000)) &&
			cmd.Mode == rental.PaymentModeCash &&
			cmd.AdminID == adminID &&
			cmd.PaymentDate.Equal(time.Date(2026, time.March, 5, 0, 0, 0, 0, time.UTC)) &&
			cmd.Notes == "March rent"
	})).Return(&apprental.PaymentOutcome{Result: twoCycleResult()}, nil)

	w := doJSON(router, http.MethodPost, "/api/admin/payments/mark", map[string]any{
		"tenant_id":     tenantID.String(),
		"rent_cycle_id": nil,
		"amount":        5000,
		"payment_mode":  "CASH",
		"payment_date":  "2026-03-05",
		"notes":         "  March rent ",
	})

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var resp PaymentResultResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	assert.Equal(t, "Payment recorded successfully", resp.Message)
	assert.Equal(t, 2, resp.PaymentsCreated)
	require.NotNil(t, resp.Data)
	assert.Len(t, resp.Data.Allocations, 2)
	assert.True(t, resp.Data.Total.Equal(decimal.NewFromInt(5000)))
	assert.Equal(t, 2, resp.Data.Allocations[0].Month)
	payments.AssertExpectations(t)
}

func TestMarkPayment_TargetedWithDefaultDate(t *testing.T) {
	payments := new(MockPaymentCommands)
	cycleID := uuid.New()
	router := newPaymentRouter(payments, uuid.New(), auth.RoleAdmin)

	payments.On("MarkPayment", mock.Anything, mock.MatchedBy(func(cmd apprental.MarkPaymentCommand) bool {
		return cmd.RentCycleID != nil && *cmd.RentCycleID == cycleID &&
			cmd.PaymentDate.Equal(testNow) &&
			cmd.Amount.Equal(decimal.RequireFromString("1250.50"))
	})).Return(&apprental.PaymentOutcome{Result: &rental.AllocationResult{Payments: []*rental.Payment{{}}}}, nil)

	w := doJSON(router, http.MethodPost, "/api/admin/payments/mark", map[string]any{
		"tenant_id":     uuid.NewString(),
		"rent_cycle_id": cycleID.String(),
		"amount":        "1250.50",
		"payment_mode":  "UPI_MANUAL",
	})

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	payments.AssertExpectations(t)
}

func TestMarkPayment_Validation(t *testing.T) {
	tests := []struct {
		name      string
		body      any
		wantCode  int
		wantError string
	}{
		{
			name:      "malformed json",
			body:      `{"tenant_id":`,
			wantCode:  http.StatusBadRequest,
			wantError: dto.ErrCodeInvalidJSON,
		},
		{
			name:      "zero amount",
			body:      map[string]any{"tenant_id": uuid.NewString(), "amount": 0, "payment_mode": "CASH"},
			wantCode:  http.StatusBadRequest,
			wantError: dto.ErrCodeValidation,
		},
		{
			name:      "negative amount",
			body:      map[string]any{"tenant_id": uuid.NewString(), "amount": -10, "payment_mode": "CASH"},
			wantCode:  http.StatusBadRequest,
			wantError: dto.ErrCodeValidation,
		},
		{
			name:      "gateway mode not allowed",
			body:      map[string]any{"tenant_id": uuid.NewString(), "amount": 100, "payment_mode": "ONLINE_GATEWAY"},
			wantCode:  http.StatusBadRequest,
			wantError: dto.ErrCodeValidation,
		},
		{
			name:      "tenant id not a uuid",
			body:      map[string]any{"tenant_id": "abc", "amount": 100, "payment_mode": "CASH"},
			wantCode:  http.StatusBadRequest,
			wantError: dto.ErrCodeValidation,
		},
		{
			name:      "bad payment date",
			body:      map[string]any{"tenant_id": uuid.NewString(), "amount": 100, "payment_mode": "CASH", "payment_date": "05/03/2026"},
			wantCode:  http.StatusBadRequest,
			wantError: dto.ErrCodeValidationFormat,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			payments := new(MockPaymentCommands)
			router := newPaymentRouter(payments, uuid.New(), auth.RoleAdmin)

			w := doJSON(router, http.MethodPost, "/api/admin/payments/mark", tt.body)

			assert.Equal(t, tt.wantCode, w.Code)
			resp := decodeResponse(t, w)
			assert.Equal(t, tt.wantError, resp.Error.Code)
			payments.AssertNotCalled(t, "MarkPayment", mock.Anything, mock.Anything)
		})
	}
}

func TestMarkPayment_Unauthenticated(t *testing.T) {
	payments := new(MockPaymentCommands)
	router := newPaymentRouter(payments, uuid.Nil, "")

	w := doJSON(router, http.MethodPost, "/api/admin/payments/mark", map[string]any{
		"tenant_id": uuid.NewString(), "amount": 100, "payment_mode": "CASH",
	})

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestMarkPayment_DomainErrors(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantCode int
	}{
		{"inactive tenant", rental.ErrTenantInactive, http.StatusUnprocessableEntity},
		{"cycle of another tenant", rental.ErrCycleTenantMismatch, http.StatusForbidden},
		{"cycle missing", rental.ErrCycleNotFound, http.StatusNotFound},
		{"store failure", errors.New("connection refused"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			payments := new(MockPaymentCommands)
			router := newPaymentRouter(payments, uuid.New(), auth.RoleAdmin)
			payments.On("MarkPayment", mock.Anything, mock.Anything).Return(nil, tt.err)

			w := doJSON(router, http.MethodPost, "/api/admin/payments/mark", map[string]any{
				"tenant_id": uuid.NewString(), "amount": 100, "payment_mode": "BANK_TRANSFER",
			})

			assert.Equal(t, tt.wantCode, w.Code)
			assert.False(t, decodeResponse(t, w).Success)
		})
	}
}

func TestCreateOrder(t *testing.T) {
	payments := new(MockPaymentCommands)
	userID := uuid.New()
	cycleID := uuid.New()
	router := newPaymentRouter(payments, userID, auth.RoleTenant)

	payments.On("CreateOrder", mock.Anything, mock.MatchedBy(func(cmd apprental.CreateOrderCommand) bool {
		return cmd.UserID == userID &&
			cmd.RentCycleID != nil && *cmd.RentCycleID == cycleID &&
			cmd.Amount.Equal(decimal.RequireFromString("4999.99"))
	})).Return(&apprental.CheckoutOrder{
		OrderID:  "order_123",
		Amount:   decimal.RequireFromString("4999.99"),
		Currency: "INR",
		Receipt:  "rc_x",
		KeyID:    "rzp_test_key",
	}, nil)

	w := doJSON(router, http.MethodPost, "/api/razorpay/order", `{"amount":"4999.99","rentCycleId":"`+cycleID.String()+`"}`)

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var resp CreateOrderResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "order_123", resp.OrderID)
	assert.Equal(t, int64(499999), resp.Amount)
	assert.Equal(t, "INR", resp.Currency)
	assert.Equal(t, "rzp_test_key", resp.KeyID)
	payments.AssertExpectations(t)
}

func TestCreateOrder_GatewayErrors(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantCode int
	}{
		{"not configured", rental.ErrGatewayNotConfigured, http.StatusServiceUnavailable},
		{"unavailable", rental.ErrGatewayUnavailable, http.StatusBadGateway},
		{"no tenant profile", rental.ErrTenantNotFound, http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			payments := new(MockPaymentCommands)
			router := newPaymentRouter(payments, uuid.New(), auth.RoleTenant)
			payments.On("CreateOrder", mock.Anything, mock.Anything).Return(nil, tt.err)

			w := doJSON(router, http.MethodPost, "/api/razorpay/order", map[string]any{"amount": 100})

			assert.Equal(t, tt.wantCode, w.Code)
		})
	}
}

func verifyBody() map[string]any {
	return map[string]any{
		"razorpay_order_id":   "order_1",
		"razorpay_payment_id": "pay_1",
		"razorpay_signature":  "sig",
		"amount":              5000,
	}
}

func TestVerifyPayment_Recorded(t *testing.T) {
	payments := new(MockPaymentCommands)
	userID := uuid.New()
	router := newPaymentRouter(payments, userID, auth.RoleTenant)

	payments.On("VerifyPayment", mock.Anything, mock.MatchedBy(func(cmd apprental.VerifyPaymentCommand) bool {
		return cmd.UserID == userID && cmd.OrderID == "order_1" && cmd.PaymentID == "pay_1" &&
			cmd.Signature == "sig" && cmd.RentCycleID == nil && cmd.Amount.Equal(decimal.NewFromInt(5000))
	})).Return(&apprental.PaymentOutcome{Result: twoCycleResult()}, nil)

	w := doJSON(router, http.MethodPost, "/api/razorpay/verify", verifyBody())

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var resp PaymentResultResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	assert.Equal(t, "Payment allocated across 2 cycle(s)", resp.Message)
	assert.False(t, resp.AlreadyRecorded)
	payments.AssertExpectations(t)
}

func TestVerifyPayment_Replay(t *testing.T) {
	payments := new(MockPaymentCommands)
	router := newPaymentRouter(payments, uuid.New(), auth.RoleTenant)
	payments.On("VerifyPayment", mock.Anything, mock.Anything).Return(&apprental.PaymentOutcome{Replayed: true}, nil)

	w := doJSON(router, http.MethodPost, "/api/razorpay/verify", verifyBody())

	require.Equal(t, http.StatusOK, w.Code)
	var resp PaymentResultResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	assert.True(t, resp.AlreadyRecorded)
	assert.Equal(t, "Payment already recorded", resp.Message)
	assert.Zero(t, resp.PaymentsCreated)
}

func TestVerifyPayment_InvalidSignature(t *testing.T) {
	payments := new(MockPaymentCommands)
	router := newPaymentRouter(payments, uuid.New(), auth.RoleTenant)
	payments.On("VerifyPayment", mock.Anything, mock.Anything).Return(nil, rental.ErrInvalidSignature)

	w := doJSON(router, http.MethodPost, "/api/razorpay/verify", verifyBody())

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, dto.ErrCodeInvalidSignature, decodeResponse(t, w).Error.Code)
}

func TestVerifyPayment_MissingFields(t *testing.T) {
	payments := new(MockPaymentCommands)
	router := newPaymentRouter(payments, uuid.New(), auth.RoleTenant)
	body := verifyBody()
	delete(body, "razorpay_signature")

	w := doJSON(router, http.MethodPost, "/api/razorpay/verify", body)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	payments.AssertNotCalled(t, "VerifyPayment", mock.Anything, mock.Anything)
}

func postWebhook(router http.Handler, body, signature string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/api/webhooks/razorpay", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	if signature != "" {
		req.Header.Set(RazorpaySignatureHeader, signature)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestWebhook(t *testing.T) {
	const body = `{"event":"payment.captured","payload":{}}`

	tests := []struct {
		name       string
		outcome    *apprental.PaymentOutcome
		err        error
		wantStatus int
	}{
		{"recorded", &apprental.PaymentOutcome{Result: twoCycleResult()}, nil, http.StatusOK},
		{"replay", &apprental.PaymentOutcome{Replayed: true}, nil, http.StatusOK},
		{"ignored event", &apprental.PaymentOutcome{Ignored: true, Reason: "event order.paid not handled"}, nil, http.StatusOK},
		{"bad signature", nil, rental.ErrInvalidSignature, http.StatusBadRequest},
		{"store failure", nil, errors.New("deadlock detected"), http.StatusInternalServerError},
		{"lookup failure", nil, rental.ErrPendingLookupFailed, http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			payments := new(MockPaymentCommands)
			router := newPaymentRouter(payments, uuid.Nil, "")
			if tt.outcome != nil {
				payments.On("HandleWebhook", mock.Anything, []byte(body), "sig-abc").Return(tt.outcome, nil)
			} else {
				payments.On("HandleWebhook", mock.Anything, []byte(body), "sig-abc").Return(nil, tt.err)
			}

			w := postWebhook(router, body, "sig-abc")

			assert.Equal(t, tt.wantStatus, w.Code)
			if tt.wantStatus == http.StatusOK {
				assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())
			}
			payments.AssertExpectations(t)
		})
	}
}

func TestWebhook_MissingSignature(t *testing.T) {
	payments := new(MockPaymentCommands)
	router := newPaymentRouter(payments, uuid.Nil, "")

	w := postWebhook(router, `{"event":"payment.captured"}`, "")

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, dto.ErrCodeInvalidSignature, decodeResponse(t, w).Error.Code)
	payments.AssertNotCalled(t, "HandleWebhook", mock.Anything, mock.Anything, mock.Anything)
}
