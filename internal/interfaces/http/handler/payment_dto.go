package handler

import (
	"strings"
	"time"

	"github.com/google/uuid"
	apprental "github.com/shantivaas/rental/internal/application/rental"
	"github.com/shantivaas/rental/internal/domain/rental"
	"github.com/shopspring/decimal"
)

// MarkPaymentRequest is the admin body for recording a manual payment.
// A null rent_cycle_id spreads the amount over open cycles oldest-first.
type MarkPaymentRequest struct {
	TenantID    string          `json:"tenant_id" binding:"required,uuid"`
	RentCycleID *string         `json:"rent_cycle_id" binding:"omitempty,uuid"`
	Amount      decimal.Decimal `json:"amount" binding:"gt=0"`
	PaymentMode string          `json:"payment_mode" binding:"required,manual_payment_mode"`
	PaymentDate string          `json:"payment_date"`
	Notes       string          `json:"notes" binding:"max=500"`
}

// ToCommand converts the request to an application command
func (r MarkPaymentRequest) ToCommand(adminID uuid.UUID, now time.Time) (apprental.MarkPaymentCommand, error) {
	tenantID, err := uuid.Parse(r.TenantID)
	if err != nil {
		return apprental.MarkPaymentCommand{}, err
	}
	cycleID, err := parseOptionalUUID(r.RentCycleID)
	if err != nil {
		return apprental.MarkPaymentCommand{}, err
	}
	paidAt, err := parsePaymentDate(r.PaymentDate, now)
	if err != nil {
		return apprental.MarkPaymentCommand{}, err
	}
	return apprental.MarkPaymentCommand{
		TenantID:    tenantID,
		RentCycleID: cycleID,
		Amount:      r.Amount,
		Mode:        rental.PaymentMode(r.PaymentMode),
		PaymentDate: paidAt,
		Notes:       strings.TrimSpace(r.Notes),
		AdminID:     adminID,
	}, nil
}

// CreateOrderRequest opens a checkout for the signed-in tenant
type CreateOrderRequest struct {
	Amount      decimal.Decimal `json:"amount" binding:"gt=0"`
	RentCycleID *string         `json:"rentCycleId" binding:"omitempty,uuid"`
}

// CreateOrderResponse is what the checkout widget is opened with.
// Amount is in paise.
type CreateOrderResponse struct {
	Success  bool   `json:"success"`
	OrderID  string `json:"orderId"`
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
	Receipt  string `json:"receipt,omitempty"`
	KeyID    string `json:"keyId"`
}

// VerifyPaymentRequest carries the checkout widget's success callback
type VerifyPaymentRequest struct {
	OrderID     string          `json:"razorpay_order_id" binding:"required"`
	PaymentID   string          `json:"razorpay_payment_id" binding:"required"`
	Signature   string          `json:"razorpay_signature" binding:"required"`
	RentCycleID *string         `json:"rentCycleId" binding:"omitempty,uuid"`
	Amount      decimal.Decimal `json:"amount" binding:"gte=0"`
}

// PaymentResultResponse reports a recorded payment
type PaymentResultResponse struct {
	Success         bool                `json:"success"`
	Message         string              `json:"message"`
	PaymentsCreated int                 `json:"paymentsCreated"`
	AlreadyRecorded bool                `json:"already_recorded,omitempty"`
	Data            *AllocationResponse `json:"data,omitempty"`
}

// AllocationResponse lists the ledger rows one payment produced
type AllocationResponse struct {
	Total          decimal.Decimal          `json:"total"`
	Allocations    []AllocationLineResponse `json:"allocations"`
	AdvanceCycleID *string                  `json:"advance_cycle_id,omitempty"`
}

// AllocationLineResponse is one (cycle, amount) pair
type AllocationLineResponse struct {
	RentCycleID string          `json:"rent_cycle_id"`
	Month       int             `json:"month"`
	Year        int             `json:"year"`
	Amount      decimal.Decimal `json:"amount"`
	Advance     bool            `json:"advance"`
}

// WebhookResponse is the acknowledgement body the gateway expects
type WebhookResponse struct {
	Status string `json:"status"`
}

// PaymentResponse is a ledger entry in list responses
type PaymentResponse struct {
	ID               string          `json:"id"`
	TenantID         string          `json:"tenant_id"`
	RentCycleID      string          `json:"rent_cycle_id"`
	Amount           decimal.Decimal `json:"amount"`
	PaymentMode      string          `json:"payment_mode"`
	PaymentDate      time.Time       `json:"payment_date"`
	IsVerified       bool            `json:"is_verified"`
	GatewayOrderID   string          `json:"gateway_order_id,omitempty"`
	GatewayPaymentID string          `json:"gateway_payment_id,omitempty"`
	Notes            string          `json:"notes,omitempty"`
	CreatedAt        time.Time       `json:"created_at"`
}

// ListPaymentsQuery filters the admin ledger listing
type ListPaymentsQuery struct {
	TenantID    string `form:"tenant_id" binding:"omitempty,uuid"`
	PaymentMode string `form:"payment_mode" binding:"omitempty,oneof=CASH BANK_TRANSFER UPI_MANUAL ONLINE_GATEWAY"`
	From        string `form:"from"`
	To          string `form:"to"`
	Page        int    `form:"page" binding:"omitempty,min=1"`
	PageSize    int    `form:"page_size" binding:"omitempty,min=1,max=200"`
	SortBy      string `form:"sort_by" binding:"omitempty,oneof=payment_date created_at amount payment_mode"`
	SortDir     string `form:"sort_dir" binding:"omitempty,oneof=asc desc"`
}

// ToFilter converts the query to a repository filter
func (q ListPaymentsQuery) ToFilter() (rental.PaymentFilter, error) {
	filter := rental.PaymentFilter{}
	filter.Page = q.Page
	filter.PageSize = q.PageSize
	filter.Pagination = filter.Pagination.Normalize()
	filter.SortBy = q.SortBy
	filter.SortDir = q.SortDir

	if q.TenantID != "" {
		id, err := uuid.Parse(q.TenantID)
		if err != nil {
			return filter, err
		}
		filter.TenantID = &id
	}
	if q.PaymentMode != "" {
		mode := rental.PaymentMode(q.PaymentMode)
		filter.Mode = &mode
	}
	if q.From != "" {
		from, err := parseDate(q.From)
		if err != nil {
			return filter, err
		}
		filter.From = &from
	}
	if q.To != "" {
		to, err := parseDate(q.To)
		if err != nil {
			return filter, err
		}
		filter.To = &to
	}
	return filter, nil
}

func toAllocationResponse(result *rental.AllocationResult) *AllocationResponse {
	if result == nil {
		return nil
	}
	resp := &AllocationResponse{
		Total:       result.Total(),
		Allocations: make([]AllocationLineResponse, 0, len(result.Lines)),
	}
	for _, line := range result.Lines {
		resp.Allocations = append(resp.Allocations, AllocationLineResponse{
			RentCycleID: line.CycleID.String(),
			Month:       line.Period.Month,
			Year:        line.Period.Year,
			Amount:      line.Amount,
			Advance:     line.Advance,
		})
	}
	if result.AdvanceCycleID != nil {
		id := result.AdvanceCycleID.String()
		resp.AdvanceCycleID = &id
	}
	return resp
}

func toPaymentResponse(p *rental.Payment) PaymentResponse {
	resp := PaymentResponse{
		ID:          p.ID.String(),
		TenantID:    p.TenantID.String(),
		RentCycleID: p.RentCycleID.String(),
		Amount:      p.Amount,
		PaymentMode: p.Mode.String(),
		PaymentDate: p.PaymentDate,
		IsVerified:  p.IsVerified,
		Notes:       p.Notes,
		CreatedAt:   p.CreatedAt,
	}
	if p.Gateway != nil {
		resp.GatewayOrderID = p.Gateway.OrderID
		resp.GatewayPaymentID = p.Gateway.PaymentID
	}
	return resp
}

func toPaymentResponses(payments []*rental.Payment) []PaymentResponse {
	out := make([]PaymentResponse, 0, len(payments))
	for _, p := range payments {
		out = append(out, toPaymentResponse(p))
	}
	return out
}

func parseOptionalUUID(raw *string) (*uuid.UUID, error) {
	if raw == nil || strings.TrimSpace(*raw) == "" {
		return nil, nil
	}
	id, err := uuid.Parse(*raw)
	if err != nil {
		return nil, err
	}
	return &id, nil
}

// parsePaymentDate accepts a calendar date or an RFC 3339 timestamp.
// An empty value means now.
func parsePaymentDate(raw string, now time.Time) (time.Time, error) {
	if strings.TrimSpace(raw) == "" {
		return now, nil
	}
	return parseDate(raw)
}

func parseDate(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if t, err := time.Parse(time.DateOnly, raw); err == nil {
		return t, nil
	}
	return time.Parse(time.RFC3339, raw)
}
