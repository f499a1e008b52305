package handler

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	apprental "github.com/shantivaas/rental/internal/application/rental"
	"github.com/shantivaas/rental/internal/domain/rental"
	"github.com/shantivaas/rental/internal/interfaces/http/dto"
	"github.com/shantivaas/rental/internal/interfaces/http/middleware"
	"github.com/shopspring/decimal"
)

// RentCycleQueries is the billing side of the application layer
type RentCycleQueries interface {
	CurrentPeriod() rental.BillingPeriod
	GenerateMonthlyCycles(ctx context.Context, period rental.BillingPeriod) (*apprental.GenerateCyclesResult, error)
	RefreshOverdue(ctx context.Context) (*apprental.RefreshOverdueResult, error)
	ListTenantCycles(ctx context.Context, userID uuid.UUID) ([]apprental.TenantCycleView, error)
	ListTenantPayments(ctx context.Context, userID uuid.UUID) ([]*rental.Payment, error)
	ListPayments(ctx context.Context, filter rental.PaymentFilter) ([]*rental.Payment, int64, error)
	CollectionSummary(ctx context.Context, period rental.BillingPeriod) (*rental.CollectionSummary, error)
}

// RentCycleHandler handles billing runs, ledger listings and tenant views
type RentCycleHandler struct {
	BaseHandler
	cycles RentCycleQueries
}

// NewRentCycleHandler creates a new RentCycleHandler
func NewRentCycleHandler(cycles RentCycleQueries) *RentCycleHandler {
	return &RentCycleHandler{cycles: cycles}
}

// PeriodRequest names a billing month. Zero values mean the current month.
type PeriodRequest struct {
	Month int `json:"month" form:"month" binding:"omitempty,min=1,max=12"`
	Year  int `json:"year" form:"year" binding:"omitempty,min=2000,max=2100"`
}

func (r PeriodRequest) resolve(current rental.BillingPeriod) (rental.BillingPeriod, error) {
	if r.Month == 0 && r.Year == 0 {
		return current, nil
	}
	if r.Year == 0 {
		r.Year = current.Year
	}
	return rental.NewBillingPeriod(r.Month, r.Year)
}

// GenerateCyclesResponse reports a generation run
type GenerateCyclesResponse struct {
	Month   int `json:"month"`
	Year    int `json:"year"`
	Created int `json:"created"`
	Existed int `json:"existed"`
	Skipped int `json:"skipped"`
}

// RefreshOverdueResponse reports an overdue sweep
type RefreshOverdueResponse struct {
	Updated        int `json:"updated"`
	LateFeeApplied int `json:"late_fee_applied"`
}

// CollectionSummaryResponse aggregates one month's collection
type CollectionSummaryResponse struct {
	Month          int             `json:"month"`
	Year           int             `json:"year"`
	TotalCycles    int64           `json:"total_cycles"`
	PendingCount   int64           `json:"pending_count"`
	PaidCount      int64           `json:"paid_count"`
	OverdueCount   int64           `json:"overdue_count"`
	WaivedCount    int64           `json:"waived_count"`
	TotalExpected  decimal.Decimal `json:"total_expected"`
	TotalCollected decimal.Decimal `json:"total_collected"`
	TotalPending   decimal.Decimal `json:"total_pending"`
}

// RentCycleResponse is a cycle as the tenant sees it
type RentCycleResponse struct {
	ID            string          `json:"id"`
	Month         int             `json:"month"`
	Year          int             `json:"year"`
	DueDate       time.Time       `json:"due_date"`
	AmountDue     decimal.Decimal `json:"amount_due"`
	LateFeeAmount decimal.Decimal `json:"late_fee_amount"`
	TotalDue      decimal.Decimal `json:"total_due"`
	Paid          decimal.Decimal `json:"paid"`
	Pending       decimal.Decimal `json:"pending"`
	Status        string          `json:"status"`
}

// GenerateCycles creates the month's cycles for every active tenant.
// POST /api/admin/rent-cycles/generate
func (h *RentCycleHandler) GenerateCycles(c *gin.Context) {
	var req PeriodRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			middleware.HandleValidationError(c, err)
			return
		}
	}
	period, err := req.resolve(h.cycles.CurrentPeriod())
	if err != nil {
		h.HandleError(c, err)
		return
	}

	result, err := h.cycles.GenerateMonthlyCycles(c.Request.Context(), period)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, GenerateCyclesResponse{
		Month:   result.Period.Month,
		Year:    result.Period.Year,
		Created: result.Created,
		Existed: result.Existed,
		Skipped: result.Skipped,
	})
}

// RefreshOverdue marks past-due cycles overdue and applies late fees.
// POST /api/admin/rent-cycles/refresh-overdue
func (h *RentCycleHandler) RefreshOverdue(c *gin.Context) {
	result, err := h.cycles.RefreshOverdue(c.Request.Context())
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, RefreshOverdueResponse{
		Updated:        result.MarkedOverdue,
		LateFeeApplied: result.LateFeeApplied,
	})
}

// Collections summarises a month's collection.
// GET /api/admin/collections
func (h *RentCycleHandler) Collections(c *gin.Context) {
	var req PeriodRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		middleware.HandleValidationError(c, err)
		return
	}
	period, err := req.resolve(h.cycles.CurrentPeriod())
	if err != nil {
		h.HandleError(c, err)
		return
	}

	summary, err := h.cycles.CollectionSummary(c.Request.Context(), period)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, CollectionSummaryResponse{
		Month:          summary.Period.Month,
		Year:           summary.Period.Year,
		TotalCycles:    summary.TotalCycles,
		PendingCount:   summary.PendingCount,
		PaidCount:      summary.PaidCount,
		OverdueCount:   summary.OverdueCount,
		WaivedCount:    summary.WaivedCount,
		TotalExpected:  summary.TotalExpected,
		TotalCollected: summary.TotalCollected,
		TotalPending:   summary.TotalPending,
	})
}

// ListPayments returns the ledger, newest first.
// GET /api/admin/payments
func (h *RentCycleHandler) ListPayments(c *gin.Context) {
	var query ListPaymentsQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		middleware.HandleValidationError(c, err)
		return
	}
	filter, err := query.ToFilter()
	if err != nil {
		h.ErrorWithCode(c, dto.ErrCodeValidationFormat, "Invalid tenant_id, from or to")
		return
	}

	payments, total, err := h.cycles.ListPayments(c.Request.Context(), filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.SuccessWithMeta(c, toPaymentResponses(payments), total, filter.Page, filter.PageSize)
}

// TenantCycles lists the signed-in tenant's cycles with paid and pending amounts.
// GET /api/tenant/rent-cycles
func (h *RentCycleHandler) TenantCycles(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		h.Unauthorized(c, "Authentication required")
		return
	}

	views, err := h.cycles.ListTenantCycles(c.Request.Context(), userID)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	out := make([]RentCycleResponse, 0, len(views))
	for _, v := range views {
		out = append(out, RentCycleResponse{
			ID:            v.Cycle.ID.String(),
			Month:         v.Cycle.Period.Month,
			Year:          v.Cycle.Period.Year,
			DueDate:       v.Cycle.DueDate,
			AmountDue:     v.Cycle.AmountDue,
			LateFeeAmount: v.Cycle.LateFeeAmount,
			TotalDue:      v.Cycle.TotalDue(),
			Paid:          v.Paid,
			Pending:       v.Pending,
			Status:        v.Cycle.Status.String(),
		})
	}
	h.Success(c, out)
}

// TenantPayments lists the signed-in tenant's ledger entries.
// GET /api/tenant/payments
func (h *RentCycleHandler) TenantPayments(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		h.Unauthorized(c, "Authentication required")
		return
	}

	payments, err := h.cycles.ListTenantPayments(c.Request.Context(), userID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, toPaymentResponses(payments))
}
