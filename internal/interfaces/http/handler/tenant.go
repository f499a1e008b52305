package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	apprental "github.com/shantivaas/rental/internal/application/rental"
	"github.com/shantivaas/rental/internal/domain/rental"
	"github.com/shantivaas/rental/internal/interfaces/http/dto"
	"github.com/shantivaas/rental/internal/interfaces/http/middleware"
	"github.com/shopspring/decimal"
)

// TenantManager is the tenancy side of the application layer
type TenantManager interface {
	Create(ctx context.Context, cmd apprental.CreateTenantCommand) (*rental.Tenant, error)
	Get(ctx context.Context, id uuid.UUID) (*rental.Tenant, error)
	List(ctx context.Context, filter rental.TenantFilter) ([]*rental.Tenant, int64, error)
	Update(ctx context.Context, cmd apprental.UpdateTenantCommand) (*rental.Tenant, error)
	Deactivate(ctx context.Context, cmd apprental.DeactivateTenantCommand) (*rental.Tenant, error)
}

// TenantHandler handles admin tenancy maintenance
type TenantHandler struct {
	BaseHandler
	tenants TenantManager
}

// NewTenantHandler creates a new TenantHandler
func NewTenantHandler(tenants TenantManager) *TenantHandler {
	return &TenantHandler{tenants: tenants}
}

// CreateTenantRequest links a login user to a room
type CreateTenantRequest struct {
	UserID      string          `json:"user_id" binding:"required,uuid"`
	RoomID      string          `json:"room_id" binding:"required,uuid"`
	MonthlyRent decimal.Decimal `json:"monthly_rent" binding:"gt=0"`
	JoinDate    string          `json:"join_date" binding:"required"`
}

// UpdateTenantRequest changes a tenancy; omitted fields are kept
type UpdateTenantRequest struct {
	RoomID      *string          `json:"room_id" binding:"omitempty,uuid"`
	MonthlyRent *decimal.Decimal `json:"monthly_rent" binding:"omitempty,gt=0"`
	JoinDate    *string          `json:"join_date"`
	LeaveDate   *string          `json:"leave_date"`
	IsActive    *bool            `json:"is_active"`
}

// DeactivateTenantRequest ends a tenancy; an empty leave_date means today
type DeactivateTenantRequest struct {
	LeaveDate string `json:"leave_date"`
}

// ListTenantsQuery filters the tenant listing
type ListTenantsQuery struct {
	Active   *bool  `form:"active"`
	RoomID   string `form:"room_id" binding:"omitempty,uuid"`
	Page     int    `form:"page" binding:"omitempty,min=1"`
	PageSize int    `form:"page_size" binding:"omitempty,min=1,max=200"`
}

// TenantResponse is a tenancy in API responses
type TenantResponse struct {
	ID          string          `json:"id"`
	UserID      string          `json:"user_id"`
	RoomID      string          `json:"room_id"`
	MonthlyRent decimal.Decimal `json:"monthly_rent"`
	IsActive    bool            `json:"is_active"`
	JoinDate    time.Time       `json:"join_date"`
	LeaveDate   *time.Time      `json:"leave_date,omitempty"`
}

func toTenantResponse(t *rental.Tenant) TenantResponse {
	return TenantResponse{
		ID:          t.ID.String(),
		UserID:      t.UserID.String(),
		RoomID:      t.RoomID.String(),
		MonthlyRent: t.MonthlyRent,
		IsActive:    t.IsActive,
		JoinDate:    t.JoinDate,
		LeaveDate:   t.LeaveDate,
	}
}

// ToCommand converts the request to an application command
func (r CreateTenantRequest) ToCommand() (apprental.CreateTenantCommand, error) {
	userID, err := uuid.Parse(r.UserID)
	if err != nil {
		return apprental.CreateTenantCommand{}, err
	}
	roomID, err := uuid.Parse(r.RoomID)
	if err != nil {
		return apprental.CreateTenantCommand{}, err
	}
	join, err := parseDate(r.JoinDate)
	if err != nil {
		return apprental.CreateTenantCommand{}, err
	}
	return apprental.CreateTenantCommand{
		UserID:      userID,
		RoomID:      roomID,
		MonthlyRent: r.MonthlyRent,
		JoinDate:    join,
	}, nil
}

// ToChanges converts the request to domain changes
func (r UpdateTenantRequest) ToChanges() (rental.TenantChanges, error) {
	changes := rental.TenantChanges{MonthlyRent: r.MonthlyRent, IsActive: r.IsActive}
	roomID, err := parseOptionalUUID(r.RoomID)
	if err != nil {
		return changes, err
	}
	changes.RoomID = roomID
	if r.JoinDate != nil {
		join, err := parseDate(*r.JoinDate)
		if err != nil {
			return changes, err
		}
		changes.JoinDate = &join
	}
	if r.LeaveDate != nil {
		leave, err := parseDate(*r.LeaveDate)
		if err != nil {
			return changes, err
		}
		changes.LeaveDate = &leave
	}
	return changes, nil
}

// Create registers a tenant.
// POST /api/admin/tenants
func (h *TenantHandler) Create(c *gin.Context) {
	var req CreateTenantRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.HandleValidationError(c, err)
		return
	}
	cmd, err := req.ToCommand()
	if err != nil {
		h.ErrorWithCode(c, dto.ErrCodeValidationFormat, "Invalid user_id, room_id or join_date")
		return
	}

	tenant, err := h.tenants.Create(c.Request.Context(), cmd)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	c.JSON(http.StatusCreated, dto.NewSuccessResponse(toTenantResponse(tenant)))
}

// List returns tenants, earliest joiners first.
// GET /api/admin/tenants
func (h *TenantHandler) List(c *gin.Context) {
	var query ListTenantsQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		middleware.HandleValidationError(c, err)
		return
	}
	filter := rental.TenantFilter{Active: query.Active}
	filter.Page = query.Page
	filter.PageSize = query.PageSize
	filter.Pagination = filter.Pagination.Normalize()
	if query.RoomID != "" {
		roomID, err := uuid.Parse(query.RoomID)
		if err != nil {
			h.ErrorWithCode(c, dto.ErrCodeValidationFormat, "Invalid room_id")
			return
		}
		filter.RoomID = &roomID
	}

	tenants, total, err := h.tenants.List(c.Request.Context(), filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	out := make([]TenantResponse, len(tenants))
	for i, t := range tenants {
		out[i] = toTenantResponse(t)
	}
	h.SuccessWithMeta(c, out, total, filter.Page, filter.PageSize)
}

// Get returns one tenant.
// GET /api/admin/tenants/:id
func (h *TenantHandler) Get(c *gin.Context) {
	id, ok := h.tenantID(c)
	if !ok {
		return
	}
	tenant, err := h.tenants.Get(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, toTenantResponse(tenant))
}

// Update changes room, rent, dates or the active flag.
// PUT /api/admin/tenants/:id
func (h *TenantHandler) Update(c *gin.Context) {
	id, ok := h.tenantID(c)
	if !ok {
		return
	}
	var req UpdateTenantRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.HandleValidationError(c, err)
		return
	}
	changes, err := req.ToChanges()
	if err != nil {
		h.ErrorWithCode(c, dto.ErrCodeValidationFormat, "Invalid room_id, join_date or leave_date")
		return
	}

	tenant, err := h.tenants.Update(c.Request.Context(), apprental.UpdateTenantCommand{TenantID: id, TenantChanges: changes})
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, toTenantResponse(tenant))
}

// Deactivate ends a tenancy.
// POST /api/admin/tenants/:id/deactivate
func (h *TenantHandler) Deactivate(c *gin.Context) {
	id, ok := h.tenantID(c)
	if !ok {
		return
	}
	var req DeactivateTenantRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			middleware.HandleValidationError(c, err)
			return
		}
	}
	cmd := apprental.DeactivateTenantCommand{TenantID: id}
	if req.LeaveDate != "" {
		leave, err := parseDate(req.LeaveDate)
		if err != nil {
			h.ErrorWithCode(c, dto.ErrCodeValidationFormat, "Invalid leave_date")
			return
		}
		cmd.LeaveDate = leave
	}

	tenant, err := h.tenants.Deactivate(c.Request.Context(), cmd)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, toTenantResponse(tenant))
}

func (h *TenantHandler) tenantID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.ErrorWithCode(c, dto.ErrCodeValidationFormat, "Invalid tenant id")
		return uuid.Nil, false
	}
	return id, true
}
