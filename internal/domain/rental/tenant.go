package rental

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Tenant is the renter occupying a room. RoomID references the property
// inventory; rooms themselves are maintained elsewhere.
type Tenant struct {
	ID          uuid.UUID
	UserID      uuid.UUID
	RoomID      uuid.UUID
	MonthlyRent decimal.Decimal
	IsActive    bool
	JoinDate    time.Time
	LeaveDate   *time.Time
}

// NewTenant registers the login user as the renter of a room from joinDate
func NewTenant(userID, roomID uuid.UUID, monthlyRent decimal.Decimal, joinDate time.Time) (*Tenant, error) {
	if userID == uuid.Nil {
		return nil, ErrInvalidTenant.WithMessage("User ID is required")
	}
	if roomID == uuid.Nil {
		return nil, ErrInvalidTenant.WithMessage("Room ID is required")
	}
	if joinDate.IsZero() {
		return nil, ErrInvalidTenant.WithMessage("Join date is required")
	}
	if err := validateRent(monthlyRent); err != nil {
		return nil, err
	}
	return &Tenant{
		ID:          uuid.New(),
		UserID:      userID,
		RoomID:      roomID,
		MonthlyRent: monthlyRent,
		IsActive:    true,
		JoinDate:    joinDate,
	}, nil
}

// TenantChanges lists the fields an update touches. Nil fields are kept.
type TenantChanges struct {
	RoomID      *uuid.UUID
	MonthlyRent *decimal.Decimal
	JoinDate    *time.Time
	LeaveDate   *time.Time
	IsActive    *bool
}

// Apply updates the tenant in place. Cycles already generated keep the rent
// they were created with; a new rent applies from the next generation run.
// Nothing is changed when validation fails.
func (t *Tenant) Apply(ch TenantChanges) error {
	next := *t
	if ch.RoomID != nil {
		if *ch.RoomID == uuid.Nil {
			return ErrInvalidTenant.WithMessage("Room ID is required")
		}
		next.RoomID = *ch.RoomID
	}
	if ch.MonthlyRent != nil {
		if err := validateRent(*ch.MonthlyRent); err != nil {
			return err
		}
		next.MonthlyRent = *ch.MonthlyRent
	}
	if ch.JoinDate != nil {
		if ch.JoinDate.IsZero() {
			return ErrInvalidTenant.WithMessage("Join date is required")
		}
		next.JoinDate = *ch.JoinDate
	}
	if ch.LeaveDate != nil {
		leave := *ch.LeaveDate
		next.LeaveDate = &leave
	}
	if ch.IsActive != nil {
		next.IsActive = *ch.IsActive
	}
	if next.LeaveDate != nil && next.LeaveDate.Before(next.JoinDate) {
		return ErrInvalidTenant.WithMessage("Leave date is before the join date")
	}
	*t = next
	return nil
}

// Deactivate ends the tenancy on leave. The tenant is no longer billed for
// periods starting after leave.
func (t *Tenant) Deactivate(leave time.Time) error {
	if !t.IsActive {
		return ErrTenantInactive
	}
	if leave.Before(t.JoinDate) {
		return ErrInvalidTenant.WithMessage("Leave date is before the join date")
	}
	t.IsActive = false
	t.LeaveDate = &leave
	return nil
}

func validateRent(rent decimal.Decimal) error {
	if !rent.IsPositive() {
		return ErrInvalidAmount.WithMessage("Monthly rent must be greater than zero")
	}
	if !IsWholePaise(rent) {
		return ErrInvalidAmount.WithMessage("Monthly rent cannot be finer than one paisa")
	}
	return nil
}

// OccupiesDuring reports whether the tenant is billable for the period
func (t *Tenant) OccupiesDuring(p BillingPeriod) bool {
	if !t.IsActive {
		return false
	}
	if t.JoinDate.After(p.End(t.JoinDate.Location())) {
		return false
	}
	if t.LeaveDate != nil && t.LeaveDate.Before(p.Start(t.LeaveDate.Location())) {
		return false
	}
	return true
}
