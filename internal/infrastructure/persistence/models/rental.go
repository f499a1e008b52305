package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shantivaas/rental/internal/domain/rental"
	"github.com/shopspring/decimal"
)

// TenantModel is the persistence model for a renter occupying a room.
type TenantModel struct {
	BaseModel
	UserID      uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex:idx_tenants_user"`
	RoomID      uuid.UUID       `gorm:"type:uuid;not null;index"`
	MonthlyRent decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	IsActive    bool            `gorm:"not null;default:true;index"`
	JoinDate    time.Time       `gorm:"type:date;not null"`
	LeaveDate   *time.Time      `gorm:"type:date"`
}

// TableName returns the table name for GORM
func (TenantModel) TableName() string {
	return "tenants"
}

// ToDomain converts the persistence model to a domain Tenant.
func (m *TenantModel) ToDomain() *rental.Tenant {
	return &rental.Tenant{
		ID:          m.ID,
		UserID:      m.UserID,
		RoomID:      m.RoomID,
		MonthlyRent: m.MonthlyRent,
		IsActive:    m.IsActive,
		JoinDate:    m.JoinDate,
		LeaveDate:   m.LeaveDate,
	}
}

// FromDomain populates the persistence model from a domain Tenant.
func (m *TenantModel) FromDomain(t *rental.Tenant) {
	m.ID = t.ID
	m.UserID = t.UserID
	m.RoomID = t.RoomID
	m.MonthlyRent = t.MonthlyRent
	m.IsActive = t.IsActive
	m.JoinDate = t.JoinDate
	m.LeaveDate = t.LeaveDate
}

// TenantModelFromDomain creates a new persistence model from a domain Tenant.
func TenantModelFromDomain(t *rental.Tenant) *TenantModel {
	m := &TenantModel{}
	m.FromDomain(t)
	return m
}

// RentCycleModel is the persistence model for the RentCycle aggregate root.
type RentCycleModel struct {
	VersionedModel
	TenantID          uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex:idx_rent_cycles_tenant_period,priority:1"`
	RoomID            uuid.UUID       `gorm:"type:uuid"`
	DueMonth          int             `gorm:"not null;uniqueIndex:idx_rent_cycles_tenant_period,priority:2"`
	DueYear           int             `gorm:"not null;uniqueIndex:idx_rent_cycles_tenant_period,priority:3"`
	DueDate           time.Time       `gorm:"type:date;not null;index"`
	AmountDue         decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	LateFeeAmount     decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0"`
	LateFeeApplicable bool            `gorm:"not null;default:false"`
	LateFeeStartDate  *time.Time      `gorm:"type:date"`
	Status            string          `gorm:"type:varchar(20);not null;default:'pending';index"`
}

// TableName returns the table name for GORM
func (RentCycleModel) TableName() string {
	return "rent_cycles"
}

// ToDomain converts the persistence model to a domain RentCycle aggregate.
func (m *RentCycleModel) ToDomain() *rental.RentCycle {
	return &rental.RentCycle{
		BaseAggregateRoot: m.aggregate(),
		TenantID:          m.TenantID,
		RoomID:            m.RoomID,
		Period:            rental.BillingPeriod{Month: m.DueMonth, Year: m.DueYear},
		DueDate:           m.DueDate,
		AmountDue:         m.AmountDue,
		LateFeeAmount:     m.LateFeeAmount,
		LateFeeApplicable: m.LateFeeApplicable,
		LateFeeStartDate:  m.LateFeeStartDate,
		Status:            rental.CycleStatus(m.Status),
	}
}

// FromDomain populates the persistence model from a domain RentCycle aggregate.
func (m *RentCycleModel) FromDomain(c *rental.RentCycle) {
	m.setAggregate(c.BaseAggregateRoot)
	m.TenantID = c.TenantID
	m.RoomID = c.RoomID
	m.DueMonth = c.Period.Month
	m.DueYear = c.Period.Year
	m.DueDate = c.DueDate
	m.AmountDue = c.AmountDue
	m.LateFeeAmount = c.LateFeeAmount
	m.LateFeeApplicable = c.LateFeeApplicable
	m.LateFeeStartDate = c.LateFeeStartDate
	m.Status = string(c.Status)
}

// RentCycleModelFromDomain creates a new persistence model from a domain RentCycle.
func RentCycleModelFromDomain(c *rental.RentCycle) *RentCycleModel {
	m := &RentCycleModel{}
	m.FromDomain(c)
	return m
}

// PaymentModel is the persistence model for one ledger entry.
// Rows sharing a gateway payment id are allowed across cycles, never within one.
type PaymentModel struct {
	BaseModel
	TenantID          uuid.UUID       `gorm:"type:uuid;not null;index"`
	RentCycleID       uuid.UUID       `gorm:"type:uuid;not null;index;uniqueIndex:idx_payments_gateway_cycle,priority:2"`
	Amount            decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	PaymentMode       string          `gorm:"type:varchar(20);not null"`
	PaymentDate       time.Time       `gorm:"not null;index"`
	IsVerified        bool            `gorm:"not null;default:false"`
	VerifiedBy        *uuid.UUID      `gorm:"type:uuid"`
	VerifiedAt        *time.Time
	ReceivedBy        *uuid.UUID `gorm:"type:uuid"`
	RazorpayOrderID   *string    `gorm:"type:varchar(64)"`
	RazorpayPaymentID *string    `gorm:"type:varchar(64);uniqueIndex:idx_payments_gateway_cycle,priority:1"`
	RazorpaySignature *string    `gorm:"type:varchar(128)"`
	Notes             string     `gorm:"type:text"`
}

// TableName returns the table name for GORM
func (PaymentModel) TableName() string {
	return "payments"
}

// ToDomain converts the persistence model to a domain Payment entity.
func (m *PaymentModel) ToDomain() *rental.Payment {
	p := &rental.Payment{
		BaseEntity:  m.entity(),
		TenantID:    m.TenantID,
		RentCycleID: m.RentCycleID,
		Amount:      m.Amount,
		Mode:        rental.PaymentMode(m.PaymentMode),
		PaymentDate: m.PaymentDate,
		IsVerified:  m.IsVerified,
		VerifiedBy:  m.VerifiedBy,
		VerifiedAt:  m.VerifiedAt,
		ReceivedBy:  m.ReceivedBy,
		Notes:       m.Notes,
	}
	if m.RazorpayPaymentID != nil {
		p.Gateway = &rental.GatewayReference{
			OrderID:   deref(m.RazorpayOrderID),
			PaymentID: *m.RazorpayPaymentID,
			Signature: deref(m.RazorpaySignature),
		}
	}
	return p
}

// FromDomain populates the persistence model from a domain Payment entity.
func (m *PaymentModel) FromDomain(p *rental.Payment) {
	m.setEntity(p.BaseEntity)
	m.TenantID = p.TenantID
	m.RentCycleID = p.RentCycleID
	m.Amount = p.Amount
	m.PaymentMode = string(p.Mode)
	m.PaymentDate = p.PaymentDate
	m.IsVerified = p.IsVerified
	m.VerifiedBy = p.VerifiedBy
	m.VerifiedAt = p.VerifiedAt
	m.ReceivedBy = p.ReceivedBy
	m.Notes = p.Notes
	m.RazorpayOrderID, m.RazorpayPaymentID, m.RazorpaySignature = nil, nil, nil
	if p.Gateway != nil {
		m.RazorpayOrderID = optional(p.Gateway.OrderID)
		m.RazorpayPaymentID = optional(p.Gateway.PaymentID)
		m.RazorpaySignature = optional(p.Gateway.Signature)
	}
}

// PaymentModelFromDomain creates a new persistence model from a domain Payment.
func PaymentModelFromDomain(p *rental.Payment) *PaymentModel {
	m := &PaymentModel{}
	m.FromDomain(p)
	return m
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
