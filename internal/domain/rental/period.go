package rental

import (
	"fmt"
	"time"
)

// BillingPeriod identifies one calendar month of rent
type BillingPeriod struct {
	Month int
	Year  int
}

// NewBillingPeriod creates a validated billing period
func NewBillingPeriod(month, year int) (BillingPeriod, error) {
	p := BillingPeriod{Month: month, Year: year}
	if err := p.Validate(); err != nil {
		return BillingPeriod{}, err
	}
	return p, nil
}

// PeriodOf returns the billing period containing t
func PeriodOf(t time.Time) BillingPeriod {
	return BillingPeriod{Month: int(t.Month()), Year: t.Year()}
}

// Validate checks month and year bounds
func (p BillingPeriod) Validate() error {
	if p.Month < 1 || p.Month > 12 {
		return ErrInvalidPeriod.WithMessage(fmt.Sprintf("Month must be between 1 and 12, got %d", p.Month))
	}
	if p.Year < 2000 || p.Year > 9999 {
		return ErrInvalidPeriod.WithMessage(fmt.Sprintf("Year %d is out of range", p.Year))
	}
	return nil
}

// Next returns the following calendar month, rolling December into January
func (p BillingPeriod) Next() BillingPeriod {
	if p.Month == 12 {
		return BillingPeriod{Month: 1, Year: p.Year + 1}
	}
	return BillingPeriod{Month: p.Month + 1, Year: p.Year}
}

// Start returns midnight of the first day of the period
func (p BillingPeriod) Start(loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	return time.Date(p.Year, time.Month(p.Month), 1, 0, 0, 0, 0, loc)
}

// End returns the last instant of the period
func (p BillingPeriod) End(loc *time.Location) time.Time {
	return p.Next().Start(loc).Add(-time.Nanosecond)
}

// DueDate returns the given day of the period, clamped to the month length
func (p BillingPeriod) DueDate(day int, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	if day < 1 {
		day = 1
	}
	last := p.End(loc).Day()
	if day > last {
		day = last
	}
	return time.Date(p.Year, time.Month(p.Month), day, 0, 0, 0, 0, loc)
}

// Before reports whether p is an earlier month than other
func (p BillingPeriod) Before(other BillingPeriod) bool {
	if p.Year != other.Year {
		return p.Year < other.Year
	}
	return p.Month < other.Month
}

// String renders the period as month/year, e.g. 3/2025
func (p BillingPeriod) String() string {
	return fmt.Sprintf("%d/%d", p.Month, p.Year)
}
