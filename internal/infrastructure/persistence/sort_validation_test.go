package persistence

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/shantivaas/rental/internal/domain/rental"
)

func TestValidateSortOrder(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"", "DESC"},
		{"ASC", "ASC"},
		{"asc", "ASC"},
		{"  asc  ", "ASC"},
		{"desc", "DESC"},
		{"INVALID", "DESC"},
		{"ASC; DROP TABLE payments;--", "DESC"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, ValidateSortOrder(tt.input))
		})
	}
}

func TestValidateSortField(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"empty returns default", "", "payment_date"},
		{"whitelisted field", "amount", "amount"},
		{"trimmed", "  amount  ", "amount"},
		{"case sensitive", "AMOUNT", "payment_date"},
		{"unknown column", "notes", "payment_date"},
		{"injection", "amount; DROP TABLE payments;--", "payment_date"},
		{"subquery", "amount, (SELECT 1)", "payment_date"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, ValidateSortField(tt.input, PaymentSortFields, "payment_date"))
		})
	}
}

func TestPaymentOrder(t *testing.T) {
	tests := []struct {
		name   string
		filter rental.PaymentFilter
		want   string
	}{
		{"default is newest first", rental.PaymentFilter{}, "payment_date DESC, created_at DESC"},
		{"amount ascending", rental.PaymentFilter{SortBy: "amount", SortDir: "asc"}, "amount ASC, created_at ASC"},
		{"created_at has no tiebreaker", rental.PaymentFilter{SortBy: "created_at"}, "created_at DESC"},
		{"unknown field falls back", rental.PaymentFilter{SortBy: "tenant_id", SortDir: "asc"}, "payment_date ASC, created_at ASC"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, paymentOrder(tt.filter))
		})
	}
}
