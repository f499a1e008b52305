package rental

import (
	"fmt"

	"github.com/shantivaas/rental/internal/domain/rental"
	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// NoteFormatter renders default ledger notes with locale-aware amounts.
type NoteFormatter struct {
	printer *message.Printer
	symbol  string
}

// NewNoteFormatter creates a formatter for lang, e.g. language.Make("en-IN")
func NewNoteFormatter(lang language.Tag) NoteFormatter {
	return NoteFormatter{printer: message.NewPrinter(lang), symbol: "₹"}
}

// Amount renders an amount with currency symbol and digit grouping.
// Grouping applies to the whole rupees; paise come from the exact value.
func (f NoteFormatter) Amount(amount decimal.Decimal) string {
	sign := ""
	if amount.IsNegative() {
		sign = "-"
	}
	fixed := amount.Abs().StringFixed(2)
	whole := amount.Abs().Round(2).IntPart()
	return sign + f.symbol + f.printer.Sprintf("%d", whole) + fixed[len(fixed)-3:]
}

// MultiCycle is the note for one slice of an auto-allocated payment
func (f NoteFormatter) MultiCycle(amount decimal.Decimal, period rental.BillingPeriod) string {
	return fmt.Sprintf("Multi-cycle payment: %s for %s", f.Amount(amount), period)
}

// Advance is the note for money carried into a future cycle
func (f NoteFormatter) Advance(notes string, period rental.BillingPeriod) string {
	if notes != "" {
		return notes + " (Advance payment)"
	}
	return fmt.Sprintf("Advance payment for %s", period)
}
