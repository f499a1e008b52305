package rental

import (
	"context"

	"github.com/shopspring/decimal"
)

// PaymentMetrics receives allocation counters. telemetry.PaymentMetrics implements it.
type PaymentMetrics interface {
	RecordAllocation(ctx context.Context, mode string, payments int, amount decimal.Decimal, advance bool)
	RecordReplay(ctx context.Context, source string)
	RecordSignatureRejected(ctx context.Context, source string)
	RecordLookupFallback(ctx context.Context)
}

type noopMetrics struct{}

func (noopMetrics) RecordAllocation(context.Context, string, int, decimal.Decimal, bool) {}
func (noopMetrics) RecordReplay(context.Context, string)                                 {}
func (noopMetrics) RecordSignatureRejected(context.Context, string)                      {}
func (noopMetrics) RecordLookupFallback(context.Context)                                 {}
