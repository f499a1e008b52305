package telemetry

import (
	"context"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
)

// PaymentMetrics counts rent payments flowing through the allocation engine.
type PaymentMetrics struct {
	logger *zap.Logger

	paymentsRecorded  *Counter
	allocationsTotal  *Counter
	amountAllocated   *Histogram
	advancePayments   *Counter
	replays           *Counter
	signatureRejected *Counter
	lookupFallbacks   *Counter
}

// ErrMeterNil is returned when meter is nil.
var ErrMeterNil = &MetricsError{Op: "NewPaymentMetrics", Err: "meter cannot be nil"}

// MetricsError represents a metrics-related error.
type MetricsError struct {
	Op  string
	Err string
}

func (e *MetricsError) Error() string {
	return e.Op + ": " + e.Err
}

// NewPaymentMetrics registers the payment instruments on meter.
func NewPaymentMetrics(meter metric.Meter, logger *zap.Logger) (*PaymentMetrics, error) {
	if meter == nil {
		return nil, ErrMeterNil
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	pm := &PaymentMetrics{logger: logger}
	var err error

	if pm.allocationsTotal, err = NewCounter(meter, "rental_allocations_total",
		"Allocation calls that wrote to the ledger", "{allocations}"); err != nil {
		return nil, err
	}
	if pm.paymentsRecorded, err = NewCounter(meter, "rental_payments_recorded_total",
		"Payment ledger rows written", "{payments}"); err != nil {
		return nil, err
	}
	if pm.amountAllocated, err = NewHistogram(meter, HistogramOpts{
		Name:        "rental_payment_amount",
		Description: "Amount tendered per allocation in rupees",
		Unit:        "INR",
		Boundaries:  RupeeBuckets,
	}); err != nil {
		return nil, err
	}
	if pm.advancePayments, err = NewCounter(meter, "rental_advance_payments_total",
		"Allocations that spilled into a future rent cycle", "{allocations}"); err != nil {
		return nil, err
	}
	if pm.replays, err = NewCounter(meter, "rental_gateway_replays_total",
		"Gateway payments recognised as already recorded", "{payments}"); err != nil {
		return nil, err
	}
	if pm.signatureRejected, err = NewCounter(meter, "rental_signature_rejections_total",
		"Gateway requests rejected for a bad signature", "{requests}"); err != nil {
		return nil, err
	}
	if pm.lookupFallbacks, err = NewCounter(meter, "rental_pending_lookup_fallbacks_total",
		"Pending cycle lookups served by the fallback query", "{lookups}"); err != nil {
		return nil, err
	}

	return pm, nil
}

// RecordAllocation records one committed allocation
func (pm *PaymentMetrics) RecordAllocation(ctx context.Context, mode string, payments int, amount decimal.Decimal, advance bool) {
	attrs := AttrPaymentMode.String(mode)
	pm.allocationsTotal.Inc(ctx, attrs, AttrAdvance.Bool(advance))
	pm.paymentsRecorded.Add(ctx, int64(payments), attrs)
	pm.amountAllocated.Record(ctx, amount.InexactFloat64(), attrs)
	if advance {
		pm.advancePayments.Inc(ctx, attrs)
	}
}

// RecordReplay records a duplicate gateway delivery
func (pm *PaymentMetrics) RecordReplay(ctx context.Context, source string) {
	pm.replays.Inc(ctx, AttrSource.String(source))
}

// RecordSignatureRejected records a failed signature check
func (pm *PaymentMetrics) RecordSignatureRejected(ctx context.Context, source string) {
	pm.signatureRejected.Inc(ctx, AttrSource.String(source))
}

// RecordLookupFallback records a pending lookup that needed the fallback path
func (pm *PaymentMetrics) RecordLookupFallback(ctx context.Context) {
	pm.lookupFallbacks.Inc(ctx)
}
