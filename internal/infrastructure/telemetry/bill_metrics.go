package telemetry

import (
	"context"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/erp/billhub/internal/domain/shared"
)

// LedgerStats is a point-in-time view of money still owed
type LedgerStats struct {
	UnpaidBills int64
	Outstanding decimal.Decimal
}

// LedgerStatsProvider supplies LedgerStats for periodic gauge collection
type LedgerStatsProvider interface {
	LedgerStats(ctx context.Context) (LedgerStats, error)
}

// BillMetricsConfig holds configuration for BillMetrics
type BillMetricsConfig struct {
	Meter         MeterSource
	Logger        *zap.Logger
	StatsProvider LedgerStatsProvider
}

// BillMetrics records the outcome of bill operations. It satisfies the
// application layer's OperationRecorder.
type BillMetrics struct {
	logger *zap.Logger

	operationsTotal   *Counter
	operationDuration *Histogram
	itemsSettled      *Counter
	amountSettled     *Counter
	itemsRefunded     *Counter
	amountRefunded    *Counter
	unpaidBills       *FloatGauge
	outstandingAmount *FloatGauge

	stats       LedgerStatsProvider
	stopChan    chan struct{}
	stopOnce    sync.Once
	collectOnce sync.Once
}

func NewBillMetrics(cfg BillMetricsConfig) (*BillMetrics, error) {
	if cfg.Meter == nil {
		return nil, ErrMeterNil
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	meter := cfg.Meter.Meter(TracerName)

	bm := &BillMetrics{
		logger:   logger,
		stats:    cfg.StatsProvider,
		stopChan: make(chan struct{}),
	}

	var err error
	if bm.operationsTotal, err = NewCounter(meter,
		"billhub_bill_operations_total", "Bill operations by outcome", "{operations}"); err != nil {
		return nil, err
	}
	if bm.operationDuration, err = NewHistogram(meter, HistogramOpts{
		Name:        "billhub_bill_operation_duration_seconds",
		Description: "Bill operation latency",
		Unit:        "s",
		Boundaries:  OperationDurationBuckets,
	}); err != nil {
		return nil, err
	}
	if bm.itemsSettled, err = NewCounter(meter,
		"billhub_items_settled_total", "Items marked paid", "{items}"); err != nil {
		return nil, err
	}
	if bm.amountSettled, err = NewCounter(meter,
		"billhub_amount_settled_cents_total", "Settled amount in cents", "{cents}"); err != nil {
		return nil, err
	}
	if bm.itemsRefunded, err = NewCounter(meter,
		"billhub_items_refunded_total", "Items refunded fully or partially", "{items}"); err != nil {
		return nil, err
	}
	if bm.amountRefunded, err = NewCounter(meter,
		"billhub_amount_refunded_cents_total", "Refunded amount in cents", "{cents}"); err != nil {
		return nil, err
	}
	if bm.unpaidBills, err = NewFloatGauge(meter,
		"billhub_unpaid_bills", "Bills with an outstanding balance", "{bills}"); err != nil {
		return nil, err
	}
	if bm.outstandingAmount, err = NewFloatGauge(meter,
		"billhub_outstanding_amount", "Sum of unpaid balances", "{currency}"); err != nil {
		return nil, err
	}
	return bm, nil
}

// RecordOperation counts one operation and its latency. Failed operations
// are labelled with the domain error code when there is one.
func (bm *BillMetrics) RecordOperation(ctx context.Context, operation string, err error, duration time.Duration) {
	attrs := []attribute.KeyValue{AttrOperation.String(operation)}
	switch {
	case err == nil:
		attrs = append(attrs, AttrOutcome.String("success"))
	default:
		code := "INTERNAL_ERROR"
		if de, ok := shared.AsDomainError(err); ok {
			code = de.Code
		}
		attrs = append(attrs, AttrOutcome.String("error"), AttrErrorCode.String(code))
	}
	bm.operationsTotal.Inc(ctx, attrs...)
	bm.operationDuration.RecordDuration(ctx, duration, AttrOperation.String(operation))
}

func (bm *BillMetrics) RecordSettlement(ctx context.Context, itemCount int, amount decimal.Decimal) {
	bm.itemsSettled.Add(ctx, int64(itemCount))
	bm.amountSettled.Add(ctx, toCents(amount))
}

func (bm *BillMetrics) RecordRefund(ctx context.Context, itemCount int, amount decimal.Decimal) {
	bm.itemsRefunded.Add(ctx, int64(itemCount))
	bm.amountRefunded.Add(ctx, toCents(amount))
}

func toCents(amount decimal.Decimal) int64 {
	return amount.Mul(decimal.NewFromInt(100)).Round(0).IntPart()
}

// StartPeriodicCollection samples LedgerStats every interval (default five
// minutes) until Stop is called or ctx ends. It is non-blocking and runs once.
func (bm *BillMetrics) StartPeriodicCollection(ctx context.Context, interval time.Duration) {
	if bm.stats == nil {
		return
	}
	bm.collectOnce.Do(func() {
		if interval <= 0 {
			interval = 5 * time.Minute
		}
		go bm.runPeriodicCollection(ctx, interval)
	})
}

func (bm *BillMetrics) runPeriodicCollection(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	bm.collect(ctx)
	for {
		select {
		case <-bm.stopChan:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			bm.collect(ctx)
		}
	}
}

func (bm *BillMetrics) collect(ctx context.Context) {
	stats, err := bm.stats.LedgerStats(ctx)
	if err != nil {
		bm.logger.Warn("Failed to collect ledger stats", zap.Error(err))
		return
	}
	bm.unpaidBills.Record(ctx, float64(stats.UnpaidBills))
	bm.outstandingAmount.Record(ctx, stats.Outstanding.InexactFloat64())
}

func (bm *BillMetrics) Stop() {
	bm.stopOnce.Do(func() { close(bm.stopChan) })
}
