package telemetry

import (
	"context"
	"errors"
	"strings"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// DBMetrics records statement latency and failures per operation and table.
// It is a gorm.Plugin.
type DBMetrics struct {
	queryDuration *Histogram
	queryErrors   *Counter
	logger        *zap.Logger
}

var dbDurationBuckets = []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5}

func NewDBMetrics(meters MeterSource, logger *zap.Logger) (*DBMetrics, error) {
	if meters == nil {
		return nil, ErrMeterNil
	}
	meter := meters.Meter(TracerName)

	duration, err := NewHistogram(meter, HistogramOpts{
		Name:        "billhub_db_query_duration_seconds",
		Description: "Database statement latency",
		Unit:        "s",
		Boundaries:  dbDurationBuckets,
	})
	if err != nil {
		return nil, err
	}
	errs, err := NewCounter(meter, "billhub_db_query_errors_total", "Failed database statements", "{errors}")
	if err != nil {
		return nil, err
	}
	return &DBMetrics{queryDuration: duration, queryErrors: errs, logger: logger}, nil
}

func (m *DBMetrics) Name() string { return "billhub:db_metrics" }

// Initialize registers timing callbacks around every GORM processor
func (m *DBMetrics) Initialize(db *gorm.DB) error {
	return registerAround(db, "billhub_metrics", markQueryStart, m.record)
}

func (m *DBMetrics) record(tx *gorm.DB) {
	ctx := tx.Statement.Context
	if ctx == nil {
		ctx = context.Background()
	}
	operation := sqlOperation(tx.Statement.SQL.String())
	attrs := []attribute.KeyValue{AttrDBOperation.String(operation), AttrDBTable.String(tx.Statement.Table)}

	if elapsed, ok := queryElapsed(ctx); ok {
		m.queryDuration.RecordDuration(ctx, elapsed, attrs...)
	}
	if tx.Error != nil && !errors.Is(tx.Error, gorm.ErrRecordNotFound) {
		m.queryErrors.Inc(ctx, attrs...)
	}
}

func sqlOperation(sql string) string {
	sql = strings.ToUpper(strings.TrimSpace(sql))
	for _, op := range []string{"SELECT", "INSERT", "UPDATE", "DELETE"} {
		if strings.HasPrefix(sql, op) {
			return op
		}
	}
	return "OTHER"
}
