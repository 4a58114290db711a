package logger

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

var _ gormlogger.Interface = (*GormLogger)(nil)

func newObservedGormLogger(level gormlogger.LogLevel, opts ...GormLoggerOption) (*GormLogger, *observer.ObservedLogs) {
	core, recorded := observer.New(zapcore.DebugLevel)
	return NewGormLogger(zap.New(core), level, opts...), recorded
}

func sqlFn(sql string, rows int64) func() (string, int64) {
	return func() (string, int64) { return sql, rows }
}

func TestGormLogger_Options(t *testing.T) {
	gl, _ := newObservedGormLogger(gormlogger.Info,
		WithSlowThreshold(time.Second),
		WithIgnoreRecordNotFoundError(false),
	)
	assert.Equal(t, time.Second, gl.slowThreshold)
	assert.False(t, gl.ignoreRecordNotFoundError)

	warn, ok := gl.LogMode(gormlogger.Warn).(*GormLogger)
	require.True(t, ok)
	assert.Equal(t, gormlogger.Warn, warn.logLevel)
	assert.Equal(t, gormlogger.Info, gl.logLevel)
}

func TestGormLogger_Trace(t *testing.T) {
	tests := []struct {
		name    string
		level   gormlogger.LogLevel
		begin   time.Time
		err     error
		wantMsg string
		want    zapcore.Level
	}{
		{"error", gormlogger.Warn, time.Now(), errors.New("deadlock"), "query failed", zapcore.ErrorLevel},
		{"slow", gormlogger.Warn, time.Now().Add(-time.Second), nil, "slow query", zapcore.WarnLevel},
		{"normal", gormlogger.Info, time.Now(), nil, "query", zapcore.DebugLevel},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gl, recorded := newObservedGormLogger(tt.level)
			gl.Trace(context.Background(), tt.begin, sqlFn("SELECT * FROM bills", 1), tt.err)

			logs := recorded.FilterMessage(tt.wantMsg).All()
			require.Len(t, logs, 1)
			assert.Equal(t, tt.want, logs[0].Level)
			assert.Equal(t, "SELECT * FROM bills", logs[0].ContextMap()["sql"])
		})
	}
}

func TestGormLogger_Trace_RecordNotFound(t *testing.T) {
	gl, recorded := newObservedGormLogger(gormlogger.Warn)
	gl.Trace(context.Background(), time.Now(), sqlFn("SELECT 1", 0), gorm.ErrRecordNotFound)
	assert.Zero(t, recorded.Len())

	gl, recorded = newObservedGormLogger(gormlogger.Warn, WithIgnoreRecordNotFoundError(false))
	gl.Trace(context.Background(), time.Now(), sqlFn("SELECT 1", 0), gorm.ErrRecordNotFound)
	assert.Equal(t, 1, recorded.FilterMessage("query failed").Len())
}

func TestGormLogger_Trace_Silent(t *testing.T) {
	gl, recorded := newObservedGormLogger(gormlogger.Silent)
	gl.Trace(context.Background(), time.Now(), sqlFn("SELECT 1", 0), errors.New("x"))
	assert.Zero(t, recorded.Len())
}

func TestGormLogger_TagsBillID(t *testing.T) {
	gl, recorded := newObservedGormLogger(gormlogger.Warn)
	ctx := WithBillID(context.Background(), "bill-3")
	gl.Trace(ctx, time.Now(), sqlFn("UPDATE bills", 0), errors.New("conflict"))
	gl.Warn(ctx, "pool at %d%%", 90)

	logs := recorded.All()
	require.Len(t, logs, 2)
	assert.Equal(t, "bill-3", logs[0].ContextMap()["bill_id"])
	assert.Equal(t, "pool at 90%", logs[1].Message)
}

func TestMapGormLogLevel(t *testing.T) {
	assert.Equal(t, gormlogger.Info, MapGormLogLevel("debug"))
	assert.Equal(t, gormlogger.Warn, MapGormLogLevel("warn"))
	assert.Equal(t, gormlogger.Error, MapGormLogLevel("error"))
	assert.Equal(t, gormlogger.Silent, MapGormLogLevel("silent"))
	assert.Equal(t, gormlogger.Warn, MapGormLogLevel("info"))
}
