package telemetry

import (
	"context"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// GormLedgerStatsProvider aggregates unpaid balances straight from the bills table
type GormLedgerStatsProvider struct {
	db *gorm.DB
}

func NewGormLedgerStatsProvider(db *gorm.DB) *GormLedgerStatsProvider {
	return &GormLedgerStatsProvider{db: db}
}

func (p *GormLedgerStatsProvider) LedgerStats(ctx context.Context) (LedgerStats, error) {
	var row struct {
		UnpaidBills int64
		Outstanding decimal.NullDecimal
	}
	err := p.db.WithContext(ctx).
		Table("bills").
		Select("COUNT(*) AS unpaid_bills, SUM(total_amount - paid_amount) AS outstanding").
		Where("status = ?", "unpaid").
		Scan(&row).Error
	if err != nil {
		return LedgerStats{}, err
	}

	stats := LedgerStats{UnpaidBills: row.UnpaidBills, Outstanding: decimal.Zero}
	if row.Outstanding.Valid {
		stats.Outstanding = row.Outstanding.Decimal
	}
	return stats, nil
}
