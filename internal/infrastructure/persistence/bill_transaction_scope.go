package persistence

import (
	"context"
	"fmt"
	"time"

	appbill "github.com/erp/billhub/internal/application/bill"
	"github.com/erp/billhub/internal/domain/bill"
	"gorm.io/gorm"
)

// GormBillTransactionScope implements TransactionScope using GORM transactions.
// On PostgreSQL each transaction bounds its row-lock waits with lock_timeout.
type GormBillTransactionScope struct {
	db          *gorm.DB
	lockTimeout time.Duration
}

// NewGormBillTransactionScope creates a new GormBillTransactionScope.
// A zero lockTimeout leaves the server default in place.
func NewGormBillTransactionScope(db *gorm.DB, lockTimeout time.Duration) *GormBillTransactionScope {
	return &GormBillTransactionScope{db: db, lockTimeout: lockTimeout}
}

// Execute runs the given function within a database transaction.
// If the function returns an error, the transaction is rolled back.
func (s *GormBillTransactionScope) Execute(ctx context.Context, fn func(repos appbill.TransactionalRepositories) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if s.lockTimeout > 0 && tx.Dialector.Name() == "postgres" {
			stmt := fmt.Sprintf("SET LOCAL lock_timeout = '%dms'", s.lockTimeout.Milliseconds())
			if err := tx.Exec(stmt).Error; err != nil {
				return fmt.Errorf("failed to set lock timeout: %w", err)
			}
		}
		return fn(&gormBillRepositories{tx: tx})
	})
}

// gormBillRepositories provides the repositories bound to one transaction.
type gormBillRepositories struct {
	tx *gorm.DB
}

// BillRepo returns the bill repository scoped to the current transaction.
func (r *gormBillRepositories) BillRepo() bill.BillRepository {
	return NewGormBillRepository(r.tx)
}

// ItemRepo returns the bill item repository scoped to the current transaction.
func (r *gormBillRepositories) ItemRepo() bill.BillItemRepository {
	return NewGormBillItemRepository(r.tx)
}

var (
	_ appbill.TransactionScope          = (*GormBillTransactionScope)(nil)
	_ appbill.TransactionalRepositories = (*gormBillRepositories)(nil)
)
