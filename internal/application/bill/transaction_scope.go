package bill

import (
	"context"

	"github.com/erp/billhub/internal/domain/bill"
)

// TransactionScope provides transactional access to the bill repositories.
// All repository operations inside fn share one database transaction and are
// committed or rolled back together.
type TransactionScope interface {
	// Execute runs fn within a database transaction.
	// If fn returns an error, the transaction is rolled back.
	Execute(ctx context.Context, fn func(repos TransactionalRepositories) error) error
}

// TransactionalRepositories provides the repositories bound to the current transaction.
//
// Bill is the aggregate root. Items are stored separately so that a mutation can
// rewrite only the items it touched; reconciliation still reads the full set.
type TransactionalRepositories interface {
	// BillRepo returns the bill repository scoped to the current transaction
	BillRepo() bill.BillRepository
	// ItemRepo returns the bill item repository scoped to the current transaction
	ItemRepo() bill.BillItemRepository
}

// NoOpTransactionScope runs fn directly against the given repositories.
// Useful for unit tests with in-memory or mocked repositories.
type NoOpTransactionScope struct {
	billRepo bill.BillRepository
	itemRepo bill.BillItemRepository
}

// NewNoOpTransactionScope creates a NoOpTransactionScope with the given repositories.
func NewNoOpTransactionScope(billRepo bill.BillRepository, itemRepo bill.BillItemRepository) *NoOpTransactionScope {
	return &NoOpTransactionScope{billRepo: billRepo, itemRepo: itemRepo}
}

// Execute runs the function without a real transaction.
func (s *NoOpTransactionScope) Execute(_ context.Context, fn func(repos TransactionalRepositories) error) error {
	return fn(s)
}

// BillRepo returns the bill repository.
func (s *NoOpTransactionScope) BillRepo() bill.BillRepository {
	return s.billRepo
}

// ItemRepo returns the bill item repository.
func (s *NoOpTransactionScope) ItemRepo() bill.BillItemRepository {
	return s.itemRepo
}

var (
	_ TransactionScope          = (*NoOpTransactionScope)(nil)
	_ TransactionalRepositories = (*NoOpTransactionScope)(nil)
)
