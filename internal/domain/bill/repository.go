package bill

import (
	"context"

	"github.com/google/uuid"
)

// BillRepository persists the Bill aggregate root (without its items)
type BillRepository interface {
	// FindByID loads the bill. Items are not populated.
	FindByID(ctx context.Context, id uuid.UUID) (*Bill, error)

	// FindByIDForUpdate loads the bill and holds a row lock on it until the
	// surrounding transaction ends.
	FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*Bill, error)

	// Create inserts a new bill
	Create(ctx context.Context, bill *Bill) error

	// Save writes the bill's mutable columns
	Save(ctx context.Context, bill *Bill) error

	// Delete removes the bill; its items go with it
	Delete(ctx context.Context, id uuid.UUID) error
}

// BillItemRepository persists bill items
type BillItemRepository interface {
	// FindByBill returns every item of the bill, ordered by creation
	FindByBill(ctx context.Context, billID uuid.UUID) ([]*BillItem, error)

	// FindByIDs returns the items with the given ids regardless of bill.
	// Unknown ids are simply absent from the result.
	FindByIDs(ctx context.Context, ids []uuid.UUID) ([]*BillItem, error)

	// CreateBatch inserts new items
	CreateBatch(ctx context.Context, items []*BillItem) error

	// SaveAll writes the mutable columns of the given items
	SaveAll(ctx context.Context, items []*BillItem) error
}
