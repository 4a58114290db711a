package bill

import (
	"fmt"

	"github.com/erp/billhub/internal/domain/shared"
	"github.com/google/uuid"
)

// ErrBillNotFound builds the not-found error for a bill
func ErrBillNotFound(id uuid.UUID) *shared.DomainError {
	return shared.ErrNotFound.WithMessage(fmt.Sprintf("bill %s not found", id))
}

// ErrItemNotFound builds the not-found error for a bill item
func ErrItemNotFound(id uuid.UUID) *shared.DomainError {
	return shared.ErrNotFound.WithMessage(fmt.Sprintf("bill item %s not found", id))
}

// ErrItemNotInBill reports an item id that belongs to a different bill
func ErrItemNotInBill(itemID, billID uuid.UUID) *shared.DomainError {
	return shared.ErrCrossOwnership.WithMessage(fmt.Sprintf("item %s does not belong to bill %s", itemID, billID))
}
