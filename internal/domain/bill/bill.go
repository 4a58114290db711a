package bill

import (
	"fmt"

	"github.com/erp/billhub/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Bill is the aggregate root grouping purchased items of one owner.
// TotalAmount, PaidAmount and Status are always derived from Items.
type Bill struct {
	shared.BaseAggregateRoot
	OwnerID     uuid.UUID
	Status      BillStatus
	Remark      *string
	TotalAmount decimal.Decimal
	PaidAmount  decimal.Decimal
	Items       []*BillItem
}

// NewBill creates a bill for an owner. Its totals are set once items are
// added and the bill is reconciled.
func NewBill(ownerID uuid.UUID, remark *string) (*Bill, error) {
	if ownerID == uuid.Nil {
		return nil, shared.ErrValidation.WithMessage("Owner ID cannot be empty")
	}
	return &Bill{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		OwnerID:           ownerID,
		Status:            BillStatusUnpaid,
		Remark:            remark,
		TotalAmount:       decimal.Zero,
		PaidAmount:        decimal.Zero,
		Items:             make([]*BillItem, 0),
	}, nil
}

// AddItem creates a new item from input and appends it to the bill
func (b *Bill) AddItem(in ItemInput) (*BillItem, error) {
	item, err := NewBillItem(b.ID, in)
	if err != nil {
		return nil, err
	}
	b.Items = append(b.Items, item)
	return item, nil
}

// FindItem returns the loaded item with id, or nil
func (b *Bill) FindItem(id uuid.UUID) *BillItem {
	for _, item := range b.Items {
		if item.ID == id {
			return item
		}
	}
	return nil
}

// Reconcile recomputes totals and status from the loaded items.
// Callers must load the full item set first.
func (b *Bill) Reconcile() Totals {
	t := Reconcile(b.Items)
	b.ApplyTotals(t)
	return t
}

// CheckTotals rejects a bill whose total no longer fits the amount column
func (b *Bill) CheckTotals() error {
	if b.TotalAmount.GreaterThan(MaxMoney) {
		return shared.ErrValidation.WithMessage(
			fmt.Sprintf("Bill total %s exceeds %s", b.TotalAmount, MaxMoney))
	}
	return nil
}

// ApplyTotals stores reconciled totals on the aggregate
func (b *Bill) ApplyTotals(t Totals) {
	b.TotalAmount = t.TotalAmount
	b.PaidAmount = t.PaidAmount
	b.Status = t.Status
	b.Touch()
}

// SetRemark replaces the bill remark
func (b *Bill) SetRemark(remark *string) {
	b.Remark = remark
	b.Touch()
}

// OutstandingAmount is the unpaid part of the total, never negative
func (b *Bill) OutstandingAmount() decimal.Decimal {
	out := b.TotalAmount.Sub(b.PaidAmount)
	if out.IsNegative() {
		return decimal.Zero
	}
	return out
}
