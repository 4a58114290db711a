package bill

import (
	"fmt"
	"strings"
	"time"

	"github.com/erp/billhub/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Decimal places kept for monetary amounts and quantities
const (
	MoneyPlaces    = 2
	QuantityPlaces = 3
)

// Largest values the decimal(10,2) and decimal(10,3) columns hold
var (
	MaxMoney    = decimal.RequireFromString("99999999.99")
	MaxQuantity = decimal.RequireFromString("9999999.999")
)

// RoundMoney rounds half away from zero to MoneyPlaces
func RoundMoney(d decimal.Decimal) decimal.Decimal {
	return d.Round(MoneyPlaces)
}

// BillItem is a single purchased line on a bill
type BillItem struct {
	ID               uuid.UUID
	BillID           uuid.UUID
	ProductName      string
	Price            decimal.Decimal
	Quantity         decimal.Decimal
	RefundedQuantity decimal.Decimal // Portion of Quantity given back through partial refunds
	Unit             string
	PurchaseTime     time.Time
	BuyerName        string
	Status           ItemStatus
	PaymentMethod    PaymentMethod
	SettlerName      *string
	SettleTime       *time.Time
	Amount           decimal.Decimal // round(Price * remaining quantity, 2)
	PaidAmount       decimal.Decimal
	Remark           *string
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// ItemInput carries the fields needed to create an item
type ItemInput struct {
	ProductName  string
	Price        decimal.Decimal
	Quantity     decimal.Decimal
	Unit         string
	PurchaseTime time.Time
	BuyerName    string
	Remark       *string
}

// SettleUpdate carries optional payment details applied during settlement.
// Nil fields leave the current value untouched.
type SettleUpdate struct {
	PaymentMethod *PaymentMethod
	SettlerName   *string
	SettleTime    *time.Time
	Remark        *string
}

// NewBillItem creates an unpaid item with amount = round(price * quantity, 2)
func NewBillItem(billID uuid.UUID, in ItemInput) (*BillItem, error) {
	if billID == uuid.Nil {
		return nil, shared.ErrValidation.WithMessage("Bill ID cannot be empty")
	}
	if strings.TrimSpace(in.ProductName) == "" {
		return nil, shared.ErrValidation.WithMessage("Product name cannot be empty")
	}
	if strings.TrimSpace(in.Unit) == "" {
		return nil, shared.ErrValidation.WithMessage("Unit cannot be empty")
	}
	if strings.TrimSpace(in.BuyerName) == "" {
		return nil, shared.ErrValidation.WithMessage("Buyer name cannot be empty")
	}
	if in.Price.IsNegative() {
		return nil, shared.ErrValidation.WithMessage("Price cannot be negative")
	}
	if !in.Price.Equal(RoundMoney(in.Price)) {
		return nil, shared.ErrValidation.WithMessage("Price cannot have more than 2 decimal places")
	}
	if in.Price.GreaterThan(MaxMoney) {
		return nil, shared.ErrValidation.WithMessage(fmt.Sprintf("Price cannot exceed %s", MaxMoney))
	}
	if !in.Quantity.IsPositive() {
		return nil, shared.ErrValidation.WithMessage("Quantity must be positive")
	}
	if !in.Quantity.Equal(in.Quantity.Round(QuantityPlaces)) {
		return nil, shared.ErrValidation.WithMessage("Quantity cannot have more than 3 decimal places")
	}
	if in.Quantity.GreaterThan(MaxQuantity) {
		return nil, shared.ErrValidation.WithMessage(fmt.Sprintf("Quantity cannot exceed %s", MaxQuantity))
	}
	amount := RoundMoney(in.Price.Mul(in.Quantity))
	if amount.GreaterThan(MaxMoney) {
		return nil, shared.ErrValidation.WithMessage(fmt.Sprintf("Item amount %s exceeds %s", amount, MaxMoney))
	}
	if in.PurchaseTime.IsZero() {
		return nil, shared.ErrValidation.WithMessage("Purchase time is required")
	}

	now := time.Now()
	return &BillItem{
		ID:               uuid.New(),
		BillID:           billID,
		ProductName:      in.ProductName,
		Price:            in.Price,
		Quantity:         in.Quantity,
		RefundedQuantity: decimal.Zero,
		Unit:             in.Unit,
		PurchaseTime:     in.PurchaseTime,
		BuyerName:        in.BuyerName,
		Status:           ItemStatusUnpaid,
		PaymentMethod:    DefaultPaymentMethod,
		Amount:           amount,
		PaidAmount:       decimal.Zero,
		Remark:           in.Remark,
		CreatedAt:        now,
		UpdatedAt:        now,
	}, nil
}

// RemainingQuantity is the quantity not yet given back
func (i *BillItem) RemainingQuantity() decimal.Decimal {
	return i.Quantity.Sub(i.RefundedQuantity)
}

// IsPaid reports whether the item is in PAID state
func (i *BillItem) IsPaid() bool {
	return i.Status == ItemStatusPaid
}

// IsRefunded reports whether the item is in REFUNDED state
func (i *BillItem) IsRefunded() bool {
	return i.Status == ItemStatusRefunded
}

// Settle marks the item paid in full. Re-settling a paid item refreshes its
// payment details; a refunded item cannot be settled.
func (i *BillItem) Settle(update SettleUpdate) error {
	if i.Status == ItemStatusRefunded {
		return shared.ErrInvalidState.WithMessage(fmt.Sprintf("Cannot settle item %s in %s status", i.ID, i.Status))
	}
	if update.PaymentMethod != nil && !update.PaymentMethod.IsValid() {
		return shared.ErrValidation.WithMessage(fmt.Sprintf("Invalid payment method %q", *update.PaymentMethod))
	}

	i.Status = ItemStatusPaid
	i.PaidAmount = i.Amount
	if update.PaymentMethod != nil {
		i.PaymentMethod = *update.PaymentMethod
	}
	if update.SettlerName != nil {
		i.SettlerName = update.SettlerName
	}
	if update.SettleTime != nil {
		i.SettleTime = update.SettleTime
	}
	if update.Remark != nil {
		i.Remark = update.Remark
	}
	i.UpdatedAt = time.Now()
	return nil
}

// Refund returns the remaining quantity of a paid item. Like a quantity
// refund that empties the line, the amount stays at the value of the portion
// given back. It is a no-op for items that are not paid and reports whether
// anything changed.
func (i *BillItem) Refund() bool {
	if i.Status != ItemStatusPaid {
		return false
	}
	i.Status = ItemStatusRefunded
	i.RefundedQuantity = i.Quantity
	i.PaidAmount = decimal.Zero
	i.UpdatedAt = time.Now()
	return true
}

// RefundQuantity gives back part of the line. The amount shrinks to the
// remaining quantity; once nothing remains the item becomes REFUNDED and
// keeps the amount of the last remaining portion.
func (i *BillItem) RefundQuantity(qty decimal.Decimal) error {
	if i.Status == ItemStatusRefunded {
		return shared.ErrInvalidState.WithMessage(fmt.Sprintf("Item %s is already refunded", i.ID))
	}
	if !qty.Equal(qty.Round(QuantityPlaces)) {
		return shared.ErrInvalidQuantity.WithMessage(
			fmt.Sprintf("Refund quantity %s cannot have more than %d decimal places", qty, QuantityPlaces))
	}
	remaining := i.RemainingQuantity()
	if !qty.IsPositive() || qty.GreaterThan(remaining) {
		return shared.ErrInvalidQuantity.WithMessage(
			fmt.Sprintf("Refund quantity %s must be greater than 0 and at most %s", qty, remaining))
	}

	i.RefundedQuantity = i.RefundedQuantity.Add(qty)
	remaining = i.RemainingQuantity()
	i.UpdatedAt = time.Now()

	if remaining.IsZero() {
		i.Status = ItemStatusRefunded
		i.PaidAmount = decimal.Zero
		return nil
	}

	i.Amount = RoundMoney(i.Price.Mul(remaining))
	if i.Status == ItemStatusPaid {
		i.PaidAmount = i.Amount
	}
	return nil
}

// SetRemark replaces the remark when one is supplied
func (i *BillItem) SetRemark(remark *string) {
	if remark == nil {
		return
	}
	i.Remark = remark
	i.UpdatedAt = time.Now()
}
