package bill

import "github.com/shopspring/decimal"

// Totals is the aggregate view of a bill's items
type Totals struct {
	TotalAmount decimal.Decimal
	PaidAmount  decimal.Decimal
	Status      BillStatus
}

// Reconcile derives bill totals from the complete item set.
// Refunded items do not count toward the total; only paid items count
// toward the paid amount. A bill whose items are all refunded is PAID.
func Reconcile(items []*BillItem) Totals {
	total := decimal.Zero
	paid := decimal.Zero
	for _, item := range items {
		if item.Status != ItemStatusRefunded {
			total = total.Add(item.Amount)
		}
		if item.Status == ItemStatusPaid {
			paid = paid.Add(item.PaidAmount)
		}
	}

	status := BillStatusUnpaid
	if paid.GreaterThanOrEqual(total) {
		status = BillStatusPaid
	}
	return Totals{
		TotalAmount: RoundMoney(total),
		PaidAmount:  RoundMoney(paid),
		Status:      status,
	}
}
