package bill

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReconcile(t *testing.T) {
	t.Run("empty bill is paid at zero", func(t *testing.T) {
		totals := Reconcile(nil)
		assert.True(t, totals.TotalAmount.IsZero())
		assert.True(t, totals.PaidAmount.IsZero())
		assert.Equal(t, BillStatusPaid, totals.Status)
	})

	t.Run("unpaid items", func(t *testing.T) {
		items := []*BillItem{newTestItem(t, "10.50", "1"), newTestItem(t, "15", "1")}
		totals := Reconcile(items)
		assert.True(t, totals.TotalAmount.Equal(dec("25.50")))
		assert.True(t, totals.PaidAmount.IsZero())
		assert.Equal(t, BillStatusUnpaid, totals.Status)
	})

	t.Run("settle all then refund one", func(t *testing.T) {
		a := newTestItem(t, "20", "1")
		b := newTestItem(t, "15", "1")
		require.NoError(t, a.Settle(SettleUpdate{}))
		require.NoError(t, b.Settle(SettleUpdate{}))

		totals := Reconcile([]*BillItem{a, b})
		assert.True(t, totals.TotalAmount.Equal(dec("35")))
		assert.True(t, totals.PaidAmount.Equal(dec("35")))
		assert.Equal(t, BillStatusPaid, totals.Status)

		a.Refund()
		totals = Reconcile([]*BillItem{a, b})
		assert.True(t, totals.TotalAmount.Equal(dec("15")))
		assert.True(t, totals.PaidAmount.Equal(dec("15")))
		assert.Equal(t, BillStatusPaid, totals.Status)
	})

	t.Run("all refunded bill is paid at zero", func(t *testing.T) {
		a := newTestItem(t, "20", "1")
		require.NoError(t, a.Settle(SettleUpdate{}))
		a.Refund()

		totals := Reconcile([]*BillItem{a})
		assert.True(t, totals.TotalAmount.IsZero())
		assert.True(t, totals.PaidAmount.IsZero())
		assert.Equal(t, BillStatusPaid, totals.Status)
	})

	t.Run("adding unpaid item to paid bill makes it unpaid", func(t *testing.T) {
		a := newTestItem(t, "10", "1")
		require.NoError(t, a.Settle(SettleUpdate{}))
		b := newTestItem(t, "5", "1")

		totals := Reconcile([]*BillItem{a, b})
		assert.True(t, totals.TotalAmount.Equal(dec("15")))
		assert.True(t, totals.PaidAmount.Equal(dec("10")))
		assert.Equal(t, BillStatusUnpaid, totals.Status)
	})
}

func TestBill_Reconcile(t *testing.T) {
	b, err := NewBill(uuid.New(), nil)
	require.NoError(t, err)
	item, err := b.AddItem(ItemInput{
		ProductName:  "Tea",
		Price:        dec("12.30"),
		Quantity:     dec("2"),
		Unit:         "box",
		PurchaseTime: newTestItem(t, "1", "1").PurchaseTime,
		BuyerName:    "Zhao",
	})
	require.NoError(t, err)
	assert.Equal(t, b.ID, item.BillID)

	b.Reconcile()
	assert.True(t, b.TotalAmount.Equal(dec("24.60")))
	assert.Equal(t, BillStatusUnpaid, b.Status)
	assert.True(t, b.OutstandingAmount().Equal(dec("24.60")))

	require.NoError(t, item.Settle(SettleUpdate{}))
	b.Reconcile()
	assert.Equal(t, BillStatusPaid, b.Status)
	assert.True(t, b.OutstandingAmount().IsZero())
	assert.Same(t, item, b.FindItem(item.ID))
	assert.Nil(t, b.FindItem(uuid.New()))
}

func TestNewBill_RequiresOwner(t *testing.T) {
	_, err := NewBill(uuid.Nil, nil)
	assert.Error(t, err)
}
