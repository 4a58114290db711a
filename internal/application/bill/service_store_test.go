package bill_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appbill "github.com/erp/billhub/internal/application/bill"
	"github.com/erp/billhub/internal/domain/shared"
	"github.com/erp/billhub/internal/infrastructure/config"
	"github.com/erp/billhub/internal/infrastructure/persistence"
)

func newSQLiteService(t *testing.T, opts ...appbill.ServiceOption) *appbill.BillService {
	t.Helper()
	db, err := persistence.NewDatabase(&config.DatabaseConfig{Driver: "sqlite", SQLitePath: ":memory:"})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate())
	t.Cleanup(func() { _ = db.Close() })
	return appbill.NewBillService(persistence.NewGormBillTransactionScope(db.DB, 0), opts...)
}

func purchase(name, price string) appbill.BillItemInput {
	return appbill.BillItemInput{
		ProductName:  name,
		Price:        decimal.RequireFromString(price),
		Quantity:     decimal.NewFromInt(1),
		Unit:         "pcs",
		PurchaseTime: time.Date(2024, 5, 2, 12, 0, 0, 0, time.UTC),
		BuyerName:    "carol",
	}
}

func TestBillService_SQLite_RejectedBatchLeavesNoTrace(t *testing.T) {
	ctx := context.Background()
	svc := newSQLiteService(t, appbill.WithCrossBillPolicy(appbill.CrossBillReject))

	target, err := svc.CreateBill(ctx, appbill.CreateBillRequest{
		OwnerID: uuid.New(),
		Items:   []appbill.BillItemInput{purchase("soap", "4.20"), purchase("salt", "1.10")},
	})
	require.NoError(t, err)
	other, err := svc.CreateBill(ctx, appbill.CreateBillRequest{
		OwnerID: uuid.New(),
		Items:   []appbill.BillItemInput{purchase("milk", "2.00")},
	})
	require.NoError(t, err)

	err = svc.SettleItems(ctx, target.ID, appbill.SettleItemsRequest{
		ItemIDs: []uuid.UUID{target.Items[0].ID, other.Items[0].ID},
	})
	require.ErrorIs(t, err, shared.ErrCrossOwnership)

	got, err := svc.GetBill(ctx, target.ID)
	require.NoError(t, err)
	assert.Equal(t, "unpaid", got.Status)
	assert.True(t, got.PaidAmount.IsZero())
	assert.Equal(t, 1, got.Version)
	for _, item := range got.Items {
		assert.Equal(t, "unpaid", item.Status, item.ProductName)
	}
}

func TestBillService_SQLite_SettleAndRefundRoundTrip(t *testing.T) {
	ctx := context.Background()
	svc := newSQLiteService(t)

	created, err := svc.CreateBill(ctx, appbill.CreateBillRequest{
		OwnerID: uuid.New(),
		Items:   []appbill.BillItemInput{purchase("soap", "20"), purchase("salt", "15")},
	})
	require.NoError(t, err)
	ids := []uuid.UUID{created.Items[0].ID, created.Items[1].ID}

	require.NoError(t, svc.SettleItems(ctx, created.ID, appbill.SettleItemsRequest{ItemIDs: ids}))
	require.NoError(t, svc.RefundItems(ctx, created.ID, appbill.RefundItemsRequest{ItemIDs: ids[:1]}))

	got, err := svc.GetBill(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "paid", got.Status)
	assert.True(t, got.TotalAmount.Equal(decimal.NewFromInt(15)))
	assert.True(t, got.PaidAmount.Equal(decimal.NewFromInt(15)))
	assert.Equal(t, 3, got.Version)
}
