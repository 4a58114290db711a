package printing

import (
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/language"

	appbill "github.com/erp/billhub/internal/application/bill"
)

func sampleSnapshot() appbill.BillSnapshot {
	settled := time.Date(2024, 3, 2, 10, 30, 0, 0, time.UTC)
	return appbill.BillSnapshot{
		BillID: uuid.MustParse("7f1c9a52-5d0b-4e55-9a0e-3f3b8d2b8c11"),
		Owner: appbill.Owner{
			Username:       "alice",
			Phone:          "555-0100",
			Email:          "alice@example.com",
			Alias:          "<ali>",
			DepartmentName: "Ops",
		},
		Status:      "unpaid",
		TotalAmount: decimal.RequireFromString("1234.5"),
		PaidAmount:  decimal.RequireFromString("10.5"),
		CreatedAt:   time.Date(2024, 3, 1, 8, 0, 0, 0, time.UTC),
		ExportTime:  time.Date(2024, 3, 31, 18, 0, 0, 0, time.UTC),
		Items: []appbill.SnapshotItem{
			{
				ProductName:   "apple",
				Price:         decimal.RequireFromString("10.50"),
				Quantity:      decimal.RequireFromString("1.000"),
				Unit:          "kg",
				PurchaseTime:  time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC),
				SettleTime:    &settled,
				BuyerName:     "bob",
				Status:        "paid",
				PaymentMethod: "alipay",
				SettlerName:   "carol",
				Amount:        decimal.RequireFromString("10.50"),
				PaidAmount:    decimal.RequireFromString("10.50"),
			},
			{
				ProductName:   "laptop",
				Price:         decimal.RequireFromString("1224"),
				Quantity:      decimal.NewFromInt(1),
				Unit:          "pcs",
				PurchaseTime:  time.Date(2024, 3, 1, 9, 5, 0, 0, time.UTC),
				BuyerName:     "bob",
				Status:        "unpaid",
				PaymentMethod: "credit",
				Amount:        decimal.RequireFromString("1224"),
				PaidAmount:    decimal.Zero,
			},
		},
	}
}

func TestStatementTemplate_English(t *testing.T) {
	st, err := NewStatementTemplate("en-US", nil)
	require.NoError(t, err)
	assert.Equal(t, language.English, st.Locale())

	html, err := st.Render(sampleSnapshot())
	require.NoError(t, err)

	assert.Contains(t, html, "size: A4 landscape")
	assert.Contains(t, html, "Name: alice")
	assert.Contains(t, html, "&lt;ali&gt;")
	assert.Contains(t, html, "Total amount: 1,234.50")
	assert.Contains(t, html, "Paid amount: 10.50")
	assert.Contains(t, html, "Exported: 2024-03-31 18:00")
	assert.Contains(t, html, "<td>Alipay</td>")
	assert.Contains(t, html, "<td>2024-03-02 10:30</td>")
	assert.Contains(t, html, "<td>1</td>")
	assert.Equal(t, 13, strings.Count(html, "<th>"))
	assert.Equal(t, 2, strings.Count(html, "<tr>\n<td>"))
}

func TestStatementTemplate_Chinese(t *testing.T) {
	st, err := NewStatementTemplate("zh-CN", time.FixedZone("CST", 8*3600))
	require.NoError(t, err)
	assert.Equal(t, language.SimplifiedChinese, st.Locale())

	html, err := st.Render(sampleSnapshot())
	require.NoError(t, err)
	assert.Contains(t, html, "客户信息")
	assert.Contains(t, html, "状态: 未支付")
	assert.Contains(t, html, "<td>支付宝</td>")
	assert.Contains(t, html, "导出时间: 2024-04-01 02:00")
}

func TestStatementTemplate_EmptyBill(t *testing.T) {
	st, err := NewStatementTemplate("", nil)
	require.NoError(t, err)
	assert.Equal(t, language.English, st.Locale())

	snap := sampleSnapshot()
	snap.Items = nil
	html, err := st.Render(snap)
	require.NoError(t, err)
	assert.Contains(t, html, `<td colspan="13">No items</td>`)
}

func TestStatementTemplate_Money(t *testing.T) {
	st, err := NewStatementTemplate("en", nil)
	require.NoError(t, err)

	assert.Equal(t, "0.00", st.money(decimal.Zero))
	assert.Equal(t, "1,000,000.10", st.money(decimal.RequireFromString("1000000.1")))
	assert.Equal(t, "-3.50", st.money(decimal.RequireFromString("-3.5")))
	assert.Equal(t, "0.01", st.money(decimal.RequireFromString("0.005")))
}
