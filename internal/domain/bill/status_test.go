package bill

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatusCodes(t *testing.T) {
	t.Run("legacy codes decode to variants", func(t *testing.T) {
		s, err := ParseItemStatus("refunded")
		require.NoError(t, err)
		assert.Equal(t, ItemStatusRefunded, s)

		b, err := ParseBillStatus("paid")
		require.NoError(t, err)
		assert.Equal(t, BillStatusPaid, b)

		m, err := ParsePaymentMethod("wechat")
		require.NoError(t, err)
		assert.Equal(t, PaymentMethodWechat, m)
	})

	t.Run("variants encode to legacy codes", func(t *testing.T) {
		assert.Equal(t, "unpaid", ItemStatusUnpaid.Code())
		assert.Equal(t, "unpaid", BillStatusUnpaid.Code())
		assert.Equal(t, "alipay", PaymentMethodAlipay.Code())
	})

	t.Run("unknown codes are rejected", func(t *testing.T) {
		_, err := ParseItemStatus("void")
		assert.Error(t, err)
		_, err = ParseBillStatus("partial")
		assert.Error(t, err)
		_, err = ParsePaymentMethod("card")
		assert.Error(t, err)
	})
}
