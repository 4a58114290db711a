package bill

import (
	"fmt"
	"strings"
)

// BillStatus is the derived payment status of a bill
type BillStatus string

const (
	BillStatusUnpaid BillStatus = "UNPAID"
	BillStatusPaid   BillStatus = "PAID"
)

// IsValid checks if the status is a valid BillStatus
func (s BillStatus) IsValid() bool {
	switch s {
	case BillStatusUnpaid, BillStatusPaid:
		return true
	}
	return false
}

// String returns the string representation of BillStatus
func (s BillStatus) String() string {
	return string(s)
}

// Code returns the storage code
func (s BillStatus) Code() string {
	return strings.ToLower(string(s))
}

// ParseBillStatus decodes a storage code or an upper-case name
func ParseBillStatus(code string) (BillStatus, error) {
	s := BillStatus(strings.ToUpper(strings.TrimSpace(code)))
	if !s.IsValid() {
		return "", fmt.Errorf("unknown bill status %q", code)
	}
	return s, nil
}

// ItemStatus is the lifecycle state of a bill item
type ItemStatus string

const (
	ItemStatusUnpaid   ItemStatus = "UNPAID"
	ItemStatusPaid     ItemStatus = "PAID"
	ItemStatusRefunded ItemStatus = "REFUNDED"
)

// IsValid checks if the status is a valid ItemStatus
func (s ItemStatus) IsValid() bool {
	switch s {
	case ItemStatusUnpaid, ItemStatusPaid, ItemStatusRefunded:
		return true
	}
	return false
}

// String returns the string representation of ItemStatus
func (s ItemStatus) String() string {
	return string(s)
}

// Code returns the storage code
func (s ItemStatus) Code() string {
	return strings.ToLower(string(s))
}

// ParseItemStatus decodes a storage code or an upper-case name
func ParseItemStatus(code string) (ItemStatus, error) {
	s := ItemStatus(strings.ToUpper(strings.TrimSpace(code)))
	if !s.IsValid() {
		return "", fmt.Errorf("unknown item status %q", code)
	}
	return s, nil
}

// PaymentMethod records how an item was paid
type PaymentMethod string

const (
	PaymentMethodCash   PaymentMethod = "CASH"
	PaymentMethodAlipay PaymentMethod = "ALIPAY"
	PaymentMethodWechat PaymentMethod = "WECHAT"
	PaymentMethodCredit PaymentMethod = "CREDIT"
)

// DefaultPaymentMethod is assigned to new items
const DefaultPaymentMethod = PaymentMethodCredit

// IsValid checks if the method is a valid PaymentMethod
func (m PaymentMethod) IsValid() bool {
	switch m {
	case PaymentMethodCash, PaymentMethodAlipay, PaymentMethodWechat, PaymentMethodCredit:
		return true
	}
	return false
}

// String returns the string representation of PaymentMethod
func (m PaymentMethod) String() string {
	return string(m)
}

// Code returns the storage code
func (m PaymentMethod) Code() string {
	return strings.ToLower(string(m))
}

// ParsePaymentMethod decodes a storage code or an upper-case name
func ParsePaymentMethod(code string) (PaymentMethod, error) {
	m := PaymentMethod(strings.ToUpper(strings.TrimSpace(code)))
	if !m.IsValid() {
		return "", fmt.Errorf("unknown payment method %q", code)
	}
	return m, nil
}
